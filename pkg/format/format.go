/*
Copyright 2024 The Knative Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package format defines structured-mode event formats and the registry
// transports use to find the format owning a content type.
package format

import (
	"sort"
	"strings"
	"sync"

	"knative.dev/cecodec/pkg/event"
)

// Prefix of every structured-mode event format media type.
const Prefix = "application/cloudevents"

// Format serializes a whole event, attributes and data, into a single document.
type Format interface {
	// MediaType identifies the format, for example application/cloudevents+json.
	MediaType() string
	Marshal(e *event.Event) ([]byte, error)
	Unmarshal(b []byte) (*event.Event, error)
}

// IsFormat reports whether mediaType belongs to the structured format family.
func IsFormat(mediaType string) bool {
	return strings.HasPrefix(Normalize(mediaType), Prefix)
}

// Normalize lower-cases a media type and strips its parameters.
func Normalize(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Default is the process wide registry. Importing a format package registers
// its format here; nothing is ever unregistered.
var Default = NewRegistry()

// Registry maps normalized media types to formats. It is safe for concurrent
// use; registrations are exclusive and lookups proceed in parallel.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Format
	cache   lookupCache
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		formats: map[string]Format{},
		cache:   newLookupCache(),
	}
}

// Register adds f under each of mediaTypes, or under f.MediaType() when none
// is given. A later registration for the same media type replaces the earlier.
func (r *Registry) Register(f Format, mediaTypes ...string) {
	if len(mediaTypes) == 0 {
		mediaTypes = []string{f.MediaType()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range mediaTypes {
		r.formats[Normalize(mt)] = f
	}
	r.cache.Purge()
}

// Lookup returns the format registered for contentType. An exact match on the
// normalized media type wins; otherwise the longest registered media type
// prefixing it is used.
func (r *Registry) Lookup(contentType string) (Format, bool) {
	if contentType == "" {
		return nil, false
	}
	if e, ok := r.cache.Get(contentType); ok {
		return e.format, e.format != nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	f := r.lookupLocked(Normalize(contentType))
	r.cache.Add(contentType, cacheEntry{format: f})
	return f, f != nil
}

func (r *Registry) lookupLocked(mt string) Format {
	if f, ok := r.formats[mt]; ok {
		return f
	}
	var (
		best    Format
		bestLen int
	)
	for k, f := range r.formats {
		if len(k) > bestLen && strings.HasPrefix(mt, k) {
			best, bestLen = f, len(k)
		}
	}
	return best
}

// MediaTypes returns the registered media types in lexical order.
func (r *Registry) MediaTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mts := make([]string, 0, len(r.formats))
	for k := range r.formats {
		mts = append(mts, k)
	}
	sort.Strings(mts)
	return mts
}
