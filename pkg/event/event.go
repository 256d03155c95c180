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

// Package event holds the in-memory CloudEvent model, its builder and the
// visitor protocol used by every codec to stream context attributes.
package event

import (
	"bytes"
	"net/url"
	"sort"
	"strings"
	"time"

	"knative.dev/cecodec/pkg/spec"
	"knative.dev/cecodec/pkg/types"
)

// Event is an immutable CloudEvent. Use a Builder to create one.
type Event struct {
	version    spec.Version
	attributes map[string]types.Value
	extensions map[string]types.Value
	data       Data
}

var _ ContextReader = (*Event)(nil)

func (e *Event) SpecVersion() spec.Version { return e.version }

func (e *Event) ID() string { return e.str(spec.ID) }

func (e *Event) Type() string { return e.str(spec.Type) }

func (e *Event) Subject() string { return e.str(spec.Subject) }

func (e *Event) DataContentType() string { return e.str(spec.DataContentType) }

// Source returns the event source URI-reference.
func (e *Event) Source() *url.URL {
	u, _ := e.attributes[spec.Source].AsURL()
	return u
}

// DataSchema returns the dataschema (1.0) or schemaurl (0.3) attribute, or
// nil when unset.
func (e *Event) DataSchema() *url.URL {
	v, ok := e.attributes[e.version.SchemaAttribute()]
	if !ok {
		return nil
	}
	u, _ := v.AsURL()
	return u
}

// Time returns the event time and whether it is set.
func (e *Event) Time() (time.Time, bool) {
	v, ok := e.attributes[spec.Time]
	if !ok {
		return time.Time{}, false
	}
	return v.AsTime()
}

// Attribute returns the named context attribute or extension. specversion is
// reported as a String value.
func (e *Event) Attribute(name string) (types.Value, bool) {
	if name == spec.SpecVersion {
		return types.NewString(e.version.String()), true
	}
	if v, ok := e.attributes[name]; ok {
		return v, true
	}
	v, ok := e.extensions[name]
	return v, ok
}

// Extension returns the named extension attribute.
func (e *Event) Extension(name string) (types.Value, bool) {
	v, ok := e.extensions[name]
	return v, ok
}

// ExtensionNames returns the extension names in lexical order.
func (e *Event) ExtensionNames() []string {
	names := make([]string, 0, len(e.extensions))
	for n := range e.extensions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Data returns the payload, or nil when the event carries none.
func (e *Event) Data() Data { return e.data }

// ReadContext writes specversion, the set attributes of the event's version in
// canonical order, then the extensions in lexical order.
func (e *Event) ReadContext(w ContextWriter) error {
	if err := w.WithString(spec.SpecVersion, e.version.String()); err != nil {
		return err
	}
	for _, a := range e.version.Attributes() {
		v, ok := e.attributes[a.Name]
		if !ok {
			continue
		}
		if err := WriteValue(w, a.Name, v); err != nil {
			return err
		}
	}
	for _, n := range e.ExtensionNames() {
		if err := WriteValue(w, n, e.extensions[n]); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether e and o have the same version, attributes, extensions
// and payload bytes. A missing payload equals an empty one.
func (e *Event) Equal(o *Event) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.version != o.version || !equalValues(e.attributes, o.attributes) || !equalValues(e.extensions, o.extensions) {
		return false
	}
	a, err := dataBytes(e.data)
	if err != nil {
		return false
	}
	b, err := dataBytes(o.data)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// String returns a human readable rendition of the event.
func (e *Event) String() string {
	b := strings.Builder{}
	b.WriteString("Context Attributes,\n")
	b.WriteString("  specversion: " + e.version.String() + "\n")
	for _, a := range e.version.Attributes() {
		if v, ok := e.attributes[a.Name]; ok {
			b.WriteString("  " + a.Name + ": " + v.String() + "\n")
		}
	}
	if len(e.extensions) > 0 {
		b.WriteString("Extensions,\n")
		for _, n := range e.ExtensionNames() {
			b.WriteString("  " + n + ": " + e.extensions[n].String() + "\n")
		}
	}
	if e.data != nil {
		b.WriteString("Data,\n  ")
		if d, err := e.data.Bytes(); err != nil {
			b.WriteString("<" + err.Error() + ">")
		} else {
			b.Write(d)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Event) str(name string) string {
	if v, ok := e.attributes[name]; ok {
		return v.String()
	}
	return ""
}

func equalValues(a, b map[string]types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

func dataBytes(d Data) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return d.Bytes()
}
