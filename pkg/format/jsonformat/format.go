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

// Package jsonformat implements the structured-mode JSON event format.
//
// Importing the package registers the format in format.Default under
// application/cloudevents+json.
package jsonformat

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format"
)

// MediaType is the default media type of the JSON format.
const MediaType = format.Prefix + "+json"

var (
	// json decodes with encoding/json semantics.
	json = jsoniter.ConfigCompatibleWithStandardLibrary
	// streams only write pre-escaped fields and strings, so the fastest
	// configuration produces the same bytes.
	streams = jsoniter.ConfigFastest
)

func init() {
	format.Default.Register(New())
}

// Format encodes events as JSON objects. It holds no per call state and may
// be shared between goroutines.
type Format struct {
	mediaType       string
	forceDataBase64 bool
	forceString     bool
}

var _ format.Format = (*Format)(nil)

// Option configures a Format.
type Option func(*Format)

// WithForceDataBase64 makes payloads of JSON content types base64 encoded
// instead of embedded.
func WithForceDataBase64(force bool) Option {
	return func(f *Format) {
		f.forceDataBase64 = force
	}
}

// WithForceString makes payloads of non JSON content types written as JSON
// strings instead of base64.
func WithForceString(force bool) Option {
	return func(f *Format) {
		f.forceString = force
	}
}

// WithMediaType overrides the media type reported by the format.
func WithMediaType(mediaType string) Option {
	return func(f *Format) {
		f.mediaType = mediaType
	}
}

// New returns a JSON format configured by opts.
func New(opts ...Option) *Format {
	f := &Format{mediaType: MediaType}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Format) MediaType() string { return f.mediaType }

// IsJSON reports whether contentType denotes JSON: no content type at all,
// application/json, text/json or any +json suffixed type.
func IsJSON(contentType string) bool {
	mt := format.Normalize(contentType)
	return mt == "" || mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json")
}

// base64Data reports whether a payload of the given content type is written
// base64 encoded rather than as JSON or text.
func (f *Format) base64Data(contentType string) bool {
	if IsJSON(contentType) {
		return f.forceDataBase64
	}
	return !f.forceString
}

// Marshal encodes e as a structured JSON document.
func (f *Format) Marshal(e *event.Event) ([]byte, error) {
	stream := streams.BorrowStream(nil)
	defer streams.ReturnStream(stream)

	w := &contextWriter{stream: stream}
	stream.WriteObjectStart()
	if err := e.ReadContext(w); err != nil {
		return nil, err
	}
	if err := f.writeData(w, e); err != nil {
		return nil, err
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, event.NewAttributeError(event.ErrContextWrite, "", stream.Error)
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// Unmarshal decodes a structured JSON document.
func (f *Format) Unmarshal(b []byte) (*event.Event, error) {
	return readEvent(b)
}
