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

// Package binding maps events onto transport messages, either as a single
// structured document or in binary mode as attribute headers plus a raw body.
package binding

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format"
	"knative.dev/cecodec/pkg/spec"
	"knative.dev/cecodec/pkg/types"
)

// Mode is the content mode of a message.
type Mode int

const (
	ModeBinary Mode = iota
	ModeStructured
)

func (m Mode) String() string {
	if m == ModeStructured {
		return "structured"
	}
	return "binary"
}

// MessageReader is a fully buffered incoming transport message.
type MessageReader interface {
	// ContentType returns the transport's native content type.
	ContentType() string
	// ReadHeaders calls fn for each header, with the value already decoded
	// from its transport specific escaping.
	ReadHeaders(fn func(name, value string) error) error
	Body() []byte
}

// MessageWriter is an outgoing transport message.
type MessageWriter interface {
	SetContentType(contentType string)
	// SetHeader sets a header, escaping the value as the transport requires.
	SetHeader(name, value string)
	SetBody(body []byte)
}

// Binary is the binary content mode binding of a transport.
type Binary struct {
	// Prefix is prepended to attribute names to form header names, "ce-" for
	// HTTP.
	Prefix string
	// Extensions declares the type of known extensions. Headers of other
	// extensions are read as strings.
	Extensions map[string]types.Kind
}

// Write sets one header per attribute of e, carries datacontenttype in the
// transport content type and writes the payload bytes as the body.
func (b Binary) Write(e *event.Event, w MessageWriter) error {
	err := e.ReadContext(event.ContextWriterFunc(func(name, value string) error {
		if name == spec.DataContentType {
			w.SetContentType(value)
			return nil
		}
		w.SetHeader(b.Prefix+name, value)
		return nil
	}))
	if err != nil {
		return err
	}
	if d := e.Data(); d != nil {
		body, err := d.Bytes()
		if err != nil {
			return err
		}
		w.SetBody(body)
	}
	return nil
}

// Read decodes a binary mode message. Header values are parsed according to
// the declared type of their attribute.
func (b Binary) Read(msg MessageReader) (*event.Event, error) {
	attrs := map[string]string{}
	err := msg.ReadHeaders(func(name, value string) error {
		name = strings.ToLower(name)
		if !strings.HasPrefix(name, b.Prefix) {
			return nil
		}
		attrs[strings.TrimPrefix(name, b.Prefix)] = value
		return nil
	})
	if err != nil {
		return nil, err
	}

	sv, ok := attrs[spec.SpecVersion]
	if !ok {
		return nil, event.NewAttributeError(event.ErrInvalidAttributeValue, spec.SpecVersion, "missing "+b.Prefix+spec.SpecVersion+" header")
	}
	version, err := spec.Parse(sv)
	if err != nil {
		return nil, event.NewAttributeError(event.ErrInvalidSpecVersion, spec.SpecVersion, err)
	}
	delete(attrs, spec.SpecVersion)

	builder := event.NewBuilder(version)
	names := make([]string, 0, len(attrs))
	for n := range attrs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := b.writeHeader(builder, version, n, attrs[n]); err != nil {
			return nil, err
		}
	}

	if ct := msg.ContentType(); ct != "" {
		if err := builder.WithString(spec.DataContentType, ct); err != nil {
			return nil, err
		}
	}
	if body := msg.Body(); len(body) > 0 {
		builder.SetData("", event.NewBytesData(body))
	}
	return builder.Build()
}

func (b Binary) writeHeader(w event.ContextWriter, version spec.Version, name, value string) error {
	if _, ok := version.Attribute(name); ok {
		return w.WithString(name, value)
	}
	kind, ok := b.Extensions[name]
	if !ok {
		return w.WithString(name, value)
	}
	v, err := types.Parse(kind, value)
	if err != nil {
		return event.NewAttributeError(event.ErrInvalidAttributeValue, name, err)
	}
	return event.WriteValue(w, name, v)
}

// DecideMode returns the content mode of a message with the given content
// type. Structured mode is used when the registry has a format for it; a
// structured format media type nobody registered is unsupported.
func DecideMode(r *format.Registry, contentType string) (Mode, format.Format, error) {
	if f, ok := r.Lookup(contentType); ok {
		return ModeStructured, f, nil
	}
	if format.IsFormat(contentType) {
		return ModeBinary, nil, errors.Wrapf(event.ErrUnsupportedContentType, "%q", contentType)
	}
	return ModeBinary, nil, nil
}

// ToEvent decodes a message in whichever mode its content type calls for.
func ToEvent(r *format.Registry, b Binary, msg MessageReader) (*event.Event, error) {
	mode, f, err := DecideMode(r, msg.ContentType())
	if err != nil {
		return nil, err
	}
	if mode == ModeStructured {
		return f.Unmarshal(msg.Body())
	}
	return b.Read(msg)
}

// WriteEvent encodes e into w, as a structured document when f is not nil and
// in binary mode otherwise.
func WriteEvent(e *event.Event, w MessageWriter, b Binary, f format.Format) error {
	if f == nil {
		return b.Write(e, w)
	}
	body, err := f.Marshal(e)
	if err != nil {
		return err
	}
	w.SetContentType(f.MediaType())
	w.SetBody(body)
	return nil
}
