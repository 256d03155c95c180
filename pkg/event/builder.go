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

package event

import (
	"net/url"
	"time"

	"go.uber.org/multierr"

	"knative.dev/cecodec/pkg/spec"
	"knative.dev/cecodec/pkg/types"
)

// Builder assembles an Event. Setters record their failures and Build reports
// all of them at once. A Builder is also the ContextWriter decoders write
// attributes into.
type Builder struct {
	version    spec.Version
	attributes map[string]types.Value
	extensions map[string]types.Value
	data       Data
	err        error
}

var _ ContextWriter = (*Builder)(nil)

// NewBuilder returns an empty Builder for version v.
func NewBuilder(v spec.Version) *Builder {
	return &Builder{
		version:    v,
		attributes: map[string]types.Value{},
		extensions: map[string]types.Value{},
	}
}

// NewBuilderFrom returns a Builder initialized with the content of e.
func NewBuilderFrom(e *Event) *Builder {
	b := NewBuilder(e.version)
	for k, v := range e.attributes {
		b.attributes[k] = v
	}
	for k, v := range e.extensions {
		b.extensions[k] = v
	}
	b.data = e.data
	return b
}

// SpecVersion returns the version the Builder currently targets.
func (b *Builder) SpecVersion() spec.Version { return b.version }

// SetSpecVersion changes the target version, moving the data schema link
// between schemaurl and dataschema.
func (b *Builder) SetSpecVersion(v spec.Version) *Builder {
	if v == b.version {
		return b
	}
	if _, err := spec.Parse(v.String()); err != nil {
		b.fail(NewAttributeError(ErrInvalidSpecVersion, spec.SpecVersion, err))
		return b
	}
	from, to := b.version.SchemaAttribute(), v.SchemaAttribute()
	b.version = v
	if schema, ok := b.attributes[from]; ok {
		delete(b.attributes, from)
		b.fail(b.set(to, schema))
	}
	return b
}

func (b *Builder) SetID(id string) *Builder {
	b.attributes[spec.ID] = types.NewString(id)
	return b
}

func (b *Builder) SetType(t string) *Builder {
	b.attributes[spec.Type] = types.NewString(t)
	return b
}

// SetSource parses s as a URI-reference.
func (b *Builder) SetSource(s string) *Builder {
	b.fail(b.set(spec.Source, types.NewString(s)))
	return b
}

// SetSourceURL sets the source from a URL.
func (b *Builder) SetSourceURL(u *url.URL) *Builder {
	if u == nil {
		b.fail(NewAttributeError(ErrInvalidAttributeValue, spec.Source, "nil URL"))
		return b
	}
	b.attributes[spec.Source] = types.NewURIRef(u)
	return b
}

// SetSubject sets the subject. An empty string unsets it.
func (b *Builder) SetSubject(s string) *Builder {
	b.fail(b.set(spec.Subject, types.NewString(s)))
	return b
}

func (b *Builder) SetTime(t time.Time) *Builder {
	b.attributes[spec.Time] = types.NewTimestamp(t)
	return b
}

// SetDataSchema sets dataschema (1.0) or schemaurl (0.3). An empty string
// unsets it.
func (b *Builder) SetDataSchema(s string) *Builder {
	b.fail(b.set(b.version.SchemaAttribute(), types.NewString(s)))
	return b
}

// SetDataContentType sets the media type of the payload. An empty string
// unsets it.
func (b *Builder) SetDataContentType(ct string) *Builder {
	b.fail(b.set(spec.DataContentType, types.NewString(ct)))
	return b
}

// SetExtension sets an extension attribute from any value accepted by
// types.ValueOf. A nil value removes the extension.
func (b *Builder) SetExtension(name string, value interface{}) *Builder {
	if value == nil {
		delete(b.extensions, name)
		return b
	}
	if b.version.IsReserved(name) {
		b.fail(NewAttributeError(ErrInvalidExtensionName, name, "reserved attribute name"))
		return b
	}
	v, err := types.ValueOf(value)
	if err != nil {
		b.fail(NewAttributeError(ErrInvalidAttributeValue, name, err))
		return b
	}
	b.fail(b.set(name, v))
	return b
}

// SetAttribute sets a context attribute or an extension by name.
func (b *Builder) SetAttribute(name string, v types.Value) *Builder {
	b.fail(b.set(name, v))
	return b
}

// SetData attaches a payload. A non empty contentType also sets
// datacontenttype.
func (b *Builder) SetData(contentType string, d Data) *Builder {
	if contentType != "" {
		b.SetDataContentType(contentType)
	}
	b.data = d
	return b
}

// SetDataBytes attaches a copy of p as an opaque payload.
func (b *Builder) SetDataBytes(contentType string, p []byte) *Builder {
	return b.SetData(contentType, NewBytesData(p))
}

// WithString implements ContextWriter.
func (b *Builder) WithString(name, value string) error {
	return b.set(name, types.NewString(value))
}

// WithInteger implements ContextWriter. Only extensions accept integers.
func (b *Builder) WithInteger(name string, value int32) error {
	if err := b.checkNonTextual(name, types.Integer); err != nil {
		return err
	}
	return b.set(name, types.NewInteger(value))
}

// WithBoolean implements ContextWriter. Only extensions accept booleans.
func (b *Builder) WithBoolean(name string, value bool) error {
	if err := b.checkNonTextual(name, types.Boolean); err != nil {
		return err
	}
	return b.set(name, types.NewBoolean(value))
}

// Build validates the collected attributes and returns the Event.
func (b *Builder) Build() (*Event, error) {
	err := b.err
	for _, a := range b.version.Attributes() {
		if !a.Mandatory || a.Name == spec.SpecVersion {
			continue
		}
		v, ok := b.attributes[a.Name]
		if !ok || v.String() == "" {
			err = multierr.Append(err, NewAttributeError(ErrInvalidAttributeValue, a.Name, "missing mandatory attribute"))
		}
	}
	for name := range b.attributes {
		if _, ok := b.version.Attribute(name); !ok {
			err = multierr.Append(err, NewAttributeError(ErrInvalidAttributeValue, name, "not an attribute of specversion "+b.version.String()))
		}
	}
	for name := range b.extensions {
		if !spec.ValidExtensionName(name) || b.version.IsReserved(name) {
			err = multierr.Append(err, NewAttributeError(ErrInvalidExtensionName, name, nil))
		}
	}
	if err != nil {
		return nil, err
	}

	e := &Event{
		version:    b.version,
		attributes: make(map[string]types.Value, len(b.attributes)),
		extensions: make(map[string]types.Value, len(b.extensions)),
		data:       b.data,
	}
	for k, v := range b.attributes {
		e.attributes[k] = v
	}
	for k, v := range b.extensions {
		e.extensions[k] = v
	}
	return e, nil
}

func (b *Builder) set(name string, v types.Value) error {
	if name == spec.SpecVersion {
		got, err := spec.Parse(v.String())
		if err != nil {
			return NewAttributeError(ErrInvalidSpecVersion, name, err)
		}
		if got != b.version {
			return NewAttributeError(ErrSpecVersionMismatch, name, "builder targets specversion "+b.version.String())
		}
		return nil
	}

	if a, ok := b.version.Attribute(name); ok {
		if !a.Mandatory && v.String() == "" {
			delete(b.attributes, name)
			return nil
		}
		converted, err := types.Convert(v, a.Kind)
		if err != nil {
			return NewAttributeError(ErrInvalidAttributeValue, name, err)
		}
		b.attributes[name] = converted
		return nil
	}

	if !spec.ValidExtensionName(name) || b.version.IsReserved(name) {
		return NewAttributeError(ErrInvalidExtensionName, name, nil)
	}
	b.extensions[name] = v
	return nil
}

func (b *Builder) checkNonTextual(name string, kind types.Kind) error {
	if name == spec.SpecVersion {
		return NewAttributeError(ErrInvalidAttributeType, name, "expected "+types.String.String())
	}
	if a, ok := b.version.Attribute(name); ok && a.Kind != kind {
		return NewAttributeError(ErrInvalidAttributeType, name, "expected "+a.Kind.String()+", got "+kind.String())
	}
	return nil
}

func (b *Builder) fail(err error) {
	b.err = multierr.Append(b.err, err)
}
