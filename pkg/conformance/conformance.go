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

// Package conformance converts between events and the YAML event documents of
// the CloudEvents conformance tooling.
package conformance

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	ceconformance "github.com/cloudevents/conformance/pkg/event"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"knative.dev/cecodec/pkg/binding"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format/jsonformat"
	"knative.dev/cecodec/pkg/spec"
)

// Mode returns the content mode a conformance event asks for. Events without
// a mode use binary mode.
func Mode(ce ceconformance.Event) binding.Mode {
	if ce.Mode == ceconformance.StructuredMode {
		return binding.ModeStructured
	}
	return binding.ModeBinary
}

// ToEvent builds an event from a conformance event document.
func ToEvent(ce ceconformance.Event) (*event.Event, error) {
	a := ce.Attributes
	v, err := spec.Parse(a.SpecVersion)
	if err != nil {
		return nil, event.NewAttributeError(event.ErrInvalidSpecVersion, spec.SpecVersion, err)
	}

	b := event.NewBuilder(v)
	attributes := map[string]string{
		spec.ID:              a.ID,
		spec.Source:          a.Source,
		spec.Type:            a.Type,
		spec.Subject:         a.Subject,
		spec.Time:            a.Time,
		spec.DataContentType: a.DataContentType,
	}
	for name, value := range attributes {
		if value == "" {
			continue
		}
		if err := b.WithString(name, value); err != nil {
			return nil, err
		}
	}
	// Either schema field maps to the schema attribute of the version.
	for _, schema := range []string{a.SchemaURL, a.DataSchema} {
		if schema != "" {
			b.SetDataSchema(schema)
		}
	}
	for name, value := range a.Extensions {
		if err := b.WithString(name, value); err != nil {
			return nil, err
		}
	}

	if ce.Data != "" {
		d, err := data(v, a, ce.Data)
		if err != nil {
			return nil, err
		}
		b.SetData("", d)
	}
	return b.Build()
}

func data(v spec.Version, a ceconformance.ContextAttributes, s string) (event.Data, error) {
	if a.DataContentEncoding != "" {
		if v != spec.V03 {
			return nil, event.NewAttributeError(event.ErrSpecVersionMismatch, spec.DataContentEncoding, "only defined by specversion 0.3")
		}
		if !strings.EqualFold(a.DataContentEncoding, spec.Base64) {
			return nil, event.NewAttributeError(event.ErrInvalidAttributeValue, spec.DataContentEncoding, a.DataContentEncoding)
		}
		p, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, &event.DataError{From: "base64", To: "bytes", Cause: err}
		}
		return event.NewBytesData(p), nil
	}
	if jsonformat.IsJSON(a.DataContentType) {
		if d, err := event.NewJSONData([]byte(s)); err == nil {
			return d, nil
		}
	}
	return event.NewBytesData([]byte(s)), nil
}

// FromEvent returns the conformance document of e. Payloads that are not
// valid UTF-8 are base64 encoded, which only specversion 0.3 can express.
func FromEvent(e *event.Event, mode binding.Mode) (ceconformance.Event, error) {
	ce := ceconformance.Event{Mode: ceconformance.BinaryMode}
	if mode == binding.ModeStructured {
		ce.Mode = ceconformance.StructuredMode
	}

	a := &ce.Attributes
	err := e.ReadContext(event.ContextWriterFunc(func(name, value string) error {
		switch name {
		case spec.SpecVersion:
			a.SpecVersion = value
		case spec.ID:
			a.ID = value
		case spec.Source:
			a.Source = value
		case spec.Type:
			a.Type = value
		case spec.Subject:
			a.Subject = value
		case spec.Time:
			a.Time = value
		case spec.DataContentType:
			a.DataContentType = value
		case spec.SchemaURL:
			a.SchemaURL = value
		case spec.DataSchema:
			a.DataSchema = value
		default:
			if a.Extensions == nil {
				a.Extensions = ceconformance.Extensions{}
			}
			a.Extensions[name] = value
		}
		return nil
	}))
	if err != nil {
		return ce, err
	}

	if d := e.Data(); d != nil {
		p, err := d.Bytes()
		if err != nil {
			return ce, err
		}
		switch {
		case utf8.Valid(p):
			ce.Data = string(p)
		case e.SpecVersion() == spec.V03:
			a.DataContentEncoding = spec.Base64
			ce.Data = base64.StdEncoding.EncodeToString(p)
		default:
			return ce, &event.DataError{From: "bytes", To: "text", Cause: errors.New("payload is not valid UTF-8")}
		}
	}
	return ce, nil
}

// ReadFiles reads the conformance events of the given files, directories or
// URLs. Every document that does not convert is reported.
func ReadFiles(paths []string, recursive bool) ([]*event.Event, []binding.Mode, error) {
	docs, err := ceconformance.FromYaml(strings.Join(paths, ","), recursive)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading conformance events")
	}
	events := make([]*event.Event, 0, len(docs))
	modes := make([]binding.Mode, 0, len(docs))
	for i, doc := range docs {
		e, err2 := ToEvent(doc)
		if err2 != nil {
			err = multierr.Append(err, errors.Wrapf(err2, "event %d", i))
			continue
		}
		events = append(events, e)
		modes = append(modes, Mode(doc))
	}
	return events, modes, err
}
