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

// Package interop converts events to and from the CloudEvents Go SDK model.
package interop

import (
	cloudevents "github.com/cloudevents/sdk-go/v2"
	cetypes "github.com/cloudevents/sdk-go/v2/types"
	"github.com/pkg/errors"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format/jsonformat"
	"knative.dev/cecodec/pkg/spec"
	"knative.dev/cecodec/pkg/types"
)

// ToSDK returns e as an SDK event. Payloads with a non JSON content type are
// flagged for base64 encoding.
func ToSDK(e *event.Event) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent(e.SpecVersion().String())
	if err := e.ReadContext(sdkWriter{e: &ce}); err != nil {
		return ce, err
	}

	if d := e.Data(); d != nil {
		b, err := d.Bytes()
		if err != nil {
			return ce, err
		}
		ce.DataEncoded = b
		if !jsonformat.IsJSON(e.DataContentType()) {
			if e.SpecVersion() == spec.V03 {
				ce.SetDataContentEncoding(cloudevents.Base64)
			} else {
				ce.DataBase64 = true
			}
		}
	}

	if err := ce.Validate(); err != nil {
		return ce, errors.Wrap(err, "invalid SDK event")
	}
	return ce, nil
}

// FromSDK returns an event with the content of ce. JSON payloads keep their
// parsed form available.
func FromSDK(ce cloudevents.Event) (*event.Event, error) {
	v, err := spec.Parse(ce.SpecVersion())
	if err != nil {
		return nil, event.NewAttributeError(event.ErrInvalidSpecVersion, spec.SpecVersion, err)
	}

	b := event.NewBuilder(v).
		SetID(ce.ID()).
		SetType(ce.Type()).
		SetSource(ce.Source()).
		SetSubject(ce.Subject()).
		SetDataSchema(ce.DataSchema()).
		SetDataContentType(ce.DataContentType())
	if t := ce.Time(); !t.IsZero() {
		b.SetTime(t)
	}
	for name, x := range ce.Extensions() {
		value, err := fromSDKValue(x)
		if err != nil {
			return nil, event.NewAttributeError(event.ErrInvalidAttributeValue, name, err)
		}
		b.SetAttribute(name, value)
	}

	if ce.DataEncoded != nil {
		b.SetData("", sdkData(ce))
	}
	return b.Build()
}

func sdkData(ce cloudevents.Event) event.Data {
	if !ce.DataBase64 && jsonformat.IsJSON(ce.DataContentType()) {
		if d, err := event.NewJSONData(ce.DataEncoded); err == nil {
			return d
		}
	}
	return event.NewBytesData(ce.DataEncoded)
}

func fromSDKValue(x interface{}) (types.Value, error) {
	switch x := x.(type) {
	case cetypes.URI:
		return types.NewURI(&x.URL), nil
	case cetypes.URIRef:
		return types.NewURIRef(&x.URL), nil
	case cetypes.Timestamp:
		return types.NewTimestamp(x.Time), nil
	default:
		return types.ValueOf(x)
	}
}

// sdkWriter streams context attributes into an SDK event.
type sdkWriter struct {
	e *cloudevents.Event
}

var _ event.ContextWriter = sdkWriter{}

func (w sdkWriter) WithString(name, value string) error {
	switch name {
	case spec.SpecVersion:
	case spec.ID:
		w.e.SetID(value)
	case spec.Source:
		w.e.SetSource(value)
	case spec.Type:
		w.e.SetType(value)
	case spec.Subject:
		w.e.SetSubject(value)
	case spec.DataContentType:
		w.e.SetDataContentType(value)
	case spec.DataSchema, spec.SchemaURL:
		w.e.SetDataSchema(value)
	case spec.Time:
		t, err := cetypes.ParseTime(value)
		if err != nil {
			return event.NewAttributeError(event.ErrContextWrite, name, err)
		}
		w.e.SetTime(t)
	default:
		w.e.SetExtension(name, value)
	}
	return nil
}

func (w sdkWriter) WithInteger(name string, value int32) error {
	w.e.SetExtension(name, value)
	return nil
}

func (w sdkWriter) WithBoolean(name string, value bool) error {
	w.e.SetExtension(name, value)
	return nil
}
