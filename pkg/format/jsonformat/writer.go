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

package jsonformat

import (
	"bytes"
	"encoding/base64"

	jsoniter "github.com/json-iterator/go"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/spec"
)

// contextWriter appends one JSON property per attribute to an open object.
type contextWriter struct {
	stream *jsoniter.Stream
	more   bool
}

var _ event.ContextWriter = (*contextWriter)(nil)

func (w *contextWriter) field(name string) {
	if w.more {
		w.stream.WriteMore()
	}
	w.more = true
	w.stream.WriteObjectField(name)
}

func (w *contextWriter) check(name string) error {
	if w.stream.Error != nil {
		return event.NewAttributeError(event.ErrContextWrite, name, w.stream.Error)
	}
	return nil
}

func (w *contextWriter) WithString(name, value string) error {
	w.field(name)
	w.stream.WriteString(value)
	return w.check(name)
}

func (w *contextWriter) WithInteger(name string, value int32) error {
	w.field(name)
	w.stream.WriteInt32(value)
	return w.check(name)
}

func (w *contextWriter) WithBoolean(name string, value bool) error {
	w.field(name)
	w.stream.WriteBool(value)
	return w.check(name)
}

// writeData appends the payload of e, if any. A parsed JSON tree is embedded
// as is; otherwise the bytes are written base64 encoded, as raw JSON or as a
// JSON string depending on the content type.
func (f *Format) writeData(w *contextWriter, e *event.Event) error {
	d := e.Data()
	if d == nil {
		return nil
	}
	if tree, ok := d.Tree(); ok {
		w.field(spec.Data)
		tree.WriteTo(w.stream)
		return w.check(spec.Data)
	}

	b, err := d.Bytes()
	if err != nil {
		return err
	}
	contentType := e.DataContentType()
	switch {
	case f.base64Data(contentType):
		switch e.SpecVersion() {
		case spec.V03:
			if err := w.WithString(spec.DataContentEncoding, spec.Base64); err != nil {
				return err
			}
			return w.WithString(spec.Data, base64.StdEncoding.EncodeToString(b))
		case spec.V1:
			return w.WithString(spec.DataBase64, base64.StdEncoding.EncodeToString(b))
		default:
			return event.NewAttributeError(event.ErrInvalidSpecVersion, spec.SpecVersion, e.SpecVersion().String())
		}
	case IsJSON(contentType):
		// An empty payload has no JSON form and is left out.
		if len(bytes.TrimSpace(b)) == 0 {
			return nil
		}
		if !json.Valid(b) {
			return &event.DataError{From: "bytes", To: "embedded JSON", Cause: event.ErrInvalidJSON}
		}
		w.field(spec.Data)
		w.stream.WriteRaw(string(b))
		return w.check(spec.Data)
	default:
		return w.WithString(spec.Data, string(b))
	}
}
