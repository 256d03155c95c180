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
	stdjson "encoding/json"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/spec"
)

// property is one top level member of a structured document.
type property struct {
	name string
	kind jsoniter.ValueType
	str  string
	num  stdjson.Number
	flag bool
	// raw holds the JSON text of data properties.
	raw []byte
}

func readEvent(b []byte) (*event.Event, error) {
	props, err := readProperties(b)
	if err != nil {
		return nil, err
	}

	version, err := specVersion(props)
	if err != nil {
		return nil, err
	}
	builder := event.NewBuilder(version)

	var (
		contentType string
		data        *property
		dataBase64  *property
		encoding    *property
	)
	for i := range props {
		p := &props[i]
		switch p.name {
		case spec.SpecVersion:
			continue
		case spec.Data:
			data = p
			continue
		case spec.DataBase64:
			if version != spec.V1 {
				return nil, event.NewAttributeError(event.ErrSpecVersionMismatch, p.name, "only defined by specversion 1.0")
			}
			dataBase64 = p
			continue
		case spec.DataContentEncoding:
			if version != spec.V03 {
				return nil, event.NewAttributeError(event.ErrSpecVersionMismatch, p.name, "only defined by specversion 0.3")
			}
			encoding = p
			continue
		case spec.DataContentType:
			contentType = p.str
		}
		if err := writeProperty(builder, p); err != nil {
			return nil, err
		}
	}

	d, err := readData(contentType, data, dataBase64, encoding)
	if err != nil {
		return nil, err
	}
	if d != nil {
		builder.SetData("", d)
	}
	return builder.Build()
}

func readProperties(b []byte) ([]property, error) {
	iter := json.BorrowIterator(b)
	defer json.ReturnIterator(iter)

	if next := iter.WhatIsNext(); next != jsoniter.ObjectValue {
		if iter.Error != nil {
			return nil, errors.Wrap(iter.Error, "malformed structured event")
		}
		return nil, errors.New("malformed structured event: not a JSON object")
	}

	var props []property
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, name string) bool {
		p := property{name: name, kind: iter.WhatIsNext()}
		switch {
		case name == spec.Data || name == spec.DataBase64:
			p.raw = bytes.TrimLeft(iter.SkipAndReturnBytes(), " \t\r\n")
		case p.kind == jsoniter.StringValue:
			p.str = iter.ReadString()
		case p.kind == jsoniter.NumberValue:
			p.num = iter.ReadNumber()
		case p.kind == jsoniter.BoolValue:
			p.flag = iter.ReadBool()
		case p.kind == jsoniter.NilValue:
			iter.ReadNil()
		default:
			iter.Skip()
		}
		props = append(props, p)
		return iter.Error == nil
	})
	if iter.Error != nil {
		return nil, errors.Wrap(iter.Error, "malformed structured event")
	}
	return props, nil
}

func specVersion(props []property) (spec.Version, error) {
	var sv *property
	for i := range props {
		if props[i].name == spec.SpecVersion {
			sv = &props[i]
		}
	}
	if sv == nil {
		return 0, event.NewAttributeError(event.ErrInvalidSpecVersion, spec.SpecVersion, "missing")
	}
	if sv.kind != jsoniter.StringValue {
		return 0, event.NewAttributeError(event.ErrInvalidSpecVersion, spec.SpecVersion, "not a string")
	}
	v, err := spec.Parse(sv.str)
	if err != nil {
		return 0, event.NewAttributeError(event.ErrInvalidSpecVersion, spec.SpecVersion, err)
	}
	return v, nil
}

// writeProperty routes a context attribute into the builder by its JSON type.
func writeProperty(w event.ContextWriter, p *property) error {
	switch p.kind {
	case jsoniter.StringValue:
		return w.WithString(p.name, p.str)
	case jsoniter.NumberValue:
		return event.WriteNumber(w, p.name, p.num)
	case jsoniter.BoolValue:
		return w.WithBoolean(p.name, p.flag)
	case jsoniter.NilValue:
		return nil
	default:
		return event.NewAttributeError(event.ErrInvalidAttributeType, p.name, "objects and arrays are not attribute values")
	}
}

func readData(contentType string, data, dataBase64, encoding *property) (event.Data, error) {
	if dataBase64 != nil {
		if data != nil {
			return nil, event.NewAttributeError(event.ErrInvalidAttributeValue, spec.Data, "both data and data_base64 are present")
		}
		return decodeBase64(dataBase64)
	}
	if encoding != nil {
		if encoding.kind != jsoniter.StringValue || encoding.str != spec.Base64 {
			return nil, event.NewAttributeError(event.ErrInvalidAttributeValue, spec.DataContentEncoding, "the only supported encoding is base64")
		}
		if data == nil {
			return nil, nil
		}
		return decodeBase64(data)
	}
	if data == nil || data.kind == jsoniter.NilValue {
		return nil, nil
	}
	if !IsJSON(contentType) && data.kind == jsoniter.StringValue {
		var s string
		if err := json.Unmarshal(data.raw, &s); err != nil {
			return nil, errors.Wrap(err, "malformed structured event")
		}
		return event.NewBytesData([]byte(s)), nil
	}
	return event.NewJSONData(data.raw)
}

func decodeBase64(p *property) (event.Data, error) {
	var s string
	if p.kind != jsoniter.StringValue {
		return nil, event.NewAttributeError(event.ErrInvalidAttributeValue, p.name, "base64 data must be a JSON string")
	}
	if err := json.Unmarshal(p.raw, &s); err != nil {
		return nil, errors.Wrap(err, "malformed structured event")
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, event.NewAttributeError(event.ErrInvalidAttributeValue, p.name, err)
	}
	return event.NewBytesData(b), nil
}
