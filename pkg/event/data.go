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
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidJSON is the cause of a DataError raised for malformed JSON text.
var ErrInvalidJSON = errors.New("not a valid JSON value")

// Data is the payload of an event. Implementations are immutable once
// attached to an event.
type Data interface {
	// Bytes returns the serialized payload. Callers must not modify the
	// returned slice.
	Bytes() ([]byte, error)
	// Tree returns the payload as an already parsed JSON tree, when the
	// payload has one.
	Tree() (jsoniter.Any, bool)
}

// BytesData is an opaque byte payload.
type BytesData struct {
	b []byte
}

// NewBytesData returns a payload holding a copy of b.
func NewBytesData(b []byte) *BytesData {
	return &BytesData{b: append([]byte(nil), b...)}
}

func (d *BytesData) Bytes() ([]byte, error) { return d.b, nil }

func (d *BytesData) Tree() (jsoniter.Any, bool) { return nil, false }

// JSONData is a JSON payload. It is backed by raw JSON text, by a parsed tree
// or by both; the missing representation is computed once on demand.
type JSONData struct {
	raw      []byte
	tree     jsoniter.Any
	treeOnce sync.Once
	rawOnce  sync.Once
	rawErr   error
}

// NewJSONData returns a JSON payload over a copy of raw. The text must be a
// single valid JSON value.
func NewJSONData(raw []byte) (*JSONData, error) {
	if !json.Valid(raw) {
		return nil, &DataError{From: "bytes", To: "json", Cause: ErrInvalidJSON}
	}
	return &JSONData{raw: append([]byte(nil), raw...)}, nil
}

// NewJSONTree returns a JSON payload over an already parsed tree.
func NewJSONTree(tree jsoniter.Any) *JSONData {
	return &JSONData{tree: tree}
}

// Bytes returns the JSON text of the payload.
func (d *JSONData) Bytes() ([]byte, error) {
	d.rawOnce.Do(func() {
		if d.raw != nil {
			return
		}
		stream := json.BorrowStream(nil)
		defer json.ReturnStream(stream)
		d.tree.WriteTo(stream)
		if stream.Error != nil {
			d.rawErr = &DataError{From: "json tree", To: "bytes", Cause: stream.Error}
			return
		}
		d.raw = append([]byte(nil), stream.Buffer()...)
	})
	return d.raw, d.rawErr
}

// Tree returns the parsed JSON tree of the payload.
func (d *JSONData) Tree() (jsoniter.Any, bool) {
	d.treeOnce.Do(func() {
		if d.tree == nil {
			d.tree = json.Get(d.raw)
		}
	})
	return d.tree, true
}

// ValueData is a payload held as a Go value and serialized on first use.
type ValueData struct {
	value   interface{}
	marshal func(interface{}) ([]byte, error)

	once sync.Once
	b    []byte
	err  error
}

// NewValueData returns a payload that serializes v with marshal.
func NewValueData(v interface{}, marshal func(interface{}) ([]byte, error)) *ValueData {
	return &ValueData{value: v, marshal: marshal}
}

// Value returns the Go value backing the payload.
func (d *ValueData) Value() interface{} { return d.value }

func (d *ValueData) Bytes() ([]byte, error) {
	d.once.Do(func() {
		d.b, d.err = d.marshal(d.value)
		if d.err != nil {
			d.err = &DataError{From: "value", To: "bytes", Cause: d.err}
		}
	})
	return d.b, d.err
}

func (d *ValueData) Tree() (jsoniter.Any, bool) { return nil, false }
