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
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"knative.dev/cecodec/pkg/types"
)

// ContextWriter receives context attributes one at a time. Structured
// encoders, binary header writers and the event Builder implement it.
type ContextWriter interface {
	WithString(name, value string) error
	WithInteger(name string, value int32) error
	WithBoolean(name string, value bool) error
}

// ContextReader replays a set of context attributes into a ContextWriter.
type ContextReader interface {
	ReadContext(w ContextWriter) error
}

// ContextWriterFunc adapts a function receiving canonical string forms into a
// ContextWriter, for sinks that only carry strings.
type ContextWriterFunc func(name, value string) error

func (f ContextWriterFunc) WithString(name, value string) error { return f(name, value) }

func (f ContextWriterFunc) WithInteger(name string, value int32) error {
	return f(name, strconv.FormatInt(int64(value), 10))
}

func (f ContextWriterFunc) WithBoolean(name string, value bool) error {
	return f(name, strconv.FormatBool(value))
}

// WriteValue writes v into w using the overload matching its kind. URIs and
// timestamps are written in their canonical string form.
func WriteValue(w ContextWriter, name string, v types.Value) error {
	return v.Accept(valueWriter{w: w, name: name})
}

type valueWriter struct {
	w    ContextWriter
	name string
}

func (vw valueWriter) VisitString(s string) error   { return vw.w.WithString(vw.name, s) }
func (vw valueWriter) VisitInteger(i int32) error   { return vw.w.WithInteger(vw.name, i) }
func (vw valueWriter) VisitBoolean(b bool) error    { return vw.w.WithBoolean(vw.name, b) }
func (vw valueWriter) VisitURI(u *url.URL) error    { return vw.w.WithString(vw.name, u.String()) }
func (vw valueWriter) VisitURIRef(u *url.URL) error { return vw.w.WithString(vw.name, u.String()) }

func (vw valueWriter) VisitTimestamp(t time.Time) error {
	return vw.w.WithString(vw.name, t.UTC().Format(time.RFC3339Nano))
}

func (vw valueWriter) VisitBinary(b []byte) error {
	return vw.w.WithString(vw.name, base64.StdEncoding.EncodeToString(b))
}

// WriteNumber writes a numeric value into w. Integers within the 32-bit range
// are written as Integer; every other number is written in its string form.
func WriteNumber(w ContextWriter, name string, n interface{}) error {
	switch n := n.(type) {
	case int32:
		return w.WithInteger(name, n)
	case int8:
		return w.WithInteger(name, int32(n))
	case int16:
		return w.WithInteger(name, int32(n))
	case uint8:
		return w.WithInteger(name, int32(n))
	case uint16:
		return w.WithInteger(name, int32(n))
	case int:
		return writeInt64(w, name, int64(n))
	case int64:
		return writeInt64(w, name, n)
	case uint32:
		return writeInt64(w, name, int64(n))
	case uint:
		if uint64(n) <= math.MaxInt32 {
			return w.WithInteger(name, int32(n))
		}
		return w.WithString(name, strconv.FormatUint(uint64(n), 10))
	case uint64:
		if n <= math.MaxInt32 {
			return w.WithInteger(name, int32(n))
		}
		return w.WithString(name, strconv.FormatUint(n, 10))
	case float32:
		return w.WithString(name, strconv.FormatFloat(float64(n), 'g', -1, 32))
	case float64:
		return w.WithString(name, strconv.FormatFloat(n, 'g', -1, 64))
	case jsonNumber:
		if i, err := n.Int64(); err == nil {
			return writeInt64(w, name, i)
		}
		return w.WithString(name, n.String())
	default:
		return w.WithString(name, fmt.Sprint(n))
	}
}

// jsonNumber is satisfied by the Number types of encoding/json and json-iterator.
type jsonNumber interface {
	Int64() (int64, error)
	String() string
}

func writeInt64(w ContextWriter, name string, i int64) error {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return w.WithString(name, strconv.FormatInt(i, 10))
	}
	return w.WithInteger(name, int32(i))
}
