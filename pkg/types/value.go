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

// Package types implements the CloudEvents attribute type system.
package types

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Kind is the CloudEvents type of an attribute value.
type Kind int

const (
	String Kind = iota
	Integer
	Boolean
	URI
	URIRef
	Timestamp
	Binary
)

func (k Kind) String() string {
	switch k {
	case String:
		return "String"
	case Integer:
		return "Integer"
	case Boolean:
		return "Boolean"
	case URI:
		return "URI"
	case URIRef:
		return "URI-reference"
	case Timestamp:
		return "Timestamp"
	case Binary:
		return "Binary"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// textual reports whether values of this kind are carried as strings on every wire format.
func (k Kind) textual() bool {
	return k != Integer && k != Boolean
}

// Value is an immutable CloudEvents attribute value. The zero Value is an
// empty String.
type Value struct {
	kind Kind
	str  string
	num  int32
	flag bool
	ref  *url.URL
	ts   time.Time
	bin  []byte
}

func NewString(s string) Value { return Value{kind: String, str: s} }

func NewInteger(i int32) Value { return Value{kind: Integer, num: i} }

func NewBoolean(b bool) Value { return Value{kind: Boolean, flag: b} }

// NewURI returns an absolute URI value. The URL is copied.
func NewURI(u *url.URL) Value { return Value{kind: URI, ref: cloneURL(u)} }

// NewURIRef returns a URI-reference value. The URL is copied.
func NewURIRef(u *url.URL) Value { return Value{kind: URIRef, ref: cloneURL(u)} }

func NewTimestamp(t time.Time) Value { return Value{kind: Timestamp, ts: t} }

// NewBinary returns a Binary value holding a copy of b.
func NewBinary(b []byte) Value {
	return Value{kind: Binary, bin: append([]byte(nil), b...)}
}

// Kind returns the type of the value.
func (v Value) Kind() Kind { return v.kind }

// String returns the canonical string form of the value, the representation
// used by transports that only carry strings.
func (v Value) String() string {
	switch v.kind {
	case Integer:
		return strconv.FormatInt(int64(v.num), 10)
	case Boolean:
		return strconv.FormatBool(v.flag)
	case URI, URIRef:
		if v.ref == nil {
			return ""
		}
		return v.ref.String()
	case Timestamp:
		return v.ts.UTC().Format(time.RFC3339Nano)
	case Binary:
		return base64.StdEncoding.EncodeToString(v.bin)
	default:
		return v.str
	}
}

func (v Value) AsString() (string, bool) { return v.str, v.kind == String }

func (v Value) AsInteger() (int32, bool) { return v.num, v.kind == Integer }

func (v Value) AsBoolean() (bool, bool) { return v.flag, v.kind == Boolean }

// AsURL returns a copy of the URL held by a URI or URI-reference value.
func (v Value) AsURL() (*url.URL, bool) {
	if v.kind != URI && v.kind != URIRef {
		return nil, false
	}
	return cloneURL(v.ref), true
}

func (v Value) AsTime() (time.Time, bool) { return v.ts, v.kind == Timestamp }

// AsBinary returns a copy of the bytes held by a Binary value.
func (v Value) AsBinary() ([]byte, bool) {
	if v.kind != Binary {
		return nil, false
	}
	return append([]byte(nil), v.bin...), true
}

// Equal reports whether v and o carry the same attribute value. Timestamps
// compare by instant and binary values by content; any other pair compares by
// canonical string form, since transports that only carry strings do not
// preserve the kind of extension values.
func (v Value) Equal(o Value) bool {
	switch {
	case v.kind == Timestamp && o.kind == Timestamp:
		return v.ts.Equal(o.ts)
	case v.kind == Binary && o.kind == Binary:
		return bytes.Equal(v.bin, o.bin)
	default:
		return v.String() == o.String()
	}
}

// Visitor receives a Value as its concrete variant.
type Visitor interface {
	VisitString(string) error
	VisitInteger(int32) error
	VisitBoolean(bool) error
	VisitURI(*url.URL) error
	VisitURIRef(*url.URL) error
	VisitTimestamp(time.Time) error
	VisitBinary([]byte) error
}

// Accept calls the visitor method matching the kind of v.
func (v Value) Accept(vis Visitor) error {
	switch v.kind {
	case Integer:
		return vis.VisitInteger(v.num)
	case Boolean:
		return vis.VisitBoolean(v.flag)
	case URI:
		return vis.VisitURI(cloneURL(v.ref))
	case URIRef:
		return vis.VisitURIRef(cloneURL(v.ref))
	case Timestamp:
		return vis.VisitTimestamp(v.ts)
	case Binary:
		return vis.VisitBinary(append([]byte(nil), v.bin...))
	default:
		return vis.VisitString(v.str)
	}
}

// Parse converts the canonical string form s into a Value of the given kind.
func Parse(kind Kind, s string) (Value, error) {
	switch kind {
	case String:
		return NewString(s), nil
	case Integer:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, errors.Wrapf(err, "cannot parse %q as %s", s, kind)
		}
		return NewInteger(int32(i)), nil
	case Boolean:
		switch s {
		case "true":
			return NewBoolean(true), nil
		case "false":
			return NewBoolean(false), nil
		}
		return Value{}, errors.Errorf("cannot parse %q as %s", s, kind)
	case URI:
		u, err := url.Parse(s)
		if err != nil {
			return Value{}, errors.Wrapf(err, "cannot parse %q as %s", s, kind)
		}
		if !u.IsAbs() {
			return Value{}, errors.Errorf("cannot parse %q as %s: not absolute", s, kind)
		}
		return Value{kind: URI, ref: u}, nil
	case URIRef:
		u, err := url.Parse(s)
		if err != nil {
			return Value{}, errors.Wrapf(err, "cannot parse %q as %s", s, kind)
		}
		return Value{kind: URIRef, ref: u}, nil
	case Timestamp:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, errors.Wrapf(err, "cannot parse %q as %s", s, kind)
		}
		return NewTimestamp(t), nil
	case Binary:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, errors.Wrapf(err, "cannot parse %q as %s", s, kind)
		}
		return Value{kind: Binary, bin: b}, nil
	default:
		return Value{}, errors.Errorf("unknown attribute kind %s", kind)
	}
}

// Convert returns v as a value of the given kind, re-parsing textual values
// when the kinds differ.
func Convert(v Value, kind Kind) (Value, error) {
	if v.kind == kind {
		return v, nil
	}
	if kind == URIRef && v.kind == URI {
		return Value{kind: URIRef, ref: v.ref}, nil
	}
	if !v.kind.textual() && kind != String {
		return Value{}, errors.Errorf("cannot convert %s to %s", v.kind, kind)
	}
	return Parse(kind, v.String())
}

// ValueOf converts a Go value into an attribute Value. Integers outside the
// int32 range and non-integer numbers are rejected.
func ValueOf(x interface{}) (Value, error) {
	switch x := x.(type) {
	case Value:
		return x, nil
	case string:
		return NewString(x), nil
	case bool:
		return NewBoolean(x), nil
	case int32:
		return NewInteger(x), nil
	case int:
		return integer(int64(x))
	case int8:
		return NewInteger(int32(x)), nil
	case int16:
		return NewInteger(int32(x)), nil
	case int64:
		return integer(x)
	case uint8:
		return NewInteger(int32(x)), nil
	case uint16:
		return NewInteger(int32(x)), nil
	case uint32:
		return integer(int64(x))
	case uint64:
		if x > math.MaxInt32 {
			return Value{}, errors.Errorf("integer %d out of range", x)
		}
		return NewInteger(int32(x)), nil
	case *url.URL:
		if x == nil {
			return Value{}, errors.New("nil URL")
		}
		if x.IsAbs() {
			return NewURI(x), nil
		}
		return NewURIRef(x), nil
	case url.URL:
		return ValueOf(&x)
	case time.Time:
		return NewTimestamp(x), nil
	case *time.Time:
		if x == nil {
			return Value{}, errors.New("nil time")
		}
		return NewTimestamp(*x), nil
	case []byte:
		return NewBinary(x), nil
	case fmt.Stringer:
		return NewString(x.String()), nil
	default:
		return Value{}, errors.Errorf("unsupported attribute value type %T", x)
	}
}

func integer(i int64) (Value, error) {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return Value{}, errors.Errorf("integer %d out of range", i)
	}
	return NewInteger(int32(i)), nil
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
