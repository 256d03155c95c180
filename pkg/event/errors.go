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
	"github.com/pkg/errors"
)

// Error kinds reported by the encoding and decoding paths, matched with
// errors.Is.
var (
	// ErrInvalidAttributeValue: a mandatory attribute is missing or empty, or a
	// value cannot be parsed as the attribute's type.
	ErrInvalidAttributeValue = errors.New("invalid attribute value")
	// ErrInvalidAttributeType: a value of the wrong type was written for an attribute.
	ErrInvalidAttributeType = errors.New("invalid attribute type")
	// ErrInvalidExtensionName: an extension name is reserved or malformed.
	ErrInvalidExtensionName = errors.New("invalid extension name")
	// ErrInvalidSpecVersion: the specversion is missing or not supported.
	ErrInvalidSpecVersion = errors.New("invalid specversion")
	// ErrSpecVersionMismatch: a version specific field was used with the wrong version.
	ErrSpecVersionMismatch = errors.New("specversion mismatch")
	// ErrContextWrite: a context writer sink rejected a value.
	ErrContextWrite = errors.New("context write failed")
	// ErrDataConversion: the payload cannot be converted to the requested representation.
	ErrDataConversion = errors.New("data conversion failed")
	// ErrUnsupportedContentType: no codec is registered for a content type.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// AttributeError reports a failure concerning a single context attribute.
type AttributeError struct {
	// Kind is one of the Err* sentinels of this package.
	Kind  error
	Name  string
	Cause error
}

func (e *AttributeError) Error() string {
	msg := e.Kind.Error()
	if e.Name != "" {
		msg += " for attribute " + e.Name
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches the error kind.
func (e *AttributeError) Is(target error) bool {
	return target == e.Kind
}

func (e *AttributeError) Unwrap() error {
	return e.Cause
}

// NewAttributeError returns an AttributeError of the given kind. A string
// cause is turned into an error.
func NewAttributeError(kind error, name string, cause interface{}) error {
	ae := &AttributeError{Kind: kind, Name: name}
	switch c := cause.(type) {
	case nil:
	case error:
		ae.Cause = c
	case string:
		ae.Cause = errors.New(c)
	default:
		ae.Cause = errors.Errorf("%v", c)
	}
	return ae
}

// DataError reports a payload that could not be converted from one
// representation to another.
type DataError struct {
	From  string
	To    string
	Cause error
}

func (e *DataError) Error() string {
	msg := ErrDataConversion.Error() + " from " + e.From + " to " + e.To
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DataError) Is(target error) bool {
	return target == ErrDataConversion
}

func (e *DataError) Unwrap() error {
	return e.Cause
}
