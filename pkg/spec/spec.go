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

// Package spec describes the context attributes defined by each supported
// version of the CloudEvents specification.
package spec

import (
	"fmt"
	"regexp"

	"k8s.io/apimachinery/pkg/util/sets"

	"knative.dev/cecodec/pkg/types"
)

// Context attribute names.
const (
	SpecVersion     = "specversion"
	ID              = "id"
	Source          = "source"
	Type            = "type"
	DataContentType = "datacontenttype"
	DataSchema      = "dataschema"
	SchemaURL       = "schemaurl"
	Subject         = "subject"
	Time            = "time"

	// Structured-mode property names that are not attributes.
	Data                = "data"
	DataBase64          = "data_base64"
	DataContentEncoding = "datacontentencoding"

	// Base64 is the only datacontentencoding value defined by 0.3.
	Base64 = "base64"
)

// Version is a CloudEvents specification version.
type Version int

const (
	V03 Version = iota + 1
	V1
)

// Versions lists the supported versions, oldest first.
var Versions = []Version{V03, V1}

// UnknownVersionError is returned when a specversion string is not supported.
type UnknownVersionError string

func (e UnknownVersionError) Error() string {
	return fmt.Sprintf("unsupported specversion %q", string(e))
}

// Parse returns the Version named by s.
func Parse(s string) (Version, error) {
	switch s {
	case "0.3":
		return V03, nil
	case "1.0":
		return V1, nil
	}
	return 0, UnknownVersionError(s)
}

func (v Version) String() string {
	switch v {
	case V03:
		return "0.3"
	case V1:
		return "1.0"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// Attribute describes one context attribute of a specification version.
type Attribute struct {
	Name      string
	Kind      types.Kind
	Mandatory bool
}

var (
	v03Attributes = []Attribute{
		{Name: SpecVersion, Kind: types.String, Mandatory: true},
		{Name: ID, Kind: types.String, Mandatory: true},
		{Name: Source, Kind: types.URIRef, Mandatory: true},
		{Name: Type, Kind: types.String, Mandatory: true},
		{Name: DataContentType, Kind: types.String},
		{Name: SchemaURL, Kind: types.URIRef},
		{Name: Subject, Kind: types.String},
		{Name: Time, Kind: types.Timestamp},
	}
	v1Attributes = []Attribute{
		{Name: SpecVersion, Kind: types.String, Mandatory: true},
		{Name: ID, Kind: types.String, Mandatory: true},
		{Name: Source, Kind: types.URIRef, Mandatory: true},
		{Name: Type, Kind: types.String, Mandatory: true},
		{Name: DataContentType, Kind: types.String},
		{Name: DataSchema, Kind: types.URI},
		{Name: Subject, Kind: types.String},
		{Name: Time, Kind: types.Timestamp},
	}

	// Names that can never be used for extensions, whatever the version.
	structuredNames = sets.New[string](Data, DataBase64, DataContentEncoding)

	extensionName = regexp.MustCompile(`^[a-z0-9]+$`)
)

// Attributes returns the context attributes of v in specification order.
func (v Version) Attributes() []Attribute {
	switch v {
	case V03:
		return append([]Attribute(nil), v03Attributes...)
	case V1:
		return append([]Attribute(nil), v1Attributes...)
	}
	return nil
}

// Attribute returns the named attribute of v, if it is defined by v.
func (v Version) Attribute(name string) (Attribute, bool) {
	for _, a := range v.attributes() {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// SchemaAttribute is the name of the attribute linking to the data schema.
func (v Version) SchemaAttribute() string {
	if v == V03 {
		return SchemaURL
	}
	return DataSchema
}

// IsReserved reports whether name is a context attribute of v or a structured
// mode property, and therefore unavailable for extensions.
func (v Version) IsReserved(name string) bool {
	if structuredNames.Has(name) {
		return true
	}
	_, ok := v.Attribute(name)
	return ok
}

func (v Version) attributes() []Attribute {
	switch v {
	case V03:
		return v03Attributes
	case V1:
		return v1Attributes
	}
	return nil
}

// ValidExtensionName reports whether name is made only of lower-case ASCII
// letters and digits.
func ValidExtensionName(name string) bool {
	return extensionName.MatchString(name)
}
