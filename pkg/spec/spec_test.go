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

package spec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knative.dev/cecodec/pkg/types"
)

func TestParse(t *testing.T) {
	v, err := Parse("1.0")
	require.NoError(t, err)
	assert.Equal(t, V1, v)
	assert.Equal(t, "1.0", v.String())

	v, err = Parse("0.3")
	require.NoError(t, err)
	assert.Equal(t, V03, v)

	_, err = Parse("0.2")
	var unknown UnknownVersionError
	assert.True(t, errors.As(err, &unknown))
	assert.Equal(t, UnknownVersionError("0.2"), unknown)
}

func TestAttributes(t *testing.T) {
	a, ok := V1.Attribute(DataSchema)
	require.True(t, ok)
	assert.Equal(t, types.URI, a.Kind)
	assert.False(t, a.Mandatory)

	_, ok = V1.Attribute(SchemaURL)
	assert.False(t, ok)
	_, ok = V03.Attribute(SchemaURL)
	assert.True(t, ok)

	var mandatory []string
	for _, a := range V03.Attributes() {
		if a.Mandatory {
			mandatory = append(mandatory, a.Name)
		}
	}
	assert.Equal(t, []string{SpecVersion, ID, Source, Type}, mandatory)
}

func TestReservedNames(t *testing.T) {
	for _, name := range []string{"type", "id", "data", "data_base64", "datacontentencoding", "dataschema"} {
		assert.True(t, V1.IsReserved(name), name)
	}
	assert.False(t, V1.IsReserved("schemaurl"))
	assert.True(t, V03.IsReserved("schemaurl"))
	assert.False(t, V1.IsReserved("traceparent"))
}

func TestValidExtensionName(t *testing.T) {
	assert.True(t, ValidExtensionName("knativeerrorcode"))
	assert.True(t, ValidExtensionName("ext1"))
	assert.False(t, ValidExtensionName("Upper"))
	assert.False(t, ValidExtensionName("with-dash"))
	assert.False(t, ValidExtensionName(""))
}
