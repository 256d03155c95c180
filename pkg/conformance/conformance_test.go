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

package conformance

import (
	"path/filepath"
	"testing"

	ceconformance "github.com/cloudevents/conformance/pkg/event"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knative.dev/cecodec/pkg/binding"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/spec"
)

func TestReadFiles(t *testing.T) {
	events, modes, err := ReadFiles([]string{"testdata"}, false)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []binding.Mode{binding.ModeStructured, binding.ModeBinary}, modes)

	structured := events[0]
	assert.Equal(t, spec.V1, structured.SpecVersion())
	assert.Equal(t, "1234-1234-1234", structured.ID())
	assert.Equal(t, "/mycontext/subcontext", structured.Source().String())
	assert.Equal(t, "widget", structured.Subject())
	assert.Equal(t, "https://example.com/schema.json", structured.DataSchema().String())
	ext, ok := structured.Extension("comexampleothervalue")
	require.True(t, ok)
	assert.Equal(t, "5", ext.String())
	tree, ok := structured.Data().Tree()
	require.True(t, ok)
	assert.Equal(t, "world", tree.Get("hello").ToString())

	bin := events[1]
	assert.Equal(t, spec.V03, bin.SpecVersion())
	assert.Equal(t, "https://example.com/schema.avsc", bin.DataSchema().String())
	data, err := bin.Data().Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 0xff}, data)
}

func TestReadFilesRecursive(t *testing.T) {
	events, _, err := ReadFiles([]string{"testdata"}, true)
	assert.ErrorIs(t, err, event.ErrInvalidSpecVersion)
	assert.Len(t, events, 2)
}

func TestReadFilesMissing(t *testing.T) {
	_, _, err := ReadFiles([]string{filepath.Join("testdata", "missing.yaml")}, false)
	assert.Error(t, err)
}

func TestFromEventRoundTrip(t *testing.T) {
	events, modes, err := ReadFiles([]string{"testdata"}, false)
	require.NoError(t, err)
	for i, e := range events {
		doc, err := FromEvent(e, modes[i])
		require.NoError(t, err)
		assert.Equal(t, modes[i], Mode(doc))

		got, err := ToEvent(doc)
		require.NoError(t, err)
		assert.True(t, e.Equal(got), "want:\n%s\ngot:\n%s", e, got)
	}
}

func TestFromEvent(t *testing.T) {
	e, err := event.NewBuilder(spec.V03).
		SetID("42").
		SetSource("https://example.com/source").
		SetType("com.example.binary").
		SetExtension("count", 7).
		SetDataBytes("application/octet-stream", []byte{0xff}).
		Build()
	require.NoError(t, err)

	got, err := FromEvent(e, binding.ModeBinary)
	require.NoError(t, err)
	want := ceconformance.Event{
		Mode: ceconformance.BinaryMode,
		Attributes: ceconformance.ContextAttributes{
			SpecVersion:         "0.3",
			ID:                  "42",
			Source:              "https://example.com/source",
			Type:                "com.example.binary",
			DataContentType:     "application/octet-stream",
			DataContentEncoding: "base64",
			Extensions:          ceconformance.Extensions{"count": "7"},
		},
		Data: "/w==",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error("unexpected conformance event (-want, +got) =", diff)
	}
}

func TestFromEventRejectsBinaryV1(t *testing.T) {
	e, err := event.NewBuilder(spec.V1).
		SetID("42").
		SetSource("/source").
		SetType("com.example.binary").
		SetDataBytes("application/octet-stream", []byte{0xff}).
		Build()
	require.NoError(t, err)

	_, err = FromEvent(e, binding.ModeStructured)
	assert.ErrorIs(t, err, event.ErrDataConversion)
}

func TestToEventErrors(t *testing.T) {
	testCases := map[string]struct {
		doc  ceconformance.Event
		want error
	}{
		"unknown specversion": {
			doc:  ceconformance.Event{Attributes: ceconformance.ContextAttributes{SpecVersion: "2.0"}},
			want: event.ErrInvalidSpecVersion,
		},
		"missing id": {
			doc: ceconformance.Event{Attributes: ceconformance.ContextAttributes{
				SpecVersion: "1.0", Source: "/source", Type: "t",
			}},
			want: event.ErrInvalidAttributeValue,
		},
		"encoding on 1.0": {
			doc: ceconformance.Event{
				Attributes: ceconformance.ContextAttributes{
					SpecVersion: "1.0", ID: "1", Source: "/source", Type: "t", DataContentEncoding: "base64",
				},
				Data: "AA==",
			},
			want: event.ErrSpecVersionMismatch,
		},
		"bad extension name": {
			doc: ceconformance.Event{Attributes: ceconformance.ContextAttributes{
				SpecVersion: "1.0", ID: "1", Source: "/source", Type: "t",
				Extensions: ceconformance.Extensions{"Not-Valid": "x"},
			}},
			want: event.ErrInvalidExtensionName,
		},
	}
	for n, tc := range testCases {
		t.Run(n, func(t *testing.T) {
			_, err := ToEvent(tc.doc)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
