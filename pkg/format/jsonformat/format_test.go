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
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format"
	"knative.dev/cecodec/pkg/spec"
)

func newEvent(t *testing.T, v spec.Version, contentType string, d event.Data) *event.Event {
	t.Helper()
	b := event.NewBuilder(v).
		SetID("A234").
		SetSource("/mysource").
		SetType("example")
	if d != nil {
		b.SetData(contentType, d)
	} else if contentType != "" {
		b.SetDataContentType(contentType)
	}
	e, err := b.Build()
	require.NoError(t, err)
	return e
}

func mustJSON(t *testing.T, s string) event.Data {
	t.Helper()
	d, err := event.NewJSONData([]byte(s))
	require.NoError(t, err)
	return d
}

func TestMarshalScenarios(t *testing.T) {
	testCases := map[string]struct {
		event func(t *testing.T) *event.Event
		opts  []Option
		want  string
	}{
		"json tree": {
			event: func(t *testing.T) *event.Event {
				return newEvent(t, spec.V1, "application/json", mustJSON(t, `{"x":1}`))
			},
			want: `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example","datacontenttype":"application/json","data":{"x":1}}`,
		},
		"json bytes embedded raw": {
			event: func(t *testing.T) *event.Event {
				return newEvent(t, spec.V1, "application/json", event.NewBytesData([]byte(`{"x":1}`)))
			},
			want: `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example","datacontenttype":"application/json","data":{"x":1}}`,
		},
		"octet stream 1.0": {
			event: func(t *testing.T) *event.Event {
				return newEvent(t, spec.V1, "application/octet-stream", event.NewBytesData([]byte{0, 1, 2}))
			},
			want: `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example","datacontenttype":"application/octet-stream","data_base64":"AAEC"}`,
		},
		"octet stream 0.3": {
			event: func(t *testing.T) *event.Event {
				return newEvent(t, spec.V03, "application/octet-stream", event.NewBytesData([]byte{0, 1, 2}))
			},
			want: `{"specversion":"0.3","id":"A234","source":"/mysource","type":"example","datacontenttype":"application/octet-stream","datacontentencoding":"base64","data":"AAEC"}`,
		},
		"json forced base64": {
			event: func(t *testing.T) *event.Event {
				return newEvent(t, spec.V1, "application/json", event.NewBytesData([]byte(`1`)))
			},
			opts: []Option{WithForceDataBase64(true)},
			want: `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example","datacontenttype":"application/json","data_base64":"MQ=="}`,
		},
		"text forced string": {
			event: func(t *testing.T) *event.Event {
				return newEvent(t, spec.V1, "text/plain", event.NewBytesData([]byte(`say "hi"`)))
			},
			opts: []Option{WithForceString(true)},
			want: `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example","datacontenttype":"text/plain","data":"say \"hi\""}`,
		},
		"no data": {
			event: func(t *testing.T) *event.Event {
				return newEvent(t, spec.V1, "", nil)
			},
			want: `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example"}`,
		},
		"typed extensions": {
			event: func(t *testing.T) *event.Event {
				e, err := event.NewBuilderFrom(newEvent(t, spec.V1, "", nil)).
					SetExtension("count", 3).
					SetExtension("flag", false).
					SetExtension("label", "x").
					Build()
				require.NoError(t, err)
				return e
			},
			want: `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example","count":3,"flag":false,"label":"x"}`,
		},
	}

	for n, tc := range testCases {
		t.Run(n, func(t *testing.T) {
			got, err := New(tc.opts...).Marshal(tc.event(t))
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestBase64Decision(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
		opts        []Option
		want        bool
	}{
		{name: "json", contentType: "application/json", want: false},
		{name: "no content type", contentType: "", want: false},
		{name: "json suffix", contentType: "application/vnd.foo+JSON; charset=utf-8", want: false},
		{name: "text json", contentType: "text/json", want: false},
		{name: "json forced", contentType: "application/json", opts: []Option{WithForceDataBase64(true)}, want: true},
		{name: "json forced string", contentType: "application/json", opts: []Option{WithForceString(true)}, want: false},
		{name: "octet stream", contentType: "application/octet-stream", want: true},
		{name: "octet stream forced string", contentType: "application/octet-stream", opts: []Option{WithForceString(true)}, want: false},
		{name: "text", contentType: "text/plain", want: true},
		{name: "text forced string", contentType: "text/plain", opts: []Option{WithForceString(true)}, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, New(tc.opts...).base64Data(tc.contentType))
		})
	}
}

func TestMarshalInvalidEmbeddedJSON(t *testing.T) {
	e := newEvent(t, spec.V1, "application/json", event.NewBytesData([]byte("not json")))
	_, err := New().Marshal(e)
	assert.ErrorIs(t, err, event.ErrDataConversion)
}

func TestMarshalEmptyJSONPayload(t *testing.T) {
	for _, v := range spec.Versions {
		for _, payload := range [][]byte{nil, {}, []byte(" \n")} {
			e := newEvent(t, v, "application/json", event.NewBytesData(payload))
			wire, err := New().Marshal(e)
			require.NoError(t, err)
			assert.NotContains(t, string(wire), `"data"`)

			got, err := New().Unmarshal(wire)
			require.NoError(t, err)
			assert.True(t, e.Equal(got), "%s", wire)
			assert.Equal(t, "application/json", got.DataContentType())
		}
	}
}

func TestRoundTripJSONSurroundingWhitespace(t *testing.T) {
	e := newEvent(t, spec.V1, "application/json", event.NewBytesData([]byte(" {\"a\": 1} \n")))
	wire, err := New().Marshal(e)
	require.NoError(t, err)

	got, err := New().Unmarshal(wire)
	require.NoError(t, err)
	data, err := got.Data().Bytes()
	require.NoError(t, err)
	// Whitespace around an embedded JSON value is not part of the document.
	assert.Equal(t, `{"a": 1}`, string(data))
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestRoundTrip(t *testing.T) {
	ts := time.Date(2018, 4, 5, 17, 31, 0, 123000000, time.UTC)
	for _, v := range spec.Versions {
		for ct, d := range map[string]event.Data{
			"":                             nil,
			"application/json":             event.NewBytesData([]byte(`{"a":[1,2,{"b":null}]}`)),
			"application/cloudevents+json": event.NewBytesData([]byte(`"nested"`)),
			"text/plain":                   event.NewBytesData([]byte("hello")),
			"application/octet-stream":     event.NewBytesData([]byte{0xff, 0, 1}),
		} {
			for _, opts := range [][]Option{nil, {WithForceString(true)}, {WithForceDataBase64(true)}} {
				b := event.NewBuilder(v).
					SetID("id-1").
					SetSource("https://example.com/source").
					SetType("com.example.type").
					SetSubject("subject").
					SetTime(ts).
					SetDataSchema("https://example.com/schema").
					SetExtension("count", 42).
					SetExtension("flag", true).
					SetExtension("text", "value")
				if d != nil {
					b.SetData(ct, d)
				}
				in, err := b.Build()
				require.NoError(t, err)

				f := New(opts...)
				wire, err := f.Marshal(in)
				if ct == "application/octet-stream" && len(opts) == 1 && f.forceString {
					// Arbitrary bytes cannot survive a JSON string.
					continue
				}
				require.NoError(t, err)
				out, err := f.Unmarshal(wire)
				require.NoError(t, err, string(wire))
				assert.True(t, in.Equal(out), "%s\n%s\n%s", wire, in, out)
			}
		}
	}
}

func TestUnmarshal(t *testing.T) {
	e, err := New().Unmarshal([]byte(`{"data":{"x":1},"type":"example","id":"A234","source":"/mysource","specversion":"1.0","datacontenttype":"application/json","count":7,"ratio":1.5,"big":3000000000,"flag":true,"nothing":null}`))
	require.NoError(t, err)

	assert.Equal(t, spec.V1, e.SpecVersion())
	assert.Equal(t, "A234", e.ID())
	tree, ok := e.Data().Tree()
	require.True(t, ok)
	assert.Equal(t, 1, tree.Get("x").ToInt())

	count, _ := e.Extension("count")
	n, ok := count.AsInteger()
	assert.True(t, ok)
	assert.Equal(t, int32(7), n)

	ratio, _ := e.Extension("ratio")
	s, ok := ratio.AsString()
	assert.True(t, ok)
	assert.Equal(t, "1.5", s)

	big, _ := e.Extension("big")
	assert.Equal(t, "3000000000", big.String())

	flag, _ := e.Extension("flag")
	bv, ok := flag.AsBoolean()
	assert.True(t, ok)
	assert.True(t, bv)

	_, ok = e.Extension("nothing")
	assert.False(t, ok)
}

func TestUnmarshalData(t *testing.T) {
	testCases := map[string]struct {
		doc      string
		want     string
		wantTree bool
	}{
		"base64 1.0": {
			doc:  `{"specversion":"1.0","id":"1","source":"/s","type":"t","data_base64":"AAEC"}`,
			want: "\x00\x01\x02",
		},
		"base64 0.3": {
			doc:  `{"specversion":"0.3","id":"1","source":"/s","type":"t","datacontentencoding":"base64","data":"AAEC"}`,
			want: "\x00\x01\x02",
		},
		"text": {
			doc:  `{"specversion":"1.0","id":"1","source":"/s","type":"t","datacontenttype":"text/plain","data":"hello"}`,
			want: "hello",
		},
		"json string": {
			doc:      `{"specversion":"1.0","id":"1","source":"/s","type":"t","datacontenttype":"application/json","data":"hello"}`,
			want:     `"hello"`,
			wantTree: true,
		},
		"json without content type": {
			doc:      `{"specversion":"1.0","id":"1","source":"/s","type":"t","data": [1, 2]}`,
			want:     `[1, 2]`,
			wantTree: true,
		},
		"object with xml content type": {
			doc:      `{"specversion":"1.0","id":"1","source":"/s","type":"t","datacontenttype":"application/xml","data":{"a":1}}`,
			want:     `{"a":1}`,
			wantTree: true,
		},
	}
	for n, tc := range testCases {
		t.Run(n, func(t *testing.T) {
			e, err := New().Unmarshal([]byte(tc.doc))
			require.NoError(t, err)
			require.NotNil(t, e.Data())
			b, err := e.Data().Bytes()
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(b))
			_, ok := e.Data().Tree()
			assert.Equal(t, tc.wantTree, ok)
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	testCases := map[string]struct {
		doc     string
		wantErr error
	}{
		"missing specversion": {
			doc:     `{"id":"1","source":"/s","type":"t"}`,
			wantErr: event.ErrInvalidSpecVersion,
		},
		"unknown specversion": {
			doc:     `{"specversion":"0.2","id":"1","source":"/s","type":"t"}`,
			wantErr: event.ErrInvalidSpecVersion,
		},
		"numeric specversion": {
			doc:     `{"specversion":1.0,"id":"1","source":"/s","type":"t"}`,
			wantErr: event.ErrInvalidSpecVersion,
		},
		"data_base64 with 0.3": {
			doc:     `{"specversion":"0.3","id":"1","source":"/s","type":"t","data_base64":"AAEC"}`,
			wantErr: event.ErrSpecVersionMismatch,
		},
		"datacontentencoding with 1.0": {
			doc:     `{"specversion":"1.0","id":"1","source":"/s","type":"t","datacontentencoding":"base64","data":"AAEC"}`,
			wantErr: event.ErrSpecVersionMismatch,
		},
		"object attribute": {
			doc:     `{"specversion":"1.0","id":"1","source":"/s","type":"t","subject":{"a":1}}`,
			wantErr: event.ErrInvalidAttributeType,
		},
		"integer id": {
			doc:     `{"specversion":"1.0","id":1,"source":"/s","type":"t"}`,
			wantErr: event.ErrInvalidAttributeType,
		},
		"missing source": {
			doc:     `{"specversion":"1.0","id":"1","type":"t"}`,
			wantErr: event.ErrInvalidAttributeValue,
		},
		"bad base64": {
			doc:     `{"specversion":"1.0","id":"1","source":"/s","type":"t","data_base64":"!!"}`,
			wantErr: event.ErrInvalidAttributeValue,
		},
		"bad time": {
			doc:     `{"specversion":"1.0","id":"1","source":"/s","type":"t","time":"noon"}`,
			wantErr: event.ErrInvalidAttributeValue,
		},
		"malformed extension name": {
			doc:     `{"specversion":"1.0","id":"1","source":"/s","type":"t","schemaurl":"/x","Bad":"y"}`,
			wantErr: event.ErrInvalidExtensionName,
		},
	}
	for n, tc := range testCases {
		t.Run(n, func(t *testing.T) {
			_, err := New().Unmarshal([]byte(tc.doc))
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	for _, doc := range []string{``, `[]`, `{"specversion":"1.0",`, `{"specversion" "1.0"}`} {
		_, err := New().Unmarshal([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestDefaultRegistration(t *testing.T) {
	f, ok := format.Default.Lookup("application/cloudevents+json; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, MediaType, f.MediaType())

	custom := New(WithMediaType("application/cloudevents+json5"))
	assert.Equal(t, "application/cloudevents+json5", custom.MediaType())
}

type payload struct {
	X    int    `json:"x"`
	Name string `json:"name,omitempty"`
}

func TestDataAs(t *testing.T) {
	got, err := DataAs[payload](mustJSON(t, `{"x":1,"name":"n"}`))
	require.NoError(t, err)
	if diff := cmp.Diff(payload{X: 1, Name: "n"}, got); diff != "" {
		t.Error("unexpected payload (-want, +got) =", diff)
	}

	got, err = DataAs[payload](event.NewBytesData([]byte(`{"x":2}`)))
	require.NoError(t, err)
	assert.Equal(t, 2, got.X)

	got, err = DataAs[payload](NewValueData(payload{X: 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, got.X)

	m, err := DataAs[map[string]int](NewValueData(payload{X: 4}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 4}, m)

	_, err = DataAs[payload](event.NewBytesData([]byte(`not json`)))
	assert.ErrorIs(t, err, event.ErrDataConversion)

	_, err = DataAs[payload](nil)
	assert.ErrorIs(t, err, event.ErrDataConversion)
}

func TestValueDataEncodesAsJSON(t *testing.T) {
	e := newEvent(t, spec.V1, "application/json", NewValueData(payload{X: 5}))
	got, err := New().Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, `{"specversion":"1.0","id":"A234","source":"/mysource","type":"example","datacontenttype":"application/json","data":{"x":5}}`, string(got))
}

func TestFuzzedRoundTrip(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 64)
	for i := 0; i < 50; i++ {
		var (
			id, subject, ext, text string
			payload                []byte
		)
		f.Fuzz(&id)
		f.Fuzz(&subject)
		f.Fuzz(&ext)
		f.Fuzz(&text)
		f.Fuzz(&payload)

		for _, v := range spec.Versions {
			binary, err := event.NewBuilder(v).
				SetID("id-"+id).
				SetSource("/fuzz").
				SetType("dev.knative.fuzz").
				SetSubject("s-"+subject).
				SetExtension("fuzzext", ext).
				SetDataBytes("application/octet-stream", payload).
				Build()
			require.NoError(t, err)

			str, err := event.NewBuilder(v).
				SetID("id-"+id).
				SetSource("/fuzz").
				SetType("dev.knative.fuzz").
				SetDataBytes("text/plain", []byte(text)).
				Build()
			require.NoError(t, err)

			for _, tc := range []struct {
				e *event.Event
				f *Format
			}{
				{e: binary, f: New()},
				{e: str, f: New(WithForceString(true))},
			} {
				b, err := tc.f.Marshal(tc.e)
				require.NoError(t, err)
				got, err := tc.f.Unmarshal(b)
				require.NoError(t, err, string(b))
				assert.True(t, tc.e.Equal(got), "want:\n%s\ngot:\n%s", tc.e, got)
			}
		}
	}
}
