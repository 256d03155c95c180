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

package interop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatch(t *testing.T) {
	events := testEvents(t)
	testCases := map[string]struct {
		expression string
		event      string
		want       bool
	}{
		"empty expression": {
			event: "1.0 minimal",
			want:  true,
		},
		"type matches": {
			expression: "type = 'com.github.pull_request.opened'",
			event:      "1.0 json",
			want:       true,
		},
		"type differs": {
			expression: "type = 'com.github.pull_request.opened'",
			event:      "1.0 minimal",
			want:       false,
		},
		"integer extension": {
			expression: "comexampleothervalue = 5 AND comexampleflag",
			event:      "0.3 json",
			want:       true,
		},
		"subject exists": {
			expression: "EXISTS subject",
			event:      "0.3 binary",
			want:       false,
		},
		"source prefix": {
			expression: "source LIKE 'https://github.com/%'",
			event:      "1.0 json",
			want:       true,
		},
	}
	for n, tc := range testCases {
		t.Run(n, func(t *testing.T) {
			f, err := NewFilter(tc.expression)
			require.NoError(t, err)
			got, err := f.Match(events[tc.event])
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFilterErrors(t *testing.T) {
	for _, expr := range []string{"type = ", "type ="} {
		_, err := NewFilter(expr)
		assert.Error(t, err, expr)
	}

	f, err := NewFilter("id")
	require.NoError(t, err)
	_, err = f.Match(testEvents(t)["1.0 minimal"])
	assert.Error(t, err)
}

func TestNilFilterMatchesEverything(t *testing.T) {
	var f *Filter
	ok, err := f.Match(testEvents(t)["1.0 minimal"])
	require.NoError(t, err)
	assert.True(t, ok)
}
