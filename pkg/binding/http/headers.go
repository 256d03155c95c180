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

package http

import (
	nethttp "net/http"
	"net/url"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Request headers copied onto replies, by lowercase name or name prefix. ce-
// headers are left out since a reply carries its own attributes.
var (
	forwardHeaders  = sets.NewString("x-request-id")
	forwardPrefixes = []string{"knative-", "x-b3-"}
)

// PassThroughHeaders returns the subset of headers a reply should carry over
// from the request: request ids, knative- headers and b3 trace headers.
func PassThroughHeaders(headers nethttp.Header) nethttp.Header {
	h := nethttp.Header{}
	for n, v := range headers {
		if forwarded(strings.ToLower(n)) {
			h[n] = v
		}
	}
	return h
}

func forwarded(name string) bool {
	if forwardHeaders.Has(name) {
		return true
	}
	for _, prefix := range forwardPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

const upperhex = "0123456789ABCDEF"

// EncodeHeaderValue percent-encodes space, double quote, percent and every
// byte outside printable ASCII.
func EncodeHeaderValue(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	b := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			b = append(b, '%', upperhex[c>>4], upperhex[c&15])
		} else {
			b = append(b, c)
		}
	}
	return string(b)
}

// DecodeHeaderValue reverses EncodeHeaderValue.
func DecodeHeaderValue(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	return url.PathUnescape(s)
}

func shouldEscape(c byte) bool {
	return c <= ' ' || c >= 0x7f || c == '"' || c == '%'
}
