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

// Package http binds events to HTTP requests and responses.
package http

import (
	"bytes"
	"io"
	nethttp "net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"knative.dev/cecodec/pkg/binding"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/extensions"
	"knative.dev/cecodec/pkg/format"
)

const (
	// Prefix of binary mode attribute headers.
	Prefix = "ce-"

	contentTypeHeader = "Content-Type"
)

// Binary is the binary content mode binding for HTTP, aware of the knative
// extensions.
var Binary = binding.Binary{
	Prefix:     Prefix,
	Extensions: extensions.Kinds,
}

// Message is a fully buffered HTTP message.
type Message struct {
	Header nethttp.Header
	body   []byte
}

var _ binding.MessageReader = (*Message)(nil)

// NewMessage returns a message over header and body.
func NewMessage(header nethttp.Header, body []byte) *Message {
	if header == nil {
		header = nethttp.Header{}
	}
	return &Message{Header: header, body: body}
}

// NewMessageFromRequest reads the whole request body.
func NewMessageFromRequest(req *nethttp.Request) (*Message, error) {
	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, errors.Wrap(err, "reading request body")
		}
	}
	return NewMessage(req.Header, body), nil
}

// NewMessageFromResponse reads the whole response body.
func NewMessageFromResponse(resp *nethttp.Response) (*Message, error) {
	var body []byte
	if resp.Body != nil {
		var err error
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, errors.Wrap(err, "reading response body")
		}
	}
	return NewMessage(resp.Header, body), nil
}

func (m *Message) ContentType() string { return m.Header.Get(contentTypeHeader) }

// ReadHeaders calls fn for every header value, in lexical order of the
// canonical header names. Attribute header values are percent-decoded.
func (m *Message) ReadHeaders(fn func(name, value string) error) error {
	names := make([]string, 0, len(m.Header))
	for n := range m.Header {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		attribute := strings.HasPrefix(strings.ToLower(n), Prefix)
		for _, v := range m.Header[n] {
			if attribute {
				decoded, err := DecodeHeaderValue(v)
				if err != nil {
					return event.NewAttributeError(event.ErrInvalidAttributeValue, strings.ToLower(n), err)
				}
				v = decoded
			}
			if err := fn(n, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Message) Body() []byte { return m.body }

// headerWriter writes a message into an http.Header.
type headerWriter struct {
	header nethttp.Header
	body   []byte
}

var _ binding.MessageWriter = (*headerWriter)(nil)

func (w *headerWriter) SetContentType(contentType string) {
	w.header.Set(contentTypeHeader, contentType)
}

func (w *headerWriter) SetHeader(name, value string) {
	w.header.Set(name, EncodeHeaderValue(value))
}

func (w *headerWriter) SetBody(body []byte) {
	w.body = body
}

// ToEvent decodes an HTTP message in the mode its content type selects.
func ToEvent(r *format.Registry, m *Message) (*event.Event, error) {
	return binding.ToEvent(r, Binary, m)
}

// WriteRequest encodes e into req, as a structured document when f is not nil
// and in binary mode otherwise.
func WriteRequest(e *event.Event, req *nethttp.Request, f format.Format) error {
	if req.Header == nil {
		req.Header = nethttp.Header{}
	}
	w := &headerWriter{header: req.Header}
	if err := binding.WriteEvent(e, w, Binary, f); err != nil {
		return err
	}
	body := w.body
	req.ContentLength = int64(len(body))
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return nil
}

// WriteResponseWriter encodes e into rw with the given status code.
func WriteResponseWriter(e *event.Event, rw nethttp.ResponseWriter, status int, f format.Format) error {
	header, body, err := encodeResponse(e, f)
	if err != nil {
		return err
	}
	return writeResponse(rw, status, header, body)
}

// encodeResponse encodes e away from the response, so that a failure leaves
// the response untouched.
func encodeResponse(e *event.Event, f format.Format) (nethttp.Header, []byte, error) {
	w := &headerWriter{header: nethttp.Header{}}
	if err := binding.WriteEvent(e, w, Binary, f); err != nil {
		return nil, nil, err
	}
	return w.header, w.body, nil
}

func writeResponse(rw nethttp.ResponseWriter, status int, header nethttp.Header, body []byte) error {
	for n, v := range header {
		rw.Header()[n] = v
	}
	rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
	rw.WriteHeader(status)
	if len(body) > 0 {
		if _, err := rw.Write(body); err != nil {
			return errors.Wrap(err, "writing response body")
		}
	}
	return nil
}
