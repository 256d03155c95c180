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

package binding

import (
	"sort"
)

// Message is an in-memory MessageReader and MessageWriter.
type Message struct {
	Type    string
	Headers map[string]string
	Payload []byte
}

var (
	_ MessageReader = (*Message)(nil)
	_ MessageWriter = (*Message)(nil)
)

func (m *Message) ContentType() string { return m.Type }

// ReadHeaders calls fn for each header in lexical order of names.
func (m *Message) ReadHeaders(fn func(name, value string) error) error {
	for _, n := range m.HeaderNames() {
		if err := fn(n, m.Headers[n]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) Body() []byte { return m.Payload }

func (m *Message) SetContentType(contentType string) { m.Type = contentType }

func (m *Message) SetHeader(name, value string) {
	if m.Headers == nil {
		m.Headers = map[string]string{}
	}
	m.Headers[name] = value
}

func (m *Message) SetBody(body []byte) { m.Payload = body }

// HeaderNames returns the header names in lexical order.
func (m *Message) HeaderNames() []string {
	names := make([]string, 0, len(m.Headers))
	for n := range m.Headers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
