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

// Package mqtt binds events to MQTT 5 PUBLISH packets. In binary mode the
// attributes travel as user properties named after the attribute.
package mqtt

import (
	"strings"

	"github.com/eclipse/paho.golang/paho"

	"knative.dev/cecodec/pkg/binding"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/extensions"
	"knative.dev/cecodec/pkg/format"
)

// ContentTypeProperty is the user property carrying the content type, next
// to the PUBLISH content type property.
const ContentTypeProperty = "Content-Type"

// legacyPrefix is accepted on attribute properties when reading. Extension
// names cannot contain "-", so the prefix never clashes with a bare name.
const legacyPrefix = "ce-"

// Binary is the MQTT binary mode binding. User properties carry no prefix.
var Binary = binding.Binary{
	Extensions: extensions.Kinds,
}

// Message reads an event from a received PUBLISH packet.
type Message struct {
	publish *paho.Publish
}

var _ binding.MessageReader = (*Message)(nil)

func NewMessage(p *paho.Publish) *Message {
	return &Message{publish: p}
}

// ContentType prefers the Content-Type user property and falls back to the
// content type property of the packet.
func (m *Message) ContentType() string {
	if m.publish.Properties == nil {
		return ""
	}
	for _, u := range m.publish.Properties.User {
		if strings.EqualFold(u.Key, ContentTypeProperty) {
			return u.Value
		}
	}
	return m.publish.Properties.ContentType
}

// ReadHeaders walks the user properties, except the content type. A "ce-"
// prefix, written by some producers, is removed from property names.
func (m *Message) ReadHeaders(fn func(name, value string) error) error {
	if m.publish.Properties == nil {
		return nil
	}
	for _, u := range m.publish.Properties.User {
		if strings.EqualFold(u.Key, ContentTypeProperty) {
			continue
		}
		name := u.Key
		if len(name) > len(legacyPrefix) && strings.EqualFold(name[:len(legacyPrefix)], legacyPrefix) {
			name = name[len(legacyPrefix):]
		}
		if err := fn(name, u.Value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) Body() []byte { return m.publish.Payload }

type publishWriter struct {
	publish *paho.Publish
}

var _ binding.MessageWriter = (*publishWriter)(nil)

func (w *publishWriter) properties() *paho.PublishProperties {
	if w.publish.Properties == nil {
		w.publish.Properties = &paho.PublishProperties{}
	}
	return w.publish.Properties
}

func (w *publishWriter) SetContentType(contentType string) {
	p := w.properties()
	p.ContentType = contentType
	p.User = append(p.User, paho.UserProperty{Key: ContentTypeProperty, Value: contentType})
}

func (w *publishWriter) SetHeader(name, value string) {
	p := w.properties()
	p.User = append(p.User, paho.UserProperty{Key: name, Value: value})
}

func (w *publishWriter) SetBody(body []byte) {
	w.publish.Payload = body
}

// WritePublish encodes e into p, as a structured document when f is not nil
// and with user properties otherwise. Topic and QoS are left to the caller.
func WritePublish(e *event.Event, p *paho.Publish, f format.Format) error {
	return binding.WriteEvent(e, &publishWriter{publish: p}, Binary, f)
}

// ToEvent decodes the event carried by p.
func ToEvent(r *format.Registry, p *paho.Publish) (*event.Event, error) {
	return binding.ToEvent(r, Binary, NewMessage(p))
}
