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

// Package extensions holds the Knative extension attributes and the types
// they carry in binary mode.
package extensions

import (
	"net/url"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/types"
)

const (
	KnativeErrorDestExtensionKey       = "knativeerrordest"
	KnativeErrorCodeExtensionKey       = "knativeerrorcode"
	KnativeErrorDataExtensionKey       = "knativeerrordata"
	KnativeErrorDataExtensionMaxLength = 1024
)

// Kinds declares the type of the Knative extensions, so binary mode decoding
// restores them with the type they were written with.
var Kinds = map[string]types.Kind{
	KnativeErrorDestExtensionKey: types.URI,
	KnativeErrorCodeExtensionKey: types.Integer,
	KnativeErrorDataExtensionKey: types.String,
	HistoryExtensionKey:          types.String,
}

// SetKnativeError adds the destination and error code/data extensions to b.
// An empty destination is omitted.
func SetKnativeError(b *event.Builder, destination url.URL, code int, data string) *event.Builder {
	if destination.String() != "" {
		b.SetAttribute(KnativeErrorDestExtensionKey, types.NewURI(&destination))
	}
	b.SetExtension(KnativeErrorCodeExtensionKey, code)
	if len(data) > KnativeErrorDataExtensionMaxLength {
		data = data[:KnativeErrorDataExtensionMaxLength] // Truncate data to max length
	}
	return b.SetExtension(KnativeErrorDataExtensionKey, data)
}

// KnativeError returns the error extensions of e, if any.
func KnativeError(e *event.Event) (destination *url.URL, code int32, data string, ok bool) {
	if v, found := e.Extension(KnativeErrorDestExtensionKey); found {
		destination, _ = v.AsURL()
		ok = true
	}
	if v, found := e.Extension(KnativeErrorCodeExtensionKey); found {
		code, _ = v.AsInteger()
		ok = true
	}
	if v, found := e.Extension(KnativeErrorDataExtensionKey); found {
		data = v.String()
		ok = true
	}
	return
}
