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
	"fmt"

	"github.com/pkg/errors"

	"knative.dev/cecodec/pkg/event"
)

// NewValueData wraps v as a JSON payload marshaled on first use.
func NewValueData(v interface{}) *event.ValueData {
	return event.NewValueData(v, json.Marshal)
}

// DataAs decodes a JSON payload into a value of type T. A payload that already
// holds a parsed tree is decoded from it without going through Bytes.
func DataAs[T any](d event.Data) (T, error) {
	var out T
	target := fmt.Sprintf("%T", out)
	if d == nil {
		return out, &event.DataError{From: "no data", To: target, Cause: errors.New("event has no data")}
	}
	if v, ok := d.(*event.ValueData); ok {
		if typed, ok := v.Value().(T); ok {
			return typed, nil
		}
	}

	if tree, ok := d.Tree(); ok {
		stream := streams.BorrowStream(nil)
		defer streams.ReturnStream(stream)
		tree.WriteTo(stream)
		if stream.Error == nil && json.Unmarshal(stream.Buffer(), &out) == nil {
			return out, nil
		}
		out = *new(T)
	}

	b, err := d.Bytes()
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return *new(T), &event.DataError{From: "json", To: target, Cause: err}
	}
	return out, nil
}
