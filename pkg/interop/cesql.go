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
	cesql "github.com/cloudevents/sdk-go/sql/v2"
	cesqlparser "github.com/cloudevents/sdk-go/sql/v2/parser"
	"github.com/pkg/errors"

	"knative.dev/cecodec/pkg/event"
)

// Filter matches events against a CESQL expression. The zero Filter and a
// Filter built from an empty expression match every event.
type Filter struct {
	rawExpression    string
	parsedExpression cesql.Expression
}

// NewFilter parses expr.
func NewFilter(expr string) (*Filter, error) {
	f := &Filter{rawExpression: expr}
	if expr == "" {
		return f, nil
	}
	parsed, err := parse(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing expression %q", expr)
	}
	f.parsedExpression = parsed
	return f, nil
}

// parse turns panics of the CESQL parser on incomplete input into errors.
func parse(expr string) (parsed cesql.Expression, err error) {
	defer func() {
		if r := recover(); r != nil {
			parsed, err = nil, errors.Errorf("malformed expression: %v", r)
		}
	}()
	parsed, err = cesqlparser.Parse(expr)
	if err == nil && parsed == nil {
		err = errors.New("empty expression")
	}
	return parsed, err
}

// Match evaluates the expression on e. An expression evaluating to a non
// boolean value is an error.
func (f *Filter) Match(e *event.Event) (bool, error) {
	if f == nil || f.parsedExpression == nil {
		return true, nil
	}
	ce, err := ToSDK(e)
	if err != nil {
		return false, err
	}
	res, err := f.parsedExpression.Evaluate(ce)
	if err != nil {
		return false, errors.Wrapf(err, "evaluating %q", f.rawExpression)
	}
	matched, ok := res.(bool)
	if !ok {
		return false, errors.Errorf("expression %q evaluated to %T, not a boolean", f.rawExpression, res)
	}
	return matched, nil
}
