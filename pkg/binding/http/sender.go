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
	"context"
	nethttp "net/http"

	"github.com/pkg/errors"
	"go.opencensus.io/plugin/ochttp"
	"knative.dev/pkg/tracing/propagation/tracecontextb3"

	"knative.dev/cecodec/pkg/binding"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format"
	"knative.dev/cecodec/pkg/spec"
)

// Sender posts events to a target and decodes the replies.
type Sender struct {
	Client   *nethttp.Client
	Target   string
	Registry *format.Registry
}

// NewSender returns a Sender posting to target with a tracing client.
func NewSender(target string) *Sender {
	return &Sender{
		Client: &nethttp.Client{
			// Add output tracing.
			Transport: &ochttp.Transport{
				Base:        nethttp.DefaultTransport.(*nethttp.Transport).Clone(),
				Propagation: tracecontextb3.TraceContextEgress,
			},
		},
		Target:   target,
		Registry: format.Default,
	}
}

// Send posts e, structured with f when f is not nil and in binary mode
// otherwise. It returns the response status and the reply event, which is nil
// when the response carries none. Statuses outside 2xx are errors.
func (s *Sender) Send(ctx context.Context, e *event.Event, f format.Format) (int, *event.Event, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, s.Target, nil)
	if err != nil {
		return 0, nil, err
	}
	if err := WriteRequest(e, req, f); err != nil {
		return 0, nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "sending event %s", e.ID())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, errors.Errorf("unexpected response status %d", resp.StatusCode)
	}
	msg, err := NewMessageFromResponse(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if !hasEvent(s.Registry, msg) {
		return resp.StatusCode, nil, nil
	}
	reply, err := binding.ToEvent(s.Registry, Binary, msg)
	return resp.StatusCode, reply, err
}

func hasEvent(r *format.Registry, m *Message) bool {
	if m.Header.Get(Prefix+spec.SpecVersion) != "" {
		return true
	}
	mode, _, err := binding.DecideMode(r, m.ContentType())
	return err != nil || mode == binding.ModeStructured
}
