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

package main

import (
	"context"

	obsclient "github.com/cloudevents/sdk-go/observability/opencensus/v2/client"
	"github.com/google/uuid"
	"go.opencensus.io/trace"
	duckv1 "knative.dev/pkg/apis/duck/v1"
	"knative.dev/pkg/logging"

	"knative.dev/cecodec/pkg/config"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/extensions"
	"knative.dev/cecodec/pkg/interop"
)

type echo struct {
	source    string
	eventType string
	host      string
	overrides *duckv1.CloudEventOverrides
}

// reply copies e with a fresh id, the configured source and type, and this
// host appended to the history.
func (h *echo) reply(ctx context.Context, e *event.Event) (*event.Event, error) {
	logger := logging.FromContext(ctx)
	logger.Debugw("Echoing event", "type", e.Type(), "source", e.Source())

	if span := trace.FromContext(ctx); span != nil && span.IsRecordingEvents() {
		ce, err := interop.ToSDK(e)
		if err != nil {
			logger.Warnw("Failed to convert event for tracing", "error", err)
		} else {
			span.AddAttributes(obsclient.EventTraceAttributes(&ce)...)
		}
	}

	b := event.NewBuilderFrom(e).
		SetID(uuid.New().String()).
		SetSource(h.source).
		SetType(h.eventType)
	extensions.AppendToHistory(b, extensions.History(e), h.host)
	config.ApplyOverrides(b, h.overrides)
	return b.Build()
}
