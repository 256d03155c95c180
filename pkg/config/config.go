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

// Package config holds the environment configuration shared by the commands.
package config

import (
	"encoding/json"

	"go.uber.org/zap"
	duckv1 "knative.dev/pkg/apis/duck/v1"
	"knative.dev/pkg/logging"

	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format"
	"knative.dev/cecodec/pkg/format/jsonformat"
)

// EnvConfig is the set of configuration parameters read from the
// environment.
type EnvConfig struct {
	// Component is the name the logger reports.
	Component string `envconfig:"K_COMPONENT" default:"cecodec"`
	// Port the receiver listens on.
	Port int `envconfig:"PORT" default:"8080"`

	// ForceDataBase64 writes JSON payloads base64 encoded in structured mode.
	ForceDataBase64 bool `envconfig:"K_FORCE_DATA_BASE64" default:"false"`
	// ForceStringData writes non JSON payloads as strings in structured mode.
	ForceStringData bool `envconfig:"K_FORCE_STRING_DATA" default:"false"`
	// StructuredMediaType is the media type of the JSON format.
	StructuredMediaType string `envconfig:"K_STRUCTURED_MEDIA_TYPE" default:"application/cloudevents+json"`

	// ReplySource and ReplyType are set on the events a receiver replies with.
	ReplySource string `envconfig:"K_REPLY_SOURCE" default:"https://knative.dev/cecodec/echo"`
	ReplyType   string `envconfig:"K_REPLY_TYPE" default:"dev.knative.cecodec.echo"`

	// CEOverrides are the CloudEvents overrides to be applied to outbound events.
	CEOverrides string `envconfig:"K_CE_OVERRIDES"`

	// LoggingConfigJson is a json string of logging.Config.
	LoggingConfigJson string `envconfig:"K_LOGGING_CONFIG"`
}

// JSONOptions returns the JSON format options the configuration asks for.
func (e *EnvConfig) JSONOptions() []jsonformat.Option {
	opts := []jsonformat.Option{
		jsonformat.WithForceDataBase64(e.ForceDataBase64),
		jsonformat.WithForceString(e.ForceStringData),
	}
	if e.StructuredMediaType != "" {
		opts = append(opts, jsonformat.WithMediaType(e.StructuredMediaType))
	}
	return opts
}

// NewRegistry returns a registry holding the configured JSON format, under
// the configured media type and the standard one.
func (e *EnvConfig) NewRegistry() *format.Registry {
	f := jsonformat.New(e.JSONOptions()...)
	r := format.NewRegistry()
	r.Register(f, jsonformat.MediaType)
	if f.MediaType() != jsonformat.MediaType {
		r.Register(f)
	}
	return r
}

func (e *EnvConfig) GetLogger() *zap.SugaredLogger {
	loggingConfig, err := logging.JSONToConfig(e.LoggingConfigJson)
	if err != nil {
		// Use default logging config.
		if loggingConfig, err = logging.NewConfigFromMap(map[string]string{}); err != nil {
			// If this fails, there is no recovering.
			panic(err)
		}
	}
	logger, _ := logging.NewLoggerFromConfig(loggingConfig, e.Component)
	return logger
}

func (e *EnvConfig) GetCloudEventOverrides() (*duckv1.CloudEventOverrides, error) {
	var ceOverrides duckv1.CloudEventOverrides
	if len(e.CEOverrides) > 0 {
		err := json.Unmarshal([]byte(e.CEOverrides), &ceOverrides)
		if err != nil {
			return nil, err
		}
	}
	return &ceOverrides, nil
}

// ApplyOverrides sets the override extensions on b.
func ApplyOverrides(b *event.Builder, overrides *duckv1.CloudEventOverrides) *event.Builder {
	if overrides == nil {
		return b
	}
	for name, value := range overrides.Extensions {
		b.SetExtension(name, value)
	}
	return b
}
