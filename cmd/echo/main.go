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

// Implements a receiver answering every event with a copy carrying a new id,
// source and type, in the content mode of the request.
package main

import (
	"context"
	"os"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"knative.dev/pkg/logging"
	"knative.dev/pkg/signals"

	bindinghttp "knative.dev/cecodec/pkg/binding/http"
	"knative.dev/cecodec/pkg/config"
)

func main() {
	var env config.EnvConfig
	if err := envconfig.Process("", &env); err != nil {
		panic("Failed to process env var: " + err.Error())
	}
	env.Component = "echo"
	logger := env.GetLogger()
	defer flush(logger)
	ctx := logging.WithLogger(signals.NewContext(), logger)

	if err := run(ctx, &env); err != nil {
		logger.Fatalw("Error during receiver's runtime", zap.Error(err))
	}
}

func run(ctx context.Context, env *config.EnvConfig) error {
	logger := logging.FromContext(ctx)

	overrides, err := env.GetCloudEventOverrides()
	if err != nil {
		return err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	h := &echo{
		source:    env.ReplySource,
		eventType: env.ReplyType,
		host:      host,
		overrides: overrides,
	}

	server := bindinghttp.NewServer(env.Port)
	receiver, err := bindinghttp.NewReceiver(h.reply, logger.Desugar(),
		bindinghttp.WithServer(server),
		bindinghttp.WithRegistry(env.NewRegistry()),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return receiver.Start(ctx)
	})
	g.Go(func() error {
		select {
		case <-server.Ready:
			logger.Infow("Listening", zap.Int("port", env.Port))
		case <-ctx.Done():
		}
		return nil
	})
	return g.Wait()
}

func flush(logger *zap.SugaredLogger) {
	_ = logger.Sync()
}
