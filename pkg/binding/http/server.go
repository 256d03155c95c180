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
	"fmt"
	"net"
	nethttp "net/http"
	"time"

	"go.opencensus.io/plugin/ochttp"
	"knative.dev/pkg/network/handlers"
	"knative.dev/pkg/tracing/propagation/tracecontextb3"
)

const (
	DefaultShutdownTimeout = time.Minute * 1
)

// Server serves an http.Handler behind a drainer, so that shutting down
// lets in-flight requests complete.
type Server struct {
	port int

	server           *nethttp.Server
	listener         net.Listener
	checker          nethttp.HandlerFunc
	drainQuietPeriod time.Duration

	// Ready is closed once the server listens.
	Ready chan interface{}
}

type ServerOption func(*Server)

// WithChecker sets the handler answering kubelet probes.
func WithChecker(checker nethttp.HandlerFunc) ServerOption {
	return func(s *Server) {
		s.checker = checker
	}
}

// WithDrainQuietPeriod sets how long the drainer waits without requests
// before shutting down.
func WithDrainQuietPeriod(period time.Duration) ServerOption {
	return func(s *Server) {
		s.drainQuietPeriod = period
	}
}

func WithReadTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.server.ReadTimeout = timeout
	}
}

func WithWriteTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.server.WriteTimeout = timeout
	}
}

// NewServer returns a Server listening on port once started. Port 0 picks a
// free port.
func NewServer(port int, opts ...ServerOption) *Server {
	s := &Server{
		port:   port,
		server: &nethttp.Server{ReadHeaderTimeout: 30 * time.Second},
		Ready:  make(chan interface{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the address the server listens on. It is only meaningful once
// Ready is closed.
func (s *Server) Addr() string {
	return s.server.Addr
}

// StartListen serves handler until ctx is done. It blocks.
func (s *Server) StartListen(ctx context.Context, handler nethttp.Handler) error {
	var err error
	if s.listener, err = net.Listen("tcp", fmt.Sprintf(":%d", s.port)); err != nil {
		return err
	}

	drainer := &handlers.Drainer{
		Inner:       CreateHandler(handler),
		HealthCheck: s.checker,
		QuietPeriod: s.drainQuietPeriod,
	}
	s.server.Addr = s.listener.Addr().String()
	s.server.Handler = drainer

	errChan := make(chan error, 1)
	go func() {
		close(s.Ready)
		errChan <- s.server.Serve(s.listener)
	}()

	// wait for the server to return or ctx.Done().
	select {
	case <-ctx.Done():
		// As we start to shutdown, disable keep-alives to avoid clients hanging onto connections.
		s.server.SetKeepAlivesEnabled(false)
		drainer.Drain()
		ctx, cancel := context.WithTimeout(context.Background(), getShutdownTimeout(ctx))
		defer cancel()
		err := s.server.Shutdown(ctx)
		<-errChan // Wait for server goroutine to exit
		return err
	case err := <-errChan:
		return err
	}
}

type shutdownTimeoutKey struct{}

func getShutdownTimeout(ctx context.Context) time.Duration {
	v := ctx.Value(shutdownTimeoutKey{})
	if v == nil {
		return DefaultShutdownTimeout
	}
	return v.(time.Duration)
}

// WithShutdownTimeout bounds how long StartListen waits for in-flight requests
// once ctx is done.
func WithShutdownTimeout(ctx context.Context, timeout time.Duration) context.Context {
	return context.WithValue(ctx, shutdownTimeoutKey{}, timeout)
}

// CreateHandler wraps handler with trace propagation.
func CreateHandler(handler nethttp.Handler) nethttp.Handler {
	return &ochttp.Handler{
		Propagation: tracecontextb3.TraceContextEgress,
		Handler:     handler,
	}
}
