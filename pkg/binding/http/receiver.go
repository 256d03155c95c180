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
	"errors"
	nethttp "net/http"
	"time"

	"go.uber.org/zap"
	"knative.dev/pkg/logging"
	"knative.dev/pkg/network"

	"knative.dev/cecodec/pkg/binding"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format"
)

// BadRequestError is returned by a ReceiverFunc rejecting the event it was
// given.
type BadRequestError string

func (e BadRequestError) Error() string {
	return "malformed request: " + string(e)
}

// ReceiverFunc handles a decoded event and optionally returns a reply event.
type ReceiverFunc func(context.Context, *event.Event) (*event.Event, error)

// Receiver decodes events from HTTP requests, in structured or binary mode,
// and writes replies in binary mode unless structured replies are enabled.
type Receiver struct {
	server       *Server
	receiverFunc ReceiverFunc
	logger       *zap.Logger
	registry     *format.Registry
	binary       binding.Binary
	// structuredReplies answers structured requests with structured replies.
	structuredReplies bool
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(*Receiver) error

// WithRegistry sets the registry used to recognize structured requests.
func WithRegistry(r *format.Registry) ReceiverOption {
	return func(recv *Receiver) error {
		if r == nil {
			return errors.New("nil format registry")
		}
		recv.registry = r
		return nil
	}
}

// WithBinding sets the binary mode binding.
func WithBinding(b binding.Binary) ReceiverOption {
	return func(recv *Receiver) error {
		recv.binary = b
		return nil
	}
}

// WithStructuredReplies answers structured requests in the format of the
// request instead of in binary mode.
func WithStructuredReplies() ReceiverOption {
	return func(recv *Receiver) error {
		recv.structuredReplies = true
		return nil
	}
}

// WithServer sets the server Start listens with.
func WithServer(s *Server) ReceiverOption {
	return func(recv *Receiver) error {
		recv.server = s
		return nil
	}
}

// NewReceiver creates a Receiver passing new events to receiverFunc.
func NewReceiver(receiverFunc ReceiverFunc, logger *zap.Logger, opts ...ReceiverOption) (*Receiver, error) {
	receiver := &Receiver{
		server:       NewServer(8080),
		receiverFunc: receiverFunc,
		logger:       logger,
		registry:     format.Default,
		binary:       Binary,
	}
	for _, opt := range opts {
		if err := opt(receiver); err != nil {
			return nil, err
		}
	}
	return receiver, nil
}

// Start serves HTTP until ctx is done.
func (r *Receiver) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.server.StartListen(ctx, r)
	}()

	// Stop either if the server stops (sending to errCh) or if the context Done channel is closed.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cancel()
	select {
	case err := <-errCh:
		return err
	case <-time.After(network.DefaultDrainTimeout):
		return errors.New("timeout shutting down http receiver")
	}
}

func (r *Receiver) ServeHTTP(response nethttp.ResponseWriter, request *nethttp.Request) {
	response.Header().Set("Allow", "POST, OPTIONS")
	if request.Method == nethttp.MethodOptions {
		response.Header().Set("WebHook-Allowed-Origin", "*") // Accept from any Origin:
		response.Header().Set("WebHook-Allowed-Rate", "*")   // Unlimited requests/minute
		response.WriteHeader(nethttp.StatusOK)
		return
	}
	if request.Method != nethttp.MethodPost {
		response.WriteHeader(nethttp.StatusMethodNotAllowed)
		return
	}

	// The response status codes:
	//   200 - the event was handled and a reply is returned
	//   202 - the event was handled
	//   400 - the request was malformed
	//   415 - the request uses an unsupported event format
	//   500 - an error occurred processing the request
	message, err := NewMessageFromRequest(request)
	if err != nil {
		r.logger.Warn("Cannot buffer request", zap.Error(err))
		response.WriteHeader(nethttp.StatusBadRequest)
		return
	}

	mode, f, err := binding.DecideMode(r.registry, message.ContentType())
	if err != nil {
		r.logger.Info("Unsupported content type", zap.String("contentType", message.ContentType()))
		response.WriteHeader(nethttp.StatusUnsupportedMediaType)
		return
	}

	var e *event.Event
	if mode == binding.ModeStructured {
		e, err = f.Unmarshal(message.Body())
	} else {
		e, err = r.binary.Read(message)
	}
	if err != nil {
		r.logger.Warn("failed to extract event from request", zap.Error(err), zap.Stringer("mode", mode))
		response.WriteHeader(nethttp.StatusBadRequest)
		return
	}
	r.logger.Debug("Received event", zap.String("id", e.ID()), zap.String("type", e.Type()))

	ctx := logging.WithLogger(request.Context(), r.logger.Sugar().With(zap.String("id", e.ID())))
	reply, err := r.receiverFunc(ctx, e)
	if err != nil {
		var bad BadRequestError
		if errors.As(err, &bad) {
			response.WriteHeader(nethttp.StatusBadRequest)
		} else {
			r.logger.Info("Error in receiver", zap.Error(err))
			response.WriteHeader(nethttp.StatusInternalServerError)
		}
		return
	}

	for n, v := range PassThroughHeaders(request.Header) {
		response.Header()[n] = v
	}
	if reply == nil {
		response.WriteHeader(nethttp.StatusAccepted)
		return
	}

	var replyFormat format.Format
	if mode == binding.ModeStructured && r.structuredReplies {
		replyFormat = f
	}
	header, body, err := encodeResponse(reply, replyFormat)
	if err != nil {
		r.logger.Warn("failed to encode reply", zap.Error(err), zap.String("replyId", reply.ID()))
		response.WriteHeader(nethttp.StatusInternalServerError)
		return
	}
	if err := writeResponse(response, nethttp.StatusOK, header, body); err != nil {
		r.logger.Warn("failed to write reply", zap.Error(err))
	}
}

var _ nethttp.Handler = (*Receiver)(nil)
