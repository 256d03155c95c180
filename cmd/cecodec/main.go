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

// Implements a utility printing the wire form of CloudEvents read from
// conformance YAML documents.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	ceconformance "github.com/cloudevents/conformance/pkg/event"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/wavesoftware/go-ensure"

	"knative.dev/cecodec/pkg/binding"
	bindinghttp "knative.dev/cecodec/pkg/binding/http"
	"knative.dev/cecodec/pkg/config"
	"knative.dev/cecodec/pkg/conformance"
	"knative.dev/cecodec/pkg/event"
	"knative.dev/cecodec/pkg/format"
	"knative.dev/cecodec/pkg/format/jsonformat"
	"knative.dev/cecodec/pkg/interop"
)

const (
	modeBinary     = "binary"
	modeStructured = "structured"
	modeYAML       = "yaml"
)

func main() {
	ensure.NoError(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("cecodec", flag.ContinueOnError)
	files := flags.String("files", "-", "Comma separated conformance YAML files, directories or URLs. - reads stdin")
	recursive := flags.Bool("recursive", false, "Read directories recursively")
	mode := flags.String("mode", "", "Output mode: binary, structured or yaml. Defaults to the mode of each event")
	target := flags.String("target", "http://localhost:8080/", "Request URL of the HTTP requests")
	send := flags.Bool("send", false, "Send the events to the target and print the replies instead of the requests")
	expr := flags.String("filter", "", "CESQL expression selecting the events to process")
	if err := flags.Parse(args); err != nil {
		return err
	}
	switch *mode {
	case "", modeBinary, modeStructured, modeYAML:
	default:
		return errors.Errorf("unknown mode %q", *mode)
	}

	filter, err := interop.NewFilter(*expr)
	if err != nil {
		return err
	}

	var env config.EnvConfig
	if err := envconfig.Process("", &env); err != nil {
		return errors.Wrap(err, "processing environment")
	}
	f := jsonformat.New(env.JSONOptions()...)
	sender := bindinghttp.NewSender(*target)
	sender.Registry = env.NewRegistry()

	events, modes, err := conformance.ReadFiles(strings.Split(*files, ","), *recursive)
	if err != nil {
		return err
	}
	for i, e := range events {
		if ok, err := filter.Match(e); err != nil {
			return errors.Wrapf(err, "filtering event %s", e.ID())
		} else if !ok {
			continue
		}
		m := modes[i]
		switch *mode {
		case modeBinary:
			m = binding.ModeBinary
		case modeStructured:
			m = binding.ModeStructured
		case modeYAML:
			if err := writeYAML(out, e, m); err != nil {
				return err
			}
			continue
		}
		if *send {
			err = sendEvent(out, sender, e, m, f)
		} else {
			err = writeRequest(out, *target, e, m, f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeRequest(out io.Writer, target string, e *event.Event, m binding.Mode, f *jsonformat.Format) error {
	req, err := http.NewRequest(http.MethodPost, target, nil)
	if err != nil {
		return err
	}
	if m == binding.ModeStructured {
		err = bindinghttp.WriteRequest(e, req, f)
	} else {
		err = bindinghttp.WriteRequest(e, req, nil)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding event %s", e.ID())
	}
	dump, err := httputil.DumpRequest(req, true)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n================\n", bytes.TrimSpace(dump))
	return err
}

func sendEvent(out io.Writer, sender *bindinghttp.Sender, e *event.Event, m binding.Mode, f *jsonformat.Format) error {
	var ff format.Format
	if m == binding.ModeStructured {
		ff = f
	}
	status, reply, err := sender.Send(context.Background(), e, ff)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "%s -> %d\n", e.ID(), status); err != nil {
		return err
	}
	if reply != nil {
		_, err = fmt.Fprintf(out, "%s", reply)
	}
	return err
}

func writeYAML(out io.Writer, e *event.Event, m binding.Mode) error {
	doc, err := conformance.FromEvent(e, m)
	if err != nil {
		return err
	}
	b, err := ceconformance.ToYaml(doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "---\n%s", b)
	return err
}
