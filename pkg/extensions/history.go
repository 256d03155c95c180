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

package extensions

import (
	"regexp"
	"strings"

	"knative.dev/cecodec/pkg/event"
)

const (
	// HistoryExtensionKey names the extension listing the hosts an event went
	// through, oldest first.
	HistoryExtensionKey = "knativehistory"
	// HistorySeparator joins history entries when the extension is written.
	HistorySeparator = "; "
)

// Entries may be separated by ";" with any surrounding whitespace.
var historySplitter = regexp.MustCompile(`\s*;\s*`)

// History returns the hosts recorded in the history extension of e.
func History(e *event.Event) []string {
	v, ok := e.Extension(HistoryExtensionKey)
	if !ok {
		return nil
	}
	return parseHistory(v.String())
}

// AppendToHistory records host as the latest entry after history. Blank hosts
// leave the builder unchanged.
func AppendToHistory(b *event.Builder, history []string, host string) *event.Builder {
	if host = strings.TrimSpace(host); host == "" {
		return b
	}
	entries := make([]string, 0, len(history)+1)
	entries = append(entries, history...)
	entries = append(entries, host)
	return b.SetExtension(HistoryExtensionKey, strings.Join(entries, HistorySeparator))
}

func parseHistory(value string) []string {
	var hosts []string
	for _, entry := range historySplitter.Split(value, -1) {
		if entry = strings.TrimSpace(entry); entry != "" {
			hosts = append(hosts, entry)
		}
	}
	return hosts
}
