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

package format

import (
	lru "github.com/hashicorp/golang-lru"
)

const (
	// lookupCacheSize bounds the number of distinct content type strings
	// remembered by a registry.
	lookupCacheSize = 256
)

type cacheEntry struct {
	// format is nil for content types no format owns.
	format Format
}

type lookupCache interface {
	Add(string, cacheEntry) bool
	Get(string) (cacheEntry, bool)
	Purge()
}

type noCache struct{}

func (noCache) Add(string, cacheEntry) bool { return false }

func (noCache) Get(string) (cacheEntry, bool) { return cacheEntry{}, false }

func (noCache) Purge() {}

type lruCache struct {
	lru *lru.Cache
}

func newLookupCache() lookupCache {
	// Only fails for a non positive size.
	c, err := lru.New(lookupCacheSize)
	if err != nil {
		return noCache{}
	}
	return &lruCache{lru: c}
}

func (c *lruCache) Add(k string, e cacheEntry) bool {
	return c.lru.Add(k, e)
}

func (c *lruCache) Get(k string) (cacheEntry, bool) {
	res, exists := c.lru.Get(k)
	if !exists {
		return cacheEntry{}, false
	}
	entry, ok := res.(cacheEntry)
	return entry, ok
}

func (c *lruCache) Purge() {
	c.lru.Purge()
}
