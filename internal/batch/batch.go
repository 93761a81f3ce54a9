// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch partitions identifier lists into request-sized chunks.
package batch

import (
	"iter"

	"github.com/pdiddy/paper-enrich/pkg/types"
)

// Chunks yields contiguous, non-overlapping sub-slices of ids in order.
// Every chunk holds size identifiers except possibly the last. A
// non-positive size uses types.DefaultChunkSize. The yielded slices share
// the backing array of ids and must not be appended to.
func Chunks(ids []string, size int) iter.Seq[[]string] {
	if size <= 0 {
		size = types.DefaultChunkSize
	}
	return func(yield func([]string) bool) {
		for start := 0; start < len(ids); start += size {
			end := min(start+size, len(ids))
			if !yield(ids[start:end:end]) {
				return
			}
		}
	}
}

// Count returns how many chunks Chunks yields for n identifiers.
func Count(n, size int) int {
	if size <= 0 {
		size = types.DefaultChunkSize
	}
	return (n + size - 1) / size
}

// Prefix returns a copy of ids with each entry namespaced as "TAG:id".
// An empty tag returns the identifiers unchanged.
func Prefix(ids []string, tag string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if tag == "" {
			out[i] = id
			continue
		}
		out[i] = tag + ":" + id
	}
	return out
}
