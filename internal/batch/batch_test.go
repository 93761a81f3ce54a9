// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%04d.%05d", 1000+i/100, i)
	}
	return ids
}

func TestChunksCoverInputInOrder(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 500, nil},
		{"single short chunk", 2, 500, []int{2}},
		{"exact multiple", 1000, 500, []int{500, 500}},
		{"remainder", 1203, 500, []int{500, 500, 203}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"default size", 501, 0, []int{500, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := makeIDs(tt.n)
			var got []string
			var sizes []int
			for chunk := range Chunks(ids, tt.size) {
				sizes = append(sizes, len(chunk))
				got = append(got, chunk...)
			}
			assert.Equal(t, tt.wantSizes, sizes)
			assert.Equal(t, len(ids), len(got))
			if tt.n > 0 {
				assert.Equal(t, ids, got)
			}
			assert.Equal(t, len(tt.wantSizes), Count(tt.n, tt.size))
		})
	}
}

func TestChunksNeverExceedSize(t *testing.T) {
	for _, size := range []int{1, 7, 64, 500} {
		for _, n := range []int{0, 1, size - 1, size, size + 1, 3*size + 2} {
			ids := makeIDs(n)
			var total int
			for chunk := range Chunks(ids, size) {
				require.LessOrEqual(t, len(chunk), size)
				require.NotEmpty(t, chunk)
				total += len(chunk)
			}
			assert.Equal(t, n, total, "size=%d n=%d", size, n)
		}
	}
}

func TestChunksStopsEarly(t *testing.T) {
	ids := makeIDs(10)
	var seen int
	for range Chunks(ids, 3) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestChunksAppendDoesNotClobberInput(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	for chunk := range Chunks(ids, 2) {
		_ = append(chunk, "x")
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestPrefix(t *testing.T) {
	ids := []string{"1001.0001", "1002.0002"}

	got := Prefix(ids, "ARXIV")
	assert.Equal(t, []string{"ARXIV:1001.0001", "ARXIV:1002.0002"}, got)
	assert.Equal(t, []string{"1001.0001", "1002.0002"}, ids, "input must not be modified")

	assert.True(t, slices.Equal(ids, Prefix(ids, "")))
}
