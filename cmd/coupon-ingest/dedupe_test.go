package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	seen := newDedupe(16)

	assert.True(t, seen.add("SAVE10"))
	assert.False(t, seen.add("SAVE10"))
	assert.True(t, seen.add("SAVE20"))
}

func TestDedupe_BeyondEstimate(t *testing.T) {
	// An undersized filter yields false positives; the exact set must still
	// accept every new code once.
	seen := newDedupe(8)

	for i := range 5000 {
		assert.True(t, seen.add(fmt.Sprintf("CODE%05d", i)))
	}
	for i := range 5000 {
		assert.False(t, seen.add(fmt.Sprintf("CODE%05d", i)))
	}
}
