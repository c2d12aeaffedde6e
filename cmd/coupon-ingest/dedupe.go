package main

import "github.com/bits-and-blooms/bloom/v3"

const dedupeFPR = 0.001

// dedupe remembers coupon codes. The filter answers for codes never seen;
// only its positives are checked against the exact set.
type dedupe struct {
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

func newDedupe(expected uint) *dedupe {
	if expected == 0 {
		expected = 1024
	}
	return &dedupe{
		filter: bloom.NewWithEstimates(expected, dedupeFPR),
		seen:   make(map[string]struct{}),
	}
}

// add records code and reports whether it was new.
func (d *dedupe) add(code string) bool {
	if d.filter.TestString(code) {
		if _, ok := d.seen[code]; ok {
			return false
		}
	} else {
		d.filter.AddString(code)
	}
	d.seen[code] = struct{}{}
	return true
}
