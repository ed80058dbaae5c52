package util

import (
	"math"
	"math/bits"
)

// ----------------------------------------------------------------------------
// Summary
// ----------------------------------------------------------------------------

// Summary describes a set of integer samples (e.g. remaining ttls in ms)
type Summary struct {
	Count  int     `json:"count"`
	Min    int64   `json:"min"`
	Max    int64   `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"` // population standard deviation
}

// NewSummary computes the summary of values in a single pass (Welford)
func NewSummary(values []int64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	s := Summary{Min: values[0], Max: values[0]}
	var m2 float64
	for i, v := range values {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)

		delta := float64(v) - s.Mean
		s.Mean += delta / float64(i+1)
		m2 += delta * (float64(v) - s.Mean)
	}
	s.Count = len(values)
	s.StdDev = math.Sqrt(m2 / float64(len(values)))
	return s
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// sizeBuckets covers sizes up to 2^63 bytes, bucket i holds sizes with a bit length of i
const sizeBuckets = 64

// SizeHistogram counts sizes in power of two buckets. Percentiles are estimated from the
// bucket a rank falls into and clamped to the smallest and largest sample.
//
// Thread-safety: A SizeHistogram is not safe for concurrent use.
type SizeHistogram struct {
	buckets [sizeBuckets]int64
	count   int64
	sum     int64
	min     int
	max     int
}

// NewSizeHistogram creates an empty histogram
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{}
}

// Add records one size. Negative sizes are counted as 0.
func (h *SizeHistogram) Add(size int) {
	size = max(size, 0)
	if h.count == 0 || size < h.min {
		h.min = size
	}
	if size > h.max {
		h.max = size
	}

	h.buckets[bits.Len(uint(size))]++
	h.count++
	h.sum += int64(size)
}

// Count returns the number of recorded sizes
func (h *SizeHistogram) Count() int64 {
	return h.count
}

// Mean returns the average size, 0 for an empty histogram
func (h *SizeHistogram) Mean() int {
	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// Percentile estimates the size below which p percent (0-100) of the samples fall
func (h *SizeHistogram) Percentile(p float64) int {
	if h.count == 0 || p < 0 || p > 100 {
		return 0
	}

	rank := int64(math.Ceil(float64(h.count) * p / 100))
	rank = max(rank, 1)

	var seen int64
	for i, n := range h.buckets {
		seen += n
		if seen < rank {
			continue
		}
		if i == 0 {
			return 0
		}
		// bucket i holds [2^(i-1), 2^i - 1]
		lo := 1 << (i - 1)
		hi := lo<<1 - 1
		return min(max((lo+hi)/2, h.min), h.max)
	}
	return h.max
}
