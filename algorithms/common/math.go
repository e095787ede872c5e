package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic numeric helpers shared by the tempo pipeline, backed by gonum where it fits

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Sum adds up all values using gonum
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// StridedEnergy sums the squares of every stride-th sample in data[start:end].
// The cost depends on (end-start)/stride only, which keeps coarse scans over long
// buffers cheap.
func StridedEnergy(data []float64, start, end, stride int) float64 {
	if stride <= 0 {
		stride = 1
	}
	start = max(start, 0)
	end = min(end, len(data))

	energy := 0.0
	for i := start; i < end; i += stride {
		energy += data[i] * data[i]
	}
	return energy
}

// Clamp constrains a value to a range
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// Float32ToFloat64 widens a sample buffer into a newly allocated slice
func Float32ToFloat64(samples []float32) []float64 {
	if samples == nil {
		return nil
	}

	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}
