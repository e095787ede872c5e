package temporal

import (
	"math"
)

// impulseTrain places unit impulses every period seconds within [start, end)
func impulseTrain(sampleRate int, seconds, period, start, end float64) []float64 {
	signal := make([]float64, int(seconds*float64(sampleRate)))
	for k := 0; ; k++ {
		t := start + float64(k)*period
		if t >= end {
			break
		}
		idx := int(math.Round(t * float64(sampleRate)))
		if idx >= len(signal) {
			break
		}
		signal[idx] = 1.0
	}
	return signal
}

// clickTrain places short band-limited clicks (a Hann-windowed 100 Hz cycle of 8ms)
// every period seconds within [start, end)
func clickTrain(sampleRate int, seconds, period, start, end float64) []float64 {
	signal := make([]float64, int(seconds*float64(sampleRate)))
	clickLen := int(0.008 * float64(sampleRate))

	for k := 0; ; k++ {
		t := start + float64(k)*period
		if t >= end {
			break
		}
		begin := int(math.Round(t * float64(sampleRate)))
		for n := 0; n < clickLen && begin+n < len(signal); n++ {
			hann := 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/float64(clickLen-1))
			signal[begin+n] += 0.8 * hann * math.Sin(2*math.Pi*100*float64(n)/float64(sampleRate))
		}
	}
	return signal
}

// kickTrain places decaying 60 Hz bursts of 200ms every period seconds within [start, end)
func kickTrain(sampleRate int, seconds, period, start, end float64) []float64 {
	signal := make([]float64, int(seconds*float64(sampleRate)))
	kickLen := int(0.2 * float64(sampleRate))

	for k := 0; ; k++ {
		t := start + float64(k)*period
		if t >= end {
			break
		}
		begin := int(math.Round(t * float64(sampleRate)))
		for n := 0; n < kickLen && begin+n < len(signal); n++ {
			tm := float64(n) / float64(sampleRate)
			signal[begin+n] += 0.9 * math.Exp(-tm/0.04) * math.Sin(2*math.Pi*60*tm)
		}
	}
	return signal
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
