package collector

import "math"

// resampleQuality fixes the polyphase resampler's quality level across
// every implementation, per spec §4.3 step 3: a Kaiser-windowed sinc
// filter, half-length 16 samples at the input rate, Kaiser beta 8.6
// (roughly -80dB stopband attenuation — a conventional "good enough for
// real-time capture" operating point). Keeping these constants fixed
// and documented is what makes round-trip tests reproducible to within
// the tolerance spec.md calls for.
const (
	resampleHalfTaps = 16
	resampleBeta     = 8.6
)

// resampleIfNeeded resamples every channel in planar from inputRate to
// targetRate if they differ by more than 0.1%, per spec §4.3 step 3.
// Output frame count is round(inputFrames * targetRate/inputRate).
func resampleIfNeeded(planar [][]float32, inputRate, targetRate float64) [][]float32 {
	if inputRate <= 0 || targetRate <= 0 {
		return planar
	}
	ratio := targetRate / inputRate
	if math.Abs(ratio-1) <= 1e-3 {
		return planar
	}

	cutoff := math.Min(1/ratio, 1)
	kernel := buildKaiserSincKernel(cutoff)

	out := make([][]float32, len(planar))
	for ch, samples := range planar {
		out[ch] = resampleChannel(samples, ratio, kernel)
	}
	return out
}

// buildKaiserSincKernel returns a windowed-sinc filter kernel sampled at
// a fixed oversampling factor, centered at index len(kernel)/2, with a
// -3dB point at cutoff*Nyquist (cutoff in (0,1]).
func buildKaiserSincKernel(cutoff float64) []float64 {
	const oversample = 32
	n := resampleHalfTaps*2*oversample + 1
	kernel := make([]float64, n)
	center := n / 2
	for i := range kernel {
		x := float64(i-center) / oversample
		kernel[i] = sincLowpass(x, cutoff) * kaiserWindow(float64(i-center)/float64(center), resampleBeta)
	}
	return kernel
}

func sincLowpass(x, cutoff float64) float64 {
	if x == 0 {
		return cutoff
	}
	arg := math.Pi * x * cutoff
	return cutoff * math.Sin(arg) / arg
}

func kaiserWindow(t, beta float64) float64 {
	// t in [-1, 1]
	if t < -1 || t > 1 {
		return 0
	}
	return besselI0(beta*math.Sqrt(1-t*t)) / besselI0(beta)
}

// besselI0 approximates the zero-order modified Bessel function via its
// series expansion, sufficient precision for window-function use.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	halfX := x / 2
	for k := 1; k < 25; k++ {
		term *= (halfX * halfX) / float64(k*k)
		sum += term
	}
	return sum
}

// resampleChannel evaluates the kernel at each output sample's
// fractional input position using linear interpolation into the
// oversampled kernel table (a standard polyphase-resampler shortcut).
func resampleChannel(samples []float32, ratio float64, kernel []float64) []float32 {
	inputFrames := len(samples)
	if inputFrames == 0 {
		return nil
	}
	outputFrames := int(math.Round(float64(inputFrames) * ratio))
	if outputFrames <= 0 {
		return nil
	}
	out := make([]float32, outputFrames)

	const oversample = 32
	kernelCenter := len(kernel) / 2
	kernelHalfSpan := resampleHalfTaps // in input samples

	for o := 0; o < outputFrames; o++ {
		srcPos := float64(o) / ratio
		srcIndex := int(math.Floor(srcPos))
		frac := srcPos - float64(srcIndex)

		var acc float64
		for tap := -kernelHalfSpan; tap <= kernelHalfSpan; tap++ {
			srcI := srcIndex + tap
			if srcI < 0 || srcI >= inputFrames {
				continue
			}
			// Position within the kernel for this tap, accounting for
			// the fractional offset between srcPos and srcIndex.
			kernelPos := kernelCenter + int(math.Round((float64(tap)-frac)*oversample))
			if kernelPos < 0 || kernelPos >= len(kernel) {
				continue
			}
			acc += float64(samples[srcI]) * kernel[kernelPos]
		}
		out[o] = float32(acc)
	}
	return out
}
