package audio

// smoothstepCurve returns n gains rising from near 0 to near 1 along
// 3t^2 - 2t^3, sampled at bin centres so neither end is exactly 0 or 1.
func smoothstepCurve(n int) []float32 {
	curve := make([]float32, n)
	for i := range curve {
		t := (float64(i) + 0.5) / float64(n)
		curve[i] = float32(t * t * (3 - 2*t))
	}
	return curve
}

// fadeOut ramps samples down to silence using curve in reverse.
func fadeOut(samples []float32, curve []float32) {
	n := min(len(samples), len(curve))
	start := len(samples) - n
	for i := 0; i < n; i++ {
		samples[start+i] *= curve[n-1-i]
	}
}

// fadeIn ramps samples up from silence using curve.
func fadeIn(samples []float32, curve []float32) {
	n := min(len(samples), len(curve))
	for i := 0; i < n; i++ {
		samples[i] *= curve[i]
	}
}
