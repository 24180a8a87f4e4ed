package abtest

import "math"

// zCriticalTwoSided95 is the two-sided 95% critical value, the
// significance threshold spec §4.9 asks for ("a standardized score and a
// significance flag"). No statistics library appears anywhere in the
// retrieved corpus, so this is a justified stdlib-math implementation
// (DESIGN.md).
const zCriticalTwoSided95 = 1.96

// twoProportionZTest compares two success rates (control vs. challenger)
// via a pooled two-proportion z-test. Returns the z statistic and whether
// |z| exceeds the 95% two-sided critical value.
func twoProportionZTest(controlSuccess, controlN, challengerSuccess, challengerN int) (z float64, significant bool) {
	if controlN == 0 || challengerN == 0 {
		return 0, false
	}
	p1 := float64(controlSuccess) / float64(controlN)
	p2 := float64(challengerSuccess) / float64(challengerN)
	pooled := float64(controlSuccess+challengerSuccess) / float64(controlN+challengerN)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(controlN) + 1/float64(challengerN)))
	if se == 0 {
		return 0, false
	}
	z = (p2 - p1) / se
	return z, math.Abs(z) >= zCriticalTwoSided95
}

// welchTTest compares two sample means (latency or satisfaction) via
// Welch's t-test, approximating the critical value with the normal z
// threshold once either sample is reasonably large — adequate for the
// A/B sample sizes this system expects (min_sample is typically >= 30).
func welchTTest(controlMean, controlVar float64, controlN int, challengerMean, challengerVar float64, challengerN int) (t float64, significant bool) {
	if controlN < 2 || challengerN < 2 {
		return 0, false
	}
	se := math.Sqrt(controlVar/float64(controlN) + challengerVar/float64(challengerN))
	if se == 0 {
		return 0, false
	}
	t = (challengerMean - controlMean) / se
	return t, math.Abs(t) >= zCriticalTwoSided95
}

// mean returns the arithmetic mean of xs, or 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleVariance returns the unbiased (n-1) sample variance of xs.
func sampleVariance(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return sumSq / float64(len(xs)-1)
}
