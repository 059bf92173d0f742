// Copyright 2025 Sonic Labs
// This file is part of Owl GPU Leakage Analyzer
//
// Owl is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Owl is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Owl. If not, see <http://www.gnu.org/licenses/>.

// Package stats holds the two-sample Kolmogorov-Smirnov primitives shared by
// the control-flow and memory-access tests.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// KSPValue converts a maximum CDF divergence d observed between two samples
// of sizes n and m into the asymptotic KS tail probability
// 2*exp(-2*d^2*n*m/(n+m)). The result is not clamped, KSPValue(0, n, m) is 2.
func KSPValue(d float64, n, m int) float64 {
	fn, fm := float64(n), float64(m)
	return 2 * math.Exp(-2*d*d*(fn*fm)/(fn+fm))
}

// Threshold maps a significance level in [0,1] to the p-value threshold used
// to retain results.
func Threshold(sign float64) float64 {
	return 1 - sign
}

// MaxCDFDistance returns the maximum absolute difference between the
// cumulative distributions of two equally long frequency lists. Each list is
// normalized by its own total; a list summing to zero yields a flat CDF.
func MaxCDFDistance(left, right []float64) float64 {
	if len(left) != len(right) {
		panic("stats: frequency lists of different length")
	}
	if len(left) == 0 {
		return 0
	}
	return floats.Distance(cdf(left), cdf(right), math.Inf(1))
}

func cdf(values []float64) []float64 {
	res := make([]float64, len(values))
	floats.CumSum(res, values)
	if total := res[len(res)-1]; total != 0 {
		floats.Scale(1/total, res)
	}
	return res
}
