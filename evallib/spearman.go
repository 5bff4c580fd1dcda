package evallib

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ranks returns 1-based ranks, tied values sharing the average of their ranks
func ranks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	r := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

// Spearman returns the rank correlation of x and y and its two-sided p-value under a
// Student t distribution with n-2 degrees of freedom. rho is NaN when either input is
// constant.
func Spearman(x, y []float64) (rho, pvalue float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("spearman: %d values against %d", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, 0, ErrTooFewPairs
	}
	rho = stat.Correlation(ranks(x), ranks(y), nil)

	n := float64(len(x))
	switch {
	case math.IsNaN(rho) || n < 3:
		pvalue = math.NaN()
	case math.Abs(rho) >= 1:
		pvalue = 0
	default:
		t := rho * math.Sqrt((n-2)/(1-rho*rho))
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
		pvalue = 2 * (1 - dist.CDF(math.Abs(t)))
	}
	return rho, pvalue, nil
}
