// Package fair provides the ranking primitives the oracles consume: a
// FA*IR-style fair-ranking test, a randomized fair-ranking generator and a
// protected-preferred pair counter.
package fair

import (
	"fmt"

	"rankfair/domain/ranking"
	"rankfair/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultAlpha is the family-wise significance level of the ranked group test
const DefaultAlpha = 0.05

// bisection steps used to find the adjusted alpha
const alphaSearchSteps = 50

// Tester implements ports.RankFairnessTester. A prefix of length i fails when
// it holds fewer protected items than the alpha-quantile of Binomial(i, p);
// alpha is adjusted so that a truly fair ranking fails any prefix with
// probability at most the configured level.
type Tester struct {
	alpha float64
}

// NewTester creates a tester at significance level alpha (DefaultAlpha when
// alpha is outside (0, 1))
func NewTester(alpha float64) *Tester {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &Tester{alpha: alpha}
}

// FairRankingProbability tests the first k tagged items. The p-value is the
// smallest binomial lower-tail probability over all prefixes, so the ranking
// passes exactly when the p-value reaches the adjusted alpha.
func (t *Tester) FairRankingProbability(k int, p float64, items []ranking.TaggedItem) (ports.RankProbability, error) {
	if k < 1 {
		return ports.RankProbability{}, fmt.Errorf("window size must be positive, got %d", k)
	}
	if k > len(items) {
		return ports.RankProbability{}, fmt.Errorf("window size %d exceeds ranking length %d", k, len(items))
	}
	if !(p > 0 && p < 1) {
		return ports.RankProbability{}, fmt.Errorf("protected proportion must lie in (0, 1), got %v", p)
	}

	prefix := make([]int, k)
	count := 0
	for i := 0; i < k; i++ {
		if items[i].Tag == ranking.TagProtected {
			count++
		}
		prefix[i] = count
	}

	pValue := 1.0
	for i := 1; i <= k; i++ {
		tail := distuv.Binomial{N: float64(i), P: p}.CDF(float64(prefix[i-1]))
		if tail < pValue {
			pValue = tail
		}
	}

	alphaC := t.adjustAlpha(k, p)
	needed := minimumTable(k, p, alphaC)

	result := ports.RankProbability{
		PValue:          pValue,
		Fair:            true,
		AdjustedAlpha:   alphaC,
		ProtectedNeeded: needed,
	}
	for i := 0; i < k; i++ {
		if prefix[i] < needed[i] {
			pos := i + 1
			result.Fair = false
			result.FailPosition = &pos
			break
		}
	}
	return result, nil
}

// adjustAlpha finds the largest per-prefix level whose table rejects a fair
// ranking with probability at most t.alpha.
func (t *Tester) adjustAlpha(k int, p float64) float64 {
	if failProbability(minimumTable(k, p, t.alpha), p) <= t.alpha {
		return t.alpha
	}
	lo, hi := 0.0, t.alpha
	for step := 0; step < alphaSearchSteps; step++ {
		mid := (lo + hi) / 2
		if failProbability(minimumTable(k, p, mid), p) <= t.alpha {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// minimumTable returns, for each prefix length i = 1..k, the smallest c with
// P(Binomial(i, p) <= c) >= alpha. The table never decreases and grows by at
// most one per position, so the search resumes from the previous entry.
func minimumTable(k int, p, alpha float64) []int {
	table := make([]int, k)
	c := 0
	for i := 1; i <= k; i++ {
		bin := distuv.Binomial{N: float64(i), P: p}
		for c < i && bin.CDF(float64(c)) < alpha {
			c++
		}
		table[i-1] = c
	}
	return table
}

// failProbability is the chance that a ranking drawn position by position
// with protected probability p falls below table at some prefix.
func failProbability(table []int, p float64) float64 {
	k := len(table)
	dist := make([]float64, k+1)
	dist[0] = 1
	for i := 1; i <= k; i++ {
		for j := i; j >= 1; j-- {
			dist[j] = dist[j]*(1-p) + dist[j-1]*p
		}
		dist[0] *= 1 - p
		for j := 0; j < table[i-1]; j++ {
			dist[j] = 0
		}
	}
	survive := 0.0
	for _, v := range dist {
		survive += v
	}
	return 1 - survive
}
