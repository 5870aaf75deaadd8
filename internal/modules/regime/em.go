package regime

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const log2Pi = 1.8378770664093453 // ln(2π)

// hmmState is the working parameter set mutated during EM.
type hmmState struct {
	k         int
	startProb []float64
	transMat  [][]float64
	means     []float64
	variances []float64
}

// emStats holds the sufficient statistics of one E-step.
type emStats struct {
	logLikelihood float64
	logGamma      [][]float64 // [t][state] log posterior
	xiSum         [][]float64 // [from][to] expected transition counts
}

// initialParams seeds means by k-means and gives every state the overall
// variance. Start and transition probabilities start uniform.
func (m *GaussianHMM) initialParams(x []float64) *hmmState {
	k := m.cfg.States

	variance := m.cfg.MinVariance
	if len(x) > 1 {
		variance += stat.Variance(x, nil)
	}

	p := &hmmState{
		k:         k,
		startProb: make([]float64, k),
		transMat:  make([][]float64, k),
		means:     kMeans1D(x, k, m.cfg.Seed),
		variances: make([]float64, k),
	}
	for i := 0; i < k; i++ {
		p.startProb[i] = 1 / float64(k)
		p.variances[i] = variance
		p.transMat[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			p.transMat[i][j] = 1 / float64(k)
		}
	}
	return p
}

// kMeans1D returns k cluster centres of x using k-means++ seeding and
// Lloyd iterations. Deterministic for a given seed.
func kMeans1D(x []float64, k int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	centres := make([]float64, 0, k)
	centres = append(centres, x[rng.IntN(len(x))])

	dist := make([]float64, len(x))
	for len(centres) < k {
		total := 0.0
		for i, v := range x {
			best := math.Inf(1)
			for _, c := range centres {
				if d := (v - c) * (v - c); d < best {
					best = d
				}
			}
			dist[i] = best
			total += best
		}
		if total == 0 {
			// Fewer distinct values than clusters.
			centres = append(centres, x[rng.IntN(len(x))])
			continue
		}
		target := rng.Float64() * total
		idx := len(x) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centres = append(centres, x[idx])
	}

	sums := make([]float64, k)
	counts := make([]int, k)
	for iter := 0; iter < 100; iter++ {
		for i := range sums {
			sums[i], counts[i] = 0, 0
		}
		for _, v := range x {
			c := nearest(centres, v)
			sums[c] += v
			counts[c]++
		}
		moved := false
		for i := range centres {
			if counts[i] == 0 {
				continue
			}
			next := sums[i] / float64(counts[i])
			if next != centres[i] {
				moved = true
				centres[i] = next
			}
		}
		if !moved {
			break
		}
	}

	sort.Float64s(centres)
	return centres
}

func nearest(centres []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centres {
		if d := math.Abs(v - c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// emissionLogProb returns log N(x_t | mean_k, var_k) for every t and k.
func (p *hmmState) emissionLogProb(x []float64) [][]float64 {
	out := make([][]float64, len(x))
	for t, v := range x {
		row := make([]float64, p.k)
		for i := 0; i < p.k; i++ {
			d := v - p.means[i]
			row[i] = -0.5 * (log2Pi + math.Log(p.variances[i]) + d*d/p.variances[i])
		}
		out[t] = row
	}
	return out
}

func logOf(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log(v)
	}
	return out
}

func (p *hmmState) logTransitions() [][]float64 {
	out := make([][]float64, p.k)
	for i := range p.transMat {
		out[i] = logOf(p.transMat[i])
	}
	return out
}

// forward runs the log-space forward recursion and returns the log alphas
// and the total log-likelihood.
func (p *hmmState) forward(logB [][]float64) ([][]float64, float64) {
	n, k := len(logB), p.k
	logA := p.logTransitions()
	logPi := logOf(p.startProb)

	alpha := make([][]float64, n)
	alpha[0] = make([]float64, k)
	for i := 0; i < k; i++ {
		alpha[0][i] = logPi[i] + logB[0][i]
	}

	work := make([]float64, k)
	for t := 1; t < n; t++ {
		alpha[t] = make([]float64, k)
		for j := 0; j < k; j++ {
			for i := 0; i < k; i++ {
				work[i] = alpha[t-1][i] + logA[i][j]
			}
			alpha[t][j] = floats.LogSumExp(work) + logB[t][j]
		}
	}

	return alpha, floats.LogSumExp(alpha[n-1])
}

// backward runs the log-space backward recursion.
func (p *hmmState) backward(logB [][]float64) [][]float64 {
	n, k := len(logB), p.k
	logA := p.logTransitions()

	beta := make([][]float64, n)
	beta[n-1] = make([]float64, k)

	work := make([]float64, k)
	for t := n - 2; t >= 0; t-- {
		beta[t] = make([]float64, k)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				work[j] = logA[i][j] + logB[t+1][j] + beta[t+1][j]
			}
			beta[t][i] = floats.LogSumExp(work)
		}
	}
	return beta
}

// expectation computes state posteriors and expected transition counts.
func (p *hmmState) expectation(x []float64) emStats {
	n, k := len(x), p.k
	logB := p.emissionLogProb(x)
	alpha, ll := p.forward(logB)
	beta := p.backward(logB)
	logA := p.logTransitions()

	logGamma := make([][]float64, n)
	for t := 0; t < n; t++ {
		logGamma[t] = make([]float64, k)
		for i := 0; i < k; i++ {
			logGamma[t][i] = alpha[t][i] + beta[t][i] - ll
		}
	}

	xiSum := make([][]float64, k)
	for i := range xiSum {
		xiSum[i] = make([]float64, k)
	}
	for t := 0; t < n-1; t++ {
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				xiSum[i][j] += math.Exp(alpha[t][i] + logA[i][j] + logB[t+1][j] + beta[t+1][j] - ll)
			}
		}
	}

	return emStats{logLikelihood: ll, logGamma: logGamma, xiSum: xiSum}
}

// maximization re-estimates parameters from the E-step statistics. States
// that received no posterior mass keep their previous emission parameters,
// and source states with no expected transitions keep their previous row.
func (p *hmmState) maximization(x []float64, s emStats, minVariance float64) {
	k := p.k

	start := make([]float64, k)
	for i := 0; i < k; i++ {
		start[i] = math.Exp(s.logGamma[0][i])
	}
	if total := floats.Sum(start); total > 0 {
		floats.Scale(1/total, start)
		p.startProb = start
	}

	for i := 0; i < k; i++ {
		rowSum := floats.Sum(s.xiSum[i])
		if rowSum <= 0 {
			continue
		}
		row := make([]float64, k)
		floats.ScaleTo(row, 1/rowSum, s.xiSum[i])
		p.transMat[i] = row
	}

	weights := make([]float64, len(x))
	for i := 0; i < k; i++ {
		for t := range x {
			weights[t] = math.Exp(s.logGamma[t][i])
		}
		denom := floats.Sum(weights)
		if denom < 1e-300 {
			continue
		}

		mean := floats.Dot(weights, x) / denom
		ss := 0.0
		for t, v := range x {
			d := v - mean
			ss += weights[t] * d * d
		}

		p.means[i] = mean
		p.variances[i] = math.Max(ss/denom, minVariance)
	}
}

// viterbi returns the maximum a posteriori state path in log space.
// Ties resolve to the lowest state index.
func (p *hmmState) viterbi(x []float64) []int {
	n, k := len(x), p.k
	logB := p.emissionLogProb(x)
	logA := p.logTransitions()
	logPi := logOf(p.startProb)

	delta := make([]float64, k)
	next := make([]float64, k)
	backptr := make([][]int, n)

	for i := 0; i < k; i++ {
		delta[i] = logPi[i] + logB[0][i]
	}

	for t := 1; t < n; t++ {
		backptr[t] = make([]int, k)
		for j := 0; j < k; j++ {
			bestState, bestVal := 0, math.Inf(-1)
			for i := 0; i < k; i++ {
				if val := delta[i] + logA[i][j]; val > bestVal {
					bestState, bestVal = i, val
				}
			}
			backptr[t][j] = bestState
			next[j] = bestVal + logB[t][j]
		}
		delta, next = next, delta
	}

	path := make([]int, n)
	path[n-1] = floats.MaxIdx(delta)
	for t := n - 1; t > 0; t-- {
		path[t-1] = backptr[t][path[t]]
	}
	return path
}
