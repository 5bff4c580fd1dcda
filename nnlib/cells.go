package nnlib

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Cell kinds
const (
	LSTM = "lstm"
	GRU  = "gru"
	RNN  = "rnn"
)

// Cell advances a recurrent state by one time step. x is B x input, h and c are
// B x hidden; c is nil for cells without a cell state.
type Cell interface {
	Step(x, h, c *mat.Dense) (*mat.Dense, *mat.Dense)
	Sizes() (input, hidden int)
	HasCellState() bool
	params(prefix, suffix string, p map[string]*mat.Dense)
}

// NewCell builds a cell of the given kind with weights drawn from U(-1/√hidden, 1/√hidden)
func NewCell(kind string, input, hidden int, rng *rand.Rand) (Cell, error) {
	switch kind {
	case LSTM:
		return &LSTMCell{newGateWeights(4, input, hidden, rng)}, nil
	case GRU:
		return &GRUCell{newGateWeights(3, input, hidden, rng)}, nil
	case RNN:
		return &TanhCell{newGateWeights(1, input, hidden, rng)}, nil
	}
	return nil, fmt.Errorf("unknown rnn cell %q", kind)
}

// gateWeights stacks the weights of every gate row-wise (LSTM: i, f, g, o; GRU: r, z, n)
type gateWeights struct {
	WIH *mat.Dense // gates*hidden x input
	WHH *mat.Dense // gates*hidden x hidden
	BIH []float64
	BHH []float64
}

func newGateWeights(gates, input, hidden int, rng *rand.Rand) gateWeights {
	bound := 1 / math.Sqrt(float64(hidden))
	n := gates * hidden
	return gateWeights{
		WIH: mat.NewDense(n, input, uniform(n*input, bound, rng)),
		WHH: mat.NewDense(n, hidden, uniform(n*hidden, bound, rng)),
		BIH: uniform(n, bound, rng),
		BHH: uniform(n, bound, rng),
	}
}

func (g *gateWeights) Sizes() (input, hidden int) {
	_, input = g.WIH.Dims()
	_, hidden = g.WHH.Dims()
	return input, hidden
}

// params names the weights weight_ih, weight_hh, bias_ih and bias_hh plus the layer suffix
func (g *gateWeights) params(prefix, suffix string, p map[string]*mat.Dense) {
	p[prefix+"weight_ih"+suffix] = g.WIH
	p[prefix+"weight_hh"+suffix] = g.WHH
	p[prefix+"bias_ih"+suffix] = mat.NewDense(1, len(g.BIH), g.BIH)
	p[prefix+"bias_hh"+suffix] = mat.NewDense(1, len(g.BHH), g.BHH)
}

// project returns the input and hidden projections x W_ihᵀ + b_ih and h W_hhᵀ + b_hh
func (g *gateWeights) project(x, h *mat.Dense) (gx, gh *mat.Dense) {
	return affine(x, g.WIH, g.BIH), affine(h, g.WHH, g.BHH)
}

// LSTMCell: i, f, g, o gates; c' = f*c + i*g; h' = o*tanh(c')
type LSTMCell struct{ gateWeights }

// HasCellState is true for LSTM
func (*LSTMCell) HasCellState() bool { return true }

// Step runs one LSTM step
func (l *LSTMCell) Step(x, h, c *mat.Dense) (*mat.Dense, *mat.Dense) {
	gx, gh := l.project(x, h)
	gx.Add(gx, gh)
	b, hidden := h.Dims()
	nh := mat.NewDense(b, hidden, nil)
	nc := mat.NewDense(b, hidden, nil)
	for r := 0; r < b; r++ {
		g := gx.RawRowView(r)
		cr, hr, ncr := c.RawRowView(r), nh.RawRowView(r), nc.RawRowView(r)
		for j := 0; j < hidden; j++ {
			in := sigmoid(g[j])
			forget := sigmoid(g[hidden+j])
			cand := math.Tanh(g[2*hidden+j])
			out := sigmoid(g[3*hidden+j])
			ncr[j] = forget*cr[j] + in*cand
			hr[j] = out * math.Tanh(ncr[j])
		}
	}
	return nh, nc
}

// GRUCell: r, z, n gates; n = tanh(W_in x + b_in + r*(W_hn h + b_hn)); h' = (1-z)*n + z*h
type GRUCell struct{ gateWeights }

// HasCellState is false for GRU
func (*GRUCell) HasCellState() bool { return false }

// Step runs one GRU step; c is ignored
func (g *GRUCell) Step(x, h, _ *mat.Dense) (*mat.Dense, *mat.Dense) {
	gx, gh := g.project(x, h)
	b, hidden := h.Dims()
	nh := mat.NewDense(b, hidden, nil)
	for r := 0; r < b; r++ {
		ix, hh := gx.RawRowView(r), gh.RawRowView(r)
		hr, nhr := h.RawRowView(r), nh.RawRowView(r)
		for j := 0; j < hidden; j++ {
			reset := sigmoid(ix[j] + hh[j])
			update := sigmoid(ix[hidden+j] + hh[hidden+j])
			n := math.Tanh(ix[2*hidden+j] + reset*hh[2*hidden+j])
			nhr[j] = (1-update)*n + update*hr[j]
		}
	}
	return nh, nil
}

// TanhCell is the Elman cell h' = tanh(W_ih x + b_ih + W_hh h + b_hh)
type TanhCell struct{ gateWeights }

// HasCellState is false for the Elman cell
func (*TanhCell) HasCellState() bool { return false }

// Step runs one Elman step; c is ignored
func (t *TanhCell) Step(x, h, _ *mat.Dense) (*mat.Dense, *mat.Dense) {
	gx, gh := t.project(x, h)
	gx.Add(gx, gh)
	gx.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, gx)
	return gx, nil
}
