package nnlib

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// PadID is the id used past the end of a shorter sequence
const PadID = 0

// EncoderConfig describes an EncoderRNN
type EncoderConfig struct {
	VocabSize int
	// EmbeddingDim defaults to Hidden
	EmbeddingDim    int
	MaxLen          int
	Hidden          int
	Layers          int
	Bidirectional   bool
	Cell            string
	InputDropout    float64
	Dropout         float64
	VariableLengths bool
	TrainEmbedding  bool
}

// Directions is 2 for a bidirectional encoder, else 1
func (c EncoderConfig) Directions() int {
	if c.Bidirectional {
		return 2
	}
	return 1
}

func (c EncoderConfig) embeddingDim() int {
	if c.EmbeddingDim > 0 {
		return c.EmbeddingDim
	}
	return c.Hidden
}

// State holds one B x hidden matrix per layer and direction, indexed layer*dirs + dir.
// C is nil unless the cell is an LSTM.
type State struct {
	H []*mat.Dense
	C []*mat.Dense
}

// EncoderRNN embeds token ids and runs them through a stacked recurrent network
type EncoderRNN struct {
	Config       EncoderConfig
	Embedding    *Embedding
	cells        [][]Cell // [layer][direction]
	inputDropout *Dropout
	dropout      *Dropout
}

// NewEncoderRNN draws the weights from rng. pretrained, when not nil, replaces the
// embedding table and must be VocabSize x EmbeddingDim.
func NewEncoderRNN(cfg EncoderConfig, pretrained mat.Matrix, rng *rand.Rand) (*EncoderRNN, error) {
	if cfg.VocabSize < 1 || cfg.Hidden < 1 || cfg.Layers < 1 || cfg.MaxLen < 1 {
		return nil, fmt.Errorf("encoder: vocab, hidden, layers and max length must be positive")
	}
	e := &EncoderRNN{
		Config:       cfg,
		Embedding:    NewEmbedding(cfg.VocabSize, cfg.embeddingDim(), 1, rng),
		inputDropout: NewDropout(cfg.InputDropout, rng),
		dropout:      NewDropout(cfg.Dropout, rng),
	}
	if pretrained != nil {
		if err := e.Embedding.Load(pretrained); err != nil {
			return nil, fmt.Errorf("encoder embedding: %w", err)
		}
		e.Embedding.Trainable = cfg.TrainEmbedding
	}

	dirs := cfg.Directions()
	input := cfg.embeddingDim()
	e.cells = make([][]Cell, cfg.Layers)
	for l := range e.cells {
		e.cells[l] = make([]Cell, dirs)
		for d := range e.cells[l] {
			cell, err := NewCell(cfg.Cell, input, cfg.Hidden, rng)
			if err != nil {
				return nil, err
			}
			e.cells[l][d] = cell
		}
		input = cfg.Hidden * dirs
	}
	return e, nil
}

// ZeroState returns an all-zero initial state for a batch of b sequences
func (e *EncoderRNN) ZeroState(b int) *State {
	n := e.Config.Layers * e.Config.Directions()
	s := &State{H: make([]*mat.Dense, n)}
	lstm := e.cells[0][0].HasCellState()
	if lstm {
		s.C = make([]*mat.Dense, n)
	}
	for k := 0; k < n; k++ {
		s.H[k] = mat.NewDense(b, e.Config.Hidden, nil)
		if lstm {
			s.C[k] = mat.NewDense(b, e.Config.Hidden, nil)
		}
	}
	return s
}

func (e *EncoderRNN) checkState(s *State, b int) error {
	n := e.Config.Layers * e.Config.Directions()
	if len(s.H) != n {
		return fmt.Errorf("initial state has %d hidden matrices, want %d: %w", len(s.H), n, ErrDimMismatch)
	}
	if e.cells[0][0].HasCellState() && len(s.C) != n {
		return fmt.Errorf("initial state has %d cell matrices, want %d: %w", len(s.C), n, ErrDimMismatch)
	}
	for k, h := range s.H {
		if r, c := h.Dims(); r != b || c != e.Config.Hidden {
			return fmt.Errorf("initial hidden %d is %dx%d, want %dx%d: %w", k, r, c, b, e.Config.Hidden, ErrDimMismatch)
		}
	}
	for k, cs := range s.C {
		if r, c := cs.Dims(); r != b || c != e.Config.Hidden {
			return fmt.Errorf("initial cell %d is %dx%d, want %dx%d: %w", k, r, c, b, e.Config.Hidden, ErrDimMismatch)
		}
	}
	return nil
}

// steps returns the padded length T (capped at MaxLen) and the number of real steps per row
func (e *EncoderRNN) steps(ids [][]int, lengths []int) (int, []int, error) {
	if lengths != nil && len(lengths) != len(ids) {
		return 0, nil, fmt.Errorf("%d lengths for %d sequences: %w", len(lengths), len(ids), ErrDimMismatch)
	}
	t := 0
	for _, seq := range ids {
		if len(seq) > t {
			t = len(seq)
		}
	}
	if t > e.Config.MaxLen {
		t = e.Config.MaxLen
	}
	if t == 0 {
		return 0, nil, ErrEmptyBatch
	}

	lens := make([]int, len(ids))
	for b := range ids {
		lens[b] = t
		if !e.Config.VariableLengths {
			continue
		}
		n := len(ids[b])
		if lengths != nil && lengths[b] < n {
			n = lengths[b]
		}
		if n < lens[b] {
			lens[b] = n
		}
	}
	return t, lens, nil
}

// Forward encodes a batch of id sequences. lengths may be nil, in which case the
// sequence lengths are used. init may be nil for a zero initial state.
//
// It returns one B x hidden*dirs output per time step of the last layer and the final
// state. With variable lengths a sequence stops at its length: its outputs past the
// end are zero and the backward direction starts at its last real token.
func (e *EncoderRNN) Forward(ids [][]int, lengths []int, init *State, training bool) ([]*mat.Dense, *State, error) {
	T, lens, err := e.steps(ids, lengths)
	if err != nil {
		return nil, nil, err
	}
	B := len(ids)
	if init == nil {
		init = e.ZeroState(B)
	} else if err := e.checkState(init, B); err != nil {
		return nil, nil, err
	}

	layerIn := make([]*mat.Dense, T)
	col := make([]int, B)
	for t := 0; t < T; t++ {
		for b, seq := range ids {
			col[b] = PadID
			if t < len(seq) {
				col[b] = seq[t]
			}
		}
		x, err := e.Embedding.Lookup(col)
		if err != nil {
			return nil, nil, fmt.Errorf("step %d: %w", t, err)
		}
		layerIn[t] = e.inputDropout.Forward(x, training)
	}

	dirs := e.Config.Directions()
	final := &State{H: make([]*mat.Dense, len(init.H))}
	if init.C != nil {
		final.C = make([]*mat.Dense, len(init.C))
	}

	for l, layer := range e.cells {
		outs := make([][]*mat.Dense, dirs)
		for d, cell := range layer {
			k := l*dirs + d
			h := init.H[k]
			var c *mat.Dense
			if init.C != nil {
				c = init.C[k]
			}
			outs[d] = make([]*mat.Dense, T)
			for step := 0; step < T; step++ {
				t := step
				if d == 1 {
					t = T - 1 - step
				}
				nh, nc := cell.Step(layerIn[t], h, c)
				out := mat.NewDense(B, e.Config.Hidden, nil)
				for b := 0; b < B; b++ {
					if t < lens[b] {
						out.SetRow(b, nh.RawRowView(b))
						continue
					}
					nh.SetRow(b, h.RawRowView(b))
					if nc != nil {
						nc.SetRow(b, c.RawRowView(b))
					}
				}
				outs[d][t] = out
				h, c = nh, nc
			}
			final.H[k] = h
			if final.C != nil {
				final.C[k] = c
			}
		}

		next := make([]*mat.Dense, T)
		for t := 0; t < T; t++ {
			next[t] = outs[0][t]
			if dirs == 2 {
				next[t] = mat.NewDense(B, 2*e.Config.Hidden, nil)
				next[t].Augment(outs[0][t], outs[1][t])
			}
			if l < len(e.cells)-1 {
				next[t] = e.dropout.Forward(next[t], training)
			}
		}
		layerIn = next
	}
	return layerIn, final, nil
}

func (e *EncoderRNN) params(p map[string]*mat.Dense) {
	p["encoder.embedding.weight"] = e.Embedding.Weight
	for l, layer := range e.cells {
		for d, cell := range layer {
			suffix := fmt.Sprintf("_l%d", l)
			if d == 1 {
				suffix += "_reverse"
			}
			cell.params("encoder.rnn.", suffix, p)
		}
	}
}
