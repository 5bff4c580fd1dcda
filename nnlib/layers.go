// Package nnlib implements the forward pass of the definition encoder: embeddings,
// linear layers, dropout, LSTM/GRU/tanh recurrent cells, a stacked and optionally
// bidirectional EncoderRNN and the DictEncoder that fuses it with POS and tag
// embeddings. Matrices are gonum float64 dense matrices with one row per batch element.
package nnlib

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrIDOutOfRange is returned when an embedding lookup gets an id outside the table
	ErrIDOutOfRange = errors.New("id out of embedding range")
	// ErrDimMismatch is returned when a matrix or vector has the wrong shape
	ErrDimMismatch = errors.New("dimension mismatch")
	// ErrEmptyBatch is returned when a forward pass gets no tokens at all
	ErrEmptyBatch = errors.New("empty batch")
)

/***************************************************************************************************************
****************************************************************************************************************
* EMBEDDING ****************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// Embedding is a lookup table of one row per id
type Embedding struct {
	Weight *mat.Dense
	// Trainable is false when the rows were frozen from a pretrained table
	Trainable bool
}

// NewEmbedding draws every weight from N(0, std)
func NewEmbedding(num, dim int, std float64, rng *rand.Rand) *Embedding {
	data := make([]float64, num*dim)
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
	return &Embedding{Weight: mat.NewDense(num, dim, data), Trainable: true}
}

// Dims returns the number of ids and the vector size
func (e *Embedding) Dims() (num, dim int) {
	return e.Weight.Dims()
}

// SetRow overwrites the vector of id
func (e *Embedding) SetRow(id int, vec []float64) error {
	num, dim := e.Dims()
	if id < 0 || id >= num {
		return fmt.Errorf("set row %d of %d: %w", id, num, ErrIDOutOfRange)
	}
	if len(vec) != dim {
		return fmt.Errorf("set row %d: vector of %d, want %d: %w", id, len(vec), dim, ErrDimMismatch)
	}
	e.Weight.SetRow(id, vec)
	return nil
}

// Load replaces the whole table with pretrained, which must have the same shape
func (e *Embedding) Load(pretrained mat.Matrix) error {
	r, c := pretrained.Dims()
	num, dim := e.Dims()
	if r != num || c != dim {
		return fmt.Errorf("pretrained %dx%d, want %dx%d: %w", r, c, num, dim, ErrDimMismatch)
	}
	e.Weight.Copy(pretrained)
	return nil
}

// Lookup returns a len(ids) x dim matrix holding the vector of every id
func (e *Embedding) Lookup(ids []int) (*mat.Dense, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}
	num, dim := e.Dims()
	out := mat.NewDense(len(ids), dim, nil)
	for i, id := range ids {
		if id < 0 || id >= num {
			return nil, fmt.Errorf("lookup id %d of %d: %w", id, num, ErrIDOutOfRange)
		}
		out.SetRow(i, e.Weight.RawRowView(id))
	}
	return out, nil
}

/***************************************************************************************************************
****************************************************************************************************************
* LINEAR *******************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// Linear computes y = x Wᵀ + b
type Linear struct {
	W *mat.Dense // out x in
	B []float64
}

// NewLinear draws weights and biases from U(-1/√in, 1/√in)
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	bound := 1 / math.Sqrt(float64(in))
	return &Linear{
		W: mat.NewDense(out, in, uniform(out*in, bound, rng)),
		B: uniform(out, bound, rng),
	}
}

// Forward maps a batch x (B x in) to B x out
func (l *Linear) Forward(x mat.Matrix) (*mat.Dense, error) {
	_, in := l.W.Dims()
	if _, c := x.Dims(); c != in {
		return nil, fmt.Errorf("linear input has %d columns, want %d: %w", c, in, ErrDimMismatch)
	}
	return affine(x, l.W, l.B), nil
}

// affine returns x wᵀ + b with b added to every row
func affine(x mat.Matrix, w *mat.Dense, b []float64) *mat.Dense {
	r, _ := x.Dims()
	o, _ := w.Dims()
	y := mat.NewDense(r, o, nil)
	y.Mul(x, w.T())
	for i := 0; i < r; i++ {
		floats.Add(y.RawRowView(i), b)
	}
	return y
}

func uniform(n int, bound float64, rng *rand.Rand) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
	return data
}

/***************************************************************************************************************
****************************************************************************************************************
* DROPOUT ******************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// Dropout zeroes each element with probability P while training and scales the
// survivors by 1/(1-P). Outside training it is the identity.
type Dropout struct {
	P   float64
	rng *rand.Rand
}

// NewDropout returns a dropout layer drawing from rng
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	return &Dropout{P: p, rng: rng}
}

// Forward applies dropout to x; x itself is never modified
func (d *Dropout) Forward(x *mat.Dense, training bool) *mat.Dense {
	if !training || d.P <= 0 {
		return x
	}
	r, c := x.Dims()
	y := mat.NewDense(r, c, nil)
	if d.P >= 1 {
		return y
	}
	scale := 1 / (1 - d.P)
	y.Apply(func(_, _ int, v float64) float64 {
		if d.rng.Float64() < d.P {
			return 0
		}
		return v * scale
	}, x)
	return y
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
