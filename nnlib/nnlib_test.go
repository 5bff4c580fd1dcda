package nnlib

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func rng() *rand.Rand { return rand.New(rand.NewSource(7)) }

func TestEmbeddingLookup(t *testing.T) {
	e := NewEmbedding(3, 2, 1, rng())
	require.NoError(t, e.SetRow(1, []float64{0.5, -0.5}))

	out, err := e.Lookup([]int{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5, 0.5, -0.5}, out.RawMatrix().Data)

	_, err = e.Lookup([]int{3})
	assert.ErrorIs(t, err, ErrIDOutOfRange)
	assert.ErrorIs(t, e.SetRow(0, []float64{1}), ErrDimMismatch)
	assert.ErrorIs(t, e.Load(mat.NewDense(2, 2, nil)), ErrDimMismatch)
}

func TestLinear(t *testing.T) {
	l := &Linear{W: mat.NewDense(2, 2, []float64{1, 2, 3, 4}), B: []float64{1, -1}}
	y, err := l.Forward(mat.NewDense(1, 2, []float64{1, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6}, y.RawMatrix().Data)

	_, err = l.Forward(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrDimMismatch)

	bound := 1 / math.Sqrt(8)
	l = NewLinear(8, 4, rng())
	for _, v := range l.W.RawMatrix().Data {
		assert.LessOrEqual(t, math.Abs(v), bound)
	}
}

func TestDropout(t *testing.T) {
	x := mat.NewDense(4, 4, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	d := NewDropout(0.5, rng())
	assert.Same(t, x, d.Forward(x, false))

	y := d.Forward(x, true)
	for _, v := range y.RawMatrix().Data {
		assert.Contains(t, []float64{0, 2}, v)
	}
	assert.Equal(t, 1.0, x.At(0, 0))
}

func zeroWeights(g *gateWeights) {
	g.WIH.Zero()
	g.WHH.Zero()
	for i := range g.BIH {
		g.BIH[i], g.BHH[i] = 0, 0
	}
}

func TestCellsWithZeroWeights(t *testing.T) {
	x := mat.NewDense(1, 2, []float64{3, -3})
	h := mat.NewDense(1, 1, []float64{0.8})
	c := mat.NewDense(1, 1, []float64{1})

	lstm, err := NewCell(LSTM, 2, 1, rng())
	require.NoError(t, err)
	zeroWeights(&lstm.(*LSTMCell).gateWeights)
	nh, nc := lstm.Step(x, h, c)
	assert.InDelta(t, 0.5, nc.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5*math.Tanh(0.5), nh.At(0, 0), 1e-12)

	gru, err := NewCell(GRU, 2, 1, rng())
	require.NoError(t, err)
	zeroWeights(&gru.(*GRUCell).gateWeights)
	nh, nc = gru.Step(x, h, nil)
	assert.Nil(t, nc)
	assert.InDelta(t, 0.4, nh.At(0, 0), 1e-12)

	elman, err := NewCell(RNN, 2, 1, rng())
	require.NoError(t, err)
	g := &elman.(*TanhCell).gateWeights
	zeroWeights(g)
	g.BIH[0] = 0.3
	nh, _ = elman.Step(x, h, nil)
	assert.InDelta(t, math.Tanh(0.3), nh.At(0, 0), 1e-12)

	_, err = NewCell("transformer", 2, 1, rng())
	assert.Error(t, err)
}

func testEncoderConfig(cell string) EncoderConfig {
	return EncoderConfig{
		VocabSize:       10,
		MaxLen:          5,
		Hidden:          4,
		Layers:          2,
		Bidirectional:   true,
		Cell:            cell,
		VariableLengths: true,
	}
}

func TestEncoderShapes(t *testing.T) {
	for _, cell := range []string{LSTM, GRU, RNN} {
		t.Run(cell, func(t *testing.T) {
			e, err := NewEncoderRNN(testEncoderConfig(cell), nil, rng())
			require.NoError(t, err)

			outs, final, err := e.Forward([][]int{{1, 2, 3}, {4}, {5, 6}}, nil, nil, false)
			require.NoError(t, err)
			require.Len(t, outs, 3)
			r, c := outs[0].Dims()
			assert.Equal(t, 3, r)
			assert.Equal(t, 8, c)
			assert.Len(t, final.H, 4)
			if cell == LSTM {
				assert.Len(t, final.C, 4)
			} else {
				assert.Nil(t, final.C)
			}

			// padded steps of the short sequence produce zero outputs
			assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 0}, outs[2].RawRowView(1))
		})
	}
}

func TestEncoderVariableLengthsMatchUnpadded(t *testing.T) {
	e, err := NewEncoderRNN(testEncoderConfig(LSTM), nil, rng())
	require.NoError(t, err)

	_, batch, err := e.Forward([][]int{{1, 2, 3}, {4, 5}}, nil, nil, false)
	require.NoError(t, err)
	_, alone, err := e.Forward([][]int{{4, 5}}, nil, nil, false)
	require.NoError(t, err)

	for k := range batch.H {
		assert.True(t, floats.EqualApprox(alone.H[k].RawRowView(0), batch.H[k].RawRowView(1), 1e-12), "hidden %d", k)
		assert.True(t, floats.EqualApprox(alone.C[k].RawRowView(0), batch.C[k].RawRowView(1), 1e-12), "cell %d", k)
	}

	// explicit lengths shorter than the rows
	_, short, err := e.Forward([][]int{{4, 5, 9}}, []int{2}, nil, false)
	require.NoError(t, err)
	assert.True(t, floats.EqualApprox(alone.H[0].RawRowView(0), short.H[0].RawRowView(0), 1e-12))
}

func TestEncoderTruncatesToMaxLen(t *testing.T) {
	cfg := testEncoderConfig(GRU)
	cfg.MaxLen = 2
	e, err := NewEncoderRNN(cfg, nil, rng())
	require.NoError(t, err)

	outs, long, err := e.Forward([][]int{{1, 2, 3, 4}}, nil, nil, false)
	require.NoError(t, err)
	assert.Len(t, outs, 2)
	_, short, err := e.Forward([][]int{{1, 2}}, nil, nil, false)
	require.NoError(t, err)
	for k := range long.H {
		assert.True(t, floats.EqualApprox(long.H[k].RawMatrix().Data, short.H[k].RawMatrix().Data, 1e-12))
	}
}

func TestEncoderErrors(t *testing.T) {
	e, err := NewEncoderRNN(testEncoderConfig(LSTM), nil, rng())
	require.NoError(t, err)

	_, _, err = e.Forward([][]int{{1, 42}}, nil, nil, false)
	assert.ErrorIs(t, err, ErrIDOutOfRange)

	_, _, err = e.Forward([][]int{{}}, nil, nil, false)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, _, err = e.Forward([][]int{{1}}, []int{1, 2}, nil, false)
	assert.ErrorIs(t, err, ErrDimMismatch)

	_, _, err = e.Forward([][]int{{1}}, nil, &State{H: []*mat.Dense{mat.NewDense(1, 4, nil)}}, false)
	assert.ErrorIs(t, err, ErrDimMismatch)

	_, err = NewEncoderRNN(testEncoderConfig(LSTM), mat.NewDense(3, 4, nil), rng())
	assert.ErrorIs(t, err, ErrDimMismatch)
}

func TestEncoderPretrainedEmbedding(t *testing.T) {
	cfg := testEncoderConfig(RNN)
	cfg.EmbeddingDim = 2
	pre := mat.NewDense(10, 2, nil)
	pre.Set(3, 1, 1.5)
	e, err := NewEncoderRNN(cfg, pre, rng())
	require.NoError(t, err)
	assert.Equal(t, 1.5, e.Embedding.Weight.At(3, 1))
	assert.False(t, e.Embedding.Trainable)
}

func testDictConfig(cell string) DictConfig {
	return DictConfig{
		Encoder:  testEncoderConfig(cell),
		POSSize:  len(POSLabels),
		TagSize:  len(TagLabels),
		LabelStd: 0.5,
		Seed:     3,
	}
}

func TestDictEncoder(t *testing.T) {
	d, err := NewDictEncoder(testDictConfig(LSTM), nil)
	require.NoError(t, err)

	ids := [][]int{{1, 2, 3}, {1, 2, 3}, {4}}
	out, err := d.Forward(ids, nil, []int{1, 1, 2}, []int{0, 3, 0}, false)
	require.NoError(t, err)
	r, c := out.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)

	// rows 0 and 1 differ only by their tag, which is added after fusion
	want := make([]float64, 4)
	floats.SubTo(want, d.Tag.Weight.RawRowView(3), d.Tag.Weight.RawRowView(0))
	got := make([]float64, 4)
	floats.SubTo(got, out.RawRowView(1), out.RawRowView(0))
	assert.True(t, floats.EqualApprox(want, got, 1e-12))

	// the POS embedding seeds the encoder state
	other, err := d.Forward(ids[:1], nil, []int{2}, []int{0}, false)
	require.NoError(t, err)
	assert.False(t, floats.EqualApprox(out.RawRowView(0), other.RawRowView(0), 1e-9))

	_, err = d.Forward(ids, nil, []int{1}, []int{0, 0, 0}, false)
	assert.ErrorIs(t, err, ErrDimMismatch)
	_, err = d.Forward(ids[:1], nil, []int{len(POSLabels)}, []int{0}, false)
	assert.ErrorIs(t, err, ErrIDOutOfRange)
}

func TestDictEncoderSeeded(t *testing.T) {
	a, err := NewDictEncoder(testDictConfig(GRU), nil)
	require.NoError(t, err)
	b, err := NewDictEncoder(testDictConfig(GRU), nil)
	require.NoError(t, err)

	pa, pb := a.Params(), b.Params()
	require.Equal(t, len(pa), len(pb))
	for name, m := range pa {
		assert.True(t, mat.Equal(m, pb[name]), name)
	}
	assert.Contains(t, pa, "encoder.rnn.weight_ih_l1_reverse")
	assert.Contains(t, pa, "fuse_hiddens.bias")
}

func TestDictEncoderSaveLoad(t *testing.T) {
	d, err := NewDictEncoder(testDictConfig(LSTM), nil)
	require.NoError(t, err)
	d.Fuse.B[0] = 42

	path := filepath.Join(t.TempDir(), "model", "dict.gob")
	require.NoError(t, d.Save(path))

	back, err := LoadDictEncoder(path)
	require.NoError(t, err)
	assert.Equal(t, 42.0, back.Fuse.B[0])

	ids := [][]int{{1, 2}, {3}}
	want, err := d.Forward(ids, nil, []int{1, 8}, []int{0, 5}, false)
	require.NoError(t, err)
	got, err := back.Forward(ids, nil, []int{1, 8}, []int{0, 5}, false)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))

	_, err = LoadDictEncoder(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}
