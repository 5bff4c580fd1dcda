package nnlib

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"gonum.org/v1/gonum/mat"

	"goLexicon/iolib"
)

// None is the POS and tag label of rows without one
const None = "None"

// POSLabels is the POS vocabulary, in id order
var POSLabels = []string{None, "ADJ", "ADP", "ADV", "AUX", "CONJ", "DET", "INTJ", "NOUN", "PRON", "VERB"}

// TagLabels is the inflection tag vocabulary, in id order
var TagLabels = []string{None, "VBG", "VBZ", "VBD", "VBN", "NNS", "JJS", "JJR"}

// DictConfig describes a DictEncoder
type DictConfig struct {
	Encoder EncoderConfig
	POSSize int
	TagSize int
	// LabelStd is the standard deviation of the POS and tag embeddings
	LabelStd float64
	Seed     int64
}

// DictEncoder encodes a definition into one vector. The POS embedding of the defined
// word seeds every layer and direction of the encoder; the final hidden states are
// fused by a linear layer and the tag embedding is added.
type DictEncoder struct {
	Config  DictConfig
	Encoder *EncoderRNN
	POS     *Embedding
	Tag     *Embedding
	Fuse    *Linear
}

// NewDictEncoder seeds its random draws with cfg.Seed
func NewDictEncoder(cfg DictConfig, pretrained mat.Matrix) (*DictEncoder, error) {
	if cfg.POSSize < 1 || cfg.TagSize < 1 {
		return nil, fmt.Errorf("dict encoder: pos and tag sizes must be positive")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	enc, err := NewEncoderRNN(cfg.Encoder, pretrained, rng)
	if err != nil {
		return nil, err
	}
	hidden := cfg.Encoder.Hidden
	return &DictEncoder{
		Config:  cfg,
		Encoder: enc,
		POS:     NewEmbedding(cfg.POSSize, hidden, cfg.LabelStd, rng),
		Tag:     NewEmbedding(cfg.TagSize, hidden, cfg.LabelStd, rng),
		Fuse:    NewLinear(hidden*cfg.Encoder.Layers*cfg.Encoder.Directions(), hidden, rng),
	}, nil
}

// Forward returns one B x hidden row per definition. pos and tags hold one id per
// definition.
func (d *DictEncoder) Forward(ids [][]int, lengths []int, pos, tags []int, training bool) (*mat.Dense, error) {
	if len(pos) != len(ids) || len(tags) != len(ids) {
		return nil, fmt.Errorf("%d definitions with %d pos and %d tags: %w", len(ids), len(pos), len(tags), ErrDimMismatch)
	}
	posEmb, err := d.POS.Lookup(pos)
	if err != nil {
		return nil, fmt.Errorf("pos: %w", err)
	}
	tagEmb, err := d.Tag.Lookup(tags)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}

	n := d.Config.Encoder.Layers * d.Config.Encoder.Directions()
	init := &State{H: make([]*mat.Dense, n)}
	if d.Config.Encoder.Cell == LSTM {
		init.C = make([]*mat.Dense, n)
	}
	for k := 0; k < n; k++ {
		init.H[k] = posEmb
		if init.C != nil {
			init.C[k] = posEmb
		}
	}

	_, final, err := d.Encoder.Forward(ids, lengths, init, training)
	if err != nil {
		return nil, err
	}

	// layer-major concatenation of the final hidden states
	B := len(ids)
	hidden := d.Config.Encoder.Hidden
	cat := mat.NewDense(B, hidden*n, nil)
	for k, h := range final.H {
		for b := 0; b < B; b++ {
			copy(cat.RawRowView(b)[k*hidden:(k+1)*hidden], h.RawRowView(b))
		}
	}

	out, err := d.Fuse.Forward(cat)
	if err != nil {
		return nil, err
	}
	out.Add(out, tagEmb)
	return out, nil
}

// Params returns every weight matrix by its state dict name. Bias vectors are 1 x n
// views sharing storage with the layers.
func (d *DictEncoder) Params() map[string]*mat.Dense {
	p := make(map[string]*mat.Dense)
	d.Encoder.params(p)
	p["embed_pos.weight"] = d.POS.Weight
	p["embed_tag.weight"] = d.Tag.Weight
	p["fuse_hiddens.weight"] = d.Fuse.W
	p["fuse_hiddens.bias"] = mat.NewDense(1, len(d.Fuse.B), d.Fuse.B)
	return p
}

/***************************************************************************************************************
****************************************************************************************************************
* PERSISTENCE **************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

type tensor struct {
	Rows, Cols int
	Data       []float64
}

type checkpoint struct {
	Config  DictConfig
	Tensors map[string]tensor
}

// Save writes the configuration and every weight with gob
func (d *DictEncoder) Save(path string) error {
	cp := checkpoint{Config: d.Config, Tensors: make(map[string]tensor)}
	for name, m := range d.Params() {
		r, c := m.Dims()
		cp.Tensors[name] = tensor{Rows: r, Cols: c, Data: mat.DenseCopyOf(m).RawMatrix().Data}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cp); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return iolib.WriteFileAtomic(path, buf.Bytes())
}

// LoadDictEncoder reads a model written by Save
func LoadDictEncoder(path string) (*DictEncoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cp checkpoint
	if err := gob.NewDecoder(f).Decode(&cp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	d, err := NewDictEncoder(cp.Config, nil)
	if err != nil {
		return nil, err
	}

	params := d.Params()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := params[name]
		t, ok := cp.Tensors[name]
		if !ok {
			return nil, fmt.Errorf("%s: missing weight %s", path, name)
		}
		r, c := m.Dims()
		if t.Rows != r || t.Cols != c || len(t.Data) != r*c {
			return nil, fmt.Errorf("%s: weight %s is %dx%d, want %dx%d: %w", path, name, t.Rows, t.Cols, r, c, ErrDimMismatch)
		}
		m.Copy(mat.NewDense(r, c, t.Data))
	}
	return d, nil
}
