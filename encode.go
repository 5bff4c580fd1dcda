package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"goLexicon/configlib"
	"goLexicon/iolib"
	"goLexicon/nnlib"
	"goLexicon/tablib"
	"goLexicon/textlib"
	"goLexicon/vsmlib"
)

type encodeOptions struct {
	tableFile string
	outFile   string
	vocabFile string
	gloveFile string
	modelFile string
	minFreq   int
	tokenize  textlib.Options
}

func (a *app) encodeCmd() *cobra.Command {
	var o encodeOptions

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode tabularized definitions into a GloVe-format vector-space model",
		Long: `Encode tokenizes every definition of a tabularized dictionary, runs it through
the definition encoder seeded with the row's POS and inflection tag and writes
the average of each word's definition vectors as "word v1 v2 ..." lines.

--vocab and --model are reused when the files exist and written otherwise.
--glove seeds the token embeddings of the words it knows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			m, err := a.encode(ctx, o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d word vectors of dimension %d written to %s\n", m.Len(), m.Dim(), o.outFile)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.tableFile, "table", "t", "dictionary.tsv", "tabularized dictionary")
	f.StringVarP(&o.outFile, "out", "o", "vsm.txt", "output vector-space model")
	f.StringVar(&o.vocabFile, "vocab", "", "token vocabulary, one token per line")
	f.StringVar(&o.gloveFile, "glove", "", "GloVe vectors seeding the token embeddings")
	f.StringVar(&o.modelFile, "model", "", "encoder weights (gob)")
	f.IntVar(&o.minFreq, "min-freq", 1, "drop tokens seen fewer times from a new vocabulary")
	f.BoolVar(&o.tokenize.DropStopwords, "stopwords", false, "drop English stop words")
	f.BoolVar(&o.tokenize.DropPunct, "no-punct", false, "drop punctuation tokens")
	f.BoolVar(&o.tokenize.Stem, "stem", false, "stem tokens")
	f.Int("hidden", 128, "encoder hidden size")
	f.String("cell", "lstm", "recurrent cell (lstm, gru, rnn)")
	f.Int("batch-size", 64, "definitions per forward pass")
	a.bind(cmd, "encoder.hidden", "hidden")
	a.bind(cmd, "encoder.cell", "cell")
	a.bind(cmd, "encoder.batchSize", "batch-size")
	return cmd
}

func (a *app) encode(ctx context.Context, o encodeOptions) (*vsmlib.VSM, error) {
	rows, err := tablib.LoadTSV(o.tableFile)
	if err != nil {
		return nil, err
	}
	tokens := make([][]string, len(rows))
	for i, r := range rows {
		tokens[i] = textlib.Tokenize(r.Definition, o.tokenize)
	}

	vocab, err := loadOrBuildVocab(o.vocabFile, tokens, o.minFreq)
	if err != nil {
		return nil, err
	}

	var glove *vsmlib.VSM
	if o.gloveFile != "" {
		var skipped int
		if glove, skipped, err = vsmlib.LoadGloVe(o.gloveFile); err != nil {
			return nil, err
		}
		a.log.WithFields(logrus.Fields{"words": glove.Len(), "skipped": skipped}).Info("glove loaded")
	}

	enc, err := a.loadOrBuildEncoder(o.modelFile, vocab, glove)
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{"rows": len(rows), "vocab": vocab.Len()}).Info("encoding")
	m, err := encodeRows(ctx, rows, tokens, vocab, enc, a.cfg.Encoder.BatchSize)
	if err != nil {
		return nil, err
	}
	return m, m.Save(o.outFile)
}

func loadOrBuildVocab(path string, tokens [][]string, minFreq int) (*textlib.Vocab, error) {
	if path != "" && iolib.FileExists(path) {
		return textlib.LoadVocab(path)
	}
	vocab := textlib.BuildVocab(tokens, minFreq, 0)
	if path != "" {
		if err := vocab.Save(path); err != nil {
			return nil, err
		}
	}
	return vocab, nil
}

func dictConfig(c configlib.Encoder, vocabSize, embeddingDim int) nnlib.DictConfig {
	return nnlib.DictConfig{
		Encoder: nnlib.EncoderConfig{
			VocabSize:       vocabSize,
			EmbeddingDim:    embeddingDim,
			MaxLen:          c.MaxLen,
			Hidden:          c.Hidden,
			Layers:          c.Layers,
			Bidirectional:   c.Bidirectional,
			Cell:            c.Cell,
			InputDropout:    c.InputDropout,
			Dropout:         c.Dropout,
			VariableLengths: c.VariableLengths,
		},
		POSSize:  len(nnlib.POSLabels),
		TagSize:  len(nnlib.TagLabels),
		LabelStd: c.EmbeddingStd,
		Seed:     c.Seed,
	}
}

func (a *app) loadOrBuildEncoder(path string, vocab *textlib.Vocab, glove *vsmlib.VSM) (*nnlib.DictEncoder, error) {
	if path != "" && iolib.FileExists(path) {
		enc, err := nnlib.LoadDictEncoder(path)
		if err != nil {
			return nil, err
		}
		if n := enc.Config.Encoder.VocabSize; n != vocab.Len() {
			return nil, fmt.Errorf("model %s expects %d tokens, vocabulary has %d", path, n, vocab.Len())
		}
		return enc, nil
	}

	dim := 0
	if glove != nil {
		dim = glove.Dim()
	}
	enc, err := nnlib.NewDictEncoder(dictConfig(a.cfg.Encoder, vocab.Len(), dim), nil)
	if err != nil {
		return nil, err
	}
	if glove != nil {
		hits := 0
		for id, tok := range vocab.Tokens() {
			if vec, err := glove.Vector(tok); err == nil {
				if err := enc.Encoder.Embedding.SetRow(id, vec); err != nil {
					return nil, err
				}
				hits++
			}
		}
		a.log.WithFields(logrus.Fields{"seeded": hits, "vocab": vocab.Len()}).Info("token embeddings seeded from glove")
	}
	if path != "" {
		if err := enc.Save(path); err != nil {
			return nil, err
		}
	}
	return enc, nil
}

func labelID(v *textlib.Vocab, label string) int {
	if label == "" {
		label = nnlib.None
	}
	if id, ok := v.Lookup(label); ok {
		return id
	}
	return 0
}

// encodeRows encodes the rows in batches, concurrently, and averages the vectors of
// each word's rows. Words keep the order of their first row.
func encodeRows(ctx context.Context, rows []tablib.Row, tokens [][]string, vocab *textlib.Vocab, enc *nnlib.DictEncoder, batchSize int) (*vsmlib.VSM, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	posVocab := textlib.NewLabelVocab(nnlib.POSLabels...)
	tagVocab := textlib.NewLabelVocab(nnlib.TagLabels...)

	batches := (len(rows) + batchSize - 1) / batchSize
	outs := make([]*mat.Dense, batches)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for b := 0; b < batches; b++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo := b * batchSize
			hi := min(lo+batchSize, len(rows))
			ids := make([][]int, 0, hi-lo)
			pos := make([]int, 0, hi-lo)
			tags := make([]int, 0, hi-lo)
			for i := lo; i < hi; i++ {
				seq := vocab.Encode(tokens[i])
				if len(seq) == 0 {
					seq = []int{textlib.UnkID}
				}
				ids = append(ids, seq)
				pos = append(pos, labelID(posVocab, rows[i].POS))
				tags = append(tags, labelID(tagVocab, rows[i].Tag))
			}
			out, err := enc.Forward(ids, nil, pos, tags, false)
			if err != nil {
				return fmt.Errorf("rows %d-%d: %w", lo, hi-1, err)
			}
			outs[b] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sums := make(map[string][]float64)
	counts := make(map[string]int)
	var order []string
	for b, out := range outs {
		n, _ := out.Dims()
		for r := 0; r < n; r++ {
			word := rows[b*batchSize+r].Word
			if _, ok := sums[word]; !ok {
				sums[word] = make([]float64, enc.Config.Encoder.Hidden)
				order = append(order, word)
			}
			floats.Add(sums[word], out.RawRowView(r))
			counts[word]++
		}
	}

	m := vsmlib.New()
	for _, w := range order {
		floats.Scale(1/float64(counts[w]), sums[w])
		if err := m.Add(w, sums[w]); err != nil {
			return nil, err
		}
	}
	return m, nil
}
