// Package evallib scores a vector-space model on word-similarity datasets (Spearman rank
// correlation between human scores and vector distances) and on analogy problems
// (mean reciprocal rank and accuracy).
package evallib

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"goLexicon/vsmlib"
)

var (
	// ErrTooFewPairs is returned when fewer than two scored pairs are covered
	ErrTooFewPairs = errors.New("too few word pairs to correlate")
	// ErrNoProblems is returned when no analogy problem is covered by the VSM
	ErrNoProblems = errors.New("no analogy problems covered")
)

// Pair is a scored word pair. Score is the negated human similarity, so that it grows
// with distance like the VSM's distance functions.
type Pair struct {
	W1, W2 string
	Score  float64
}

// Dataset locates one word-similarity benchmark under the wordsim home
type Dataset struct {
	Name   string
	File   string
	Header bool
	Delim  rune
}

// Datasets are the four benchmarks of the full evaluation, in report order
var Datasets = []Dataset{
	{Name: "wordsim353", File: "wordsim353.csv", Header: true, Delim: ','},
	{Name: "mturk287", File: "MTurk-287.csv", Delim: ','},
	{Name: "mturk771", File: "MTURK-771.csv", Delim: ','},
	{Name: "men", File: "MEN_dataset_natural_form_full", Delim: ' '},
}

// Read loads the dataset from home
func (d Dataset) Read(home string) ([]Pair, error) {
	return ReadPairs(filepath.Join(home, d.File), d.Header, d.Delim)
}

// ReadPairs reads "word1<delim>word2<delim>score" rows
func ReadPairs(path string, header bool, delim rune) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.FieldsPerRecord = 3
	r.LazyQuotes = true
	r.TrimLeadingSpace = delim != ' '

	var pairs []Pair
	for first := true; ; first = false {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if first && header {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			line, _ := r.FieldPos(2)
			return nil, fmt.Errorf("%s:%d: score %q: %w", path, line, rec[2], err)
		}
		pairs = append(pairs, Pair{W1: rec[0], W2: rec[1], Score: -score})
	}
	return pairs, nil
}

// SimResult is the outcome of one word-similarity evaluation
type SimResult struct {
	Rho    float64
	PValue float64
	// Covered words have a vector; Total counts every word of the dataset
	Covered int
	Total   int
	// Compared is the number of (word, partner) comparisons correlated
	Compared int
}

type partner struct {
	word  string
	score float64
}

// WordSimilarityEvaluation correlates the dataset scores with the distances between
// the vectors of the pairs whose two words are both in m. Each covered pair counts in
// both directions.
func WordSimilarityEvaluation(pairs []Pair, m *vsmlib.VSM, dist vsmlib.Distance, log logrus.FieldLogger) (SimResult, error) {
	sims := make(map[string][]partner)
	vocab := make(map[string]bool)
	all := make(map[string]bool)
	for _, p := range pairs {
		all[p.W1], all[p.W2] = true, true
		if m.Has(p.W1) && m.Has(p.W2) {
			sims[p.W1] = append(sims[p.W1], partner{p.W2, p.Score})
			sims[p.W2] = append(sims[p.W2], partner{p.W1, p.Score})
			vocab[p.W1], vocab[p.W2] = true, true
		}
	}
	log.Infof("Evaluation vocab: %d of %d", len(vocab), len(all))

	words := make([]string, 0, len(vocab))
	for w := range vocab {
		words = append(words, w)
	}
	sort.Strings(words)

	var scores, dists []float64
	for _, w := range words {
		vec, err := m.Vector(w)
		if err != nil {
			return SimResult{}, err
		}
		for _, p := range sims[w] {
			other, err := m.Vector(p.word)
			if err != nil {
				return SimResult{}, err
			}
			scores = append(scores, p.score)
			dists = append(dists, dist(vec, other))
		}
	}

	res := SimResult{Covered: len(vocab), Total: len(all), Compared: len(scores)}
	rho, pvalue, err := Spearman(scores, dists)
	if err != nil {
		return res, err
	}
	res.Rho, res.PValue = rho, pvalue
	return res, nil
}

// FullWordSimilarityEvaluation runs every dataset of Datasets found under home, prints
// one table row per dataset to out and returns rho per dataset name and their mean.
// A dataset the VSM covers too little of scores NaN and is left out of the mean; the
// mean is NaN when no dataset could be scored.
func FullWordSimilarityEvaluation(home string, m *vsmlib.VSM, dist vsmlib.Distance, log logrus.FieldLogger, out io.Writer) (map[string]float64, float64, error) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"dataset", "coverage", "pairs", "spearman r", "p-value"})

	scores := make(map[string]float64, len(Datasets))
	sum, scored := 0.0, 0
	for _, d := range Datasets {
		pairs, err := d.Read(home)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", d.Name, err)
		}
		dlog := log.WithField("dataset", d.Name)
		res, err := WordSimilarityEvaluation(pairs, m, dist, dlog)
		if errors.Is(err, ErrTooFewPairs) {
			dlog.WithError(err).Warn("dataset not scored")
			scores[d.Name] = math.NaN()
			table.Append([]string{
				d.Name,
				fmt.Sprintf("%d/%d", res.Covered, res.Total),
				strconv.Itoa(res.Compared),
				"n/a",
				"n/a",
			})
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", d.Name, err)
		}
		scores[d.Name] = res.Rho
		sum += res.Rho
		scored++
		table.Append([]string{
			d.Name,
			fmt.Sprintf("%d/%d", res.Covered, res.Total),
			strconv.Itoa(res.Compared),
			fmt.Sprintf("%0.3f", res.Rho),
			fmt.Sprintf("%0.3g", res.PValue),
		})
	}
	mean := math.NaN()
	if scored > 0 {
		mean = sum / float64(scored)
	}
	table.SetFooter([]string{"", "", "", fmt.Sprintf("mean %0.3f", mean), ""})
	table.Render()
	return scores, mean, nil
}
