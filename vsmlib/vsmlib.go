// Package vsmlib holds a vector-space model: an ordered table word -> vector, loaded
// from and saved to GloVe text files, with the distance functions used to rank words.
package vsmlib

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"

	"goLexicon/iolib"
)

var (
	// ErrNotInVSM is returned for a word with no vector
	ErrNotInVSM = errors.New("not in this VSM")
	// ErrDimMismatch is returned for a vector of the wrong size
	ErrDimMismatch = errors.New("vector dimension mismatch")
)

// VSM keeps words in insertion order
type VSM struct {
	words []string
	vecs  [][]float64
	index map[string]int
}

// New returns an empty VSM
func New() *VSM {
	return &VSM{index: make(map[string]int)}
}

// Add appends a word; the first vector fixes the dimension. Re-adding a word is an error.
func (m *VSM) Add(word string, vec []float64) error {
	if _, dup := m.index[word]; dup {
		return fmt.Errorf("duplicate word %q", word)
	}
	if len(m.vecs) > 0 && len(vec) != m.Dim() {
		return fmt.Errorf("word %q has %d values, want %d: %w", word, len(vec), m.Dim(), ErrDimMismatch)
	}
	if len(vec) == 0 {
		return fmt.Errorf("word %q has no values: %w", word, ErrDimMismatch)
	}
	m.index[word] = len(m.words)
	m.words = append(m.words, word)
	m.vecs = append(m.vecs, vec)
	return nil
}

// Len is the number of words
func (m *VSM) Len() int { return len(m.words) }

// Dim is the vector size, 0 when empty
func (m *VSM) Dim() int {
	if len(m.vecs) == 0 {
		return 0
	}
	return len(m.vecs[0])
}

// Has tells whether word has a vector
func (m *VSM) Has(word string) bool {
	_, ok := m.index[word]
	return ok
}

// Words returns the vocabulary in insertion order
func (m *VSM) Words() []string {
	return append([]string(nil), m.words...)
}

// Vector returns the vector of word; callers must not modify it
func (m *VSM) Vector(word string) ([]float64, error) {
	i, ok := m.index[word]
	if !ok {
		return nil, fmt.Errorf("%s: %w", word, ErrNotInVSM)
	}
	return m.vecs[i], nil
}

/***************************************************************************************************************
****************************************************************************************************************
* GLOVE FILES **************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// LoadGloVe reads "word v1 ... vd" lines. Lines that are not valid UTF-8, that hold a
// value that is not a float, whose dimension differs from the first line's or that
// repeat a word are skipped and counted.
func LoadGloVe(path string) (*VSM, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	m := New()
	skipped := 0
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !utf8.ValidString(line) {
			skipped++
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			skipped++
			continue
		}
		vec, err := parseVector(fields[1:])
		if err != nil {
			skipped++
			continue
		}
		if err := m.Add(fields[0], vec); err != nil {
			skipped++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("%s: %w", path, err)
	}
	return m, skipped, nil
}

func parseVector(fields []string) ([]float64, error) {
	vec := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		vec[i] = v
	}
	return vec, nil
}

// Save writes the VSM in GloVe text format
func (m *VSM) Save(path string) error {
	var sb strings.Builder
	for i, w := range m.words {
		sb.WriteString(w)
		for _, v := range m.vecs[i] {
			sb.WriteByte(' ')
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		sb.WriteByte('\n')
	}
	return iolib.WriteFileAtomic(path, []byte(sb.String()))
}

/***************************************************************************************************************
****************************************************************************************************************
* DISTANCES ****************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// Distance maps two vectors of the same size to a non-negative number, smaller = closer
type Distance func(u, v []float64) float64

// Cosine is 1 - cos(u, v); a zero vector is at distance 1 from everything
func Cosine(u, v []float64) float64 {
	nu, nv := floats.Norm(u, 2), floats.Norm(v, 2)
	if nu == 0 || nv == 0 {
		return 1
	}
	return 1 - floats.Dot(u, v)/(nu*nv)
}

// Euclidean is the L2 distance
func Euclidean(u, v []float64) float64 {
	return floats.Distance(u, v, 2)
}

// Matching is Σ min(u_i, v_i)
func Matching(u, v []float64) float64 {
	s := 0.0
	for i := range u {
		s += math.Min(u[i], v[i])
	}
	return s
}

// Jaccard is 1 - Σ min(u_i, v_i) / Σ max(u_i, v_i); 1 when the denominator is zero
func Jaccard(u, v []float64) float64 {
	num, den := 0.0, 0.0
	for i := range u {
		num += math.Min(u[i], v[i])
		den += math.Max(u[i], v[i])
	}
	if den == 0 {
		return 1
	}
	return 1 - num/den
}

var distances = map[string]Distance{
	"cosine":    Cosine,
	"euclidean": Euclidean,
	"matching":  Matching,
	"jaccard":   Jaccard,
}

// DistanceByName returns cosine, euclidean, matching or jaccard
func DistanceByName(name string) (Distance, error) {
	d, ok := distances[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown distance %q", name)
	}
	return d, nil
}

/***************************************************************************************************************
****************************************************************************************************************
* RANKING ******************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// Scored is a word and its distance to some target
type Scored struct {
	Word     string
	Distance float64
}

// Rank orders every word but the excluded ones by distance to target, ties in
// vocabulary order
func (m *VSM) Rank(target []float64, dist Distance, exclude ...string) ([]Scored, error) {
	if len(target) != m.Dim() {
		return nil, fmt.Errorf("target has %d values, want %d: %w", len(target), m.Dim(), ErrDimMismatch)
	}
	skip := make(map[string]bool, len(exclude))
	for _, w := range exclude {
		skip[w] = true
	}
	ranked := make([]Scored, 0, len(m.words))
	for i, w := range m.words {
		if skip[w] {
			continue
		}
		ranked = append(ranked, Scored{Word: w, Distance: dist(target, m.vecs[i])})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	return ranked, nil
}

// Neighbors ranks the whole vocabulary, word included, by distance to word
func (m *VSM) Neighbors(word string, dist Distance) ([]Scored, error) {
	vec, err := m.Vector(word)
	if err != nil {
		return nil, err
	}
	return m.Rank(vec, dist)
}
