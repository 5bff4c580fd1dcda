package textlib

import (
	"fmt"
	"sort"
	"strings"

	"goLexicon/iolib"
)

// Reserved ids
const (
	PadToken = "<pad>"
	UnkToken = "<unk>"
	PadID    = 0
	UnkID    = 1
)

// Vocab maps tokens to dense ids
type Vocab struct {
	itos []string
	stoi map[string]int
}

// NewVocab starts from the reserved tokens followed by extra
func NewVocab(extra ...string) *Vocab {
	v := &Vocab{stoi: make(map[string]int)}
	v.Add(PadToken)
	v.Add(UnkToken)
	for _, t := range extra {
		v.Add(t)
	}
	return v
}

// NewLabelVocab is a closed vocabulary with no reserved tokens, for POS and tag labels
func NewLabelVocab(labels ...string) *Vocab {
	v := &Vocab{stoi: make(map[string]int)}
	for _, t := range labels {
		v.Add(t)
	}
	return v
}

// Add appends token if new and returns its id
func (v *Vocab) Add(token string) int {
	if id, ok := v.stoi[token]; ok {
		return id
	}
	v.stoi[token] = len(v.itos)
	v.itos = append(v.itos, token)
	return len(v.itos) - 1
}

// Len is the number of ids
func (v *Vocab) Len() int { return len(v.itos) }

// ID returns the id of token, UnkID when unknown
func (v *Vocab) ID(token string) int {
	if id, ok := v.stoi[token]; ok {
		return id
	}
	return UnkID
}

// Lookup returns the id of token and whether it is known
func (v *Vocab) Lookup(token string) (int, bool) {
	id, ok := v.stoi[token]
	return id, ok
}

// Token returns the token of id
func (v *Vocab) Token(id int) string {
	if id < 0 || id >= len(v.itos) {
		return UnkToken
	}
	return v.itos[id]
}

// Tokens returns every token in id order
func (v *Vocab) Tokens() []string {
	return append([]string(nil), v.itos...)
}

// Encode maps tokens to ids
func (v *Vocab) Encode(tokens []string) []int {
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		ids[i] = v.ID(t)
	}
	return ids
}

type kv struct {
	Key   string
	Value int
}

// rSortFreq sorts by descending count, ties by token
func rSortFreq(f map[string]int) (ss []kv) {
	for k, v := range f {
		ss = append(ss, kv{k, v})
	}

	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Value == ss[j].Value {
			return ss[i].Key < ss[j].Key
		}
		return ss[i].Value > ss[j].Value
	})

	return
}

// BuildVocab counts tokens over sentences and keeps those seen at least minFreq times,
// most frequent first, up to maxSize ids in total (0 = no limit)
func BuildVocab(sentences [][]string, minFreq, maxSize int) *Vocab {
	freq := make(map[string]int)
	for _, s := range sentences {
		for _, t := range s {
			freq[t]++
		}
	}

	v := NewVocab()
	for _, e := range rSortFreq(freq) {
		if e.Value < minFreq {
			break
		}
		if maxSize > 0 && v.Len() >= maxSize {
			break
		}
		v.Add(e.Key)
	}
	return v
}

// Save writes one token per line in id order
func (v *Vocab) Save(path string) error {
	return iolib.WriteFileAtomic(path, []byte(strings.Join(v.itos, "\n")+"\n"))
}

// LoadVocab reads a vocabulary written by Save
func LoadVocab(path string) (*Vocab, error) {
	lines, err := iolib.ReadLines(path)
	if err != nil {
		return nil, err
	}
	v := &Vocab{stoi: make(map[string]int)}
	for i, l := range lines {
		if l == "" {
			continue
		}
		if _, dup := v.stoi[l]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate token %q", path, i+1, l)
		}
		v.Add(l)
	}
	if v.Token(PadID) != PadToken || v.Token(UnkID) != UnkToken {
		return nil, fmt.Errorf("%s: must start with %s and %s", path, PadToken, UnkToken)
	}
	return v, nil
}
