// Package tablib turns a scraped dictionary into a word / POS / tag / definition table.
//
// Every definition row carries the universal POS of its dictionary section and, for
// inflected headwords, a Penn-style inflection tag (VBG, VBZ, VBD, VBN, NNS, JJS, JJR)
// derived from the suffix the word adds to its lemma.
package tablib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"goLexicon/goCorpusFreqLib"
	"goLexicon/lemmalib"
	"goLexicon/scraperlib"
	"goLexicon/stringlib"
)

// None is written for a missing POS or tag
const None = "None"

// POSMap maps lowercased dictionary section labels to universal POS tags
var POSMap = map[string]string{
	"adjective":    "ADJ",
	"adverb":       "ADV",
	"auxiliary":    "AUX",
	"conjunction":  "CONJ",
	"definite":     "DET",
	"indefinite":   "DET",
	"interjection": "INTJ",
	"noun":         "NOUN",
	"plural":       "NOUN",
	"preposition":  "ADP",
	"pronoun":      "PRON",
	"pronoun;":     "PRON",
	"verb":         "VERB",
}

// Row is one line of the table; empty POS or Tag stand for None
type Row struct {
	Word       string
	POS        string
	Tag        string
	Definition string
}

// mapPOS returns the universal tag of a label and whether the sense is kept
func mapPOS(label string) (string, bool) {
	label = strings.ToLower(label)
	if label == "idioms" {
		return "", false
	}
	return POSMap[label], true
}

// NewLemmatizer indexes every headword with definitions under the POS of its senses,
// plus the content words of corpus when given
func NewLemmatizer(d scraperlib.Dictionary, corpus *goCorpusFreqLib.Corpus) *lemmalib.Lemmatizer {
	lmt := lemmalib.New()
	for word, senses := range d {
		for _, s := range senses {
			if pos, ok := mapPOS(s.POS); ok && pos != "" {
				lmt.AddBaseForm(pos, word)
			}
		}
	}
	if corpus != nil {
		for _, w := range corpus.Top(0, nil) {
			wi, _ := corpus.Info(w)
			if pos := goCorpusFreqLib.UniversalPOS(wi.POStagging); pos != "" {
				lmt.AddBaseForm(pos, w)
			}
		}
	}
	return lmt
}

// inflectionTag names the inflection word carries relative to lemma for pos
func inflectionTag(pos, word, lemma string) string {
	suffix := word[len(stringlib.CommonPrefix(lemma, word)):]
	switch pos {
	case lemmalib.Verb:
		switch {
		case strings.HasSuffix(suffix, "ing"):
			return "VBG"
		case strings.HasSuffix(suffix, "s"):
			return "VBZ"
		case strings.HasSuffix(suffix, "d"):
			return "VBD"
		case strings.HasSuffix(suffix, "n"):
			return "VBN"
		}
	case lemmalib.Noun:
		return "NNS"
	case lemmalib.Adj:
		switch {
		case strings.HasSuffix(suffix, "t"):
			return "JJS"
		case strings.HasSuffix(suffix, "r"):
			return "JJR"
		}
	}
	return ""
}

type posGroup struct {
	pos  string
	defs []string
}

// groupByPOS keeps the sections' order of first appearance
func groupByPOS(senses []scraperlib.Sense) []posGroup {
	var groups []posGroup
	at := make(map[string]int)
	for _, s := range senses {
		pos, ok := mapPOS(s.POS)
		if !ok {
			continue
		}
		i, seen := at[pos]
		if !seen {
			i = len(groups)
			at[pos] = i
			groups = append(groups, posGroup{pos: pos})
		}
		groups[i].defs = append(groups[i].defs, s.Definition)
	}
	return groups
}

// Tabularize builds the table for every word of d in sorted order. maxDefs caps the
// definitions kept per POS of a word's own entry; 0 keeps them all.
func Tabularize(d scraperlib.Dictionary, lmt *lemmalib.Lemmatizer, maxDefs int) []Row {
	var rows []Row
	for _, word := range d.Words() {
		if len(d[word]) == 0 {
			continue
		}
		rows = append(rows, lemmaRows(d, lmt, word)...)
		rows = append(rows, ownRows(d, lmt, word, maxDefs)...)
	}
	return rows
}

// lemmaRows borrows the verb and adjective definitions of a word's lemma when the word
// has its own, different entry
func lemmaRows(d scraperlib.Dictionary, lmt *lemmalib.Lemmatizer, word string) []Row {
	var rows []Row
	for _, p := range []string{lemmalib.Verb, lemmalib.Adj} {
		lemma := lmt.Lemma(word, p)
		if lemma == word || d.SameEntry(lemma, word) {
			continue
		}
		tag := inflectionTag(p, word, lemma)
		for _, s := range d[lemma] {
			pos, ok := mapPOS(s.POS)
			if !ok || s.Definition == "" || pos != p {
				continue
			}
			rows = append(rows, Row{Word: word, POS: pos, Tag: tag, Definition: s.Definition})
		}
	}
	return rows
}

// ownRows writes a word's own definitions. When the word's entry is its lemma's entry
// (the dictionary redirected an inflected form), only the POS it inflects is kept.
func ownRows(d scraperlib.Dictionary, lmt *lemmalib.Lemmatizer, word string, maxDefs int) []Row {
	redirects := make(map[string]string)
	for _, p := range []string{lemmalib.Verb, lemmalib.Noun, lemmalib.Adj} {
		lemma := lmt.Lemma(word, p)
		if lemma != word && d.SameEntry(lemma, word) {
			redirects[p] = lemma
		}
	}

	var rows []Row
	for _, g := range groupByPOS(d[word]) {
		defs := g.defs
		if maxDefs > 0 && len(defs) > maxDefs {
			defs = defs[:maxDefs]
		}

		tag := ""
		if lemma, ok := redirects[g.pos]; ok {
			tag = inflectionTag(g.pos, word, lemma)
		} else if len(redirects) > 0 {
			continue
		}

		for _, def := range defs {
			if def == "" {
				continue
			}
			rows = append(rows, Row{Word: word, POS: g.pos, Tag: tag, Definition: def})
		}
	}
	return rows
}

func orNone(s string) string {
	if s == "" {
		return None
	}
	return s
}

// WriteTSV writes rows as "word\tPOS\tTAG\tdefinition" lines
func WriteTSV(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s\n", r.Word, orNone(r.POS), orNone(r.Tag), r.Definition); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTSV reads a table written by WriteTSV
func ReadTSV(r io.Reader) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	numLine := 0
	for scanner.Scan() {
		numLine++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		f := strings.SplitN(line, "\t", 4)
		if len(f) != 4 {
			return nil, fmt.Errorf("line %d: want 4 tab separated fields, got %d", numLine, len(f))
		}
		row := Row{Word: f[0], POS: f[1], Tag: f[2], Definition: f[3]}
		if row.POS == None {
			row.POS = ""
		}
		if row.Tag == None {
			row.Tag = ""
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadTSV reads a table file
func LoadTSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
