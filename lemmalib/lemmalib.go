// Package lemmalib maps inflected English word forms to their base forms.
//
// Lemmatize applies suffix rules for nouns, verbs and adjectives and keeps the
// candidates found in an index of known base forms. Irregular forms come from an
// exceptions table. When no candidate is known, the remaining candidates are
// ordered so that those sharing the Porter2 stem of the input come first.
package lemmalib

import (
	"sort"
	"strings"

	snowballeng "github.com/kljensen/snowball/english"

	"goLexicon/stringlib"
)

// Universal POS tags the rules know about
const (
	Noun = "NOUN"
	Verb = "VERB"
	Adj  = "ADJ"
)

type rule struct{ old, new string }

var rules = map[string][]rule{
	Adj:  {{"er", ""}, {"est", ""}, {"er", "e"}, {"est", "e"}},
	Noun: {{"s", ""}, {"ses", "s"}, {"ves", "f"}, {"xes", "x"}, {"zes", "z"}, {"ches", "ch"}, {"shes", "sh"}, {"men", "man"}, {"ies", "y"}},
	Verb: {{"s", ""}, {"ies", "y"}, {"es", "e"}, {"es", ""}, {"ed", "e"}, {"ed", ""}, {"ing", "e"}, {"ing", ""}},
}

// Lemmatizer holds the base-form index and exceptions per POS
type Lemmatizer struct {
	index      map[string]map[string]bool
	exceptions map[string]map[string][]string
}

// New returns a lemmatizer with the built-in irregular forms and an empty index
func New() *Lemmatizer {
	l := &Lemmatizer{
		index:      make(map[string]map[string]bool),
		exceptions: make(map[string]map[string][]string),
	}
	for pos, exc := range defaultExceptions {
		for form, lemma := range exc {
			l.AddException(pos, form, lemma)
		}
	}
	return l
}

// AddBaseForm registers word as a known base form for pos
func (l *Lemmatizer) AddBaseForm(pos, word string) {
	word = strings.ToLower(word)
	if l.index[pos] == nil {
		l.index[pos] = make(map[string]bool)
	}
	l.index[pos][word] = true
}

// AddException maps an irregular form to a lemma for pos
func (l *Lemmatizer) AddException(pos, form, lemma string) {
	if l.exceptions[pos] == nil {
		l.exceptions[pos] = make(map[string][]string)
	}
	for _, have := range l.exceptions[pos][form] {
		if have == lemma {
			return
		}
	}
	l.exceptions[pos][form] = append(l.exceptions[pos][form], lemma)
}

// IsBaseForm tells whether word is indexed for pos
func (l *Lemmatizer) IsBaseForm(word, pos string) bool {
	return l.index[pos][strings.ToLower(word)]
}

// Lemmatize returns the candidate lemmas of word for pos, best first: exceptions, then
// rule outputs that are known base forms. Without either, a word that is itself a base
// form is returned as is; otherwise the unknown rule outputs, then the word. The result
// is never empty; POS without rules yield the lowercased word.
func (l *Lemmatizer) Lemmatize(word, pos string) []string {
	s := strings.ToLower(word)
	forms := append([]string(nil), l.exceptions[pos][s]...)

	var oovForms []string
	for _, r := range rules[pos] {
		if !strings.HasSuffix(s, r.old) {
			continue
		}
		form := s[:len(s)-len(r.old)] + r.new
		switch {
		case form == "":
		case l.index[pos][form] || !stringlib.IsAlpha(form):
			forms = appendUnique(forms, form)
		default:
			oovForms = appendUnique(oovForms, form)
		}
	}

	if len(forms) > 0 {
		return forms
	}
	if l.index[pos][s] {
		return []string{s}
	}
	if len(oovForms) > 0 {
		stem := snowballeng.Stem(s, false)
		score := func(form string) int {
			switch {
			case form == stem:
				return 2
			case snowballeng.Stem(form, false) == stem:
				return 1
			}
			return 0
		}
		sort.SliceStable(oovForms, func(i, j int) bool {
			return score(oovForms[i]) > score(oovForms[j])
		})
		return oovForms
	}
	return []string{s}
}

// Lemma is the best candidate of Lemmatize
func (l *Lemmatizer) Lemma(word, pos string) string {
	return l.Lemmatize(word, pos)[0]
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
