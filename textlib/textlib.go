// Package textlib tokenizes definitions and maps tokens to vocabulary ids
package textlib

import (
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	snowballeng "github.com/kljensen/snowball/english"
)

/***************************************************************************************************************
****************************************************************************************************************
* TOKENIZER ****************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// Options selects the filters applied after tokenization
type Options struct {
	DropStopwords bool
	DropPunct     bool
	Stem          bool
}

var engStopWords = map[string]bool{}

func init() {
	for _, w := range strings.Split(`a|and|be|have|i|in|of|that|the|to|with|from|is|on|up|for|should|even|why|by|during|we|could|but|about|as|or|this|at|not|all|other`+
		`|if|can|how|may|who|an|no|our|what|use|get|will|has|their|was|than|which|these|also|been|when|through|were|under|there|those|out|after|such|any|before`+
		`|here|only|some|its|where|into|like|would|against|between|most|so|over|because|now|while|since|however|non|without|among|both|another|still|just|way|very`+
		`|every|each|his|her|then|much|less|few|same|within|per|whether|it|one|something|someone`, "|") {
		engStopWords[w] = true
	}
}

// IsStopWord tells whether a lowercased token is an English stop word
func IsStopWord(token string) bool {
	return engStopWords[token]
}

// Tokenize splits text into lowercased tokens with prose's tokenizer, then applies opts
func Tokenize(text string, opts Options) []string {
	tokens := proseTokens(text)
	tokens = lowercaseFilter(tokens)
	if opts.DropPunct {
		tokens = punctFilter(tokens)
	}
	if opts.DropStopwords {
		tokens = stopwordFilter(tokens)
	}
	if opts.Stem {
		tokens = stemmerFilter(tokens)
	}
	return tokens
}

func proseTokens(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return splitWords(text)
	}
	toks := doc.Tokens()
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		if tok.Text != "" {
			out = append(out, tok.Text)
		}
	}
	return out
}

// splitWords splits on any character that is not a letter or a number
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func lowercaseFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = strings.ToLower(token)
	}
	return r
}

func punctFilter(tokens []string) []string {
	r := tokens[:0]
	for _, token := range tokens {
		for _, c := range token {
			if unicode.IsLetter(c) || unicode.IsNumber(c) {
				r = append(r, token)
				break
			}
		}
	}
	return r
}

func stopwordFilter(tokens []string) []string {
	r := tokens[:0]
	for _, token := range tokens {
		if !engStopWords[token] {
			r = append(r, token)
		}
	}
	return r
}

func stemmerFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = snowballeng.Stem(token, false)
	}
	return r
}
