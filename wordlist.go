package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goLexicon/goCorpusFreqLib"
	"goLexicon/iolib"
	"goLexicon/stringlib"
	"goLexicon/vsmlib"
)

func (a *app) wordlistCmd() *cobra.Command {
	var gloveFile, corpusFile, outFile, posList string
	var merge []string
	var top int

	cmd := &cobra.Command{
		Use:   "wordlist",
		Short: "Build the word list to scrape from a GloVe vocabulary or the BNC frequency list",
		Long: `Wordlist writes a JSON array of alphabetic words. With --glove the words are
taken in file order from a GloVe vector file; otherwise they come from the BNC
frequency list (corpus.file), most frequent first, optionally restricted to the
universal POS tags given with --pos. --merge folds further frequency lists in the
same format into it, scaled so that both agree on the count of "the".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if corpusFile == "" {
				corpusFile = a.cfg.CorpusFile
			}
			var words []string
			var err error
			if gloveFile != "" {
				words, err = gloveWords(gloveFile, top)
			} else {
				words, err = corpusWords(corpusFile, merge, top, splitTags(posList))
			}
			if err != nil {
				return err
			}
			if err := iolib.WriteJSON(outFile, words); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d words written to %s\n", len(words), outFile)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&gloveFile, "glove", "", "GloVe vector file to take the vocabulary from")
	f.StringVar(&corpusFile, "corpus", "", "BNC frequency list (default corpus.file)")
	f.StringVarP(&outFile, "out", "o", "words.json", "output word list")
	f.StringVar(&posList, "pos", "", "comma separated universal POS tags to keep, e.g. NOUN,VERB")
	f.StringSliceVar(&merge, "merge", nil, "extra frequency lists merged into the corpus")
	f.IntVar(&top, "top", 0, "keep at most this many words (0 = all)")
	return cmd
}

func splitTags(list string) map[string]bool {
	tags := make(map[string]bool)
	for _, t := range strings.Split(list, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tags[t] = true
		}
	}
	return tags
}

func gloveWords(path string, top int) ([]string, error) {
	m, _, err := vsmlib.LoadGloVe(path)
	if err != nil {
		return nil, err
	}
	var words []string
	for _, w := range m.Words() {
		if !stringlib.IsAlpha(w) {
			continue
		}
		words = append(words, w)
		if top > 0 && len(words) == top {
			break
		}
	}
	return words, nil
}

func corpusWords(path string, merge []string, top int, tags map[string]bool) ([]string, error) {
	corpus, err := goCorpusFreqLib.Load(path)
	if err != nil {
		return nil, err
	}
	for _, m := range merge {
		extra, err := goCorpusFreqLib.Load(m)
		if err != nil {
			return nil, err
		}
		if err := corpus.Merge(extra); err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
	}
	return corpus.Top(top, func(word string, wi goCorpusFreqLib.WordInfo) bool {
		if !stringlib.IsAlpha(word) {
			return false
		}
		return len(tags) == 0 || tags[goCorpusFreqLib.UniversalPOS(wi.POStagging)]
	}), nil
}
