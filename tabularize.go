package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"goLexicon/goCorpusFreqLib"
	"goLexicon/iolib"
	"goLexicon/scraperlib"
	"goLexicon/tablib"
)

func (a *app) tabularizeCmd() *cobra.Command {
	var dictFile, outFile, corpusFile string

	cmd := &cobra.Command{
		Use:   "tabularize",
		Short: "Flatten a scraped dictionary into word / POS / tag / definition rows",
		Long: `Tabularize writes one tab separated line per definition: the word, the
universal POS of its dictionary section, the inflection tag of the word relative
to its lemma and the definition. Missing fields are written as None. Inflected
forms also receive the verb and adjective definitions of their lemma.

--corpus adds the content words of a BNC frequency list to the lemma index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := scraperlib.LoadDictionary(dictFile)
			if err != nil {
				return err
			}

			var corpus *goCorpusFreqLib.Corpus
			if corpusFile != "" {
				if corpus, err = goCorpusFreqLib.Load(corpusFile); err != nil {
					return err
				}
			}

			rows := tablib.Tabularize(d, tablib.NewLemmatizer(d, corpus), a.cfg.MaxDefs)
			var buf bytes.Buffer
			if err := tablib.WriteTSV(&buf, rows); err != nil {
				return err
			}
			if err := iolib.WriteFileAtomic(outFile, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows for %d words written to %s\n", len(rows), len(d), outFile)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&dictFile, "dict", "d", "dictionary.json", "scraped dictionary")
	f.StringVarP(&outFile, "out", "o", "dictionary.tsv", "output table")
	f.StringVar(&corpusFile, "corpus", "", "BNC frequency list extending the lemma index")
	f.Int("max-defs", 0, "definitions kept per POS of a word's own entry (0 = all)")
	a.bind(cmd, "tabularize.maxDefs", "max-defs")
	return cmd
}
