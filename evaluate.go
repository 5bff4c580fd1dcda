package main

import (
	"fmt"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"goLexicon/evallib"
	"goLexicon/iolib"
	"goLexicon/vsmlib"
)

func (a *app) loadVSM(path string) (*vsmlib.VSM, vsmlib.Distance, error) {
	dist, err := vsmlib.DistanceByName(a.cfg.Eval.Distance)
	if err != nil {
		return nil, nil, err
	}
	m, skipped, err := vsmlib.LoadGloVe(path)
	if err != nil {
		return nil, nil, err
	}
	a.log.WithFields(logrus.Fields{"words": m.Len(), "dim": m.Dim(), "skipped": skipped}).Info("vsm loaded")
	return m, dist, nil
}

func (a *app) wordsimCmd() *cobra.Command {
	var vsmFile, dataset string

	cmd := &cobra.Command{
		Use:   "wordsim",
		Short: "Spearman correlation of a VSM with word-similarity benchmarks",
		Long: `Wordsim correlates human similarity judgements with the distances of a VSM.
Without --dataset it runs wordsim353, mturk287, mturk771 and men from
eval.wordsimHome and reports each correlation and their mean.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, dist, err := a.loadVSM(vsmFile)
			if err != nil {
				return err
			}
			home := a.cfg.Eval.WordsimHome
			if dataset == "" {
				_, _, err := evallib.FullWordSimilarityEvaluation(home, m, dist, a.log, cmd.OutOrStdout())
				return err
			}
			for _, d := range evallib.Datasets {
				if d.Name != dataset {
					continue
				}
				pairs, err := d.Read(home)
				if err != nil {
					return err
				}
				res, err := evallib.WordSimilarityEvaluation(pairs, m, dist, a.log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Spearman r: %0.3f (p = %0.3g, %d of %d words)\n",
					d.Name, res.Rho, res.PValue, res.Covered, res.Total)
				return nil
			}
			return fmt.Errorf("unknown dataset %q", dataset)
		},
	}

	f := cmd.Flags()
	f.StringVar(&vsmFile, "vsm", "vsm.txt", "vector-space model in GloVe format")
	f.StringVar(&dataset, "dataset", "", "single dataset (wordsim353, mturk287, mturk771, men)")
	f.String("home", "vsmdata/wordsim", "directory of the datasets")
	f.String("distance", "cosine", "distance (cosine, euclidean, matching, jaccard)")
	a.bind(cmd, "eval.wordsimHome", "home")
	a.bind(cmd, "eval.distance", "distance")
	return cmd
}

func (a *app) analogyCmd() *cobra.Command {
	var vsmFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "analogy [file...]",
		Short: "Mean reciprocal rank and accuracy of a VSM on analogy problems",
		Long: `Analogy completes "a is to b as c is to ?" with the word closest to (b - a) + c
for every "a b c d" line whose four words are in the VSM. Files are looked up in
eval.analogiesHome unless they exist as given; the default is
gram1-adjective-to-adverb.txt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"gram1-adjective-to-adverb.txt"}
			}
			m, dist, err := a.loadVSM(vsmFile)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"file", "problems", "mrr", "accuracy"})
			for _, name := range args {
				path := name
				if !iolib.FileExists(path) {
					path = filepath.Join(a.cfg.Eval.AnalogiesHome, name)
				}
				res, err := evallib.AnalogyEvaluation(cmd.Context(), m, path, dist, a.log, verbose)
				if err != nil {
					return err
				}
				table.Append([]string{
					filepath.Base(path),
					fmt.Sprint(res.Problems()),
					fmt.Sprintf("%0.3f", res.MRR),
					fmt.Sprintf("%d/%d", res.Correct, res.Problems()),
				})
			}
			table.Render()
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&vsmFile, "vsm", "vsm.txt", "vector-space model in GloVe format")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every problem")
	f.String("home", "vsmdata/question-data", "directory of the analogy files")
	f.String("distance", "cosine", "distance (cosine, euclidean, matching, jaccard)")
	a.bind(cmd, "eval.analogiesHome", "home")
	a.bind(cmd, "eval.distance", "distance")
	return cmd
}
