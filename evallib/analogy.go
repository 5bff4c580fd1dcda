package evallib

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"goLexicon/iolib"
	"goLexicon/vsmlib"
)

// AnalogyCompletion answers "a is to b as c is to ?" by ranking every word except a, b
// and c by distance to (b - a) + c
func AnalogyCompletion(a, b, c string, m *vsmlib.VSM, dist vsmlib.Distance) ([]vsmlib.Scored, error) {
	vecs := make([][]float64, 3)
	for i, w := range []string{a, b, c} {
		v, err := m.Vector(w)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	target := make([]float64, len(vecs[0]))
	for i := range target {
		target[i] = vecs[1][i] - vecs[0][i] + vecs[2][i]
	}
	return m.Rank(target, dist, a, b, c)
}

// AnalogyResult summarizes an analogy evaluation
type AnalogyResult struct {
	MRR       float64
	Correct   int
	Incorrect int
}

// Problems is the number of problems evaluated
func (r AnalogyResult) Problems() int { return r.Correct + r.Incorrect }

// Accuracy is the share of problems whose top-ranked word is the gold answer
func (r AnalogyResult) Accuracy() float64 {
	if r.Problems() == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Problems())
}

type problem struct{ a, b, c, d string }

type answer struct {
	predicted string
	rank      int
}

// readProblems keeps the "a b c d" lines whose four words are in m; category headers
// (":" lines) and malformed lines are skipped
func readProblems(path string, m *vsmlib.VSM, log logrus.FieldLogger) ([]problem, error) {
	lines, err := iolib.ReadLines(path)
	if err != nil {
		return nil, err
	}
	var probs []problem
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ":") {
			continue
		}
		f := strings.Fields(line)
		if len(f) != 4 {
			if len(f) > 0 {
				log.Debugf("%s:%d: skipping malformed line %q", path, i+1, line)
			}
			continue
		}
		if !m.Has(f[0]) || !m.Has(f[1]) || !m.Has(f[2]) || !m.Has(f[3]) {
			continue
		}
		if f[3] == f[0] || f[3] == f[1] || f[3] == f[2] {
			log.Debugf("%s:%d: gold answer repeats a question word", path, i+1)
			continue
		}
		probs = append(probs, problem{f[0], f[1], f[2], f[3]})
	}
	return probs, nil
}

// AnalogyEvaluation ranks the answers of every covered problem in path and returns the
// mean reciprocal rank of the gold answers and the accuracy counts. Verbose logs one
// line per problem, in file order.
func AnalogyEvaluation(ctx context.Context, m *vsmlib.VSM, path string, dist vsmlib.Distance, log logrus.FieldLogger, verbose bool) (AnalogyResult, error) {
	probs, err := readProblems(path, m, log)
	if err != nil {
		return AnalogyResult{}, err
	}
	if len(probs) == 0 {
		return AnalogyResult{}, fmt.Errorf("%s: %w", path, ErrNoProblems)
	}

	answers := make([]answer, len(probs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range probs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ranking, err := AnalogyCompletion(p.a, p.b, p.c, m, dist)
			if err != nil {
				return err
			}
			answers[i].predicted = ranking[0].Word
			for r, s := range ranking {
				if s.Word == p.d {
					answers[i].rank = r + 1
					break
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AnalogyResult{}, err
	}

	var res AnalogyResult
	for i, p := range probs {
		ans := answers[i]
		if ans.predicted == p.d {
			res.Correct++
		} else {
			res.Incorrect++
		}
		res.MRR += 1 / float64(ans.rank)
		if verbose {
			log.Infof("%s is to %s as %s is to %s (gold: %s at rank %d)", p.a, p.b, p.c, ans.predicted, p.d, ans.rank)
		}
	}
	res.MRR /= float64(len(probs))
	return res, nil
}
