// From British National Corpus
// https://www.wordfrequency.info/100k_compare.asp
// unlemmatized frequencies, all.num format: "freq word pos numDocs"
// http://www.kilgarriff.co.uk/BNClists/all.num.gz

// Package goCorpusFreqLib loads corpus frequency lists used to build scraper word lists
// and to extend the lemmatizer index
package goCorpusFreqLib

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// WordInfo is one line of the frequency list. A word listed under several tags keeps
// its first (most frequent) line.
type WordInfo struct {
	NumTotal   int // repeated times appearing on the whole corpus
	POStagging string
	NumDocs    int // number of documents the word was found on
}

// Corpus maps words to their frequency information
type Corpus struct {
	words map[string]WordInfo
	order []string // by descending frequency, as listed in the file
}

// Load reads a frequency list; malformed lines are an error naming the line
func Load(filename string) (*Corpus, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("corpus data not found on %s (download http://www.kilgarriff.co.uk/BNClists/all.num.gz and gunzip it): %w", filename, err)
	}
	defer file.Close()

	c := &Corpus{words: make(map[string]WordInfo)}

	numLine := 0
	var word, POStagging string
	var numTotal, numDocs int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		numLine++
		l := strings.TrimSpace(scanner.Text())
		if l == "" {
			continue
		}

		if _, err := fmt.Sscanf(l, "%d %s %s %d", &numTotal, &word, &POStagging, &numDocs); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, numLine, err)
		}

		if _, ok := c.words[word]; !ok {
			c.words[word] = WordInfo{numTotal, POStagging, numDocs}
			c.order = append(c.order, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	c.sortOrder()
	return c, nil
}

func (c *Corpus) sortOrder() {
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.words[c.order[i]].NumTotal > c.words[c.order[j]].NumTotal
	})
}

// Merge folds other into c. Both corpora have the word "the" in common, which is
// used to normalize other's counts to c's scale.
func (c *Corpus) Merge(other *Corpus) error {
	the, otherThe := c.words["the"].NumTotal, other.words["the"].NumTotal
	if the == 0 || otherThe == 0 {
		return fmt.Errorf("merge: stopword \"the\" not found in both corpora")
	}
	factor := float64(the) / float64(otherThe)

	for _, token := range other.order {
		item := other.words[token]
		cur, ok := c.words[token]
		if !ok {
			c.order = append(c.order, token)
			cur.POStagging = item.POStagging
		}
		cur.NumTotal += int(factor * float64(item.NumTotal))
		c.words[token] = cur
	}
	c.sortOrder()
	return nil
}

// Info returns the frequency information of token
func (c *Corpus) Info(token string) (WordInfo, bool) {
	wi, ok := c.words[token]
	return wi, ok
}

// Len is the number of distinct words
func (c *Corpus) Len() int {
	return len(c.order)
}

// Top returns up to n words by descending frequency that satisfy keep (nil keeps all);
// n <= 0 means no limit
func (c *Corpus) Top(n int, keep func(word string, wi WordInfo) bool) []string {
	var out []string
	for _, w := range c.order {
		if keep != nil && !keep(w, c.words[w]) {
			continue
		}
		out = append(out, w)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// UniversalPOS maps a BNC CLAWS tag (nn1, vvd, aj0, av0, ...) to a universal tag,
// "" when it has no content-word counterpart
func UniversalPOS(tag string) string {
	tag = strings.ToLower(tag)
	switch {
	case strings.HasPrefix(tag, "nn"), strings.HasPrefix(tag, "np"):
		return "NOUN"
	case strings.HasPrefix(tag, "vv"), strings.HasPrefix(tag, "vb"), strings.HasPrefix(tag, "vd"), strings.HasPrefix(tag, "vh"), strings.HasPrefix(tag, "vm"):
		return "VERB"
	case strings.HasPrefix(tag, "aj"):
		return "ADJ"
	case strings.HasPrefix(tag, "av"):
		return "ADV"
	default:
		return ""
	}
}
