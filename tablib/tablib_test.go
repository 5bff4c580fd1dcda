package tablib

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goLexicon/goCorpusFreqLib"
	"goLexicon/lemmalib"
	"goLexicon/scraperlib"
)

func walkSenses() []scraperlib.Sense {
	return []scraperlib.Sense{
		{POS: "verb", Definition: "to go on foot."},
		{POS: "verb", Definition: "to stroll."},
		{POS: "noun", Definition: "an act of walking."},
		{POS: "Idioms", Definition: "walk the plank."},
	}
}

func testDictionary() scraperlib.Dictionary {
	return scraperlib.Dictionary{
		"walk":   walkSenses(),
		"walked": walkSenses(),
		"walking": {
			{POS: "noun", Definition: "the act of walking."},
			{POS: "adjective", Definition: "used for walking."},
		},
		"cat":  {{POS: "noun", Definition: "a small feline."}},
		"cats": {{POS: "noun", Definition: "a small feline."}},
		"abbr": {
			{POS: "abbreviation", Definition: "an abbreviation."},
			{POS: "", Definition: ""},
			{POS: "", Definition: "unlabelled."},
		},
		"xyzzy": nil,
		"empty": {},
	}
}

func TestTabularize(t *testing.T) {
	d := testDictionary()
	rows := Tabularize(d, NewLemmatizer(d, nil), 0)

	assert.Equal(t, []Row{
		{"abbr", "", "", "an abbreviation."},
		{"abbr", "", "", "unlabelled."},
		{"cat", "NOUN", "", "a small feline."},
		{"cats", "NOUN", "NNS", "a small feline."},
		{"walk", "VERB", "", "to go on foot."},
		{"walk", "VERB", "", "to stroll."},
		{"walk", "NOUN", "", "an act of walking."},
		{"walked", "VERB", "VBD", "to go on foot."},
		{"walked", "VERB", "VBD", "to stroll."},
		{"walking", "VERB", "VBG", "to go on foot."},
		{"walking", "VERB", "VBG", "to stroll."},
		{"walking", "NOUN", "", "the act of walking."},
		{"walking", "ADJ", "", "used for walking."},
	}, rows)
}

func TestTabularizeMaxDefs(t *testing.T) {
	d := scraperlib.Dictionary{"walk": walkSenses()}
	rows := Tabularize(d, NewLemmatizer(d, nil), 1)

	assert.Equal(t, []Row{
		{"walk", "VERB", "", "to go on foot."},
		{"walk", "NOUN", "", "an act of walking."},
	}, rows)
}

func TestAdjectiveLemmaRows(t *testing.T) {
	d := scraperlib.Dictionary{
		"big":     {{POS: "adjective", Definition: "large."}},
		"biggest": {{POS: "adjective", Definition: "superlative of big."}},
	}
	rows := Tabularize(d, NewLemmatizer(d, nil), 0)

	// "biggest" is indexed as an adjective itself, so it lemmatizes to itself
	assert.Equal(t, []Row{
		{"big", "ADJ", "", "large."},
		{"biggest", "ADJ", "", "superlative of big."},
	}, rows)

	lmt := lemmalib.New()
	lmt.AddBaseForm(lemmalib.Adj, "fast")
	d = scraperlib.Dictionary{
		"fast":    {{POS: "adjective", Definition: "quick."}},
		"fastest": {{POS: "noun", Definition: "a racing term."}},
	}
	rows = Tabularize(d, lmt, 0)
	assert.Contains(t, rows, Row{"fastest", "ADJ", "JJS", "quick."})
	assert.Contains(t, rows, Row{"fastest", "NOUN", "", "a racing term."})
}

func TestInflectionTag(t *testing.T) {
	tests := []struct {
		pos, word, lemma, want string
	}{
		{"VERB", "walking", "walk", "VBG"},
		{"VERB", "making", "make", "VBG"},
		{"VERB", "walks", "walk", "VBZ"},
		{"VERB", "baked", "bake", "VBD"},
		{"VERB", "taken", "take", "VBN"},
		{"VERB", "went", "go", ""},
		{"NOUN", "cats", "cat", "NNS"},
		{"ADJ", "fastest", "fast", "JJS"},
		{"ADJ", "nicer", "nice", "JJR"},
		{"ADV", "quickly", "quick", ""},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, inflectionTag(tt.pos, tt.word, tt.lemma))
		})
	}
}

func TestNewLemmatizerUsesCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.num")
	require.NoError(t, os.WriteFile(path, []byte("500 hop vvi 10\n"), 0644))
	corpus, err := goCorpusFreqLib.Load(path)
	require.NoError(t, err)

	lmt := NewLemmatizer(scraperlib.Dictionary{}, corpus)
	assert.Equal(t, "hop", lmt.Lemma("hops", lemmalib.Verb))
}

func TestTSVRoundTrip(t *testing.T) {
	rows := []Row{
		{"walked", "VERB", "VBD", `to go "on" foot.`},
		{"abbr", "", "", "an abbreviation."},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, rows))
	assert.Equal(t, "walked\tVERB\tVBD\tto go \"on\" foot.\nabbr\tNone\tNone\tan abbreviation.\n", buf.String())

	back, err := ReadTSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, back)

	_, err = ReadTSV(strings.NewReader("walk\tVERB\n"))
	assert.Error(t, err)
}
