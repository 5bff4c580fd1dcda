package textlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("To advance on Foot at a moderate speed.", Options{})
	assert.Equal(t, []string{"to", "advance", "on", "foot", "at", "a", "moderate", "speed", "."}, tokens)

	tokens = Tokenize("To advance on Foot at a moderate speed.", Options{DropStopwords: true, DropPunct: true})
	assert.Equal(t, []string{"advance", "foot", "moderate", "speed"}, tokens)

	tokens = Tokenize("walking quickly", Options{Stem: true})
	assert.Equal(t, []string{"walk", "quick"}, tokens)
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"e", "mail", "2020"}, splitWords("e-mail, 2020!"))
}

func TestBuildVocab(t *testing.T) {
	sentences := [][]string{
		{"to", "walk", "."},
		{"to", "run", "."},
		{"to", "stroll"},
	}
	v := BuildVocab(sentences, 2, 0)
	assert.Equal(t, []string{PadToken, UnkToken, "to", "."}, v.Tokens())
	assert.Equal(t, []int{2, UnkID, 3}, v.Encode([]string{"to", "walk", "."}))

	v = BuildVocab(sentences, 1, 4)
	assert.Equal(t, 4, v.Len())
	assert.Equal(t, "to", v.Token(2))
	assert.Equal(t, UnkToken, v.Token(99))
}

func TestLabelVocab(t *testing.T) {
	v := NewLabelVocab("None", "VERB", "NOUN", "VERB")
	assert.Equal(t, 3, v.Len())
	id, ok := v.Lookup("NOUN")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
	_, ok = v.Lookup("ADJ")
	assert.False(t, ok)
}

func TestVocabSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	v := NewVocab("walk", "café")
	require.NoError(t, v.Save(path))

	back, err := LoadVocab(path)
	require.NoError(t, err)
	assert.Equal(t, v.Tokens(), back.Tokens())

	require.NoError(t, os.WriteFile(path, []byte("walk\n"), 0644))
	_, err = LoadVocab(path)
	assert.Error(t, err)
}
