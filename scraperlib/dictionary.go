package scraperlib

import (
	"encoding/json"
	"fmt"
	"sort"

	"goLexicon/iolib"
)

// Sense is one scraped definition with the part-of-speech label of its section.
// An empty POS means the section carried no label; it is written as JSON null.
type Sense struct {
	POS        string
	Definition string
}

// MarshalJSON writes a sense as a [pos, definition] pair
func (s Sense) MarshalJSON() ([]byte, error) {
	var pos interface{}
	if s.POS != "" {
		pos = s.POS
	}
	return json.Marshal([]interface{}{pos, s.Definition})
}

// UnmarshalJSON reads a [pos, definition] pair
func (s *Sense) UnmarshalJSON(b []byte) error {
	var pair []*string
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("sense: want [pos, definition], got %d items", len(pair))
	}
	s.POS, s.Definition = "", ""
	if pair[0] != nil {
		s.POS = *pair[0]
	}
	if pair[1] != nil {
		s.Definition = *pair[1]
	}
	return nil
}

// Dictionary maps a word to its senses. A nil entry means the word's page had no
// definition section; an empty non-nil entry means the section held no definitions.
type Dictionary map[string][]Sense

// Words returns the headwords in sorted order
func (d Dictionary) Words() []string {
	words := make([]string, 0, len(d))
	for w := range d {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// SameEntry reports whether a and b hold identical entries, treating a missing
// word like a null entry
func (d Dictionary) SameEntry(a, b string) bool {
	ea, eb := d[a], d[b]
	if (ea == nil) != (eb == nil) {
		return false
	}
	if len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if ea[i] != eb[i] {
			return false
		}
	}
	return true
}

// LoadDictionary reads a dictionary JSON file
func LoadDictionary(path string) (Dictionary, error) {
	d := make(Dictionary)
	if err := iolib.ReadJSON(path, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Save writes the dictionary as JSON, keeping non-ASCII characters verbatim
func (d Dictionary) Save(path string) error {
	return iolib.WriteJSON(path, d)
}
