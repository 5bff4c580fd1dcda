package scraperlib

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"jaytaylor.com/html2text"

	"goLexicon/configlib"
	"goLexicon/stringlib"
)

// ParseDefinitions extracts the senses of a dictionary page. found is false when the
// page has no definition section at all.
func ParseDefinitions(page []byte, sel configlib.Selectors) (senses []Sense, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, false, fmt.Errorf("parse html: %w", err)
	}

	// find section that contains word definitions
	root := doc.Find(sel.Root).First()
	if root.Length() == 0 {
		return nil, false, nil
	}

	senses = []Sense{}
	root.Find(sel.Section).Each(func(_ int, section *goquery.Selection) {
		pos := sectionPOS(section, sel.POS)
		section.Find(sel.Entry).Each(func(_ int, entry *goquery.Selection) {
			senses = append(senses, Sense{POS: pos, Definition: extractDefinition(entry, sel.Example)})
		})
	})

	return senses, true, nil
}

// sectionPOS reads a label like "verb (used with object)," as "verb"
func sectionPOS(section *goquery.Selection, posSelector string) string {
	pos := section.Find(posSelector).First()
	if pos.Length() == 0 {
		return ""
	}
	fields := strings.Fields(strings.ReplaceAll(pos.Text(), ",", ""))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func extractDefinition(entry *goquery.Selection, exampleSelector string) string {
	entry = entry.Clone()
	entry.Find("style").Remove()
	entry.Find("a").Each(func(_ int, a *goquery.Selection) {
		a.ReplaceWithSelection(a.Contents())
	})
	if exampleSelector != "" {
		entry.Find(exampleSelector).Remove()
	}

	return stringlib.EndSentence(strings.Join(strippedStrings(entry), " "))
}

// strippedStrings returns every non-blank text node below s, trimmed
func strippedStrings(s *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, stringlib.CollapseSpaces(t))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return out
}

// PlainText renders a page as plain text, cut to about max bytes on a rune boundary
// (max <= 0 keeps everything). It feeds the download log and the "no definition
// section" message.
func PlainText(page []byte, max int) string {
	plain, err := html2text.FromString(string(page), html2text.Options{PrettyTables: false})
	if err != nil {
		return ""
	}
	plain = stringlib.CollapseSpaces(plain)
	if max > 0 && len(plain) > max {
		for max > 0 && !utf8.RuneStart(plain[max]) {
			max--
		}
		plain = plain[:max] + " ..."
	}
	return plain
}
