// Package stringlib provides string functions beyond goLang primitives
package stringlib

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

/***************************************************************************************************************
****************************************************************************************************************
* String functions *********************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

var reNewLines = regexp.MustCompile(`(\n+)`)

// RmNewLines removes any newline found on the input string
func RmNewLines(t string) string {
	return reNewLines.ReplaceAllString(t, "")
}

// IsAlpha tells whether every rune of a non-empty input is a letter
func IsAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// CollapseSpaces trims the input and joins its whitespace separated fields with single spaces
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CommonPrefix returns the longest byte prefix shared by a and b
func CommonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	// never cut a multibyte rune in half
	for i > 0 && i < len(a) && !utf8.RuneStart(a[i]) {
		i--
	}
	return a[:i]
}

// EndSentence replaces a trailing punctuation mark by a period, or appends one
func EndSentence(s string) string {
	if s == "" {
		return s
	}
	last, size := utf8.DecodeLastRuneInString(s)
	if unicode.IsPunct(last) {
		return s[:len(s)-size] + "."
	}
	return s + "."
}
