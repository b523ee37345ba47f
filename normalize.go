package main

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeText makes header labels and sheet names comparable: NFKC (so
// full-width forms collapse to ASCII), every whitespace rune removed, then
// case folded.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return cases.Fold().String(s)
}

// cellText trims a cell and maps the "nan" placeholder left behind by other
// spreadsheet tooling to blank.
func cellText(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

func isBlank(s string) bool {
	return cellText(s) == ""
}
