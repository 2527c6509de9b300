// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug derives ASCII identifiers from display names.
//
// Client app ids are stored in snake_case, so "Phoenix Web", "phoenix-web"
// and "PhoenixWeb" all name the same client.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented letters and drops the combining marks.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Snake converts s into snake_case.
//
// Word boundaries are any run of characters other than ASCII letters and
// digits, plus lower-to-upper transitions. Snake is idempotent.
func Snake(s string) string {
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}

	var builder strings.Builder
	builder.Grow(len(plain))

	separate := false
	var previous rune
	for _, r := range plain {
		if !isASCIIAlnum(r) {
			separate = builder.Len() > 0
			previous = 0
			continue
		}

		if unicode.IsUpper(r) && (unicode.IsLower(previous) || unicode.IsDigit(previous)) {
			separate = true
		}
		if separate {
			builder.WriteByte('_')
			separate = false
		}

		builder.WriteRune(unicode.ToLower(r))
		previous = r
	}

	return builder.String()
}

func isASCIIAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
