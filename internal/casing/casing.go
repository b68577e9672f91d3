// Package casing converts identifiers between naming conventions.
//
// A Parser knows how to split an identifier written in one convention into
// words and how to join words back into that convention. Two parsers form a
// Transform, which is how field names (camelCase in schemas) are turned into
// column names (snake_case in the database) and back.
//
// All parsers are stateless and safe for concurrent use.
package casing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Parser splits identifiers into words and joins words into identifiers.
type Parser interface {
	Words(identifier string) []string
	String(words []string) string
}

// Func maps one identifier to another.
// A nil Func is treated as the identity by every consumer in this module.
type Func func(string) string

// Identity returns its input unchanged.
func Identity(s string) string { return s }

// Apply runs f on s, treating a nil f as Identity.
func (f Func) Apply(s string) string {
	if f == nil {
		return s
	}
	return f(s)
}

var (
	// Camel handles identifiers like "someAPIStuff".
	Camel Parser = camelParser{}

	// Pascal handles identifiers like "SomeAPIStuff".
	Pascal Parser = pascalParser{}

	// Snake handles identifiers like "some_api_stuff".
	Snake Parser = snakeParser{}
)

// Lookup returns the parser registered under name.
func Lookup(name string) (Parser, error) {
	switch strings.ToLower(name) {
	case "camel":
		return Camel, nil
	case "pascal":
		return Pascal, nil
	case "snake":
		return Snake, nil
	default:
		return nil, fmt.Errorf("unknown case %q: must be one of camel, pascal, snake", name)
	}
}

type camelParser struct{}

func (camelParser) Words(identifier string) []string { return splitMixedCase(identifier) }

func (camelParser) String(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(lower(w))
			continue
		}
		b.WriteString(upperFirst(w))
	}
	return b.String()
}

type pascalParser struct{}

func (pascalParser) Words(identifier string) []string { return splitMixedCase(identifier) }

func (pascalParser) String(words []string) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(upperFirst(w))
	}
	return b.String()
}

type snakeParser struct{}

func (snakeParser) Words(identifier string) []string { return strings.Split(identifier, "_") }

func (snakeParser) String(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = lower(w)
	}
	return strings.Join(out, "_")
}

// splitMixedCase splits camel and pascal case identifiers.
//
// At an uppercase letter two word shapes are tried in order:
//  1. an uppercase run that is followed by another uppercase letter, which
//     leaves the last capital for the next word ("APIStuff" -> "API", "Stuff")
//  2. a capital followed by lowercase letters or digits ("Bar3")
//
// Text between matches (typically the leading lowercase word) becomes a word
// of its own. Digits never start a word.
func splitMixedCase(identifier string) []string {
	runes := []rune(identifier)
	var words []string
	pending := 0

	flush := func(end int) {
		if end > pending {
			words = append(words, string(runes[pending:end]))
		}
	}

	for i := 0; i < len(runes); {
		if !unicode.IsUpper(runes[i]) {
			i++
			continue
		}

		end := i
		for end < len(runes) && unicode.IsUpper(runes[end]) {
			end++
		}

		var match int
		switch {
		case end-i >= 2:
			match = end - 1
		case i+1 < len(runes) && isLowerOrDigit(runes[i+1]):
			match = i + 1
			for match < len(runes) && isLowerOrDigit(runes[match]) {
				match++
			}
		default:
			i++
			continue
		}

		flush(i)
		words = append(words, string(runes[i:match]))
		i = match
		pending = match
	}
	flush(len(runes))

	return words
}

func isLowerOrDigit(r rune) bool {
	return unicode.IsLower(r) || unicode.IsDigit(r)
}

func lower(word string) string {
	return cases.Lower(language.Und).String(word)
}

func upperFirst(word string) string {
	if word == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + word[size:]
}
