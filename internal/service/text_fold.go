package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'", "´", "'")

// foldText baja a minusculas y quita tildes para comparar palabras clave ("traición" == "traicion").
// El transformer se arma por llamada: transform.Chain guarda estado y no es seguro entre goroutines.
func foldText(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(apostropheReplacer.Replace(out))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// countWholeOccurrences cuenta apariciones de kw en text respetando limites de palabra.
// Ambos deben venir plegados con foldText.
func countWholeOccurrences(text, kw string) int {
	if kw == "" || len(kw) > len(text) {
		return 0
	}
	count := 0
	offset := 0
	for {
		idx := strings.Index(text[offset:], kw)
		if idx < 0 {
			return count
		}
		start := offset + idx
		end := start + len(kw)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			count++
		}
		offset = start + 1
		if offset >= len(text) {
			return count
		}
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func countWords(s string) int {
	return len(strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) && r != '\'' }))
}
