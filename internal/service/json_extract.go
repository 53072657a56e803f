package service

import (
	"regexp"
	"strings"
)

var (
	fenceStartRe        = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEndRe          = regexp.MustCompile("(?is)\\s*```\\s*$")
	controlWhitespaceRe = regexp.MustCompile(`[\s\p{Cc}]+`)
	invisibleReplacer   = strings.NewReplacer(
		"\uFEFF", "",
		"\u200B", "",
		"\u200C", "",
		"\u200D", "",
		"\u2060", "",
	)
)

// cleanLLMJSONResponse quita fences ```json ... ``` y BOM, dejando el contenido usable.
func cleanLLMJSONResponse(raw string) string {
	s := strings.TrimSpace(stripInvisible(raw))
	if s == "" {
		return ""
	}
	s = fenceStartRe.ReplaceAllString(s, "")
	s = fenceEndRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// stripInvisible elimina BOM y caracteres de ancho cero que algunos modelos intercalan.
func stripInvisible(s string) string {
	return invisibleReplacer.Replace(s)
}

// collapseControlWhitespace reemplaza cualquier corrida de espacios o caracteres de control por un espacio.
func collapseControlWhitespace(s string) string {
	return controlWhitespaceRe.ReplaceAllString(s, " ")
}

func stripBoldMarkup(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// outermostBraces devuelve el tramo entre la primera '{' y la ultima '}'.
func outermostBraces(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// extractFirstJSONObject devuelve el primer objeto balanceado, respetando llaves dentro de strings.
func extractFirstJSONObject(input string) string {
	obj, complete := scanFirstJSONObject(input)
	if !complete {
		return ""
	}
	return obj
}

// scanFirstJSONObject recorre desde la primera '{'. Si el objeto no cierra (salida truncada),
// devuelve el resto del texto y complete=false para que el llamador intente repararlo.
func scanFirstJSONObject(input string) (obj string, complete bool) {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return "", false
	}

	inString := false
	escape := false
	depth := 0

	for i := start; i < len(input); i++ {
		ch := input[i]

		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1], true
			}
			if depth < 0 {
				return "", false
			}
		}
	}

	return input[start:], false
}

// scanJSONArrayBody devuelve el contenido entre el '[' en open y su ']' de cierre. Los corchetes
// dentro de strings no cuentan. ok=false si el arreglo no cierra.
func scanJSONArrayBody(s string, open int) (body string, ok bool) {
	if open < 0 || open >= len(s) || s[open] != '[' {
		return "", false
	}

	inString := false
	escape := false
	depth := 0

	for i := open; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[open+1 : i], true
			}
		}
	}
	return "", false
}
