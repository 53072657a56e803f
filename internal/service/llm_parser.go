package service

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"unsent/internal/domain"
)

// ReplyParser centraliza la limpieza y el parseo de las respuestas en personaje.
type ReplyParser struct{}

// DefaultReplyParser permite uso directo sin instanciar.
var DefaultReplyParser = ReplyParser{}

var (
	replyFieldRe = regexp.MustCompile(`(?is)"reply"\s*:\s*"((?:\\.|[^"\\])*)"`)
	toneFieldRe  = regexp.MustCompile(`(?is)"tone"\s*:\s*"((?:\\.|[^"\\])*)"`)

	// Claves que el modelo a veces agrega con su razonamiento; nunca deben llegar al usuario.
	leakyKeys = []string{"reasoning", "analysis", "thinking", "inner_monologue"}
)

// ParseReplySafe intenta parsear la respuesta del LLM de manera robusta.
// Regla: el razonamiento interno del modelo nunca se devuelve, ni siquiera en fallback.
func (ReplyParser) ParseReplySafe(raw string) (domain.ReplyOutput, bool) {
	cleaned := cleanLLMJSONResponse(raw)

	jsonObj := extractFirstJSONObject(cleaned)
	if jsonObj == "" {
		jsonObj = extractFirstJSONObject(raw)
	}

	tryUnmarshal := func(candidate string) (domain.ReplyOutput, bool) {
		var tmp struct {
			Reply string `json:"reply"`
			Tone  string `json:"tone"`
		}
		if err := json.Unmarshal([]byte(candidate), &tmp); err != nil {
			return domain.ReplyOutput{}, false
		}
		reply := strings.TrimSpace(tmp.Reply)
		if reply == "" {
			return domain.ReplyOutput{}, false
		}
		return domain.ReplyOutput{
			Reply: UnescapeMaybeDoubleEscaped(reply),
			Tone:  strings.TrimSpace(tmp.Tone),
		}, true
	}

	if jsonObj != "" {
		if resp, ok := tryUnmarshal(jsonObj); ok {
			return resp, true
		}
	}
	if resp, ok := tryUnmarshal(cleaned); ok {
		return resp, true
	}

	for _, candidate := range []string{cleaned, raw} {
		if reply, ok := extractQuotedField(replyFieldRe, candidate); ok {
			tone, _ := extractQuotedField(toneFieldRe, candidate)
			return domain.ReplyOutput{Reply: reply, Tone: tone}, true
		}
	}

	fallback := SanitizeFallbackReplyText(raw)
	if strings.TrimSpace(fallback) == "" {
		return domain.ReplyOutput{}, false
	}
	return domain.ReplyOutput{Reply: fallback}, true
}

// ErrReplyUnparseable indica que no hubo texto utilizable en la salida del LLM.
var ErrReplyUnparseable = errors.New("could not extract reply")

// UnmarshalReply delega al parseo robusto para poblar un ReplyOutput.
func (p ReplyParser) UnmarshalReply(raw string, out *domain.ReplyOutput) error {
	if out == nil {
		return errors.New("nil output")
	}
	resp, ok := p.ParseReplySafe(raw)
	if !ok || strings.TrimSpace(resp.Reply) == "" {
		return ErrReplyUnparseable
	}
	*out = resp
	return nil
}

// SanitizeFallbackReplyText es el ultimo recurso cuando no hay JSON parseable.
func SanitizeFallbackReplyText(raw string) string {
	t := strings.TrimSpace(cleanLLMJSONResponse(raw))
	if t == "" {
		return ""
	}

	if reply, ok := extractQuotedField(replyFieldRe, t); ok {
		return reply
	}

	// Un objeto JSON sin "reply" no es texto para el usuario.
	if obj := extractFirstJSONObject(t); obj != "" && strings.TrimSpace(obj) == t {
		return ""
	}

	lines := strings.Split(t, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if hasLeakyKey(ln) {
			continue
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func hasLeakyKey(line string) bool {
	l := strings.ToLower(line)
	for _, k := range leakyKeys {
		if strings.Contains(l, k) {
			return true
		}
	}
	return false
}

func extractQuotedField(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}

	raw := m[1]
	unq, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil {
		unq = unescapeMinimalEscapes(raw)
	}
	unq = strings.TrimSpace(UnescapeMaybeDoubleEscaped(unq))
	if unq == "" {
		return "", false
	}
	return unq, true
}

// UnescapeMaybeDoubleEscaped intenta arreglar casos donde el modelo manda texto doble-escapado.
func UnescapeMaybeDoubleEscaped(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	if !strings.Contains(s, `\`) {
		return s
	}

	quoted := `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	if unq, err := strconv.Unquote(quoted); err == nil {
		return strings.TrimSpace(unq)
	}

	return unescapeMinimalEscapes(s)
}

func unescapeMinimalEscapes(s string) string {
	replacer := strings.NewReplacer(
		`\\`, `\`,
		`\"`, `"`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}
