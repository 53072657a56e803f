package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"unsent/internal/domain"
)

// ParseStrategy identifica que etapa de la cascada resolvio la salida del LLM.
type ParseStrategy string

const (
	StrategyDirectClean    ParseStrategy = "direct_clean"
	StrategyCharScanRepair ParseStrategy = "char_scan_repair"
	StrategyFieldRegex     ParseStrategy = "field_regex"
	StrategyFallback       ParseStrategy = "fallback"
)

// FallbackContext alimenta la respuesta determinista cuando ninguna estrategia funciona.
type FallbackContext struct {
	Query   string
	UserPet *domain.PetProfile
	History []domain.ChatTurn
}

var (
	errNoJSONObject    = errors.New("no json object found")
	errNotAnObject     = errors.New("decoded value is not an object")
	errNoKnownFields   = errors.New("object has no known fields")
	errNoFieldsMatched = errors.New("no field matched")
)

// PetResponseParser normaliza la salida cruda del LLM del asesor de mascotas.
// ParseLLMOutput es total: siempre devuelve una respuesta bien tipada.
type PetResponseParser struct {
	logger *zap.Logger
}

func NewPetResponseParser(logger *zap.Logger) PetResponseParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return PetResponseParser{logger: logger}
}

type petParseStep struct {
	name ParseStrategy
	run  func(raw string) (map[string]any, error)
}

var petParseSteps = []petParseStep{
	{name: StrategyDirectClean, run: parseDirectClean},
	{name: StrategyCharScanRepair, run: parseCharScanRepair},
	{name: StrategyFieldRegex, run: parseFieldRegex},
}

// ParseLLMOutput prueba las estrategias en orden y se queda con la primera que funciona.
// Cualquier candidato pasa por coercePetResponse antes de salir.
func (p PetResponseParser) ParseLLMOutput(raw string, fc FallbackContext) (domain.PetLLMResponse, ParseStrategy) {
	logger := p.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(raw) != "" {
		for _, step := range petParseSteps {
			candidate, err := runPetParseStep(step, raw)
			if err != nil {
				logger.Debug("llm output strategy failed",
					zap.String("strategy", string(step.name)),
					zap.Int("raw_len", len(raw)),
					zap.Error(err),
				)
				continue
			}
			logger.Debug("llm output strategy succeeded", zap.String("strategy", string(step.name)))
			return coercePetResponse(candidate), step.name
		}
	}

	logger.Warn("llm output unusable, using rule-based fallback", zap.Int("raw_len", len(raw)))
	return buildPetFallback(fc), StrategyFallback
}

func runPetParseStep(step petParseStep, raw string) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	return step.run(raw)
}

// parseDirectClean: primera '{' a ultima '}', sin invisibles, espacios/control colapsados y sin **.
func parseDirectClean(raw string) (map[string]any, error) {
	candidate, ok := outermostBraces(stripInvisible(raw))
	if !ok {
		return nil, errNoJSONObject
	}
	candidate = stripBoldMarkup(collapseControlWhitespace(candidate))
	return decodePetObject(candidate)
}

// parseCharScanRepair recorre el candidato caracter a caracter. Solo dentro de strings se
// eliminan controles y marcas **; fuera se quitan comas colgantes y se cierra lo truncado.
func parseCharScanRepair(raw string) (map[string]any, error) {
	candidate, _ := scanFirstJSONObject(stripInvisible(raw))
	if candidate == "" {
		return nil, errNoJSONObject
	}
	return decodePetObject(repairJSONText(candidate))
}

func repairJSONText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 8)

	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escape:
				escape = false
				sb.WriteByte(ch)
			case ch == '\\':
				escape = true
				sb.WriteByte(ch)
			case ch == '"':
				inString = false
				sb.WriteByte(ch)
			case ch < 0x20 || ch == 0x7f:
				sb.WriteByte(' ')
			case ch == '*' && i+1 < len(s) && s[i+1] == '*':
				i++
			default:
				sb.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			sb.WriteByte(ch)
		case '{', '[':
			stack = append(stack, ch)
			sb.WriteByte(ch)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			sb.WriteByte(ch)
		case ',':
			if next := nextNonSpace(s, i+1); next == '}' || next == ']' {
				continue
			}
			sb.WriteByte(ch)
		default:
			sb.WriteByte(ch)
		}
	}

	out := sb.String()
	if escape {
		out = strings.TrimSuffix(out, `\`)
	}
	if inString {
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	if strings.HasSuffix(out, ":") {
		out += "null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out += "}"
		} else {
			out += "]"
		}
	}
	return out
}

func nextNonSpace(s string, from int) byte {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return s[i]
		}
	}
	return 0
}

func decodePetObject(candidate string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, fmt.Errorf("unmarshal candidate: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errNotAnObject
	}
	if !hasKnownPetField(m) {
		return nil, errNoKnownFields
	}
	return m, nil
}

var petArrayFields = []string{"petCharacteristics", "issues", "recommendationTypes", "specificRecommendations"}

var petVoiceStringFields = []string{"petName", "petBreed", "voiceMessage", "emotionalTone"}

func hasKnownPetField(m map[string]any) bool {
	for _, f := range petArrayFields {
		if _, ok := lookupField(m, f); ok {
			return true
		}
	}
	_, ok := lookupField(m, "petVoiceResponse")
	return ok
}

var (
	petArrayFieldRes = buildFieldRegexps(petArrayFields, `"%s"\s*:\s*\[`)
	petVoiceFieldRes = buildFieldRegexps(petVoiceStringFields, `"%s"\s*:\s*"((?:\\.|[^"\\])*)"`)
	hasPetRe         = regexp.MustCompile(`(?s)"hasRegisteredPet"\s*:\s*(true|false)`)
	quotedStringRe   = regexp.MustCompile(`"((?:\\.|[^"\\])*)"`)
)

func buildFieldRegexps(fields []string, pattern string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(fields))
	for _, f := range fields {
		out[f] = regexp.MustCompile("(?s)" + fmt.Sprintf(pattern, regexp.QuoteMeta(f)))
	}
	return out
}

// parseFieldRegex extrae cada campo por separado; tolera que falte cualquiera.
func parseFieldRegex(raw string) (map[string]any, error) {
	s := stripBoldMarkup(stripInvisible(raw))
	out := map[string]any{}

	for _, f := range petArrayFields {
		loc := petArrayFieldRes[f].FindStringIndex(s)
		if loc == nil {
			continue
		}
		body, ok := scanJSONArrayBody(s, loc[1]-1)
		if !ok {
			continue
		}
		items := []any{}
		for _, q := range quotedStringRe.FindAllStringSubmatch(body, -1) {
			items = append(items, unquoteJSONFragment(q[1]))
		}
		out[f] = items
	}

	voice := map[string]any{}
	for _, f := range petVoiceStringFields {
		if m := petVoiceFieldRes[f].FindStringSubmatch(s); len(m) >= 2 {
			voice[f] = unquoteJSONFragment(m[1])
		}
	}
	if m := hasPetRe.FindStringSubmatch(s); len(m) >= 2 {
		voice["hasRegisteredPet"] = m[1] == "true"
	}
	if len(voice) > 0 {
		out["petVoiceResponse"] = voice
	}

	if len(out) == 0 {
		return nil, errNoFieldsMatched
	}
	return out, nil
}

func unquoteJSONFragment(raw string) string {
	unq, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil {
		unq = unescapeMinimalEscapes(raw)
	}
	return strings.TrimSpace(collapseControlWhitespace(unq))
}

// coercePetResponse defiende el tipo de cada campo por separado: un campo malo no contamina al resto.
func coercePetResponse(m map[string]any) domain.PetLLMResponse {
	resp := domain.PetLLMResponse{
		PetCharacteristics:      coerceStringSlice(fieldValue(m, "petCharacteristics")),
		Issues:                  coerceStringSlice(fieldValue(m, "issues")),
		RecommendationTypes:     coerceStringSlice(fieldValue(m, "recommendationTypes")),
		SpecificRecommendations: coerceStringSlice(fieldValue(m, "specificRecommendations")),
	}

	voice, _ := fieldValue(m, "petVoiceResponse").(map[string]any)
	resp.PetVoiceResponse = domain.PetVoiceResponse{
		HasRegisteredPet: coerceBool(fieldValue(voice, "hasRegisteredPet")),
		PetName:          coerceString(fieldValue(voice, "petName")),
		PetBreed:         coerceString(fieldValue(voice, "petBreed")),
		VoiceMessage:     coerceString(fieldValue(voice, "voiceMessage")),
		EmotionalTone:    coerceString(fieldValue(voice, "emotionalTone")),
	}
	return resp
}

func fieldValue(m map[string]any, key string) any {
	v, _ := lookupField(m, key)
	return v
}

// lookupField acepta la clave en camelCase o snake_case.
func lookupField(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	v, ok := m[toSnakeCase(key)]
	return v, ok
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// coerceStringSlice descarta solo los elementos que no son string; los strings pasan tal cual.
func coerceStringSlice(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func coerceString(v any) string {
	s, _ := v.(string)
	return s
}

func coerceBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
