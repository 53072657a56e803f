package service

import (
	"fmt"
	"strconv"
	"strings"

	"unsent/internal/domain"
)

// petTopic es una regla del clasificador de respaldo. Los stems se comparan como
// prefijo de palabra sobre texto plegado ("ladr" cubre ladra, ladrando, ladridos).
// words son palabras completas: raices cortas que como prefijo chocan con otras
// ("cry" en crystal, "pis" en piso).
type petTopic struct {
	name               string
	stems              []string
	words              []string
	issue              string
	recommendationType string
	recommendations    []string
	tone               string
	voice              string
}

var petTopics = []petTopic{
	{
		name:               "diet",
		stems:              []string{"comer", "comid", "comiend", "aliment", "dieta", "pienso", "hambre", "peso", "gord", "food", "diet", "feed", "hungry", "weight"},
		words:              []string{"eat", "eats", "eating", "ate"},
		issue:              "alimentación",
		recommendationType: "nutrition",
		recommendations: []string{
			"Establece horarios fijos de comida y mide las porciones según su peso y edad.",
			"Consulta con el veterinario antes de cambiar de alimento y haz la transición en 7 días.",
		},
		tone:  "hambriento",
		voice: "me encanta la hora de comer, pero prefiero mi comida de siempre en su horario",
	},
	{
		name:               "behavior",
		stems:              []string{"ladr", "muerd", "mord", "agresiv", "destroz", "rompe", "gruñ", "grun", "bark", "bite", "biting", "aggress", "destroy", "chew", "growl"},
		issue:              "comportamiento",
		recommendationType: "training",
		recommendations: []string{
			"Refuerza con premios las conductas tranquilas y evita reforzar la conducta no deseada con atención.",
			"Identifica qué dispara la conducta (visitas, ruidos, soledad) y trabaja ese estímulo de a poco.",
		},
		tone:  "inquieto",
		voice: "a veces me cuesta calmarme, pero con paciencia y premios aprendo rápido",
	},
	{
		name:               "vocalization",
		stems:              []string{"ladr", "aull", "maull", "llor", "gime", "gemid", "bark", "howl", "meow", "whin"},
		words:              []string{"cry", "cries", "crying", "cried"},
		issue:              "vocalización excesiva",
		recommendationType: "training",
		recommendations: []string{
			"No respondas a los ladridos o maullidos por atención; premia los momentos de silencio.",
		},
		tone:  "ansioso",
		voice: "hago ruido cuando algo me inquieta o quiero que me mires",
	},
	{
		name:               "health",
		stems:              []string{"enferm", "vomit", "diarre", "tose", "tosiendo", "fiebre", "herid", "cojea", "sangr", "sick", "diarrh", "cough", "fever", "blood", "veterin"},
		words:              []string{"vet", "vets", "limp", "limps", "limping"},
		issue:              "salud",
		recommendationType: "veterinary",
		recommendations: []string{
			"Agenda una consulta veterinaria; si hay sangre, letargo o vómitos repetidos, acude de urgencia.",
			"Anota desde cuándo ocurren los síntomas y cualquier cambio de comida o rutina.",
		},
		tone:  "preocupado",
		voice: "no me siento del todo bien y necesito que me cuides",
	},
	{
		name:               "exercise",
		stems:              []string{"ejercicio", "pasea", "paseo", "camin", "energ", "correr", "jugar", "juega", "walk", "exercise", "energy"},
		words:              []string{"run", "runs", "running", "play", "plays", "playing"},
		issue:              "actividad física",
		recommendationType: "exercise",
		recommendations: []string{
			"Ajusta paseos y juego a su edad y raza: la mayoría necesita al menos dos salidas activas al día.",
		},
		tone:  "juguetón",
		voice: "tengo mucha energía y me encanta salir a jugar contigo",
	},
	{
		name:               "training",
		stems:              []string{"entren", "adiestr", "obedec", "comando", "truco", "correa", "train", "command", "obey", "trick", "leash"},
		words:              []string{"orden", "ordenes"},
		issue:              "entrenamiento",
		recommendationType: "training",
		recommendations: []string{
			"Practica sesiones cortas de 5 a 10 minutos con refuerzo positivo y una sola orden por vez.",
		},
		tone:  "atento",
		voice: "si me lo enseñas con premios y paciencia, lo aprendo",
	},
	{
		name:               "mood",
		stems:              []string{"triste", "ansie", "ansios", "estres", "miedo", "asust", "deprim", "anxi", "stress", "scared", "fear", "afraid", "lonely"},
		words:              []string{"sad", "sadness"},
		issue:              "estado de ánimo",
		recommendationType: "enrichment",
		recommendations: []string{
			"Ofrece enriquecimiento ambiental (juguetes interactivos, olfateo) y rutinas predecibles.",
			"Si el miedo o la tristeza persisten, consulta con un etólogo o veterinario conductual.",
		},
		tone:  "sensible",
		voice: "a veces me siento inseguro, pero contigo cerca me calmo",
	},
	{
		name:               "litter",
		stems:              []string{"arenero", "arena", "orin", "caca", "necesidades", "litter", "poop", "urin"},
		words:              []string{"pis", "pipi", "pee", "pees", "peeing"},
		issue:              "necesidades fuera de lugar",
		recommendationType: "litter",
		recommendations: []string{
			"Mantén el arenero o la zona de necesidades limpia, tranquila y lejos de la comida.",
			"Descarta con el veterinario una infección urinaria si el cambio fue repentino.",
		},
		tone:  "avergonzado",
		voice: "no lo hago para molestarte, algo de mi rincón no me convence",
	},
	{
		name:               "grooming",
		stems:              []string{"pelaje", "bano", "banar", "cepill", "pulga", "groom", "brush", "bath", "shed", "flea"},
		words:              []string{"pelo", "pelos", "fur", "furry", "nail", "nails"},
		issue:              "aseo",
		recommendationType: "grooming",
		recommendations: []string{
			"Cepilla su pelaje con la frecuencia que pide su raza y revisa orejas y uñas cada semana.",
		},
		tone:  "coqueto",
		voice: "me gusta estar limpio, aunque el baño no sea mi parte favorita",
	},
	{
		name:               "sleep",
		stems:              []string{"duerm", "dormir", "sueno", "noche", "descans", "sleep", "night", "insomn"},
		issue:              "descanso",
		recommendationType: "routine",
		recommendations: []string{
			"Dale un lugar de descanso fijo y tranquilo, y cansa su energía con actividad antes de dormir.",
		},
		tone:  "somnoliento",
		voice: "necesito mi rincón tranquilo para descansar bien",
	},
}

var speciesStems = []struct {
	species string
	stems   []string
	words   []string
	sound   string
}{
	{"perro", []string{"perr", "cachorr", "dog", "pupp"}, nil, "¡Guau!"},
	{"gato", []string{"gat", "kitten"}, []string{"cat", "cats"}, "¡Miau!"},
	{"conejo", []string{"conej", "rabbit", "bunny"}, nil, ""},
	{"ave", []string{"pajar", "periquit", "bird", "parrot"}, []string{"loro", "loros"}, "¡Pío!"},
}

const (
	maxFallbackRecommendations = 6
	fallbackHistoryTurns       = 3
)

var generalRecommendations = []string{
	"Cuéntame más sobre la rutina, la edad y el comportamiento reciente de tu mascota para darte recomendaciones precisas.",
	"Ante cualquier cambio brusco de salud o conducta, consulta a tu veterinario.",
}

// buildPetFallback arma una respuesta por plantillas a partir de palabras clave de la consulta.
// No depende de red ni de LLM: es el ultimo eslabon de la cascada.
func buildPetFallback(fc FallbackContext) domain.PetLLMResponse {
	query := foldText(fc.Query)
	topics := matchPetTopics(query)
	if len(topics) == 0 {
		topics = matchPetTopics(foldText(recentUserHistory(fc.History)))
	}

	resp := domain.PetLLMResponse{
		PetCharacteristics:      petCharacteristics(fc.UserPet, query),
		Issues:                  []string{},
		RecommendationTypes:     []string{},
		SpecificRecommendations: []string{},
	}

	if len(topics) == 0 {
		resp.Issues = append(resp.Issues, "consulta general")
		resp.RecommendationTypes = append(resp.RecommendationTypes, "general")
		resp.SpecificRecommendations = append(resp.SpecificRecommendations, generalRecommendations...)
	}
	for _, t := range topics {
		resp.Issues = appendUnique(resp.Issues, t.issue)
		resp.RecommendationTypes = appendUnique(resp.RecommendationTypes, t.recommendationType)
		for _, rec := range t.recommendations {
			if len(resp.SpecificRecommendations) >= maxFallbackRecommendations {
				break
			}
			resp.SpecificRecommendations = appendUnique(resp.SpecificRecommendations, rec)
		}
	}

	resp.PetVoiceResponse = petVoiceFallback(fc.UserPet, query, topics)
	return resp
}

func matchPetTopics(text string) []petTopic {
	if text == "" {
		return nil
	}
	var out []petTopic
	for _, t := range petTopics {
		if containsAnyWordPrefix(text, t.stems) || containsAnyWord(text, t.words) {
			out = append(out, t)
		}
	}
	return out
}

func recentUserHistory(history []domain.ChatTurn) string {
	var parts []string
	for i := len(history) - 1; i >= 0 && len(parts) < fallbackHistoryTurns; i-- {
		if strings.EqualFold(strings.TrimSpace(history[i].Role), "assistant") {
			continue
		}
		parts = append(parts, history[i].Content)
	}
	return strings.Join(parts, " ")
}

func petCharacteristics(pet *domain.PetProfile, foldedQuery string) []string {
	out := []string{}
	if pet != nil {
		if s := strings.TrimSpace(pet.Species); s != "" {
			out = appendUnique(out, strings.ToLower(s))
		}
		if b := strings.TrimSpace(pet.Breed); b != "" {
			out = appendUnique(out, b)
		}
		if pet.AgeYears > 0 {
			out = appendUnique(out, strconv.FormatFloat(pet.AgeYears, 'f', -1, 64)+" años")
		}
		return out
	}
	if species, _ := detectSpecies(foldedQuery); species != "" {
		out = append(out, species)
	}
	return out
}

func detectSpecies(foldedText string) (species, sound string) {
	for _, sp := range speciesStems {
		if containsAnyWordPrefix(foldedText, sp.stems) || containsAnyWord(foldedText, sp.words) {
			return sp.species, sp.sound
		}
	}
	return "", ""
}

// petVoiceFallback solo habla "en voz de la mascota" cuando hay una registrada.
func petVoiceFallback(pet *domain.PetProfile, foldedQuery string, topics []petTopic) domain.PetVoiceResponse {
	if pet == nil {
		return domain.PetVoiceResponse{}
	}

	_, sound := detectSpecies(foldText(pet.Species))
	if sound == "" {
		_, sound = detectSpecies(foldedQuery)
	}
	breed := strings.TrimSpace(pet.Breed)
	if breed == "" {
		breed = strings.ToLower(strings.TrimSpace(pet.Species))
	}

	tone := "cariñoso"
	body := "gracias por preocuparte por mí, cuéntame qué necesitas"
	if len(topics) > 0 {
		tone = topics[0].tone
		body = topics[0].voice
	}

	var sb strings.Builder
	if sound != "" {
		sb.WriteString(sound)
		sb.WriteString(" ")
	}
	if name := strings.TrimSpace(pet.Name); name != "" {
		sb.WriteString(fmt.Sprintf("Soy %s: ", name))
	}
	sb.WriteString(body)
	sb.WriteString(".")

	return domain.PetVoiceResponse{
		HasRegisteredPet: true,
		PetName:          strings.TrimSpace(pet.Name),
		PetBreed:         breed,
		VoiceMessage:     sb.String(),
		EmotionalTone:    tone,
	}
}

// containsAnyWordPrefix indica si algun stem aparece al inicio de una palabra del texto.
func containsAnyWordPrefix(text string, stems []string) bool {
	for _, stem := range stems {
		stem = foldText(stem)
		offset := 0
		for offset < len(text) {
			idx := strings.Index(text[offset:], stem)
			if idx < 0 {
				break
			}
			start := offset + idx
			if boundaryBefore(text, start) {
				return true
			}
			offset = start + 1
		}
	}
	return false
}

// containsAnyWord exige limite de palabra a ambos lados.
func containsAnyWord(text string, words []string) bool {
	for _, w := range words {
		w = foldText(w)
		offset := 0
		for offset < len(text) {
			idx := strings.Index(text[offset:], w)
			if idx < 0 {
				break
			}
			start := offset + idx
			if boundaryBefore(text, start) && boundaryAfter(text, start+len(w)) {
				return true
			}
			offset = start + 1
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
