package domain

// EmotionStage es una de las cinco etapas del modelo emocional, en orden de progresion.
type EmotionStage string

const (
	StageDenial     EmotionStage = "denial"
	StageAnger      EmotionStage = "anger"
	StageBargaining EmotionStage = "bargaining"
	StageDepression EmotionStage = "depression"
	StageAcceptance EmotionStage = "acceptance"
)

// StageOrder fija el orden total de las etapas (bandas ascendentes).
var StageOrder = []EmotionStage{
	StageDenial,
	StageAnger,
	StageBargaining,
	StageDepression,
	StageAcceptance,
}

// StageColors es el par de colores con que la UI pinta una etapa.
type StageColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// StageDefinition describe la banda de puntaje, palabras clave y plantillas de una etapa.
type StageDefinition struct {
	Stage       EmotionStage `json:"stage"`
	Label       string       `json:"label"`
	MinScore    int          `json:"minScore"`
	MaxScore    int          `json:"maxScore"`
	Keywords    []string     `json:"keywords"`
	Colors      StageColors  `json:"colors"`
	Description string       `json:"description"`
	// ReplyGuidance son fragmentos que orientan el tono de la respuesta del destinatario.
	ReplyGuidance []string `json:"replyGuidance"`
	NextStepHint  string   `json:"nextStepHint"`
}

// EmotionStages es la tabla canonica de etapas. Las bandas son disjuntas y cubren 0-100.
var EmotionStages = map[EmotionStage]StageDefinition{
	StageDenial: {
		Stage:    StageDenial,
		Label:    "Denial",
		MinScore: 0,
		MaxScore: 20,
		Keywords: []string{
			"fine", "whatever", "doesn't matter", "doesnt matter", "not a big deal", "no big deal",
			"can't believe", "cant believe", "impossible", "it's nothing", "not real", "pretend",
			"estoy bien", "no importa", "da igual", "no puedo creer", "no es nada", "imposible",
		},
		Colors:      StageColors{Primary: "#94A3B8", Secondary: "#E2E8F0"},
		Description: "Distance from the loss; the message avoids naming what hurts.",
		ReplyGuidance: []string{
			"Respond gently and without pressure.",
			"Acknowledge what was said without forcing the writer to face more than they named.",
		},
		NextStepHint: "Try naming one thing you miss or one thing that hurt.",
	},
	StageAnger: {
		Stage:    StageAnger,
		Label:    "Anger",
		MinScore: 21,
		MaxScore: 40,
		Keywords: []string{
			"angry", "hate", "furious", "unfair", "how could you", "mad", "rage", "betrayed",
			"blame", "your fault", "pissed", "resent",
			"odio", "rabia", "enojado", "enojada", "furioso", "furiosa", "injusto", "culpa", "traicion",
		},
		Colors:      StageColors{Primary: "#EF4444", Secondary: "#FEE2E2"},
		Description: "Heat and blame; the writer is pushing the pain outward.",
		ReplyGuidance: []string{
			"Do not get defensive and do not escalate.",
			"Let the anger be heard and answer with calm honesty.",
		},
		NextStepHint: "Write what is underneath the anger.",
	},
	StageBargaining: {
		Stage:    StageBargaining,
		Label:    "Bargaining",
		MinScore: 41,
		MaxScore: 60,
		Keywords: []string{
			"if only", "what if", "should have", "could have", "would have", "maybe if",
			"i wish", "one more chance", "take it back", "if i had",
			"si tan solo", "y si", "deberia haber", "hubiera", "ojala", "otra oportunidad",
		},
		Colors:      StageColors{Primary: "#F59E0B", Secondary: "#FEF3C7"},
		Description: "Replaying alternatives; the writer negotiates with what happened.",
		ReplyGuidance: []string{
			"Gently release the writer from the what-ifs.",
			"Avoid promising outcomes that cannot happen.",
		},
		NextStepHint: "Notice which what-if keeps coming back.",
	},
	StageDepression: {
		Stage:    StageDepression,
		Label:    "Depression",
		MinScore: 61,
		MaxScore: 80,
		Keywords: []string{
			"sad", "empty", "alone", "lonely", "miss you", "hopeless", "tired", "cry", "crying",
			"pointless", "numb", "heartbroken", "lost",
			"triste", "vacio", "vacia", "solo", "sola", "te extrano", "llorar", "llorando", "cansado", "cansada",
		},
		Colors:      StageColors{Primary: "#6366F1", Secondary: "#E0E7FF"},
		Description: "The weight of the loss is fully felt.",
		ReplyGuidance: []string{
			"Be warm and present, do not try to fix the sadness.",
			"Validate the feeling and leave room for it.",
		},
		NextStepHint: "Write about one small thing that still feels steady.",
	},
	StageAcceptance: {
		Stage:    StageAcceptance,
		Label:    "Acceptance",
		MinScore: 81,
		MaxScore: 100,
		Keywords: []string{
			"accept", "peace", "grateful", "thank you", "let go", "letting go", "moving on",
			"forgive", "healing", "okay now", "understand now", "goodbye",
			"acepto", "paz", "agradecido", "agradecida", "gracias", "soltar", "perdono", "sanar", "adios",
		},
		Colors:      StageColors{Primary: "#10B981", Secondary: "#D1FAE5"},
		Description: "The loss is integrated; the writer speaks with calm and gratitude.",
		ReplyGuidance: []string{
			"Honor the closure and the growth in the message.",
			"Keep the reply short, warm and final in tone.",
		},
		NextStepHint: "You may be ready to close this conversation.",
	},
}

// StageDef devuelve la definicion de la etapa; una etapa desconocida cae en denial.
func StageDef(stage EmotionStage) StageDefinition {
	if def, ok := EmotionStages[stage]; ok {
		return def
	}
	return EmotionStages[StageDenial]
}

// Valid indica si la etapa es una de las cinco conocidas.
func (s EmotionStage) Valid() bool {
	_, ok := EmotionStages[s]
	return ok
}

// AnalysisFactors expone los insumos usados para calcular el puntaje.
type AnalysisFactors struct {
	KeywordMatches   int                  `json:"keywordMatches"`
	WordCount        int                  `json:"wordCount"`
	TimeSpentSeconds float64              `json:"timeSpentSeconds"`
	KeywordFactor    float64              `json:"keywordFactor"`
	LengthFactor     float64              `json:"lengthFactor"`
	TimeFactor       float64              `json:"timeFactor"`
	StageMatches     map[EmotionStage]int `json:"stageMatches"`
}

// MessageEmotionalAnalysis es el resultado derivado de puntuar un mensaje.
type MessageEmotionalAnalysis struct {
	Score          int             `json:"score"`
	Stage          EmotionStage    `json:"stage"`
	Intensity      float64         `json:"intensity"`
	Keywords       []string        `json:"keywords"`
	ProgressToNext int             `json:"progressToNext"`
	Factors        AnalysisFactors `json:"factors"`
}
