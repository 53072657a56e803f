package service

import (
	"math"

	"unsent/internal/domain"
)

// ScoreEngine puntua el contenido emocional de un mensaje y lo ubica en una etapa.
// No guarda estado: es seguro usarlo desde varias goroutines.
type ScoreEngine struct{}

// DefaultScoreEngine permite uso directo sin instanciar.
var DefaultScoreEngine = ScoreEngine{}

const (
	keywordWeight = 0.5
	lengthWeight  = 0.3
	timeWeight    = 0.2

	keywordSaturation     = 5.0
	lengthSaturationWords = 200.0
	timeSaturationSeconds = 600.0

	maxIntensity        = 10.0
	intensityDensityMul = 40.0
	deliberationBonus   = 1.0
)

type stageKeywordSet struct {
	stage    domain.EmotionStage
	original []string
	folded   []string
}

var stageKeywordSets = buildStageKeywordSets()

func buildStageKeywordSets() []stageKeywordSet {
	sets := make([]stageKeywordSet, 0, len(domain.StageOrder))
	for _, stage := range domain.StageOrder {
		def := domain.EmotionStages[stage]
		set := stageKeywordSet{stage: stage}
		for _, kw := range def.Keywords {
			set.original = append(set.original, kw)
			set.folded = append(set.folded, foldText(kw))
		}
		sets = append(sets, set)
	}
	return sets
}

// Analyze calcula puntaje, etapa, intensidad y palabras clave de un mensaje.
// El puntaje siempre cae dentro de la banda de la etapa devuelta.
func (ScoreEngine) Analyze(message string, timeSpentSeconds float64) domain.MessageEmotionalAnalysis {
	timeSpent := sanitizeSeconds(timeSpentSeconds)
	text := foldText(message)
	words := countWords(text)

	stageMatches := make(map[domain.EmotionStage]int, len(stageKeywordSets))
	keywords := []string{}
	total := 0
	for _, set := range stageKeywordSets {
		stageMatches[set.stage] = 0
		for i, kw := range set.folded {
			n := countWholeOccurrences(text, kw)
			if n == 0 {
				continue
			}
			stageMatches[set.stage] += n
			keywords = append(keywords, set.original[i])
			total += n
		}
	}

	// Empate: gana la etapa de banda mas baja (primera en StageOrder).
	winner := domain.StageDenial
	best := 0
	for _, stage := range domain.StageOrder {
		if stageMatches[stage] > best {
			best = stageMatches[stage]
			winner = stage
		}
	}

	factors := domain.AnalysisFactors{
		KeywordMatches:   best,
		WordCount:        words,
		TimeSpentSeconds: timeSpent,
		StageMatches:     stageMatches,
	}

	def := domain.StageDef(winner)
	if best == 0 {
		return domain.MessageEmotionalAnalysis{
			Score:          def.MinScore,
			Stage:          winner,
			Intensity:      0,
			Keywords:       keywords,
			ProgressToNext: 0,
			Factors:        factors,
		}
	}

	factors.KeywordFactor = saturate(float64(best) / keywordSaturation)
	factors.LengthFactor = saturate(float64(words) / lengthSaturationWords)
	factors.TimeFactor = saturate(timeSpent / timeSaturationSeconds)

	combined := keywordWeight*factors.KeywordFactor +
		lengthWeight*factors.LengthFactor +
		timeWeight*factors.TimeFactor
	width := def.MaxScore - def.MinScore
	score := clampInt(def.MinScore+int(math.Round(combined*float64(width))), def.MinScore, def.MaxScore)

	return domain.MessageEmotionalAnalysis{
		Score:          score,
		Stage:          winner,
		Intensity:      intensityFor(total, words, factors.TimeFactor),
		Keywords:       keywords,
		ProgressToNext: progressWithinBand(score, def),
		Factors:        factors,
	}
}

// StageForScore devuelve la etapa cuya banda contiene el puntaje (acotado a 0-100).
func StageForScore(score int) domain.EmotionStage {
	score = clampInt(score, 0, 100)
	for _, stage := range domain.StageOrder {
		def := domain.EmotionStages[stage]
		if score >= def.MinScore && score <= def.MaxScore {
			return stage
		}
	}
	return domain.StageDenial
}

// AggregateScore incorpora un nuevo puntaje al promedio corrido de una conversacion.
func AggregateScore(prevAverage, prevCount, score int) int {
	if prevCount <= 0 {
		return clampInt(score, 0, 100)
	}
	sum := float64(prevAverage)*float64(prevCount) + float64(score)
	return clampInt(int(math.Round(sum/float64(prevCount+1))), 0, 100)
}

func intensityFor(totalMatches, words int, timeFactor float64) float64 {
	if totalMatches == 0 {
		return 0
	}
	if words < 1 {
		words = 1
	}
	density := float64(totalMatches) / float64(words)
	v := density*intensityDensityMul + timeFactor*deliberationBonus
	if v > maxIntensity {
		v = maxIntensity
	}
	return math.Round(v*10) / 10
}

func progressWithinBand(score int, def domain.StageDefinition) int {
	width := def.MaxScore - def.MinScore
	if width <= 0 {
		return 100
	}
	return clampInt(int(math.Round(float64(score-def.MinScore)*100/float64(width))), 0, 100)
}

func sanitizeSeconds(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func saturate(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
