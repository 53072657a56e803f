package main

import "unsent/internal/service"

// normalizerCase es una salida cruda de LLM y la estrategia que deberia resolverla.
type normalizerCase struct {
	Name     string
	Query    string
	Raw      string
	Expected service.ParseStrategy
}

var petCorpus = []normalizerCase{
	{
		Name:     "json limpio",
		Query:    "mi perro ladra",
		Raw:      `{"petCharacteristics": ["perro"], "issues": ["ladra"], "recommendationTypes": ["training"], "specificRecommendations": ["premiar silencio"], "petVoiceResponse": {"hasRegisteredPet": true, "petName": "Rex", "petBreed": "perro", "voiceMessage": "Guau", "emotionalTone": "juguetón"}}`,
		Expected: service.StrategyDirectClean,
	},
	{
		Name:     "bloque markdown",
		Query:    "mi gato no come",
		Raw:      "```json\n{\"issues\": [\"no come\"], \"recommendationTypes\": [\"veterinary\"]}\n```",
		Expected: service.StrategyDirectClean,
	},
	{
		Name:     "comas colgantes",
		Query:    "mi perro muerde",
		Raw:      `{"issues": ["ladra", "muerde",], "recommendationTypes": ["training"],}`,
		Expected: service.StrategyCharScanRepair,
	},
	{
		Name:     "salida truncada",
		Query:    "mi perro muerde",
		Raw:      `Claro: {"issues": ["ladra", "muerde"], "recommendationTypes": ["train`,
		Expected: service.StrategyCharScanRepair,
	},
	{
		Name:     "campos sin llaves",
		Query:    "mi perro ladra fuerte",
		Raw:      `**"issues"**: ["ladra \"fuerte\""], "petName": "Rex", "hasRegisteredPet": true, "specificRecommendations": ["premiar silencio"]`,
		Expected: service.StrategyFieldRegex,
	},
	{
		Name:     "prosa sin json",
		Query:    "mi gata no usa el arenero",
		Raw:      "Lo siento, no puedo ayudarte con eso ahora mismo.",
		Expected: service.StrategyFallback,
	},
	{
		Name:     "vacio",
		Query:    "my dog is vomiting",
		Raw:      "",
		Expected: service.StrategyFallback,
	},
}

// liveQueries se envian al proveedor real con -live.
var liveQueries = []string{
	"Mi perro ladra cada vez que salgo de casa, ¿qué hago?",
	"My cat stopped using the litter box last week.",
	"¿Cada cuánto debo bañar a mi conejo?",
}
