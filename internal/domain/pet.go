package domain

import "time"

// PetProfile es la mascota registrada por un usuario para el asesor.
type PetProfile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Breed     string    `json:"breed,omitempty"`
	AgeYears  float64   `json:"age_years,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PetVoiceResponse es el mensaje "en voz de la mascota" que acompana la recomendacion.
type PetVoiceResponse struct {
	HasRegisteredPet bool   `json:"hasRegisteredPet" jsonschema:"required"`
	PetName          string `json:"petName" jsonschema:"required"`
	PetBreed         string `json:"petBreed" jsonschema:"required"`
	VoiceMessage     string `json:"voiceMessage" jsonschema:"required"`
	EmotionalTone    string `json:"emotionalTone" jsonschema:"required"`
}

// PetLLMResponse es la salida normalizada del asesor de mascotas.
// Todos los campos tienen valor por defecto: nunca hay nil ni tipos incorrectos.
type PetLLMResponse struct {
	PetCharacteristics      []string         `json:"petCharacteristics" jsonschema:"required"`
	Issues                  []string         `json:"issues" jsonschema:"required"`
	RecommendationTypes     []string         `json:"recommendationTypes" jsonschema:"required"`
	SpecificRecommendations []string         `json:"specificRecommendations" jsonschema:"required"`
	PetVoiceResponse        PetVoiceResponse `json:"petVoiceResponse" jsonschema:"required"`
}

// ChatTurn es un turno previo del chat de mascotas enviado por el cliente.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
