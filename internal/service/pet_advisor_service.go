package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"unsent/internal/domain"
	"unsent/internal/llm"
	"unsent/internal/repository"
)

var (
	ErrPetInvalidInput = errors.New("pet invalid input")
	ErrPetNotFound     = errors.New("pet not found")
)

const (
	maxPetHistoryTurns = 8
	maxPetQueryLen     = 4000
)

var petResponseSchema = llm.GenerateSchema[domain.PetLLMResponse]()

// PetChatResult es la respuesta normalizada y la estrategia que la resolvio.
type PetChatResult struct {
	Response domain.PetLLMResponse `json:"response"`
	Strategy ParseStrategy         `json:"strategy"`
}

// PetAdvisorService responde consultas sobre mascotas. Nunca falla por culpa del LLM:
// ante error o salida ilegible responde el clasificador por reglas.
type PetAdvisorService struct {
	pets      repository.PetRepository
	llmClient llm.LLMClient
	parser    PetResponseParser
	logger    *zap.Logger
}

func NewPetAdvisorService(pets repository.PetRepository, llmClient llm.LLMClient, logger *zap.Logger) *PetAdvisorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PetAdvisorService{
		pets:      pets,
		llmClient: llmClient,
		parser:    NewPetResponseParser(logger),
		logger:    logger,
	}
}

func (s *PetAdvisorService) SaveProfile(ctx context.Context, userID string, pet domain.PetProfile) (domain.PetProfile, error) {
	pet.UserID = strings.TrimSpace(userID)
	pet.Name = strings.TrimSpace(pet.Name)
	pet.Species = strings.TrimSpace(pet.Species)
	pet.Breed = strings.TrimSpace(pet.Breed)
	pet.Notes = strings.TrimSpace(pet.Notes)
	if pet.UserID == "" || pet.Name == "" || pet.Species == "" || pet.AgeYears < 0 || pet.AgeYears > 60 {
		return domain.PetProfile{}, ErrPetInvalidInput
	}
	pet.UpdatedAt = time.Now().UTC()
	if err := s.pets.Upsert(ctx, pet); err != nil {
		return domain.PetProfile{}, fmt.Errorf("save pet: %w", err)
	}
	return pet, nil
}

func (s *PetAdvisorService) GetProfile(ctx context.Context, userID string) (domain.PetProfile, error) {
	pet, err := s.pets.GetByUserID(ctx, strings.TrimSpace(userID))
	if errors.Is(err, repository.ErrNotFound) {
		return domain.PetProfile{}, ErrPetNotFound
	}
	if err != nil {
		return domain.PetProfile{}, fmt.Errorf("get pet: %w", err)
	}
	return pet, nil
}

// Chat responde una consulta usando la mascota registrada (si existe) y el historial previo.
func (s *PetAdvisorService) Chat(ctx context.Context, userID, query string, history []domain.ChatTurn) (PetChatResult, error) {
	query = strings.TrimSpace(query)
	if query == "" || len([]rune(query)) > maxPetQueryLen {
		return PetChatResult{}, ErrPetInvalidInput
	}
	if len(history) > maxPetHistoryTurns {
		history = history[len(history)-maxPetHistoryTurns:]
	}

	var userPet *domain.PetProfile
	if s.pets != nil && strings.TrimSpace(userID) != "" {
		pet, err := s.GetProfile(ctx, userID)
		switch {
		case err == nil:
			userPet = &pet
		case errors.Is(err, ErrPetNotFound):
		default:
			s.logger.Warn("pet profile unavailable", zap.String("user_id", userID), zap.Error(err))
		}
	}

	raw := ""
	if s.llmClient != nil {
		out, err := s.llmClient.GenerateJSON(ctx, buildPetPrompt(query, userPet, history), llm.JSONFormat{
			Name:        "pet_advice",
			Description: "Recomendaciones para la mascota y mensaje en su voz",
			Schema:      petResponseSchema,
		})
		if err != nil {
			// Con raw vacio la cascada cae directo al clasificador por reglas.
			s.logger.Warn("pet llm failed, answering with rules", zap.Error(err))
		} else {
			raw = out
		}
	}

	resp, strategy := s.parser.ParseLLMOutput(raw, FallbackContext{Query: query, UserPet: userPet, History: history})
	return PetChatResult{Response: resp, Strategy: strategy}, nil
}

func buildPetPrompt(query string, pet *domain.PetProfile, history []domain.ChatTurn) string {
	var sb strings.Builder

	sb.WriteString("Eres un asesor experto en comportamiento, salud y cuidado de mascotas. ")
	sb.WriteString("Das recomendaciones concretas y prudentes; ante sintomas de riesgo sugieres ir al veterinario.\n\n")

	sb.WriteString("=== MASCOTA REGISTRADA ===\n")
	if pet == nil {
		sb.WriteString("El usuario no tiene mascota registrada. hasRegisteredPet debe ser false y los campos de voz quedan vacios.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("Nombre: %s\nEspecie: %s\n", pet.Name, pet.Species))
		if pet.Breed != "" {
			sb.WriteString(fmt.Sprintf("Raza: %s\n", pet.Breed))
		}
		if pet.AgeYears > 0 {
			sb.WriteString(fmt.Sprintf("Edad: %s años\n", strconv.FormatFloat(pet.AgeYears, 'f', -1, 64)))
		}
		if pet.Notes != "" {
			sb.WriteString(fmt.Sprintf("Notas del dueño: %s\n", pet.Notes))
		}
		sb.WriteString("hasRegisteredPet debe ser true. voiceMessage es un mensaje breve y tierno en primera persona, como si lo dijera la mascota.\n\n")
	}

	if len(history) > 0 {
		sb.WriteString("=== CONVERSACION PREVIA ===\n")
		for _, turn := range history {
			role := "Usuario"
			if strings.EqualFold(strings.TrimSpace(turn.Role), "assistant") {
				role = "Asesor"
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", role, strings.TrimSpace(turn.Content)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("=== CONSULTA ===\n")
	sb.WriteString(fmt.Sprintf("%q\n\n", query))

	sb.WriteString("=== FORMATO DE SALIDA (JSON ESTRICTO) ===\n")
	sb.WriteString("Devuelve SOLO un objeto JSON, sin markdown ni texto extra, que cumpla este schema:\n")
	if schemaJSON, err := json.MarshalIndent(petResponseSchema, "", "  "); err == nil {
		sb.Write(schemaJSON)
		sb.WriteString("\n")
	}
	return sb.String()
}
