package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"unsent/internal/domain"
	"unsent/internal/llm"
	"unsent/internal/repository"
)

type failingPetRepo struct {
	err error
}

func (f failingPetRepo) Upsert(context.Context, domain.PetProfile) error { return f.err }
func (f failingPetRepo) GetByUserID(context.Context, string) (domain.PetProfile, error) {
	return domain.PetProfile{}, f.err
}

func TestPetAdvisorService_Profile(t *testing.T) {
	svc := NewPetAdvisorService(repository.NewInMemoryStore().Pets(), nil, nil)
	ctx := context.Background()

	if _, err := svc.GetProfile(ctx, "u1"); !errors.Is(err, ErrPetNotFound) {
		t.Fatalf("expected ErrPetNotFound, got %v", err)
	}
	for _, bad := range []domain.PetProfile{
		{Species: "gato"},
		{Name: "Luna"},
		{Name: "Luna", Species: "gato", AgeYears: -1},
	} {
		if _, err := svc.SaveProfile(ctx, "u1", bad); !errors.Is(err, ErrPetInvalidInput) {
			t.Fatalf("expected ErrPetInvalidInput for %+v, got %v", bad, err)
		}
	}

	saved, err := svc.SaveProfile(ctx, " u1 ", domain.PetProfile{UserID: "ignored", Name: " Luna ", Species: "Gato", AgeYears: 3})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.UserID != "u1" || saved.Name != "Luna" || saved.UpdatedAt.IsZero() {
		t.Fatalf("unexpected saved profile %+v", saved)
	}
	got, err := svc.GetProfile(ctx, "u1")
	if err != nil || got.Name != "Luna" {
		t.Fatalf("expected stored pet, got %+v err=%v", got, err)
	}
}

func TestPetAdvisorService_ChatUsesLLMOutput(t *testing.T) {
	pets := repository.NewInMemoryStore().Pets()
	_ = pets.Upsert(context.Background(), domain.PetProfile{UserID: "u1", Name: "Rocky", Species: "perro", Breed: "beagle", AgeYears: 2})
	client := &llm.MockClient{Response: `Claro: {"petCharacteristics":["beagle"],"issues":["ladridos"],"recommendationTypes":["training"],"specificRecommendations":["Premia el silencio"],"petVoiceResponse":{"hasRegisteredPet":true,"petName":"Rocky","petBreed":"beagle","voiceMessage":"¡Guau!","emotionalTone":"ansioso"}}`}
	svc := NewPetAdvisorService(pets, client, nil)

	res, err := svc.Chat(context.Background(), "u1", " mi perro ladra mucho ", []domain.ChatTurn{{Role: "user", Content: "hola"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Strategy != StrategyDirectClean {
		t.Fatalf("expected direct_clean, got %s", res.Strategy)
	}
	if res.Response.PetVoiceResponse.PetName != "Rocky" || len(res.Response.SpecificRecommendations) != 1 {
		t.Fatalf("unexpected response %+v", res.Response)
	}

	prompt := client.LastPrompt()
	for _, want := range []string{"Nombre: Rocky", "Raza: beagle", "Edad: 2 años", "Usuario: hola", `"mi perro ladra mucho"`, `"petVoiceResponse"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q; got:\n%s", want, prompt)
		}
	}
	if len(client.Formats) != 1 || client.Formats[0].Name != "pet_advice" {
		t.Fatalf("expected structured output request")
	}
}

func TestPetAdvisorService_LLMErrorFallsBackToRules(t *testing.T) {
	pets := repository.NewInMemoryStore().Pets()
	_ = pets.Upsert(context.Background(), domain.PetProfile{UserID: "u1", Name: "Luna", Species: "gato"})
	svc := NewPetAdvisorService(pets, &llm.MockClient{Err: errors.New("timeout")}, nil)

	res, err := svc.Chat(context.Background(), "u1", "mi gata no usa el arenero", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Strategy != StrategyFallback {
		t.Fatalf("expected fallback, got %s", res.Strategy)
	}
	if !res.Response.PetVoiceResponse.HasRegisteredPet || res.Response.PetVoiceResponse.PetName != "Luna" {
		t.Fatalf("expected pet voice from registered pet, got %+v", res.Response.PetVoiceResponse)
	}
	if !containsString(res.Response.RecommendationTypes, "litter") {
		t.Fatalf("expected litter recommendations, got %v", res.Response.RecommendationTypes)
	}
}

func TestPetAdvisorService_NoPetNoLLM(t *testing.T) {
	svc := NewPetAdvisorService(failingPetRepo{err: errors.New("db down")}, nil, nil)

	res, err := svc.Chat(context.Background(), "u1", "my dog is sick and vomiting", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Strategy != StrategyFallback || res.Response.PetVoiceResponse.HasRegisteredPet {
		t.Fatalf("expected fallback without pet voice, got %+v", res)
	}
	if !containsString(res.Response.RecommendationTypes, "veterinary") {
		t.Fatalf("expected veterinary recommendation, got %v", res.Response.RecommendationTypes)
	}

	if _, err := svc.Chat(context.Background(), "u1", "   ", nil); !errors.Is(err, ErrPetInvalidInput) {
		t.Fatalf("expected ErrPetInvalidInput, got %v", err)
	}
}

func TestBuildPetPrompt_NoPetAndHistoryTrim(t *testing.T) {
	prompt := buildPetPrompt("hola", nil, []domain.ChatTurn{{Role: "assistant", Content: "¿En qué te ayudo?"}})
	if !strings.Contains(prompt, "hasRegisteredPet debe ser false") {
		t.Fatalf("expected no-pet directive")
	}
	if !strings.Contains(prompt, "Asesor: ¿En qué te ayudo?") {
		t.Fatalf("expected assistant turn labelled")
	}
}
