package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"unsent/internal/crypto"
	"unsent/internal/domain"
	"unsent/internal/llm"
	"unsent/internal/repository"
	"unsent/internal/service"
)

type testAPI struct {
	router *gin.Engine
	jwt    *service.JWTService
	llm    *llm.MockClient
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cipher, err := crypto.NewContentCipher("test-secret")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	store := repository.NewInMemoryStore()
	client := &llm.MockClient{Response: `{"reply":"Aqui estoy.","tone":"warm"}`}
	msgs := service.NewMessageService(store.Messages(), cipher)
	replies := service.NewReplyService(client, msgs, service.NewBasicContextService(msgs), nil)
	convs := service.NewConversationService(store.Conversations(), msgs, replies, service.NewMemoryReplyRateLimiter(time.Hour, 10), nil)
	advisor := service.NewPetAdvisorService(store.Pets(), client, nil)
	jwtSvc := service.NewJWTService("secret", 15*time.Minute)

	r := NewRouter(nil, nil, jwtSvc,
		NewAnalysisHandler(nil),
		NewConversationHandler(nil, convs),
		NewPetHandler(nil, advisor),
	)
	return testAPI{router: r, jwt: jwtSvc, llm: client}
}

func (a testAPI) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := a.jwt.GenerateAccessToken(domain.User{ID: userID})
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v; body=%s", err, rec.Body.String())
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	api := newTestAPI(t)

	if rec := api.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/stages", "", nil)
	var stages struct {
		Stages []domain.StageDefinition `json:"stages"`
	}
	decodeBody(t, rec, &stages)
	if len(stages.Stages) != len(domain.StageOrder) || stages.Stages[0].Stage != domain.StageDenial {
		t.Fatalf("unexpected stages %+v", stages.Stages)
	}

	if rec := api.do(t, http.MethodPost, "/analyze", "", map[string]any{"content": "  "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("analyze blank: expected 400, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/analyze", "", map[string]any{"content": "I am so angry, this is unfair", "time_spent": 90})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d", rec.Code)
	}
	var analyzed struct {
		Analysis     domain.MessageEmotionalAnalysis `json:"analysis"`
		NextStepHint string                          `json:"next_step_hint"`
	}
	decodeBody(t, rec, &analyzed)
	if analyzed.Analysis.Stage != domain.StageAnger || analyzed.NextStepHint == "" {
		t.Fatalf("unexpected analysis %+v", analyzed)
	}
}

func TestRouter_ConversationFlow(t *testing.T) {
	api := newTestAPI(t)

	if rec := api.do(t, http.MethodGet, "/conversations", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPost, "/conversations", "u1", map[string]any{"recipient_name": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty recipient, got %d", rec.Code)
	}

	rec := api.do(t, http.MethodPost, "/conversations", "u1", map[string]any{"recipient_name": "Ana", "recipient_type": "real"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		Conversation domain.Conversation `json:"conversation"`
	}
	decodeBody(t, rec, &created)
	convPath := "/conversations/" + created.Conversation.ID

	rec = api.do(t, http.MethodPost, convPath+"/messages", "u1", map[string]any{"content": "te extraño", "time_spent": 60, "want_reply": true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post message: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var posted service.PostMessageResult
	decodeBody(t, rec, &posted)
	if posted.Message.Analysis == nil || posted.Conversation.MessageCount != 1 {
		t.Fatalf("expected scored message, got %+v", posted)
	}
	if posted.Reply == nil || posted.Reply.Message.Content != "Aqui estoy." {
		t.Fatalf("expected reply, got %+v", posted.Reply)
	}

	if rec := api.do(t, http.MethodPost, convPath+"/messages", "u1", map[string]any{"content": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, convPath, "u2", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, convPath, "u1", nil)
	var detail struct {
		Conversation domain.Conversation `json:"conversation"`
		Messages     []domain.Message    `json:"messages"`
	}
	decodeBody(t, rec, &detail)
	if len(detail.Messages) != 2 || detail.Messages[0].Content != "te extraño" {
		t.Fatalf("expected decrypted history with reply, got %+v", detail.Messages)
	}

	rec = api.do(t, http.MethodGet, "/conversations", "u1", nil)
	var list struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	decodeBody(t, rec, &list)
	if len(list.Conversations) != 1 {
		t.Fatalf("expected one conversation, got %d", len(list.Conversations))
	}
}

func TestRouter_PetEndpoints(t *testing.T) {
	api := newTestAPI(t)

	if rec := api.do(t, http.MethodGet, "/pets/profile", "u1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before registering, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPut, "/pets/profile", "u1", map[string]any{"name": "Luna"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without species, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPut, "/pets/profile", "u1", map[string]any{"name": "Luna", "species": "gato", "age_years": 3}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on save, got %d", rec.Code)
	}

	api.llm.Err = errors.New("provider down")
	rec := api.do(t, http.MethodPost, "/pets/chat", "u1", map[string]any{"query": "mi gata no usa el arenero"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on chat, got %d body=%s", rec.Code, rec.Body.String())
	}
	var chat service.PetChatResult
	decodeBody(t, rec, &chat)
	if chat.Strategy != service.StrategyFallback || chat.Response.PetVoiceResponse.PetName != "Luna" {
		t.Fatalf("expected fallback with pet voice, got %+v", chat)
	}

	if rec := api.do(t, http.MethodPost, "/pets/chat", "u1", map[string]any{"query": " "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank query, got %d", rec.Code)
	}
}
