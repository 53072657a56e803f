package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"unsent/internal/crypto"
	"unsent/internal/domain"
)

type mockMessageServiceRepo struct {
	lastCreated      domain.Message
	createErr        error
	listData         []domain.Message
	listErr          error
	lastConversation string
}

func (m *mockMessageServiceRepo) Create(_ context.Context, message domain.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastCreated = message
	m.listData = append(m.listData, message)
	return nil
}

func (m *mockMessageServiceRepo) ListByConversationID(_ context.Context, conversationID string) ([]domain.Message, error) {
	m.lastConversation = conversationID
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Message, len(m.listData))
	copy(out, m.listData)
	return out, nil
}

func testCipher(t *testing.T) crypto.ContentCipher {
	t.Helper()
	c, err := crypto.NewContentCipher("test-secret")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	return c
}

func TestMessageServiceSave_NormalizesAndDefaults(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo, nil)

	saved, err := svc.Save(context.Background(), domain.Message{
		UserID:         " u1 ",
		ConversationID: " c1 ",
		Role:           " recipient ",
		Content:        " hola ",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.lastCreated.ID == "" || saved.ID != repo.lastCreated.ID {
		t.Fatalf("expected generated id shared with returned message")
	}
	if repo.lastCreated.CreatedAt.IsZero() {
		t.Fatalf("expected created_at default")
	}
	if repo.lastCreated.UserID != "u1" || repo.lastCreated.ConversationID != "c1" {
		t.Fatalf("expected trimmed ids, got user=%q conversation=%q", repo.lastCreated.UserID, repo.lastCreated.ConversationID)
	}
	if repo.lastCreated.Role != "recipient" || repo.lastCreated.Content != "hola" {
		t.Fatalf("expected trimmed role/content, got role=%q content=%q", repo.lastCreated.Role, repo.lastCreated.Content)
	}
}

func TestMessageServiceSave_Validation(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo, nil)

	cases := []domain.Message{
		{ConversationID: "c1", Role: "user", Content: "hola"},
		{UserID: "u1", Role: "user", Content: "hola"},
		{UserID: "u1", ConversationID: "c1", Content: "hola"},
		{UserID: "u1", ConversationID: "c1", Role: "user", Content: "   "},
	}
	for i, c := range cases {
		if _, err := svc.Save(context.Background(), c); !errors.Is(err, ErrMessageInvalidInput) {
			t.Fatalf("case %d expected ErrMessageInvalidInput, got %v", i, err)
		}
	}
}

func TestMessageServiceSave_PreservesExplicitFields(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo, nil)
	now := time.Now().UTC().Add(-time.Minute)

	msg := domain.Message{
		ID:             "m1",
		UserID:         "u1",
		ConversationID: "c1",
		Role:           "user",
		Content:        "hola",
		CreatedAt:      now,
	}
	if _, err := svc.Save(context.Background(), msg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.lastCreated.ID != "m1" || !repo.lastCreated.CreatedAt.Equal(now) {
		t.Fatalf("expected explicit id/created_at preserved")
	}
}

func TestMessageService_EncryptsAtRest(t *testing.T) {
	repo := &mockMessageServiceRepo{}
	svc := NewMessageService(repo, testCipher(t))

	saved, err := svc.Save(context.Background(), domain.Message{
		UserID: "u1", ConversationID: "c1", Role: domain.RoleUser, Content: "te extraño",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Content != "te extraño" {
		t.Fatalf("expected plain content returned, got %q", saved.Content)
	}
	if !strings.HasPrefix(repo.lastCreated.Content, "enc:v1:") {
		t.Fatalf("expected encrypted content in repo, got %q", repo.lastCreated.Content)
	}

	out, err := svc.ListByConversation(context.Background(), " c1 ")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastConversation != "c1" {
		t.Fatalf("expected trimmed conversation id, got %q", repo.lastConversation)
	}
	if len(out) != 1 || out[0].Content != "te extraño" {
		t.Fatalf("expected decrypted message, got %+v", out)
	}
}

func TestMessageServiceListByConversation_EmptyID(t *testing.T) {
	svc := NewMessageService(&mockMessageServiceRepo{}, nil)
	out, err := svc.ListByConversation(context.Background(), "  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty list, got %+v", out)
	}
}

func TestMessageService_Errors(t *testing.T) {
	var svc *MessageService
	if _, err := svc.Save(context.Background(), domain.Message{}); !errors.Is(err, ErrMessageServiceNotConfigured) {
		t.Fatalf("expected ErrMessageServiceNotConfigured, got %v", err)
	}

	svc = NewMessageService(nil, nil)
	if _, err := svc.ListByConversation(context.Background(), "c1"); !errors.Is(err, ErrMessageServiceNotConfigured) {
		t.Fatalf("expected ErrMessageServiceNotConfigured, got %v", err)
	}

	boom := errors.New("db down")
	svc = NewMessageService(&mockMessageServiceRepo{createErr: boom, listErr: boom}, nil)
	if _, err := svc.Save(context.Background(), domain.Message{UserID: "u", ConversationID: "c", Role: "user", Content: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
	if _, err := svc.ListByConversation(context.Background(), "c"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}
