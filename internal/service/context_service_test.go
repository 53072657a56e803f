package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"unsent/internal/domain"
)

type mockMessageLister struct {
	msgs []domain.Message
	err  error
}

func (m *mockMessageLister) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	return m.msgs, m.err
}

func TestBasicContextService_GetContext(t *testing.T) {
	conv := domain.Conversation{ID: "c1", RecipientName: "Mamá"}

	t.Run("pocos mensajes", func(t *testing.T) {
		msgs := []domain.Message{
			{Role: domain.RoleUser, Content: "hola", CreatedAt: time.Now().Add(-3 * time.Minute)},
			{Role: domain.RoleRecipient, Content: "hola, ¿cómo estás?", CreatedAt: time.Now().Add(-2 * time.Minute)},
			{Role: domain.RoleUser, Content: "bien", CreatedAt: time.Now().Add(-1 * time.Minute)},
		}
		svc := NewBasicContextService(&mockMessageLister{msgs: msgs})

		ctxText, err := svc.GetContext(context.Background(), conv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !containsAllInOrder(ctxText, []string{"Usuario: hola", "Mamá: hola, ¿cómo estás?", "Usuario: bien"}) {
			t.Fatalf("expected messages in order, got: %s", ctxText)
		}
	})

	t.Run("muchos mensajes recorta a 10", func(t *testing.T) {
		var msgs []domain.Message
		now := time.Now()
		for i := 1; i <= 15; i++ {
			msgs = append(msgs, domain.Message{
				Role:      domain.RoleUser,
				Content:   fmt.Sprintf("msg%d", i),
				CreatedAt: now.Add(time.Duration(i) * time.Minute),
			})
		}
		svc := NewBasicContextService(&mockMessageLister{msgs: msgs})

		ctxText, err := svc.GetContext(context.Background(), conv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(ctxText, "\n")
		if len(lines) != 10 {
			t.Fatalf("expected 10 lines, got %d", len(lines))
		}
		if !strings.Contains(lines[0], "msg6") || !strings.Contains(lines[len(lines)-1], "msg15") {
			t.Fatalf("expected context to start at msg6 and end at msg15, got: %s ... %s", lines[0], lines[len(lines)-1])
		}
	})

	t.Run("orden invertido se corrige", func(t *testing.T) {
		now := time.Now()
		msgs := []domain.Message{
			{Role: domain.RoleRecipient, Content: "segundo", CreatedAt: now.Add(1 * time.Minute)},
			{Role: domain.RoleUser, Content: "primero", CreatedAt: now},
		}
		svc := NewBasicContextService(&mockMessageLister{msgs: msgs})

		ctxText, err := svc.GetContext(context.Background(), domain.Conversation{ID: "c1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := "Usuario: primero\nDestinatario: segundo"
		if ctxText != expected {
			t.Fatalf("expected chronological order, got: %s", ctxText)
		}
	})

	t.Run("sin historial", func(t *testing.T) {
		svc := NewBasicContextService(&mockMessageLister{msgs: []domain.Message{}})

		ctxText, err := svc.GetContext(context.Background(), conv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ctxText != "" {
			t.Fatalf("expected empty context, got: %q", ctxText)
		}
	})

	t.Run("error del listado", func(t *testing.T) {
		boom := errors.New("boom")
		svc := NewBasicContextService(&mockMessageLister{err: boom})
		if _, err := svc.GetContext(context.Background(), conv); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
	})
}

func containsAllInOrder(text string, parts []string) bool {
	idx := 0
	for _, p := range parts {
		pos := strings.Index(text[idx:], p)
		if pos == -1 {
			return false
		}
		idx += pos + len(p)
	}
	return true
}
