package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"unsent/internal/domain"
	"unsent/internal/llm"
)

type mockContextService struct {
	context string
	err     error
	calls   int
}

func (m *mockContextService) GetContext(context.Context, domain.Conversation) (string, error) {
	m.calls++
	return m.context, m.err
}

type mockMessageSaver struct {
	saved []domain.Message
	err   error
}

func (m *mockMessageSaver) Save(_ context.Context, msg domain.Message) (domain.Message, error) {
	if m.err != nil {
		return domain.Message{}, m.err
	}
	if msg.ID == "" {
		msg.ID = "generated"
	}
	m.saved = append(m.saved, msg)
	return msg, nil
}

func testConversation() domain.Conversation {
	return domain.Conversation{
		ID:               "c1",
		UserID:           "u1",
		RecipientName:    "Dad",
		RecipientType:    domain.RecipientTypeReal,
		RecipientContext: "He passed away last spring.",
	}
}

func TestBuildReplyPrompt_IncludesStageGuidanceAndContext(t *testing.T) {
	analysis := DefaultScoreEngine.Analyze("I am so angry, it was unfair", 30)
	prompt := ReplyPromptBuilder{}.BuildReplyPrompt(testConversation(), analysis, "Usuario: hola", "I am so angry, it was unfair")

	for _, want := range []string{
		"You are Dad.",
		"He passed away last spring.",
		"Stage: Anger",
		domain.EmotionStages[domain.StageAnger].ReplyGuidance[0],
		"=== RECENT CONVERSATION ===\nUsuario: hola",
		`"I am so angry, it was unfair"`,
		`"reply"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q; got:\n%s", want, prompt)
		}
	}
}

func TestBuildReplyPrompt_SymbolicAndNoContext(t *testing.T) {
	conv := domain.Conversation{ID: "c1", UserID: "u1", RecipientName: "My younger self", RecipientType: domain.RecipientTypeSymbolic}
	prompt := ReplyPromptBuilder{}.BuildReplyPrompt(conv, DefaultScoreEngine.Analyze("", 0), "", "hola")

	if !strings.Contains(prompt, "symbolic recipient") {
		t.Fatalf("expected symbolic directive")
	}
	if strings.Contains(prompt, "RECENT CONVERSATION") {
		t.Fatalf("expected no context section when history is empty")
	}
	if !strings.Contains(prompt, "Stage: Denial") {
		t.Fatalf("expected denial stage for neutral message")
	}
}

func TestReplyService_HappyPathPersistsRecipientMessage(t *testing.T) {
	saver := &mockMessageSaver{}
	ctxSvc := &mockContextService{context: "Usuario: hola"}
	client := &llm.MockClient{Response: "```json\n{\"reply\":\"I'm proud of you.\",\"tone\":\"warm\"}\n```"}
	svc := NewReplyService(client, saver, ctxSvc, nil)

	analysis := DefaultScoreEngine.Analyze("I finally accept it and I am at peace", 60)
	res, err := svc.Reply(context.Background(), testConversation(), " I finally accept it and I am at peace ", analysis)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Message.Content != "I'm proud of you." || res.Tone != "warm" || res.Fallback {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(saver.saved) != 1 || saver.saved[0].Role != domain.RoleRecipient || saver.saved[0].ConversationID != "c1" {
		t.Fatalf("expected one recipient message persisted, got %+v", saver.saved)
	}
	if ctxSvc.calls != 1 {
		t.Fatalf("expected context lookup")
	}
	if len(client.Formats) != 1 || client.Formats[0].Name != "recipient_reply" || client.Formats[0].Schema == nil {
		t.Fatalf("expected structured output request, got %+v", client.Formats)
	}
	if !strings.Contains(client.LastPrompt(), "I finally accept it and I am at peace") {
		t.Fatalf("expected trimmed user message in prompt")
	}
}

func TestReplyService_UnparseableUsesStageFallback(t *testing.T) {
	saver := &mockMessageSaver{}
	svc := NewReplyService(&llm.MockClient{Response: `{"reasoning":"only thoughts"}`}, saver, nil, nil)

	analysis := DefaultScoreEngine.Analyze("I hate you, this is unfair", 0)
	res, err := svc.Reply(context.Background(), testConversation(), "I hate you, this is unfair", analysis)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.Fallback || res.Message.Content != stageFallbackReplies[domain.StageAnger] {
		t.Fatalf("expected anger fallback, got %+v", res)
	}
	if strings.Contains(res.Message.Content, "thoughts") {
		t.Fatalf("leaked reasoning")
	}
}

func TestReplyService_Errors(t *testing.T) {
	analysis := DefaultScoreEngine.Analyze("hola", 0)

	var nilSvc *ReplyService
	if _, err := nilSvc.Reply(context.Background(), testConversation(), "hola", analysis); !errors.Is(err, ErrReplyNotConfigured) {
		t.Fatalf("expected ErrReplyNotConfigured, got %v", err)
	}

	svc := NewReplyService(&llm.MockClient{}, &mockMessageSaver{}, nil, nil)
	if _, err := svc.Reply(context.Background(), testConversation(), "   ", analysis); !errors.Is(err, ErrReplyInvalidInput) {
		t.Fatalf("expected ErrReplyInvalidInput, got %v", err)
	}

	boom := errors.New("provider down")
	svc = NewReplyService(&llm.MockClient{Err: boom}, &mockMessageSaver{}, nil, nil)
	if _, err := svc.Reply(context.Background(), testConversation(), "hola", analysis); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped llm error, got %v", err)
	}

	dbErr := errors.New("db down")
	svc = NewReplyService(&llm.MockClient{Response: `{"reply":"ok"}`}, &mockMessageSaver{err: dbErr}, nil, nil)
	if _, err := svc.Reply(context.Background(), testConversation(), "hola", analysis); !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped persist error, got %v", err)
	}
}

func TestReplyService_ContextErrorIsNotFatal(t *testing.T) {
	saver := &mockMessageSaver{}
	svc := NewReplyService(&llm.MockClient{Response: `{"reply":"here"}`}, saver, &mockContextService{err: errors.New("boom")}, nil)
	if _, err := svc.Reply(context.Background(), testConversation(), "hola", DefaultScoreEngine.Analyze("hola", 0)); err != nil {
		t.Fatalf("expected context failure to be tolerated, got %v", err)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("expected reply persisted")
	}
}
