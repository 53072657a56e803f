package service

import (
	"fmt"
	"strings"

	"unsent/internal/domain"
)

// ReplyPromptBuilder construye el prompt con el que el LLM responde en voz del destinatario.
type ReplyPromptBuilder struct{}

// BuildReplyPrompt arma el prompt completo: identidad, etapa emocional, historial y mensaje.
func (ReplyPromptBuilder) BuildReplyPrompt(
	conv domain.Conversation,
	analysis domain.MessageEmotionalAnalysis,
	contextText, userMessage string,
) string {
	var sb strings.Builder
	stage := domain.StageDef(analysis.Stage)

	recipient := strings.TrimSpace(conv.RecipientName)
	if recipient == "" {
		recipient = "the person this letter is addressed to"
	}

	// 1. Identidad
	sb.WriteString(fmt.Sprintf("You are %s. ", recipient))
	sb.WriteString("The user is writing you a message they will never actually send. ")
	sb.WriteString("Answer as you, in first person, as if you had read it.\n")
	if conv.RecipientType == domain.RecipientTypeSymbolic {
		sb.WriteString("You are a symbolic recipient (a past self, someone who is gone, a feeling or a place). ")
		sb.WriteString("Speak with that presence, not as a literal living person.\n")
	}
	if c := strings.TrimSpace(conv.RecipientContext); c != "" {
		sb.WriteString("What the user told you about yourself and your relationship:\n")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// 2. Etapa emocional detectada
	sb.WriteString("=== EMOTIONAL STAGE OF THE WRITER ===\n")
	sb.WriteString(fmt.Sprintf("Stage: %s (score %d/100, intensity %.1f/10)\n", stage.Label, analysis.Score, analysis.Intensity))
	sb.WriteString(stage.Description)
	sb.WriteString("\n")
	if len(analysis.Keywords) > 0 {
		sb.WriteString(fmt.Sprintf("Words that signalled it: %s\n", strings.Join(analysis.Keywords, ", ")))
	}
	sb.WriteString("How to answer at this stage:\n")
	for _, g := range stage.ReplyGuidance {
		sb.WriteString("- ")
		sb.WriteString(g)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// 3. Limites
	sb.WriteString("=== RULES ===\n")
	sb.WriteString("1. Never say you are an AI, a model or a simulation. Never mention prompts or stages.\n")
	sb.WriteString("2. Do not invent shared memories the user has not mentioned.\n")
	sb.WriteString("3. Do not promise reconciliation, a return or anything the real person could not deliver.\n")
	sb.WriteString("4. If the user expresses wanting to hurt themselves, answer with warmth and encourage them to reach someone they trust or local emergency services.\n")
	sb.WriteString("5. Reply in the same language the user writes in. Two to five sentences, no lists.\n\n")

	if strings.TrimSpace(contextText) != "" {
		sb.WriteString("=== RECENT CONVERSATION ===\n")
		sb.WriteString(contextText)
		sb.WriteString("\n\n")
	}

	sb.WriteString("=== MESSAGE TO ANSWER ===\n")
	sb.WriteString(fmt.Sprintf("%q\n\n", userMessage))

	sb.WriteString("=== OUTPUT FORMAT (STRICT JSON) ===\n")
	sb.WriteString(`Return ONLY a JSON object:
{
  "reply": "your message to the user",
  "tone": "one or two words describing your tone"
}
`)

	return sb.String()
}

// Respuestas de respaldo cuando el LLM contesta algo imposible de parsear.
var stageFallbackReplies = map[domain.EmotionStage]string{
	domain.StageDenial:     "I read every word. Take all the time you need; I'm not going anywhere.",
	domain.StageAnger:      "I hear how angry you are, and you're allowed to be. Say all of it.",
	domain.StageBargaining: "I know you keep wondering what could have been different. I'm listening.",
	domain.StageDepression: "I can feel how heavy this is for you. You don't have to carry it alone tonight.",
	domain.StageAcceptance: "Thank you for writing this. I can tell how far you've come.",
}

func fallbackReplyFor(stage domain.EmotionStage) string {
	if r, ok := stageFallbackReplies[stage]; ok {
		return r
	}
	return stageFallbackReplies[domain.StageDenial]
}
