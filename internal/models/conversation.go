package models

import "strings"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxHistoryTurns is how many trailing conversation turns reach the model.
const MaxHistoryTurns = 6

// ConversationTurn is a previous message supplied by the client.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessage is a provider-neutral chat message.
type ChatMessage struct {
	Role    string
	Content string
}

type Mode string

const (
	ModeShort Mode = "short"
	ModeLong  Mode = "long"
)

// ParseMode maps a client supplied mode to a known one; anything other than
// "long" (case-insensitive) is short.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeLong)) {
		return ModeLong
	}
	return ModeShort
}

// GenerationConfig holds the sampling parameters and system prompt for a mode.
type GenerationConfig struct {
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

const (
	shortSystemPrompt = "Você é um assistente para estudantes de programação. " +
		"Responda SEMPRE de forma concisa e direta (até ~150-200 palavras), " +
		"com início, meio e fim claros. Use tópicos curtos quando apropriado e inclua um fechamento rápido. " +
		"Evite rodeios, citação excessiva e conteúdo irrelevante. Se a pergunta pedir um resumo, seja ainda mais breve."

	longSystemPrompt = "Você é um assistente para estudantes de programação. " +
		"Responda de forma clara, estruturada e completa, porém objetiva. Use seções e exemplos quando necessário. " +
		"Finalize com um resumo curto do que foi respondido."
)

// Generation returns the generation parameters for m.
func (m Mode) Generation() GenerationConfig {
	if m == ModeLong {
		return GenerationConfig{Temperature: 0.3, MaxTokens: 600, SystemPrompt: longSystemPrompt}
	}
	return GenerationConfig{Temperature: 0.2, MaxTokens: 300, SystemPrompt: shortSystemPrompt}
}

// ChatRequest is what a chat model receives for one generation.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}
