package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/classmate-ai/backend/model"
	"github.com/classmate-ai/backend/services/digitalocean"
)

// ErrChatNotConfigured means no LLM credentials are set. Handlers map this
// to 501 so clients can distinguish "chat disabled" from an upstream failure.
var ErrChatNotConfigured = errors.New("chat is not configured: set DO_INFERENCE_KEY")

const (
	maxExcerptChars = 900
	maxSnippetChars = 200

	fallbackReply = "I’m not sure—could you rephrase your question or provide more course context?"
)

// LLMClient is the slice of the inference client the chat engine needs
type LLMClient interface {
	IsConfigured() bool
	ChatCompletion(ctx context.Context, messages []digitalocean.InferenceMessage) (string, error)
}

// ChatHistoryItem is one prior message passed as conversational context
type ChatHistoryItem struct {
	Role    string
	Content string
}

// ChatEngine produces grounded assistant replies for course-scoped chat.
// Retrieved excerpts are injected into the prompt and every excerpt shown to
// the model comes back as a citation, in the same order.
type ChatEngine struct {
	llm        LLMClient
	historyMax int
}

// NewChatEngine creates a chat engine
func NewChatEngine(llm LLMClient, historyMax int) *ChatEngine {
	if historyMax <= 0 {
		historyMax = 12
	}
	return &ChatEngine{llm: llm, historyMax: historyMax}
}

// GenerateReplyInput carries everything needed for one assistant turn
type GenerateReplyInput struct {
	CourseName        string
	CourseDescription string
	History           []ChatHistoryItem
	UserMessage       string
	Hits              []RagHit
}

// truncate cuts s to at most max bytes without splitting a multi-byte rune,
// appending "..." when anything was cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func buildSystemPrompt(courseName, courseDescription string) string {
	desc := strings.TrimSpace(courseDescription)
	if desc == "" {
		desc = "(none)"
	}
	return "You are ClassMate, a helpful teaching assistant for a single course.\n" +
		"Rules:\n" +
		"- Stay scoped to the course context provided.\n" +
		"- If you lack course materials to answer confidently, ask a clarifying question or suggest what to upload.\n" +
		"- Do not fabricate citations. If you reference course materials, describe what you'd need to cite.\n" +
		"\n" +
		"Course name: " + courseName + "\n" +
		"Course description: " + desc + "\n"
}

// describeSource renders a short human-readable origin for an excerpt header
func describeSource(meta model.ChunkMetadata) string {
	name := meta.OriginalFilename
	if name == "" {
		name = meta.Title
	}
	if name == "" {
		name = "course material"
	}

	switch {
	case meta.SlideNo > 0:
		return fmt.Sprintf("%s (slide %d)", name, meta.SlideNo)
	case meta.PageStart > 0 && meta.PageEnd > meta.PageStart:
		return fmt.Sprintf("%s (pages %d-%d)", name, meta.PageStart, meta.PageEnd)
	case meta.PageStart > 0:
		return fmt.Sprintf("%s (page %d)", name, meta.PageStart)
	case meta.EndSec > 0:
		if meta.ChapterTitle != "" {
			return fmt.Sprintf("%s (%s, %.0fs-%.0fs)", name, meta.ChapterTitle, meta.StartSec, meta.EndSec)
		}
		return fmt.Sprintf("%s (%.0fs-%.0fs)", name, meta.StartSec, meta.EndSec)
	default:
		return name
	}
}

// buildExcerptsMessage numbers the retrieved excerpts so the model can refer
// to them; the numbering matches the returned citations slice.
func buildExcerptsMessage(hits []RagHit) string {
	var b strings.Builder
	b.WriteString("Relevant excerpts from the course materials. ")
	b.WriteString("Use them to ground your answer; refer to them by their number when helpful.\n")
	for i, hit := range hits {
		text := truncate(strings.TrimSpace(hit.Text), maxExcerptChars)
		b.WriteString(fmt.Sprintf("\n[%d] %s\n%s\n", i+1, describeSource(hit.Metadata), text))
	}
	return b.String()
}

// hitsToCitations maps retrieved hits to citations one-to-one, in order.
// Extra carries the camelCase provenance fields the frontend renders.
func hitsToCitations(hits []RagHit) model.Citations {
	citations := make(model.Citations, 0, len(hits))
	for _, hit := range hits {
		meta := hit.Metadata

		title := meta.Title
		if title == "" {
			title = meta.OriginalFilename
		}

		snippet := truncate(strings.TrimSpace(hit.Text), maxSnippetChars)

		extra := map[string]interface{}{}
		if meta.PageStart > 0 {
			extra["pageStart"] = meta.PageStart
		}
		if meta.PageEnd > 0 {
			extra["pageEnd"] = meta.PageEnd
		}
		if meta.SourceKind != "" {
			extra["sourceKind"] = meta.SourceKind
		}
		if meta.SlideNo > 0 {
			extra["slideNo"] = meta.SlideNo
		}
		if meta.EndSec > 0 {
			extra["startSec"] = meta.StartSec
			extra["endSec"] = meta.EndSec
		}

		citations = append(citations, model.Citation{
			ContentID: meta.ContentID,
			Title:     title,
			Snippet:   snippet,
			Extra:     extra,
		})
	}
	return citations
}

// GenerateReply produces the assistant reply and the citations backing it.
// Returns ErrChatNotConfigured when no LLM is configured; any other error
// means the upstream call failed.
func (e *ChatEngine) GenerateReply(ctx context.Context, in GenerateReplyInput) (string, model.Citations, error) {
	if !e.llm.IsConfigured() {
		return "", nil, ErrChatNotConfigured
	}

	history := in.History
	if len(history) > e.historyMax {
		history = history[len(history)-e.historyMax:]
	}

	messages := []digitalocean.InferenceMessage{
		{Role: "system", Content: buildSystemPrompt(in.CourseName, in.CourseDescription)},
	}
	if len(in.Hits) > 0 {
		messages = append(messages, digitalocean.InferenceMessage{
			Role:    "system",
			Content: buildExcerptsMessage(in.Hits),
		})
	}
	for _, item := range history {
		switch model.MessageRole(strings.ToLower(strings.TrimSpace(item.Role))) {
		case model.MessageRoleUser:
			messages = append(messages, digitalocean.InferenceMessage{Role: "user", Content: item.Content})
		case model.MessageRoleAssistant:
			messages = append(messages, digitalocean.InferenceMessage{Role: "assistant", Content: item.Content})
		}
		// Unknown roles are dropped
	}
	messages = append(messages, digitalocean.InferenceMessage{Role: "user", Content: in.UserMessage})

	text, err := e.llm.ChatCompletion(ctx, messages)
	if err != nil {
		if errors.Is(err, digitalocean.ErrInferenceNotConfigured) {
			return "", nil, ErrChatNotConfigured
		}
		return "", nil, fmt.Errorf("chat completion failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = fallbackReply
	}

	return text, hitsToCitations(in.Hits), nil
}

// GenerateTitle asks the model for a short conversation title based on the
// first user message. Best-effort: any failure yields an empty title and the
// UI falls back to a generic label.
func (e *ChatEngine) GenerateTitle(ctx context.Context, courseName, firstUserMessage string) string {
	if !e.llm.IsConfigured() {
		return ""
	}

	messages := []digitalocean.InferenceMessage{
		{
			Role: "system",
			Content: "You name chat conversations for a course assistant. " +
				"Reply with a short title (at most 6 words) describing the user's question. " +
				"No quotes, no punctuation at the end.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Course: %s\nFirst message: %s", courseName, firstUserMessage),
		},
	}

	title, err := e.llm.ChatCompletion(ctx, messages)
	if err != nil {
		return ""
	}

	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"'`))
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	if len(title) > 80 {
		title = strings.TrimSpace(title[:80])
	}
	return title
}
