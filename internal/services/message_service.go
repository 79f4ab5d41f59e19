// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of conversation messages and assistant replies. It
// validates inputs, checks conversation ownership, resolves a reply through
// the configured provider (remote inference when available, the built-in rule
// engine otherwise), and persists the user/assistant message pair atomically.
//
// Optional enhancement: it also auto-generates a conversation title from the
// first user prompt when the conversation still has a default/empty title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include conversation/user identifiers and pagination parameters where
// applicable.
package services

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dermasense/assistant-backend/internal/assistant"
	"github.com/dermasense/assistant-backend/internal/domain"
	"github.com/dermasense/assistant-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// default titles we consider placeholders eligible for auto-generation
	defaultTitleNew      = "New conversation"
	defaultTitleUntitled = "Untitled"
)

// MessageService coordinates message persistence and assistant replies.
//
// Provider is the preferred reply source (typically the remote inference
// client); it may be nil when the server runs offline. Engine is the built-in
// rule engine used when Provider is unset or fails; when nil, a default
// engine is constructed on demand.
type MessageService struct {
	DB       *gorm.DB
	Provider assistant.ReplyProvider
	Engine   *assistant.Engine

	// HistoryLimit is how many recent turns are forwarded to the provider.
	HistoryLimit int

	// Optional guards
	MaxPromptRunes int
	MaxReplyRunes  int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// Answer validates prompt, verifies the conversation, resolves a reply, and
// persists both user and assistant messages atomically. It may auto-generate
// a conversation title. The returned suggestions are quick-reply chips for
// the client; they are not persisted.
func (s *MessageService) Answer(ctx context.Context, userID, conversationID, prompt string) (*domain.Message, []string, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	// Normalize & validate prompt
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return nil, nil, ErrTooLong
	}

	// Ensure the conversation exists and belongs to the user
	conv, err := repo.GetConversation(ctx, s.DB, conversationID, userID)
	if err != nil {
		return nil, nil, ErrConversationNotFound
	}

	reply := s.resolveReply(ctx, conversationID, prompt)

	// Persist user + assistant (and maybe update title) in one transaction
	var assistantMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(ctx, tx, repo.NewMessage{
			ConversationID: conversationID,
			Role:           domain.RoleUser,
			Content:        prompt,
		}); err != nil {
			return err
		}
		m, err := repo.CreateMessage(ctx, tx, repo.NewMessage{
			ConversationID: conversationID,
			Role:           domain.RoleAssistant,
			Content:        reply.Text,
		})
		if err != nil {
			return err
		}
		assistantMsg = m

		// Auto-title if placeholder
		if s.shouldAutoTitle(conv.Title) {
			gen := s.generateTitleFromPrompt(prompt)
			if gen != "" {
				gen = s.clipTitle(gen)
				if uerr := tx.Model(&domain.Conversation{}).Where("id = ?", conversationID).Update("title", gen).Error; uerr == nil {
					conv.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Clip reply length if configured
	if s.MaxReplyRunes > 0 && utf8.RuneCountInString(assistantMsg.Content) > s.MaxReplyRunes {
		runes := []rune(assistantMsg.Content)
		assistantMsg.Content = string(runes[:s.MaxReplyRunes])
	}

	return assistantMsg, reply.Suggestions, nil
}

// ListPage returns paginated messages for a conversation.
func (s *MessageService) ListPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Ensure the conversation exists
	var convCount int64
	if err := s.DB.WithContext(ctx).Model(&domain.Conversation{}).Where("id = ?", conversationID).Count(&convCount).Error; err != nil {
		return nil, 0, err
	}
	if convCount == 0 {
		return nil, 0, ErrConversationNotFound
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	return items, total, err
}

// resolveReply tries the remote provider first and degrades to the rule
// engine on any failure. The rule engine never errors, so this always
// produces a reply.
func (s *MessageService) resolveReply(ctx context.Context, conversationID, prompt string) assistant.Reply {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "resolveReply")
	defer span.End()

	history := s.historyWindow(ctx, conversationID)

	if s.Provider != nil {
		r, err := s.Provider.Reply(ctx, prompt, history)
		if err == nil {
			span.SetAttributes(attribute.String("reply.source", "provider"))
			return r
		}
		log.Warn().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("inference provider failed; falling back to rule engine")
	}

	span.SetAttributes(attribute.String("reply.source", "engine"))
	r, _ := s.engine().Reply(ctx, prompt, history)
	return r
}

// historyWindow loads the recent turns forwarded to the provider. Failures
// degrade to an empty history rather than blocking the reply.
func (s *MessageService) historyWindow(ctx context.Context, conversationID string) []assistant.Turn {
	if s.HistoryLimit <= 0 {
		return nil
	}
	msgs, err := repo.LastMessages(ctx, s.DB, conversationID, s.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("could not load history window")
		return nil
	}
	turns := make([]assistant.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, assistant.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func (s *MessageService) engine() *assistant.Engine {
	if s.Engine != nil {
		return s.Engine
	}
	return assistant.NewEngine(nil, 0)
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *MessageService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromPrompt derives a concise title from the prompt.
func (s *MessageService) generateTitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *MessageService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *MessageService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "spf50").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
