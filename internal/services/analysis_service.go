// Package services – AnalysisService
//
// This file implements AnalysisService, which owns the attachment analysis
// flow: store the uploaded file, obtain raw analysis text (remote model when
// configured, offline heuristics otherwise), parse it into a structured
// result, and persist the upload/analysis message pair atomically.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dermasense/assistant-backend/internal/assistant"
	"github.com/dermasense/assistant-backend/internal/domain"
	"github.com/dermasense/assistant-backend/internal/repo"
	"github.com/dermasense/assistant-backend/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FileAnalyzer is the remote analysis capability. *inference.Client satisfies
// it; it is nil when the server runs offline.
type FileAnalyzer interface {
	AnalyzeFile(ctx context.Context, filename string, data []byte) (string, error)
}

// AnalysisService coordinates attachment storage, analysis, and persistence.
type AnalysisService struct {
	DB     *gorm.DB
	Files  *storage.FileStore
	Remote FileAnalyzer
	Parser assistant.Parser

	// MaxBytes bounds accepted uploads; 0 disables the check (the HTTP layer
	// enforces its own body limit regardless).
	MaxBytes int64
}

// AnalyzeUpload stores the attachment, analyzes it, and persists a user
// message referencing the file plus an assistant message carrying the parsed
// analysis. It returns the assistant message and the follow-up questions for
// the response envelope (follow-ups are not persisted).
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, userID, conversationID, filename string, data []byte) (*domain.Message, []string, error) {
	tr := otel.Tracer("services/AnalysisService")
	ctx, span := tr.Start(ctx, "AnalyzeUpload",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
			attribute.Int("file.bytes", len(data)),
		),
	)
	defer span.End()

	if len(data) == 0 {
		return nil, nil, ErrEmptyUpload
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, nil, ErrTooLong
	}

	// Ensure the conversation exists and belongs to the user.
	if _, err := repo.GetConversation(ctx, s.DB, conversationID, userID); err != nil {
		return nil, nil, ErrConversationNotFound
	}

	url, kind, err := s.Files.Save(userID, filename, data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, nil, ErrUnsupportedAttachment
		}
		return nil, nil, err
	}

	raw := s.rawAnalysis(ctx, filename, kind, data)
	res := s.Parser.Parse(raw)

	var assistantMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(ctx, tx, repo.NewMessage{
			ConversationID: conversationID,
			Role:           domain.RoleUser,
			Content:        fmt.Sprintf("Uploaded %s for analysis", filename),
			AttachmentURL:  url,
			AttachmentType: string(kind),
		}); err != nil {
			return err
		}
		m, err := repo.CreateMessage(ctx, tx, repo.NewMessage{
			ConversationID:  conversationID,
			Role:            domain.RoleAssistant,
			Content:         res.Analysis,
			Confidence:      &res.Confidence,
			Recommendations: res.Recommendations,
		})
		if err != nil {
			return err
		}
		assistantMsg = m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return assistantMsg, res.FollowUpQuestions, nil
}

// rawAnalysis obtains analysis text, preferring the remote model and
// degrading to the offline heuristics on any failure.
func (s *AnalysisService) rawAnalysis(ctx context.Context, filename string, kind storage.Kind, data []byte) string {
	if s.Remote != nil {
		text, err := s.Remote.AnalyzeFile(ctx, filename, data)
		if err == nil {
			return text
		}
		log.Warn().Err(err).Str("file", filename).Msg("remote analysis failed; using offline analysis")
	}
	if kind == storage.KindPDF {
		return assistant.OfflinePDFAnalysis(filename)
	}
	return assistant.OfflineImageAnalysis(filename)
}
