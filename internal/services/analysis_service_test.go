package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dermasense/assistant-backend/internal/assistant"
	"github.com/dermasense/assistant-backend/internal/domain"
	"github.com/dermasense/assistant-backend/internal/storage"
)

func newAnalysisSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:analysissvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newAnalysisService(t *testing.T, db *gorm.DB, remote FileAnalyzer) *AnalysisService {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir(), "http://localhost/files")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return &AnalysisService{DB: db, Files: fs, Remote: remote, Parser: assistant.Parser{}}
}

// fakeAnalyzer scripts the remote analysis path.
type fakeAnalyzer struct {
	text  string
	err   error
	calls int
}

func (f *fakeAnalyzer) AnalyzeFile(_ context.Context, _ string, _ []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestAnalysisService_AnalyzeUpload_EmptyFile(t *testing.T) {
	db := newAnalysisSvcDB(t)
	svc := newAnalysisService(t, db, nil)

	_, _, err := svc.AnalyzeUpload(context.Background(), "u1", "c1", "lesion.jpg", nil)
	if !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload, got %v", err)
	}
}

func TestAnalysisService_AnalyzeUpload_TooLarge(t *testing.T) {
	db := newAnalysisSvcDB(t)
	svc := newAnalysisService(t, db, nil)
	svc.MaxBytes = 4

	_, _, err := svc.AnalyzeUpload(context.Background(), "u1", "c1", "lesion.jpg", []byte("12345"))
	if !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestAnalysisService_AnalyzeUpload_ConversationNotFound(t *testing.T) {
	db := newAnalysisSvcDB(t)
	svc := newAnalysisService(t, db, nil)

	_, _, err := svc.AnalyzeUpload(context.Background(), "u1", "missing", "lesion.jpg", []byte("img"))
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestAnalysisService_AnalyzeUpload_UnsupportedType(t *testing.T) {
	db := newAnalysisSvcDB(t)
	seedConversation(t, db, "c1", "u1", "t")
	svc := newAnalysisService(t, db, nil)

	_, _, err := svc.AnalyzeUpload(context.Background(), "u1", "c1", "malware.exe", []byte("MZ"))
	if !errors.Is(err, ErrUnsupportedAttachment) {
		t.Fatalf("expected ErrUnsupportedAttachment, got %v", err)
	}

	// Nothing is persisted for a rejected upload.
	var cnt int64
	if err := db.Model(&domain.Message{}).Count(&cnt).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected no messages, got %d", cnt)
	}
}

func TestAnalysisService_AnalyzeUpload_OfflineImage(t *testing.T) {
	db := newAnalysisSvcDB(t)
	seedConversation(t, db, "c1", "u1", "t")
	svc := newAnalysisService(t, db, nil) // no remote: offline heuristics

	msg, followUps, err := svc.AnalyzeUpload(context.Background(), "u1", "c1", "lesion.jpg", []byte("img-bytes"))
	if err != nil {
		t.Fatalf("AnalyzeUpload: %v", err)
	}
	if msg.Role != domain.RoleAssistant {
		t.Fatalf("returned message role = %q", msg.Role)
	}
	if !strings.Contains(msg.Content, "lesion.jpg") {
		t.Fatalf("analysis should reference the filename, got %q", msg.Content)
	}
	if msg.Confidence == nil {
		t.Fatal("assistant analysis must carry a confidence score")
	}
	if *msg.Confidence < assistant.MinConfidence || *msg.Confidence > assistant.MaxConfidence {
		t.Fatalf("confidence %v outside bounds", *msg.Confidence)
	}
	if len(msg.Recommendations) == 0 {
		t.Fatal("expected extracted recommendations")
	}
	if len(followUps) == 0 || len(followUps) > 3 {
		t.Fatalf("expected 1..3 follow-up questions, got %d", len(followUps))
	}

	// The paired user message records the attachment.
	var userMsg domain.Message
	if err := db.Where("conversation_id = ? AND role = ?", "c1", domain.RoleUser).First(&userMsg).Error; err != nil {
		t.Fatalf("load user message: %v", err)
	}
	if userMsg.AttachmentType != string(storage.KindImage) {
		t.Fatalf("attachment type = %q, want %q", userMsg.AttachmentType, storage.KindImage)
	}
	if !strings.HasPrefix(userMsg.AttachmentURL, "http://localhost/files/u1/") {
		t.Fatalf("attachment url = %q", userMsg.AttachmentURL)
	}
	if userMsg.Content != "Uploaded lesion.jpg for analysis" {
		t.Fatalf("user message content = %q", userMsg.Content)
	}
}

func TestAnalysisService_AnalyzeUpload_OfflinePDF(t *testing.T) {
	db := newAnalysisSvcDB(t)
	seedConversation(t, db, "c1", "u1", "t")
	svc := newAnalysisService(t, db, nil)

	msg, _, err := svc.AnalyzeUpload(context.Background(), "u1", "c1", "report.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("AnalyzeUpload: %v", err)
	}
	if !strings.Contains(msg.Content, "Document Analysis") {
		t.Fatalf("expected the document-flavored analysis, got %q", msg.Content)
	}

	var userMsg domain.Message
	if err := db.Where("conversation_id = ? AND role = ?", "c1", domain.RoleUser).First(&userMsg).Error; err != nil {
		t.Fatalf("load user message: %v", err)
	}
	if userMsg.AttachmentType != string(storage.KindPDF) {
		t.Fatalf("attachment type = %q, want %q", userMsg.AttachmentType, storage.KindPDF)
	}
}

func TestAnalysisService_AnalyzeUpload_RemotePreferred(t *testing.T) {
	db := newAnalysisSvcDB(t)
	seedConversation(t, db, "c1", "u1", "t")

	fa := &fakeAnalyzer{text: "The skin lesion is likely benign. I recommend routine monitoring. Confidence: 85%"}
	svc := newAnalysisService(t, db, fa)

	msg, followUps, err := svc.AnalyzeUpload(context.Background(), "u1", "c1", "lesion.png", []byte("img"))
	if err != nil {
		t.Fatalf("AnalyzeUpload: %v", err)
	}
	if fa.calls != 1 {
		t.Fatalf("remote calls = %d, want 1", fa.calls)
	}
	if !strings.Contains(msg.Content, "likely benign") {
		t.Fatalf("expected the remote analysis text, got %q", msg.Content)
	}
	if msg.Confidence == nil || *msg.Confidence != 0.85 {
		t.Fatalf("confidence = %v, want 0.85 from the explicit marker", msg.Confidence)
	}
	if len(followUps) == 0 {
		t.Fatal("expected follow-up questions")
	}
}

func TestAnalysisService_AnalyzeUpload_RemoteFailureFallsBack(t *testing.T) {
	db := newAnalysisSvcDB(t)
	seedConversation(t, db, "c1", "u1", "t")

	fa := &fakeAnalyzer{err: errors.New("inference unavailable")}
	svc := newAnalysisService(t, db, fa)

	msg, _, err := svc.AnalyzeUpload(context.Background(), "u1", "c1", "mole.webp", []byte("img"))
	if err != nil {
		t.Fatalf("AnalyzeUpload should degrade, not fail: %v", err)
	}
	if fa.calls != 1 {
		t.Fatalf("remote calls = %d, want 1", fa.calls)
	}
	if !strings.Contains(msg.Content, "mole.webp") {
		t.Fatalf("expected offline analysis for the uploaded file, got %q", msg.Content)
	}
}
