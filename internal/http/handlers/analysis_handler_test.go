package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dermasense/assistant-backend/internal/domain"
	"github.com/dermasense/assistant-backend/internal/services"
)

func newAnalysisRouter(an stubAnSvc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(stubConvSvc{}, stubMsgSvc{}, an, stubFBSvc{}, nil)
	r := gin.New()
	r.POST("/conversations/:id/analyses", h.AnalyzeFile)
	return r
}

// multipartUpload builds a multipart body with a single "file" part.
func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeFile_InvalidUUID_And_MissingFile(t *testing.T) {
	r := newAnalysisRouter(stubAnSvc{
		analyze: func(ctx context.Context, u, cID, fn string, data []byte) (*domain.Message, []string, error) {
			t.Fatalf("service should not be called")
			return nil, nil, nil
		},
	})

	// invalid conversation id
	body, ctype := multipartUpload(t, "file", "lesion.jpg", []byte{0xFF, 0xD8})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/conversations/not-uuid/analyses", body)
	req.Header.Set("Content-Type", ctype)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid uuid -> %d", w.Code)
	}

	// wrong field name -> 400 (no "file" part)
	body, ctype = multipartUpload(t, "attachment", "lesion.jpg", []byte{0xFF, 0xD8})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/conversations/"+uuid.NewString()+"/analyses", body)
	req.Header.Set("Content-Type", ctype)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing file -> %d", w.Code)
	}
}

func TestAnalyzeFile_Success_PassesThroughArgs(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01}
	conf := 0.85
	var got struct {
		user, conv, name string
		data             []byte
	}
	r := newAnalysisRouter(stubAnSvc{
		analyze: func(ctx context.Context, u, cID, fn string, data []byte) (*domain.Message, []string, error) {
			got.user, got.conv, got.name, got.data = u, cID, fn, data
			return &domain.Message{
				ID: "a1", ConversationID: cID, Role: "assistant",
				Content: "**Analysis for " + fn + "**", Confidence: &conf,
			}, []string{"Would you like prevention tips?"}, nil
		},
	})

	conversationID := uuid.NewString()
	body, ctype := multipartUpload(t, "file", "lesion.jpg", payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/conversations/"+conversationID+"/analyses", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("X-User-ID", "u-7")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if got.user != "u-7" || got.conv != conversationID || got.name != "lesion.jpg" {
		t.Fatalf("service args mismatch: %+v", got)
	}
	if !bytes.Equal(got.data, payload) {
		t.Fatalf("file bytes not forwarded intact")
	}

	var out AnalyzeFileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Message == nil || out.Message.ID != "a1" || out.Message.Confidence == nil || *out.Message.Confidence != 0.85 {
		t.Fatalf("unexpected message: %#v", out.Message)
	}
	if len(out.FollowUpQuestions) != 1 {
		t.Fatalf("expected follow-up questions in envelope: %#v", out.FollowUpQuestions)
	}
}

func TestAnalyzeFile_ErrorMappings(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"conversation_not_found", services.ErrConversationNotFound, http.StatusNotFound},
		{"empty_upload", services.ErrEmptyUpload, http.StatusBadRequest},
		{"too_large", services.ErrTooLong, http.StatusRequestEntityTooLarge},
		{"unsupported", services.ErrUnsupportedAttachment, http.StatusUnsupportedMediaType},
		{"internal", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := newAnalysisRouter(stubAnSvc{
				analyze: func(ctx context.Context, u, cID, fn string, data []byte) (*domain.Message, []string, error) {
					return nil, nil, tc.err
				},
			})

			body, ctype := multipartUpload(t, "file", "scan.pdf", []byte("%PDF-1.4"))
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/conversations/"+uuid.NewString()+"/analyses", body)
			req.Header.Set("Content-Type", ctype)
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("want %d, got %d body=%s", tc.want, w.Code, w.Body.String())
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code == "" {
				t.Fatalf("error envelope missing code: %+v", er)
			}
		})
	}
}
