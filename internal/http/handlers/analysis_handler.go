// Analysis HTTP handlers.
//
// This file exposes the REST endpoint for uploading a skin image or a medical
// document for analysis:
//   - POST /conversations/{id}/analyses  (multipart upload, returns analysis message)
//
// The handler reads the multipart file, delegates to AnalysisService, and
// translates service errors to HTTP results. Accepted types are jpeg/png/webp
// images and PDF documents; everything else yields 415.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dermasense/assistant-backend/internal/domain"
	"github.com/dermasense/assistant-backend/internal/services"
)

// AnalyzeFileResponse is the JSON envelope for a completed analysis.
type AnalyzeFileResponse struct {
	// Message is the assistant analysis message (carries confidence and
	// recommendations).
	Message *domain.Message `json:"message"`
	// FollowUpQuestions are conversation prompts derived from the analysis
	// text. Envelope-only, never persisted.
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
}

// AnalyzeFile godoc
// @ID          analyzeFile
// @Summary     Upload a file for analysis
// @Description Stores the uploaded image or PDF, runs the analysis (remote model when
// @Description configured, offline guidance otherwise), and appends the resulting
// @Description message pair to the conversation.
// @Tags        Analyses
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-User-ID  header    string  true  "User ID that owns the conversation"  example(user123)
// @Param       id         path      string  true  "Conversation ID (UUID)"              format(uuid)
// @Param       file       formData  file    true  "Image (jpeg/png/webp) or PDF document"
//
// @Success     200  {object}  handlers.AnalyzeFileResponse  "Analysis result"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse        "Conversation not found"
// @Failure     413  {object}  handlers.ErrorResponse        "File too large"
// @Failure     415  {object}  handlers.ErrorResponse        "Unsupported file type"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /conversations/{id}/analyses [post]
func (h *Handlers) AnalyzeFile(c *gin.Context) {
	ctx := c.Request.Context()
	conversationID := c.Param("id")

	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field 'file' required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read uploaded file")
		return
	}

	msg, followUps, err := h.anSvc.AnalyzeUpload(ctx, userID(c), conversationID, fh.Filename, data)
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case services.ErrEmptyUpload:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "uploaded file is empty")
		case services.ErrTooLong:
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "uploaded file too large")
		case services.ErrUnsupportedAttachment:
			fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, "supported types: jpeg, png, webp, pdf")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnalysisFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, AnalyzeFileResponse{Message: msg, FollowUpQuestions: followUps})
}
