// FAQ HTTP handler.
//
// Exposes the product FAQ catalog consumed by the web client:
//   - GET /faqs
//
// The catalog is the same one the rule engine matches against, so the answers
// a client renders and the answers the assistant gives stay in sync.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dermasense/assistant-backend/internal/assistant"
)

// ListFAQsResponse wraps the FAQ catalog.
type ListFAQsResponse struct {
	FAQs []assistant.FAQEntry `json:"faqs"`
}

// ListFAQs godoc
// @ID          listFAQs
// @Summary     List FAQ entries
// @Description Returns the product FAQ catalog used by both the website and the assistant.
// @Tags        FAQs
// @Produce     json
//
// @Success     200  {object}  handlers.ListFAQsResponse
// @Router      /faqs [get]
func (h *Handlers) ListFAQs(c *gin.Context) {
	ok(c, http.StatusOK, ListFAQsResponse{FAQs: h.faq})
}
