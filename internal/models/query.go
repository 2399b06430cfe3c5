package models

import (
	"strings"

	"github.com/hyperjump/docqa/internal/apperr"
)

// AskRequest is a question, optionally scoped to one document.
type AskRequest struct {
	Question string `json:"question"`
	DocID    string `json:"doc_id,omitempty"`
}

// Validate trims the fields and rejects an empty question.
func (q *AskRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	q.DocID = strings.TrimSpace(q.DocID)
	if q.Question == "" {
		return apperr.New(apperr.Validation, "ask", "question is required")
	}
	return nil
}
