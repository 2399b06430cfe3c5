package models

import (
	"errors"
	"testing"

	"github.com/hyperjump/docqa/internal/apperr"
)

func TestAskRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *AskRequest
		wantErr bool
	}{
		{"empty question", &AskRequest{Question: ""}, true},
		{"whitespace question", &AskRequest{Question: "  \n\t"}, true},
		{"valid question", &AskRequest{Question: "what is it?"}, false},
		{"valid scoped question", &AskRequest{Question: "what?", DocID: " abc "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAskRequest_ValidateTrims(t *testing.T) {
	req := &AskRequest{Question: "  why?  ", DocID: " d1 "}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}
	if req.Question != "why?" || req.DocID != "d1" {
		t.Errorf("got question=%q doc=%q", req.Question, req.DocID)
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("abc", 3); got != "abc:3" {
		t.Errorf("ChunkID = %q", got)
	}
}
