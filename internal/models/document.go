// Package models defines core data structures for documents, chunks, retrieval results and answers.
package models

import (
	"strconv"
	"time"
)

// Document is an ingested file as recorded in the registry.
type Document struct {
	ID        string    `json:"doc_id"`
	Filename  string    `json:"filename"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a contiguous slice of a document's extracted text, the unit of embedding and retrieval.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"doc_id"`
	Filename   string `json:"filename"`
	Index      int    `json:"index"`
	Content    string `json:"content"`
}

// ChunkID returns the identifier of the index-th chunk of docID.
func ChunkID(docID string, index int) string {
	return docID + ":" + strconv.Itoa(index)
}
