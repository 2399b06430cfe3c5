package models

// NoAnswerMessage is returned instead of a generated answer when no context was retrieved.
const NoAnswerMessage = "Sorry, I couldn't find a good answer in the documents."

// Hit is a retrieved chunk with its similarity to the question.
type Hit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Retrieval is the outcome of a similarity search for one question.
// Hits are in descending similarity order; Context joins their text.
type Retrieval struct {
	Question string `json:"question"`
	DocID    string `json:"doc_id,omitempty"`
	Scoped   bool   `json:"scoped"`
	Hits     []*Hit `json:"hits"`
	Context  string `json:"context"`
}

// Source identifies a chunk that contributed to an answer.
type Source struct {
	DocID    string  `json:"doc_id"`
	Filename string  `json:"filename"`
	Chunk    int     `json:"chunk"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet,omitempty"`
}

// Answer is the reply to a question. Found is false when no context was available
// and Text is NoAnswerMessage.
type Answer struct {
	Text    string    `json:"answer"`
	Found   bool      `json:"found"`
	Sources []*Source `json:"sources,omitempty"`
}
