// Package cli provides output formatting and an HTTP client for the docqa CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and its sources to w.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "%s\n", answer.Text)
	if len(answer.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nSources:")
	for i, s := range answer.Sources {
		fmt.Fprintf(w, "  %d. %s (chunk %d, score %.4f)\n", i+1, s.Filename, s.Chunk, s.Score)
		if s.Snippet != "" {
			fmt.Fprintf(w, "     %s\n", utils.Truncate(s.Snippet, 120))
		}
	}
	return nil
}

// WriteDocuments writes the document list to w.
func WriteDocuments(w io.Writer, docs []models.DocumentSummary, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []models.DocumentSummary{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %s\n", d.DocID, d.Filename)
	}
	return nil
}

// WriteStatus writes corpus status to w.
func WriteStatus(w io.Writer, status *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "documents:          %d   # registered documents\n", status.Documents)
	fmt.Fprintf(w, "chunks:             %d   # indexed text chunks\n", status.Chunks)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the index\n", status.VectorIndexSize)
	fmt.Fprintf(w, "dimensions:         %d\n", status.Dimensions)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # index, registry and journal on disk\n", *status.DiskUsageBytes)
	}
	if len(status.Ingestions) > 0 {
		keys := make([]string, 0, len(status.Ingestions))
		for k := range status.Ingestions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# ingestions")
		for _, k := range keys {
			fmt.Fprintf(w, "%-19s %d\n", k+":", status.Ingestions[k])
		}
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "embedding:          %s/%s (%d dims)\n", c.EmbeddingProvider, c.EmbeddingModel, c.EmbeddingDimensions)
		fmt.Fprintf(w, "generation:         %s/%s\n", c.GenerationProvider, c.GenerationModel)
		fmt.Fprintf(w, "chunk_size:         %d\n", c.ChunkSize)
		fmt.Fprintf(w, "chunk_overlap:      %d\n", c.ChunkOverlap)
		fmt.Fprintf(w, "top_k:              %d\n", c.TopK)
		fmt.Fprintf(w, "scoped_top_k:       %d\n", c.ScopedTopK)
		fmt.Fprintf(w, "scope_mode:         %s\n", c.ScopeMode)
		if c.IndexPath != "" {
			fmt.Fprintf(w, "index_path:         %s\n", c.IndexPath)
		}
		if c.RegistryPath != "" {
			fmt.Fprintf(w, "registry_path:      %s\n", c.RegistryPath)
		}
		if c.JournalPath != "" {
			fmt.Fprintf(w, "journal_path:       %s\n", c.JournalPath)
		}
		if c.InboxDir != "" {
			fmt.Fprintf(w, "inbox_dir:          %s\n", c.InboxDir)
		}
	}
	return nil
}
