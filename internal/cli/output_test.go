package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"compact", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteAnswer_text(t *testing.T) {
	answer := &models.Answer{
		Text:  "Revenue grew twelve percent.",
		Found: true,
		Sources: []*models.Source{
			{DocID: "d1", Filename: "report.pdf", Chunk: 2, Score: 0.8123, Snippet: "Quarterly revenue grew"},
		},
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Revenue grew twelve percent.", "report.pdf (chunk 2, score 0.8123)", "Quarterly revenue grew"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAnswer_noSources(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, &models.Answer{Text: models.NoAnswerMessage}, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != models.NoAnswerMessage+"\n" {
		t.Errorf("got %q", got)
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	answer := &models.Answer{Text: "yes", Found: true}
	if err := WriteAnswer(&buf, answer, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["answer"] != "yes" {
		t.Errorf("answer: got %v", decoded["answer"])
	}
}

func TestWriteDocuments(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "No documents." {
		t.Errorf("empty text: got %q", buf.String())
	}

	buf.Reset()
	if err := WriteDocuments(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty json: got %q", buf.String())
	}

	buf.Reset()
	docs := []models.DocumentSummary{{DocID: "a", Filename: "a.pdf"}, {DocID: "b", Filename: "b.pdf"}}
	if err := WriteDocuments(&buf, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "a  a.pdf\nb  b.pdf\n" {
		t.Errorf("text: got %q", got)
	}
}

func TestWriteStatus(t *testing.T) {
	disk := int64(4096)
	status := &models.Status{
		Documents:       2,
		Chunks:          7,
		VectorIndexSize: 7,
		Dimensions:      1536,
		Ingestions:      map[string]int64{"committed": 2, "aborted": 1},
		DiskUsageBytes:  &disk,
		Config:          &models.StatusConfig{ScopeMode: "overfetch", ChunkSize: 1000},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"documents:          2", "disk_usage_bytes:   4096", "scope_mode:         overfetch"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "aborted:") > strings.Index(out, "committed:") {
		t.Errorf("ingestions should be sorted:\n%s", out)
	}

	buf.Reset()
	if err := WriteStatus(&buf, status, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Status
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Chunks != 7 || decoded.DiskUsageBytes == nil || *decoded.DiskUsageBytes != 4096 {
		t.Errorf("decoded: got %+v", decoded)
	}
}
