package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/docqa/internal/models"
)

// Client talks to a running docqa server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. timeout bounds each request;
// zero means no limit.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Upload sends the file at path to POST /upload and returns the new doc_id.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out struct {
		DocID string `json:"doc_id"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.DocID, nil
}

// Ask sends question to POST /ask, scoped to docID when it is not empty.
func (c *Client) Ask(ctx context.Context, question, docID string) (*models.Answer, error) {
	form := url.Values{"question": {question}}
	if docID != "" {
		form.Set("doc_id", docID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var answer models.Answer
	if err := c.do(req, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Documents lists registered documents.
func (c *Client) Documents(ctx context.Context) ([]models.DocumentSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents", nil)
	if err != nil {
		return nil, err
	}
	var docs []models.DocumentSummary
	if err := c.do(req, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Status returns the server's corpus status.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}
	var status models.Status
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var body struct {
			Detail string `json:"detail"`
		}
		detail := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &body) == nil && body.Detail != "" {
			detail = body.Detail
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: detail}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
