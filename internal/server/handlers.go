package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/docqa/internal/apperr"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/models"
	"go.uber.org/zap"
)

const uploadedMessage = "Document uploaded and indexed."

type uploadResponse struct {
	Message string `json:"message"`
	DocID   string `json:"doc_id"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.config.Server.MaxUploadMB) << 20
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	file, header, err := r.FormFile("file")
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if err := extract.CheckFormat(header.Filename); err != nil {
		s.respondAppError(w, err)
		return
	}
	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int64("size", header.Size))

	path, err := s.spool(file)
	if path != "" {
		defer os.Remove(path)
	}
	if err != nil {
		s.logger.Error("spooling upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	docID, err := s.indexer.IngestFile(r.Context(), path, header.Filename)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{Message: uploadedMessage, DocID: docID})
}

// spool copies the upload into a temporary file under the upload directory and
// returns its path. The caller removes the file.
func (s *Server) spool(src io.Reader) (string, error) {
	dir := s.config.Storage.UploadDir
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}
	tmp, err := os.CreateTemp(dir, "upload-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return tmp.Name(), err
	}
	return tmp.Name(), tmp.Close()
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	question := r.FormValue("question")
	docID := r.FormValue("doc_id")
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	s.logger.Debug("ask request", zap.String("question", question), zap.String("doc_id", docID))

	answer, err := s.engine.Ask(r.Context(), question, docID)
	if err != nil {
		if apperr.KindOf(err) != apperr.Validation {
			s.logger.Error("ask failed", zap.String("doc_id", docID), zap.Error(err))
		}
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.corpus.Documents()
	out := make([]models.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.DocumentSummary{DocID: d.ID, Filename: d.Filename})
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, ok := s.corpus.Document(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := BuildStatus(r.Context(), s.corpus, s.config)
	if err != nil {
		s.logger.Error("status: corpus stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}

// respondAppError replies with the status of err's kind and its message.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	s.respondError(w, apperr.HTTPStatus(apperr.KindOf(err)), err.Error())
}
