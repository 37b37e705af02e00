package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/model"
)

// multipartMemory is held in memory before the form spills to temp files
const multipartMemory = 8 << 20

// contractSummary is a stored contract without its text
type contractSummary struct {
	ID        int64                  `json:"id"`
	Filename  string                 `json:"filename,omitempty"`
	Metadata  model.DocumentMetadata `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

func summarize(c model.Contract) contractSummary {
	return contractSummary{ID: c.ID, Filename: c.Filename, Metadata: c.Metadata, CreatedAt: c.CreatedAt}
}

type analyzeRequest struct {
	Text         string `json:"text"`
	ContractType string `json:"contract_type"`
	ContractID   *int64 `json:"contract_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload extracts text from a multipart "file" field and persists the contract
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, err)
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_form", "expected a multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing_file", "form field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	doc, err := s.registry.Extract(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.metrics.RecordExtractionError("upload")
		s.fail(w, r, err)
		return
	}

	metadata := s.analyzer.Metadata(doc.Text)
	metadata.FileSize = len(data)

	contract := model.NewContract(header.Filename, doc.Text, metadata)
	if err := s.store.Save(r.Context(), &contract); err != nil {
		s.fail(w, r, fmt.Errorf("save contract: %w", err))
		return
	}

	if s.cfg.UploadDir != "" {
		if err := keepUpload(s.cfg.UploadDir, contract.ID, header.Filename, data); err != nil {
			s.log.Warn(r.Context(), "Failed to keep original upload",
				logger.Int64("contract_id", contract.ID),
				logger.Error(err))
		}
	}

	s.log.Info(r.Context(), "Contract uploaded",
		logger.Int64("contract_id", contract.ID),
		logger.String("filename", header.Filename),
		logger.String("extractor", doc.Extractor),
		logger.Int("words", metadata.WordCount))

	writeJSON(w, http.StatusCreated, summarize(contract))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_query", "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_query", "offset must be an integer")
		return
	}

	contracts, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		s.fail(w, r, fmt.Errorf("list contracts: %w", err))
		return
	}

	out := make([]contractSummary, len(contracts))
	for i, c := range contracts {
		out[i] = summarize(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.contract(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := contractID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClauses(w http.ResponseWriter, r *http.Request) {
	c, ok := s.contract(w, r)
	if !ok {
		return
	}
	clauses, err := s.analyzer.ExtractClauses(r.Context(), c.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contract_id": c.ID, "clauses": clauses})
}

func (s *Server) handleObligations(w http.ResponseWriter, r *http.Request) {
	c, ok := s.contract(w, r)
	if !ok {
		return
	}
	clauses, err := s.analyzer.ExtractClauses(r.Context(), c.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	obligations, _ := s.analyzer.MapObligations(clauses)
	writeJSON(w, http.StatusOK, map[string]any{"contract_id": c.ID, "obligations": obligations})
}

func (s *Server) handleRights(w http.ResponseWriter, r *http.Request) {
	c, ok := s.contract(w, r)
	if !ok {
		return
	}
	clauses, err := s.analyzer.ExtractClauses(r.Context(), c.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_, rights := s.analyzer.MapObligations(clauses)
	writeJSON(w, http.StatusOK, map[string]any{"contract_id": c.ID, "rights": rights})
}

// handleRisk scores the stored contract; ?type= selects the calibration
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	c, ok := s.contract(w, r)
	if !ok {
		return
	}
	analysis, err := s.analyzer.Analyze(r.Context(), c.Text, r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract_id": c.ID,
		"risk":        analysis.Risk,
		"risk_items":  analysis.RiskItems,
		"warnings":    analysis.Warnings,
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	c, ok := s.contract(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contract_id": c.ID, "metadata": c.Metadata})
}

// handleAnalyze runs the full pipeline over posted text or a stored contract
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	var req analyzeRequest
	if err := readJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, err)
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	var stored *model.Contract
	text := req.Text
	if strings.TrimSpace(text) == "" && req.ContractID != nil {
		c, err := s.store.Get(r.Context(), *req.ContractID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		stored, text = c, c.Text
	}

	analysis, err := s.analyzer.Analyze(r.Context(), text, req.ContractType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if stored != nil {
		analysis.Contract.ID = stored.ID
		analysis.Contract.Filename = stored.Filename
		analysis.Contract.CreatedAt = stored.CreatedAt
	}
	writeJSON(w, http.StatusOK, analysis)
}

// contract loads the contract named by the {id} path parameter, writing
// the error response itself when that fails
func (s *Server) contract(w http.ResponseWriter, r *http.Request) (*model.Contract, bool) {
	id, ok := contractID(w, r)
	if !ok {
		return nil, false
	}
	c, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return c, true
}

func contractID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "contract id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// keepUpload stores the original bytes as <dir>/<id>_<name>
func keepUpload(dir string, id int64, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%s", id, filepath.Base(name)))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}
