package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/molder/internal/payload"
	"github.com/roach88/molder/pkg/evaluator"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/rules"
	"github.com/roach88/molder/pkg/schema"
)

// ModelInfo is one entry of GET /models.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ValidateResponse is the body of POST /models/{model}/validate. Errors and
// Fields are set only on 422.
type ValidateResponse struct {
	Instance map[string]any      `json:"instance"`
	Errors   string              `json:"errors,omitempty"`
	Fields   map[string][]string `json:"fields,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"models": len(s.Molder().Registry().Models()),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	m := s.Molder()
	names := m.Registry().Models()
	out := make([]ModelInfo, len(names))
	for i, name := range names {
		out[i] = ModelInfo{Name: name, Description: m.Description(name)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": out})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	doc, err := compiledSchema(s.Molder(), model)
	if err != nil {
		s.writeModelError(w, model, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	m := s.Molder()
	if !m.Registry().Has(model) {
		writeError(w, http.StatusNotFound, "unknown_model", "unknown model: "+model)
		return
	}

	input, err := s.pool.ReadFrom(r.Body, s.opts.MaxBodyBytes)
	if errors.Is(err, payload.ErrTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	instance, vs, err := evaluate(m, model, input)
	if err != nil {
		s.writeModelError(w, model, err)
		return
	}
	if len(vs) == 0 {
		writeJSON(w, http.StatusOK, ValidateResponse{Instance: instance})
		return
	}

	verr := &molder.ValidationError{Model: model, Violations: vs}
	s.logger.Debug().
		Str("model", model).
		Int("violations", len(vs)).
		Str("request_id", RequestIDFrom(r.Context())).
		Msg("validation rejected")
	writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{
		Instance: instance,
		Errors:   molder.FormatViolations(vs),
		Fields:   verr.Fields(),
	})
}

func (s *Server) writeModelError(w http.ResponseWriter, model string, err error) {
	if errors.Is(err, molder.ErrUnknownModel) {
		writeError(w, http.StatusNotFound, "unknown_model", err.Error())
		return
	}
	if rules.IsCompilationAnomaly(err) {
		s.logger.Error().Err(err).Str("model", model).Msg("model cannot be compiled")
		writeError(w, http.StatusInternalServerError, "compilation_anomaly", err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
}

// compiledSchema and evaluate recover anomaly panics into errors.
func compiledSchema(m *molder.Molder, model string) (doc *schema.Schema, err error) {
	defer rules.CatchAnomaly(&err)
	return m.JSONSchema(model)
}

func evaluate(m *molder.Molder, model string, input any) (instance map[string]any, vs []evaluator.Violation, err error) {
	defer rules.CatchAnomaly(&err)
	return m.Evaluate(model, input)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
