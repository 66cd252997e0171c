package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mohsenim/carprice/dataset"
	"github.com/mohsenim/carprice/pkg/errors"
)

// Predictor is the read-only model handle behind the predict endpoint.
// *pipeline.Pipeline satisfies it; tests substitute stubs.
type Predictor interface {
	Predict(b dataset.Batch) ([]float64, error)
}

// Handlers holds the injected predictor and the declared input schema.
type Handlers struct {
	predictor Predictor
	columns   []string
	logger    zerolog.Logger
}

// NewHandlers wires a predictor to the HTTP surface.
func NewHandlers(predictor Predictor, columns []string, logger zerolog.Logger) *Handlers {
	return &Handlers{
		predictor: predictor,
		columns:   columns,
		logger:    logger,
	}
}

// Register mounts all routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

// handlePredict validates the request batch, runs the pipeline, and
// returns one prediction per record in input order. An empty batch is
// answered with an empty array.
func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	batch, err := parseBatch(r.Body, h.columns)
	if err != nil {
		h.logger.Debug().Err(err).Msg("rejected prediction request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	predictions, err := h.predictor.Predict(batch)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("prediction failed")
			writeError(w, status, "prediction failed")
			return
		}
		h.logger.Debug().Err(err).Msg("rejected prediction request")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, predictions)
}

func (h *Handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForError maps validation failures to client errors; everything
// else is an internal failure.
func statusForError(err error) int {
	var schemaErr *errors.SchemaError
	var valueErr *errors.ValueError
	var dimErr *errors.DimensionError
	switch {
	case errors.As(err, &schemaErr),
		errors.As(err, &valueErr),
		errors.As(err, &dimErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
