package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/petri"
	"github.com/aretw0/petri/internal/logging"
	"github.com/aretw0/petri/pkg/domain"
)

//go:embed openapi.yaml
var rawSpec []byte

// Lab is the surface the HTTP adapter needs from the application.
type Lab interface {
	ListExperiments(ctx context.Context) ([]string, error)
	GetDefinition(ctx context.Context, name string) (*domain.Definition, error)
	RunExperiment(ctx context.Context, name string, seed *uint64) (*domain.Report, error)
	GetSubjects(ctx context.Context, name string) ([]domain.Subject, error)
}

// RunRequest is the optional POST run body.
type RunRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
}

// Server exposes a lab as a JSON API.
type Server struct {
	Lab    Lab
	Logger *slog.Logger
}

// NewHandler builds the router for the lab. It validates the embedded
// OpenAPI document so a corrupted spec fails at startup, not on request.
func NewHandler(lab Lab, logger *slog.Logger) (http.Handler, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	server := &Server{Lab: lab, Logger: logger}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/experiments", server.ListExperiments)
	r.Get("/experiments/{name}", server.GetDefinition)
	r.Post("/experiments/{name}/run", server.RunExperiment)
	r.Get("/experiments/{name}/subjects", server.GetSubjects)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Petri API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(petri.Version),
	})
}

// ListExperiments handles the GET /experiments request.
func (s *Server) ListExperiments(w http.ResponseWriter, r *http.Request) {
	names, err := s.Lab.ListExperiments(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("List experiments failed", "err", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, names)
}

// GetDefinition handles the GET /experiments/{name} request.
func (s *Server) GetDefinition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def, err := s.Lab.GetDefinition(r.Context(), name)
	if err != nil {
		s.writeError(w, err, "Get definition")
		return
	}
	s.writeJSON(w, def)
}

// RunExperiment handles the POST /experiments/{name}/run request.
func (s *Server) RunExperiment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.Logger.Warn("Run: Invalid request body", "err", err)
			return
		}
	}

	report, err := s.Lab.RunExperiment(r.Context(), name, body.Seed)
	if err != nil {
		s.writeError(w, err, "Run")
		return
	}
	s.writeJSON(w, report)
}

// GetSubjects handles the GET /experiments/{name}/subjects request.
func (s *Server) GetSubjects(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	subjects, err := s.Lab.GetSubjects(r.Context(), name)
	if err != nil {
		s.writeError(w, err, "Get subjects")
		return
	}
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	s.writeJSON(w, subjects)
}

// writeError maps missing definitions to 404 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, domain.ErrDefinitionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
	s.Logger.Error(op+" failed", "err", err)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "err", err)
	}
}
