package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/petri"
	"github.com/aretw0/petri/pkg/domain"
)

// Lab is the surface the MCP adapter needs from the application.
type Lab interface {
	ListExperiments(ctx context.Context) ([]string, error)
	GetDefinition(ctx context.Context, name string) (*domain.Definition, error)
	RunExperiment(ctx context.Context, name string, seed *uint64) (*domain.Report, error)
	GetSubjects(ctx context.Context, name string) ([]domain.Subject, error)
}

// ExperimentsResponse is the structured output of the list_experiments tool.
type ExperimentsResponse struct {
	Experiments []string `json:"experiments" jsonschema_description:"Names of every loadable experiment"`
}

// SubjectsResponse is the structured output of the get_subjects tool.
type SubjectsResponse struct {
	Subjects []domain.Subject `json:"subjects" jsonschema_description:"The experiment's current population"`
}

// Server wraps a lab and exposes it as an MCP server.
type Server struct {
	lab       Lab
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance. Definition resources reflect
// the directory at construction time; the tools always read live.
func NewServer(lab Lab) *Server {
	s := &Server{
		lab:       lab,
		mcpServer: server.NewMCPServer("petri-mcp", strings.TrimSpace(petri.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: list_experiments
	listTool := mcp.NewTool("list_experiments",
		mcp.WithDescription("List the experiments available in the definitions directory."),
		mcp.WithOutputSchema[ExperimentsResponse](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListExperiments))

	// TOOL: get_definition
	getTool := mcp.NewTool("get_definition",
		mcp.WithDescription("Get one experiment definition: stages, groups, filters and distribution mode."),
		mcp.WithString("experiment", mcp.Required(), mcp.Description("Experiment name")),
		mcp.WithOutputSchema[domain.Definition](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetDefinition))

	// TOOL: run_experiment
	runTool := mcp.NewTool("run_experiment",
		mcp.WithDescription("Drive one experiment cycle (fetch, screen, assign, advance, persist) and return the run report."),
		mcp.WithString("experiment", mcp.Required(), mcp.Description("Experiment name")),
		mcp.WithNumber("seed", mcp.Description("Override the definition's random seed for this run (optional)")),
		mcp.WithOutputSchema[domain.Report](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunExperiment))

	// TOOL: get_subjects
	subjectsTool := mcp.NewTool("get_subjects",
		mcp.WithDescription("Get the experiment's current population with group and stage per subject."),
		mcp.WithString("experiment", mcp.Required(), mcp.Description("Experiment name")),
		mcp.WithOutputSchema[SubjectsResponse](),
	)
	s.mcpServer.AddTool(subjectsTool, mcp.NewStructuredToolHandler(s.handleGetSubjects))
}

// Handler methods for structured tools

func (s *Server) handleListExperiments(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ExperimentsResponse, error) {
	names, err := s.lab.ListExperiments(ctx)
	if err != nil {
		return ExperimentsResponse{}, fmt.Errorf("list failed: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return ExperimentsResponse{Experiments: names}, nil
}

func (s *Server) handleGetDefinition(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Definition, error) {
	name, _ := args["experiment"].(string)
	def, err := s.lab.GetDefinition(ctx, name)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("get definition failed: %w", err)
	}
	return *def, nil
}

func (s *Server) handleRunExperiment(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Report, error) {
	name, _ := args["experiment"].(string)

	var seed *uint64
	if raw, ok := args["seed"].(float64); ok {
		v := uint64(raw)
		seed = &v
	}

	report, err := s.lab.RunExperiment(ctx, name, seed)
	if err != nil {
		return domain.Report{}, fmt.Errorf("run failed: %w", err)
	}
	return *report, nil
}

func (s *Server) handleGetSubjects(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SubjectsResponse, error) {
	name, _ := args["experiment"].(string)
	subjects, err := s.lab.GetSubjects(ctx, name)
	if err != nil {
		return SubjectsResponse{}, fmt.Errorf("get subjects failed: %w", err)
	}
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	return SubjectsResponse{Subjects: subjects}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: petri://experiments
	s.mcpServer.AddResource(mcp.NewResource("petri://experiments", "Experiment Index",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.lab.ListExperiments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list experiments: %w", err)
		}
		jsonBytes, _ := json.Marshal(names)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "petri://experiments",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: petri://experiments/{name}, one resource per definition known
	// at startup.
	names, err := s.lab.ListExperiments(context.Background())
	if err != nil {
		slog.Warn("MCP: Could not list experiments for resources", "err", err)
		return
	}
	for _, name := range names {
		uri := "petri://experiments/" + name
		s.mcpServer.AddResource(mcp.NewResource(uri, name,
			mcp.WithMIMEType("application/json"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			def, err := s.lab.GetDefinition(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to load definition: %w", err)
			}
			jsonBytes, _ := json.Marshal(def)

			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(jsonBytes),
				},
			}, nil
		})
	}
}
