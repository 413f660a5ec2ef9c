package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/continuity"
	"github.com/aretw0/continuity/internal/presentation/graph"
	"github.com/aretw0/continuity/internal/runtime"
	"github.com/aretw0/continuity/pkg/catalogue"
	"github.com/aretw0/continuity/pkg/domain"
	flow "github.com/aretw0/continuity/pkg/graph"
	"github.com/aretw0/continuity/pkg/observability"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the mermaid diagram of the experiment.
const GraphURI = "continuity://experiment/graph"

// Engine runs experiments.
type Engine interface {
	Execute(ctx context.Context, exp *flow.Experiment) (*runtime.Report, error)
}

// Factory builds a fresh experiment for every call.
type Factory func() (*flow.Experiment, error)

// ExperimentInfo describes the experiment without running it.
type ExperimentInfo struct {
	Name     string   `json:"name" jsonschema_description:"Name of the experiment"`
	Count    int      `json:"count" jsonschema_description:"Number of actions executed by one run"`
	Elements []string `json:"elements" jsonschema_description:"Elements in traversal order"`
	Render   string   `json:"render" jsonschema_description:"Indented description of the graph"`
}

// RunArgs are the arguments of the run_experiment tool.
type RunArgs struct {
	Context string `json:"context,omitempty"`
}

// RunResult is the outcome of run_experiment.
type RunResult struct {
	RunID         string         `json:"run_id" jsonschema_description:"Identifier of the run"`
	Status        string         `json:"status" jsonschema_description:"succeeded, aborted, failed or canceled"`
	Actions       int64          `json:"actions" jsonschema_description:"Number of action executions"`
	Recovered     int64          `json:"recovered" jsonschema_description:"Number of aborts the graph recovered from"`
	DurationMS    int64          `json:"duration_ms"`
	Error         string         `json:"error,omitempty"`
	FailedElement string         `json:"failed_element,omitempty"`
	Context       map[string]any `json:"context,omitempty" jsonschema_description:"Experiment context after the run"`
}

// ApplicationList is the result of list_applications.
type ApplicationList struct {
	Applications []catalogue.Application `json:"applications"`
}

// Option configures the Server.
type Option func(*Server)

// WithCatalogue exposes the application catalogue through list_applications.
func WithCatalogue(c *catalogue.Catalogue) Option {
	return func(s *Server) { s.catalogue = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server exposes an experiment as an MCP server.
type Server struct {
	engine    Engine
	factory   Factory
	catalogue *catalogue.Catalogue
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, factory Factory, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		factory:   factory,
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("continuity-mcp", strings.TrimSpace(continuity.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on the given port until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	describeTool := mcp.NewTool("describe_experiment",
		mcp.WithDescription("Describe the experiment graph and the number of actions one run executes."),
		mcp.WithOutputSchema[ExperimentInfo](),
	)
	s.mcpServer.AddTool(describeTool, mcp.NewStructuredToolHandler(s.handleDescribe))

	runTool := mcp.NewTool("run_experiment",
		mcp.WithDescription("Run the experiment once and report its outcome."),
		mcp.WithString("context", mcp.Description("JSON object of values seeded into the experiment context (optional)")),
		mcp.WithOutputSchema[RunResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRun))

	if s.catalogue != nil {
		appsTool := mcp.NewTool("list_applications",
			mcp.WithDescription("List the applications the experiment can restart or check out."),
			mcp.WithOutputSchema[ApplicationList](),
		)
		s.mcpServer.AddTool(appsTool, mcp.NewStructuredToolHandler(s.handleApplications))
	}
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ExperimentInfo, error) {
	exp, err := s.factory()
	if err != nil {
		return ExperimentInfo{}, fmt.Errorf("build experiment: %w", err)
	}

	info := ExperimentInfo{
		Name:   exp.Name(),
		Count:  exp.Count(),
		Render: exp.Render(""),
	}
	for el := range exp.All() {
		info.Elements = append(info.Elements, el.String())
	}
	return info, nil
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args RunArgs) (RunResult, error) {
	exp, err := s.factory()
	if err != nil {
		return RunResult{}, fmt.Errorf("build experiment: %w", err)
	}

	if args.Context != "" {
		seed := make(map[string]any)
		if err := json.Unmarshal([]byte(args.Context), &seed); err != nil {
			return RunResult{}, fmt.Errorf("invalid context: %w", err)
		}
		for k, v := range seed {
			exp.Context().Set(k, v)
		}
	}

	report, err := s.engine.Execute(ctx, exp)
	res := RunResult{
		Status:  observability.Status(err),
		Context: exp.Context().Snapshot(),
	}
	if report != nil {
		res.RunID = report.RunID
		res.Actions = report.Actions
		res.Recovered = report.Recovered
		res.DurationMS = report.Duration.Milliseconds()
	}
	if err != nil {
		res.Error = err.Error()
		var runErr *domain.RunError
		if errors.As(err, &runErr) {
			res.FailedElement = runErr.ElementID
		}
		s.logger.Warn("MCP run failed", "experiment", exp.Name(), "err", err)
	}
	return res, nil
}

func (s *Server) handleApplications(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ApplicationList, error) {
	return ApplicationList{Applications: s.catalogue.Applications()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Experiment Graph",
		mcp.WithResourceDescription("Mermaid flowchart of the experiment"),
		mcp.WithMIMEType("text/plain"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exp, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to build experiment: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "text/plain",
			Text:     graph.GenerateMermaid(exp, nil),
		},
	}, nil
}
