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

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/internal/presentation/graph"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const configURI = "rewind://config"

// SessionArgs selects the session a tool operates on.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// TriggerArgs are the arguments of the trigger tool.
type TriggerArgs struct {
	SessionID string `json:"session_id"`
	Event     string `json:"event"`
}

// ChangeStateArgs are the arguments of the change_state tool.
type ChangeStateArgs struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// ListStatesArgs are the arguments of the list_states tool.
type ListStatesArgs struct {
	Event string `json:"event"`
}

// StatesResponse lists configured states.
type StatesResponse struct {
	States []string `json:"states" jsonschema_description:"Configured states in declaration order"`
}

// Server wraps a session manager and exposes it as an MCP Server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("rewind-mcp", strings.TrimSpace(rewind.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mainly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
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

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
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
	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the active state, history and accepted events of a session."),
		sessionParam(),
		mcp.WithOutputSchema[session.View](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("list_states",
		mcp.WithDescription("List configured states. With an event, only states that accept it."),
		mcp.WithString("event", mcp.Description("Optional event filter")),
		mcp.WithOutputSchema[StatesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListStates))

	s.mcpServer.AddTool(mcp.NewTool("trigger",
		mcp.WithDescription("Fire an event on a session. A rejected event still discards the redo history."),
		sessionParam(),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name")),
		mcp.WithOutputSchema[session.View](),
	), mcp.NewStructuredToolHandler(s.handleTrigger))

	s.mcpServer.AddTool(mcp.NewTool("change_state",
		mcp.WithDescription("Move a session directly to a configured state, discarding the redo history."),
		sessionParam(),
		mcp.WithString("state", mcp.Required(), mcp.Description("Target state")),
		mcp.WithOutputSchema[session.View](),
	), mcp.NewStructuredToolHandler(s.handleChangeState))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Step a session back one history entry."),
		sessionParam(),
		mcp.WithOutputSchema[session.View](),
	), mcp.NewStructuredToolHandler(s.handleUndo))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Step a session forward one history entry."),
		sessionParam(),
		mcp.WithOutputSchema[session.View](),
	), mcp.NewStructuredToolHandler(s.handleRedo))

	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Return a session to the initial state and clear its history."),
		sessionParam(),
		mcp.WithOutputSchema[session.View](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the transition graph as a Mermaid flowchart, optionally with a session's history overlaid."),
		mcp.WithString("session_id", mcp.Description("Optional session to overlay")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var overlay *graph.GraphOverlay
		if id := request.GetString("session_id", ""); id != "" {
			snap, err := s.sessions.Load(ctx, id)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
			}
			overlay = graph.OverlayFromSnapshot(snap)
		}
		return mcp.NewToolResultText(graph.GenerateMermaid(s.sessions.Config(), overlay)), nil
	})
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier; unknown sessions start at the initial state"))
}

// Handler methods for structured tools

func (s *Server) handleGetState(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (session.View, error) {
	return s.apply(ctx, args.SessionID, func(*rewind.Machine) (*bool, error) { return nil, nil })
}

func (s *Server) handleListStates(_ context.Context, _ mcp.CallToolRequest, args ListStatesArgs) (StatesResponse, error) {
	machine, err := rewind.New(s.sessions.Config())
	if err != nil {
		return StatesResponse{}, err
	}
	return StatesResponse{States: machine.States(args.Event)}, nil
}

func (s *Server) handleTrigger(ctx context.Context, _ mcp.CallToolRequest, args TriggerArgs) (session.View, error) {
	return s.apply(ctx, args.SessionID, func(m *rewind.Machine) (*bool, error) {
		return nil, m.TriggerContext(ctx, args.Event)
	})
}

func (s *Server) handleChangeState(ctx context.Context, _ mcp.CallToolRequest, args ChangeStateArgs) (session.View, error) {
	return s.apply(ctx, args.SessionID, func(m *rewind.Machine) (*bool, error) {
		return nil, m.ChangeStateContext(ctx, args.State)
	})
}

func (s *Server) handleUndo(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (session.View, error) {
	return s.apply(ctx, args.SessionID, func(m *rewind.Machine) (*bool, error) {
		moved := m.UndoContext(ctx)
		return &moved, nil
	})
}

func (s *Server) handleRedo(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (session.View, error) {
	return s.apply(ctx, args.SessionID, func(m *rewind.Machine) (*bool, error) {
		moved := m.RedoContext(ctx)
		return &moved, nil
	})
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (session.View, error) {
	return s.apply(ctx, args.SessionID, func(m *rewind.Machine) (*bool, error) {
		m.ResetContext(ctx)
		return nil, nil
	})
}

func (s *Server) apply(ctx context.Context, id string, op func(*rewind.Machine) (*bool, error)) (session.View, error) {
	if id == "" {
		return session.View{}, errors.New("session_id is required")
	}

	var moved *bool
	snap, err := s.sessions.Do(ctx, id, func(m *rewind.Machine) error {
		var err error
		moved, err = op(m)
		return err
	})
	if err != nil {
		if kind := domain.KindOf(err); kind != "" {
			return session.View{}, fmt.Errorf("%s: %w", kind, err)
		}
		s.logger.Error("MCP: session operation failed", "session_id", id, "err", err)
		return session.View{}, err
	}

	view := session.NewView(id, snap, s.sessions.Config())
	view.Moved = moved
	return view, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(configURI, "Machine Configuration",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.sessions.Config())
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      configURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
