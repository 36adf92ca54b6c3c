package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/orgkb/graphchat/internal/agent"
	"github.com/orgkb/graphchat/internal/api"
	"github.com/orgkb/graphchat/internal/config"
	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/graph"
	"github.com/orgkb/graphchat/internal/ingest"
	"github.com/orgkb/graphchat/internal/llm"
	"github.com/orgkb/graphchat/internal/ollama"
	"github.com/orgkb/graphchat/internal/openai"
	"github.com/orgkb/graphchat/internal/orchestrator"
	"github.com/orgkb/graphchat/internal/rag"
	"github.com/orgkb/graphchat/internal/storage"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

const (
	sweepInterval   = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the graphchat server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running graphchat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graphchat system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "graphchat.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "graphchat version %s\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if err := refuseSecondInstance(cfg); err != nil {
		return err
	}
	pidPath := pidFilePath(cfg.Storage.DataDir)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir, storage.Options{
		TTL:         cfg.Conversation.TTL,
		MaxMessages: cfg.Conversation.MaxMessages,
	})
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()
	logger := slog.Default()
	go store.Sweep(ctx, sweepInterval, logger)

	graphClient, err := graph.Connect(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, "")
	if err != nil {
		return fmt.Errorf("connecting to graph store: %w", err)
	}
	defer graphClient.Close(context.Background())
	dir := directory.New(graphClient)

	index := vectorindex.New(provider, vectorindex.NewSnapshotStore(store.DB()), logger)
	if err := index.Load(); err != nil {
		slog.Warn("loading vector snapshots failed, starting with empty index", "error", err)
	}

	ingestor := ingest.New(index, logger)
	// Employee profiles are embedded into the same collection documents land
	// in, so semantic search covers both. Best-effort: a cold graph store
	// must not block startup.
	if _, err := ingestor.SyncEmployees(ctx, cfg.Retrieval.Collection, dir); err != nil {
		slog.Warn("indexing employee profiles failed, semantic search covers documents only", "error", err)
	}

	responder := rag.New(index, provider, logger)
	orch := orchestrator.New(store, dir, responder, index, provider, cfg.Retrieval.Collection, cfg.Retrieval.TopK, logger)

	registry := agent.NewRegistry(dir, index, cfg.Retrieval.Collection, cfg.Retrieval.TopK, logger)
	planner := agent.NewPlanner(provider, registry, cfg.Agent.MaxSteps, logger)
	executor := agent.NewExecutor(registry, provider, planner,
		cfg.Agent.MaxSteps, cfg.Agent.MaxExecutionTime, cfg.Agent.DynamicPlanning, logger)

	handler := api.NewHandler(api.Deps{
		Orchestrator:  orch,
		Agent:         executor,
		Conversations: store,
		Ingestor:      ingestor,
		Token:         cfg.Server.AuthKey,
	})

	startMCP(ctx, orch, dir, index, cfg.Retrieval.Collection)

	return serveHTTP(ctx, cfg, handler)
}

func setupLogging(cfg config.Config) {
	level := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// refuseSecondInstance probes /health before taking the PID file, so a stale
// PID file alone never blocks a start.
func refuseSecondInstance(cfg config.Config) error {
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(healthURL)
	if err != nil {
		return nil
	}
	resp.Body.Close()
	if pid, pidErr := readPIDFile(pidFilePath(cfg.Storage.DataDir)); pidErr == nil {
		printWarning("graphchat is already running (PID %d)", pid)
		return fmt.Errorf("server already running (PID %d)", pid)
	}
	printWarning("graphchat is already running on port %d", cfg.Server.Port)
	return fmt.Errorf("server already running on port %d", cfg.Server.Port)
}

func buildProvider(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	if cfg.LLM.Backend == "openai" {
		slog.Info("using OpenAI-compatible backend", "base_url", cfg.LLM.BaseURL, "chat_model", cfg.LLM.ChatModel)
		return openai.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.ChatModel, cfg.LLM.EmbedModel), nil
	}
	client := ollama.New(cfg.LLM.BaseURL, cfg.LLM.ChatModel, cfg.LLM.EmbedModel)
	if err := ollama.EnsureReady(ctx, client, os.Stderr); err != nil {
		return nil, err
	}
	return client, nil
}

// startMCP runs the MCP server on stdio alongside HTTP, for editor and
// assistant integrations.
func startMCP(ctx context.Context, orch *orchestrator.Orchestrator, dir *directory.Service, index *vectorindex.Index, collection string) {
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Orchestrator: orch,
		Directory:    dir,
		Searcher:     index,
		Collection:   collection,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")
}

func serveHTTP(ctx context.Context, cfg config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.Server.MaxConns)
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "graphchat listening on %s\n", addr)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("graphchat is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop graphchat (PID %d): %v", pid, err)
		os.Remove(pidPath)
		return err
	}

	printSuccess("Sent stop signal to graphchat (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}

	if resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.LLM.Backend == "ollama" {
		if resp, err := client.Get(cfg.LLM.BaseURL + "/api/version"); err != nil {
			printStatus("Ollama", "not running")
		} else {
			resp.Body.Close()
			printStatus("Ollama", "running at %s", cfg.LLM.BaseURL)
		}
	} else {
		printStatus("LLM backend", "%s (%s)", cfg.LLM.Backend, cfg.LLM.BaseURL)
	}

	printStatus("Chat model", "%s", cfg.LLM.ChatModel)
	printStatus("Embed model", "%s", cfg.LLM.EmbedModel)
	printStatus("Graph store", "%s", cfg.Graph.URI)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
