// Iris — legal client intake service.
// Entry point: flag parsing, migrate/serve commands, provider wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matiasleandrokruk/iris/internal/infra/config"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
	"github.com/matiasleandrokruk/iris/internal/infra/sqlite"
	"github.com/matiasleandrokruk/iris/internal/server"
	"github.com/matiasleandrokruk/iris/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("iris", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config", "", "Path to YAML config file")
	host := fs.String("host", "0.0.0.0", "HTTP listen host")
	port := fs.Int("port", 8080, "HTTP listen port")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	switch fs.Arg(0) {
	case "serve":
		return serve(out, *configPath, *host, *port)
	case "migrate":
		return migrate(out, *configPath)
	case "":
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	default:
		fmt.Fprintf(out, "unknown command %q\n", fs.Arg(0)) //nolint:errcheck
		printHelp(out)
		return 2
	}
}

func serve(out io.Writer, configPath, host string, port int) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(out, "config error: %v\n", err) //nolint:errcheck
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "config error: %v\n", err) //nolint:errcheck
		return 1
	}

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(out, "database error: %v\n", err) //nolint:errcheck
		return 1
	}
	if err := sqlite.MigrateUp(db); err != nil {
		fmt.Fprintf(out, "migration error: %v\n", err) //nolint:errcheck
		db.Close()
		return 1
	}

	router := buildProviderRouter(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chatProvider, err := router.Route(ctx)
	if err != nil {
		fmt.Fprintf(out, "provider error: %v\n", err) //nolint:errcheck
		db.Close()
		return 1
	}
	embedProvider, err := router.RouteEmbedder(ctx)
	if err != nil {
		fmt.Fprintf(out, "embedder error: %v\n", err) //nolint:errcheck
		db.Close()
		return 1
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port

	srv, err := server.NewServer(ctx, db, cfg, srvCfg, chatProvider, embedProvider, logger)
	if err != nil {
		fmt.Fprintf(out, "server error: %v\n", err) //nolint:errcheck
		db.Close()
		return 1
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		fmt.Fprintf(out, "server stopped: %v\n", err) //nolint:errcheck
		return 1
	case sig := <-sigCh:
		logger.Info("signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(out, "shutdown error: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func migrate(out io.Writer, configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(out, "config error: %v\n", err) //nolint:errcheck
		return 1
	}

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(out, "database error: %v\n", err) //nolint:errcheck
		return 1
	}
	defer db.Close()

	if err := sqlite.MigrateUp(db); err != nil {
		fmt.Fprintf(out, "migration error: %v\n", err) //nolint:errcheck
		return 1
	}
	v, err := sqlite.MigrationVersion(db)
	if err != nil {
		fmt.Fprintf(out, "migration error: %v\n", err) //nolint:errcheck
		return 1
	}
	fmt.Fprintf(out, "database at migration version %d\n", v) //nolint:errcheck
	return 0
}

// buildProviderRouter registers every provider the configuration has
// credentials for; cfg.Provider selects the default.
func buildProviderRouter(cfg config.Config) *llm.Router {
	providers := map[string]llm.Provider{
		config.ProviderOllama: llm.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel, cfg.Ollama.EmbedModel),
	}
	if cfg.OpenAI.APIKey != "" {
		providers[config.ProviderOpenAI] = llm.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.EmbedModel)
	}
	if cfg.Anthropic.APIKey != "" {
		providers[config.ProviderAnthropic] = llm.NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	}
	return llm.NewRouter(providers, cfg.Provider)
}

func printHelp(out io.Writer) {
	helpText := `Iris - legal client intake service

Usage:
  iris [options] [command]

Options:
  --version        Show version information
  --help           Show this help message
  --config PATH    YAML config file
  --host HOST      HTTP listen host (default 0.0.0.0)
  --port PORT      HTTP listen port (default 8080)

Commands:
  serve        Start the HTTP server
  migrate      Run database migrations and exit

Examples:
  iris --version
  iris --config iris.yaml serve
  iris migrate`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
