package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/llmrelay/llmrelay/internal/config"
	"github.com/llmrelay/llmrelay/internal/models"
	"github.com/llmrelay/llmrelay/internal/pipeline"
	"github.com/llmrelay/llmrelay/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: llmrelay <command> [flags]")
		fmt.Fprintln(os.Stderr, "Commands: replay, providers")
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := config.DefaultFromEnv()
	setupLogging(cfg)

	switch os.Args[1] {
	case "replay":
		if err := runReplay(cfg, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	case "providers":
		runProviders()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	level := cfg.LogLevel
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// runReplay feeds a captured provider stream through the normalization
// pipeline and emits the canonical SSE stream on stdout, followed by the
// assembled chat.completion object.
func runReplay(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	provider := fs.String("provider", cfg.Provider, "upstream provider id (see the providers command)")
	model := fs.String("model", cfg.Model, "resolved model name")
	binary := fs.Bool("binary", false, "input is binary event-stream framed (Bedrock)")
	messagesFile := fs.String("messages", "", "JSON file with the original outbound messages (for token estimation)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *provider == "" {
		return fmt.Errorf("provider is required (flag -provider or LLMRELAY_PROVIDER)")
	}

	input := io.Reader(os.Stdin)
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	var messages []types.ChatMessage
	if *messagesFile != "" {
		raw, err := os.ReadFile(*messagesFile)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &messages); err != nil {
			return fmt.Errorf("parse messages file: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		Provider: *provider,
		Model:    *model,
		Messages: messages,
	}
	sink := func(chunk *types.ChatCompletionChunk) error {
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(os.Stdout, "data: %s\n\n", data)
		return err
	}

	var (
		result *pipeline.Result
		err    error
	)
	if *binary {
		result, err = pipeline.Binary(ctx, input, opts, sink)
	} else {
		result, err = pipeline.Text(ctx, input, opts, sink)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, "data: [DONE]\n\n")

	summary, err := json.MarshalIndent(result.Completion, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, string(summary))
	fmt.Fprintf(os.Stderr, "finish_reason: %s\n", result.FinishReason)
	if result.CostUSD != nil {
		fmt.Fprintf(os.Stderr, "cost_usd: %.6f\n", *result.CostUSD)
	}
	return nil
}

// runProviders prints the provider registry with API-key env vars and
// whether a key is currently configured.
func runProviders() {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFAMILY\tENV\tKEY SET")
	for _, p := range models.Providers() {
		set := "no"
		if config.ProviderAPIKey(p.ID) != "" {
			set = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Family, p.EnvVar, set)
	}
	w.Flush()
}
