package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsight/finrag-go/internal/adapters/embedding"
	"github.com/finsight/finrag-go/internal/adapters/filewatcher"
	"github.com/finsight/finrag-go/internal/adapters/llm"
	"github.com/finsight/finrag-go/internal/adapters/loader"
	"github.com/finsight/finrag-go/internal/adapters/store"
	"github.com/finsight/finrag-go/internal/chunker"
	"github.com/finsight/finrag-go/internal/completion"
	"github.com/finsight/finrag-go/internal/config"
	"github.com/finsight/finrag-go/internal/domain/ports"
	"github.com/finsight/finrag-go/internal/domain/usecases"
	httpapi "github.com/finsight/finrag-go/internal/infrastructure/http"
	"github.com/finsight/finrag-go/internal/index"
	"github.com/finsight/finrag-go/internal/memory"
	"github.com/finsight/finrag-go/internal/prompt"
	"github.com/finsight/finrag-go/internal/retrieve"
	"github.com/finsight/finrag-go/internal/rewrite"
)

// app holds the wired engine shared by all subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.SQLiteStore
	idx    *index.Index
	ingest *usecases.IngestUseCase
	answer *usecases.AnswerUseCase
}

func newApp(configPath string) (*app, error) {
	// Optional .env for local overrides; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		cfg.Engine.BaseURL = url
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	format, err := prompt.ForEngine(cfg.Engine.Format)
	if err != nil {
		return nil, err
	}

	idx := index.New(st)
	mem := memory.New(st)
	engine := llm.NewOllamaAdapter(cfg.Engine.BaseURL, cfg.Engine.GenerateModel)
	embedder := embedding.NewOllamaAdapter(cfg.Engine.BaseURL, cfg.Engine.EmbedModel, logger)

	rewriter := rewrite.New(engine, rewrite.Config{
		TriggerWords:    cfg.Rewrite.TriggerWords,
		MinQueryRunes:   cfg.Rewrite.MinQueryRunes,
		MinRewriteRunes: cfg.Rewrite.MinRewriteRunes,
		HistoryWindow:   cfg.Rewrite.HistoryWindow,
		MaxTokens:       cfg.Rewrite.MaxTokens,
	}, logger)

	retriever := retrieve.New(rewriter, embedder, idx, retrieve.Config{
		TopK:      cfg.Retrieval.TopK,
		Threshold: cfg.Retrieval.Threshold,
	})

	controller := completion.New(engine, mem, format, completion.Config{
		MaxTokens:   cfg.Completion.MaxTokens,
		FlushBatch:  cfg.Completion.FlushBatch,
		Temperature: cfg.Completion.Temperature,
		TopP:        cfg.Completion.TopP,
		TopK:        cfg.Completion.TopK,
	}, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		idx:    idx,
		ingest: usecases.NewIngestUseCase(embedder, idx, st, logger),
		answer: usecases.NewAnswerUseCase(mem, retriever, controller, cfg.SystemPrompt, cfg.HistoryLimit, logger),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "finrag",
		Short:         "Local retrieval-augmented assistant for financial records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "finrag.yaml", "path to config file")

	root.AddCommand(
		newIngestCmd(&configPath),
		newAskCmd(&configPath),
		newChatCmd(&configPath),
		newWatchCmd(&configPath),
		newResetCmd(&configPath),
		newServeCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newIngestCmd(configPath *string) *cobra.Command {
	var kind string
	var once bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Chunk, embed, and store a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			path := args[0]
			k, src, err := loader.Load(path, kind)
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			a.ingest.OnUnitStored = func(done, total int) {
				if bar == nil {
					bar = progressbar.Default(int64(total), "embedding")
				}
				_ = bar.Set(done)
			}

			cfg := chunker.Config{Width: a.cfg.Chunker.Width}
			ctx := cmd.Context()

			if once {
				n, ran, err := a.ingest.IngestOnce(ctx, "seeded:"+path, k, cfg, src)
				if err != nil {
					return err
				}
				if !ran {
					fmt.Println("already ingested, skipping")
					return nil
				}
				fmt.Printf("stored %d units\n", n)
				return nil
			}

			n, err := a.ingest.Ingest(ctx, k, cfg, src)
			if err != nil {
				return err
			}
			fmt.Printf("stored %d units\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "paragraph", "chunking strategy: paragraph, fixed, or ledger")
	cmd.Flags().BoolVar(&once, "once", false, "skip if this file was already ingested")
	return cmd
}

func newAskCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question over the stored corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			query := strings.Join(args, " ")
			return runQuery(cmd.Context(), a, query)
		},
	}
}

func newChatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session (fresh conversation)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.answer.ResetSession(ctx); err != nil {
				return err
			}

			fmt.Println("type a question, or 'exit' to quit")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}
				if err := runQuery(ctx, a, line); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}

// runQuery streams the answer to stdout. A generation failure prints the
// fixed failure reply and is not treated as a command error.
func runQuery(ctx context.Context, a *app, query string) error {
	answer, err := a.answer.AnswerQuery(ctx, query, func(part string) {
		fmt.Print(part)
	})
	if errors.Is(err, completion.ErrGeneration) {
		fmt.Println(answer)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println()
	return nil
}

func newWatchCmd(configPath *string) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and ingest documents as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			watcher, err := filewatcher.NewFSNotifyWatcher(nil, a.logger)
			if err != nil {
				return err
			}
			defer watcher.Stop()

			ctx := cmd.Context()
			events, err := watcher.Watch(ctx, args[0])
			if err != nil {
				return err
			}

			a.logger.Info("watching", zap.String("dir", args[0]))
			for ev := range events {
				if ev.Operation == ports.FileDeleted {
					a.logger.Info("file removed, corpus unchanged", zap.String("path", ev.Path))
					continue
				}
				k, src, err := loader.Load(ev.Path, kind)
				if err != nil {
					a.logger.Warn("skipping file", zap.String("path", ev.Path), zap.Error(err))
					continue
				}
				n, err := a.ingest.Ingest(ctx, k, chunker.Config{Width: a.cfg.Chunker.Width}, src)
				if err != nil {
					a.logger.Warn("ingest failed", zap.String("path", ev.Path), zap.Error(err))
					continue
				}
				a.logger.Info("ingested", zap.String("path", ev.Path), zap.Int("units", n))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "paragraph", "chunking strategy: paragraph, fixed, or ledger")
	return cmd
}

func newResetCmd(configPath *string) *cobra.Command {
	var units bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear conversation history, optionally the stored corpus too",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.answer.ResetSession(ctx); err != nil {
				return err
			}
			fmt.Println("conversation cleared")

			if units {
				if err := a.ingest.ClearUnits(ctx); err != nil {
					return err
				}
				fmt.Println("corpus cleared")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&units, "units", false, "also clear all stored units")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query and ingestion API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			srv := httpapi.NewServer(a.answer, a.ingest, a.idx, addr, a.logger)
			return srv.Start()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
