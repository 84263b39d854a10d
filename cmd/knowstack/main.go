// Copyright 2026 KnowStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/knowstack/knowstack"
	"github.com/knowstack/knowstack/ai"
	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/extract"
	"github.com/knowstack/knowstack/search"
	"github.com/knowstack/knowstack/vecindex/qdrant"
	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "knowstack",
		Usage: "Document knowledge base with grounded question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload a document and queue it for processing",
				ArgsUsage: "FILE",
				Action:    uploadCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Override the content type inferred from the file extension",
					},
				),
			},
			{
				Name:   "worker",
				Usage:  "Run the background job worker until interrupted",
				Action: workerCommand,
				Flags: append(storeFlags(),
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "How often each poller checks for due jobs",
						Value: 2 * time.Second,
					},
					&cli.IntFlag{
						Name:  "pollers",
						Usage: "Number of concurrent job pollers",
						Value: 1,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Retrieve the most relevant chunks for a question",
				ArgsUsage: "QUESTION",
				Action:    searchCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "document",
						Usage: "Restrict retrieval to a single document id",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to return",
						Value:   5,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Ask a question and get a grounded, cited answer",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "conversation",
						Aliases: []string{"c"},
						Usage:   "Conversation id to continue (a new one is created if omitted)",
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Restrict retrieval to a single document id",
					},
				),
			},
			{
				Name:      "reprocess",
				Usage:     "Queue an existing document for reprocessing",
				ArgsUsage: "DOCUMENT_ID",
				Action:    reprocessCommand,
				Flags:     storeFlags(),
			},
			{
				Name:   "documents",
				Usage:  "List documents for a tenant",
				Action: documentsCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (queued, processing, ready, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of documents to list (0 for all)",
					},
				),
			},
			{
				Name:   "jobs",
				Usage:  "List jobs for a tenant",
				Action: jobsCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to list (0 for all)",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storeFlags are shared by every command that opens the knowledge base.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data-dir",
			Aliases:  []string{"d"},
			Usage:    "Path to the knowledge base data directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "tenant",
			Aliases:  []string{"t"},
			Usage:    "Tenant id scoping every operation",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-small",
		},
		&cli.StringFlag{
			Name:  "generator-host",
			Usage: "Generation service host URL (defaults to embedding-host if not specified)",
		},
		&cli.StringFlag{
			Name:  "generator-model",
			Usage: "Generation model name",
			Value: "gpt-4o-mini",
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API token for the AI services",
			EnvVars: []string{"KNOWSTACK_AI_TOKEN"},
			Value:   "none",
		},
		&cli.StringFlag{
			Name:  "qdrant-host",
			Usage: "Qdrant gRPC host (an in-process index is used if not specified)",
		},
		&cli.IntFlag{
			Name:  "qdrant-port",
			Usage: "Qdrant gRPC port",
			Value: 6334,
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Qdrant collection name",
			Value: "knowstack_chunks",
		},
		&cli.IntFlag{
			Name:  "vector-size",
			Usage: "Embedding dimension for the Qdrant collection",
			Value: 768,
		},
	}
}

// openDatabase assembles the knowledge base from the command's flags.
func openDatabase(ctx context.Context, c *cli.Context) (*knowstack.Database, error) {
	generatorHost := c.String("generator-host")
	if generatorHost == "" {
		generatorHost = c.String("embedding-host")
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorHost(generatorHost),
		ai.WithGeneratorModel(c.String("generator-model")),
		ai.WithToken(c.String("token")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	options := []knowstack.DatabaseOption{knowstack.WithAIConfig(aiConfig)}

	if host := c.String("qdrant-host"); host != "" {
		index, err := qdrant.New(ctx, qdrant.Config{
			Host:       host,
			Port:       c.Int("qdrant-port"),
			Collection: c.String("collection"),
			VectorSize: uint64(c.Int("vector-size")),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
		}
		options = append(options, knowstack.WithVectorIndex(index))
	}

	db, err := knowstack.NewDatabase(c.String("data-dir"), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return db, nil
}

func uploadCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	contentType := c.String("content-type")
	if contentType == "" {
		contentType = contentTypeForFile(path)
		if contentType == "" {
			return fmt.Errorf("cannot infer content type for %q: pass --content-type", path)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.UploadDocument(ctx, c.String("tenant"), filepath.Base(path), contentType, data)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Document: %s\n", doc.Id)
	fmt.Printf("Status:   %s\n", doc.Status)
	fmt.Printf("Hash:     %s\n", doc.ContentHash)
	if doc.Status == core.DocumentStatusReady {
		fmt.Fprintln(os.Stderr, "Already processed; identical content was uploaded before")
	} else {
		fmt.Fprintln(os.Stderr, "Queued for processing; run the worker to process it")
	}
	return nil
}

func workerCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	interval := c.Duration("poll-interval")
	pollers := c.Int("pollers")
	if pollers < 1 {
		pollers = 1
	}

	fmt.Fprintf(os.Stderr, "Worker started with %d poller(s), polling every %s\n", pollers, interval)

	// Extra pollers race the primary loop on claiming due jobs; the claim
	// is atomic so each job still runs exactly once.
	var wg sync.WaitGroup
	if pollers > 1 {
		pool, err := ants.NewPool(pollers - 1)
		if err != nil {
			return fmt.Errorf("failed to create poller pool: %w", err)
		}
		defer pool.Release()

		for i := 1; i < pollers; i++ {
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := db.RunDueJobs(ctx); err != nil {
							slog.Error("poller failed", "err", err)
						}
					}
				}
			})
			if submitErr != nil {
				wg.Done()
				return fmt.Errorf("failed to start poller: %w", submitErr)
			}
		}
	}

	err = db.StartWorker(ctx, interval)
	wg.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Worker stopped")
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one question argument")
	}
	question := c.Args().First()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Retrieve(ctx, c.String("tenant"), question, c.String("document"), c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching chunks found")
		return nil
	}

	assembler := search.NewAssembler()
	for i, result := range results {
		signals := make([]string, 0, len(result.Signals))
		for _, s := range result.Signals {
			signals = append(signals, string(s))
		}
		fmt.Printf("%d. %s (page %d, score %.3f", i+1, result.DocumentName, result.Chunk.Page, result.Score)
		if len(signals) > 0 {
			fmt.Printf(", %s", strings.Join(signals, "+"))
		}
		fmt.Println(")")
		fmt.Printf("   %s\n", assembler.Snippet(result.Chunk.Content))
	}
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one question argument")
	}
	question := c.Args().First()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	answer, err := db.Ask(ctx, c.String("tenant"), c.String("conversation"), question, c.String("document"))
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, citation := range answer.Citations {
			fmt.Printf("  [%d] %s, page %d (%s)\n", i+1, citation.DocumentName, citation.Page, citation.Section)
		}
	}
	fmt.Fprintf(os.Stderr, "\nConversation: %s (pass --conversation to continue it)\n", answer.ConversationId)
	return nil
}

func reprocessCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one document id argument")
	}

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := db.ReprocessDocument(ctx, c.String("tenant"), c.Args().First())
	if err != nil {
		return fmt.Errorf("reprocess failed: %w", err)
	}

	fmt.Printf("Job: %s (%s)\n", job.Id, job.Status)
	fmt.Fprintln(os.Stderr, "Queued; run the worker to process it")
	return nil
}

func documentsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := db.ListDocuments(ctx, c.String("tenant"), core.DocumentStatus(c.String("status")), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	for _, doc := range docs {
		fmt.Printf("%s  %-10s  %4dp  %s\n", doc.Id, doc.Status, doc.PageCount, doc.Filename)
		if doc.Error != "" {
			fmt.Printf("%s  error: %s\n", strings.Repeat(" ", len(doc.Id)), doc.Error)
		}
	}
	return nil
}

func jobsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := db.ListJobs(ctx, c.String("tenant"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	for _, job := range list {
		fmt.Printf("%s  %-10s  %s  attempt %d/%d\n", job.Id, job.Status, job.Type, job.Attempts, job.MaxAttempts)
		if job.Error != "" {
			fmt.Printf("%s  error: %s\n", strings.Repeat(" ", len(job.Id)), job.Error)
		}
	}
	return nil
}

// contentTypeForFile maps the supported upload extensions to their MIME
// types. Unknown extensions return "".
func contentTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return extract.ContentTypePlain
	case ".pdf":
		return extract.ContentTypePDF
	case ".docx":
		return extract.ContentTypeDOCX
	default:
		return ""
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
