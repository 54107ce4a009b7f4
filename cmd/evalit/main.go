// Copyright 2026 Poiesic Systems
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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/evalit/ai"
	"github.com/poiesic/evalit/search"
)

func main() {
	app := &cli.App{
		Name:  "evalit",
		Usage: "Resilient AI client and literature search for thesis evaluation",
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
				Name:      "ask",
				Usage:     "Send a single message to the configured AI backend",
				ArgsUsage: "MESSAGE",
				Action:    askCommand,
				Flags: append(backendFlags(),
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session id for conversational reuse (empty for one-shot)",
					},
				),
			},
			{
				Name:      "batch",
				Usage:     "Send many messages concurrently, one response per line",
				ArgsUsage: "[MESSAGE ...]",
				Action:    batchCommand,
				Flags: append(backendFlags(),
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read messages from file, one per line (- for stdin)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent dispatch workers",
						Value: 5,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run literature search expressions concurrently",
				ArgsUsage: "EXPRESSION [EXPRESSION ...]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "endpoint",
						Usage:    "Search service endpoint URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Platform identifier sent with each request",
						Value: "NZKPT",
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Access token (skips the OAuth exchange)",
						EnvVars: []string{"EVALIT_SEARCH_TOKEN"},
					},
					&cli.StringFlag{
						Name:  "oauth-url",
						Usage: "OAuth token endpoint (used when no token is given)",
					},
					&cli.StringFlag{
						Name:    "client-id",
						EnvVars: []string{"EVALIT_SEARCH_CLIENT_ID"},
					},
					&cli.StringFlag{
						Name:    "client-secret",
						EnvVars: []string{"EVALIT_SEARCH_CLIENT_SECRET"},
					},
					&cli.StringFlag{
						Name:  "lang",
						Usage: "Query language (Chinese or English)",
						Value: "Chinese",
					},
					&cli.StringFlag{
						Name:  "date-upper",
						Usage: "Publication date upper bound (free-form, normalized)",
					},
					&cli.IntFlag{
						Name:  "max-clients",
						Usage: "Concurrent search clients",
						Value: 5,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// backendFlags are the AI backend selection flags shared by ask and batch.
func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Backend kind (auto, chat, generate)",
			Value: "auto",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Chat backend API key",
			EnvVars: []string{"EVALIT_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Chat backend base URL",
			EnvVars: []string{"EVALIT_API_BASE"},
		},
		&cli.StringFlag{
			Name:    "generate-host",
			Usage:   "Generate backend server URL",
			EnvVars: []string{"OLLAMA_HOST"},
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Model identifier override",
		},
	}
}

func buildConfig(c *cli.Context) (*ai.Config, error) {
	var kind ai.BackendKind
	switch c.String("backend") {
	case "auto", "":
		kind = ai.BackendAuto
	case "chat":
		kind = ai.BackendChat
	case "generate":
		kind = ai.BackendGenerate
	default:
		return nil, fmt.Errorf("invalid backend %q: must be one of auto, chat, generate", c.String("backend"))
	}

	opts := []ai.ConfigOption{ai.WithBackend(kind)}
	if v := c.String("api-key"); v != "" {
		opts = append(opts, ai.WithAPIKey(v))
	}
	if v := c.String("base-url"); v != "" {
		opts = append(opts, ai.WithBaseURL(v))
	}
	if v := c.String("generate-host"); v != "" {
		opts = append(opts, ai.WithGenerateHost(v))
	}
	if v := c.String("model"); v != "" {
		opts = append(opts, ai.WithChatModel(v), ai.WithGenerateModel(v))
	}
	if c.IsSet("workers") {
		opts = append(opts, ai.WithMaxWorkers(c.Int("workers")))
	}
	return ai.NewConfig(opts...), nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("message is required")
	}
	message := strings.Join(c.Args().Slice(), " ")

	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	client, err := ai.NewClient(cfg)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	resp, err := client.Send(context.Background(), message, c.String("session"))
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	fmt.Println(resp.Content)
	return nil
}

func batchCommand(c *cli.Context) error {
	messages, err := collectMessages(c)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return fmt.Errorf("no messages given")
	}

	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	client, err := ai.NewClient(cfg)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	results, err := client.SendBatch(context.Background(), messages, "")
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}
	for i, resp := range results {
		if resp == nil {
			fmt.Printf("%d: <failed>\n", i)
			continue
		}
		fmt.Printf("%d: %s\n", i, resp.Content)
	}
	return nil
}

// collectMessages gathers batch input from --file (or stdin) plus positional
// arguments, in that order.
func collectMessages(c *cli.Context) ([]string, error) {
	var messages []string
	if path := c.String("file"); path != "" {
		var in *os.File
		if path == "-" {
			in = os.Stdin
		} else {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			in = f
		}
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				messages = append(messages, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	messages = append(messages, c.Args().Slice()...)
	return messages, nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one search expression is required")
	}
	ctx := context.Background()

	token := c.String("token")
	if token == "" {
		oauthURL := c.String("oauth-url")
		if oauthURL == "" {
			return fmt.Errorf("either --token or --oauth-url with client credentials is required")
		}
		fetched, err := search.FetchToken(ctx, oauthURL, c.String("client-id"), c.String("client-secret"))
		if err != nil {
			return fmt.Errorf("token exchange failed: %w", err)
		}
		token = fetched.AccessToken
	}

	pool, err := search.NewClientPool(
		c.String("endpoint"),
		c.String("platform"),
		token,
		search.WithMaxClients(c.Int("max-clients")),
	)
	if err != nil {
		return err
	}

	lang := search.LangChinese
	if strings.EqualFold(c.String("lang"), "english") {
		lang = search.LangEnglish
	}

	queries := make([]search.Query, c.NArg())
	for i, expr := range c.Args().Slice() {
		queries[i] = search.Query{
			Expression: expr,
			Lang:       lang,
			DateUpper:  c.String("date-upper"),
		}
	}

	results := pool.DispatchConcurrent(ctx, queries)
	for i, result := range results {
		if result == nil {
			fmt.Printf("query %d: <failed>\n", i)
			continue
		}
		fmt.Printf("query %d: %d hits (showing %d)\n", i, result.Total, len(result.Items))
		for j, item := range result.Items {
			fmt.Printf("  %d: %s (%s, %s)\n", j, item.Title, item.Journal, item.Year)
		}
	}
	return nil
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
