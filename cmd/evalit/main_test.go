package main

import (
	"flag"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/evalit/ai"
)

// runContext builds a cli.Context with the given string flags set, mirroring
// how the app parses them.
func runContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, value := range flags {
		set.String(name, value, "")
	}
	return cli.NewContext(&cli.App{Name: "evalit"}, set, nil)
}

func TestBuildConfig(t *testing.T) {
	t.Run("backend kinds", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected ai.BackendKind
		}{
			{"auto", ai.BackendAuto},
			{"chat", ai.BackendChat},
			{"generate", ai.BackendGenerate},
		}
		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				c := runContext(t, map[string]string{"backend": tc.input})
				cfg, err := buildConfig(c)
				require.NoError(t, err)
				assert.Equal(t, tc.expected, cfg.Backend)
			})
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		c := runContext(t, map[string]string{"backend": "grpc"})
		_, err := buildConfig(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid backend")
	})

	t.Run("credentials pass through", func(t *testing.T) {
		c := runContext(t, map[string]string{
			"backend":  "chat",
			"api-key":  "sk-test",
			"base-url": "https://api.example.com",
		})
		cfg, err := buildConfig(c)
		require.NoError(t, err)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	})

	t.Run("model override applies to both backends", func(t *testing.T) {
		c := runContext(t, map[string]string{"backend": "auto", "model": "llama3"})
		cfg, err := buildConfig(c)
		require.NoError(t, err)
		assert.Equal(t, "llama3", cfg.Chat.Model)
		assert.Equal(t, "llama3", cfg.Generate.Model)
	})

	t.Run("defaults survive", func(t *testing.T) {
		c := runContext(t, map[string]string{"backend": "auto"})
		cfg, err := buildConfig(c)
		require.NoError(t, err)
		assert.Equal(t, 60*time.Second, cfg.BatchTimeout)
		assert.Equal(t, 5, cfg.MaxWorkers)
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}

		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
