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
	"log/slog"
	"os"
	"testing"

	"github.com/knowstack/knowstack/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestStoreFlags(t *testing.T) {
	flags := storeFlags()

	findString := func(name string) *cli.StringFlag {
		for _, flag := range flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
				return f
			}
		}
		return nil
	}
	findInt := func(name string) *cli.IntFlag {
		for _, flag := range flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == name {
				return f
			}
		}
		return nil
	}

	t.Run("data-dir is required with short alias", func(t *testing.T) {
		f := findString("data-dir")
		require.NotNil(t, f)
		assert.True(t, f.Required)
		assert.Equal(t, []string{"d"}, f.Aliases)
	})

	t.Run("tenant is required", func(t *testing.T) {
		f := findString("tenant")
		require.NotNil(t, f)
		assert.True(t, f.Required)
	})

	t.Run("embedding-host defaults to local ollama", func(t *testing.T) {
		f := findString("embedding-host")
		require.NotNil(t, f)
		assert.Equal(t, "http://localhost:11434/v1", f.Value)
	})

	t.Run("token reads from environment", func(t *testing.T) {
		f := findString("token")
		require.NotNil(t, f)
		assert.Equal(t, []string{"KNOWSTACK_AI_TOKEN"}, f.EnvVars)
	})

	t.Run("qdrant-host is optional", func(t *testing.T) {
		f := findString("qdrant-host")
		require.NotNil(t, f)
		assert.False(t, f.Required)
		assert.Empty(t, f.Value)
	})

	t.Run("qdrant-port has default value of 6334", func(t *testing.T) {
		f := findInt("qdrant-port")
		require.NotNil(t, f)
		assert.Equal(t, 6334, f.Value)
	})
}

func TestCommandValidation(t *testing.T) {
	app := &cli.App{
		Name: "knowstack",
		Commands: []*cli.Command{
			{
				Name:   "upload",
				Action: uploadCommand,
				Flags:  storeFlags(),
			},
			{
				Name:   "ask",
				Action: askCommand,
				Flags:  storeFlags(),
			},
		},
	}

	t.Run("missing data-dir flag fails", func(t *testing.T) {
		args := []string{"knowstack", "upload", "--tenant", "acme", "report.txt"}
		err := app.Run(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data-dir")
	})

	t.Run("missing tenant flag fails", func(t *testing.T) {
		args := []string{"knowstack", "upload", "--data-dir", "/tmp/test", "report.txt"}
		err := app.Run(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenant")
	})

	t.Run("upload without file argument fails", func(t *testing.T) {
		args := []string{"knowstack", "upload", "--data-dir", t.TempDir(), "--tenant", "acme"}
		err := app.Run(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file argument")
	})

	t.Run("ask without question argument fails", func(t *testing.T) {
		args := []string{"knowstack", "ask", "--data-dir", t.TempDir(), "--tenant", "acme"}
		err := app.Run(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "question argument")
	})
}

func TestContentTypeForFile(t *testing.T) {
	testCases := []struct {
		path     string
		expected string
	}{
		{"report.txt", extract.ContentTypePlain},
		{"notes.md", extract.ContentTypePlain},
		{"manual.PDF", extract.ContentTypePDF},
		{"contract.docx", extract.ContentTypeDOCX},
		{"/some/dir/deep.pdf", extract.ContentTypePDF},
		{"archive.zip", ""},
		{"noextension", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, contentTypeForFile(tc.path))
		})
	}
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
						&cli.StringFlag{Name: "log-level"},
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

	t.Run("invalid log level fails", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}

		err := app.Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
