package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Vovarama1992/assistantjs-go/internal/logging"
	"github.com/Vovarama1992/assistantjs-go/pkg/assistantjs"
)

type rootFlags struct {
	baseURL    string
	projectID  string
	origin     string
	user       string
	noRetry    bool
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logLevel   string
	output     string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	defaults := assistantjs.DefaultRetryConfig()

	root := &cobra.Command{
		Use:           "assistantjs",
		Short:         "Talk to AssistantJS assistants from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.baseURL, "base-url", os.Getenv("ASSISTANTJS_BASE_URL"), "public API base URL (default derived from --origin)")
	pf.StringVarP(&f.projectID, "project", "p", os.Getenv("ASSISTANTJS_PROJECT_ID"), "public project ID (proj_..._public)")
	pf.StringVar(&f.origin, "origin", os.Getenv("ASSISTANTJS_ORIGIN"), "origin of the host the client acts for")
	pf.StringVar(&f.user, "user", "", "user identifier attached to the session")
	pf.BoolVar(&f.noRetry, "no-retry", !defaults.AutoRetry, "disable automatic retries")
	pf.IntVar(&f.maxRetries, "max-retries", defaults.MaxRetries, "retries after the first attempt")
	pf.DurationVar(&f.retryDelay, "retry-delay", defaults.RetryDelay, "base delay between retries (multiplied by the attempt number)")
	pf.DurationVar(&f.timeout, "timeout", defaults.Timeout, "per-attempt timeout")
	pf.StringVar(&f.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")
	pf.StringVarP(&f.output, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		newInfoCmd(f),
		newSendCmd(f),
		newChatCmd(f),
		newHealthCmd(f),
	)
	return root
}

func (f *rootFlags) logger() zerolog.Logger {
	return logging.New(f.logLevel)
}

// connect builds a client and runs Init with the flag values.
func (f *rootFlags) connect(cmd *cobra.Command) (*assistantjs.Client, error) {
	if f.projectID == "" {
		return nil, errors.New("--project (or ASSISTANTJS_PROJECT_ID) is required")
	}
	autoRetry := !f.noRetry
	c := assistantjs.New(
		assistantjs.WithLogger(f.logger()),
		assistantjs.WithOriginResolver(assistantjs.StaticOrigin(f.origin)),
	)
	return c.Init(cmd.Context(), f.projectID, &assistantjs.InitOptions{
		BaseURL:        f.baseURL,
		UserIdentifier: f.user,
		Metadata:       map[string]any{"client": "assistantjs-cli"},
		Retry: &assistantjs.RetryOverrides{
			AutoRetry:  &autoRetry,
			MaxRetries: &f.maxRetries,
			RetryDelay: &f.retryDelay,
			Timeout:    &f.timeout,
		},
	})
}

// render writes v in the selected format; text falls back to the given func.
func (f *rootFlags) render(w io.Writer, v any, text func(io.Writer)) error {
	switch f.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", f.output)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
