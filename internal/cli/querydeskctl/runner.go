// Package querydeskctl implements the querydeskctl command line client
// for the querydesk HTTP API.
package querydeskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Session    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// Run executes one CLI invocation and returns the process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	runner := &runner{
		baseURL: firstNonEmpty(defaults.BaseURL, "http://localhost:8080"),
		apiKey:  defaults.APIKey,
		session: firstNonEmpty(defaults.Session, "default"),
		timeout: durationOr(defaults.Timeout, 30*time.Second),
		client:  defaults.HTTPClient,
		stdout:  stdout,
		stderr:  stderr,
	}

	root := runner.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	return 0
}

type runner struct {
	baseURL string
	apiKey  string
	session string
	timeout time.Duration
	client  *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

func (r *runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "querydeskctl",
		Short:         "Ask natural language questions against the querydesk API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&r.baseURL, "base-url", r.baseURL, "querydesk API base URL")
	root.PersistentFlags().StringVar(&r.apiKey, "api-key", r.apiKey, "API key for authenticated requests")
	root.PersistentFlags().StringVar(&r.session, "session", r.session, "conversation session id")
	root.PersistentFlags().DurationVar(&r.timeout, "timeout", r.timeout, "HTTP timeout (e.g. 30s)")

	root.AddCommand(
		r.askCommand(),
		r.suggestCommand(),
		r.resetCommand(),
		r.schemaCommand(),
		r.exportCommand(),
		r.healthCommand(),
	)
	return root
}

func (r *runner) askCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and print the generated SQL and results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			payload, err := json.Marshal(map[string]string{
				"session_id": r.session,
				"question":   question,
			})
			if err != nil {
				return err
			}
			body, err := r.do(cmd.Context(), http.MethodPost, "/v1/query", payload)
			if err != nil {
				return err
			}
			return r.printJSON(body)
		},
	}
}

func (r *runner) suggestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "List follow-up question suggestions for the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := r.do(cmd.Context(), http.MethodGet, "/v1/sessions/"+r.session+"/suggestions", nil)
			if err != nil {
				return err
			}
			return r.printJSON(body)
		},
	}
}

func (r *runner) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the session's conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := r.do(cmd.Context(), http.MethodPost, "/v1/sessions/"+r.session+"/reset", nil)
			if err != nil {
				return err
			}
			return r.printJSON(body)
		},
	}
}

func (r *runner) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the cached database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := r.do(cmd.Context(), http.MethodGet, "/v1/schema", nil)
			if err != nil {
				return err
			}
			return r.printJSON(body)
		},
	}
}

func (r *runner) exportCommand() *cobra.Command {
	var format string
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the session's last result set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := r.do(cmd.Context(), http.MethodGet, "/v1/sessions/"+r.session+"/export?format="+format, nil)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = r.stdout.Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			_, _ = fmt.Fprintf(r.stdout, "wrote %d bytes to %s\n", len(body), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv, json, or parquet")
	cmd.Flags().StringVar(&output, "output", "-", "output file, or - for stdout")
	return cmd
}

func (r *runner) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := r.do(cmd.Context(), http.MethodGet, "/v1/health", nil)
			if err != nil {
				return err
			}
			return r.printJSON(body)
		},
	}
}

func (r *runner) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	client := r.client
	if client == nil {
		client = &http.Client{Timeout: r.timeout}
	}

	endpoint := strings.TrimRight(r.baseURL, "/") + path
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(r.apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(r.apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func (r *runner) printJSON(raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		_, _ = fmt.Fprintln(r.stdout, string(raw))
		return nil
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.stdout, string(formatted))
	return nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
