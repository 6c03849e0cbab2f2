package engine

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/observability"
)

// RetryPolicy retries transient completion failures with exponential
// backoff. Sleep and Jitter are injectable so tests run without real
// waiting.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(time.Duration)
	Jitter      func(time.Duration) time.Duration
}

func DefaultRetryPolicy(maxAttempts int, baseDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Sleep:       time.Sleep,
		Jitter: func(d time.Duration) time.Duration {
			return d + time.Duration(rand.Int63n(int64(d)/2+1))
		},
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	delay := p.BaseDelay << attempt
	if p.Jitter != nil {
		delay = p.Jitter(delay)
	}
	return delay
}

// SQLGenerator turns a prompt into a SQL candidate via the completion
// client, bounding each call with a timeout.
type SQLGenerator struct {
	client  llm.Client
	timeout time.Duration
	retry   RetryPolicy
}

func NewSQLGenerator(client llm.Client, timeout time.Duration, retry RetryPolicy) *SQLGenerator {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.Sleep == nil {
		retry.Sleep = time.Sleep
	}
	return &SQLGenerator{client: client, timeout: timeout, retry: retry}
}

// Generate returns the extracted SQL and the number of attempts used.
// Only transient failures are retried; rejection errors fail at once.
func (g *SQLGenerator) Generate(ctx context.Context, prompt Prompt) (string, int, error) {
	if prompt.NoSchema {
		return "", 0, &GenerationError{Reason: "no schema available to ground the query"}
	}

	var lastErr error
	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		raw, err := g.complete(ctx, prompt)
		if err == nil {
			sqlText, extractErr := ExtractSQL(raw)
			if extractErr != nil {
				return "", attempt + 1, &GenerationError{
					Reason:   "no SQL statement in model output",
					Attempts: attempt + 1,
					Err:      extractErr,
				}
			}
			return sqlText, attempt + 1, nil
		}
		if !llm.IsTransient(err) {
			return "", attempt + 1, &GenerationError{
				Reason:   "completion request rejected",
				Attempts: attempt + 1,
				Err:      err,
			}
		}
		lastErr = err
		if attempt < g.retry.MaxAttempts-1 {
			g.retry.Sleep(g.retry.delay(attempt))
		}
	}
	return "", g.retry.MaxAttempts, &GenerationError{
		Reason:   "transient completion failures exhausted retries",
		Attempts: g.retry.MaxAttempts,
		Err:      lastErr,
	}
}

func (g *SQLGenerator) complete(ctx context.Context, prompt Prompt) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	start := time.Now()
	raw, err := g.client.Complete(ctx, llm.Request{System: prompt.System, User: prompt.User})
	observability.ObserveLLMRequest(time.Since(start))
	return raw, err
}

var fencedSQLPattern = regexp.MustCompile("(?s)```sql\\s*(.*?)```")

var statementStartPattern = regexp.MustCompile(`(?i)\b(SELECT|WITH)\b`)

// ExtractSQL pulls one statement out of model output: a ```sql fenced
// block first, otherwise the first run starting with SELECT or WITH.
func ExtractSQL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &GenerationError{Reason: "model returned empty output"}
	}

	if match := fencedSQLPattern.FindStringSubmatch(trimmed); match != nil {
		candidate := strings.TrimSpace(match[1])
		if candidate != "" {
			return candidate, nil
		}
	}

	if loc := statementStartPattern.FindStringIndex(trimmed); loc != nil {
		candidate := trimmed[loc[0]:]
		if cut := strings.Index(candidate, "```"); cut >= 0 {
			candidate = candidate[:cut]
		}
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			return candidate, nil
		}
	}

	return "", &GenerationError{Reason: "no SQL statement in model output"}
}
