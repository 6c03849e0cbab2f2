package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/querydesk/querydesk/internal/executor"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/schema"
)

// SchemaSource supplies the current schema snapshot. The cache in the
// schema package satisfies it.
type SchemaSource interface {
	Current() schema.Snapshot
}

type ServiceConfig struct {
	MaxQuestionLength int
}

// Service runs the full pipeline for one question: record the turn,
// build the prompt, generate and validate SQL, execute, analyze, and
// suggest follow-ups.
type Service struct {
	logger      *slog.Logger
	contexts    *ContextManager
	prompts     *PromptBuilder
	generator   *SQLGenerator
	validator   SQLValidator
	suggestions *SuggestionEngine
	schemas     SchemaSource
	runner      executor.Runner
	maxQuestion int

	mu          sync.Mutex
	lastResults map[string]StoredResult
}

// StoredResult retains a session's last successful query for export.
type StoredResult struct {
	SQL         string
	Result      executor.Result
	GeneratedAt time.Time
}

type QueryResponse struct {
	SQL         string
	Result      executor.Result
	Analysis    Analysis
	Suggestions []Suggestion
	Warnings    []string
	Attempts    int
}

func NewService(
	logger *slog.Logger,
	contexts *ContextManager,
	prompts *PromptBuilder,
	generator *SQLGenerator,
	suggestions *SuggestionEngine,
	schemas SchemaSource,
	runner executor.Runner,
	cfg ServiceConfig,
) *Service {
	maxQuestion := cfg.MaxQuestionLength
	if maxQuestion <= 0 {
		maxQuestion = 2000
	}
	return &Service{
		logger:      logger,
		contexts:    contexts,
		prompts:     prompts,
		generator:   generator,
		suggestions: suggestions,
		schemas:     schemas,
		runner:      runner,
		maxQuestion: maxQuestion,
		lastResults: map[string]StoredResult{},
	}
}

// ProcessQuery handles one user question. The question is recorded in
// the conversation even when a later stage fails, so suggestion dedup
// still sees it. Rejected SQL is never executed and never stored.
func (s *Service) ProcessQuery(ctx context.Context, sessionID, question string) (QueryResponse, error) {
	if sessionID == "" {
		return QueryResponse{}, &ContextError{Reason: "session id is required"}
	}
	if question == "" {
		return QueryResponse{}, &ContextError{Reason: "question is empty"}
	}
	if len(question) > s.maxQuestion {
		return QueryResponse{}, &ContextError{Reason: "question exceeds maximum length"}
	}

	if err := s.contexts.Acquire(sessionID); err != nil {
		return QueryResponse{}, err
	}
	defer s.contexts.Release(sessionID)

	snapshot := s.schemas.Current()
	if err := s.contexts.Append(sessionID, Turn{Role: RoleUser, Text: question, Timestamp: time.Now().UTC()}, snapshot); err != nil {
		observability.ObserveQuery("context_error")
		return QueryResponse{}, err
	}
	observability.SetActiveSessions(s.contexts.SessionCount())

	conv := s.contexts.Snapshot(sessionID)
	prompt := s.prompts.Build(snapshot, conv, question)

	sqlText, attempts, err := s.generator.Generate(ctx, prompt)
	observability.ObserveGenerationRetries(attempts - 1)
	if err != nil {
		observability.ObserveQuery("generation_error")
		s.logger.WarnContext(ctx, "sql generation failed",
			slog.String("session_id", sessionID),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
		return QueryResponse{}, err
	}

	verdict := s.validator.Validate(sqlText, snapshot)
	if !verdict.Valid {
		observability.ObserveQuery("validation_rejected")
		observability.ObserveValidationRejected(verdict.Reason)
		s.logger.WarnContext(ctx, "generated sql rejected",
			slog.String("session_id", sessionID),
			slog.String("reason", verdict.Reason),
			slog.String("detail", verdict.Detail),
		)
		return QueryResponse{}, &ValidationError{Reason: verdict.Reason, Detail: verdict.Detail}
	}

	result, err := s.runner.Run(ctx, sqlText)
	if err != nil {
		observability.ObserveQuery("execution_error")
		// The raw database error stays in the logs; callers get a
		// sanitized message.
		s.logger.ErrorContext(ctx, "query execution failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return QueryResponse{}, &ExecutionError{Reason: "the generated query could not be executed"}
	}

	analysis := Analyze(result)
	systemTurn := Turn{
		Role:      RoleSystem,
		Text:      analysis.Summary,
		SQL:       sqlText,
		Shape:     &ResultShape{Columns: result.Columns, RowCount: len(result.Rows)},
		Timestamp: time.Now().UTC(),
	}
	if err := s.contexts.Append(sessionID, systemTurn, snapshot); err != nil {
		return QueryResponse{}, err
	}

	conv = s.contexts.Snapshot(sessionID)
	suggestions := s.suggestions.Suggest(conv, snapshot)

	s.mu.Lock()
	s.lastResults[sessionID] = StoredResult{SQL: sqlText, Result: result, GeneratedAt: time.Now().UTC()}
	s.mu.Unlock()

	observability.ObserveQuery("ok")
	return QueryResponse{
		SQL:         sqlText,
		Result:      result,
		Analysis:    analysis,
		Suggestions: suggestions,
		Warnings:    verdict.Warnings,
		Attempts:    attempts,
	}, nil
}

// Suggestions computes follow-up candidates for a session without
// running a query.
func (s *Service) Suggestions(sessionID string) []Suggestion {
	snapshot := s.schemas.Current()
	conv := s.contexts.Snapshot(sessionID)
	return s.suggestions.Suggest(conv, snapshot)
}

// LastResult returns the session's last successful query for export.
func (s *Service) LastResult(sessionID string) (StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lastResults[sessionID]
	if !ok {
		return StoredResult{}, ErrNoResult
	}
	return stored, nil
}

// ResetSession clears conversation state and the stored result.
// Resetting an unknown session succeeds.
func (s *Service) ResetSession(sessionID string) {
	s.contexts.Reset(sessionID)
	s.mu.Lock()
	delete(s.lastResults, sessionID)
	s.mu.Unlock()
	observability.SetActiveSessions(s.contexts.SessionCount())
}
