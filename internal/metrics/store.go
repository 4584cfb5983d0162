package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meal-prep-planner/internal/database"
	"meal-prep-planner/internal/llm"
)

// ExecutionMetric records metadata for a single text generator call.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, ts.UTC().Format(database.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// RecordUsage records a generator call. Calls that report no tokens are skipped.
func (s *Store) RecordUsage(ctx context.Context, agentName string, usage llm.TokenUsage, latency time.Duration) error {
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(ctx, MapUsage(agentName, usage, latency))
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(database.TimeLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day, SUM(prompt_tokens), SUM(completion_tokens), COUNT(*)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var (
			day                sql.NullString
			prompt, completion sql.NullInt64
			u                  DailyUsage
		)
		if err := rows.Scan(&day, &prompt, &completion, &u.TotalExecution); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		u.TotalPrompt = int(prompt.Int64)
		u.TotalCompletion = int(completion.Int64)
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(database.TimeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapUsage converts llm.TokenUsage to an ExecutionMetric.
func MapUsage(agentName string, usage llm.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}
