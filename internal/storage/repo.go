package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var ErrNotFound = errors.New("not found")

// GetAIRecord returns the single registry record as raw JSON.
func (s *Store) GetAIRecord(ctx context.Context) (string, error) {
	q := s.sql.Select("record").From("ai_settings").Where(sq.Eq{"id": 1})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build ai record query: %w", err)
	}
	var record string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get ai record: %w", err)
	}
	return record, nil
}

// PutAIRecord replaces the registry record wholesale.
func (s *Store) PutAIRecord(ctx context.Context, record string) error {
	if !json.Valid([]byte(record)) {
		return fmt.Errorf("ai record is not valid json")
	}
	q := s.sql.Insert("ai_settings").
		Columns("id", "record", "updated_at").
		Values(1, record, nowExpr(s.driver)).
		Suffix("ON CONFLICT(id) DO UPDATE SET record=excluded.record, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build ai record upsert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("put ai record: %w", err)
	}
	return nil
}

func (s *Store) GetPromptTemplate(ctx context.Context, useCase string) (string, error) {
	q := s.sql.Select("body").From("prompt_templates").Where(sq.Eq{"use_case": useCase})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build prompt template query: %w", err)
	}
	var body string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get prompt template: %w", err)
	}
	return body, nil
}

func (s *Store) UpsertPromptTemplate(ctx context.Context, useCase, body string) error {
	q := s.sql.Insert("prompt_templates").
		Columns("use_case", "body", "updated_at").
		Values(useCase, body, nowExpr(s.driver)).
		Suffix("ON CONFLICT(use_case) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build prompt template upsert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert prompt template: %w", err)
	}
	return nil
}

func (s *Store) ListPromptTemplates(ctx context.Context) ([]PromptTemplate, error) {
	q := s.sql.Select("use_case", "body", "updated_at").From("prompt_templates").OrderBy("use_case ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list prompt templates query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list prompt templates: %w", err)
	}
	defer rows.Close()

	out := make([]PromptTemplate, 0)
	for rows.Next() {
		var t PromptTemplate
		if err := rows.Scan(&t.UseCase, &t.Body, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt template row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt template rows: %w", err)
	}
	return out, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	q := s.sql.Select("value").From("settings").Where(sq.Eq{"key": key})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build setting query: %w", err)
	}
	var value string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	q := s.sql.Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value=excluded.value")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build setting upsert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (s *Store) UpsertInsight(ctx context.Context, in Insight) error {
	q := s.sql.Insert("interview_insights").
		Columns("interview_id", "objective", "insights", "status", "last_error", "updated_at").
		Values(in.InterviewID, in.Objective, in.Insights, in.Status, in.LastError, nowExpr(s.driver)).
		Suffix("ON CONFLICT(interview_id) DO UPDATE SET objective=excluded.objective, insights=excluded.insights, status=excluded.status, last_error=excluded.last_error, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insight upsert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert insight: %w", err)
	}
	return nil
}

func (s *Store) GetInsight(ctx context.Context, interviewID string) (Insight, error) {
	q := s.sql.Select("interview_id", "objective", "insights", "status", "last_error", "updated_at").
		From("interview_insights").
		Where(sq.Eq{"interview_id": interviewID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Insight{}, fmt.Errorf("build insight query: %w", err)
	}

	var in Insight
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&in.InterviewID,
		&in.Objective,
		&in.Insights,
		&in.Status,
		&in.LastError,
		&in.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Insight{}, ErrNotFound
		}
		return Insight{}, fmt.Errorf("get insight: %w", err)
	}
	return in, nil
}

func (s *Store) LogAction(ctx context.Context, e AuditEntry) error {
	if e.MetaJSON == "" || !json.Valid([]byte(e.MetaJSON)) {
		e.MetaJSON = "{}"
	}

	q := s.sql.Insert("audit_log").
		Columns("actor", "action", "meta_json").
		Values(e.Actor, e.Action, e.MetaJSON)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func nowExpr(driver string) any {
	if driver == "postgres" {
		return sq.Expr("NOW()")
	}
	return sq.Expr("CURRENT_TIMESTAMP")
}
