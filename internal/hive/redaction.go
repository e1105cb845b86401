package hive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RedactionJob tracks one pass of the redaction pipeline over a
// contribution. The original text is kept only here so reviewers can
// audit low-confidence results.
type RedactionJob struct {
	ID                   string    `json:"id"`
	EngagementID         string    `json:"engagement_id"`
	AuthorID             int64     `json:"author_id"`
	OriginalText         string    `json:"-"`
	RedactedText         string    `json:"redacted_text,omitempty"`
	PIICategories        []string  `json:"pii_categories"`
	SecretCategories     []string  `json:"secret_categories"`
	Confidence           string    `json:"confidence,omitempty"`
	RequiresManualReview bool      `json:"requires_manual_review"`
	Status               string    `json:"status"`
	Error                string    `json:"error,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// CreateRedactionJob records a pending job for a submitted text.
func (s *Store) CreateRedactionJob(ctx context.Context, engagementID string, authorID int64, original string) (*RedactionJob, error) {
	job := &RedactionJob{
		ID:           uuid.NewString(),
		EngagementID: engagementID,
		AuthorID:     authorID,
		OriginalText: original,
		Status:       JobPending,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO redaction_jobs (id, engagement_id, author_id, original_text, status)
		 VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.EngagementID, job.AuthorID, job.OriginalText, job.Status)
	if err != nil {
		return nil, fmt.Errorf("create redaction job: %w", err)
	}
	return job, nil
}

// MarkJobProcessing moves a job out of the pending state.
func (s *Store) MarkJobProcessing(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE redaction_jobs SET status = ? WHERE id = ?`, JobProcessing, id)
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	return nil
}

// CompleteJob stores the redaction result.
func (s *Store) CompleteJob(ctx context.Context, job *RedactionJob) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE redaction_jobs
		 SET status = ?, redacted_text = ?, pii_categories = ?, secret_categories = ?,
		     confidence = ?, requires_manual_review = ?
		 WHERE id = ?`,
		JobCompleted, job.RedactedText, joinList(job.PIICategories), joinList(job.SecretCategories),
		job.Confidence, boolToInt(job.RequiresManualReview), job.ID)
	if err != nil {
		return fmt.Errorf("complete redaction job: %w", err)
	}
	job.Status = JobCompleted
	return nil
}

// FailJob records a terminal failure with its cause.
func (s *Store) FailJob(ctx context.Context, id, cause string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE redaction_jobs SET status = ?, error = ? WHERE id = ?`, JobFailed, cause, id)
	if err != nil {
		return fmt.Errorf("fail redaction job: %w", err)
	}
	return nil
}

// GetRedactionJob returns a job by id, nil when absent.
func (s *Store) GetRedactionJob(ctx context.Context, id string) (*RedactionJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, engagement_id, author_id, original_text, redacted_text,
		        pii_categories, secret_categories, confidence, requires_manual_review,
		        status, error, created_at
		 FROM redaction_jobs WHERE id = ?`, id)

	job := &RedactionJob{}
	var pii, secrets string
	var review int
	err := row.Scan(&job.ID, &job.EngagementID, &job.AuthorID, &job.OriginalText, &job.RedactedText,
		&pii, &secrets, &job.Confidence, &review, &job.Status, &job.Error, &job.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	job.PIICategories = splitList(pii)
	job.SecretCategories = splitList(secrets)
	job.RequiresManualReview = review != 0
	return job, nil
}
