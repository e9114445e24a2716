// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists finished analyses per user.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/fincrew/pkg/errors"
)

// Analysis holds the three stage results of one run.
type Analysis struct {
	FinancialAnalysis  string `json:"financial_analysis"`
	InvestmentAdvising string `json:"investment_advising"`
	RiskAssessment     string `json:"risk_assessment"`
}

// Record is one stored analysis.
type Record struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Query     string    `json:"query"`
	FilePath  string    `json:"file_path"`
	Analysis  Analysis  `json:"analysis"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists analysis records.
type Store interface {
	// Insert stores rec and returns its id. Empty ID and CreatedAt are filled in.
	Insert(ctx context.Context, rec Record) (string, error)
	Get(ctx context.Context, id string) (Record, error)
	// ListByUsername returns the user's records, newest first.
	ListByUsername(ctx context.Context, username string) ([]Record, error)
}

// prepare validates rec and fills the generated fields.
func prepare(rec Record, now func() time.Time) (Record, error) {
	if strings.TrimSpace(rec.Username) == "" {
		return Record{}, errors.New(errors.CodeInvalidInput, "record username is required", nil)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func notFound(id string) error {
	return errors.New(errors.CodeNotFound, "analysis record not found", nil).WithContext("id", id)
}

func encodeAnalysis(a Analysis) (string, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeAnalysis(raw string) (Analysis, error) {
	var a Analysis
	if raw == "" {
		return a, nil
	}
	err := json.Unmarshal([]byte(raw), &a)
	return a, err
}
