// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package document turns source files into plain text for the analysis stages.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/tool"
)

// ToolName is the name the extractor registers under.
const ToolName = "read_financial_document"

// FailurePrefix marks extraction failures in the text form returned by Run.
const FailurePrefix = "Error"

// Extractor reads PDF and plain-text documents.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text of the document at path.
// Failures are returned as *errors.Error with CodeExtraction.
func (e *Extractor) Extract(path string) (text string, err error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New(errors.CodeExtraction, "document path is empty", nil).
			WithRecoverable(true)
	}

	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.New(errors.CodeExtraction, "document is malformed", fmt.Errorf("%v", r)).
				WithContext("path", path).
				WithRecoverable(true)
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return "", extractionError(path, readErr)
		}
		return string(data), nil
	default:
		raw, readErr := readPDF(path)
		if readErr != nil {
			return "", extractionError(path, readErr)
		}
		return collapseBlankLines(raw), nil
	}
}

// Run implements tool.Runner. Failures are reported in text form as
// "Error reading PDF file: <cause>" and never as an error.
func (e *Extractor) Run(path string) (string, error) {
	text, err := e.Extract(path)
	if err != nil {
		cause := err
		if typed := errors.As(err); typed.Err != nil {
			cause = typed.Err
		}
		return fmt.Sprintf("%s reading PDF file: %v", FailurePrefix, cause), nil
	}
	return text, nil
}

// Tool returns the extractor as a runner-shaped tool.
func (e *Extractor) Tool() tool.Tool {
	return tool.FromRunner(ToolName, e)
}

// IsExtractionFailure reports whether an extraction produced no usable content.
func IsExtractionFailure(text string, err error) bool {
	if err != nil && errors.IsCode(err, errors.CodeExtraction) {
		return true
	}
	return text == "" || strings.HasPrefix(text, FailurePrefix)
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n") {
		s = strings.ReplaceAll(s, "\n\n", "\n")
	}
	return s
}

func extractionError(path string, cause error) *errors.Error {
	return errors.New(errors.CodeExtraction, "failed to read document", cause).
		WithContext("path", path).
		WithRecoverable(true)
}
