// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides declarative scenarios for exercising a pipeline
// run end to end in tests.
//
// Example usage:
//
//	scenario := testing.NewScenario("happy path").
//	    WithInput(agent.KeyFilePath, "doc.txt").
//	    ExpectNoError().
//	    ExpectStage("analysis", testing.Contains("buy"))
//
//	result := scenario.Run(t, crew)
//	result.Assert(t, scenario)
package testing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/fincrew/pkg/agent"
)

// Kickoffer runs a pipeline over a payload. *crew.Crew satisfies it.
type Kickoffer interface {
	Kickoff(ctx context.Context, inputs agent.Payload) (map[string]string, error)
}

// Scenario defines one pipeline run and what it should produce.
type Scenario struct {
	name          string
	inputs        agent.Payload
	context       context.Context
	timeout       time.Duration
	expectations  []Expectation
	setupFuncs    []func() error
	teardownFuncs []func() error
}

// Expectation defines a condition to verify after running a scenario.
type Expectation interface {
	Check(result *ScenarioResult) error
	Description() string
}

// ScenarioResult contains the outcome of running a scenario.
type ScenarioResult struct {
	Results  map[string]string
	Error    error
	Duration time.Duration
}

// NewScenario creates a new test scenario with the given name.
func NewScenario(name string) *Scenario {
	return &Scenario{
		name:    name,
		inputs:  agent.Payload{},
		timeout: 30 * time.Second,
		context: context.Background(),
	}
}

// WithInput sets one kickoff input.
func (s *Scenario) WithInput(key, value string) *Scenario {
	s.inputs[key] = value
	return s
}

// WithContext sets the parent context for the run.
func (s *Scenario) WithContext(ctx context.Context) *Scenario {
	s.context = ctx
	return s
}

// WithTimeout sets the timeout for the run.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// WithSetup adds a setup function to run before the scenario.
func (s *Scenario) WithSetup(fn func() error) *Scenario {
	s.setupFuncs = append(s.setupFuncs, fn)
	return s
}

// WithTeardown adds a teardown function to run after the scenario.
func (s *Scenario) WithTeardown(fn func() error) *Scenario {
	s.teardownFuncs = append(s.teardownFuncs, fn)
	return s
}

// Expect adds an expectation to the scenario.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectStage expects the result stored under key to match.
func (s *Scenario) ExpectStage(key string, matcher StringMatcher) *Scenario {
	return s.Expect(&stageExpectation{key: key, matcher: matcher})
}

// ExpectStageCount expects exactly n stage results.
func (s *Scenario) ExpectStageCount(n int) *Scenario {
	return s.Expect(&stageCountExpectation{n: n})
}

// ExpectNoError expects the run to succeed.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(&noErrorExpectation{})
}

// ExpectError expects an error matching the given pattern and no results.
func (s *Scenario) ExpectError(matcher StringMatcher) *Scenario {
	return s.Expect(&errorExpectation{matcher: matcher})
}

// ExpectMaxDuration expects the run to complete within d.
func (s *Scenario) ExpectMaxDuration(d time.Duration) *Scenario {
	return s.Expect(&maxDurationExpectation{max: d})
}

// Run executes the scenario against k.
func (s *Scenario) Run(t *testing.T, k Kickoffer) *ScenarioResult {
	t.Helper()

	for _, setup := range s.setupFuncs {
		if err := setup(); err != nil {
			t.Fatalf("scenario %q setup failed: %v", s.name, err)
		}
	}
	defer func() {
		for _, teardown := range s.teardownFuncs {
			if err := teardown(); err != nil {
				t.Errorf("scenario %q teardown failed: %v", s.name, err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(s.context, s.timeout)
	defer cancel()

	start := time.Now()
	results, err := k.Kickoff(ctx, s.inputs.Clone())
	return &ScenarioResult{
		Results:  results,
		Error:    err,
		Duration: time.Since(start),
	}
}

// Assert checks all expectations and reports failures to the test.
func (r *ScenarioResult) Assert(t *testing.T, scenario *Scenario) {
	t.Helper()
	for _, exp := range scenario.expectations {
		if err := exp.Check(r); err != nil {
			t.Errorf("scenario %q: expectation %q failed: %v", scenario.name, exp.Description(), err)
		}
	}
}

// StringMatcher defines how to match strings in expectations.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// Contains returns a matcher that checks if the string contains the substring.
func Contains(substr string) StringMatcher {
	return &containsMatcher{substr: substr}
}

// Equals returns a matcher that checks exact string equality.
func Equals(expected string) StringMatcher {
	return &equalsMatcher{expected: expected}
}

// Regex returns a matcher that checks against a regular expression.
// An invalid pattern never matches.
func Regex(pattern string) StringMatcher {
	re, err := regexp.Compile(pattern)
	return &regexMatcher{pattern: pattern, re: re, err: err}
}

// HasPrefix returns a matcher that checks if the string has the given prefix.
func HasPrefix(prefix string) StringMatcher {
	return &prefixMatcher{prefix: prefix}
}

type containsMatcher struct{ substr string }

func (m *containsMatcher) Match(s string) bool { return strings.Contains(s, m.substr) }
func (m *containsMatcher) Description() string { return fmt.Sprintf("contains %q", m.substr) }

type equalsMatcher struct{ expected string }

func (m *equalsMatcher) Match(s string) bool { return s == m.expected }
func (m *equalsMatcher) Description() string { return fmt.Sprintf("equals %q", m.expected) }

type regexMatcher struct {
	pattern string
	re      *regexp.Regexp
	err     error
}

func (m *regexMatcher) Match(s string) bool {
	if m.err != nil {
		return false
	}
	return m.re.MatchString(s)
}

func (m *regexMatcher) Description() string { return fmt.Sprintf("matches regex %q", m.pattern) }

type prefixMatcher struct{ prefix string }

func (m *prefixMatcher) Match(s string) bool { return strings.HasPrefix(s, m.prefix) }
func (m *prefixMatcher) Description() string { return fmt.Sprintf("has prefix %q", m.prefix) }

// Expectation implementations

type stageExpectation struct {
	key     string
	matcher StringMatcher
}

func (e *stageExpectation) Check(r *ScenarioResult) error {
	got, ok := r.Results[e.key]
	if !ok {
		return fmt.Errorf("no result for stage %q", e.key)
	}
	if !e.matcher.Match(got) {
		return fmt.Errorf("stage %q result %q does not match: %s", e.key, got, e.matcher.Description())
	}
	return nil
}

func (e *stageExpectation) Description() string {
	return fmt.Sprintf("stage %q %s", e.key, e.matcher.Description())
}

type stageCountExpectation struct{ n int }

func (e *stageCountExpectation) Check(r *ScenarioResult) error {
	if len(r.Results) != e.n {
		return fmt.Errorf("expected %d stage results, got %d", e.n, len(r.Results))
	}
	return nil
}

func (e *stageCountExpectation) Description() string {
	return fmt.Sprintf("%d stage results", e.n)
}

type noErrorExpectation struct{}

func (e *noErrorExpectation) Check(r *ScenarioResult) error {
	if r.Error != nil {
		return fmt.Errorf("expected no error, got: %v", r.Error)
	}
	return nil
}

func (e *noErrorExpectation) Description() string { return "no error" }

type errorExpectation struct{ matcher StringMatcher }

func (e *errorExpectation) Check(r *ScenarioResult) error {
	if r.Error == nil {
		return fmt.Errorf("expected error matching %s, got nil", e.matcher.Description())
	}
	if !e.matcher.Match(r.Error.Error()) {
		return fmt.Errorf("error %q does not match: %s", r.Error.Error(), e.matcher.Description())
	}
	if r.Results != nil {
		return fmt.Errorf("a failed run must not return results, got %d", len(r.Results))
	}
	return nil
}

func (e *errorExpectation) Description() string {
	return fmt.Sprintf("error %s", e.matcher.Description())
}

type maxDurationExpectation struct{ max time.Duration }

func (e *maxDurationExpectation) Check(r *ScenarioResult) error {
	if r.Duration > e.max {
		return fmt.Errorf("took %v, limit %v", r.Duration, e.max)
	}
	return nil
}

func (e *maxDurationExpectation) Description() string {
	return fmt.Sprintf("completes within %v", e.max)
}
