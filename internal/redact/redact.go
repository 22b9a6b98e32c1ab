// Package redact strips secrets from extracted document text before it
// is chunked, embedded, or sent to any provider. Detection uses the
// Gitleaks ruleset; matches are replaced with [REDACTED:rule-id:preview]
// markers so chunk text keeps its shape without carrying the secret.
package redact

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// Finding records one redacted secret. The secret value itself is never
// stored, only a short preview for audit logs.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Line        int    `json:"line"`
	Preview     string `json:"preview"`
	Length      int    `json:"length"`
}

// Result is the outcome of redacting one piece of text.
type Result struct {
	// Content is the text with every detected secret replaced by a
	// marker. Equal to the input when nothing was found.
	Content string
	// Findings lists the redactions in detection order.
	Findings []Finding
	// RuleCounts maps rule IDs to how often each matched.
	RuleCounts map[string]int
	// Duration is how long detection and replacement took.
	Duration time.Duration
}

// Redacted reports whether any secret was replaced.
func (r *Result) Redacted() bool {
	return len(r.Findings) > 0
}

// Redactor detects and redacts secrets in document text. The Gitleaks
// detector and the merged allowlists are built once at construction and
// reused for every document.
type Redactor struct {
	enabled  bool
	detector *detect.Detector
}

// New builds a Redactor from the ingest redaction config. When
// redaction is disabled the returned Redactor passes text through
// unchanged.
func New(cfg *config.RedactConfig) (*Redactor, error) {
	if !cfg.Enabled {
		return &Redactor{}, nil
	}

	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("building secret detector: %w", err)
	}

	allowlist, err := LoadAllowlists(cfg.ProjectPath, cfg.AllowlistPath)
	if err != nil {
		return nil, err
	}
	applyAllowlist(&detector.Config, allowlist)

	return &Redactor{enabled: true, detector: detector}, nil
}

// Enabled reports whether redaction is active.
func (r *Redactor) Enabled() bool {
	return r.enabled
}

// Redact replaces every detected secret in content with a
// [REDACTED:rule-id:preview] marker and returns the audit trail.
func (r *Redactor) Redact(content string) Result {
	if !r.enabled {
		return Result{Content: content, RuleCounts: map[string]int{}}
	}

	start := time.Now()
	detected := r.detector.DetectString(content)

	result := Result{
		Content:    content,
		Findings:   make([]Finding, 0, len(detected)),
		RuleCounts: make(map[string]int),
	}
	for _, f := range detected {
		result.Findings = append(result.Findings, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
			Preview:     preview(f.Secret, 4),
			Length:      len(f.Secret),
		})
		result.RuleCounts[f.RuleID]++
	}

	if len(detected) > 0 {
		result.Content = replaceSecrets(content, detected)
	}
	result.Duration = time.Since(start)
	return result
}

// replaceSecrets rewrites content line by line, working backwards
// through the findings so earlier replacements do not shift the column
// offsets of later ones.
func replaceSecrets(content string, detected []report.Finding) string {
	sorted := make([]report.Finding, len(detected))
	copy(sorted, detected)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartLine != sorted[j].StartLine {
			return sorted[i].StartLine > sorted[j].StartLine
		}
		return sorted[i].StartColumn > sorted[j].StartColumn
	})

	lines := strings.Split(content, "\n")
	for _, f := range sorted {
		if f.StartLine < 1 || f.StartLine > len(lines) {
			continue
		}
		line := lines[f.StartLine-1]
		if f.StartColumn < 0 || f.EndColumn > len(line) || f.StartColumn >= f.EndColumn {
			continue
		}
		marker := fmt.Sprintf("[REDACTED:%s:%s]", f.RuleID, preview(f.Secret, 4))
		lines[f.StartLine-1] = line[:f.StartColumn] + marker + line[f.EndColumn:]
	}
	return strings.Join(lines, "\n")
}

// preview returns the first n bytes of a secret for audit context.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
