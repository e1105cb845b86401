// Package redact removes PII and secrets from consultant contributions
// before they are shared. It runs two passes: a deterministic regex
// catalog, then a model review that catches what the patterns miss.
package redact

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/llm"
)

// Confidence levels reported by the model pass.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// Kind distinguishes personal data from credentials.
type Kind string

const (
	KindPII    Kind = "pii"
	KindSecret Kind = "secret"
)

type pattern struct {
	category string
	kind     Kind
	re       *regexp.Regexp
}

// The catalog is ordered: earlier patterns win when matches overlap,
// so credentials are matched before the looser PII patterns.
var catalog = []pattern{
	{"aws_key", KindSecret, regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`)},
	{"api_key", KindSecret, regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`)},
	{"bearer_token", KindSecret, regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{16,}`)},
	{"connection_string", KindSecret, regexp.MustCompile(`\b(?:postgres|postgresql|mysql|mongodb(?:\+srv)?|redis)://[^\s"']+`)},
	{"credential_pair", KindSecret, regexp.MustCompile(`(?i)\b(?:password|passwd|secret|api[_-]?key|token)\s*[:=]\s*[^\s"',;]{6,}`)},
	{"emails", KindPII, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"ssns", KindPII, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"phones", KindPII, regexp.MustCompile(`(?:\+?\d{1,3}[ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`)},
}

// Result is the outcome of a redaction run.
type Result struct {
	Redacted             string
	PIICategories        []string
	SecretCategories     []string
	Confidence           string
	RequiresManualReview bool
}

// Engine applies the regex catalog and, when a client is configured,
// a second model pass over the already-scrubbed text.
type Engine struct {
	client llm.Client
}

// NewEngine creates an engine. A nil client skips the model pass and
// marks every result for manual review.
func NewEngine(client llm.Client) *Engine {
	return &Engine{client: client}
}

// marker formats the replacement token for a category.
func marker(category string) string {
	return "[REDACTED_" + strings.ToUpper(category) + "]"
}

// applyCatalog runs the regex pass and collects hit categories by kind.
func applyCatalog(text string) (string, map[Kind][]string) {
	hits := map[Kind][]string{}
	seen := map[string]bool{}
	for _, p := range catalog {
		if !p.re.MatchString(text) {
			continue
		}
		text = p.re.ReplaceAllString(text, marker(p.category))
		if !seen[p.category] {
			seen[p.category] = true
			hits[p.kind] = append(hits[p.kind], p.category)
		}
	}
	return text, hits
}

// modelReview is the shape the model pass is asked to produce.
type modelReview struct {
	Redacted         string   `json:"redacted_text"`
	PIICategories    []string `json:"pii_categories"`
	SecretCategories []string `json:"secret_categories"`
	Confidence       string   `json:"confidence"`
}

const reviewSystem = `You are a redaction reviewer. You receive text that already had
obvious PII and credentials replaced with [REDACTED_*] markers. Find anything
personal or secret that remains (names, addresses, internal hostnames,
credentials in prose) and replace it with an appropriate [REDACTED_*] marker.
Respond with JSON only:
{"redacted_text": "...", "pii_categories": [...], "secret_categories": [...], "confidence": "high"|"low"}
Keep existing markers untouched. Leave categories you did not find out of the lists.`

// Run redacts text. The regex pass always runs; the model pass refines
// it when a client is available. If the model reply cannot be parsed
// the regex result is kept with low confidence and a manual review
// flag, never the raw text.
func (e *Engine) Run(ctx context.Context, text string) (*Result, error) {
	scrubbed, hits := applyCatalog(text)

	res := &Result{
		Redacted:         scrubbed,
		PIICategories:    hits[KindPII],
		SecretCategories: hits[KindSecret],
	}

	if e.client == nil {
		res.Confidence = ConfidenceLow
		res.RequiresManualReview = true
		return res, nil
	}

	reply, err := e.client.Complete(ctx, llm.CompleteOptions{
		System: reviewSystem,
		Prompt: scrubbed,
	})
	if err != nil {
		return nil, fmt.Errorf("redaction review: %w", err)
	}

	fallback := modelReview{Confidence: ConfidenceLow}
	review := llm.DecodeJSON(reply, fallback)
	if review.Redacted == "" {
		// Unparseable or empty reply. Keep the deterministic result.
		res.Confidence = ConfidenceLow
		res.RequiresManualReview = true
		return res, nil
	}

	res.Redacted = review.Redacted
	res.PIICategories = mergeCategories(res.PIICategories, review.PIICategories)
	res.SecretCategories = mergeCategories(res.SecretCategories, review.SecretCategories)
	res.Confidence = review.Confidence
	if res.Confidence != ConfidenceHigh {
		res.Confidence = ConfidenceLow
		res.RequiresManualReview = true
	}
	return res, nil
}

// mergeCategories unions two category lists, sorted for stable output.
func mergeCategories(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, c := range list {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
