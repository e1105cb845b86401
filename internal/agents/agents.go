// Package agents holds the model-assisted workflows of the
// marketplace: intake refinement, consultant matching, contribution
// redaction and transfer pack synthesis.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/redact"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/llm"
)

// Agents wires the completion client into the marketplace workflows.
type Agents struct {
	client   llm.Client
	store    *hive.Store
	redactor *redact.Engine
	logger   *slog.Logger
}

// New creates the agent set. The redaction engine shares the client.
func New(client llm.Client, store *hive.Store) *Agents {
	return &Agents{
		client:   client,
		store:    store,
		redactor: redact.NewEngine(client),
		logger:   slog.Default().With("component", "agents"),
	}
}

// IntakeRefinement is the structured output of intake review.
type IntakeRefinement struct {
	Summary    string   `json:"summary"`
	Questions  []string `json:"clarifying_questions"`
	Complexity string   `json:"complexity"`
}

const intakeSystem = `You review consulting requests for a marketplace. Given a request,
produce a crisp one-paragraph summary a consultant can scan, up to three
clarifying questions worth asking the client, and a complexity estimate.
Respond with JSON only:
{"summary": "...", "clarifying_questions": ["..."], "complexity": "low"|"medium"|"high"}`

// RefineIntake summarizes a request and proposes clarifying questions.
// When the model reply cannot be parsed the request's own text is kept.
func (a *Agents) RefineIntake(ctx context.Context, req *hive.Request) (*IntakeRefinement, error) {
	prompt := fmt.Sprintf("Title: %s\nBudget (cents): %d\nDetails:\n%s", req.Title, req.BudgetCents, req.Details)
	reply, err := a.client.Complete(ctx, llm.CompleteOptions{System: intakeSystem, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("refine intake: %w", err)
	}

	fallback := IntakeRefinement{Summary: req.Summary}
	if fallback.Summary == "" {
		fallback.Summary = req.Details
	}
	out := llm.DecodeJSON(reply, fallback)
	if out.Summary == "" {
		out.Summary = fallback.Summary
	}
	return &out, nil
}

// Match is one ranked consultant suggestion.
type Match struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

const matchSystem = `You match consulting requests to available consultants. Given a
request and a roster, rank the consultants most suited to the work.
Score 0-100. Only include consultants from the roster, by their id.
Respond with JSON only:
{"matches": [{"user_id": 1, "score": 90, "reason": "..."}]}`

type matchReply struct {
	Matches []Match `json:"matches"`
}

// MatchConsultants ranks available consultants for a request. When the
// reply cannot be parsed, the roster is returned unranked so the client
// still gets candidates.
func (a *Agents) MatchConsultants(ctx context.Context, req *hive.Request, roster []hive.ConsultantProfile) ([]Match, error) {
	if len(roster) == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n%s\n\nRoster:\n", req.Title, req.Details)
	for _, c := range roster {
		fmt.Fprintf(&b, "- id=%d name=%q headline=%q skills=%s rate_cents=%d\n",
			c.UserID, c.Name, c.Headline, strings.Join(c.Skills, ","), c.HourlyRateCents)
	}

	reply, err := a.client.Complete(ctx, llm.CompleteOptions{System: matchSystem, Prompt: b.String()})
	if err != nil {
		return nil, fmt.Errorf("match consultants: %w", err)
	}

	parsed := llm.DecodeJSON(reply, matchReply{})
	if len(parsed.Matches) == 0 {
		out := make([]Match, 0, len(roster))
		for _, c := range roster {
			out = append(out, Match{UserID: c.UserID, Name: c.Name})
		}
		return out, nil
	}

	// Keep only matches that exist in the roster and fill in names.
	byID := make(map[int64]hive.ConsultantProfile, len(roster))
	for _, c := range roster {
		byID[c.UserID] = c
	}
	out := parsed.Matches[:0]
	for _, m := range parsed.Matches {
		c, ok := byID[m.UserID]
		if !ok {
			continue
		}
		m.Name = c.Name
		out = append(out, m)
	}
	return out, nil
}

// RedactContribution drives a redaction job from pending to a terminal
// state and returns the completed job. Failures are recorded on the
// job before the error is returned.
func (a *Agents) RedactContribution(ctx context.Context, job *hive.RedactionJob) (*hive.RedactionJob, error) {
	if err := a.store.MarkJobProcessing(ctx, job.ID); err != nil {
		return nil, err
	}

	res, err := a.redactor.Run(ctx, job.OriginalText)
	if err != nil {
		if ferr := a.store.FailJob(ctx, job.ID, err.Error()); ferr != nil {
			a.logger.Error("record job failure", "job", job.ID, "error", ferr)
		}
		return nil, fmt.Errorf("redact contribution: %w", err)
	}

	job.RedactedText = res.Redacted
	job.PIICategories = res.PIICategories
	job.SecretCategories = res.SecretCategories
	job.Confidence = res.Confidence
	job.RequiresManualReview = res.RequiresManualReview
	if err := a.store.CompleteJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

const refineSystem = `You polish consulting deliverables. Rewrite the text for clarity and
structure without adding or removing facts. Keep every [REDACTED_*]
marker exactly as it appears. Respond with the rewritten text only.`

// RefineContribution rewrites a redacted contribution per the author's
// instructions. Plain text in, plain text out.
func (a *Agents) RefineContribution(ctx context.Context, text, instructions string) (string, error) {
	prompt := text
	if instructions != "" {
		prompt = "Instructions: " + instructions + "\n\n" + text
	}
	reply, err := a.client.Complete(ctx, llm.CompleteOptions{System: refineSystem, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("refine contribution: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return text, nil
	}
	return reply, nil
}

const packSystem = `You write engagement handover documents. Given the request, the chat,
the notes, the checklist and the redacted contributions, produce a
transfer pack a successor consultant could start from. Respond with
JSON only:
{"summary": "one paragraph", "content": "full markdown document"}`

type packReply struct {
	Summary string `json:"summary"`
	Content string `json:"content"`
}

// PackInput gathers everything the transfer pack is built from.
type PackInput struct {
	Request       *hive.Request
	Engagement    *hive.Engagement
	Messages      []hive.Message
	Notes         []hive.Note
	Checklist     []hive.ChecklistItem
	Contributions []hive.Contribution
}

// BuildTransferPack synthesizes a handover document. When the model
// reply cannot be parsed a deterministic assembly of the source
// material is used instead.
func (a *Agents) BuildTransferPack(ctx context.Context, in PackInput) (summary, content string, err error) {
	source := renderPackSource(in)
	reply, err := a.client.Complete(ctx, llm.CompleteOptions{System: packSystem, Prompt: source})
	if err != nil {
		return "", "", fmt.Errorf("build transfer pack: %w", err)
	}

	parsed := llm.DecodeJSON(reply, packReply{})
	if parsed.Content == "" {
		a.logger.Warn("transfer pack synthesis unparseable, using assembled source", "engagement", in.Engagement.ID)
		return "Assembled from engagement records.", source, nil
	}
	if parsed.Summary == "" {
		parsed.Summary = "Transfer pack for " + in.Request.Title
	}
	return parsed.Summary, parsed.Content, nil
}

func renderPackSource(in PackInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transfer pack: %s\n\n## Request\n%s\n", in.Request.Title, in.Request.Details)

	if len(in.Checklist) > 0 {
		b.WriteString("\n## Checklist\n")
		for _, item := range in.Checklist {
			mark := " "
			if item.Done {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, item.Title)
		}
	}
	if len(in.Notes) > 0 {
		b.WriteString("\n## Notes\n")
		for _, n := range in.Notes {
			fmt.Fprintf(&b, "- %s\n", n.Body)
		}
	}
	if len(in.Contributions) > 0 {
		b.WriteString("\n## Contributions\n")
		for _, c := range in.Contributions {
			fmt.Fprintf(&b, "\n%s\n", c.RedactedText)
		}
	}
	if len(in.Messages) > 0 {
		b.WriteString("\n## Discussion\n")
		for _, m := range in.Messages {
			fmt.Fprintf(&b, "- user %d: %s\n", m.SenderID, m.Body)
		}
	}
	return b.String()
}
