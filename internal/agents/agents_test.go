package agents

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/llm"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/storage"

	_ "modernc.org/sqlite"
)

type mockClient struct {
	reply   string
	err     error
	prompts []string
}

func (m *mockClient) Complete(ctx context.Context, opts llm.CompleteOptions) (string, error) {
	m.prompts = append(m.prompts, opts.Prompt)
	return m.reply, m.err
}

func (m *mockClient) Provider() llm.Provider { return "mock" }
func (m *mockClient) Close() error           { return nil }

func newTestStore(t *testing.T) *hive.Store {
	t.Helper()
	db, err := storage.Open(storage.Config{
		Driver: storage.SQLite,
		DSN:    filepath.Join(t.TempDir(), "agents_test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := hive.NewStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestRefineIntake(t *testing.T) {
	client := &mockClient{
		reply: `{"summary": "Client needs a payment migration.", "clarifying_questions": ["Which PSP today?"], "complexity": "medium"}`,
	}
	a := New(client, nil)

	req := &hive.Request{Title: "Migrate billing", Details: "Move off legacy gateway", BudgetCents: 250000}
	out, err := a.RefineIntake(context.Background(), req)
	if err != nil {
		t.Fatalf("refine intake: %v", err)
	}
	if out.Summary != "Client needs a payment migration." {
		t.Errorf("summary = %q", out.Summary)
	}
	if len(out.Questions) != 1 || out.Complexity != "medium" {
		t.Errorf("refinement = %+v", out)
	}
	if len(client.prompts) != 1 || !strings.Contains(client.prompts[0], "Migrate billing") {
		t.Errorf("prompt did not carry the request: %v", client.prompts)
	}
}

func TestRefineIntakeUnparseableKeepsRequestText(t *testing.T) {
	a := New(&mockClient{reply: "sorry, no JSON today"}, nil)

	req := &hive.Request{Title: "T", Details: "the original details"}
	out, err := a.RefineIntake(context.Background(), req)
	if err != nil {
		t.Fatalf("refine intake: %v", err)
	}
	if out.Summary != "the original details" {
		t.Errorf("fallback summary = %q", out.Summary)
	}
}

func TestMatchConsultants(t *testing.T) {
	client := &mockClient{
		reply: "```json\n{\"matches\": [{\"user_id\": 2, \"score\": 88, \"reason\": \"payments depth\"}, {\"user_id\": 99, \"score\": 70, \"reason\": \"not on roster\"}]}\n```",
	}
	a := New(client, nil)

	roster := []hive.ConsultantProfile{
		{UserID: 1, Name: "Alpha", Skills: []string{"go"}},
		{UserID: 2, Name: "Beta", Skills: []string{"stripe"}},
	}
	matches, err := a.MatchConsultants(context.Background(), &hive.Request{Title: "T"}, roster)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	// Hallucinated id 99 is filtered out.
	if len(matches) != 1 {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[0].UserID != 2 || matches[0].Name != "Beta" || matches[0].Score != 88 {
		t.Errorf("match = %+v", matches[0])
	}
}

func TestMatchConsultantsUnparseableReturnsRoster(t *testing.T) {
	a := New(&mockClient{reply: "no idea"}, nil)

	roster := []hive.ConsultantProfile{{UserID: 1, Name: "Alpha"}, {UserID: 2, Name: "Beta"}}
	matches, err := a.MatchConsultants(context.Background(), &hive.Request{}, roster)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 2 || matches[0].UserID != 1 || matches[1].UserID != 2 {
		t.Errorf("fallback matches = %+v", matches)
	}
}

func TestMatchConsultantsEmptyRoster(t *testing.T) {
	client := &mockClient{}
	a := New(client, nil)
	matches, err := a.MatchConsultants(context.Background(), &hive.Request{}, nil)
	if err != nil || matches != nil {
		t.Errorf("empty roster: %v %v", matches, err)
	}
	if len(client.prompts) != 0 {
		t.Error("model should not be called for an empty roster")
	}
}

func TestRedactContributionCompletesJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clientID, _ := store.CreateUser(ctx, "c@example.com", "C", "", auth.RoleClient)
	proID, _ := store.CreateUser(ctx, "p@example.com", "P", "", auth.RoleConsultant)
	reqID, _ := store.CreateRequest(ctx, clientID, "T", "", "D", 100)
	offerID, _ := store.CreateOffer(ctx, reqID, proID, "m", 100)
	offer, _ := store.GetOffer(ctx, offerID)
	eng, err := store.AcceptOffer(ctx, offer, clientID)
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}

	job, err := store.CreateRedactionJob(ctx, eng.ID, proID, "Mail jane@example.com")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	a := New(&mockClient{
		reply: `{"redacted_text": "Mail [REDACTED_EMAILS]", "pii_categories": ["emails"], "secret_categories": [], "confidence": "high"}`,
	}, store)

	done, err := a.RedactContribution(ctx, job)
	if err != nil {
		t.Fatalf("redact contribution: %v", err)
	}
	if done.Status != hive.JobCompleted {
		t.Errorf("job status = %q", done.Status)
	}

	got, _ := store.GetRedactionJob(ctx, job.ID)
	if got.Status != hive.JobCompleted || got.RedactedText != "Mail [REDACTED_EMAILS]" {
		t.Errorf("persisted job = %+v", got)
	}
}

func TestRedactContributionFailureIsRecorded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clientID, _ := store.CreateUser(ctx, "c@example.com", "C", "", auth.RoleClient)
	proID, _ := store.CreateUser(ctx, "p@example.com", "P", "", auth.RoleConsultant)
	reqID, _ := store.CreateRequest(ctx, clientID, "T", "", "D", 100)
	offerID, _ := store.CreateOffer(ctx, reqID, proID, "m", 100)
	offer, _ := store.GetOffer(ctx, offerID)
	eng, _ := store.AcceptOffer(ctx, offer, clientID)
	job, _ := store.CreateRedactionJob(ctx, eng.ID, proID, "text")

	a := New(&mockClient{err: errors.New("provider down")}, store)
	if _, err := a.RedactContribution(ctx, job); err == nil {
		t.Fatal("expected error")
	}

	got, _ := store.GetRedactionJob(ctx, job.ID)
	if got.Status != hive.JobFailed {
		t.Errorf("job status = %q, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("failure cause not recorded")
	}
}

func TestRefineContribution(t *testing.T) {
	a := New(&mockClient{reply: "  Polished text.  "}, nil)
	out, err := a.RefineContribution(context.Background(), "raw text", "tighten it")
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if out != "Polished text." {
		t.Errorf("refined = %q", out)
	}
}

func TestRefineContributionEmptyReplyKeepsOriginal(t *testing.T) {
	a := New(&mockClient{reply: "   "}, nil)
	out, err := a.RefineContribution(context.Background(), "raw text", "")
	if err != nil || out != "raw text" {
		t.Errorf("refined = %q, %v", out, err)
	}
}

func TestBuildTransferPack(t *testing.T) {
	a := New(&mockClient{
		reply: `{"summary": "Handover for the billing migration.", "content": "# Pack\nbody"}`,
	}, nil)

	in := PackInput{
		Request:    &hive.Request{Title: "Migrate billing", Details: "Details"},
		Engagement: &hive.Engagement{ID: "e1"},
		Checklist:  []hive.ChecklistItem{{Title: "rotate keys", Done: true}},
	}
	summary, content, err := a.BuildTransferPack(context.Background(), in)
	if err != nil {
		t.Fatalf("build pack: %v", err)
	}
	if summary != "Handover for the billing migration." || content != "# Pack\nbody" {
		t.Errorf("pack = %q / %q", summary, content)
	}
}

func TestBuildTransferPackUnparseableUsesAssembly(t *testing.T) {
	a := New(&mockClient{reply: "nope"}, nil)

	in := PackInput{
		Request:       &hive.Request{Title: "Migrate billing", Details: "Details"},
		Engagement:    &hive.Engagement{ID: "e1"},
		Notes:         []hive.Note{{Body: "the VPN note"}},
		Contributions: []hive.Contribution{{RedactedText: "contribution body"}},
	}
	_, content, err := a.BuildTransferPack(context.Background(), in)
	if err != nil {
		t.Fatalf("build pack: %v", err)
	}
	for _, want := range []string{"Migrate billing", "the VPN note", "contribution body"} {
		if !strings.Contains(content, want) {
			t.Errorf("assembled pack missing %q", want)
		}
	}
}
