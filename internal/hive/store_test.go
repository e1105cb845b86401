package hive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/storage"

	_ "modernc.org/sqlite"
)

func TestCanEngagementTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{EngagementActive, EngagementDelivered, true},
		{EngagementActive, EngagementCancelled, true},
		{EngagementActive, EngagementCompleted, false},
		{EngagementDelivered, EngagementCompleted, true},
		{EngagementDelivered, EngagementCancelled, true},
		{EngagementDelivered, EngagementActive, false},
		{EngagementCompleted, EngagementActive, false},
		{EngagementCancelled, EngagementDelivered, false},
	}
	for _, tt := range tests {
		if got := CanEngagementTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanEngagementTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanOfferTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OfferPending, OfferAccepted, true},
		{OfferPending, OfferDeclined, true},
		{OfferPending, OfferWithdrawn, true},
		{OfferAccepted, OfferDeclined, false},
		{OfferDeclined, OfferAccepted, false},
		{OfferWithdrawn, OfferPending, false},
	}
	for _, tt := range tests {
		if got := CanOfferTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanOfferTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
	got := splitList("emails, phones ,,ssns")
	want := []string{"emails", "phones", "ssns"}
	if len(got) != len(want) {
		t.Fatalf("splitList returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(storage.Config{
		Driver: storage.SQLite,
		DSN:    filepath.Join(t.TempDir(), "hive_test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedMarketplace(t *testing.T, store *Store) (clientID, consultantID, requestID int64) {
	t.Helper()
	ctx := context.Background()

	clientID, err := store.CreateUser(ctx, "client@example.com", "Client", "", auth.RoleClient)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	consultantID, err = store.CreateUser(ctx, "pro@example.com", "Pro", "", auth.RoleConsultant)
	if err != nil {
		t.Fatalf("create consultant: %v", err)
	}
	requestID, err = store.CreateRequest(ctx, clientID, "Migrate billing", "Move off legacy gateway", "Long details", 250000)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return clientID, consultantID, requestID
}

func TestAcceptOfferFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	clientID, consultantID, requestID := seedMarketplace(t, store)

	// A second consultant whose pending offer should get declined.
	rivalID, err := store.CreateUser(ctx, "rival@example.com", "Rival", "", auth.RoleConsultant)
	if err != nil {
		t.Fatalf("create rival: %v", err)
	}

	offerID, err := store.CreateOffer(ctx, requestID, consultantID, "I can do this", 200000)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	rivalOfferID, err := store.CreateOffer(ctx, requestID, rivalID, "me too", 180000)
	if err != nil {
		t.Fatalf("create rival offer: %v", err)
	}

	offer, err := store.GetOffer(ctx, offerID)
	if err != nil || offer == nil {
		t.Fatalf("get offer: %v %v", offer, err)
	}

	eng, err := store.AcceptOffer(ctx, offer, clientID)
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}
	if eng.ID == "" {
		t.Fatal("engagement id not assigned")
	}
	if eng.Status != EngagementActive {
		t.Errorf("engagement status = %q, want %q", eng.Status, EngagementActive)
	}
	if eng.AmountCents != 200000 {
		t.Errorf("engagement amount = %d, want 200000", eng.AmountCents)
	}
	if !eng.IsParticipant(clientID) || !eng.IsParticipant(consultantID) {
		t.Error("client and consultant should both be participants")
	}
	if eng.IsParticipant(rivalID) {
		t.Error("rival should not be a participant")
	}

	// The accepted offer, the sibling and the request all moved.
	if got, _ := store.GetOffer(ctx, offerID); got.Status != OfferAccepted {
		t.Errorf("accepted offer status = %q", got.Status)
	}
	if got, _ := store.GetOffer(ctx, rivalOfferID); got.Status != OfferDeclined {
		t.Errorf("rival offer status = %q, want declined", got.Status)
	}
	if req, _ := store.GetRequest(ctx, requestID); req.Status != RequestMatched {
		t.Errorf("request status = %q, want matched", req.Status)
	}

	// Accepting again must fail: the offer is no longer pending.
	offer, _ = store.GetOffer(ctx, offerID)
	if _, err := store.AcceptOffer(ctx, offer, clientID); err == nil {
		t.Error("second accept should fail")
	}
}

func TestDuplicateOffer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, consultantID, requestID := seedMarketplace(t, store)

	if _, err := store.CreateOffer(ctx, requestID, consultantID, "first", 100); err != nil {
		t.Fatalf("first offer: %v", err)
	}
	_, err := store.CreateOffer(ctx, requestID, consultantID, "second", 200)
	if !errors.Is(err, ErrDuplicateOffer) {
		t.Errorf("second offer error = %v, want ErrDuplicateOffer", err)
	}
}

func TestEngagementArtifacts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	clientID, consultantID, requestID := seedMarketplace(t, store)

	offerID, err := store.CreateOffer(ctx, requestID, consultantID, "offer", 500)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	offer, _ := store.GetOffer(ctx, offerID)
	eng, err := store.AcceptOffer(ctx, offer, clientID)
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}

	if _, err := store.AddMessage(ctx, eng.ID, clientID, "hello"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	if _, err := store.AddMessage(ctx, eng.ID, consultantID, "hi"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	msgs, err := store.ListMessages(ctx, eng.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "hello" || msgs[1].Body != "hi" {
		t.Errorf("messages = %+v", msgs)
	}

	if _, err := store.AddNote(ctx, eng.ID, consultantID, "remember the VPN"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	notes, err := store.ListNotes(ctx, eng.ID)
	if err != nil || len(notes) != 1 {
		t.Fatalf("list notes: %v %v", notes, err)
	}

	itemID, err := store.AddChecklistItem(ctx, eng.ID, "rotate credentials")
	if err != nil {
		t.Fatalf("add checklist item: %v", err)
	}
	item, err := store.ToggleChecklistItem(ctx, eng.ID, itemID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if item == nil || !item.Done {
		t.Errorf("item after toggle = %+v, want done", item)
	}
	item, err = store.ToggleChecklistItem(ctx, eng.ID, itemID)
	if err != nil || item == nil || item.Done {
		t.Errorf("item after second toggle = %+v, want not done", item)
	}
	if item, _ := store.ToggleChecklistItem(ctx, eng.ID, 9999); item != nil {
		t.Error("toggling a missing item should return nil")
	}
}

func TestRedactionJobLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	clientID, consultantID, requestID := seedMarketplace(t, store)

	offerID, _ := store.CreateOffer(ctx, requestID, consultantID, "offer", 500)
	offer, _ := store.GetOffer(ctx, offerID)
	eng, err := store.AcceptOffer(ctx, offer, clientID)
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}

	job, err := store.CreateRedactionJob(ctx, eng.ID, consultantID, "Contact alice@example.com")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Status != JobPending {
		t.Errorf("new job status = %q", job.Status)
	}

	if err := store.MarkJobProcessing(ctx, job.ID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	job.RedactedText = "Contact [REDACTED_EMAILS]"
	job.PIICategories = []string{"emails"}
	job.Confidence = "high"
	if err := store.CompleteJob(ctx, job); err != nil {
		t.Fatalf("complete job: %v", err)
	}

	got, err := store.GetRedactionJob(ctx, job.ID)
	if err != nil || got == nil {
		t.Fatalf("get job: %v %v", got, err)
	}
	if got.Status != JobCompleted {
		t.Errorf("job status = %q, want completed", got.Status)
	}
	if got.RedactedText != "Contact [REDACTED_EMAILS]" {
		t.Errorf("redacted text = %q", got.RedactedText)
	}
	if len(got.PIICategories) != 1 || got.PIICategories[0] != "emails" {
		t.Errorf("pii categories = %v", got.PIICategories)
	}
	if got.OriginalText != "Contact alice@example.com" {
		t.Errorf("original text = %q", got.OriginalText)
	}

	if missing, err := store.GetRedactionJob(ctx, "nope"); err != nil || missing != nil {
		t.Errorf("missing job = %v, %v", missing, err)
	}
}

func TestTransferPackRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	clientID, consultantID, requestID := seedMarketplace(t, store)

	offerID, _ := store.CreateOffer(ctx, requestID, consultantID, "offer", 500)
	offer, _ := store.GetOffer(ctx, offerID)
	eng, err := store.AcceptOffer(ctx, offer, clientID)
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}

	if pack, _ := store.GetTransferPack(ctx, eng.ID); pack != nil {
		t.Fatal("pack should not exist yet")
	}

	id, err := store.SaveTransferPack(ctx, eng.ID, "summary", "# Handover\ncontent")
	if err != nil {
		t.Fatalf("save pack: %v", err)
	}
	pack, err := store.GetTransferPack(ctx, eng.ID)
	if err != nil || pack == nil {
		t.Fatalf("get pack: %v %v", pack, err)
	}
	if pack.ID != id || pack.Summary != "summary" {
		t.Errorf("pack = %+v", pack)
	}
}

func TestConsultantProfileUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateUser(ctx, "new@example.com", "New", "", auth.RoleClient)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	p := &ConsultantProfile{
		UserID:          id,
		Headline:        "Payments specialist",
		Bio:             "10 years of PSP integrations",
		Skills:          []string{"stripe", "go"},
		HourlyRateCents: 15000,
		Available:       true,
	}
	if err := store.UpsertConsultantProfile(ctx, p); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	// Publishing a profile promotes the user to consultant.
	u, err := store.GetUserByID(ctx, id)
	if err != nil || u == nil {
		t.Fatalf("get user: %v %v", u, err)
	}
	if u.Role != auth.RoleConsultant {
		t.Errorf("role = %q, want consultant", u.Role)
	}

	got, err := store.GetConsultantProfile(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get profile: %v %v", got, err)
	}
	if got.Headline != "Payments specialist" || len(got.Skills) != 2 {
		t.Errorf("profile = %+v", got)
	}

	listed, err := store.ListAvailableConsultants(ctx)
	if err != nil || len(listed) != 1 {
		t.Fatalf("list consultants: %v %v", listed, err)
	}
}
