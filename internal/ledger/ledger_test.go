package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mr1hm/go-alert-board/internal/models"
	"github.com/mr1hm/go-alert-board/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.Event
}

func (p *recordingPublisher) Broadcast(e *models.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func setupLedger(t *testing.T, userIDs ...string) (*Ledger, *repository.SQLiteDB, *recordingPublisher) {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, id := range userIDs {
		u := &models.User{ID: id, FullName: "User " + id, Email: id + "@example.com"}
		if err := db.CreateAccount(ctx, u, "hash"); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
	}
	alert := &models.Alert{ID: "a1", UserID: userIDs[0], AuthorName: "User " + userIDs[0], Message: "fire"}
	if err := db.AddAlert(ctx, alert); err != nil {
		t.Fatalf("AddAlert failed: %v", err)
	}

	pub := &recordingPublisher{}
	return New(db, pub), db, pub
}

func TestCastVote_IncrementsOnlyMatchingCounter(t *testing.T) {
	l, db, pub := setupLedger(t, "u1")
	ctx := context.Background()

	alert, err := l.CastVote(ctx, "a1", "u1", models.VoteVerify)
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if alert.VerifiedVotes != 1 || alert.DiscardVotes != 0 {
		t.Errorf("expected verified=1 discard=0, got verified=%d discard=%d", alert.VerifiedVotes, alert.DiscardVotes)
	}

	stored, err := db.GetAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlert failed: %v", err)
	}
	if stored.VerifiedVotes != 1 || stored.DiscardVotes != 0 {
		t.Errorf("stored counters diverged: verified=%d discard=%d", stored.VerifiedVotes, stored.DiscardVotes)
	}

	if len(pub.events) != 1 || pub.events[0].Kind != models.EventAlertUpdated {
		t.Errorf("expected one alert.updated event, got %+v", pub.events)
	}
}

func TestCastVote_DiscardCounter(t *testing.T) {
	l, _, _ := setupLedger(t, "u1", "u2")
	ctx := context.Background()

	if _, err := l.CastVote(ctx, "a1", "u1", models.VoteDiscard); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	alert, err := l.CastVote(ctx, "a1", "u2", models.VoteDiscard)
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if alert.DiscardVotes != 2 || alert.VerifiedVotes != 0 {
		t.Errorf("expected discard=2 verified=0, got discard=%d verified=%d", alert.DiscardVotes, alert.VerifiedVotes)
	}
}

func TestCastVote_SecondVoteRejected(t *testing.T) {
	for _, second := range []models.VoteKind{models.VoteVerify, models.VoteDiscard} {
		t.Run(string(second), func(t *testing.T) {
			l, db, pub := setupLedger(t, "u1")
			ctx := context.Background()

			if _, err := l.CastVote(ctx, "a1", "u1", models.VoteVerify); err != nil {
				t.Fatalf("first CastVote failed: %v", err)
			}

			_, err := l.CastVote(ctx, "a1", "u1", second)
			if !errors.Is(err, models.ErrDuplicateVote) {
				t.Fatalf("expected ErrDuplicateVote, got %v", err)
			}

			stored, err := db.GetAlert(ctx, "a1")
			if err != nil {
				t.Fatalf("GetAlert failed: %v", err)
			}
			if stored.VerifiedVotes != 1 || stored.DiscardVotes != 0 {
				t.Errorf("counters changed by rejected vote: verified=%d discard=%d", stored.VerifiedVotes, stored.DiscardVotes)
			}
			if len(pub.events) != 1 {
				t.Errorf("expected no event for the rejected vote, got %d events", len(pub.events))
			}
		})
	}
}

func TestCastVote_Rejections(t *testing.T) {
	l, db, _ := setupLedger(t, "u1")
	ctx := context.Background()

	tests := []struct {
		name    string
		alertID string
		userID  string
		kind    models.VoteKind
		wantErr error
	}{
		{"unknown alert", "missing", "u1", models.VoteVerify, models.ErrNotFound},
		{"unknown user", "a1", "ghost", models.VoteVerify, models.ErrUnknownUser},
		{"invalid kind", "a1", "u1", models.VoteKind("neutral"), models.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.CastVote(ctx, tt.alertID, tt.userID, tt.kind)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	votes, err := db.ListVotes(ctx, "a1")
	if err != nil {
		t.Fatalf("ListVotes failed: %v", err)
	}
	if len(votes) != 0 {
		t.Errorf("expected no vote rows, got %d", len(votes))
	}
}

func TestCastVote_ConcurrentSameUser(t *testing.T) {
	l, db, _ := setupLedger(t, "u1")
	ctx := context.Background()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			kind := models.VoteVerify
			if n%2 == 1 {
				kind = models.VoteDiscard
			}
			_, err := l.CastVote(ctx, "a1", "u1", kind)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrDuplicateVote):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || duplicates != 19 {
		t.Errorf("expected 1 success and 19 duplicates, got %d and %d", successes, duplicates)
	}

	votes, err := db.ListVotes(ctx, "a1")
	if err != nil {
		t.Fatalf("ListVotes failed: %v", err)
	}
	stored, err := db.GetAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlert failed: %v", err)
	}
	if len(votes) != 1 || stored.VerifiedVotes+stored.DiscardVotes != 1 {
		t.Errorf("expected one vote row and one counted vote, got %d rows, %d+%d",
			len(votes), stored.VerifiedVotes, stored.DiscardVotes)
	}
}

func TestCastVote_ConcurrentUsersNoLostUpdates(t *testing.T) {
	userIDs := make([]string, 25)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("u%d", i)
	}
	l, db, _ := setupLedger(t, userIDs...)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range userIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := l.CastVote(ctx, "a1", userID, models.VoteVerify); err != nil {
				t.Errorf("CastVote(%s) failed: %v", userID, err)
			}
		}(id)
	}
	wg.Wait()

	stored, err := db.GetAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlert failed: %v", err)
	}
	if stored.VerifiedVotes != len(userIDs) {
		t.Errorf("expected %d verified votes, got %d", len(userIDs), stored.VerifiedVotes)
	}
}

// failingStore makes every transaction fail the way a broken connection would.
type failingStore struct{}

func (failingStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return errors.New("database is locked")
}

func TestCastVote_StoreFailure(t *testing.T) {
	l := New(failingStore{}, nil)

	_, err := l.CastVote(context.Background(), "a1", "u1", models.VoteVerify)
	if !errors.Is(err, models.ErrStoreFailure) {
		t.Errorf("expected ErrStoreFailure, got %v", err)
	}
}
