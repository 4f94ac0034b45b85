package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"badge-compliance-service/internal/domain/compliance"
)

var ErrUnknownIdentity = errors.New("unknown identity")

// Clock supplies the wall-clock time. Injected so day-rollover behavior is
// testable without waiting for midnight.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Store is the durable side of the ledger. SaveBalance must either commit
// the new balance or leave the previous durable state intact.
type Store interface {
	SaveBalance(ctx context.Context, identityID string, balance float64) error
}

// Ledger is the single source of truth for outstanding balances and the
// set of identities already fined today. All mutation runs under one
// exclusive lock covering the read-check-write sequence; nothing here
// performs network I/O beyond the durable store write.
type Ledger struct {
	mu         sync.Mutex
	identities map[string]*compliance.Identity
	finedToday map[string]struct{}
	currentDay time.Time
	fineAmount float64
	store      Store
	clock      Clock
	log        zerolog.Logger
}

func New(roster []compliance.Identity, fineAmount float64, store Store, clock Clock, log zerolog.Logger) *Ledger {
	identities := make(map[string]*compliance.Identity, len(roster))
	for i := range roster {
		id := roster[i]
		identities[id.IdentityID] = &id
	}
	return &Ledger{
		identities: identities,
		finedToday: make(map[string]struct{}),
		currentDay: dateOf(clock.Now()),
		fineAmount: fineAmount,
		store:      store,
		clock:      clock,
		log:        log,
	}
}

// ApplyFine increments the identity's balance by the configured fine
// amount, at most once per identity per calendar day. It returns true only
// when both the in-memory balance and the durable copy advanced; on a
// persistence failure the in-memory balance is rolled back and false is
// returned. Audit logging and notification are the caller's concern and
// happen outside this lock.
func (l *Ledger) ApplyFine(ctx context.Context, identityID, displayName string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()

	if _, fined := l.finedToday[identityID]; fined {
		return false, nil
	}

	identity, ok := l.identities[identityID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownIdentity, identityID)
	}

	prevBalance := identity.OutstandingBalance
	identity.OutstandingBalance = prevBalance + l.fineAmount

	if err := l.store.SaveBalance(ctx, identityID, identity.OutstandingBalance); err != nil {
		identity.OutstandingBalance = prevBalance
		l.log.Error().
			Err(err).
			Str("identity_id", identityID).
			Msg("failed to persist fine, rolled back")
		return false, fmt.Errorf("persist fine for %s: %w", identityID, err)
	}

	l.finedToday[identityID] = struct{}{}
	l.log.Info().
		Str("identity_id", identityID).
		Str("name", displayName).
		Float64("fine_amount", l.fineAmount).
		Float64("new_balance", identity.OutstandingBalance).
		Msg("fine applied")
	return true, nil
}

// Totals returns the number of identities fined today and the sum of all
// outstanding balances. The day-rollover check applies here too, so a
// stale fined set is never reported after midnight.
func (l *Ledger) Totals(ctx context.Context) (violationsToday int, totalOutstanding float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked()

	for _, identity := range l.identities {
		totalOutstanding += identity.OutstandingBalance
	}
	return len(l.finedToday), totalOutstanding
}

// Export returns a snapshot of the full roster sorted by identity id.
func (l *Ledger) Export() []compliance.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make([]compliance.Identity, 0, len(l.identities))
	for _, identity := range l.identities {
		snapshot = append(snapshot, *identity)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].IdentityID < snapshot[j].IdentityID
	})
	return snapshot
}

// Register adds a roster entry at runtime. An existing entry keeps its
// balance; name, email and metadata are refreshed.
func (l *Ledger) Register(identity compliance.Identity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.identities[identity.IdentityID]; ok {
		existing.DisplayName = identity.DisplayName
		existing.Email = identity.Email
		existing.Metadata = identity.Metadata
		return
	}
	l.identities[identity.IdentityID] = &identity
}

// DisplayName returns the roster name for an identity.
func (l *Ledger) DisplayName(identityID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	identity, ok := l.identities[identityID]
	if !ok {
		return "", false
	}
	return identity.DisplayName, true
}

// NotificationAddress returns the identity's notification address and its
// current balance, for building the notification payload after a fine.
func (l *Ledger) NotificationAddress(identityID string) (address string, balance float64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	identity, found := l.identities[identityID]
	if !found || identity.Email == "" {
		return "", 0, false
	}
	return identity.Email, identity.OutstandingBalance, true
}

func (l *Ledger) FineAmount() float64 { return l.fineAmount }

// rolloverLocked resets the daily fined set exactly once when the date
// advances past the stored day marker. Callers must hold l.mu so no
// concurrent fine check can observe a half-reset state.
func (l *Ledger) rolloverLocked() {
	today := dateOf(l.clock.Now())
	if !today.Equal(l.currentDay) {
		l.log.Info().
			Time("day", today).
			Int("cleared", len(l.finedToday)).
			Msg("new day, resetting daily fined set")
		l.finedToday = make(map[string]struct{})
		l.currentDay = today
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
