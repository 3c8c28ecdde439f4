package moderation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/trust-api/internal/config"
	"github.com/tradepost/trust-api/internal/domain/listing"
	"github.com/tradepost/trust-api/internal/domain/moderation"
	"github.com/tradepost/trust-api/internal/domain/notification"
	"github.com/tradepost/trust-api/internal/domain/user"
	"github.com/tradepost/trust-api/internal/pkg/cache"
)

type testEnv struct {
	repo     *fakeModerationRepo
	users    *fakeUserRepo
	listings *fakeListingRepo
	notifs   *fakeNotificationRepo
	words    *moderation.WordService
	flags    *moderation.FlagService
	appeals  *moderation.AppealService
	sweeper  *moderation.Sweeper
	cfg      config.ModerationConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.ModerationConfig{
		AppealDeadlineDays:     7,
		MaxAppealMessageLength: 2000,
		MaxAdminResponseLength: 2000,
		MaxBlockedWordLength:   100,
		FlagRateLimit:          5,
		FlagRateWindow:         24 * time.Hour,
		AutoBanScore:           80,
		AutoRemoveScore:        60,
		WarnScore:              40,
		EscalateScore:          20,
	}

	users := newFakeUserRepo()
	listings := newFakeListingRepo()
	repo := newFakeModerationRepo(users)
	notifs := &fakeNotificationRepo{}
	notifier := notification.NewService(notifs)
	invalidator := cache.NewInvalidator(nil)

	words := moderation.NewWordService(repo, nil, invalidator, cfg.MaxBlockedWordLength)
	scorer := moderation.NewScorer(moderation.DefaultScorerConfig())
	ladder := moderation.DefaultLadder()

	return &testEnv{
		repo:     repo,
		users:    users,
		listings: listings,
		notifs:   notifs,
		words:    words,
		flags: moderation.NewFlagService(
			repo, users, listings, words, scorer, ladder, notifier, invalidator, cfg,
		),
		appeals: moderation.NewAppealService(
			repo, users, listings, notifier, invalidator, cfg,
		),
		sweeper: moderation.NewSweeper(repo, users, notifier, invalidator, cfg),
		cfg:     cfg,
	}
}

func (e *testEnv) seedUser(role user.Role) uuid.UUID {
	u := &user.User{ID: uuid.New(), Email: uuid.NewString() + "@test.local", Role: role}
	e.users.add(u)
	return u.ID
}

func (e *testEnv) seedListing(ownerID uuid.UUID, title, description string, price float64) uuid.UUID {
	l := &listing.Listing{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Title:    title,
		Category: "other",
		Price:    price,
		Status:   listing.StatusActive,
	}
	if description != "" {
		l.Description.String = description
		l.Description.Valid = true
	}
	e.listings.add(l)
	return l.ID
}

func TestSubmitFlagPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)
	listingID := env.seedListing(seller, "Mountain bike", "barely used", 250)

	flag, err := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: listingID,
		Reason:    moderation.FlagReasonSpam,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if flag.Status != moderation.FlagStatusPending {
		t.Errorf("status = %s, want pending", flag.Status)
	}
	if flag.RiskScore != 0 {
		t.Errorf("risk score = %d, want 0 for clean listing", flag.RiskScore)
	}

	// Clean listing: no automatic action, nothing on the ledger
	if actions := env.repo.actionsOfType(moderation.ActionBan); len(actions) != 0 {
		t.Errorf("unexpected ban entries: %d", len(actions))
	}
}

func TestSubmitFlagDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)
	listingID := env.seedListing(seller, "Mountain bike", "", 250)

	req := &moderation.SubmitFlagRequest{ListingID: listingID, Reason: moderation.FlagReasonSpam}
	if _, err := env.flags.Submit(ctx, reporter, req); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := env.flags.Submit(ctx, reporter, req); !errors.Is(err, moderation.ErrDuplicateFlag) {
		t.Errorf("second submit err = %v, want ErrDuplicateFlag", err)
	}
}

func TestSubmitFlagGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	listingID := env.seedListing(seller, "Bike", "", 100)

	// Own listing
	if _, err := env.flags.Submit(ctx, seller, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonSpam,
	}); !errors.Is(err, moderation.ErrOwnListing) {
		t.Errorf("own listing err = %v, want ErrOwnListing", err)
	}

	// Missing listing
	reporter := env.seedUser(user.RoleBuyer)
	if _, err := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: uuid.New(), Reason: moderation.FlagReasonSpam,
	}); !errors.Is(err, moderation.ErrListingNotFound) {
		t.Errorf("missing listing err = %v, want ErrListingNotFound", err)
	}

	// Banned reporter
	banned := env.seedUser(user.RoleBuyer)
	env.users.SetBanState(ctx, banned, true, "prior abuse")
	if _, err := env.flags.Submit(ctx, banned, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonSpam,
	}); !errors.Is(err, moderation.ErrReporterBanned) {
		t.Errorf("banned reporter err = %v, want ErrReporterBanned", err)
	}
}

func TestSubmitFlagRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)

	for i := 0; i < env.cfg.FlagRateLimit; i++ {
		listingID := env.seedListing(seller, "Bike", "", 100)
		if _, err := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
			ListingID: listingID, Reason: moderation.FlagReasonSpam,
		}); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
	}

	listingID := env.seedListing(seller, "Bike", "", 100)
	if _, err := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonSpam,
	}); !errors.Is(err, moderation.ErrFlagRateLimited) {
		t.Errorf("err = %v, want ErrFlagRateLimited", err)
	}
}

func TestSubmitFlagCriticalAutoBan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)
	listingID := env.seedListing(seller, "BUY NOW CASH ONLY WESTERN UNION xxx-xxx-xxxx", "", 0.50)

	flag, err := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonScam,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Flag is auto-upheld with the system as reviewer
	if flag.Status != moderation.FlagStatusUpheld {
		t.Errorf("status = %s, want upheld", flag.Status)
	}
	stored, _ := env.repo.GetFlagByID(ctx, flag.ID)
	if !stored.ReviewedBy.Valid || stored.ReviewedBy.UUID != moderation.SystemActor {
		t.Errorf("reviewed_by = %v, want system actor", stored.ReviewedBy)
	}

	// Seller is banned, listing removed, ban entry on the ledger
	owner, _ := env.users.GetByID(ctx, seller)
	if !owner.IsBanned {
		t.Error("seller should be banned")
	}
	if st := env.listings.status(listingID); st != listing.StatusRemoved {
		t.Errorf("listing status = %s, want removed", st)
	}
	bans := env.repo.actionsOfType(moderation.ActionBan)
	if len(bans) != 1 {
		t.Fatalf("ban entries = %d, want 1", len(bans))
	}
	if bans[0].AdminID != moderation.SystemActor {
		t.Errorf("ban admin = %s, want system actor", bans[0].AdminID)
	}

	// Ban and removal notifications went out
	if len(env.notifs.ofType(notification.TypeBan)) != 1 {
		t.Error("expected a ban notification")
	}
	if len(env.notifs.ofType(notification.TypeContentRemoved)) != 1 {
		t.Error("expected a content-removed notification")
	}
}

func TestReviewFlagDismiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)
	admin := env.seedUser(user.RoleAdmin)
	listingID := env.seedListing(seller, "Bike", "", 100)

	flag, err := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonOther,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	reviewed, err := env.flags.Review(ctx, flag.ID, admin, &moderation.ReviewFlagRequest{Decision: "dismiss"})
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if reviewed.Status != moderation.FlagStatusDismissed {
		t.Errorf("status = %s, want dismissed", reviewed.Status)
	}

	// Dismissal leaves the listing and the ledger untouched
	if st := env.listings.status(listingID); st != listing.StatusActive {
		t.Errorf("listing status = %s, want active", st)
	}
	if count, _ := env.repo.CountActionsByUser(ctx, seller); count != 0 {
		t.Errorf("ledger entries = %d, want 0", count)
	}

	// Second decision conflicts
	if _, err := env.flags.Review(ctx, flag.ID, admin, &moderation.ReviewFlagRequest{Decision: "uphold"}); !errors.Is(err, moderation.ErrFlagAlreadyReviewed) {
		t.Errorf("re-review err = %v, want ErrFlagAlreadyReviewed", err)
	}
}

func TestReviewFlagUpholdFirstOffense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)
	admin := env.seedUser(user.RoleAdmin)
	listingID := env.seedListing(seller, "Bike", "", 100)

	flag, _ := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonSpam,
	})

	if _, err := env.flags.Review(ctx, flag.ID, admin, &moderation.ReviewFlagRequest{Decision: "uphold"}); err != nil {
		t.Fatalf("review failed: %v", err)
	}

	// First offense: warning, not a ban, but the content still comes down
	warnings := env.repo.actionsOfType(moderation.ActionWarning)
	if len(warnings) != 1 {
		t.Fatalf("warning entries = %d, want 1", len(warnings))
	}
	if warnings[0].AdminID != admin {
		t.Errorf("warning admin = %s, want reviewer", warnings[0].AdminID)
	}
	owner, _ := env.users.GetByID(ctx, seller)
	if owner.IsBanned {
		t.Error("first offense must not ban")
	}
	if owner.WarningCount != 1 {
		t.Errorf("warning count = %d, want 1", owner.WarningCount)
	}
	if st := env.listings.status(listingID); st != listing.StatusRemoved {
		t.Errorf("listing status = %s, want removed", st)
	}
}

func TestReviewFlagUpholdEscalatesToBan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)
	admin := env.seedUser(user.RoleAdmin)

	// Two prior infractions already on the ledger
	for i := 0; i < 2; i++ {
		env.repo.AppendAction(ctx, &moderation.ModerationAction{
			ID: uuid.New(), TargetUserID: seller, AdminID: admin,
			ActionType: moderation.ActionWarning, Reason: "prior", CreatedAt: time.Now(),
		})
	}

	listingID := env.seedListing(seller, "Bike", "", 100)
	flag, _ := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonSpam,
	})

	if _, err := env.flags.Review(ctx, flag.ID, admin, &moderation.ReviewFlagRequest{Decision: "uphold"}); err != nil {
		t.Fatalf("review failed: %v", err)
	}

	// Third rung of the ladder: 3-day ban with an expiry
	bans := env.repo.actionsOfType(moderation.ActionBan)
	if len(bans) != 1 {
		t.Fatalf("ban entries = %d, want 1", len(bans))
	}
	if !bans[0].DurationDays.Valid || bans[0].DurationDays.Int32 != 3 {
		t.Errorf("duration = %v, want 3 days", bans[0].DurationDays)
	}
	if !bans[0].ExpiresAt.Valid {
		t.Error("timed ban must carry an expiry")
	}
	owner, _ := env.users.GetByID(ctx, seller)
	if !owner.IsBanned {
		t.Error("seller should be banned")
	}
}

func TestReviewFlagRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)
	reporter := env.seedUser(user.RoleBuyer)
	listingID := env.seedListing(seller, "Bike", "", 100)

	flag, _ := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
		ListingID: listingID, Reason: moderation.FlagReasonSpam,
	})

	if _, err := env.flags.Review(ctx, flag.ID, reporter, &moderation.ReviewFlagRequest{Decision: "uphold"}); !errors.Is(err, moderation.ErrNotAdmin) {
		t.Errorf("err = %v, want ErrNotAdmin", err)
	}
}

func TestPendingQueueOrderAndPriority(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(user.RoleSeller)

	// Three listings with different risk profiles
	clean := env.seedListing(seller, "Bike", "", 100)
	urgent := env.seedListing(seller, "Hurry, limited time deal on a sofa", "", 100)
	risky := env.seedListing(seller, "Rolex watch wire transfer western union payment", "", 100)

	for _, id := range []uuid.UUID{clean, urgent, risky} {
		reporter := env.seedUser(user.RoleBuyer)
		if _, err := env.flags.Submit(ctx, reporter, &moderation.SubmitFlagRequest{
			ListingID: id, Reason: moderation.FlagReasonScam,
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	queue, err := env.flags.PendingQueue(ctx, 10, 0)
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}

	for i := 1; i < len(queue); i++ {
		if queue[i].RiskScore > queue[i-1].RiskScore {
			t.Errorf("queue not ordered by risk: %d before %d", queue[i-1].RiskScore, queue[i].RiskScore)
		}
	}

	// Lowest band gets the week-long SLA
	last := queue[len(queue)-1]
	if last.RiskScore != 0 || last.Priority != moderation.SeverityLow || last.SLAHours != 168 {
		t.Errorf("clean flag view = %d/%s/%dh, want 0/low/168h", last.RiskScore, last.Priority, last.SLAHours)
	}
}
