package moderation_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/trust-api/internal/domain/listing"
	"github.com/tradepost/trust-api/internal/domain/moderation"
	"github.com/tradepost/trust-api/internal/domain/notification"
	"github.com/tradepost/trust-api/internal/domain/user"
)

// In-memory fakes mirroring the storage semantics the services rely on:
// unique constraints surface as ErrDuplicate*, missing rows come back as
// (nil, nil), and the ban-state projection is written together with the
// ledger entry.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *fakeUserRepo) add(u *user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) SetBanState(_ context.Context, id uuid.UUID, banned bool, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsBanned = banned
		if banned {
			u.BanReason.String = reason
			u.BanReason.Valid = true
		} else {
			u.BanReason.Valid = false
		}
	}
	return nil
}

func (r *fakeUserRepo) IncrementWarningCount(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.WarningCount++
	}
	return nil
}

type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*listing.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[uuid.UUID]*listing.Listing)}
}

func (r *fakeListingRepo) add(l *listing.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = l
}

func (r *fakeListingRepo) GetByID(_ context.Context, id uuid.UUID) (*listing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeListingRepo) SetStatus(_ context.Context, id uuid.UUID, status listing.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.listings[id]; ok {
		l.Status = status
	}
	return nil
}

func (r *fakeListingRepo) status(id uuid.UUID) listing.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listings[id].Status
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []*notification.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	return nil, nil
}

func (r *fakeNotificationRepo) CountUnreadByUser(_ context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}

func (r *fakeNotificationRepo) MarkAsRead(_ context.Context, id uuid.UUID) error {
	return nil
}

func (r *fakeNotificationRepo) ofType(t notification.Type) []*notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.created {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type flagKey struct {
	listing  uuid.UUID
	reporter uuid.UUID
}

type appealKey struct {
	action uuid.UUID
	user   uuid.UUID
}

type fakeModerationRepo struct {
	mu      sync.Mutex
	users   *fakeUserRepo
	flags   map[uuid.UUID]*moderation.Flag
	flagIdx map[flagKey]bool
	actions []*moderation.ModerationAction
	appeals map[uuid.UUID]*moderation.Appeal
	apIdx   map[appealKey]bool
	words   map[uuid.UUID]*moderation.BlockedWord
}

func newFakeModerationRepo(users *fakeUserRepo) *fakeModerationRepo {
	return &fakeModerationRepo{
		users:   users,
		flags:   make(map[uuid.UUID]*moderation.Flag),
		flagIdx: make(map[flagKey]bool),
		appeals: make(map[uuid.UUID]*moderation.Appeal),
		apIdx:   make(map[appealKey]bool),
		words:   make(map[uuid.UUID]*moderation.BlockedWord),
	}
}

func (r *fakeModerationRepo) CreateFlag(_ context.Context, f *moderation.Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := flagKey{listing: f.ListingID, reporter: f.ReporterID}
	if r.flagIdx[key] {
		return moderation.ErrDuplicateFlag
	}
	r.flagIdx[key] = true
	cp := *f
	r.flags[f.ID] = &cp
	return nil
}

func (r *fakeModerationRepo) GetFlagByID(_ context.Context, id uuid.UUID) (*moderation.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flags[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *fakeModerationRepo) ListFlagsByReporter(_ context.Context, reporterID uuid.UUID) ([]*moderation.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.Flag
	for _, f := range r.flags {
		if f.ReporterID == reporterID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeModerationRepo) ListPendingFlags(_ context.Context, limit, offset int) ([]*moderation.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.Flag
	for _, f := range r.flags {
		if f.Status == moderation.FlagStatusPending {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeModerationRepo) CountRecentFlagsByReporter(_ context.Context, reporterID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, f := range r.flags {
		if f.ReporterID == reporterID && !f.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeModerationRepo) UpdateFlagReview(_ context.Context, id uuid.UUID, status moderation.FlagStatus, reviewedBy uuid.UUID, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flags[id]
	if !ok {
		return moderation.ErrFlagNotFound
	}
	f.Status = status
	f.ReviewedBy = uuid.NullUUID{UUID: reviewedBy, Valid: true}
	if notes != "" {
		f.ReviewNotes.String = notes
		f.ReviewNotes.Valid = true
	}
	f.ReviewedAt.Time = time.Now()
	f.ReviewedAt.Valid = true
	return nil
}

func (r *fakeModerationRepo) AppendAction(_ context.Context, a *moderation.ModerationAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.actions = append(r.actions, &cp)
	return nil
}

func (r *fakeModerationRepo) AppendActionSettingBanState(ctx context.Context, a *moderation.ModerationAction, banned bool, banReason string) error {
	if err := r.AppendAction(ctx, a); err != nil {
		return err
	}
	return r.users.SetBanState(ctx, a.TargetUserID, banned, banReason)
}

func (r *fakeModerationRepo) GetActionByID(_ context.Context, id uuid.UUID) (*moderation.ModerationAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.actions {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeModerationRepo) ListActionsByUser(_ context.Context, userID uuid.UUID) ([]*moderation.ModerationAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.ModerationAction
	for _, a := range r.actions {
		if a.TargetUserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeModerationRepo) CountActionsByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.actions {
		if a.TargetUserID == userID && a.ActionType != moderation.ActionUnban {
			count++
		}
	}
	return count, nil
}

func (r *fakeModerationRepo) ListExpiredBans(ctx context.Context, now time.Time) ([]*moderation.ModerationAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := make(map[uuid.UUID]*moderation.ModerationAction)
	for _, a := range r.actions {
		if a.ActionType != moderation.ActionBan || !a.ExpiresAt.Valid || a.ExpiresAt.Time.After(now) {
			continue
		}
		unbanned := false
		for _, later := range r.actions {
			if later.TargetUserID == a.TargetUserID &&
				later.ActionType == moderation.ActionUnban &&
				later.CreatedAt.After(a.CreatedAt) {
				unbanned = true
				break
			}
		}
		if unbanned {
			continue
		}
		if cur, ok := latest[a.TargetUserID]; !ok || a.CreatedAt.After(cur.CreatedAt) {
			latest[a.TargetUserID] = a
		}
	}

	var out []*moderation.ModerationAction
	for id, a := range latest {
		u, _ := r.users.GetByID(ctx, id)
		if u == nil || !u.IsBanned {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeModerationRepo) CreateAppeal(_ context.Context, a *moderation.Appeal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := appealKey{action: a.ModerationActionID, user: a.UserID}
	if r.apIdx[key] {
		return moderation.ErrDuplicateAppeal
	}
	r.apIdx[key] = true
	cp := *a
	r.appeals[a.ID] = &cp
	return nil
}

func (r *fakeModerationRepo) GetAppealByID(_ context.Context, id uuid.UUID) (*moderation.Appeal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appeals[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeModerationRepo) ListAppealsByUser(_ context.Context, userID uuid.UUID) ([]*moderation.Appeal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.Appeal
	for _, a := range r.appeals {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeModerationRepo) ListPendingAppeals(_ context.Context, limit, offset int) ([]*moderation.Appeal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.Appeal
	for _, a := range r.appeals {
		if a.Status == moderation.AppealStatusPending {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeModerationRepo) UpdateAppealReview(_ context.Context, id uuid.UUID, status moderation.AppealStatus, reviewedBy uuid.UUID, adminResponse string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appeals[id]
	if !ok {
		return moderation.ErrAppealNotFound
	}
	a.Status = status
	a.ReviewedBy = uuid.NullUUID{UUID: reviewedBy, Valid: true}
	if adminResponse != "" {
		a.AdminResponse.String = adminResponse
		a.AdminResponse.Valid = true
	}
	a.ReviewedAt.Time = time.Now()
	a.ReviewedAt.Valid = true
	return nil
}

func (r *fakeModerationRepo) SweepExpiredAppeals(_ context.Context, cutoff time.Time, systemResponse string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var denied int64
	for _, a := range r.appeals {
		if a.Status == moderation.AppealStatusPending && a.CreatedAt.Before(cutoff) {
			a.Status = moderation.AppealStatusDenied
			a.AdminResponse.String = systemResponse
			a.AdminResponse.Valid = true
			a.ReviewedBy = uuid.NullUUID{}
			a.ReviewedAt.Time = time.Now()
			a.ReviewedAt.Valid = true
			denied++
		}
	}
	return denied, nil
}

func (r *fakeModerationRepo) CreateWord(_ context.Context, w *moderation.BlockedWord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.words {
		if existing.Word == w.Word {
			return moderation.ErrDuplicateWord
		}
	}
	cp := *w
	r.words[w.ID] = &cp
	return nil
}

func (r *fakeModerationRepo) ListActiveWords(_ context.Context) ([]*moderation.BlockedWord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.BlockedWord
	for _, w := range r.words {
		if w.IsActive {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeModerationRepo) ListWords(_ context.Context) ([]*moderation.BlockedWord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.BlockedWord
	for _, w := range r.words {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeModerationRepo) DeactivateWord(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.words[id]
	if !ok {
		return moderation.ErrWordNotFound
	}
	w.IsActive = false
	return nil
}

func (r *fakeModerationRepo) Stats(_ context.Context) (*moderation.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &moderation.Stats{}
	for _, f := range r.flags {
		switch f.Status {
		case moderation.FlagStatusPending:
			s.FlagsPending++
		case moderation.FlagStatusUpheld:
			s.FlagsUpheld++
		case moderation.FlagStatusDismissed:
			s.FlagsDismissed++
		}
	}
	for _, a := range r.actions {
		switch a.ActionType {
		case moderation.ActionWarning:
			s.Warnings++
		case moderation.ActionBan:
			s.Bans++
		case moderation.ActionUnban:
			s.Unbans++
		case moderation.ActionContentRemoval:
			s.ContentRemovals++
		}
	}
	for _, a := range r.appeals {
		switch a.Status {
		case moderation.AppealStatusPending:
			s.AppealsPending++
		case moderation.AppealStatusApproved:
			s.AppealsApproved++
		case moderation.AppealStatusDenied:
			s.AppealsDenied++
		}
	}
	s.FillRates()
	return s, nil
}

func (r *fakeModerationRepo) setAppealCreatedAt(id uuid.UUID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.appeals[id]; ok {
		a.CreatedAt = at
	}
}

func (r *fakeModerationRepo) actionsOfType(t moderation.ActionType) []*moderation.ModerationAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.ModerationAction
	for _, a := range r.actions {
		if a.ActionType == t {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}
