package services_test

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memState is everything memStore persists. Transactions snapshot it on Begin
// and restore it on an uncommitted Rollback.
type memState struct {
	chamas        map[string]domain.Chama
	members       []domain.Member
	metrics       map[string]domain.MemberMetrics
	rotations     map[string]domain.RotationOrder
	positions     map[string]domain.RotationPosition
	cycles        map[string]domain.ContributionCycle
	contributions []domain.Contribution
	payouts       map[string]domain.Payout
	payoutLeases  map[string]time.Time
	distributions []domain.PayoutDistribution
	autoDebits    map[string]domain.AutoDebitConfig
	reminders     map[string]domain.ContributionReminder
}

func (s memState) clone() memState {
	return memState{
		chamas:        maps.Clone(s.chamas),
		members:       slices.Clone(s.members),
		metrics:       maps.Clone(s.metrics),
		rotations:     maps.Clone(s.rotations),
		positions:     maps.Clone(s.positions),
		cycles:        maps.Clone(s.cycles),
		contributions: slices.Clone(s.contributions),
		payouts:       maps.Clone(s.payouts),
		payoutLeases:  maps.Clone(s.payoutLeases),
		distributions: slices.Clone(s.distributions),
		autoDebits:    maps.Clone(s.autoDebits),
		reminders:     maps.Clone(s.reminders),
	}
}

type fakeTx struct {
	pgx.Tx
	snapshot memState
	done     bool
}

// memStore implements every repository port in memory.
type memStore struct {
	mu    sync.Mutex
	state memState
	// commits counts committed transactions.
	commits int
	// rollbacks counts transactions discarded without a commit.
	rollbacks int
	// open counts transactions begun and not yet finished.
	open int
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		chamas:       map[string]domain.Chama{},
		metrics:      map[string]domain.MemberMetrics{},
		rotations:    map[string]domain.RotationOrder{},
		positions:    map[string]domain.RotationPosition{},
		cycles:       map[string]domain.ContributionCycle{},
		payouts:      map[string]domain.Payout{},
		payoutLeases: map[string]time.Time{},
		autoDebits:   map[string]domain.AutoDebitConfig{},
		reminders:    map[string]domain.ContributionReminder{},
	}}
}

var (
	_ portsrepo.ChamaReader               = (*memStore)(nil)
	_ portsrepo.RotationRepositoryWithTx  = (*memStore)(nil)
	_ portsrepo.CycleRepositoryWithTx     = (*memStore)(nil)
	_ portsrepo.PayoutRepositoryWithTx    = (*memStore)(nil)
	_ portsrepo.AutoDebitRepositoryFacade = (*memStore)(nil)
	_ portsrepo.ReminderRepositoryFacade  = (*memStore)(nil)
)

func (s *memStore) provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ChamaRepo:     s,
		RotationRepo:  s,
		CycleRepo:     s,
		PayoutRepo:    s,
		AutoDebitRepo: s,
		ReminderRepo:  s,
	}
}

// --- seeding helpers ---

func (s *memStore) addChama(c domain.Chama) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.chamas[c.ID] = c
}

func (s *memStore) addMember(m domain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.members = append(s.state.members, m)
}

func (s *memStore) payout(id string) domain.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.payouts[id]
}

func (s *memStore) cycle(id string) domain.ContributionCycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.cycles[id]
}

func (s *memStore) setCycle(c domain.ContributionCycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.cycles[c.ID] = c
}

func (s *memStore) setPayout(p domain.Payout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.payouts[p.ID] = p
}

func (s *memStore) cyclesOf(chamaID string) []domain.ContributionCycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ContributionCycle
	for _, c := range s.state.cycles {
		if c.ChamaID == chamaID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	return out
}

// --- TransactionManager ---

func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open++
	return &fakeTx{snapshot: s.state.clone()}, nil
}

func (s *memStore) Commit(ctx context.Context, tx pgx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft := tx.(*fakeTx)
	ft.done = true
	s.commits++
	s.open--
	return nil
}

func (s *memStore) Rollback(ctx context.Context, tx pgx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft := tx.(*fakeTx)
	if ft.done {
		return nil
	}
	ft.done = true
	s.state = ft.snapshot
	s.rollbacks++
	s.open--
	return nil
}

func (s *memStore) openTxs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// --- ChamaReader ---

func (s *memStore) FindChamaByID(ctx context.Context, chamaID string) (*domain.Chama, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.chamas[chamaID]
	if !ok {
		return nil, apperrors.NewNotFoundError("chama", chamaID)
	}
	return &c, nil
}

func (s *memStore) ListActiveMembers(ctx context.Context, chamaID string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeMembers(chamaID), nil
}

func (s *memStore) activeMembers(chamaID string) []domain.Member {
	var out []domain.Member
	for _, m := range s.state.members {
		if m.ChamaID == chamaID && m.IsActive() {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.state.members {
		if m.ID == memberID {
			return &m, nil
		}
	}
	return nil, apperrors.NewNotFoundError("member", memberID)
}

func (s *memStore) ListMemberMetrics(ctx context.Context, chamaID string) (map[string]domain.MemberMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state.metrics), nil
}

// --- Rotation ---

func (s *memStore) FindActiveRotationByChama(ctx context.Context, chamaID string) (*domain.RotationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.state.rotations {
		if r.ChamaID == chamaID && r.Status == domain.RotationActive {
			return &r, nil
		}
	}
	return nil, apperrors.NewNotFoundError("active rotation", chamaID)
}

func (s *memStore) FindRotationByID(ctx context.Context, rotationOrderID string) (*domain.RotationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.rotations[rotationOrderID]
	if !ok {
		return nil, apperrors.NewNotFoundError("rotation", rotationOrderID)
	}
	return &r, nil
}

func (s *memStore) FindPositionByID(ctx context.Context, positionID string) (*domain.RotationPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.positions[positionID]
	if !ok {
		return nil, apperrors.NewNotFoundError("rotation position", positionID)
	}
	return &p, nil
}

func (s *memStore) FindPositionInTx(ctx context.Context, tx pgx.Tx, positionID string) (*domain.RotationPosition, error) {
	return s.FindPositionByID(ctx, positionID)
}

func (s *memStore) ListPositions(ctx context.Context, rotationOrderID string) ([]domain.RotationPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionsOf(rotationOrderID), nil
}

func (s *memStore) positionsOf(rotationOrderID string) []domain.RotationPosition {
	var out []domain.RotationPosition
	for _, p := range s.state.positions {
		if p.RotationOrderID == rotationOrderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *memStore) HasActiveRotationInTx(ctx context.Context, tx pgx.Tx, chamaID string) (bool, error) {
	_, err := s.FindActiveRotationByChama(ctx, chamaID)
	return err == nil, nil
}

func (s *memStore) CreateRotationInTx(ctx context.Context, tx pgx.Tx, order domain.RotationOrder, positions []domain.RotationPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.state.rotations {
		if r.ChamaID == order.ChamaID && r.Status == domain.RotationActive {
			return apperrors.ErrRotationAlreadyActive
		}
	}
	s.state.rotations[order.ID] = order
	for _, p := range positions {
		s.state.positions[p.ID] = p
	}
	return nil
}

func (s *memStore) LockRotationInTx(ctx context.Context, tx pgx.Tx, rotationOrderID string) (*domain.RotationOrder, []domain.RotationPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.rotations[rotationOrderID]
	if !ok {
		return nil, nil, apperrors.NewNotFoundError("rotation", rotationOrderID)
	}
	return &r, s.positionsOf(rotationOrderID), nil
}

func (s *memStore) UpdateRotationInTx(ctx context.Context, tx pgx.Tx, order domain.RotationOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.rotations[order.ID] = order
	return nil
}

func (s *memStore) UpdatePositionsInTx(ctx context.Context, tx pgx.Tx, positions ...domain.RotationPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range positions {
		s.state.positions[p.ID] = p
	}
	return nil
}

// --- Cycles ---

func (s *memStore) FindCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.cycles[cycleID]
	if !ok {
		return nil, apperrors.NewNotFoundError("cycle", cycleID)
	}
	return &c, nil
}

func (s *memStore) FindActiveCycleByChama(ctx context.Context, chamaID string) (*domain.ContributionCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.cycles {
		if c.ChamaID == chamaID && c.Status == domain.CycleActive {
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError("active cycle", chamaID)
}

func (s *memStore) ListContributions(ctx context.Context, cycleID string) ([]domain.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contribution
	for _, c := range s.state.contributions {
		if c.CycleID == cycleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) HasCompletedContribution(ctx context.Context, cycleID, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paid(cycleID, memberID), nil
}

func (s *memStore) paid(cycleID, memberID string) bool {
	for _, c := range s.state.contributions {
		if c.CycleID == cycleID && c.MemberID == memberID && c.Status == domain.ContributionCompleted {
			return true
		}
	}
	return false
}

func (s *memStore) ListCyclesAwaitingReminders(ctx context.Context, now, cutoff time.Time, limit int) ([]domain.ContributionCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ContributionCycle
	for _, c := range s.state.cycles {
		if c.Status == domain.CycleActive && c.DueDate.Before(cutoff) && s.awaitingReminder(c, now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) awaitingReminder(c domain.ContributionCycle, now time.Time) bool {
	kind := domain.ReminderKindAt(c.DueDate, now)
	for _, m := range s.activeMembers(c.ChamaID) {
		if s.paid(c.ID, m.ID) {
			continue
		}
		held := false
		for _, r := range s.state.reminders {
			if r.CycleID == c.ID && r.MemberID == m.ID && r.Kind == kind {
				held = true
				break
			}
		}
		if !held {
			return true
		}
	}
	return false
}

func (s *memStore) ListUnpaidMembers(ctx context.Context, cycleID string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cycle, ok := s.state.cycles[cycleID]
	if !ok {
		return nil, apperrors.NewNotFoundError("cycle", cycleID)
	}
	var out []domain.Member
	for _, m := range s.activeMembers(cycle.ChamaID) {
		if !s.paid(cycleID, m.ID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) CreateCycleInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.cycles[cycle.ID] = cycle
	return nil
}

func (s *memStore) LockCycleInTx(ctx context.Context, tx pgx.Tx, cycleID string) (*domain.ContributionCycle, error) {
	return s.FindCycleByID(ctx, cycleID)
}

func (s *memStore) UpdateCycleInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.cycles[cycle.ID] = cycle
	return nil
}

func (s *memStore) AddCollectedInTx(ctx context.Context, tx pgx.Tx, cycleID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.cycles[cycleID]
	if !ok {
		return apperrors.NewNotFoundError("cycle", cycleID)
	}
	c.CollectedAmount = c.CollectedAmount.Add(amount)
	s.state.cycles[cycleID] = c
	return nil
}

func (s *memStore) SaveContributionInTx(ctx context.Context, tx pgx.Tx, contribution domain.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contribution.Status == domain.ContributionCompleted && s.paid(contribution.CycleID, contribution.MemberID) {
		return apperrors.ErrAlreadyContributed
	}
	s.state.contributions = append(s.state.contributions, contribution)
	return nil
}

func (s *memStore) CountUnpaidInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.activeMembers(cycle.ChamaID)
	unpaid := 0
	for _, m := range members {
		if !s.paid(cycle.ID, m.ID) {
			unpaid++
		}
	}
	return unpaid, len(members), nil
}

func (s *memStore) ListCompletedContributionsInTx(ctx context.Context, tx pgx.Tx, cycleID string) ([]domain.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contribution
	for _, c := range s.state.contributions {
		if c.CycleID == cycleID && c.Status == domain.ContributionCompleted {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- Payouts ---

func (s *memStore) FindPayoutByID(ctx context.Context, payoutID string) (*domain.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.payouts[payoutID]
	if !ok {
		return nil, apperrors.NewNotFoundError("payout", payoutID)
	}
	return &p, nil
}

func (s *memStore) ListPayouts(ctx context.Context, filter domain.PayoutFilter, limit, offset int) ([]domain.Payout, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.Payout
	for _, p := range s.state.payouts {
		if filter.ChamaID != nil && p.ChamaID != *filter.ChamaID {
			continue
		}
		if filter.CycleID != nil && p.CycleID != *filter.CycleID {
			continue
		}
		if filter.RecipientMemberID != nil && p.RecipientMemberID != *filter.RecipientMemberID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset >= total {
		return []domain.Payout{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *memStore) ListDistributions(ctx context.Context, payoutID string) ([]domain.PayoutDistribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PayoutDistribution
	for _, d := range s.state.distributions {
		if d.PayoutID == payoutID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) ClaimDuePayouts(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.Payout, error) {
	return s.claimPayouts(now, lease, limit, func(p domain.Payout) bool {
		switch p.Status {
		case domain.PayoutPending:
			return !p.ScheduledAt.After(now)
		case domain.PayoutProcessing:
			return !p.LastUpdatedAt.Add(lease).After(now)
		}
		return false
	}, func(p domain.Payout) time.Time { return p.ScheduledAt })
}

func (s *memStore) ClaimRetryablePayouts(ctx context.Context, now time.Time, cooldown time.Duration, maxRetries int, lease time.Duration, limit int) ([]domain.Payout, error) {
	return s.claimPayouts(now, lease, limit, func(p domain.Payout) bool {
		return p.Status == domain.PayoutFailed && p.RetryCount < maxRetries &&
			p.LastFailedAt != nil && !p.LastFailedAt.Add(cooldown).After(now)
	}, func(p domain.Payout) time.Time { return *p.LastFailedAt })
}

func (s *memStore) claimPayouts(now time.Time, lease time.Duration, limit int, match func(domain.Payout) bool, dueAt func(domain.Payout) time.Time) ([]domain.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payout
	for _, p := range s.state.payouts {
		if until, leased := s.state.payoutLeases[p.ID]; leased && until.After(now) {
			continue
		}
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return dueAt(out[i]).Before(dueAt(out[j])) })
	if len(out) > limit {
		out = out[:limit]
	}
	for _, p := range out {
		s.state.payoutLeases[p.ID] = now.Add(lease)
	}
	return out, nil
}

func (s *memStore) ExistsActivePayoutForCycleInTx(ctx context.Context, tx pgx.Tx, cycleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePayoutExists(cycleID), nil
}

func (s *memStore) activePayoutExists(cycleID string) bool {
	for _, p := range s.state.payouts {
		if p.CycleID == cycleID && p.Status != domain.PayoutCancelled {
			return true
		}
	}
	return false
}

func (s *memStore) CreatePayoutInTx(ctx context.Context, tx pgx.Tx, payout domain.Payout, distributions []domain.PayoutDistribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePayoutExists(payout.CycleID) {
		return apperrors.ErrDuplicatePayout
	}
	s.state.payouts[payout.ID] = payout
	s.state.distributions = append(s.state.distributions, distributions...)
	return nil
}

func (s *memStore) LockPayoutInTx(ctx context.Context, tx pgx.Tx, payoutID string) (*domain.Payout, error) {
	return s.FindPayoutByID(ctx, payoutID)
}

func (s *memStore) UpdatePayoutInTx(ctx context.Context, tx pgx.Tx, payout domain.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.payouts[payout.ID] = payout
	delete(s.state.payoutLeases, payout.ID)
	return nil
}

// --- Auto-debit ---

func (s *memStore) FindAutoDebitByID(ctx context.Context, configID string) (*domain.AutoDebitConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.autoDebits[configID]
	if !ok {
		return nil, apperrors.NewNotFoundError("auto-debit", configID)
	}
	return &c, nil
}

func (s *memStore) FindAutoDebitByMember(ctx context.Context, chamaID, memberID string) (*domain.AutoDebitConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.autoDebits {
		if c.ChamaID == chamaID && c.MemberID == memberID {
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError("auto-debit", memberID)
}

func (s *memStore) UpsertAutoDebit(ctx context.Context, cfg domain.AutoDebitConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.autoDebits[cfg.ID] = cfg
	return nil
}

func (s *memStore) ClaimDueAutoDebits(ctx context.Context, now time.Time, cooldown, lease time.Duration, limit int) ([]domain.AutoDebitConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AutoDebitConfig
	for _, c := range s.state.autoDebits {
		if !c.Enabled || c.NextExecutionAt.After(now) {
			continue
		}
		if c.ClaimedUntil != nil && c.ClaimedUntil.After(now) {
			continue
		}
		if c.LastExecutionStatus == domain.ExecutionFailed && c.LastExecutionAt != nil && c.LastExecutionAt.Add(cooldown).After(now) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextExecutionAt.Before(out[j].NextExecutionAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	until := now.Add(lease)
	for i := range out {
		out[i].ClaimedUntil = &until
		s.state.autoDebits[out[i].ID] = out[i]
	}
	return out, nil
}

func (s *memStore) SaveExecutionResult(ctx context.Context, cfg domain.AutoDebitConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.ClaimedUntil = nil
	s.state.autoDebits[cfg.ID] = cfg
	return nil
}

// --- Reminders ---

func (s *memStore) CreateReminders(ctx context.Context, reminders []domain.ContributionReminder) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
outer:
	for _, r := range reminders {
		for _, existing := range s.state.reminders {
			if existing.CycleID == r.CycleID && existing.MemberID == r.MemberID && existing.Kind == r.Kind {
				continue outer
			}
		}
		s.state.reminders[r.ID] = r
		created++
	}
	return created, nil
}

func (s *memStore) ClaimDueReminders(ctx context.Context, now time.Time, lease time.Duration, maxAttempts, limit int) ([]domain.ContributionReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ContributionReminder
	for _, r := range s.state.reminders {
		if r.Status == domain.ReminderPending && !r.ScheduledFor.After(now) && r.Attempts < maxAttempts {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateReminder(ctx context.Context, reminder domain.ContributionReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.reminders[reminder.ID] = reminder
	return nil
}

func (s *memStore) CancelPendingReminders(ctx context.Context, cycleID, memberID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.state.reminders {
		if r.CycleID == cycleID && r.MemberID == memberID && r.Status == domain.ReminderPending {
			r.Status = domain.ReminderCancelled
			s.state.reminders[id] = r
			n++
		}
	}
	return n, nil
}

func (s *memStore) remindersFor(cycleID string) []domain.ContributionReminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ContributionReminder
	for _, r := range s.state.reminders {
		if r.CycleID == cycleID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberID != out[j].MemberID {
			return out[i].MemberID < out[j].MemberID
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
