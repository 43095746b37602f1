package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/core/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/amkoya-stack/cycles-sub000/internal/idempotency"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var rotationStart = time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)

// EngineSuite drives rotation, cycle and payout services together over the in-memory store.
type EngineSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memStore
	ledger    *MockLedger
	notifier  *MockNotifier
	publisher *recordingPublisher
	clock     func() time.Time
	chama     domain.Chama
	members   []domain.Member

	rotation portssvc.RotationSvcFacade
	cycles   portssvc.CycleSvcFacade
	payouts  portssvc.PayoutSvcFacade
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newMemStore()
	s.ledger = new(MockLedger)
	s.notifier = new(MockNotifier)
	s.publisher = &recordingPublisher{}
	s.clock = steppingClock(time.Date(2026, time.January, 20, 8, 0, 0, 0, time.UTC), time.Second)
	s.members = nil

	s.chama = domain.Chama{
		ID:                 uuid.NewString(),
		Name:               "Umoja",
		ContributionAmount: decimal.NewFromInt(1000),
		Currency:           "KES",
		AutoPayout:         true,
	}
	s.store.addChama(s.chama)

	s.ledger.On("ProcessContribution", mock.Anything, mock.Anything).Return(&portssvc.LedgerResult{TransactionID: "tx-contribution"}, nil)
	s.notifier.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	s.notifier.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	s.build(domain.SkippedBypass)
}

func (s *EngineSuite) build(policy domain.SkippedPositionPolicy) {
	s.rotation = services.NewRotationService(s.store, s.store, s.store,
		services.WithSkippedPositionPolicy(policy),
		services.WithRotationClock(s.clock))
	s.cycles = services.NewCycleService(s.store, s.store, s.ledger, idempotency.NewMemoryStore(), s.publisher,
		services.WithCycleClock(s.clock))
	s.payouts = s.newPayoutService(s.rotation)
}

func (s *EngineSuite) newPayoutService(advancer portssvc.RotationAdvancer) portssvc.PayoutSvcFacade {
	return services.NewPayoutService(s.store, s.store, s.store, s.store, advancer, s.ledger,
		services.WithPayoutNotifier(s.notifier),
		services.WithPayoutRetryPolicy(domain.DefaultRetryPolicy()),
		services.WithPayoutClock(s.clock))
}

func (s *EngineSuite) setAutoPayout(on bool) {
	s.chama.AutoPayout = on
	s.store.addChama(s.chama)
}

func (s *EngineSuite) addMembers(n int) {
	for i := 0; i < n; i++ {
		m := domain.Member{
			ID:       uuid.NewString(),
			ChamaID:  s.chama.ID,
			UserID:   uuid.NewString(),
			Name:     fmt.Sprintf("Member %d", len(s.members)+1),
			Phone:    fmt.Sprintf("+2547000000%02d", len(s.members)+1),
			Email:    fmt.Sprintf("member%d@example.com", len(s.members)+1),
			Status:   domain.MemberActive,
			JoinedAt: rotationStart.AddDate(0, -1, len(s.members)),
		}
		s.members = append(s.members, m)
		s.store.addMember(m)
	}
}

func (s *EngineSuite) createRotation() *domain.RotationOverview {
	overview, err := s.rotation.CreateRotation(s.ctx, dto.CreateRotationRequest{
		ChamaID:             s.chama.ID,
		Policy:              domain.PolicySequential,
		CycleDurationMonths: 1,
		StartDate:           rotationStart,
	}, "admin")
	s.Require().NoError(err)
	return overview
}

func (s *EngineSuite) contribute(m domain.Member) *domain.Contribution {
	c, err := s.cycles.Contribute(s.ctx, dto.ContributeRequest{
		ChamaID:       s.chama.ID,
		MemberID:      m.ID,
		Amount:        s.chama.ContributionAmount,
		PaymentMethod: "mpesa",
	})
	s.Require().NoError(err)
	return c
}

func (s *EngineSuite) contributeAll() {
	for _, m := range s.members {
		s.contribute(m)
	}
}

func (s *EngineSuite) activeCycle() *domain.ContributionCycle {
	cycle, err := s.cycles.GetActiveCycle(s.ctx, s.chama.ID)
	s.Require().NoError(err)
	return cycle
}

func (s *EngineSuite) runTrigger(job domain.Job) (*domain.Payout, error) {
	s.Require().Equal(domain.JobPayoutTrigger, job.Kind)
	var payload domain.PayoutTriggerPayload
	s.Require().NoError(json.Unmarshal(job.Payload, &payload))
	return s.payouts.TriggerCyclePayout(s.ctx, payload.CycleID)
}

func (s *EngineSuite) expectPayoutSuccess(times int) {
	s.ledger.On("ProcessPayout", mock.Anything, mock.Anything).Return(&portssvc.LedgerResult{TransactionID: "tx-payout"}, nil).Times(times)
}

func (s *EngineSuite) TestSequentialAutoPayoutScenario() {
	s.addMembers(4)
	overview := s.createRotation()
	s.ledger.On("ProcessPayout", mock.Anything, mock.MatchedBy(func(req portssvc.LedgerPayout) bool {
		return req.Amount.Equal(decimal.NewFromInt(4000)) && req.RecipientUserID == s.members[0].UserID
	})).Return(&portssvc.LedgerResult{TransactionID: "tx-payout-1"}, nil).Once()

	first := s.activeCycle()
	s.Equal(1, first.CycleNumber)
	s.True(first.ExpectedAmount.Equal(decimal.NewFromInt(4000)))
	s.Equal(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), first.DueDate, "due date clamps to month end")

	s.contributeAll()

	jobs := s.publisher.published()
	s.Require().Len(jobs, 1)
	s.Equal(domain.PayoutTriggerKey(first.ID), jobs[0].IdempotencyKey)

	payout, err := s.runTrigger(jobs[0])
	s.Require().NoError(err)
	s.Equal(domain.PayoutCompleted, payout.Status)
	s.True(payout.Amount.Equal(decimal.NewFromInt(4000)))
	s.Equal(s.members[0].ID, payout.RecipientMemberID)
	s.Require().NotNil(payout.TransactionID)
	s.Equal("tx-payout-1", *payout.TransactionID)

	distributions, err := s.store.ListDistributions(s.ctx, payout.ID)
	s.Require().NoError(err)
	s.Len(distributions, 4)

	status, err := s.rotation.GetRotationStatus(s.ctx, s.chama.ID)
	s.Require().NoError(err)
	s.Equal(domain.PositionCompleted, status.Positions[0].Status)
	s.Equal(domain.PositionCurrent, status.Positions[1].Status)
	s.Equal(domain.PositionPending, status.Positions[2].Status)
	s.Equal(2, status.Order.CurrentPosition)

	paid := s.store.cycle(first.ID)
	s.Equal(domain.CycleCompleted, paid.Status)
	s.NotNil(paid.PayoutExecutedAt)

	second := s.activeCycle()
	s.Equal(2, second.CycleNumber)
	s.Equal(first.DueDate, second.StartDate)
	s.Equal(time.Date(2026, time.March, 28, 0, 0, 0, 0, time.UTC), second.DueDate)
	s.Require().NotNil(second.PayoutRecipientPositionID)
	s.Equal(overview.Positions[1].ID, *second.PayoutRecipientPositionID)
	s.True(second.CollectedAmount.IsZero())

	s.ledger.AssertNumberOfCalls(s.T(), "ProcessPayout", 1)
	s.ledger.AssertNumberOfCalls(s.T(), "ProcessContribution", 4)
}

func (s *EngineSuite) TestCompletionTriggersOnFifthDistinctMember() {
	s.addMembers(5)
	s.createRotation()
	cycle := s.activeCycle()

	for _, m := range s.members[:4] {
		s.contribute(m)
	}
	s.Empty(s.publisher.published())
	completed, err := s.cycles.CheckCompletion(s.ctx, cycle.ID)
	s.Require().NoError(err)
	s.False(completed)

	s.contribute(s.members[4])
	s.Len(s.publisher.published(), 1)
	s.Equal(domain.CycleCompleted, s.store.cycle(cycle.ID).Status)

	completed, err = s.cycles.CheckCompletion(s.ctx, cycle.ID)
	s.Require().NoError(err)
	s.True(completed)
	s.Len(s.publisher.published(), 1, "checking a completed cycle is a no-op")
}

func (s *EngineSuite) TestManualPayoutChamaDoesNotPublish() {
	s.setAutoPayout(false)
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()

	s.contributeAll()
	s.Equal(domain.CycleCompleted, s.store.cycle(cycle.ID).Status)
	s.Empty(s.publisher.published())
}

func (s *EngineSuite) TestCheckCompletionSurfacesPublishFailure() {
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()
	for _, m := range s.members {
		s.Require().NoError(s.store.SaveContributionInTx(s.ctx, nil, domain.Contribution{
			ID: uuid.NewString(), CycleID: cycle.ID, ChamaID: s.chama.ID, MemberID: m.ID,
			Amount: s.chama.ContributionAmount, Status: domain.ContributionCompleted,
		}))
	}
	s.publisher.err = errors.New("broker down")

	completed, err := s.cycles.CheckCompletion(s.ctx, cycle.ID)
	s.True(completed)
	s.ErrorIs(err, apperrors.ErrUpstream)
	s.Equal(domain.CycleCompleted, s.store.cycle(cycle.ID).Status)
}

func (s *EngineSuite) TestContributeRejections() {
	s.addMembers(2)

	_, err := s.cycles.Contribute(s.ctx, dto.ContributeRequest{ChamaID: s.chama.ID, MemberID: s.members[0].ID, Amount: decimal.NewFromInt(1000)})
	s.ErrorIs(err, apperrors.ErrNoActiveCycle)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	s.createRotation()
	s.contribute(s.members[0])
	_, err = s.cycles.Contribute(s.ctx, dto.ContributeRequest{ChamaID: s.chama.ID, MemberID: s.members[0].ID, Amount: decimal.NewFromInt(1000)})
	s.ErrorIs(err, apperrors.ErrAlreadyContributed)
	s.ErrorIs(err, apperrors.ErrConflict)

	outsider := domain.Member{ID: uuid.NewString(), ChamaID: uuid.NewString(), Status: domain.MemberActive}
	s.store.addMember(outsider)
	_, err = s.cycles.Contribute(s.ctx, dto.ContributeRequest{ChamaID: s.chama.ID, MemberID: outsider.ID, Amount: decimal.NewFromInt(1000)})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.cycles.Contribute(s.ctx, dto.ContributeRequest{ChamaID: s.chama.ID, MemberID: s.members[1].ID, Amount: decimal.Zero})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineSuite) TestContributeIsIdempotentByKey() {
	s.addMembers(3)
	s.createRotation()

	req := dto.ContributeRequest{
		ChamaID:        s.chama.ID,
		MemberID:       s.members[0].ID,
		Amount:         decimal.NewFromInt(1000),
		PaymentMethod:  "mpesa",
		IdempotencyKey: "client-key-1",
	}
	first, err := s.cycles.Contribute(s.ctx, req)
	s.Require().NoError(err)
	second, err := s.cycles.Contribute(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.ledger.AssertNumberOfCalls(s.T(), "ProcessContribution", 1)
	s.True(s.activeCycle().CollectedAmount.Equal(decimal.NewFromInt(1000)))
}

func (s *EngineSuite) TestExecutePayoutIsIdempotent() {
	s.addMembers(2)
	s.createRotation()
	s.expectPayoutSuccess(1)
	cycle := s.activeCycle()
	s.contributeAll()

	payout, err := s.runTrigger(s.publisher.published()[0])
	s.Require().NoError(err)
	s.Equal(domain.PayoutCompleted, payout.Status)

	_, err = s.payouts.ExecutePayout(s.ctx, payout.ID)
	s.ErrorIs(err, apperrors.ErrInvalidState)
	s.Equal(string(domain.PayoutCompleted), apperrors.FieldsOf(err)["state"])

	again, err := s.payouts.TriggerCyclePayout(s.ctx, cycle.ID)
	s.Require().NoError(err)
	s.Equal(payout.ID, again.ID)

	s.ledger.AssertNumberOfCalls(s.T(), "ProcessPayout", 1)
}

func (s *EngineSuite) TestSingleActiveRotation() {
	s.addMembers(3)
	s.createRotation()

	_, err := s.rotation.CreateRotation(s.ctx, dto.CreateRotationRequest{
		ChamaID:             s.chama.ID,
		Policy:              domain.PolicyRandom,
		CycleDurationMonths: 1,
		StartDate:           rotationStart,
	}, "admin")
	s.ErrorIs(err, apperrors.ErrRotationAlreadyActive)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Equal(s.chama.ID, apperrors.FieldsOf(err)["chama_id"])
	s.Len(s.store.cyclesOf(s.chama.ID), 1, "rejected create opens no cycle")
}

func (s *EngineSuite) TestCreateRotationWithoutMembers() {
	_, err := s.rotation.CreateRotation(s.ctx, dto.CreateRotationRequest{
		ChamaID:             s.chama.ID,
		Policy:              domain.PolicySequential,
		CycleDurationMonths: 1,
		StartDate:           rotationStart,
	}, "admin")
	s.ErrorIs(err, apperrors.ErrNoMembers)
}

func (s *EngineSuite) TestPayoutRetryCircuitBreaker() {
	s.setAutoPayout(false)
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()
	s.contributeAll()

	var references []string
	record := func(args mock.Arguments) {
		references = append(references, args.Get(1).(portssvc.LedgerPayout).ExternalReference)
	}
	s.ledger.On("ProcessPayout", mock.Anything, mock.Anything).Return(nil, errors.New("ledger unavailable")).Run(record).Times(3)
	s.ledger.On("ProcessPayout", mock.Anything, mock.Anything).Return(&portssvc.LedgerResult{TransactionID: "tx-manual"}, nil).Run(record).Once()

	_, err := s.payouts.TriggerCyclePayout(s.ctx, cycle.ID)
	s.ErrorIs(err, apperrors.ErrUpstream)
	s.NotErrorIs(err, apperrors.ErrMaxRetriesExceeded)

	page, err := s.payouts.GetPayoutHistory(s.ctx, domain.PayoutFilter{CycleID: &cycle.ID}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Payouts, 1)
	payoutID := page.Payouts[0].ID
	s.Equal(domain.PayoutFailed, page.Payouts[0].Status)
	s.Equal(1, page.Payouts[0].RetryCount)
	s.Require().NotNil(page.Payouts[0].FailedReason)
	s.Contains(*page.Payouts[0].FailedReason, "ledger unavailable")

	_, err = s.payouts.RetryFailedPayout(s.ctx, payoutID, false)
	s.ErrorIs(err, apperrors.ErrUpstream)
	s.NotErrorIs(err, apperrors.ErrMaxRetriesExceeded)

	_, err = s.payouts.RetryFailedPayout(s.ctx, payoutID, false)
	s.ErrorIs(err, apperrors.ErrMaxRetriesExceeded, "third failure trips the breaker")
	s.Equal(3, s.store.payout(payoutID).RetryCount)

	_, err = s.payouts.RetryFailedPayout(s.ctx, payoutID, false)
	s.ErrorIs(err, apperrors.ErrMaxRetriesExceeded)
	s.ledger.AssertNumberOfCalls(s.T(), "ProcessPayout", 3)

	claimed, err := s.payouts.ClaimRetryablePayouts(s.ctx, s.clock().Add(7*time.Hour), 200)
	s.Require().NoError(err)
	s.Empty(claimed, "exhausted payouts wait for manual review")

	payout, err := s.payouts.RetryFailedPayout(s.ctx, payoutID, true)
	s.Require().NoError(err)
	s.Equal(domain.PayoutCompleted, payout.Status)
	s.ledger.AssertNumberOfCalls(s.T(), "ProcessPayout", 4)

	seen := map[string]bool{}
	for _, ref := range references {
		seen[ref] = true
	}
	s.Len(seen, 4, "each recorded attempt gets its own external reference")
}

func (s *EngineSuite) TestClaimRetryablePayoutsRespectsCooldown() {
	s.setAutoPayout(false)
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()
	s.contributeAll()
	s.ledger.On("ProcessPayout", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()

	_, err := s.payouts.TriggerCyclePayout(s.ctx, cycle.ID)
	s.Require().Error(err)

	now := s.clock()
	claimed, err := s.payouts.ClaimRetryablePayouts(s.ctx, now.Add(5*time.Hour), 200)
	s.Require().NoError(err)
	s.Empty(claimed)

	claimed, err = s.payouts.ClaimRetryablePayouts(s.ctx, now.Add(6*time.Hour), 200)
	s.Require().NoError(err)
	s.Len(claimed, 1)
}

// flakyAdvancer fails the first n advances.
type flakyAdvancer struct {
	inner portssvc.RotationAdvancer
	n     int
}

func (f *flakyAdvancer) AdvanceRotationInTx(ctx context.Context, tx pgx.Tx, positionID string, paidCycle domain.ContributionCycle, now time.Time) (*domain.ContributionCycle, error) {
	if f.n > 0 {
		f.n--
		return nil, errors.New("rotation row locked")
	}
	return f.inner.AdvanceRotationInTx(ctx, tx, positionID, paidCycle, now)
}

func (s *EngineSuite) TestInterruptedSettlementResumesWithSameReference() {
	s.setAutoPayout(false)
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()
	s.contributeAll()
	s.payouts = s.newPayoutService(&flakyAdvancer{inner: s.rotation, n: 1})

	var references []string
	s.ledger.On("ProcessPayout", mock.Anything, mock.Anything).Return(&portssvc.LedgerResult{TransactionID: "tx-1"}, nil).
		Run(func(args mock.Arguments) {
			references = append(references, args.Get(1).(portssvc.LedgerPayout).ExternalReference)
		})

	_, err := s.payouts.TriggerCyclePayout(s.ctx, cycle.ID)
	s.Require().Error(err)

	page, err := s.payouts.GetPayoutHistory(s.ctx, domain.PayoutFilter{CycleID: &cycle.ID}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Payouts, 1)
	stuck := page.Payouts[0]
	s.Equal(domain.PayoutProcessing, stuck.Status, "settlement rolled back, the started attempt stays")
	s.Nil(stuck.TransactionID)
	s.Nil(s.store.cycle(cycle.ID).PayoutExecutedAt)

	payout, err := s.payouts.ExecutePayout(s.ctx, stuck.ID)
	s.Require().NoError(err)
	s.Equal(domain.PayoutCompleted, payout.Status)
	s.Equal(0, payout.RetryCount)
	s.NotNil(s.store.cycle(cycle.ID).PayoutExecutedAt)

	s.Require().Len(references, 2)
	s.Equal(references[0], references[1])
}

func (s *EngineSuite) TestLedgerCallHoldsNoTransaction() {
	s.setAutoPayout(false)
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()
	s.contributeAll()

	var openDuringCall []int
	var statusDuringCall []domain.PayoutStatus
	observe := func(mock.Arguments) {
		openDuringCall = append(openDuringCall, s.store.openTxs())
		payouts, _, err := s.store.ListPayouts(s.ctx, domain.PayoutFilter{CycleID: &cycle.ID}, 10, 0)
		s.Require().NoError(err)
		s.Require().Len(payouts, 1)
		statusDuringCall = append(statusDuringCall, payouts[0].Status)
	}
	s.ledger.On("ProcessPayout", mock.Anything, mock.Anything).Return(nil, errors.New("ledger unavailable")).Run(observe).Once()
	s.ledger.On("ProcessPayout", mock.Anything, mock.Anything).Return(&portssvc.LedgerResult{TransactionID: "tx-2"}, nil).Run(observe).Once()

	_, err := s.payouts.TriggerCyclePayout(s.ctx, cycle.ID)
	s.ErrorIs(err, apperrors.ErrUpstream)
	page, err := s.payouts.GetPayoutHistory(s.ctx, domain.PayoutFilter{CycleID: &cycle.ID}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Payouts, 1)
	s.Equal(domain.PayoutFailed, page.Payouts[0].Status)

	payout, err := s.payouts.RetryFailedPayout(s.ctx, page.Payouts[0].ID, false)
	s.Require().NoError(err)
	s.Equal(domain.PayoutCompleted, payout.Status)

	s.Equal([]int{0, 0}, openDuringCall)
	s.Equal([]domain.PayoutStatus{domain.PayoutProcessing, domain.PayoutProcessing}, statusDuringCall,
		"processing is committed before the ledger is called")
	s.Zero(s.store.openTxs())
}

func (s *EngineSuite) TestStaleProcessingPayoutIsReclaimed() {
	s.setAutoPayout(false)
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()
	s.contributeAll()
	s.payouts = s.newPayoutService(&flakyAdvancer{inner: s.rotation, n: 1})
	s.expectPayoutSuccess(2)

	_, err := s.payouts.TriggerCyclePayout(s.ctx, cycle.ID)
	s.Require().Error(err)

	now := s.clock()
	claimed, err := s.payouts.ClaimDuePayouts(s.ctx, now, 10)
	s.Require().NoError(err)
	s.Empty(claimed, "a recent attempt may still be running")

	claimed, err = s.payouts.ClaimDuePayouts(s.ctx, now.Add(services.DefaultClaimLease+time.Minute), 10)
	s.Require().NoError(err)
	s.Require().Len(claimed, 1)
	s.Equal(domain.PayoutProcessing, claimed[0].Status)

	payout, err := s.payouts.ExecutePayout(s.ctx, claimed[0].ID)
	s.Require().NoError(err)
	s.Equal(domain.PayoutCompleted, payout.Status)
}

func (s *EngineSuite) TestSchedulePayoutRules() {
	s.setAutoPayout(false)
	s.addMembers(2)
	s.createRotation()
	cycle := s.activeCycle()

	req := dto.SchedulePayoutRequest{CycleID: cycle.ID, RecipientMemberID: s.members[1].ID, Amount: decimal.NewFromInt(2000)}
	_, err := s.payouts.SchedulePayout(s.ctx, req, "admin")
	s.ErrorIs(err, apperrors.ErrInvalidState, "cycle still collecting")

	s.contributeAll()

	inactive := domain.Member{ID: uuid.NewString(), ChamaID: s.chama.ID, Status: domain.MemberInactive}
	s.store.addMember(inactive)
	_, err = s.payouts.SchedulePayout(s.ctx, dto.SchedulePayoutRequest{CycleID: cycle.ID, RecipientMemberID: inactive.ID, Amount: decimal.NewFromInt(2000)}, "admin")
	s.ErrorIs(err, apperrors.ErrValidation)

	payout, err := s.payouts.SchedulePayout(s.ctx, req, "admin")
	s.Require().NoError(err)
	s.Equal(domain.PayoutPending, payout.Status)
	s.Require().NotNil(payout.RotationPositionID, "recipient's unpaid position is linked")

	_, err = s.payouts.SchedulePayout(s.ctx, req, "admin")
	s.ErrorIs(err, apperrors.ErrDuplicatePayout)

	cancelled, err := s.payouts.CancelPayout(s.ctx, payout.ID, "wrong recipient", "admin")
	s.Require().NoError(err)
	s.Equal(domain.PayoutCancelled, cancelled.Status)
	s.Equal("admin", cancelled.LastUpdatedBy)

	_, err = s.payouts.CancelPayout(s.ctx, payout.ID, "again", "admin")
	s.ErrorIs(err, apperrors.ErrAlreadyCancelled)

	req.RecipientMemberID = s.members[0].ID
	replacement, err := s.payouts.SchedulePayout(s.ctx, req, "admin")
	s.Require().NoError(err, "cancelled payouts do not block rescheduling")

	s.expectPayoutSuccess(1)
	_, err = s.payouts.ExecutePayout(s.ctx, replacement.ID)
	s.Require().NoError(err)
	_, err = s.payouts.CancelPayout(s.ctx, replacement.ID, "too late", "admin")
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineSuite) TestGetPayoutHistoryNormalisesPaging() {
	page, err := s.payouts.GetPayoutHistory(s.ctx, domain.PayoutFilter{ChamaID: &s.chama.ID}, 0, 0)
	s.Require().NoError(err)
	s.Equal(1, page.Page)
	s.Equal(20, page.Limit)
	s.Equal(0, page.Total)
	s.NotNil(page.Payouts)

	bogus := domain.PayoutStatus("lost")
	_, err = s.payouts.GetPayoutHistory(s.ctx, domain.PayoutFilter{Status: &bogus}, 1, 10)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineSuite) TestSkipPositionRules() {
	s.addMembers(4)
	overview := s.createRotation()
	positions := overview.Positions

	reason := "travelling"
	skipped, err := s.rotation.SkipPosition(s.ctx, positions[2].ID, &reason, "admin")
	s.Require().NoError(err)
	s.Equal(domain.PositionSkipped, skipped.Status)
	s.Equal(&reason, skipped.Note)

	_, err = s.rotation.SkipPosition(s.ctx, positions[2].ID, nil, "admin")
	s.ErrorIs(err, apperrors.ErrConflict)

	_, err = s.rotation.SkipPosition(s.ctx, positions[0].ID, nil, "admin")
	s.ErrorIs(err, apperrors.ErrInvalidState, "current position cannot be skipped")

	status, err := s.rotation.GetRotationStatus(s.ctx, s.chama.ID)
	s.Require().NoError(err)
	s.Equal(1, status.Order.CurrentPosition, "skipping never moves the current position")

	s.expectPayoutSuccess(1)
	s.contributeAll()
	_, err = s.runTrigger(s.publisher.published()[0])
	s.Require().NoError(err)

	_, err = s.rotation.SkipPosition(s.ctx, positions[0].ID, nil, "admin")
	s.ErrorIs(err, apperrors.ErrPositionCompleted)
}

func (s *EngineSuite) TestSkippedPositionBypassed() {
	s.addMembers(3)
	overview := s.createRotation()
	_, err := s.rotation.SkipPosition(s.ctx, overview.Positions[1].ID, nil, "admin")
	s.Require().NoError(err)
	s.expectPayoutSuccess(2)

	s.payCurrentCycle()
	next, err := s.rotation.GetNextRecipient(s.ctx, overview.Order.ID)
	s.Require().NoError(err)
	s.Equal(overview.Positions[2].ID, next.ID)
	s.Equal(overview.Positions[2].ID, *s.activeCycle().PayoutRecipientPositionID)

	s.payCurrentCycle()
	order, err := s.store.FindRotationByID(s.ctx, overview.Order.ID)
	s.Require().NoError(err)
	s.Equal(domain.RotationCompleted, order.Status)
	s.NotNil(order.CompletedAt)
	_, err = s.cycles.GetActiveCycle(s.ctx, s.chama.ID)
	s.ErrorIs(err, apperrors.ErrNoActiveCycle, "a finished rotation opens no further cycle")
	_, err = s.rotation.GetNextRecipient(s.ctx, overview.Order.ID)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *EngineSuite) TestSkippedPositionRevisited() {
	s.build(domain.SkippedRevisit)
	s.addMembers(3)
	overview := s.createRotation()
	_, err := s.rotation.SkipPosition(s.ctx, overview.Positions[1].ID, nil, "admin")
	s.Require().NoError(err)
	s.expectPayoutSuccess(3)

	s.payCurrentCycle()
	s.payCurrentCycle()
	next, err := s.rotation.GetNextRecipient(s.ctx, overview.Order.ID)
	s.Require().NoError(err)
	s.Equal(overview.Positions[1].ID, next.ID, "skipped slot gets its turn last")

	s.payCurrentCycle()
	order, err := s.store.FindRotationByID(s.ctx, overview.Order.ID)
	s.Require().NoError(err)
	s.Equal(domain.RotationCompleted, order.Status)
	s.Len(s.store.cyclesOf(s.chama.ID), 3)
}

func (s *EngineSuite) TestSwapPositions() {
	s.addMembers(3)
	overview := s.createRotation()
	a, b := overview.Positions[0], overview.Positions[2]

	_, err := s.rotation.SwapPositions(s.ctx, a.ID, a.ID, nil, "admin")
	s.ErrorIs(err, apperrors.ErrValidation)

	swapped, err := s.rotation.SwapPositions(s.ctx, a.ID, b.ID, nil, "admin")
	s.Require().NoError(err)
	s.Require().Len(swapped, 2)
	s.Equal(b.MemberID, swapped[0].MemberID)
	s.Equal(domain.PositionCurrent, swapped[0].Status, "status stays with the slot")
	s.Equal(a.MemberID, swapped[1].MemberID)
	s.Equal(domain.PositionPending, swapped[1].Status)

	s.ledger.On("ProcessPayout", mock.Anything, mock.MatchedBy(func(req portssvc.LedgerPayout) bool {
		return req.RecipientUserID == s.members[2].UserID
	})).Return(&portssvc.LedgerResult{TransactionID: "tx-swap"}, nil).Once()
	payout := s.payCurrentCycle()
	s.Equal(b.MemberID, payout.RecipientMemberID)

	_, err = s.rotation.SwapPositions(s.ctx, a.ID, overview.Positions[1].ID, nil, "admin")
	s.ErrorIs(err, apperrors.ErrPositionCompleted)
}

// payCurrentCycle collects every contribution of the open cycle and runs its payout trigger.
func (s *EngineSuite) payCurrentCycle() *domain.Payout {
	before := len(s.publisher.published())
	s.contributeAll()
	jobs := s.publisher.published()
	s.Require().Len(jobs, before+1)
	payout, err := s.runTrigger(jobs[before])
	s.Require().NoError(err)
	s.Require().Equal(domain.PayoutCompleted, payout.Status)
	return payout
}
