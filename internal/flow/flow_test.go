package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostoMif/UnTT-v1.0/internal/clock"
	"github.com/prostoMif/UnTT-v1.0/internal/entitlement"
	"github.com/prostoMif/UnTT-v1.0/internal/payment"
	"github.com/prostoMif/UnTT-v1.0/internal/session"
	"github.com/prostoMif/UnTT-v1.0/internal/stats"
	"github.com/prostoMif/UnTT-v1.0/internal/storage"
	"github.com/prostoMif/UnTT-v1.0/internal/timers"
	"github.com/prostoMif/UnTT-v1.0/internal/users"
)

var msk = time.FixedZone("MSK", 3*60*60)

type fakeGateway struct {
	charge    *payment.Charge
	createErr error
	status    payment.Status
	queryErr  error
	queried   []string
}

func (g *fakeGateway) CreateCharge(_ context.Context, _ int64, _, _ string) (*payment.Charge, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.charge, nil
}

func (g *fakeGateway) QueryCharge(_ context.Context, id string) (payment.Status, error) {
	g.queried = append(g.queried, id)
	if g.queryErr != nil {
		return payment.StatusOther, g.queryErr
	}
	return g.status, nil
}

type captureNotifier struct {
	mu      sync.Mutex
	replies []Reply
}

func (n *captureNotifier) Notify(_ int64, r Reply) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, r)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.replies)
}

type fixture struct {
	svc      *Service
	clk      *clock.Fixed
	store    *storage.MemoryStore
	repo     *users.Repo
	sessions session.Manager
	timers   *timers.Manager
	stats    *stats.Recorder
	gateway  *fakeGateway
	notifier *captureNotifier
}

func newFixture(t *testing.T, freeDays int, sosGated bool) *fixture {
	t.Helper()
	clk := clock.NewFixed(time.Date(2024, 3, 10, 12, 0, 0, 0, msk))
	store := storage.NewMemory()
	repo := users.NewRepo(store)
	sessions := session.NewMemoryManager()
	tm := timers.NewManager()
	recorder := stats.NewRecorder(store, clk, 7)
	gateway := &fakeGateway{
		charge: &payment.Charge{ID: "pay-1", ConfirmationURL: "https://pay.example/confirm"},
		status: payment.StatusPending,
	}
	notifier := &captureNotifier{}

	svc := New(Config{
		SosRequiresPremium: sosGated,
		PaymentAmountRub:   "149.00",
		PaymentReturnURL:   "https://t.me/bot",
		PaymentMonths:      1,
	}, clk, repo, entitlement.NewEngine(freeDays), sessions, tm, recorder, gateway, notifier)

	return &fixture{
		svc: svc, clk: clk, store: store, repo: repo,
		sessions: sessions, timers: tm, stats: recorder,
		gateway: gateway, notifier: notifier,
	}
}

func (f *fixture) startUser(t *testing.T, id int64) {
	t.Helper()
	reply := f.svc.Start(context.Background(), id, "user", "User")
	require.Equal(t, MenuMain, reply.Menu)
}

func TestStartRegistersOnce(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()

	f.svc.Start(ctx, 1, "alice", "Alice")
	rec, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	first := rec.RegisteredAt

	f.clk.Advance(48 * time.Hour)
	f.svc.Start(ctx, 1, "alice", "Alice")
	rec, err = f.repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, rec.RegisteredAt.Equal(first), "registration date must be immutable")
}

func TestQuickPauseHappyPath(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	reply := f.svc.BeginPause(ctx, 1)
	assert.Equal(t, MenuReasons, reply.Menu)

	reply = f.svc.ChooseReason(ctx, 1, "скука")
	assert.Equal(t, MenuDurations, reply.Menu)

	reply = f.svc.ChooseDuration(ctx, 1, "15 минут")
	assert.Equal(t, MenuPause, reply.Menu)
	assert.True(t, f.timers.Pending(1), "timer must be armed")

	sess := f.sessions.Get(ctx, 1)
	assert.Equal(t, session.StepAwaitingConfirmation, sess.Step)
	assert.Equal(t, 15, sess.PlannedMinutes)
	assert.Equal(t, "скука", sess.Reason)

	f.clk.Advance(10 * time.Minute)
	reply = f.svc.Finished(ctx, 1)
	assert.Contains(t, reply.Text, "Вышел на 5 мин раньше")
	assert.False(t, f.timers.Pending(1), "finish must cancel the timer")
	assert.True(t, f.sessions.Get(ctx, 1).Idle())

	counts, err := f.stats.Aggregate(ctx, 1, stats.PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[stats.EventConsciousStop])
	assert.Equal(t, 1, counts[stats.EventAttempt])
}

func TestInvalidDurationRepromptsWithoutTransition(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "привычка")

	reply := f.svc.ChooseDuration(ctx, 1, "немного")
	assert.Equal(t, MenuDurations, reply.Menu)
	assert.Equal(t, session.StepAwaitingDuration, f.sessions.Get(ctx, 1).Step)
	assert.False(t, f.timers.Pending(1))

	// A valid retry still works.
	reply = f.svc.ChooseDuration(ctx, 1, "30")
	assert.Equal(t, MenuPause, reply.Menu)
}

func TestFinishedShowsTreeProgress(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "15")

	reply := f.svc.Finished(ctx, 1)
	assert.Contains(t, reply.Text, "🌰 Семечко")
	assert.Contains(t, reply.Text, "До стадии «Росток»: 2 дн.")
}

func TestFinishedTwiceRecordsOnce(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "5")

	f.clk.Advance(3 * time.Minute)
	first := f.svc.Finished(ctx, 1)
	second := f.svc.Finished(ctx, 1)

	assert.Contains(t, first.Text, "раньше")
	assert.Equal(t, MenuMain, second.Menu)

	counts, err := f.stats.Aggregate(ctx, 1, stats.PeriodTotal)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[stats.EventConsciousStop], "double tap must not double-count")
}

func TestSavingsPhrasing(t *testing.T) {
	f := newFixture(t, 3, true)

	assert.Contains(t, f.svc.savingsText(15, 10), "Вышел на 5 мин раньше")
	assert.Contains(t, f.svc.savingsText(15, 20), "Задержался на 5 мин")
	assert.Equal(t, textExactPlan, f.svc.savingsText(15, 15))
	assert.Equal(t, textDone, f.svc.savingsText(0, 10))
}

func TestStayingCountsSlip(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "5")

	// The timer fires, prompting for the outcome without clearing
	// the session.
	f.svc.timerFired(1)
	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, session.StepAwaitingConfirmation, f.sessions.Get(ctx, 1).Step)

	reply := f.svc.Staying(ctx, 1)
	assert.Equal(t, MenuMain, reply.Menu)
	assert.True(t, f.sessions.Get(ctx, 1).Idle())

	slips, err := f.stats.SlipsToday(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, slips)

	counts, err := f.stats.Aggregate(ctx, 1, stats.PeriodTotal)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[stats.EventConsciousStop])
	assert.Equal(t, 1, counts[stats.EventSlip])
}

func TestTimerFireAfterAnswerStaysQuiet(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "5")

	f.svc.Finished(ctx, 1)
	f.svc.timerFired(1)
	assert.Equal(t, 0, f.notifier.count(), "late fire must not prompt after the user answered")
}

func TestNewFlowStartReplacesOldDialog(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "60")
	require.True(t, f.timers.Pending(1))

	f.svc.BeginPause(ctx, 1)
	assert.False(t, f.timers.Pending(1), "new flow must cancel the old timer")
	assert.Equal(t, session.StepAwaitingReason, f.sessions.Get(ctx, 1).Step)
}

func TestCancelAlwaysRecovers(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "60")

	reply := f.svc.Cancel(ctx, 1)
	assert.Equal(t, MenuMain, reply.Menu)
	assert.True(t, f.sessions.Get(ctx, 1).Idle())
	assert.False(t, f.timers.Pending(1))

	// Cancel from idle is a harmless no-op.
	reply = f.svc.Cancel(ctx, 1)
	assert.Equal(t, MenuMain, reply.Menu)
}

func TestStepMismatchForcesRecovery(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	// A reason press with no flow in progress is a defect signal:
	// reset and fall back to the menu.
	reply := f.svc.ChooseReason(ctx, 1, "скука")
	assert.Equal(t, MenuMain, reply.Menu)
	assert.True(t, f.sessions.Get(ctx, 1).Idle())
}

func TestSosGatingParametrized(t *testing.T) {
	for _, freeDays := range []int{3, 5} {
		f := newFixture(t, freeDays, true)
		ctx := context.Background()
		f.startUser(t, 1)

		// Day 2: trial still open, SOS proceeds.
		f.clk.Advance(48 * time.Hour)
		reply := f.svc.Sos(ctx, 1)
		assert.Equal(t, MenuSosPriorities, reply.Menu, "free_days=%d", freeDays)
		f.svc.Cancel(ctx, 1)

		// Past the window: paywall, no state transition.
		f.clk.Advance(time.Duration(freeDays) * 24 * time.Hour)
		reply = f.svc.Sos(ctx, 1)
		assert.Equal(t, MenuPaywall, reply.Menu, "free_days=%d", freeDays)
		assert.True(t, f.sessions.Get(ctx, 1).Idle(), "free_days=%d", freeDays)
	}
}

func TestSosUngatedWhenConfigured(t *testing.T) {
	f := newFixture(t, 3, false)
	ctx := context.Background()
	f.startUser(t, 1)

	f.clk.Advance(30 * 24 * time.Hour)
	reply := f.svc.Sos(ctx, 1)
	assert.Equal(t, MenuSosPriorities, reply.Menu, "ungated SOS must work for locked users")
}

func TestSosProfileLoadFailureAsksToRetry(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	// A broken store is not an entitlement denial: no paywall.
	f.store.FailNext = assert.AnError
	reply := f.svc.Sos(ctx, 1)
	assert.Equal(t, textRetryLater, reply.Text)
	assert.Equal(t, MenuMain, reply.Menu)
	assert.True(t, f.sessions.Get(ctx, 1).Idle())

	reply = f.svc.Sos(ctx, 1)
	assert.Equal(t, MenuSosPriorities, reply.Menu, "SOS must work once the store recovers")
}

func TestSosCloseRecordsConsciousStop(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	f.svc.Sos(ctx, 1)
	reply := f.svc.SosPriority(ctx, 1, "Сон")
	assert.Contains(t, reply.Text, "Сон важнее")

	reply = f.svc.SosClose(ctx, 1)
	assert.Equal(t, MenuMain, reply.Menu)
	assert.True(t, f.sessions.Get(ctx, 1).Idle())

	counts, err := f.stats.Aggregate(ctx, 1, stats.PeriodTotal)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[stats.EventSosUsed])
	assert.Equal(t, 1, counts[stats.EventConsciousStop])
}

func TestSosOpenCountsSlip(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	f.svc.Sos(ctx, 1)
	f.svc.SosPriority(ctx, 1, "Сон")
	reply := f.svc.SosOpen(ctx, 1)
	assert.Equal(t, MenuMain, reply.Menu)

	slips, err := f.stats.SlipsToday(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, slips)
}

func TestUpsellShownOnce(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.clk.Advance(10 * 24 * time.Hour)

	first := f.svc.Sos(ctx, 1)
	assert.Contains(t, first.Text, "Premium")

	second := f.svc.Sos(ctx, 1)
	assert.Equal(t, textPaywallLimited, second.Text, "full upsell must render at most once")
}

func TestTrialOnboardingOnFirstConsciousStop(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "5")
	f.clk.Advance(2 * time.Minute)
	first := f.svc.Finished(ctx, 1)
	assert.Contains(t, first.Text, "первый осознанный стоп")

	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "5")
	f.clk.Advance(2 * time.Minute)
	second := f.svc.Finished(ctx, 1)
	assert.NotContains(t, second.Text, "первый осознанный стоп")
}

func TestSubscribeAndCheckPayment(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	reply := f.svc.Subscribe(ctx, 1)
	assert.Equal(t, MenuPayment, reply.Menu)
	assert.Equal(t, "https://pay.example/confirm", reply.URL)

	// Pending leaves entitlement unchanged.
	reply = f.svc.CheckPayment(ctx, 1)
	assert.Equal(t, textPaymentPending, reply.Text)
	rec, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, rec.SubscriptionEnd)

	// Succeeded applies the extension rule and clears the charge.
	f.gateway.status = payment.StatusSucceeded
	reply = f.svc.CheckPayment(ctx, 1)
	assert.Contains(t, reply.Text, "Оплата прошла")

	rec, err = f.repo.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, rec.SubscriptionEnd)
	assert.True(t, rec.SubscriptionEnd.Equal(f.clk.Now().AddDate(0, 0, 30)))
	assert.Empty(t, rec.PendingChargeID)
}

func TestCheckPaymentCanceledClearsCharge(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.Subscribe(ctx, 1)

	f.gateway.status = payment.StatusCanceled
	reply := f.svc.CheckPayment(ctx, 1)
	assert.Equal(t, textPaymentCanceled, reply.Text)

	rec, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, rec.SubscriptionEnd)
	assert.Empty(t, rec.PendingChargeID)
}

func TestCheckPaymentWithoutCharge(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	reply := f.svc.CheckPayment(ctx, 1)
	assert.Equal(t, textPaymentNoCharge, reply.Text)
}

func TestStatsViewFreeVsPremium(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	free := f.svc.StatsView(ctx, 1)
	assert.Contains(t, free.Text, "Сегодня")
	assert.NotContains(t, free.Text, "За 7 дней")

	f.gateway.status = payment.StatusSucceeded
	f.svc.Subscribe(ctx, 1)
	f.svc.CheckPayment(ctx, 1)

	premium := f.svc.StatsView(ctx, 1)
	assert.Contains(t, premium.Text, "За 7 дней")
	assert.Contains(t, premium.Text, "Серия")
}

func TestRecordFailureDegradesSoftly(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.svc.BeginPause(ctx, 1)
	f.svc.ChooseReason(ctx, 1, "скука")
	f.svc.ChooseDuration(ctx, 1, "5")

	f.store.FailNext = assert.AnError
	reply := f.svc.Finished(ctx, 1)
	assert.Equal(t, textRetryLater, reply.Text)
	assert.True(t, f.sessions.Get(ctx, 1).Idle(), "session must not be left corrupted")
}

func TestAdminGrantRevokeReport(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)
	f.startUser(t, 2)

	reply := f.svc.Grant(ctx, 1, 1)
	assert.Contains(t, reply.Text, "активна до")
	rec, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, rec.SubscriptionEnd)

	reply = f.svc.Report(ctx)
	assert.Contains(t, reply.Text, "Пользователей: 2")
	assert.Contains(t, reply.Text, "С подпиской: 1")

	reply = f.svc.Revoke(ctx, 1)
	assert.Contains(t, reply.Text, "отключена")
	rec, err = f.repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, rec.SubscriptionEnd)

	reply = f.svc.Grant(ctx, 99, 1)
	assert.Contains(t, reply.Text, "не найден")
}

func TestGrantUntil(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()
	f.startUser(t, 1)

	until := f.clk.Now().AddDate(0, 6, 0)
	reply := f.svc.GrantUntil(ctx, 1, until)
	assert.Contains(t, reply.Text, "активна до")

	rec, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, rec.SubscriptionEnd)
	assert.True(t, rec.SubscriptionEnd.Equal(until))
}
