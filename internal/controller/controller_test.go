package controller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/broadcast"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/modem"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/observability"
)

// --- mocks ---

type mockSampler struct {
	readings []domain.Reading
	index    int
}

func (m *mockSampler) Sample(_ context.Context) (domain.Reading, error) {
	if len(m.readings) == 0 {
		return domain.Reading{}, errors.New("no readings scripted")
	}
	r := m.readings[m.index]
	if m.index < len(m.readings)-1 {
		m.index++
	}
	return r, nil
}

type mockModem struct {
	initErr error
	state   modem.State
	session modem.Session
}

func (m *mockModem) Initialize(_ context.Context) error {
	if m.initErr != nil {
		m.state = modem.StateFailed
		return m.initErr
	}
	m.state = modem.StateRegistered
	m.session = modem.Session{Ready: true, NetworkRegistered: true, SignalQuality: 18}
	return nil
}

func (m *mockModem) State() modem.State    { return m.state }
func (m *mockModem) Status() modem.Session { return m.session }

type mockSender struct {
	sent []string
	err  error
}

func (m *mockSender) SendSMS(_ context.Context, number, _ string) error {
	m.sent = append(m.sent, number)
	return m.err
}

type mockGateway struct {
	recipients   []broadcast.Recipient
	fetchErr     error
	command      *domain.AlertEvent
	telemetry    []domain.Telemetry
	results      []broadcast.Result
	telemetryErr error
}

func (g *mockGateway) FetchRecipients(_ context.Context) ([]broadcast.Recipient, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.recipients, nil
}

func (g *mockGateway) PollCommand(_ context.Context) (*domain.AlertEvent, error) {
	ev := g.command
	g.command = nil
	return ev, nil
}

func (g *mockGateway) PushTelemetry(_ context.Context, t domain.Telemetry) error {
	g.telemetry = append(g.telemetry, t)
	return g.telemetryErr
}

func (g *mockGateway) PushResult(_ context.Context, r broadcast.Result) error {
	g.results = append(g.results, r)
	return nil
}

// --- harness ---

type harness struct {
	ctrl    *Controller
	sampler *mockSampler
	sender  *mockSender
	gateway *mockGateway
	modem   *mockModem
	clock   *clockwork.FakeClock
}

func newHarness(t *testing.T, readings ...domain.Reading) *harness {
	t.Helper()
	fc := clockwork.NewFakeClock()
	logger := slog.Default()
	metrics := observability.NewMetricsForTesting()

	sampler := &mockSampler{readings: readings}
	sender := &mockSender{}
	gw := &mockGateway{recipients: []broadcast.Recipient{"+111", "+222"}}
	mdm := &mockModem{}

	directory := broadcast.NewDirectory(10, "+000")
	sequencer := broadcast.NewSequencer(sender, 0, logger, metrics, fc)
	escalator := domain.NewEscalator(5*time.Minute, "TEST", fc)

	ctrl := New(sampler, escalator, sequencer, directory, mdm, gw, nil, Intervals{
		Sample:           2 * time.Second,
		Telemetry:        30 * time.Second,
		CommandPoll:      10 * time.Second,
		RecipientRefresh: 5 * time.Minute,
	}, logger, metrics, fc)

	return &harness{ctrl: ctrl, sampler: sampler, sender: sender, gateway: gw, modem: mdm, clock: fc}
}

// start mirrors Run's setup without entering the ticker loop, so tests can
// drive cycles directly.
func (h *harness) start(ctx context.Context) {
	_ = h.modem.Initialize(ctx)
	h.ctrl.refreshRecipients(ctx)
	h.ctrl.lastRefresh = h.clock.Now()
}

// --- tests ---

func TestController_RisingTierBroadcastsAndReports(t *testing.T) {
	h := newHarness(t, domain.Reading{false, false, false}, domain.Reading{true, false, false})
	ctx := context.Background()
	h.start(ctx)

	h.ctrl.runCycle(ctx) // dry: nothing fires
	assert.Empty(t, h.sender.sent)

	h.clock.Advance(2 * time.Second)
	h.ctrl.runCycle(ctx) // advisory crossing

	assert.Equal(t, []string{"+111", "+222"}, h.sender.sent)
	require.Len(t, h.gateway.results, 1)
	assert.Equal(t, domain.CategoryAdvisory, h.gateway.results[0].Category)
	assert.Equal(t, 2, h.gateway.results[0].Succeeded)
	assert.Equal(t, 0, h.gateway.results[0].Failed)
}

func TestController_SendFailuresCountedNotFatal(t *testing.T) {
	h := newHarness(t, domain.Reading{true, true, false})
	ctx := context.Background()
	h.start(ctx)
	h.sender.err = errors.New("modem not ready")

	h.ctrl.runCycle(ctx)

	require.Len(t, h.gateway.results, 1)
	assert.Equal(t, 0, h.gateway.results[0].Succeeded)
	assert.Equal(t, 2, h.gateway.results[0].Failed)
	assert.NoError(t, h.ctrl.CheckReadiness(ctx), "a failed broadcast still completes the cycle")
}

func TestController_SustainedTierBroadcastsOnce(t *testing.T) {
	h := newHarness(t, domain.Reading{true, true, false})
	ctx := context.Background()
	h.start(ctx)

	for i := 0; i < 5; i++ {
		h.ctrl.runCycle(ctx)
		h.clock.Advance(2 * time.Second)
	}

	// Two recipients, exactly one broadcast despite five watch cycles.
	assert.Equal(t, []string{"+111", "+222"}, h.sender.sent)
}

func TestController_CommandedBroadcastBypassesFusion(t *testing.T) {
	// Sensors stay dry the whole time.
	h := newHarness(t, domain.Reading{false, false, false})
	ctx := context.Background()
	h.start(ctx)
	h.gateway.command = &domain.AlertEvent{
		Tier:     domain.TierFlashFlood,
		Category: domain.CategoryFlashFlood,
		Message:  "drill",
	}

	h.ctrl.runCycle(ctx)

	assert.Equal(t, []string{"+111", "+222"}, h.sender.sent)
	require.Len(t, h.gateway.results, 1)
	assert.Equal(t, domain.CategoryFlashFlood, h.gateway.results[0].Category)

	// The escalation state machine was not touched: a real flash flood
	// crossing afterwards still fires on its own.
	h.clock.Advance(10 * time.Minute)
	h.sampler.readings = []domain.Reading{{true, true, true}}
	h.sampler.index = 0
	h.ctrl.runCycle(ctx)
	require.Len(t, h.gateway.results, 2)
}

func TestController_TelemetryIncludesModemStatus(t *testing.T) {
	h := newHarness(t, domain.Reading{true, false, false})
	ctx := context.Background()
	h.start(ctx)

	h.ctrl.runCycle(ctx) // first cycle always pushes telemetry

	require.NotEmpty(t, h.gateway.telemetry)
	tel := h.gateway.telemetry[0]
	assert.Equal(t, domain.TierAdvisory, tel.Tier)
	assert.True(t, tel.ModemReady)
	assert.True(t, tel.NetworkRegistered)
	assert.Equal(t, 18, tel.SignalQuality)
}

func TestController_TelemetryFailureDoesNotBlockLoop(t *testing.T) {
	h := newHarness(t, domain.Reading{false, false, false})
	ctx := context.Background()
	h.start(ctx)
	h.gateway.telemetryErr = errors.New("server down")

	h.ctrl.runCycle(ctx)
	assert.NoError(t, h.ctrl.CheckReadiness(ctx))
}

func TestController_FetchFailureKeepsCurrentList(t *testing.T) {
	h := newHarness(t, domain.Reading{false, true, false})
	ctx := context.Background()
	h.start(ctx)

	// Refresh now fails; the previously fetched list must survive.
	h.gateway.fetchErr = errors.New("server down")
	h.ctrl.refreshRecipients(ctx)

	h.ctrl.runCycle(ctx)
	assert.Equal(t, []string{"+111", "+222"}, h.sender.sent)
}

func TestController_ReadinessRequiresOneCycle(t *testing.T) {
	h := newHarness(t, domain.Reading{false, false, false})
	ctx := context.Background()

	require.Error(t, h.ctrl.CheckReadiness(ctx))
	h.start(ctx)
	h.ctrl.runCycle(ctx)
	require.NoError(t, h.ctrl.CheckReadiness(ctx))
}

func TestController_SampleErrorSkipsCycle(t *testing.T) {
	h := newHarness(t) // no scripted readings: Sample errors
	ctx := context.Background()
	h.start(ctx)

	h.ctrl.runCycle(ctx)

	assert.Error(t, h.ctrl.CheckReadiness(ctx), "a failed sample must not mark the loop ready")
	assert.Empty(t, h.sender.sent)
}
