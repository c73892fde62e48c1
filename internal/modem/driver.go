// Package modem drives the AT-command session against a GSM modem on a
// half-duplex serial line: bring-up through network registration, and the
// multi-step SMS submit sub-protocol. All waits are bounded polls against an
// injected clock; nothing here blocks indefinitely.
package modem

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the modem session lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingBasicAck
	StateAwaitingSIMReady
	StateCheckingSignal
	StateRegisteringNetwork
	StateRegistered
	StateSendInProgress
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingBasicAck:
		return "awaiting-basic-ack"
	case StateAwaitingSIMReady:
		return "awaiting-sim-ready"
	case StateCheckingSignal:
		return "checking-signal"
	case StateRegisteringNetwork:
		return "registering-network"
	case StateRegistered:
		return "registered"
	case StateSendInProgress:
		return "send-in-progress"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the queryable modem status snapshot.
type Session struct {
	Ready             bool
	NetworkRegistered bool
	SignalQuality     int // raw CSQ value; 99 means no signal
}

// Timings bounds every wait in the session protocol.
type Timings struct {
	CommandTimeout      time.Duration // single AT exchange (liveness is the slowest: modem may still be powering up)
	SIMReadyTimeout     time.Duration
	RegistrationTimeout time.Duration // overall cap on the registration poll loop
	RegistrationPoll    time.Duration // interval between CREG queries
	PromptTimeout       time.Duration // wait for the ">" send prompt
	SendSettle          time.Duration // fixed window for the network to confirm an SMS submit
}

// DefaultTimings are tuned for SIM800-class modules on 2G networks.
func DefaultTimings() Timings {
	return Timings{
		CommandTimeout:      20 * time.Second,
		SIMReadyTimeout:     10 * time.Second,
		RegistrationTimeout: 2 * time.Minute,
		RegistrationPoll:    3 * time.Second,
		PromptTimeout:       10 * time.Second,
		SendSettle:          30 * time.Second,
	}
}

// AT wire literals. Exact strings; the tests script against them.
const (
	cmdLiveness     = "AT"
	cmdSIMStatus    = "AT+CPIN?"
	cmdSignalQuery  = "AT+CSQ"
	cmdAutoOperator = "AT+COPS=0"
	cmdRegQuery     = "AT+CREG?"
	cmdTextMode     = "AT+CMGF=1"
	cmdSendPrefix   = `AT+CMGS="`

	respOK          = "OK"
	respError       = "ERROR"
	respSIMReady    = "READY"
	respPrompt      = ">"
	respSendConfirm = "+CMGS"

	smsTerminator = 0x1A // Ctrl+Z submits the message body
	smsAbort      = 0x1B // ESC cancels a pending prompt

	signalNone = 99

	pollInterval = 50 * time.Millisecond
)

// Driver owns the serial channel and the session state machine. It is not
// safe for concurrent use; the single control loop is its only caller.
type Driver struct {
	port    Port
	clock   clockwork.Clock
	logger  *slog.Logger
	timings Timings

	state   State
	session Session
}

// NewDriver wraps an open port. The driver starts Uninitialized; call
// Initialize before sending.
func NewDriver(port Port, timings Timings, logger *slog.Logger, clock clockwork.Clock) *Driver {
	return &Driver{
		port:    port,
		clock:   clock,
		logger:  logger,
		timings: timings,
	}
}

// State returns the current lifecycle position.
func (d *Driver) State() State { return d.state }

// Status returns the session snapshot for telemetry.
func (d *Driver) Status() Session { return d.session }

// Initialize walks the bring-up chain: liveness ack, SIM ready, signal
// diagnostic, automatic operator selection, registration polling, text mode.
// Any failure parks the driver in StateFailed, which is terminal until
// Restart; Initialize refuses to run from there.
func (d *Driver) Initialize(ctx context.Context) error {
	if d.state == StateFailed {
		return fmt.Errorf("modem in failed state; explicit restart required")
	}
	d.session = Session{}

	d.state = StateAwaitingBasicAck
	if o := d.exchange(ctx, cmdLiveness, respOK, d.timings.CommandTimeout); !o.OK() {
		return d.fail("modem liveness check", o)
	}

	d.state = StateAwaitingSIMReady
	if o := d.exchange(ctx, cmdSIMStatus, respSIMReady, d.timings.SIMReadyTimeout); !o.OK() {
		return d.fail("sim status query", o)
	}

	// Signal quality is diagnostic only; it never gates bring-up.
	d.state = StateCheckingSignal
	d.checkSignal(ctx)

	d.state = StateRegisteringNetwork
	if o := d.exchange(ctx, cmdAutoOperator, respOK, d.timings.CommandTimeout); !o.OK() {
		return d.fail("automatic operator selection", o)
	}
	if err := d.awaitRegistration(ctx); err != nil {
		d.state = StateFailed
		return err
	}
	if o := d.exchange(ctx, cmdTextMode, respOK, d.timings.CommandTimeout); !o.OK() {
		return d.fail("set text mode", o)
	}

	d.state = StateRegistered
	d.session.Ready = true
	d.session.NetworkRegistered = true
	d.logger.Info("modem registered", "signal_quality", d.session.SignalQuality)
	return nil
}

// Restart is the only path out of StateFailed: reset the session, rerun the
// full bring-up chain. Nothing calls it automatically.
func (d *Driver) Restart(ctx context.Context) error {
	d.logger.Info("modem restart requested", "previous_state", d.state.String())
	d.state = StateUninitialized
	d.session = Session{}
	return d.Initialize(ctx)
}

// SendSMS runs the submit sub-protocol for one recipient. Only reachable
// when Registered; any failure is local to this message and leaves the
// driver Registered for the next recipient.
func (d *Driver) SendSMS(ctx context.Context, number, text string) error {
	if d.state != StateRegistered {
		return fmt.Errorf("modem not ready to send (state %s)", d.state)
	}
	d.state = StateSendInProgress
	defer func() { d.state = StateRegistered }()

	// Re-asserted before every send: a modem-side reset between broadcasts
	// silently drops back to PDU mode.
	if o := d.exchange(ctx, cmdTextMode, respOK, d.timings.CommandTimeout); !o.OK() {
		return fmt.Errorf("set text mode: %s", o.Kind)
	}

	if o := d.exchange(ctx, cmdSendPrefix+number+`"`, respPrompt, d.timings.PromptTimeout); !o.OK() {
		// ESC cancels the pending prompt so the next attempt starts clean.
		d.port.Write([]byte{smsAbort}) //nolint:errcheck // best-effort abort
		return fmt.Errorf("waiting for send prompt: %s", o.Kind)
	}

	if _, err := d.port.Write([]byte(text)); err != nil {
		return fmt.Errorf("write sms payload: %w", err)
	}
	if _, err := d.port.Write([]byte{smsTerminator}); err != nil {
		return fmt.Errorf("submit sms: %w", err)
	}

	// Submission over GSM is slow and jittery. Read for the whole settle
	// window, then classify whatever accumulated.
	raw := d.collect(ctx, d.timings.SendSettle)
	switch {
	case strings.Contains(raw, respSendConfirm), strings.Contains(raw, respOK):
		return nil
	case strings.Contains(raw, respError):
		return fmt.Errorf("sms rejected: %s", strings.TrimSpace(raw))
	default:
		return fmt.Errorf("no send confirmation within %s", d.timings.SendSettle)
	}
}

func (d *Driver) fail(stage string, o Outcome) error {
	d.state = StateFailed
	quality := d.session.SignalQuality
	d.session = Session{SignalQuality: quality}
	d.logger.Error("modem bring-up failed", "stage", stage, "outcome", o.Kind.String(), "raw", strings.TrimSpace(o.Raw))
	return fmt.Errorf("%s: %s", stage, o.Kind)
}

func (d *Driver) checkSignal(ctx context.Context) {
	o := d.exchange(ctx, cmdSignalQuery, respOK, d.timings.CommandTimeout)
	if !o.OK() {
		d.logger.Warn("signal quality query failed", "outcome", o.Kind.String())
		return
	}
	q, err := parseSignalQuality(o.Raw)
	if err != nil {
		d.logger.Warn("unparseable signal quality response", "raw", strings.TrimSpace(o.Raw))
		return
	}
	d.session.SignalQuality = q
	if q == signalNone {
		d.logger.Warn("no signal detected", "csq", q)
		return
	}
	d.logger.Info("signal quality", "csq", q)
}

// awaitRegistration polls CREG until the modem reports home or roaming
// registration, or the overall registration timeout elapses.
func (d *Driver) awaitRegistration(ctx context.Context) error {
	deadline := d.clock.Now().Add(d.timings.RegistrationTimeout)
	for {
		o := d.exchange(ctx, cmdRegQuery, respOK, d.timings.CommandTimeout)
		if o.OK() && registrationAccepted(o.Raw) {
			return nil
		}
		if !d.clock.Now().Before(deadline) {
			return fmt.Errorf("network registration timed out after %s", d.timings.RegistrationTimeout)
		}
		if !d.sleep(ctx, d.timings.RegistrationPoll) {
			return fmt.Errorf("network registration interrupted: %w", ctx.Err())
		}
	}
}

// exchange is the generic command/response primitive: clear stale input,
// transmit, accumulate until the expected marker appears or the timeout
// elapses. It never returns an error; the outcome kind carries the verdict.
func (d *Driver) exchange(ctx context.Context, cmd, expect string, timeout time.Duration) Outcome {
	if err := d.port.ResetInputBuffer(); err != nil {
		d.logger.Debug("reset input buffer failed", "error", err)
	}
	if _, err := d.port.Write([]byte(cmd + "\r\n")); err != nil {
		d.logger.Warn("serial write failed", "cmd", cmd, "error", err)
		return Outcome{Kind: Timeout}
	}
	o := d.await(ctx, expect, timeout)
	d.logger.Debug("at exchange", "cmd", cmd, "outcome", o.Kind.String())
	return o
}

// await accumulates inbound bytes until expect or ERROR appears, or the
// deadline passes. Polling, never an unbounded blocking read.
func (d *Driver) await(ctx context.Context, expect string, timeout time.Duration) Outcome {
	deadline := d.clock.Now().Add(timeout)
	var buf strings.Builder
	tmp := make([]byte, 256)
	for {
		n, err := d.port.Read(tmp)
		if n > 0 {
			buf.Write(tmp[:n])
			s := buf.String()
			if strings.Contains(s, expect) {
				return Outcome{Kind: Ack, Raw: s}
			}
			if strings.Contains(s, respError) {
				return Outcome{Kind: Nack, Raw: s}
			}
		}
		if err != nil {
			d.logger.Warn("serial read failed", "error", err)
		}
		if !d.clock.Now().Before(deadline) || !d.sleep(ctx, pollInterval) {
			if buf.Len() > 0 {
				return Outcome{Kind: PartialData, Raw: buf.String()}
			}
			return Outcome{Kind: Timeout}
		}
	}
}

// collect reads for the full window with no early exit, returning everything
// that accumulated.
func (d *Driver) collect(ctx context.Context, window time.Duration) string {
	deadline := d.clock.Now().Add(window)
	var buf strings.Builder
	tmp := make([]byte, 256)
	for {
		n, _ := d.port.Read(tmp)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if !d.clock.Now().Before(deadline) || !d.sleep(ctx, pollInterval) {
			return buf.String()
		}
	}
}

func (d *Driver) sleep(ctx context.Context, dur time.Duration) bool {
	timer := d.clock.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// parseSignalQuality extracts the RSSI field from a "+CSQ: <rssi>,<ber>"
// response.
func parseSignalQuality(raw string) (int, error) {
	i := strings.Index(raw, "+CSQ:")
	if i < 0 {
		return 0, fmt.Errorf("no +CSQ field in response")
	}
	rest := strings.TrimSpace(raw[i+len("+CSQ:"):])
	if j := strings.IndexAny(rest, ",\r\n"); j >= 0 {
		rest = rest[:j]
	}
	q, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, fmt.Errorf("parse csq value: %w", err)
	}
	return q, nil
}

// registrationAccepted reports whether a "+CREG: <n>,<stat>" response shows
// home (1) or roaming (5) registration.
func registrationAccepted(raw string) bool {
	i := strings.Index(raw, "+CREG:")
	if i < 0 {
		return false
	}
	rest := raw[i+len("+CREG:"):]
	j := strings.IndexByte(rest, ',')
	if j < 0 {
		return false
	}
	stat := strings.TrimSpace(rest[j+1:])
	if k := strings.IndexAny(stat, ",\r\n"); k >= 0 {
		stat = stat[:k]
	}
	return stat == "1" || stat == "5"
}
