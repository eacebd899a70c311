package track

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	historyCap      = 100
	distanceFilterM = 5
)

// Test location bounding rectangle (Cartagena metro area).
const (
	testBoxLatMin = 10.35
	testBoxLatMax = 10.45
	testBoxLngMin = -75.54
	testBoxLngMax = -75.46
)

// Provider produces device positions.
type Provider interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Current(ctx context.Context) (Sample, error)
	Watch(opts WatchOptions, fn func(Sample)) (Subscription, error)
}

type WatchOptions struct {
	Interval        time.Duration
	DistanceFilterM float64
}

// Subscription cancels a watch. Remove must only signal the watch loop
// and return without waiting for in-flight callbacks; the tracker's
// generation counter discards anything that arrives late.
type Subscription interface {
	Remove()
}

// TransportEvents are invoked by the transport from its own goroutines.
type TransportEvents struct {
	OnConnect    func()
	OnDisconnect func(reason string)
	OnError      func(err error)
}

// Transport is a connection-oriented channel to the remote fleet
// endpoint. Reconnection is the transport's own business; the tracker
// only observes connect/disconnect/error events.
type Transport interface {
	Connect(ctx context.Context, token string, events TransportEvents) error
	Disconnect()
	SendLocation(vehicleID string, s Sample) error
}

// TokenReader is the read side of the secure token store.
type TokenReader interface {
	Get(ctx context.Context) (string, error)
}

// Notifier receives state and record events for the local UI stream.
type Notifier interface {
	Publish(event string, payload any)
}

// Tracker owns the whole tracking session: connection state, permission
// state, the sampling loops, sent history, and statistics. All
// transitions from the watch callback, the ticker, manual/test triggers,
// and transport events serialize through one mutex.
type Tracker struct {
	provider  Provider
	transport Transport
	tokens    TokenReader
	notifier  Notifier
	vehicleID string
	interval  time.Duration

	mu         sync.Mutex
	conn       ConnState
	permission Permission
	tracking   bool
	current    *Sample
	lastSent   *Sample
	history    []SentRecord
	stats      Stats
	sub        Subscription
	tickerStop chan struct{}
	// gen invalidates callbacks from a stopped sampling run: they grab
	// the lock after gen moved on and are discarded, so no submission is
	// possible once StopTracking returns.
	gen int
}

var nowFn = time.Now

func New(provider Provider, transport Transport, tokens TokenReader, notifier Notifier, vehicleID string, intervalSeconds int) *Tracker {
	if intervalSeconds <= 0 {
		intervalSeconds = 5
	}
	return &Tracker{
		provider:   provider,
		transport:  transport,
		tokens:     tokens,
		notifier:   notifier,
		vehicleID:  vehicleID,
		interval:   time.Duration(intervalSeconds) * time.Second,
		conn:       StateDisconnected,
		permission: PermissionUndetermined,
	}
}

// EnsurePermission queries and, when needed, requests location access.
// On grant it fetches one position to warm the current-location display.
func (t *Tracker) EnsurePermission(ctx context.Context) (Permission, error) {
	status := t.provider.Permission()
	if status != PermissionGranted {
		var err error
		status, err = t.provider.RequestPermission(ctx)
		if err != nil {
			status = PermissionDenied
		}
	}

	t.mu.Lock()
	t.permission = status
	t.mu.Unlock()

	if status != PermissionGranted {
		t.publishState()
		return status, ErrPermissionDenied
	}

	if s, err := t.provider.Current(ctx); err == nil {
		t.mu.Lock()
		t.current = &s
		t.mu.Unlock()
	}
	t.publishState()
	return status, nil
}

// Connect reads the stored token and opens the transport. A missing
// token aborts before any connection attempt. Calling Connect while
// connecting or connected is a no-op.
func (t *Tracker) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn == StateConnecting || t.conn == StateConnected {
		t.mu.Unlock()
		return nil
	}

	token, err := t.tokens.Get(ctx)
	if err != nil || token == "" {
		t.mu.Unlock()
		return ErrAuthMissing
	}

	t.conn = StateConnecting
	t.mu.Unlock()
	t.publishState()

	events := TransportEvents{
		OnConnect:    t.handleConnected,
		OnDisconnect: t.handleDisconnected,
		OnError:      t.handleTransportError,
	}
	if err := t.transport.Connect(ctx, token, events); err != nil {
		t.mu.Lock()
		t.conn = StateDisconnected
		t.stats.Active = false
		t.mu.Unlock()
		t.publishState()
		return fmt.Errorf("transport connect: %w", err)
	}

	t.handleConnected()
	return nil
}

// Disconnect is idempotent: closes the transport, stops tracking, and
// marks the session inactive. History and stats are kept.
func (t *Tracker) Disconnect() {
	t.mu.Lock()
	alreadyDown := t.conn == StateDisconnected
	t.stopLocked()
	t.conn = StateDisconnected
	t.stats.Active = false
	t.mu.Unlock()

	if !alreadyDown {
		t.transport.Disconnect()
	}
	t.publishState()
}

// StartTracking begins continuous sampling. Requires an open connection
// and granted location permission; neither being true fails with no
// state change.
//
// Two sampling paths run at once: the provider watch (interval or 5 m
// movement, whichever first) and an independent fixed-period ticker
// doing one-shot fetches. Both submit, with no deduplication; collapsing
// them would change the observed send cadence.
func (t *Tracker) StartTracking(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != StateConnected {
		t.mu.Unlock()
		return ErrNotConnected
	}
	if t.permission != PermissionGranted {
		t.mu.Unlock()
		return ErrPermissionDenied
	}
	if t.tracking {
		t.mu.Unlock()
		return nil
	}
	t.tracking = true
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	// Immediate warm sample before the first periodic tick.
	if s, err := t.provider.Current(ctx); err == nil {
		_, _ = t.submit(gen, s, KindAuto)
	}

	sub, err := t.provider.Watch(WatchOptions{
		Interval:        t.interval,
		DistanceFilterM: distanceFilterM,
	}, func(s Sample) {
		_, _ = t.submit(gen, s, KindAuto)
	})
	if err != nil {
		t.mu.Lock()
		t.tracking = false
		t.gen++
		t.mu.Unlock()
		t.publishState()
		return fmt.Errorf("%w: %v", ErrLocationFetch, err)
	}

	stop := make(chan struct{})
	t.mu.Lock()
	t.sub = sub
	t.tickerStop = stop
	t.mu.Unlock()

	go t.runTicker(gen, stop)
	t.publishState()
	return nil
}

// StopTracking cancels the watch subscription and the ticker. Idempotent
// and clears no history or stats.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	was := t.tracking
	t.stopLocked()
	t.mu.Unlock()
	if was {
		t.publishState()
	}
}

func (t *Tracker) stopLocked() {
	if !t.tracking {
		return
	}
	t.tracking = false
	t.gen++
	if t.sub != nil {
		t.sub.Remove()
		t.sub = nil
	}
	if t.tickerStop != nil {
		close(t.tickerStop)
		t.tickerStop = nil
	}
}

func (t *Tracker) runTicker(gen int, stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s, err := t.provider.Current(context.Background())
			if err != nil {
				// Tolerated: this cycle is skipped.
				t.notify("notice", map[string]string{"error": err.Error()})
				continue
			}
			if _, err := t.submit(gen, s, KindAuto); errors.Is(err, ErrNotConnected) {
				return
			}
		}
	}
}

// SendManual fetches one fresh position and submits it as kind=manual.
func (t *Tracker) SendManual(ctx context.Context) (SentRecord, error) {
	t.mu.Lock()
	if t.conn != StateConnected {
		t.mu.Unlock()
		return SentRecord{}, ErrNotConnected
	}
	gen := t.gen
	t.mu.Unlock()

	s, err := t.provider.Current(ctx)
	if err != nil {
		return SentRecord{}, fmt.Errorf("%w: %v", ErrLocationFetch, err)
	}
	return t.submit(gen, s, KindManual)
}

// SendTestLocation generates a pseudo-random coordinate inside the fixed
// bounding rectangle. The current position updates regardless of
// connection state; the sample is only submitted when connected.
func (t *Tracker) SendTestLocation() (Sample, bool, error) {
	s := Sample{
		Latitude:  testBoxLatMin + rand.Float64()*(testBoxLatMax-testBoxLatMin),
		Longitude: testBoxLngMin + rand.Float64()*(testBoxLngMax-testBoxLngMin),
		Accuracy:  5 + rand.Float64()*10,
		Timestamp: nowFn(),
	}

	t.mu.Lock()
	t.current = &s
	connected := t.conn == StateConnected
	gen := t.gen
	t.mu.Unlock()
	t.publishState()

	if !connected {
		return s, false, nil
	}
	if _, err := t.submit(gen, s, KindTest); err != nil {
		return s, false, err
	}
	return s, true, nil
}

// ClearHistory empties the sent history and zeroes the counters. It is
// destructive, so the caller must pass confirm=true. Connection and
// tracking state are untouched.
func (t *Tracker) ClearHistory(confirm bool) error {
	if !confirm {
		return ErrConfirmRequired
	}
	t.mu.Lock()
	t.history = nil
	t.lastSent = nil
	t.stats.TotalSent = 0
	t.stats.TotalDistanceM = 0
	t.stats.AvgAccuracy = 0
	t.mu.Unlock()
	t.publishState()
	return nil
}

// Snapshot returns a copy of the current session state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	snap := Snapshot{
		Connection:      t.conn,
		Permission:      t.permission,
		Tracking:        t.tracking,
		IntervalSeconds: int(t.interval / time.Second),
		Stats:           t.stats,
		History:         make([]SentRecord, len(t.history)),
	}
	copy(snap.History, t.history)
	if t.current != nil {
		c := *t.current
		snap.Current = &c
	}
	return snap
}

// Close tears the session down: stops sampling and disconnects.
func (t *Tracker) Close() {
	t.Disconnect()
}

// submit hands one sample to the transport and, on success, records it:
// distance delta against the previously sent sample, newest-first
// history capped at 100, counters and the recency-weighted accuracy
// average.
func (t *Tracker) submit(gen int, s Sample, kind Kind) (SentRecord, error) {
	t.mu.Lock()
	if kind == KindAuto && (gen != t.gen || !t.tracking) {
		t.mu.Unlock()
		return SentRecord{}, ErrNotConnected
	}
	if t.conn != StateConnected {
		t.mu.Unlock()
		return SentRecord{}, ErrNotConnected
	}

	if err := t.transport.SendLocation(t.vehicleID, s); err != nil {
		t.mu.Unlock()
		t.notify("notice", map[string]string{"error": err.Error()})
		return SentRecord{}, fmt.Errorf("send location: %w", err)
	}

	if t.lastSent != nil {
		t.stats.TotalDistanceM += distanceM(*t.lastSent, s)
	}
	last := s
	t.lastSent = &last
	t.current = &last

	rec := SentRecord{ID: uuid.NewString(), Kind: kind, Sample: s}
	t.history = append([]SentRecord{rec}, t.history...)
	if len(t.history) > historyCap {
		t.history = t.history[:historyCap]
	}

	t.stats.TotalSent++
	t.stats.LastSentAt = nowFn()
	if s.Accuracy > 0 {
		// Recency-weighted smoothing, not a true mean.
		if t.stats.AvgAccuracy == 0 {
			t.stats.AvgAccuracy = s.Accuracy
		} else {
			t.stats.AvgAccuracy = (t.stats.AvgAccuracy + s.Accuracy) / 2
		}
	}
	t.mu.Unlock()

	t.notify("sent", rec)
	t.publishState()
	return rec, nil
}

func (t *Tracker) handleConnected() {
	t.mu.Lock()
	t.conn = StateConnected
	t.stats.SessionStart = nowFn()
	t.stats.Active = true
	t.mu.Unlock()
	t.publishState()
}

func (t *Tracker) handleDisconnected(reason string) {
	t.mu.Lock()
	t.stopLocked()
	t.conn = StateDisconnected
	t.stats.Active = false
	t.mu.Unlock()
	t.notify("notice", map[string]string{"disconnected": reason})
	t.publishState()
}

func (t *Tracker) handleTransportError(err error) {
	t.notify("notice", map[string]string{"error": err.Error()})
}

func (t *Tracker) publishState() {
	t.mu.Lock()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify("state", snap)
}

func (t *Tracker) notify(event string, payload any) {
	if t.notifier != nil {
		t.notifier.Publish(event, payload)
	}
}
