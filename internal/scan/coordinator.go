package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/scout-scanner/internal/analysis"
)

// DefaultRendezvousTimeout bounds the wait for an analysis after the animation finished
const DefaultRendezvousTimeout = 30 * time.Second

// Listener receives state transitions. It is called while the coordinator
// holds its lock, so it must not call back into the coordinator.
type Listener interface {
	OnTransition(t Transition)
}

// ListenerFunc adapts a function to a Listener
type ListenerFunc func(t Transition)

func (f ListenerFunc) OnTransition(t Transition) {
	f(t)
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock replaces the wall clock, mostly for tests
func WithClock(clock Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithIDGenerator replaces the uuid session ID generator
func WithIDGenerator(ids IDGenerator) Option {
	return func(c *Coordinator) {
		c.ids = ids
	}
}

// WithRendezvousTimeout overrides DefaultRendezvousTimeout
func WithRendezvousTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDwell makes the coordinator signal animation completion itself after d.
// Headless callers use it in place of a presentation layer.
func WithDwell(d time.Duration) Option {
	return func(c *Coordinator) {
		c.dwell = d
	}
}

// Coordinator drives one scan session at a time from upload to reveal.
// It joins two unordered signals, the presentation animation finishing and the
// analysis arriving, and only advances to Preview once both have happened.
type Coordinator struct {
	mu       sync.Mutex
	analyzer analysis.Analyzer
	listener Listener
	clock    Clock
	ids      IDGenerator
	timeout  time.Duration
	dwell    time.Duration

	current *session
	closed  bool
}

// NewCoordinator creates a Coordinator that submits photos to analyzer and reports to listener
func NewCoordinator(analyzer analysis.Analyzer, listener Listener, opts ...Option) *Coordinator {
	if listener == nil {
		listener = ListenerFunc(func(Transition) {})
	}
	c := applyOptions(opts)
	c.analyzer = analyzer
	c.listener = listener
	return c
}

// applyOptions returns an unwired Coordinator holding the defaults overridden by opts
func applyOptions(opts []Option) *Coordinator {
	c := &Coordinator{
		clock:   systemClock{},
		ids:     uuidGenerator{},
		timeout: DefaultRendezvousTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartScan discards any previous session and begins a new one for img.
// It returns immediately; analysis failures are only reported through transitions.
func (c *Coordinator) StartScan(img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrInvalidImage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}

	if c.current != nil {
		c.endLocked(c.current)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     c.ids.Generate(),
		state:  Idle,
		image:  img,
		live:   true,
		cancel: cancel,
	}
	c.current = s
	c.transitionLocked(s, Uploading, nil)

	if c.dwell > 0 {
		id := s.id
		s.dwell = c.clock.AfterFunc(c.dwell, func() {
			c.OnAnimationComplete(id)
		})
	}

	go c.submit(ctx, s.id, img)

	return s.id, nil
}

func (c *Coordinator) submit(ctx context.Context, id string, img Image) {
	result, err := c.analyzer.Analyze(ctx, img.Data, img.ContentType)
	if err != nil {
		c.OnAnalysisFailed(id, err.Error())
		return
	}
	c.OnAnalysisResult(id, result)
}

// OnAnimationComplete records that the presentation animation for sessionID finished
func (c *Coordinator) OnAnimationComplete(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.liveLocked(sessionID, "animation_complete")
	if s == nil || s.state != Uploading || s.animationDone {
		return
	}

	s.animationDone = true
	if s.dwell != nil {
		s.dwell.Stop()
		s.dwell = nil
	}
	c.transitionLocked(s, AwaitingRendezvous, nil)

	if s.result != nil {
		c.rendezvousLocked(s)
		return
	}
	c.armLocked(s)
}

// OnAnalysisResult stores the analysis for sessionID and advances if the animation already finished
func (c *Coordinator) OnAnalysisResult(sessionID string, result *analysis.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.liveLocked(sessionID, "analysis_result")
	if s == nil || s.result != nil {
		return
	}
	if s.state != Uploading && s.state != AwaitingRendezvous {
		return
	}

	if result == nil {
		result = analysis.Failed("empty analysis result")
	}
	s.result = result

	// Before the animation finishes the result is only stored
	if s.state == AwaitingRendezvous {
		c.rendezvousLocked(s)
	}
}

// OnAnalysisFailed ends sessionID after a transport failure talking to the analysis service
func (c *Coordinator) OnAnalysisFailed(sessionID string, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.liveLocked(sessionID, "analysis_failed")
	if s == nil || s.result != nil {
		return
	}
	if s.state != Uploading && s.state != AwaitingRendezvous {
		return
	}
	c.failLocked(s, &SubmissionError{Reason: reason})
}

func (c *Coordinator) onRendezvousTimeout(sessionID string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.liveLocked(sessionID, "rendezvous_timeout")
	if s == nil || s.armGen != gen || s.state != AwaitingRendezvous || s.result != nil {
		return
	}
	s.rendezvous = nil
	c.failLocked(s, ErrRendezvousTimeout)
}

// CompleteReveal marks the gated report as unlocked. It is only valid from Preview.
func (c *Coordinator) CompleteReveal(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current
	if s == nil || s.id != sessionID || !s.live || s.state != Preview {
		return ErrNotInPreview
	}
	c.transitionLocked(s, Complete, nil)
	return nil
}

// ResetSession abandons the current session from any state
func (c *Coordinator) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	c.endLocked(c.current)
	c.current = nil
}

// Close resets the coordinator and refuses further scans
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.endLocked(c.current)
		c.current = nil
	}
	c.closed = true
}

// Snapshot returns a copy of the current session
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current
	if s == nil {
		return Snapshot{State: Idle}
	}
	img := s.image
	return Snapshot{
		SessionID:     s.id,
		State:         s.state,
		AnimationDone: s.animationDone,
		Result:        s.result,
		Image:         &img,
		Err:           s.err,
	}
}

// liveLocked returns the current session if sessionID still owns it
func (c *Coordinator) liveLocked(sessionID string, event string) *session {
	s := c.current
	if s == nil || s.id != sessionID || !s.live {
		slog.Debug("Dropping event for superseded scan", "event", event, "session_id", sessionID)
		return nil
	}
	return s
}

// rendezvousLocked advances once both the animation and the analysis are in
func (c *Coordinator) rendezvousLocked(s *session) {
	if s.state != AwaitingRendezvous || !s.animationDone || s.result == nil {
		return
	}

	c.disarmLocked(s)
	if !s.result.Valid() {
		c.failLocked(s, &AnalysisError{Reason: s.result.Error})
		return
	}
	s.cancel()
	c.transitionLocked(s, Preview, nil)
}

func (c *Coordinator) armLocked(s *session) {
	s.armGen++
	id, gen := s.id, s.armGen
	s.rendezvous = c.clock.AfterFunc(c.timeout, func() {
		c.onRendezvousTimeout(id, gen)
	})
}

// disarmLocked stops pending timers. Bumping armGen also voids a timer
// callback that already fired and is waiting on the lock.
func (c *Coordinator) disarmLocked(s *session) {
	if s.rendezvous != nil {
		s.rendezvous.Stop()
		s.rendezvous = nil
	}
	if s.dwell != nil {
		s.dwell.Stop()
		s.dwell = nil
	}
	s.armGen++
}

func (c *Coordinator) failLocked(s *session, err error) {
	c.disarmLocked(s)
	s.cancel()
	s.live = false
	slog.Warn("Scan failed", "session_id", s.id, "kind", ErrorKind(err), "error", err)
	c.transitionLocked(s, Idle, err)
}

// endLocked supersedes s so late callbacks for it are ignored
func (c *Coordinator) endLocked(s *session) {
	c.disarmLocked(s)
	s.cancel()
	s.live = false
	if s.state != Idle {
		c.transitionLocked(s, Idle, nil)
	}
}

func (c *Coordinator) transitionLocked(s *session, to State, err error) {
	from := s.state
	s.state = to
	if err != nil && s.err == nil {
		s.err = err
	}

	slog.Debug("Scan transition", "session_id", s.id, "from", from, "to", to)
	c.listener.OnTransition(Transition{
		SessionID: s.id,
		From:      from,
		To:        to,
		Err:       err,
		Result:    s.result,
		At:        c.clock.Now(),
	})
}
