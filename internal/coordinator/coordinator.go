package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"stovelink/internal/firenet"
	"stovelink/internal/logger"
	"stovelink/internal/models"
	"stovelink/internal/repository"
	"stovelink/internal/stove"
)

// ErrUpdateFailed is returned when a poll cycle could not obtain a snapshot
// for any configured stove. Partial failures are not an error: the failing
// stoves simply stay unavailable until the next successful sync.
var ErrUpdateFailed = errors.New("failed to fetch data for any stove")

// Event types appended to the log.
const (
	EventStatusChange  = "STATUS_CHANGE"
	EventCommandFailed = "COMMAND_FAILED"
	EventRestart       = "RESTART"
)

const defaultCapacityKg = 15

// StoveAPI is the slice of the vendor client the coordinator needs; the
// concrete implementation is firenet.Client.
type StoveAPI interface {
	Connect(ctx context.Context) error
	DiscoverStoves(ctx context.Context) ([]firenet.DiscoveredStove, error)
	GetStoveState(ctx context.Context, stoveID string) (*models.StoveState, error)
	SetStoveControls(ctx context.Context, stoveID string, controls models.Controls) (*models.StoveState, error)
	FailureCount() int
}

// Options configures the reconciliation loop.
type Options struct {
	ScanInterval       time.Duration
	PelletCapacityKg   float64
	DefaultTemperature float64
}

// Coordinator owns the device registry and drives the poll/command
// reconciliation loop. One instance serves one account; polls never overlap
// because a single goroutine runs the sweep and PollOnce serializes on a
// mutex for out-of-band callers.
type Coordinator struct {
	client    StoveAPI
	stockRepo repository.StockRepo
	eventRepo repository.EventRepo
	log       *logger.Logger
	opts      Options

	mu         sync.Mutex // serializes sweeps
	stoves     []*stove.Stove
	byID       map[string]*stove.Stove
	lastStatus map[string]string

	refresh chan struct{}
}

func New(client StoveAPI, stockRepo repository.StockRepo, eventRepo repository.EventRepo, opts Options, log *logger.Logger) *Coordinator {
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = 15 * time.Second
	}
	if opts.PelletCapacityKg <= 0 {
		opts.PelletCapacityKg = defaultCapacityKg
	}
	if opts.DefaultTemperature <= 0 {
		opts.DefaultTemperature = 21
	}
	return &Coordinator{
		client:     client,
		stockRepo:  stockRepo,
		eventRepo:  eventRepo,
		log:        log,
		opts:       opts,
		byID:       map[string]*stove.Stove{},
		lastStatus: map[string]string{},
		refresh:    make(chan struct{}, 1),
	}
}

// Setup authenticates, discovers the account's stoves and performs the
// initial state sync. Authentication failure is fatal here; an empty
// discovery result is a warning, not an error.
func (c *Coordinator) Setup(ctx context.Context) error {
	if err := c.client.Connect(ctx); err != nil {
		return err
	}

	discovered, err := c.client.DiscoverStoves(ctx)
	if err != nil {
		return err
	}
	if len(discovered) == 0 {
		c.log.Warnw("no stoves found during setup")
	}

	for _, d := range discovered {
		s := stove.New(d.ID, d.Name, c.opts.PelletCapacityKg, c.log)

		if c.stockRepo != nil {
			ps, err := c.stockRepo.Load(ctx, d.ID)
			if err != nil {
				c.log.Warnw("pellet_stock_load_failed", "stove", d.ID, "err", err)
			} else if ps.StoveID != "" {
				s.RestoreStock(ps)
			}
		}

		if st, err := c.client.GetStoveState(ctx, d.ID); err != nil {
			c.log.Warnw("initial_sync_failed", "stove", d.ID, "err", err)
		} else {
			s.ApplySnapshot(st)
		}

		c.stoves = append(c.stoves, s)
		c.byID[d.ID] = s
		c.log.Infow("stove ready", "id", d.ID, "name", d.Name)
	}
	return nil
}

// Run drives PollOnce on the scan interval until ctx is canceled.
// RequestRefresh nudges an extra sweep between ticks.
func (c *Coordinator) Run(ctx context.Context) {
	t := time.NewTicker(c.opts.ScanInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-c.refresh:
		}
		if _, err := c.PollOnce(ctx); err != nil {
			c.log.Warnw("poll_failed", "err", err)
		}
	}
}

// RequestRefresh asks for an out-of-cycle reconciliation. Requests coalesce;
// the call never blocks.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// PollOnce runs one reconciliation sweep: per stove, either submit pending
// control edits or fetch fresh state, then apply the stuck-state recovery.
// A fault on one stove never aborts the others. The result maps stove id to
// its current snapshot; stoves without one are omitted.
func (c *Coordinator) PollOnce(ctx context.Context) (map[string]*models.StoveState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.stoves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.reconcileStove(ctx, s)
	}

	result := map[string]*models.StoveState{}
	for _, s := range c.stoves {
		if st := s.State(); st != nil {
			result[s.ID()] = st
		} else {
			c.log.Warnw("stove has no state after update, it stays unavailable", "stove", s.ID())
		}
	}
	if len(result) == 0 && len(c.stoves) > 0 {
		return nil, ErrUpdateFailed
	}
	return result, nil
}

func (c *Coordinator) reconcileStove(ctx context.Context, s *stove.Stove) {
	if s.HasPendingChanges() && s.HasState() {
		c.submitPending(ctx, s)
	} else {
		c.syncStove(ctx, s)
	}

	// Burn-off with the stove still commanded on is a known stuck state; a
	// power cycle recovers it. The edits only mark pending changes here, the
	// submit happens on the next sweep.
	// TODO: bound this with a cooldown so consecutive sweeps cannot
	// power-cycle the stove back to back.
	if main, ok := s.MainState(); ok && main == 6 && s.IsOn() {
		c.log.Infow("stove stuck in burn-off while on, power cycling", "stove", s.ID())
		c.appendEvent(ctx, s.ID(), EventRestart, "power cycle requested for stuck burn-off state", nil)
		s.SetOnOff(false)
		s.SetOnOff(true)
	}

	c.trackStatus(ctx, s)
	c.persistStock(ctx, s)
}

func (c *Coordinator) submitPending(ctx context.Context, s *stove.Stove) {
	controls, ok := s.ControlState()
	if !ok {
		c.log.Warnw("cannot send controls, control state missing", "stove", s.ID())
		return
	}
	st, err := c.client.SetStoveControls(ctx, s.ID(), controls)
	if err != nil {
		// keep the pending flag so the diff is resubmitted next cycle
		c.log.Warnw("controls_submit_failed, changes remain pending", "stove", s.ID(), "err", err)
		c.appendEvent(ctx, s.ID(), EventCommandFailed, "control submission failed, will retry", map[string]any{"error": err.Error()})
		return
	}
	s.ApplySnapshot(st)
	s.ClearPendingChanges()
}

func (c *Coordinator) syncStove(ctx context.Context, s *stove.Stove) {
	st, err := c.client.GetStoveState(ctx, s.ID())
	if err != nil {
		// keep the previous snapshot rather than losing known state
		c.log.Warnw("sync_failed", "stove", s.ID(), "has_state", s.HasState(), "err", err)
		return
	}
	s.ApplySnapshot(st)
}

func (c *Coordinator) trackStatus(ctx context.Context, s *stove.Stove) {
	status := s.Status()
	prev, seen := c.lastStatus[s.ID()]
	c.lastStatus[s.ID()] = status.Key
	if seen && prev != status.Key {
		c.appendEvent(ctx, s.ID(), EventStatusChange, "status changed to "+status.Key, map[string]any{
			"from": prev,
			"to":   status.Key,
		})
	}
}

func (c *Coordinator) persistStock(ctx context.Context, s *stove.Stove) {
	// advance the estimator so consumption is accounted every sweep
	s.PelletStock()
	if !s.ConsumeStockDirty() || c.stockRepo == nil {
		return
	}
	if err := c.stockRepo.Save(ctx, s.StockState()); err != nil {
		c.log.Warnw("pellet_stock_save_failed", "stove", s.ID(), "err", err)
	}
}

func (c *Coordinator) appendEvent(ctx context.Context, stoveID, typ, description string, meta map[string]any) {
	if c.eventRepo == nil {
		return
	}
	err := c.eventRepo.Append(ctx, models.StoveEvent{
		StoveID:     stoveID,
		Type:        typ,
		Description: description,
		Metadata:    meta,
	})
	if err != nil {
		c.log.Warnw("event_append_failed", "stove", stoveID, "type", typ, "err", err)
	}
}

// Stoves returns the registry in discovery order.
func (c *Coordinator) Stoves() []*stove.Stove {
	return c.stoves
}

// Stove looks a device up by id.
func (c *Coordinator) Stove(id string) (*stove.Stove, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// FailureCount reports the number of failed control submissions.
func (c *Coordinator) FailureCount() int {
	return c.client.FailureCount()
}

// DefaultTemperature is the configured fallback target for stoves that have
// no target temperature set when heating is requested.
func (c *Coordinator) DefaultTemperature() float64 {
	return c.opts.DefaultTemperature
}
