// Package controller drives the login flow for one visitor: it applies
// events, carries out the resulting intents and feeds call results back in.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/visa-track/visa_portal/internal/audit"
	"github.com/visa-track/visa_portal/internal/backend"
	"github.com/visa-track/visa_portal/internal/flow"
	"github.com/visa-track/visa_portal/internal/idle"
	"github.com/visa-track/visa_portal/internal/logging"
	"github.com/visa-track/visa_portal/internal/notification"
	"github.com/visa-track/visa_portal/internal/store"
)

const (
	defaultRPCTimeout = 15 * time.Second
	defaultInactivity = 5 * time.Minute
)

// Deps are shared by every controller.
type Deps struct {
	Backend      backend.Client
	Store        store.Store
	Notifier     notification.Notifier
	Audit        audit.Recorder
	Logger       *slog.Logger
	Inactivity   time.Duration
	RPCTimeout   time.Duration
	OnTransition func(from, to flow.Stage)
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.Discard()
	}
	return d.Logger
}

func (d *Deps) rpcTimeout() time.Duration {
	if d.RPCTimeout <= 0 {
		return defaultRPCTimeout
	}
	return d.RPCTimeout
}

// Result is what one Dispatch leaves for the HTTP layer.
type Result struct {
	State flow.State
	// Letter is set when the visitor should be sent to the visa letter.
	Letter string
}

// Controller owns the flow state of one visitor. Dispatch is serialized
// except while a backend call is in flight; results that arrive after the
// stage moved on are dropped by flow.Apply.
type Controller struct {
	id    string
	deps  *Deps
	timer *idle.Timer
	once  sync.Once

	mu       sync.Mutex
	state    flow.State
	lastSeen time.Time
}

// New builds a controller in the initial state. Call Start before use.
func New(visitorID string, deps *Deps) *Controller {
	c := &Controller{
		id:       visitorID,
		deps:     deps,
		state:    flow.Initial(),
		lastSeen: time.Now(),
	}
	window := deps.Inactivity
	if window <= 0 {
		window = defaultInactivity
	}
	c.timer = idle.New(window, c.expire)
	return c
}

// ID returns the visitor id.
func (c *Controller) ID() string {
	return c.id
}

// State returns a snapshot of the current state.
func (c *Controller) State() flow.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start restores a stored session once per controller.
func (c *Controller) Start(ctx context.Context) {
	c.once.Do(func() {
		saved, err := c.deps.Store.Load(ctx, c.id)
		if err != nil {
			c.deps.logger().Warn("load visitor state", "visitor", c.id, "error", err)
		}
		c.Dispatch(ctx, flow.Start{Session: saved.Session, PendingCEU: saved.PendingCEU})
	})
}

// Dispatch applies ev and every result event it leads to.
func (c *Controller) Dispatch(ctx context.Context, ev flow.Event) Result {
	var res Result
	queue := []flow.Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, eff := range c.step(ctx, next, &res) {
			if out := c.perform(ctx, eff); out != nil {
				queue = append(queue, out)
			}
		}
	}
	res.State = c.State()
	return res
}

// step applies one event under the lock and runs the intents that only
// touch local state. Backend calls and emits are returned to run unlocked.
func (c *Controller) step(ctx context.Context, ev flow.Event, res *Result) []flow.Intent {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSeen = time.Now()
	prev := c.state
	next, intents := flow.Apply(prev, ev)
	c.state = next
	if next.Stage != prev.Stage && c.deps.OnTransition != nil {
		c.deps.OnTransition(prev.Stage, next.Stage)
	}

	log := c.deps.logger()
	var deferred []flow.Intent
	for _, in := range intents {
		switch in := in.(type) {
		case flow.PersistSession:
			if err := c.deps.Store.SaveSession(ctx, c.id, in.Session); err != nil {
				log.Warn("persist session", "visitor", c.id, "error", err)
			}
		case flow.PersistPending:
			if err := c.deps.Store.SavePending(ctx, c.id, in.CEU); err != nil {
				log.Warn("persist pending ceu", "visitor", c.id, "error", err)
			}
		case flow.ClearPending:
			if err := c.deps.Store.ClearPending(ctx, c.id); err != nil {
				log.Warn("clear pending ceu", "visitor", c.id, "error", err)
			}
		case flow.ClearSession:
			if err := c.deps.Store.ClearSession(ctx, c.id); err != nil {
				log.Warn("clear session", "visitor", c.id, "error", err)
			}
		case flow.ArmTimer:
			c.timer.Touch(in.Epoch)
		case flow.StopTimer:
			c.timer.Stop()
		case flow.OpenLetter:
			res.Letter = in.URL
		default:
			deferred = append(deferred, in)
		}
	}
	return deferred
}

// perform runs a backend call or an emit without holding the lock.
func (c *Controller) perform(ctx context.Context, in flow.Intent) flow.Event {
	b := c.deps.Backend
	switch in := in.(type) {
	case flow.CallStep1:
		identity, err := b.Step1(ctx, in.Credentials)
		if err != nil {
			identity.CEU = in.Credentials.CEU
		}
		return flow.Step1Done{Epoch: in.Epoch, Identity: identity, Err: err}
	case flow.CallStep2:
		token, record, err := b.Step2(ctx, in.Identity)
		return flow.Step2Done{Epoch: in.Epoch, Token: token, Record: record, Err: err}
	case flow.CallCheckSession:
		record, err := b.CheckSession(ctx, in.Token)
		return flow.CheckDone{Epoch: in.Epoch, Record: record, Err: err}
	case flow.CallUpdateDocument:
		record, err := b.UpdateDocument(ctx, in.Token, in.Field, in.Link)
		return flow.UploadDone{Epoch: in.Epoch, Field: in.Field, Record: record, Err: err}
	case flow.CallLogout:
		if in.Token == "" {
			return nil
		}
		if err := b.Logout(ctx, in.Token); err != nil {
			c.deps.logger().Warn("backend logout", "visitor", c.id, "token", logging.Redact(in.Token), "error", err)
		}
	case flow.Emit:
		c.emit(ctx, in)
	}
	return nil
}

func (c *Controller) emit(ctx context.Context, e flow.Emit) {
	log := c.deps.logger()
	log.Info("session event", "visitor", c.id, "kind", string(e.Kind), "ceu", e.CEU)

	if c.deps.Audit != nil {
		ev := audit.Event{VisitorID: c.id, Kind: string(e.Kind), CEU: e.CEU, Detail: e.Detail}
		if err := c.deps.Audit.Record(ctx, ev); err != nil {
			log.Warn("record audit event", "kind", string(e.Kind), "error", err)
		}
	}
	if c.deps.Notifier != nil && notification.Notifies(string(e.Kind)) {
		msg := notification.Message{Kind: string(e.Kind), Destination: e.CEU, Body: e.Detail}
		if err := c.deps.Notifier.Send(ctx, msg); err != nil {
			log.Warn("send notification", "kind", string(e.Kind), "error", err)
		}
	}
}

// expire is the inactivity timer callback.
func (c *Controller) expire(epoch uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.deps.rpcTimeout())
	defer cancel()
	c.Dispatch(ctx, flow.Timeout{Epoch: epoch})
}

// idleSince reports whether the controller can be evicted: it is not signed
// in and has not been used since cutoff. Signed-in visitors leave through
// the inactivity timer instead.
func (c *Controller) idleSince(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Stage != flow.StageAuthenticated && c.lastSeen.Before(cutoff)
}

// evict stops the timer and forgets an unfinished sign-in.
func (c *Controller) evict(ctx context.Context) {
	c.close()
	if err := c.deps.Store.ClearPending(ctx, c.id); err != nil {
		c.deps.logger().Warn("clear pending ceu on eviction", "visitor", c.id, "error", err)
	}
}

// close stops the inactivity timer.
func (c *Controller) close() {
	c.timer.Stop()
}
