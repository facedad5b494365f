// Package update fetches new measurements from a provider and merges them
// into a store.
package update

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/store"
	"github.com/i474232898/wetter/internal/weather"
)

// State is the stage an update run reached.
type State int

const (
	StateIdle State = iota
	StateTicketBuilt
	StateFetched
	StateMerged
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicketBuilt:
		return "ticket-built"
	case StateFetched:
		return "fetched"
	case StateMerged:
		return "merged"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result describes one update run.
type Result struct {
	ID       string
	State    State
	Ticket   weather.Ticket
	Fetched  int // rows parsed from the response
	Dropped  int // rows after the ticket end (forecast)
	Added    int
	Replaced int
}

type options struct {
	start, end       time.Time
	startSet, endSet bool
	location         *weather.Location
	timezone         string
}

// Option adjusts a single Update call.
type Option func(*options)

// From sets the window start. Defaults to the newest stored timestamp.
func From(t time.Time) Option {
	return func(o *options) { o.start, o.startSet = t, true }
}

// Until sets the window end. Defaults to the engine clock.
func Until(t time.Time) Option {
	return func(o *options) { o.end, o.endSet = t, true }
}

// At requests data for another location. Defaults to the store location.
func At(loc weather.Location) Option {
	return func(o *options) { o.location = &loc }
}

// InZone sets the timezone label sent to the provider.
func InZone(tz string) Option {
	return func(o *options) { o.timezone = tz }
}

// Engine runs updates. Updates through one Engine are serialized.
type Engine struct {
	mu    sync.Mutex
	log   *logger.Logger
	clock func() time.Time
}

// New creates an Engine. A nil clock means time.Now.
func New(log *logger.Logger, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{log: log.Named("update"), clock: clock}
}

// Update requests the window from the adapter and merges the rows into st.
// Rows after the window end are discarded. A failed request, a non-200
// response or an unreadable body yields an *weather.APIError and leaves st
// unchanged. Persisting st is up to the caller.
func (e *Engine) Update(ctx context.Context, st *store.Store, a weather.Adapter, opts ...Option) (Result, error) {
	res := Result{ID: uuid.NewString(), State: StateIdle}

	if err := weather.CheckAdapter(a); err != nil {
		return res, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.startSet {
		if err := weather.RequireAware("start", o.start); err != nil {
			return res, err
		}
	}
	if o.endSet {
		if err := weather.RequireAware("end", o.end); err != nil {
			return res, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !o.startSet {
		o.start = st.MaxTimestamp()
	}
	if !o.endSet {
		o.end = e.clock().UTC()
	}
	loc := st.Location()
	if o.location != nil {
		loc = *o.location
	}

	ticket, err := weather.NewTicket(o.start, o.end, loc, o.timezone)
	if err != nil {
		return res, err
	}
	res.Ticket = ticket
	res.State = StateTicketBuilt
	e.log.Infof("run %s: requesting %s from %s", res.ID, ticket, a.Name())

	resp, err := a.Get(ctx, ticket)
	if errors.Is(err, weather.ErrUnimplemented) {
		return e.reject(res, err)
	}
	if err != nil {
		return e.reject(res, &weather.APIError{Provider: a.Name(), Err: err})
	}
	if !resp.OK() {
		return e.reject(res, &weather.APIError{Provider: a.Name(), Status: resp.Status, Body: string(resp.Body)})
	}
	res.State = StateFetched

	batch, err := a.Parse(resp.Body)
	if err != nil {
		return e.reject(res, &weather.APIError{Provider: a.Name(), Status: resp.Status, Err: err})
	}
	res.Fetched = len(batch)

	kept := batch[:0:0]
	for _, m := range batch {
		if m.Time.After(ticket.End) {
			res.Dropped++
			continue
		}
		kept = append(kept, m)
	}

	merged, stats := store.Merge(st.Rows(), kept)
	if err := st.Replace(merged, ticket.Location()); err != nil {
		return e.reject(res, err)
	}
	res.Added, res.Replaced = stats.Added, stats.Replaced
	res.State = StateMerged

	e.log.Infof("run %s: %d fetched, %d dropped, %d added, %d replaced", res.ID, res.Fetched, res.Dropped, res.Added, res.Replaced)
	return res, nil
}

func (e *Engine) reject(res Result, err error) (Result, error) {
	res.State = StateRejected
	e.log.Errorf("run %s rejected: %v", res.ID, err)
	return res, err
}
