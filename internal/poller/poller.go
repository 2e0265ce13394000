// Package poller watches a purchase on the status API until it reaches a
// terminal status, for widget deployments that never push one.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"checkoutsdk/internal/metrics"
	"checkoutsdk/pkg/types"
)

// DefaultInterval is the wait before every fetch.
const DefaultInterval = time.Second

type Config struct {
	Client     *Client
	Interval   time.Duration
	InstanceID string
	// Interested reports whether any host listener still wants a
	// terminal event. Checked before and after every wait.
	Interested func() bool
	// Dispatch delivers the terminal event.
	Dispatch func(types.Event) error
	// Spawn runs the loop in the background and reports whether it was
	// started. Defaults to a goroutine.
	Spawn func(func()) bool
	Log   zerolog.Logger
}

// Poller runs at most one loop at a time for the stored credentials.
type Poller struct {
	cfg Config

	mu      sync.Mutex
	creds   *Credentials
	running bool
}

func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Client == nil {
		cfg.Client = NewClient(nil, 10*time.Second)
	}
	if cfg.Spawn == nil {
		cfg.Spawn = func(f func()) bool {
			go f()
			return true
		}
	}
	return &Poller{cfg: cfg}
}

// Store replaces the credentials and arms the loop. A running loop
// switches to the new credentials on its next tick.
func (p *Poller) Store(ctx context.Context, c Credentials) bool {
	p.mu.Lock()
	p.creds = &c
	p.mu.Unlock()
	return p.Arm(ctx)
}

// Settle discards the stored credentials after a terminal event arrived
// from elsewhere. A running loop exits without dispatching.
func (p *Poller) Settle() {
	p.mu.Lock()
	p.creds = nil
	p.mu.Unlock()
}

// Arm starts a loop if credentials are stored, none is running and a
// listener is interested. It reports whether a loop was started.
func (p *Poller) Arm(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.creds == nil || p.running || !p.cfg.Interested() {
		return false
	}
	p.running = true
	if !p.cfg.Spawn(func() { p.loop(ctx) }) {
		p.running = false
		return false
	}
	return true
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Credentials returns the stored credentials, if any.
func (p *Poller) Credentials() (Credentials, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.creds == nil {
		return Credentials{}, false
	}
	return *p.creds, true
}

// keepGoing checks interest and clears running in the same critical
// section Arm uses, so a subscribe racing with loop exit re-arms. It
// loads the current credentials into cred.
func (p *Poller) keepGoing(ctx context.Context, cred *Credentials) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() == nil && p.creds != nil && p.cfg.Interested() {
		*cred = *p.creds
		return true
	}
	p.running = false
	return false
}

// finish claims the terminal result for cred. It fails when the
// credentials were settled or replaced while the fetch was in flight.
func (p *Poller) finish(cred Credentials) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.creds == nil || *p.creds != cred {
		return false
	}
	p.creds = nil
	p.running = false
	return true
}

func (p *Poller) loop(ctx context.Context) {
	metrics.PollersActive.Inc()
	defer metrics.PollersActive.Dec()
	log := p.cfg.Log
	log.Debug().Msg("status polling started")

	var cred Credentials
	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()
	for {
		if !p.keepGoing(ctx, &cred) {
			log.Debug().Msg("status polling stopped")
			return
		}
		timer.Reset(p.cfg.Interval)
		select {
		case <-ctx.Done():
			p.keepGoing(ctx, &cred)
			return
		case <-timer.C:
		}
		if !p.keepGoing(ctx, &cred) {
			log.Debug().Msg("status polling stopped")
			return
		}

		purchase, err := p.cfg.Client.FetchPurchase(ctx, cred)
		if err != nil {
			metrics.PollRequests.WithLabelValues(metrics.PollError).Inc()
			log.Debug().Err(err).Str("purchase", cred.ResourceID).Msg("status fetch failed")
			continue
		}

		meta := types.Meta{WidgetInstanceID: p.cfg.InstanceID}
		var ev types.Event
		switch {
		case purchase.HasActionStatus(types.ActionStatusReleased):
			metrics.PollRequests.WithLabelValues(metrics.PollReleased).Inc()
			ev = types.PurchaseSuccessfulEvent{Meta: meta, Payload: types.PurchaseSuccessfulPayload{Purchase: purchase}}
		case purchase.HasActionStatus(types.ActionStatusError):
			metrics.PollRequests.WithLabelValues(metrics.PollFailed).Inc()
			ev = types.PurchaseFailedEvent{Meta: meta}
		default:
			metrics.PollRequests.WithLabelValues(metrics.PollPending).Inc()
			continue
		}
		if !p.finish(cred) {
			log.Debug().Str("purchase", cred.ResourceID).Msg("terminal status already settled")
			continue
		}
		p.deliver(log, ev)
		return
	}
}

func (p *Poller) deliver(log zerolog.Logger, ev types.Event) {
	if err := p.cfg.Dispatch(ev); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type())).Msg("terminal event handler failed")
	}
}
