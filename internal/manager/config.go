package manager

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"checkoutsdk/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxSessions = 64
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Widget is the host configuration every session starts from.
	Widget types.HostConfig
	// Viewport resolves auto variants when a request carries none.
	Viewport     types.Viewport
	HostURL      string
	PollInterval time.Duration
	HTTPClient   *http.Client
	MaxSessions  int
	Bridge       Bridge
	Publisher    EventPublisher
	Log          zerolog.Logger
	// Context bounds every session's background work.
	Context context.Context
}

// New constructs a Manager from Config.
func New(cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	return &Manager{
		cfg:       cfg,
		sessions:  make(map[string]*entry),
		startTime: time.Now(),
	}
}
