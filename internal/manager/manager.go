package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"checkoutsdk/internal/connector"
	"checkoutsdk/internal/session"
	"checkoutsdk/pkg/checkout"
	"checkoutsdk/pkg/types"
)

// Bridge is the connector sessions open their widgets through, plus the
// page-side attach point used by the websocket endpoint.
type Bridge interface {
	connector.Connector
	Attach(instanceID string, conn *websocket.Conn) error
	Connections() int
}

type entry struct {
	sdk    *checkout.SDK
	opened time.Time
}

type Manager struct {
	cfg       Config
	startTime time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
	pending  int
	closing  bool
}

// Ready reports whether the manager accepts new sessions.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closing && m.cfg.Bridge != nil
}

// Open creates a widget session from the configured widget plus the
// request overrides and shows it through the bridge. The page attaches
// afterwards with the returned instance id.
func (m *Manager) Open(ctx context.Context, req types.OpenSessionRequest) (types.SessionStatus, error) {
	if err := m.reserve(); err != nil {
		return types.SessionStatus{}, err
	}
	defer m.release()

	w := m.cfg.Widget
	if req.Variant != "" {
		w.Variant = req.Variant
	}
	if req.Container != nil {
		c := *req.Container
		w.ContainerNode = &c
	}
	if req.SwapAsset != "" {
		w.SwapAsset = req.SwapAsset
	}
	if req.SwapAmount != "" {
		w.SwapAmount = req.SwapAmount
	}
	if req.UserAddress != "" {
		w.UserAddress = req.UserAddress
	}
	vp := m.cfg.Viewport
	if req.Viewport != nil {
		vp = *req.Viewport
	}

	log := m.cfg.Log
	sdk, err := checkout.New(w, checkout.Options{
		Logger:       &log,
		Connector:    m.cfg.Bridge,
		Viewport:     vp,
		HTTPClient:   m.cfg.HTTPClient,
		PollInterval: m.cfg.PollInterval,
		HostURL:      m.cfg.HostURL,
		Context:      m.cfg.Context,
	})
	if err != nil {
		return types.SessionStatus{}, err
	}
	id := sdk.ID()
	sdk.On(types.EventAll, m.observe(id))
	if _, err := sdk.Show(ctx); err != nil {
		_ = sdk.Shutdown()
		return types.SessionStatus{}, err
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		_ = m.stop(id, &entry{sdk: sdk})
		return types.SessionStatus{}, ErrShuttingDown
	}
	m.sessions[id] = &entry{sdk: sdk, opened: time.Now()}
	m.mu.Unlock()

	st := sdk.Status()
	m.cfg.Log.Info().Str("instance", id).Str("variant", string(st.Variant)).Msg("session opened")
	m.cfg.Publisher.Publish(Event{Name: EventSessionOpened, InstanceID: id, Fields: map[string]any{
		"variant": string(st.Variant),
		"mode":    string(st.Mode),
	}})
	return st, nil
}

// Attach binds a page connection to an open session.
func (m *Manager) Attach(id string, conn *websocket.Conn) error {
	if _, err := m.get(id); err != nil {
		return err
	}
	if err := m.cfg.Bridge.Attach(id, conn); err != nil {
		if errors.Is(err, connector.ErrUnknownInstance) {
			return ErrSessionNotFound(id)
		}
		return err
	}
	return nil
}

// CloseSession closes the widget if still visible, stops its background
// work and forgets the session.
func (m *Manager) CloseSession(id string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	err = m.stop(id, e)
	m.cfg.Publisher.Publish(Event{Name: EventSessionClosed, InstanceID: id})
	return err
}

// Shutdown refuses new sessions and stops every open one.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closing = true
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	var errs []error
	for id, e := range all {
		if err := m.stop(id, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Connections counts attached page shims.
func (m *Manager) Connections() int {
	if m.cfg.Bridge == nil {
		return 0
	}
	return m.cfg.Bridge.Connections()
}

func (m *Manager) stop(id string, e *entry) error {
	_, closeErr := e.sdk.Close()
	if checkout.IsNotVisible(closeErr) {
		closeErr = nil
	}
	if err := e.sdk.Shutdown(); err != nil {
		closeErr = errors.Join(closeErr, err)
	}
	m.cfg.Log.Info().Str("instance", id).Msg("session stopped")
	return closeErr
}

func (m *Manager) get(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound(id)
	}
	return e, nil
}

// reserve claims a slot for a session being opened. Closed sessions that
// no longer poll are pruned first.
func (m *Manager) reserve() error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return ErrShuttingDown
	}
	var done []*entry
	for id, e := range m.sessions {
		st := e.sdk.Status()
		if st.State == string(session.StateClosed) && !st.Polling {
			delete(m.sessions, id)
			done = append(done, e)
		}
	}
	if len(m.sessions)+m.pending >= m.cfg.MaxSessions {
		m.mu.Unlock()
		m.shutdownAll(done)
		return tooBusyError{limit: m.cfg.MaxSessions}
	}
	m.pending++
	m.mu.Unlock()
	m.shutdownAll(done)
	return nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.pending--
	m.mu.Unlock()
}

func (m *Manager) shutdownAll(list []*entry) {
	for _, e := range list {
		if err := e.sdk.Shutdown(); err != nil {
			m.cfg.Log.Debug().Err(err).Str("instance", e.sdk.ID()).Msg("pruned session shutdown")
		}
		m.cfg.Publisher.Publish(Event{Name: EventSessionClosed, InstanceID: e.sdk.ID()})
	}
}

func (m *Manager) observe(id string) checkout.Handler {
	return func(ev types.Event) error {
		m.cfg.Log.Info().Str("instance", id).Str("event", string(ev.Type())).Msg("widget event")
		m.cfg.Publisher.Publish(Event{Name: EventWidget, InstanceID: id, Fields: map[string]any{
			"type": string(ev.Type()),
		}})
		return nil
	}
}
