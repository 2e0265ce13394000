// Package session implements the widget visibility state machine
// (NOT_SHOWN -> VISIBLE -> CLOSED), the close confirmation sub-protocol and
// the scroll lock owned by an overlay widget.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"checkoutsdk/internal/connector"
	"checkoutsdk/internal/metrics"
	"checkoutsdk/pkg/types"
)

type State string

const (
	StateNotShown State = "not_shown"
	StateVisible  State = "visible"
	StateClosed   State = "closed"
)

// Config fixes everything about a session at construction. Variant must
// already be resolved.
type Config struct {
	InstanceID string
	URL        string
	Variant    types.Variant
	Container  *types.Container
	Connector  connector.Connector
	Log        zerolog.Logger
}

// Session drives one widget instance. Safe for concurrent use; connector
// calls are made with the session lock held, so a Connector must not call
// back into the Inbox synchronously from Open.
type Session struct {
	mu        sync.Mutex
	cfg       Config
	mode      types.DisplayMode
	state     State
	handle    connector.Handle
	scroll    scrollLock
	listening bool
	log       zerolog.Logger
}

func New(cfg Config) *Session {
	return &Session{
		cfg:   cfg,
		mode:  cfg.Variant.Mode(),
		state: StateNotShown,
		log:   cfg.Log,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() types.DisplayMode     { return s.mode }
func (s *Session) Variant() types.Variant      { return s.cfg.Variant }
func (s *Session) URL() string                 { return s.cfg.URL }
func (s *Session) Container() *types.Container { return s.cfg.Container }

// Listening reports whether inbound messages and key presses should still
// be processed. It turns false once the widget closes.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// ScrollLocked reports whether this session holds the page scroll lock.
func (s *Session) ScrollLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll.held
}

// Show opens the widget. It is legal only once, from NOT_SHOWN. A failed
// open leaves the session in NOT_SHOWN.
func (s *Session) Show(ctx context.Context, inbox connector.Inbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateNotShown {
		return alreadyVisibleError{state: s.state}
	}
	if s.cfg.Connector == nil {
		return fmt.Errorf("show: no connector configured")
	}
	req := connector.OpenRequest{
		InstanceID: s.cfg.InstanceID,
		URL:        s.cfg.URL,
		Mode:       s.mode,
		Variant:    s.cfg.Variant,
		Inbox:      inbox,
	}
	if s.mode == types.ModeEmbedded {
		req.Container = s.cfg.Container
	}
	h, err := s.cfg.Connector.Open(ctx, req)
	if err != nil {
		return fmt.Errorf("open widget: %w", err)
	}
	s.handle = h
	s.listening = true
	s.transition(StateVisible)
	if s.mode == types.ModeOverlay {
		if err := s.scroll.acquire(h); err != nil {
			s.log.Warn().Err(err).Msg("scroll lock failed")
		}
	}
	return nil
}

// RequestClose shows the close confirmation prompt. Hosted and embedded
// widgets, the mobile overlay and an already open prompt skip it.
func (s *Session) RequestClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVisible || s.mode != types.ModeOverlay {
		return nil
	}
	if s.cfg.Variant == types.VariantMobile || s.handle.ClosePromptOpen() {
		return nil
	}
	return s.handle.ShowClosePrompt()
}

// CancelClose removes the confirmation prompt.
func (s *Session) CancelClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVisible || s.mode != types.ModeOverlay {
		return nil
	}
	return s.handle.HideClosePrompt()
}

// Reveal makes the widget frame visible once the widget reports its
// configuration outcome. Hosted widgets have no frame to reveal.
func (s *Session) Reveal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVisible || s.mode == types.ModeHosted {
		return nil
	}
	return s.handle.Reveal()
}

// HandleWidgetClose is the only transition into CLOSED. Hosted widgets
// close their window; others are detached and give the scroll lock back.
// Either way the session stops listening. Repeated calls are no-ops.
func (s *Session) HandleWidgetClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVisible {
		return nil
	}
	s.transition(StateClosed)
	s.listening = false

	var errs []error
	if s.mode == types.ModeHosted {
		if err := s.handle.Close(); err != nil {
			errs = append(errs, closeWindowError{err: err})
		}
	} else {
		if err := s.scroll.release(s.handle); err != nil {
			errs = append(errs, fmt.Errorf("release scroll lock: %w", err))
		}
		if err := s.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("detach widget: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CheckClosable reports whether the host may request a close now.
// NOT_SHOWN is an error; CLOSED is reported as already done.
func (s *Session) CheckClosable() (alreadyClosed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateNotShown:
		return false, notVisibleError{op: "close"}
	case StateClosed:
		return true, nil
	}
	return false, nil
}

// Post sends a reply envelope to the widget.
func (s *Session) Post(env types.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVisible {
		return notVisibleError{op: "post " + string(env.Type)}
	}
	return s.handle.Post(env)
}

func (s *Session) transition(to State) {
	s.state = to
	metrics.SessionTransitions.WithLabelValues(string(to), string(s.mode)).Inc()
	s.log.Debug().Str("state", string(to)).Str("mode", string(s.mode)).Msg("widget state changed")
}

// scrollLock tracks whether this session disabled page scrolling.
// acquire and release are idempotent.
type scrollLock struct{ held bool }

func (l *scrollLock) acquire(h connector.Handle) error {
	if l.held {
		return nil
	}
	if err := h.LockScroll(); err != nil {
		return err
	}
	l.held = true
	return nil
}

func (l *scrollLock) release(h connector.Handle) error {
	if !l.held {
		return nil
	}
	l.held = false
	return h.UnlockScroll()
}
