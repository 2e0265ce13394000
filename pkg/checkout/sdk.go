// Package checkout embeds the checkout widget into a host application and
// re-exposes the widget's messages as typed events.
//
//	sdk, err := checkout.New(types.HostConfig{
//		HostAppName: "My App",
//		HostLogoURL: "https://example.com/logo.png",
//	}, checkout.Options{Connector: bridge})
//	sdk.On(types.EventPurchaseCreated, func(ev types.Event) error { ... })
//	_, err = sdk.Show(ctx)
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"checkoutsdk/internal/connector"
	"checkoutsdk/internal/events"
	"checkoutsdk/internal/hostconfig"
	"checkoutsdk/internal/metrics"
	"checkoutsdk/internal/origin"
	"checkoutsdk/internal/poller"
	"checkoutsdk/internal/session"
	"checkoutsdk/internal/widgeturl"
	"checkoutsdk/pkg/types"
)

// Version is reported to the widget as sdkVersion.
var Version = "0.1.0"

type (
	Handler      = events.Handler
	Subscription = events.Subscription
	Message      = origin.Message
	ConfigError  = hostconfig.ConfigError
)

// Options carry everything that is not host configuration.
type Options struct {
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
	// Connector opens the widget. Defaults to an in-memory connector.
	Connector connector.Connector
	// Viewport resolves the auto variants.
	Viewport types.Viewport
	// HTTPClient is used by the status poller.
	HTTPClient   *http.Client
	PollInterval time.Duration
	SDKVersion   string
	// HostURL is the origin of the embedding page.
	HostURL string
	// Context bounds background work. Defaults to context.Background.
	Context context.Context

	OnRequestCryptoAccount func(context.Context, types.CryptoAccountRequest) (types.CryptoAccountResult, error)
	// OnSendCrypto also advertises send-crypto support in the widget URL.
	OnSendCrypto func(context.Context, types.SendCryptoRequest) (types.SendCryptoResult, error)
}

var errNoCallback = errors.New("no callback installed by the host application")

// SDK is one widget instance.
type SDK struct {
	id    string
	cfg   types.HostConfig
	diags []ConfigError
	url   string
	opts  Options
	log   zerolog.Logger

	reg       *events.Registry
	sess      *session.Session
	poll      *poller.Poller
	validator origin.Validator

	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	bgMu    sync.Mutex
	stopped bool
	install sync.Once
}

// New normalises cfg and prepares a widget instance. Invalid config fields
// are replaced and reported through Diagnostics; only embed anchor
// violations are returned as errors.
func New(cfg types.HostConfig, opts Options) (*SDK, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if opts.Connector == nil {
		opts.Connector = connector.NewMemory()
	}
	if opts.SDKVersion == "" {
		opts.SDKVersion = Version
	}
	base := opts.Context
	if base == nil {
		base = context.Background()
	}

	norm, diags, err := hostconfig.Normalize(cfg, log)
	if err != nil {
		return nil, err
	}
	norm.Variant = hostconfig.ResolveVariant(norm.Variant, opts.Viewport)

	id := uuid.NewString()
	log = log.With().Str("instance", id).Logger()
	widgetURL, err := widgeturl.Build(norm, widgeturl.Params{
		SDKVersion:         opts.SDKVersion,
		InstanceID:         id,
		Variant:            norm.Variant,
		HostURL:            opts.HostURL,
		SendCryptoCallback: opts.OnSendCrypto != nil,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(base)
	s := &SDK{
		id:        id,
		cfg:       norm,
		diags:     diags,
		url:       widgetURL,
		opts:      opts,
		log:       log,
		reg:       events.NewRegistry(log),
		validator: origin.Validator{WidgetURL: widgeturl.BaseURL(norm), InstanceID: id},
		ctx:       ctx,
		cancel:    cancel,
		group:     &errgroup.Group{},
	}
	s.sess = session.New(session.Config{
		InstanceID: id,
		URL:        widgetURL,
		Variant:    norm.Variant,
		Container:  norm.ContainerNode,
		Connector:  opts.Connector,
		Log:        log,
	})
	s.poll = poller.New(poller.Config{
		Client:     poller.NewClient(opts.HTTPClient, 10*time.Second),
		Interval:   opts.PollInterval,
		InstanceID: id,
		Interested: s.terminalInterest,
		Dispatch:   s.reg.Dispatch,
		Spawn:      s.goBackground,
		Log:        log,
	})
	s.reg.OnSubscribe(s.postSubscribe)
	return s, nil
}

// ID is the instance token correlating widget messages to this SDK.
func (s *SDK) ID() string { return s.id }

// WidgetURL is the URL the widget is opened with.
func (s *SDK) WidgetURL() string { return s.url }

// Config returns the normalised host configuration with the resolved variant.
func (s *SDK) Config() types.HostConfig { return s.cfg }

// Diagnostics lists the configuration problems found by New.
func (s *SDK) Diagnostics() []ConfigError { return append([]ConfigError(nil), s.diags...) }

// On subscribes h to t, or to every event type when t is "*". An unknown
// type is logged and ignored.
func (s *SDK) On(t types.EventType, h Handler) *Subscription {
	return s.reg.Subscribe(t, h, false)
}

// Unsubscribe removes sub from t, or from every event type when t is "*".
func (s *SDK) Unsubscribe(t types.EventType, sub *Subscription) *SDK {
	s.reg.Unsubscribe(t, sub)
	return s
}

// Show opens the widget. It may succeed only once per instance.
func (s *SDK) Show(ctx context.Context) (*SDK, error) {
	if s.sess.State() == session.StateNotShown {
		s.install.Do(s.registerInternalHandlers)
	}
	if err := s.sess.Show(ctx, s); err != nil {
		return s, err
	}
	s.log.Info().Str("mode", string(s.sess.Mode())).Str("variant", string(s.cfg.Variant)).Msg("widget shown")
	return s, nil
}

// Close closes a visible widget the same way the widget closing itself
// does, including notifying WIDGET_CLOSE listeners. Closing a closed
// widget is a no-op; closing a widget that was never shown is an error.
func (s *SDK) Close() (*SDK, error) {
	done, err := s.sess.CheckClosable()
	if err != nil || done {
		return s, err
	}
	return s, s.reg.Dispatch(types.WidgetCloseEvent{Meta: types.Meta{WidgetInstanceID: s.id}})
}

// Wait blocks until background work (status polling, crypto callbacks)
// has finished. It must not run concurrently with On, HandleMessage or
// Show; use Shutdown to stop an instance that is still receiving input.
func (s *SDK) Wait() error { return s.group.Wait() }

// Shutdown cancels background work and waits for it. No background work
// starts afterwards. Listeners stay registered.
func (s *SDK) Shutdown() error {
	s.bgMu.Lock()
	s.stopped = true
	s.bgMu.Unlock()
	s.cancel()
	return s.group.Wait()
}

// Status summarises the instance for the daemon's status endpoint.
func (s *SDK) Status() types.SessionStatus {
	listeners := make(map[types.EventType]int)
	for _, t := range types.RegistryEventTypes() {
		if !t.Public() {
			continue
		}
		if n := s.reg.Count(t, false); n > 0 {
			listeners[t] = n
		}
	}
	return types.SessionStatus{
		InstanceID: s.id,
		State:      string(s.sess.State()),
		Mode:       s.sess.Mode(),
		Variant:    s.cfg.Variant,
		WidgetURL:  s.url,
		Listeners:  listeners,
		Polling:    s.poll.Running(),
	}
}

// HandleMessage validates a cross-window message and dispatches it.
// Anything not addressed to this instance is dropped silently.
func (s *SDK) HandleMessage(msg Message) {
	if !s.sess.Listening() {
		s.drop(metrics.DropDetached, "")
		return
	}
	env, reason := s.validator.Accept(msg)
	if reason != "" {
		s.drop(reason, msg.Origin)
		return
	}
	ev, err := types.DecodeEvent(env)
	if err != nil {
		s.log.Debug().Err(err).Msg("undecodable widget message")
		s.drop(metrics.DropMalformed, msg.Origin)
		return
	}
	if send, ok := ev.(types.SendCryptoEvent); ok && send.EventVersion != types.SendCryptoSupportedVersion {
		s.log.Warn().Int("event_version", send.EventVersion).Msg("unsupported SEND_CRYPTO version, ignoring")
		s.drop(metrics.DropVersion, msg.Origin)
		return
	}
	s.dispatch(ev)
}

// HandleKey turns Escape into a close request.
func (s *SDK) HandleKey(key string) {
	if !s.sess.Listening() {
		return
	}
	if key == "Escape" || key == "Esc" {
		s.dispatch(types.CloseRequestEvent{Meta: types.Meta{Internal: true}})
	}
}

// HandleUIEvent accepts the close-request interactions raised by
// SDK-rendered UI: overlay click and the prompt's two buttons.
func (s *SDK) HandleUIEvent(t types.EventType) {
	if !s.sess.Listening() {
		return
	}
	meta := types.Meta{Internal: true}
	switch t {
	case types.EventCloseRequest:
		s.dispatch(types.CloseRequestEvent{Meta: meta})
	case types.EventCloseRequestCancelled:
		s.dispatch(types.CloseRequestCancelledEvent{Meta: meta})
	case types.EventCloseRequestConfirmed:
		s.dispatch(types.CloseRequestConfirmedEvent{Meta: meta})
	default:
		s.log.Debug().Str("event", string(t)).Msg("ignoring ui event")
	}
}

func (s *SDK) dispatch(ev types.Event) {
	if err := s.reg.Dispatch(ev); err != nil {
		s.log.Warn().Err(err).Str("event", string(ev.Type())).Msg("event handler failed")
	}
}

func (s *SDK) drop(reason, from string) {
	metrics.MessagesDropped.WithLabelValues(reason).Inc()
	s.log.Debug().Str("reason", reason).Str("origin", from).Msg("widget message dropped")
}

// goBackground runs f in the instance's task group unless Shutdown has
// begun. The group is never grown while Shutdown waits on it.
func (s *SDK) goBackground(f func()) bool {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.stopped {
		return false
	}
	s.group.Go(func() error {
		f()
		return nil
	})
	return true
}

func (s *SDK) terminalInterest() bool {
	return s.reg.Count(types.EventPurchaseSuccessful, false) > 0 ||
		s.reg.Count(types.EventPurchaseFailed, false) > 0
}

// postSubscribe re-arms polling for a host that subscribes to a terminal
// event after the purchase was created.
func (s *SDK) postSubscribe(t types.EventType, internal bool) {
	if internal {
		return
	}
	if t == types.EventAll || t.Terminal() {
		s.poll.Arm(s.ctx)
	}
}

func (s *SDK) registerInternalHandlers() {
	on := func(t types.EventType, h Handler) { s.reg.Subscribe(t, h, true) }

	on(types.EventWidgetClose, func(types.Event) error {
		return s.sess.HandleWidgetClose()
	})
	reveal := func(types.Event) error { return s.sess.Reveal() }
	on(types.EventWidgetConfigDone, reveal)
	on(types.EventWidgetConfigFailed, reveal)

	on(types.EventCloseRequest, func(types.Event) error {
		return s.sess.RequestClose()
	})
	on(types.EventCloseRequestConfirmed, func(types.Event) error {
		return s.reg.Dispatch(types.WidgetCloseEvent{Meta: types.Meta{WidgetInstanceID: s.id}})
	})
	on(types.EventCloseRequestCancelled, func(types.Event) error {
		return s.sess.CancelClose()
	})

	on(types.EventPurchaseCreated, func(ev types.Event) error {
		created, ok := ev.(types.PurchaseCreatedEvent)
		if !ok {
			return fmt.Errorf("unexpected %T for %s", ev, ev.Type())
		}
		s.poll.Store(s.ctx, poller.Credentials{
			BaseURL:    created.Payload.APIURL,
			ResourceID: created.Payload.Purchase.ID,
			Token:      created.Payload.PurchaseViewToken,
		})
		return nil
	})
	// A terminal event pushed by the widget ends polling for the purchase.
	settle := func(types.Event) error {
		s.poll.Settle()
		return nil
	}
	on(types.EventPurchaseSuccessful, settle)
	on(types.EventPurchaseFailed, settle)

	on(types.EventRequestCryptoAccount, func(ev types.Event) error {
		req, ok := ev.(types.RequestCryptoAccountEvent)
		if !ok {
			return fmt.Errorf("unexpected %T for %s", ev, ev.Type())
		}
		if !s.goBackground(func() { s.replyCryptoAccount(req.Payload) }) {
			s.log.Debug().Msg("shut down, crypto account request not answered")
		}
		return nil
	})
	on(types.EventSendCrypto, func(ev types.Event) error {
		req, ok := ev.(types.SendCryptoEvent)
		if !ok {
			return fmt.Errorf("unexpected %T for %s", ev, ev.Type())
		}
		if !s.goBackground(func() { s.replySendCrypto(req.Payload) }) {
			s.log.Debug().Msg("shut down, send crypto request not answered")
		}
		return nil
	})
}

func (s *SDK) replyCryptoAccount(req types.CryptoAccountRequest) {
	var (
		res types.CryptoAccountResult
		err = errNoCallback
	)
	if cb := s.opts.OnRequestCryptoAccount; cb != nil {
		res, err = cb(s.ctx, req)
	}
	env, mErr := types.CryptoAccountResultEnvelope(s.id, res, err)
	s.post(env, mErr)
}

func (s *SDK) replySendCrypto(req types.SendCryptoRequest) {
	var (
		res types.SendCryptoResult
		err = errNoCallback
	)
	if cb := s.opts.OnSendCrypto; cb != nil {
		res, err = cb(s.ctx, req)
	}
	env, mErr := types.SendCryptoResultEnvelope(s.id, res, err)
	s.post(env, mErr)
}

func (s *SDK) post(env types.Envelope, buildErr error) {
	if buildErr != nil {
		s.log.Warn().Err(buildErr).Msg("could not build widget reply")
		return
	}
	if err := s.sess.Post(env); err != nil {
		s.log.Warn().Err(err).Str("event", string(env.Type)).Msg("could not reply to widget")
	}
}
