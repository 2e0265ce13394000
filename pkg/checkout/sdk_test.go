package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"checkoutsdk/internal/connector"
	"checkoutsdk/internal/hostconfig"
	"checkoutsdk/internal/session"
	"checkoutsdk/pkg/types"
)

const widgetOrigin = "https://app.ramp.network"

func minimalConfig() types.HostConfig {
	return types.HostConfig{
		HostAppName: "Test",
		HostLogoURL: "http://x/y.png",
		SwapAsset:   "ETH",
		SwapAmount:  "100",
	}
}

func newSDK(t *testing.T, cfg types.HostConfig, opts Options) (*SDK, *connector.Memory) {
	t.Helper()
	mem := connector.NewMemory()
	if opts.Connector == nil {
		opts.Connector = mem
	}
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	return s, mem
}

func widgetMessage(t *testing.T, instance string, typ types.EventType, payload any) Message {
	t.Helper()
	env := map[string]any{"type": typ, "payload": payload, "widgetInstanceId": instance}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return Message{Origin: widgetOrigin, Data: b}
}

type collector struct {
	mu     sync.Mutex
	events []types.Event
}

func (c *collector) handle(ev types.Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *collector) seen() []types.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.EventType, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type())
	}
	return out
}

func TestShowTwiceFails(t *testing.T) {
	s, _ := newSDK(t, minimalConfig(), Options{})
	if _, err := s.Show(context.Background()); err != nil {
		t.Fatalf("first show: %v", err)
	}
	if _, err := s.Show(context.Background()); !session.IsAlreadyVisible(err) {
		t.Fatalf("expected already visible, got %v", err)
	}
}

func TestNew_WidgetURLAndDiagnostics(t *testing.T) {
	cfg := minimalConfig()
	cfg.Variant = "bogus"
	s, _ := newSDK(t, cfg, Options{HostURL: "https://shop.example.com", OnSendCrypto: func(context.Context, types.SendCryptoRequest) (types.SendCryptoResult, error) {
		return types.SendCryptoResult{}, nil
	}})
	u, err := url.Parse(s.WidgetURL())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("widgetInstanceId") != s.ID() || q.Get("variant") != "desktop" || q.Get("hostUrl") != "https://shop.example.com" || q.Get("useSendCryptoCallbackVersion") != "1" {
		t.Fatalf("unexpected url %s", s.WidgetURL())
	}
	if len(s.Diagnostics()) != 1 || s.Diagnostics()[0].FieldName != "variant" {
		t.Fatalf("diagnostics=%+v", s.Diagnostics())
	}
}

func TestNew_EmbeddedRequiresContainer(t *testing.T) {
	cfg := minimalConfig()
	cfg.Variant = types.VariantEmbeddedDesktop
	if _, err := New(cfg, Options{}); !errors.Is(err, hostconfig.ErrContainerRequired) {
		t.Fatalf("expected container error, got %v", err)
	}
	cfg.ContainerNode = &types.Container{ID: "a", Width: 100, Height: 100, Attached: true}
	if _, err := New(cfg, Options{}); !hostconfig.IsContainerTooSmall(err) {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestNew_AutoVariantUsesViewport(t *testing.T) {
	cfg := minimalConfig()
	cfg.Variant = types.VariantAuto
	s, _ := newSDK(t, cfg, Options{Viewport: types.Viewport{Width: 375, Height: 812}})
	if s.Config().Variant != types.VariantMobile {
		t.Fatalf("variant=%s", s.Config().Variant)
	}
}

func TestMessagesAreValidatedBeforeDispatch(t *testing.T) {
	s, mem := newSDK(t, minimalConfig(), Options{})
	var c collector
	s.On(types.EventAll, c.handle)
	_, _ = s.Show(context.Background())
	h := mem.Last()

	h.Deliver(widgetMessage(t, "someone-else", types.EventWidgetConfigDone, nil))
	bad := widgetMessage(t, s.ID(), types.EventWidgetConfigDone, nil)
	bad.Origin = "https://evil.example.com"
	h.Deliver(bad)
	h.Deliver(Message{Origin: widgetOrigin})
	if len(c.seen()) != 0 {
		t.Fatalf("invalid messages dispatched: %v", c.seen())
	}

	h.Deliver(widgetMessage(t, s.ID(), types.EventWidgetConfigDone, nil))
	if got := c.seen(); len(got) != 1 || got[0] != types.EventWidgetConfigDone {
		t.Fatalf("got %v", got)
	}
	calls := h.Calls()
	if calls[len(calls)-1] != connector.CmdReveal {
		t.Fatalf("config done did not reveal: %v", calls)
	}
}

func TestCloseConfirmationFlow(t *testing.T) {
	s, mem := newSDK(t, minimalConfig(), Options{})
	var c collector
	s.On(types.EventWidgetClose, c.handle)
	_, _ = s.Show(context.Background())
	h := mem.Last()
	if !h.ScrollLocked() {
		t.Fatalf("overlay should lock scroll")
	}

	h.PressKey("Escape")
	if !h.ClosePromptOpen() {
		t.Fatalf("escape should open the close prompt")
	}
	h.Click(types.EventCloseRequestCancelled)
	if h.ClosePromptOpen() {
		t.Fatalf("cancel should hide the prompt")
	}
	h.Click(types.EventCloseRequest)
	h.Click(types.EventCloseRequestConfirmed)

	if got := c.seen(); len(got) != 1 || got[0] != types.EventWidgetClose {
		t.Fatalf("host listeners got %v", got)
	}
	if !h.Closed() || h.ScrollLocked() || s.Status().State != string(session.StateClosed) {
		t.Fatalf("widget not torn down: %+v", s.Status())
	}

	// listeners survive, inbound handling does not
	h.Deliver(widgetMessage(t, s.ID(), types.EventWidgetClose, nil))
	h.PressKey("Escape")
	if len(c.seen()) != 1 {
		t.Fatalf("message handled after close")
	}
	if s.Status().Listeners[types.EventWidgetClose] != 1 {
		t.Fatalf("listeners were torn down")
	}
}

func TestCloseRequestOnMobileSkipsPrompt(t *testing.T) {
	cfg := minimalConfig()
	cfg.Variant = types.VariantMobile
	s, mem := newSDK(t, cfg, Options{})
	_, _ = s.Show(context.Background())
	h := mem.Last()
	h.Deliver(widgetMessage(t, s.ID(), types.EventCloseRequest, nil))
	if h.ClosePromptOpen() {
		t.Fatalf("mobile overlay must not show a prompt")
	}
}

func TestCloseAPI(t *testing.T) {
	s, mem := newSDK(t, minimalConfig(), Options{})
	if _, err := s.Close(); !session.IsNotVisible(err) {
		t.Fatalf("close before show: %v", err)
	}
	var c collector
	s.On(types.EventWidgetClose, c.handle)
	_, _ = s.Show(context.Background())
	if _, err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(c.seen()) != 1 || !mem.Last().Closed() {
		t.Fatalf("close not delivered exactly once: %v", c.seen())
	}
}

func TestHostedCloseWindowFailureSurfaces(t *testing.T) {
	cfg := minimalConfig()
	cfg.Variant = types.VariantHostedDesktop
	mem := connector.NewMemory()
	mem.CloseErr = errors.New("window gone")
	s, _ := newSDK(t, cfg, Options{Connector: mem})
	_, _ = s.Show(context.Background())
	if _, err := s.Close(); !session.IsCloseWindow(err) {
		t.Fatalf("expected close window error, got %v", err)
	}
}

func TestHandlerFailureDoesNotBlockSiblings(t *testing.T) {
	s, mem := newSDK(t, minimalConfig(), Options{})
	var c collector
	s.On(types.EventWidgetConfigFailed, func(types.Event) error { panic("host bug") })
	s.On(types.EventWidgetConfigFailed, c.handle)
	_, _ = s.Show(context.Background())
	mem.Last().Deliver(widgetMessage(t, s.ID(), types.EventWidgetConfigFailed, nil))
	if len(c.seen()) != 1 {
		t.Fatalf("sibling handler skipped")
	}
}

func statusServer(t *testing.T, status string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/host-api/purchase/p-9") || r.URL.Query().Get("secret") != "view" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(types.Purchase{ID: "p-9", Actions: []types.Action{{NewStatus: status}}})
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func purchaseCreated(apiURL string) types.PurchaseCreatedPayload {
	return types.PurchaseCreatedPayload{
		Purchase:          types.Purchase{ID: "p-9"},
		PurchaseViewToken: "view",
		APIURL:            apiURL,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPollingDeliversSuccessAfterWidgetClosed(t *testing.T) {
	srv, _ := statusServer(t, types.ActionStatusReleased)
	s, mem := newSDK(t, minimalConfig(), Options{HTTPClient: srv.Client(), PollInterval: 5 * time.Millisecond})
	var c collector
	s.On(types.EventPurchaseSuccessful, c.handle)
	_, _ = s.Show(context.Background())
	h := mem.Last()
	h.Deliver(widgetMessage(t, s.ID(), types.EventPurchaseCreated, purchaseCreated(srv.URL)))
	h.Deliver(widgetMessage(t, s.ID(), types.EventWidgetClose, nil))

	waitFor(t, func() bool { return len(c.seen()) == 1 })
	if err := s.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	ev := c.events[0].(types.PurchaseSuccessfulEvent)
	if ev.Payload.Purchase.ID != "p-9" || ev.InstanceID() != s.ID() {
		t.Fatalf("event=%+v", ev)
	}
}

func TestPollingNeedsExternalListenerAndReArms(t *testing.T) {
	srv, hits := statusServer(t, types.ActionStatusError)
	s, mem := newSDK(t, minimalConfig(), Options{HTTPClient: srv.Client(), PollInterval: 5 * time.Millisecond})
	_, _ = s.Show(context.Background())
	mem.Last().Deliver(widgetMessage(t, s.ID(), types.EventPurchaseCreated, purchaseCreated(srv.URL)))

	time.Sleep(30 * time.Millisecond)
	if hits.Load() != 0 || s.Status().Polling {
		t.Fatalf("polled without listeners")
	}

	var c collector
	s.On(types.EventPurchaseFailed, c.handle)
	waitFor(t, func() bool { return len(c.seen()) == 1 })
	if c.seen()[0] != types.EventPurchaseFailed {
		t.Fatalf("got %v", c.seen())
	}
}

func TestCryptoCallbacksReply(t *testing.T) {
	s, mem := newSDK(t, minimalConfig(), Options{
		OnSendCrypto: func(_ context.Context, req types.SendCryptoRequest) (types.SendCryptoResult, error) {
			if req.Amount != "5" {
				return types.SendCryptoResult{}, errors.New("bad amount")
			}
			return types.SendCryptoResult{TxHash: "0xabc"}, nil
		},
	})
	_, _ = s.Show(context.Background())
	h := mem.Last()

	h.Deliver(widgetMessage(t, s.ID(), types.EventRequestCryptoAccount, types.CryptoAccountRequest{Type: "ETHEREUM", AssetSymbol: "ETH"}))
	send := map[string]any{
		"type":             types.EventSendCrypto,
		"payload":          types.SendCryptoRequest{Amount: "5", Address: "0x1"},
		"widgetInstanceId": s.ID(),
		"eventVersion":     1,
	}
	b, _ := json.Marshal(send)
	h.Deliver(Message{Origin: widgetOrigin, Data: b})
	send["eventVersion"] = 2
	b, _ = json.Marshal(send)
	h.Deliver(Message{Origin: widgetOrigin, Data: b})

	if err := s.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	posted := h.Posted()
	if len(posted) != 2 {
		t.Fatalf("posted=%+v", posted)
	}
	byType := map[types.EventType]types.Envelope{}
	for _, env := range posted {
		byType[env.Type] = env
	}
	acct := byType[types.EventRequestCryptoAccountResult]
	if !strings.Contains(string(acct.Payload), `"error"`) || acct.WidgetInstanceID != s.ID() {
		t.Fatalf("account reply=%s", acct.Payload)
	}
	sent := byType[types.EventSendCryptoResult]
	if sent.EventVersion != 1 || !strings.Contains(string(sent.Payload), "0xabc") {
		t.Fatalf("send reply=%+v payload=%s", sent, sent.Payload)
	}
}

func TestUnknownEventSubscriptionIsHarmless(t *testing.T) {
	s, _ := newSDK(t, minimalConfig(), Options{})
	sub := s.On("NOT_AN_EVENT", func(types.Event) error { return nil })
	if s.Unsubscribe("NOT_AN_EVENT", sub) != s {
		t.Fatalf("unsubscribe must chain")
	}
}

func TestSendCryptoVersionMismatchIsNotDispatched(t *testing.T) {
	s, mem := newSDK(t, minimalConfig(), Options{})
	var exact, all collector
	s.On(types.EventSendCrypto, exact.handle)
	s.On(types.EventAll, all.handle)
	_, _ = s.Show(context.Background())

	b, _ := json.Marshal(map[string]any{
		"type":             types.EventSendCrypto,
		"payload":          types.SendCryptoRequest{Amount: "5", Address: "0x1"},
		"widgetInstanceId": s.ID(),
		"eventVersion":     2,
	})
	h := mem.Last()
	h.Deliver(Message{Origin: widgetOrigin, Data: b})
	if err := s.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := exact.seen(); len(got) != 0 {
		t.Fatalf("SEND_CRYPTO listener saw %v", got)
	}
	if got := all.seen(); len(got) != 0 {
		t.Fatalf("wildcard listener saw %v", got)
	}
	if posted := h.Posted(); len(posted) != 0 {
		t.Fatalf("replied to unsupported version: %+v", posted)
	}
}

func TestPushedTerminalEventSettlesPolling(t *testing.T) {
	srv, hits := statusServer(t, types.ActionStatusReleased)
	s, mem := newSDK(t, minimalConfig(), Options{HTTPClient: srv.Client(), PollInterval: 20 * time.Millisecond})
	var c collector
	s.On(types.EventPurchaseSuccessful, c.handle)
	_, _ = s.Show(context.Background())
	h := mem.Last()
	h.Deliver(widgetMessage(t, s.ID(), types.EventPurchaseCreated, purchaseCreated(srv.URL)))
	if !s.Status().Polling {
		t.Fatalf("purchase created without polling")
	}
	h.Deliver(widgetMessage(t, s.ID(), types.EventPurchaseSuccessful, types.PurchaseSuccessfulPayload{Purchase: types.Purchase{ID: "p-9"}}))

	waitFor(t, func() bool { return !s.Status().Polling })
	time.Sleep(60 * time.Millisecond)
	if got := c.seen(); len(got) != 1 {
		t.Fatalf("PURCHASE_SUCCESSFUL delivered %d times (fetches=%d)", len(got), hits.Load())
	}
	s.On(types.EventPurchaseFailed, c.handle)
	if s.Status().Polling {
		t.Fatalf("late subscriber re-armed a settled purchase")
	}
}

func TestShutdownRefusesBackgroundWork(t *testing.T) {
	s, mem := newSDK(t, minimalConfig(), Options{
		OnRequestCryptoAccount: func(context.Context, types.CryptoAccountRequest) (types.CryptoAccountResult, error) {
			return types.CryptoAccountResult{}, nil
		},
	})
	_, _ = s.Show(context.Background())
	if err := s.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if s.goBackground(func() {}) {
		t.Fatalf("background work started after shutdown")
	}
	h := mem.Last()
	h.Deliver(widgetMessage(t, s.ID(), types.EventRequestCryptoAccount, types.CryptoAccountRequest{Type: "ETHEREUM", AssetSymbol: "ETH"}))
	if err := s.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if posted := h.Posted(); len(posted) != 0 {
		t.Fatalf("replied after shutdown: %+v", posted)
	}
}
