package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"checkoutsdk/internal/origin"
	"checkoutsdk/pkg/types"
)

type recordingInbox struct {
	messages chan origin.Message
	keys     chan string
	ui       chan types.EventType
}

func newRecordingInbox() *recordingInbox {
	return &recordingInbox{
		messages: make(chan origin.Message, 8),
		keys:     make(chan string, 8),
		ui:       make(chan types.EventType, 8),
	}
}

func (r *recordingInbox) HandleMessage(m origin.Message)  { r.messages <- m }
func (r *recordingInbox) HandleKey(k string)              { r.keys <- k }
func (r *recordingInbox) HandleUIEvent(t types.EventType) { r.ui <- t }

func TestMemory_RecordsCallsAndPlaysWidget(t *testing.T) {
	m := NewMemory()
	inbox := newRecordingInbox()
	h, err := m.Open(context.Background(), OpenRequest{InstanceID: "i", URL: "https://w/", Mode: types.ModeOverlay, Inbox: inbox})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = h.LockScroll()
	_ = h.ShowClosePrompt()
	if !h.ClosePromptOpen() {
		t.Fatalf("prompt should be open")
	}
	_ = h.HideClosePrompt()
	_ = h.Post(types.Envelope{Type: types.EventSendCryptoResult})
	_ = h.UnlockScroll()
	_ = h.Close()

	mh := m.Last()
	want := []string{CmdOpen, CmdLockScroll, CmdShowPrompt, CmdHidePrompt, CmdPost, CmdUnlockScroll, CmdClose}
	if got := mh.Calls(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls=%v want %v", got, want)
	}
	if !mh.Closed() || mh.ScrollLocked() || len(mh.Posted()) != 1 {
		t.Fatalf("unexpected handle state")
	}

	mh.PressKey("Escape")
	mh.Click(types.EventCloseRequest)
	mh.Deliver(origin.Message{Origin: "https://w", Data: []byte(`{}`)})
	if <-inbox.keys != "Escape" || <-inbox.ui != types.EventCloseRequest || (<-inbox.messages).Origin != "https://w" {
		t.Fatalf("inbox did not receive played input")
	}
}

func TestMemory_OpenErrors(t *testing.T) {
	m := NewMemory()
	m.OpenErr = errors.New("popup blocked")
	if _, err := m.Open(context.Background(), OpenRequest{}); err == nil {
		t.Fatalf("expected open error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory().Open(ctx, OpenRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func newBridgeServer(t *testing.T, b *Bridge) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if err := b.Attach(r.URL.Query().Get("instance"), conn); err != nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, instance string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?instance=" + instance
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return f
}

func TestBridge_BuffersCommandsUntilPageConnects(t *testing.T) {
	b := NewBridge(zerolog.Nop())
	inbox := newRecordingInbox()
	h, err := b.Open(context.Background(), OpenRequest{
		InstanceID: "inst-1",
		URL:        "https://widget.example.com/?a=1",
		Mode:       types.ModeOverlay,
		Variant:    types.VariantDesktop,
		Inbox:      inbox,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.LockScroll(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := h.Post(types.Envelope{Type: types.EventRequestCryptoAccountResult, WidgetInstanceID: "inst-1"}); err != nil {
		t.Fatalf("post: %v", err)
	}

	srv := newBridgeServer(t, b)
	conn := dial(t, srv, "inst-1")

	f := readFrame(t, conn)
	if f.Kind != KindCommand || f.Command != CmdOpen || f.Instance != "inst-1" || f.URL != "https://widget.example.com/?a=1" || f.Mode != types.ModeOverlay {
		t.Fatalf("first frame=%+v", f)
	}
	if f = readFrame(t, conn); f.Command != CmdLockScroll {
		t.Fatalf("second frame=%+v", f)
	}
	f = readFrame(t, conn)
	var env types.Envelope
	if f.Kind != KindPost || json.Unmarshal(f.Data, &env) != nil || env.Type != types.EventRequestCryptoAccountResult {
		t.Fatalf("third frame=%+v", f)
	}
	if b.Connections() != 1 {
		t.Fatalf("connections=%d", b.Connections())
	}
}

func TestBridge_ForwardsPageFramesInOrder(t *testing.T) {
	b := NewBridge(zerolog.Nop())
	inbox := newRecordingInbox()
	h, err := b.Open(context.Background(), OpenRequest{InstanceID: "inst-2", Inbox: inbox})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	srv := newBridgeServer(t, b)
	conn := dial(t, srv, "inst-2")
	readFrame(t, conn) // open

	if err := h.ShowClosePrompt(); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	readFrame(t, conn)

	frames := []Frame{
		{Kind: KindMessage, Origin: "https://widget.example.com", Data: json.RawMessage(`{"type":"WIDGET_CONFIG_DONE"}`)},
		{Kind: KindKey, Key: "Escape"},
		{Kind: KindUI, Event: types.EventCloseRequestCancelled},
	}
	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	select {
	case m := <-inbox.messages:
		if m.Origin != "https://widget.example.com" || !strings.Contains(string(m.Data), "WIDGET_CONFIG_DONE") {
			t.Fatalf("message=%+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message not forwarded")
	}
	if k := <-inbox.keys; k != "Escape" {
		t.Fatalf("key=%q", k)
	}
	if ev := <-inbox.ui; ev != types.EventCloseRequestCancelled {
		t.Fatalf("ui=%q", ev)
	}
	if h.ClosePromptOpen() {
		t.Fatalf("page-side cancel should clear prompt state")
	}
}

func TestBridge_CloseFlushesAndUnregisters(t *testing.T) {
	b := NewBridge(zerolog.Nop())
	h, err := b.Open(context.Background(), OpenRequest{InstanceID: "inst-3"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	srv := newBridgeServer(t, b)
	conn := dial(t, srv, "inst-3")
	readFrame(t, conn)

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f := readFrame(t, conn); f.Command != CmdClose {
		t.Fatalf("frame=%+v", f)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure, got %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for b.Instances() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("instance still registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := h.Reveal(); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("expected ErrHandleClosed, got %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestBridge_AttachErrors(t *testing.T) {
	b := NewBridge(zerolog.Nop())
	if err := b.Attach("missing", nil); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}
	if _, err := b.Open(context.Background(), OpenRequest{}); err == nil {
		t.Fatalf("expected error for empty instance id")
	}
	if _, err := b.Open(context.Background(), OpenRequest{InstanceID: "dup"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := b.Open(context.Background(), OpenRequest{InstanceID: "dup"}); err == nil {
		t.Fatalf("expected duplicate open error")
	}
}
