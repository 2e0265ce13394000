package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"checkoutsdk/internal/origin"
	"checkoutsdk/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkPageOrigin,
}

// checkPageOrigin accepts handshakes from the configured page origins, or
// from anywhere when none are configured.
func checkPageOrigin(r *http.Request) bool {
	from := r.Header.Get("Origin")
	if from == "" {
		return true
	}
	for _, allowed := range corsOrigins() {
		if allowed == "*" || origin.SameOrigin(allowed, from) {
			return true
		}
	}
	return false
}

// serveWS upgrades a page shim connection. With ?instance=ID the page
// attaches to a session opened through POST /sessions; without it a
// session with the configured widget is opened for this connection.
func serveWS(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("instance")
		if id != "" {
			if _, err := svc.Session(id); err != nil {
				writeServiceError(w, err)
				return
			}
		} else if !svc.Ready() {
			writeJSONError(w, http.StatusServiceUnavailable, "not accepting sessions")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied.
			zlog.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		if id == "" {
			ctx, cancel := requestContext(r)
			st, err := svc.Open(ctx, types.OpenSessionRequest{})
			cancel()
			if err != nil {
				closeWithError(conn, err)
				return
			}
			id = st.InstanceID
		}
		if err := svc.Attach(id, conn); err != nil {
			closeWithError(conn, err)
			return
		}
		zlog.Debug().Str("instance", id).Msg("page attached")
	}
}

func closeWithError(conn *websocket.Conn, err error) {
	code := websocket.CloseInternalServerErr
	switch statusFor(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		code = websocket.CloseTryAgainLater
	case http.StatusNotFound, http.StatusConflict, http.StatusBadRequest:
		code = websocket.ClosePolicyViolation
	}
	reason := err.Error()
	if len(reason) > 120 {
		reason = reason[:120]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
	zlog.Info().Err(err).Msg("page connection refused")
}
