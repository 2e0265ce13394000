// Package origin decides whether an inbound cross-window message is
// addressed to this SDK instance and came from the widget's origin.
package origin

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"checkoutsdk/internal/metrics"
	"checkoutsdk/pkg/types"
)

// Message is one inbound cross-window message as seen by the host page.
type Message struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// Validator holds the expectations of a single SDK instance.
type Validator struct {
	// WidgetURL is the configured (or default) widget base URL.
	WidgetURL  string
	InstanceID string
}

// Accept returns the decoded envelope and an empty reason when msg passes
// every check. Otherwise it returns one of the metrics.Drop* reasons.
// Rejections are not errors: the message channel is shared with browser
// extensions and other widgets.
func (v Validator) Accept(msg Message) (types.Envelope, string) {
	data := bytes.TrimSpace(msg.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return types.Envelope{}, metrics.DropEmpty
	}
	if !SameOrigin(msg.Origin, v.WidgetURL) {
		return types.Envelope{}, metrics.DropOrigin
	}
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return types.Envelope{}, metrics.DropMalformed
	}
	if env.WidgetInstanceID == "" || env.WidgetInstanceID != v.InstanceID {
		return types.Envelope{}, metrics.DropInstance
	}
	if !env.Type.Inbound() {
		return types.Envelope{}, metrics.DropUnknownType
	}
	return env, ""
}

// SameOrigin compares two URLs by scheme and hostname. The port is not
// compared: some environments proxy the widget on a different port than
// the one configured.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	if ua.Hostname() == "" || ub.Hostname() == "" {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Hostname(), ub.Hostname())
}

// Concat joins base and path with exactly one slash between them.
func Concat(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
