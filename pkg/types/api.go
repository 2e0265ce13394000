package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unknown instance
	Error string `json:"error" example:"unknown instance"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// SessionStatus summarizes one SDK instance for GET /status.
type SessionStatus struct {
	// Instance token correlating widget messages to this SDK.
	InstanceID string `json:"instance_id"`
	// Visibility state: not_shown, visible or closed.
	State string `json:"state"`
	// Display mode: overlay, embedded or hosted.
	Mode DisplayMode `json:"mode"`
	// Resolved widget variant.
	Variant Variant `json:"variant"`
	// URL the widget was opened with.
	WidgetURL string `json:"widget_url"`
	// Number of host (non-internal) listeners per event type.
	Listeners map[EventType]int `json:"listeners"`
	// Whether the status poller is currently running.
	Polling bool `json:"polling"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Sessions []SessionStatus `json:"sessions"`
	// Number of page shims currently connected over the websocket.
	Connections int `json:"connections"`
	// Uptime of the daemon in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// OpenSessionRequest is the optional body of POST /sessions. Set fields
// override the daemon's configured widget for this session only.
type OpenSessionRequest struct {
	Variant     Variant    `json:"variant,omitempty"`
	Viewport    *Viewport  `json:"viewport,omitempty"`
	Container   *Container `json:"containerNode,omitempty"`
	SwapAsset   string     `json:"swapAsset,omitempty"`
	SwapAmount  string     `json:"swapAmount,omitempty"`
	UserAddress string     `json:"userAddress,omitempty"`
}
