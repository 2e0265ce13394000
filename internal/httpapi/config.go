package httpapi

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// CORS configuration. With no origins configured every origin is allowed,
// for both the JSON endpoints and the websocket handshake.
var corsAllowedOrigins []string

// SetAllowedOrigins configures the page origins the daemon serves.
func SetAllowedOrigins(origins []string) {
	corsAllowedOrigins = append([]string(nil), origins...)
}
