// Package manager owns the widget sessions of the bridge daemon. Each
// session is one checkout SDK instance whose widget is relayed to a page
// shim over the websocket bridge. It is structured into small files by
// concern:
//
//   - manager.go: core Manager type, Open/Attach/CloseSession lifecycle.
//   - config.go: Config and package defaults; New applies defaults.
//   - errors.go: error types and helpers (IsTooBusy, IsSessionNotFound).
//   - events.go: lifecycle events and the EventPublisher sink.
//   - status_report.go: Status and Session reporting for /status.
//
// External packages should treat this package as the orchestration layer
// and use public methods only.
package manager
