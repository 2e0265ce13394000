package types

// EventType is the discriminator carried in the `type` field of every
// widget message. The set is closed: anything not declared here is dropped.
type EventType string

// Public widget events.
const (
	EventWidgetClose        EventType = "WIDGET_CLOSE"
	EventWidgetConfigDone   EventType = "WIDGET_CONFIG_DONE"
	EventWidgetConfigFailed EventType = "WIDGET_CONFIG_FAILED"
	EventPurchaseCreated    EventType = "PURCHASE_CREATED"
	EventOfframpSaleCreated EventType = "OFFRAMP_SALE_CREATED"
	// Terminal outcomes. Pushed by some widget deployments, otherwise
	// produced by the status poller.
	EventPurchaseSuccessful EventType = "PURCHASE_SUCCESSFUL"
	EventPurchaseFailed     EventType = "PURCHASE_FAILED"
)

// Internal events drive the SDK's own state machine.
const (
	EventCloseRequest          EventType = "WIDGET_CLOSE_REQUEST"
	EventCloseRequestCancelled EventType = "WIDGET_CLOSE_REQUEST_CANCELLED"
	EventCloseRequestConfirmed EventType = "WIDGET_CLOSE_REQUEST_CONFIRMED"
	EventRequestCryptoAccount  EventType = "REQUEST_CRYPTO_ACCOUNT"
	EventSendCrypto            EventType = "SEND_CRYPTO"
)

// Replies the SDK posts back to the widget. They never enter the listener registry.
const (
	EventRequestCryptoAccountResult EventType = "REQUEST_CRYPTO_ACCOUNT_RESULT"
	EventSendCryptoResult           EventType = "SEND_CRYPTO_RESULT"
)

// EventAll subscribes to (or unsubscribes from) every known event type.
const EventAll EventType = "*"

// SendCryptoSupportedVersion is the only SEND_CRYPTO / SEND_CRYPTO_RESULT
// eventVersion this SDK speaks.
const SendCryptoSupportedVersion = 1

var publicEventTypes = []EventType{
	EventWidgetClose,
	EventWidgetConfigDone,
	EventWidgetConfigFailed,
	EventPurchaseCreated,
	EventOfframpSaleCreated,
	EventPurchaseSuccessful,
	EventPurchaseFailed,
}

var internalEventTypes = []EventType{
	EventCloseRequest,
	EventCloseRequestCancelled,
	EventCloseRequestConfirmed,
	EventRequestCryptoAccount,
	EventSendCrypto,
}

// RegistryEventTypes returns every type that owns a listener list, public
// types first, in declaration order.
func RegistryEventTypes() []EventType {
	out := make([]EventType, 0, len(publicEventTypes)+len(internalEventTypes))
	out = append(out, publicEventTypes...)
	return append(out, internalEventTypes...)
}

// Known reports whether t owns a listener list.
func (t EventType) Known() bool {
	for _, k := range publicEventTypes {
		if k == t {
			return true
		}
	}
	for _, k := range internalEventTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Public reports whether t is part of the host-facing event surface.
func (t EventType) Public() bool {
	for _, k := range publicEventTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Inbound reports whether the widget is allowed to send t across the
// origin boundary. Close confirmation/cancellation only ever originate
// from the SDK's own prompt and are rejected when they arrive as messages.
func (t EventType) Inbound() bool {
	switch t {
	case EventCloseRequestCancelled, EventCloseRequestConfirmed:
		return false
	}
	return t.Known()
}

// Terminal reports whether t ends the lifecycle of a purchase.
func (t EventType) Terminal() bool {
	return t == EventPurchaseSuccessful || t == EventPurchaseFailed
}
