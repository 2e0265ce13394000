package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEventType is returned when an envelope carries a type outside the closed set.
var ErrUnknownEventType = errors.New("unknown event type")

// Envelope is the wire shape of every message exchanged with the widget.
type Envelope struct {
	Type             EventType       `json:"type"`
	Payload          json.RawMessage `json:"payload"`
	WidgetInstanceID string          `json:"widgetInstanceId,omitempty"`
	Internal         bool            `json:"internal,omitempty"`
	EventVersion     int             `json:"eventVersion,omitempty"`
}

// Event is implemented by exactly one struct per registry event type.
// The unexported marker keeps the set closed to this package.
type Event interface {
	Type() EventType
	InstanceID() string
	IsInternal() bool
	isEvent()
}

// Meta holds the correlation fields shared by every event.
type Meta struct {
	WidgetInstanceID string
	Internal         bool
}

func (m Meta) InstanceID() string { return m.WidgetInstanceID }
func (m Meta) IsInternal() bool   { return m.Internal }
func (Meta) isEvent()             {}

type WidgetCloseEvent struct{ Meta }

type WidgetConfigDoneEvent struct{ Meta }

type WidgetConfigFailedEvent struct{ Meta }

type PurchaseCreatedEvent struct {
	Meta
	Payload PurchaseCreatedPayload
}

type OfframpSaleCreatedEvent struct {
	Meta
	Payload OfframpSaleCreatedPayload
}

type PurchaseSuccessfulEvent struct {
	Meta
	Payload PurchaseSuccessfulPayload
}

type PurchaseFailedEvent struct{ Meta }

type CloseRequestEvent struct{ Meta }

type CloseRequestCancelledEvent struct{ Meta }

type CloseRequestConfirmedEvent struct{ Meta }

type RequestCryptoAccountEvent struct {
	Meta
	Payload CryptoAccountRequest
}

type SendCryptoEvent struct {
	Meta
	EventVersion int
	Payload      SendCryptoRequest
}

func (WidgetCloseEvent) Type() EventType           { return EventWidgetClose }
func (WidgetConfigDoneEvent) Type() EventType      { return EventWidgetConfigDone }
func (WidgetConfigFailedEvent) Type() EventType    { return EventWidgetConfigFailed }
func (PurchaseCreatedEvent) Type() EventType       { return EventPurchaseCreated }
func (OfframpSaleCreatedEvent) Type() EventType    { return EventOfframpSaleCreated }
func (PurchaseSuccessfulEvent) Type() EventType    { return EventPurchaseSuccessful }
func (PurchaseFailedEvent) Type() EventType        { return EventPurchaseFailed }
func (CloseRequestEvent) Type() EventType          { return EventCloseRequest }
func (CloseRequestCancelledEvent) Type() EventType { return EventCloseRequestCancelled }
func (CloseRequestConfirmedEvent) Type() EventType { return EventCloseRequestConfirmed }
func (RequestCryptoAccountEvent) Type() EventType  { return EventRequestCryptoAccount }
func (SendCryptoEvent) Type() EventType            { return EventSendCrypto }

// DecodeEvent converts a wire envelope into its typed event.
func DecodeEvent(env Envelope) (Event, error) {
	meta := Meta{WidgetInstanceID: env.WidgetInstanceID, Internal: env.Internal}
	switch env.Type {
	case EventWidgetClose:
		return WidgetCloseEvent{meta}, nil
	case EventWidgetConfigDone:
		return WidgetConfigDoneEvent{meta}, nil
	case EventWidgetConfigFailed:
		return WidgetConfigFailedEvent{meta}, nil
	case EventPurchaseFailed:
		return PurchaseFailedEvent{meta}, nil
	case EventCloseRequest:
		return CloseRequestEvent{meta}, nil
	case EventCloseRequestCancelled:
		return CloseRequestCancelledEvent{meta}, nil
	case EventCloseRequestConfirmed:
		return CloseRequestConfirmedEvent{meta}, nil
	case EventPurchaseCreated:
		ev := PurchaseCreatedEvent{Meta: meta}
		if err := decodePayload(env, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	case EventOfframpSaleCreated:
		ev := OfframpSaleCreatedEvent{Meta: meta}
		if err := decodePayload(env, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	case EventPurchaseSuccessful:
		ev := PurchaseSuccessfulEvent{Meta: meta}
		if err := decodePayload(env, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	case EventRequestCryptoAccount:
		ev := RequestCryptoAccountEvent{Meta: meta}
		if err := decodePayload(env, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	case EventSendCrypto:
		ev := SendCryptoEvent{Meta: meta, EventVersion: env.EventVersion}
		if err := decodePayload(env, &ev.Payload); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}

// EncodeEvent is the inverse of DecodeEvent.
func EncodeEvent(ev Event) (Envelope, error) {
	env := Envelope{
		Type:             ev.Type(),
		WidgetInstanceID: ev.InstanceID(),
		Internal:         ev.IsInternal(),
	}
	var payload any
	switch e := ev.(type) {
	case WidgetCloseEvent, WidgetConfigDoneEvent, WidgetConfigFailedEvent, PurchaseFailedEvent,
		CloseRequestEvent, CloseRequestCancelledEvent, CloseRequestConfirmedEvent:
	case PurchaseCreatedEvent:
		payload = e.Payload
	case OfframpSaleCreatedEvent:
		payload = e.Payload
	case PurchaseSuccessfulEvent:
		payload = e.Payload
	case RequestCryptoAccountEvent:
		payload = e.Payload
	case SendCryptoEvent:
		payload = e.Payload
		env.EventVersion = e.EventVersion
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnknownEventType, ev)
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s payload: %w", env.Type, err)
		}
		env.Payload = b
	}
	return env, nil
}

// CryptoAccountResultEnvelope builds the REQUEST_CRYPTO_ACCOUNT_RESULT reply.
// A non-nil err replaces the payload with {"error": ...}.
func CryptoAccountResultEnvelope(instanceID string, res CryptoAccountResult, err error) (Envelope, error) {
	return replyEnvelope(EventRequestCryptoAccountResult, instanceID, 0, res, err)
}

// SendCryptoResultEnvelope builds the versioned SEND_CRYPTO_RESULT reply.
func SendCryptoResultEnvelope(instanceID string, res SendCryptoResult, err error) (Envelope, error) {
	return replyEnvelope(EventSendCryptoResult, instanceID, SendCryptoSupportedVersion, res, err)
}

func replyEnvelope(t EventType, instanceID string, version int, res any, cbErr error) (Envelope, error) {
	var payload any = res
	if cbErr != nil {
		payload = ErrorPayload{Error: cbErr.Error()}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Payload: b, WidgetInstanceID: instanceID, EventVersion: version}, nil
}

func decodePayload(env Envelope, dst any) error {
	if len(bytes.TrimSpace(env.Payload)) == 0 || bytes.Equal(bytes.TrimSpace(env.Payload), []byte("null")) {
		return fmt.Errorf("%s: missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%s: decode payload: %w", env.Type, err)
	}
	return nil
}
