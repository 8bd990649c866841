package network

import (
	"context"

	"jellybeanworld/logging"
)

const (
	// EventClientConnected is emitted when a session completes the CONNECT handshake.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientReconnected is emitted when a session resumes via RECONNECT.
	EventClientReconnected logging.EventType = "network.client_reconnected"
	// EventClientLost is emitted when a session's socket is lost but the record is retained.
	EventClientLost logging.EventType = "network.client_lost"
	// EventPermissionDenied is emitted when a request is rejected by the permission gate.
	EventPermissionDenied logging.EventType = "network.permission_denied"
)

// ClientConnectedPayload captures handshake metadata.
type ClientConnectedPayload struct {
	ClientID uint64 `json:"clientId"`
}

// ClientLostPayload captures the reason a session's transport was lost.
type ClientLostPayload struct {
	Reason string `json:"reason"`
}

// PermissionDeniedPayload names the request tag and missing bit.
type PermissionDeniedPayload struct {
	RequestTag string `json:"requestTag"`
	Permission string `json:"permission"`
}

// ClientConnected publishes a successful CONNECT handshake event.
func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClientConnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	})
}

// ClientReconnected publishes a successful RECONNECT handshake event.
func ClientReconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClientConnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientReconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	})
}

// ClientLost publishes a session-lost event.
func ClientLost(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClientLostPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientLost,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	})
}

// PermissionDenied publishes a permission-gate rejection.
func PermissionDenied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PermissionDeniedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPermissionDenied,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	})
}
