// Package eventsub implements the session-protocol side of the pipeline:
// the frame classifier and the stream monitor that owns the WebSocket
// connection lifecycle.
package eventsub

import "encoding/json"

// MessageKind is the classified kind of an inbound session-protocol frame.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindSessionWelcome
	KindSessionKeepalive
	KindNotification
	KindReconnect
	KindRevocation
)

func (k MessageKind) String() string {
	switch k {
	case KindSessionWelcome:
		return "session_welcome"
	case KindSessionKeepalive:
		return "session_keepalive"
	case KindNotification:
		return "notification"
	case KindReconnect:
		return "reconnect"
	case KindRevocation:
		return "revocation"
	default:
		return "unknown"
	}
}

// ClassifiedMessage is the structured result of classifying one raw frame.
// It is created fresh per frame and consumed once by the monitor.
type ClassifiedMessage struct {
	Kind MessageKind
	// SessionID is set only for session_welcome frames. A welcome without an
	// embedded session object yields an empty session ID, not an error.
	SessionID string
	// ReconnectURL is set only for reconnect frames and may be empty even then.
	ReconnectURL string
	// RequiresDisconnect is true exactly for reconnect and revocation frames.
	RequiresDisconnect bool
	// SubscriptionType and Event are set only for notification frames.
	SubscriptionType string
	Event            json.RawMessage
}

type frameEnvelope struct {
	Metadata struct {
		MessageID        string `json:"message_id"`
		MessageType      string `json:"message_type"`
		MessageTimestamp string `json:"message_timestamp"`
	} `json:"metadata"`
	Payload struct {
		Session *struct {
			ID           string `json:"id"`
			ReconnectURL string `json:"reconnect_url"`
		} `json:"session"`
		Subscription *struct {
			ID     string `json:"id"`
			Type   string `json:"type"`
			Status string `json:"status"`
		} `json:"subscription"`
		Event json.RawMessage `json:"event"`
	} `json:"payload"`
}

// Classify parses a raw session-protocol frame into a ClassifiedMessage.
// It never fails: invalid JSON, missing metadata, or an unrecognized
// message type all yield KindUnknown, which the caller silently ignores.
func Classify(raw []byte) ClassifiedMessage {
	var env frameEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ClassifiedMessage{Kind: KindUnknown}
	}

	switch env.Metadata.MessageType {
	case "session_welcome":
		msg := ClassifiedMessage{Kind: KindSessionWelcome}
		if env.Payload.Session != nil {
			msg.SessionID = env.Payload.Session.ID
		}
		return msg

	case "session_keepalive":
		return ClassifiedMessage{Kind: KindSessionKeepalive}

	case "notification":
		msg := ClassifiedMessage{Kind: KindNotification, Event: env.Payload.Event}
		if env.Payload.Subscription != nil {
			msg.SubscriptionType = env.Payload.Subscription.Type
		}
		return msg

	case "session_reconnect", "reconnect":
		// The caller must disconnect even without a URL; it then simply
		// redials the original endpoint.
		msg := ClassifiedMessage{Kind: KindReconnect, RequiresDisconnect: true}
		if env.Payload.Session != nil {
			msg.ReconnectURL = env.Payload.Session.ReconnectURL
		}
		return msg

	case "revocation":
		msg := ClassifiedMessage{Kind: KindRevocation, RequiresDisconnect: true}
		if env.Payload.Subscription != nil {
			msg.SubscriptionType = env.Payload.Subscription.Type
		}
		return msg

	default:
		return ClassifiedMessage{Kind: KindUnknown}
	}
}
