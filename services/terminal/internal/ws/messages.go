package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"parkgate/services/terminal/internal/models"
)

// Frame type names on the wire.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeZoneUpdate  = "zone-update"
	TypeAdminUpdate = "admin-update"
)

// frame is the JSON envelope used in both directions.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type gatePayload struct {
	GateID string `json:"gateId"`
}

// Message is a decoded push message. The concrete type is one of ZoneUpdate or AdminUpdate.
type Message interface {
	messageType() string
}

// ZoneUpdate carries a fresh snapshot of one zone.
type ZoneUpdate struct {
	Zone models.Zone
}

func (ZoneUpdate) messageType() string { return TypeZoneUpdate }

// AdminUpdate carries one audit entry.
type AdminUpdate struct {
	Entry models.AuditEntry
}

func (AdminUpdate) messageType() string { return TypeAdminUpdate }

var errEmptyPayload = errors.New("ws: empty payload")

// decoders is the dispatch table from wire type to variant.
var decoders = map[string]func(json.RawMessage) (Message, error){
	TypeZoneUpdate: func(raw json.RawMessage) (Message, error) {
		zone, err := Decode[models.Zone](raw)
		if err != nil {
			return nil, err
		}
		if zone.ID == "" {
			return nil, errors.New("ws: zone update without id")
		}
		return ZoneUpdate{Zone: zone}, nil
	},
	TypeAdminUpdate: func(raw json.RawMessage) (Message, error) {
		entry, err := Decode[models.AuditEntry](raw)
		if err != nil {
			return nil, err
		}
		return AdminUpdate{Entry: entry}, nil
	},
}

// Parse decodes a raw inbound frame into its Message variant.
func Parse(data []byte) (Message, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ws: malformed frame: %w", err)
	}
	decode, ok := decoders[f.Type]
	if !ok {
		return nil, fmt.Errorf("ws: unsupported message type %q", f.Type)
	}
	if len(f.Payload) == 0 || string(f.Payload) == "null" {
		return nil, errEmptyPayload
	}
	msg, err := decode(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("ws: decode %s: %w", f.Type, err)
	}
	return msg, nil
}

// Decode convenience helper for payloads.
func Decode[T any](payload json.RawMessage) (T, error) {
	var target T
	if err := json.Unmarshal(payload, &target); err != nil {
		var zero T
		return zero, err
	}
	return target, nil
}

func encodeGateDirective(msgType, gateID string) ([]byte, error) {
	payload, err := json.Marshal(gatePayload{GateID: gateID})
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Type: msgType, Payload: payload})
}
