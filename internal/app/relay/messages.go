/*
Package relay contains the presence relay core: the connection table, the
session reconciler, the message router, and the periodic heartbeat and
secret-expiry timers.

All relay state is owned by a single Hub goroutine. Client pumps only move
bytes between the socket and the hub.

This file defines the wire messages exchanged with clients.
*/
package relay

import (
	"bytes"
	"encoding/json"
	"time"

	"presence/internal/app/dataset"
	"presence/internal/app/user"
)

// MessageType is the "type" tag carried by every wire message.
type MessageType string

// Inbound message types.
const (
	TypeReconnect         MessageType = "reconnect"
	TypeRequestCsvInfo    MessageType = "requestCsvInfo"
	TypeMetadata          MessageType = "metadata"
	TypeStatus            MessageType = "status"
	TypeRename            MessageType = "rename"
	TypeConnect           MessageType = "connect"
	TypeDisconnect        MessageType = "disconnect"
	TypePong              MessageType = "pong"
	TypeUpdateMetadata    MessageType = "updatemetadata"
	TypeUpdateListeningTo MessageType = "updatelisteningto"
	TypeUserCoordinate    MessageType = "usercoordinate"
	TypeClearList         MessageType = "clearlist"
	TypeData              MessageType = "data"
)

// Outbound message types.
const (
	TypeWelcome              MessageType = "welcome"
	TypeCsvInfo              MessageType = "csvinfo"
	TypeServerLog            MessageType = "serverlog"
	TypeUserUpdate           MessageType = "userupdate"
	TypeUserCoordinateUpdate MessageType = "usercoordinateupdate"
	TypePing                 MessageType = "ping"
)

// pingTimeLayout matches the millisecond ISO-8601 form clients parse.
const pingTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// InboundMessage is the union of every inbound message's fields.
// Which fields are meaningful depends on Type.
type InboundMessage struct {
	Type MessageType `json:"type"`

	// reconnect
	Secret   string `json:"secret,omitempty"`
	Username string `json:"username,omitempty"`

	// metadata, status, rename, connect, disconnect
	Message json.RawMessage `json:"message,omitempty"`

	// updatemetadata, data
	Data json.RawMessage `json:"data,omitempty"`

	// updatelisteningto
	NewListeningTo json.RawMessage `json:"newListeningTo,omitempty"`

	// usercoordinate
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
}

// WelcomeMessage tells a connection which identity it now holds.
type WelcomeMessage struct {
	Type   MessageType `json:"type"`
	ID     string      `json:"id"`
	Secret string      `json:"secret"`
}

// CsvInfoMessage carries the current dataset snapshot.
type CsvInfoMessage struct {
	Type MessageType      `json:"type"`
	Info dataset.Snapshot `json:"info"`
}

// ServerLogMessage relays a client's log line to every connection.
type ServerLogMessage struct {
	Type    MessageType     `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	LogType MessageType     `json:"logType"`
}

// UserUpdateMessage carries the full list of connected users.
type UserUpdateMessage struct {
	Type     MessageType    `json:"type"`
	NumUsers int            `json:"numUsers"`
	Users    []user.Summary `json:"users"`
}

// UserCoordinateUpdateMessage carries one user's coordinates as they were sent.
type UserCoordinateUpdateMessage struct {
	Type        MessageType     `json:"type"`
	From        string          `json:"from"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DataMessage carries an opaque payload from a user to its listeners.
type DataMessage struct {
	Type MessageType     `json:"type"`
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

// PingMessage is the application-level heartbeat.
type PingMessage struct {
	Type     MessageType `json:"type"`
	Time     string      `json:"time"`
	NumUsers int         `json:"numUsers"`
}

// Coordinates is the writable position carried by a usercoordinate message.
type Coordinates struct {
	Tx *float64 `json:"tx,omitempty"`
	Ty *float64 `json:"ty,omitempty"`
	Tz *float64 `json:"tz,omitempty"`
}

// Patch converts the coordinates into a user patch.
func (c Coordinates) Patch() user.Patch {
	return user.Patch{Tx: c.Tx, Ty: c.Ty, Tz: c.Tz}
}

func newPing(now time.Time, numUsers int) PingMessage {
	return PingMessage{
		Type:     TypePing,
		Time:     now.UTC().Format(pingTimeLayout),
		NumUsers: numUsers,
	}
}

// isPresent reports whether a raw field was sent with a non-null value.
func isPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// isObject reports whether a raw field holds a JSON object.
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
