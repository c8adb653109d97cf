package relay

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"presence/internal/app/user"
	"presence/internal/pkg/errs"
)

// handleInbound parses one frame from c and routes it. Every failure is
// absorbed here: it is logged and counted, and the client hears nothing.
func (h *Hub) handleInbound(c *Client, data []byte) {
	if c.closed {
		return
	}

	// Payload fields are relayed verbatim in text frames, which peers reject unless valid UTF-8.
	if !utf8.Valid(data) {
		h.drop(c, "", fmt.Errorf("%w: frame is not valid UTF-8", errs.NewError(errs.ErrMalformedMessage)))
		return
	}

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.drop(c, "", fmt.Errorf("%w: %v", errs.NewError(errs.ErrMalformedMessage), err))
		return
	}

	if err := h.dispatch(c, &msg); err != nil {
		h.drop(c, msg.Type, err)
	}
}

func (h *Hub) dispatch(c *Client, msg *InboundMessage) error {
	switch msg.Type {
	case TypeReconnect:
		h.metrics.recordMessage(msg.Type)
		return h.handleReconnect(c, msg)

	case TypeRequestCsvInfo:
		h.metrics.recordMessage(msg.Type)
		c.sendJSON(CsvInfoMessage{Type: TypeCsvInfo, Info: h.dataset})
		return nil

	case TypeMetadata, TypeStatus, TypeRename, TypeConnect, TypeDisconnect:
		h.metrics.recordMessage(msg.Type)
		h.broadcast(TypeServerLog, ServerLogMessage{Type: TypeServerLog, Message: msg.Message, LogType: msg.Type})
		return nil

	case TypePong:
		h.metrics.recordMessage(msg.Type)
		c.logger.Debug().Str("user_id", c.userID).Msg("Pong received.")
		return nil

	case TypeUpdateMetadata:
		h.metrics.recordMessage(msg.Type)
		return h.handleUpdateMetadata(c, msg)

	case TypeUpdateListeningTo:
		h.metrics.recordMessage(msg.Type)
		return h.handleUpdateListeningTo(c, msg)

	case TypeUserCoordinate:
		h.metrics.recordMessage(msg.Type)
		return h.handleUserCoordinate(c, msg)

	case TypeClearList:
		h.metrics.recordMessage(msg.Type)
		return h.handleClearList(c)

	case TypeData:
		h.metrics.recordMessage(msg.Type)
		return h.handleData(c, msg)

	default:
		return errs.NewError(errs.ErrUnhandledType, string(msg.Type))
	}
}

// handleUpdateMetadata writes the enumerated user fields in data and broadcasts the user list.
// A connection without a resolved identity changes nothing, but the list is still broadcast.
func (h *Hub) handleUpdateMetadata(c *Client, msg *InboundMessage) error {
	if !isObject(msg.Data) {
		return errs.NewError(errs.ErrInvalidPayload, "data must be an object")
	}

	var patch user.Patch
	if err := json.Unmarshal(msg.Data, &patch); err != nil {
		return fmt.Errorf("%w: %v", errs.NewError(errs.ErrInvalidPayload, "data fields have the wrong type"), err)
	}

	if userID, ok := h.resolved(c); ok {
		h.users.UpdateData(userID, patch)
	}

	h.broadcastUserUpdate()
	return nil
}

func (h *Hub) handleUpdateListeningTo(c *Client, msg *InboundMessage) error {
	var list []string
	if !isPresent(msg.NewListeningTo) {
		return errs.NewError(errs.ErrInvalidPayload, "newListeningTo is required")
	}
	if err := json.Unmarshal(msg.NewListeningTo, &list); err != nil {
		return fmt.Errorf("%w: %v", errs.NewError(errs.ErrInvalidPayload, "newListeningTo must be an array of ids"), err)
	}

	userID, ok := h.resolved(c)
	if !ok {
		return errs.NewError(errs.ErrUnresolvedIdentity)
	}

	changed, found := h.users.UpdateListeningTo(userID, list)
	if !found {
		return errs.NewError(errs.ErrUnresolvedIdentity)
	}
	if !changed {
		c.logger.Debug().Str("user_id", userID).Msg("No change in listening list.")
		return nil
	}

	c.logger.Debug().Str("user_id", userID).Int("count", len(list)).Msg("Listening list updated.")
	h.broadcastUserUpdate()
	return nil
}

// handleUserCoordinate stores the sender's position and forwards the coordinates,
// as sent, to every other live user. The full user list is not broadcast.
func (h *Hub) handleUserCoordinate(c *Client, msg *InboundMessage) error {
	userID, ok := h.resolved(c)
	if !ok {
		return fmt.Errorf("%w: coordinates received before reconnect", errs.NewError(errs.ErrUnresolvedIdentity))
	}
	if _, exists := h.users.Get(userID); !exists {
		return errs.NewError(errs.ErrUnresolvedIdentity)
	}

	if !isObject(msg.Coordinates) {
		return errs.NewError(errs.ErrInvalidPayload, "coordinates must be an object")
	}

	var coords Coordinates
	if err := json.Unmarshal(msg.Coordinates, &coords); err != nil {
		return fmt.Errorf("%w: %v", errs.NewError(errs.ErrInvalidPayload, "coordinates have the wrong type"), err)
	}

	h.users.UpdateData(userID, coords.Patch())

	payload, err := json.Marshal(UserCoordinateUpdateMessage{
		Type:        TypeUserCoordinateUpdate,
		From:        userID,
		Coordinates: msg.Coordinates,
	})
	if err != nil {
		return fmt.Errorf("marshal coordinate update: %w", err)
	}

	sent := 0
	for otherID, other := range h.conns {
		if otherID == userID {
			continue
		}
		if _, exists := h.users.Get(otherID); !exists {
			continue
		}
		if other.sendBytes(payload) {
			sent++
		}
	}
	h.metrics.observeFanout(TypeUserCoordinateUpdate, sent)
	return nil
}

func (h *Hub) handleClearList(c *Client) error {
	userID, ok := h.resolved(c)
	if !ok || !h.users.ClearListeningTo(userID) {
		return errs.NewError(errs.ErrUnresolvedIdentity)
	}

	c.logger.Debug().Str("user_id", userID).Msg("Listening list cleared.")
	h.broadcastUserUpdate()
	return nil
}

// handleData delivers the payload to the live connection of every user listening to the sender.
func (h *Hub) handleData(c *Client, msg *InboundMessage) error {
	if !isPresent(msg.Data) {
		return errs.NewError(errs.ErrInvalidPayload, "data is required")
	}

	senderID, ok := h.resolved(c)
	if !ok {
		return errs.NewError(errs.ErrUnresolvedIdentity)
	}

	payload, err := json.Marshal(DataMessage{Type: TypeData, From: senderID, Data: msg.Data})
	if err != nil {
		return fmt.Errorf("marshal data message: %w", err)
	}

	sent := 0
	for _, recipientID := range h.users.Listeners(senderID) {
		recipient, ok := h.conns[recipientID]
		if !ok || recipient.closed {
			c.logger.Debug().
				Str("user_id", senderID).
				Str("recipient_id", recipientID).
				Msg("Listener not connected. Data message skipped.")
			continue
		}
		if recipient.sendBytes(payload) {
			sent++
		}
	}
	h.metrics.observeFanout(TypeData, sent)
	return nil
}

// broadcastUserUpdate sends the list of users that hold a connection table entry to every open connection.
func (h *Hub) broadcastUserUpdate() {
	users := make([]user.Summary, 0, len(h.conns))
	h.users.Each(func(u *user.User) {
		if _, live := h.conns[u.ID]; live {
			users = append(users, u.Summary())
		}
	})

	h.broadcast(TypeUserUpdate, UserUpdateMessage{
		Type:     TypeUserUpdate,
		NumUsers: h.live,
		Users:    users,
	})
}

// broadcast sends v to every open connection and returns how many accepted it.
func (h *Hub) broadcast(t MessageType, v any) int {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Str("msg_type", string(t)).Msg("Error marshaling message for broadcast.")
		return 0
	}

	sent := 0
	for c := range h.clients {
		if c.sendBytes(payload) {
			sent++
		}
	}
	h.metrics.observeFanout(t, sent)
	return sent
}

// drop logs and counts an absorbed inbound message.
func (h *Hub) drop(c *Client, t MessageType, err error) {
	reason := errs.ReasonOf(err)
	h.metrics.recordDrop(reason)

	logEvent := c.logger.Warn()
	if errs.Is(err, errs.ErrUnhandledType) {
		logEvent = c.logger.Info()
	}

	logEvent.
		Err(err).
		Str("user_id", c.userID).
		Str("msg_type", string(t)).
		Str("reason", reason).
		Msg("Inbound message dropped.")
}
