package relay

import (
	"fmt"

	"presence/internal/app/user"
	"presence/internal/pkg/randx"
)

// handleReconnect resolves which logical user c speaks for.
//
// A known, unexpired secret reclaims its user ID; the user record is reused
// if it still exists and recreated with defaults otherwise. Anything else mints
// a new identity and secret. Either way the connection becomes the user's only
// addressable connection, receives welcome and csvinfo, and everyone receives
// the updated user list.
func (h *Hub) handleReconnect(c *Client, msg *InboundMessage) error {
	secret := msg.Secret
	userID, resumed := h.secrets.Resolve(secret)

	if resumed {
		h.bind(c, userID)

		if u, ok := h.users.Get(userID); ok {
			if msg.Username != "" {
				u.Username = msg.Username
			}
			c.logger.Info().Str("user_id", userID).Msg("Reconnected to existing user.")
		} else {
			h.users.Put(user.New(userID, usernameOrDefault(msg.Username, userID)))
			c.logger.Info().Str("user_id", userID).Msg("Reconnected. User record recreated with defaults.")
		}
	} else {
		userID = h.cfg.NewUserID()

		token, err := h.secrets.Issue(userID)
		if err != nil {
			return fmt.Errorf("issue secret for new user %s: %w", userID, err)
		}
		secret = token

		h.users.Put(user.New(userID, usernameOrDefault(msg.Username, userID)))
		h.bind(c, userID)

		c.logger.Info().
			Str("user_id", userID).
			Bool("had_secret", msg.Secret != "").
			Msg("Created new user.")
	}

	c.sendJSON(WelcomeMessage{Type: TypeWelcome, ID: userID, Secret: secret})
	c.sendJSON(CsvInfoMessage{Type: TypeCsvInfo, Info: h.dataset})

	h.broadcastUserUpdate()
	return nil
}

// bind makes c the connection table entry for userID. A previous connection for
// the same user stays open but is no longer addressable. If c was bound to a
// different user, that binding is released first.
func (h *Hub) bind(c *Client, userID string) {
	if c.userID != "" && c.userID != userID {
		h.release(c)
	}

	if prev, ok := h.conns[userID]; ok && prev != c {
		prev.logger.Warn().
			Str("user_id", userID).
			Uint64("replaced_by", c.connID).
			Msg("Connection replaced by a newer reconnect. Old socket orphaned.")
	}

	c.userID = userID
	h.conns[userID] = c
}

// release drops c's current binding and the user record it owns.
func (h *Hub) release(c *Client) {
	if h.conns[c.userID] == c {
		delete(h.conns, c.userID)
		h.users.Delete(c.userID)
	}
	h.secrets.Touch(c.userID)

	c.logger.Info().Str("user_id", c.userID).Msg("Connection switched identity. Previous binding released.")
	c.userID = ""
}

// resolved returns the user ID c is the live connection for.
// Unbound and replaced connections have no resolved identity.
func (h *Hub) resolved(c *Client) (string, bool) {
	if c.userID == "" || h.conns[c.userID] != c {
		return "", false
	}
	return c.userID, true
}

func usernameOrDefault(name, userID string) string {
	if name != "" {
		return name
	}
	return randx.DefaultUsername(userID)
}
