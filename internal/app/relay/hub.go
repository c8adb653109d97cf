/*
Package relay contains the presence relay core.

This file defines the Hub, the single event loop that owns the user registry,
the secret registry and the connection table. Connection accept, inbound
frames, disconnects, dataset updates and timer ticks are processed one at a
time, so none of that state needs locking.
*/
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"presence/internal/app/dataset"
	"presence/internal/app/session"
	"presence/internal/app/user"
	"presence/internal/pkg/errs"
	"presence/internal/pkg/logx"
	"presence/internal/pkg/randx"
)

const eventQueueSize = 1024

// Config holds the hub's tunables.
type Config struct {
	HeartbeatInterval   time.Duration
	SecretSweepInterval time.Duration
	SecretTTL           time.Duration
	MaxMessageBytes     int64

	// Registerer receives the relay metrics. Nil means prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Now and NewUserID default to time.Now and randx.UserID.
	Now       func() time.Time
	NewUserID func() string

	// NewSecret defaults to randx.Secret.
	NewSecret func() (string, error)
}

type eventKind uint8

const (
	eventRegister eventKind = iota
	eventUnregister
	eventInbound
	eventDataset
)

// event is one unit of work for the hub loop.
type event struct {
	kind     eventKind
	client   *Client
	data     []byte
	snapshot dataset.Snapshot
	announce bool
}

// Hub coordinates every connection and all relay state.
type Hub struct {
	cfg Config

	// users is the registry of live logical users.
	users *user.Registry

	// secrets maps reconnection secrets to user IDs.
	secrets *session.Store

	// conns is the connection table: at most one client per user ID.
	conns map[string]*Client

	// clients is every open connection, bound or not.
	clients map[*Client]struct{}

	// live counts open connections, floored at zero.
	live int

	// dataset is the latest snapshot from the dataset watcher.
	dataset dataset.Snapshot

	events  chan event
	queries chan chan Status

	done     chan struct{}
	stopOnce sync.Once

	metrics *relayMetrics
	logger  zerolog.Logger
}

// NewHub constructs a Hub. Call Run to start its loop.
func NewHub(cfg Config) *Hub {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewUserID == nil {
		cfg.NewUserID = randx.UserID
	}
	if cfg.NewSecret == nil {
		cfg.NewSecret = randx.Secret
	}

	return &Hub{
		cfg:     cfg,
		users:   user.NewRegistry(),
		secrets: session.NewStore(cfg.SecretTTL, session.WithClock(cfg.Now), session.WithGenerator(cfg.NewSecret)),
		conns:   make(map[string]*Client),
		clients: make(map[*Client]struct{}),
		dataset: dataset.Missing,
		events:  make(chan event, eventQueueSize),
		queries: make(chan chan Status),
		done:    make(chan struct{}),
		metrics: newRelayMetrics(cfg.Registerer),
		logger:  logx.Component("Hub"),
	}
}

// Run processes events until Stop is called.
func (h *Hub) Run() {
	heartbeat := time.NewTicker(h.cfg.HeartbeatInterval)
	sweep := time.NewTicker(h.cfg.SecretSweepInterval)

	defer func() {
		heartbeat.Stop()
		sweep.Stop()

		for c := range h.clients {
			c.close()
		}
		h.logger.Info().Int("open_connections", len(h.clients)).Msg("Hub loop stopped. Client queues closed.")
	}()

	h.logger.Info().
		Dur("heartbeat_interval", h.cfg.HeartbeatInterval).
		Dur("secret_sweep_interval", h.cfg.SecretSweepInterval).
		Dur("secret_ttl", h.cfg.SecretTTL).
		Msg("Hub loop started.")

	for {
		select {
		case ev := <-h.events:
			h.handleEvent(ev)

		case reply := <-h.queries:
			reply <- h.status()

		case <-heartbeat.C:
			h.heartbeat()

		case <-sweep.C:
			h.sweepSecrets()

		case <-h.done:
			return
		}
	}
}

// Stop ends the hub loop. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal.")
		close(h.done)
	})
}

// Register hands a new connection to the loop. It returns false if the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	return h.enqueue(event{kind: eventRegister, client: c})
}

// Unregister tells the loop that c's socket is gone.
func (h *Hub) Unregister(c *Client) bool {
	return h.enqueue(event{kind: eventUnregister, client: c})
}

// Inbound hands one raw frame from c to the loop.
func (h *Hub) Inbound(c *Client, data []byte) bool {
	return h.enqueue(event{kind: eventInbound, client: c, data: data})
}

// PublishDataset stores snap as the current dataset snapshot and, when announce
// is set, broadcasts it. It has the signature of dataset.PublishFunc.
func (h *Hub) PublishDataset(snap dataset.Snapshot, announce bool) {
	h.enqueue(event{kind: eventDataset, snapshot: snap, announce: announce})
}

func (h *Hub) enqueue(ev event) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handleEvent(ev event) {
	switch ev.kind {
	case eventRegister:
		h.handleRegister(ev.client)
	case eventUnregister:
		h.handleUnregister(ev.client)
	case eventInbound:
		h.handleInbound(ev.client, ev.data)
	case eventDataset:
		h.handleDataset(ev.snapshot, ev.announce)
	}
	h.syncGauges()
}

// handleRegister records a freshly accepted connection. Identity comes later, with reconnect.
func (h *Hub) handleRegister(c *Client) {
	h.clients[c] = struct{}{}
	h.live++

	c.logger.Info().Int("open_connections", len(h.clients)).Msg("New connection established.")
}

// handleUnregister removes a closed connection. The user record bound to it is
// deleted only if the connection table still points at this connection; a
// connection replaced by a newer reconnect leaves the new binding untouched.
func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	c.close()
	h.live = max(0, h.live-1)

	if c.userID != "" {
		if h.conns[c.userID] == c {
			delete(h.conns, c.userID)
			h.users.Delete(c.userID)
			c.logger.Info().Str("user_id", c.userID).Msg("User disconnected.")
		} else {
			c.logger.Info().Str("stale_user_id", c.userID).Msg("Replaced connection closed. Live binding kept.")
		}
		h.secrets.Touch(c.userID)
	} else {
		c.logger.Info().Msg("Unidentified connection closed.")
	}

	h.broadcastUserUpdate()
}

func (h *Hub) handleDataset(snap dataset.Snapshot, announce bool) {
	h.dataset = snap
	if !announce {
		return
	}

	n := h.broadcast(TypeCsvInfo, CsvInfoMessage{Type: TypeCsvInfo, Info: snap})
	h.logger.Info().Int("recipients", n).Str("path", snap.Path).Msg("Dataset update broadcast.")
}

// heartbeat sends the application-level ping to every open connection.
func (h *Hub) heartbeat() {
	n := h.broadcast(TypePing, newPing(h.cfg.Now(), h.live))

	h.logger.Debug().Int("num_users", h.live).Int("recipients", n).Msg("Ping heartbeat.")
	if h.logger.GetLevel() <= zerolog.DebugLevel {
		h.users.Each(func(u *user.User) {
			h.logger.Debug().
				Str("user_id", u.ID).
				Str("username", u.Username).
				Strs("listening_to", u.ListeningTo).
				Msg("Listening list.")
		})
	}
}

// sweepSecrets purges secrets idle past the TTL. User records are left alone.
func (h *Hub) sweepSecrets() {
	removed := h.secrets.Expire(h.cfg.Now())
	for _, id := range removed {
		h.logger.Info().Str("user_id", id).Msg("Cleaned up expired secret.")
	}
	h.metrics.recordExpired(len(removed))
	h.syncGauges()
}

func (h *Hub) syncGauges() {
	h.metrics.setState(len(h.clients), len(h.conns), h.secrets.Len())
}

// Status is a point-in-time copy of relay state for diagnostics.
type Status struct {
	NumUsers    int              `json:"numUsers"`
	Connections int              `json:"connections"`
	Secrets     int              `json:"secrets"`
	Users       []user.User      `json:"users"`
	Dataset     dataset.Snapshot `json:"dataset"`
}

// Status asks the loop for a snapshot of its state.
func (h *Hub) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)

	select {
	case <-h.done:
		return Status{}, errs.NewError(errs.ErrRelayUnavailable)
	default:
	}

	select {
	case h.queries <- reply:
	case <-h.done:
		return Status{}, errs.NewError(errs.ErrRelayUnavailable)
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (h *Hub) status() Status {
	st := Status{
		NumUsers:    h.live,
		Connections: len(h.clients),
		Secrets:     h.secrets.Len(),
		Users:       make([]user.User, 0, h.users.Len()),
		Dataset:     h.dataset,
	}
	h.users.Each(func(u *user.User) {
		cp := *u
		cp.ListeningTo = append([]string{}, u.ListeningTo...)
		st.Users = append(st.Users, cp)
	})
	return st
}
