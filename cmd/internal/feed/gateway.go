package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"
)

const (
	wsSubprotocol = "upvote.feed.v1"

	wsDefaultWriteTimeout = 5 * time.Second
	wsHeartbeatEvery      = 30 * time.Second
	wsHeartbeatTimeout    = 5 * time.Second
	wsMaxPingFailures     = 3
	wsMaxFrameBytes       = 4 << 10
)

// Gateway is the WebSocket entrypoint for the live vote feed.
//
// Clients connect, negotiate the feed subprotocol, and then only receive
// events. Inbound frames beyond control traffic are discarded.
type Gateway struct {
	log *slog.Logger
	hub *Hub

	originPatterns []string
	devInsecure    bool

	writeTimeout time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithOriginPatterns authorizes cross-origin hosts for websocket.Accept.
func WithOriginPatterns(patterns []string) GatewayOption {
	return func(g *Gateway) { g.originPatterns = patterns }
}

// WithInsecureOrigin disables origin verification. Dev-only escape hatch.
func WithInsecureOrigin(insecure bool) GatewayOption {
	return func(g *Gateway) { g.devInsecure = insecure }
}

// NewGateway constructs a gateway over the given hub.
func NewGateway(log *slog.Logger, hub *Hub, opts ...GatewayOption) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	g := &Gateway{
		log:          log,
		hub:          hub,
		writeTimeout: wsDefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades an HTTP request to a WebSocket session and streams vote
// events until the peer disconnects or the server shuts down.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{wsSubprotocol},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("feed.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != wsSubprotocol {
		g.log.Info("feed.reject.subprotocol", "got", sp, "want", wsSubprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(wsMaxFrameBytes)

	sessionID := ulid.Make().String()
	sub := g.hub.Subscribe(sessionID)

	// The feed is one-way: CloseRead discards inbound data frames and
	// cancels the returned context when the peer closes or errors.
	ctx := conn.CloseRead(r.Context())

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Unsubscribe(sessionID)
			_ = conn.Close(code, reason)
		})
	}
	defer shutdown(websocket.StatusNormalClosure, "bye")

	g.log.Info("feed.session.open", "session_id", sessionID, "remote", r.RemoteAddr)

	heartbeat := time.NewTicker(wsHeartbeatEvery)
	defer heartbeat.Stop()

	pingFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			shutdown(websocket.StatusGoingAway, "server closing")
			return
		case <-heartbeat.C:
			hbCtx, hbCancel := context.WithTimeout(ctx, wsHeartbeatTimeout)
			err := conn.Ping(hbCtx)
			hbCancel()

			if err != nil {
				pingFailures++
				g.log.Info("feed.ping.fail", "session_id", sessionID, "failures", pingFailures, "err", err)
				if pingFailures >= wsMaxPingFailures {
					shutdown(websocket.StatusGoingAway, "heartbeat failed")
					return
				}
				continue
			}
			pingFailures = 0
		case ev := <-sub.send:
			if err := g.writeEvent(ctx, conn, ev); err != nil {
				g.log.Info("feed.write.fail", "session_id", sessionID, "close_status", websocket.CloseStatus(err), "err", err)
				shutdown(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}

func (g *Gateway) writeEvent(parent context.Context, conn *websocket.Conn, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, g.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, b)
}
