// Package main provides a CI-friendly smoke test for the live vote feed.
//
// It validates:
//   - handshake + subprotocol selection on /ws/votes
//   - fanout of a vote event to every connected subscriber
//   - event payload consistency with the HTTP vote response
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	feedSubprotocol = "upvote.feed.v1"
	maxReadBytes    = 1 << 20 // 1MiB
)

type feedEvent struct {
	PostID  int64     `json:"post_id"`
	Count   int       `json:"count"`
	Upvoted bool      `json:"upvoted"`
	At      time.Time `json:"ts"`
}

type voteResponse struct {
	Count   int  `json:"count"`
	Upvoted bool `json:"upvoted"`
}

func main() {
	var (
		baseURL = flag.String("base", "http://127.0.0.1:8080", "HTTP base URL of the server")
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws/votes", "WebSocket feed URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send")
		title   = flag.String("title", "feed smoke post", "Title of the throwaway post")
		clients = flag.Int("clients", 2, "Number of concurrent subscribers")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	root := context.Background()

	conns := make([]*websocket.Conn, 0, *clients)
	for i := 0; i < *clients; i++ {
		conn := mustConnect(root, *wsURL, *origin, *timeout)
		defer closeWS(conn)
		conns = append(conns, conn)
	}

	postID := mustCreatePost(root, *baseURL, *title, *timeout)
	vote := mustUpvote(root, *baseURL, postID, *timeout)
	if vote.Count != 1 || !vote.Upvoted {
		fatalf("vote response: got {%d %v}, want {1 true}", vote.Count, vote.Upvoted)
	}

	for i, conn := range conns {
		ev := mustReadEvent(root, conn, *timeout)
		if ev.PostID != postID || ev.Count != vote.Count || ev.Upvoted != vote.Upvoted {
			fatalf("client %d: event %+v does not match vote {id=%d count=%d upvoted=%v}",
				i, ev, postID, vote.Count, vote.Upvoted)
		}
		if ev.At.IsZero() {
			fatalf("client %d: event missing timestamp", i)
		}
	}

	fmt.Printf("OK: post_id=%d count=%d clients=%d\n", postID, vote.Count, len(conns))
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func mustConnect(parent context.Context, wsURL, origin string, stepTimeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{feedSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}

	if sp := conn.Subprotocol(); sp != feedSubprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", sp, feedSubprotocol)
	}
	conn.SetReadLimit(maxReadBytes)
	return conn
}

func mustCreatePost(parent context.Context, baseURL, title string, stepTimeout time.Duration) int64 {
	body, _ := json.Marshal(map[string]string{"title": title})
	res := mustDoJSON(parent, http.MethodPost, baseURL+"/posts", body, stepTimeout)

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(res, &created); err != nil || created.ID == 0 {
		fatalf("create post: bad response %s (err=%v)", res, err)
	}
	return created.ID
}

func mustUpvote(parent context.Context, baseURL string, postID int64, stepTimeout time.Duration) voteResponse {
	res := mustDoJSON(parent, http.MethodPost, fmt.Sprintf("%s/posts/%d/upvote", baseURL, postID), nil, stepTimeout)

	var vote voteResponse
	if err := json.Unmarshal(res, &vote); err != nil {
		fatalf("upvote: bad response %s: %v", res, err)
	}
	return vote
}

func mustDoJSON(parent context.Context, method, rawURL string, body []byte, stepTimeout time.Duration) []byte {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		fatalf("%s %s: %v", method, rawURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		fatalf("%s %s: read body: %v", method, rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fatalf("%s %s: status=%d body=%s", method, rawURL, resp.StatusCode, buf.String())
	}
	return buf.Bytes()
}

func mustReadEvent(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) feedEvent {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	mt, data, err := conn.Read(ctx)
	if err != nil {
		fatalf("read event: %v", err)
	}
	if mt != websocket.MessageText {
		fatalf("unsupported message type: %v", mt)
	}

	var ev feedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		fatalf("bad event json: %v", err)
	}
	return ev
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
