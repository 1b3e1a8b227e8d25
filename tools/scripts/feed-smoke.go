// Package main provides a CI-friendly smoke test for the gameswap offer feed.
//
// It validates:
//   - account registration + login over REST
//   - authenticated WebSocket handshake on /api/offers/feed
//   - offer.created fanout to every subscriber
//   - offer.updated carrying the new price
//   - offer.deleted closing the loop
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 20 // 1MiB

// feedEvent mirrors the feed wire shape. The smoke test speaks the wire
// protocol on purpose; it must not depend on server internals.
type feedEvent struct {
	Type    string          `json:"type"`
	OfferID string          `json:"offer_id"`
	Offer   json.RawMessage `json:"offer,omitempty"`
	TS      time.Time       `json:"ts"`
}

type offerView struct {
	ID        string  `json:"id"`
	GameTitle string  `json:"game_title"`
	Price     float64 `json:"price"`
	SellerID  string  `json:"seller_id"`
}

type subscriber struct {
	name  string
	conn  *websocket.Conn
	inbox chan feedEvent
	errCh chan error
}

func main() {
	var (
		base    = flag.String("base", "http://127.0.0.1:8080", "Server base URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*base); err != nil {
		fatalf("invalid -base: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	token, sellerID := mustRegister(root, *base, *timeout, *verbose)
	if *verbose {
		fmt.Printf("registered: seller=%s\n", sellerID)
	}

	feedURL := wsURL(*base) + "/api/offers/feed"

	a := mustSubscribe(root, "A", feedURL, *origin, token, *timeout)
	defer closeWS(a.conn)

	b := mustSubscribe(root, "B", feedURL, *origin, token, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("subscribed: url=%s origin=%q\n", feedURL, *origin)
	}

	offerID := mustCreateOffer(root, *base, token, *timeout)

	created := a.mustReadType(root, "offer.created", *timeout)
	assertOfferID(created, offerID, "A/offer.created")
	assertOfferID(b.mustReadType(root, "offer.created", *timeout), offerID, "B/offer.created")

	var ov offerView
	if err := json.Unmarshal(created.Offer, &ov); err != nil {
		fatalf("unmarshal created offer: %v", err)
	}
	if ov.SellerID != sellerID {
		fatalf("offer.created seller mismatch: got=%s want=%s", ov.SellerID, sellerID)
	}

	mustUpdateOffer(root, *base, token, offerID, 19.5, *timeout)

	updated := a.mustReadType(root, "offer.updated", *timeout)
	assertOfferID(updated, offerID, "A/offer.updated")
	if err := json.Unmarshal(updated.Offer, &ov); err != nil {
		fatalf("unmarshal updated offer: %v", err)
	}
	if ov.Price != 19.5 {
		fatalf("offer.updated price mismatch: got=%v want=19.5", ov.Price)
	}
	assertOfferID(b.mustReadType(root, "offer.updated", *timeout), offerID, "B/offer.updated")

	mustDeleteOffer(root, *base, token, offerID, *timeout)

	deleted := a.mustReadType(root, "offer.deleted", *timeout)
	assertOfferID(deleted, offerID, "A/offer.deleted")
	if len(deleted.Offer) != 0 {
		fatalf("offer.deleted should not carry a payload, got %s", deleted.Offer)
	}
	assertOfferID(b.mustReadType(root, "offer.deleted", *timeout), offerID, "B/offer.deleted")

	fmt.Printf("OK: seller=%s offer_id=%s events=created,updated,deleted\n", sellerID, offerID)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func wsURL(base string) string {
	if strings.HasPrefix(base, "https://") {
		return "wss://" + strings.TrimPrefix(base, "https://")
	}
	return "ws://" + strings.TrimPrefix(base, "http://")
}

// mustRegister creates a throwaway account and returns its bearer token and
// account id.
func mustRegister(parent context.Context, base string, stepTimeout time.Duration, verbose bool) (token, sellerID string) {
	nonce := time.Now().UnixNano()
	body := map[string]string{
		"firstname": "Smoke",
		"lastname":  "Probe",
		"username":  fmt.Sprintf("smoke-%d", nonce),
		"password":  fmt.Sprintf("smoke-pass-%d", nonce),
		"email":     fmt.Sprintf("smoke-%d@example.com", nonce),
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	mustHTTP(parent, http.MethodPost, base+"/auth/register", "", body, http.StatusCreated, &resp, stepTimeout)

	if strings.TrimSpace(resp.Token) == "" {
		fatalf("register: empty token")
	}
	if strings.TrimSpace(resp.User.ID) == "" {
		fatalf("register: empty user id")
	}
	if verbose {
		fmt.Printf("register: username=%s\n", body["username"])
	}
	return resp.Token, resp.User.ID
}

func mustCreateOffer(parent context.Context, base, token string, stepTimeout time.Duration) string {
	body := map[string]any{
		"game_title":  "Chrono Trigger",
		"platform":    "SNES",
		"condition":   "good",
		"price":       42.0,
		"description": "Feed smoke probe listing.",
	}

	var resp struct {
		Offer offerView `json:"offer"`
	}
	mustHTTP(parent, http.MethodPost, base+"/api/offers", token, body, http.StatusCreated, &resp, stepTimeout)

	if strings.TrimSpace(resp.Offer.ID) == "" {
		fatalf("create offer: empty id")
	}
	return resp.Offer.ID
}

func mustUpdateOffer(parent context.Context, base, token, offerID string, price float64, stepTimeout time.Duration) {
	body := map[string]any{"price": price}
	mustHTTP(parent, http.MethodPut, base+"/api/offers/"+offerID, token, body, http.StatusOK, nil, stepTimeout)
}

func mustDeleteOffer(parent context.Context, base, token, offerID string, stepTimeout time.Duration) {
	mustHTTP(parent, http.MethodDelete, base+"/api/offers/"+offerID, token, nil, http.StatusNoContent, nil, stepTimeout)
}

func mustHTTP(parent context.Context, method, rawURL, token string, body any, wantStatus int, out any, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			fatalf("%s %s: marshal body: %v", method, rawURL, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		fatalf("%s %s: build request: %v", method, rawURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		fatalf("%s %s: read body: %v", method, rawURL, err)
	}
	if resp.StatusCode != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", method, rawURL, resp.StatusCode, wantStatus, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fatalf("%s %s: unmarshal response: %v", method, rawURL, err)
		}
	}
}

func mustSubscribe(parent context.Context, name, feedURL, origin, token string, stepTimeout time.Duration) *subscriber {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}
	h.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.Dial(ctx, feedURL, &websocket.DialOptions{
		HTTPHeader: h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("subscribe %s: %v", name, err)
	}

	conn.SetReadLimit(maxReadBytes)

	s := &subscriber{
		name:  name,
		conn:  conn,
		inbox: make(chan feedEvent, 64),
		errCh: make(chan error, 1),
	}
	s.startReadLoop(parent)
	return s
}

func (s *subscriber) startReadLoop(ctx context.Context) {
	go func() {
		for {
			typ, data, err := s.conn.Read(ctx)
			if err != nil {
				s.errCh <- err
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			var ev feedEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				s.errCh <- fmt.Errorf("decode event: %w", err)
				return
			}
			s.inbox <- ev
		}
	}()
}

// mustReadType returns the next event of the wanted type, skipping others.
func (s *subscriber) mustReadType(parent context.Context, want string, stepTimeout time.Duration) feedEvent {
	deadline := time.NewTimer(stepTimeout)
	defer deadline.Stop()

	for {
		select {
		case ev := <-s.inbox:
			if ev.Type == want {
				return ev
			}
		case err := <-s.errCh:
			fatalf("%s: read: %v", s.name, err)
		case <-parent.Done():
			fatalf("%s: context done waiting for %s", s.name, want)
		case <-deadline.C:
			fatalf("%s: timeout waiting for %s", s.name, want)
		}
	}
}

func assertOfferID(ev feedEvent, want, step string) {
	if ev.OfferID != want {
		fatalf("%s: offer_id=%s want=%s", step, ev.OfferID, want)
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "smoke done")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
