package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skyezerfox/moss/models"
	"github.com/skyezerfox/moss/registry"
	"github.com/skyezerfox/moss/status"
)

const pioneer = "pioneer.aternos.me:15757"

// stubFetcher answers from a fixed table; unknown addresses fail with a 404.
type stubFetcher struct {
	docs map[string]*models.ServerStatus
}

func (f *stubFetcher) Fetch(ctx context.Context, address string) (*models.ServerStatus, error) {
	if doc, ok := f.docs[address]; ok {
		return doc, nil
	}
	return nil, &status.HTTPError{Address: address, StatusCode: http.StatusNotFound, Status: "404 Not Found"}
}

// gatedFetcher holds every fetch until release is closed.
type gatedFetcher struct {
	stubFetcher
	release chan struct{}
}

func (f *gatedFetcher) Fetch(ctx context.Context, address string) (*models.ServerStatus, error) {
	<-f.release
	return f.stubFetcher.Fetch(ctx, address)
}

func onlineDoc() *models.ServerStatus {
	on, players, max := true, 3, 10
	motd, version := "Welcome", "1.21.0"
	return &models.ServerStatus{
		Online:  &on,
		MOTD:    &models.MOTD{Clean: &motd},
		Players: &models.Players{Online: &players, Max: &max},
		Version: &models.Version{Name: &version},
	}
}

func newTestHandler(t *testing.T, opts Options) (*Handler, *status.Controller, http.Handler) {
	t.Helper()
	c := status.NewController(&stubFetcher{docs: map[string]*models.ServerStatus{pioneer: onlineDoc()}})
	h := New(registry.NewDefault(), c, opts)
	return h, c, h.SetupRouter()
}

func do(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type listingResponse struct {
	Success bool    `json:"success"`
	Data    Listing `json:"data"`
}

func decodeListing(t *testing.T, rec *httptest.ResponseRecorder) Listing {
	t.Helper()
	var resp listingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success response")
	}
	return resp.Data
}

func TestGetServersInitial(t *testing.T) {
	_, _, router := newTestHandler(t, Options{})

	rec := do(t, router, "GET", "/api/servers")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	l := decodeListing(t, rec)
	if len(l.Servers) != 4 {
		t.Fatalf("expected 4 servers, got %d", len(l.Servers))
	}
	for _, card := range l.Servers {
		if card.Display.Label != "Unknown" || card.Pending || card.Details != nil {
			t.Errorf("unexpected initial card %+v", card)
		}
	}
	if l.Servers[2].JoinURL != "minecraft://?addExternalServer=Pioneer|pioneer.aternos.me:15757" {
		t.Errorf("unexpected join url %q", l.Servers[2].JoinURL)
	}
}

func TestCheckServerAPI(t *testing.T) {
	_, c, router := newTestHandler(t, Options{})

	rec := do(t, router, "POST", "/api/servers/"+pioneer+"/check")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	c.Wait()

	rec = do(t, router, "GET", "/api/servers/"+pioneer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data Card `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode card: %v", err)
	}
	card := resp.Data
	if card.Display.Label != "Online" || card.Display.Tone != "positive" {
		t.Errorf("unexpected display %+v", card.Display)
	}
	if card.Details == nil {
		t.Fatal("expected details for online server")
	}
	if card.Details.PlayersOnline != 3 || card.Details.PlayersMax != 10 || card.Details.Gamemode != "N/A" {
		t.Errorf("unexpected details %+v", card.Details)
	}
}

func TestCheckUnknownAddress(t *testing.T) {
	_, _, router := newTestHandler(t, Options{})

	for _, path := range []string{"/api/servers/nope:1/check", "/servers/nope:1/check"} {
		rec := do(t, router, "POST", path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
	if rec := do(t, router, "GET", "/api/servers/nope:1"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestErrorPanelLifecycle(t *testing.T) {
	_, c, router := newTestHandler(t, Options{})
	failing := "mc.nizaralghifary.my.id:19834"

	rec := do(t, router, "POST", "/servers/"+failing+"/check")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	c.Wait()

	l := decodeListing(t, do(t, router, "GET", "/api/servers"))
	if !strings.Contains(l.Error, "Failed to check server status") || !strings.Contains(l.Error, failing) {
		t.Errorf("unexpected error %q", l.Error)
	}
	if l.Servers[0].Display.Label != "Unknown" {
		t.Errorf("expected failed server to be Unknown, got %q", l.Servers[0].Display.Label)
	}

	page := do(t, router, "GET", "/").Body.String()
	if !strings.Contains(page, "Try Again") || strings.Contains(page, "Check Status") {
		t.Error("expected the error panel instead of the listing")
	}

	rec = do(t, router, "POST", "/error/clear")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}

	page = do(t, router, "GET", "/").Body.String()
	if strings.Contains(page, "Try Again") {
		t.Error("error panel still shown after clear")
	}
	for _, name := range []string{"Neo_Babel", "Nzr_Survival", "Pioneer", "Survival_2"} {
		if !strings.Contains(page, name) {
			t.Errorf("listing is missing %s", name)
		}
	}
	if e := c.StatusOf(failing); e.Kind != status.Unknown {
		t.Errorf("clear altered the entry: %s", e.Kind)
	}
}

func TestClearErrorAPI(t *testing.T) {
	_, c, router := newTestHandler(t, Options{})

	do(t, router, "POST", "/api/servers/survival.nizaralghifary.my.id:35768/check")
	c.Wait()
	if _, ok := c.LastError(); !ok {
		t.Fatal("expected error after failed check")
	}

	l := decodeListing(t, do(t, router, "DELETE", "/api/error"))
	if l.Error != "" {
		t.Errorf("expected error cleared, got %q", l.Error)
	}
}

func TestIndexRendersOnlineDetails(t *testing.T) {
	_, c, router := newTestHandler(t, Options{})
	do(t, router, "POST", "/servers/"+pioneer+"/check")
	c.Wait()

	page := do(t, router, "GET", "/").Body.String()
	for _, want := range []string{
		"Players: 3/10",
		"Version: 1.21.0",
		"Gamemode: N/A",
		"Welcome",
		"Bedrock Only",
		`class="positive"`,
		`href="minecraft://?addExternalServer=Pioneer|pioneer.aternos.me:15757"`,
		`href="minecraft://?addExternalServer=Neo_Babel|mc.nizaralghifary.my.id:19834"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "%7c") || strings.Contains(page, "%7C") {
		t.Error("deep link separator was percent-encoded")
	}
}

func TestDeepLinkAttributeEscaped(t *testing.T) {
	reg, err := registry.New([]models.ServerDescriptor{{Name: `Quote"d`, Address: "q.example.net:1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := New(reg, status.NewController(&stubFetcher{}), Options{})

	page := do(t, h.SetupRouter(), "GET", "/").Body.String()
	if !strings.Contains(page, `href="minecraft://?addExternalServer=Quote%22d|q.example.net:1"`) {
		t.Error("deep link href not rendered as expected")
	}
}

var renderedVersion = regexp.MustCompile(`var rendered =\s*(\d+)\s*;`)

func pageVersion(t *testing.T, page string) uint64 {
	t.Helper()
	m := renderedVersion.FindStringSubmatch(page)
	if m == nil {
		t.Fatal("page does not embed its state version")
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		t.Fatalf("bad version %q: %v", m[1], err)
	}
	return v
}

func TestIndexEmbedsStateVersion(t *testing.T) {
	_, c, router := newTestHandler(t, Options{})

	before := pageVersion(t, do(t, router, "GET", "/").Body.String())
	if before != c.Version() {
		t.Errorf("page version %d, controller version %d", before, c.Version())
	}

	do(t, router, "POST", "/servers/"+pioneer+"/check")
	c.Wait()

	after := pageVersion(t, do(t, router, "GET", "/").Body.String())
	if after <= before {
		t.Errorf("expected version to grow past %d, got %d", before, after)
	}
	if l := decodeListing(t, do(t, router, "GET", "/api/servers")); l.Version != after {
		t.Errorf("api version %d differs from page version %d", l.Version, after)
	}
}

func TestCheckRateLimitIgnoresForwardedHeaders(t *testing.T) {
	_, c, router := newTestHandler(t, Options{CheckRate: 0.001, CheckBurst: 1})

	for i, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest("POST", "/api/servers/"+pioneer+"/check", nil)
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", spoofed)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		want := http.StatusAccepted
		if i > 0 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
	c.Wait()
}

func TestCheckRateLimited(t *testing.T) {
	_, c, router := newTestHandler(t, Options{CheckRate: 0.001, CheckBurst: 1})

	if rec := do(t, router, "POST", "/api/servers/"+pioneer+"/check"); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec := do(t, router, "POST", "/api/servers/"+pioneer+"/check"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	c.Wait()
}

func TestHealthAndNotFound(t *testing.T) {
	_, _, router := newTestHandler(t, Options{})

	if rec := do(t, router, "GET", "/health"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, router, "GET", "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{"remote addr", nil, "192.0.2.1:1234", false, "192.0.2.1"},
		{"forwarded for untrusted", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "10.0.0.1:1", false, "10.0.0.1"},
		{"real ip untrusted", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:1", false, "10.0.0.1"},
		{"forwarded for trusted", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:1", true, "203.0.113.7"},
		{"real ip trusted", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:1", true, "198.51.100.2"},
		{"trusted without headers", nil, "192.0.2.1:1234", true, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWebSocketSnapshots(t *testing.T) {
	h, c, router := newTestHandler(t, Options{})
	srv := httptest.NewServer(router)
	defer srv.Close()
	defer h.Hub().Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		return msg
	}

	first := read()
	if first.Type != "snapshot" || len(first.Payload.Servers) != 4 {
		t.Fatalf("unexpected initial message %+v", first)
	}
	if first.Payload.Version != c.Version() {
		t.Errorf("initial snapshot version %d, controller version %d", first.Payload.Version, c.Version())
	}

	c.RequestStatus(pioneer)
	c.Wait()

	for i := 0; i < 2; i++ {
		msg := read()
		if msg.Payload.Version <= first.Payload.Version {
			t.Errorf("snapshot version did not grow: %d", msg.Payload.Version)
		}
		if msg.Payload.Servers[2].Display.Label == "Online" {
			return
		}
	}
	t.Error("never received the online snapshot")
}

// A check that finishes between rendering the page and opening the socket
// must still be visible: the first snapshot carries a newer version than the
// page, which makes the page reload.
func TestWebSocketFirstSnapshotAfterRender(t *testing.T) {
	gate := &gatedFetcher{
		stubFetcher: stubFetcher{docs: map[string]*models.ServerStatus{pioneer: onlineDoc()}},
		release:     make(chan struct{}),
	}
	c := status.NewController(gate)
	h := New(registry.NewDefault(), c, Options{})
	router := h.SetupRouter()
	srv := httptest.NewServer(router)
	defer srv.Close()
	defer h.Hub().Close()

	do(t, router, "POST", "/servers/"+pioneer+"/check")
	page := do(t, router, "GET", "/").Body.String()
	if !strings.Contains(page, "Checking...") {
		t.Fatal("expected the page to render the pending state")
	}
	rendered := pageVersion(t, page)

	close(gate.release)
	c.Wait()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Payload.Servers[2].Display.Label != "Online" {
		t.Fatalf("expected resolved snapshot, got %q", msg.Payload.Servers[2].Display.Label)
	}
	if msg.Payload.Version == rendered {
		t.Errorf("first snapshot has the rendered version %d; the page would not refresh", rendered)
	}
}
