package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/robalobadob/vocab-jumble/assets"
	"github.com/robalobadob/vocab-jumble/internal/config"
	"github.com/robalobadob/vocab-jumble/internal/database"
	"github.com/robalobadob/vocab-jumble/internal/letterbag"
	"github.com/robalobadob/vocab-jumble/internal/store"
	"github.com/robalobadob/vocab-jumble/internal/vocab"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// newTestServer serves a two-word vocabulary with a target of two, so every
// jumble spells both "cat" and "car".
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	_, ts := newTestApp(t)
	return ts
}

func newTestApp(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	v, err := vocab.New([]string{"cat", "car"})
	if err != nil {
		t.Fatal(err)
	}
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		SuccessAtCount: 2,
		DailySalt:      "test_salt",
		GameTTL:        time.Hour,
		SecretKey:      "test-secret",
		SessionTTL:     time.Hour,
		TokenTTL:       time.Hour,
	}
	srv := New(cfg, v, store.NewMemoryStore(), db)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestPageFlow(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	resp, err := c.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("GET / = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(page), "cat") {
		t.Fatalf("page does not list the vocabulary")
	}

	if code := do(t, c, http.MethodGet, ts.URL+"/success", nil, nil); code != http.StatusForbidden {
		t.Fatalf("/success before winning = %d, want 403", code)
	}

	steps := []struct {
		text string
		want checkPageRes
	}{
		{"zzz", checkPageRes{Match: "zzz"}},
		{"cat", checkPageRes{Match: "cat", IsNewMatch: true}},
		{"CAT%20", checkPageRes{Match: "cat"}},
		{"car", checkPageRes{Success: true}},
	}
	for _, s := range steps {
		var got checkPageRes
		if code := do(t, c, http.MethodGet, ts.URL+"/_check?text="+s.text, nil, &got); code != http.StatusOK {
			t.Fatalf("_check %q = %d", s.text, code)
		}
		if diff := cmp.Diff(s.want, got); diff != "" {
			t.Fatalf("_check %q mismatch (-want +got):\n%s", s.text, diff)
		}
	}

	if code := do(t, c, http.MethodGet, ts.URL+"/success", nil, nil); code != http.StatusOK {
		t.Fatalf("/success after winning = %d, want 200", code)
	}
}

func TestCheckWithoutSession(t *testing.T) {
	ts := newTestServer(t)
	if code := do(t, newClient(t), http.MethodGet, ts.URL+"/_check?text=cat", nil, nil); code != http.StatusForbidden {
		t.Fatalf("_check without session = %d, want 403", code)
	}
}

func TestGameAPI(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	var vr vocabRes
	do(t, c, http.MethodGet, ts.URL+"/vocab", nil, &vr)
	if diff := cmp.Diff(vocabRes{Words: []string{"cat", "car"}, Count: 2}, vr); diff != "" {
		t.Fatalf("/vocab mismatch (-want +got):\n%s", diff)
	}

	var ng newGameRes
	if code := do(t, c, http.MethodPost, ts.URL+"/game/new", map[string]any{}, &ng); code != http.StatusOK {
		t.Fatalf("/game/new = %d", code)
	}
	if ng.GameID == "" || ng.Target != 2 {
		t.Fatalf("new game = %+v", ng)
	}
	bag := letterbag.New(ng.Jumble)
	if !bag.ContainsString("cat") || !bag.ContainsString("car") {
		t.Fatalf("jumble %q cannot spell both words", ng.Jumble)
	}

	var cr checkRes
	do(t, c, http.MethodPost, ts.URL+"/game/check", checkReq{GameID: ng.GameID, Text: "cat"}, &cr)
	if !cr.IsNewMatch || cr.Success {
		t.Fatalf("first check = %+v", cr)
	}
	do(t, c, http.MethodPost, ts.URL+"/game/check", checkReq{GameID: ng.GameID, Text: "car"}, &cr)
	if !cr.Success || len(cr.Matches) != 2 {
		t.Fatalf("second check = %+v", cr)
	}

	var snap struct {
		ID       string   `json:"gameId"`
		Matches  []string `json:"matches"`
		Attempts int      `json:"attempts"`
		Finished bool     `json:"finished"`
	}
	do(t, c, http.MethodGet, ts.URL+"/game/"+ng.GameID, nil, &snap)
	if snap.ID != ng.GameID || !snap.Finished || snap.Attempts != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestGameAPIErrors(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"zero target", http.MethodPost, "/game/new", map[string]int{"target": 0}, http.StatusBadRequest},
		{"unknown game", http.MethodGet, "/game/nope", nil, http.StatusNotFound},
		{"check unknown game", http.MethodPost, "/game/check", checkReq{GameID: "nope", Text: "cat"}, http.StatusNotFound},
		{"check without id", http.MethodPost, "/game/check", checkReq{Text: "cat"}, http.StatusBadRequest},
		{"qr unknown game", http.MethodGet, "/game/nope/qr", nil, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/nowhere", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, c, tt.method, ts.URL+tt.path, tt.body, nil); code != tt.want {
				t.Fatalf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestNotFoundPage(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/nowhere", nil)
	req.Header.Set("Accept", "text/html")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("404 page = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestQR(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	var ng newGameRes
	do(t, c, http.MethodPost, ts.URL+"/game/new", nil, &ng)

	resp, err := c.Get(ts.URL + "/game/" + ng.GameID + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("qr = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("qr body is not a PNG")
	}
}

func TestDaily(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	var first, again dailyNewRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &first)
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &again)
	if first.GameID == "" || first.Played || again.GameID != first.GameID {
		t.Fatalf("daily/new = %+v then %+v", first, again)
	}

	// Another player gets the same jumble on the same day.
	var other dailyNewRes
	do(t, newClient(t), http.MethodPost, ts.URL+"/daily/new", nil, &other)
	if other.Jumble != first.Jumble || other.GameID == first.GameID {
		t.Fatalf("other player's daily = %+v, first = %+v", other, first)
	}

	if code := do(t, c, http.MethodPost, ts.URL+"/daily/check", dailyCheckReq{GameID: other.GameID, Text: "cat"}, nil); code != http.StatusConflict {
		t.Fatalf("check on someone else's game = %d, want 409", code)
	}

	var res dailyCheckRes
	do(t, c, http.MethodPost, ts.URL+"/daily/check", dailyCheckReq{GameID: first.GameID, Text: "cat"}, &res)
	if res.State != "in_progress" || !res.IsNewMatch {
		t.Fatalf("first daily check = %+v", res)
	}
	do(t, c, http.MethodPost, ts.URL+"/daily/check", dailyCheckReq{GameID: first.GameID, Text: "car"}, &res)
	if res.State != "won" || !res.Success {
		t.Fatalf("winning daily check = %+v", res)
	}
	do(t, c, http.MethodPost, ts.URL+"/daily/check", dailyCheckReq{GameID: first.GameID, Text: "car"}, &res)
	if res.State != "locked" {
		t.Fatalf("check after winning = %+v", res)
	}

	var played dailyNewRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &played)
	if !played.Played || played.GameID != "" {
		t.Fatalf("daily/new after winning = %+v", played)
	}

	var lb lbRes
	do(t, c, http.MethodGet, ts.URL+"/daily/leaderboard", nil, &lb)
	if len(lb.Top) != 1 || lb.Top[0].Attempts != 2 {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if code := do(t, c, http.MethodGet, ts.URL+"/daily/leaderboard?date=yesterday", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad date = %d, want 400", code)
	}
}

func TestDailyGameRejectedOnGameRoutes(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	var d dailyNewRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &d)

	var e map[string]string
	for _, text := range []string{"cat", "car"} {
		if code := do(t, c, http.MethodPost, ts.URL+"/game/check", checkReq{GameID: d.GameID, Text: text}, &e); code != http.StatusConflict {
			t.Fatalf("/game/check on a daily game = %d, want 409", code)
		}
	}
	if e["error"] != "use_daily" {
		t.Fatalf("error = %v, want use_daily", e)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + d.GameID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatalf("websocket on a daily game connected")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("websocket on a daily game: %v", err)
	}

	// The game is untouched, so the daily route still records the win.
	var res dailyCheckRes
	do(t, c, http.MethodPost, ts.URL+"/daily/check", dailyCheckReq{GameID: d.GameID, Text: "cat"}, &res)
	if !res.IsNewMatch || res.Attempts != 1 {
		t.Fatalf("first daily check = %+v", res)
	}
	do(t, c, http.MethodPost, ts.URL+"/daily/check", dailyCheckReq{GameID: d.GameID, Text: "car"}, &res)
	if res.State != "won" {
		t.Fatalf("winning daily check = %+v", res)
	}

	var lb lbRes
	do(t, c, http.MethodGet, ts.URL+"/daily/leaderboard", nil, &lb)
	if len(lb.Top) != 1 {
		t.Fatalf("leaderboard = %+v", lb)
	}
	var played dailyNewRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &played)
	if !played.Played {
		t.Fatalf("daily/new after winning = %+v", played)
	}
}

func TestJanitorKeepsTodaysDailyGames(t *testing.T) {
	srv, ts := newTestApp(t)
	c := newClient(t)
	ctx := context.Background()

	var d dailyNewRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &d)

	srv.sweep(ctx, time.Now())
	var again dailyNewRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &again)
	if again.GameID != d.GameID {
		t.Fatalf("daily game replaced after sweep: %s then %s", d.GameID, again.GameID)
	}

	srv.sweep(ctx, time.Now().Add(48*time.Hour))
	if code := do(t, c, http.MethodGet, ts.URL+"/game/"+d.GameID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("expired daily game = %d, want 404", code)
	}
	srv.daily.mu.Lock()
	left := len(srv.daily.games)
	srv.daily.mu.Unlock()
	if left != 0 {
		t.Fatalf("daily index still holds %d dates", left)
	}
}

func TestAccountStats(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	if code := do(t, c, http.MethodGet, ts.URL+"/auth/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("/auth/me as guest = %d, want 401", code)
	}

	var signup map[string]any
	creds := credentials{Username: "erin", Password: "password123"}
	if code := do(t, c, http.MethodPost, ts.URL+"/auth/signup", creds, &signup); code != http.StatusOK {
		t.Fatalf("signup = %d %v", code, signup)
	}
	if code := do(t, c, http.MethodPost, ts.URL+"/auth/signup", creds, nil); code != http.StatusConflict {
		t.Fatalf("duplicate signup = %d, want 409", code)
	}
	if code := do(t, c, http.MethodPost, ts.URL+"/auth/login", credentials{Username: "erin", Password: "nope-nope"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", code)
	}

	var ng newGameRes
	do(t, c, http.MethodPost, ts.URL+"/game/new", nil, &ng)
	do(t, c, http.MethodPost, ts.URL+"/game/check", checkReq{GameID: ng.GameID, Text: "cat"}, nil)
	do(t, c, http.MethodPost, ts.URL+"/game/check", checkReq{GameID: ng.GameID, Text: "car"}, nil)

	var stats map[string]any
	do(t, c, http.MethodGet, ts.URL+"/stats/me", nil, &stats)
	want := map[string]any{"gamesPlayed": 1.0, "gamesWon": 1.0, "wordsFound": 2.0}
	delete(stats, "id")
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	var mine []store.Record
	do(t, c, http.MethodGet, ts.URL+"/games/mine", nil, &mine)
	if len(mine) != 1 || mine[0].ID != ng.GameID || mine[0].Status != "won" || mine[0].Matches != 2 {
		t.Fatalf("games/mine = %+v", mine)
	}

	do(t, c, http.MethodPost, ts.URL+"/auth/logout", nil, nil)
	if code := do(t, c, http.MethodGet, ts.URL+"/auth/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("/auth/me after logout = %d, want 401", code)
	}
}

func TestWebsocket(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	var ng newGameRes
	do(t, c, http.MethodPost, ts.URL+"/game/new", nil, &ng)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + ng.GameID + "/ws"
	player, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer player.Close()
	watcher, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer watcher.Close()

	type msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	read := func(conn *websocket.Conn) msg {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var m msg
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}

	if m := read(player); m.Type != string(msgState) {
		t.Fatalf("first message = %s, want state", m.Type)
	}
	if m := read(watcher); m.Type != string(msgState) {
		t.Fatalf("first message = %s, want state", m.Type)
	}

	if err := player.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	if m := read(player); m.Type != string(msgPong) {
		t.Fatalf("ping answered with %s", m.Type)
	}

	if err := player.WriteJSON(map[string]any{"type": "check", "payload": map[string]string{"text": "cat"}}); err != nil {
		t.Fatal(err)
	}
	for _, conn := range []*websocket.Conn{player, watcher} {
		m := read(conn)
		if m.Type != string(msgResult) {
			t.Fatalf("check answered with %s", m.Type)
		}
		var res checkRes
		if err := json.Unmarshal(m.Payload, &res); err != nil {
			t.Fatal(err)
		}
		if !res.IsNewMatch || res.Match != "cat" || len(res.Matches) != 1 {
			t.Fatalf("result = %+v", res)
		}
	}

	if err := player.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatal(err)
	}
	if m := read(player); m.Type != string(msgError) {
		t.Fatalf("unknown type answered with %s", m.Type)
	}
}
