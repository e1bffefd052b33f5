package httpserver

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/starcipher/assets"
	"github.com/robalobadob/starcipher/internal/config"
	"github.com/robalobadob/starcipher/internal/database"
	"github.com/robalobadob/starcipher/internal/game"
	"github.com/robalobadob/starcipher/internal/messages"
	"github.com/robalobadob/starcipher/internal/store"
)

// helloWorld reveals to "Hello, World!".
const helloWorld = "!ltzwE ,wttmP"

var epoch = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	clock  *game.ManualClock
	db     *sql.DB
	store  store.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("MOTION", "")
	require.NoError(t, messages.Init(""))

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.ClientOrigin = "http://client.test"

	db, err := database.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, assets.Migrations()))

	clk := game.NewManualClock(epoch)
	st := store.NewMemoryStore()
	s := New(cfg, st, db, WithClock(clk))
	srv := httptest.NewServer(s.Router())

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		srv.Close()
		st.CloseAll()
		_ = db.Close()
	})
	return &harness{t: t, srv: srv, client: &http.Client{Jar: jar}, clock: clk, db: db, store: st}
}

// do sends a request and decodes the JSON reply into out (if non-nil).
func (h *harness) do(method, path string, body any, out any) int {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(h.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func (h *harness) newChallenge(input string) newChallengeRes {
	h.t.Helper()
	var res newChallengeRes
	require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, "/challenge/new", map[string]string{"input": input}, &res))
	require.NotEmpty(h.t, res.ChallengeID)
	return res
}

// playToWin hits through every level; the win delay is still pending afterwards.
func (h *harness) playToWin(id string) game.Snapshot {
	h.t.Helper()
	var snap game.Snapshot
	for {
		require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/hit", nil, &snap))
		if snap.Phase == game.PhaseWon {
			return snap
		}
		require.Equal(h.t, game.PhaseLevelComplete, snap.Phase)
		require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/advance", nil, &snap))
		require.Equal(h.t, game.PhasePlaying, snap.Phase)
	}
}

// catchToWin clicks on the live target through every level.
func (h *harness) catchToWin(id string) game.Snapshot {
	h.t.Helper()
	var snap game.Snapshot
	require.Equal(h.t, http.StatusOK, h.do(http.MethodGet, "/challenge/"+id, nil, &snap))
	for {
		at := map[string]float64{"x": snap.Target.X, "y": snap.Target.Y}
		require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/select", at, &snap))
		if snap.Phase == game.PhaseWon {
			return snap
		}
		require.Equal(h.t, game.PhaseLevelComplete, snap.Phase)
		require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/advance", nil, &snap))
		require.Equal(h.t, game.PhasePlaying, snap.Phase)
	}
}

func (h *harness) status(id string) string {
	h.t.Helper()
	var status string
	require.NoError(h.t, h.db.QueryRow(`SELECT status FROM challenges WHERE id=?`, id).Scan(&status))
	return status
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	var body map[string]any
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", nil, &body))
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 0, body["live"])
}

func TestNewChallenge(t *testing.T) {
	h := newHarness(t)
	res := h.newChallenge(helloWorld)

	assert.Equal(t, 1, res.State.Level)
	assert.Equal(t, 3, res.State.Lives)
	assert.Equal(t, 10, res.State.Seconds)
	assert.Equal(t, game.PhasePlaying, res.State.Phase)
	assert.Equal(t, "jump", res.State.Motion)
	assert.Equal(t, "playing", h.status(res.ChallengeID))

	var snap game.Snapshot
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/challenge/"+res.ChallengeID, nil, &snap))
	assert.Equal(t, res.ChallengeID, snap.ID)

	h.clock.Advance(3 * time.Second)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/challenge/"+res.ChallengeID, nil, &snap))
	assert.Equal(t, 7, snap.Seconds)
}

func TestNewChallengeRandomMessageAndMotion(t *testing.T) {
	h := newHarness(t)
	var res newChallengeRes
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/challenge/new", map[string]string{"motion": "bounce"}, &res))
	assert.Equal(t, "bounce", res.State.Motion)

	var mode string
	require.NoError(t, h.db.QueryRow(`SELECT mode FROM challenges WHERE id=?`, res.ChallengeID).Scan(&mode))
	assert.Equal(t, modeRandom, mode)

	var bad map[string]string
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/challenge/new", map[string]string{"motion": "teleport"}, &bad))
	assert.Equal(t, "unknown_motion", bad["error"])
}

func TestChallengeWinAndReveal(t *testing.T) {
	h := newHarness(t)
	id := h.newChallenge(helloWorld).ChallengeID

	snap := h.playToWin(id)
	assert.Equal(t, 5, snap.Level)
	assert.False(t, snap.RevealReady)

	var locked map[string]string
	assert.Equal(t, http.StatusConflict, h.do(http.MethodGet, "/challenge/"+id+"/reveal", nil, &locked))
	assert.Equal(t, "locked", locked["error"])

	h.clock.Advance(1499 * time.Millisecond)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodGet, "/challenge/"+id+"/reveal", nil, nil))

	h.clock.Advance(time.Millisecond)
	var rev revealRes
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/challenge/"+id+"/reveal", nil, &rev))
	assert.Equal(t, helloWorld, rev.Input)
	assert.Equal(t, "Hello, World!", rev.Message)
	assert.Equal(t, "won", h.status(id))

	// finished sessions accept nothing more
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/challenge/"+id+"/hit", nil, nil))
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/challenge/"+id+"/close", nil, nil))
}

func TestChallengeInvalidTransition(t *testing.T) {
	h := newHarness(t)
	id := h.newChallenge(helloWorld).ChallengeID

	var res actionRes
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/challenge/"+id+"/advance", nil, &res))
	assert.Equal(t, "invalid_transition", res.Error)
	assert.Equal(t, game.PhasePlaying, res.State.Phase)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/challenge/"+id+"/restart", nil, nil))
}

func TestChallengeMissesAndRestart(t *testing.T) {
	h := newHarness(t)
	id := h.newChallenge(helloWorld).ChallengeID

	var snap game.Snapshot
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/miss", nil, &snap))
	}
	assert.Equal(t, game.PhaseGameOver, snap.Phase)
	assert.Equal(t, 0, snap.Lives)
	assert.Equal(t, 3, snap.Misses)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/restart", nil, &snap))
	assert.Equal(t, game.PhasePlaying, snap.Phase)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, 3, snap.Lives)
}

func TestChallengeSelect(t *testing.T) {
	h := newHarness(t)
	id := h.newChallenge(helloWorld).ChallengeID

	var snap game.Snapshot
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/challenge/"+id, nil, &snap))
	target := snap.Target

	far := map[string]float64{"x": target.X + 40, "y": target.Y}
	if target.X > snap.Field.Width/2 {
		far["x"] = target.X - 40
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/select", far, &snap))
	assert.Equal(t, game.PhasePlaying, snap.Phase)
	assert.Equal(t, 2, snap.Lives)
	assert.Equal(t, 1, snap.Misses)

	var res map[string]string
	assert.Equal(t, http.StatusBadRequest,
		h.do(http.MethodPost, "/challenge/"+id+"/select", map[string]float64{"x": target.X}, &res))
	assert.Equal(t, "bad_json", res["error"])

	near := map[string]float64{"x": snap.Target.X + 2, "y": snap.Target.Y - 2}
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/select", near, &snap))
	assert.Equal(t, game.PhaseLevelComplete, snap.Phase)
	assert.Equal(t, 1, snap.Level)

	var rejected actionRes
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/challenge/"+id+"/select", near, &rejected))
	assert.Equal(t, "invalid_transition", rejected.Error)
	assert.Equal(t, game.PhaseLevelComplete, rejected.State.Phase)
}

func TestChallengeClose(t *testing.T) {
	h := newHarness(t)
	id := h.newChallenge(helloWorld).ChallengeID

	var res map[string]bool
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/challenge/"+id+"/close", nil, &res))
	assert.True(t, res["closed"])
	assert.Equal(t, "closed", h.status(id))

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/challenge/"+id+"/close", nil, nil))
	assert.Equal(t, http.StatusConflict, h.do(http.MethodGet, "/challenge/"+id+"/reveal", nil, nil))
	assert.Zero(t, h.clock.Pending())
}

func TestChallengeNotFound(t *testing.T) {
	h := newHarness(t)
	var res map[string]string
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/challenge/nope", nil, &res))
	assert.Equal(t, "not_found", res["error"])
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/challenge/nope/hit", nil, nil))
}

func TestAuthFlowAndStats(t *testing.T) {
	h := newHarness(t)

	// a guest challenge is claimed on signup
	guest := h.newChallenge(helloWorld).ChallengeID

	creds := map[string]string{"username": "star_fan", "password": "correct-horse"}
	var me map[string]any
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/auth/signup", creds, &me))
	userID, _ := me["id"].(string)
	require.NotEmpty(t, userID)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/auth/signup", creds, nil))

	var owner string
	require.NoError(t, h.db.QueryRow(`SELECT user_id FROM challenges WHERE id=?`, guest).Scan(&owner))
	assert.Equal(t, userID, owner)

	var who authUser
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/auth/me", nil, &who))
	assert.Equal(t, "star_fan", who.Username)

	id := h.newChallenge(helloWorld).ChallengeID
	h.playToWin(id)
	h.clock.Advance(1500 * time.Millisecond)

	var stats map[string]any
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/stats/me", nil, &stats))
	assert.EqualValues(t, 1, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["wins"])
	assert.EqualValues(t, 1, stats["streak"])

	var mine []challengeRow
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/challenges/mine", nil, &mine))
	assert.Len(t, mine, 2)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/auth/me", nil, nil))

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/auth/login", creds, nil))
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/auth/me", nil, nil))

	bad := map[string]string{"username": "star_fan", "password": "wrong-password"}
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/auth/login", bad, nil))
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t)
	var res map[string]string
	assert.Equal(t, http.StatusBadRequest,
		h.do(http.MethodPost, "/auth/signup", map[string]string{"username": "x", "password": "correct-horse"}, &res))
	assert.Contains(t, res["error"], "username")
	assert.Equal(t, http.StatusBadRequest,
		h.do(http.MethodPost, "/auth/signup", map[string]string{"username": "valid_name", "password": "short"}, nil))
}

func TestDailyChallenge(t *testing.T) {
	h := newHarness(t)

	var first dailyNewRes
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/daily/new", nil, &first))
	assert.Equal(t, "2026-10-16", first.Date)
	assert.False(t, first.Played)
	require.NotEmpty(t, first.ChallengeID)

	// resumes the same live session
	var again dailyNewRes
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/daily/new", nil, &again))
	assert.Equal(t, first.ChallengeID, again.ChallengeID)

	var denied actionRes
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/challenge/"+first.ChallengeID+"/hit", nil, &denied))
	assert.Equal(t, "select_required", denied.Error)

	h.catchToWin(first.ChallengeID)
	h.clock.Advance(1500 * time.Millisecond)

	var played dailyNewRes
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/daily/new", nil, &played))
	assert.True(t, played.Played)
	assert.Empty(t, played.ChallengeID)

	var lb lbRes
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/daily/leaderboard", nil, &lb))
	assert.Equal(t, "2026-10-16", lb.Date)
	require.Len(t, lb.Top, 1)
	assert.Equal(t, 0, lb.Top[0].Misses)
	assert.Equal(t, 0, lb.Top[0].ElapsedMs)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/daily/leaderboard?date=2026-10-15", nil, &lb))
	assert.Empty(t, lb.Top)
}

func TestEventsStream(t *testing.T) {
	h := newHarness(t)
	id := h.newChallenge(helloWorld).ChallengeID

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/challenge/" + id + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" })
	assert.Equal(t, 10, msg.State.Seconds)

	h.clock.Advance(time.Second)
	readUntil(t, conn, func(m wsMessage) bool { return m.State != nil && m.State.Seconds == 9 })

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "advance"}))
	msg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "invalid_transition", msg.Error)

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "hit"}))
	readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "state" && m.State.Phase == game.PhaseLevelComplete
	})

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "close"}))
	readUntil(t, conn, func(m wsMessage) bool { return m.State != nil && m.State.Closed })

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

// readUntil reads frames until one satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func TestEventsSelectOnDaily(t *testing.T) {
	h := newHarness(t)
	var daily dailyNewRes
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/daily/new", nil, &daily))

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/challenge/" + daily.ChallengeID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" })
	target := msg.State.Target

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "hit"}))
	msg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "select_required", msg.Error)

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "select", X: target.X, Y: target.Y}))
	readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "state" && m.State.Phase == game.PhaseLevelComplete
	})

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "select", X: target.X, Y: target.Y}))
	msg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "invalid_transition", msg.Error)
}

func TestEventsRejectsForeignOrigin(t *testing.T) {
	h := newHarness(t)
	id := h.newChallenge(helloWorld).ChallengeID

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/challenge/" + id + "/events"
	_, res, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestSweptChallengeCountsAsClosed(t *testing.T) {
	h := newHarness(t)
	creds := map[string]string{"username": "drifter", "password": "correct-horse"}
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/auth/signup", creds, nil))

	won := h.newChallenge(helloWorld).ChallengeID
	h.playToWin(won)
	h.clock.Advance(1500 * time.Millisecond)

	abandoned := h.newChallenge(helloWorld).ChallengeID
	assert.Equal(t, 2, h.store.Sweep(epoch.Add(time.Hour), 30*time.Minute))

	assert.Equal(t, "won", h.status(won))
	assert.Equal(t, "closed", h.status(abandoned))

	var stats map[string]any
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/stats/me", nil, &stats))
	assert.EqualValues(t, 2, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["wins"])
	assert.EqualValues(t, 0, stats["streak"])
}
