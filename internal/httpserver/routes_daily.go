// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's challenge
//   - GET  /daily/leaderboard → fastest wins for today (or a given date)
//
// Everyone gets the same encoded message on a given day, picked
// deterministically from date + salt. Play happens through the regular
// /challenge/{id}/* routes; the win hook records the result once per
// player per day.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/starcipher/internal/daily"
	"github.com/robalobadob/starcipher/internal/messages"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	sessions map[string]string // challenge ID keyed by owner|date
	mu       sync.Mutex        // guards sessions
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{srv: s, sessions: make(map[string]string)}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// today returns today's date key, message index and encoded message.
func (d *dailyServer) today() (date string, idx int, message string) {
	now := d.srv.clock.Now()
	date = daily.DateKey(now)
	all := messages.All()
	if len(all) == 0 {
		return date, 0, messages.Random()
	}
	idx = daily.MessageIndex(now, d.srv.cfg.DailySalt, len(all))
	return date, idx, all[idx]
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewReq is the optional request payload for /daily/new.
type dailyNewReq struct {
	Motion string `json:"motion"`
}

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	ChallengeID string `json:"challengeId"`
	Date        string `json:"date"`
	Played      bool   `json:"played"`
}

// handleNew creates or resumes today's challenge.
//   - If the player already has a result for today → Played=true.
//   - A live, unfinished session for today is reused.
//   - Otherwise a new daily session is started.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	var req dailyNewReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	meta := d.srv.ownerMeta(w, r)
	date, idx, message := d.today()

	if played, err := d.srv.daily.AlreadyPlayed(r.Context(), meta.owner(), date); err != nil {
		log.Warn().Err(err).Msg("check daily played")
	} else if played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	key := meta.owner() + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.sessions[key]; ok {
		if sess, err := d.srv.store.Get(r.Context(), id); err == nil && !sess.Snapshot().Closed {
			_ = json.NewEncoder(w).Encode(dailyNewRes{ChallengeID: id, Date: date})
			return
		}
		delete(d.sessions, key)
	}

	meta.Mode = modeDaily
	meta.Date = date
	meta.MessageIndex = idx
	sess, err := d.srv.startChallenge(r.Context(), meta, message, req.Motion)
	if err != nil {
		http.Error(w, `{"error":"invalid"}`, http.StatusBadRequest)
		return
	}
	d.sessions[key] = sess.ID()
	_ = json.NewEncoder(w).Encode(dailyNewRes{ChallengeID: sess.ID(), Date: date})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _, _ = d.today()
	}
	rows, err := d.srv.daily.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
