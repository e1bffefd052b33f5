// internal/httpserver/routes_challenge.go
//
// HTTP routes for star-catch challenges.
//   - POST /challenge/new            → start a challenge guarding an encoded message
//   - GET  /challenge/{id}           → current snapshot
//   - POST /challenge/{id}/select    → player clicked at {x,y}; hit or miss is decided here
//   - POST /challenge/{id}/hit       → player caught the star (not for daily challenges)
//   - POST /challenge/{id}/miss      → player clicked the background
//   - POST /challenge/{id}/advance   → continue after level_complete
//   - POST /challenge/{id}/restart   → start over after game_over
//   - POST /challenge/{id}/close     → cancel (no reveal)
//   - GET  /challenge/{id}/reveal    → decoded message, only after the win signal
//
// Sessions live in the in-memory store; a row per challenge in the DB keeps
// history and feeds user stats. DB writes are best effort.
// Daily challenges feed a leaderboard, so their catches must come through
// /select, where the server checks the position against the live target.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/starcipher/internal/cipher"
	"github.com/robalobadob/starcipher/internal/daily"
	"github.com/robalobadob/starcipher/internal/game"
	"github.com/robalobadob/starcipher/internal/messages"
	"github.com/robalobadob/starcipher/internal/store"
)

const (
	modeCustom = "custom"
	modeRandom = "random"
	modeDaily  = "daily"

	// maxInputLen bounds the message a challenge may guard.
	maxInputLen = 4096
)

// challengeMeta is what the persistence hooks need to know about a session.
type challengeMeta struct {
	ID           string
	UserID       string // empty for guests
	AnonID       string // empty for signed-in users
	Mode         string
	Motion       string
	Date         string // daily only
	MessageIndex int    // daily only
}

// owner is the identity results are recorded under.
func (m challengeMeta) owner() string {
	if m.UserID != "" {
		return m.UserID
	}
	return m.AnonID
}

// mountChallenges registers all /challenge routes.
func (s *Server) mountChallenges(r chi.Router) {
	r.Route("/challenge", func(r chi.Router) {
		r.Post("/new", s.handleNewChallenge)
		r.Get("/{id}", s.handleGetChallenge)
		r.Post("/{id}/select", s.handleSelect)
		r.Post("/{id}/hit", s.handleAction(game.EventHit))
		r.Post("/{id}/miss", s.handleAction(game.EventMiss))
		r.Post("/{id}/advance", s.handleAction(game.EventAdvance))
		r.Post("/{id}/restart", s.handleAction(game.EventRestart))
		r.Post("/{id}/close", s.handleClose)
		r.Get("/{id}/reveal", s.handleReveal)
	})
}

// newChallengeReq/Res payloads for POST /challenge/new.
type newChallengeReq struct {
	Input  string `json:"input"`  // encoded message; empty picks one from the message list
	Motion string `json:"motion"` // "jump" | "bounce"; empty uses the server default
}
type newChallengeRes struct {
	ChallengeID string        `json:"challengeId"`
	State       game.Snapshot `json:"state"`
}

// handleNewChallenge starts a session and records an owner row.
func (s *Server) handleNewChallenge(w http.ResponseWriter, r *http.Request) {
	var req newChallengeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if len(req.Input) > maxInputLen {
		http.Error(w, `{"error":"input_too_long"}`, http.StatusBadRequest)
		return
	}

	mode := modeCustom
	input := req.Input
	if strings.TrimSpace(input) == "" {
		mode = modeRandom
		input = messages.Random()
	}

	meta := s.ownerMeta(w, r)
	meta.Mode = mode
	sess, err := s.startChallenge(r.Context(), meta, input, req.Motion)
	if err != nil {
		if errors.Is(err, game.ErrUnknownMotion) {
			http.Error(w, `{"error":"unknown_motion"}`, http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("start challenge")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(newChallengeRes{ChallengeID: sess.ID(), State: sess.Snapshot()})
}

// ownerMeta identifies the caller: the signed-in user or an anonymous cookie.
func (s *Server) ownerMeta(w http.ResponseWriter, r *http.Request) challengeMeta {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return challengeMeta{UserID: me.ID}
	}
	return challengeMeta{AnonID: s.ensureAnonID(w, r)}
}

// startChallenge creates, stores and records a session.
func (s *Server) startChallenge(ctx context.Context, meta challengeMeta, input, motion string) (*game.Session, error) {
	gcfg, err := s.cfg.Game(motion)
	if err != nil {
		return nil, err
	}
	meta.ID = uuid.NewString()
	meta.Motion = gcfg.Motion.Name()

	sess := game.NewSession(input, gcfg,
		game.WithID(meta.ID),
		game.WithClock(s.clock),
		game.WithHooks(s.persistHooks(meta, gcfg)),
	)
	if err := s.store.Save(ctx, sess); err != nil {
		sess.Shutdown()
		return nil, err
	}
	if meta.Mode == modeDaily {
		s.selectOnly.Store(meta.ID, struct{}{})
	}

	now := s.clock.Now().UTC().Format(time.RFC3339)
	var userID, anonID any
	if meta.UserID != "" {
		userID = meta.UserID
	} else {
		anonID = meta.AnonID
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO challenges (id, user_id, anonymous_id, mode, motion, status, started_at)
		 VALUES (?,?,?,?,?,?,?)`,
		meta.ID, userID, anonID, meta.Mode, meta.Motion, "playing", now); err != nil {
		log.Warn().Err(err).Str("challengeId", meta.ID).Msg("insert challenge row")
	}

	log.Info().Str("challengeId", meta.ID).Str("mode", meta.Mode).Str("motion", meta.Motion).Msg("challenge started")
	return sess, nil
}

// persistHooks records the outcome of a session once it finishes.
func (s *Server) persistHooks(meta challengeMeta, gcfg game.Config) game.Hooks {
	return game.Hooks{
		OnWin: func(snap game.Snapshot) {
			s.selectOnly.Delete(meta.ID)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.finishChallenge(ctx, meta, snap, "won")
			if meta.Mode == modeDaily {
				elapsed := max(snap.UpdatedAt.Sub(snap.StartedAt)-gcfg.WinDelay, 0)
				if err := s.daily.InsertResult(ctx, daily.Result{
					UserID:       meta.owner(),
					Date:         meta.Date,
					MessageIndex: meta.MessageIndex,
					Misses:       snap.Misses,
					ElapsedMs:    int(elapsed.Milliseconds()),
				}); err != nil {
					log.Warn().Err(err).Str("challengeId", meta.ID).Msg("insert daily result")
				}
			}
			log.Info().Str("challengeId", meta.ID).Int("misses", snap.Misses).Msg("challenge won")
		},
		OnClose: func(snap game.Snapshot) {
			s.selectOnly.Delete(meta.ID)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.finishChallenge(ctx, meta, snap, "closed")
			log.Info().Str("challengeId", meta.ID).Int("level", snap.Level).Msg("challenge closed")
		},
	}
}

// finishChallenge marks the row finished and bumps user stats (within tx).
func (s *Server) finishChallenge(ctx context.Context, meta challengeMeta, snap game.Snapshot, status string) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin finish tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE challenges SET status=?, level_reached=?, misses=?, finished_at=? WHERE id=?`,
		status, snap.Level, snap.Misses, snap.UpdatedAt.UTC().Format(time.RFC3339), meta.ID); err != nil {
		log.Warn().Err(err).Str("challengeId", meta.ID).Msg("finish challenge")
	}
	if meta.UserID != "" {
		if err := bumpStats(ctx, tx, meta.UserID, status == "won"); err != nil {
			log.Warn().Err(err).Str("user", meta.UserID).Msg("bump stats")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit finish tx")
	}
}

// session loads the {id} session or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, `{"error":"store_error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// actionRes is returned for rejected actions.
type actionRes struct {
	Error string        `json:"error"`
	State game.Snapshot `json:"state"`
}

// handleAction applies a player event; 409 when it does not fit the phase.
func (s *Server) handleAction(ev game.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		if ev == game.EventHit && s.requiresSelect(sess.ID()) {
			writeJSON(w, http.StatusForbidden, actionRes{Error: "select_required", State: sess.Snapshot()})
			return
		}
		snap, applied := sess.Do(ev)
		if !applied {
			writeJSON(w, http.StatusConflict, actionRes{Error: "invalid_transition", State: snap})
			return
		}
		log.Debug().Str("challengeId", sess.ID()).Str("event", ev.String()).
			Str("phase", string(snap.Phase)).Int("level", snap.Level).Msg("challenge event")
		_ = json.NewEncoder(w).Encode(snap)
	}
}

// requiresSelect reports whether id only accepts server-checked catches.
func (s *Server) requiresSelect(id string) bool {
	_, ok := s.selectOnly.Load(id)
	return ok
}

// selectReq is the payload for /challenge/{id}/select, in field units.
type selectReq struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// handleSelect judges a click against the live target position.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, applied := sess.Select(game.Point{X: *req.X, Y: *req.Y})
	if !applied {
		writeJSON(w, http.StatusConflict, actionRes{Error: "invalid_transition", State: snap})
		return
	}
	log.Debug().Str("challengeId", sess.ID()).Float64("x", *req.X).Float64("y", *req.Y).
		Str("phase", string(snap.Phase)).Int("lives", snap.Lives).Msg("challenge select")
	_ = json.NewEncoder(w).Encode(snap)
}

// handleClose cancels a challenge that has not signaled its win.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.Close() {
		writeJSON(w, http.StatusConflict, actionRes{Error: "already_finished", State: sess.Snapshot()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"closed": true})
}

// revealRes is returned by /challenge/{id}/reveal.
type revealRes struct {
	Input   string `json:"input"`
	Message string `json:"message"`
}

// handleReveal decodes the guarded message once the win has been signaled.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.RevealReady() {
		http.Error(w, `{"error":"locked"}`, http.StatusConflict)
		return
	}
	_ = json.NewEncoder(w).Encode(revealRes{Input: sess.Input(), Message: cipher.Reveal(sess.Input())})
}
