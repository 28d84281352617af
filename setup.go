/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Triviabox setup editor
//
// The setup page edits a draft copy of the stored teams and questions. Each
// browser (keyed by its player cookie) gets its own draft, which is only
// written back to the store when the host presses "Save & Start".

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/006ZERO/GAME-OF-QUESTIONS/games/trivia"
	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
)

const maxBodySize = 64 << 10

type draftResponse struct {
	Teams     []trivia.Team     `json:"teams"`
	Questions []trivia.Question `json:"questions"`
}

type noticeResponse struct {
	Notice string `json:"notice"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type editRequest struct {
	Field trivia.QuestionField `json:"field"`
	Value string               `json:"value"`
}

type draft struct {
	editor     *trivia.Editor
	lastActive time.Time
}

// DraftManager keeps one setup editor per browser.
type DraftManager struct {
	mu          sync.Mutex
	drafts      map[string]*draft
	idleTimeout time.Duration
	store       trivia.Store
	clock       clockwork.Clock
}

func newDraftManager(ctx context.Context, idleTimeout time.Duration, store trivia.Store, clock clockwork.Clock) *DraftManager {
	dm := &DraftManager{
		drafts:      make(map[string]*draft),
		idleTimeout: idleTimeout,
		store:       store,
		clock:       clock,
	}

	if idleTimeout > 0 {
		go dm.reaperLoop(ctx)
	}

	return dm
}

// with runs fn against the caller's draft, loading it from the store first
// if needed. Editors are not safe for concurrent use, so fn runs under dm.mu.
func (dm *DraftManager) with(ctx context.Context, cfg *Config, playerID string, fn func(*trivia.Editor) error) (draftResponse, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	d, ok := dm.drafts[playerID]
	if !ok {
		editor, err := trivia.LoadEditor(ctx, dm.store, dm.clock, cfg.logger)
		if err != nil {
			return draftResponse{}, err
		}

		d = &draft{editor: editor}
		dm.drafts[playerID] = d
	}

	d.lastActive = dm.clock.Now()

	err := fn(d.editor)

	return draftResponse{
		Teams:     d.editor.Teams(),
		Questions: d.editor.Questions(),
	}, err
}

// drop forgets a draft so the next visit reloads from the store.
func (dm *DraftManager) drop(playerID string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	delete(dm.drafts, playerID)
}

func (dm *DraftManager) reaperLoop(ctx context.Context) {
	ticker := dm.clock.NewTicker(dm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			dm.reap(dm.clock.Now().Add(-dm.idleTimeout))
		}
	}
}

func (dm *DraftManager) reap(cutoff time.Time) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for id, d := range dm.drafts {
		if d.lastActive.Before(cutoff) {
			delete(dm.drafts, id)
		}
	}
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any, errs chan<- error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs <- err
	}
}

// writeDraft reports the draft after an edit, mapping refused edits to
// client errors. The draft is always included so the page can resync.
func writeDraft(cfg *Config, w http.ResponseWriter, resp draftResponse, err error, errs chan<- error) {
	switch {
	case err == nil:
		writeJSON(cfg, w, http.StatusOK, resp, errs)
	case errors.Is(err, trivia.ErrTeamLimit):
		writeJSON(cfg, w, http.StatusUnprocessableEntity, noticeResponse{Notice: "Maximum of 4 teams!"}, errs)
	case errors.Is(err, trivia.ErrLastTeam):
		writeJSON(cfg, w, http.StatusUnprocessableEntity, noticeResponse{Notice: "At least one team is required."}, errs)
	case errors.Is(err, trivia.ErrNotFound):
		writeJSON(cfg, w, http.StatusNotFound, noticeResponse{Notice: "That item no longer exists."}, errs)
	case errors.Is(err, trivia.ErrUnknownField):
		writeJSON(cfg, w, http.StatusBadRequest, noticeResponse{Notice: err.Error()}, errs)
	default:
		cfg.logger.Error().Err(err).Msg("editing setup")
		writeJSON(cfg, w, http.StatusInternalServerError, noticeResponse{Notice: "Unable to load setup."}, errs)
	}
}

func parseID(p httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(p.ByName("id"), 10, 64)

	return id, err == nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}

func serveDraft(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(*trivia.Editor) error { return nil })

		writeDraft(cfg, w, resp, err, errs)
	}
}

func addTeam(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(e *trivia.Editor) error {
			_, err := e.AddTeam()

			return err
		})

		writeDraft(cfg, w, resp, err, errs)
	}
}

func renameTeam(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id, ok := parseID(p)
		if !ok {
			writeJSON(cfg, w, http.StatusBadRequest, noticeResponse{Notice: "invalid id"}, errs)
			return
		}

		var req renameRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, noticeResponse{Notice: "invalid request body"}, errs)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(e *trivia.Editor) error {
			return e.RenameTeam(id, req.Name)
		})

		writeDraft(cfg, w, resp, err, errs)
	}
}

func removeTeam(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id, ok := parseID(p)
		if !ok {
			writeJSON(cfg, w, http.StatusBadRequest, noticeResponse{Notice: "invalid id"}, errs)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(e *trivia.Editor) error {
			return e.RemoveTeam(id)
		})

		writeDraft(cfg, w, resp, err, errs)
	}
}

func addQuestion(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(e *trivia.Editor) error {
			e.AddQuestion()

			return nil
		})

		writeDraft(cfg, w, resp, err, errs)
	}
}

func editQuestion(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id, ok := parseID(p)
		if !ok {
			writeJSON(cfg, w, http.StatusBadRequest, noticeResponse{Notice: "invalid id"}, errs)
			return
		}

		var req editRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, noticeResponse{Notice: "invalid request body"}, errs)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(e *trivia.Editor) error {
			return e.EditQuestion(id, req.Field, req.Value)
		})

		writeDraft(cfg, w, resp, err, errs)
	}
}

func removeQuestion(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id, ok := parseID(p)
		if !ok {
			writeJSON(cfg, w, http.StatusBadRequest, noticeResponse{Notice: "invalid id"}, errs)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(e *trivia.Editor) error {
			return e.RemoveQuestion(id)
		})

		writeDraft(cfg, w, resp, err, errs)
	}
}

// saveSetup persists the draft and sends the host to the home page.
func saveSetup(cfg *Config, dm *DraftManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)

		resp, err := dm.with(r.Context(), cfg, playerID, func(e *trivia.Editor) error {
			return e.Save(r.Context(), dm.store)
		})
		if err != nil {
			writeDraft(cfg, w, resp, err, errs)
			return
		}

		dm.drop(playerID)

		logf(cfg, "SETUP: Saved %d teams and %d questions from %s", len(resp.Teams), len(resp.Questions), realIP(r))

		http.Redirect(w, r, cfg.prefix+"/", http.StatusSeeOther)
	}
}

// registerSetup sets up routes so that:
//   - $path                    → setup page
//   - $path/draft              → current draft as JSON
//   - $path/teams[/:id]        → add, rename and remove teams
//   - $path/questions[/:id]    → add, edit and remove questions
//   - $path/save               → persist the draft
func registerSetup(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, store trivia.Store, clock clockwork.Clock, errs chan<- error) *DraftManager {
	dm := newDraftManager(ctx, cfg.sessionTimeout, store, clock)

	mux.GET(cfg.prefix+path, servePage(cfg, "setup.html", errs))
	mux.GET(cfg.prefix+path+"/draft", serveDraft(cfg, dm, errs))

	mux.POST(cfg.prefix+path+"/teams", addTeam(cfg, dm, errs))
	mux.PUT(cfg.prefix+path+"/teams/:id", renameTeam(cfg, dm, errs))
	mux.DELETE(cfg.prefix+path+"/teams/:id", removeTeam(cfg, dm, errs))

	mux.POST(cfg.prefix+path+"/questions", addQuestion(cfg, dm, errs))
	mux.PUT(cfg.prefix+path+"/questions/:id", editQuestion(cfg, dm, errs))
	mux.DELETE(cfg.prefix+path+"/questions/:id", removeQuestion(cfg, dm, errs))

	mux.POST(cfg.prefix+path+"/save", saveSetup(cfg, dm, errs))

	return dm
}
