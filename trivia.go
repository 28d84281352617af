/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Triviabox game sessions
//
// Each session lives at $path/:gameid and owns one Game. Every screen that
// opens the session (the host's laptop, a projector, a phone) sees the same
// round through a WebSocket and can send the host controls.
//
// Features:
// - First load of a session reads teams and questions from the store
// - Per-question 30 second countdown, pause/resume, answer reveal
// - Correct/incorrect judgement with a 1.5 second pause before the next question
// - Confetti message broadcast on correct answers
// - Results with winner or tie, and restart
// - Countdown paused when the last screen disconnects
// - Sessions reaped after the configured idle timeout
// - QR code for joining the session from another device

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/006ZERO/GAME-OF-QUESTIONS/games/trivia"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const writeWait = 10 * time.Second

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`              // "start", "pause", "reveal", "hide", "toggle_answer", "judge", "restart"
	Correct bool   `json:"correct,omitempty"` // judge
}

// GameStateMessage carries the full round snapshot.
type GameStateMessage struct {
	Type string `json:"type"` // "game_state"
	trivia.Snapshot
}

// CelebrateMessage asks every screen to fire confetti.
type CelebrateMessage struct {
	Type string `json:"type"` // "celebrate"
	trivia.Celebration
}

// NoticeMessage is sent only to the client whose command was refused.
type NoticeMessage struct {
	Type    string `json:"type"` // "notice"
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id   string
	game *trivia.Game

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client
	commands chan command
	done     chan struct{}
	once     sync.Once

	mu sync.RWMutex

	lastActive time.Time
	clock      clockwork.Clock
}

func newHub(ctx context.Context, cfg *Config, gameID string, store trivia.Store, clock clockwork.Clock) (*Hub, error) {
	h := &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		done:       make(chan struct{}),
		lastActive: clock.Now(),
		clock:      clock,
	}

	game, err := trivia.LoadGame(ctx, store, trivia.Options{
		Clock:      clock,
		Logger:     cfg.logger.With().Str("game", gameID).Logger(),
		Celebrator: h,
		AutoStart:  cfg.autoStart,
	})
	if err != nil {
		return nil, err
	}
	h.game = game

	return h, nil
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			h.game.Close()
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = h.clock.Now()
			h.clients[c] = true
			h.sendLocked(c, h.stateMessageLocked())
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = h.clock.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

			// Nobody is watching; stop the clock rather than let it run out.
			if len(h.clients) == 0 && h.game.Status() == trivia.StatusRunning {
				_ = h.game.Pause()
				logf(cfg, "GAMES: Paused %s, no screens connected", h.id)
			}
			h.mu.Unlock()

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)

		case <-h.game.Ticks():
			h.mu.Lock()
			h.game.Tick()
			h.broadcastStateLocked()
			h.mu.Unlock()

		case <-h.game.Advances():
			h.mu.Lock()
			h.game.Advance()
			if h.game.Status() == trivia.StatusFinished {
				res, _ := h.game.Result()
				logf(cfg, "GAMES: %s finished, winner %q, tie %t", h.id, res.Winner.Name, res.Tie)
			}
			h.broadcastStateLocked()
			h.mu.Unlock()
		}
	}
}

// handleCommand applies a host control to the game.
func (h *Hub) handleCommand(cfg *Config, cmd command) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = h.clock.Now()

	var err error

	switch msg.Type {
	case "start":
		err = h.game.Start()
	case "pause":
		err = h.game.Pause()
	case "reveal":
		h.game.RevealAnswer()
	case "hide":
		h.game.HideAnswer()
	case "toggle_answer":
		h.game.ToggleAnswer()
	case "judge":
		err = h.game.Judge(msg.Correct)
		if err == nil {
			logf(cfg, "GAMES: Question %d in %s judged correct=%t", h.game.QuestionIndex()+1, h.id, msg.Correct)
		}
	case "restart":
		err = h.game.Restart()
	default:
		return
	}

	if err != nil {
		h.sendLocked(c, NoticeMessage{
			Type:    "notice",
			Message: noticeText(err),
		})

		return
	}

	h.broadcastStateLocked()
}

func noticeText(err error) string {
	switch {
	case errors.Is(err, trivia.ErrNoQuestions):
		return "There are no questions to play."
	case errors.Is(err, trivia.ErrTimeUp):
		return "Time is up. Mark the answer correct or incorrect."
	}

	return "That is not possible right now."
}

// Celebrate is called by the game from inside the run loop, with h.mu held.
func (h *Hub) Celebrate(c trivia.Celebration) {
	h.broadcastLocked(CelebrateMessage{
		Type:        "celebrate",
		Celebration: c,
	})
}

func (h *Hub) stateMessageLocked() GameStateMessage {
	return GameStateMessage{
		Type:     "game_state",
		Snapshot: h.game.Snapshot(),
	}
}

func (h *Hub) broadcastStateLocked() {
	h.broadcastLocked(h.stateMessageLocked())
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// sendLocked drops clients that cannot keep up.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub. The run loop releases the
// game's timers once it sees done.
func (h *Hub) closeAll() {
	h.once.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "triviabox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	store       trivia.Store
	clock       clockwork.Clock
}

func newGameManager(ctx context.Context, idleTimeout time.Duration, store trivia.Store, clock clockwork.Clock) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		store:       store,
		clock:       clock,
	}

	if idleTimeout > 0 {
		go gm.reaperLoop(ctx)
	}

	return gm
}

func (gm *GameManager) getHub(ctx context.Context, cfg *Config, gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	hub, err := newHub(ctx, cfg, gameID, gm.store, gm.clock)
	if err != nil {
		return nil, err
	}

	gm.hubs[gameID] = hub
	go hub.run(cfg)

	return hub, nil
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const limit = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, 8)
		buf := make([]byte, 16)

		for len(out) < cap(out) {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}

			for _, b := range buf {
				if b <= limit && len(out) < cap(out) {
					out = append(out, letters[int(b)%len(letters)])
				}
			}
		}

		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop(ctx context.Context) {
	ticker := gm.clock.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			gm.reap(gm.clock.Now().Add(-gm.idleTimeout))
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		watched := len(hub.clients) > 0
		hub.mu.RUnlock()

		if !watched && last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
		}
	}
}

func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	hubs := gm.hubs
	gm.hubs = make(map[string]*Hub)
	gm.mu.Unlock()

	for _, hub := range hubs {
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub, err := gm.getHub(r.Context(), cfg, gameID)
		if err != nil {
			cfg.logger.Error().Err(err).Str("game", gameID).Msg("loading game")
			http.Error(w, "unable to load game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.logger.Debug().Err(err).Str("game", gameID).Msg("upgrade failed")
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")
	url := scheme + "://" + r.Host + path

	const qrSize = 320

	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerTriviaGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerTriviaGame(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, store trivia.Store, clock clockwork.Clock, errs chan<- error) *GameManager {
	gm := newGameManager(ctx, cfg.sessionTimeout, store, clock)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", servePage(cfg, "game.html", errs))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)

	return gm
}
