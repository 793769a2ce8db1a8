package server

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"monopoly-wallet/internal/config"
	"monopoly-wallet/internal/theme"
)

// Server is the top-level registry: it creates games, routes connected
// sessions to rooms (one live Room per id) and tears empty rooms down. The
// store and theme loader are injected; there is no package-level state.
type Server struct {
	cfg    config.Config
	store  GameStore
	themes theme.Loader

	mu    sync.Mutex
	rooms map[string]*Room
}

// New builds a server. A nil store falls back to the in-memory store; a
// nil loader reads themes from the configured directory.
func New(store GameStore, themes theme.Loader, cfg config.Config) *Server {
	if store == nil {
		store = NewMemoryStore()
	}
	if themes == nil {
		themes = theme.NewFileLoader(cfg.ThemeDir)
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		themes: themes,
		rooms:  make(map[string]*Room),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	return mux
}

// CreateOptions selects the theme and any per-game setting overrides.
type CreateOptions struct {
	Theme     string          `json:"theme"`
	Overrides theme.Overrides `json:"overrides"`
}

// CreateGame resolves theme content, generates a free room code and
// persists a fresh game document.
func (s *Server) CreateGame(options CreateOptions) (*GameState, error) {
	themeName := options.Theme
	if themeName == "" {
		themeName = s.cfg.DefaultTheme
	}
	cfg, err := s.themes.Config(themeName)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(options.Overrides)
	props, err := s.themes.Properties(themeName)
	if err != nil {
		return nil, err
	}
	msgs, err := s.themes.Messages(themeName)
	if err != nil {
		return nil, err
	}

	roomID, err := s.freeRoomCode()
	if err != nil {
		return nil, err
	}
	state := NewGameState(roomID, themeName, cfg, props)
	state.Notice.Message = noticeMessage(msgs, state, state.Notice)
	saved, err := s.store.Save(state)
	if err != nil {
		return nil, err
	}
	log.Printf("game created room=%s theme=%s", saved.Room, saved.Theme)
	return saved, nil
}

// freeRoomCode probes the store until a generated code does not collide.
func (s *Server) freeRoomCode() (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code := newRoomCode(s.cfg.RoomCodeLength)
		_, err := s.store.Load(code)
		if errors.Is(err, ErrGameNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not allocate a room code")
}

// connect registers a session with the room for roomID, creating the live
// Room on first reference. A session already attached anywhere is
// rejected.
func (s *Server) connect(session *Session, roomID string) (map[string]any, error) {
	if session.currentRoom() != nil {
		return nil, ruleError("room.joined", nil)
	}
	roomID = normalizeRoomCode(roomID)

	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		loaded, err := newRoom(s, roomID)
		if err != nil {
			s.mu.Unlock()
			if errors.Is(err, ErrGameNotFound) {
				return nil, ruleError("game.not-found", nil)
			}
			return nil, err
		}
		room = loaded
		s.rooms[roomID] = room
	}
	s.mu.Unlock()

	summary := room.Connect(session)
	session.setRoom(room)
	log.Printf("session connected room=%s", roomID)
	return summary, nil
}

// disconnect detaches a session from its room. The last joined connection
// leaving discards the live Room (the persisted game stays in the store);
// otherwise the remaining sessions get a roster sync.
func (s *Server) disconnect(session *Session) {
	room := session.currentRoom()
	if room == nil {
		return
	}
	session.setRoom(nil)
	if active := room.Disconnect(session); !active {
		s.mu.Lock()
		delete(s.rooms, room.id)
		s.mu.Unlock()
		log.Printf("room discarded room=%s", room.id)
		return
	}
	room.BroadcastRoom(nil, "room:sync", room.Summary())
}
