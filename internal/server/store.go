package server

import (
	"encoding/json"
	"errors"
	"sync"

	"monopoly-wallet/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrGameNotFound is returned by a store when no game exists for a room.
var ErrGameNotFound = errors.New("game not found")

// GameStore is the injected persistence pair. Save returns the state it
// persisted so callers can chain on the result.
type GameStore interface {
	Load(roomID string) (*GameState, error)
	Save(state *GameState) (*GameState, error)
}

// MemoryStore is the default in-process store for environments with no
// external persistence. Documents are cloned both ways so no caller shares
// a pointer with the store.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]*GameState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*GameState)}
}

func (s *MemoryStore) Load(roomID string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.games[roomID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return state.Clone(), nil
}

func (s *MemoryStore) Save(state *GameState) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := state.Timestamp
	if existing, ok := s.games[state.Room]; ok && existing.Timestamp > previous {
		previous = existing.Timestamp
	}
	state.Timestamp = advanceTimestamp(previous)
	s.games[state.Room] = state.Clone()
	return state, nil
}

// GormStore persists game documents to Postgres: one row per room holding
// the document as JSON, plus an append-only event row per saved notice.
type GormStore struct {
	conn *gorm.DB
}

func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{conn: conn}
}

func (s *GormStore) Load(roomID string) (*GameState, error) {
	var record db.Game
	if err := s.conn.Where("room = ?", roomID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	var state GameState
	if err := json.Unmarshal(record.Document, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *GormStore) Save(state *GameState) (*GameState, error) {
	state.Timestamp = advanceTimestamp(state.Timestamp)
	document, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	var record db.Game
	err = s.conn.Where("room = ?", state.Room).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = db.Game{
			Room:     state.Room,
			Theme:    state.Theme,
			Document: datatypes.JSON(document),
		}
		if err := s.conn.Create(&record).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		record.Document = datatypes.JSON(document)
		if err := s.conn.Save(&record).Error; err != nil {
			return nil, err
		}
	}

	if state.Notice != nil {
		payload, err := json.Marshal(state.Notice)
		if err != nil {
			return nil, err
		}
		event := db.Event{
			GameID:  record.ID,
			Type:    state.Notice.ID,
			Payload: datatypes.JSON(payload),
		}
		if err := s.conn.Create(&event).Error; err != nil {
			return nil, err
		}
	}
	return state, nil
}
