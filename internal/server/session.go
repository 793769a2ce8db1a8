package server

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"sync"

	"monopoly-wallet/internal/theme"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wireMessage is the protocol envelope in both directions.
type wireMessage struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args"`
}

// Session bridges one websocket connection to named request/response
// events. Its game token is never stored here; the room's roster is the
// source of truth.
type Session struct {
	server *Server
	conn   *websocket.Conn

	writeMu sync.Mutex

	mu   sync.Mutex
	room *Room
}

func newSession(server *Server, conn *websocket.Conn) *Session {
	return &Session{server: server, conn: conn}
}

// Send writes one event to this connection. Write errors are swallowed;
// a dead transport is detected by the read loop.
func (s *Session) Send(event string, args ...any) {
	if s.conn == nil {
		return
	}
	if args == nil {
		args = []any{}
	}
	raw := make([]json.RawMessage, 0, len(args))
	for _, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return
		}
		raw = append(raw, data)
	}
	payload, err := json.Marshal(wireMessage{Event: event, Args: raw})
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) currentRoom() *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) setRoom(room *Room) {
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()
}

// Token is the game token this session represents, per the room roster.
func (s *Session) Token() string {
	room := s.currentRoom()
	if room == nil {
		return ""
	}
	return room.Token(s)
}

func (s *Session) readLoop() {
	defer s.server.disconnect(s)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		go s.handle(msg)
	}
}

// handle dispatches one inbound event and answers on the response
// channel. Dispatch is a closed enumeration: one handler per event.
func (s *Session) handle(msg wireMessage) {
	result, err := s.dispatch(msg.Event, msg.Args)
	if err != nil {
		s.Send("response:error", msg.Event, s.errorDescriptor(err))
		return
	}
	s.Send("response:ok", msg.Event, result)
}

func (s *Session) dispatch(event string, args []json.RawMessage) (any, error) {
	switch event {
	case "room:create":
		var options CreateOptions
		if len(args) > 0 {
			if err := json.Unmarshal(args[0], &options); err != nil {
				return nil, fmt.Errorf("bad options: %w", err)
			}
		}
		state, err := s.server.CreateGame(options)
		if err != nil {
			return nil, err
		}
		info := map[string]any{"room": state.Room, "theme": state.Theme, "config": state.Config}
		s.Send("room:created", info)
		return info, nil

	case "room:connect":
		var roomID string
		if err := decodeArgs(args, &roomID); err != nil {
			return nil, err
		}
		summary, err := s.server.connect(s, roomID)
		if err != nil {
			return nil, err
		}
		s.Send("room:connected", summary)
		return summary, nil

	case "room:disconnect":
		s.server.disconnect(s)
		return map[string]any{"ok": true}, nil

	case "game:join":
		room, err := s.requireRoom()
		if err != nil {
			return nil, err
		}
		var name, token string
		if err := decodeArgs(args, &name, &token); err != nil {
			return nil, err
		}
		info, err := room.Join(s, name, token)
		if err != nil {
			return nil, err
		}
		s.Send("game:joined", info)
		return info, nil

	case "poll:vote":
		room, err := s.requireRoom()
		if err != nil {
			return nil, err
		}
		var pollID string
		var vote bool
		if err := decodeArgs(args, &pollID, &vote); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, room.VotePoll(s, pollID, vote)

	case "message:send":
		room, token, err := s.requireJoined()
		if err != nil {
			return nil, err
		}
		var to, text string
		if err := decodeArgs(args, &to, &text); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, room.Message(token, to, text)

	case "player:transfer":
		var to string
		var amount int
		if err := decodeArgs(args, &to, &amount); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Transfer(token, to, amount) })

	case "player:bankrupt":
		return s.act(func(token string) Reducer { return Bankrupt(token) })

	case "property:buy":
		var propertyID string
		if err := decodeArgs(args, &propertyID); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Buy(token, propertyID) })

	case "property:transfer":
		var to, propertyID string
		if err := decodeArgs(args, &to, &propertyID); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return TransferProperty(token, to, propertyID) })

	case "property:improve":
		var propertyID string
		if err := decodeArgs(args, &propertyID); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Improve(token, propertyID) })

	case "property:unimprove":
		var propertyID string
		if err := decodeArgs(args, &propertyID); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Unimprove(token, propertyID) })

	case "property:mortgage":
		var propertyID string
		if err := decodeArgs(args, &propertyID); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Mortgage(token, propertyID) })

	case "property:unmortgage":
		var propertyID string
		if err := decodeArgs(args, &propertyID); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Unmortgage(token, propertyID) })

	case "property:rent":
		var propertyID string
		var dice int
		if err := decodeArgs(args, &propertyID, &dice); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Rent(token, propertyID, dice) })

	case "auction:start":
		var propertyID string
		if err := decodeArgs(args, &propertyID); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return StartAuction(token, propertyID) })

	case "auction:bid":
		var amount int
		if err := decodeArgs(args, &amount); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return Bid(token, amount) })

	case "auction:end":
		return s.act(func(string) Reducer { return EndAuction() })

	case "auction:cancel":
		return s.act(func(string) Reducer { return CancelAuction() })

	case "trade:offer":
		var to string
		var terms TradeTerms
		if err := decodeArgs(args, &to, &terms); err != nil {
			return nil, err
		}
		id := uuid.NewString()
		return s.act(func(token string) Reducer { return OfferTrade(id, token, to, terms) })

	case "trade:accept":
		var id string
		if err := decodeArgs(args, &id); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return AcceptTrade(token, id) })

	case "trade:decline":
		var id string
		if err := decodeArgs(args, &id); err != nil {
			return nil, err
		}
		return s.act(func(token string) Reducer { return DeclineTrade(token, id) })

	default:
		return nil, fmt.Errorf("unknown event %q", event)
	}
}

// act runs a game action for a joined session: build the reducer with the
// session's token, push it through the room pipeline and broadcast the
// result to everyone else.
func (s *Session) act(build func(token string) Reducer) (any, error) {
	room, token, err := s.requireJoined()
	if err != nil {
		return nil, err
	}
	state, err := room.Update(build(token))
	if err != nil {
		return nil, err
	}
	room.Broadcast(s, "game:update", snapshot(state))
	return snapshot(state), nil
}

func (s *Session) requireRoom() (*Room, error) {
	room := s.currentRoom()
	if room == nil {
		return nil, ruleError("game.not-found", nil)
	}
	return room, nil
}

func (s *Session) requireJoined() (*Room, string, error) {
	room, err := s.requireRoom()
	if err != nil {
		return nil, "", err
	}
	token := room.Token(s)
	if token == "" {
		return nil, "", ruleError("room.not-joined", nil)
	}
	return room, token, nil
}

// errorDescriptor shapes an error for the wire. Rule errors format through
// the room's theme messages; anything else surfaces name and message, plus
// a stack trace outside production.
func (s *Session) errorDescriptor(err error) map[string]any {
	if rule, ok := AsRuleError(err); ok {
		message := rule.ID
		if room := s.currentRoom(); room != nil {
			message = errorMessage(room.msgs, room.currentState(), rule)
		} else {
			message = errorMessage(theme.Messages{}, nil, rule)
		}
		return map[string]any{
			"id":      rule.ID,
			"name":    "RuleError",
			"message": message,
		}
	}
	descriptor := map[string]any{
		"name":    "Error",
		"message": err.Error(),
	}
	if os.Getenv("APP_ENV") != "production" {
		descriptor["stack"] = string(debug.Stack())
	}
	return descriptor
}

// decodeArgs unpacks positional wire arguments into typed destinations.
// Missing trailing arguments keep their zero values.
func decodeArgs(args []json.RawMessage, dests ...any) error {
	for i, dest := range dests {
		if i >= len(args) {
			return nil
		}
		if err := json.Unmarshal(args[i], dest); err != nil {
			return fmt.Errorf("bad argument %d: %w", i, err)
		}
	}
	return nil
}
