package server

import (
	"log"
	"sync"
	"time"

	"monopoly-wallet/internal/theme"
)

// Room mediates all access to one game's persisted state and its live
// connections. State mutation runs under mu so no two reducers interleave
// stale reads; polls and broadcasts never hold that lock.
type Room struct {
	id     string
	server *Server
	msgs   theme.Messages

	mu    sync.Mutex // serializes load -> reduce -> save
	state *GameState

	connMu   sync.Mutex
	sessions map[*Session]string // session -> token, "" until joined
	polls    map[string]*Poll
}

func newRoom(server *Server, id string) (*Room, error) {
	state, err := server.store.Load(id)
	if err != nil {
		return nil, err
	}
	msgs, err := server.themes.Messages(state.Theme)
	if err != nil {
		return nil, err
	}
	return &Room{
		id:       id,
		server:   server,
		msgs:     msgs,
		state:    state,
		sessions: make(map[*Session]string),
		polls:    make(map[string]*Poll),
	}, nil
}

// Connect registers a session. Without a token only game:join is exposed;
// the token arrives through Join.
func (r *Room) Connect(session *Session) map[string]any {
	r.connMu.Lock()
	r.sessions[session] = ""
	r.connMu.Unlock()
	return r.Summary()
}

// Disconnect drops the session and reports whether any joined connection
// remains. In-flight polls are left alone: an un-voted slot simply decays
// to the timeout path.
func (r *Room) Disconnect(session *Session) bool {
	r.connMu.Lock()
	delete(r.sessions, session)
	active := false
	for _, token := range r.sessions {
		if token != "" {
			active = true
			break
		}
	}
	r.connMu.Unlock()
	return active
}

// Token reports the game token a session currently represents. The
// mapping lives here, not on the session, so it always reflects the
// authoritative roster.
func (r *Room) Token(session *Session) string {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.sessions[session]
}

// Join admits a player: validates the token, runs an admission poll when
// other players are already seated, applies the join reducer (new players
// only), persists and broadcasts the new roster.
func (r *Room) Join(session *Session, name, token string) (map[string]any, error) {
	r.connMu.Lock()
	if r.sessions[session] != "" {
		r.connMu.Unlock()
		return nil, ruleError("room.joined", nil)
	}
	tokenConnected := false
	anyoneJoined := false
	for _, claimed := range r.sessions {
		if claimed == token {
			tokenConnected = true
		}
		if claimed != "" {
			anyoneJoined = true
		}
	}
	r.connMu.Unlock()

	state := r.currentState()
	existing, rejoining := state.Players[token]
	if rejoining && existing.Name != name {
		return nil, ruleError("player.used-token", map[string]any{"token": token})
	}
	if tokenConnected {
		return nil, ruleError("player.playing", map[string]any{"token": token})
	}

	if anyoneJoined {
		admitted := r.Poll("player-join", map[string]any{"player": name})
		if !admitted {
			return nil, ruleError("room.denied", nil)
		}
	}

	if !rejoining {
		if _, err := r.Update(Join(name, token)); err != nil {
			return nil, err
		}
	}

	// The roster was unlocked across the poll and the reducer, so another
	// session may have taken the token in the meantime; only one claim wins.
	if err := r.claimToken(session, token); err != nil {
		return nil, err
	}

	log.Printf("player joined room=%s token=%s name=%q", r.id, token, name)
	state = r.currentState()
	r.BroadcastRoom(session, "room:sync", r.Summary())
	r.Broadcast(session, "game:update", snapshot(state))
	return map[string]any{
		"room":   r.Summary(),
		"player": state.Players[token],
		"game":   snapshot(state),
	}, nil
}

// claimToken atomically re-checks and writes the roster entry. Verifying
// and assigning under one hold of connMu is what makes a token
// single-holder when two joins race for it.
func (r *Room) claimToken(session *Session, token string) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.sessions[session] != "" {
		return ruleError("room.joined", nil)
	}
	for _, claimed := range r.sessions {
		if claimed == token {
			return ruleError("player.playing", map[string]any{"token": token})
		}
	}
	r.sessions[session] = token
	return nil
}

// Update applies a reducer against a clone of the held state, attaches the
// formatted notice and a reverse-diff history entry, persists and returns
// the new state. A failed reducer propagates unmodified without any save.
func (r *Room) Update(reduce Reducer) (*GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		loaded, err := r.server.store.Load(r.id)
		if err != nil {
			return nil, err
		}
		r.state = loaded
	}
	next := r.state.Clone()
	if err := reduce(next); err != nil {
		return nil, err
	}
	if next.Notice != nil {
		next.Notice.Message = noticeMessage(r.msgs, next, next.Notice)
		next.History = append(next.History, HistoryEntry{
			Timestamp: timestampNow(),
			NoticeID:  next.Notice.ID,
			Patch:     diffStates(r.state, next),
		})
	}
	saved, err := r.server.store.Save(next)
	if err != nil {
		return nil, err
	}
	r.state = saved
	return saved, nil
}

func (r *Room) currentState() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Poll asks every currently seated player a yes/no question and blocks
// until it resolves. Timeout comes from the game's config.
func (r *Room) Poll(messageID string, meta map[string]any) bool {
	state := r.currentState()
	timeout := time.Duration(state.Config.PollTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(r.server.cfg.PollTimeoutSeconds) * time.Second
	}

	r.connMu.Lock()
	voters := make([]string, 0, len(r.sessions))
	for _, token := range r.sessions {
		if token != "" {
			voters = append(voters, token)
		}
	}
	r.connMu.Unlock()
	if len(voters) == 0 {
		return true
	}

	poll := newPoll(pollMessage(r.msgs, state, messageID, meta), voters, timeout)
	r.connMu.Lock()
	r.polls[poll.ID] = poll
	r.connMu.Unlock()

	r.Broadcast(nil, "poll:new", poll.ID, poll.Message)
	result := poll.Result()
	r.connMu.Lock()
	delete(r.polls, poll.ID)
	r.connMu.Unlock()
	r.Broadcast(nil, "poll:end", poll.ID, result)
	log.Printf("poll resolved room=%s poll_id=%s result=%t", r.id, poll.ID, result)
	return result
}

// VotePoll records one session's vote on an open poll.
func (r *Room) VotePoll(session *Session, pollID string, approve bool) error {
	token := r.Token(session)
	if token == "" {
		return ruleError("room.not-joined", nil)
	}
	r.connMu.Lock()
	poll, ok := r.polls[pollID]
	r.connMu.Unlock()
	if !ok {
		return ruleError("poll.not-found", nil)
	}
	poll.Vote(token, approve)
	return nil
}

// Message relays a private message between two seated players.
func (r *Room) Message(from, to, text string) error {
	state := r.currentState()
	if _, ok := state.Players[to]; !ok {
		return ruleError("player.not-found", map[string]any{"player": to})
	}
	r.connMu.Lock()
	var target *Session
	for session, token := range r.sessions {
		if token == to {
			target = session
			break
		}
	}
	r.connMu.Unlock()
	if target == nil {
		return ruleError("player.not-connected", map[string]any{"player": to})
	}
	target.Send("message:receive", from, text)
	return nil
}

// Broadcast sends an event to every joined session, optionally excluding
// one (typically the sender, whose answer travels on the response
// channel). Dead transports are dropped silently.
func (r *Room) Broadcast(exclude *Session, event string, args ...any) {
	for _, session := range r.recipients(exclude, false) {
		session.Send(event, args...)
	}
}

// BroadcastRoom reaches every connected session, joined or not.
func (r *Room) BroadcastRoom(exclude *Session, event string, args ...any) {
	for _, session := range r.recipients(exclude, true) {
		session.Send(event, args...)
	}
}

func (r *Room) recipients(exclude *Session, includeUnjoined bool) []*Session {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	recipients := make([]*Session, 0, len(r.sessions))
	for session, token := range r.sessions {
		if session == exclude {
			continue
		}
		if token == "" && !includeUnjoined {
			continue
		}
		recipients = append(recipients, session)
	}
	return recipients
}

// Summary is the minimal view handed to clients: never the internal state
// object.
func (r *Room) Summary() map[string]any {
	state := r.currentState()
	r.connMu.Lock()
	active := make([]string, 0, len(r.sessions))
	for _, token := range r.sessions {
		if token != "" {
			active = append(active, token)
		}
	}
	r.connMu.Unlock()
	players := make(map[string]*Player, len(state.Players))
	for token, player := range state.Players {
		copied := *player
		players[token] = &copied
	}
	return map[string]any{
		"room":    state.Room,
		"theme":   state.Theme,
		"config":  state.Config,
		"active":  active,
		"players": players,
	}
}
