package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"monopoly-wallet/internal/config"
	"monopoly-wallet/internal/theme"
)

// stubThemes is an in-memory theme.Loader for tests.
type stubThemes struct {
	cfg   theme.Config
	props []theme.Property
	msgs  theme.Messages
}

func (s stubThemes) Config(string) (theme.Config, error) { return s.cfg, nil }

func (s stubThemes) Properties(string) ([]theme.Property, error) { return s.props, nil }

func (s stubThemes) Messages(string) (theme.Messages, error) { return s.msgs, nil }

func testThemes() stubThemes {
	return stubThemes{
		cfg: theme.Config{
			BankStart:          15000,
			PlayerStart:        1500,
			PollTimeoutSeconds: 1,
			HouseCount:         32,
			HotelCount:         12,
			MortgageRate:       0.5,
			InterestRate:       0.1,
			BuildingRate:       0.5,
			PlayerTokens:       []string{"top-hat", "battleship", "automobile", "thimble"},
		},
		props: []theme.Property{
			{Name: "Baltic Avenue", Group: "brown", Price: 60, Cost: 50, Rent: []int{4, 20, 60, 180, 320, 450}},
			{Name: "Mediterranean Avenue", Group: "brown", Price: 60, Cost: 50, Rent: []int{2, 10, 30, 90, 160, 250}},
			{Name: "Oriental Avenue", Group: "lightblue", Price: 100, Cost: 50, Rent: []int{6, 30, 90, 270, 400, 550}},
			{Name: "Vermont Avenue", Group: "lightblue", Price: 100, Cost: 50, Rent: []int{6, 30, 90, 270, 400, 550}},
			{Name: "Connecticut Avenue", Group: "lightblue", Price: 120, Cost: 50, Rent: []int{8, 40, 100, 300, 450, 600}},
			{Name: "Reading Railroad", Group: "railroad", Price: 200, Rent: []int{25, 50, 100, 200}},
			{Name: "Short Line", Group: "railroad", Price: 200, Rent: []int{25, 50, 100, 200}},
			{Name: "Electric Company", Group: "utility", Price: 150, Rent: []int{4, 10}},
			{Name: "Water Works", Group: "utility", Price: 150, Rent: []int{4, 10}},
		},
		msgs: theme.Messages{
			"notice.player.joined":   "{player} joined the game",
			"notice.property.bought": "{player} purchased {property}",
			"error.player.balance":   "{player} does not have enough money",
			"poll.player-join":       "{player} would like to join the game",
		},
	}
}

// newTestGame builds a fresh game document with the given players joined.
func newTestGame(t *testing.T, tokens ...string) *GameState {
	t.Helper()
	themes := testThemes()
	game := NewGameState("TEST1", "test", themes.cfg, themes.props)
	names := map[string]string{
		"top-hat":    "Ada",
		"battleship": "Ben",
		"automobile": "Cal",
		"thimble":    "Dot",
	}
	for _, token := range tokens {
		if err := Join(names[token], token)(game); err != nil {
			t.Fatalf("join %s: %v", token, err)
		}
	}
	return game
}

// apply runs a reducer the way the Room does: against a clone, keeping
// the input untouched on failure.
func apply(t *testing.T, game *GameState, reduce Reducer) *GameState {
	t.Helper()
	next := game.Clone()
	if err := reduce(next); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	return next
}

func totalMoney(g *GameState) int {
	total := g.Bank
	for _, player := range g.Players {
		total += player.Balance
	}
	return total
}

func newTestManager(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.PollTimeoutSeconds = 1
	return New(NewMemoryStore(), testThemes(), cfg)
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}
