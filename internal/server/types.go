package server

import (
	"time"

	"monopoly-wallet/internal/theme"
)

const (
	// BankOwner is the literal owner of every unsold property.
	BankOwner = "bank"

	// BankInfinite marks an unlimited bank balance.
	BankInfinite = theme.BankInfinite

	groupRailroad = "railroad"
	groupUtility  = "utility"

	// maxBuildings is the building cap per property; the fifth level is a
	// hotel standing in for four houses.
	maxBuildings = 5
)

// GameState is the persisted document for one room. It is owned by the
// Room holding it; everything else sees copies or snapshots.
type GameState struct {
	Room          string               `json:"room"`
	Theme         string               `json:"theme"`
	Config        theme.Config         `json:"config"`
	Bank          int                  `json:"bank"`
	Houses        int                  `json:"houses"`
	Hotels        int                  `json:"hotels"`
	Players       map[string]*Player   `json:"players"`
	PlayerOrder   []string             `json:"playerOrder"`
	Properties    map[string]*Property `json:"properties"`
	PropertyOrder []string             `json:"propertyOrder"`
	Auction       *Auction             `json:"auction,omitempty"`
	Trades        map[string]*Trade    `json:"trades,omitempty"`
	Notice        *Notice              `json:"notice,omitempty"`
	Timestamp     int64                `json:"timestamp"`
	History       []HistoryEntry       `json:"history"`
}

type Player struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Balance  int    `json:"balance"`
	Bankrupt bool   `json:"bankrupt"`
}

type Property struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Owner     string `json:"owner"`
	Mortgaged bool   `json:"mortgaged"`
	Monopoly  bool   `json:"monopoly"`
	Buildings int    `json:"buildings"`
	Price     int    `json:"price"`
	Cost      int    `json:"cost"`
	Rent      []int  `json:"rent"`
}

// Auction is the transient bidding sub-document; nil when no auction runs.
type Auction struct {
	Property     string   `json:"property"`
	Participants []string `json:"participants"`
	Winner       string   `json:"winner,omitempty"`
	Amount       int      `json:"amount"`
}

// Trade is one open bilateral offer, keyed by ID in GameState.Trades.
type Trade struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Offered   []string `json:"offered,omitempty"`
	Requested []string `json:"requested,omitempty"`
	Amount    int      `json:"amount"`
}

// Notice describes the most recent accepted action. Message is filled by
// the Room at save time from the theme's templates.
type Notice struct {
	ID      string         `json:"id"`
	Meta    map[string]any `json:"meta,omitempty"`
	Message string         `json:"message,omitempty"`
}

// HistoryEntry is one reverse-diff: applying Patch to the state as saved
// reconstructs the state before the update.
type HistoryEntry struct {
	Timestamp int64      `json:"timestamp"`
	NoticeID  string     `json:"notice"`
	Patch     StatePatch `json:"patch"`
}

// StatePatch records the previous values of everything an update touched,
// at record granularity. AuctionChanged distinguishes "auction was nil
// before" from "auction untouched".
type StatePatch struct {
	Bank           *int                `json:"bank,omitempty"`
	Houses         *int                `json:"houses,omitempty"`
	Hotels         *int                `json:"hotels,omitempty"`
	Players        map[string]Player   `json:"players,omitempty"`
	Added          []string            `json:"added,omitempty"`
	Properties     map[string]Property `json:"properties,omitempty"`
	AuctionChanged bool                `json:"auctionChanged,omitempty"`
	Auction        *Auction            `json:"auction,omitempty"`
	Trades         map[string]Trade    `json:"trades,omitempty"`
	TradesAdded    []string            `json:"tradesAdded,omitempty"`
	Notice         *Notice             `json:"notice,omitempty"`
}

// Clone deep-copies the state. Reducers run against clones so a failed
// guard leaves the held state untouched.
func (g *GameState) Clone() *GameState {
	next := *g
	next.Players = make(map[string]*Player, len(g.Players))
	for token, player := range g.Players {
		copied := *player
		next.Players[token] = &copied
	}
	next.PlayerOrder = append([]string(nil), g.PlayerOrder...)
	next.Properties = make(map[string]*Property, len(g.Properties))
	for id, property := range g.Properties {
		copied := *property
		copied.Rent = append([]int(nil), property.Rent...)
		next.Properties[id] = &copied
	}
	next.PropertyOrder = append([]string(nil), g.PropertyOrder...)
	if g.Auction != nil {
		auction := *g.Auction
		auction.Participants = append([]string(nil), g.Auction.Participants...)
		next.Auction = &auction
	}
	if g.Trades != nil {
		next.Trades = make(map[string]*Trade, len(g.Trades))
		for id, trade := range g.Trades {
			copied := *trade
			copied.Offered = append([]string(nil), trade.Offered...)
			copied.Requested = append([]string(nil), trade.Requested...)
			next.Trades[id] = &copied
		}
	}
	if g.Notice != nil {
		notice := *g.Notice
		notice.Meta = copyMeta(g.Notice.Meta)
		next.Notice = &notice
	}
	next.History = append([]HistoryEntry(nil), g.History...)
	return &next
}

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	copied := make(map[string]any, len(meta))
	for key, value := range meta {
		copied[key] = value
	}
	return copied
}

// ActiveTokens lists tokens of players that have joined and not gone
// bankrupt, in join order.
func (g *GameState) ActiveTokens() []string {
	tokens := make([]string, 0, len(g.PlayerOrder))
	for _, token := range g.PlayerOrder {
		if player, ok := g.Players[token]; ok && !player.Bankrupt {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func timestampNow() int64 {
	return time.Now().UTC().UnixMilli()
}

// advanceTimestamp returns a marker strictly after previous: the
// millisecond clock when it moved, previous+1 when two saves land inside
// the same millisecond.
func advanceTimestamp(previous int64) int64 {
	if now := timestampNow(); now > previous {
		return now
	}
	return previous + 1
}
