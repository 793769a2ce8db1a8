package server

import (
	"math"
	"strings"

	"monopoly-wallet/internal/theme"
)

// NewGameState builds a fresh game document from resolved theme content.
func NewGameState(roomID, themeName string, cfg theme.Config, props []theme.Property) *GameState {
	g := &GameState{
		Room:       roomID,
		Theme:      themeName,
		Config:     cfg,
		Bank:       cfg.BankStart,
		Houses:     cfg.HouseCount,
		Hotels:     cfg.HotelCount,
		Players:    make(map[string]*Player),
		Properties: make(map[string]*Property, len(props)),
		Notice:     &Notice{ID: "game.created"},
		Timestamp:  timestampNow(),
	}
	for _, prop := range props {
		id := slugify(prop.Name)
		g.Properties[id] = &Property{
			ID:    id,
			Name:  prop.Name,
			Group: prop.Group,
			Owner: BankOwner,
			Price: prop.Price,
			Cost:  prop.Cost,
			Rent:  append([]int(nil), prop.Rent...),
		}
		g.PropertyOrder = append(g.PropertyOrder, id)
	}
	return g
}

// Join seats a new player: the starting balance moves out of the bank.
func Join(name, token string) Reducer {
	return pipeline(
		guardToken(token),
		guardTokenFree(token),
		func(g *GameState) error {
			g.Players[token] = &Player{Token: token, Name: name}
			g.PlayerOrder = append(g.PlayerOrder, token)
			applyTransfer(g, BankOwner, token, g.Config.PlayerStart)
			return nil
		},
		notice("player.joined", map[string]any{"player": token}),
	)
}

// Transfer moves money between two balances; either side may be the bank.
func Transfer(from, to string, amount int) Reducer {
	return pipeline(
		guardPlayer(from),
		guardPlayer(to),
		guardSolvent(from),
		guardAmount(amount),
		guardBalance(from, amount),
		func(g *GameState) error {
			applyTransfer(g, from, to, amount)
			return nil
		},
		notice("player.transfer", map[string]any{"from": from, "to": to, "amount": amount}),
	)
}

// Bankrupt folds a player: remaining balance and every owned property
// return to the bank, buildings go back into stock.
func Bankrupt(token string) Reducer {
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		func(g *GameState) error {
			player := g.Players[token]
			applyTransfer(g, token, BankOwner, player.Balance)
			groups := make(map[string]struct{})
			for _, property := range g.Properties {
				if property.Owner != token {
					continue
				}
				restock(g, property)
				property.Owner = BankOwner
				property.Mortgaged = false
				groups[property.Group] = struct{}{}
			}
			for group := range groups {
				refreshMonopoly(g, group)
			}
			player.Bankrupt = true
			return nil
		},
		notice("player.bankrupt", map[string]any{"player": token}),
	)
}

// Buy sells a bank-owned property at list price.
func Buy(token, propertyID string) Reducer {
	var price int
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardProperty(propertyID),
		guardBankOwned(propertyID),
		func(g *GameState) error {
			price = g.Properties[propertyID].Price
			return checkBalance(g, token, price)
		},
		func(g *GameState) error {
			property := g.Properties[propertyID]
			applyTransfer(g, token, BankOwner, price)
			property.Owner = token
			refreshMonopoly(g, property.Group)
			return nil
		},
		notice("property.bought", map[string]any{"player": token, "property": propertyID}),
	)
}

// TransferProperty hands an unimproved property to another player or back
// to the bank.
func TransferProperty(from, to, propertyID string) Reducer {
	return pipeline(
		guardPlayer(from),
		guardPlayer(to),
		guardSolvent(from),
		guardProperty(propertyID),
		guardOwner(propertyID, from),
		guardImprovedFree(propertyID),
		func(g *GameState) error {
			property := g.Properties[propertyID]
			property.Owner = to
			refreshMonopoly(g, property.Group)
			return nil
		},
		notice("property.transferred", map[string]any{"from": from, "to": to, "property": propertyID}),
	)
}

// guardImprovedFree rejects moving a property that still has buildings.
func guardImprovedFree(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && property.Buildings > 0 {
			return ruleError("property.improved", map[string]any{"property": id})
		}
		return nil
	}
}

// Improve adds one building level. The fifth level consumes a hotel and
// releases four houses back to stock.
func Improve(token, propertyID string) Reducer {
	var cost int
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardProperty(propertyID),
		guardOwner(propertyID, token),
		guardImprovable(propertyID),
		guardMonopoly(propertyID),
		guardNotMortgaged(propertyID),
		guardNotFullyImproved(propertyID),
		guardEvenImprove(propertyID),
		guardBuildingStock(propertyID),
		func(g *GameState) error {
			cost = g.Properties[propertyID].Cost
			return checkBalance(g, token, cost)
		},
		func(g *GameState) error {
			property := g.Properties[propertyID]
			property.Buildings++
			if property.Buildings == maxBuildings {
				g.Hotels--
				g.Houses += maxBuildings - 1
			} else {
				g.Houses--
			}
			applyTransfer(g, token, BankOwner, cost)
			return nil
		},
		notice("property.improved", map[string]any{"player": token, "property": propertyID}),
	)
}

// Unimprove removes one building level for a partial refund. Breaking a
// hotel takes four houses out of stock.
func Unimprove(token, propertyID string) Reducer {
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardProperty(propertyID),
		guardOwner(propertyID, token),
		guardImproved(propertyID),
		guardEvenUnimprove(propertyID),
		guardHotelBreakup(propertyID),
		func(g *GameState) error {
			property := g.Properties[propertyID]
			if property.Buildings == maxBuildings {
				g.Hotels++
				g.Houses -= maxBuildings - 1
			} else {
				g.Houses++
			}
			property.Buildings--
			applyTransfer(g, BankOwner, token, rateAmount(property.Cost, g.Config.BuildingRate))
			return nil
		},
		notice("property.unimproved", map[string]any{"player": token, "property": propertyID}),
	)
}

// Mortgage pays out the mortgage principal from the bank.
func Mortgage(token, propertyID string) Reducer {
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardProperty(propertyID),
		guardOwner(propertyID, token),
		guardNotMortgaged(propertyID),
		guardGroupUnimproved(propertyID),
		func(g *GameState) error {
			property := g.Properties[propertyID]
			property.Mortgaged = true
			applyTransfer(g, BankOwner, token, rateAmount(property.Price, g.Config.MortgageRate))
			return nil
		},
		notice("property.mortgaged", map[string]any{"player": token, "property": propertyID}),
	)
}

// Unmortgage repays principal plus interest.
func Unmortgage(token, propertyID string) Reducer {
	var repayment int
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardProperty(propertyID),
		guardOwner(propertyID, token),
		guardMortgaged(propertyID),
		func(g *GameState) error {
			property := g.Properties[propertyID]
			principal := rateAmount(property.Price, g.Config.MortgageRate)
			repayment = principal + rateAmount(principal, g.Config.InterestRate)
			return checkBalance(g, token, repayment)
		},
		func(g *GameState) error {
			g.Properties[propertyID].Mortgaged = false
			applyTransfer(g, token, BankOwner, repayment)
			return nil
		},
		notice("property.unmortgaged", map[string]any{"player": token, "property": propertyID}),
	)
}

// Rent charges the visiting player. Dice matters for utilities only.
func Rent(token, propertyID string, dice int) Reducer {
	var owner string
	var amount int
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardProperty(propertyID),
		guardPlayerOwned(propertyID),
		guardNotMortgaged(propertyID),
		func(g *GameState) error {
			property := g.Properties[propertyID]
			owner = property.Owner
			if owner == token {
				return ruleError("property.not-owned", map[string]any{"player": token, "property": propertyID})
			}
			amount = rentAmount(g, property, dice)
			return checkBalance(g, token, amount)
		},
		func(g *GameState) error {
			applyTransfer(g, token, owner, amount)
			return nil
		},
		notice("property.paid-rent", map[string]any{"player": token, "other": owner, "property": propertyID, "amount": amount}),
	)
}

// rentAmount implements the schedule semantics: railroads scale with the
// owned count, utilities multiply the dice roll, and an un-built monopoly
// street charges double base rent.
func rentAmount(g *GameState, property *Property, dice int) int {
	owned := countOwnedInGroup(g, property.Group, property.Owner)
	switch property.Group {
	case groupRailroad:
		return scheduleAt(property.Rent, owned-1)
	case groupUtility:
		if dice < 1 {
			dice = 1
		}
		return scheduleAt(property.Rent, owned-1) * dice
	default:
		if property.Buildings > 0 {
			return scheduleAt(property.Rent, property.Buildings)
		}
		base := scheduleAt(property.Rent, 0)
		if property.Monopoly {
			return base * 2
		}
		return base
	}
}

func scheduleAt(schedule []int, index int) int {
	if len(schedule) == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= len(schedule) {
		index = len(schedule) - 1
	}
	return schedule[index]
}

// StartAuction puts a bank-owned property up for bidding among the
// currently active players.
func StartAuction(token, propertyID string) Reducer {
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardProperty(propertyID),
		guardBankOwned(propertyID),
		guardNoAuction(),
		func(g *GameState) error {
			g.Auction = &Auction{
				Property:     propertyID,
				Participants: g.ActiveTokens(),
			}
			return nil
		},
		notice("auction.started", map[string]any{"player": token, "property": propertyID}),
	)
}

// Bid raises the current winning bid.
func Bid(token string, amount int) Reducer {
	return pipeline(
		guardPlayer(token),
		guardSolvent(token),
		guardAuction(),
		guardAmount(amount),
		func(g *GameState) error {
			if amount <= g.Auction.Amount {
				return ruleError("auction.low-bid", map[string]any{"amount": g.Auction.Amount})
			}
			return checkBalance(g, token, amount)
		},
		func(g *GameState) error {
			g.Auction.Winner = token
			g.Auction.Amount = amount
			g.Notice = &Notice{ID: "auction.bid", Meta: map[string]any{
				"player":   token,
				"property": g.Auction.Property,
				"amount":   amount,
			}}
			return nil
		},
	)
}

// EndAuction settles the auction: the highest bidder pays the bank and
// takes the property; with no bids the auction simply clears.
func EndAuction() Reducer {
	return pipeline(
		guardAuction(),
		func(g *GameState) error {
			auction := g.Auction
			g.Auction = nil
			if auction.Winner == "" {
				g.Notice = &Notice{ID: "auction.cancelled", Meta: map[string]any{"property": auction.Property}}
				return nil
			}
			property := g.Properties[auction.Property]
			applyTransfer(g, auction.Winner, BankOwner, auction.Amount)
			property.Owner = auction.Winner
			refreshMonopoly(g, property.Group)
			g.Notice = &Notice{ID: "auction.won", Meta: map[string]any{
				"player":   auction.Winner,
				"property": auction.Property,
				"amount":   auction.Amount,
			}}
			return nil
		},
	)
}

// CancelAuction clears the auction without a sale.
func CancelAuction() Reducer {
	return pipeline(
		guardAuction(),
		func(g *GameState) error {
			property := g.Auction.Property
			g.Auction = nil
			g.Notice = &Notice{ID: "auction.cancelled", Meta: map[string]any{"property": property}}
			return nil
		},
	)
}

// TradeTerms is the bilateral offer payload: From pays Amount and hands
// over Offered in exchange for Requested.
type TradeTerms struct {
	Offered   []string `json:"offered"`
	Requested []string `json:"requested"`
	Amount    int      `json:"amount"`
}

// OfferTrade opens a trade; the id comes from the caller so the reducer
// stays deterministic.
func OfferTrade(id, from, to string, terms TradeTerms) Reducer {
	steps := []Reducer{
		guardPlayer(from),
		guardPlayer(to),
		guardSolvent(from),
		guardSolvent(to),
		guardAmount(terms.Amount),
	}
	for _, propertyID := range terms.Offered {
		steps = append(steps, guardProperty(propertyID), guardOwner(propertyID, from), guardImprovedFree(propertyID))
	}
	for _, propertyID := range terms.Requested {
		steps = append(steps, guardProperty(propertyID), guardOwner(propertyID, to), guardImprovedFree(propertyID))
	}
	steps = append(steps,
		func(g *GameState) error {
			if g.Trades == nil {
				g.Trades = make(map[string]*Trade)
			}
			g.Trades[id] = &Trade{
				ID:        id,
				From:      from,
				To:        to,
				Offered:   append([]string(nil), terms.Offered...),
				Requested: append([]string(nil), terms.Requested...),
				Amount:    terms.Amount,
			}
			return nil
		},
		notice("trade.offered", map[string]any{"from": from, "to": to}),
	)
	return pipeline(steps...)
}

// AcceptTrade settles an open trade; every term is re-validated against
// the current state before anything moves.
func AcceptTrade(token, id string) Reducer {
	return pipeline(
		guardTrade(id),
		func(g *GameState) error {
			trade := g.Trades[id]
			if trade.To != token {
				return ruleError("trade.not-yours", nil)
			}
			for _, propertyID := range trade.Offered {
				if property, ok := g.Properties[propertyID]; !ok || property.Owner != trade.From {
					return ruleError("property.not-owned", map[string]any{"player": trade.From, "property": propertyID})
				}
			}
			for _, propertyID := range trade.Requested {
				if property, ok := g.Properties[propertyID]; !ok || property.Owner != trade.To {
					return ruleError("property.not-owned", map[string]any{"player": trade.To, "property": propertyID})
				}
			}
			return checkBalance(g, trade.From, trade.Amount)
		},
		func(g *GameState) error {
			trade := g.Trades[id]
			groups := make(map[string]struct{})
			for _, propertyID := range trade.Offered {
				property := g.Properties[propertyID]
				property.Owner = trade.To
				groups[property.Group] = struct{}{}
			}
			for _, propertyID := range trade.Requested {
				property := g.Properties[propertyID]
				property.Owner = trade.From
				groups[property.Group] = struct{}{}
			}
			for group := range groups {
				refreshMonopoly(g, group)
			}
			applyTransfer(g, trade.From, trade.To, trade.Amount)
			delete(g.Trades, id)
			g.Notice = &Notice{ID: "trade.accepted", Meta: map[string]any{"from": trade.From, "to": trade.To}}
			return nil
		},
	)
}

// DeclineTrade withdraws an open trade; either party may decline.
func DeclineTrade(token, id string) Reducer {
	return pipeline(
		guardTrade(id),
		func(g *GameState) error {
			trade := g.Trades[id]
			if trade.From != token && trade.To != token {
				return ruleError("trade.not-yours", nil)
			}
			delete(g.Trades, id)
			g.Notice = &Notice{ID: "trade.declined", Meta: map[string]any{"from": trade.From, "to": trade.To}}
			return nil
		},
	)
}

// restock returns a property's buildings to the bank inventory.
func restock(g *GameState, property *Property) {
	if property.Buildings == maxBuildings {
		g.Hotels++
	} else {
		g.Houses += property.Buildings
	}
	property.Buildings = 0
}

func rateAmount(base int, rate float64) int {
	return int(math.Round(float64(base) * rate))
}

// slugify derives a stable property id from its display name.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
