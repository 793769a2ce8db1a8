package server

// Reducer is one validated state transition. Reducers mutate the state
// they are given; the Room always hands them a clone, so a returned error
// discards every change (all-or-nothing).
type Reducer func(*GameState) error

// pipeline chains guards and mutation steps. The first failing step aborts
// the whole reducer.
func pipeline(steps ...Reducer) Reducer {
	return func(g *GameState) error {
		for _, step := range steps {
			if err := step(g); err != nil {
				return err
			}
		}
		return nil
	}
}

// notice is the terminal pipeline step recording what happened.
func notice(id string, meta map[string]any) Reducer {
	return func(g *GameState) error {
		g.Notice = &Notice{ID: id, Meta: meta}
		return nil
	}
}

// Guards. Each inspects the state and returns a RuleError when its
// precondition fails; none of them mutate.

func guardPlayer(token string) Reducer {
	return func(g *GameState) error {
		if token == BankOwner {
			return nil
		}
		if _, ok := g.Players[token]; !ok {
			return ruleError("player.not-found", map[string]any{"player": token})
		}
		return nil
	}
}

func guardSolvent(token string) Reducer {
	return func(g *GameState) error {
		if token == BankOwner {
			return nil
		}
		if player, ok := g.Players[token]; ok && player.Bankrupt {
			return ruleError("player.bankrupt", map[string]any{"player": token})
		}
		return nil
	}
}

func guardAmount(amount int) Reducer {
	return func(g *GameState) error {
		if amount < 0 {
			return ruleError("amount.negative", map[string]any{"amount": amount})
		}
		return nil
	}
}

func guardBalance(token string, amount int) Reducer {
	return func(g *GameState) error {
		return checkBalance(g, token, amount)
	}
}

func checkBalance(g *GameState, token string, amount int) error {
	if token == BankOwner {
		if g.Bank != BankInfinite && g.Bank < amount {
			return ruleError("player.balance", map[string]any{"player": BankOwner})
		}
		return nil
	}
	if player, ok := g.Players[token]; ok && player.Balance < amount {
		return ruleError("player.balance", map[string]any{"player": token})
	}
	return nil
}

func guardToken(token string) Reducer {
	return func(g *GameState) error {
		for _, allowed := range g.Config.PlayerTokens {
			if allowed == token {
				return nil
			}
		}
		return ruleError("player.invalid-token", map[string]any{"token": token})
	}
}

func guardTokenFree(token string) Reducer {
	return func(g *GameState) error {
		if _, taken := g.Players[token]; taken {
			return ruleError("player.playing", map[string]any{"token": token})
		}
		return nil
	}
}

func guardProperty(id string) Reducer {
	return func(g *GameState) error {
		if _, ok := g.Properties[id]; !ok {
			return ruleError("property.not-found", map[string]any{"property": id})
		}
		return nil
	}
}

func guardOwner(id, token string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && property.Owner != token {
			return ruleError("property.not-owned", map[string]any{"player": token, "property": id})
		}
		return nil
	}
}

func guardBankOwned(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && property.Owner != BankOwner {
			return ruleError("property.owned", map[string]any{"property": id})
		}
		return nil
	}
}

func guardPlayerOwned(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && property.Owner == BankOwner {
			return ruleError("property.bank-owned", map[string]any{"property": id})
		}
		return nil
	}
}

func guardNotMortgaged(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && property.Mortgaged {
			return ruleError("property.mortgaged", map[string]any{"property": id})
		}
		return nil
	}
}

func guardMortgaged(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && !property.Mortgaged {
			return ruleError("property.unmortgaged", map[string]any{"property": id})
		}
		return nil
	}
}

func guardImprovable(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok {
			if property.Group == groupRailroad || property.Group == groupUtility {
				return ruleError("property.special", map[string]any{"property": id})
			}
		}
		return nil
	}
}

func guardMonopoly(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && !property.Monopoly {
			return ruleError("property.no-monopoly", map[string]any{"property": id})
		}
		return nil
	}
}

func guardNotFullyImproved(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && property.Buildings >= maxBuildings {
			return ruleError("property.fully-improved", map[string]any{"property": id})
		}
		return nil
	}
}

func guardImproved(id string) Reducer {
	return func(g *GameState) error {
		if property, ok := g.Properties[id]; ok && property.Buildings == 0 {
			return ruleError("property.unimproved", map[string]any{"property": id})
		}
		return nil
	}
}

// guardEvenImprove enforces the even-building rule on the way up: only a
// property at the group's lowest level may gain a building.
func guardEvenImprove(id string) Reducer {
	return func(g *GameState) error {
		property, ok := g.Properties[id]
		if !ok {
			return nil
		}
		if property.Buildings > groupMinBuildings(g, property.Group) {
			return ruleError("property.uneven-build", map[string]any{"property": id})
		}
		return nil
	}
}

// guardEvenUnimprove is the mirror rule: only a property at the group's
// highest level may lose a building.
func guardEvenUnimprove(id string) Reducer {
	return func(g *GameState) error {
		property, ok := g.Properties[id]
		if !ok {
			return nil
		}
		if property.Buildings < groupMaxBuildings(g, property.Group) {
			return ruleError("property.uneven-build", map[string]any{"property": id})
		}
		return nil
	}
}

func guardBuildingStock(id string) Reducer {
	return func(g *GameState) error {
		property, ok := g.Properties[id]
		if !ok {
			return nil
		}
		if property.Buildings == maxBuildings-1 {
			if g.Hotels < 1 {
				return ruleError("property.no-hotels", nil)
			}
			return nil
		}
		if g.Houses < 1 {
			return ruleError("property.no-houses", nil)
		}
		return nil
	}
}

// guardHotelBreakup requires four houses in stock before a hotel can be
// downgraded back into houses.
func guardHotelBreakup(id string) Reducer {
	return func(g *GameState) error {
		property, ok := g.Properties[id]
		if !ok {
			return nil
		}
		if property.Buildings == maxBuildings && g.Houses < maxBuildings-1 {
			return ruleError("property.no-houses", nil)
		}
		return nil
	}
}

// guardGroupUnimproved blocks mortgaging while any property of the group
// still carries buildings.
func guardGroupUnimproved(id string) Reducer {
	return func(g *GameState) error {
		property, ok := g.Properties[id]
		if !ok {
			return nil
		}
		for _, other := range g.Properties {
			if other.Group == property.Group && other.Buildings > 0 {
				return ruleError("property.improved", map[string]any{"property": id})
			}
		}
		return nil
	}
}

func guardNoAuction() Reducer {
	return func(g *GameState) error {
		if g.Auction != nil {
			return ruleError("auction.running", nil)
		}
		return nil
	}
}

func guardAuction() Reducer {
	return func(g *GameState) error {
		if g.Auction == nil {
			return ruleError("auction.not-running", nil)
		}
		return nil
	}
}

func guardTrade(id string) Reducer {
	return func(g *GameState) error {
		if _, ok := g.Trades[id]; !ok {
			return ruleError("trade.not-found", nil)
		}
		return nil
	}
}

// Shared helpers over property groups and balances.

func groupMinBuildings(g *GameState, group string) int {
	lowest := maxBuildings
	for _, property := range g.Properties {
		if property.Group == group && property.Buildings < lowest {
			lowest = property.Buildings
		}
	}
	return lowest
}

func groupMaxBuildings(g *GameState, group string) int {
	highest := 0
	for _, property := range g.Properties {
		if property.Group == group && property.Buildings > highest {
			highest = property.Buildings
		}
	}
	return highest
}

func countOwnedInGroup(g *GameState, group, owner string) int {
	count := 0
	for _, property := range g.Properties {
		if property.Group == group && property.Owner == owner {
			count++
		}
	}
	return count
}

// refreshMonopoly rederives the monopoly flag for every property in the
// group. Ownership-changing reducers must call this; the flag is never set
// independently.
func refreshMonopoly(g *GameState, group string) {
	owner := ""
	monopoly := true
	for _, property := range g.Properties {
		if property.Group != group {
			continue
		}
		if property.Owner == BankOwner {
			monopoly = false
			break
		}
		if owner == "" {
			owner = property.Owner
		} else if property.Owner != owner {
			monopoly = false
			break
		}
	}
	for _, property := range g.Properties {
		if property.Group == group {
			property.Monopoly = monopoly
		}
	}
}

// applyTransfer moves amount between two balances; either side may be the
// bank. Callers guard affordability first.
func applyTransfer(g *GameState, from, to string, amount int) {
	if from == BankOwner {
		if g.Bank != BankInfinite {
			g.Bank -= amount
		}
	} else if player, ok := g.Players[from]; ok {
		player.Balance -= amount
	}
	if to == BankOwner {
		if g.Bank != BankInfinite {
			g.Bank += amount
		}
	} else if player, ok := g.Players[to]; ok {
		player.Balance += amount
	}
}
