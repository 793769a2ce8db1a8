package server

// Reverse-diff support for the history log. Every successful update
// appends one StatePatch recording the previous values of whatever the
// reducer changed; applying the patch to the saved state reconstructs the
// state before the update.

func diffStates(before, after *GameState) StatePatch {
	var patch StatePatch
	if before.Bank != after.Bank {
		bank := before.Bank
		patch.Bank = &bank
	}
	if before.Houses != after.Houses {
		houses := before.Houses
		patch.Houses = &houses
	}
	if before.Hotels != after.Hotels {
		hotels := before.Hotels
		patch.Hotels = &hotels
	}
	for token, player := range after.Players {
		previous, existed := before.Players[token]
		if !existed {
			patch.Added = append(patch.Added, token)
			continue
		}
		if *previous != *player {
			if patch.Players == nil {
				patch.Players = make(map[string]Player)
			}
			patch.Players[token] = *previous
		}
	}
	for id, property := range after.Properties {
		previous, existed := before.Properties[id]
		if !existed {
			continue
		}
		if !samePropertyState(previous, property) {
			if patch.Properties == nil {
				patch.Properties = make(map[string]Property)
			}
			patch.Properties[id] = *previous
		}
	}
	if !sameAuction(before.Auction, after.Auction) {
		patch.AuctionChanged = true
		if before.Auction != nil {
			auction := *before.Auction
			auction.Participants = append([]string(nil), before.Auction.Participants...)
			patch.Auction = &auction
		}
	}
	for id := range after.Trades {
		if _, existed := before.Trades[id]; !existed {
			patch.TradesAdded = append(patch.TradesAdded, id)
		}
	}
	for id, trade := range before.Trades {
		if current, ok := after.Trades[id]; ok && sameTrade(trade, current) {
			continue
		}
		if patch.Trades == nil {
			patch.Trades = make(map[string]Trade)
		}
		copied := *trade
		copied.Offered = append([]string(nil), trade.Offered...)
		copied.Requested = append([]string(nil), trade.Requested...)
		patch.Trades[id] = copied
	}
	if before.Notice != nil && !sameNotice(before.Notice, after.Notice) {
		notice := *before.Notice
		notice.Meta = copyMeta(before.Notice.Meta)
		patch.Notice = &notice
	}
	return patch
}

func samePropertyState(a, b *Property) bool {
	return a.Owner == b.Owner &&
		a.Mortgaged == b.Mortgaged &&
		a.Monopoly == b.Monopoly &&
		a.Buildings == b.Buildings
}

func sameAuction(a, b *Auction) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Property != b.Property || a.Winner != b.Winner || a.Amount != b.Amount {
		return false
	}
	if len(a.Participants) != len(b.Participants) {
		return false
	}
	for i := range a.Participants {
		if a.Participants[i] != b.Participants[i] {
			return false
		}
	}
	return true
}

func sameNotice(a, b *Notice) bool {
	if b == nil {
		return false
	}
	return a.ID == b.ID && a.Message == b.Message
}

func sameTrade(a, b *Trade) bool {
	if a.From != b.From || a.To != b.To || a.Amount != b.Amount {
		return false
	}
	if len(a.Offered) != len(b.Offered) || len(a.Requested) != len(b.Requested) {
		return false
	}
	for i := range a.Offered {
		if a.Offered[i] != b.Offered[i] {
			return false
		}
	}
	for i := range a.Requested {
		if a.Requested[i] != b.Requested[i] {
			return false
		}
	}
	return true
}

// applyPatch restores the recorded previous values in place. This is the
// write-side half of a veto capability; no revert action is wired into the
// room's event set.
func applyPatch(g *GameState, patch StatePatch) {
	if patch.Bank != nil {
		g.Bank = *patch.Bank
	}
	if patch.Houses != nil {
		g.Houses = *patch.Houses
	}
	if patch.Hotels != nil {
		g.Hotels = *patch.Hotels
	}
	for token, previous := range patch.Players {
		restored := previous
		g.Players[token] = &restored
	}
	for _, token := range patch.Added {
		delete(g.Players, token)
		for i, ordered := range g.PlayerOrder {
			if ordered == token {
				g.PlayerOrder = append(g.PlayerOrder[:i], g.PlayerOrder[i+1:]...)
				break
			}
		}
	}
	for id, previous := range patch.Properties {
		if property, ok := g.Properties[id]; ok {
			property.Owner = previous.Owner
			property.Mortgaged = previous.Mortgaged
			property.Monopoly = previous.Monopoly
			property.Buildings = previous.Buildings
		}
	}
	if patch.AuctionChanged {
		g.Auction = nil
		if patch.Auction != nil {
			auction := *patch.Auction
			auction.Participants = append([]string(nil), patch.Auction.Participants...)
			g.Auction = &auction
		}
	}
	for _, id := range patch.TradesAdded {
		delete(g.Trades, id)
	}
	for id, previous := range patch.Trades {
		if g.Trades == nil {
			g.Trades = make(map[string]*Trade)
		}
		restored := previous
		restored.Offered = append([]string(nil), previous.Offered...)
		restored.Requested = append([]string(nil), previous.Requested...)
		g.Trades[id] = &restored
	}
	if patch.Notice != nil {
		notice := *patch.Notice
		notice.Meta = copyMeta(patch.Notice.Meta)
		g.Notice = &notice
	}
}
