package server

// snapshot is the client-facing view of a game: the full ledger without
// the history log.
func snapshot(state *GameState) map[string]any {
	return map[string]any{
		"room":          state.Room,
		"theme":         state.Theme,
		"config":        state.Config,
		"bank":          state.Bank,
		"houses":        state.Houses,
		"hotels":        state.Hotels,
		"players":       state.Players,
		"playerOrder":   state.PlayerOrder,
		"properties":    state.Properties,
		"propertyOrder": state.PropertyOrder,
		"auction":       state.Auction,
		"trades":        state.Trades,
		"notice":        state.Notice,
		"timestamp":     state.Timestamp,
	}
}
