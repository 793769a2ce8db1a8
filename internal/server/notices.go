package server

import (
	"fmt"
	"strings"

	"monopoly-wallet/internal/theme"
)

// Message formatting. Templates come from the theme's messages bundle and
// use {placeholder} substitution. Metadata is expanded against the current
// state here, at format time: a guard may throw before later guards run,
// so interpreting its metadata any earlier would read a stale picture.

func noticeMessage(msgs theme.Messages, g *GameState, notice *Notice) string {
	return renderMessage(msgs, "notice."+notice.ID, notice.ID, g, notice.Meta)
}

func errorMessage(msgs theme.Messages, g *GameState, err *RuleError) string {
	return renderMessage(msgs, "error."+err.ID, err.ID, g, err.Meta)
}

func pollMessage(msgs theme.Messages, g *GameState, id string, meta map[string]any) string {
	return renderMessage(msgs, "poll."+id, id, g, meta)
}

func renderMessage(msgs theme.Messages, key, fallback string, g *GameState, meta map[string]any) string {
	template, ok := msgs[key]
	if !ok {
		return fallback
	}
	for name, value := range meta {
		template = strings.ReplaceAll(template, "{"+name+"}", displayValue(g, name, value))
	}
	return template
}

// displayValue expands one metadata value: player tokens become display
// names, property ids become property names, amounts become absolute
// currency figures. Anything unrecognized renders literally.
func displayValue(g *GameState, name string, value any) string {
	switch typed := value.(type) {
	case string:
		if typed == BankOwner {
			return "the bank"
		}
		if g != nil {
			if player, ok := g.Players[typed]; ok && name != "token" {
				return player.Name
			}
			if property, ok := g.Properties[typed]; ok {
				return property.Name
			}
		}
		return typed
	case int:
		if typed < 0 {
			typed = -typed
		}
		return fmt.Sprintf("$%d", typed)
	case float64:
		if typed < 0 {
			typed = -typed
		}
		return fmt.Sprintf("$%.0f", typed)
	default:
		return fmt.Sprintf("%v", value)
	}
}
