package handler

import (
	"videofinder-bot/internal/action"
	"videofinder-bot/internal/match"
	"videofinder-bot/internal/tg"
)

// planKeyboard renders one row per group: the group itself sends the
// representative, bulk groups also get "Send All" and "Search Episode".
func planKeyboard(plan *match.Plan) *tg.InlineKeyboardMarkup {
	rows := make([][]tg.InlineKeyboardButton, 0, len(plan.Groups))
	for _, g := range plan.Groups {
		row := []tg.InlineKeyboardButton{{
			Text:         g.Key,
			CallbackData: action.Encode(action.Action{Kind: action.Single, MessageID: g.Representative}),
		}}
		if g.SupportsBulk {
			row = append(row,
				tg.InlineKeyboardButton{
					Text:         "Send All",
					CallbackData: action.Encode(action.Action{Kind: action.Bulk, GroupKey: g.Key}),
				},
				tg.InlineKeyboardButton{
					Text:         "Search Episode",
					CallbackData: action.Encode(action.Action{Kind: action.RefineEpisode, GroupKey: g.Key}),
				},
			)
		}
		rows = append(rows, row)
	}
	kb := tg.NewInlineKeyboardMarkup(rows)
	return &kb
}
