package event

import "github.com/chat-tutor/chattutor/pkg/types"

// ChatCreatedData is the data for chat.created events.
type ChatCreatedData struct {
	Info types.ChatSummary `json:"info"`
}

// ChatUpdatedData is the data for chat.updated events (title changes,
// status flips outside a turn).
type ChatUpdatedData struct {
	Info types.ChatSummary `json:"info"`
}

// ActionEmittedData is the data for chat.action events: one resolved
// action of a live turn, published in generation order.
type ActionEmittedData struct {
	ChatID string       `json:"chatID"`
	Action types.Action `json:"action"`
}

// TurnSettledData is the data for chat.turn.settled events.
type TurnSettledData struct {
	ChatID string       `json:"chatID"`
	Status types.Status `json:"status"`
}
