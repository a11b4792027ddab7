package dispatch

import "context"

// Button is one inline keyboard control.
type Button struct {
	Text         string
	CallbackData string
}

// Keyboard is a grid of inline controls attached to a message.
type Keyboard struct {
	Rows [][]Button
}

// Row builds a single-row keyboard.
func Row(buttons ...Button) *Keyboard {
	return &Keyboard{Rows: [][]Button{buttons}}
}

// Messenger is the chat transport boundary. Delivery is at-least-once;
// the transport owns retries, this core does not.
type Messenger interface {
	// Send delivers text to the chat, optionally with an inline
	// keyboard. Returns the message id of the sent message.
	Send(ctx context.Context, chatID int64, text string, keyboard *Keyboard) (int, error)

	// EditReplyMarkup replaces (or clears, with nil) the keyboard of a
	// previously sent message.
	EditReplyMarkup(ctx context.Context, chatID int64, messageID int, keyboard *Keyboard) error
}
