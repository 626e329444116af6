package domain

// Event is one inbound transport event, classified exactly once at the
// transport boundary. The two concrete shapes are MessageEvent and
// InlineQueryEvent; consumers switch exhaustively on the concrete type.
type Event interface {
	// Seq is the transport sequence id, used only to advance the poll cursor.
	Seq() int64
	// Sender is the id of the user who produced the event.
	Sender() int64
}

// MessageEvent is a regular chat message.
type MessageEvent struct {
	SeqID    int64
	ChatID   int64
	SenderID int64
	Text     string
}

func (e MessageEvent) Seq() int64    { return e.SeqID }
func (e MessageEvent) Sender() int64 { return e.SenderID }

// InlineQueryEvent is an inline query answered in place rather than in chat.
type InlineQueryEvent struct {
	SeqID    int64
	SenderID int64
	QueryID  string
	Query    string
}

func (e InlineQueryEvent) Seq() int64    { return e.SeqID }
func (e InlineQueryEvent) Sender() int64 { return e.SenderID }
