package conversation

import (
	"slices"
	"unicode/utf16"

	"github.com/erg0nix/parley/internal/core"
)

const charsPerToken = 4

// EstimateTokens approximates the token count of text as one token per four characters, rounding
// any remainder up. Characters are UTF-16 code units, so a rune outside the Basic Multilingual
// Plane counts twice.
func EstimateTokens(text string) int {
	return (utf16Len(text) + charsPerToken - 1) / charsPerToken
}

func utf16Len(text string) int {
	n := 0
	for _, r := range text {
		n += max(utf16.RuneLen(r), 1)
	}
	return n
}

// Ledger is the ordered message history of one conversation. It is not safe for concurrent use;
// the Store serializes access to the ledgers it owns.
type Ledger struct {
	messages []core.Message
}

// NewLedger returns a ledger seeded with the system instruction as its first message.
func NewLedger(instruction string) *Ledger {
	ledger := &Ledger{}
	ledger.Append(core.RoleSystem, instruction)
	return ledger
}

func (l *Ledger) Append(role core.Role, content string) core.Message {
	msg := core.Message{Role: role, Content: content, Sequence: len(l.messages)}
	l.messages = append(l.messages, msg)
	return msg
}

func (l *Ledger) Messages() []core.Message {
	return slices.Clone(l.messages)
}

func (l *Ledger) Len() int {
	return len(l.messages)
}

// FilterByRole returns the non-blank system messages when system is true and the non-blank user
// messages otherwise. Assistant messages are never selected.
func (l *Ledger) FilterByRole(system bool) []core.Message {
	want := core.RoleUser
	if system {
		want = core.RoleSystem
	}

	var out []core.Message
	for _, msg := range l.messages {
		if msg.Role == want && !msg.Blank() {
			out = append(out, msg)
		}
	}
	return out
}

// TotalTokens folds the message estimates turn by turn, skipping blank messages. Every user
// message after the first exchange closes the running turn: the accumulated total is doubled and
// the turn added to it.
func (l *Ledger) TotalTokens() int {
	total, turn := 0, 0

	for position, msg := range l.messages {
		if msg.Blank() {
			continue
		}

		turn += EstimateTokens(msg.Content)

		if msg.Role == core.RoleUser && position > 1 {
			total = total + total + turn
			turn = 0
		}
	}

	return total + turn
}

// Snapshot summarizes the ledger's token and message state.
func (l *Ledger) Snapshot(id int) Snapshot {
	snapshot := Snapshot{
		ConversationID: id,
		TotalTokens:    l.TotalTokens(),
		Calls:          len(l.FilterByRole(false)),
		TotalMessages:  len(l.messages),
		Messages:       make([]core.MessageStats, 0, len(l.messages)),
	}

	for _, msg := range l.messages {
		tokens := 0
		if !msg.Blank() {
			tokens = EstimateTokens(msg.Content)
		}

		switch msg.Role {
		case core.RoleSystem:
			snapshot.SystemTokens += tokens
		case core.RoleUser:
			snapshot.UserTokens += tokens
		case core.RoleAssistant:
			snapshot.AssistantTokens += tokens
		}

		snapshot.Messages = append(snapshot.Messages, core.MessageStats{Role: msg.Role, Tokens: tokens, Sequence: msg.Sequence})
	}

	return snapshot
}
