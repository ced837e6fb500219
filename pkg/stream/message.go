package stream

// MessageType classifies a narrative stream message.
type MessageType string

const (
	TypeDialogue     MessageType = "dialogue"
	TypeAction       MessageType = "action"
	TypeThought      MessageType = "thought"
	TypeNarrator     MessageType = "narrator"
	TypePlayerChoice MessageType = "player_choice"
)

// ChoiceOption is one selectable option attached to a player_choice message.
type ChoiceOption struct {
	Type  string `json:"type,omitempty"`
	Label string `json:"label"`
}

// Message is one decoded stream record. The server emits messages in
// fragments keyed by MessageID; Content carries only this fragment's text,
// and the timeline concatenates fragments that share an ID.
type Message struct {
	MessageID string         `json:"message_id"`
	Type      MessageType    `json:"type"`
	SpeakerID string         `json:"speaker_id,omitempty"`
	Title     string         `json:"title,omitempty"`
	Content   string         `json:"content,omitempty"`
	Options   []ChoiceOption `json:"options,omitempty"`
}

// IsPlayerChoice reports whether the message halts the stream for input.
func (m *Message) IsPlayerChoice() bool {
	return m.Type == TypePlayerChoice
}
