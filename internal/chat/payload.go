package chat

const (
	MessageTypeSystem = "system"
	MessageTypeChat   = "chat"
)

// SystemMessage announces joins and leaves together with the current
// occupant list of the room.
type SystemMessage struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Users   []string `json:"users"`
}

type ChatMessage struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// InboundMessage is the only frame shape clients may send while active.
// Message is a pointer so a missing field is distinguishable from "".
type InboundMessage struct {
	Message *string `json:"message"`
}

func NewSystemMessage(text string, users []string) SystemMessage {
	return SystemMessage{
		Type:    MessageTypeSystem,
		Message: text,
		Users:   users,
	}
}

func NewChatMessage(sender, text string) ChatMessage {
	return ChatMessage{
		Type:    MessageTypeChat,
		Sender:  sender,
		Message: text,
	}
}
