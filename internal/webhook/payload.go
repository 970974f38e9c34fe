package webhook

import (
	"bytes"
	"encoding/json"
	"strings"
)

const businessObject = "whatsapp_business_account"

// Cloud API callback.

type CloudPayload struct {
	Object string       `json:"object"`
	Entry  []CloudEntry `json:"entry"`
}

type CloudEntry struct {
	ID      string        `json:"id"`
	Changes []CloudChange `json:"changes"`
}

type CloudChange struct {
	Field string     `json:"field"`
	Value CloudValue `json:"value"`
}

type CloudValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []CloudMessage    `json:"messages"`
	Statuses []json.RawMessage `json:"statuses"`
}

type CloudMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive json.RawMessage `json:"interactive,omitempty"`
}

// Evolution bridge callback.

type EvolutionPayload struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

type EvolutionMessage struct {
	Key struct {
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName    string `json:"pushName"`
	MessageType string `json:"messageType"`
	Message     *struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
		ImageMessage    json.RawMessage `json:"imageMessage"`
		VideoMessage    json.RawMessage `json:"videoMessage"`
		AudioMessage    json.RawMessage `json:"audioMessage"`
		DocumentMessage json.RawMessage `json:"documentMessage"`
		StickerMessage  json.RawMessage `json:"stickerMessage"`
	} `json:"message"`
}

// Text returns the message body, if any.
func (m EvolutionMessage) Text() string {
	if m.Message == nil {
		return ""
	}
	if m.Message.Conversation != "" {
		return m.Message.Conversation
	}
	if m.Message.ExtendedTextMessage != nil {
		return m.Message.ExtendedTextMessage.Text
	}
	return ""
}

// Kind classifies the message as text, a media type or "unknown".
func (m EvolutionMessage) Kind() string {
	if m.Text() != "" {
		return "text"
	}
	if m.Message != nil {
		switch {
		case present(m.Message.ImageMessage):
			return "image"
		case present(m.Message.VideoMessage):
			return "video"
		case present(m.Message.AudioMessage):
			return "audio"
		case present(m.Message.DocumentMessage):
			return "document"
		case present(m.Message.StickerMessage):
			return "sticker"
		}
	}
	if m.MessageType != "" {
		return strings.TrimSuffix(m.MessageType, "Message")
	}
	return "unknown"
}

// Messages in MESSAGES_UPSERT come either as data.messages[] or as data itself.
func (p EvolutionPayload) Messages() ([]EvolutionMessage, error) {
	if !present(p.Data) {
		return nil, nil
	}
	data := bytes.TrimSpace(p.Data)

	if data[0] == '[' {
		var list []EvolutionMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var wrapped struct {
		Messages []EvolutionMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Messages != nil {
		return wrapped.Messages, nil
	}

	var single EvolutionMessage
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	if single.Key.ID == "" && single.Key.RemoteJID == "" && single.Message == nil {
		return nil, nil
	}
	return []EvolutionMessage{single}, nil
}

// NormalizeEvent maps "messages.upsert" and "MESSAGES_UPSERT" to the same name.
func NormalizeEvent(event string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(event), ".", "_"))
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func isMedia(kind string) bool {
	switch kind {
	case "image", "video", "audio", "document", "sticker":
		return true
	}
	return false
}
