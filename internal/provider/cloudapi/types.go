package cloudapi

import "encoding/json"

type textObj struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

type languageObj struct {
	Code string `json:"code"`
}

type templateObj struct {
	Name       string            `json:"name"`
	Language   languageObj       `json:"language"`
	Components []json.RawMessage `json:"components,omitempty"`
}

type message struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textObj     `json:"text,omitempty"`
	Template         *templateObj `json:"template,omitempty"`
}

type sendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type phoneNumberResponse struct {
	ID                 string `json:"id"`
	DisplayPhoneNumber string `json:"display_phone_number"`
	VerifiedName       string `json:"verified_name"`
}
