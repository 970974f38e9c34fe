package evolution

// Events the instance webhook is registered for.
var WebhookEvents = []string{
	"QRCODE_UPDATED",
	"MESSAGES_UPSERT",
	"MESSAGES_UPDATE",
	"CONNECTION_UPDATE",
}

type initRequest struct {
	InstanceName    string   `json:"instanceName"`
	Webhook         string   `json:"webhook,omitempty"`
	WebhookByEvents bool     `json:"webhookByEvents"`
	Events          []string `json:"events"`
}

type sendOptions struct {
	Delay int `json:"delay"`
}

type textMessage struct {
	Text string `json:"text"`
}

type textRequest struct {
	Number      string      `json:"number"`
	Options     sendOptions `json:"options"`
	TextMessage textMessage `json:"textMessage"`
}

type buttonText struct {
	DisplayText string `json:"displayText"`
}

type button struct {
	ButtonText buttonText `json:"buttonText"`
	Type       int        `json:"type"`
}

type buttonMessage struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	FooterText  string   `json:"footerText"`
	Buttons     []button `json:"buttons"`
}

type buttonRequest struct {
	Number        string        `json:"number"`
	Options       sendOptions   `json:"options"`
	ButtonMessage buttonMessage `json:"buttonMessage"`
}

type messageKey struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

type sendResponse struct {
	Key    messageKey `json:"key"`
	Status string     `json:"status"`
}

type qrResponse struct {
	QRCode string `json:"qrcode"`
	Code   string `json:"code"`
	Base64 string `json:"base64"`
}

// The bridge answers {state} on older releases and {instance:{state}} on newer ones.
type stateResponse struct {
	State    string `json:"state"`
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
	} `json:"instance"`
}

func (s stateResponse) state() string {
	if s.State != "" {
		return s.State
	}
	return s.Instance.State
}
