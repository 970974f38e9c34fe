package types

type User struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

// ResponseLogin is stored by the panel as is; it reads access_token and user.
type ResponseLogin struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	User        User   `json:"user"`
}
