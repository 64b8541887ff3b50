package gateway

import "time"

// Identity is the gateway-owned account record. The core treats it as
// opaque apart from its id and email.
type Identity struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	ConfirmationSentAt time.Time `json:"confirmation_sent_at"`
}

// Session is a gateway-issued access token bundle.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         Identity
}

// OTPType selects which verification flow a one-time code belongs to.
type OTPType string

// Supported OTP flows.
const (
	OTPTypeSignup   OTPType = "signup"
	OTPTypeRecovery OTPType = "recovery"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Type  OTPType `json:"type"`
	Email string  `json:"email"`
	Token string  `json:"token"`
}

type recoverRequest struct {
	Email string `json:"email"`
}

type updateUserRequest struct {
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	RefreshToken string   `json:"refresh_token"`
	User         Identity `json:"user"`
}

type errorResponse struct {
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return e.Error
}
