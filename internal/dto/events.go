package dto

type OtpEmailEvent struct {
	EventID   string `json:"event_id"`
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Otp       string `json:"otp"`
	ExpiresAt string `json:"expires_at"`
}
