package mail

import (
	"encoding/json"
	"log"

	"github.com/WinterTamarind/auth_service/internal/dto"
)

type Sender interface {
	SendOtpEmail(to string, code string, expiresAt string) error
}

type MailHandler struct {
	sender Sender
}

func NewMailHandler(sender Sender) *MailHandler {
	return &MailHandler{sender: sender}
}

func (h *MailHandler) HandleMessage(message string) error {
	var event dto.OtpEmailEvent

	if err := json.Unmarshal([]byte(message), &event); err != nil {
		log.Printf("invalid event payload: %s\n", message)
		return err
	}

	log.Printf("OTP email event received: event_id=%s user_id=%d email=%s",
		event.EventID, event.UserID, event.Email)

	err := h.sender.SendOtpEmail(event.Email, event.Otp, event.ExpiresAt)
	if err != nil {
		log.Printf("[MAIL] send failed for user_id=%d: %v", event.UserID, err)
	}
	return err
}
