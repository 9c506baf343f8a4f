package domain

import (
	"errors"
	"time"
)

var ErrMessageNotFound = errors.New("message not found")

// ContactMessage is a free-form message left through the contact form.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}
