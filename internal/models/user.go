package models

import "time"

// User is an account created by the sign-in flow. This service only reads it.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      *string   `db:"name" json:"name,omitempty"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// DisplayName is the name to send to payment providers.
func (u *User) DisplayName() string {
	if u.Name == nil {
		return ""
	}
	return *u.Name
}

// Contact is the phone number to send to payment providers.
func (u *User) Contact() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Role      string    `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"fullName"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// WebhookEvent is one audited webhook delivery.
type WebhookEvent struct {
	ID           string    `db:"id" json:"id"`
	Provider     string    `db:"provider" json:"provider"`
	ExternalID   *string   `db:"external_id" json:"externalId,omitempty"`
	EventType    string    `db:"event_type" json:"eventType"`
	Outcome      string    `db:"outcome" json:"outcome"`
	ErrorMessage *string   `db:"error_message" json:"errorMessage,omitempty"`
	ReceivedAt   time.Time `db:"received_at" json:"receivedAt"`
}
