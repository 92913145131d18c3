package email

// Message is a single outbound email
type Message struct {
	ToAddress string `json:"to_address" validate:"required,email"`
	ToName    string `json:"to_name,omitempty"`
	Subject   string `json:"subject" validate:"required"`
	Text      string `json:"text" validate:"required"`
	HTML      string `json:"html,omitempty"`
}

// SendResult is what the provider reported for an accepted message
type SendResult struct {
	MessageID string
	Skipped   bool
}
