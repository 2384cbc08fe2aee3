package stripe

import "fmt"

type IntentStatus string

const (
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	StatusRequiresAction        IntentStatus = "requires_action"
	StatusProcessing            IntentStatus = "processing"
	StatusRequiresCapture       IntentStatus = "requires_capture"
	StatusCanceled              IntentStatus = "canceled"
	StatusSucceeded             IntentStatus = "succeeded"
)

// CreateIntentRequest represents the parameters for creating a payment intent
type CreateIntentRequest struct {
	Amount         int64 // minor units
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntent is the subset of the provider's payment intent object used here
type PaymentIntent struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       IntentStatus      `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata"`

	LastPaymentError *PaymentError `json:"last_payment_error,omitempty"`
}

// PaymentError describes why the latest attempt on an intent failed
type PaymentError struct {
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

// ErrorResponse represents an error payload from the API
type ErrorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"error"`
}

func (e *ErrorResponse) String() string {
	return fmt.Sprintf("type=%s code=%s message=%s", e.Error.Type, e.Error.Code, e.Error.Message)
}
