package dto

import "encoding/json"

// PaymentWebhookPayload is the card provider's notification envelope.
type PaymentWebhookPayload struct {
	MerchantID string `json:"merchant_id"`
	Type       string `json:"type"`
	EventID    string `json:"event_id"`
	CreatedAt  string `json:"created_at"`
	Data       struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object struct {
			Payment *ProviderPayment `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// ProviderPayment is the subset of the provider payment object the engine reads.
type ProviderPayment struct {
	ID                string           `json:"id"`
	Status            string           `json:"status"`
	OrderID           string           `json:"order_id"`
	Note              string           `json:"note"`
	BuyerEmailAddress string           `json:"buyer_email_address"`
	AmountMoney       *ProviderMoney   `json:"amount_money"`
	TotalMoney        *ProviderMoney   `json:"total_money"`
	BillingAddress    *ProviderAddress `json:"billing_address"`
	ShippingAddress   *ProviderAddress `json:"shipping_address"`
}

// ProviderMoney is an amount in minor units.
type ProviderMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ProviderAddress carries the buyer's name as entered at checkout.
type ProviderAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CRMWebhookPayload is the loosely typed CRM automation payload. Field names
// vary between workflow templates, so several aliases are accepted.
type CRMWebhookPayload struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	ID        string `json:"id"`
	OrderID   string `json:"orderId"`
	OrderID2  string `json:"order_id"`
	InvoiceID string `json:"invoiceId"`
	Status    string `json:"status"`

	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	Contact *struct {
		Name      string `json:"name"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"contact"`

	Amount     json.Number            `json:"amount"`
	Total      json.Number            `json:"total"`
	CustomData map[string]interface{} `json:"customData"`
}
