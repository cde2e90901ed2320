// Package parsing turns the flattened text of a supermarket ticket PDF into
// a structured record: the header fields plus the ordered list of purchased
// items.
package parsing

import "github.com/shopspring/decimal"

// Header holds the ticket-level fields. Every field is extracted
// independently from its own pattern; a zero value (nil for Total) means the
// pattern did not match, which is normal for partially garbled tickets.
type Header struct {
	TicketNumber string           `json:"ticket_number,omitempty"`
	Timestamp    string           `json:"timestamp,omitempty"` // YYYY-MM-DD HH:MM
	Total        *decimal.Decimal `json:"total,omitempty"`
	CardSuffix   string           `json:"card_suffix,omitempty"` // last 4 digits
	StoreAddress string           `json:"store_address,omitempty"`
	PostalCode   string           `json:"postal_code,omitempty"`
}

// Line is one purchased item, in document order.
// Weighted lines carry Quantity in kg and UnitPrice in €/kg; otherwise
// Quantity is an integer unit count and UnitPrice a per-unit price.
// Amount is taken from the document as printed, never recomputed.
type Line struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Weighted    bool            `json:"weighted"`
}

// Ticket is the result of parsing one ticket's text.
type Ticket struct {
	Header Header `json:"header"`
	Lines  []Line `json:"lines"`
}
