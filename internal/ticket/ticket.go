package ticket

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastello/ticket-analyzer/internal/parsing"
)

// Ticket is one stored purchase, keyed by its ticket number.
type Ticket struct {
	Number     string          `json:"number"`
	Timestamp  time.Time       `json:"timestamp"`
	Store      string          `json:"store,omitempty"`
	PostalCode string          `json:"postal_code,omitempty"`
	Total      decimal.Decimal `json:"total"`
	CardSuffix string          `json:"card_suffix"`
	Lines      []Line          `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Line is one stored ticket line, linked into the product catalog.
type Line struct {
	parsing.Line
	ProductID string `json:"product_id"`
}

// Card is a payment card, identified by the last four digits printed on the
// ticket. The description is filled in by hand later.
type Card struct {
	Suffix      string `json:"suffix"`
	Description string `json:"description,omitempty"`
}

// Product is one catalog entry. Tickets reference products by ID so the same
// article can be grouped across purchases without touching the original
// line description.
type Product struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	FamilyID    int    `json:"family_id,omitempty"` // 0 = uncategorized
}

// Family is a spending category products are grouped under.
type Family struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}
