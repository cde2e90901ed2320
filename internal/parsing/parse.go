package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Compiled once at startup. The ticket layout has been stable for years, so
// every header field gets its own anchored pattern.
var (
	reDateTime = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s+(\d{2}:\d{2})`)
	reTicketNo = regexp.MustCompile(`FACTURA SIMPLIFICADA:\s+([0-9-]+)`)
	reTotal    = regexp.MustCompile(`TOTAL\s+\(€\)\s+(\d+,\d+)`)
	reCard     = regexp.MustCompile(`\*\*\*\*\s+\*\*\*\*\s+\*\*\*\*\s+(\d{4})`)
	reStore    = regexp.MustCompile(`MERCADONA.*\n(.*)`)
	rePostal   = regexp.MustCompile(`\b(\d{5})\b`)
	reWeight   = regexp.MustCompile(`^([\d,]+)\s+kg\s+([\d,]+)\s+€/kg\s+([\d,]+)$`)
	reUnitQty  = regexp.MustCompile(`^(\d+)\s+(.+)$`)
)

const (
	// tableHeaderMarker is the column-title row that opens the item table.
	tableHeaderMarker = "Descripción P. Unit Importe"
	// totalMarker closes the item table; nothing after it is inspected.
	totalMarker = "TOTAL (€)"
	// Postal codes recur in footers and legal disclaimers, so only the
	// first postalWindow bytes are searched for one.
	postalWindow = 200
)

// parseComma parses a comma-decimal token ("1,45" -> 1.45).
func parseComma(tok string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(tok, ",", "."))
}

// weightDetail is the second line of a two-line weighted item:
// "<kg> kg <price> €/kg <amount>".
type weightDetail struct {
	kg         decimal.Decimal
	pricePerKg decimal.Decimal
	amount     decimal.Decimal
}

// parseWeightLine reports whether line is a weight detail line and, if so,
// its parsed values.
func parseWeightLine(line string) (weightDetail, bool) {
	m := reWeight.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return weightDetail{}, false
	}
	kg, err := parseComma(m[1])
	if err != nil {
		return weightDetail{}, false
	}
	price, err := parseComma(m[2])
	if err != nil {
		return weightDetail{}, false
	}
	amount, err := parseComma(m[3])
	if err != nil {
		return weightDetail{}, false
	}
	return weightDetail{kg: kg, pricePerKg: price, amount: amount}, true
}

// Parse extracts the header fields and item lines of one ticket. Every
// header field is optional, missing fields stay at their zero value, and
// item lines that cannot be read numerically are dropped. Parse never
// fails: structural problems surface as absent fields and an empty line
// list, and it is the caller's job to decide whether that is acceptable.
// Parse keeps no state and is safe for concurrent use.
func Parse(text string) Ticket {
	return Ticket{
		Header: parseHeader(text),
		Lines:  parseLines(text),
	}
}

func parseHeader(text string) Header {
	var h Header

	// DD/MM/YYYY HH:MM reordered to YYYY-MM-DD HH:MM.
	if m := reDateTime.FindStringSubmatch(text); m != nil {
		d := strings.Split(m[1], "/")
		h.Timestamp = fmt.Sprintf("%s-%s-%s %s", d[2], d[1], d[0], m[2])
	}

	if m := reTicketNo.FindStringSubmatch(text); m != nil {
		h.TicketNumber = m[1]
	}

	if m := reTotal.FindStringSubmatch(text); m != nil {
		if total, err := parseComma(m[1]); err == nil {
			h.Total = &total
		}
	}

	if m := reCard.FindStringSubmatch(text); m != nil {
		h.CardSuffix = m[1]
	}

	// The store address is the line right after the legal-entity header.
	if m := reStore.FindStringSubmatch(text); m != nil {
		h.StoreAddress = strings.ReplaceAll(strings.TrimSpace(m[1]), ",", "")
	}

	window := text
	if len(window) > postalWindow {
		window = window[:postalWindow]
	}
	if m := rePostal.FindStringSubmatch(window); m != nil {
		h.PostalCode = m[1]
	}

	return h
}

// parseLines scans the span between the table-header marker and the total
// row. Each line there is classified with one line of lookahead: when the
// next line is the kg/€-per-kg detail of the current one, both lines form a
// single weighted item and the cursor advances by two.
func parseLines(text string) []Line {
	items := make([]Line, 0)
	lines := strings.Split(text, "\n")
	inTable := false

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if strings.Contains(line, tableHeaderMarker) {
			inTable = true
			continue
		}
		if strings.Contains(line, totalMarker) {
			break
		}
		if !inTable || line == "" {
			continue
		}

		next := ""
		if i+1 < len(lines) {
			next = strings.TrimSpace(lines[i+1])
		}
		weight, nextIsWeight := parseWeightLine(next)

		m := reUnitQty.FindStringSubmatch(line)
		if m == nil {
			// No leading quantity. Either a section header printed by
			// the till (ignored) or the name of a weighted item on its
			// own line; the next line decides which.
			if nextIsWeight {
				items = append(items, Line{
					Description: line,
					Quantity:    weight.kg,
					UnitPrice:   weight.pricePerKg,
					Amount:      weight.amount,
					Weighted:    true,
				})
				i++ // the weight detail belongs to this item
			}
			continue
		}

		qty, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rest := strings.TrimSpace(m[2])
		parts := strings.Fields(rest)

		switch {
		case qty > 1:
			// "N description unit-price amount"
			if len(parts) < 2 || !strings.Contains(parts[len(parts)-1], ",") {
				continue
			}
			amount, err := parseComma(parts[len(parts)-1])
			if err != nil {
				continue
			}
			unitPrice, err := parseComma(parts[len(parts)-2])
			if err != nil {
				continue
			}
			items = append(items, Line{
				Description: strings.Join(parts[:len(parts)-2], " "),
				Quantity:    decimal.NewFromInt(int64(qty)),
				UnitPrice:   unitPrice,
				Amount:      amount,
			})

		case nextIsWeight:
			// "1 description" followed by the kg detail line. The
			// leading 1 counts batches, not units; the real quantity is
			// the weight.
			items = append(items, Line{
				Description: rest,
				Quantity:    weight.kg,
				UnitPrice:   weight.pricePerKg,
				Amount:      weight.amount,
				Weighted:    true,
			})
			i++

		default:
			// "1 description amount": a single unit, so the line amount
			// is also the unit price.
			if !strings.Contains(parts[len(parts)-1], ",") {
				continue
			}
			amount, err := parseComma(parts[len(parts)-1])
			if err != nil {
				continue
			}
			items = append(items, Line{
				Description: strings.Join(parts[:len(parts)-1], " "),
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   amount,
				Amount:      amount,
			})
		}
	}

	return items
}
