// Package report aggregates the stored tickets into a spending report.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastello/ticket-analyzer/internal/ticket"
)

const uncategorized = "Sin categoría"

// topProductCount caps the product ranking in the rendered report.
const topProductCount = 15

// Stats is everything the report shows, precomputed.
type Stats struct {
	GeneratedAt   time.Time
	TicketCount   int
	TotalSpend    decimal.Decimal
	AverageTicket decimal.Decimal
	FirstTicket   time.Time
	LastTicket    time.Time
	Monthly       []MonthSpend
	Families      []FamilySpend
	TopProducts   []ProductSpend
	Stores        []StoreVisits
}

// MonthSpend is the spend of one calendar month.
type MonthSpend struct {
	Month   string // YYYY-MM
	Tickets int
	Total   decimal.Decimal
}

// FamilySpend is the spend accumulated under one spending family.
type FamilySpend struct {
	Name  string
	Emoji string
	Lines int
	Total decimal.Decimal
}

// ProductSpend is the spend accumulated on one catalog product.
type ProductSpend struct {
	Description string
	Lines       int
	Total       decimal.Decimal
}

// StoreVisits counts purchases per store.
type StoreVisits struct {
	Store      string
	PostalCode string
	Visits     int
	Total      decimal.Decimal
}

// Report builds and renders spending reports from the database.
type Report struct {
	db ticket.DB
}

// New creates a Report over the given database.
func New(db ticket.DB) *Report {
	return &Report{db: db}
}

// Stats aggregates every stored ticket.
func (r *Report) Stats() (*Stats, error) {
	tickets, err := r.db.ListTickets()
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	products, err := r.db.ListProducts()
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	families, err := r.db.ListFamilies()
	if err != nil {
		return nil, fmt.Errorf("listing families: %w", err)
	}

	productByID := make(map[string]*ticket.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	familyByID := make(map[int]*ticket.Family, len(families))
	for _, f := range families {
		familyByID[f.ID] = f
	}

	stats := &Stats{
		GeneratedAt: time.Now(),
		TicketCount: len(tickets),
	}

	monthly := make(map[string]*MonthSpend)
	byFamily := make(map[string]*FamilySpend)
	byProduct := make(map[string]*ProductSpend)
	byStore := make(map[string]*StoreVisits)

	for _, t := range tickets {
		stats.TotalSpend = stats.TotalSpend.Add(t.Total)
		if stats.FirstTicket.IsZero() || t.Timestamp.Before(stats.FirstTicket) {
			stats.FirstTicket = t.Timestamp
		}
		if t.Timestamp.After(stats.LastTicket) {
			stats.LastTicket = t.Timestamp
		}

		month := t.Timestamp.Format("2006-01")
		m, ok := monthly[month]
		if !ok {
			m = &MonthSpend{Month: month}
			monthly[month] = m
		}
		m.Tickets++
		m.Total = m.Total.Add(t.Total)

		store, ok := byStore[t.Store]
		if !ok {
			store = &StoreVisits{Store: t.Store, PostalCode: t.PostalCode}
			byStore[t.Store] = store
		}
		store.Visits++
		store.Total = store.Total.Add(t.Total)

		for _, line := range t.Lines {
			name, emoji := uncategorized, "🗂️"
			if p, ok := productByID[line.ProductID]; ok && p.FamilyID != 0 {
				if f, ok := familyByID[p.FamilyID]; ok {
					name, emoji = f.Name, f.Emoji
				}
			}
			fs, ok := byFamily[name]
			if !ok {
				fs = &FamilySpend{Name: name, Emoji: emoji}
				byFamily[name] = fs
			}
			fs.Lines++
			fs.Total = fs.Total.Add(line.Amount)

			ps, ok := byProduct[line.Description]
			if !ok {
				ps = &ProductSpend{Description: line.Description}
				byProduct[line.Description] = ps
			}
			ps.Lines++
			ps.Total = ps.Total.Add(line.Amount)
		}
	}

	if stats.TicketCount > 0 {
		stats.AverageTicket = stats.TotalSpend.
			Div(decimal.NewFromInt(int64(stats.TicketCount))).
			Round(2)
	}

	for _, m := range monthly {
		stats.Monthly = append(stats.Monthly, *m)
	}
	sort.Slice(stats.Monthly, func(i, j int) bool {
		return stats.Monthly[i].Month < stats.Monthly[j].Month
	})

	for _, f := range byFamily {
		stats.Families = append(stats.Families, *f)
	}
	sort.Slice(stats.Families, func(i, j int) bool {
		return stats.Families[i].Total.GreaterThan(stats.Families[j].Total)
	})

	for _, p := range byProduct {
		stats.TopProducts = append(stats.TopProducts, *p)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		return stats.TopProducts[i].Total.GreaterThan(stats.TopProducts[j].Total)
	})
	if len(stats.TopProducts) > topProductCount {
		stats.TopProducts = stats.TopProducts[:topProductCount]
	}

	for _, s := range byStore {
		stats.Stores = append(stats.Stores, *s)
	}
	sort.Slice(stats.Stores, func(i, j int) bool {
		return stats.Stores[i].Visits > stats.Stores[j].Visits
	})

	return stats, nil
}

// Render writes the HTML report.
func (r *Report) Render(w io.Writer) error {
	stats, err := r.Stats()
	if err != nil {
		return err
	}
	if err := reportTemplate.Execute(w, stats); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}
