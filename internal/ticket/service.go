package ticket

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcastello/ticket-analyzer/internal/extract"
	"github.com/jcastello/ticket-analyzer/internal/parsing"
)

// timestampLayout matches the normalized timestamp the parser emits.
const timestampLayout = "2006-01-02 15:04"

// ErrIncomplete is returned when a parsed ticket is missing the fields
// required for storage: ticket number, card suffix and timestamp. The
// document is routed to the error directory for manual review.
var ErrIncomplete = errors.New("ticket missing required fields")

// IDGenerator generates unique IDs for catalog products
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles ticket import and catalog operations
type Service struct {
	db          DB
	extractor   extract.Extractor
	documents   Documents
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor extract.Extractor, documents Documents) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		documents:   documents,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extract.Extractor, documents Documents, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		documents:   documents,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ImportDocument reads one ticket PDF, parses it and stores the result.
// A ticket missing its required header fields is moved to the error
// directory and reported as ErrIncomplete; a ticket already in the database
// is moved to the processed directory and reported as ErrDuplicateTicket.
// Everything else the parser could not read is simply absent from the
// stored record.
func (s *Service) ImportDocument(path string) (*Ticket, error) {
	data, err := s.documents.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	text, err := s.extractor.Text(data)
	if err != nil {
		slog.Error("Failed to extract text", "path", path, "error", err)
		if moveErr := s.documents.MoveToError(path); moveErr != nil {
			slog.Warn("Failed to move document", "path", path, "error", moveErr)
		}
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	parsed := parsing.Parse(text)

	timestamp, ok := requiredFields(parsed.Header)
	if !ok {
		slog.Warn("Ticket could not be interpreted",
			"path", path,
			"ticket_number", parsed.Header.TicketNumber,
			"card_suffix", parsed.Header.CardSuffix,
			"timestamp", parsed.Header.Timestamp,
		)
		if moveErr := s.documents.MoveToError(path); moveErr != nil {
			slog.Warn("Failed to move document", "path", path, "error", moveErr)
		}
		return nil, ErrIncomplete
	}

	if err := s.ensureCard(parsed.Header.CardSuffix); err != nil {
		return nil, err
	}

	lines, err := s.catalogLines(parsed.Lines)
	if err != nil {
		return nil, err
	}

	var total decimal.Decimal
	if parsed.Header.Total != nil {
		total = *parsed.Header.Total
	}

	t := &Ticket{
		Number:     parsed.Header.TicketNumber,
		Timestamp:  timestamp,
		Store:      parsed.Header.StoreAddress,
		PostalCode: parsed.Header.PostalCode,
		Total:      total,
		CardSuffix: parsed.Header.CardSuffix,
		Lines:      lines,
		CreatedAt:  s.timeSource.Now(),
	}

	err = s.db.SaveTicket(t)
	switch {
	case errors.Is(err, ErrDuplicateTicket):
		slog.Info("Ticket already imported", "number", t.Number, "path", path)
		if moveErr := s.documents.MoveToProcessed(path); moveErr != nil {
			slog.Warn("Failed to move document", "path", path, "error", moveErr)
		}
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("saving ticket: %w", err)
	}

	slog.Info("Ticket imported", "number", t.Number, "lines", len(t.Lines), "total", t.Total)
	if moveErr := s.documents.MoveToProcessed(path); moveErr != nil {
		slog.Warn("Failed to move document", "path", path, "error", moveErr)
	}
	return t, nil
}

// requiredFields validates the presence of the fields storage depends on
// and parses the timestamp.
func requiredFields(h parsing.Header) (time.Time, bool) {
	if h.TicketNumber == "" || h.CardSuffix == "" || h.Timestamp == "" {
		return time.Time{}, false
	}
	timestamp, err := time.Parse(timestampLayout, h.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp, true
}

// ensureCard creates the payment card record on first sight of its suffix.
func (s *Service) ensureCard(suffix string) error {
	_, err := s.db.GetCard(suffix)
	if errors.Is(err, ErrNotFound) {
		if err := s.db.SaveCard(&Card{Suffix: suffix}); err != nil {
			return fmt.Errorf("saving card: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting card: %w", err)
	}
	return nil
}

// catalogLines links each parsed line to its catalog product, creating
// products the first time a description is seen.
func (s *Service) catalogLines(parsed []parsing.Line) ([]Line, error) {
	lines := make([]Line, 0, len(parsed))
	for _, pl := range parsed {
		product, err := s.db.ProductByDescription(pl.Description)
		if errors.Is(err, ErrNotFound) {
			product = &Product{
				ID:          s.idGenerator.Generate(),
				Description: pl.Description,
			}
			if err := s.db.SaveProduct(product); err != nil {
				return nil, fmt.Errorf("saving product: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("getting product: %w", err)
		}
		lines = append(lines, Line{Line: pl, ProductID: product.ID})
	}
	return lines, nil
}

// ImportSummary counts the outcomes of an inbox run.
type ImportSummary struct {
	Imported   int
	Duplicates int
	Failed     int
}

// ImportAll imports every pending document in the inbox. Per-document
// failures are counted, not propagated; one broken PDF must not stop the
// run.
func (s *Service) ImportAll() (ImportSummary, error) {
	var summary ImportSummary

	paths, err := s.documents.ListInbox()
	if err != nil {
		return summary, fmt.Errorf("listing inbox: %w", err)
	}

	for _, path := range paths {
		_, err := s.ImportDocument(path)
		switch {
		case errors.Is(err, ErrDuplicateTicket):
			summary.Duplicates++
		case err != nil:
			slog.Error("Failed to import document", "path", path, "error", err)
			summary.Failed++
		default:
			summary.Imported++
		}
	}
	return summary, nil
}

// GetTicket retrieves a stored ticket by its number
func (s *Service) GetTicket(number string) (*Ticket, error) {
	t, err := s.db.GetTicket(number)
	if err != nil {
		return nil, fmt.Errorf("getting ticket: %w", err)
	}
	return t, nil
}

// ListTickets returns all stored tickets
func (s *Service) ListTickets() ([]*Ticket, error) {
	tickets, err := s.db.ListTickets()
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return tickets, nil
}

// ListProducts returns the product catalog
func (s *Service) ListProducts() ([]*Product, error) {
	products, err := s.db.ListProducts()
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// ListFamilies returns the spending families
func (s *Service) ListFamilies() ([]*Family, error) {
	families, err := s.db.ListFamilies()
	if err != nil {
		return nil, fmt.Errorf("listing families: %w", err)
	}
	return families, nil
}

// AssignFamily puts a catalog product under a spending family.
func (s *Service) AssignFamily(productID string, familyID int) error {
	if _, err := s.db.GetFamily(familyID); err != nil {
		return fmt.Errorf("getting family: %w", err)
	}
	product, err := s.db.GetProduct(productID)
	if err != nil {
		return fmt.Errorf("getting product: %w", err)
	}
	product.FamilyID = familyID
	if err := s.db.SaveProduct(product); err != nil {
		return fmt.Errorf("saving product: %w", err)
	}
	return nil
}
