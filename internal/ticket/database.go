package ticket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

const (
	ticketBucketName  = "tickets"
	cardBucketName    = "cards"
	productBucketName = "products"
	familyBucketName  = "families"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateTicket is returned when a ticket number is already stored.
// Importing the same ticket twice is expected and treated as a no-op by the
// import flow, never as a failure.
var ErrDuplicateTicket = errors.New("ticket already imported")

// DB defines the interface for database operations
type DB interface {
	// SaveTicket stores a ticket; ErrDuplicateTicket if the number exists
	SaveTicket(t *Ticket) error

	// GetTicket retrieves a ticket by its number
	GetTicket(number string) (*Ticket, error)

	// ListTickets returns all tickets
	ListTickets() ([]*Ticket, error)

	// SaveCard stores a payment card keyed by its suffix
	SaveCard(c *Card) error

	// GetCard retrieves a card by its 4-digit suffix
	GetCard(suffix string) (*Card, error)

	// SaveProduct stores a catalog entry keyed by its exact description
	SaveProduct(p *Product) error

	// ProductByDescription retrieves a catalog entry by exact description
	ProductByDescription(description string) (*Product, error)

	// GetProduct retrieves a catalog entry by ID
	GetProduct(id string) (*Product, error)

	// ListProducts returns the whole catalog
	ListProducts() ([]*Product, error)

	// GetFamily retrieves a spending family by ID
	GetFamily(id int) (*Family, error)

	// ListFamilies returns all spending families in ID order
	ListFamilies() ([]*Family, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// seedFamilies is the fixed set of spending categories, inserted once when
// the database is created.
var seedFamilies = []Family{
	{1, "Frutas y verduras", "🥦"},
	{2, "Carne y charcutería", "🥩"},
	{3, "Pescado y marisco", "🐟"},
	{4, "Lácteos y huevos", "🥛"},
	{5, "Pan y bollería", "🍞"},
	{6, "Conservas y legumbres", "🥫"},
	{7, "Pasta, arroz y cereales", "🍝"},
	{8, "Aceites, salsas y condimentos", "🫙"},
	{9, "Snacks y dulces", "🍫"},
	{10, "Bebidas", "🧃"},
	{11, "Congelados", "🧊"},
	{12, "Droguería y limpieza", "🧹"},
	{13, "Higiene y cuidado personal", "🧴"},
	{14, "Otras", "🗂️"},
	{15, "Comidas preparadas", "🥘"},
}

// NewBoltDB creates a new BoltDB instance, creating buckets and seeding the
// family table on first open.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{ticketBucketName, cardBucketName, productBucketName, familyBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		families := tx.Bucket([]byte(familyBucketName))
		if k, _ := families.Cursor().First(); k != nil {
			return nil // already seeded
		}
		for _, f := range seedFamilies {
			data, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("marshaling family: %w", err)
			}
			if err := families.Put(familyKey(f.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func familyKey(id int) []byte {
	return []byte(strconv.Itoa(id))
}

// SaveTicket stores a ticket keyed by its number. The number is the natural
// key, so an existing entry means the ticket was already imported.
func (b *BoltDB) SaveTicket(t *Ticket) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ticketBucketName))
		if bucket.Get([]byte(t.Number)) != nil {
			return fmt.Errorf("ticket %s: %w", t.Number, ErrDuplicateTicket)
		}
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling ticket: %w", err)
		}
		return bucket.Put([]byte(t.Number), data)
	})
}

// GetTicket retrieves a ticket by its number
func (b *BoltDB) GetTicket(number string) (*Ticket, error) {
	var ticket *Ticket
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(ticketBucketName)).Get([]byte(number))
		if data == nil {
			return fmt.Errorf("ticket %s: %w", number, ErrNotFound)
		}
		return json.Unmarshal(data, &ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns all tickets
func (b *BoltDB) ListTickets() ([]*Ticket, error) {
	tickets := make([]*Ticket, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ticketBucketName)).ForEach(func(k, v []byte) error {
			var t Ticket
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("unmarshaling ticket: %w", err)
			}
			tickets = append(tickets, &t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// SaveCard stores a payment card keyed by its suffix
func (b *BoltDB) SaveCard(c *Card) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshaling card: %w", err)
		}
		return tx.Bucket([]byte(cardBucketName)).Put([]byte(c.Suffix), data)
	})
}

// GetCard retrieves a card by its 4-digit suffix
func (b *BoltDB) GetCard(suffix string) (*Card, error) {
	var card *Card
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(cardBucketName)).Get([]byte(suffix))
		if data == nil {
			return fmt.Errorf("card %s: %w", suffix, ErrNotFound)
		}
		return json.Unmarshal(data, &card)
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// SaveProduct stores a catalog entry keyed by its exact description
func (b *BoltDB) SaveProduct(p *Product) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshaling product: %w", err)
		}
		return tx.Bucket([]byte(productBucketName)).Put([]byte(p.Description), data)
	})
}

// ProductByDescription retrieves a catalog entry by exact description
func (b *BoltDB) ProductByDescription(description string) (*Product, error) {
	var product *Product
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(productBucketName)).Get([]byte(description))
		if data == nil {
			return fmt.Errorf("product %q: %w", description, ErrNotFound)
		}
		return json.Unmarshal(data, &product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct retrieves a catalog entry by ID. The bucket is keyed by
// description, so this scans; the catalog stays small enough for that.
func (b *BoltDB) GetProduct(id string) (*Product, error) {
	var product *Product
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(productBucketName)).ForEach(func(k, v []byte) error {
			if product != nil {
				return nil
			}
			var p Product
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("unmarshaling product: %w", err)
			}
			if p.ID == id {
				product = &p
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return product, nil
}

// ListProducts returns the whole catalog
func (b *BoltDB) ListProducts() ([]*Product, error) {
	products := make([]*Product, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(productBucketName)).ForEach(func(k, v []byte) error {
			var p Product
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("unmarshaling product: %w", err)
			}
			products = append(products, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetFamily retrieves a spending family by ID
func (b *BoltDB) GetFamily(id int) (*Family, error) {
	var family *Family
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(familyBucketName)).Get(familyKey(id))
		if data == nil {
			return fmt.Errorf("family %d: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &family)
	})
	if err != nil {
		return nil, err
	}
	return family, nil
}

// ListFamilies returns all spending families in ID order
func (b *BoltDB) ListFamilies() ([]*Family, error) {
	families := make([]*Family, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(familyBucketName)).ForEach(func(k, v []byte) error {
			var f Family
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("unmarshaling family: %w", err)
			}
			families = append(families, &f)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Bucket iteration is lexicographic over the string keys ("10" sorts
	// before "2"), so reorder numerically.
	sort.Slice(families, func(i, j int) bool { return families[i].ID < families[j].ID })
	return families, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
