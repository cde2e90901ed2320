package ticket

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("tickets", func() {
		var ticket *Ticket

		BeforeEach(func() {
			ticket = &Ticket{
				Number:     "2804-012-345678",
				Timestamp:  time.Date(2026, 2, 21, 18, 32, 0, 0, time.UTC),
				Store:      "AVDA. DEL PUERTO 201",
				PostalCode: "12005",
				Total:      decimal.RequireFromString("4.43"),
				CardSuffix: "1234",
				CreatedAt:  time.Now().UTC(),
			}
			Expect(db.SaveTicket(ticket)).To(Succeed())
		})

		It("should round-trip a ticket by number", func() {
			got, err := db.GetTicket("2804-012-345678")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Store).To(Equal(ticket.Store))
			Expect(got.Timestamp).To(Equal(ticket.Timestamp))
			Expect(got.Total.Equal(ticket.Total)).To(BeTrue())
		})

		It("should reject a duplicate number", func() {
			err := db.SaveTicket(ticket)
			Expect(err).To(MatchError(ErrDuplicateTicket))
		})

		It("should list stored tickets", func() {
			tickets, err := db.ListTickets()
			Expect(err).NotTo(HaveOccurred())
			Expect(tickets).To(HaveLen(1))
		})

		It("should return ErrNotFound for unknown numbers", func() {
			_, err := db.GetTicket("0000-000-000000")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("cards", func() {
		It("should round-trip a card by suffix", func() {
			Expect(db.SaveCard(&Card{Suffix: "1234"})).To(Succeed())
			card, err := db.GetCard("1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(card.Suffix).To(Equal("1234"))
		})

		It("should return ErrNotFound for unknown suffixes", func() {
			_, err := db.GetCard("9999")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("products", func() {
		BeforeEach(func() {
			Expect(db.SaveProduct(&Product{ID: "p1", Description: "PATATA"})).To(Succeed())
		})

		It("should look up by exact description", func() {
			p, err := db.ProductByDescription("PATATA")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID).To(Equal("p1"))
		})

		It("should look up by ID", func() {
			p, err := db.GetProduct("p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Description).To(Equal("PATATA"))
		})

		It("should return ErrNotFound for unknown products", func() {
			_, err := db.ProductByDescription("TURRÓN")
			Expect(err).To(MatchError(ErrNotFound))
			_, err = db.GetProduct("p2")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should overwrite on save, keyed by description", func() {
			Expect(db.SaveProduct(&Product{ID: "p1", Description: "PATATA", FamilyID: 1})).To(Succeed())
			p, err := db.ProductByDescription("PATATA")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.FamilyID).To(Equal(1))
			products, err := db.ListProducts()
			Expect(err).NotTo(HaveOccurred())
			Expect(products).To(HaveLen(1))
		})
	})

	Describe("families", func() {
		It("should seed the fixed categories on creation", func() {
			families, err := db.ListFamilies()
			Expect(err).NotTo(HaveOccurred())
			Expect(families).To(HaveLen(len(seedFamilies)))
		})

		It("should list them in ID order", func() {
			families, err := db.ListFamilies()
			Expect(err).NotTo(HaveOccurred())
			for i, f := range families {
				Expect(f.ID).To(Equal(i + 1))
			}
		})

		It("should fetch one by ID", func() {
			f, err := db.GetFamily(15)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Name).To(Equal("Comidas preparadas"))
		})

		It("should not reseed an existing database", func() {
			path := filepath.Join(GinkgoT().TempDir(), "reopen.db")
			first, err := NewBoltDB(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close()).To(Succeed())

			second, err := NewBoltDB(path)
			Expect(err).NotTo(HaveOccurred())
			defer second.Close()
			families, err := second.ListFamilies()
			Expect(err).NotTo(HaveOccurred())
			Expect(families).To(HaveLen(len(seedFamilies)))
		})
	})
})
