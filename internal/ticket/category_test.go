package ticket

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("matchFamily", func() {
	It("should match fruit and vegetables", func() {
		id, ok := matchFamily("PATATA")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(1))
	})

	It("should match dairy", func() {
		id, ok := matchFamily("LECHE ENTERA")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(4))
	})

	It("should match pantry staples", func() {
		id, ok := matchFamily("GARBANZO COCIDO")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(6))

		id, ok = matchFamily("MACARRON INTEGRAL")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(7))

		id, ok = matchFamily("ACEITE OLIVA VIRGEN")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(8))

		id, ok = matchFamily("MERMELADA MELOCOTON")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(9))
	})

	It("should match frozen goods", func() {
		id, ok := matchFamily("HELADO BROWNIE")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(11))
	})

	It("should match the catch-all family", func() {
		id, ok := matchFamily("PARKING")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(14))
	})

	It("should put fried tomato in sauces, not produce", func() {
		id, ok := matchFamily("TOMATE FRITO")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(8))
	})

	It("should put popcorn kernels in cereals before snacks", func() {
		id, ok := matchFamily("MAIZ PALOMITAS")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(7))
	})

	It("should prefer prepared meals over generic keywords", func() {
		// "PIZZA ATUN" contains both a prepared-meal keyword and a fish
		// keyword; rule order decides.
		id, ok := matchFamily("PIZZA ATUN")
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(15))
	})

	It("should leave unknown descriptions unassigned", func() {
		_, ok := matchFamily("COSA RARA SIN REGLA")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Service.AutoCategorize", func() {
	var (
		db       *mockDB
		service  *Service
		assigned int
		err      error
	)

	BeforeEach(func() {
		db = newMockDB()
		db.products["PATATA"] = &Product{ID: "p1", Description: "PATATA"}
		db.products["LECHE ENTERA"] = &Product{ID: "p2", Description: "LECHE ENTERA"}
		db.products["COSA RARA"] = &Product{ID: "p3", Description: "COSA RARA"}
		db.products["GAZPACHO FRESCO"] = &Product{ID: "p4", Description: "GAZPACHO FRESCO", FamilyID: 14}
		service = NewServiceWithDeps(db, &mockExtractor{}, newMockDocuments(), &fixedIDGenerator{}, &fixedTimeSource{t: time.Now()})
	})

	JustBeforeEach(func() {
		assigned, err = service.AutoCategorize()
	})

	It("should not return an error", func() {
		Expect(err).NotTo(HaveOccurred())
	})

	It("should assign every product a rule covers", func() {
		Expect(assigned).To(Equal(2))
		Expect(db.products["PATATA"].FamilyID).To(Equal(1))
		Expect(db.products["LECHE ENTERA"].FamilyID).To(Equal(4))
	})

	It("should leave uncovered products for manual review", func() {
		Expect(db.products["COSA RARA"].FamilyID).To(Equal(0))
	})

	It("should not touch already categorized products", func() {
		Expect(db.products["GAZPACHO FRESCO"].FamilyID).To(Equal(14))
	})
})
