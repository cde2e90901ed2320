package ticket

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

// stubReporter is a stub implementation of ReportRenderer
type stubReporter struct {
	html string
	err  error
}

func (s *stubReporter) Render(w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, s.html)
	return err
}

var _ = Describe("Server", func() {
	var (
		db       *mockDB
		service  *Service
		reporter *stubReporter
		server   *Server
		auth     BasicAuth

		recorder *httptest.ResponseRecorder
		request  *http.Request
	)

	BeforeEach(func() {
		db = newMockDB()
		db.tickets["2804-012-345678"] = &Ticket{
			Number:     "2804-012-345678",
			Timestamp:  time.Date(2026, 2, 21, 18, 32, 0, 0, time.UTC),
			Total:      decimal.RequireFromString("4.43"),
			CardSuffix: "1234",
		}
		db.products["PATATA"] = &Product{ID: "p1", Description: "PATATA"}
		service = NewServiceWithDeps(db, &mockExtractor{}, newMockDocuments(), &fixedIDGenerator{}, &fixedTimeSource{t: time.Now()})
		reporter = &stubReporter{html: "<html>ok</html>"}
		auth = BasicAuth{}
		recorder = httptest.NewRecorder()
	})

	JustBeforeEach(func() {
		server = NewServerWithMux(service, reporter, auth, http.NewServeMux())
		server.ServeHTTP(recorder, request)
	})

	Describe("GET /api/tickets", func() {
		BeforeEach(func() {
			request = httptest.NewRequest("GET", "/api/tickets", nil)
		})

		It("should return the stored tickets as JSON", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(Equal("application/json"))

			var tickets []*Ticket
			Expect(json.Unmarshal(recorder.Body.Bytes(), &tickets)).To(Succeed())
			Expect(tickets).To(HaveLen(1))
			Expect(tickets[0].Number).To(Equal("2804-012-345678"))
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("boom")
			})

			It("should return 500", func() {
				Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("GET /api/tickets/{number}", func() {
		BeforeEach(func() {
			request = httptest.NewRequest("GET", "/api/tickets/2804-012-345678", nil)
		})

		It("should return the ticket", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			var t Ticket
			Expect(json.Unmarshal(recorder.Body.Bytes(), &t)).To(Succeed())
			Expect(t.CardSuffix).To(Equal("1234"))
		})

		When("the ticket does not exist", func() {
			BeforeEach(func() {
				request = httptest.NewRequest("GET", "/api/tickets/0000-000-000000", nil)
			})

			It("should return 404", func() {
				Expect(recorder.Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("GET /api/products", func() {
		BeforeEach(func() {
			request = httptest.NewRequest("GET", "/api/products", nil)
		})

		It("should return the catalog", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			var products []*Product
			Expect(json.Unmarshal(recorder.Body.Bytes(), &products)).To(Succeed())
			Expect(products).To(HaveLen(1))
		})
	})

	Describe("GET /api/families", func() {
		BeforeEach(func() {
			request = httptest.NewRequest("GET", "/api/families", nil)
		})

		It("should return the spending families", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			var families []*Family
			Expect(json.Unmarshal(recorder.Body.Bytes(), &families)).To(Succeed())
			Expect(families).To(HaveLen(len(seedFamilies)))
		})
	})

	Describe("POST /api/products/{id}/family", func() {
		BeforeEach(func() {
			body := bytes.NewBufferString(`{"family_id": 1}`)
			request = httptest.NewRequest("POST", "/api/products/p1/family", body)
		})

		It("should assign the family", func() {
			Expect(recorder.Code).To(Equal(http.StatusNoContent))
			Expect(db.products["PATATA"].FamilyID).To(Equal(1))
		})

		When("the family does not exist", func() {
			BeforeEach(func() {
				body := bytes.NewBufferString(`{"family_id": 99}`)
				request = httptest.NewRequest("POST", "/api/products/p1/family", body)
			})

			It("should return 400", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is not JSON", func() {
			BeforeEach(func() {
				request = httptest.NewRequest("POST", "/api/products/p1/family", bytes.NewBufferString("nope"))
			})

			It("should return 400", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("GET /report", func() {
		BeforeEach(func() {
			request = httptest.NewRequest("GET", "/report", nil)
		})

		It("should render the HTML report", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
			Expect(recorder.Body.String()).To(Equal("<html>ok</html>"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "secret"}
			request = httptest.NewRequest("GET", "/api/tickets", nil)
		})

		It("should reject requests without credentials", func() {
			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(recorder.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		When("credentials are correct", func() {
			BeforeEach(func() {
				request.SetBasicAuth("user", "secret")
			})

			It("should allow the request", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))
			})
		})

		When("credentials are wrong", func() {
			BeforeEach(func() {
				request.SetBasicAuth("user", "wrong")
			})

			It("should reject the request", func() {
				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			})
		})
	})
})
