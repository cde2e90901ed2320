package ticket

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleListTickets returns all stored tickets
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.service.ListTickets()
	if err != nil {
		slog.Error("Error listing tickets", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tickets); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetTicket returns a single ticket by number
func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("number")
	if number == "" {
		corsError(w, "Ticket number required", http.StatusBadRequest)
		return
	}
	ticket, err := s.service.GetTicket(number)
	if err != nil {
		corsError(w, "Ticket not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ticket); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListProducts returns the product catalog
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.ListProducts()
	if err != nil {
		slog.Error("Error listing products", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(products); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListFamilies returns the spending families
func (s *Server) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := s.service.ListFamilies()
	if err != nil {
		slog.Error("Error listing families", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(families); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleAssignFamily puts a product under a spending family
func (s *Server) handleAssignFamily(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Product ID required", http.StatusBadRequest)
		return
	}

	var req struct {
		FamilyID int `json:"family_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.AssignFamily(id, req.FamilyID); err != nil {
		slog.Error("Error assigning family", "product", id, "family", req.FamilyID, "error", err)
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleReport serves the HTML spending report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.reporter.Render(w); err != nil {
		slog.Error("Error rendering report", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
	}
}
