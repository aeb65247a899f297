package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

const (
	homeTitle = "Inventory App"
	addTitle  = "Add Item"
)

type homePage struct {
	PageData
	Items []model.Item
}

type addPage struct {
	PageData
	Name     string
	Quantity string
}

// HomePage handles GET /.
func (s *Server) HomePage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, http.StatusOK, "home.html", &homePage{
		PageData: PageData{Title: homeTitle, User: GetWebClaims(r.Context())},
		Items:    s.Inventory.Items(),
	})
}

// AddPage handles GET /add.
func (s *Server) AddPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, http.StatusOK, "add.html", &addPage{
		PageData: PageData{Title: addTitle, User: GetWebClaims(r.Context())},
	})
}

// AddSubmit handles POST /add. Invalid input re-renders the form and never
// reaches the inventory.
func (s *Server) AddSubmit(w http.ResponseWriter, r *http.Request) {
	page := &addPage{
		PageData: PageData{Title: addTitle, User: GetWebClaims(r.Context())},
		Name:     r.FormValue("name"),
		Quantity: r.FormValue("quantity"),
	}

	name := strings.TrimSpace(page.Name)
	if name == "" {
		page.Error = "Item name is required."
		s.Templates.Render(w, http.StatusBadRequest, "add.html", page)
		return
	}

	quantity, err := model.ParseQuantity(page.Quantity)
	if err != nil {
		page.Error = "Quantity must be a whole number."
		s.Templates.Render(w, http.StatusBadRequest, "add.html", page)
		return
	}

	if err := s.Inventory.AddItem(name, quantity).Wait(r.Context()); err != nil {
		slog.Error("failed to add item", "error", err)
		page.Error = "Could not save the item."
		s.Templates.Render(w, http.StatusInternalServerError, "add.html", page)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteSubmit handles POST /items/{id}/delete.
func (s *Server) DeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := s.Inventory.DeleteItem(model.Item{ID: id}).Wait(r.Context()); err != nil {
		slog.Error("failed to delete item", "id", id, "error", err)
		http.Error(w, "could not delete item", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
