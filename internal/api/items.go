package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/live"
	"github.com/erazemk/zaloga/internal/model"
)

// Inventory is the view of the state holder the handlers need.
type Inventory interface {
	Items() []model.Item
	Observe() *live.Subscription[[]model.Item]
	AddItem(name string, quantity int) *inventory.Task
	DeleteItem(item model.Item) *inventory.Task
}

// streamKeepAlive is the interval between SSE comments on an idle stream.
const streamKeepAlive = 25 * time.Second

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Inventory Inventory
	// Done ends open streams when closed, so server shutdown does not wait
	// for them.
	Done <-chan struct{}
}

// quantityText accepts a JSON number or string. The text is checked by
// model.ParseQuantity before anything reaches the inventory.
type quantityText string

func (q *quantityText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = quantityText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a number or string")
	}
	*q = quantityText(n.String())
	return nil
}

type createItemRequest struct {
	Name     string       `json:"name" validate:"required,max=200"`
	Quantity quantityText `json:"quantity"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Inventory.Items())
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	quantity, err := model.ParseQuantity(string(req.Quantity))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Inventory.AddItem(req.Name, quantity).Wait(r.Context()); err != nil {
		writeTaskError(w, "failed to create item", err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{"name": req.Name, "quantity": quantity})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Inventory.DeleteItem(model.Item{ID: id}).Wait(r.Context()); err != nil {
		writeTaskError(w, "failed to delete item", err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Stream handles GET /api/items/stream. Each snapshot is sent as a
// "snapshot" event; the first one is the current list.
func (h *ItemsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("failed to clear write deadline", "error", err)
	}

	sub := h.Inventory.Observe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Error("streaming not supported", "error", err)
		return
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case items, ok := <-sub.C():
			if !ok {
				fmt.Fprint(w, "event: close\ndata: {}\n\n")
				rc.Flush()
				return
			}
			data, err := json.Marshal(items)
			if err != nil {
				slog.Error("failed to encode snapshot", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-h.Done:
			fmt.Fprint(w, "event: close\ndata: {}\n\n")
			rc.Flush()
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writeTaskError maps a failed mutation to a status code.
func writeTaskError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrClosed):
		jsonError(w, http.StatusServiceUnavailable, "shutting down")
	default:
		jsonError(w, http.StatusInternalServerError, message)
	}
}
