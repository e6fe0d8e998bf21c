package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nearbuy/nearbuy-gateway/internal/application/services"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/backendapi"
)

// OwnerHandler handles owner-scoped shop inventory requests. Authorization is
// re-checked against the live session snapshot on every request.
type OwnerHandler struct {
	sessions *services.SessionService
	client   backendapi.Client
}

// NewOwnerHandler creates a new owner handler
func NewOwnerHandler(sessions *services.SessionService, client backendapi.Client) *OwnerHandler {
	return &OwnerHandler{
		sessions: sessions,
		client:   client,
	}
}

type shopProductPayload struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"product_name"`
	Brand     string   `json:"brand"`
	Price     *float64 `json:"price"`
	Stock     *int     `json:"stock"`
}

type shopProductUpdatePayload struct {
	Price *float64 `json:"price"`
	Stock *int     `json:"stock"`
}

func (h *OwnerHandler) requireOwner(w http.ResponseWriter) bool {
	if !h.sessions.Snapshot().CanManageShop() {
		respondWithError(w, http.StatusForbidden, "owner login required")
		return false
	}
	return true
}

// AddProduct handles POST /api/owner/shops/{shopID}/products
func (h *OwnerHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w) {
		return
	}
	shopID := r.PathValue("shopID")
	if shopID == "" {
		respondWithError(w, http.StatusBadRequest, "shop ID is required")
		return
	}

	var payload shopProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.ProductID == "" && payload.Name == "" {
		respondWithError(w, http.StatusBadRequest, "product_id or product_name is required")
		return
	}

	err := h.client.AddShopProduct(r.Context(), shopID, backendapi.ShopProductRequest{
		ProductID: payload.ProductID,
		Name:      payload.Name,
		Brand:     payload.Brand,
		Price:     payload.Price,
		Stock:     payload.Stock,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// UpdateProduct handles PATCH /api/owner/shops/{shopID}/products/{productID}
func (h *OwnerHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w) {
		return
	}
	shopID := r.PathValue("shopID")
	productID := r.PathValue("productID")
	if shopID == "" || productID == "" {
		respondWithError(w, http.StatusBadRequest, "shop ID and product ID are required")
		return
	}

	var payload shopProductUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.Price == nil && payload.Stock == nil {
		respondWithError(w, http.StatusBadRequest, "price or stock is required")
		return
	}

	err := h.client.UpdateShopProduct(r.Context(), shopID, productID, backendapi.ShopProductUpdate{
		Price: payload.Price,
		Stock: payload.Stock,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteProduct handles DELETE /api/owner/shops/{shopID}/products/{productID}
func (h *OwnerHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w) {
		return
	}
	shopID := r.PathValue("shopID")
	productID := r.PathValue("productID")
	if shopID == "" || productID == "" {
		respondWithError(w, http.StatusBadRequest, "shop ID and product ID are required")
		return
	}

	if err := h.client.DeleteShopProduct(r.Context(), shopID, productID); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
