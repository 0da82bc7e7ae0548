package fakeapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/session"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[creds.Username]
	s.mu.Unlock()
	if !ok || acc.password != creds.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !acc.user.IsActive {
		writeError(w, http.StatusForbidden, "account disabled")
		return
	}

	token, err := s.IssueToken(acc.user.ID, s.tokenTTL)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "sign token", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot issue token")
		return
	}

	s.logger.InfoContext(r.Context(), "user logged in", slog.Int64("user_id", acc.user.ID))
	writeJSON(w, http.StatusOK, api.LoginResponse{Token: token, User: acc.user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.Revoke(tokenFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user, ok := s.userLocked(userIDFrom(r.Context()))
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	products := append([]shop.Product(nil), s.products...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) listCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := s.withProductsLocked(s.carts[userIDFrom(r.Context())])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.ItemsResponse[shop.CartItem]{Items: items})
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var body api.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if body.Quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be at least 1")
		return
	}

	userID := userIDFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.productLocked(body.ProductID)
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	cart := s.carts[userID]
	for i := range cart {
		if cart[i].ProductID == body.ProductID {
			if cart[i].Quantity+body.Quantity > product.Stock {
				writeError(w, http.StatusConflict, "not enough stock")
				return
			}
			cart[i].Quantity += body.Quantity
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	if body.Quantity > product.Stock {
		writeError(w, http.StatusConflict, "not enough stock")
		return
	}
	s.carts[userID] = append(cart, shop.CartItem{ProductID: body.ProductID, Quantity: body.Quantity})
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var body api.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if body.Quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be at least 1")
		return
	}

	userID := userIDFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	product, _ := s.productLocked(productID)
	cart := s.carts[userID]
	for i := range cart {
		if cart[i].ProductID == productID {
			if body.Quantity > product.Stock {
				writeError(w, http.StatusConflict, "not enough stock")
				return
			}
			cart[i].Quantity = body.Quantity
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "item not in cart")
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	userID := userIDFrom(r.Context())

	s.mu.Lock()
	s.carts[userID] = deleteByID(s.carts[userID], productID)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.carts, userIDFrom(r.Context()))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := s.withWishlistProductsLocked(s.wishlists[userIDFrom(r.Context())])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.ItemsResponse[shop.WishlistItem]{Items: items})
}

func (s *Server) addWishlistItem(w http.ResponseWriter, r *http.Request) {
	var body api.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	userID := userIDFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.productLocked(body.ProductID); !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	for _, it := range s.wishlists[userID] {
		if it.ProductID == body.ProductID {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	s.wishlists[userID] = append(s.wishlists[userID], shop.WishlistItem{ProductID: body.ProductID, AddedAt: s.now().UTC()})
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) removeWishlistItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	userID := userIDFrom(r.Context())

	s.mu.Lock()
	s.wishlists[userID] = deleteByID(s.wishlists[userID], productID)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.wishlists, userIDFrom(r.Context()))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) withProductsLocked(items []shop.CartItem) []shop.CartItem {
	out := make([]shop.CartItem, 0, len(items))
	for _, it := range items {
		if p, ok := s.productLocked(it.ProductID); ok {
			it.Product = &p
		}
		out = append(out, it)
	}
	return out
}

func (s *Server) withWishlistProductsLocked(items []shop.WishlistItem) []shop.WishlistItem {
	out := make([]shop.WishlistItem, 0, len(items))
	for _, it := range items {
		if p, ok := s.productLocked(it.ProductID); ok {
			it.Product = &p
		}
		out = append(out, it)
	}
	return out
}

func deleteByID[T interface{ ItemID() int64 }](items []T, productID int64) []T {
	out := items[:0:0]
	for _, it := range items {
		if it.ItemID() != productID {
			out = append(out, it)
		}
	}
	return out
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
