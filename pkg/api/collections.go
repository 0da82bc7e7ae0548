package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/storefront/pkg/entitystore"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

// ItemsResponse is the body of GET /cart and GET /wishlist.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

// AddItemRequest is the body of POST /{kind}/items.
type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity,omitempty"`
}

// UpdateItemRequest is the body of PUT /cart/items/{id}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// collection implements the verbs shared by cart and wishlist.
type collection[T entitystore.Item] struct {
	c    *Client
	kind string
}

func (s collection[T]) list(ctx context.Context) ([]T, error) {
	var out ItemsResponse[T]
	if err := s.c.do(ctx, http.MethodGet, "/"+s.kind, nil, &out, request{session: true}); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []T{}
	}
	return out.Items, nil
}

func (s collection[T]) add(ctx context.Context, productID int64, qty int) error {
	body := AddItemRequest{ProductID: productID, Quantity: qty}
	return s.c.do(ctx, http.MethodPost, "/"+s.kind+"/items", body, nil, request{session: true})
}

func (s collection[T]) update(ctx context.Context, productID int64, qty int) error {
	return s.c.do(ctx, http.MethodPut, s.itemPath(productID), UpdateItemRequest{Quantity: qty}, nil, request{session: true})
}

func (s collection[T]) remove(ctx context.Context, productID int64) error {
	return s.c.do(ctx, http.MethodDelete, s.itemPath(productID), nil, nil, request{session: true})
}

func (s collection[T]) clear(ctx context.Context) error {
	return s.c.do(ctx, http.MethodDelete, "/"+s.kind, nil, nil, request{session: true})
}

func (s collection[T]) itemPath(productID int64) string {
	return "/" + s.kind + "/items/" + strconv.FormatInt(productID, 10)
}

// CartService is the cart repository.
type CartService struct {
	c *Client
}

var _ entitystore.Repository[shop.CartItem] = (*CartService)(nil)

func (s *CartService) col() collection[shop.CartItem] {
	return collection[shop.CartItem]{c: s.c, kind: "cart"}
}

// List returns the cart lines.
func (s *CartService) List(ctx context.Context) ([]shop.CartItem, error) {
	return s.col().list(ctx)
}

// Add puts qty units of productID into the cart.
func (s *CartService) Add(ctx context.Context, productID int64, qty int) error {
	return s.col().add(ctx, productID, qty)
}

// UpdateQuantity sets the quantity of a cart line.
func (s *CartService) UpdateQuantity(ctx context.Context, productID int64, qty int) error {
	return s.col().update(ctx, productID, qty)
}

// Remove deletes a cart line.
func (s *CartService) Remove(ctx context.Context, productID int64) error {
	return s.col().remove(ctx, productID)
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context) error {
	return s.col().clear(ctx)
}

// WishlistService is the wishlist repository.
type WishlistService struct {
	c *Client
}

var _ entitystore.Repository[shop.WishlistItem] = (*WishlistService)(nil)

func (s *WishlistService) col() collection[shop.WishlistItem] {
	return collection[shop.WishlistItem]{c: s.c, kind: "wishlist"}
}

// List returns the saved products.
func (s *WishlistService) List(ctx context.Context) ([]shop.WishlistItem, error) {
	return s.col().list(ctx)
}

// Add saves productID. qty is ignored.
func (s *WishlistService) Add(ctx context.Context, productID int64, _ int) error {
	return s.col().add(ctx, productID, 0)
}

// UpdateQuantity is not supported by wishlists.
func (s *WishlistService) UpdateQuantity(context.Context, int64, int) error {
	return entitystore.ErrQuantityUnsupported
}

// Remove drops productID from the wishlist.
func (s *WishlistService) Remove(ctx context.Context, productID int64) error {
	return s.col().remove(ctx, productID)
}

// Clear empties the wishlist.
func (s *WishlistService) Clear(ctx context.Context) error {
	return s.col().clear(ctx)
}
