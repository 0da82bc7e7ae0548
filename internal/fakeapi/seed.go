package fakeapi

import (
	"time"

	"github.com/dmitrymomot/storefront/pkg/session"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

// Seeded accounts. Passwords equal the usernames.
const (
	SeedCustomer = "ann"
	SeedAdmin    = "admin"
)

func seedUsers(now time.Time) []account {
	return []account{
		{
			password: SeedCustomer,
			user: session.User{
				ID: 1, Username: SeedCustomer, Firstname: "Ann", Email: "ann@example.com",
				IsActive: true, CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			password: SeedAdmin,
			user: session.User{
				ID: 2, Username: SeedAdmin, Firstname: "Ada", Email: "admin@example.com",
				IsActive: true, IsAdmin: true, CreatedAt: now, UpdatedAt: now,
			},
		},
	}
}

func seedProducts() []shop.Product {
	return []shop.Product{
		{ID: 101, Name: "Enamel Mug", Slug: "enamel-mug", Price: 1490, Currency: "EUR", Stock: 40},
		{ID: 102, Name: "Canvas Tote", Slug: "canvas-tote", Price: 2200, Currency: "EUR", Stock: 25},
		{ID: 103, Name: "Wool Beanie", Slug: "wool-beanie", Price: 2990, Currency: "EUR", Stock: 12},
		{ID: 104, Name: "Notebook A5", Slug: "notebook-a5", Price: 950, Currency: "EUR", Stock: 100},
		{ID: 105, Name: "Poster 50x70", Slug: "poster-50x70", Price: 3500, Currency: "EUR", Stock: 0},
		{ID: 106, Name: "Reading Chair", Slug: "reading-chair", Price: 124900, Currency: "EUR", Stock: 3},
	}
}
