package main

import (
	"github.com/shopspring/decimal"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// defaultCatalog is seeded when no workbook is given
func defaultCatalog() []domain.Product {
	discount := decimal.NewFromInt(42000)
	return []domain.Product{
		{Name: "Jasmine Rice 5kg", Price: decimal.NewFromInt(95000), Unit: "bag", Active: true},
		{Name: "Fish Sauce 500ml", Price: decimal.NewFromInt(35000), Unit: "bottle", Active: true},
		{Name: "Green Tea 200g", Price: decimal.NewFromInt(48000), DiscountPrice: &discount, Unit: "box", Active: true},
		{Name: "Coffee Beans 1kg", Price: decimal.NewFromInt(210000), Unit: "bag", Active: true},
		{Name: "Rice Noodles 400g", Price: decimal.NewFromInt(18000), Unit: "pack", Active: true},
		{Name: "Seasonal Mango Box", Price: decimal.NewFromInt(150000), Unit: "box", Active: false},
	}
}
