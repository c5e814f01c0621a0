package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the stock status of a merged product.
type ProductStatus string

const (
	StatusInStock    ProductStatus = "In Stock"
	StatusNotInStock ProductStatus = "Not In Stock"
)

// StockJob is a single physical piece of a design as reported by the stock feed.
// It is never persisted.
type StockJob struct {
	JobNo           string          `json:"jobNo"`
	DesignNo        string          `json:"designNo"`
	MetalType       string          `json:"metalType"`
	MetalQuality    string          `json:"metalQuality"`
	Gwt             string          `json:"gwt"`
	Nwt             string          `json:"nwt"`
	Dwt             string          `json:"dwt"`
	Size            string          `json:"size"`
	MemoFlag        bool            `json:"memoFlag"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	AmountValid     bool            `json:"-"`
	DiscountedPrice string          `json:"discountedPrice"`
}

// Product is the merged catalog view of one active design.
type Product struct {
	DesignNo      string        `json:"designNo"`
	Category      string        `json:"category"`
	Subcategory   string        `json:"subcategory"`
	Collection    string        `json:"collection"`
	Gender        string        `json:"gender"`
	ProductType   string        `json:"productType"`
	Description   string        `json:"description"`
	ImageBasePath string        `json:"imageBasePath"`
	InStockJobs   []StockJob    `json:"inStockJobs"`
	MemoJobs      []StockJob    `json:"memoJobs"`
	PieceCount    int           `json:"pieceCount"`
	Status        ProductStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// HasStock reports whether the product has at least one in-stock job.
func (p *Product) HasStock() bool {
	return len(p.InStockJobs) > 0
}

// FilterOptions lists distinct filter values over the active catalog.
type FilterOptions struct {
	Categories    []string `json:"categories"`
	Subcategories []string `json:"subcategories"`
	Genders       []string `json:"genders"`
	Collections   []string `json:"collections"`
	ProductTypes  []string `json:"productTypes"`
}
