// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product entity. Price and stock on this row are
// the authoritative source for carts and orders; stock is only written by
// the order finalization and cancellation paths.
type Product struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	SKU          string           `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name         string           `gorm:"not null;size:255" json:"name"`
	Slug         string           `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description  string           `gorm:"type:text" json:"description"`
	Price        decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	ComparePrice *decimal.Decimal `gorm:"type:decimal(10,2)" json:"compare_price,omitempty"`
	Stock        int              `gorm:"not null;default:0" json:"stock"`
	IsActive     bool             `gorm:"default:true" json:"is_active"`
	CategoryID   uint             `gorm:"not null;index" json:"category_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`

	Category Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
}

// Category represents product categories
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"size:500" json:"description"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }

// IsInStock reports whether any units remain.
func (p *Product) IsInStock() bool {
	return p.Stock > 0
}

// HasStockFor reports whether the requested quantity can be fulfilled.
func (p *Product) HasStockFor(quantity int) bool {
	return p.Stock >= quantity
}

// DiscountPercentage returns the discount against the compare price, or 0.
func (p *Product) DiscountPercentage() int {
	if p.ComparePrice == nil || p.ComparePrice.LessThanOrEqual(p.Price) {
		return 0
	}
	diff := p.ComparePrice.Sub(p.Price)
	return int(diff.Mul(decimal.NewFromInt(100)).Div(*p.ComparePrice).IntPart())
}
