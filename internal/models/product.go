package models

import "time"

// ProductModel is a storefront product synced into the workspace catalog.
type ProductModel struct {
	Base
	ExternalID  string      `json:"external_id"  gorm:"uniqueIndex;not null"`
	Title       string      `json:"title"        gorm:"not null"`
	Description string      `json:"description"  gorm:"type:longtext"`
	ProductType string      `json:"product_type" gorm:"index"`
	Vendor      string      `json:"vendor"       gorm:"index"`
	Price       float64     `json:"price"`
	Currency    string      `json:"currency"     gorm:"default:'USD'"`
	Tags        StringArray `json:"tags"         gorm:"type:longtext"`
	SourceURL   string      `json:"source_url"`
	SyncedAt    *time.Time  `json:"synced_at"`
}

func (ProductModel) TableName() string { return "products" }
