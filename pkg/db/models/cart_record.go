package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
)

// CartRecord is the denormalized snapshot of one tracked storefront cart.
type CartRecord struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionKey        string           `gorm:"column:session_key;not null;default:'';index" json:"session_key"`
	CustomerID        int64            `gorm:"column:customer_id;not null;default:0;index" json:"customer_id"`
	Items             types.CartItems  `gorm:"column:items;type:jsonb;not null" json:"items"`
	Total             decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null;default:0" json:"total"`
	CustomerEmail     string           `gorm:"column:customer_email;not null;default:''" json:"customer_email"`
	CustomerName      string           `gorm:"column:customer_name;not null;default:''" json:"customer_name"`
	PastPurchaseCount int              `gorm:"column:past_purchase_count;not null;default:0" json:"past_purchase_count"`
	LastUpdated       time.Time        `gorm:"column:last_updated;not null;index" json:"last_updated"`
	IsActive          bool             `gorm:"column:is_active;not null;index" json:"is_active"`
	Status            enums.CartStatus `gorm:"column:status;not null;default:'active';index" json:"status"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CartRecord) TableName() string { return "cart_records" }

// BeforeCreate assigns the immutable id when the caller did not.
func (c *CartRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsGuest reports whether the cart belongs to an anonymous shopper.
func (c *CartRecord) IsGuest() bool {
	return c.CustomerID <= 0
}

// ArchivedCartRecord is a cart moved out of the live table by retention.
type ArchivedCartRecord struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SessionKey        string           `gorm:"column:session_key;not null;default:''"`
	CustomerID        int64            `gorm:"column:customer_id;not null;default:0"`
	Items             types.CartItems  `gorm:"column:items;type:jsonb;not null"`
	Total             decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	CustomerEmail     string           `gorm:"column:customer_email;not null;default:''"`
	CustomerName      string           `gorm:"column:customer_name;not null;default:''"`
	PastPurchaseCount int              `gorm:"column:past_purchase_count;not null;default:0"`
	LastUpdated       time.Time        `gorm:"column:last_updated;not null"`
	IsActive          bool             `gorm:"column:is_active;not null;default:false"`
	Status            enums.CartStatus `gorm:"column:status;not null"`
	CreatedAt         time.Time        `gorm:"column:created_at"`
	ArchivedAt        time.Time        `gorm:"column:archived_at;not null;index"`
}

func (ArchivedCartRecord) TableName() string { return "cart_records_archive" }
