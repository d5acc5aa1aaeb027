package models

import "time"

// Option is an opaque key/value row used for persisted configuration blobs.
type Option struct {
	Key       string    `gorm:"column:option_key;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Option) TableName() string { return "options" }
