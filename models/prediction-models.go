package models

import (
	"time"
)

// Prediction is one completed run of the predict pipeline. Rows are never
// updated after creation.
type Prediction struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserEmail   string    `json:"user_email" gorm:"not null;index:idx_predictions_user_ts,priority:1"`
	Style       string    `json:"style" gorm:"not null"`
	ImageURL    string    `json:"image_url" gorm:"not null"`
	StoragePath string    `json:"storage_path"`
	Timestamp   time.Time `json:"timestamp" gorm:"column:timestamp;not null;index:idx_predictions_user_ts,priority:2,sort:desc"`
	Confidence  float64   `json:"confidence" gorm:"not null"`
	Description string    `json:"description"`
	ImageHash   string    `json:"image_hash" gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserEmail;references:Email;constraint:OnDelete:CASCADE"`
}

func (Prediction) TableName() string { return "predictions" }

// GalleryItem is the projection of a prediction used by the gallery view.
type GalleryItem struct {
	Style     string `json:"style"`
	ImageURL  string `json:"image_url"`
	ImageHash string `json:"image_hash"`
}
