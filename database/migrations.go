package database

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies the versioned schema. The structs below are frozen copies
// of the models at the time each migration was written.
func Migrate(db *gorm.DB) error {
	type user struct {
		Email        string `gorm:"primaryKey"`
		PasswordHash *string
		CreatedAt    time.Time
	}
	type prediction struct {
		ID          string    `gorm:"primaryKey;type:uuid"`
		UserEmail   string    `gorm:"not null;index:idx_predictions_user_ts,priority:1"`
		Style       string    `gorm:"not null"`
		ImageURL    string    `gorm:"not null"`
		StoragePath string
		Timestamp   time.Time `gorm:"column:timestamp;not null;index:idx_predictions_user_ts,priority:2,sort:desc"`
		Confidence  float64   `gorm:"not null"`
		Description string
		ImageHash   string `gorm:"index"`
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.Table("users").AutoMigrate(&user{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("users")
			},
		},
		{
			ID: "002_predictions",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Table("predictions").AutoMigrate(&prediction{}); err != nil {
					return err
				}
				return tx.Exec(`ALTER TABLE predictions
					ADD CONSTRAINT fk_predictions_user
					FOREIGN KEY (user_email) REFERENCES users(email) ON DELETE CASCADE`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("predictions")
			},
		},
	})

	return m.Migrate()
}
