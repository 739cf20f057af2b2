package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishkalaria12/art-curator/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrPasswordExists = errors.New("password already set for user")
)

// Store is the relational side of the persistence gateway.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SavePrediction inserts p, creating its user first when absent.
func (s *Store) SavePrediction(ctx context.Context, p *models.Prediction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{Email: p.UserEmail}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return fmt.Errorf("insert prediction: %w", err)
		}
		return nil
	})
}

// ListByUser returns every prediction of email, newest first.
func (s *Store) ListByUser(ctx context.Context, email string) ([]models.Prediction, error) {
	var out []models.Prediction
	err := s.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("timestamp DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GalleryItems returns the gallery projection in the same order as ListByUser.
func (s *Store) GalleryItems(ctx context.Context, email string) ([]models.GalleryItem, error) {
	var out []models.GalleryItem
	err := s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Select("style", "image_url", "image_hash").
		Where("user_email = ?", email).
		Order("timestamp DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindForUser fetches a prediction only if email owns it.
func (s *Store) FindForUser(ctx context.Context, id, email string) (*models.Prediction, error) {
	var p models.Prediction
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_email = ?", id, email).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.Prediction, error) {
	var p models.Prediction
	err := s.db.WithContext(ctx).
		Select("id", "storage_path").
		Where("id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) DeletePrediction(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Prediction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetPassword attaches a password hash to email. Users created implicitly by
// predictions have none yet; a user that already has one is left untouched.
func (s *Store) SetPassword(ctx context.Context, email, hash string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{Email: email}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		res := tx.Model(&models.User{}).
			Where("email = ? AND password_hash IS NULL", email).
			Update("password_hash", hash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPasswordExists
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
