package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/josesc03/bookintokback/internal/domain"
)

// GormBookRepository implements BookRepository using GORM.
type GormBookRepository struct {
	db *gorm.DB
}

// NewGormBookRepository creates a new GORM-backed book repository.
func NewGormBookRepository(db *gorm.DB) *GormBookRepository {
	return &GormBookRepository{db: db}
}

func (r *GormBookRepository) GetBook(ctx context.Context, bookID uint) (*domain.Book, error) {
	var book domain.Book
	err := r.db.WithContext(ctx).Where("id = ?", bookID).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

var _ BookRepository = (*GormBookRepository)(nil)
