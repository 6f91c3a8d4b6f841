package postgres

import (
	"context"

	"github.com/dom/star-diary/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type entryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *entryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(entry).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *entryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	var entry domain.Entry
	err := r.db.WithContext(ctx).Preload("Author").First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *entryRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Entry{})
	if filter.AuthorID != nil {
		query = query.Where("user_id = ?", *filter.AuthorID)
	}
	if filter.ViewerID != nil {
		query = query.Where("(is_private = ? OR user_id = ?)", false, *filter.ViewerID)
	} else {
		query = query.Where("is_private = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.Entry
	query = query.Preload("Author").Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *entryRepository) Update(ctx context.Context, entry *domain.Entry) error {
	res := r.db.WithContext(ctx).Model(entry).
		Select("content", "is_private", "updated_at").
		Updates(entry)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *entryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.Entry{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
