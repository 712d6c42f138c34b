package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"profile-service/internal/domain"
)

// Repository implements domain.SnapshotRepository using PostgreSQL.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save upserts the snapshot for handle and bumps its fetch count.
func (r *Repository) Save(ctx context.Context, handle string, profile *domain.Profile) error {
	model := FromDomain(handle, profile)
	model.UpdatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "handle"}},
		DoUpdates: clause.Assignments(map[string]any{
			"username":        model.Username,
			"full_name":       model.FullName,
			"biography":       model.Biography,
			"followers":       model.Followers,
			"following":       model.Following,
			"posts":           model.Posts,
			"profile_pic_url": model.ProfilePicURL,
			"is_private":      model.IsPrivate,
			"is_verified":     model.IsVerified,
			"external_url":    model.ExternalURL,
			"recent_posts":    model.RecentPosts,
			"source":          model.Source,
			"generated_at":    model.GeneratedAt,
			"updated_at":      model.UpdatedAt,
			"fetch_count":     gorm.Expr("profile_snapshots.fetch_count + 1"),
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	return nil
}

// GetLatest returns the snapshot stored under handle, or nil if none exists.
func (r *Repository) GetLatest(ctx context.Context, handle string) (*domain.Profile, error) {
	var model SnapshotModel
	err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting snapshot: %w", err)
	}

	return model.ToDomain(), nil
}

// FetchCount returns how many times handle has been saved, 0 if never.
func (r *Repository) FetchCount(ctx context.Context, handle string) (int64, error) {
	var model SnapshotModel
	err := r.db.WithContext(ctx).Select("fetch_count").Where("handle = ?", handle).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting fetch count: %w", err)
	}

	return model.FetchCount, nil
}

// Count returns the number of stored snapshots.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&SnapshotModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}

	return count, nil
}
