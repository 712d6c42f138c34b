package postgres

import (
	"time"

	"github.com/lib/pq"

	"profile-service/internal/domain"
)

// SnapshotModel is the GORM model for the profile_snapshots table.
// One row per handle holds the last successfully fetched profile.
type SnapshotModel struct {
	Handle        string         `gorm:"type:varchar(30);primaryKey"`
	Username      string         `gorm:"type:varchar(30);not null"`
	FullName      string         `gorm:"type:varchar(255)"`
	Biography     string         `gorm:"type:text"`
	Followers     int64          `gorm:"default:0"`
	Following     int64          `gorm:"default:0"`
	Posts         int64          `gorm:"default:0"`
	ProfilePicURL string         `gorm:"type:text"`
	IsPrivate     bool           `gorm:"default:false"`
	IsVerified    bool           `gorm:"default:false"`
	ExternalURL   string         `gorm:"type:text"`
	RecentPosts   pq.StringArray `gorm:"type:text[]"`
	Source        string         `gorm:"type:varchar(50);not null;index"`
	GeneratedAt   time.Time      `gorm:"not null"`
	FetchCount    int64          `gorm:"default:1"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

// TableName returns the table name for SnapshotModel.
func (SnapshotModel) TableName() string {
	return "profile_snapshots"
}

// ToDomain converts SnapshotModel to domain.Profile.
func (m *SnapshotModel) ToDomain() *domain.Profile {
	posts := []string(m.RecentPosts)
	if posts == nil {
		posts = []string{}
	}

	return &domain.Profile{
		Username:      m.Username,
		FullName:      m.FullName,
		Biography:     m.Biography,
		Followers:     m.Followers,
		Following:     m.Following,
		Posts:         m.Posts,
		ProfilePicURL: m.ProfilePicURL,
		IsPrivate:     m.IsPrivate,
		IsVerified:    m.IsVerified,
		ExternalURL:   m.ExternalURL,
		RecentPosts:   posts,
		Source:        m.Source,
		GeneratedAt:   m.GeneratedAt.UTC(),
	}
}

// FromDomain creates a SnapshotModel stored under handle.
func FromDomain(handle string, p *domain.Profile) *SnapshotModel {
	return &SnapshotModel{
		Handle:        handle,
		Username:      p.Username,
		FullName:      p.FullName,
		Biography:     p.Biography,
		Followers:     p.Followers,
		Following:     p.Following,
		Posts:         p.Posts,
		ProfilePicURL: p.ProfilePicURL,
		IsPrivate:     p.IsPrivate,
		IsVerified:    p.IsVerified,
		ExternalURL:   p.ExternalURL,
		RecentPosts:   pq.StringArray(append([]string{}, p.RecentPosts...)),
		Source:        p.Source,
		GeneratedAt:   p.GeneratedAt,
		FetchCount:    1,
	}
}
