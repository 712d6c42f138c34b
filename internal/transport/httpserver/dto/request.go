// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import "profile-service/internal/domain"

// ProfileQuery represents the query parameters of GET /api/profile.
type ProfileQuery struct {
	Username string `query:"username" json:"username" validate:"required,handle"`
}

// Normalize strips a leading "@" and lower-cases the username in place.
func (q *ProfileQuery) Normalize() {
	q.Username = domain.NormalizeHandle(q.Username)
}

// HandleParam represents a handle taken from the URL path.
type HandleParam struct {
	Handle string `params:"handle" json:"handle" validate:"required,handle"`
}

// Normalize strips a leading "@" and lower-cases the handle in place.
func (p *HandleParam) Normalize() {
	p.Handle = domain.NormalizeHandle(p.Handle)
}
