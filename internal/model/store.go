package model

import (
	"errors"
	"time"
)

// Storage-level sentinels shared by the Postgres and in-memory stores.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing one")
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

type Page struct {
	Skip  int
	Limit int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

type UserPatch struct {
	Registration *string
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
	AccessStatus *AccessStatus
}

type GroupPatch struct {
	Course     *string
	ClassGroup *string
	Subject    *string
}

type PublicationPatch struct {
	Title   *string
	Content *string
}

type EventPatch struct {
	Title           *string
	Description     *string
	EventDate       *time.Time
	StartTime       *string
	EndTime         *string
	AcademicGroupID *string
}
