package services

import (
	"errors"
	"strings"

	"gorm.io/gorm/clause"
)

// ErrInvalidSort is returned for a sort key outside SortableFields
var ErrInvalidSort = errors.New("invalid sort field")

const (
	// DefaultSort orders listings newest first
	DefaultSort = "-createdAt"
	// DefaultLimit is the page size used when none was requested
	DefaultLimit = 30
)

// SortableFields maps the public sort keys to their columns
var SortableFields = map[string]string{
	"name":      "name",
	"email":     "email",
	"createdAt": "created_at",
}

// ListOptions selects one page of users
type ListOptions struct {
	Page  int
	Limit int
	Query string
	Sort  string
}

// Normalize clamps Page and Limit into range, using defaultLimit when no limit was given
func (o ListOptions) Normalize(defaultLimit, maxLimit int) ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = defaultLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	if o.Sort == "" {
		o.Sort = DefaultSort
	}
	return o
}

// Offset is the number of rows skipped before the page starts
func (o ListOptions) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// ValidateSort reports ErrInvalidSort for unknown sort keys
func (o ListOptions) ValidateSort() error {
	_, err := o.orderBy()
	return err
}

func (o ListOptions) orderBy() (clause.OrderByColumn, error) {
	key := o.Sort
	if key == "" {
		key = DefaultSort
	}
	desc := strings.HasPrefix(key, "-")
	column, ok := SortableFields[strings.TrimPrefix(key, "-")]
	if !ok {
		return clause.OrderByColumn{}, ErrInvalidSort
	}
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}, nil
}
