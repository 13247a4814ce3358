package models

import (
	"slices"
	"strings"

	"github.com/Temutjin2k/ispeed/pkg/validator"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filters carries client supplied pagination and sorting through the layers.
// Sort must be one of SortSafelist; a leading hyphen means descending.
type Filters struct {
	Page         int
	PageSize     int
	Sort         string
	SortSafelist []string
}

func (f Filters) Validate(v *validator.Validator) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= MaxPageSize, "page_size", "must be a maximum of 100")
	v.Check(len(f.SortSafelist) > 0, "sort", "sorting is not supported")
	if len(f.SortSafelist) > 0 {
		v.Check(validator.PermittedValue(f.Sort, f.SortSafelist...), "sort", "invalid sort value")
	}
}

// SortColumn returns the column name of Sort without the direction prefix.
// Falls back to the first safelisted column.
func (f Filters) SortColumn() string {
	if slices.Contains(f.SortSafelist, f.Sort) {
		return strings.TrimPrefix(f.Sort, "-")
	}
	if len(f.SortSafelist) == 0 {
		return ""
	}
	return strings.TrimPrefix(f.SortSafelist[0], "-")
}

func (f Filters) SortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}
	return "ASC"
}

func (f Filters) Limit() int {
	return f.PageSize
}

func (f Filters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type Metadata struct {
	CurrentPage  int `json:"current_page"`
	PageSize     int `json:"page_size"`
	FirstPage    int `json:"first_page"`
	LastPage     int `json:"last_page"`
	TotalRecords int `json:"total_records"`
}

// CalculateMetadata returns pagination metadata; 12 records with page size 5 gives LastPage 3.
func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 || pageSize <= 0 {
		return Metadata{CurrentPage: page, PageSize: pageSize}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     (totalRecords + pageSize - 1) / pageSize,
		TotalRecords: totalRecords,
	}
}
