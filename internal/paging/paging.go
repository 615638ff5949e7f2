// Package paging cuts a countable source into pages and computes the
// metadata sent back in the Pagination header.
package paging

import (
	"context"
	"fmt"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 50
)

// MetaData describes one page of a larger result.
type MetaData struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	PageSize    int `json:"pageSize"`
	TotalCount  int `json:"totalCount"`
}

// NewMetaData computes totals for count items split into pages of pageSize.
// pageSize must be positive.
func NewMetaData(count, pageNumber, pageSize int) MetaData {
	return MetaData{
		CurrentPage: pageNumber,
		TotalPages:  (count + pageSize - 1) / pageSize,
		PageSize:    pageSize,
		TotalCount:  count,
	}
}

// PagedList is one page of items plus its metadata.
type PagedList[T any] struct {
	Items    []T
	MetaData MetaData
}

// Source is a bounded, countable sequence.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// Offset is the number of items skipped before pageNumber.
func Offset(pageNumber, pageSize int) int {
	return (pageNumber - 1) * pageSize
}

// ToPagedList reads page pageNumber (1-based) of src. A page past the end
// yields no items but still carries correct totals.
func ToPagedList[T any](ctx context.Context, src Source[T], pageNumber, pageSize int) (PagedList[T], error) {
	if pageSize <= 0 || pageNumber <= 0 {
		return PagedList[T]{}, fmt.Errorf("paging: page %d of size %d", pageNumber, pageSize)
	}
	count, err := src.Count(ctx)
	if err != nil {
		return PagedList[T]{}, fmt.Errorf("paging: count: %w", err)
	}
	items := []T{}
	if off := Offset(pageNumber, pageSize); off < count {
		items, err = src.Slice(ctx, off, pageSize)
		if err != nil {
			return PagedList[T]{}, fmt.Errorf("paging: slice: %w", err)
		}
	}
	return PagedList[T]{Items: items, MetaData: NewMetaData(count, pageNumber, pageSize)}, nil
}

// SliceSource serves an in-memory slice.
type SliceSource[T any] []T

func (s SliceSource[T]) Count(ctx context.Context) (int, error) {
	return len(s), ctx.Err()
}

func (s SliceSource[T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset >= len(s) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	out := make([]T, end-offset)
	copy(out, s[offset:end])
	return out, nil
}

// Params is the page request as received from a client.
type Params struct {
	PageNumber int `form:"pageNumber"`
	PageSize   int `form:"pageSize"`
}

// Normalize defaults a missing page to 1 and clamps the size to (0, MaxPageSize].
func (p Params) Normalize() Params {
	if p.PageNumber <= 0 {
		p.PageNumber = 1
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}
