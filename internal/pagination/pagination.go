// Package pagination implements the generic page windowing contract shared
// by every listing operation. It is a pure function of the request and the
// total item count, independent of the collection being listed.
package pagination

import "herald/internal/core/domain"

const (
	DefaultSize = 20
	MaxSize     = 100
)

// Normalize clamps a request to valid bounds: page is at least 1, size is
// between 1 and MaxSize with DefaultSize substituted for zero.
func Normalize(req domain.PaginatorRequest) domain.PaginatorRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = DefaultSize
	}
	if req.Size > MaxSize {
		req.Size = MaxSize
	}
	return req
}

// Window translates a request into an offset/limit pair for the storage
// layer. The request is normalized first.
func Window(req domain.PaginatorRequest) (offset, limit int) {
	req = Normalize(req)
	return (req.Page - 1) * req.Size, req.Size
}

// Describe builds the response for a served window. A page past the end is
// legal and yields an empty item list upstream; Total and TotalItems stay
// accurate so callers can page past the end without special-casing.
func Describe(req domain.PaginatorRequest, totalItems int) *domain.PaginatorResponse {
	req = Normalize(req)
	total := (totalItems + req.Size - 1) / req.Size
	return &domain.PaginatorResponse{
		Page:       req.Page,
		Size:       req.Size,
		Total:      total,
		TotalItems: totalItems,
	}
}
