package domain

// PaginatorRequest is the generic windowing request used by every listing
// operation. Page is 1-based.
type PaginatorRequest struct {
	Page int
	Size int
}

// PaginatorResponse describes the window that was actually served. Total is
// the page count, TotalItems the item count before windowing.
type PaginatorResponse struct {
	Page       int
	Size       int
	Total      int
	TotalItems int
}
