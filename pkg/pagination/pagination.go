package pagination

const (
	// DefaultPage is the first page number.
	DefaultPage = 1
	// DefaultPageSize is the standard page size when none is provided.
	DefaultPageSize = 10
	// MaxPageSize caps how many rows any list query can request.
	MaxPageSize = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Page is the metadata returned with every paginated list.
type Page struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
	Pages    int   `json:"pages"`
}

// Normalize applies defaults and clamps the page size.
func (p Params) Normalize() Params {
	if p.Page < DefaultPage {
		p.Page = DefaultPage
	}
	p.PageSize = NormalizePageSize(p.PageSize)
	return p
}

// Offset is the number of rows skipped before the requested page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// NormalizePageSize enforces the configured default and maximum page sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// NewPage builds response metadata for total matching rows.
func NewPage(p Params, total int64) Page {
	n := p.Normalize()
	pages := 0
	if total > 0 {
		pages = int((total + int64(n.PageSize) - 1) / int64(n.PageSize))
	}
	return Page{
		Page:     n.Page,
		PageSize: n.PageSize,
		Total:    total,
		Pages:    pages,
	}
}
