package shared

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination selects one page of a list result
type Pagination struct {
	Page  int
	Limit int
}

// Normalize applies defaults and clamps the limit
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset is the number of rows skipped before this page
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Window returns the [start, end) slice bounds of this page over total items
func (p Pagination) Window(total int) (int, int) {
	n := p.Normalize()
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + n.Limit
	if end > total {
		end = total
	}
	return start, end
}
