package widget

// Pager is the client side pagination cursor. The server total always wins.
type Pager struct {
	CurrentPage int
	TotalPages  int
	PageSize    int
}

func NewPager(pageSize int) Pager {
	return Pager{CurrentPage: 1, TotalPages: 1, PageSize: pageSize}
}

// Reset goes back to the first page, used on every selection change.
func (p *Pager) Reset() {
	p.CurrentPage = 1
}

func (p *Pager) CanLoadMore() bool {
	return p.CurrentPage < p.TotalPages
}

// Advance moves to the next page when there is one.
func (p *Pager) Advance() bool {
	if !p.CanLoadMore() {
		return false
	}
	p.CurrentPage++
	return true
}

// Back undoes an Advance whose request failed.
func (p *Pager) Back() {
	if p.CurrentPage > 1 {
		p.CurrentPage--
	}
}

func (p *Pager) Adopt(totalPages int) {
	p.TotalPages = max(totalPages, 0)
}
