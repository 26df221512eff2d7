package filter

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Gap marks an elided run in a page sequence.
const Gap = 0

// maxUnwindowedPages is the largest page count shown without gaps.
const maxUnwindowedPages = 7

// Pager is offset/limit pagination over Total items.
type Pager struct {
	Offset int
	Limit  int
	Total  int
}

// NewPager starts on the first page.
func NewPager(limit int) Pager {
	if limit <= 0 {
		limit = 50
	}
	return Pager{Limit: limit}
}

// CurrentPage is 1-based.
func (p Pager) CurrentPage() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// TotalPages is ceil(Total/Limit); zero when there are no items.
func (p Pager) TotalPages() int {
	if p.Limit <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// Pages lists the page buttons to render. Up to seven pages are listed in
// full; beyond that the first, the last, and the neighbours of the current
// page are shown with Gap standing in for the runs between them.
func (p Pager) Pages() []int {
	tp := p.TotalPages()
	if tp <= 1 {
		return nil
	}
	if tp <= maxUnwindowedPages {
		out := make([]int, tp)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}

	cur := p.CurrentPage()
	out := []int{1}
	if cur > 3 {
		out = append(out, Gap)
	}
	for i := max(2, cur-1); i <= min(tp-1, cur+1); i++ {
		out = append(out, i)
	}
	if cur < tp-2 {
		out = append(out, Gap)
	}
	return append(out, tp)
}

// FromPage returns a copy positioned at the 1-based page n, clamped to range.
func (p Pager) FromPage(n int) Pager {
	if tp := p.TotalPages(); n > tp {
		n = tp
	}
	if n < 1 {
		n = 1
	}
	p.Offset = (n - 1) * p.Limit
	return p
}

// Next moves forward one page, staying in range.
func (p Pager) Next() Pager { return p.FromPage(p.CurrentPage() + 1) }

// Prev moves back one page.
func (p Pager) Prev() Pager { return p.FromPage(p.CurrentPage() - 1) }

// Reset returns to the first page, as after any filter change.
func (p Pager) Reset() Pager {
	p.Offset = 0
	return p
}

// WithTotal records a fresh total and pulls Offset back if it now points
// past the end.
func (p Pager) WithTotal(total int) Pager {
	p.Total = total
	if tp := p.TotalPages(); tp > 0 && p.CurrentPage() > tp {
		p.Offset = (tp - 1) * p.Limit
	}
	return p
}

// Info is the "1-50 of 1,000" caption.
func (p Pager) Info() string {
	if p.Total <= 0 {
		return "No results"
	}
	end := min(p.Offset+p.Limit, p.Total)
	return fmt.Sprintf("%s-%s of %s",
		humanize.Comma(int64(p.Offset+1)), humanize.Comma(int64(end)), humanize.Comma(int64(p.Total)))
}

// PageBased adapts a 1-based page/per_page reply to a Pager.
func PageBased(page, perPage, total int) Pager {
	if perPage <= 0 {
		perPage = 50
	}
	if page < 1 {
		page = 1
	}
	return Pager{Offset: (page - 1) * perPage, Limit: perPage, Total: total}
}
