package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// TotalCountHeader carries the unpaginated row count of a list response.
const TotalCountHeader = "X-Total-Count"

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int
	PerPage int
	Offset  int
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: defaultPerPage}
}

// FromRequest reads ?page and ?perPage. Invalid or out-of-range values fall
// back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("perPage")); err == nil && v > 0 && v <= maxPerPage {
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// TotalPages returns how many pages totalCount rows fill.
func (p Params) TotalPages(totalCount int) int {
	if p.PerPage <= 0 {
		return 0
	}
	return (totalCount + p.PerPage - 1) / p.PerPage
}

// WriteHeaders sets the total-count header and a Link header pointing at
// the neighbouring pages.
func WriteHeaders(w http.ResponseWriter, r *http.Request, totalCount int, p Params) {
	w.Header().Set(TotalCountHeader, strconv.Itoa(totalCount))

	var links []string
	if p.Page > 1 {
		links = append(links, pageLink(r, p.Page-1, p.PerPage, "prev"))
	}
	if p.Page < p.TotalPages(totalCount) {
		links = append(links, pageLink(r, p.Page+1, p.PerPage, "next"))
	}
	for _, l := range links {
		w.Header().Add("Link", l)
	}
}

func pageLink(r *http.Request, page, perPage int, rel string) string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()
	return "<" + u.RequestURI() + `>; rel="` + rel + `"`
}
