package crawler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
)

// fakeSite serves a small MOT-like site: one section with two listing pages
// and an instrument page per ISIN. ISINs listed in broken answer 500.
type fakeSite struct {
	pages    [][]string
	broken   map[string]bool
	requests atomic.Int64
}

func (s *fakeSite) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.requests.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/borsa/obbligazioni/mot/{section}/lista.html", func(w http.ResponseWriter, req *http.Request) {
		page, err := strconv.Atoi(req.URL.Query().Get("page"))
		if err != nil || page < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		var hrefs []string
		if page <= len(s.pages) {
			for _, isin := range s.pages[page-1] {
				hrefs = append(hrefs, "/borsa/obbligazioni/mot/"+chi.URLParam(req, "section")+"/scheda/"+isin+".html")
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(listingHTML(hrefs...))
	})
	r.Get("/borsa/obbligazioni/mot/{section}/scheda/{isin}.html", func(w http.ResponseWriter, req *http.Request) {
		isin := chi.URLParam(req, "isin")
		if s.broken[isin] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, `<html><body><table>
			<tr><td>Isin Code</td><td>%s</td></tr>
			<tr><td>Net yield to maturity</td><td>2.5</td></tr>
			<tr><td>Section</td><td>%s</td></tr>
		</table></body></html>`, isin, chi.URLParam(req, "section"))
	})
	return r
}

func (s *fakeSite) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(s.router())
	t.Cleanup(srv.Close)
	return srv
}
