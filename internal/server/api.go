package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// serve writes the result of fetch as JSON.
func serve[T any](s *Server, fetch func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fetch(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// serveByID is serve for routes with an {id} parameter.
func serveByID[T any](s *Server, fetch func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		serve(s, func(ctx context.Context) (T, error) { return fetch(ctx, id) })(w, r)
	}
}

func (s *Server) warehouses(w http.ResponseWriter, r *http.Request) {
	serve(s, s.svc.Warehouses)(w, r)
}

func (s *Server) variants(w http.ResponseWriter, r *http.Request) {
	serve(s, s.svc.Variants)(w, r)
}

func (s *Server) variant(w http.ResponseWriter, r *http.Request) {
	serveByID(s, s.svc.Variant)(w, r)
}

func (s *Server) prices(w http.ResponseWriter, r *http.Request) {
	serveByID(s, s.svc.Prices)(w, r)
}

func (s *Server) suppliers(w http.ResponseWriter, r *http.Request) {
	serve(s, s.svc.Suppliers)(w, r)
}

func (s *Server) users(w http.ResponseWriter, r *http.Request) {
	serve(s, s.svc.Users)(w, r)
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	serveByID(s, s.svc.User)(w, r)
}

func (s *Server) businessInfo(w http.ResponseWriter, r *http.Request) {
	serve(s, s.svc.BusinessInfo)(w, r)
}

func (s *Server) expenseCategories(w http.ResponseWriter, r *http.Request) {
	serve(s, s.svc.ExpenseCategories)(w, r)
}
