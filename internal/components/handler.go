// Package components serves catalog CRUD for tubes, fabrics, bottom rails
// and shade systems.
package components

import (
	"context"
	"errors"
	"net/http"

	"Shade/internal/catalog"
	"Shade/internal/repo"
	"Shade/internal/respond"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	Repo repo.Catalog
	Log  *zap.Logger
}

// resource wires one component kind to its repository methods.
type resource[T any] struct {
	path    string
	list    func(ctx context.Context) ([]T, error)
	byID    func(ctx context.Context, id string) (T, error)
	byName  func(ctx context.Context, name string) (T, error)
	create  func(ctx context.Context, v T) (T, error)
	update  func(ctx context.Context, id string, v T) (T, error)
	remove  func(ctx context.Context, id string) error
	prepare func(v *T) error
}

// Register mounts reads on r and wraps writes with guard.
func (h *Handler) Register(r *mux.Router, guard func(http.Handler) http.Handler) {
	mount(h, r, guard, resource[catalog.Tube]{
		path:   "/components/tubes",
		list:   h.Repo.Tubes,
		byID:   h.Repo.TubeByID,
		byName: h.Repo.TubeByName,
		create: h.Repo.CreateTube,
		update: h.Repo.UpdateTube,
		remove: h.Repo.DeleteTube,
		prepare: func(t *catalog.Tube) error {
			t.ApplyDefaults()
			return t.Validate()
		},
	})
	mount(h, r, guard, resource[catalog.Fabric]{
		path:    "/components/fabrics",
		list:    h.Repo.Fabrics,
		byID:    h.Repo.FabricByID,
		byName:  h.Repo.FabricByName,
		create:  h.Repo.CreateFabric,
		update:  h.Repo.UpdateFabric,
		remove:  h.Repo.DeleteFabric,
		prepare: func(f *catalog.Fabric) error { return f.Validate() },
	})
	mount(h, r, guard, resource[catalog.BottomRail]{
		path:    "/components/bottom-rails",
		list:    h.Repo.BottomRails,
		byID:    h.Repo.BottomRailByID,
		byName:  h.Repo.BottomRailByName,
		create:  h.Repo.CreateBottomRail,
		update:  h.Repo.UpdateBottomRail,
		remove:  h.Repo.DeleteBottomRail,
		prepare: func(b *catalog.BottomRail) error { return b.Validate() },
	})
	mount(h, r, guard, resource[catalog.System]{
		path:    "/components/systems",
		list:    h.Repo.Systems,
		byID:    h.Repo.SystemByID,
		byName:  h.Repo.SystemByName,
		create:  h.Repo.CreateSystem,
		update:  h.Repo.UpdateSystem,
		remove:  h.Repo.DeleteSystem,
		prepare: func(s *catalog.System) error { return s.Validate() },
	})
}

func mount[T any](h *Handler, r *mux.Router, guard func(http.Handler) http.Handler, res resource[T]) {
	r.HandleFunc(res.path, func(w http.ResponseWriter, r *http.Request) {
		items, err := res.list(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		respond.JSON(w, http.StatusOK, items)
	}).Methods("GET")

	r.HandleFunc(res.path+"/name/{name}", func(w http.ResponseWriter, r *http.Request) {
		item, err := res.byName(r.Context(), mux.Vars(r)["name"])
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, item)
	}).Methods("GET")

	r.HandleFunc(res.path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		item, err := res.byID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, item)
	}).Methods("GET")

	r.Handle(res.path, guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var item T
		if err := respond.Decode(r, &item); err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := res.prepare(&item); err != nil {
			h.fail(w, r, err)
			return
		}
		created, err := res.create(r.Context(), item)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, created)
	}))).Methods("POST")

	r.Handle(res.path+"/{id}", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var item T
		if err := respond.Decode(r, &item); err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := res.prepare(&item); err != nil {
			h.fail(w, r, err)
			return
		}
		updated, err := res.update(r.Context(), mux.Vars(r)["id"], item)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, updated)
	}))).Methods("PUT")

	r.Handle(res.path+"/{id}", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := res.remove(r.Context(), mux.Vars(r)["id"]); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))).Methods("DELETE")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repo.ErrConflict):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrInvalid):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error("catalog request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError)
	}
}
