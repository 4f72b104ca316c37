// Package admin exposes the operational API: inspect configured
// endpoints, reload configuration, and manage stored entities. Mounted by
// the server under /__admin and guarded by the configured system API key
// method when one exists.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockfig/mockfig/pkg/config"
	"github.com/mockfig/mockfig/pkg/persist"
)

// API is the admin handler set.
type API struct {
	store    *config.Store
	entities persist.EntityStore
	log      *slog.Logger
}

// New returns the admin API over the config store and entity store.
func New(store *config.Store, entities persist.EntityStore, log *slog.Logger) *API {
	return &API{store: store, entities: entities, log: log}
}

// Router builds the admin route tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.requireSystemKey)

	r.Get("/endpoints", a.listEndpoints)
	r.Post("/config/reload", a.reloadConfig)

	r.Get("/store", a.storeInfo)

	r.Route("/entities", func(r chi.Router) {
		r.Delete("/", a.flushEntities)
		r.Get("/{type}", a.listEntities)
		r.Get("/{type}/{id}", a.getEntity)
		r.Delete("/{type}/{id}", a.deleteEntity)
	})
	return r
}

// requireSystemKey guards the admin API with the snapshot's system auth
// method. With no system method configured the admin API is open, which
// suits local development.
func (a *API) requireSystemKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := a.store.Snapshot().SystemAuthMethod()
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		presented := r.Header.Get(m.HeaderName())
		for _, rec := range m.Pool() {
			if rec["key"] == presented && presented != "" {
				next.ServeHTTP(w, r)
				return
			}
		}
		a.writeError(w, http.StatusUnauthorized, "Invalid system API key")
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("admin response encode failed", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, detail string) {
	a.writeJSON(w, status, map[string]string{"detail": detail})
}

func (a *API) listEndpoints(w http.ResponseWriter, r *http.Request) {
	snap := a.store.Snapshot()
	type entry struct {
		Method         string   `json:"method"`
		Path           string   `json:"path"`
		Tag            string   `json:"tag,omitempty"`
		Authentication []string `json:"authentication,omitempty"`
		Persisted      bool     `json:"persisted"`
	}
	out := make([]entry, len(snap.Endpoints))
	for i, ep := range snap.Endpoints {
		out[i] = entry{
			Method:         ep.Method,
			Path:           snap.API.BasePath + ep.Path,
			Tag:            ep.Tag,
			Authentication: ep.Authentication,
			Persisted:      ep.Persistence != nil,
		}
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"endpoints": out, "count": len(out)})
}

func (a *API) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Reload(); err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	snap := a.store.Snapshot()
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"endpoints": len(snap.Endpoints),
	})
}

// storeInfo reports the entity store backend and, for the in-memory
// backend, how many entities it holds.
func (a *API) storeInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{"backend": "redis"}
	if mem, ok := a.entities.(*persist.MemoryStore); ok {
		info["backend"] = "memory"
		info["entities"] = mem.Len()
	}
	a.writeJSON(w, http.StatusOK, info)
}

func (a *API) flushEntities(w http.ResponseWriter, r *http.Request) {
	if err := a.entities.Flush(r.Context()); err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "Entity store unavailable")
		return
	}
	a.log.Info("entity store flushed")
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

func (a *API) listEntities(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "type")
	entities, err := a.entities.List(r.Context(), entityType)
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "Entity store unavailable")
		return
	}
	if entities == nil {
		entities = []*persist.Entity{}
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"entities": entities, "count": len(entities)})
}

func (a *API) getEntity(w http.ResponseWriter, r *http.Request) {
	e, err := a.entities.Get(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if errors.Is(err, persist.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "Entity store unavailable")
		return
	}
	a.writeJSON(w, http.StatusOK, e)
}

func (a *API) deleteEntity(w http.ResponseWriter, r *http.Request) {
	err := a.entities.Delete(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if errors.Is(err, persist.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "Entity store unavailable")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
