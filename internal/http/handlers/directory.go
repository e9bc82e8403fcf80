package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careportal/internal/directory"
	"github.com/wolfman30/careportal/internal/listing"
	"github.com/wolfman30/careportal/internal/portal"
	"github.com/wolfman30/careportal/pkg/logging"
)

// DirectoryHandler serves filtered, paginated directory listings.
type DirectoryHandler struct {
	catalog *directory.Catalog
	access  portal.AccessTable
	logger  *logging.Logger
}

func NewDirectoryHandler(catalog *directory.Catalog, access portal.AccessTable, logger *logging.Logger) *DirectoryHandler {
	if catalog == nil {
		panic("handlers: directory catalog required")
	}
	if access == nil {
		access = portal.DefaultAccess()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryHandler{catalog: catalog, access: access, logger: logger.Component("directory_handler")}
}

type collectionInfo struct {
	Name  string   `json:"name"`
	Sorts []string `json:"sorts"`
}

type loadFailureResponse struct {
	Collection string `json:"collection"`
	Items      []any  `json:"items"`
	Error      string `json:"error"`
	Retryable  bool   `json:"retryable"`
}

// Routes mounts the directory endpoints.
func (h *DirectoryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListCollections)
	r.Get("/{collection}", h.List)
	r.Get("/{collection}/{id}", h.Get)
	return r
}

// ListCollections returns the collections the caller's role may browse.
// GET /api/directory
func (h *DirectoryHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	role, ok := callerRole(w, r)
	if !ok {
		return
	}
	out := []collectionInfo{}
	for _, name := range h.catalog.Names() {
		if !h.access.CanList(role, name) {
			continue
		}
		lister, err := h.catalog.Get(name)
		if err != nil {
			continue
		}
		out = append(out, collectionInfo{Name: name, Sorts: lister.Sorts()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": out})
}

// List returns one page of a collection.
// GET /api/directory/{collection}
// Query params:
//   - q (or search): case-insensitive substring on the entity's display text
//   - category, status: exact, case-sensitive match; "all" or empty disables
//   - from, to: inclusive YYYY-MM-DD bounds on the entity's date
//   - sort: one of the collection's sort keys
//   - page, page_size
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	role, ok := callerRole(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "collection"))
	lister, ok := h.authorize(w, role, name)
	if !ok {
		return
	}

	values := r.URL.Query()
	filters, err := listing.ParseFilterState(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, pageSize := listing.ParsePageRequest(values)

	res, err := lister.List(r.Context(), directory.Query{Filters: filters, Page: page, PageSize: pageSize})
	if err != nil {
		h.writeListError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Get returns the summary record of one entity.
// GET /api/directory/{collection}/{id}
func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, ok := callerRole(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "collection"))
	lister, ok := h.authorize(w, role, name)
	if !ok {
		return
	}
	rec, err := lister.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeListError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *DirectoryHandler) authorize(w http.ResponseWriter, role portal.Role, name string) (directory.Lister, bool) {
	lister, err := h.catalog.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown collection")
		return nil, false
	}
	if !h.access.CanList(role, name) {
		writeError(w, http.StatusForbidden, "collection not available to this portal")
		return nil, false
	}
	return lister, true
}

func (h *DirectoryHandler) writeListError(w http.ResponseWriter, name string, err error) {
	var loadErr *directory.LoadError
	switch {
	case errors.Is(err, directory.ErrUnknownSort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.As(err, &loadErr):
		h.logger.Warn("directory load failed", "collection", name, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, loadFailureResponse{
			Collection: name,
			Items:      []any{},
			Error:      "collection temporarily unavailable",
			Retryable:  loadErr.Retryable(),
		})
	default:
		h.logger.Error("directory request failed", "collection", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

