// AngelaMos | 2026
// handler.go

package research

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
	"github.com/vedomo/vedomo-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the public read surface. Callers pass optional auth
// first so the role is resolved before anything keyed on it: an anonymous
// request is served previews, never a 401.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	middlewares ...func(http.Handler) http.Handler,
) {
	r.Route("/publications", func(r chi.Router) {
		for _, mw := range middlewares {
			r.Use(mw)
		}

		r.Get("/", h.ListPublications)
		r.Get("/{slug}", h.GetPublication)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/publications", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.AdminListPublications)
		r.Post("/", h.CreatePublication)
		r.Get("/{pubID}", h.AdminGetPublication)
		r.Put("/{pubID}", h.UpdatePublication)
		r.Post("/{pubID}/publish", h.PublishPublication)
		r.Delete("/{pubID}", h.DeletePublication)
	})
}

func viewerRole(r *http.Request) entitlement.Role {
	return entitlement.ParseRole(middleware.GetUserRole(r.Context()))
}

func (h *Handler) GetPublication(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	locale := r.URL.Query().Get("locale")

	resp, err := h.service.View(r.Context(), slug, locale, viewerRole(r))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "publication")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ListPublications(w http.ResponseWriter, r *http.Request) {
	params := ListPublicationsParams{
		Page:        parseIntQuery(r, "page", 1),
		PageSize:    parseIntQuery(r, "page_size", 20),
		Locale:      r.URL.Query().Get("locale"),
		AccessLevel: r.URL.Query().Get("access_level"),
	}

	pubs, total, err := h.service.ListPublished(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToPublicationSummaryList(pubs),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) AdminListPublications(
	w http.ResponseWriter,
	r *http.Request,
) {
	params := ListPublicationsParams{
		Page:        parseIntQuery(r, "page", 1),
		PageSize:    parseIntQuery(r, "page_size", 20),
		Locale:      r.URL.Query().Get("locale"),
		AccessLevel: r.URL.Query().Get("access_level"),
	}

	pubs, total, err := h.service.ListAll(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToPublicationSummaryList(pubs),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) AdminGetPublication(w http.ResponseWriter, r *http.Request) {
	pub, err := h.service.Get(r.Context(), chi.URLParam(r, "pubID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "publication")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, pub)
}

func (h *Handler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	var req CreatePublicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	pub, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("publication"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, pub)
}

func (h *Handler) UpdatePublication(w http.ResponseWriter, r *http.Request) {
	var req UpdatePublicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	pub, err := h.service.Update(r.Context(), chi.URLParam(r, "pubID"), req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "publication")
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "access level is immutable once published")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, pub)
}

func (h *Handler) PublishPublication(w http.ResponseWriter, r *http.Request) {
	pub, err := h.service.Publish(r.Context(), chi.URLParam(r, "pubID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "publication")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, pub)
}

func (h *Handler) DeletePublication(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "pubID")); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "publication")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
