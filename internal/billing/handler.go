// AngelaMos | 2026
// handler.go

package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/middleware"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	service       *Service
	checkout      *CheckoutService
	catalog       *Catalog
	webhookSecret string
	tolerance     time.Duration
	validator     *validator.Validate
	logger        *slog.Logger
}

func NewHandler(
	service *Service,
	checkout *CheckoutService,
	catalog *Catalog,
	webhookSecret string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service:       service,
		checkout:      checkout,
		catalog:       catalog,
		webhookSecret: webhookSecret,
		tolerance:     DefaultSignatureTolerance,
		validator:     validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger,
	}
}

// SetSignatureTolerance overrides the default webhook timestamp tolerance.
func (h *Handler) SetSignatureTolerance(d time.Duration) {
	if d > 0 {
		h.tolerance = d
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/billing", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)
		r.Get("/products", h.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/checkout", h.CreateCheckout)
		})
	})
}

// Webhook receives provider lifecycle events. Signature verification runs
// on the raw body before anything else; 200 acknowledges receipt, which is
// distinct from business-logic success — discarded events are still acked
// so the provider does not retry permanently malformed data forever.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "unreadable request body")
		return
	}

	header := r.Header.Get(SignatureHeader)
	if header == "" {
		core.BadRequest(w, "missing webhook signature")
		return
	}

	err = VerifySignature(h.webhookSecret, header, body, time.Now(), h.tolerance)
	if err != nil {
		h.logger.Warn("webhook signature rejected", "error", err)
		core.JSONError(w, core.UnauthorizedError("invalid webhook signature"))
		return
	}

	ev, err := ParseEvent(body)
	if err != nil {
		// Authentic but unparseable. Log and ack per discard policy.
		h.logger.Warn("unparseable webhook payload", "error", err)
		core.OK(w, WebhookAck{Received: true})
		return
	}

	if err := h.service.ProcessEvent(r.Context(), ev); err != nil {
		h.logger.Error("webhook processing failed",
			"event_id", ev.EventID,
			"error", err,
		)
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, WebhookAck{Received: true})
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	url, err := h.checkout.CreateCheckout(r.Context(), userID, req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "unknown product")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		case errors.Is(err, core.ErrUnavailable):
			core.JSONError(w, core.UnavailableError(
				"billing provider unavailable, retry shortly"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, CheckoutResponse{URL: url})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	core.OK(w, ToProductResponseList(h.catalog.Products()))
}
