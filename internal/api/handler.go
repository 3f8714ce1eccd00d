// Package api exposes the HTTP surface: catalog, cart, checkout, billing,
// prescriptions, notifications, and the auth endpoints, mapped onto the
// domain services.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/domain/billing"
	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
	"github.com/lianamed/pharmacy-api/internal/domain/notification"
	"github.com/lianamed/pharmacy-api/internal/domain/prescription"
	"github.com/lianamed/pharmacy-api/internal/domain/user"
	"github.com/lianamed/pharmacy-api/internal/kv"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image refs in catalog responses.
	// When empty, refs are returned as stored.
	ImageBaseURL string
}

// Handler routes HTTP requests to the domain layer.
type Handler struct {
	auth          *user.AuthService
	users         user.Repository
	medicines     medicine.Repository
	billing       *billing.Service
	orders        billing.Repository
	prescriptions *prescription.Service
	prescRepo     prescription.Repository
	notifications *notification.Service
	cartStore     kv.Store
	imageBaseURL  string
	lg            *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	auth *user.AuthService,
	users user.Repository,
	medicines medicine.Repository,
	billingSvc *billing.Service,
	orders billing.Repository,
	prescriptions *prescription.Service,
	prescRepo prescription.Repository,
	notifications *notification.Service,
	cartStore kv.Store,
	lg *zap.Logger,
) *Handler {
	return &Handler{
		auth:          auth,
		users:         users,
		medicines:     medicines,
		billing:       billingSvc,
		orders:        orders,
		prescriptions: prescriptions,
		prescRepo:     prescRepo,
		notifications: notifications,
		cartStore:     cartStore,
		imageBaseURL:  cfg.ImageBaseURL,
		lg:            lg,
	}
}

// Routes builds the /api router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Get("/medicines", h.ListMedicines)
	r.Get("/medicines/{id}", h.GetMedicine)

	// Cart works for guests too; authentication only changes the owner key.
	r.Group(func(r chi.Router) {
		r.Use(h.optionalAuth)
		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.ClearCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart/items/{id}", h.RemoveCartItem)
		r.Post("/cart/items/{id}/increase", h.IncreaseCartItem)
		r.Post("/cart/items/{id}/decrease", h.DecreaseCartItem)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/users/me", h.Me)

		r.Post("/billing/checkout", h.Checkout)
		r.Get("/billing/my", h.MyOrders)
		r.Get("/billing/{id}", h.GetOrder)
		r.Put("/billing/{id}/pay", h.PayOrder)

		r.Post("/prescriptions/upload", h.UploadPrescription)
		r.Get("/prescriptions/my", h.MyPrescriptions)
		r.Get("/prescriptions/{id}/file", h.GetPrescriptionFile)

		r.Get("/notifications", h.ListNotifications)
		r.Put("/notifications/{id}/read", h.MarkNotificationRead)

		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(user.RoleAdmin, user.RolePharmacist))
			r.Post("/medicines", h.CreateMedicine)
			r.Put("/medicines/{id}", h.UpdateMedicine)
			r.Delete("/medicines/{id}", h.DeleteMedicine)
			r.Get("/prescriptions/all", h.AllPrescriptions)
			r.Put("/prescriptions/{id}/status", h.ReviewPrescription)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(user.RoleAdmin, user.RolePharmacist, user.RoleRider))
			r.Get("/billing/all", h.AllOrders)
			r.Put("/billing/{id}/status", h.UpdateOrderStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(user.RoleAdmin))
			r.Get("/admin/users", h.ListUsers)
		})
	})

	return r
}

// imageURL resolves a stored image ref against the configured base URL.
func (h *Handler) imageURL(ref string) string {
	if ref == "" || h.imageBaseURL == "" {
		return ref
	}
	return h.imageBaseURL + "/" + ref
}
