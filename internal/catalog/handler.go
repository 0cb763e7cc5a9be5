package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/all", h.handleListAll)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleArchive)
}

type productResponse struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	FranchisePrice      float64 `json:"franchisePrice"`
	DistributorPrice    float64 `json:"distributorPrice"`
	SubDistributorPrice float64 `json:"subDistributorPrice"`
	DealerPrice         float64 `json:"dealerPrice"`
	FarmerPrice         float64 `json:"farmerPrice"`
	IsActive            bool    `json:"isActive"`
}

type listingResponse struct {
	productResponse
	AdminStock int64 `json:"adminStock"`
}

func toProductResponse(p Product) productResponse {
	return productResponse{
		ID:                  p.ID.String(),
		Name:                p.Name,
		FranchisePrice:      p.FranchisePrice,
		DistributorPrice:    p.DistributorPrice,
		SubDistributorPrice: p.SubDistributorPrice,
		DealerPrice:         p.DealerPrice,
		FarmerPrice:         p.FarmerPrice,
		IsActive:            p.IsActive,
	}
}

func toListingResponses(list []Listing) []listingResponse {
	out := make([]listingResponse, 0, len(list))
	for _, l := range list {
		out = append(out, listingResponse{toProductResponse(l.Product), l.AdminStock})
	}
	return out
}

type productRequest struct {
	Name                string  `json:"name" validate:"required"`
	FranchisePrice      float64 `json:"franchisePrice" validate:"gte=0"`
	DistributorPrice    float64 `json:"distributorPrice" validate:"gte=0"`
	SubDistributorPrice float64 `json:"subDistributorPrice" validate:"gte=0"`
	DealerPrice         float64 `json:"dealerPrice" validate:"gte=0"`
	FarmerPrice         float64 `json:"farmerPrice" validate:"gte=0"`
	Stock               int64   `json:"stock" validate:"gte=0"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if _, err := members.RequireActor(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toListingResponses(list))
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListAll(r.Context(), *actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toListingResponses(list))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, err := members.RequireActor(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Create(r.Context(), *actor, CreateInput{
		Name:                req.Name,
		FranchisePrice:      req.FranchisePrice,
		DistributorPrice:    req.DistributorPrice,
		SubDistributorPrice: req.SubDistributorPrice,
		DealerPrice:         req.DealerPrice,
		FarmerPrice:         req.FarmerPrice,
		InitialStock:        req.Stock,
	})
	if err != nil {
		h.logger.Warn("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProductResponse(*p))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Update(r.Context(), *actor, id, UpdateInput{
		Name:                req.Name,
		FranchisePrice:      req.FranchisePrice,
		DistributorPrice:    req.DistributorPrice,
		SubDistributorPrice: req.SubDistributorPrice,
		DealerPrice:         req.DealerPrice,
		FarmerPrice:         req.FarmerPrice,
		Stock:               req.Stock,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	if err := h.service.Archive(r.Context(), *actor, id); err != nil {
		h.logger.Warn("archive product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
