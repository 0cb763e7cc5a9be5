package ledger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/platform/httpx"
)

// Handler wires HTTP endpoints for purchases, inventory and ledger reads.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountPurchaseRoutes registers the order endpoints.
func (h *Handler) MountPurchaseRoutes(r chi.Router) {
	r.Post("/", h.handlePurchase)
	r.Post("/admin", h.handlePurchaseFromAdmin)
}

// MountInventoryRoutes registers the stock read endpoints.
func (h *Handler) MountInventoryRoutes(r chi.Router) {
	r.Get("/", h.handleInventory)
	r.Get("/upline", h.handleUplineInventory)
}

// MountTransactionRoutes registers the ledger read endpoints.
func (h *Handler) MountTransactionRoutes(r chi.Router) {
	r.Get("/payable", h.handlePayable)
	r.Get("/receivable", h.handleReceivable)
	r.Get("/sales", h.handleSalesReport)
}

type transactionResponse struct {
	ID            string  `json:"id"`
	SellerID      string  `json:"sellerId"`
	BuyerID       string  `json:"buyerId"`
	ProductID     string  `json:"productId"`
	Quantity      int64   `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	TotalAmount   float64 `json:"totalAmount"`
	Profit        float64 `json:"profit"`
	PaymentStatus string  `json:"paymentStatus"`
	PaymentProof  string  `json:"paymentProof,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

func toTransactionResponse(t Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            t.ID.String(),
		SellerID:      t.SellerID.String(),
		BuyerID:       t.BuyerID.String(),
		ProductID:     t.ProductID.String(),
		Quantity:      t.Quantity,
		UnitPrice:     t.UnitPrice,
		TotalAmount:   t.TotalAmount,
		Profit:        t.Profit,
		PaymentStatus: string(t.PaymentStatus),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
	if t.PaymentProof != nil {
		resp.PaymentProof = *t.PaymentProof
	}
	return resp
}

func toTransactionResponses(list []Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type inventoryResponse struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity"`
}

func toInventoryResponses(list []InventoryItem) []inventoryResponse {
	out := make([]inventoryResponse, 0, len(list))
	for _, item := range list {
		out = append(out, inventoryResponse{
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
		})
	}
	return out
}

type purchaseRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) decodePurchase(w http.ResponseWriter, r *http.Request) (PurchaseInput, bool) {
	var req purchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return PurchaseInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return PurchaseInput{}, false
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return PurchaseInput{}, false
	}
	return PurchaseInput{ProductID: productID, Quantity: req.Quantity}, true
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, ok := h.decodePurchase(w, r)
	if !ok {
		return
	}
	tr, err := h.service.Purchase(r.Context(), *actor, in)
	if err != nil {
		h.logger.Warn("purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(*tr))
}

func (h *Handler) handlePurchaseFromAdmin(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, ok := h.decodePurchase(w, r)
	if !ok {
		return
	}
	tr, err := h.service.PurchaseFromAdmin(r.Context(), *actor, in)
	if err != nil {
		h.logger.Warn("purchase from admin", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(*tr))
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.Inventory(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("inventory", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInventoryResponses(list))
}

func (h *Handler) handleUplineInventory(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.UplineInventory(r.Context(), *actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInventoryResponses(list))
}

func (h *Handler) handlePayable(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.Payable(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponses(list))
}

func (h *Handler) handleReceivable(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	recv, err := h.service.Receivable(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct {
		Transactions []transactionResponse `json:"transactions"`
		PendingTotal float64               `json:"pendingTotal"`
	}{toTransactionResponses(recv.Transactions), recv.PendingTotal})
}

func (h *Handler) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.SalesReport(r.Context(), *actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponses(list))
}
