package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
	"github.com/segyhp/dues-engine/pkg/response"
	"github.com/segyhp/dues-engine/pkg/utils"
	"github.com/shopspring/decimal"
)

// BillingService is the set of operations the HTTP layer exposes
type BillingService interface {
	CreateMember(ctx context.Context, request *domain.CreateMemberRequest) (*domain.CreateMemberResponse, error)
	CreateObligation(ctx context.Context, request *domain.CreateObligationRequest) (*domain.ObligationResponse, error)
	GetObligation(ctx context.Context, id int64) (*domain.ObligationResponse, error)
	RecordPayment(ctx context.Context, id int64, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error)
	ChangeFrequency(ctx context.Context, id int64, request *domain.ChangeFrequencyRequest) (*domain.ObligationResponse, error)
	Deactivate(ctx context.Context, id int64) (*domain.Obligation, error)
	ListPayments(ctx context.Context, id int64) ([]*domain.PaymentRecord, error)
	DueBetween(ctx context.Context, from, to time.Time) ([]*domain.ObligationResponse, error)
	Alerts(ctx context.Context, windowOverride *int) (*domain.AlertsResponse, error)
	Reminders(ctx context.Context, windowOverride *int) (*domain.ReminderDigest, error)
	RepairAll(ctx context.Context) (*domain.RepairResult, error)
	Revenue(ctx context.Context, q domain.RevenueQuery) (*domain.RevenueReport, error)
	RecentPayments(ctx context.Context, limit int) ([]*domain.RecentPayment, error)
}

type BillingHandler struct {
	service   BillingService
	validator *validator.Validate
}

func NewBillingHandler(service BillingService) *BillingHandler {
	return &BillingHandler{
		service:   service,
		validator: NewValidator(),
	}
}

// NewValidator returns a validator that understands decimal amounts
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	if err := v.RegisterValidation("decimal_positive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	}); err != nil {
		panic(err)
	}
	return v
}

// RegisterRoutes mounts the billing API under r
func (h *BillingHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/members", h.CreateMember).Methods(http.MethodPost)
	api.HandleFunc("/obligations", h.CreateObligation).Methods(http.MethodPost)
	api.HandleFunc("/obligations/due", h.DueBetween).Methods(http.MethodGet)
	api.HandleFunc("/obligations/{id}", h.GetObligation).Methods(http.MethodGet)
	api.HandleFunc("/obligations/{id}", h.DeactivateObligation).Methods(http.MethodDelete)
	api.HandleFunc("/obligations/{id}/payments", h.RecordPayment).Methods(http.MethodPost)
	api.HandleFunc("/obligations/{id}/payments", h.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/obligations/{id}/frequency", h.ChangeFrequency).Methods(http.MethodPut)
	api.HandleFunc("/alerts", h.Alerts).Methods(http.MethodGet)
	api.HandleFunc("/reminders", h.Reminders).Methods(http.MethodGet)
	api.HandleFunc("/maintenance/repair", h.Repair).Methods(http.MethodPost)
	api.HandleFunc("/revenue", h.Revenue).Methods(http.MethodGet)
	api.HandleFunc("/payments/recent", h.RecentPayments).Methods(http.MethodGet)
}

// CreateMember handles POST /api/v1/members
func (h *BillingHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateMemberRequest
	if !h.decode(w, r, &request) {
		return
	}

	resp, err := h.service.CreateMember(r.Context(), &request)
	if err != nil {
		response.FromError(w, "Failed to create member", err)
		return
	}

	response.Created(w, resp)
}

// CreateObligation handles POST /api/v1/obligations
func (h *BillingHandler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateObligationRequest
	if !h.decode(w, r, &request) {
		return
	}

	resp, err := h.service.CreateObligation(r.Context(), &request)
	if err != nil {
		response.FromError(w, "Failed to create obligation", err)
		return
	}

	response.Created(w, resp)
}

// GetObligation handles GET /api/v1/obligations/{id}
func (h *BillingHandler) GetObligation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.GetObligation(r.Context(), id)
	if err != nil {
		response.FromError(w, "Failed to get obligation", err)
		return
	}

	response.Success(w, resp)
}

// DeactivateObligation handles DELETE /api/v1/obligations/{id}
func (h *BillingHandler) DeactivateObligation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	obligation, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		response.FromError(w, "Failed to deactivate obligation", err)
		return
	}

	response.Success(w, obligation)
}

// RecordPayment handles POST /api/v1/obligations/{id}/payments
func (h *BillingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var request domain.RecordPaymentRequest
	if !h.decode(w, r, &request) {
		return
	}

	resp, err := h.service.RecordPayment(r.Context(), id, &request)
	if err != nil {
		response.FromError(w, "Failed to record payment", err)
		return
	}

	response.Created(w, resp)
}

// ListPayments handles GET /api/v1/obligations/{id}/payments
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		response.FromError(w, "Failed to list payments", err)
		return
	}

	response.Success(w, payments)
}

// ChangeFrequency handles PUT /api/v1/obligations/{id}/frequency
func (h *BillingHandler) ChangeFrequency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var request domain.ChangeFrequencyRequest
	if !h.decode(w, r, &request) {
		return
	}

	resp, err := h.service.ChangeFrequency(r.Context(), id, &request)
	if err != nil {
		response.FromError(w, "Failed to change frequency", err)
		return
	}

	response.Success(w, resp)
}

// DueBetween handles GET /api/v1/obligations/due?from=..&to=..
func (h *BillingHandler) DueBetween(w http.ResponseWriter, r *http.Request) {
	from, err := utils.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		response.BadRequest(w, "Invalid from date", err)
		return
	}
	to, err := utils.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		response.BadRequest(w, "Invalid to date", err)
		return
	}

	obligations, err := h.service.DueBetween(r.Context(), from, to)
	if err != nil {
		response.FromError(w, "Failed to list due obligations", err)
		return
	}

	response.Success(w, obligations)
}

// Alerts handles GET /api/v1/alerts?window=N
func (h *BillingHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	window, ok := windowParam(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Alerts(r.Context(), window)
	if err != nil {
		response.FromError(w, "Failed to classify obligations", err)
		return
	}

	response.Success(w, resp)
}

// Reminders handles GET /api/v1/reminders?window=N
func (h *BillingHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	window, ok := windowParam(w, r)
	if !ok {
		return
	}

	digest, err := h.service.Reminders(r.Context(), window)
	if err != nil {
		response.FromError(w, "Failed to build reminders", err)
		return
	}

	response.Success(w, digest)
}

// Repair handles POST /api/v1/maintenance/repair
func (h *BillingHandler) Repair(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RepairAll(r.Context())
	if err != nil {
		response.FromError(w, "Failed to run repair sweep", err)
		return
	}

	response.Success(w, result)
}

// Revenue handles GET /api/v1/revenue?period=..&date=..&from=..&to=..
func (h *BillingHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	query, err := revenueQuery(r)
	if err != nil {
		response.BadRequest(w, "Invalid revenue query", err)
		return
	}

	report, err := h.service.Revenue(r.Context(), query)
	if err != nil {
		response.FromError(w, "Failed to compute revenue", err)
		return
	}

	response.Success(w, report)
}

// RecentPayments handles GET /api/v1/payments/recent?limit=N
func (h *BillingHandler) RecentPayments(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.ParseIntQuery(r.URL.Query().Get("limit"), 0)
	if err != nil {
		response.BadRequest(w, "Invalid limit", err)
		return
	}

	payments, err := h.service.RecentPayments(r.Context(), limit)
	if err != nil {
		response.FromError(w, "Failed to list recent payments", err)
		return
	}

	response.Success(w, payments)
}

// decode reads and validates a JSON body, writing the error response itself
// when it returns false.
func (h *BillingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var be *customError.BusinessError
		if errors.As(err, &be) {
			response.FromError(w, "Invalid request body", err)
			return false
		}
		response.BadRequest(w, "Invalid request body", err)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid obligation ID", err)
		return 0, false
	}
	return id, true
}

func windowParam(w http.ResponseWriter, r *http.Request) (*int, bool) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return nil, true
	}
	window, err := utils.ParseIntQuery(raw, 0)
	if err != nil {
		response.BadRequest(w, "Invalid window", err)
		return nil, false
	}
	return &window, true
}

func revenueQuery(r *http.Request) (domain.RevenueQuery, error) {
	params := r.URL.Query()
	q := domain.RevenueQuery{Period: domain.RevenuePeriod(params.Get("period"))}
	if q.Period == "" {
		q.Period = domain.PeriodMonth
	}

	fields := []struct {
		name string
		dst  *time.Time
	}{
		{"date", &q.Date},
		{"from", &q.From},
		{"to", &q.To},
	}
	for _, f := range fields {
		raw := params.Get(f.name)
		if raw == "" {
			continue
		}
		d, err := utils.ParseDate(raw)
		if err != nil {
			return domain.RevenueQuery{}, err
		}
		*f.dst = d
	}
	return q, nil
}
