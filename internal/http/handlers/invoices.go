package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"billserver/internal/domain"
	"billserver/internal/middleware"
	"billserver/internal/quota"
)

type invoiceCreateRequest struct {
	Number        string               `json:"number"`
	BuyerName     string               `json:"buyer_name"`
	BuyerGSTIN    string               `json:"buyer_gstin"`
	PlaceOfSupply string               `json:"place_of_supply"`
	Currency      string               `json:"currency"`
	Lines         []domain.InvoiceLine `json:"lines"`
}

type invoiceResponse struct {
	ID             string               `json:"id"`
	Number         string               `json:"number"`
	BuyerName      string               `json:"buyer_name"`
	BuyerGSTIN     string               `json:"buyer_gstin,omitempty"`
	PlaceOfSupply  string               `json:"place_of_supply,omitempty"`
	Currency       string               `json:"currency"`
	Lines          []domain.InvoiceLine `json:"lines"`
	Subtotal       int64                `json:"subtotal"`
	TaxAmount      int64                `json:"tax_amount"`
	Total          int64                `json:"total"`
	TotalDisplay   string               `json:"total_display"`
	Watermark      bool                 `json:"watermark"`
	Status         string               `json:"status"`
	IRN            string               `json:"irn,omitempty"`
	AckNo          string               `json:"ack_no,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	RemainingQuota *int                 `json:"remaining_quota,omitempty"`
}

func (a *App) InvoiceCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req invoiceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Number == "" || len(req.Lines) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "number and at least one line are required")
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}
	if _, err := currency.ParseISO(req.Currency); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown currency")
		return
	}

	verdict, err := a.Gate.Evaluate(r.Context(), userID, true)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("quota evaluation failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not determine quota")
		return
	}
	if blocked := a.verdictError(w, verdict); blocked {
		a.recordUsageEvent(r.Context(), userID, "invoice_blocked", false, map[string]any{"verdict": verdictCode(verdict)})
		return
	}
	allowed := verdict.(quota.Allowed)

	rec, err := a.Quotas.Get(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("quota record load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load account")
		return
	}

	inv := buildInvoice(userID, req, rec.Watermark)
	if err := a.Invoices.Create(r.Context(), inv); err != nil {
		if errors.Is(err, domain.ErrDuplicateInvoice) {
			a.error(w, http.StatusConflict, "duplicate", "invoice number already exists")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("invoice insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save invoice")
		return
	}

	a.recordUsageEvent(r.Context(), userID, "invoice_created", true, map[string]any{"invoice_id": inv.ID})

	resp := toInvoiceResponse(inv, middleware.LocaleFromContext(r.Context()))
	resp.RemainingQuota = &allowed.Remaining
	a.json(w, http.StatusCreated, resp)
}

func (a *App) InvoiceList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	items, err := a.Invoices.ListByUser(r.Context(), userID, 50)
	if err != nil {
		a.Logger.Error().Err(err).Msg("invoice list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load invoices")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	out := make([]invoiceResponse, 0, len(items))
	for i := range items {
		out = append(out, toInvoiceResponse(&items[i], locale))
	}
	a.json(w, http.StatusOK, map[string]any{"invoices": out})
}

func (a *App) InvoiceDetail(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "invoice_id")
	inv, err := a.Invoices.GetByID(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "invoice not found")
			return
		}
		a.Logger.Error().Err(err).Msg("invoice load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load invoice")
		return
	}
	a.json(w, http.StatusOK, toInvoiceResponse(inv, middleware.LocaleFromContext(r.Context())))
}

// verdictError writes the response for a blocking verdict. Returns false for
// Allowed, which is the caller's path.
func (a *App) verdictError(w http.ResponseWriter, v quota.Verdict) bool {
	switch verdict := v.(type) {
	case quota.Allowed:
		return false
	case quota.DailyCapReached:
		a.json(w, http.StatusForbidden, map[string]any{
			"error":    "daily_cap",
			"message":  "daily invoice limit reached, resets at midnight",
			"limit":    verdict.Limit,
			"reset_at": verdict.ResetAt,
		})
	case quota.MonthlyCapReached:
		a.error(w, http.StatusForbidden, "monthly_cap", "monthly invoice limit reached, upgrade to continue")
	case quota.FreeExpired:
		a.error(w, http.StatusForbidden, "free_expired", "free plan has expired, upgrade to continue")
	case quota.Killed:
		a.error(w, http.StatusServiceUnavailable, "service_disabled", "invoice creation is temporarily disabled")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "unknown quota verdict")
	}
	return true
}

func verdictCode(v quota.Verdict) string {
	switch v.(type) {
	case quota.Allowed:
		return "allowed"
	case quota.DailyCapReached:
		return "daily_cap"
	case quota.MonthlyCapReached:
		return "monthly_cap"
	case quota.FreeExpired:
		return "free_expired"
	case quota.Killed:
		return "killed"
	}
	return "unknown"
}

func buildInvoice(userID string, req invoiceCreateRequest, watermark bool) *domain.Invoice {
	var subtotal, tax int64
	lines := make([]domain.InvoiceLine, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			line.Quantity = 1
		}
		line.Amount = line.UnitPrice * int64(line.Quantity)
		subtotal += line.Amount
		tax += line.Amount * int64(line.TaxRatePct) / 100
		lines[i] = line
	}
	return &domain.Invoice{
		ID:            uuid.NewString(),
		UserID:        userID,
		Number:        req.Number,
		BuyerName:     req.BuyerName,
		BuyerGSTIN:    req.BuyerGSTIN,
		PlaceOfSupply: req.PlaceOfSupply,
		Currency:      req.Currency,
		Lines:         lines,
		Subtotal:      subtotal,
		TaxAmount:     tax,
		Total:         subtotal + tax,
		Watermark:     watermark,
		Status:        domain.InvoiceStatusIssued,
	}
}

func toInvoiceResponse(inv *domain.Invoice, locale string) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		Number:        inv.Number,
		BuyerName:     inv.BuyerName,
		BuyerGSTIN:    inv.BuyerGSTIN,
		PlaceOfSupply: inv.PlaceOfSupply,
		Currency:      inv.Currency,
		Lines:         inv.Lines,
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		Total:         inv.Total,
		TotalDisplay:  formatAmount(locale, inv.Currency, inv.Total),
		Watermark:     inv.Watermark,
		Status:        string(inv.Status),
		IRN:           inv.IRN,
		AckNo:         inv.AckNo,
		CreatedAt:     inv.CreatedAt,
	}
}

// formatAmount renders a minor-unit amount with its currency symbol in the
// caller's locale.
func formatAmount(locale, cur string, minor int64) string {
	unit, err := currency.ParseISO(cur)
	if err != nil {
		unit = currency.INR
	}
	tag := language.English
	if locale == "hi" {
		tag = language.Hindi
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(float64(minor)/100)))
}
