package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"billserver/internal/domain"
)

type irnResponse struct {
	IRN      string    `json:"irn"`
	AckNo    string    `json:"ack_no"`
	AckDate  time.Time `json:"ack_date"`
	SignedQR string    `json:"signed_qr,omitempty"`
}

// InvoiceSubmitIRN registers an existing invoice with the e-invoicing
// gateway and stores the returned IRN. Submission is not quota-gated: the
// slot was spent when the invoice was created.
func (a *App) InvoiceSubmitIRN(w http.ResponseWriter, r *http.Request) {
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
	if inv.IRN != "" {
		a.error(w, http.StatusConflict, "already_submitted", "invoice already has an IRN")
		return
	}

	sealed, err := a.Sealer.Seal(r.Context(), inv)
	if err != nil {
		a.Logger.Error().Err(err).Str("invoice_id", id).Msg("payload seal failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to prepare gateway payload")
		return
	}

	ack, err := a.NIC.GenerateIRN(r.Context(), sealed)
	if err != nil {
		if errors.Is(err, domain.ErrIRNRejected) {
			a.error(w, http.StatusUnprocessableEntity, "irn_rejected", err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("invoice_id", id).Msg("irn generation failed")
		a.error(w, http.StatusBadGateway, "gateway_error", "e-invoicing gateway unavailable")
		return
	}

	if err := a.Invoices.SetIRN(r.Context(), id, userID, ack.IRN, ack.AckNo, ack.AckDate.Unix()); err != nil {
		a.Logger.Error().Err(err).Str("invoice_id", id).Msg("irn save failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save IRN")
		return
	}

	a.recordUsageEvent(r.Context(), userID, "irn_generated", true, map[string]any{"invoice_id": id})

	a.json(w, http.StatusOK, irnResponse{
		IRN:      ack.IRN,
		AckNo:    ack.AckNo,
		AckDate:  ack.AckDate,
		SignedQR: ack.SignedQR,
	})
}
