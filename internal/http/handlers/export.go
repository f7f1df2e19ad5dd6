package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"billserver/internal/middleware"
	"billserver/pkg/zip"
)

// InvoiceExport bundles the caller's recent invoices into a zip of JSON
// documents, one file per invoice.
func (a *App) InvoiceExport(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	items, err := a.Invoices.ListByUser(r.Context(), userID, 200)
	if err != nil {
		a.Logger.Error().Err(err).Msg("invoice export load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load invoices")
		return
	}
	if len(items) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no invoices to export")
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	files := make([]zip.File, 0, len(items))
	for i := range items {
		data, err := json.MarshalIndent(toInvoiceResponse(&items[i], locale), "", "  ")
		if err != nil {
			a.Logger.Error().Err(err).Str("invoice_id", items[i].ID).Msg("invoice export encode failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to encode invoices")
			return
		}
		files = append(files, zip.File{
			Name: fmt.Sprintf("%s.json", items[i].Number),
			Data: data,
		})
	}

	archive, err := zip.Archive(files)
	if err != nil {
		a.Logger.Error().Err(err).Msg("invoice export archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
