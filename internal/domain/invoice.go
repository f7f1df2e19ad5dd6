package domain

import "time"

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"
	InvoiceStatusSubmitted InvoiceStatus = "IRN_SUBMITTED"
)

// InvoiceLine is a single billable line on an invoice. Monetary values are
// minor units (paise).
type InvoiceLine struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TaxRatePct  int    `json:"tax_rate_pct"`
	Amount      int64  `json:"amount"`
}

// Invoice is a persisted sales invoice. IRN fields are populated after a
// successful e-invoicing submission.
type Invoice struct {
	ID            string
	UserID        string
	Number        string
	BuyerName     string
	BuyerGSTIN    string
	PlaceOfSupply string
	Currency      string
	Lines         []InvoiceLine
	Subtotal      int64
	TaxAmount     int64
	Total         int64
	Watermark     bool
	Status        InvoiceStatus
	IRN           string
	AckNo         string
	AckDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
