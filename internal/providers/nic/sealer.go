package nic

import (
	"context"
	"encoding/json"
	"fmt"

	"billserver/internal/domain"
)

// JSONSealer renders an invoice into the gateway's request schema as plain
// JSON. The sandbox environment accepts unencrypted payloads; production
// deployments wrap this with the encrypting sealer issued alongside the API
// credentials.
type JSONSealer struct{}

type sealedItem struct {
	SlNo          string  `json:"SlNo"`
	ProductDesc   string  `json:"PrdDesc"`
	Quantity      int     `json:"Qty"`
	UnitPrice     float64 `json:"UnitPrice"`
	TotalAmount   float64 `json:"TotAmt"`
	GSTRate       int     `json:"GstRt"`
	ItemTotal     float64 `json:"TotItemVal"`
	IsService     string  `json:"IsServc"`
	AssessableAmt float64 `json:"AssAmt"`
}

type sealedInvoice struct {
	Version  string `json:"Version"`
	TranDtls struct {
		TaxSch string `json:"TaxSch"`
		SupTyp string `json:"SupTyp"`
	} `json:"TranDtls"`
	DocDtls struct {
		Typ string `json:"Typ"`
		No  string `json:"No"`
		Dt  string `json:"Dt"`
	} `json:"DocDtls"`
	BuyerDtls struct {
		Gstin string `json:"Gstin"`
		LglNm string `json:"LglNm"`
		Pos   string `json:"Pos"`
	} `json:"BuyerDtls"`
	ItemList []sealedItem `json:"ItemList"`
	ValDtls  struct {
		AssVal    float64 `json:"AssVal"`
		TotInvVal float64 `json:"TotInvVal"`
	} `json:"ValDtls"`
}

func (JSONSealer) Seal(_ context.Context, inv *domain.Invoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("nic: nil invoice")
	}
	var payload sealedInvoice
	payload.Version = "1.1"
	payload.TranDtls.TaxSch = "GST"
	payload.TranDtls.SupTyp = "B2B"
	payload.DocDtls.Typ = "INV"
	payload.DocDtls.No = inv.Number
	payload.DocDtls.Dt = inv.CreatedAt.Format("02/01/2006")
	payload.BuyerDtls.Gstin = inv.BuyerGSTIN
	payload.BuyerDtls.LglNm = inv.BuyerName
	payload.BuyerDtls.Pos = inv.PlaceOfSupply

	for i, line := range inv.Lines {
		payload.ItemList = append(payload.ItemList, sealedItem{
			SlNo:          fmt.Sprintf("%d", i+1),
			ProductDesc:   line.Description,
			Quantity:      line.Quantity,
			UnitPrice:     minorToRupees(line.UnitPrice),
			TotalAmount:   minorToRupees(line.Amount),
			GSTRate:       line.TaxRatePct,
			ItemTotal:     minorToRupees(line.Amount),
			IsService:     "N",
			AssessableAmt: minorToRupees(line.Amount),
		})
	}
	payload.ValDtls.AssVal = minorToRupees(inv.Subtotal)
	payload.ValDtls.TotInvVal = minorToRupees(inv.Total)

	return json.Marshal(payload)
}

func minorToRupees(paise int64) float64 {
	return float64(paise) / 100
}
