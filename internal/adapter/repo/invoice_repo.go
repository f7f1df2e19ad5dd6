package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"billserver/internal/domain"
	"billserver/internal/infra"
	"billserver/internal/sqlinline"
)

// InvoiceRepositoryPG implements domain.InvoiceRepository backed by PostgreSQL.
type InvoiceRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewInvoiceRepository creates a new InvoiceRepositoryPG.
func NewInvoiceRepository(sql infra.SQLExecutor) *InvoiceRepositoryPG {
	return &InvoiceRepositoryPG{sql: sql}
}

func (r *InvoiceRepositoryPG) Create(ctx context.Context, inv *domain.Invoice) error {
	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return fmt.Errorf("encode invoice lines: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertInvoice,
		inv.ID, inv.UserID, inv.Number,
		inv.BuyerName, inv.BuyerGSTIN, inv.PlaceOfSupply, inv.Currency,
		lines, inv.Subtotal, inv.TaxAmount, inv.Total,
		inv.Watermark, string(inv.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateInvoice
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepositoryPG) GetByID(ctx context.Context, id, userID string) (*domain.Invoice, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectInvoiceByID, id, userID)
	return scanInvoice(row)
}

func (r *InvoiceRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectInvoicesByUser, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var items []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *inv)
	}
	return items, rows.Err()
}

func (r *InvoiceRepositoryPG) SetIRN(ctx context.Context, id, userID, irn, ackNo string, ackDate int64) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetInvoiceIRN, id, userID, irn, ackNo, ackDate)
	if err != nil {
		return fmt.Errorf("set invoice irn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	var lines []byte
	var irn, ackNo *string
	var ackDate *time.Time
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.Number,
		&inv.BuyerName, &inv.BuyerGSTIN, &inv.PlaceOfSupply, &inv.Currency,
		&lines, &inv.Subtotal, &inv.TaxAmount, &inv.Total,
		&inv.Watermark, &inv.Status, &irn, &ackNo, &ackDate,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &inv.Lines); err != nil {
			return nil, fmt.Errorf("decode invoice lines: %w", err)
		}
	}
	if irn != nil {
		inv.IRN = *irn
	}
	if ackNo != nil {
		inv.AckNo = *ackNo
	}
	inv.AckDate = ackDate
	return &inv, nil
}
