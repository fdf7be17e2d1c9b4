package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlexZinkM/walletlink/internal/common"
	"github.com/AlexZinkM/walletlink/internal/model"
)

const defaultReceiptsLimit = 100

// InitTipReceiptsTable creates the tip_receipts table
func (sqlm *SQLiteManager) InitTipReceiptsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tip_receipts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		artist_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		amount_lamports INTEGER NOT NULL,
		platform_fee TEXT NOT NULL,
		network_fee TEXT NOT NULL,
		tx_id TEXT NOT NULL,
		signature TEXT NOT NULL,
		explorer_url TEXT NOT NULL,
		payer TEXT NOT NULL,
		confirmed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tip_receipts_artist ON tip_receipts(artist_id);
	CREATE INDEX IF NOT EXISTS idx_tip_receipts_confirmed ON tip_receipts(confirmed_at);
	`
	_, err := sqlm.db.Exec(query)
	return err
}

// SaveReceipt stores a confirmed tip and sets r.ID
func (sqlm *SQLiteManager) SaveReceipt(ctx context.Context, r *model.TipReceipt) error {
	lamports, err := common.SOLToLamports(r.Amount)
	if err != nil {
		return fmt.Errorf("invalid receipt amount: %w", err)
	}

	res, err := sqlm.db.ExecContext(ctx, `
		INSERT INTO tip_receipts (
			session_id, artist_id, amount, amount_lamports, platform_fee, network_fee,
			tx_id, signature, explorer_url, payer, confirmed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.ArtistID, r.Amount, int64(lamports), r.PlatformFee, r.NetworkFee,
		r.TxID, r.Signature, r.ExplorerURL, r.Payer, r.ConfirmedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save tip receipt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read receipt id: %w", err)
	}
	r.ID = id

	sqlm.logger.WithField("sessionId", r.SessionID).Debug("tip receipt saved")
	return nil
}

// ListReceipts returns receipts matching req, newest first, with their SOL total
func (sqlm *SQLiteManager) ListReceipts(ctx context.Context, req *model.ReceiptsRequest) (*model.ReceiptsResponse, error) {
	var (
		where []string
		args  []any
	)
	if req.ArtistID != nil {
		where = append(where, "artist_id = ?")
		args = append(args, *req.ArtistID)
	}
	if req.From != nil {
		where = append(where, "confirmed_at >= ?")
		args = append(args, req.From.UnixMilli())
	}
	if req.To != nil {
		where = append(where, "confirmed_at <= ?")
		args = append(args, req.To.UnixMilli())
	}
	if req.MinAmount != nil {
		lo, err := common.SOLToLamports(*req.MinAmount)
		if err != nil {
			return nil, fmt.Errorf("invalid minAmount: %w", err)
		}
		where = append(where, "amount_lamports >= ?")
		args = append(args, int64(lo))
	}
	if req.MaxAmount != nil {
		hi, err := common.SOLToLamports(*req.MaxAmount)
		if err != nil {
			return nil, fmt.Errorf("invalid maxAmount: %w", err)
		}
		where = append(where, "amount_lamports <= ?")
		args = append(args, int64(hi))
	}

	query := `
		SELECT id, session_id, artist_id, amount, amount_lamports, platform_fee, network_fee,
			tx_id, signature, explorer_url, payer, confirmed_at
		FROM tip_receipts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultReceiptsLimit
	}
	query += " ORDER BY confirmed_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := sqlm.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tip receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]model.TipReceipt, 0, 8)
	var total uint64
	for rows.Next() {
		var (
			r           model.TipReceipt
			lamports    int64
			confirmedAt int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ArtistID, &r.Amount, &lamports, &r.PlatformFee, &r.NetworkFee,
			&r.TxID, &r.Signature, &r.ExplorerURL, &r.Payer, &confirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tip receipt: %w", err)
		}
		r.ConfirmedAt = time.UnixMilli(confirmedAt).UTC()
		total += uint64(lamports)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tip receipts: %w", err)
	}

	return &model.ReceiptsResponse{
		TotalSOL: common.LamportsToSOL(total),
		Receipts: receipts,
	}, nil
}
