package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// DB — минимальный контракт пула, который нужен репозиторию.
// Отдельный интерфейс позволяет подставить pgxmock в тестах.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type sessionRepository struct {
	db DB
}

// NewSessionRepository создаёт PostgreSQL-реализацию SessionRepository.
func NewSessionRepository(store *Store) domain.SessionRepository {
	return &sessionRepository{db: store.Pool()}
}

// NewSessionRepositoryWithDB создаёт репозиторий поверх произвольного DB (для тестов).
func NewSessionRepositoryWithDB(db DB) domain.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session domain.CheckoutSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO checkout_sessions (
			merchant_uid, order_id, status, total_minor,
			buyer_name, email, phone, street, apartment, post_code, city, country, note,
			failure_reason, failure_code, provider_tx_id, paid_amount_minor,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		session.MerchantUID, session.OrderID, string(session.Status), session.Draft.TotalMinor,
		session.Draft.Shipping.BuyerName, session.Draft.Shipping.Email, session.Draft.Shipping.Phone,
		session.Draft.Shipping.Street, session.Draft.Shipping.Apartment, session.Draft.Shipping.PostCode,
		session.Draft.Shipping.City, session.Draft.Shipping.Country, session.Draft.Shipping.Note,
		session.FailureReason, string(session.FailureCode), session.ProviderTxID, session.PaidAmountMinor,
		session.Version, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}

	for i, item := range session.Draft.Items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO checkout_items (
				merchant_uid, position, product_id, qty, price_minor
			) VALUES ($1,$2,$3,$4,$5)
		`,
			session.MerchantUID, i, item.ProductID, item.Qty, item.PriceMinor,
		); err != nil {
			return fmt.Errorf("insert checkout item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) Get(merchantUID string) (domain.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var session domain.CheckoutSession
	var status, failureCode string

	err := r.db.QueryRow(ctx, `
		SELECT merchant_uid, order_id, status, total_minor,
		       buyer_name, email, phone, street, apartment, post_code, city, country, note,
		       failure_reason, failure_code, provider_tx_id, paid_amount_minor,
		       version, created_at, updated_at
		FROM checkout_sessions
		WHERE merchant_uid = $1
	`, merchantUID).Scan(
		&session.MerchantUID, &session.OrderID, &status, &session.Draft.TotalMinor,
		&session.Draft.Shipping.BuyerName, &session.Draft.Shipping.Email, &session.Draft.Shipping.Phone,
		&session.Draft.Shipping.Street, &session.Draft.Shipping.Apartment, &session.Draft.Shipping.PostCode,
		&session.Draft.Shipping.City, &session.Draft.Shipping.Country, &session.Draft.Shipping.Note,
		&session.FailureReason, &failureCode, &session.ProviderTxID, &session.PaidAmountMinor,
		&session.Version, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CheckoutSession{}, domain.ErrSessionNotFound
		}
		return domain.CheckoutSession{}, fmt.Errorf("select checkout session: %w", err)
	}
	session.Status = domain.CheckoutStatus(status)
	session.FailureCode = domain.FailureCode(failureCode)

	items, err := r.loadItems(ctx, session.MerchantUID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	session.Draft.Items = items

	return session, nil
}

// Save обновляет изменяемую часть сессии с проверкой версии (optimistic locking).
// Черновик после создания неизменяем, поэтому позиции не трогаем.
func (r *sessionRepository) Save(session domain.CheckoutSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE checkout_sessions
		SET order_id = $1,
		    status = $2,
		    failure_reason = $3,
		    failure_code = $4,
		    provider_tx_id = $5,
		    paid_amount_minor = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE merchant_uid = $8
		  AND version = $9
	`,
		session.OrderID,
		string(session.Status),
		session.FailureReason,
		string(session.FailureCode),
		session.ProviderTxID,
		session.PaidAmountMinor,
		session.UpdatedAt,
		session.MerchantUID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		exists, err := r.sessionExists(ctx, session.MerchantUID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrSessionNotFound
		}
		return domain.ErrSessionVersionConflict
	}

	return nil
}

func (r *sessionRepository) loadItems(ctx context.Context, merchantUID string) ([]domain.CartItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, qty, price_minor
		FROM checkout_items
		WHERE merchant_uid = $1
		ORDER BY position ASC
	`, merchantUID)
	if err != nil {
		return nil, fmt.Errorf("load checkout items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Qty, &item.PriceMinor); err != nil {
			return nil, fmt.Errorf("scan checkout item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkout items: %w", err)
	}

	return items, nil
}

func (r *sessionRepository) sessionExists(ctx context.Context, merchantUID string) (bool, error) {
	var uid string
	err := r.db.QueryRow(ctx, `SELECT merchant_uid FROM checkout_sessions WHERE merchant_uid = $1`, merchantUID).Scan(&uid)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check session exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.SessionRepository = (*sessionRepository)(nil)
var _ DB = (*pgxpool.Pool)(nil)
