package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func tNow() time.Time {
	return time.Date(2024, 9, 17, 12, 0, 0, 0, time.UTC)
}

func sampleSession() domain.CheckoutSession {
	return domain.CheckoutSession{
		MerchantUID: "mid_1700000000000_ab12cd34",
		OrderID:     "order-1",
		Draft: domain.OrderDraft{
			Items:      []domain.CartItem{{ProductID: "1", Qty: 2, PriceMinor: 1000}},
			TotalMinor: 2000,
			Shipping: domain.ShippingInfo{
				BuyerName: "Ivan", Email: "i@example.com", Phone: "+7",
				Street: "Lenina 1", Apartment: "2", PostCode: "101000",
				City: "Moscow", Country: "RU", Note: "",
			},
		},
		Status:    domain.CheckoutStatusAwaitingPayment,
		CreatedAt: tNow(),
		UpdatedAt: tNow(),
	}
}

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec("INSERT INTO checkout_sessions").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO checkout_items").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewSessionRepositoryWithDB(mock)
	require.NoError(t, repo.Create(sampleSession()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_CreateDuplicateUID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec("INSERT INTO checkout_sessions").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	repo := NewSessionRepositoryWithDB(mock)
	err = repo.Create(sampleSession())
	require.ErrorIs(t, err, domain.ErrSessionExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions").
		WithArgs("mid_missing").
		WillReturnError(pgx.ErrNoRows)

	repo := NewSessionRepositoryWithDB(mock)
	_, err = repo.Get("mid_missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := sampleSession()

	sessionRows := pgxmock.NewRows([]string{
		"merchant_uid", "order_id", "status", "total_minor",
		"buyer_name", "email", "phone", "street", "apartment", "post_code", "city", "country", "note",
		"failure_reason", "failure_code", "provider_tx_id", "paid_amount_minor",
		"version", "created_at", "updated_at",
	}).AddRow(
		want.MerchantUID, want.OrderID, string(want.Status), want.Draft.TotalMinor,
		want.Draft.Shipping.BuyerName, want.Draft.Shipping.Email, want.Draft.Shipping.Phone,
		want.Draft.Shipping.Street, want.Draft.Shipping.Apartment, want.Draft.Shipping.PostCode,
		want.Draft.Shipping.City, want.Draft.Shipping.Country, want.Draft.Shipping.Note,
		"", "", "", int64(0),
		int64(0), want.CreatedAt, want.UpdatedAt,
	)
	mock.ExpectQuery("SELECT (.+) FROM checkout_sessions").
		WithArgs(want.MerchantUID).
		WillReturnRows(sessionRows)

	itemRows := pgxmock.NewRows([]string{"product_id", "qty", "price_minor"}).
		AddRow("1", int32(2), int64(1000))
	mock.ExpectQuery("SELECT (.+) FROM checkout_items").
		WithArgs(want.MerchantUID).
		WillReturnRows(itemRows)

	repo := NewSessionRepositoryWithDB(mock)
	got, err := repo.Get(want.MerchantUID)
	require.NoError(t, err)
	require.Equal(t, want.OrderID, got.OrderID)
	require.Equal(t, domain.CheckoutStatusAwaitingPayment, got.Status)
	require.Len(t, got.Draft.Items, 1)
	require.Equal(t, int64(2000), got.Draft.TotalMinor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_SaveVersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	session := sampleSession()
	session.Status = domain.CheckoutStatusReconciling

	mock.ExpectExec("UPDATE checkout_sessions").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT merchant_uid FROM checkout_sessions").
		WithArgs(session.MerchantUID).
		WillReturnRows(pgxmock.NewRows([]string{"merchant_uid"}).AddRow(session.MerchantUID))

	repo := NewSessionRepositoryWithDB(mock)
	err = repo.Save(session)
	require.ErrorIs(t, err, domain.ErrSessionVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_SaveMissingSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	session := sampleSession()

	mock.ExpectExec("UPDATE checkout_sessions").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT merchant_uid FROM checkout_sessions").
		WithArgs(session.MerchantUID).
		WillReturnError(pgx.ErrNoRows)

	repo := NewSessionRepositoryWithDB(mock)
	err = repo.Save(session)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	session := sampleSession()
	session.Status = domain.CheckoutStatusPaid

	mock.ExpectExec("UPDATE checkout_sessions").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewSessionRepositoryWithDB(mock)
	require.NoError(t, repo.Save(session))
	require.NoError(t, mock.ExpectationsWereMet())
}
