package common

import (
	"ptx/src/db"
	"ptx/src/models"
	"ptx/src/types"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestSumPaidCountsOnlySettledPayments(t *testing.T) {
	payments := []models.Payment{
		{Amount: 500_000, Type: types.PAYMENT_BOOKING_DEPOSIT, Status: types.PAYMENT_COMPLETED},
		{Amount: 2_000_000, Type: types.PAYMENT_STAGE_PAYMENT, Status: types.PAYMENT_COMPLETED},
		{Amount: 1_000_000, Type: types.PAYMENT_STAGE_PAYMENT, Status: types.PAYMENT_PENDING},
		{Amount: 750_000, Type: types.PAYMENT_STAGE_PAYMENT, Status: types.PAYMENT_FAILED},
	}
	paid, deposit := SumPaid(payments)
	assert.Equal(t, int64(2_500_000), paid)
	assert.Equal(t, int64(500_000), deposit)
}

func TestSumPaidSubtractsRefunds(t *testing.T) {
	payments := []models.Payment{
		{Amount: 500_000, Type: types.PAYMENT_BOOKING_DEPOSIT, Status: types.PAYMENT_REFUNDED, RefundAmount: 500_000},
		{Amount: 2_000_000, Type: types.PAYMENT_STAGE_PAYMENT, Status: types.PAYMENT_REFUNDED, RefundAmount: 300_000},
	}
	paid, deposit := SumPaid(payments)
	assert.Equal(t, int64(1_700_000), paid)
	assert.Equal(t, int64(0), deposit)
}

func TestSumPaidEmpty(t *testing.T) {
	paid, deposit := SumPaid(nil)
	assert.Zero(t, paid)
	assert.Zero(t, deposit)
}

func TestHandlePaymentSucceededUnknownPayment(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "status"}))
	mock.ExpectRollback()

	_, _, err := HandlePaymentSucceeded("pi_does_not_exist", "", 500_000, "payment-provider")
	assert.ErrorIs(t, err, ErrUnknownPayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentSucceededReplayIsNoOp(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "status", "provider_reference", "type"}).
			AddRow("7d4f3a1e-9f10-4e2a-8a61-2b6f6a1f0c01", 3, 500_000, "completed", "pi_replayed", "booking_deposit"))
	mock.ExpectQuery(`SELECT .+ FROM "sales"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "reference_number", "status", "total_paid"}).
			AddRow(3, "RIVERSIDE-3F2A9C1B", "reserved", 500_000))
	mock.ExpectCommit()

	payment, sale, err := HandlePaymentSucceeded("pi_replayed", "", 500_000, "payment-provider")
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_COMPLETED, payment.Status)
	assert.Equal(t, int64(500_000), sale.TotalPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentFailedAfterSettlementIsIgnored(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "status", "provider_reference"}).
			AddRow("7d4f3a1e-9f10-4e2a-8a61-2b6f6a1f0c01", 3, 500_000, "completed", "pi_settled"))
	mock.ExpectCommit()

	payment, err := HandlePaymentFailed("pi_settled", "card declined")
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_COMPLETED, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRefundOverRefundRejected(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "status", "charge_reference"}).
			AddRow("7d4f3a1e-9f10-4e2a-8a61-2b6f6a1f0c01", 3, 500_000, "completed", "ch_1"))
	mock.ExpectRollback()

	_, _, err := HandleRefund("ch_1", "", 600_000, "payment-provider")
	assert.ErrorIs(t, err, ErrInvalidRefundAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumPaidIsOrderIndependent(t *testing.T) {
	a := []models.Payment{
		{Amount: 100, Status: types.PAYMENT_COMPLETED},
		{Amount: 200, Status: types.PAYMENT_REFUNDED, RefundAmount: 50},
		{Amount: 300, Status: types.PAYMENT_COMPLETED},
	}
	b := []models.Payment{a[2], a[0], a[1]}
	paidA, _ := SumPaid(a)
	paidB, _ := SumPaid(b)
	assert.Equal(t, paidA, paidB)
}

func TestHandlePaymentSucceededAfterRefundIsIgnored(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "refund_amount", "status", "provider_reference", "type"}).
			AddRow("7d4f3a1e-9f10-4e2a-8a61-2b6f6a1f0c01", 3, 500_000, 500_000, "refunded", "pi_refunded", "booking_deposit"))
	mock.ExpectQuery(`SELECT .+ FROM "sales"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "reference_number", "status", "total_paid"}).
			AddRow(3, "RIVERSIDE-3F2A9C1B", "reserved", 0))
	mock.ExpectCommit()

	payment, _, err := HandlePaymentSucceeded("pi_refunded", "ch_1", 500_000, "payment-provider")
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_REFUNDED, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleTotalsAfterSuccessThenPartialRefund(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	stageID := "9b2c51d0-44aa-4a36-9f7b-0c8e2d1a7f02"
	depositID := "7d4f3a1e-9f10-4e2a-8a61-2b6f6a1f0c01"

	// stage payment of 2,000,000 settles against an agreed price of
	// 10,000,000 with a 500,000 deposit already paid
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "status", "provider_reference", "type"}).
			AddRow(stageID, 3, 2_000_000, "pending", "pi_stage", "stage_payment"))
	mock.ExpectExec(`UPDATE "payments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "refund_amount", "status", "type"}).
			AddRow(depositID, 3, 500_000, 0, "completed", "booking_deposit").
			AddRow(stageID, 3, 2_000_000, 0, "completed", "stage_payment"))
	mock.ExpectQuery(`SELECT .+ FROM "sales"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "reference_number", "status", "agreed_price"}).
			AddRow(3, "RIVERSIDE-3F2A9C1B", "reserved", 10_000_000))
	mock.ExpectExec(`UPDATE "sales"`).
		WithArgs(int64(500_000), int64(7_500_000), int64(2_500_000), sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "sale_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1a2b3d4-0000-4000-8000-000000000001"))
	mock.ExpectCommit()

	_, sale, err := HandlePaymentSucceeded("pi_stage", "ch_9", 2_000_000, "payment-provider")
	assert.NoError(t, err)
	assert.Equal(t, int64(2_500_000), sale.TotalPaid)
	assert.Equal(t, sale.AgreedPrice-sale.TotalPaid, sale.OutstandingBalance)

	// then 300,000 of the stage payment is refunded
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "refund_amount", "status", "provider_reference", "charge_reference", "type"}).
			AddRow(stageID, 3, 2_000_000, 0, "completed", "pi_stage", "ch_9", "stage_payment"))
	mock.ExpectExec(`UPDATE "payments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM "payments"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "sale_id", "amount", "refund_amount", "status", "type"}).
			AddRow(depositID, 3, 500_000, 0, "completed", "booking_deposit").
			AddRow(stageID, 3, 2_000_000, 300_000, "refunded", "stage_payment"))
	mock.ExpectQuery(`SELECT .+ FROM "sales"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "reference_number", "status", "agreed_price"}).
			AddRow(3, "RIVERSIDE-3F2A9C1B", "reserved", 10_000_000))
	mock.ExpectExec(`UPDATE "sales"`).
		WithArgs(int64(500_000), int64(7_800_000), int64(2_200_000), sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "sale_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1a2b3d4-0000-4000-8000-000000000002"))
	mock.ExpectCommit()

	_, sale, err = HandleRefund("ch_9", "pi_stage", 300_000, "payment-provider")
	assert.NoError(t, err)
	assert.Equal(t, int64(2_200_000), sale.TotalPaid)
	assert.Equal(t, int64(7_800_000), sale.OutstandingBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
