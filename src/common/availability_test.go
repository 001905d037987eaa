package common

import (
	"errors"
	"log"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockdb, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockdb}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

func TestReserveUnitClaimsAvailableUnit(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "units"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ReserveUnit(gormDB, 7, 3, 11)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveUnitAlreadyHeld(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "units"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM "units"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(7, "reserved"))

	err := ReserveUnit(gormDB, 7, 3, 11)
	assert.ErrorIs(t, err, ErrUnitUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveUnitMissingUnit(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "units"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM "units"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))

	err := ReserveUnit(gormDB, 404, 3, 11)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseUnitStaleCancelIsNotAnError(t *testing.T) {
	gormDB, mock := newMockDB(t)

	// unit was re-reserved by another sale, the release matches nothing
	mock.ExpectExec(`UPDATE "units"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ReleaseUnit(gormDB, 7, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseUnitRevertsOwnReservation(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "units"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ReleaseUnit(gormDB, 7, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUnitSoldRequiresOwnedReservation(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "units"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := MarkUnitSold(gormDB, 7, 3)
	assert.ErrorIs(t, err, ErrPersistenceConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUnitSold(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "units"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := MarkUnitSold(gormDB, 7, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidStateTransitionErrorMessage(t *testing.T) {
	err := &InvalidStateTransitionError{From: "enquiry", To: "completed"}
	var target *InvalidStateTransitionError
	assert.True(t, errors.As(err, &target))
	assert.Contains(t, err.Error(), "enquiry")
	assert.Contains(t, err.Error(), "completed")
}
