package common

import (
	"errors"
	"ptx/src/db"
	"ptx/src/types"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionHappyPath(t *testing.T) {
	path := []types.SaleStatus{
		types.SALE_ENQUIRY,
		types.SALE_RESERVATION_PENDING,
		types.SALE_RESERVED,
		types.SALE_AGREED,
		types.SALE_CONTRACT_EXCHANGE,
		types.SALE_COMPLETED,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.Truef(t, CanTransition(path[i], path[i+1]), "%s -> %s should be allowed", path[i], path[i+1])
	}
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	assert.False(t, CanTransition(types.SALE_ENQUIRY, types.SALE_RESERVED))
	assert.False(t, CanTransition(types.SALE_ENQUIRY, types.SALE_COMPLETED))
	assert.False(t, CanTransition(types.SALE_RESERVATION_PENDING, types.SALE_AGREED))
	assert.False(t, CanTransition(types.SALE_RESERVED, types.SALE_COMPLETED))
}

func TestCanTransitionRejectsBackwards(t *testing.T) {
	assert.False(t, CanTransition(types.SALE_RESERVED, types.SALE_ENQUIRY))
	assert.False(t, CanTransition(types.SALE_AGREED, types.SALE_RESERVED))
	assert.False(t, CanTransition(types.SALE_COMPLETED, types.SALE_CONTRACT_EXCHANGE))
}

func TestCancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []types.SaleStatus{
		types.SALE_ENQUIRY,
		types.SALE_RESERVATION_PENDING,
		types.SALE_RESERVED,
		types.SALE_AGREED,
		types.SALE_CONTRACT_EXCHANGE,
	} {
		assert.Truef(t, CanTransition(from, types.SALE_CANCELLED), "%s should be cancellable", from)
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	assert.True(t, IsTerminal(types.SALE_COMPLETED))
	assert.True(t, IsTerminal(types.SALE_CANCELLED))
	assert.False(t, CanTransition(types.SALE_COMPLETED, types.SALE_CANCELLED))
	assert.False(t, CanTransition(types.SALE_CANCELLED, types.SALE_ENQUIRY))
}

func TestStageForStatusCoversAllStatuses(t *testing.T) {
	for status := range transitionTable {
		assert.NotEmptyf(t, StageFor(status), "status %s has no stage mapping", status)
	}
	assert.Equal(t, types.STAGE_RESERVATION, StageFor(types.SALE_RESERVATION_PENDING))
	assert.Equal(t, types.STAGE_RESERVATION, StageFor(types.SALE_RESERVED))
	assert.Equal(t, types.STAGE_COMPLETION, StageFor(types.SALE_COMPLETED))
	assert.Equal(t, types.STAGE_CANCELLED, StageFor(types.SALE_CANCELLED))
}

func TestTransitionRejectsInvalidMoveWithoutWrites(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "sales"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "unit_id", "status"}).
			AddRow(3, 7, string(types.SALE_ENQUIRY)))
	mock.ExpectRollback()

	_, err := Transition(3, types.SALE_COMPLETED, "user:1", "")
	var invalid *InvalidStateTransitionError
	assert.True(t, errors.As(err, &invalid))
	assert.NoError(t, mock.ExpectationsWereMet())
}
