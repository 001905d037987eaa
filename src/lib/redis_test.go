package lib

import (
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestEventSeenOnlyAfterMark(t *testing.T) {
	client, mock := redismock.NewClientMock()
	NewRedisClient(client)

	mock.ExpectExists("stripe:event:evt_1").SetVal(0)
	assert.False(t, EventSeen("evt_1"))

	mock.ExpectSet("stripe:event:evt_1", 1, 24*time.Hour).SetVal("OK")
	MarkEventSeen("evt_1")

	mock.ExpectExists("stripe:event:evt_1").SetVal(1)
	assert.True(t, EventSeen("evt_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventSeenLeavesRetryOpenWhenRedisErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	NewRedisClient(client)

	mock.ExpectExists("stripe:event:evt_2").SetErr(errors.New("connection refused"))
	assert.False(t, EventSeen("evt_2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
