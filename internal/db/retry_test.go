package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKeyError(id int64) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.enquiries index: _id_ dup key: { _id: %d }", id),
	}}}
}

func TestWithRetries_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := WithRetries(func() error { calls++; return nil }, 3, IsMongoDuplicateKeyError)

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_OtherErrorStopsImmediately(t *testing.T) {
	boom := errors.New("connection reset")
	calls := 0
	err := WithRetries(func() error { calls++; return boom }, 3, IsMongoDuplicateKeyError)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_RecoversAfterCollision(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		if calls < 3 {
			return duplicateKeyError(int64(calls))
		}
		return nil
	}, 3, IsMongoDuplicateKeyError)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetries_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := WithRetries(func() error { calls++; return duplicateKeyError(7) }, 2, IsMongoDuplicateKeyError)

	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.Equal(t, 3, calls)
}

func TestIsMongoDuplicateKeyError(t *testing.T) {
	assert.True(t, IsMongoDuplicateKeyError(duplicateKeyError(1)))
	assert.True(t, IsMongoDuplicateKeyError(fmt.Errorf("insert: %w", duplicateKeyError(1))))
	assert.True(t, IsMongoDuplicateKeyError(mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}},
	}))
	assert.False(t, IsMongoDuplicateKeyError(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121}}}))
	assert.False(t, IsMongoDuplicateKeyError(errors.New("plain")))
	assert.False(t, IsMongoDuplicateKeyError(nil))
}
