package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablerent/stablerent/internal/models"
)

func TestStorage_CreateSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	sub := GetTestSubscription(now)

	ctx := context.Background()
	firstID, err := storage.CreateSubscription(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, int64(1), firstID)

	// Идентификаторы выдаются последовательно.
	secondID, err := storage.CreateSubscription(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, int64(2), secondID)

	verification := NewTestVerification(storage)
	verification.VerifySubscriptionActive(t, firstID, true)
	verification.VerifyPaymentCounters(t, firstID, 0, 0, now)
}

func TestStorage_GetSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	factory := NewTestDataFactory(storage)
	id := factory.CreateSubscription(t, GetTestSubscription(now))

	ctx := context.Background()
	got, err := storage.GetSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "0xsender", got.SenderAddress)
	assert.Equal(t, int64(10_000000), got.Amount)
	assert.Equal(t, int64(500000), got.ProcessorFee)
	assert.Equal(t, models.MinInterval, got.Interval)
	assert.True(t, got.IsActive)

	_, err = storage.GetSubscription(ctx, 999)
	assert.ErrorIs(t, err, models.ErrSubscriptionDoesNotExist)
}

func TestStorage_ListUserSubscriptionIDs(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	factory := NewTestDataFactory(storage)

	first := factory.CreateSubscription(t, GetTestSubscription(now))
	other := GetTestSubscription(now)
	other.SenderAddress = "0xother"
	factory.CreateSubscription(t, other)
	second := factory.CreateSubscription(t, GetTestSubscription(now))

	ctx := context.Background()
	ids, err := storage.ListUserSubscriptionIDs(ctx, "0xsender")
	require.NoError(t, err)
	// Порядок создания, без чужих подписок.
	assert.Equal(t, []int64{first, second}, ids)

	ids, err = storage.ListUserSubscriptionIDs(ctx, "0xunknown")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStorage_ListDueSubscriptionIDs(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	factory := NewTestDataFactory(storage)

	due := factory.CreateSubscription(t, GetTestSubscription(now))

	notDue := GetTestSubscription(now)
	notDue.NextPaymentDue = now + 1000
	factory.CreateSubscription(t, notDue)

	inactive := GetTestSubscription(now)
	inactive.IsActive = false
	factory.CreateSubscription(t, inactive)

	expiredByEndDate := GetTestSubscription(now)
	expiredByEndDate.EndDate = now - 10
	factory.CreateSubscription(t, expiredByEndDate)

	exhausted := GetTestSubscription(now)
	exhausted.MaxPayments = 2
	exhausted.PaymentCount = 2
	factory.CreateSubscription(t, exhausted)

	ids, err := storage.ListDueSubscriptionIDs(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []int64{due}, ids)
}

func TestStorage_CancelSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	factory := NewTestDataFactory(storage)
	id := factory.CreateSubscription(t, GetTestSubscription(now))

	ctx := context.Background()
	rows, err := storage.CancelSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	verification := NewTestVerification(storage)
	verification.VerifySubscriptionActive(t, id, false)

	// Повторная отмена не находит активной строки.
	rows, err = storage.CancelSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
}

func TestTx_RecordPaymentSuccess(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	factory := NewTestDataFactory(storage)
	sub := GetTestSubscription(now)
	sub.PaymentCount = 2
	sub.FailedPaymentCount = 2
	id := factory.CreateSubscription(t, sub)

	ctx := context.Background()
	tx, err := storage.Begin(ctx)
	require.NoError(t, err)

	locked, err := tx.GetSubscriptionForUpdate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), locked.PaymentCount)

	nextDue := locked.NextPaymentDue + locked.Interval
	require.NoError(t, tx.RecordPaymentSuccess(ctx, id, locked.PaymentCount+1, nextDue))
	require.NoError(t, tx.Commit())

	// Успех сбрасывает счётчик подряд идущих неудач.
	verification := NewTestVerification(storage)
	verification.VerifyPaymentCounters(t, id, 3, 0, nextDue)
}

func TestTx_RecordPaymentFailure(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	factory := NewTestDataFactory(storage)
	id := factory.CreateSubscription(t, GetTestSubscription(now))

	ctx := context.Background()
	verification := NewTestVerification(storage)

	// Первый отказ: счётчик растёт, подписка активна, срок не сдвигается.
	tx, err := storage.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.RecordPaymentFailure(ctx, id, 1, false))
	require.NoError(t, tx.Commit())
	verification.VerifyPaymentCounters(t, id, 0, 1, now)
	verification.VerifySubscriptionActive(t, id, true)

	// Третий отказ с деактивацией.
	tx, err = storage.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.RecordPaymentFailure(ctx, id, 3, true))
	require.NoError(t, tx.Commit())
	verification.VerifyPaymentCounters(t, id, 0, 3, now)
	verification.VerifySubscriptionActive(t, id, false)
}

func TestTx_GetSubscriptionForUpdate(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	tx, err := storage.Begin(ctx)
	require.NoError(t, err)
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.GetSubscriptionForUpdate(ctx, 999)
	assert.ErrorIs(t, err, models.ErrSubscriptionDoesNotExist)
}

func TestTx_RollbackDiscardsChanges(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().Unix()
	factory := NewTestDataFactory(storage)
	id := factory.CreateSubscription(t, GetTestSubscription(now))

	ctx := context.Background()
	tx, err := storage.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Deactivate(ctx, id))
	require.NoError(t, tx.Rollback())

	verification := NewTestVerification(storage)
	verification.VerifySubscriptionActive(t, id, true)
}

func TestCheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	require.NoError(t, CheckDatabaseReady(storage))

	_, err := storage.DB.Exec(`DROP TABLE subscriptions CASCADE`)
	require.NoError(t, err)
	assert.Error(t, CheckDatabaseReady(storage))
}
