package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stablerent/stablerent/internal/models"
)

// subscriptionColumns список колонок записи подписки в порядке сканирования.
const subscriptionColumns = `id, sender_address, sender_id, recipient_id, amount, processor_fee,
	payment_interval, next_payment_due, end_date, max_payments, payment_count,
	failed_payment_count, is_active, service_name, recipient_address, sender_currency,
	recipient_currency, processor_fee_address, processor_fee_currency, processor_fee_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(&sub.ID, &sub.SenderAddress, &sub.SenderID, &sub.RecipientID,
		&sub.Amount, &sub.ProcessorFee, &sub.Interval, &sub.NextPaymentDue,
		&sub.EndDate, &sub.MaxPayments, &sub.PaymentCount, &sub.FailedPaymentCount,
		&sub.IsActive, &sub.ServiceName, &sub.RecipientAddress, &sub.SenderCurrency,
		&sub.RecipientCurrency, &sub.ProcessorFeeAddress, &sub.ProcessorFeeCurrency,
		&sub.ProcessorFeeID)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription вставляет новую запись подписки и возвращает её ID.
// Идентификаторы выдаются последовательно начиная с 1 и не переиспользуются.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (sender_address, sender_id, recipient_id, amount,
			      processor_fee, payment_interval, next_payment_due, end_date, max_payments,
			      payment_count, failed_payment_count, is_active, service_name, recipient_address,
			      sender_currency, recipient_currency, processor_fee_address,
			      processor_fee_currency, processor_fee_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		sub.SenderAddress, sub.SenderID, sub.RecipientID, sub.Amount, sub.ProcessorFee,
		sub.Interval, sub.NextPaymentDue, sub.EndDate, sub.MaxPayments,
		sub.PaymentCount, sub.FailedPaymentCount, sub.IsActive, sub.ServiceName,
		sub.RecipientAddress, sub.SenderCurrency, sub.RecipientCurrency,
		sub.ProcessorFeeAddress, sub.ProcessorFeeCurrency, sub.ProcessorFeeID).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает запись подписки по её ID.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrSubscriptionDoesNotExist
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// Tx транзакция платёжного цикла. Пока транзакция открыта, строка
// подписки удерживается под блокировкой FOR UPDATE — это даёт
// взаимное исключение по id, требуемое сериализованной моделью реестра.
type Tx struct {
	tx *sql.Tx
}

// Commit фиксирует транзакцию.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback откатывает транзакцию.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// GetSubscriptionForUpdate возвращает запись подписки под блокировкой строки.
func (t *Tx) GetSubscriptionForUpdate(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.Tx.GetSubscriptionForUpdate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`
	row := t.tx.QueryRowContext(ctx, query, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrSubscriptionDoesNotExist
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListUserSubscriptionIDs возвращает идентификаторы подписок отправителя
// в порядке создания. Для неизвестного адреса возвращается пустой список.
func (s *Storage) ListUserSubscriptionIDs(ctx context.Context, senderAddress string) ([]int64, error) {
	const op = "storage.ListUserSubscriptionIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id FROM subscriptions WHERE sender_address = $1 ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, senderAddress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListDueSubscriptionIDs возвращает идентификаторы подписок, готовых к оплате:
// активные, с наступившим сроком платежа и не истекшие по end_date или
// max_payments. Порядок — по возрастанию id.
func (s *Storage) ListDueSubscriptionIDs(ctx context.Context, now int64) ([]int64, error) {
	const op = "storage.ListDueSubscriptionIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id FROM subscriptions
			  WHERE is_active = true
			    AND next_payment_due <= $1
			    AND (end_date = 0 OR end_date > $1)
			    AND (max_payments = 0 OR payment_count < max_payments)
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RecordPaymentSuccess фиксирует успешный цикл: счётчик платежей,
// сброс счётчика неудач и перенос срока следующего платежа.
func (t *Tx) RecordPaymentSuccess(ctx context.Context, id, paymentCount, nextPaymentDue int64) error {
	const op = "storage.Tx.RecordPaymentSuccess"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET payment_count = $1, failed_payment_count = 0, next_payment_due = $2
			  WHERE id = $3`
	if _, err := t.tx.ExecContext(ctx, query, paymentCount, nextPaymentDue, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecordPaymentFailure фиксирует мягкий отказ цикла. payment_count и
// next_payment_due не меняются; при deactivate подписка отменяется тем же вызовом.
func (t *Tx) RecordPaymentFailure(ctx context.Context, id, failedPaymentCount int64, deactivate bool) error {
	const op = "storage.Tx.RecordPaymentFailure"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET failed_payment_count = $1, is_active = is_active AND NOT $2
			  WHERE id = $3`
	if _, err := t.tx.ExecContext(ctx, query, failedPaymentCount, deactivate, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Deactivate переводит подписку в неактивное состояние внутри транзакции.
func (t *Tx) Deactivate(ctx context.Context, id int64) error {
	const op = "storage.Tx.Deactivate"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET is_active = false WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CancelSubscription переводит подписку в неактивное состояние вне транзакции
// и возвращает количество изменённых строк.
func (s *Storage) CancelSubscription(ctx context.Context, id int64) (int, error) {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET is_active = false WHERE id = $1 AND is_active = true`
	res, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
