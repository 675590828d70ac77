// Package processor реализует обработку платёжного цикла подписки —
// точку входа автоматизации, доступную любому вызывающему.
//
// Один вызов ProcessPayment выполняет одну попытку цикла: проверки
// существования и активности, приоритетные проверки истечения, проверку
// срока платежа, предварительные проверки финансирования и, при успехе,
// два перевода токенов с обновлением учёта. Недостаток средств или лимита —
// мягкий отказ: вызов завершается успешно, отказ виден только в событиях
// и счётчиках; третий подряд отказ отменяет подписку тем же вызовом.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stablerent/stablerent/internal/lib/sl"
	"github.com/stablerent/stablerent/internal/metrics"
	"github.com/stablerent/stablerent/internal/models"
	"github.com/stablerent/stablerent/internal/storage/repository"
	"github.com/stablerent/stablerent/internal/token"
)

// LedgerTx транзакция платёжного цикла с заблокированной строкой подписки.
type LedgerTx interface {
	GetSubscriptionForUpdate(ctx context.Context, id int64) (*models.Subscription, error)
	RecordPaymentSuccess(ctx context.Context, id, paymentCount, nextPaymentDue int64) error
	RecordPaymentFailure(ctx context.Context, id, failedPaymentCount int64, deactivate bool) error
	Deactivate(ctx context.Context, id int64) error
	Commit() error
	Rollback() error
}

// Ledger открывает транзакции платёжных циклов.
type Ledger interface {
	Begin(ctx context.Context) (LedgerTx, error)
}

// TokenClient адаптер перевода токенов: проверки финансирования и списания.
type TokenClient interface {
	BalanceOf(ctx context.Context, address string) (int64, error)
	Allowance(ctx context.Context, owner string) (int64, error)
	TransferFrom(ctx context.Context, owner, to string, amount int64, reference string) (*token.TransferResult, error)
}

// Cache инвалидация кеша записей после изменения состояния.
type Cache interface {
	Invalidate(key string) error
}

// EventPublisher публикует события реестра для внешних потребителей.
type EventPublisher interface {
	Publish(routingKey string, event any) error
}

// OutcomeStatus итог платёжного цикла.
type OutcomeStatus string

// Возможные итоги успешного вызова ProcessPayment.
const (
	OutcomeProcessed OutcomeStatus = "processed"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// Outcome описывает результат вызова ProcessPayment для вызывающего.
type Outcome struct {
	Status             OutcomeStatus `json:"status"`
	Reason             string        `json:"reason,omitempty"`
	PaymentCount       int64         `json:"payment_count,omitempty"`
	FailedPaymentCount int64         `json:"failed_payment_count,omitempty"`
	NextPaymentDue     int64         `json:"next_payment_due,omitempty"`
	AutoCancelled      bool          `json:"auto_cancelled,omitempty"`
}

// Service обработчик платёжных циклов.
type Service struct {
	ledger Ledger
	token  TokenClient
	cache  Cache
	events EventPublisher
	log    *slog.Logger
	now    func() time.Time
}

// New создает новый обработчик платёжных циклов.
func New(ledger Ledger, tokenClient TokenClient, cache Cache, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		ledger: ledger,
		token:  tokenClient,
		cache:  cache,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// sqlLedger адаптирует хранилище к интерфейсу Ledger.
type sqlLedger struct {
	storage *repository.Storage
}

// NewLedger оборачивает хранилище в Ledger для обработчика.
func NewLedger(storage *repository.Storage) Ledger {
	return sqlLedger{storage: storage}
}

func (l sqlLedger) Begin(ctx context.Context) (LedgerTx, error) {
	return l.storage.Begin(ctx)
}

// ProcessPayment выполняет одну попытку платёжного цикла подписки id.
// Вызов доступен любому адресу — ограничений на вызывающего нет намеренно.
//
// Жёсткие отказы (несуществующий id, неактивная подписка, ненаступивший срок,
// ошибка перевода) возвращаются ошибкой без изменения состояния. Мягкие отказы
// финансирования и отмены по истечению возвращаются успешным Outcome.
func (s *Service) ProcessPayment(ctx context.Context, id int64) (*Outcome, error) {
	const op = "processor.ProcessPayment"
	log := s.log.With(slog.String("op", op), slog.Int64("id", id))
	now := s.now().Unix()

	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sub, err := tx.GetSubscriptionForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive {
		return nil, models.ErrSubscriptionNotActive
	}

	// Проверки истечения идут раньше проверки срока и отменяют подписку,
	// не расходуя счётчик неудач и не трогая токены.
	if sub.IsExpiredByEndDate(now) {
		outcome, err := s.expire(ctx, tx, sub, models.ReasonExpiredEndDate, now)
		if err == nil {
			committed = true
		}
		return outcome, err
	}
	if sub.IsExpiredByMaxPayments() {
		outcome, err := s.expire(ctx, tx, sub, models.ReasonExpiredMaxPayments, now)
		if err == nil {
			committed = true
		}
		return outcome, err
	}

	if now < sub.NextPaymentDue {
		return nil, models.ErrPaymentNotDueYet
	}

	total := sub.TotalCharge()
	balance, err := s.token.BalanceOf(ctx, sub.SenderAddress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if balance < total {
		outcome, err := s.softFail(ctx, tx, sub, models.FailureInsufficientBalance, now)
		if err == nil {
			committed = true
		}
		return outcome, err
	}
	allowance, err := s.token.Allowance(ctx, sub.SenderAddress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if allowance < total {
		outcome, err := s.softFail(ctx, tx, sub, models.FailureInsufficientAllowance, now)
		if err == nil {
			committed = true
		}
		return outcome, err
	}

	// Успешный цикл: перевод суммы получателю и комиссии процессору.
	// Ошибка любого перевода откатывает транзакцию целиком — учёт не меняется.
	cycle := sub.PaymentCount + 1
	paymentRef := fmt.Sprintf("payment:%d:%d", sub.ID, cycle)
	if _, err := s.token.TransferFrom(ctx, sub.SenderAddress, sub.RecipientAddress, sub.Amount, paymentRef); err != nil {
		return nil, fmt.Errorf("%s: principal transfer: %w", op, err)
	}
	if sub.ProcessorFee > 0 {
		feeRef := fmt.Sprintf("fee:%d:%d", sub.ID, cycle)
		if _, err := s.token.TransferFrom(ctx, sub.SenderAddress, sub.ProcessorFeeAddress, sub.ProcessorFee, feeRef); err != nil {
			return nil, fmt.Errorf("%s: fee transfer: %w", op, err)
		}
	}

	nextDue := sub.NextPaymentDue + sub.Interval
	if err := tx.RecordPaymentSuccess(ctx, sub.ID, cycle, nextDue); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	committed = true

	metrics.PaymentsProcessed.Inc()
	s.invalidate(sub.ID)

	event := models.PaymentProcessedEvent{
		ID:             sub.ID,
		SenderAddress:  sub.SenderAddress,
		SenderID:       sub.SenderID,
		RecipientID:    sub.RecipientID,
		Amount:         sub.Amount,
		PaymentCount:   cycle,
		Timestamp:      now,
		NextPaymentDue: nextDue,
	}
	if err := s.events.Publish(models.RoutingKeyPaymentProcessed, event); err != nil {
		log.Error("failed to publish payment processed event", sl.Err(err))
	}

	log.Info("payment processed",
		slog.Int64("payment_count", cycle),
		slog.Int64("next_payment_due", nextDue))

	return &Outcome{
		Status:         OutcomeProcessed,
		PaymentCount:   cycle,
		NextPaymentDue: nextDue,
	}, nil
}

// expire отменяет истекшую подписку без попытки перевода.
func (s *Service) expire(ctx context.Context, tx LedgerTx, sub *models.Subscription, reason models.CancellationReason, now int64) (*Outcome, error) {
	const op = "processor.expire"
	if err := tx.Deactivate(ctx, sub.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SubscriptionsCancelled.WithLabelValues(string(reason)).Inc()
	s.invalidate(sub.ID)
	s.publishCancelled(sub, reason, now)

	s.log.Info("subscription expired",
		slog.Int64("id", sub.ID),
		slog.String("reason", string(reason)))

	return &Outcome{
		Status: OutcomeCancelled,
		Reason: string(reason),
	}, nil
}

// softFail фиксирует мягкий отказ цикла; на третьем подряд отказе
// подписка отменяется тем же вызовом.
func (s *Service) softFail(ctx context.Context, tx LedgerTx, sub *models.Subscription, reason models.FailureReason, now int64) (*Outcome, error) {
	const op = "processor.softFail"
	failed := sub.FailedPaymentCount + 1
	deactivate := failed >= models.MaxFailedPayments

	if err := tx.RecordPaymentFailure(ctx, sub.ID, failed, deactivate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PaymentsFailed.WithLabelValues(string(reason)).Inc()
	s.invalidate(sub.ID)

	failedEvent := models.PaymentFailedEvent{
		ID:                 sub.ID,
		SenderAddress:      sub.SenderAddress,
		SenderID:           sub.SenderID,
		RecipientID:        sub.RecipientID,
		Amount:             sub.Amount,
		Timestamp:          now,
		Reason:             string(reason),
		FailedPaymentCount: failed,
	}
	if err := s.events.Publish(models.RoutingKeyPaymentFailed, failedEvent); err != nil {
		s.log.Error("failed to publish payment failed event", sl.Err(err))
	}

	if deactivate {
		metrics.SubscriptionsCancelled.WithLabelValues(string(models.ReasonAutoCancelled)).Inc()
		s.publishCancelled(sub, models.ReasonAutoCancelled, now)
	}

	s.log.Info("payment cycle failed",
		slog.Int64("id", sub.ID),
		slog.String("reason", string(reason)),
		slog.Int64("failed_payment_count", failed),
		slog.Bool("auto_cancelled", deactivate))

	return &Outcome{
		Status:             OutcomeFailed,
		Reason:             string(reason),
		FailedPaymentCount: failed,
		AutoCancelled:      deactivate,
	}, nil
}

func (s *Service) publishCancelled(sub *models.Subscription, reason models.CancellationReason, now int64) {
	event := models.SubscriptionCancelledEvent{
		ID:            sub.ID,
		SenderAddress: sub.SenderAddress,
		SenderID:      sub.SenderID,
		RecipientID:   sub.RecipientID,
		Timestamp:     now,
		Reason:        string(reason),
	}
	if err := s.events.Publish(models.RoutingKeySubscriptionCancelled, event); err != nil {
		s.log.Error("failed to publish subscription cancelled event", sl.Err(err))
	}
}

func (s *Service) invalidate(id int64) {
	cacheKey := fmt.Sprintf("subscription:%d", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
