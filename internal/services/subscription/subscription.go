// Package services содержит бизнес-логику реестра подписок: создание
// с проверками в фиксированном порядке, отмену владельцем, чтение с кешем,
// пользовательский индекс и выборку подписок к оплате.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stablerent/stablerent/internal/lib/sl"
	"github.com/stablerent/stablerent/internal/metrics"
	"github.com/stablerent/stablerent/internal/models"
)

// SubscriptionRepository определяет методы для работы с реестром в хранилище.
type SubscriptionRepository interface {
	// CreateSubscription добавляет новую подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	// GetSubscription возвращает подписку по ID.
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	// ListUserSubscriptionIDs возвращает идентификаторы подписок отправителя в порядке создания.
	ListUserSubscriptionIDs(ctx context.Context, senderAddress string) ([]int64, error)
	// ListDueSubscriptionIDs возвращает идентификаторы подписок, готовых к оплате.
	ListDueSubscriptionIDs(ctx context.Context, now int64) ([]int64, error)
	// CancelSubscription деактивирует подписку, возвращает количество изменённых строк.
	CancelSubscription(ctx context.Context, id int64) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// TokenClient описывает предварительные проверки финансирования
// через внешний токен-сервис PYUSD.
type TokenClient interface {
	BalanceOf(ctx context.Context, address string) (int64, error)
	Allowance(ctx context.Context, owner string) (int64, error)
}

// EventPublisher публикует события реестра для внешних потребителей.
type EventPublisher interface {
	Publish(routingKey string, event any) error
}

// SubscriptionService реализует бизнес-логику реестра подписок.
type SubscriptionService struct {
	repo   SubscriptionRepository
	cache  Cache
	token  TokenClient
	events EventPublisher
	log    *slog.Logger
	now    func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, cache Cache, token TokenClient, events EventPublisher, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:   repo,
		cache:  cache,
		token:  token,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// validateCreate проверяет параметры создания в фиксированном порядке.
// Каждая проверка завершается своей стабильной ошибкой, значения не приводятся молча.
func (s *SubscriptionService) validateCreate(req models.DummySubscription, now int64) error {
	if req.RecipientAddress == "" || req.RecipientAddress == models.ZeroAddress {
		return models.ErrZeroRecipientAddress
	}
	if req.Amount <= 0 {
		return models.ErrNonPositiveAmount
	}
	if req.Interval < models.MinInterval || req.Interval > models.MaxInterval {
		return models.ErrIntervalOutOfBounds
	}
	if len(req.ServiceName) == 0 || len(req.ServiceName) > models.MaxServiceNameLen {
		return models.ErrBadServiceName
	}
	if len(req.SenderCurrency) > models.MaxCurrencyLen ||
		len(req.RecipientCurrency) > models.MaxCurrencyLen ||
		len(req.ProcessorFeeCurrency) > models.MaxCurrencyLen {
		return models.ErrCurrencyTooLong
	}
	if req.EndDate != 0 && req.EndDate <= now {
		return models.ErrEndDateInPast
	}
	return nil
}

// Create создает новую подписку. Перевод средств при создании не выполняется —
// только проверка, что отправитель способен оплатить первый цикл.
func (s *SubscriptionService) Create(ctx context.Context, req models.DummySubscription) (int64, error) {
	const op = "services.subscription.Create"
	now := s.now().Unix()

	if err := s.validateCreate(req, now); err != nil {
		return 0, err
	}

	total := req.Amount + req.ProcessorFee
	balance, err := s.token.BalanceOf(ctx, req.SenderAddress)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if balance < total {
		return 0, models.ErrInsufficientBalance
	}
	allowance, err := s.token.Allowance(ctx, req.SenderAddress)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if allowance < total {
		return 0, models.ErrInsufficientAllowance
	}

	// При maxPayments > 0 дата окончания всегда выводится из лимита платежей
	// и перекрывает значение, присланное клиентом.
	endDate := req.EndDate
	if req.MaxPayments > 0 {
		endDate = now + (req.MaxPayments+1)*req.Interval
	}

	sub := models.Subscription{
		SenderAddress:        req.SenderAddress,
		SenderID:             req.SenderID,
		RecipientID:          req.RecipientID,
		Amount:               req.Amount,
		ProcessorFee:         req.ProcessorFee,
		Interval:             req.Interval,
		NextPaymentDue:       now + req.Interval,
		EndDate:              endDate,
		MaxPayments:          req.MaxPayments,
		PaymentCount:         0,
		FailedPaymentCount:   0,
		IsActive:             true,
		ServiceName:          req.ServiceName,
		RecipientAddress:     req.RecipientAddress,
		SenderCurrency:       req.SenderCurrency,
		RecipientCurrency:    req.RecipientCurrency,
		ProcessorFeeAddress:  req.ProcessorFeeAddress,
		ProcessorFeeCurrency: req.ProcessorFeeCurrency,
		ProcessorFeeID:       req.ProcessorFeeID,
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return 0, err
	}
	sub.ID = id
	metrics.SubscriptionsCreated.Inc()

	s.log.Info("created new subscription", slog.Int64("id", id))

	cacheKey := fmt.Sprintf("subscription:%d", id)
	if err := s.cache.Set(cacheKey, sub, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", cacheKey), sl.Err(err))
	}

	event := models.SubscriptionCreatedEvent{
		ID:                   id,
		SenderAddress:        sub.SenderAddress,
		SenderID:             sub.SenderID,
		RecipientID:          sub.RecipientID,
		Amount:               sub.Amount,
		Interval:             sub.Interval,
		NextPaymentDue:       sub.NextPaymentDue,
		EndDate:              sub.EndDate,
		MaxPayments:          sub.MaxPayments,
		ServiceName:          sub.ServiceName,
		RecipientAddress:     sub.RecipientAddress,
		SenderCurrency:       sub.SenderCurrency,
		RecipientCurrency:    sub.RecipientCurrency,
		ProcessorFee:         sub.ProcessorFee,
		ProcessorFeeAddress:  sub.ProcessorFeeAddress,
		ProcessorFeeCurrency: sub.ProcessorFeeCurrency,
		ProcessorFeeID:       sub.ProcessorFeeID,
		Timestamp:            now,
	}
	if err := s.events.Publish(models.RoutingKeySubscriptionCreated, event); err != nil {
		s.log.Error("failed to publish subscription created event", sl.Err(err))
	}

	return id, nil
}

// Get возвращает подписку по ID, используя кеш или репозиторий.
func (s *SubscriptionService) Get(ctx context.Context, id int64) (*models.Subscription, error) {
	var result *models.Subscription
	cacheKey := fmt.Sprintf("subscription:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found && result != nil {
		return result, nil
	}
	result, err = s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// ListUserSubscriptions возвращает идентификаторы подписок отправителя
// в порядке создания. Для неизвестного адреса — пустой список, не ошибка.
func (s *SubscriptionService) ListUserSubscriptions(ctx context.Context, senderAddress string) ([]int64, error) {
	return s.repo.ListUserSubscriptionIDs(ctx, senderAddress)
}

// ListDue возвращает идентификаторы подписок, которые обработчик платежей
// принял бы прямо сейчас: активные, с наступившим сроком и не истекшие.
func (s *SubscriptionService) ListDue(ctx context.Context) ([]int64, error) {
	return s.repo.ListDueSubscriptionIDs(ctx, s.now().Unix())
}

// Cancel отменяет подписку по запросу её владельца. Отмена терминальна
// и не отменяет прошедших платежей — блокируются только будущие.
func (s *SubscriptionService) Cancel(ctx context.Context, id int64, callerAddress string) error {
	const op = "services.subscription.Cancel"
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.SenderAddress != callerAddress {
		return models.ErrOnlySenderCanCancel
	}
	if !sub.IsActive {
		return models.ErrSubscriptionAlreadyCancelled
	}

	rows, err := s.repo.CancelSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return models.ErrSubscriptionAlreadyCancelled
	}
	metrics.SubscriptionsCancelled.WithLabelValues(string(models.ReasonUserCancelled)).Inc()

	cacheKey := fmt.Sprintf("subscription:%d", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}

	now := s.now().Unix()
	event := models.SubscriptionCancelledEvent{
		ID:            id,
		SenderAddress: sub.SenderAddress,
		SenderID:      sub.SenderID,
		RecipientID:   sub.RecipientID,
		Timestamp:     now,
		Reason:        string(models.ReasonUserCancelled),
	}
	if err := s.events.Publish(models.RoutingKeySubscriptionCancelled, event); err != nil {
		s.log.Error("failed to publish subscription cancelled event", sl.Err(err))
	}

	s.log.Info("subscription cancelled by owner", slog.Int64("id", id))
	return nil
}
