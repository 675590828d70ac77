// Package models: события реестра — долговременный внешний контракт.
// Индексаторы и зеркальные базы восстанавливают состояние подписок
// исключительно по этим четырём событиям, поэтому состав полей
// и строковые значения причин фиксированы.
package models

// Ключи маршрутизации событий в обменнике subscription-events.
const (
	RoutingKeySubscriptionCreated   = "subscription.created"
	RoutingKeyPaymentProcessed      = "payment.processed"
	RoutingKeyPaymentFailed         = "payment.failed"
	RoutingKeySubscriptionCancelled = "subscription.cancelled"
)

// SubscriptionCreatedEvent публикуется однократно при создании подписки.
type SubscriptionCreatedEvent struct {
	ID                   int64  `json:"id"`
	SenderAddress        string `json:"sender_address"`
	SenderID             int64  `json:"sender_id"`
	RecipientID          int64  `json:"recipient_id"`
	Amount               int64  `json:"amount"`
	Interval             int64  `json:"interval"`
	NextPaymentDue       int64  `json:"next_payment_due"`
	EndDate              int64  `json:"end_date"`
	MaxPayments          int64  `json:"max_payments"`
	ServiceName          string `json:"service_name"`
	RecipientAddress     string `json:"recipient_address"`
	SenderCurrency       string `json:"sender_currency"`
	RecipientCurrency    string `json:"recipient_currency"`
	ProcessorFee         int64  `json:"processor_fee"`
	ProcessorFeeAddress  string `json:"processor_fee_address"`
	ProcessorFeeCurrency string `json:"processor_fee_currency"`
	ProcessorFeeID       string `json:"processor_fee_id"`
	Timestamp            int64  `json:"timestamp"`
}

// PaymentProcessedEvent публикуется после каждого успешного платёжного цикла.
type PaymentProcessedEvent struct {
	ID             int64  `json:"id"`
	SenderAddress  string `json:"sender_address"`
	SenderID       int64  `json:"sender_id"`
	RecipientID    int64  `json:"recipient_id"`
	Amount         int64  `json:"amount"`
	PaymentCount   int64  `json:"payment_count"`
	Timestamp      int64  `json:"timestamp"`
	NextPaymentDue int64  `json:"next_payment_due"`
}

// PaymentFailedEvent публикуется при мягком отказе цикла —
// вызов обработки при этом завершается успешно.
type PaymentFailedEvent struct {
	ID                 int64  `json:"id"`
	SenderAddress      string `json:"sender_address"`
	SenderID           int64  `json:"sender_id"`
	RecipientID        int64  `json:"recipient_id"`
	Amount             int64  `json:"amount"`
	Timestamp          int64  `json:"timestamp"`
	Reason             string `json:"reason"`
	FailedPaymentCount int64  `json:"failed_payment_count"`
}

// SubscriptionCancelledEvent публикуется при терминальной отмене подписки,
// причина — одно из значений CancellationReason.
type SubscriptionCancelledEvent struct {
	ID            int64  `json:"id"`
	SenderAddress string `json:"sender_address"`
	SenderID      int64  `json:"sender_id"`
	RecipientID   int64  `json:"recipient_id"`
	Timestamp     int64  `json:"timestamp"`
	Reason        string `json:"reason"`
}
