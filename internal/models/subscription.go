// Package models содержит доменные структуры подписочного реестра StableRent,
// а также вспомогательные типы для приёма данных из внешних источников (например, JSON-запросов).
package models

// Границы и константы реестра. Все временные значения хранятся
// в секундах unix, суммы — в базовых единицах токена (PYUSD, 6 знаков).
const (
	// MinInterval минимальный интервал между платежами — 1 день.
	MinInterval int64 = 24 * 60 * 60
	// MaxInterval максимальный интервал между платежами — 365 дней.
	MaxInterval int64 = 365 * 24 * 60 * 60
	// MaxFailedPayments число подряд неуспешных циклов, после которого подписка отменяется.
	MaxFailedPayments int64 = 3
	// MaxServiceNameLen максимальная длина названия сервиса.
	MaxServiceNameLen = 100
	// MaxCurrencyLen максимальная длина тикера валюты.
	MaxCurrencyLen = 10
	// ZeroAddress нулевой адрес, запрещённый в качестве получателя.
	ZeroAddress = "0x0000000000000000000000000000000000000000"
)

// Subscription представляет собой запись подписки — единственный источник
// истины об авторизации, расписании и учёте платежей.
// Поле EndDate равное 0 означает отсутствие даты окончания,
// MaxPayments равное 0 — отсутствие лимита успешных платежей.
type Subscription struct {
	ID                   int64  `json:"id"`                     // Последовательный идентификатор, начиная с 1
	SenderAddress        string `json:"sender_address"`         // Адрес плательщика, владелец подписки
	SenderID             int64  `json:"sender_id"`              // Внешний идентификатор плательщика
	RecipientID          int64  `json:"recipient_id"`           // Внешний идентификатор получателя
	Amount               int64  `json:"amount"`                 // Сумма платежа за цикл (>0, неизменяемая)
	ProcessorFee         int64  `json:"processor_fee"`          // Комиссия процессора за цикл (может быть 0)
	Interval             int64  `json:"interval"`               // Интервал между циклами в секундах
	NextPaymentDue       int64  `json:"next_payment_due"`       // Время следующего платежа, unix-секунды
	EndDate              int64  `json:"end_date"`               // Время окончания подписки, 0 — бессрочно
	MaxPayments          int64  `json:"max_payments"`           // Лимит успешных платежей, 0 — без лимита
	PaymentCount         int64  `json:"payment_count"`          // Число успешных платежей
	FailedPaymentCount   int64  `json:"failed_payment_count"`   // Число подряд неуспешных циклов
	IsActive             bool   `json:"is_active"`              // false после отмены, обратно не включается
	ServiceName          string `json:"service_name"`           // Название сервиса, 1-100 символов
	RecipientAddress     string `json:"recipient_address"`      // Адрес получателя платежа
	SenderCurrency       string `json:"sender_currency"`        // Тикер валюты плательщика
	RecipientCurrency    string `json:"recipient_currency"`     // Тикер валюты получателя
	ProcessorFeeAddress  string `json:"processor_fee_address"`  // Адрес получателя комиссии
	ProcessorFeeCurrency string `json:"processor_fee_currency"` // Тикер валюты комиссии
	ProcessorFeeID       string `json:"processor_fee_id"`       // Внешний идентификатор комиссии
}

// DummySubscription используется для приёма данных из JSON-запроса
// на создание подписки, прежде чем конвертировать их в Subscription.
// Подробная проверка полей выполняется в бизнес-логике в фиксированном порядке,
// чтобы каждая ошибка имела стабильный идентификатор.
type DummySubscription struct {
	SenderAddress        string `json:"sender_address" validate:"required"` // Адрес плательщика (аналог msg.sender)
	SenderID             int64  `json:"sender_id"`
	RecipientID          int64  `json:"recipient_id"`
	Amount               int64  `json:"amount"`
	Interval             int64  `json:"interval"`
	ServiceName          string `json:"service_name"`
	EndDate              int64  `json:"end_date"`
	MaxPayments          int64  `json:"max_payments"`
	RecipientAddress     string `json:"recipient_address"`
	SenderCurrency       string `json:"sender_currency"`
	RecipientCurrency    string `json:"recipient_currency"`
	ProcessorFee         int64  `json:"processor_fee"`
	ProcessorFeeAddress  string `json:"processor_fee_address"`
	ProcessorFeeCurrency string `json:"processor_fee_currency"`
	ProcessorFeeID       string `json:"processor_fee_id"`
}

// CancellationReason перечисляет причины терминальной отмены подписки.
// Строковые значения сохраняются как есть на границе событий —
// внешние системы сверяются с ними побайтово.
type CancellationReason string

// Возможные причины отмены.
const (
	ReasonUserCancelled      CancellationReason = "user_cancelled"
	ReasonExpiredEndDate     CancellationReason = "expired_end_date"
	ReasonExpiredMaxPayments CancellationReason = "expired_max_payments"
	ReasonAutoCancelled      CancellationReason = "auto_cancelled_failures"
)

// FailureReason перечисляет причины мягкого отказа платёжного цикла.
type FailureReason string

// Возможные причины мягкого отказа.
const (
	FailureInsufficientBalance   FailureReason = "Insufficient PYUSD balance"
	FailureInsufficientAllowance FailureReason = "Insufficient PYUSD allowance"
)

// TotalCharge возвращает полную стоимость одного цикла — сумму платежа и комиссии.
func (s *Subscription) TotalCharge() int64 {
	return s.Amount + s.ProcessorFee
}

// IsExpiredByEndDate сообщает, истекла ли подписка по дате окончания.
func (s *Subscription) IsExpiredByEndDate(now int64) bool {
	return s.EndDate != 0 && now >= s.EndDate
}

// IsExpiredByMaxPayments сообщает, исчерпан ли лимит успешных платежей.
func (s *Subscription) IsExpiredByMaxPayments() bool {
	return s.MaxPayments > 0 && s.PaymentCount >= s.MaxPayments
}
