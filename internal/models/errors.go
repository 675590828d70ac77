// Package models: стабильные идентификаторы жёстких отказов.
// Каждая ошибка одновременно служит сигналом отказа и документацией причины,
// текст не меняется между версиями — на него завязаны внешние системы.
package models

import "errors"

// Ошибки валидации при создании подписки, в порядке проверки.
var (
	ErrZeroRecipientAddress  = errors.New("recipient address must not be zero")
	ErrNonPositiveAmount     = errors.New("amount must be greater than zero")
	ErrIntervalOutOfBounds   = errors.New("interval must be between 1 day and 365 days")
	ErrBadServiceName        = errors.New("service name must be between 1 and 100 characters")
	ErrCurrencyTooLong       = errors.New("currency code must be at most 10 characters")
	ErrEndDateInPast         = errors.New("end date must be in the future")
	ErrInsufficientBalance   = errors.New("insufficient PYUSD balance for first payment")
	ErrInsufficientAllowance = errors.New("insufficient PYUSD allowance for first payment")
)

// Ошибки обработки платежей и отмены.
var (
	ErrSubscriptionDoesNotExist     = errors.New("subscription does not exist")
	ErrSubscriptionNotActive        = errors.New("subscription is not active")
	ErrPaymentNotDueYet             = errors.New("payment is not due yet")
	ErrSubscriptionAlreadyCancelled = errors.New("subscription is already cancelled")
	ErrOnlySenderCanCancel          = errors.New("only sender can cancel")
)
