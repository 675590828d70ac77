// Package automation реализует эталонного внешнего вызывающего:
// воркер периодически запрашивает список подписок к оплате и отправляет
// по каждой попытку обработки. Ядро реестра не зависит от воркера —
// любой сторонний участник может вызывать обработку самостоятельно.
package automation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/stablerent/stablerent/internal/lib/sl"
	"github.com/stablerent/stablerent/internal/models"
	"github.com/stablerent/stablerent/internal/services/processor"
)

// DueLister возвращает идентификаторы подписок, готовых к оплате.
type DueLister interface {
	ListDue(ctx context.Context) ([]int64, error)
}

// PaymentProcessor выполняет одну попытку платёжного цикла.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, id int64) (*processor.Outcome, error)
}

// Worker воркер автоматизации платежей.
type Worker struct {
	due       DueLister
	processor PaymentProcessor
	limiter   *rate.Limiter
	log       *slog.Logger
}

// NewWorker создает новый воркер автоматизации.
func NewWorker(due DueLister, proc PaymentProcessor, limiter *rate.Limiter, log *slog.Logger) *Worker {
	return &Worker{
		due:       due,
		processor: proc,
		limiter:   limiter,
		log:       log,
	}
}

// Run запускает цикл воркера: один проход сразу, далее по тикеру,
// до отмены контекста.
func (w *Worker) Run(ctx context.Context, pollInterval time.Duration) {
	w.runSweep(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

// runSweep выполняет один проход по подпискам к оплате.
// Ошибка по отдельной подписке не прерывает проход.
func (w *Worker) runSweep(ctx context.Context) {
	w.log.Info("starting due subscriptions sweep")
	ids, err := w.due.ListDue(ctx)
	if err != nil {
		w.log.Error("failed to list due subscriptions", sl.Err(err))
		return
	}
	if len(ids) == 0 {
		w.log.Info("no due subscriptions found")
		return
	}
	w.log.Info("found due subscriptions", slog.Int("count", len(ids)))

	for _, id := range ids {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		outcome, err := w.processor.ProcessPayment(ctx, id)
		if err != nil {
			// Между выборкой и обработкой состояние могло измениться:
			// кто-то другой успел обработать или отменить подписку.
			if errors.Is(err, models.ErrPaymentNotDueYet) ||
				errors.Is(err, models.ErrSubscriptionNotActive) ||
				errors.Is(err, models.ErrSubscriptionDoesNotExist) {
				w.log.Info("subscription no longer eligible", slog.Int64("id", id), sl.Err(err))
				continue
			}
			w.log.Error("failed to process payment", slog.Int64("id", id), sl.Err(err))
			continue
		}
		w.log.Info("payment attempt finished",
			slog.Int64("id", id),
			slog.String("status", string(outcome.Status)),
			slog.String("reason", outcome.Reason))
	}
}
