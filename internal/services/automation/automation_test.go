package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"

	"github.com/stablerent/stablerent/internal/models"
	"github.com/stablerent/stablerent/internal/services/processor"
)

type DueMock struct{ mock.Mock }

func (m *DueMock) ListDue(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type ProcessorMock struct{ mock.Mock }

func (m *ProcessorMock) ProcessPayment(ctx context.Context, id int64) (*processor.Outcome, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Outcome), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newWorker(due *DueMock, proc *ProcessorMock) *Worker {
	return NewWorker(due, proc, rate.NewLimiter(rate.Inf, 1), newNoopLogger())
}

func TestWorker_RunSweep(t *testing.T) {
	due := new(DueMock)
	proc := new(ProcessorMock)
	worker := newWorker(due, proc)

	due.On("ListDue", mock.Anything).Return([]int64{1, 2, 3}, nil).Once()
	proc.On("ProcessPayment", mock.Anything, int64(1)).
		Return(&processor.Outcome{Status: processor.OutcomeProcessed}, nil).Once()
	proc.On("ProcessPayment", mock.Anything, int64(2)).
		Return(&processor.Outcome{
			Status: processor.OutcomeFailed,
			Reason: string(models.FailureInsufficientBalance),
		}, nil).Once()
	proc.On("ProcessPayment", mock.Anything, int64(3)).
		Return(&processor.Outcome{
			Status: processor.OutcomeCancelled,
			Reason: string(models.ReasonExpiredEndDate),
		}, nil).Once()

	worker.runSweep(context.Background())

	due.AssertExpectations(t)
	proc.AssertExpectations(t)
}

func TestWorker_RunSweep_SkipsIneligible(t *testing.T) {
	due := new(DueMock)
	proc := new(ProcessorMock)
	worker := newWorker(due, proc)

	// Между выборкой и обработкой подписку успели отменить или обработать —
	// проход продолжается со следующими идентификаторами.
	due.On("ListDue", mock.Anything).Return([]int64{1, 2, 3, 4}, nil).Once()
	proc.On("ProcessPayment", mock.Anything, int64(1)).
		Return(nil, models.ErrPaymentNotDueYet).Once()
	proc.On("ProcessPayment", mock.Anything, int64(2)).
		Return(nil, models.ErrSubscriptionNotActive).Once()
	proc.On("ProcessPayment", mock.Anything, int64(3)).
		Return(nil, errors.New("token service unavailable")).Once()
	proc.On("ProcessPayment", mock.Anything, int64(4)).
		Return(&processor.Outcome{Status: processor.OutcomeProcessed}, nil).Once()

	worker.runSweep(context.Background())

	due.AssertExpectations(t)
	proc.AssertExpectations(t)
}

func TestWorker_RunSweep_ListError(t *testing.T) {
	due := new(DueMock)
	proc := new(ProcessorMock)
	worker := newWorker(due, proc)

	due.On("ListDue", mock.Anything).Return(nil, errors.New("db error")).Once()

	worker.runSweep(context.Background())

	due.AssertExpectations(t)
	proc.AssertNotCalled(t, "ProcessPayment")
}

func TestWorker_RunSweep_Empty(t *testing.T) {
	due := new(DueMock)
	proc := new(ProcessorMock)
	worker := newWorker(due, proc)

	due.On("ListDue", mock.Anything).Return([]int64{}, nil).Once()

	worker.runSweep(context.Background())

	due.AssertExpectations(t)
	proc.AssertNotCalled(t, "ProcessPayment")
}
