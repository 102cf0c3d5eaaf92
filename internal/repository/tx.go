package repository

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
)

var tracer = otel.Tracer("farmcoop/tx")

// RunInTransaction executes fn through t, bounded by timeout when it is
// positive. Context expiry surfaces as a Timeout error and any error that is
// not already classified surfaces as a Storage error. Nothing is retried.
func RunInTransaction(ctx context.Context, t Transactor, name string, timeout time.Duration, fn TxFunc) error {
	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.name", name),
			attribute.Int64("tx.timeout_ms", timeout.Milliseconds()),
		))
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := classify(ctx, t.WithTransaction(ctx, fn))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperror.KindOf(err)))
	}
	return err
}

func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperror.NewTimeout(err)
	}
	return apperror.NewStorage(err)
}
