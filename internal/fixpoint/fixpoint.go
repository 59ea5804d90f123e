// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package fixpoint

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vk/depload/internal/ctxlog"
	stacked "github.com/vk/depload/internal/errors"
	"github.com/vk/depload/internal/unit"
)

const tracerName = "github.com/vk/depload/internal/fixpoint"

// Report describes a finished run.
type Report struct {
	// Passes is the number of passes started.
	Passes int
	// Attempts is the number of LoadUnit calls made.
	Attempts int
	// Loaded lists the units in the order they loaded.
	Loaded []string
}

// Run loads units with loader until every unit is loaded, a pass makes no
// progress, or a unit fails fatally. Units are attempted in the order given;
// callers pass the sorted output of pathset.Resolve.
//
// A retryable failure is any error for which unit.IsRetryable is true. Every
// other error is returned as a *FatalError without attempting the remaining
// units. A stalled pass is returned as a *StalledError. The Report is valid
// in every case.
func Run(ctx context.Context, units []string, loader unit.Loader) (Report, error) {
	logger := ctxlog.FromContext(ctx)
	tracer := otel.Tracer(tracerName)

	pending := append([]string(nil), units...)
	report := Report{Loaded: make([]string, 0, len(units))}

	for len(pending) > 0 {
		report.Passes++
		sizeAtStart := len(pending)

		passCtx, span := tracer.Start(ctx, "fixpoint.pass")
		span.SetAttributes(
			attribute.Int("pass", report.Passes),
			attribute.Int("pending", sizeAtStart),
		)

		var lastUnit string
		var lastErr error
		var passErrs *multierror.Error
		remaining := make([]string, 0, len(pending))

		// pending is only replaced after the pass, so iterating it is safe.
		for i, path := range pending {
			report.Attempts++
			err := loader.LoadUnit(passCtx, path)
			if err == nil {
				report.Loaded = append(report.Loaded, path)
				logger.Debug("Unit loaded.", "unit", path, "pass", report.Passes)
				continue
			}

			if !unit.IsRetryable(err) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "fatal unit error")
				span.End()
				logger.Debug("Unit failed fatally, aborting.", "unit", path, "pass", report.Passes,
					"skipped", len(pending)-i-1, "error", err)
				return report, &FatalError{Unit: path, Cause: stacked.WithStackTrace(err)}
			}

			lastUnit, lastErr = path, err
			passErrs = multierror.Append(passErrs, err)
			remaining = append(remaining, path)
			logger.Debug("Unit not ready, will retry.", "unit", path, "pass", report.Passes, "error", err)
		}

		pending = remaining
		loadedThisPass := sizeAtStart - len(pending)
		span.SetAttributes(attribute.Int("loaded", loadedThisPass))

		if len(pending) > 0 && loadedThisPass == 0 {
			span.SetStatus(codes.Error, "no progress")
			span.End()
			return report, &StalledError{
				Unit:    lastUnit,
				Cause:   lastErr,
				Pending: pending,
				Errors:  passErrs.ErrorOrNil(),
				Pass:    report.Passes,
			}
		}
		span.End()
	}

	logger.Debug("All units loaded.", "units", len(units), "passes", report.Passes, "attempts", report.Attempts)
	return report, nil
}
