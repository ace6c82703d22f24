package calc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atmx/greeks-engine/internal/metrics"
	"github.com/atmx/greeks-engine/internal/model"
)

var errTooManyItems = errors.New("calc: request exceeds item limit")

func tooManyPoints(n, limit int) error {
	return fmt.Errorf("%w: %d points requested, limit is %d", errTooManyItems, n, limit)
}

// BatchRequest is the JSON body for POST /batch.
type BatchRequest struct {
	Items []OptionRequest `json:"items"`
}

// BatchResponse is the JSON body returned from POST /batch. Quotes are in
// item order.
type BatchResponse struct {
	BatchID string        `json:"batch_id"`
	Count   int           `json:"count"`
	Quotes  []model.Quote `json:"quotes"`
}

// Batch handles POST /api/v1/batch
// Items are priced concurrently on a bounded worker pool. The batch is
// atomic: the first failing item fails the whole request.
func (s *Service) Batch(w http.ResponseWriter, r *http.Request) {
	const op = "batch"
	var req BatchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		s.fail(w, op, fmt.Errorf("%w: batch has no items", errTooManyItems))
		return
	}
	if len(req.Items) > s.opts.Batch.MaxItems {
		s.fail(w, op, fmt.Errorf("%w: %d items, limit is %d", errTooManyItems, len(req.Items), s.opts.Batch.MaxItems))
		return
	}
	metrics.BatchSize.Observe(float64(len(req.Items)))

	quotes, err := s.priceAll(r.Context(), req.Items)
	if err != nil {
		s.fail(w, op, err)
		return
	}

	id := uuid.New().String()
	slog.Debug("batch priced", "batch_id", id, "items", len(quotes))
	writeJSON(w, http.StatusOK, BatchResponse{BatchID: id, Count: len(quotes), Quotes: quotes})
}

// priceAll fans items out over at most opts.Batch.Workers goroutines. Each
// goroutine writes only its own slot.
func (s *Service) priceAll(ctx context.Context, items []OptionRequest) ([]model.Quote, error) {
	quotes := make([]model.Quote, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.opts.Batch.Workers))
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			q, err := s.quote("batch_item", item, s.classifier)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quotes, nil
}
