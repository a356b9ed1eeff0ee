// Package batch runs many deflection checks in one request.
package batch

import (
	"context"
	"errors"
	"fmt"

	"Shade/internal/calc/quote"
	"Shade/internal/units"
)

var ErrNoItems = errors.New("no items")

// MaxItems bounds one batch.
const MaxItems = 1000

type Input struct {
	Items []quote.DeflectionRequest `json:"items"`
}

type Item struct {
	Row        int                     `json:"row"`
	Request    quote.DeflectionRequest `json:"request"`
	Deflection *units.Measurement      `json:"deflection,omitempty"`
	// WithinLimit compares the unrounded deflection with shade.DeflectionLimitMM.
	WithinLimit bool   `json:"within_limit"`
	Error       string `json:"error,omitempty"`
}

type Result struct {
	Count   int    `json:"count"`
	Failed  int    `json:"failed"`
	Results []Item `json:"results"`
}

// Run evaluates every request. A failing item is reported in place and does
// not stop the batch.
func Run(ctx context.Context, s *quote.Service, items []quote.DeflectionRequest, unit string) (Result, error) {
	if len(items) == 0 {
		return Result{}, ErrNoItems
	}
	if len(items) > MaxItems {
		return Result{}, fmt.Errorf("batch of %d items exceeds %d", len(items), MaxItems)
	}

	out := Result{Count: len(items), Results: make([]Item, 0, len(items))}
	for i, req := range items {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		item := evaluate(ctx, s, req, unit)
		item.Row = i + 1
		if item.Error != "" {
			out.Failed++
		}
		out.Results = append(out.Results, item)
	}
	return out, nil
}

func evaluate(ctx context.Context, s *quote.Service, req quote.DeflectionRequest, unit string) Item {
	item := Item{Request: req}
	check, err := s.CheckDeflection(ctx, req, unit)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Deflection = &check.Deflection
	item.WithinLimit = check.WithinLimit
	return item
}
