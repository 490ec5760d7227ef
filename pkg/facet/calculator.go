package facet

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/matst80/slask-facets/pkg/query"
	"github.com/matst80/slask-facets/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var (
	name   = "slask-facets"
	tracer = otel.Tracer(name)
)

// Source is the part of the repository facet counting needs.
type Source interface {
	MatchIds(ctx context.Context, spec *types.QuerySpec) (*types.ItemList, error)
	CountTerms(taxonomy string, ids *types.ItemList, options []types.Option) map[string]types.FacetCount
	CountAttribute(dim *types.FilterDimension, ids *types.ItemList) map[string]types.FacetCount
}

// DimensionError is reported for a dimension whose counts could not be
// computed. The dimension is still present in the result with an empty map.
type DimensionError struct {
	Key string
	Err error
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("facet %s: %v", e.Key, e.Err)
}

func (e *DimensionError) Unwrap() error {
	return e.Err
}

type Calculator struct {
	Source      Source
	Concurrency int
}

func NewCalculator(source Source) *Calculator {
	return &Calculator{
		Source:      source,
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// ComputeFacets counts, for every dimension with a discrete set of options,
// how many items would match if that option was chosen while every other
// selection stays in place. The dimension's own selection is lifted so the
// siblings of a chosen option keep their counts.
func (c *Calculator) ComputeFacets(ctx context.Context, cfg query.Config, base types.BaseConstraints, sel types.Selections, mode types.CombinationMode) (types.FacetResult, []error) {
	ret := make(types.FacetResult, len(cfg))
	var (
		mu   sync.Mutex
		errs []error
	)

	g := errgroup.Group{}
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for i := range cfg {
		dim := &cfg[i]
		if !dim.HasUniverse() {
			continue
		}
		g.Go(func() error {
			counts, err := c.dimension(ctx, cfg, dim, base, sel, mode)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("facet %s failed: %v", dim.Key, err)
				errs = append(errs, &DimensionError{Key: dim.Key, Err: err})
				counts = map[string]types.FacetCount{}
			}
			ret[dim.Key] = counts
			return nil
		})
	}
	_ = g.Wait()
	return ret, errs
}

func (c *Calculator) dimension(ctx context.Context, cfg query.Config, dim *types.FilterDimension, base types.BaseConstraints, sel types.Selections, mode types.CombinationMode) (counts map[string]types.FacetCount, err error) {
	ctx, span := tracer.Start(ctx, "facet "+dim.Key)
	span.SetAttributes(
		attribute.String("facet.key", dim.Key),
		attribute.String("facet.kind", string(dim.Kind)),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec := query.BuildQuery(cfg, base, sel.Without(dim.Key), mode, query.WithoutDimension(dim.Key), query.IdsOnly())
	ids, err := c.Source.MatchIds(ctx, spec)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("facet.matches", ids.Len()))

	switch dim.Kind {
	case types.KindCategorical:
		return c.Source.CountTerms(dim.Key, ids, dim.Options), nil
	case types.KindCustom:
		return c.Source.CountAttribute(dim, ids), nil
	}
	return nil, fmt.Errorf("unsupported dimension kind %q", dim.Kind)
}
