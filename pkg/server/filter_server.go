package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/facet"
	"github.com/matst80/slask-facets/pkg/query"
	"github.com/matst80/slask-facets/pkg/render"
	"github.com/matst80/slask-facets/pkg/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Repository is what the filter endpoint reads from.
type Repository interface {
	types.Schema
	facet.Source
	Execute(ctx context.Context, spec *types.QuerySpec) (*types.ResultPage, error)
	Version() uint64
	Taxonomies() []types.Taxonomy
	Fields() []types.CustomField
}

type FilterServer struct {
	Repository Repository
	Renderer   render.Renderer
	Calculator *facet.Calculator
	Cache      *Cache
	// Nonces is optional, requests are not checked when nil.
	Nonces *NonceIssuer
	// Tracking is optional, answered requests are reported to it.
	Tracking types.Tracking
	FacetTTL time.Duration
}

func NewFilterServer(repo Repository, renderer render.Renderer) *FilterServer {
	return &FilterServer{
		Repository: repo,
		Renderer:   renderer,
		Calculator: facet.NewCalculator(repo),
		FacetTTL:   time.Minute,
	}
}

func statusFor(err error) (int, string) {
	var validation *types.ValidationError
	var configuration *types.ConfigurationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.As(err, &configuration):
		return http.StatusUnprocessableEntity, configuration.Error()
	case errors.Is(err, ErrInvalidNonce):
		return http.StatusForbidden, ErrInvalidNonce.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	}
	return http.StatusInternalServerError, "internal error"
}

func outcome(status int) string {
	switch status {
	case http.StatusOK:
		return "ok"
	case http.StatusBadRequest:
		return "validation"
	case http.StatusUnprocessableEntity:
		return "configuration"
	case http.StatusForbidden:
		return "nonce"
	}
	return "error"
}

func (s *FilterServer) fail(w http.ResponseWriter, enc jsoncompat.Encoder, err error) error {
	status, message := statusFor(err)
	filterRequests.WithLabelValues(outcome(status)).Inc()
	w.WriteHeader(status)
	if encErr := enc.Encode(types.FailedResponse(message)); encErr != nil {
		return encErr
	}
	return err
}

// Filter answers one widget request with the rendered page and the facet
// counts of the current selection.
func (s *FilterServer) Filter(w http.ResponseWriter, r *http.Request, requestId string, enc jsoncompat.Encoder) error {
	start := time.Now()
	defer func() {
		filterDuration.Observe(time.Since(start).Seconds())
	}()
	common.AllowOrigin(w, r)
	ctx := r.Context()

	req, err := types.GetFilterRequest(r)
	if err != nil {
		return s.fail(w, enc, err)
	}
	if s.Nonces != nil {
		if err = s.Nonces.Verify(req.Nonce, req.WidgetId); err != nil {
			return s.fail(w, enc, err)
		}
	}
	if req.TemplateRef == "" {
		return s.fail(w, enc, &types.ConfigurationError{Message: "missing template reference"})
	}
	cfg, err := query.ResolveConfig(s.Repository, req.Filters)
	if err != nil {
		return s.fail(w, enc, err)
	}

	spec := query.BuildQuery(cfg, req.Base, req.Selections, req.Mode, query.Page(req.Page))
	page, err := s.Repository.Execute(ctx, spec)
	if err != nil {
		return s.fail(w, enc, err)
	}
	html, err := s.Renderer.Render(ctx, req.TemplateRef, page.Items)
	if err != nil {
		return s.fail(w, enc, err)
	}
	facets := s.facets(ctx, requestId, cfg, req)

	filterRequests.WithLabelValues("ok").Inc()
	if s.Tracking != nil {
		s.Tracking.TrackFilter(&types.FilterEvent{
			WidgetId:    req.WidgetId,
			TemplateRef: req.TemplateRef,
			Mode:        req.Mode,
			Selections:  req.Selections.Clone(),
			Page:        page.Page,
			Total:       page.Total,
		}, r)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(types.FilterResponse{
		Success:    true,
		Items:      html,
		Page:       page.Page,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Facets:     facets,
		Rejected:   spec.Rejected,
	})
}

// facetKey identifies a facet result, it changes with the content version,
// the configured dimensions and the unpaged query.
func facetKey(version uint64, cfg query.Config, spec *types.QuerySpec) string {
	h := xxhash.New()
	for i := range cfg {
		d := &cfg[i]
		_, _ = h.WriteString(d.Key)
		_, _ = h.WriteString(string(d.Kind))
		_, _ = h.WriteString(string(d.DisplayMode))
		_, _ = h.WriteString(string(d.Comparator))
		_, _ = h.WriteString("|")
	}
	_, _ = h.WriteString(spec.String())
	return "facets:" + strconv.FormatUint(version, 10) + ":" + strconv.FormatUint(h.Sum64(), 16)
}

func (s *FilterServer) facets(ctx context.Context, requestId string, cfg query.Config, req *types.FilterRequest) types.FacetResult {
	spec := query.BuildQuery(cfg, req.Base, req.Selections, req.Mode, query.IdsOnly())
	key := facetKey(s.Repository.Version(), cfg, spec)
	helper := NewCacheHelper[types.FacetResult](s.Cache)
	result, hit := helper.Handle(ctx, key, func() (types.FacetResult, bool) {
		res, errs := s.Calculator.ComputeFacets(ctx, cfg, req.Base, req.Selections, req.Mode)
		for _, err := range errs {
			facetFailures.Inc()
			log.Printf("[%s] %v", requestId, err)
		}
		return res, len(errs) == 0
	}, s.FacetTTL)
	if hit {
		facetCacheHits.Inc()
	} else {
		facetCacheMisses.Inc()
	}
	if result == nil {
		result = types.FacetResult{}
	}
	return result
}

type NonceResponse struct {
	Nonce    string    `json:"nonce"`
	WidgetId string    `json:"widget"`
	Expires  time.Time `json:"expires"`
}

func (s *FilterServer) Nonce(w http.ResponseWriter, r *http.Request, requestId string, enc jsoncompat.Encoder) error {
	common.AllowOrigin(w, r)
	if s.Nonces == nil {
		w.WriteHeader(http.StatusNotFound)
		return enc.Encode(types.FailedResponse("nonces are disabled"))
	}
	widgetId := r.URL.Query().Get("widget")
	if widgetId == "" {
		widgetId = uuid.NewString()
	}
	nonce, expires, err := s.Nonces.Issue(widgetId)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return err
	}
	noncesIssued.Inc()
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(NonceResponse{Nonce: nonce, WidgetId: widgetId, Expires: expires})
}

type ConfigResponse struct {
	Taxonomies []types.Taxonomy    `json:"taxonomies"`
	Fields     []types.CustomField `json:"fields"`
	Templates  []string            `json:"templates"`
}

type templateLister interface {
	Templates() []string
}

// Config lists what widget authors can build dimensions from.
func (s *FilterServer) Config(w http.ResponseWriter, r *http.Request, requestId string, enc jsoncompat.Encoder) error {
	common.AllowOrigin(w, r)
	ret := ConfigResponse{
		Taxonomies: s.Repository.Taxonomies(),
		Fields:     s.Repository.Fields(),
		Templates:  []string{},
	}
	if l, ok := s.Renderer.(templateLister); ok {
		ret.Templates = l.Templates()
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(ret)
}

func (s *FilterServer) Health(w http.ResponseWriter, r *http.Request) {
	if s.Cache != nil {
		if err := s.Cache.Ping(r.Context()); err != nil {
			log.Printf("health: cache unavailable: %v", err)
			http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *FilterServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	filter := common.JsonHandler(s.Filter)
	mux.Handle("GET /api/filter", filter)
	mux.Handle("POST /api/filter", filter)
	mux.Handle("OPTIONS /api/filter", filter)
	mux.Handle("GET /api/nonce", common.JsonHandler(s.Nonce))
	mux.Handle("GET /api/config", common.JsonHandler(s.Config))
	mux.HandleFunc("GET /health", s.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
