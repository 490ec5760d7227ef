package widget

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/matst80/slask-facets/pkg/types"
)

type Phase int

const (
	Idle Phase = iota
	Debouncing
	InFlight
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case InFlight:
		return "in-flight"
	}
	return "unknown"
}

var ErrClosed = errors.New("synchronizer closed")

// Fetcher sends one filter request to the server.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.FilterRequest) (*types.FilterResponse, error)
}

// State is a snapshot of the loop owned state.
type State struct {
	Phase      Phase
	Selections types.Selections
	Pager      Pager
	Sequence   uint64
}

type event func(s *Synchronizer)

type response struct {
	seq         uint64
	appendItems bool
	initial     bool
	res         *types.FilterResponse
	err         error
}

// Synchronizer keeps the selections of one widget in sync with the server.
// Every mutation happens on the goroutine running Run, the exported methods
// only post events to it.
type Synchronizer struct {
	settings  Settings
	fetcher   Fetcher
	view      View
	history   History
	carousels CarouselFactory

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// owned by the loop
	ctx         context.Context
	selections  types.Selections
	pager       Pager
	inFlight    bool
	cancel      context.CancelFunc
	seq         uint64
	debounce    *time.Timer
	debounceGen uint64
	carousel    Carousel
}

type Option func(*Synchronizer)

// WithHistory mirrors the selections into the location when History is
// enabled in the settings.
func WithHistory(h History) Option {
	return func(s *Synchronizer) {
		s.history = h
	}
}

func WithCarousel(f CarouselFactory) Option {
	return func(s *Synchronizer) {
		s.carousels = f
	}
}

func NewSynchronizer(settings Settings, fetcher Fetcher, view View, opts ...Option) *Synchronizer {
	settings.Sanitize()
	s := &Synchronizer{
		settings:   settings,
		fetcher:    fetcher,
		view:       view,
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		selections: types.Selections{},
		pager:      NewPager(settings.Base.PageSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) historyEnabled() bool {
	return s.settings.History && s.history != nil
}

func (s *Synchronizer) post(e event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Run processes events until ctx is done or Close is called.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.ctx = ctx
	defer s.teardown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case e := <-s.events:
			e(s)
		}
	}
}

// Close stops the loop, cancels any request and disposes the carousel.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Synchronizer) teardown() {
	s.Close()
	if s.cancel != nil {
		s.cancel()
	}
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.disposeCarousel()
}

// Start restores the state from the location when history is enabled and
// loads the first page. The initial load never pushes history.
func (s *Synchronizer) Start() error {
	return s.post(func(s *Synchronizer) {
		if s.historyEnabled() {
			s.selections = DecodeState(s.history.Location(), s.settings.Dimensions)
			s.view.ApplySelections(s.selections.Clone())
		}
		s.pager.Reset()
		s.trigger(false, true)
	})
}

// Select replaces the selected values of a dimension, input on free text
// and numeric dimensions is debounced.
func (s *Synchronizer) Select(key string, values ...string) error {
	return s.post(func(s *Synchronizer) {
		d, ok := s.settings.dimension(key)
		if !ok {
			log.Printf("widget %s: ignoring selection for unknown dimension %s", s.settings.WidgetId, key)
			return
		}
		s.selections.Set(key, values...)
		s.pager.Reset()
		if debounced(d) {
			s.startDebounce()
			return
		}
		s.trigger(false, false)
	})
}

// Input is a keystroke level change, always debounced.
func (s *Synchronizer) Input(key, value string) error {
	return s.post(func(s *Synchronizer) {
		if _, ok := s.settings.dimension(key); !ok {
			return
		}
		s.selections.Set(key, value)
		s.pager.Reset()
		s.startDebounce()
	})
}

// LoadMore appends the next page. It is ignored while a request is in flight,
// when there are no more pages, or unless the grid shows a load more button.
func (s *Synchronizer) LoadMore() error {
	return s.post(func(s *Synchronizer) {
		if !s.loadMoreEnabled() || s.inFlight || !s.pager.Advance() {
			return
		}
		s.trigger(true, false)
	})
}

// ClearAll empties every dimension and reloads the first page.
func (s *Synchronizer) ClearAll() error {
	return s.post(func(s *Synchronizer) {
		s.stopDebounce()
		s.selections = types.Selections{}
		s.view.ApplySelections(types.Selections{})
		s.pager.Reset()
		s.trigger(false, false)
	})
}

// PopState re-derives the selections from the location after back/forward
// navigation.
func (s *Synchronizer) PopState() error {
	return s.post(func(s *Synchronizer) {
		if !s.historyEnabled() {
			return
		}
		s.stopDebounce()
		s.selections = DecodeState(s.history.Location(), s.settings.Dimensions)
		s.view.ApplySelections(s.selections.Clone())
		s.pager.Reset()
		s.trigger(false, true)
	})
}

// State returns a snapshot taken on the loop.
func (s *Synchronizer) State() (State, error) {
	reply := make(chan State, 1)
	err := s.post(func(s *Synchronizer) {
		reply <- State{
			Phase:      s.phase(),
			Selections: s.selections.Clone(),
			Pager:      s.pager,
			Sequence:   s.seq,
		}
	})
	if err != nil {
		return State{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return State{}, ErrClosed
	}
}

func (s *Synchronizer) phase() Phase {
	if s.inFlight {
		return InFlight
	}
	if s.debounce != nil {
		return Debouncing
	}
	return Idle
}

func (s *Synchronizer) startDebounce() {
	s.stopDebounce()
	s.debounceGen++
	gen := s.debounceGen
	s.debounce = time.AfterFunc(s.settings.Debounce, func() {
		_ = s.post(func(s *Synchronizer) {
			if gen != s.debounceGen {
				return
			}
			s.debounce = nil
			s.trigger(false, false)
		})
	})
}

func (s *Synchronizer) stopDebounce() {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.debounceGen++
}

func (s *Synchronizer) request() *types.FilterRequest {
	return &types.FilterRequest{
		TemplateRef: s.settings.TemplateRef,
		WidgetId:    s.settings.WidgetId,
		PageSize:    s.pager.PageSize,
		Page:        s.pager.CurrentPage,
		Base:        s.settings.Base,
		Filters:     s.settings.Dimensions,
		Mode:        s.settings.Mode,
		Selections:  s.selections.Clone(),
	}
}

// trigger issues a request according to the overlap policy.
func (s *Synchronizer) trigger(appendItems, initial bool) {
	if s.inFlight {
		switch s.settings.Overlap {
		case DropWhileInFlight:
			log.Printf("widget %s: request in flight, dropping trigger", s.settings.WidgetId)
			return
		case ReplaceInFlight:
			s.cancel()
		}
	}
	s.seq++
	seq := s.seq
	req := s.request()
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.inFlight = true
	s.view.SetLoading(true)

	go func() {
		res, err := s.fetcher.Fetch(ctx, req)
		r := response{seq: seq, appendItems: appendItems, initial: initial, res: res, err: err}
		_ = s.post(func(s *Synchronizer) {
			s.handleResponse(r)
		})
	}()
}

func (s *Synchronizer) handleResponse(r response) {
	if r.seq != s.seq {
		// replaced by a newer request
		return
	}
	s.cancel()
	s.inFlight = false
	s.view.SetLoading(false)
	defer s.view.SetClearAllVisible(s.selections.HasAny())

	if r.err == nil && (r.res == nil || !r.res.Success) {
		msg := "empty response"
		if r.res != nil {
			msg = r.res.Message
		}
		r.err = errors.New(msg)
	}
	if r.err != nil {
		log.Printf("widget %s: filter request failed: %v", s.settings.WidgetId, r.err)
		if r.appendItems {
			s.pager.Back()
		}
		s.view.ShowError(s.settings.ErrorFragment)
		s.updatePagination()
		return
	}

	s.pager.Adopt(r.res.TotalPages)
	if s.settings.Layout == LayoutCarousel {
		s.disposeCarousel()
		s.view.RenderItems(r.res.Items, false)
		s.createCarousel()
	} else {
		s.view.RenderItems(r.res.Items, r.appendItems)
	}
	s.updatePagination()
	s.applyFacets(r.res.Facets)
	if !r.initial && s.historyEnabled() {
		s.history.Push(EncodeState(s.history.Location(), s.settings.Dimensions, s.selections))
	}
}

func (s *Synchronizer) loadMoreEnabled() bool {
	return s.settings.Layout == LayoutGrid && s.settings.LoadMore
}

func (s *Synchronizer) updatePagination() {
	if !s.loadMoreEnabled() {
		s.view.SetPaginationAffordance(PaginationAffordance{})
		return
	}
	if s.pager.CanLoadMore() {
		s.view.SetPaginationAffordance(PaginationAffordance{Visible: true, Enabled: true, Label: s.settings.LoadMoreLabel})
		return
	}
	s.view.SetPaginationAffordance(PaginationAffordance{Visible: true, Label: s.settings.NoMoreLabel})
}

func (s *Synchronizer) applyFacets(facets types.FacetResult) {
	for _, d := range s.settings.Dimensions {
		counts, ok := facets[d.Key]
		if !ok {
			continue
		}
		s.view.SetOptionAvailability(d.Key, optionStates(counts, s.selections.Values(d.Key)))
	}
}

func (s *Synchronizer) createCarousel() {
	if s.carousels == nil {
		return
	}
	c, err := s.carousels.NewCarousel()
	if err != nil {
		log.Printf("widget %s: carousel init failed: %v", s.settings.WidgetId, err)
		return
	}
	s.carousel = c
}

func (s *Synchronizer) disposeCarousel() {
	if s.carousel == nil {
		return
	}
	if err := s.carousel.Close(); err != nil {
		log.Printf("widget %s: carousel dispose failed: %v", s.settings.WidgetId, err)
	}
	s.carousel = nil
}
