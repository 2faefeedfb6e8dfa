package purchasing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/requests"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu       sync.Mutex
	reqs     map[string]*requests.Request
	similar  []requests.Similar
	queries  []requests.SimilarQuery
	submits  int
	creates  int
	failNext error

	submitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{reqs: map[string]*requests.Request{}}
}

func clone(r *requests.Request) *requests.Request {
	c := *r
	c.Items = append([]requests.Item(nil), r.Items...)
	return &c
}

func (f *fakeStore) put(r *requests.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs[r.ID] = clone(r)
}

func (f *fakeStore) Create(_ context.Context, r *requests.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.creates++
	f.reqs[r.ID] = clone(r)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*requests.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return nil, nil
	}
	return clone(r), nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status requests.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok || r.DocStatus == requests.DocCancelled {
		return domain.ErrNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeStore) Submit(_ context.Context, id string, status requests.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	r, ok := f.reqs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.DocStatus != requests.DocDraft {
		return &domain.PreconditionError{Current: r.DocStatus.String(), Msg: "request was finalized concurrently"}
	}
	f.submits++
	r.DocStatus = requests.DocSubmitted
	r.Status = status
	return nil
}

func (f *fakeStore) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.DocStatus = requests.DocCancelled
	r.Status = requests.StatusCancelled
	return nil
}

func (f *fakeStore) FindSimilar(_ context.Context, q requests.SimilarQuery) ([]requests.Similar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return requests.FilterSimilar(f.similar, q), nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	newRequests []string
	dispatched  []string
	dispatchErr error
	newErr      error
}

func (n *fakeNotifier) NewRequest(_ context.Context, r *requests.Request) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newRequests = append(n.newRequests, r.ID)
	return n.newErr
}

func (n *fakeNotifier) SupplierDispatch(_ context.Context, r *requests.Request) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if r.SupplierEmail == "" {
		return domain.Validation("supplier_email", "supplier email is required")
	}
	n.dispatched = append(n.dispatched, r.ID)
	return n.dispatchErr
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

var errSMTP = errors.New("smtp: connection refused")
