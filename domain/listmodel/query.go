package listmodel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spmodel/domain/events"
	"spmodel/logging"
)

// DefaultDebounce is the window after a successful run in which further
// executions return the previous result.
const DefaultDebounce = 100 * time.Millisecond

// QueryOptions configures a registered query.
type QueryOptions struct {
	// Name defaults to PrimaryQueryName.
	Name string
	// Operation defaults to OpGetListItemChangesSinceToken.
	Operation Operation
	// Query is the CAML <Query> element.
	Query string
	// ViewFields defaults to every defined field.
	ViewFields   string
	QueryOptions string
	RowLimit     int
	// WebURL overrides the list definition's site.
	WebURL string
	// RunOnce skips the network once the query has executed successfully.
	RunOnce bool
	// Target replaces the query's own cache.
	Target *ItemCache
	// Storage persists snapshots between processes. Optional.
	Storage           Storage
	StorageExpiration time.Duration
	Debounce          time.Duration
}

// PendingQuery is the outcome of one execution, shared by every caller that
// was coalesced into it.
type PendingQuery struct {
	done  chan struct{}
	cache *ItemCache
	err   error
}

func newPendingQuery(cache *ItemCache) *PendingQuery {
	return &PendingQuery{done: make(chan struct{}), cache: cache}
}

// Done is closed once the execution finished.
func (p *PendingQuery) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the execution finished or ctx is done. Abandoning the wait
// does not cancel the request.
func (p *PendingQuery) Wait(ctx context.Context) (*ItemCache, error) {
	select {
	case <-p.done:
		if p.err != nil {
			return nil, p.err
		}
		return p.cache, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *PendingQuery) succeeded() bool {
	select {
	case <-p.done:
		return p.err == nil
	default:
		return false
	}
}

// Query is a named request against one list, owning a cache and the
// negotiation state.
type Query struct {
	name         string
	model        *Model
	operation    Operation
	caml         string
	viewFields   string
	queryOptions string
	rowLimit     int
	webURL       string
	runOnce      bool
	debounce     time.Duration
	expiration   time.Duration
	cache        *ItemCache
	storage      *guardedStorage
	monitor      *queryMonitor
	logger       *logging.Logger
	now          func() time.Time

	mu          sync.Mutex
	changeToken string
	lastRun     time.Time
	negotiating bool
	hasExecuted bool
	pending     *PendingQuery
}

func newQuery(m *Model, opts QueryOptions) *Query {
	if opts.Name == "" {
		opts.Name = PrimaryQueryName
	}
	if opts.Operation == "" {
		opts.Operation = OpGetListItemChangesSinceToken
	}
	if opts.ViewFields == "" {
		opts.ViewFields = m.def.ViewFields()
	}
	if opts.QueryOptions == "" {
		opts.QueryOptions = CAMLQueryOptions(true)
	}
	if opts.WebURL == "" {
		opts.WebURL = m.def.WebURL()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = m.debounce
	}
	cache := opts.Target
	if cache == nil {
		cache = NewItemCache()
	}

	q := &Query{
		name:         opts.Name,
		model:        m,
		operation:    opts.Operation,
		caml:         opts.Query,
		viewFields:   opts.ViewFields,
		queryOptions: opts.QueryOptions,
		rowLimit:     opts.RowLimit,
		webURL:       opts.WebURL,
		runOnce:      opts.RunOnce,
		debounce:     opts.Debounce,
		expiration:   opts.StorageExpiration,
		cache:        cache,
		monitor:      newQueryMonitor(),
		logger:       m.logger.WithQuery(opts.Name),
		now:          time.Now,
	}
	if opts.Storage != nil {
		q.storage = newGuardedStorage(opts.Storage, m.def.Name(), m.events)
	}
	return q
}

func (q *Query) Name() string { return q.name }

func (q *Query) Operation() Operation { return q.operation }

// Cache returns the cache the query decodes into.
func (q *Query) Cache() *ItemCache { return q.cache }

// ChangeToken is the last token reported by the server.
func (q *Query) ChangeToken() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changeToken
}

// LastRun is the completion time of the last successful execution.
func (q *Query) LastRun() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastRun
}

// Negotiating reports whether a request is in flight.
func (q *Query) Negotiating() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.negotiating
}

// HasExecuted reports whether the query ever completed successfully.
func (q *Query) HasExecuted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasExecuted
}

// Metrics returns request statistics for the query.
func (q *Query) Metrics() QueryMetrics {
	return q.monitor.Snapshot()
}

// Execute runs the query and waits for the result.
func (q *Query) Execute(ctx context.Context) (*ItemCache, error) {
	return q.Start(ctx).Wait(ctx)
}

// Start begins an execution unless one is in flight or the last successful run
// finished within the debounce window, in which case that execution is returned.
func (q *Query) Start(ctx context.Context) *PendingQuery {
	q.mu.Lock()
	if p := q.pending; p != nil {
		if q.negotiating || (p.succeeded() && q.now().Sub(q.lastRun) < q.debounce) {
			q.mu.Unlock()
			q.monitor.Coalesced()
			return p
		}
	}
	p := newPendingQuery(q.cache)
	q.pending = p
	q.negotiating = true
	q.mu.Unlock()

	go q.run(context.WithoutCancel(ctx), p)
	return p
}

func (q *Query) run(ctx context.Context, p *PendingQuery) {
	start := time.Now()
	q.monitor.Executed()

	fromStorage, err := q.execute(ctx)

	q.mu.Lock()
	p.err = err
	q.negotiating = false
	if err == nil {
		q.lastRun = q.now()
		q.hasExecuted = true
	}
	close(p.done)
	q.mu.Unlock()

	duration := time.Since(start)
	event := events.QueryExecutedEvent{
		ListName:    q.model.def.Name(),
		QueryName:   q.name,
		Operation:   string(q.operation),
		ItemCount:   q.cache.Size(),
		FromStorage: fromStorage,
		Duration:    duration,
		Timestamp:   time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
		q.logger.Error("Query failed", "operation", q.operation, "error", err)
	} else {
		q.logger.Performance("query_execute", duration)
	}
	q.model.publishQueryExecuted(event)
}

// execute performs one negotiation. It reports whether the result came from
// storage instead of the server.
func (q *Query) execute(ctx context.Context) (bool, error) {
	q.mu.Lock()
	executed := q.hasExecuted
	q.mu.Unlock()

	if q.runOnce && executed {
		return false, nil
	}

	if q.storage != nil && !executed && q.hydrate(ctx) {
		q.monitor.StorageHit()
		if q.operation == OpGetListItems {
			q.model.derivePermissions(q.cache.ToSlice())
			return true, nil
		}
	}

	req, err := q.request()
	if err != nil {
		return false, err
	}

	start := time.Now()
	raw, err := q.model.service.ServiceWrapper(ctx, req)
	q.monitor.RoundTrip(time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("query %s on list %s: %w", q.name, q.model.def.Name(), err)
	}

	resp, err := ParseResponse(q.operation, raw)
	if err != nil {
		return false, err
	}
	if q.operation == OpGetListItems && !q.runOnce {
		q.cache.Clear()
	}
	decoded, err := q.model.decodeResponse(resp, q.cache, nil)
	if err != nil {
		return false, err
	}
	if resp.ChangeToken != "" {
		q.mu.Lock()
		q.changeToken = resp.ChangeToken
		q.mu.Unlock()
	}
	q.model.touch()
	q.logger.Cache("Decoded query response",
		"rows", len(resp.Rows),
		"deleted", len(resp.DeletedIDs),
		"cached", q.cache.Size())

	q.persist(ctx)
	q.model.derivePermissions(decoded)
	return false, nil
}

func (q *Query) request() (*Request, error) {
	listID, err := q.model.GetListID()
	if err != nil {
		return nil, err
	}
	req := &Request{
		Operation:        q.operation,
		ListName:         listID,
		WebURL:           q.webURL,
		CAMLQuery:        q.caml,
		CAMLViewFields:   q.viewFields,
		CAMLQueryOptions: q.queryOptions,
		CAMLRowLimit:     q.rowLimit,
	}
	if q.operation == OpGetListItemChangesSinceToken {
		req.ChangeToken = q.ChangeToken()
	}
	return req, nil
}
