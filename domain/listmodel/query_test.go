package listmodel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spmodel/test/helpers"
)

func newModelWith(t *testing.T, svc DataService, publisher *recordingPublisher) *Model {
	t.Helper()
	def, err := NewListDefinition(taskListConfig())
	require.NoError(t, err)
	cfg := ModelConfig{Definition: def, Service: svc, Environment: "production"}
	if publisher != nil {
		cfg.Events = publisher
	}
	m, err := NewModel(cfg)
	require.NoError(t, err)
	return m
}

func TestQuery_Start_CoalescesWhileNegotiating(t *testing.T) {
	// Arrange
	svc := &countingService{
		respond: staticResponse(helpers.ChangesResponse("t1", nil, nil, taskRow(1, "One", "Open"))),
		block:   make(chan struct{}),
	}
	m := newTestModel(t, svc)
	clock := newFakeClock()
	q := m.RegisterQuery(QueryOptions{})
	q.now = clock.Now

	// Act
	first := q.Start(context.Background())
	second := q.Start(context.Background())
	require.Eventually(t, func() bool { return svc.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, q.Negotiating())
	close(svc.block)
	cache, err := first.Wait(context.Background())
	require.NoError(t, err)

	// Assert
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Size())
	assert.False(t, q.Negotiating())
	assert.True(t, q.HasExecuted())
	assert.Equal(t, 1, svc.calls())
	assert.Equal(t, 1, q.Metrics().Coalesced)
}

func TestQuery_Start_DebounceWindowReturnsPreviousResult(t *testing.T) {
	// Arrange
	svc := &countingService{respond: staticResponse(helpers.ChangesResponse("t1", nil, nil, taskRow(1, "One", "Open")))}
	m := newTestModel(t, svc)
	clock := newFakeClock()
	q := m.RegisterQuery(QueryOptions{})
	q.now = clock.Now

	first := q.Start(context.Background())
	_, err := first.Wait(context.Background())
	require.NoError(t, err)

	// Act
	clock.Advance(50 * time.Millisecond)
	within := q.Start(context.Background())
	clock.Advance(100 * time.Millisecond)
	after := q.Start(context.Background())
	_, err = after.Wait(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Same(t, first, within)
	assert.NotSame(t, first, after)
	assert.Equal(t, 2, svc.calls())
}

func TestQuery_Execute_FailureReleasesNegotiation(t *testing.T) {
	// Arrange
	svc := &countingService{}
	svc.respond = func(req *Request) ([]byte, error) {
		if svc.calls() == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return helpers.ChangesResponse("t1", nil, nil, taskRow(1, "One", "Open")), nil
	}
	m := newTestModel(t, svc)
	clock := newFakeClock()
	q := m.RegisterQuery(QueryOptions{})
	q.now = clock.Now

	// Act
	_, firstErr := q.Execute(context.Background())
	negotiatingAfterFailure := q.Negotiating()
	executedAfterFailure := q.HasExecuted()
	cache, secondErr := q.Execute(context.Background())

	// Assert
	require.Error(t, firstErr)
	assert.Contains(t, firstErr.Error(), "connection reset by peer")
	assert.False(t, negotiatingAfterFailure)
	assert.False(t, executedAfterFailure)
	require.NoError(t, secondErr)
	assert.Equal(t, 1, cache.Size())
	assert.Equal(t, 2, svc.calls())

	metrics := q.Metrics()
	assert.Equal(t, 2, metrics.NetworkCalls)
	assert.Equal(t, 1, metrics.Failures)
}

func TestQuery_Execute_SoapFaultIsServiceError(t *testing.T) {
	svc := &countingService{respond: staticResponse(helpers.FaultResponse("List does not exist."))}
	m := newTestModel(t, svc)
	m.RegisterQuery(QueryOptions{})

	_, err := m.ExecuteQuery(context.Background())

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "List does not exist.", serviceErr.Message)
}

func TestQuery_Execute_WaitHonoursContext(t *testing.T) {
	svc := &countingService{
		respond: staticResponse(helpers.ChangesResponse("t1", nil, nil)),
		block:   make(chan struct{}),
	}
	defer close(svc.block)
	m := newTestModel(t, svc)
	q := m.RegisterQuery(QueryOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Execute(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQuery_Execute_GetListItemsReplacesCache(t *testing.T) {
	// Arrange
	svc := &countingService{}
	svc.respond = func(req *Request) ([]byte, error) {
		if svc.calls() == 1 {
			return helpers.ListItemsResponse(taskRow(1, "One", "Open"), taskRow(2, "Two", "Open")), nil
		}
		return helpers.ListItemsResponse(taskRow(2, "Two", "Closed")), nil
	}
	m := newTestModel(t, svc)
	clock := newFakeClock()
	q := m.RegisterQuery(QueryOptions{Operation: OpGetListItems})
	q.now = clock.Now

	// Act
	_, err := q.Execute(context.Background())
	require.NoError(t, err)
	clock.Advance(time.Second)
	cache, err := q.Execute(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int{2}, cache.Keys())
	item, _ := cache.Get(2)
	assert.Equal(t, "Closed", item.Text("status"))
	assert.Empty(t, svc.lastRequest().ChangeToken)
}

func TestQuery_Execute_GetListItemsKeepsCacheUntilResponse(t *testing.T) {
	// Arrange
	svc := &countingService{respond: staticResponse(helpers.ListItemsResponse(taskRow(1, "One", "Open"), taskRow(2, "Two", "Open")))}
	m := newTestModel(t, svc)
	clock := newFakeClock()
	q := m.RegisterQuery(QueryOptions{Operation: OpGetListItems})
	q.now = clock.Now
	_, err := q.Execute(context.Background())
	require.NoError(t, err)

	release := make(chan struct{})
	svc.mu.Lock()
	svc.block = release
	svc.respond = func(*Request) ([]byte, error) { return nil, errors.New("502 bad gateway") }
	svc.mu.Unlock()
	clock.Advance(time.Second)

	// Act
	pending := q.Start(context.Background())
	require.Eventually(t, func() bool { return svc.calls() == 2 }, time.Second, 5*time.Millisecond)
	inFlight := q.Cache().Keys()
	close(release)
	_, err = pending.Wait(context.Background())

	// Assert
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, inFlight)
	assert.Equal(t, []int{1, 2}, q.Cache().Keys())
}

func TestQuery_Execute_RunOnceSkipsNetwork(t *testing.T) {
	svc := &countingService{respond: staticResponse(helpers.ListItemsResponse(taskRow(1, "One", "Open")))}
	m := newTestModel(t, svc)
	clock := newFakeClock()
	q := m.RegisterQuery(QueryOptions{Name: "lookup", Operation: OpGetListItems, RunOnce: true})
	q.now = clock.Now

	_, err := q.Execute(context.Background())
	require.NoError(t, err)
	clock.Advance(time.Minute)
	cache, err := q.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())
	assert.Equal(t, 1, svc.calls())
}

func TestQuery_Execute_CustomTargetAndRequestShape(t *testing.T) {
	svc := &countingService{respond: staticResponse(helpers.ListItemsResponse(taskRow(4, "Four", "Open")))}
	m := newTestModel(t, svc)
	target := NewItemCache()
	q := m.RegisterQuery(QueryOptions{
		Name:      "open",
		Operation: OpGetListItems,
		Query:     CAMLEq("Status", "Choice", "Open"),
		RowLimit:  50,
		Target:    target,
	})

	_, err := q.Execute(context.Background())

	require.NoError(t, err)
	assert.True(t, target.Has(4))
	req := svc.lastRequest()
	assert.Equal(t, 50, req.CAMLRowLimit)
	assert.Contains(t, req.CAMLQuery, `<FieldRef Name="Status"/>`)
	assert.Contains(t, req.CAMLViewFields, `<FieldRef Name="DueDate"/>`)
	assert.Contains(t, req.CAMLQueryOptions, "<ExpandUserField>TRUE</ExpandUserField>")
	assert.Equal(t, testWebURL, req.WebURL)
}

func TestQuery_Execute_PublishesQueryExecuted(t *testing.T) {
	svc := &countingService{respond: staticResponse(helpers.ChangesResponse("t1", nil, nil, taskRow(1, "One", "Open")))}
	publisher := &recordingPublisher{}
	m := newModelWith(t, svc, publisher)
	m.RegisterQuery(QueryOptions{})

	_, err := m.ExecuteQuery(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		return len(publisher.queries) == 1
	}, time.Second, 5*time.Millisecond)
	publisher.mu.Lock()
	event := publisher.queries[0]
	publisher.mu.Unlock()
	assert.Equal(t, "Tasks", event.ListName)
	assert.Equal(t, PrimaryQueryName, event.QueryName)
	assert.Equal(t, 1, event.ItemCount)
	assert.Empty(t, event.Error)
}

func TestQuery_Storage_HydratesListItemsWithoutNetwork(t *testing.T) {
	// Arrange
	store := newMemStorage()
	writer := newTestModel(t, &countingService{respond: staticResponse(helpers.ListItemsResponse(
		taskRow(1, "One", "Open"), taskRow(2, "Two", "Closed"),
	))})
	wq := writer.RegisterQuery(QueryOptions{Operation: OpGetListItems, Storage: store})
	_, err := wq.Execute(context.Background())
	require.NoError(t, err)
	require.True(t, store.has(testListGUID+".query.primary"))

	svc := &countingService{}
	reader := newTestModel(t, svc)
	rq := reader.RegisterQuery(QueryOptions{Operation: OpGetListItems, Storage: store})

	// Act
	cache, err := rq.Execute(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, svc.calls())
	assert.Equal(t, []int{1, 2}, cache.Keys())
	item, _ := cache.Get(2)
	assert.Equal(t, "Two", item.Text("title"))
	assert.Equal(t, "Closed", item.Text("status"))
	assert.Equal(t, "Jane Doe", item.User("editor").LookupValue)
	assert.True(t, item.IsPristine())
	assert.True(t, reader.ResolvePermissions().FullMask)
	assert.Equal(t, 1, rq.Metrics().StorageHits)
}

func TestQuery_Storage_HydratedTokenIsSent(t *testing.T) {
	store := newMemStorage()
	writer := newTestModel(t, &countingService{respond: staticResponse(helpers.ChangesResponse("stored-token", nil, nil, taskRow(1, "One", "Open")))})
	_, err := writer.RegisterQuery(QueryOptions{Storage: store}).Execute(context.Background())
	require.NoError(t, err)

	svc := &countingService{respond: staticResponse(helpers.ChangesResponse("next-token", nil, nil, taskRow(3, "Three", "Open")))}
	reader := newTestModel(t, svc)
	cache, err := reader.RegisterQuery(QueryOptions{Storage: store}).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "stored-token", svc.lastRequest().ChangeToken)
	assert.Equal(t, []int{1, 3}, cache.Keys())
}

func TestQuery_Storage_ExpiredSnapshotIsIgnored(t *testing.T) {
	// Arrange
	store := newMemStorage()
	clock := newFakeClock()
	writer := newTestModel(t, &countingService{respond: staticResponse(helpers.ListItemsResponse(taskRow(1, "Stale", "Open")))})
	wq := writer.RegisterQuery(QueryOptions{Operation: OpGetListItems, Storage: store})
	wq.now = clock.Now
	_, err := wq.Execute(context.Background())
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	svc := &countingService{respond: staticResponse(helpers.ListItemsResponse(taskRow(1, "Fresh", "Open")))}
	reader := newTestModel(t, svc)
	rq := reader.RegisterQuery(QueryOptions{Operation: OpGetListItems, Storage: store, StorageExpiration: time.Hour})
	rq.now = clock.Now

	// Act
	cache, err := rq.Execute(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, svc.calls())
	item, _ := cache.Get(1)
	assert.Equal(t, "Fresh", item.Text("title"))
	assert.Equal(t, 0, rq.Metrics().StorageHits)
}

func TestQuery_Storage_UnreadableSnapshotIsDeleted(t *testing.T) {
	store := newMemStorage()
	key := testListGUID + ".query.primary"
	require.NoError(t, store.Set(context.Background(), key, []byte("{not json")))
	svc := &countingService{respond: staticResponse(helpers.ListItemsResponse(taskRow(1, "One", "Open")))}
	m := newTestModel(t, svc)
	q := m.RegisterQuery(QueryOptions{Operation: OpGetListItems, Storage: store})

	_, err := q.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, svc.calls())
	data, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(data), `"changeToken"`)
}

func TestQuery_Storage_QuotaExceededDisablesSharedBackend(t *testing.T) {
	// Arrange
	store := newMemStorage()
	store.setErr = fmt.Errorf("write snapshot: %w", ErrQuotaExceeded)
	svc := &countingService{respond: staticResponse(helpers.ChangesResponse("t1", nil, nil, taskRow(1, "One", "Open")))}
	publisher := &recordingPublisher{}
	m := newModelWith(t, svc, publisher)
	open := m.RegisterQuery(QueryOptions{Name: "open", Storage: store})
	closed := m.RegisterQuery(QueryOptions{Name: "closed", Storage: store})
	other := newTestModel(t, &countingService{respond: staticResponse(helpers.ListItemsResponse(taskRow(2, "Two", "Open")))})
	otherQuery := other.RegisterQuery(QueryOptions{Operation: OpGetListItems, Storage: store})

	// Act
	_, err := open.Execute(context.Background())
	require.NoError(t, err)
	store.mu.Lock()
	store.setErr = nil
	store.mu.Unlock()
	_, err = closed.Execute(context.Background())
	require.NoError(t, err)
	_, err = otherQuery.Execute(context.Background())
	require.NoError(t, err)

	// Assert
	assert.True(t, closed.storage.Disabled())
	assert.True(t, otherQuery.storage.Disabled())
	assert.False(t, store.has(testListGUID+".query.closed"))
	assert.False(t, store.has(testListGUID+".query.primary"))
	assert.Equal(t, 1, store.cleared)
	assert.Len(t, publisher.disabledEvents(), 1)
}

func TestQuery_Storage_QuotaExceededDisablesStorage(t *testing.T) {
	// Arrange
	store := newMemStorage()
	store.setErr = fmt.Errorf("write 4.2 MB snapshot: %w", ErrQuotaExceeded)
	svc := &countingService{respond: staticResponse(helpers.ChangesResponse("t1", nil, nil, taskRow(1, "One", "Open")))}
	publisher := &recordingPublisher{}
	m := newModelWith(t, svc, publisher)
	clock := newFakeClock()
	q := m.RegisterQuery(QueryOptions{Storage: store})
	q.now = clock.Now

	// Act
	cache, err := q.Execute(context.Background())
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = q.Execute(context.Background())
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, cache.Size())
	assert.Equal(t, 1, store.cleared)
	assert.True(t, q.storage.Disabled())
	disabled := publisher.disabledEvents()
	require.Len(t, disabled, 1)
	assert.Equal(t, testListGUID+".query.primary", disabled[0].Key)
	assert.Contains(t, disabled[0].Reason, "quota")
}
