package listmodel

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spmodel/domain/events"
	"spmodel/domain/sharepoint"
	"spmodel/test/helpers"
)

const (
	testListGUID = "{6F9E2C40-8D4B-4E2C-9F3D-1A2B3C4D5E6F}"
	testWebURL   = "https://contoso.sharepoint.com/sites/pm"
	fullMaskHex  = "0x7fffffffffffffff"
	readOnlyMask = "0x1"
)

// countingService records every call and answers from configurable functions.
type countingService struct {
	mu       sync.Mutex
	requests []*Request
	respond  func(req *Request) ([]byte, error)
	block    chan struct{}

	listXML   []byte
	listErr   error
	listCalls int
	listBlock chan struct{}

	versions     map[string][]byte
	versionCalls int

	workflows []sharepoint.WorkflowTemplate
	started   []StartWorkflowRequest
}

func (s *countingService) ServiceWrapper(ctx context.Context, req *Request) ([]byte, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	respond, block := s.respond, s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if respond == nil {
		return nil, errors.New("no response configured")
	}
	return respond(req)
}

func (s *countingService) GetList(ctx context.Context, listName, webURL string) ([]byte, error) {
	s.mu.Lock()
	s.listCalls++
	block := s.listBlock
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.listXML, s.listErr
}

func (s *countingService) GetFieldVersionHistory(ctx context.Context, req VersionHistoryRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionCalls++
	data, ok := s.versions[req.FieldName]
	if !ok {
		return nil, errors.New("no versions for " + req.FieldName)
	}
	return data, nil
}

func (s *countingService) GetAvailableWorkflows(ctx context.Context, webURL, fileRef string) ([]sharepoint.WorkflowTemplate, error) {
	return s.workflows, nil
}

func (s *countingService) StartWorkflow(ctx context.Context, req StartWorkflowRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, req)
	return nil
}

func (s *countingService) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *countingService) lastRequest() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func staticResponse(data []byte) func(*Request) ([]byte, error) {
	return func(*Request) ([]byte, error) { return data, nil }
}

func taskListConfig() ListConfig {
	return ListConfig{
		Title:  "Tasks",
		WebURL: testWebURL,
		Environments: map[string]string{
			"production": testListGUID,
			"test":       "{11111111-2222-3333-4444-555555555555}",
		},
		Fields: []FieldConfig{
			{WireName: "Title", Type: FieldText, Required: true},
			{WireName: "Status", Type: FieldChoice, Choices: []string{"Open", "Closed"}},
			{WireName: "DueDate", Type: FieldDateTime},
			{WireName: "Project", Type: FieldLookup},
			{WireName: "AssignedTo", Type: FieldUserMulti},
			{WireName: "Estimate", Type: FieldFloat},
			{WireName: "Complete", Type: FieldBoolean},
			{WireName: "Settings", Type: FieldJSON},
		},
	}
}

func newTestModel(t *testing.T, service DataService) *Model {
	t.Helper()
	def, err := NewListDefinition(taskListConfig())
	require.NoError(t, err)
	m, err := NewModel(ModelConfig{
		Definition:  def,
		Service:     service,
		Environment: "production",
	})
	require.NoError(t, err)
	return m
}

func taskRow(id int, title, status string) helpers.Row {
	ids := strconv.Itoa(id)
	return helpers.Row{
		"ID":       ids,
		"Title":    title,
		"Status":   status,
		"PermMask": fullMaskHex,
		"UniqueId": ids + ";#{0000000" + ids + "-AAAA-BBBB-CCCC-DDDDEEEEFFFF}",
		"FileRef":  ids + ";#sites/pm/Lists/Tasks/" + ids + "_.000",
		"Modified": "2024-03-01 10:00:00",
		"Editor":   "1;#Jane Doe,#i:0#.f|membership|jane@contoso.com,#jane@contoso.com,#,#Jane Doe",
	}
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu       sync.Mutex
	queries  []events.QueryExecutedEvent
	saved    []events.ItemSavedEvent
	deleted  []events.ItemDeletedEvent
	disabled []events.StorageDisabledEvent
}

func (p *recordingPublisher) PublishQueryExecuted(e events.QueryExecutedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, e)
}

func (p *recordingPublisher) PublishItemSaved(e events.ItemSavedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, e)
}

func (p *recordingPublisher) PublishItemDeleted(e events.ItemDeletedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, e)
}

func (p *recordingPublisher) PublishStorageDisabled(e events.StorageDisabledEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = append(p.disabled, e)
}

func (p *recordingPublisher) savedEvents() []events.ItemSavedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ItemSavedEvent(nil), p.saved...)
}

func (p *recordingPublisher) deletedEvents() []events.ItemDeletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ItemDeletedEvent(nil), p.deleted...)
}

func (p *recordingPublisher) disabledEvents() []events.StorageDisabledEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.StorageDisabledEvent(nil), p.disabled...)
}

// memStorage is an in-memory Storage. setErr is returned by every Set.
type memStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	setErr  error
	cleared int
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (s *memStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStorage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	s.cleared++
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// fakeClock drives query debounce and snapshot expiry.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
