package listmodel

import (
	"context"

	"spmodel/domain/sharepoint"
)

// Operation names a Lists web service method.
type Operation string

const (
	OpGetListItems                 Operation = "GetListItems"
	OpGetListItemChangesSinceToken Operation = "GetListItemChangesSinceToken"
	OpUpdateListItems              Operation = "UpdateListItems"
	OpGetList                      Operation = "GetList"
	OpGetVersionCollection         Operation = "GetVersionCollection"
)

// BatchCmd is the Cmd attribute of an UpdateListItems batch method.
type BatchCmd string

const (
	BatchNew    BatchCmd = "New"
	BatchUpdate BatchCmd = "Update"
	BatchDelete BatchCmd = "Delete"
)

// ValuePair is one encoded field value.
type ValuePair struct {
	Name  string
	Value string
}

// Request describes one SOAP round trip against the Lists service.
type Request struct {
	Operation        Operation
	ListName         string
	WebURL           string
	CAMLQuery        string
	CAMLViewFields   string
	CAMLQueryOptions string
	CAMLRowLimit     int
	ChangeToken      string

	// UpdateListItems only
	BatchCmd   BatchCmd
	ItemID     int
	ValuePairs []ValuePair
}

// VersionHistoryRequest asks for every version of a single field.
type VersionHistoryRequest struct {
	ListName  string
	WebURL    string
	ItemID    int
	FieldName string
}

// StartWorkflowRequest starts a workflow template on a document or item.
type StartWorkflowRequest struct {
	WebURL     string
	FileRef    string
	TemplateID string
	Params     map[string]string
}

// DataService performs the wire operations the list model depends on. Responses
// are returned raw and decoded by the caller.
type DataService interface {
	ServiceWrapper(ctx context.Context, req *Request) ([]byte, error)
	GetList(ctx context.Context, listName, webURL string) ([]byte, error)
	GetFieldVersionHistory(ctx context.Context, req VersionHistoryRequest) ([]byte, error)
	GetAvailableWorkflows(ctx context.Context, webURL, fileRef string) ([]sharepoint.WorkflowTemplate, error)
	StartWorkflow(ctx context.Context, req StartWorkflowRequest) error
}
