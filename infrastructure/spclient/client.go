package spclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"spmodel/domain/listmodel"
	"spmodel/domain/sharepoint"
	"spmodel/logging"
)

// Service names a SharePoint SOAP endpoint under _vti_bin.
type Service string

const (
	ServiceLists       Service = "Lists"
	ServiceWorkflow    Service = "Workflow"
	ServiceUserGroup   Service = "UserGroup"
	ServiceUserProfile Service = "UserProfileService"
)

func (s Service) endpoint() (service, error) {
	switch s {
	case ServiceLists, "":
		return listsService, nil
	case ServiceWorkflow:
		return workflowService, nil
	case ServiceUserGroup:
		return userGroupService, nil
	case ServiceUserProfile:
		return userProfileService, nil
	}
	return service{}, fmt.Errorf("unknown SOAP service %q", string(s))
}

// CollectionRequest calls an operation that returns a flat collection of
// elements and reads the attributes of each element named Element.
type CollectionRequest struct {
	Service   Service
	Operation string
	WebURL    string
	Params    map[string]string
	Element   string
}

// SOAPClient implements listmodel.DataService over the SharePoint SOAP web
// services. Lists operations return the raw envelope; faults are returned as
// *listmodel.ServiceError.
type SOAPClient struct {
	transport Transport
	siteURL   string
	logger    *logging.Logger
}

var _ listmodel.DataService = (*SOAPClient)(nil)

func NewSOAPClient(transport Transport, siteURL string) *SOAPClient {
	return &SOAPClient{
		transport: transport,
		siteURL:   strings.TrimSuffix(siteURL, "/"),
		logger:    logging.Default().WithComponent("soap_client"),
	}
}

func (c *SOAPClient) SiteURL() string {
	return c.siteURL
}

func (c *SOAPClient) webURL(webURL string) string {
	return firstNonEmpty(strings.TrimSuffix(webURL, "/"), c.siteURL)
}

// call posts an operation and checks the body for a SOAP fault.
func (c *SOAPClient) call(ctx context.Context, svc service, webURL, operation string, params []param) ([]byte, error) {
	endpoint := joinURL(c.webURL(webURL)+"/", svc.path)
	headers := map[string]string{
		"Content-Type": "text/xml; charset=utf-8",
		"SOAPAction":   soapAction(svc, operation),
	}

	start := time.Now()
	raw, err := c.transport.Post(ctx, endpoint, envelope(svc, operation, params), headers)
	c.logger.SharePoint("SOAP call", "operation", operation, "endpoint", endpoint,
		"duration_ms", time.Since(start).Milliseconds(), "bytes", len(raw))

	if err != nil {
		// Faults come back with a 500 status; prefer the fault message when present.
		if len(raw) > 0 {
			var serviceErr *listmodel.ServiceError
			if _, parseErr := listmodel.ParseResponse(listmodel.Operation(operation), raw); errors.As(parseErr, &serviceErr) {
				return nil, serviceErr
			}
		}
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if _, err := listmodel.ParseResponse(listmodel.Operation(operation), raw); err != nil {
		var serviceErr *listmodel.ServiceError
		if errors.As(err, &serviceErr) && operation == string(listmodel.OpUpdateListItems) {
			// Batch errors are reported by the model with the item context.
			return raw, nil
		}
		return nil, err
	}
	return raw, nil
}

func (c *SOAPClient) ServiceWrapper(ctx context.Context, req *listmodel.Request) ([]byte, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	op := req.Operation
	if op == "" {
		op = listmodel.OpGetListItems
	}
	req.Operation = op
	return c.call(ctx, listsService, req.WebURL, string(op), listsParams(req))
}

func (c *SOAPClient) GetList(ctx context.Context, listName, webURL string) ([]byte, error) {
	return c.call(ctx, listsService, webURL, string(listmodel.OpGetList), []param{text("listName", listName)})
}

func (c *SOAPClient) GetFieldVersionHistory(ctx context.Context, req listmodel.VersionHistoryRequest) ([]byte, error) {
	return c.call(ctx, listsService, req.WebURL, string(listmodel.OpGetVersionCollection), []param{
		text("strlistID", req.ListName),
		text("strlistItemID", strconv.Itoa(req.ItemID)),
		text("strFieldName", req.FieldName),
	})
}

// fileURL turns a server-relative file reference into an absolute URL.
func (c *SOAPClient) fileURL(webURL, fileRef string) string {
	if strings.HasPrefix(fileRef, "http://") || strings.HasPrefix(fileRef, "https://") {
		return fileRef
	}
	return joinURL(c.webURL(webURL), "/"+strings.TrimPrefix(fileRef, "/"))
}

func (c *SOAPClient) GetAvailableWorkflows(ctx context.Context, webURL, fileRef string) ([]sharepoint.WorkflowTemplate, error) {
	raw, err := c.call(ctx, workflowService, webURL, "GetTemplatesForItem", []param{
		text("item", c.fileURL(webURL, fileRef)),
	})
	if err != nil {
		return nil, err
	}
	return mapWorkflowTemplates(raw)
}

func (c *SOAPClient) StartWorkflow(ctx context.Context, req listmodel.StartWorkflowRequest) error {
	_, err := c.call(ctx, workflowService, req.WebURL, "StartWorkflow", []param{
		text("item", c.fileURL(req.WebURL, req.FileRef)),
		text("templateId", req.TemplateID),
		fragment("workflowParameters", workflowData(req.Params)),
	})
	if err != nil {
		return err
	}
	c.logger.Info("Started workflow", "template_id", req.TemplateID, "file_ref", req.FileRef)
	return nil
}

// GetCollection performs req and returns the attributes of each matching element.
func (c *SOAPClient) GetCollection(ctx context.Context, req CollectionRequest) ([]listmodel.Attrs, error) {
	svc, err := req.Service.endpoint()
	if err != nil {
		return nil, err
	}
	if req.Element == "" {
		return nil, fmt.Errorf("%s: collection element name is required", req.Operation)
	}

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]param, 0, len(keys))
	for _, k := range keys {
		params = append(params, text(k, req.Params[k]))
	}

	raw, err := c.call(ctx, svc, req.WebURL, req.Operation, params)
	if err != nil {
		return nil, err
	}
	attrs, err := elementAttrs(raw, req.Element)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.Operation, err)
	}
	return attrs, nil
}

// GetListCollection returns every list of the web.
func (c *SOAPClient) GetListCollection(ctx context.Context, webURL string) ([]sharepoint.ListSummary, error) {
	attrs, err := c.GetCollection(ctx, CollectionRequest{
		Service:   ServiceLists,
		Operation: "GetListCollection",
		WebURL:    webURL,
		Element:   "List",
	})
	if err != nil {
		return nil, err
	}
	lists := make([]sharepoint.ListSummary, 0, len(attrs))
	for _, a := range attrs {
		lists = append(lists, mapListSummary(a))
	}
	return lists, nil
}

// GetUserProfileByName returns the profile of accountName, or of the current
// user when accountName is empty.
func (c *SOAPClient) GetUserProfileByName(ctx context.Context, accountName string) (*sharepoint.UserProfile, error) {
	raw, err := c.call(ctx, userProfileService, "", "GetUserProfileByName", []param{
		text("AccountName", accountName),
	})
	if err != nil {
		return nil, err
	}
	return mapUserProfile(raw)
}

func (c *SOAPClient) GetGroupCollectionFromUser(ctx context.Context, loginName string) ([]sharepoint.Group, error) {
	attrs, err := c.GetCollection(ctx, CollectionRequest{
		Service:   ServiceUserGroup,
		Operation: "GetGroupCollectionFromUser",
		Params:    map[string]string{"userLoginName": loginName},
		Element:   "Group",
	})
	if err != nil {
		return nil, err
	}
	groups := make([]sharepoint.Group, 0, len(attrs))
	for _, a := range attrs {
		groups = append(groups, mapGroup(a))
	}
	return groups, nil
}
