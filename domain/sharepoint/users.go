package sharepoint

// UserProfile is the subset of UserProfileService properties the model consumes.
type UserProfile struct {
	AccountName string
	UserID      int
	DisplayName string
	Email       string
	Title       string
	Department  string
	SIPAddress  string
	// Properties holds every property returned, keyed by name.
	Properties map[string]string
}

// Group represents a SharePoint group membership
type Group struct {
	ID          int
	Name        string
	Description string
	OwnerID     int
	OwnerIsUser bool
}

// GetDisplayName returns the best display name for the profile
func (p *UserProfile) GetDisplayName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.AccountName != "" {
		return p.AccountName
	}
	return p.Email
}

// WorkflowTemplate describes a workflow that can be started on an item.
type WorkflowTemplate struct {
	Name             string
	Description      string
	TemplateID       string
	BaseID           string
	InstantiationURL string
}

// ListSummary is one row of the list collection for a web.
type ListSummary struct {
	ID           string
	Title        string
	Description  string
	BaseTemplate int
	ItemCount    int
	Hidden       bool
}

// IsDocumentLibrary returns true if this is a document library (BaseTemplate 101)
func (l *ListSummary) IsDocumentLibrary() bool {
	return l.BaseTemplate == 101
}

// IsCustomList returns true if this is a custom list (BaseTemplate 100)
func (l *ListSummary) IsCustomList() bool {
	return l.BaseTemplate == 100
}
