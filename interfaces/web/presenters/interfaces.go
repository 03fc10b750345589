package presenters

import (
	"spmodel/domain/listmodel"
	"spmodel/interfaces/web/templates/components/ui"
	"spmodel/platform/events"
)

// ListPresenterInterface defines the contract for list presentation logic.
type ListPresenterInterface interface {
	ToListIndexViewModel(environment string, models []*listmodel.Model) *ListIndexVM
	ToItemTableViewModel(m *listmodel.Model, query *listmodel.Query, items []*listmodel.ListItem) *ItemTableVM
	ToItemDetailViewModel(m *listmodel.Model, item *listmodel.ListItem) *ItemDetailVM
	ToHistoryViewModel(list string, summary *listmodel.ChangeSummary) *HistoryVM
	ToFieldsViewModel(m *listmodel.Model) *FieldsVM
}

// ActivityPresenterInterface defines the contract for activity presentation logic.
type ActivityPresenterInterface interface {
	ToActivityFeedView(entries []events.ActivityEntry, total int) ui.ActivityFeedView
	FormatActivityNotification(entry events.ActivityEntry) (string, error)
}

// Ensure presenters implement the interfaces.
var (
	_ ListPresenterInterface     = (*ListPresenter)(nil)
	_ ActivityPresenterInterface = (*ActivityPresenter)(nil)
)
