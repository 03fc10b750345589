package presenters

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"spmodel/domain/sharepoint"
)

// ProfileVM is the view model for the current user page
type ProfileVM struct {
	DisplayName string   `json:"displayName"`
	AccountName string   `json:"accountName"`
	Email       string   `json:"email,omitempty"`
	Title       string   `json:"title,omitempty"`
	Department  string   `json:"department,omitempty"`
	Groups      []string `json:"groups"`
}

// SiteListVM is one list of the remote list collection
type SiteListVM struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	ItemCount string `json:"itemCount"`
	Hidden    bool   `json:"hidden"`
}

// SiteListsVM is the view model for the remote list collection
type SiteListsVM struct {
	SiteURL string       `json:"siteUrl"`
	Lists   []SiteListVM `json:"lists"`
}

// SitePresenter transforms site level SharePoint data into UI-ready view models.
type SitePresenter struct{}

// NewSitePresenter creates a new site presenter.
func NewSitePresenter() *SitePresenter {
	return &SitePresenter{}
}

// ToProfileViewModel combines a profile and its group memberships. Groups are sorted by name.
func (p *SitePresenter) ToProfileViewModel(profile *sharepoint.UserProfile, groups []sharepoint.Group) *ProfileVM {
	vm := &ProfileVM{Groups: []string{}}
	if profile != nil {
		vm.DisplayName = profile.GetDisplayName()
		vm.AccountName = profile.AccountName
		vm.Email = profile.Email
		vm.Title = profile.Title
		vm.Department = profile.Department
	}
	for _, g := range groups {
		vm.Groups = append(vm.Groups, g.Name)
	}
	sort.Slice(vm.Groups, func(i, j int) bool {
		return strings.ToLower(vm.Groups[i]) < strings.ToLower(vm.Groups[j])
	})
	return vm
}

// ToSiteListsViewModel converts the list collection of a web. Hidden lists are
// dropped unless includeHidden is set.
func (p *SitePresenter) ToSiteListsViewModel(siteURL string, lists []sharepoint.ListSummary, includeHidden bool) *SiteListsVM {
	vm := &SiteListsVM{SiteURL: siteURL, Lists: []SiteListVM{}}
	for i := range lists {
		l := &lists[i]
		if l.Hidden && !includeHidden {
			continue
		}
		vm.Lists = append(vm.Lists, SiteListVM{
			ID:        l.ID,
			Title:     l.Title,
			Kind:      listKind(l),
			ItemCount: humanize.Comma(int64(l.ItemCount)),
			Hidden:    l.Hidden,
		})
	}
	sort.Slice(vm.Lists, func(i, j int) bool {
		return strings.ToLower(vm.Lists[i].Title) < strings.ToLower(vm.Lists[j].Title)
	})
	return vm
}

func listKind(l *sharepoint.ListSummary) string {
	switch {
	case l.IsDocumentLibrary():
		return "Document library"
	case l.IsCustomList():
		return "List"
	default:
		return "Template " + humanize.Comma(int64(l.BaseTemplate))
	}
}
