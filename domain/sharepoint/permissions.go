package sharepoint

import (
	"fmt"
	"strconv"
	"strings"
)

// BasePermission is one bit of SharePoint's SPBasePermissions mask.
type BasePermission uint64

// SPBasePermissions flags as reported in ows_PermMask.
const (
	ViewListItems          BasePermission = 0x1
	AddListItems           BasePermission = 0x2
	EditListItems          BasePermission = 0x4
	DeleteListItems        BasePermission = 0x8
	ApproveItems           BasePermission = 0x10
	OpenItems              BasePermission = 0x20
	ViewVersions           BasePermission = 0x40
	DeleteVersions         BasePermission = 0x80
	CancelCheckout         BasePermission = 0x100
	ManagePersonalViews    BasePermission = 0x200
	ManageLists            BasePermission = 0x800
	ViewFormPages          BasePermission = 0x1000
	Open                   BasePermission = 0x10000
	ViewPages              BasePermission = 0x20000
	AddAndCustomizePages   BasePermission = 0x40000
	ApplyThemeAndBorder    BasePermission = 0x80000
	ApplyStyleSheets       BasePermission = 0x100000
	ViewUsageData          BasePermission = 0x200000
	CreateSSCSite          BasePermission = 0x400000
	ManageSubwebs          BasePermission = 0x800000
	CreateGroups           BasePermission = 0x1000000
	ManagePermissions      BasePermission = 0x2000000
	BrowseDirectories      BasePermission = 0x4000000
	BrowseUserInfo         BasePermission = 0x8000000
	AddDelPrivateWebParts  BasePermission = 0x10000000
	UpdatePersonalWebParts BasePermission = 0x20000000
	ManageWeb              BasePermission = 0x40000000
	UseClientIntegration   BasePermission = 0x1000000000
	UseRemoteAPIs          BasePermission = 0x2000000000
	ManageAlerts           BasePermission = 0x4000000000
	CreateAlerts           BasePermission = 0x8000000000
	EditMyUserInfo         BasePermission = 0x10000000000
	EnumeratePermissions   BasePermission = 0x4000000000000000
	FullMask               BasePermission = 0x7FFFFFFFFFFFFFFF
)

// Permissions is the decoded form of a permMask. Every flag is false on the zero value.
type Permissions struct {
	ViewListItems          bool
	AddListItems           bool
	EditListItems          bool
	DeleteListItems        bool
	ApproveItems           bool
	OpenItems              bool
	ViewVersions           bool
	DeleteVersions         bool
	CancelCheckout         bool
	ManagePersonalViews    bool
	ManageLists            bool
	ViewFormPages          bool
	Open                   bool
	ViewPages              bool
	AddAndCustomizePages   bool
	ApplyThemeAndBorder    bool
	ApplyStyleSheets       bool
	ViewUsageData          bool
	CreateSSCSite          bool
	ManageSubwebs          bool
	CreateGroups           bool
	ManagePermissions      bool
	BrowseDirectories      bool
	BrowseUserInfo         bool
	AddDelPrivateWebParts  bool
	UpdatePersonalWebParts bool
	ManageWeb              bool
	UseClientIntegration   bool
	UseRemoteAPIs          bool
	ManageAlerts           bool
	CreateAlerts           bool
	EditMyUserInfo         bool
	EnumeratePermissions   bool
	FullMask               bool
}

// ParsePermMask parses a permMask as SharePoint emits it: hex with a 0x prefix,
// or a plain decimal string.
func ParsePermMask(mask string) (BasePermission, error) {
	mask = strings.TrimSpace(mask)
	if mask == "" {
		return 0, fmt.Errorf("empty permission mask")
	}

	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(mask, "0x") || strings.HasPrefix(mask, "0X") {
		v, err = strconv.ParseUint(mask[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(mask, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("parse permission mask %q: %w", mask, err)
	}
	return BasePermission(v), nil
}

// Has reports whether every bit of p is set in the mask.
func (m BasePermission) Has(p BasePermission) bool {
	return m&p == p
}

// String renders the mask the way ows_PermMask carries it.
func (m BasePermission) String() string {
	return "0x" + strconv.FormatUint(uint64(m), 16)
}

// DecodePermissions expands a permMask into a Permissions object.
func DecodePermissions(mask string) (Permissions, error) {
	m, err := ParsePermMask(mask)
	if err != nil {
		return Permissions{}, err
	}
	return m.Permissions(), nil
}

// Permissions expands the mask into named flags.
func (m BasePermission) Permissions() Permissions {
	return Permissions{
		ViewListItems:          m.Has(ViewListItems),
		AddListItems:           m.Has(AddListItems),
		EditListItems:          m.Has(EditListItems),
		DeleteListItems:        m.Has(DeleteListItems),
		ApproveItems:           m.Has(ApproveItems),
		OpenItems:              m.Has(OpenItems),
		ViewVersions:           m.Has(ViewVersions),
		DeleteVersions:         m.Has(DeleteVersions),
		CancelCheckout:         m.Has(CancelCheckout),
		ManagePersonalViews:    m.Has(ManagePersonalViews),
		ManageLists:            m.Has(ManageLists),
		ViewFormPages:          m.Has(ViewFormPages),
		Open:                   m.Has(Open),
		ViewPages:              m.Has(ViewPages),
		AddAndCustomizePages:   m.Has(AddAndCustomizePages),
		ApplyThemeAndBorder:    m.Has(ApplyThemeAndBorder),
		ApplyStyleSheets:       m.Has(ApplyStyleSheets),
		ViewUsageData:          m.Has(ViewUsageData),
		CreateSSCSite:          m.Has(CreateSSCSite),
		ManageSubwebs:          m.Has(ManageSubwebs),
		CreateGroups:           m.Has(CreateGroups),
		ManagePermissions:      m.Has(ManagePermissions),
		BrowseDirectories:      m.Has(BrowseDirectories),
		BrowseUserInfo:         m.Has(BrowseUserInfo),
		AddDelPrivateWebParts:  m.Has(AddDelPrivateWebParts),
		UpdatePersonalWebParts: m.Has(UpdatePersonalWebParts),
		ManageWeb:              m.Has(ManageWeb),
		UseClientIntegration:   m.Has(UseClientIntegration),
		UseRemoteAPIs:          m.Has(UseRemoteAPIs),
		ManageAlerts:           m.Has(ManageAlerts),
		CreateAlerts:           m.Has(CreateAlerts),
		EditMyUserInfo:         m.Has(EditMyUserInfo),
		EnumeratePermissions:   m.Has(EnumeratePermissions),
		FullMask:               m == FullMask,
	}
}

// CanEdit returns true if list items may be edited
func (p Permissions) CanEdit() bool {
	return p.FullMask || p.EditListItems
}

// CanAdd returns true if list items may be created
func (p Permissions) CanAdd() bool {
	return p.FullMask || p.AddListItems
}

// CanDelete returns true if list items may be deleted
func (p Permissions) CanDelete() bool {
	return p.FullMask || p.DeleteListItems
}
