package handlers

import (
	"context"
	"net/http"
	"strconv"

	"spmodel/domain/sharepoint"
	"spmodel/infrastructure/storage"
	"spmodel/interfaces/web/presenters"
	"spmodel/interfaces/web/templates/pages"
	"spmodel/platform/events"
)

// UserLookup returns the memoized profile and groups of the current user.
type UserLookup interface {
	GetUserProfile(ctx context.Context, force bool) (*sharepoint.UserProfile, error)
	GetGroupCollection(ctx context.Context, force bool) ([]sharepoint.Group, error)
}

// ActivityFeed exposes the recorded activity entries.
type ActivityFeed interface {
	Recent(n int) []events.ActivityEntry
	Len() int
}

// StorageReporter reports the usage of the snapshot stores.
type StorageReporter interface {
	StorageStats(ctx context.Context) ([]storage.Stats, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// SiteHandlers serves the site level endpoints: current user, activity and health.
type SiteHandlers struct {
	users             UserLookup
	activity          ActivityFeed
	storage           StorageReporter
	database          HealthCheck
	sitePresenter     *presenters.SitePresenter
	activityPresenter presenters.ActivityPresenterInterface
}

// NewSiteHandlers creates site handlers. users and database may be nil.
func NewSiteHandlers(users UserLookup, activity ActivityFeed, storage StorageReporter, database HealthCheck,
	sitePresenter *presenters.SitePresenter, activityPresenter presenters.ActivityPresenterInterface) *SiteHandlers {
	return &SiteHandlers{
		users:             users,
		activity:          activity,
		storage:           storage,
		database:          database,
		sitePresenter:     sitePresenter,
		activityPresenter: activityPresenter,
	}
}

// Me renders the current user profile and groups; ?refresh=true bypasses the memoized values.
func (h *SiteHandlers) Me(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		http.Error(w, "user directory not configured", http.StatusNotImplemented)
		return
	}
	ctx := r.Context()
	force := boolQuery(r, "refresh")

	profile, err := h.users.GetUserProfile(ctx, force)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups, err := h.users.GetGroupCollection(ctx, force)
	if err != nil {
		writeError(w, r, err)
		return
	}

	vm := h.sitePresenter.ToProfileViewModel(profile, groups)
	renderView(w, r, vm, pages.ProfilePage(*vm))
}

// Activity renders the most recent activity entries; ?limit= caps the count.
func (h *SiteHandlers) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	feed := h.activityPresenter.ToActivityFeedView(h.activity.Recent(limit), h.activity.Len())
	renderView(w, r, feed, pages.ActivityPage(feed))
}

type storageHealth struct {
	Backend  string `json:"backend"`
	Entries  int    `json:"entries"`
	Bytes    int64  `json:"bytes"`
	Size     string `json:"size"`
	Disabled string `json:"disabled,omitempty"`
}

type healthResponse struct {
	Status   string          `json:"status"`
	Database string          `json:"database"`
	Storage  []storageHealth `json:"storage"`
}

// Health reports database connectivity and snapshot storage usage as JSON.
func (h *SiteHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := healthResponse{Status: "healthy", Database: "not configured", Storage: []storageHealth{}}
	status := http.StatusOK

	if h.database != nil {
		if err := h.database(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	if h.storage != nil {
		stats, err := h.storage.StorageStats(ctx)
		if err != nil {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		for _, s := range stats {
			resp.Storage = append(resp.Storage, storageHealth{
				Backend:  s.Backend,
				Entries:  s.Entries,
				Bytes:    s.Bytes,
				Size:     s.HumanBytes(),
				Disabled: s.Disabled,
			})
		}
	}

	RenderJSON(w, status, resp)
}
