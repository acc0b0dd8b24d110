// internal/app/features/auditlog/auditlog.go
package auditlog

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/pagecms/internal/app/features/errors"
	"github.com/dalemusser/pagecms/internal/app/store/audit"
	"github.com/dalemusser/pagecms/internal/app/system/inputval"
	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const pageSize = 50

// Path is where the change history is mounted.
const Path = "/admin/audit"

// Handler serves the change history of page settings and collections.
type Handler struct {
	auditStore *audit.Store
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new audit log Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	if errLog == nil {
		errLog = errorsfeature.NewErrorLogger(logger)
	}
	return &Handler{
		auditStore: audit.New(db),
		errLog:     errLog,
		logger:     logger,
	}
}

// Routes returns a chi.Router with audit log routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	return r
}

// listItem represents a single audit event row for display.
type listItem struct {
	When    string    `json:"-"`
	Time    time.Time `json:"created_at"`
	Event   string    `json:"event_type"`
	Label   string    `json:"-"`
	Target  string    `json:"target"`
	Actor   string    `json:"actor"`
	IP      string    `json:"ip"`
	Success bool      `json:"success"`
	Details []detail  `json:"details,omitempty"`
}

type detail struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type option struct {
	Value string
	Label string
}

// listData is the view model for the audit log list page.
type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	FilterError string
	EventType   string
	PageSlug  string
	StartDate string
	EndDate   string

	EventTypes []option
	Pages      []option

	// Pagination
	Page       int
	TotalPages int
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string
}

var eventLabels = map[string]string{
	audit.EventPageSettingsUpdated:  "Settings saved",
	audit.EventPageSettingsRejected: "Settings rejected",
	audit.EventEntityCreated:        "Entry added",
	audit.EventEntityUpdated:        "Entry edited",
	audit.EventEntityDeleted:        "Entry deleted",
}

func eventOptions() []option {
	return []option{
		{audit.EventPageSettingsUpdated, eventLabels[audit.EventPageSettingsUpdated]},
		{audit.EventPageSettingsRejected, eventLabels[audit.EventPageSettingsRejected]},
		{audit.EventEntityCreated, eventLabels[audit.EventEntityCreated]},
		{audit.EventEntityUpdated, eventLabels[audit.EventEntityUpdated]},
		{audit.EventEntityDeleted, eventLabels[audit.EventEntityDeleted]},
	}
}

func pageOptions() []option {
	var out []option
	for _, p := range pageschema.Pages() {
		out = append(out, option{p.Slug, p.Title})
	}
	return out
}

// filterInput holds the list filters as they arrive in the query string.
type filterInput struct {
	EventType string `validate:"omitempty,oneof=page_settings_updated page_settings_rejected entity_created entity_updated entity_deleted" label:"Event"`
	PageSlug  string `validate:"omitempty,pageslug" label:"Page"`
	StartDate string `validate:"omitempty,datetime=2006-01-02" label:"From"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02" label:"To"`
}

// drop clears the named filter and reports whether it knew the name.
func (in *filterInput) drop(field string) bool {
	switch field {
	case "EventType":
		in.EventType = ""
	case "PageSlug":
		in.PageSlug = ""
	case "StartDate":
		in.StartDate = ""
	case "EndDate":
		in.EndDate = ""
	default:
		return false
	}
	return true
}

// list shows content changes, newest first, with filtering and pagination.
// JSON clients get a 400 for a bad filter; the page drops it and says so.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := filterInput{
		EventType: strings.TrimSpace(q.Get("event_type")),
		PageSlug:  strings.TrimSpace(q.Get("page_slug")),
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
	}
	var filterErr string
	for res := inputval.Validate(in); res.HasErrors(); res = inputval.Validate(in) {
		if jsonutil.Wants(r) {
			jsonutil.BadRequest(w, res.First())
			return
		}
		if filterErr == "" {
			filterErr = res.First()
		}
		if !in.drop(res.Errors[0].Field) {
			break
		}
	}
	eventType, pageSlug, startDate, endDate := in.EventType, in.PageSlug, in.StartDate, in.EndDate

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		Page:      pageSlug,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if t, err := time.ParseInLocation("2006-01-02", startDate, time.Local); err == nil {
		filter.StartTime = &t
	}
	if t, err := time.ParseInLocation("2006-01-02", endDate, time.Local); err == nil {
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}

	events, err := h.auditStore.Query(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to query audit events", err)
		if jsonutil.Wants(r) {
			jsonutil.InternalError(w, "Failed to load change history.")
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	total, err := h.auditStore.CountByFilter(r.Context(), filter)
	if err != nil {
		h.logger.Warn("failed to count audit events", zap.Error(err))
		total = int64(len(events))
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, toItem(e))
	}

	if jsonutil.Wants(r) {
		jsonutil.OK(w, map[string]any{"data": items, "total": total, "page": page})
		return
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	vm := listData{
		BaseVM:      viewdata.NewBaseVM(w, r, "Change History", "/admin"),
		Items:       items,
		FilterError: filterErr,
		EventType:   eventType,
		PageSlug:    pageSlug,
		StartDate:   startDate,
		EndDate:     endDate,
		EventTypes:  eventOptions(),
		Pages:       pageOptions(),
		Page:        page,
		TotalPages:  totalPages,
		Total:       total,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}
	if vm.HasPrev {
		vm.PrevURL = pageURL(r, page-1)
	}
	if vm.HasNext {
		vm.NextURL = pageURL(r, page+1)
	}

	templates.Render(w, r, "auditlog/list", vm)
}

func toItem(e audit.Event) listItem {
	it := listItem{
		When:    e.CreatedAt.Local().Format("Jan 2, 2006 15:04"),
		Time:    e.CreatedAt,
		Event:   e.EventType,
		Label:   eventLabels[e.EventType],
		Actor:   e.Actor,
		IP:      e.IP,
		Success: e.Success,
	}
	if it.Label == "" {
		it.Label = e.EventType
	}
	switch {
	case e.Page != "":
		it.Target = e.Page
		if p, ok := pageschema.Lookup(e.Page); ok {
			it.Target = p.Title
		}
	case e.EntityKind != "":
		it.Target = e.EntityKind
		if k, ok := pageschema.Entity(e.EntityKind); ok {
			it.Target = k.Title
		}
		if e.EntityID != "" {
			it.Target += " " + e.EntityID
		}
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		it.Details = append(it.Details, detail{Key: k, Value: e.Details[k]})
	}
	return it
}

// pageURL keeps the current filters and swaps the page number.
func pageURL(r *http.Request, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return r.URL.Path + "?" + q.Encode()
}
