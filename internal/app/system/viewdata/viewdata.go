// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"
	"strings"

	"github.com/dalemusser/pagecms/internal/app/system/flash"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// DefaultSiteName is shown in the menu header when none is configured.
const DefaultSiteName = "Page CMS"

// NavItem is one entry of the admin menu.
type NavItem struct {
	Title  string
	URL    string
	Active bool
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(w, r, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	SiteName string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string
	Nav         []NavItem

	// Security
	CSRFToken string // CSRF token for forms (use in hidden input field)

	// Toast queued by the previous request (nil if none)
	Toast *flash.Toast
}

var (
	siteName = DefaultSiteName
	flashes  *flash.Manager
)

// Init sets the site name and the flash manager used to pop toasts.
// Call this once at startup from bootstrap.
func Init(name string, f *flash.Manager) {
	if name != "" {
		siteName = name
	}
	flashes = f
}

// SiteName returns the configured site name.
func SiteName() string {
	return siteName
}

// NewBaseVM creates a fully populated BaseVM for a page.
//
// Parameters:
//   - w, r: the response (for clearing the toast cookie) and request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(w http.ResponseWriter, r *http.Request, title, backDefault string) BaseVM {
	vm := New(w, r)
	vm.Title = title
	vm.BackURL = httpnav.ResolveBackURL(r, backDefault)
	return vm
}

// New creates a BaseVM with the menu and any pending toast.
// This is the standard way to create a BaseVM for most handlers.
func New(w http.ResponseWriter, r *http.Request) BaseVM {
	current := httpnav.CurrentPath(r)
	vm := BaseVM{
		SiteName:    siteName,
		CurrentPath: current,
		Nav:         nav(current),
		CSRFToken:   csrf.Token(r),
	}
	if w != nil {
		vm.Toast = flashes.Pop(w, r)
	}
	return vm
}

// historyPath is the change history page, listed last.
const historyPath = "/admin/audit"

// nav lists every settings page followed by the entity collections.
func nav(current string) []NavItem {
	var items []NavItem
	for _, p := range pageschema.Pages() {
		items = append(items, NavItem{
			Title:  p.Title,
			URL:    p.Path,
			Active: current == p.Path,
		})
	}
	for _, k := range pageschema.Entities() {
		items = append(items, NavItem{
			Title:  k.Title,
			URL:    k.AdminPath(),
			Active: current == k.AdminPath() || strings.HasPrefix(current, k.AdminPath()+"/"),
		})
	}
	items = append(items, NavItem{Title: "Change History", URL: historyPath, Active: current == historyPath})
	return items
}
