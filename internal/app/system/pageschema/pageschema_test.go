package pageschema

import (
	"testing"

	"github.com/dalemusser/pagecms/internal/domain/models"
)

func TestPages_CoverAllSlugs(t *testing.T) {
	for _, slug := range models.AllPageSlugs() {
		p, ok := Lookup(slug)
		if !ok {
			t.Errorf("Lookup(%q) not found", slug)
			continue
		}
		if len(p.Forms) == 0 {
			t.Errorf("page %q has no forms", slug)
		}
	}
	if len(Pages()) != len(models.AllPageSlugs()) {
		t.Errorf("Pages() = %d, want %d", len(Pages()), len(models.AllPageSlugs()))
	}
}

func TestForms_UniqueKeysAndEndpoints(t *testing.T) {
	keys := map[string]bool{}
	endpoints := map[string]bool{}
	for _, f := range Forms() {
		if keys[f.Key] {
			t.Errorf("duplicate form key %q", f.Key)
		}
		keys[f.Key] = true
		if endpoints[f.Endpoint] {
			t.Errorf("duplicate endpoint %q", f.Endpoint)
		}
		endpoints[f.Endpoint] = true

		names := map[string]bool{}
		for _, fd := range f.Fields() {
			if names[fd.Name] {
				t.Errorf("form %q: duplicate field %q", f.Key, fd.Name)
			}
			names[fd.Name] = true
		}
		for _, l := range f.Lists() {
			if names[l.Name] {
				t.Errorf("form %q: list %q collides with another name", f.Key, l.Name)
			}
			names[l.Name] = true
		}
	}
}

func TestEndpoints(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"blogs", "/admin/blogs-page-settings/update"},
		{"life-events", "/admin/life-events-page-settings/update"},
		{"about-me.banner", "/admin/about-me-page-settings/update-banner"},
		{"about-me.report", "/admin/about-me-page-settings/update-report"},
		{"about-me.corporate", "/admin/about-me-page-settings/update-corporate"},
		{"about-me.associates", "/admin/about-me-page-settings/update-associates"},
	}
	for _, tt := range tests {
		f, ok := FormByKey(tt.key)
		if !ok {
			t.Errorf("FormByKey(%q) not found", tt.key)
			continue
		}
		if f.Endpoint != tt.want {
			t.Errorf("FormByKey(%q).Endpoint = %q, want %q", tt.key, f.Endpoint, tt.want)
		}
	}
	if _, ok := FormByKey("about-me"); ok {
		t.Error("FormByKey(about-me) should not resolve without a group")
	}
	if _, ok := FormByKey("nope"); ok {
		t.Error("FormByKey(nope) should fail")
	}
}

func TestQualify(t *testing.T) {
	blogs, _ := FormByKey("blogs")
	if got := blogs.Qualify("page_title"); got != "page_title" {
		t.Errorf("Qualify = %q, want page_title", got)
	}
	banner, _ := FormByKey("about-me.banner")
	if got := banner.Qualify("label"); got != "banner:label" {
		t.Errorf("Qualify = %q, want banner:label", got)
	}
}

func TestSuccessMessages(t *testing.T) {
	blogs, _ := FormByKey("blogs")
	if blogs.SuccessMessage != "Blogs page settings updated successfully" {
		t.Errorf("SuccessMessage = %q", blogs.SuccessMessage)
	}
	banner, _ := FormByKey("about-me.banner")
	if banner.SuccessMessage != "Banner settings updated successfully" {
		t.Errorf("SuccessMessage = %q", banner.SuccessMessage)
	}
}

func TestField_Accept(t *testing.T) {
	tech, _ := FormByKey("technology")
	f, ok := tech.Field("react_icon_svg")
	if !ok {
		t.Fatal("react_icon_svg missing")
	}
	if !f.IsMedia() || f.Accept() != "image/svg+xml" {
		t.Errorf("svg field: media=%v accept=%q", f.IsMedia(), f.Accept())
	}
	f, _ = tech.Field("banner_image")
	if f.Accept() != "image/*" {
		t.Errorf("image accept = %q", f.Accept())
	}
	f, _ = tech.Field("banner_title")
	if f.IsMedia() || f.Accept() != "" {
		t.Errorf("text field should not be media")
	}
}

func TestVideoLists(t *testing.T) {
	videos, _ := FormByKey("videos")
	for _, name := range []string{"banner_videos", "all_videos", "short_videos"} {
		l, ok := videos.List(name)
		if !ok {
			t.Errorf("list %q missing", name)
			continue
		}
		if !l.Video {
			t.Errorf("list %q should carry video sources", name)
		}
	}
	ent, _ := FormByKey("entrepreneurship")
	if l, _ := ent.List("quotes"); l.Video {
		t.Error("quotes should not carry video sources")
	}
}

func TestEntities(t *testing.T) {
	for _, kind := range models.AllEntityKinds() {
		k, ok := Entity(kind)
		if !ok {
			t.Errorf("Entity(%q) missing", kind)
			continue
		}
		if k.ConfirmPrompt == "" || k.UpdatedMessage == "" || k.DeletedMessage == "" {
			t.Errorf("Entity(%q) missing messages", kind)
		}
		if k.AdminPath() != "/admin/"+kind {
			t.Errorf("AdminPath = %q", k.AdminPath())
		}
	}
	awards, _ := Entity("awards")
	if awards.ConfirmPrompt != "Are you sure you want to delete this award?" {
		t.Errorf("ConfirmPrompt = %q", awards.ConfirmPrompt)
	}
}
