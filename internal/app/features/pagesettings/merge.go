package pagesettings

import (
	"strings"

	"github.com/dalemusser/pagecms/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pagecms/internal/app/system/inputval"
	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/domain/models"
)

// change is a validated submission resolved against the stored settings,
// ready to be written.
type change struct {
	values     map[string]string            // storage keys
	lists      map[string][]models.ListItem // storage keys
	changed    []string                     // field and list names, for the audit trail
	superseded []string                     // stored files no longer referenced after the write
}

// pendingFiles lists the uploads of a submission. Keys match error keys so
// a storage failure can be reported against the input it came from.
func pendingFiles(form *pageschema.Form, sub *pageform.Submission) []uploads.File {
	var files []uploads.File
	for _, fd := range form.Fields() {
		if fh, ok := sub.Files[fd.Name]; ok {
			files = append(files, uploads.File{Key: fd.Name, Accept: fd.Accept(), Header: fh})
		}
	}
	for _, l := range form.Lists() {
		for j, it := range sub.Lists[l.Name] {
			for _, fd := range l.Fields {
				if fh, ok := it.Files[fd.Name]; ok {
					files = append(files, uploads.File{
						Key:    pageform.ErrorKey(l.Name, j, fd.Name),
						Accept: fd.Accept(),
						Header: fh,
					})
				}
			}
			if l.Video && videoSource(it.Video) == pageform.SourceUpload && it.Video.File != nil {
				files = append(files, uploads.File{
					Key:    pageform.ErrorKey(l.Name, j, pageform.VideoFileField),
					Accept: videoAccept,
					Header: it.Video.File,
				})
			}
		}
	}
	return files
}

// merge resolves a validated submission. stored maps upload keys to the
// paths they were written to. Absent scalars, files and lists are left out
// of the change so the write leaves them untouched.
func merge(form *pageschema.Form, sub *pageform.Submission, current *models.PageSettings, stored map[string]string, newID func() string) change {
	ch := change{
		values: map[string]string{},
		lists:  map[string][]models.ListItem{},
	}

	for _, fd := range form.Fields() {
		key := form.Qualify(fd.Name)
		old, _ := current.Value(key)

		var next string
		if fd.IsMedia() {
			p, uploaded := stored[fd.Name]
			switch {
			case uploaded:
				next = p
			case sub.Remove[fd.Name]:
				next = ""
			default:
				continue
			}
			if old != "" && old != next {
				ch.superseded = append(ch.superseded, old)
			}
		} else {
			v, ok := sub.Values[fd.Name]
			if !ok {
				continue
			}
			next = clean(fd, v)
		}

		ch.values[key] = next
		if next != old {
			ch.changed = append(ch.changed, fd.Name)
		}
	}

	for _, l := range form.Lists() {
		items, ok := sub.Lists[l.Name]
		if !ok {
			continue
		}
		key := form.Qualify(l.Name)
		oldItems, _ := current.List(key)
		prev := storedByID(current, key)

		out := make([]models.ListItem, 0, len(items))
		seen := map[string]bool{}
		for j, it := range items {
			id := it.ID
			if id == "" || len(id) > 64 || seen[id] {
				id = newID()
			}
			seen[id] = true
			p := prev[id]

			li := models.ListItem{ID: id, Values: map[string]string{}}
			for _, fd := range l.Fields {
				if fd.IsMedia() {
					if path, ok := stored[pageform.ErrorKey(l.Name, j, fd.Name)]; ok {
						li.Values[fd.Name] = path
						continue
					}
					li.Values[fd.Name] = keptMedia(it.Values[fd.Name], p.Values[fd.Name])
					continue
				}
				v, ok := it.Values[fd.Name]
				if !ok && fd.Kind == pageschema.KindBool {
					v = "false"
				}
				li.Values[fd.Name] = clean(fd, v)
			}
			if l.Video {
				li.Video = mergeVideo(it.Video, p, stored[pageform.ErrorKey(l.Name, j, pageform.VideoFileField)])
			}
			out = append(out, li)
		}

		ch.lists[key] = out
		ch.superseded = append(ch.superseded, droppedFiles(l, oldItems, out)...)
		if !sameItems(oldItems, out) {
			ch.changed = append(ch.changed, l.Name)
		}
	}
	return ch
}

// keptMedia decides the media value of an item that carried no upload.
// A posted path is only trusted if the item already stored it or if it
// points outside the file store; anything else could reference another
// page's files.
func keptMedia(posted, prev string) string {
	switch {
	case posted == "":
		return ""
	case posted == prev:
		return prev
	case inputval.IsExternalMedia(posted):
		return posted
	}
	return prev
}

func mergeVideo(v pageform.SubmittedVideo, prev models.ListItem, uploaded string) *models.VideoSource {
	var src models.VideoSource
	switch videoSource(v) {
	case pageform.SourceUpload:
		src = models.VideoFromFile(uploaded)
	case pageform.SourceFile:
		p, _ := storedVideoPath(prev)
		src = models.VideoFromFile(p)
	default:
		src = models.VideoFromURL(strings.TrimSpace(v.URL))
	}
	return &src
}

// clean normalizes a scalar for storage.
func clean(fd pageschema.Field, v string) string {
	switch fd.Kind {
	case pageschema.KindRichText:
		return htmlsanitize.Sanitize(v)
	case pageschema.KindText, pageschema.KindTextArea:
		return htmlsanitize.StripTags(v)
	case pageschema.KindURL:
		return strings.TrimSpace(v)
	case pageschema.KindBool:
		b, _ := parseBool(v)
		return b
	}
	return v
}

// storedByID indexes a stored list by item ID.
func storedByID(current *models.PageSettings, key string) map[string]models.ListItem {
	items, _ := current.List(key)
	out := make(map[string]models.ListItem, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out
}

// droppedFiles returns the stored files of old items that the new list no
// longer references.
func droppedFiles(l pageschema.List, old, next []models.ListItem) []string {
	keep := map[string]bool{}
	for _, p := range itemFiles(l, next) {
		keep[p] = true
	}
	var out []string
	for _, p := range itemFiles(l, old) {
		if !keep[p] {
			out = append(out, p)
			keep[p] = true
		}
	}
	return out
}

func itemFiles(l pageschema.List, items []models.ListItem) []string {
	var out []string
	for _, it := range items {
		for _, fd := range l.Fields {
			if v := it.Values[fd.Name]; fd.IsMedia() && v != "" {
				out = append(out, v)
			}
		}
		if it.Video != nil {
			if p, ok := it.Video.FilePath(); ok && p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func sameItems(a, b []models.ListItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || len(a[i].Values) != len(b[i].Values) {
			return false
		}
		for k, v := range a[i].Values {
			if b[i].Values[k] != v {
				return false
			}
		}
		if videoKey(a[i].Video) != videoKey(b[i].Video) {
			return false
		}
	}
	return true
}

func videoKey(v *models.VideoSource) string {
	if v == nil {
		return ""
	}
	if p, ok := v.FilePath(); ok {
		return "file:" + p
	}
	u, _ := v.URL()
	return "url:" + u
}
