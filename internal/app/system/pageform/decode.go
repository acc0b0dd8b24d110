package pageform

import (
	"mime/multipart"
	"sort"

	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
)

// Submission is a decoded settings POST. Only what the request carried is
// present: an absent scalar, file or list means "leave unchanged".
type Submission struct {
	Values map[string]string
	Files  map[string]*multipart.FileHeader
	Remove map[string]bool
	Lists  map[string][]SubmittedItem // only lists named by a _list marker
}

// SubmittedItem is one decoded list item, in submitted order.
type SubmittedItem struct {
	Index  int
	ID     string
	Values map[string]string
	Files  map[string]*multipart.FileHeader
	Video  SubmittedVideo
}

// SubmittedVideo is the decoded video source of an item.
type SubmittedVideo struct {
	Source string
	URL    string
	Path   string
	File   *multipart.FileHeader
}

// HasList reports whether the submission replaces the named list.
func (s *Submission) HasList(name string) bool {
	_, ok := s.Lists[name]
	return ok
}

// Decode reads a parsed multipart form against a form schema. Keys that do
// not belong to the schema are ignored. A url-encoded body can be decoded by
// passing &multipart.Form{Value: r.PostForm}.
func Decode(schema *pageschema.Form, mf *multipart.Form) *Submission {
	sub := &Submission{
		Values: map[string]string{},
		Files:  map[string]*multipart.FileHeader{},
		Remove: map[string]bool{},
		Lists:  map[string][]SubmittedItem{},
	}
	if mf == nil {
		return sub
	}

	for _, fd := range schema.Fields() {
		if fd.IsMedia() {
			if fh := firstFile(mf.File[fd.Name]); fh != nil {
				sub.Files[fd.Name] = fh
			}
			if isTruthy(first(mf.Value[RemovePrefix+fd.Name])) {
				sub.Remove[fd.Name] = true
			}
			continue
		}
		if vals, ok := mf.Value[fd.Name]; ok && len(vals) > 0 {
			sub.Values[fd.Name] = vals[0]
		}
	}

	marked := map[string]pageschema.List{}
	for _, name := range mf.Value[ListMarker] {
		if l, ok := schema.List(name); ok {
			marked[name] = l
		}
	}
	if len(marked) == 0 {
		return sub
	}

	byList := map[string]map[int]*SubmittedItem{}
	get := func(list string, idx int) *SubmittedItem {
		m := byList[list]
		if m == nil {
			m = map[int]*SubmittedItem{}
			byList[list] = m
		}
		it := m[idx]
		if it == nil {
			it = &SubmittedItem{Index: idx, Values: map[string]string{}, Files: map[string]*multipart.FileHeader{}}
			m[idx] = it
		}
		return it
	}

	for key, vals := range mf.Value {
		name, idx, field, ok := ParseItemKey(key)
		if !ok {
			continue
		}
		l, ok := marked[name]
		if !ok {
			continue
		}
		v := firstNonEmpty(vals)
		switch {
		case field == "":
			if len(l.Fields) == 1 {
				get(name, idx).Values[l.Fields[0].Name] = v
			}
		case field == IDField:
			get(name, idx).ID = v
		case l.Video && field == VideoSourceField:
			get(name, idx).Video.Source = v
		case l.Video && field == VideoURLField:
			get(name, idx).Video.URL = v
		case l.Video && field == VideoPathField:
			get(name, idx).Video.Path = v
		default:
			if _, ok := l.Field(field); ok {
				get(name, idx).Values[field] = v
			}
		}
	}

	for key, fhs := range mf.File {
		name, idx, field, ok := ParseItemKey(key)
		if !ok {
			continue
		}
		l, ok := marked[name]
		if !ok {
			continue
		}
		fh := firstFile(fhs)
		if fh == nil {
			continue
		}
		if l.Video && field == VideoFileField {
			get(name, idx).Video.File = fh
			continue
		}
		if fd, ok := l.Field(field); ok && fd.IsMedia() {
			get(name, idx).Files[field] = fh
		}
	}

	for name := range marked {
		m := byList[name]
		idxs := make([]int, 0, len(m))
		for i := range m {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		items := make([]SubmittedItem, 0, len(idxs))
		for _, i := range idxs {
			items = append(items, *m[i])
		}
		sub.Lists[name] = items
	}
	return sub
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// firstNonEmpty prefers a real value over the empty string a browser sends
// for an untouched file input sharing the name of a hidden stored path.
func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFile(fhs []*multipart.FileHeader) *multipart.FileHeader {
	for _, fh := range fhs {
		if fh != nil && (fh.Size > 0 || fh.Filename != "") {
			return fh
		}
	}
	return nil
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
