package pagesettings

import (
	"path"
	"strconv"

	"github.com/dalemusser/pagecms/internal/app/system/formutil"
	"github.com/dalemusser/pagecms/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/domain/models"
)

// indexTemplate is the placeholder index of the hidden item template that
// the browser clones when adding a list item.
const indexTemplate = "__INDEX__"

// indexVM is the view model for the admin landing page.
type indexVM struct {
	formutil.Base
	Pages    []pageRow
	Entities []entityRow
	Usage    []usageRow
}

type usageRow struct {
	Label    string
	Requests int64
	Errors   int64
	AvgMs    string
	MaxMs    int64
}

type pageRow struct {
	Title     string
	Path      string
	Forms     int
	UpdatedAt string // "" if never saved
}

type entityRow struct {
	Title string
	Path  string
	Count int64
}

// pageVM is the view model for one page's settings screen.
type pageVM struct {
	formutil.Base
	Page     *pageschema.Page
	Forms    []formVM
	Entities []entityRow
}

type formVM struct {
	Key      string
	Title    string
	Endpoint string
	Failed   bool // this form's last submit was rejected
	Sections []sectionVM
}

type sectionVM struct {
	Title       string
	Description string
	Fields      []formutil.Input
	Lists       []listVM
}

type listVM struct {
	pageschema.List
	Items    []itemVM
	Template itemVM
}

type itemVM struct {
	Index  string
	ID     string
	IDName string
	Fields []formutil.Input
	Video  *videoVM
}

type videoVM struct {
	Source   string
	URL      string
	Path     string
	FileName string
	FileURL  string

	SourceName string
	URLName    string
	FileInput  string
	PathName   string
	Error      string
}

// formState is what a form shows: resolved values and list items.
type formState struct {
	values map[string]string
	lists  map[string][]models.ListItem
}

// stateFromForm reads the resolved state of a form controller.
func stateFromForm(f *pageform.Form) formState {
	st := formState{values: f.Values(), lists: map[string][]models.ListItem{}}
	for _, l := range f.Schema().Lists() {
		var out []models.ListItem
		for _, it := range f.Items(l.Name) {
			li := models.ListItem{ID: it.ID, Values: it.Values}
			if l.Video {
				li.Video = videoFromInput(it.Video)
			}
			out = append(out, li)
		}
		st.lists[l.Name] = out
	}
	return st
}

func videoFromInput(in pageform.VideoInput) *models.VideoSource {
	var v models.VideoSource
	switch in := in.(type) {
	case pageform.VideoStored:
		v = models.VideoFromFile(in.Path)
	case pageform.VideoURL:
		v = models.VideoFromURL(in.URL)
	default:
		v = models.VideoFromURL("")
	}
	return &v
}

// echo overlays a rejected submission on the stored state so the user sees
// what they typed. Files must be picked again.
func (st formState) echo(form *pageschema.Form, sub *pageform.Submission, current *models.PageSettings) formState {
	for name, v := range sub.Values {
		st.values[name] = v
	}
	for _, l := range form.Lists() {
		items, ok := sub.Lists[l.Name]
		if !ok {
			continue
		}
		prev := storedByID(current, form.Qualify(l.Name))
		out := make([]models.ListItem, 0, len(items))
		for _, it := range items {
			li := models.ListItem{ID: it.ID, Values: map[string]string{}}
			for _, fd := range l.Fields {
				if fd.IsMedia() {
					li.Values[fd.Name] = keptMedia(it.Values[fd.Name], prev[it.ID].Values[fd.Name])
					continue
				}
				li.Values[fd.Name] = it.Values[fd.Name]
			}
			if l.Video {
				var v models.VideoSource
				if videoSource(it.Video) == pageform.SourceFile {
					p, _ := storedVideoPath(prev[it.ID])
					v = models.VideoFromFile(p)
				} else {
					v = models.VideoFromURL(it.Video.URL)
				}
				li.Video = &v
			}
			out = append(out, li)
		}
		st.lists[l.Name] = out
	}
	return st
}

func (h *Handler) buildForm(form *pageschema.Form, st formState, errs map[string]string) formVM {
	vm := formVM{
		Key:      form.Key,
		Title:    form.Title,
		Endpoint: form.Endpoint,
		Failed:   len(errs) > 0,
	}
	for _, s := range form.Sections {
		svm := sectionVM{Title: s.Title, Description: s.Description}
		for _, fd := range s.Fields {
			in := h.field(fd, fd.Name, fd.Name, st.values[fd.Name], errs)
			if fd.IsMedia() {
				in.RemoveName = pageform.RemovePrefix + fd.Name
			}
			svm.Fields = append(svm.Fields, in)
		}
		for _, l := range s.Lists {
			lvm := listVM{List: l}
			for j, it := range st.lists[l.Name] {
				lvm.Items = append(lvm.Items, h.item(l, strconv.Itoa(j), it, errs))
			}
			lvm.Template = h.item(l, indexTemplate, blankItem(l), nil)
			svm.Lists = append(svm.Lists, lvm)
		}
		vm.Sections = append(vm.Sections, svm)
	}
	return vm
}

func (h *Handler) field(fd pageschema.Field, inputName, errKey, value string, errs map[string]string) formutil.Input {
	f := formutil.Input{
		Field:     fd,
		InputName: inputName,
		ErrorKey:  errKey,
		Value:     value,
		Error:     errs[errKey],
	}
	if fd.IsMedia() && value != "" {
		f.MediaURL = h.uploads.URL(value)
	}
	switch fd.Kind {
	case pageschema.KindBool:
		f.Checked, _ = strconv.ParseBool(value)
	case pageschema.KindRichText:
		f.Preview = htmlsanitize.PrepareForDisplay(value)
	}
	return f
}

func (h *Handler) item(l pageschema.List, index string, it models.ListItem, errs map[string]string) itemVM {
	wire := func(field string) string { return l.Name + "[" + index + "][" + field + "]" }
	errKey := func(field string) string { return l.Name + "." + index + "." + field }

	vm := itemVM{Index: index, ID: it.ID, IDName: wire(pageform.IDField)}
	for _, fd := range l.Fields {
		vm.Fields = append(vm.Fields, h.field(fd, wire(fd.Name), errKey(fd.Name), it.Values[fd.Name], errs))
	}
	if l.Video {
		v := &videoVM{
			Source:     pageform.SourceURL,
			SourceName: wire(pageform.VideoSourceField),
			URLName:    wire(pageform.VideoURLField),
			FileInput:  wire(pageform.VideoFileField),
			PathName:   wire(pageform.VideoPathField),
		}
		if it.Video != nil {
			if p, ok := it.Video.FilePath(); ok && p != "" {
				v.Source = pageform.SourceFile
				v.Path = p
				v.FileName = path.Base(p)
				v.FileURL = h.uploads.URL(p)
			} else {
				v.URL, _ = it.Video.URL()
			}
		}
		for _, f := range []string{pageform.VideoSourceField, pageform.VideoURLField, pageform.VideoFileField} {
			if msg := errs[errKey(f)]; msg != "" {
				v.Error = msg
				break
			}
		}
		vm.Video = v
	}
	return vm
}

func blankItem(l pageschema.List) models.ListItem {
	it := models.ListItem{Values: map[string]string{}}
	for _, fd := range l.Fields {
		if fd.Kind == pageschema.KindBool {
			it.Values[fd.Name] = "false"
		}
	}
	if l.Video {
		v := models.VideoFromURL("")
		it.Video = &v
	}
	return it
}
