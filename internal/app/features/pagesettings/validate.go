package pagesettings

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/pagecms/internal/app/system/inputval"
	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/domain/models"
)

// videoAccept is the accept filter of uploaded list videos.
const videoAccept = uploads.VideoAccept

// validate checks a decoded submission against the form schema and the
// stored settings. The returned map is keyed the way the client posted:
// "banner_title", "quotes.0.content". An empty map means the submission
// can be applied.
func validate(form *pageschema.Form, sub *pageform.Submission, current *models.PageSettings) map[string]string {
	errs := map[string]string{}

	for name, v := range sub.Values {
		fd, ok := form.Field(name)
		if !ok {
			continue
		}
		if msg := checkValue(fd, v); msg != "" {
			errs[name] = msg
		}
	}
	for name, fh := range sub.Files {
		fd, _ := form.Field(name)
		if _, err := uploads.Check(fh, fd.Accept()); err != nil {
			errs[name] = uploads.RejectMessage(fd.Label, fd.Accept(), err)
		}
	}

	for _, l := range form.Lists() {
		items, ok := sub.Lists[l.Name]
		if !ok {
			continue
		}
		stored := storedByID(current, form.Qualify(l.Name))
		for j, it := range items {
			for _, fd := range l.Fields {
				key := pageform.ErrorKey(l.Name, j, fd.Name)
				if fh, ok := it.Files[fd.Name]; ok {
					if _, err := uploads.Check(fh, fd.Accept()); err != nil {
						errs[key] = uploads.RejectMessage(fd.Label, fd.Accept(), err)
					}
					continue
				}
				if fd.IsMedia() {
					continue
				}
				if msg := checkValue(fd, it.Values[fd.Name]); msg != "" {
					errs[key] = msg
				}
			}
			if l.Video {
				validateVideo(l, j, it, stored[it.ID], errs)
			}
		}
	}
	return errs
}

func validateVideo(l pageschema.List, j int, it pageform.SubmittedItem, prev models.ListItem, errs map[string]string) {
	v := it.Video
	switch videoSource(v) {
	case pageform.SourceURL:
		if v.URL != "" && !inputval.IsValidLink(v.URL) {
			errs[pageform.ErrorKey(l.Name, j, pageform.VideoURLField)] = "Video URL must be a valid URL."
		}
		if utf8.RuneCountInString(v.URL) > 2048 {
			errs[pageform.ErrorKey(l.Name, j, pageform.VideoURLField)] = "Video URL must be at most 2048 characters."
		}
	case pageform.SourceUpload:
		key := pageform.ErrorKey(l.Name, j, pageform.VideoFileField)
		if v.File == nil {
			errs[key] = "Please choose a video file."
			return
		}
		if _, err := uploads.Check(v.File, videoAccept); err != nil {
			errs[key] = uploads.RejectMessage("Video", videoAccept, err)
		}
	case pageform.SourceFile:
		if _, ok := storedVideoPath(prev); !ok {
			errs[pageform.ErrorKey(l.Name, j, pageform.VideoFileField)] = "The stored video is no longer available. Please upload it again."
		}
	default:
		errs[pageform.ErrorKey(l.Name, j, pageform.VideoSourceField)] = "Video source must be url, upload or file."
	}
}

// videoSource normalizes the submitted source. Clients that only send a
// URL or a file are understood without an explicit source.
func videoSource(v pageform.SubmittedVideo) string {
	if v.Source != "" {
		return v.Source
	}
	if v.File != nil {
		return pageform.SourceUpload
	}
	return pageform.SourceURL
}

func storedVideoPath(prev models.ListItem) (string, bool) {
	if prev.Video == nil {
		return "", false
	}
	return prev.Video.FilePath()
}

// checkValue validates one scalar value. Page settings are all optional,
// so an empty value is always accepted.
func checkValue(fd pageschema.Field, v string) string {
	if n := utf8.RuneCountInString(v); n > fd.MaxLen() {
		return fmt.Sprintf("%s must be at most %d characters.", fd.Label, fd.MaxLen())
	}
	if v == "" {
		return ""
	}
	switch fd.Kind {
	case pageschema.KindURL:
		if !inputval.IsValidLink(v) {
			return fd.Label + " must be a valid URL or a path starting with /."
		}
	case pageschema.KindSelect:
		if !slices.Contains(fd.Options, v) {
			return fmt.Sprintf("%s must be one of: %s.", fd.Label, strings.Join(fd.Options, ", "))
		}
	case pageschema.KindBool:
		if _, ok := parseBool(v); !ok {
			return fd.Label + " must be true or false."
		}
	}
	return ""
}

func parseBool(v string) (string, bool) {
	switch strings.ToLower(v) {
	case "", "0", "false", "off", "no":
		return "false", true
	case "1", "true", "on", "yes":
		return "true", true
	}
	return "", false
}
