package pageform

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"
)

// Wire names shared by the encoder and the server-side decoder.
const (
	ListMarker   = "_list"   // one value per list present in the payload
	RemovePrefix = "remove_" // remove_<field>=1 clears a media field
	IDField      = "id"

	VideoSourceField = "source" // url | upload | file
	VideoURLField    = "video_url"
	VideoFileField   = "video_file"
	VideoPathField   = "video_path"

	SourceURL    = "url"
	SourceUpload = "upload"
	SourceFile   = "file"
)

// Payload is an encoded multipart/form-data body.
type Payload struct {
	ContentType string
	Body        []byte
}

// ItemKey returns the wire name of an item field: quotes[0][content].
func ItemKey(list string, index int, field string) string {
	return fmt.Sprintf("%s[%d][%s]", list, index, field)
}

// ErrorKey returns the error-map key of an item field: quotes.0.content.
func ErrorKey(list string, index int, field string) string {
	return list + "." + strconv.Itoa(index) + "." + field
}

var itemKeyRE = regexp.MustCompile(`^([a-z0-9_]+)\[(\d+)\](?:\[([a-z0-9_]+)\])?$`)

// ParseItemKey splits quotes[0][content] into its parts. The field is ""
// for the shorthand form quotes[0].
func ParseItemKey(key string) (list string, index int, field string, ok bool) {
	m := itemKeyRE.FindStringSubmatch(key)
	if m == nil {
		return "", 0, "", false
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", false
	}
	return m[1], index, m[3], true
}

// Payload encodes every field of the form, changed or not.
func (f *Form) Payload() (*Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.encodeLocked()
}

func (f *Form) encodeLocked() (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fd := range f.schema.Fields() {
		if !fd.IsMedia() {
			if err := w.WriteField(fd.Name, f.values[fd.Name]); err != nil {
				return nil, err
			}
			continue
		}
		if up, ok := f.uploads[fd.Name]; ok {
			if err := writeFile(w, fd.Name, up); err != nil {
				return nil, err
			}
		} else if f.removed[fd.Name] {
			if err := w.WriteField(RemovePrefix+fd.Name, "1"); err != nil {
				return nil, err
			}
		}
	}

	for _, l := range f.schema.Lists() {
		if err := w.WriteField(ListMarker, l.Name); err != nil {
			return nil, err
		}
		for i, it := range f.lists[l.Name] {
			if err := w.WriteField(ItemKey(l.Name, i, IDField), it.ID); err != nil {
				return nil, err
			}
			for _, fd := range l.Fields {
				key := ItemKey(l.Name, i, fd.Name)
				if up, ok := it.Uploads[fd.Name]; ok && fd.IsMedia() {
					if err := writeFile(w, key, up); err != nil {
						return nil, err
					}
					continue
				}
				if err := w.WriteField(key, it.Values[fd.Name]); err != nil {
					return nil, err
				}
			}
			if l.Video {
				if err := writeVideo(w, l.Name, i, it.Video); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Payload{ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}

// writeVideo emits exactly one representation: a URL, a file part, or a
// reference to the stored file.
func writeVideo(w *multipart.Writer, list string, i int, v VideoInput) error {
	if v == nil {
		v = VideoURL{}
	}
	if err := w.WriteField(ItemKey(list, i, VideoSourceField), v.videoSource()); err != nil {
		return err
	}
	switch v := v.(type) {
	case VideoURL:
		return w.WriteField(ItemKey(list, i, VideoURLField), v.URL)
	case VideoUpload:
		return writeFile(w, ItemKey(list, i, VideoFileField), v.Upload)
	case VideoStored:
		return w.WriteField(ItemKey(list, i, VideoPathField), v.Path)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, name string, up Upload) error {
	ct := up.ContentType
	if ct == "" {
		ct = DetectContentType(up.Filename, up.Data)
	}
	filename := up.Filename
	if filename == "" {
		filename = "upload"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(up.Data)
	return err
}
