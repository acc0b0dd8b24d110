package pageform

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Upload is a file picked for a media field but not yet submitted.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReadUpload loads a local file as an Upload, sniffing its content type.
func ReadUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		Filename:    filepath.Base(path),
		ContentType: DetectContentType(filepath.Base(path), data),
		Data:        data,
	}, nil
}

// DataURL renders the upload as a base64 data URL for previews.
func (u Upload) DataURL() string {
	ct := u.ContentType
	if ct == "" {
		ct = DetectContentType(u.Filename, u.Data)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
}

// DetectContentType sniffs data, falling back to the extension for formats
// the sniffer reports as plain text or XML (SVG).
func DetectContentType(filename string, data []byte) string {
	if strings.EqualFold(filepath.Ext(filename), ".svg") {
		return "image/svg+xml"
	}
	return http.DetectContentType(data)
}

// markLocked records a new selection for key and returns its token. A
// submit settles a key only if its token is unchanged when the server
// answers. Caller holds f.mu.
func (f *Form) markLocked(key string) uint64 {
	f.seq++
	f.selected[key] = f.seq
	return f.seq
}

// startPreviewLocked kicks off an async preview read for key. Only the
// newest read for a key may store its result. Caller holds f.mu.
func (f *Form) startPreviewLocked(key string, token uint64, up Upload) {
	f.pending[key] = token

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		preview := f.readPreview(up)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.pending[key] != token {
			return
		}
		delete(f.pending, key)
		f.previews[key] = preview
	}()
}

// dropPreviewLocked forgets the preview for key and orphans any read in
// flight. Caller holds f.mu.
func (f *Form) dropPreviewLocked(key string) {
	delete(f.pending, key)
	delete(f.previews, key)
}

// WaitPreviews blocks until every preview read started so far has finished.
func (f *Form) WaitPreviews() {
	f.wg.Wait()
}

// Preview returns the preview of a top-level media field.
func (f *Form) Preview(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.previews[name]
	return p, ok
}

// PreviewCount returns the number of previews currently held.
func (f *Form) PreviewCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.previews)
}

func itemPreviewKey(itemID, field string) string {
	return itemID + "/" + field
}
