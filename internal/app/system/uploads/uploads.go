// Package uploads stores the media files submitted with page settings.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/pagecms/internal/app/system/inputval"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNotAccepted is returned when a file does not match the field's accept filter.
var ErrNotAccepted = errors.New("file type not accepted")

// VideoAccept is the accept filter of uploaded videos.
const VideoAccept = "video/*"

// File is one file to store.
type File struct {
	Key    string // settings key the stored path is written to
	Accept string // accept filter of the field ("image/*", "image/svg+xml", "video/*")
	Header *multipart.FileHeader
}

// Stored is the outcome of storing one File.
type Stored struct {
	Key  string
	Path string
	Name string // original filename
}

// Store writes uploads into the configured file store.
type Store struct {
	files  storage.Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates an upload Store.
func New(files storage.Store, logger *zap.Logger) *Store {
	return &Store{files: files, logger: logger, now: time.Now}
}

// PathFor returns a unique storage path: pages/<page>/YYYY/MM/<id><ext>.
func (s *Store) PathFor(page, filename string) string {
	now := s.now().UTC()
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("pages/%s/%04d/%02d/%s%s", page, now.Year(), now.Month(), uuid.New().String()[:8], ext)
}

// Check sniffs the file and verifies it against the accept filter.
// It returns the detected content type.
func Check(fh *multipart.FileHeader, accept string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	ct := contentType(fh.Filename, head[:n])
	if !Accepts(accept, ct) {
		return ct, fmt.Errorf("%w: %s is %s, want %s", ErrNotAccepted, fh.Filename, ct, accept)
	}
	return ct, nil
}

// contentType detects the type from content, trusting the .svg extension
// for text content since sniffing reports SVG as text/xml or text/plain.
func contentType(filename string, head []byte) string {
	ct := http.DetectContentType(head)
	if strings.EqualFold(path.Ext(filename), ".svg") &&
		(strings.HasPrefix(ct, "text/") || strings.Contains(string(head), "<svg")) {
		return "image/svg+xml"
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// Accepts reports whether a content type matches an accept filter such as
// "image/*" or "image/svg+xml". An empty filter accepts anything.
func Accepts(accept, ct string) bool {
	if accept == "" {
		return true
	}
	for _, a := range strings.Split(accept, ",") {
		a = strings.TrimSpace(a)
		if a == ct {
			return true
		}
		if strings.HasSuffix(a, "/*") && strings.HasPrefix(ct, strings.TrimSuffix(a, "*")) {
			return true
		}
	}
	return false
}

// Put stores one file under the page and returns its path.
func (s *Store) Put(ctx context.Context, page string, f File) (Stored, error) {
	ct, err := Check(f.Header, f.Accept)
	if err != nil {
		return Stored{}, err
	}
	src, err := f.Header.Open()
	if err != nil {
		return Stored{}, err
	}
	defer src.Close()

	p := s.PathFor(page, f.Header.Filename)
	if err := s.files.Put(ctx, p, src, &storage.PutOptions{ContentType: ct}); err != nil {
		return Stored{}, fmt.Errorf("store %s: %w", f.Key, err)
	}
	return Stored{Key: f.Key, Path: p, Name: f.Header.Filename}, nil
}

// PutAll stores files concurrently. On any failure the files already stored
// by this call are removed again and the first error is returned, so a
// rejected submit leaves no orphans behind.
func (s *Store) PutAll(ctx context.Context, page string, files []File) ([]Stored, error) {
	out := make([]Stored, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range files {
		g.Go(func() error {
			st, err := s.Put(gctx, page, f)
			if err != nil {
				return err
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var stored []string
		for _, st := range out {
			if st.Path != "" {
				stored = append(stored, st.Path)
			}
		}
		s.DeleteAll(context.WithoutCancel(ctx), stored)
		return nil, err
	}
	return out, nil
}

// RejectMessage phrases a Check failure for the field labelled label.
func RejectMessage(label, accept string, err error) string {
	if errors.Is(err, ErrNotAccepted) {
		switch accept {
		case "image/svg+xml":
			return label + " must be an SVG file."
		case "image/*":
			return label + " must be an image."
		case VideoAccept:
			return label + " must be a video file."
		}
	}
	return label + " could not be read."
}

// Delete removes a stored file. External paths (site assets and absolute
// URLs used as defaults) are never touched. Failures are logged only; a
// dangling file is preferable to failing a save that already succeeded.
func (s *Store) Delete(ctx context.Context, p string) {
	if p == "" || inputval.IsExternalMedia(p) {
		return
	}
	if err := s.files.Delete(ctx, p); err != nil {
		s.logger.Warn("failed to delete stored file", zap.String("path", p), zap.Error(err))
	}
}

// DeleteAll removes several stored files.
func (s *Store) DeleteAll(ctx context.Context, paths []string) {
	for _, p := range paths {
		s.Delete(ctx, p)
	}
}

// URL resolves a media value for display. External values pass through.
func (s *Store) URL(p string) string {
	if p == "" || inputval.IsExternalMedia(p) {
		return p
	}
	return s.files.URL(p)
}
