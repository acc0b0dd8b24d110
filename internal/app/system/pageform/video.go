package pageform

import (
	"path"

	"github.com/dalemusser/pagecms/internal/domain/models"
)

// VideoInput is the client-side video source of a list item: a remote URL,
// a new upload, or the file already stored on the server.
type VideoInput interface {
	videoSource() string
}

// VideoURL points at a remote or embeddable video.
type VideoURL struct{ URL string }

// VideoUpload carries a new video file.
type VideoUpload struct{ Upload Upload }

// VideoStored keeps the file the server already has. Name is for display.
type VideoStored struct {
	Path string
	Name string
}

func (VideoURL) videoSource() string    { return SourceURL }
func (VideoUpload) videoSource() string { return SourceUpload }
func (VideoStored) videoSource() string { return SourceFile }

func videoInputFromStored(v *models.VideoSource) VideoInput {
	if v == nil {
		return VideoURL{}
	}
	if p, ok := v.FilePath(); ok {
		return VideoStored{Path: p, Name: path.Base(p)}
	}
	u, _ := v.URL()
	return VideoURL{URL: u}
}

