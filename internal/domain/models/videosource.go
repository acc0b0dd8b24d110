package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// VideoMode tells which representation a VideoSource holds.
type VideoMode string

const (
	VideoModeURL  VideoMode = "url"  // remote/embed URL
	VideoModeFile VideoMode = "file" // uploaded file in storage
)

// VideoSource is either a remote URL or a stored upload, never both.
// The zero value holds nothing.
type VideoSource struct {
	mode VideoMode
	ref  string
}

// VideoFromURL returns a source pointing at a remote video URL.
func VideoFromURL(url string) VideoSource {
	return VideoSource{mode: VideoModeURL, ref: url}
}

// VideoFromFile returns a source pointing at an uploaded file's storage path.
func VideoFromFile(path string) VideoSource {
	return VideoSource{mode: VideoModeFile, ref: path}
}

// Mode returns the active representation, or "" for the zero value.
func (v VideoSource) Mode() VideoMode { return v.mode }

// IsZero reports whether the source is empty.
func (v VideoSource) IsZero() bool { return v.mode == "" }

// URL returns the remote URL when the source is in URL mode.
func (v VideoSource) URL() (string, bool) {
	if v.mode != VideoModeURL {
		return "", false
	}
	return v.ref, true
}

// FilePath returns the storage path when the source is an uploaded file.
func (v VideoSource) FilePath() (string, bool) {
	if v.mode != VideoModeFile {
		return "", false
	}
	return v.ref, true
}

// videoSourceDoc is the stored shape; exactly one of URL/Path is set.
type videoSourceDoc struct {
	Mode VideoMode `bson:"mode" json:"mode"`
	URL  string    `bson:"url,omitempty" json:"url,omitempty"`
	Path string    `bson:"path,omitempty" json:"path,omitempty"`
}

func (v VideoSource) doc() videoSourceDoc {
	d := videoSourceDoc{Mode: v.mode}
	switch v.mode {
	case VideoModeURL:
		d.URL = v.ref
	case VideoModeFile:
		d.Path = v.ref
	}
	return d
}

func (v *VideoSource) fromDoc(d videoSourceDoc) error {
	switch d.Mode {
	case VideoModeURL:
		*v = VideoFromURL(d.URL)
	case VideoModeFile:
		*v = VideoFromFile(d.Path)
	case "":
		*v = VideoSource{}
	default:
		return fmt.Errorf("unknown video mode %q", d.Mode)
	}
	return nil
}

// MarshalBSON implements bson.Marshaler.
func (v VideoSource) MarshalBSON() ([]byte, error) {
	return bson.Marshal(v.doc())
}

// UnmarshalBSON implements bson.Unmarshaler.
func (v *VideoSource) UnmarshalBSON(data []byte) error {
	var d videoSourceDoc
	if err := bson.Unmarshal(data, &d); err != nil {
		return err
	}
	return v.fromDoc(d)
}

// MarshalJSON implements json.Marshaler.
func (v VideoSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.doc())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *VideoSource) UnmarshalJSON(data []byte) error {
	var d videoSourceDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	return v.fromDoc(d)
}
