package pageform

import (
	"fmt"
	"strings"

	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
)

func (f *Form) list(name string) (pageschema.List, error) {
	l, ok := f.schema.List(name)
	if !ok {
		return pageschema.List{}, fmt.Errorf("%w: %s", ErrUnknownList, name)
	}
	return l, nil
}

// itemLocked returns the item at index. Caller holds f.mu.
func (f *Form) itemLocked(list string, index int) (*Item, error) {
	items := f.lists[list]
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: %s[%d] (len %d)", ErrIndexOutOfRange, list, index, len(items))
	}
	return items[index], nil
}

// Len returns the number of items in a list.
func (f *Form) Len(list string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists[list])
}

// Items returns a copy of a list's items in order.
func (f *Form) Items(list string) []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.lists[list]
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

// AddItem appends an item with empty fields and returns its ID.
func (f *Form) AddItem(list string) (string, error) {
	l, err := f.list(list)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.blankItem(l)
	f.lists[list] = append(f.lists[list], it)
	return it.ID, nil
}

// UpdateItemField sets a scalar field of the item at index.
func (f *Form) UpdateItemField(list string, index int, field, value string) error {
	l, err := f.list(list)
	if err != nil {
		return err
	}
	fd, ok := l.Field(field)
	if !ok {
		return fmt.Errorf("%w: %s[].%s", ErrUnknownField, list, field)
	}
	if fd.IsMedia() {
		return fmt.Errorf("%w: %s[].%s takes a file", ErrWrongKind, list, field)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, err := f.itemLocked(list, index)
	if err != nil {
		return err
	}
	it.Values[field] = value
	return nil
}

// SelectItemFile records an upload for a media field of the item at index.
func (f *Form) SelectItemFile(list string, index int, field string, up Upload) error {
	l, err := f.list(list)
	if err != nil {
		return err
	}
	fd, ok := l.Field(field)
	if !ok {
		return fmt.Errorf("%w: %s[].%s", ErrUnknownField, list, field)
	}
	if !fd.IsMedia() {
		return fmt.Errorf("%w: %s[].%s is not a file field", ErrWrongKind, list, field)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, err := f.itemLocked(list, index)
	if err != nil {
		return err
	}
	it.Uploads[field] = up
	key := itemPreviewKey(it.ID, field)
	f.startPreviewLocked(key, f.markLocked(key), up)
	return nil
}

// RemoveItem deletes the item at index; later items shift down by one.
// Previews belong to item IDs, so they stay with their items.
func (f *Form) RemoveItem(list string, index int) error {
	if _, err := f.list(list); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, err := f.itemLocked(list, index)
	if err != nil {
		return err
	}
	prefix := it.ID + "/"
	for key := range f.pending {
		if strings.HasPrefix(key, prefix) {
			delete(f.pending, key)
		}
	}
	for key := range f.previews {
		if strings.HasPrefix(key, prefix) {
			delete(f.previews, key)
		}
	}
	for key := range f.selected {
		if strings.HasPrefix(key, prefix) {
			delete(f.selected, key)
		}
	}
	items := f.lists[list]
	f.lists[list] = append(items[:index:index], items[index+1:]...)
	return nil
}

// ItemPreview returns the preview of a media field of the item at index.
func (f *Form) ItemPreview(list string, index int, field string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, err := f.itemLocked(list, index)
	if err != nil {
		return "", false
	}
	p, ok := f.previews[itemPreviewKey(it.ID, field)]
	return p, ok
}

// SetVideoSource replaces the video source of the item at index. Switching
// mode discards the previous representation.
func (f *Form) SetVideoSource(list string, index int, in VideoInput) error {
	l, err := f.list(list)
	if err != nil {
		return err
	}
	if !l.Video {
		return fmt.Errorf("%w: %s", ErrNotVideoList, list)
	}
	if in == nil {
		in = VideoURL{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, err := f.itemLocked(list, index)
	if err != nil {
		return err
	}
	it.Video = in
	key := itemPreviewKey(it.ID, VideoFileField)
	if _, ok := in.(VideoUpload); ok {
		f.markLocked(key)
	} else {
		delete(f.selected, key)
	}
	return nil
}

// itemByIDLocked finds an item in any list. Caller holds f.mu.
func (f *Form) itemByIDLocked(id string) (string, *Item) {
	for name, items := range f.lists {
		for _, it := range items {
			if it.ID == id {
				return name, it
			}
		}
	}
	return "", nil
}
