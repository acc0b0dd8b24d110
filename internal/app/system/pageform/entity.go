package pageform

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
)

// ErrDeleteCancelled is returned when the user declines a delete.
var ErrDeleteCancelled = errors.New("pageform: delete cancelled")

// Deleter issues deletes against the server.
type Deleter interface {
	Delete(ctx context.Context, path string) (*Response, error)
}

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls fn(prompt).
func (fn ConfirmFunc) Confirm(prompt string) bool { return fn(prompt) }

// DeleteEntity asks for confirmation, then deletes one entity. Nothing is
// sent if the user declines. Deletes are irreversible.
func DeleteEntity(ctx context.Context, d Deleter, c Confirmer, n Notifier, kind *pageschema.EntityKind, id string) error {
	if c != nil && !c.Confirm(kind.ConfirmPrompt) {
		return ErrDeleteCancelled
	}
	resp, err := d.Delete(ctx, kind.AdminPath()+"/"+url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind.Singular, id, err)
	}
	msg := kind.DeletedMessage
	if resp != nil && resp.Message != "" {
		msg = resp.Message
	}
	if n != nil {
		n.Success(msg)
	}
	return nil
}
