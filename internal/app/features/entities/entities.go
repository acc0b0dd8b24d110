// internal/app/features/entities/entities.go
package entities

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	errorsfeature "github.com/dalemusser/pagecms/internal/app/features/errors"
	entitystore "github.com/dalemusser/pagecms/internal/app/store/entities"
	"github.com/dalemusser/pagecms/internal/app/system/auditlog"
	"github.com/dalemusser/pagecms/internal/app/system/flash"
	"github.com/dalemusser/pagecms/internal/app/system/formutil"
	"github.com/dalemusser/pagecms/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pagecms/internal/app/system/inputval"
	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/app/system/viewdata"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxEntityUpload = 16 << 20

// Handler manages the About-page collections.
type Handler struct {
	store   *entitystore.Store
	uploads *uploads.Store
	flash   *flash.Manager
	audit   *auditlog.Logger
	errLog  *errorsfeature.ErrorLogger
	logger  *zap.Logger
}

// NewHandler creates a new entities Handler.
func NewHandler(db *mongo.Database, up *uploads.Store, fl *flash.Manager, audit *auditlog.Logger,
	errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	if errLog == nil {
		errLog = errorsfeature.NewErrorLogger(logger)
	}
	return &Handler{
		store:   entitystore.New(db),
		uploads: up,
		flash:   fl,
		audit:   audit,
		errLog:  errLog,
		logger:  logger,
	}
}

// MountRoutes mounts list, create, edit and delete routes for every entity
// kind. writes wrap only the routes that change data.
func (h *Handler) MountRoutes(r chi.Router, writes ...func(http.Handler) http.Handler) {
	for _, k := range pageschema.Entities() {
		r.Route(k.AdminPath(), func(r chi.Router) {
			r.Get("/", h.list(k))
			r.Get("/new", h.showNew(k))
			r.Get("/{id}/edit", h.edit(k))
			r.Get("/{id}/delete", h.confirmDelete(k))

			w := r.With(writes...)
			w.Post("/", h.create(k))
			w.Post("/{id}", h.update(k))
			w.Post("/{id}/delete", h.delete(k))
			w.Delete("/{id}", h.delete(k))
		})
	}
}

type row struct {
	ID      string
	Columns []string
	Image   string
}

type listVM struct {
	viewdata.BaseVM
	Kind    *pageschema.EntityKind
	Headers []string
	Rows    []row
}

type formVM struct {
	formutil.Base
	Kind    *pageschema.EntityKind
	Heading string
	Action  string
	Submit  string
	Inputs  []formutil.Input
}

type confirmVM struct {
	viewdata.BaseVM
	Kind   *pageschema.EntityKind
	ID     string
	Label  string
	Action string
}

func (h *Handler) list(k *pageschema.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.store.List(r.Context(), k.Kind)
		if err != nil {
			h.errLog.LogWithFields(r, "failed to list entities", err, zap.String("kind", k.Kind))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if jsonutil.Wants(r) {
			jsonutil.OK(w, map[string]any{"data": items})
			return
		}

		vm := listVM{
			BaseVM: viewdata.NewBaseVM(w, r, k.Title, "/admin"),
			Kind:   k,
		}
		for _, fd := range k.Fields {
			if !fd.IsMedia() {
				vm.Headers = append(vm.Headers, fd.Label)
			}
		}
		for _, e := range items {
			rw := row{ID: e.ID.Hex()}
			for _, fd := range k.Fields {
				v := e.Value(fd.Name)
				switch {
				case fd.IsMedia():
					if rw.Image == "" && v != "" {
						rw.Image = h.uploads.URL(v)
					}
				case fd.Kind == pageschema.KindRichText:
					rw.Columns = append(rw.Columns, excerpt(htmlsanitize.StripTags(v), 80))
				default:
					rw.Columns = append(rw.Columns, excerpt(v, 80))
				}
			}
			vm.Rows = append(vm.Rows, rw)
		}
		templates.Render(w, r, "entities/list", vm)
	}
}

func (h *Handler) showNew(k *pageschema.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderForm(w, r, http.StatusOK, k, nil, map[string]string{}, nil)
	}
}

func (h *Handler) edit(k *pageschema.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			h.notFound(w, r, k)
			return
		}
		e, err := h.store.Get(r.Context(), k.Kind, id)
		if errors.Is(err, entitystore.ErrNotFound) {
			h.notFound(w, r, k)
			return
		}
		if err != nil {
			h.fail(w, r, "failed to get entity", err)
			return
		}
		h.renderForm(w, r, http.StatusOK, k, &e, e.Values, nil)
	}
}

// renderForm renders the add form, or the edit form of current when it is
// set. Stored media of current is shown with a remove toggle.
func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, k *pageschema.EntityKind,
	current *models.Entity, values map[string]string, errs map[string]string) {
	heading, action, submit := "Add "+k.Singular, k.AdminPath(), "Create"
	if current != nil {
		heading, action, submit = "Edit "+k.Singular, k.AdminPath()+"/"+current.ID.Hex(), "Save"
	}
	vm := formVM{
		Base:    formutil.NewBase(w, r, heading, k.AdminPath()),
		Kind:    k,
		Heading: heading,
		Action:  action,
		Submit:  submit,
	}
	for _, fd := range k.Fields {
		in := formutil.Input{
			Field:     fd,
			InputName: fd.Name,
			ErrorKey:  fd.Name,
			Error:     errs[fd.Name],
		}
		switch {
		case !fd.IsMedia():
			in.Value = values[fd.Name]
		case current != nil:
			in.Value = current.Value(fd.Name)
			in.MediaURL = h.uploads.URL(in.Value)
			in.RemoveName = pageform.RemovePrefix + fd.Name
		}
		vm.Inputs = append(vm.Inputs, in)
	}
	if len(errs) > 0 {
		vm.SetFieldErrors(errs)
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "entities/form", vm)
}

// submission is a read entity form: scalar values, media kept from the
// stored entity, and new files still to be stored.
type submission struct {
	values map[string]string
	files  []uploads.File
	errs   map[string]string
}

// readSubmission reads the posted fields of k. On an edit, current is the
// stored entity: a media field without a new file keeps its stored value
// unless its remove flag is set.
func readSubmission(r *http.Request, k *pageschema.EntityKind, current *models.Entity) submission {
	sub := submission{values: map[string]string{}, errs: map[string]string{}}
	for _, fd := range k.Fields {
		if !fd.IsMedia() {
			v := strings.TrimSpace(r.FormValue(fd.Name))
			sub.values[fd.Name] = v
			if msg := checkEntityValue(fd, v); msg != "" {
				sub.errs[fd.Name] = msg
			}
			continue
		}

		fh := formFile(r, fd.Name)
		switch {
		case fh != nil:
			if _, err := uploads.Check(fh, fd.Accept()); err != nil {
				sub.errs[fd.Name] = uploads.RejectMessage(fd.Label, fd.Accept(), err)
				continue
			}
			sub.files = append(sub.files, uploads.File{Key: fd.Name, Accept: fd.Accept(), Header: fh})
		case current != nil && current.Value(fd.Name) != "" && r.FormValue(pageform.RemovePrefix+fd.Name) == "":
			sub.values[fd.Name] = current.Value(fd.Name)
		case fd.Required:
			sub.errs[fd.Name] = fd.Label + " is required."
		}
	}
	return sub
}

// readForm parses the multipart body. It answers the client and returns
// false when the body is too large or malformed.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request, k *pageschema.EntityKind) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxEntityUpload)
	if err := r.ParseMultipartForm(maxEntityUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warn("entity request rejected", zap.String("kind", k.Kind), zap.Error(err))
		if jsonutil.Wants(r) {
			jsonutil.BadRequest(w, "Request is too large or malformed.")
			return false
		}
		http.Error(w, "Request is too large or malformed.", http.StatusBadRequest)
		return false
	}
	return true
}

func removeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// storeFiles writes the submission's files and returns the final values
// and the paths it stored.
func (h *Handler) storeFiles(ctx context.Context, k *pageschema.EntityKind, sub submission) (map[string]string, []string, error) {
	stored, err := h.uploads.PutAll(ctx, k.Kind, sub.files)
	if err != nil {
		return nil, nil, err
	}
	values := sub.values
	var paths []string
	for _, st := range stored {
		values[st.Key] = st.Path
		paths = append(paths, st.Path)
	}
	for _, fd := range k.Fields {
		switch fd.Kind {
		case pageschema.KindRichText:
			values[fd.Name] = htmlsanitize.Sanitize(values[fd.Name])
		case pageschema.KindText, pageschema.KindTextArea:
			values[fd.Name] = htmlsanitize.StripTags(values[fd.Name])
		}
	}
	return values, paths, nil
}

// create validates and stores a new entity with its uploads.
func (h *Handler) create(k *pageschema.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.readForm(w, r, k) {
			return
		}
		defer removeMultipart(r)

		sub := readSubmission(r, k, nil)
		if len(sub.errs) > 0 {
			if jsonutil.Wants(r) {
				jsonutil.ValidationError(w, sub.errs)
				return
			}
			h.renderForm(w, r, http.StatusUnprocessableEntity, k, nil, sub.values, sub.errs)
			return
		}

		ctx := r.Context()
		values, paths, err := h.storeFiles(ctx, k, sub)
		if err != nil {
			h.fail(w, r, "failed to store entity uploads", err)
			return
		}

		e, err := h.store.Create(ctx, models.Entity{Kind: k.Kind, Values: values, IsActive: true})
		if err != nil {
			h.uploads.DeleteAll(context.WithoutCancel(ctx), paths)
			h.fail(w, r, "failed to create entity", err)
			return
		}

		id := e.ID.Hex()
		h.audit.EntityCreated(r, k.Kind, id)
		h.logger.Info("entity created", zap.String("kind", k.Kind), zap.String("id", id))

		if jsonutil.Wants(r) {
			jsonutil.Created(w, map[string]string{"message": k.CreatedMessage, "id": id})
			return
		}
		if err := h.flash.Success(w, r, k.CreatedMessage); err != nil {
			h.logger.Warn("failed to queue toast", zap.Error(err))
		}
		http.Redirect(w, r, k.AdminPath(), http.StatusSeeOther)
	}
}

// update replaces an entity's values. A new file replaces the stored one,
// a remove flag clears it, and otherwise the stored file is kept. Files
// the update superseded are deleted once it is saved.
func (h *Handler) update(k *pageschema.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			h.notFound(w, r, k)
			return
		}
		if !h.readForm(w, r, k) {
			return
		}
		defer removeMultipart(r)

		ctx := r.Context()
		current, err := h.store.Get(ctx, k.Kind, id)
		if errors.Is(err, entitystore.ErrNotFound) {
			h.notFound(w, r, k)
			return
		}
		if err != nil {
			h.fail(w, r, "failed to get entity", err)
			return
		}

		sub := readSubmission(r, k, &current)
		if len(sub.errs) > 0 {
			if jsonutil.Wants(r) {
				jsonutil.ValidationError(w, sub.errs)
				return
			}
			h.renderForm(w, r, http.StatusUnprocessableEntity, k, &current, sub.values, sub.errs)
			return
		}

		values, paths, err := h.storeFiles(ctx, k, sub)
		if err != nil {
			h.fail(w, r, "failed to store entity uploads", err)
			return
		}

		old, err := h.store.Update(ctx, k.Kind, id, values)
		if err != nil {
			h.uploads.DeleteAll(context.WithoutCancel(ctx), paths)
			if errors.Is(err, entitystore.ErrNotFound) {
				h.notFound(w, r, k)
				return
			}
			h.fail(w, r, "failed to update entity", err)
			return
		}

		superseded := supersededFiles(k, old, values)
		h.uploads.DeleteAll(context.WithoutCancel(ctx), superseded)
		h.audit.EntityUpdated(r, k.Kind, id.Hex(), changedFields(k, old, values), len(superseded))
		h.logger.Info("entity updated", zap.String("kind", k.Kind), zap.String("id", id.Hex()),
			zap.Int("files_stored", len(paths)), zap.Int("files_replaced", len(superseded)))

		if jsonutil.Wants(r) {
			jsonutil.Message(w, k.UpdatedMessage)
			return
		}
		if err := h.flash.Success(w, r, k.UpdatedMessage); err != nil {
			h.logger.Warn("failed to queue toast", zap.Error(err))
		}
		http.Redirect(w, r, k.AdminPath(), http.StatusSeeOther)
	}
}

// confirmDelete renders the browser confirmation step.
func (h *Handler) confirmDelete(k *pageschema.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		e, err := h.store.Get(r.Context(), k.Kind, id)
		if errors.Is(err, entitystore.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			h.errLog.Log(r, "failed to get entity", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		vm := confirmVM{
			BaseVM: viewdata.NewBaseVM(w, r, "Delete "+k.Singular, k.AdminPath()),
			Kind:   k,
			ID:     id.Hex(),
			Label:  entityLabel(k, e),
			Action: k.AdminPath() + "/" + id.Hex() + "/delete",
		}
		templates.Render(w, r, "entities/confirm_delete", vm)
	}
}

// delete removes an entity and its stored files. Deletes are irreversible.
func (h *Handler) delete(k *pageschema.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			h.notFound(w, r, k)
			return
		}
		ctx := r.Context()
		e, err := h.store.Delete(ctx, k.Kind, id)
		if errors.Is(err, entitystore.ErrNotFound) {
			h.notFound(w, r, k)
			return
		}
		if err != nil {
			h.fail(w, r, "failed to delete entity", err)
			return
		}

		for _, fd := range k.Fields {
			if fd.IsMedia() {
				h.uploads.Delete(ctx, e.Value(fd.Name))
			}
		}
		h.audit.EntityDeleted(r, k.Kind, id.Hex())
		h.logger.Info("entity deleted", zap.String("kind", k.Kind), zap.String("id", id.Hex()))

		if jsonutil.Wants(r) || r.Method == http.MethodDelete {
			jsonutil.Message(w, k.DeletedMessage)
			return
		}
		if err := h.flash.Success(w, r, k.DeletedMessage); err != nil {
			h.logger.Warn("failed to queue toast", zap.Error(err))
		}
		http.Redirect(w, r, k.AdminPath(), http.StatusSeeOther)
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, k *pageschema.EntityKind) {
	msg := "The " + k.Singular + " was not found."
	if jsonutil.Wants(r) || r.Method == http.MethodDelete {
		jsonutil.NotFound(w, msg)
		return
	}
	http.Error(w, msg, http.StatusNotFound)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.errLog.Log(r, msg, err)
	if jsonutil.Wants(r) || r.Method == http.MethodDelete {
		jsonutil.InternalError(w, "Something went wrong. Please try again.")
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// entityRef is the {id} route parameter.
type entityRef struct {
	ID string `validate:"required,objectid" label:"ID"`
}

func parseID(r *http.Request) (primitive.ObjectID, bool) {
	ref := entityRef{ID: chi.URLParam(r, "id")}
	if inputval.Validate(ref).HasErrors() {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(ref.ID)
	return id, err == nil
}

// supersededFiles lists the stored media of old that values no longer
// references.
func supersededFiles(k *pageschema.EntityKind, old models.Entity, values map[string]string) []string {
	var out []string
	for _, fd := range k.Fields {
		if !fd.IsMedia() {
			continue
		}
		if p := old.Value(fd.Name); p != "" && p != values[fd.Name] {
			out = append(out, p)
		}
	}
	return out
}

func changedFields(k *pageschema.EntityKind, old models.Entity, values map[string]string) []string {
	var out []string
	for _, fd := range k.Fields {
		if old.Value(fd.Name) != values[fd.Name] {
			out = append(out, fd.Name)
		}
	}
	return out
}

func formFile(r *http.Request, name string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	for _, fh := range r.MultipartForm.File[name] {
		if fh != nil && fh.Size > 0 {
			return fh
		}
	}
	return nil
}

func checkEntityValue(fd pageschema.Field, v string) string {
	if v == "" {
		if fd.Required {
			return fd.Label + " is required."
		}
		return ""
	}
	if utf8.RuneCountInString(v) > fd.MaxLen() {
		return fd.Label + " is too long."
	}
	if fd.Kind == pageschema.KindURL && !inputval.IsValidLink(v) {
		return fd.Label + " must be a valid URL."
	}
	if fd.Kind == pageschema.KindSelect && !slices.Contains(fd.Options, v) {
		return fd.Label + " must be one of: " + strings.Join(fd.Options, ", ") + "."
	}
	return ""
}

// entityLabel names an entity in the confirmation prompt.
func entityLabel(k *pageschema.EntityKind, e models.Entity) string {
	for _, fd := range k.Fields {
		if fd.Required && fd.Kind == pageschema.KindText {
			if v := e.Value(fd.Name); v != "" {
				return v
			}
		}
	}
	return e.ID.Hex()
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
