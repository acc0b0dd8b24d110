package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/spf13/cobra"
)

// edits are the changes requested on the set command line.
type edits struct {
	add    []string // list names
	set    []string // target=value
	files  []string // target=path
	remove []string // media field names
	videos []string // list.N=url or list.N=@path
	drop   []string // list.N
}

func newSetCommand(opts *options) *cobra.Command {
	var e edits

	cmd := &cobra.Command{
		Use:   "set <form>",
		Short: "Change a settings form and submit it",
		Long: `Load the current settings of a form, apply the requested edits and submit
the whole form, as the admin page does.

Targets name a field ("banner_title") or a list item field
("quotes.0.content"). Edits apply in this order: --add, --set, --file,
--remove, --video, then --drop (highest index first).`,
		Example: `  pagecmsctl set blogs --set banner_title="Latest posts"
  pagecmsctl set about-me.banner --file banner_image=./hero.png
  pagecmsctl set entrepreneurship --add quotes --set quotes.3.content="Ship it"
  pagecmsctl set videos --video banner_videos.0=@./intro.mp4 --drop short_videos.2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := lookupForm(args[0])
			if err != nil {
				return err
			}
			s, err := opts.open()
			if err != nil {
				return err
			}
			page, _ := pageschema.Lookup(form.Page)

			var current models.PageSettings
			if err := s.transport.GetJSON(cmd.Context(), page.Path, &current); err != nil {
				return fmt.Errorf("load %s: %w", page.Slug, err)
			}

			out := cmd.OutOrStdout()
			f := pageform.New(form, &current, s.defaults,
				pageform.WithLogger(s.logger),
				pageform.WithNotifier(pageform.NotifierFunc(func(msg string) {
					fmt.Fprintln(out, msg)
				})),
				// previews are for browsers
				pageform.WithPreviewReader(func(pageform.Upload) string { return "" }),
			)
			defer f.WaitPreviews()

			if err := e.apply(f); err != nil {
				return err
			}

			err = f.Submit(cmd.Context(), s.transport)
			var ve *pageform.ValidationError
			if errors.As(err, &ve) {
				printFieldErrors(cmd.ErrOrStderr(), ve.Fields)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&e.add, "add", nil, "Append a blank item to a list")
	cmd.Flags().StringArrayVar(&e.set, "set", nil, "Set a field: target=value")
	cmd.Flags().StringArrayVar(&e.files, "file", nil, "Upload a file into a media field: target=path")
	cmd.Flags().StringArrayVar(&e.remove, "remove", nil, "Clear a media field")
	cmd.Flags().StringArrayVar(&e.videos, "video", nil, "Set a video source: list.N=url or list.N=@path")
	cmd.Flags().StringArrayVar(&e.drop, "drop", nil, "Remove a list item: list.N")

	return cmd
}

// apply runs every edit against f in the documented order.
func (e edits) apply(f *pageform.Form) error {
	for _, l := range e.add {
		if _, err := f.AddItem(l); err != nil {
			return err
		}
	}

	for _, a := range e.set {
		t, value, err := parseFieldAssignment(a)
		if err != nil {
			return err
		}
		if t.isItem() {
			err = f.UpdateItemField(t.list, t.index, t.field, value)
		} else {
			err = f.SetField(t.field, value)
		}
		if err != nil {
			return fmt.Errorf("--set %s: %w", a, err)
		}
	}

	for _, a := range e.files {
		t, path, err := parseFieldAssignment(a)
		if err != nil {
			return err
		}
		up, err := pageform.ReadUpload(path)
		if err != nil {
			return fmt.Errorf("--file %s: %w", a, err)
		}
		if t.isItem() {
			err = f.SelectItemFile(t.list, t.index, t.field, up)
		} else {
			err = f.SelectFile(t.field, up)
		}
		if err != nil {
			return fmt.Errorf("--file %s: %w", a, err)
		}
	}

	for _, name := range e.remove {
		if err := f.RemoveFile(name); err != nil {
			return fmt.Errorf("--remove %s: %w", name, err)
		}
	}

	for _, a := range e.videos {
		t, value, err := parseAssignment(a)
		if err != nil {
			return err
		}
		if !t.isItem() || t.field != "" {
			return fmt.Errorf("--video %s: target must be list.N", a)
		}
		in, err := videoInput(value)
		if err != nil {
			return fmt.Errorf("--video %s: %w", a, err)
		}
		if err := f.SetVideoSource(t.list, t.index, in); err != nil {
			return fmt.Errorf("--video %s: %w", a, err)
		}
	}

	drops := make([]target, 0, len(e.drop))
	for _, d := range e.drop {
		t, err := parseTarget(d)
		if err != nil {
			return err
		}
		if !t.isItem() || t.field != "" {
			return fmt.Errorf("--drop %s: target must be list.N", d)
		}
		drops = append(drops, t)
	}
	sort.SliceStable(drops, func(i, j int) bool { return drops[i].index > drops[j].index })
	for _, t := range drops {
		if err := f.RemoveItem(t.list, t.index); err != nil {
			return fmt.Errorf("--drop %s.%d: %w", t.list, t.index, err)
		}
	}
	return nil
}

// target is a field name or a list item (field optional).
type target struct {
	list  string
	index int
	field string
}

func (t target) isItem() bool { return t.list != "" }

func parseTarget(s string) (target, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return target{}, fmt.Errorf("empty target")
		}
		return target{field: parts[0]}, nil
	case 2, 3:
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 || parts[0] == "" {
			return target{}, fmt.Errorf("bad target %q: want list.N or list.N.field", s)
		}
		t := target{list: parts[0], index: idx}
		if len(parts) == 3 {
			t.field = parts[2]
		}
		return t, nil
	}
	return target{}, fmt.Errorf("bad target %q", s)
}

func parseAssignment(s string) (target, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return target{}, "", fmt.Errorf("bad assignment %q: want target=value", s)
	}
	t, err := parseTarget(name)
	if err != nil {
		return target{}, "", err
	}
	return t, value, nil
}

// parseFieldAssignment is parseAssignment for edits that need a field.
func parseFieldAssignment(s string) (target, string, error) {
	t, value, err := parseAssignment(s)
	if err == nil && t.field == "" {
		err = fmt.Errorf("bad target in %q: name a field, not a whole item", s)
	}
	return t, value, err
}

// videoInput turns "@path" into an upload and anything else into a URL.
func videoInput(v string) (pageform.VideoInput, error) {
	if path, ok := strings.CutPrefix(v, "@"); ok {
		up, err := pageform.ReadUpload(path)
		if err != nil {
			return nil, err
		}
		return pageform.VideoUpload{Upload: up}, nil
	}
	return pageform.VideoURL{URL: v}, nil
}

func printFieldErrors(w io.Writer, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, fields[k])
	}
}
