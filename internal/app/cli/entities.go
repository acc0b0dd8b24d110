package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/spf13/cobra"
)

func newEntitiesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "entities <kind>",
		Short: "List the entries of an About page collection",
		Long: `List the entries of a collection: about-sections, awards,
corporate-journey or associates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			s, err := opts.open()
			if err != nil {
				return err
			}

			var resp struct {
				Data []models.Entity `json:"data"`
			}
			if err := s.transport.GetJSON(cmd.Context(), kind.AdminPath(), &resp); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tENTRY")
			for _, e := range resp.Data {
				fmt.Fprintf(tw, "%s\t%s\n", e.ID.Hex(), entryLabel(kind, e))
			}
			return tw.Flush()
		},
	}
}

func newDeleteCommand(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete an entry of an About page collection",
		Long: `Delete one entry. This cannot be undone, so the command asks first
unless --yes is given.`,
		Example: `  pagecmsctl delete awards 665f1c2e9b1d4a0012345678
  pagecmsctl delete associates 665f1c2e9b1d4a0012345678 --yes`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			s, err := opts.open()
			if err != nil {
				return err
			}

			var confirm pageform.Confirmer
			if !yes {
				confirm = promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			out := cmd.OutOrStdout()
			notify := pageform.NotifierFunc(func(msg string) { fmt.Fprintln(out, msg) })

			err = pageform.DeleteEntity(cmd.Context(), s.transport, confirm, notify, kind, args[1])
			if errors.Is(err, pageform.ErrDeleteCancelled) {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// promptConfirmer asks on w and reads a y/N answer from r.
func promptConfirmer(r io.Reader, w io.Writer) pageform.Confirmer {
	in := bufio.NewReader(r)
	return pageform.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(w, "%s [y/N]: ", prompt)
		line, _ := in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

func lookupKind(kind string) (*pageschema.EntityKind, error) {
	k, ok := pageschema.Entity(kind)
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", kind)
	}
	return k, nil
}

// entryLabel is the first non-media value of an entry, in schema order.
func entryLabel(kind *pageschema.EntityKind, e models.Entity) string {
	for _, fd := range kind.Fields {
		if fd.IsMedia() {
			continue
		}
		if v := strings.TrimSpace(e.Value(fd.Name)); v != "" {
			if r := []rune(v); len(r) > 60 {
				return string(r[:60]) + "…"
			}
			return v
		}
	}
	return "(untitled)"
}
