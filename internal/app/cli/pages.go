package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List pages and their forms",
		Long: `List every settings page with the key and endpoint of each form.
Form keys are what the set command takes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FORM\tTITLE\tENDPOINT")
			for _, p := range pageschema.Pages() {
				for _, f := range p.Forms {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Key, f.Title, f.Endpoint)
				}
			}
			return tw.Flush()
		},
	}
}

// defaultsDoc is the YAML shape printed by the defaults command.
type defaultsDoc struct {
	Values map[string]string              `yaml:"values,omitempty"`
	Lists  map[string][]map[string]string `yaml:"lists,omitempty"`
}

func newDefaultsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "defaults <form>",
		Short: "Print the defaults a form shows before it is first saved",
		Example: `  pagecmsctl defaults blogs
  pagecmsctl defaults about-me.banner --defaults ./site-defaults.yaml`,
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

			doc := defaultsDoc{Values: map[string]string{}, Lists: map[string][]map[string]string{}}
			for _, fd := range form.Fields() {
				if v, ok := s.defaults.Value(form.Key, fd.Name); ok {
					doc.Values[fd.Name] = v
				}
			}
			for _, l := range form.Lists() {
				items, ok := s.defaults.List(form.Key, l.Name)
				if !ok {
					continue
				}
				rows := make([]map[string]string, 0, len(items))
				for _, it := range items {
					row := it.Values
					if it.VideoURL != "" {
						row["video_url"] = it.VideoURL
					}
					rows = append(rows, row)
				}
				doc.Lists[l.Name] = rows
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <page>",
		Short: "Print a page as the public API serves it",
		Long: `Fetch /api/pages/<page> and print it. Defaults are applied and media
paths are resolved to URLs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := pageschema.Lookup(args[0]); !ok {
				return fmt.Errorf("unknown page %q (see pagecmsctl pages)", args[0])
			}
			s, err := opts.open()
			if err != nil {
				return err
			}

			var out json.RawMessage
			if err := s.transport.GetJSON(cmd.Context(), "/api/pages/"+args[0], &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func lookupForm(key string) (*pageschema.Form, error) {
	f, ok := pageschema.FormByKey(key)
	if !ok {
		return nil, fmt.Errorf("unknown form %q (see pagecmsctl pages)", key)
	}
	return f, nil
}
