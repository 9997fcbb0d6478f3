// Subcommands: schema listing, search dispatch, share-link handling.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nainya/facetsearch/pkg/filter"
	"github.com/nainya/facetsearch/pkg/registry"
	"github.com/nainya/facetsearch/pkg/search"
)

func schemasCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the portal's metadata schemas and parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(flags)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(flags)
			defer cancel()

			if err := sess.LoadSchemas(ctx); err != nil {
				return err
			}

			reg := sess.Registry()
			for _, t := range registry.TypeOrder {
				ids := reg.TypeSchemas(t)
				if len(ids) == 0 {
					continue
				}
				fmt.Printf("%s:\n", t)
				for _, id := range ids {
					sch, err := reg.Schema(id)
					if err != nil {
						return err
					}
					fmt.Printf("  [%s] %s\n", sch.ID, sch.Name)
					for pid, p := range sch.Parameters {
						fmt.Printf("      %s (%s, %s)\n", p.FullName, pid, p.DataType)
					}
				}
			}
			return nil
		},
	}
}

func searchCmd(flags *globalFlags) *cobra.Command {
	var (
		filterFlags []string
		typeScope   string
		page        int
		pageSize    int
		sortFlags   []string
		share       bool
	)

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Run a faceted search",
		Long: `Run a faceted search against the portal.

Filters use the form <type>.<attribute><op><value> for built-in attributes
or schema:<schemaId>.<parameterId><op><value> for schema parameters, with
operators ~ (contains), = (is, comma-separated ids), >= and <=:

  facetsearch search plasma --filter 'experiment.createdDate>=2020-01-23'
  facetsearch search --filter 'datafile.fileExtension=tiff,jpg'
  facetsearch search --filter 'schema:2.4~RNSeq'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(flags)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(flags)
			defer cancel()

			needSchemas := false
			for _, f := range filterFlags {
				if strings.HasPrefix(f, "schema:") {
					needSchemas = true
				}
			}
			if needSchemas {
				if err := sess.LoadSchemas(ctx); err != nil {
					return err
				}
			}

			if len(args) == 1 {
				sess.Results().UpdateSearchTerm(args[0])
			}
			for _, f := range filterFlags {
				if err := applyFilterFlag(sess.Filters(), f); err != nil {
					return err
				}
			}

			if typeScope != "" {
				t, err := registry.ParseEntityType(typeScope)
				if err != nil {
					return err
				}
				if page > 0 {
					sess.Results().SetPageNumber(t, page)
				}
				if pageSize > 0 {
					sess.Results().SetPageSize(t, pageSize)
				}
				for _, s := range sortFlags {
					attr, order, err := parseSortFlag(s)
					if err != nil {
						return err
					}
					sess.Results().UpdateResultSort(t, attr, order)
				}
				err = sess.RunSingleTypeSearch(ctx, t)
				printResults(sess, t)
				if err != nil {
					return err
				}
			} else {
				err = sess.RunSearch(ctx)
				for _, t := range registry.TypeOrder {
					printResults(sess, t)
				}
				if err != nil {
					return err
				}
			}

			if share {
				link, err := sess.ShareLink()
				if err != nil {
					return err
				}
				fmt.Printf("share: %s\n", link)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&filterFlags, "filter", nil, "filter expression (repeatable)")
	cmd.Flags().StringVar(&typeScope, "type", "", "restrict to one entity type")
	cmd.Flags().IntVar(&page, "page", 0, "page number (with --type)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page size (with --type)")
	cmd.Flags().StringArrayVar(&sortFlags, "sort", nil, "sort key attr[:desc] (with --type, repeatable)")
	cmd.Flags().BoolVar(&share, "share", false, "print a shareable link for this search")

	return cmd
}

func linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <query-string>",
		Short: "Decode a shareable search link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := search.ParseQuery(args[0])
			if err != nil {
				return err
			}
			if parsed == nil {
				fmt.Println("no search state in link")
				return nil
			}

			if term := parsed.Term(); term != "" {
				fmt.Printf("query: %q\n", term)
			}
			if parsed.Filters != nil {
				for _, c := range parsed.Filters.Content {
					fmt.Printf("filter: %s %v %s %v\n", c.Kind, c.Target, c.Op, c.Content)
				}
			}
			return nil
		},
	}
}

// applyFilterFlag parses one --filter expression and applies it.
func applyFilterFlag(store *filter.Store, expr string) error {
	ops := []struct {
		symbol string
		op     filter.Op
	}{
		{">=", filter.OpGTE},
		{"<=", filter.OpLTE},
		{"~", filter.OpContains},
		{"=", filter.OpIs},
	}

	for _, candidate := range ops {
		idx := strings.Index(expr, candidate.symbol)
		if idx <= 0 {
			continue
		}
		field, raw := expr[:idx], expr[idx+len(candidate.symbol):]

		var v filter.Value
		if candidate.op == filter.OpIs {
			v = filter.Is(strings.Split(raw, ",")...)
		} else {
			v = filter.Value{{Op: candidate.op, Content: raw}}
		}

		if schemaField, ok := strings.CutPrefix(field, "schema:"); ok {
			schemaID, paramID, found := strings.Cut(schemaField, ".")
			if !found {
				return fmt.Errorf("invalid schema filter field %q", field)
			}
			return store.UpdateSchemaParameter(schemaID, paramID, v)
		}

		typeID, attrID, found := strings.Cut(field, ".")
		if !found {
			return fmt.Errorf("invalid filter field %q", field)
		}
		t, err := registry.ParseEntityType(typeID)
		if err != nil {
			return err
		}
		if attrID == registry.AttrSchema {
			return store.UpdateActiveSchemas(t, v)
		}
		return store.UpdateTypeAttribute(t, attrID, v)
	}

	return fmt.Errorf("no operator in filter %q (expected ~, =, >= or <=)", expr)
}

// parseSortFlag splits "attr" or "attr:desc" into key and order.
func parseSortFlag(s string) (string, string, error) {
	attr, order, found := strings.Cut(s, ":")
	if !found {
		return attr, "asc", nil
	}
	if order != "asc" && order != "desc" {
		return "", "", fmt.Errorf("invalid sort order %q", order)
	}
	return attr, order, nil
}

// printResults renders one type's bucket.
func printResults(sess *search.Session, t registry.EntityType) {
	store := sess.Results()
	if store.Status() == search.StatusErrored {
		fmt.Println(store.Error())
		return
	}

	results := store.Results(t)
	counts := store.Counts()
	fmt.Printf("%s (%d):\n", t.Plural(), counts[t])
	if len(results) == 0 {
		fmt.Println("  No results. Please adjust your search and try again.")
		return
	}
	for _, r := range results {
		name := displayName(r)
		fmt.Printf("  %-40s %s\n", name, r.URL)
	}
}

// displayName picks the most human field a hit carries.
func displayName(r search.Result) string {
	for _, key := range []string{"name", "title", "description", "filename"} {
		if v, ok := r.Source[key].(string); ok && v != "" {
			return v
		}
	}
	return r.ID
}
