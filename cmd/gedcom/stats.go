package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Neumenon/gedcom7/gedcom"
	"github.com/Neumenon/gedcom7/internal/report"
	"github.com/Neumenon/gedcom7/registry"
)

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [file]",
		Short: "Count the records and tags of a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			rc, display, err := openInput(cmd, name)
			if err != nil {
				return err
			}
			defer rc.Close()
			g, _, err := a.decode(rc, display, false)
			if err != nil {
				a.log.Warn("decoded with errors", "file", display, "error", err)
			}

			tags := make(map[string]int)
			g.Walk(func(n *gedcom.Node) bool {
				tags[n.Tag]++
				return true
			})

			p := report.New(cmd.OutOrStdout())
			p.Counts("records", g.Counts())
			p.Counts("tags", tags)
			if schema := g.Schema(); len(schema) > 0 {
				items := make([]string, 0, len(schema))
				for tag, uri := range schema {
					items = append(items, tag+" "+uri)
				}
				slices.Sort(items)
				p.List("extensions", items)
			}
			return nil
		},
	}
}

func (a *app) tagsCmd() *cobra.Command {
	var (
		children  string
		enum      string
		calendars bool
	)
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List registry tags, permitted children, enumerations or calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := report.New(cmd.OutOrStdout())
			switch {
			case children != "":
				key := "" // level 0
				if children != "." {
					e, err := a.reg.Lookup(children)
					if err != nil {
						return err
					}
					key = e.Key
				}
				p.List("children of "+children, describeRules(a.reg.PermittedChildren(key)))
			case enum != "":
				set, ok := a.reg.EnumSet(enum)
				if !ok {
					return fmt.Errorf("unknown enumeration set %q", enum)
				}
				p.List(set.Key, a.reg.EnumValues(set.Key))
			case calendars:
				var items []string
				for _, c := range a.reg.Calendars() {
					months := make([]string, len(c.Months))
					for i, m := range c.Months {
						months[i] = m.Tag
					}
					line := c.Tag + " " + strings.Join(months, ",")
					if c.UsesEpochs() {
						line += " epochs=" + strings.Join(c.Epochs, ",")
					}
					items = append(items, line)
				}
				p.List("calendars", items)
			default:
				p.List("tags", a.reg.Tags())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&children, "children", "", `list the permitted children of a structure key, URI or tag ("." for level 0)`)
	cmd.Flags().StringVar(&enum, "enum", "", "list the values of an enumeration set")
	cmd.Flags().BoolVar(&calendars, "calendars", false, "list calendars with their months and epochs")
	return cmd
}

func describeRules(rules []registry.ChildRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = fmt.Sprintf("%s %s %s", r.Tag, r.Cardinality, r.Key)
	}
	return out
}
