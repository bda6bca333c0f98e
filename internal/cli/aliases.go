package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAliasesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "aliases",
		Aliases: []string{"alias"},
		Short:   "List station aliases",
		Args:    cobra.NoArgs,
		RunE: opts.run(func(_ context.Context, _ *cobra.Command, app *App, _ []string) error {
			names := app.cfg.AliasNames()
			if len(names) == 0 {
				app.render.Println("No aliases. Add one with 'koleo aliases add <alias> <station>'.")
				return nil
			}
			for _, name := range names {
				app.render.Println(app.render.Station(name), " -> ", app.cfg.Aliases[name])
			}
			return nil
		}),
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "add <alias> <station...>",
			Aliases: []string{"a"},
			Short:   "Add or replace a station alias",
			Args:    cobra.MinimumNArgs(2),
			RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
				st, err := app.Station(ctx, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				app.cfg.AddAlias(args[0], st.NameSlug)
				app.render.Println(fmt.Sprintf("Alias %s saved for %s", args[0], app.render.Station(st.Name)))
				return nil
			}),
		},
		&cobra.Command{
			Use:     "remove <alias>",
			Aliases: []string{"rm", "r"},
			Short:   "Remove a station alias",
			Args:    cobra.ExactArgs(1),
			RunE: opts.run(func(_ context.Context, _ *cobra.Command, app *App, args []string) error {
				if !app.cfg.RemoveAlias(args[0]) {
					return userErrorf("alias not found: %s", args[0])
				}
				app.render.Println("Alias " + args[0] + " removed")
				return nil
			}),
		},
	)
	return cmd
}
