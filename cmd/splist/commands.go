package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"spmodel/domain/listmodel"
	"spmodel/interfaces/web/presenters"
)

const (
	FlagQuery  = "query"
	FlagFields = "fields"
	FlagExtend = "extend"
	FlagHidden = "hidden"
	FlagWeb    = "web"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseItemID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}

func (c *cli) listsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show the configured lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				var models []*listmodel.Model
				for _, name := range app.Catalog.Names() {
					m, err := app.Catalog.Model(name)
					if err != nil {
						return err
					}
					models = append(models, m)
				}
				vm := presenters.NewListPresenter(app.Location).ToListIndexViewModel(app.Config.Environment, models)
				return writeJSON(cmd.OutOrStdout(), vm)
			})
		},
	}
}

func (c *cli) siteListsCmd() *cobra.Command {
	var (
		hidden bool
		web    string
	)
	cmd := &cobra.Command{
		Use:   "site-lists",
		Short: "Show every list of a web as reported by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				lists, err := app.Client.GetListCollection(ctx, web)
				if err != nil {
					return err
				}
				siteURL := web
				if siteURL == "" {
					siteURL = app.Client.SiteURL()
				}
				vm := presenters.NewSitePresenter().ToSiteListsViewModel(siteURL, lists, hidden)
				return writeJSON(cmd.OutOrStdout(), vm)
			})
		},
	}
	cmd.Flags().BoolVar(&hidden, FlagHidden, false, "(optional) include hidden lists")
	cmd.Flags().StringVar(&web, FlagWeb, "", "(optional) web URL, defaults to the site URL")
	return cmd
}

func (c *cli) itemsCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "items <list>",
		Short: "Execute a query of a list and print its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := args[0]
			return c.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				m, err := app.Catalog.Model(list)
				if err != nil {
					return err
				}
				name := query
				if name == "" {
					name = app.Catalog.DefaultQuery(list)
				}
				items, err := app.Catalog.Items(ctx, list, name)
				if err != nil {
					return err
				}
				vm := presenters.NewListPresenter(app.Location).ToItemTableViewModel(m, m.GetQuery(name), items)
				return writeJSON(cmd.OutOrStdout(), vm)
			})
		},
	}
	cmd.Flags().StringVar(&query, FlagQuery, "", "(optional) registered query name")
	return cmd
}

func (c *cli) itemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "item <list> <id>",
		Short: "Fetch a single item by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[1])
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				m, err := app.Catalog.Model(args[0])
				if err != nil {
					return err
				}
				item, err := m.GetListItemByID(ctx, id, listmodel.QueryOptions{})
				if err != nil {
					return err
				}
				vm := presenters.NewListPresenter(app.Location).ToItemDetailViewModel(m, item)
				return writeJSON(cmd.OutOrStdout(), vm)
			})
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var fields string
	cmd := &cobra.Command{
		Use:   "history <list> <id>",
		Short: "Show the significant changes of every version of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[1])
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				m, err := app.Catalog.Model(args[0])
				if err != nil {
					return err
				}
				item, err := m.GetListItemByID(ctx, id, listmodel.QueryOptions{})
				if err != nil {
					return err
				}
				summary, err := item.GetChangeSummary(ctx, presenters.ParseFieldList(fields)...)
				if err != nil {
					return err
				}
				vm := presenters.NewListPresenter(app.Location).ToHistoryViewModel(m.Definition().Name(), summary)
				return writeJSON(cmd.OutOrStdout(), vm)
			})
		},
	}
	cmd.Flags().StringVar(&fields, FlagFields, "", "(optional) comma separated mapped field names to compare")
	return cmd
}

func (c *cli) fieldsCmd() *cobra.Command {
	var extend bool
	cmd := &cobra.Command{
		Use:   "fields <list>",
		Short: "Describe the field definitions of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				m, err := app.Catalog.Model(args[0])
				if err != nil {
					return err
				}
				if extend {
					if _, err := m.ExtendListMetadata(ctx); err != nil {
						return err
					}
				}
				return writeJSON(cmd.OutOrStdout(), presenters.NewListPresenter(app.Location).ToFieldsViewModel(m))
			})
		},
	}
	cmd.Flags().BoolVar(&extend, FlagExtend, false, "(optional) extend the definitions with server metadata")
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user profile and group memberships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				profile, err := app.Users.GetUserProfile(ctx, false)
				if err != nil {
					return err
				}
				groups, err := app.Users.GetGroupCollection(ctx, false)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), presenters.NewSitePresenter().ToProfileViewModel(profile, groups))
			})
		},
	}
}
