package cli

import (
	"fmt"
	"strconv"

	"dripmate/controllers"
	"dripmate/models"

	"github.com/spf13/cobra"
)

func (a *app) wardrobeView() *controllers.WardrobeView {
	return controllers.NewWardrobeView(a.env.API, a.env.Analyzer, a.env.Prefs, a.env.Session, a.env.Logger)
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func (a *app) wardrobeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wardrobe",
		Short: "Manage the items in your wardrobe",
	}
	cmd.AddCommand(
		a.wardrobeListCommand(),
		a.wardrobeAddCommand(),
		a.wardrobeRemoveCommand(),
		a.wardrobeAnalyzeCommand(),
		a.wardrobeSelectCommand(),
	)
	return cmd
}

func (a *app) wardrobeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your wardrobe",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.wardrobeView()
			err := view.Load(cmd.Context())
			state := view.State()
			if err := a.check(err, state.Redirect); err != nil {
				return err
			}
			renderWardrobe(a.env.Out, state.Items, state.Selected)
			return nil
		},
	}
}

func (a *app) wardrobeAddCommand() *cobra.Command {
	var item models.WardrobeItem
	var category, fromImage string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item to your wardrobe",
		Long: "Add an item to your wardrobe. With --from-image the photo is analyzed " +
			"first and the flags override what was detected.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.wardrobeView()
			form := view.State().Form
			if fromImage != "" {
				upload, err := readImage(fromImage)
				if err != nil {
					return err
				}
				form, err = view.Analyze(cmd.Context(), upload)
				if err := a.check(err, view.State().Redirect); err != nil {
					return err
				}
			}
			form = overrideItem(form, item, models.Category(category))

			err := view.Add(cmd.Context(), form)
			state := view.State()
			if err := a.check(err, state.Redirect); err != nil {
				return err
			}
			fmt.Fprintf(a.env.Out, "Added %s\n", form.Name)
			renderWardrobe(a.env.Out, state.Items, state.Selected)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&item.Name, "name", "", "item name")
	flags.StringVar(&category, "category", "", "clothing, footwear or accessory")
	flags.StringVar(&item.Color, "color", "", "main color")
	flags.StringVar(&item.Season, "season", "", "season it fits")
	flags.StringVar(&item.ImageURL, "image-url", "", "link to a photo")
	flags.StringVar(&item.Notes, "notes", "", "free text notes")
	flags.StringVar(&fromImage, "from-image", "", "photo to pre-fill the item from")
	return cmd
}

func overrideItem(form models.WardrobeItem, flags models.WardrobeItem, category models.Category) models.WardrobeItem {
	if category != "" {
		form.Category = category
	}
	if flags.Name != "" {
		form.Name = flags.Name
	}
	if flags.Color != "" {
		form.Color = flags.Color
	}
	if flags.Season != "" {
		form.Season = flags.Season
	}
	if flags.ImageURL != "" {
		form.ImageURL = flags.ImageURL
	}
	if flags.Notes != "" {
		form.Notes = flags.Notes
	}
	return form
}

func (a *app) wardrobeRemoveCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Remove an item from your wardrobe",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !a.env.confirm(fmt.Sprintf("Delete item %d?", id), yes) {
				fmt.Fprintln(a.env.Out, "Cancelled")
				return nil
			}
			view := a.wardrobeView()
			err = view.Delete(cmd.Context(), uint(id), true)
			if err := a.check(err, view.State().Redirect); err != nil {
				return err
			}
			fmt.Fprintf(a.env.Out, "Deleted item %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) wardrobeAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze PATH",
		Short: "Detect an item's attributes from a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload, err := readImage(args[0])
			if err != nil {
				return err
			}
			view := a.wardrobeView()
			form, err := view.Analyze(cmd.Context(), upload)
			if err := a.check(err, view.State().Redirect); err != nil {
				return err
			}
			t := newTable(a.env.Out, "field", "value")
			t.AppendRow([]interface{}{"Category", form.Category})
			t.AppendRow([]interface{}{"Name", form.Name})
			t.AppendRow([]interface{}{"Color", form.Color})
			t.AppendRow([]interface{}{"Season", form.Season})
			t.AppendRow([]interface{}{"Notes", form.Notes})
			t.Render()
			return nil
		},
	}
}

func (a *app) wardrobeSelectCommand() *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "select [ID]",
		Short: "Pick the item suggestions start from",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.wardrobeView()
			if unset {
				if err := view.Select(nil); err != nil {
					return err
				}
				fmt.Fprintln(a.env.Out, "Selection cleared")
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("give an item id or --clear")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			err = view.Load(cmd.Context())
			state := view.State()
			if err := a.check(err, state.Redirect); err != nil {
				return err
			}
			for _, item := range state.Items {
				if uint64(item.ID) == id {
					item := item
					if err := view.Select(&item); err != nil {
						return err
					}
					fmt.Fprintf(a.env.Out, "Selected %s\n", item.Label())
					return nil
				}
			}
			return fmt.Errorf("no item with id %d", id)
		},
	}
	cmd.Flags().BoolVar(&unset, "clear", false, "forget the selected item")
	return cmd
}
