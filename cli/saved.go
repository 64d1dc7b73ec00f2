package cli

import (
	"fmt"
	"strconv"

	"dripmate/controllers"
	"dripmate/models"

	"github.com/spf13/cobra"
)

func (a *app) favoritesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Outfits saved to your account",
	}
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your favorites",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := controllers.NewSavedView(a.env.API, a.env.Session, a.env.Logger)
			err := view.Load(cmd.Context())
			state := view.State()
			if err := a.check(err, state.Redirect); err != nil {
				return err
			}
			renderFits(a.env.Out, state.Favorites, "No favorites yet")
			return nil
		},
	}
	var yes bool
	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Remove a favorite",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			if !a.env.confirm(fmt.Sprintf("Remove favorite %d?", id), yes) {
				fmt.Fprintln(a.env.Out, "Cancelled")
				return nil
			}
			view := controllers.NewSavedView(a.env.API, a.env.Session, a.env.Logger)
			err = view.Delete(cmd.Context(), id, true)
			if err := a.check(err, view.State().Redirect); err != nil {
				return err
			}
			fmt.Fprintf(a.env.Out, "Removed favorite %d\n", id)
			return nil
		},
	}
	rm.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.AddCommand(list, rm)
	return cmd
}

func (a *app) fitsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fits",
		Short: "Outfits saved on this device",
	}
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved fits",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fits, err := controllers.NewFitsView(a.env.Prefs).List()
			if err != nil {
				return err
			}
			renderFits(a.env.Out, fits, "No saved fits yet")
			return nil
		},
	}
	var yes bool
	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Remove a saved fit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			if !a.env.confirm(fmt.Sprintf("Remove fit %d?", id), yes) {
				fmt.Fprintln(a.env.Out, "Cancelled")
				return nil
			}
			if err := controllers.NewFitsView(a.env.Prefs).Delete(id, true); err != nil {
				return err
			}
			fmt.Fprintf(a.env.Out, "Removed fit %d\n", id)
			return nil
		},
	}
	rm.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.AddCommand(list, rm)
	return cmd
}

func (a *app) themeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light]",
		Short:     "Show or change the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(models.ThemeDark), string(models.ThemeLight)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				theme, err := models.ParseTheme(args[0])
				if err != nil {
					return err
				}
				if err := a.env.Prefs.SetTheme(theme); err != nil {
					return err
				}
			}
			theme, err := a.env.Prefs.Theme()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.env.Out, "Theme: %s\n", theme)
			return nil
		},
	}
}

func (a *app) resetCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the cached wardrobe and saved fits",
		Long: "Clear the cached wardrobe and saved fits kept on this device. " +
			"The theme, the selected item and your login are kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.env.confirm("Clear all local data?", yes) {
				fmt.Fprintln(a.env.Out, "Cancelled")
				return nil
			}
			if err := a.env.Prefs.ClearAll(); err != nil {
				return err
			}
			fmt.Fprintln(a.env.Out, "Local data cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
