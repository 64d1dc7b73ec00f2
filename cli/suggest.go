package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dripmate/controllers"
	"dripmate/models"

	"github.com/spf13/cobra"
)

func (a *app) suggestCommand() *cobra.Command {
	form := models.DefaultOutfitRequest()
	var layering string
	var saveFavorite, saveFit int
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Get outfit ideas around one item",
		Long: "Get outfit ideas around one item. Without --item the selected wardrobe " +
			"item is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := controllers.NewChatView(a.env.API, a.env.Prefs, a.env.Session, a.env.Logger)
			if form.Item == "" {
				form.Item = view.State().Form.Item
			}
			form.LayeringPreference = models.LayeringPreference(layering)

			result, err := view.Submit(cmd.Context(), form)
			if err != nil {
				return err
			}
			if err := a.suggestionFailed(result); err != nil {
				return err
			}
			renderCards(a.env.Out, nil, view.Cards())
			return a.saveOutfits(cmd, view, saveFavorite, saveFit)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&form.Item, "item", "", "the item to build around")
	flags.StringVar(&form.Vibe, "vibe", "", "the look you are after, e.g. streetwear")
	flags.StringVar(&form.Gender, "gender", form.Gender, "gender")
	flags.StringVar(&form.AgeGroup, "age-group", "", "age group")
	flags.StringVar(&form.SkinColour, "skin-colour", "", "skin tone")
	flags.IntVar(&form.NumIdeas, "ideas", form.NumIdeas, "number of outfits, 1 to 3")
	flags.StringVar(&form.MoreDetails, "details", "", "anything else to consider")
	flags.StringVar(&layering, "layering", string(form.LayeringPreference),
		fmt.Sprintf("%q, %q or %q", models.LayeringAIDecides, models.LayeringSuggest, models.LayeringNone))
	flags.BoolVar(&form.UseWardrobeOnly, "wardrobe-only", false, "only use pieces from your wardrobe")
	flags.IntVar(&saveFavorite, "save-favorite", 0, "save outfit N to your favorites")
	flags.IntVar(&saveFit, "save-fit", 0, "save outfit N on this device")
	return cmd
}

func (a *app) suggestImageCommand() *cobra.Command {
	var prompt string
	var useWardrobe bool
	var saveFavorite, saveFit int
	cmd := &cobra.Command{
		Use:   "suggest-image PATH",
		Short: "Get outfit ideas around a photographed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload, err := readImage(args[0])
			if err != nil {
				return err
			}
			view := controllers.NewChatView(a.env.API, a.env.Prefs, a.env.Session, a.env.Logger)
			result, err := view.SubmitImage(cmd.Context(), upload, prompt, useWardrobe)
			if err != nil {
				return err
			}
			if err := a.suggestionFailed(result); err != nil {
				return err
			}
			success := result.(models.SuggestionSuccess)
			renderCards(a.env.Out, success.DetectedItem, view.Cards())
			return a.saveOutfits(cmd, view, saveFavorite, saveFit)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "the look you are after")
	cmd.Flags().BoolVar(&useWardrobe, "wardrobe", false, "only use pieces from your wardrobe")
	cmd.Flags().IntVar(&saveFavorite, "save-favorite", 0, "save outfit N to your favorites")
	cmd.Flags().IntVar(&saveFit, "save-fit", 0, "save outfit N on this device")
	return cmd
}

func (a *app) suggestionFailed(result models.SuggestionResult) error {
	failure, ok := result.(models.SuggestionFailure)
	if !ok {
		return nil
	}
	if failure.Unauthorized {
		return a.check(nil, controllers.LoginPath)
	}
	return errors.New(failure.Error)
}

func (a *app) saveOutfits(cmd *cobra.Command, view *controllers.ChatView, favorite int, fit int) error {
	if favorite > 0 {
		_, err := view.SaveFavorite(cmd.Context(), favorite)
		if err := a.check(err, view.State().Redirect); err != nil {
			return err
		}
		fmt.Fprintln(a.env.Out, view.State().Notice)
	}
	if fit > 0 {
		if _, err := view.SaveLocalFit(fit); err != nil {
			return a.check(err, "")
		}
		fmt.Fprintln(a.env.Out, view.State().Notice)
	}
	return nil
}

func readImage(path string) (models.ImageUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ImageUpload{}, fmt.Errorf("read image: %w", err)
	}
	return models.ImageUpload{FileName: filepath.Base(path), Data: data}, nil
}
