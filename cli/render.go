package cli

import (
	"fmt"
	"io"
	"strings"

	"dripmate/controllers"
	"dripmate/languageutil"
	"dripmate/models"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer, headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	row := make(table.Row, 0, len(headers))
	for _, h := range headers {
		row = append(row, languageutil.Title(h))
	}
	t.AppendHeader(row)
	return t
}

func renderProfile(out io.Writer, profile models.Profile) {
	t := newTable(out, "field", "value")
	t.AppendRows([]table.Row{
		{"Name", profile.Name},
		{"Email", profile.Email},
		{"Gender", profile.Gender},
		{"Age group", profile.AgeGroup},
		{"Skin colour", profile.SkinColour},
		{"Wardrobe items", profile.WardrobeCount},
		{"Favorites", profile.FavoritesCount},
	})
	t.Render()
}

func renderWardrobe(out io.Writer, items []models.WardrobeItem, selected *models.WardrobeItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Your wardrobe is empty")
		return
	}
	t := newTable(out, "id", "category", "name", "color", "season", "notes", "")
	for _, item := range items {
		mark := ""
		if selected != nil && selected.ID == item.ID {
			mark = "selected"
		}
		t.AppendRow(table.Row{item.ID, languageutil.Title(string(item.Category)), item.Name, item.Color, item.Season, item.Notes, mark})
	}
	t.Render()
}

func renderCards(out io.Writer, detected *models.DetectedItem, cards []controllers.OutfitCard) {
	if detected != nil {
		fmt.Fprintf(out, "Detected: %s\n", detectedLabel(*detected))
	}
	for _, card := range cards {
		t := newTable(out, "slot", "piece", "why")
		t.SetTitle(card.Title)
		for _, g := range card.Garments {
			t.AppendRow(table.Row{g.Label, g.Name, g.Reason})
		}
		t.Render()
	}
}

func detectedLabel(item models.DetectedItem) string {
	parts := []string{item.Name}
	if item.Color != "" {
		parts = append(parts, item.Color)
	}
	if item.Category != "" {
		parts = append(parts, item.Category)
	}
	return strings.Join(parts, ", ")
}

func renderFits(out io.Writer, fits []models.FavoriteFit, empty string) {
	if len(fits) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	t := newTable(out, "id", "title", "outfit", "from", "saved")
	for _, fit := range fits {
		summary := fit.Summary
		if summary == "" {
			summary = fit.Payload.Summary()
		}
		t.AppendRow(table.Row{fit.ID, fit.Title, summary, fit.SourceItem, fit.CreatedAt})
	}
	t.Render()
}
