package models

import "fmt"

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	DefaultTheme = ThemeDark
)

func ParseTheme(value string) (Theme, error) {
	switch Theme(value) {
	case ThemeDark, ThemeLight:
		return Theme(value), nil
	}
	return "", fmt.Errorf("unknown theme %q, expected dark or light", value)
}
