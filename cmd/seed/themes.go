package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"contentflow/internal/domain"
	librarySvc "contentflow/internal/domain/services/library"
)

//go:embed themes.yaml
var defaultThemes []byte

type seedFile struct {
	Themes []seedTheme `yaml:"themes"`
}

type seedTheme struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
	Color       *string `yaml:"color"`
}

// loadSeedThemes reads path, or the embedded defaults when path is empty
func loadSeedThemes(path string) ([]seedTheme, error) {
	data := defaultThemes
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}
	if len(f.Themes) == 0 {
		return nil, errors.New("no themes in seed file")
	}
	return f.Themes, nil
}

// seedThemes creates each theme, skipping names that already exist. It
// returns how many were created.
func seedThemes(ctx context.Context, svc librarySvc.ThemeService, themes []seedTheme, logger *slog.Logger) (int, error) {
	created := 0
	for _, t := range themes {
		theme, err := svc.CreateTheme(ctx, &librarySvc.CreateThemeRequest{
			Name:        t.Name,
			Description: t.Description,
			Color:       t.Color,
		})
		switch {
		case errors.Is(err, domain.ErrConflict):
			logger.Info("theme exists, skipping", "name", t.Name)
		case err != nil:
			return created, fmt.Errorf("create theme %q: %w", t.Name, err)
		default:
			created++
			logger.Info("theme created", "id", theme.ID, "name", theme.Name)
		}
	}
	return created, nil
}
