package validation

import (
	"errors"
	"fmt"

	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/idgames"
)

// CheckConfig validates cfg and rewrites its URLs and paths in normalized
// form. Empty paths are left alone; they disable the component that uses
// them. All problems are reported together.
func CheckConfig(cfg *config.Config, paths *PathValidator, endpoints *EndpointValidator) error {
	var errs []error

	if u, err := endpoints.ValidateAndNormalize(cfg.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	} else {
		cfg.API.BaseURL = u
	}
	if cfg.API.MirrorURL != "" {
		if u, err := endpoints.ValidateMirror(cfg.API.MirrorURL); err != nil {
			errs = append(errs, fmt.Errorf("api.mirror_url: %w", err))
		} else {
			cfg.API.MirrorURL = u
		}
	}

	if cfg.Cache.Dir != "" {
		if p, err := paths.ValidateDirectory(cfg.Cache.Dir, false); err != nil {
			errs = append(errs, fmt.Errorf("cache.dir: %w", err))
		} else {
			cfg.Cache.Dir = p
		}
	}
	if cfg.Database.Path != "" {
		if p, err := paths.ValidateFile(cfg.Database.Path); err != nil {
			errs = append(errs, fmt.Errorf("database.path: %w", err))
		} else {
			cfg.Database.Path = p
		}
	}
	if cfg.Database.SearchIndex != "" {
		// bleve indexes are directories
		if p, err := paths.ValidateDirectory(cfg.Database.SearchIndex, false); err != nil {
			errs = append(errs, fmt.Errorf("database.search_index: %w", err))
		} else {
			cfg.Database.SearchIndex = p
		}
	}

	if cfg.Cache.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("cache.max_size: must not be negative"))
	}
	if cfg.Limits.NewFiles <= 0 {
		errs = append(errs, fmt.Errorf("limits.new_files: must be positive"))
	}
	if cfg.Limits.NewVotes <= 0 {
		errs = append(errs, fmt.Errorf("limits.new_votes: must be positive"))
	}
	if cfg.Search.DefaultCategory != "" {
		if _, err := idgames.ParseCategory(cfg.Search.DefaultCategory); err != nil {
			errs = append(errs, fmt.Errorf("search.default_category: %w", err))
		}
	}

	return errors.Join(errs...)
}
