package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/caravel"
	"github.com/aretw0/caravel/internal/logging"
	"github.com/aretw0/caravel/pkg/adapters/apidiff"
	"github.com/aretw0/caravel/pkg/adapters/forge"
	"github.com/aretw0/caravel/pkg/adapters/git"
	"github.com/aretw0/caravel/pkg/adapters/registry"
	"github.com/aretw0/caravel/pkg/config"
)

func createLogger() *slog.Logger {
	if flagDebug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelInfo)
}

func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = filepath.Join(flagWorkspace, config.FileName)
	}
	return config.Load(path)
}

// buildEngine wires the real collaborators into an Engine. The forge and
// registry endpoints come from the configuration; the API token comes from
// the environment so it never lands in a file the engine writes.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*caravel.Engine, error) {
	if cfg.Forge.Owner == "" || cfg.Forge.Repo == "" {
		return nil, fmt.Errorf("forge.owner and forge.repo must be configured in %s", config.FileName)
	}

	apiURL := cfg.Forge.APIURL
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	htmlURL := cfg.Forge.HTMLURL
	if htmlURL == "" {
		htmlURL = "https://github.com"
	}
	token := os.Getenv(cfg.Forge.TokenEnv)
	host := forge.New(apiURL, htmlURL, cfg.Forge.Owner, cfg.Forge.Repo, token)

	opts := []caravel.Option{
		caravel.WithVersionControl(git.New(flagWorkspace)),
		caravel.WithHosting(host),
		caravel.WithCompatibilityChecker(apidiff.New(flagWorkspace, "")),
		caravel.WithLogger(logger),
	}
	if cfg.Registry.URL != "" {
		reg, err := registry.New(cfg.Registry.URL, nil)
		if err != nil {
			return nil, err
		}
		opts = append(opts, caravel.WithRegistry(reg))
	}

	return caravel.New(flagWorkspace, cfg, opts...)
}
