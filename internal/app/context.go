package app

import (
	"fmt"
	"os"

	"trayline/internal/config"
)

// ResolveConfig loads trayline.yml from the workspace, writing the default
// file on first use so a fresh workspace works without setup.
func ResolveConfig(workspace, tenantOverride string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		tenantID := tenantOverride
		if tenantID == "" {
			tenantID = "default-tenant"
		}
		cfg = config.Default(tenantID)
		if err := os.WriteFile(config.Path(workspace), []byte(config.GenerateDefault(tenantID)), 0o644); err != nil {
			return nil, fmt.Errorf("seed config: %w", err)
		}
	}
	if tenantOverride != "" {
		cfg.Tenant.ID = tenantOverride
	}
	return cfg, nil
}
