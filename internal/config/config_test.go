package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.MaxRoutes != 5 {
		t.Errorf("MaxRoutes = %d, want 5", cfg.MaxRoutes)
	}
	if cfg.MaxTransfers != 2 {
		t.Errorf("MaxTransfers = %d, want 2", cfg.MaxTransfers)
	}
	if cfg.MinTransferMinutes != 10 {
		t.Errorf("MinTransferMinutes = %d, want 10", cfg.MinTransferMinutes)
	}
	if cfg.MaxWalkMetres != 500 {
		t.Errorf("MaxWalkMetres = %f, want 500", cfg.MaxWalkMetres)
	}
	if cfg.GTFSRefreshHours != 24 {
		t.Errorf("GTFSRefreshHours = %d, want 24", cfg.GTFSRefreshHours)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("MAX_ROUTES", "9")
	t.Setenv("MAX_WALK_METRES", "750.5")
	cfg := Load()
	if cfg.MaxRoutes != 9 {
		t.Errorf("MaxRoutes = %d, want 9", cfg.MaxRoutes)
	}
	if cfg.MaxWalkMetres != 750.5 {
		t.Errorf("MaxWalkMetres = %f, want 750.5", cfg.MaxWalkMetres)
	}
}

func TestRoutingConfigDerivation(t *testing.T) {
	cfg := Load()
	rc := cfg.RoutingConfig()
	if rc.MaxRoutes != cfg.MaxRoutes || rc.MaxTransfers != cfg.MaxTransfers || rc.MinTransferMinutes != cfg.MinTransferMinutes {
		t.Errorf("RoutingConfig() did not carry over base settings: %+v", rc)
	}
}
