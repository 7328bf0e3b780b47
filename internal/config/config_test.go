package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "SQLITE_PATH", "DATABASE_URL", "BUSINESS_ID", "PHONE_REGION", "REDIS_ADDRESS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.SQLitePath != "bizbiller.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.PhoneRegion != "IN" {
		t.Errorf("PhoneRegion = %q, want IN", cfg.PhoneRegion)
	}
	if cfg.BusinessID != 0 {
		t.Errorf("BusinessID = %d, want 0", cfg.BusinessID)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, true},
		{"postgres with url", map[string]string{"DB_DRIVER": "postgres", "DATABASE_URL": "postgres://localhost/x"}, false},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, true},
		{"bad business id", map[string]string{"BUSINESS_ID": "abc"}, true},
		{"negative business id", map[string]string{"BUSINESS_ID": "-3"}, true},
		{"business id", map[string]string{"BUSINESS_ID": "7"}, false},
		{"bad region", map[string]string{"PHONE_REGION": "IND"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"DB_DRIVER", "SQLITE_PATH", "DATABASE_URL", "BUSINESS_ID", "PHONE_REGION"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if tt.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
