package storagefactory

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/pkg/storage"
)

func TestNewStorage(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		cfg      *config.StorageConfig
		wantNil  bool
		wantType string
		wantErr  bool
	}{
		{
			name:    "disabled storage",
			cfg:     &config.StorageConfig{},
			wantNil: true,
		},
		{
			name: "valid local storage config",
			cfg: &config.StorageConfig{
				Type: "local",
				Local: &config.LocalConfig{
					BasePath: tmpDir,
					BaseURL:  "http://localhost:8080/files",
				},
			},
			wantType: "local",
		},
		{
			name:    "missing local config",
			cfg:     &config.StorageConfig{Type: "local"},
			wantErr: true,
		},
		{
			name:    "missing oss config",
			cfg:     &config.StorageConfig{Type: "oss"},
			wantErr: true,
		},
		{
			name:    "unsupported storage type",
			cfg:     &config.StorageConfig{Type: "s3"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := NewStorage(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewStorage() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewStorage() unexpected error: %v", err)
			}
			if tt.wantNil {
				if st != nil {
					t.Fatalf("NewStorage() = %v, want nil", st)
				}
				return
			}
			if st.Type() != tt.wantType {
				t.Errorf("Type() = %s, want %s", st.Type(), tt.wantType)
			}
		})
	}
}

func TestLocalStorage_Operations(t *testing.T) {
	ctx := context.Background()
	st, err := NewStorage(ctx, &config.StorageConfig{
		Type: "local",
		Local: &config.LocalConfig{
			BasePath: t.TempDir(),
			BaseURL:  "http://localhost:8080/files/",
		},
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	key := storage.ExportKey("proj1", "exp1", "manifest.json")
	content := `[{"script_line":"Hello"}]`

	t.Run("Put", func(t *testing.T) {
		url, err := st.Put(ctx, key, strings.NewReader(content), "application/json")
		if err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		want := "http://localhost:8080/files/exports/proj1/exp1/manifest.json"
		if url != want {
			t.Errorf("Put() url = %s, want %s", url, want)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := st.Exists(ctx, key)
		if err != nil || !exists {
			t.Fatalf("Exists() = %v, %v; want true", exists, err)
		}
		exists, err = st.Exists(ctx, "exports/missing.json")
		if err != nil || exists {
			t.Fatalf("Exists(missing) = %v, %v; want false", exists, err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		rc, err := st.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		if string(data) != content {
			t.Errorf("Get() = %s, want %s", data, content)
		}
	})

	t.Run("Stat", func(t *testing.T) {
		info, err := st.Stat(ctx, key)
		if err != nil {
			t.Fatalf("Stat() error: %v", err)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("Size = %d, want %d", info.Size, len(content))
		}
		if info.ETag == "" {
			t.Error("ETag should not be empty")
		}
	})

	t.Run("SignedURL", func(t *testing.T) {
		url, err := st.SignedURL(ctx, key, time.Hour)
		if err != nil {
			t.Fatalf("SignedURL() error: %v", err)
		}
		if !strings.HasSuffix(url, "/exports/proj1/exp1/manifest.json") {
			t.Errorf("SignedURL() = %s", url)
		}
	})

	t.Run("path traversal stays inside base path", func(t *testing.T) {
		if _, err := st.Put(ctx, "../../escape.txt", strings.NewReader("x"), "text/plain"); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		exists, _ := st.Exists(ctx, "escape.txt")
		if !exists {
			t.Error("expected key to be confined under base path")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := st.Delete(ctx, key); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if err := st.Delete(ctx, key); err != nil {
			t.Fatalf("Delete() twice should succeed, got %v", err)
		}
		exists, _ := st.Exists(ctx, key)
		if exists {
			t.Error("file should not exist after delete")
		}
	})
}
