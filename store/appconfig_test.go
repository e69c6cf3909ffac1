package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }
func u32Ptr(v uint32) *uint32 { return &v }

func newConfig(t *testing.T) ConfigFile {
	t.Helper()
	return ConfigFile{Path: filepath.Join(t.TempDir(), AppDirName, "config")}
}

func TestConfigLoadDefaults(t *testing.T) {
	f := newConfig(t)
	cfg, err := f.Load()
	if err != nil || cfg.Language != nil || cfg.FontSizePx != nil {
		t.Fatalf("expected empty config, got %+v (%v)", cfg, err)
	}
	if err := WriteFileAtomic(f.Path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg, err = f.Load()
	if err != nil || cfg.Language != nil {
		t.Fatalf("blank file should load as empty config: %+v (%v)", cfg, err)
	}
}

func TestConfigLoadMalformed(t *testing.T) {
	f := newConfig(t)
	if err := WriteFileAtomic(f.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := f.Load()
	if err == nil || !strings.Contains(err.Error(), f.Path) {
		t.Fatalf("expected parse error naming the file, got %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	f := newConfig(t)
	in := AppConfig{Language: strPtr("zh-CN"), FontSizePx: u32Ptr(16)}
	if err := f.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Language == nil || *out.Language != "zh-CN" || out.FontSizePx == nil || *out.FontSizePx != 16 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestConfigPartialSave(t *testing.T) {
	f := newConfig(t)
	if err := f.Save(AppConfig{Language: strPtr("en")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.Save(AppConfig{FontSizePx: u32Ptr(18)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg, err := f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Language == nil || *cfg.Language != "en" {
		t.Fatalf("language should survive a font-only save: %+v", cfg)
	}
	if cfg.FontSizePx == nil || *cfg.FontSizePx != 18 {
		t.Fatalf("font size not updated: %+v", cfg)
	}
}

func TestConfigOmitsUnsetKeys(t *testing.T) {
	f := newConfig(t)
	if err := f.Save(AppConfig{FontSizePx: u32Ptr(14)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(f.Path)
	if strings.Contains(string(data), "language") || strings.Contains(string(data), "null") {
		t.Fatalf("unset keys must be omitted: %s", data)
	}
	if !strings.Contains(string(data), `"fontSizePx": 14`) {
		t.Fatalf("expected pretty printed font size: %s", data)
	}
}

func TestConfigSaveReplacesMalformed(t *testing.T) {
	f := newConfig(t)
	if err := WriteFileAtomic(f.Path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.Save(AppConfig{Language: strPtr("fr")}); err != nil {
		t.Fatalf("save over malformed: %v", err)
	}
	cfg, err := f.Load()
	if err != nil || cfg.Language == nil || *cfg.Language != "fr" {
		t.Fatalf("unexpected config %+v (%v)", cfg, err)
	}
}

func TestMergeDoesNotAlias(t *testing.T) {
	lang := "de"
	base := AppConfig{}
	merged := base.Merge(AppConfig{Language: &lang})
	lang = "it"
	if *merged.Language != "de" {
		t.Fatal("merge should copy values")
	}
}

func TestPathsIn(t *testing.T) {
	p := PathsIn(filepath.Join("home", AppDirName))
	if filepath.Base(p.Config) != "config" || filepath.Base(p.Recent) != "recent" {
		t.Fatalf("unexpected paths %+v", p)
	}
	if _, err := DefaultPaths(); err != nil {
		t.Logf("no home directory in this environment: %v", err)
	}
}
