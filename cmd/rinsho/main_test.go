package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"persistent sadness", "-k", "10"},
			expected: []string{"-k", "10", "persistent sadness"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "10", "persistent sadness"},
			expected: []string{"-k", "10", "persistent sadness"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"persistent sadness"},
			expected: []string{"persistent sadness"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"sad", "hopeless", "-min-score", "0.3"},
			expected: []string{"-min-score", "0.3", "sad", "hopeless"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"excessive", "worry"}, "excessive worry"},
		{[]string{"excessive worry"}, "excessive worry"},
		{[]string{" spaced "}, "spaced"},
		{[]string{}, ""},
	}
	for _, tt := range tests {
		if got := buildSearchQuery(tt.args); got != tt.want {
			t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestLoadConfig_CwdFallback(t *testing.T) {
	dir := t.TempDir()
	content := "server:\n  port: 9999\nembedding:\n  provider: \"mock\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(oldwd)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if filepath.Base(resolved) != "config.yaml" {
		t.Errorf("resolved = %q", resolved)
	}
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || resolved != path {
		t.Errorf("cfg.Debug = %v, resolved = %q", cfg.Debug, resolved)
	}
}
