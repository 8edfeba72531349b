package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestGetString(t *testing.T) {
	cfg := map[string]string{"addr": "localhost:6379", "empty": ""}

	if got := GetString(cfg, "addr", "fallback"); got != "localhost:6379" {
		t.Errorf("GetString = %q, want %q", got, "localhost:6379")
	}
	if got := GetString(cfg, "empty", "fallback"); got != "fallback" {
		t.Errorf("GetString empty = %q, want fallback", got)
	}
	if got := GetString(cfg, "missing", "fallback"); got != "fallback" {
		t.Errorf("GetString missing = %q, want fallback", got)
	}
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"1", true, false},
		{"yes", true, false},
		{"FALSE", false, false},
		{"0", false, false},
		{"no", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		got, err := GetBool(map[string]string{"k": tt.value}, "k", false)
		if (err != nil) != tt.wantErr {
			t.Errorf("GetBool(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("GetBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	got, err := GetBool(nil, "k", true)
	if err != nil || !got {
		t.Errorf("GetBool default = %v, %v, want true, nil", got, err)
	}
}

func TestGetInt(t *testing.T) {
	cfg := map[string]string{"n": "42", "bad": "forty-two"}

	if got, err := GetInt(cfg, "n", 0); err != nil || got != 42 {
		t.Errorf("GetInt = %d, %v", got, err)
	}
	if got, err := GetInt(cfg, "missing", 7); err != nil || got != 7 {
		t.Errorf("GetInt default = %d, %v", got, err)
	}
	if _, err := GetInt(cfg, "bad", 0); err == nil {
		t.Error("GetInt(bad) expected error")
	}
}

func TestGetInt64(t *testing.T) {
	cfg := map[string]string{"size": "67108864", "bad": "64MB"}

	if got, err := GetInt64(cfg, "size", 0); err != nil || got != 64<<20 {
		t.Errorf("GetInt64 = %d, %v", got, err)
	}
	if got, err := GetInt64(cfg, "missing", 1<<20); err != nil || got != 1<<20 {
		t.Errorf("GetInt64 default = %d, %v", got, err)
	}
	if _, err := GetInt64(cfg, "bad", 0); err == nil {
		t.Error("GetInt64(bad) expected error")
	}
}

func TestGetDuration(t *testing.T) {
	cfg := map[string]string{"timeout": "90s", "bad": "soon"}

	if got, err := GetDuration(cfg, "timeout", 0); err != nil || got != 90*time.Second {
		t.Errorf("GetDuration = %v, %v", got, err)
	}
	if got, err := GetDuration(cfg, "missing", 5*time.Minute); err != nil || got != 5*time.Minute {
		t.Errorf("GetDuration default = %v, %v", got, err)
	}
	if _, err := GetDuration(cfg, "bad", 0); err == nil {
		t.Error("GetDuration(bad) expected error")
	}
}

func TestExpandPath(t *testing.T) {
	if got := ExpandPath("~/data"); got == "~/data" || !filepath.IsAbs(got) {
		t.Errorf("ExpandPath(~/data) = %q, want absolute", got)
	}
	if got := ExpandPath("/var//lib/folio"); got != "/var/lib/folio" {
		t.Errorf("ExpandPath clean = %q", got)
	}
}

func TestMergeConfig(t *testing.T) {
	dst := map[string]string{"a": "1", "b": "2"}
	src := map[string]string{"b": "3", "c": "4"}

	merged := MergeConfig(dst, src)
	if merged["a"] != "1" || merged["b"] != "3" || merged["c"] != "4" {
		t.Errorf("MergeConfig = %v", merged)
	}
	if dst["b"] != "2" {
		t.Error("MergeConfig mutated dst")
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigErrorWithValue("redis", "db", "x", "must be an integer")
	want := `redis: db="x": must be an integer`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
