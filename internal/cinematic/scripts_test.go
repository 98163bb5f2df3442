package cinematic

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseScriptsOverridesDefaults(t *testing.T) {
	scripts, err := ParseScripts([]byte(`
intro:
  message: "Hi Sam!"
outro:
  auto_start: false
  layers:
    driving: /custom_drive.mp4
break_video: /nap.mp4
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if scripts.Intro.Message != "Hi Sam!" || !scripts.Intro.AutoStart {
		t.Fatalf("unexpected intro: %+v", scripts.Intro)
	}
	if scripts.Intro.Layers != DefaultLayers {
		t.Fatalf("expected default intro layers, got %+v", scripts.Intro.Layers)
	}
	if scripts.For(KindOutro).AutoStart {
		t.Fatal("expected outro auto start disabled")
	}
	if scripts.Outro.Message != DefaultOutroMessage {
		t.Fatalf("expected default outro message, got %q", scripts.Outro.Message)
	}
	if scripts.Outro.Layers.Driving != "/custom_drive.mp4" || scripts.Outro.Layers.Idle != DefaultLayers.Idle {
		t.Fatalf("unexpected outro layers: %+v", scripts.Outro.Layers)
	}
	if scripts.BreakVideo != "/nap.mp4" {
		t.Fatalf("unexpected break video %q", scripts.BreakVideo)
	}
}

func TestLoadScripts(t *testing.T) {
	scripts, err := LoadScripts("")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if scripts.BreakVideo != DefaultBreakVideo {
		t.Fatalf("unexpected default break video %q", scripts.BreakVideo)
	}

	path := filepath.Join(t.TempDir(), "scripts.yaml")
	if err := os.WriteFile(path, []byte("intro: [not, a, map]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadScripts(path); err == nil {
		t.Fatal("expected malformed scripts to fail")
	}

	if _, err := LoadScripts(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
