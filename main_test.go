package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hotelimages/config"
	"hotelimages/manifest"
	"hotelimages/optimizer"
)

func TestSignedBytes(t *testing.T) {
	if got := signedBytes(2048); got != "+2.0 KB" {
		t.Errorf("signedBytes(2048) = %q", got)
	}
	if got := signedBytes(-512); got != "-512 B" {
		t.Errorf("signedBytes(-512) = %q", got)
	}
}

func TestHandleLookupCommand(t *testing.T) {
	cfg := config.Default()
	cfg.PublicRoot = t.TempDir()

	m := manifest.Manifest{"rooms/a.jpg": {Original: "/images/source/rooms/a.jpg", Webp: "/images/optimized/webp/rooms/a.webp"}}
	if err := manifest.Write(cfg.ManifestFile(), m); err != nil {
		t.Fatal(err)
	}

	if code := handleLookupCommand(map[string]string{"key": "rooms/a.jpg"}, cfg); code != exitOK {
		t.Errorf("lookup of present key exited %d", code)
	}
	if code := handleLookupCommand(map[string]string{"key": "rooms/missing.jpg"}, cfg); code != exitOK {
		t.Errorf("lookup of absent key should fall back, exited %d", code)
	}
	if code := handleLookupCommand(map[string]string{}, cfg); code != exitFatal {
		t.Errorf("lookup without key exited %d, want %d", code, exitFatal)
	}
	if code := handleLookupCommand(map[string]string{"list": "true"}, cfg); code != exitOK {
		t.Errorf("lookup --list exited %d", code)
	}
}

func TestPrintManifestKeys(t *testing.T) {
	m := manifest.Manifest{
		"rooms/b.jpg": {},
		"logos/l.png": {},
		"rooms/a.jpg": {},
	}
	var out bytes.Buffer
	printManifestKeys(&out, m)

	want := "logos/l.png\nrooms/a.jpg\nrooms/b.jpg\n3 entries\n"
	if out.String() != want {
		t.Errorf("printManifestKeys wrote %q, want %q", out.String(), want)
	}
}

func TestOptimizeSessionExitCodes(t *testing.T) {
	clean := &optimizer.Report{Processed: 3}
	partial := &optimizer.Report{Processed: 3, Failed: 1}

	t.Run("clean run", func(t *testing.T) {
		s := &optimizeSession{run: func(context.Context) (*optimizer.Report, error) { return clean, nil }}
		if err := s.runOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
		if code := s.exitCode(); code != exitOK {
			t.Errorf("exitCode = %d, want %d", code, exitOK)
		}
	})

	t.Run("failures", func(t *testing.T) {
		var recorded []*optimizer.Report
		s := &optimizeSession{
			run:    func(context.Context) (*optimizer.Report, error) { return partial, nil },
			record: func(r *optimizer.Report) { recorded = append(recorded, r) },
		}
		if err := s.runOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
		if code := s.exitCode(); code != exitPartial {
			t.Errorf("exitCode = %d, want %d", code, exitPartial)
		}
		if len(recorded) != 1 || recorded[0] != partial {
			t.Errorf("Finished run should be recorded once, got %v", recorded)
		}
	})

	t.Run("watch run interrupted after a clean run", func(t *testing.T) {
		calls := 0
		var recorded int
		s := &optimizeSession{
			run: func(ctx context.Context) (*optimizer.Report, error) {
				calls++
				if calls == 1 {
					return clean, nil
				}
				return nil, ctx.Err()
			},
			record: func(*optimizer.Report) { recorded++ },
		}
		if err := s.runOnce(context.Background()); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.runOnce(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
		if code := s.exitCode(); code != exitFatal {
			t.Errorf("exitCode = %d, want %d", code, exitFatal)
		}
		if recorded != 1 {
			t.Errorf("Interrupted run should not be recorded, got %d records", recorded)
		}
	})

	t.Run("failed rerun without cancellation keeps last report", func(t *testing.T) {
		calls := 0
		s := &optimizeSession{run: func(context.Context) (*optimizer.Report, error) {
			calls++
			if calls == 1 {
				return partial, nil
			}
			return nil, errors.New("disk full")
		}}
		_ = s.runOnce(context.Background())
		if err := s.runOnce(context.Background()); err == nil {
			t.Fatal("Expected error from second run")
		}
		if code := s.exitCode(); code != exitPartial {
			t.Errorf("exitCode = %d, want %d", code, exitPartial)
		}
	})
}

func TestHandleImportCommandExitCodes(t *testing.T) {
	archive := t.TempDir()
	if err := os.WriteFile(filepath.Join(archive, "a.jpg"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	mappingFile := filepath.Join(t.TempDir(), "map.yaml")
	doc := "entries:\n  - from: a.jpg\n    to: rooms/a.jpg\n  - from: gone.jpg\n    to: rooms/b.jpg\n"
	if err := os.WriteFile(mappingFile, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Import.SourceRoot = archive
	cfg.Import.DestRoot = filepath.Join(t.TempDir(), "source")

	code := handleImportCommand(context.Background(), map[string]string{"mapping": mappingFile}, cfg)
	if code != exitPartial {
		t.Errorf("Import with one missing source exited %d, want %d", code, exitPartial)
	}
	if _, err := os.Stat(filepath.Join(cfg.Import.DestRoot, "rooms", "a.jpg")); err != nil {
		t.Errorf("Present source should be copied: %v", err)
	}

	code = handleImportCommand(context.Background(), map[string]string{"mapping": filepath.Join(archive, "nope.yaml")}, cfg)
	if code != exitFatal {
		t.Errorf("Unreadable mapping exited %d, want %d", code, exitFatal)
	}
}

func TestHandlePlaceholdersCommand(t *testing.T) {
	cfg := config.Default()
	cfg.PublicRoot = t.TempDir()
	cfg.Placeholders = cfg.Placeholders[:2]

	if code := handlePlaceholdersCommand(cfg); code != exitOK {
		t.Fatalf("placeholders exited %d", code)
	}
	for _, p := range cfg.Placeholders {
		if _, err := os.Stat(filepath.Join(cfg.SourcePath(), filepath.FromSlash(p.Name))); err != nil {
			t.Errorf("Placeholder %s not written: %v", p.Name, err)
		}
	}
}
