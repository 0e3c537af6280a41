package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/merge"
)

func TestParseOverlayFlagsHappyPath(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	got, err := ParseOverlayFlags(fs, []string{
		"-f", "conf.txt", "-m", "ALPHATOP", "-c", "zip", "-s", "1", "-p", "gray",
		"-t", "255,255,255", "-b", "0",
	})
	if err != nil {
		t.Fatalf("ParseOverlayFlags: %v", err)
	}
	if got.Operator != merge.ALPHATOP || got.OutputChannels != 1 || got.Compression != "zip" {
		t.Fatalf("got = %+v", got)
	}
	if got.Transparent == nil || *got.Transparent != [3]byte{255, 255, 255} {
		t.Fatalf("Transparent = %v", got.Transparent)
	}
}

func TestParseOverlayFlagsTransparentRequiresAlphaTop(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := ParseOverlayFlags(fs, []string{
		"-f", "conf.txt", "-m", "TOP", "-c", "raw", "-s", "1", "-p", "gray",
		"-t", "255,255,255", "-b", "0",
	})
	if !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config error, got %v", err)
	}
}

func TestParseOverlayFlagsBackgroundRequired(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := ParseOverlayFlags(fs, []string{
		"-f", "conf.txt", "-m", "TOP", "-c", "raw", "-s", "1", "-p", "gray",
	})
	if !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config error for missing -b, got %v", err)
	}
}

func TestParseOverlayFlagsBackgroundArityMismatch(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := ParseOverlayFlags(fs, []string{
		"-f", "conf.txt", "-m", "TOP", "-c", "raw", "-s", "3", "-p", "rgb", "-b", "0,0",
	})
	if !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config error for -b arity mismatch, got %v", err)
	}
}

func TestParseConfigFileImageAndMask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.txt")
	content := "out.tif outmask.tif\nimg1.tif mask1.tif\nimg2.png\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ParseConfigFile(path)
	if err != nil {
		t.Fatalf("ParseConfigFile: %v", err)
	}
	if got.Output.ImagePath != "out.tif" || !got.Output.HasMask || got.Output.MaskPath != "outmask.tif" {
		t.Fatalf("Output = %+v", got.Output)
	}
	if len(got.Inputs) != 2 {
		t.Fatalf("len(Inputs) = %d, want 2", len(got.Inputs))
	}
	if !got.Inputs[0].HasMask || got.Inputs[0].MaskPath != "mask1.tif" {
		t.Fatalf("Inputs[0] = %+v", got.Inputs[0])
	}
	if got.Inputs[1].HasMask {
		t.Fatalf("Inputs[1] = %+v, want no mask", got.Inputs[1])
	}
}

func TestParseConfigFileRejectsThreeTokenLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.txt")
	content := "out.tif\nimg1.tif mask1.tif extra.tif\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := ParseConfigFile(path)
	if !errs.Is(err, errs.Config) {
		t.Fatalf("expected Config error for 3-token line, got %v", err)
	}
}

func TestParseConfigFileSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.txt")
	content := "out.tif\n\nimg1.tif\n\n\nimg2.tif\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ParseConfigFile(path)
	if err != nil {
		t.Fatalf("ParseConfigFile: %v", err)
	}
	if len(got.Inputs) != 2 {
		t.Fatalf("len(Inputs) = %d, want 2", len(got.Inputs))
	}
}
