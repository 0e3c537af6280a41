package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/merge"
)

// OverlayFlags is the parsed -f -m -c -s -p -t -b -d surface of the
// overlayntiff command line.
type OverlayFlags struct {
	ConfigFile     string
	Operator       merge.Operator
	Compression    string
	OutputChannels int
	Photometric    string
	Transparent    *[3]byte
	Background     []float64
	Debug          bool
}

// ParseOverlayFlags parses args (typically os.Args[1:]) into an
// OverlayFlags, applying the same validation order as the original
// command: merge method, config file, sample count, photometric and
// compression are checked first, then -t is rejected unless paired
// with ALPHATOP, then -b is required and its arity checked against -s.
func ParseOverlayFlags(fs *flag.FlagSet, args []string) (*OverlayFlags, error) {
	var (
		configFile  string
		operatorStr string
		compression string
		channels    int
		photometric string
		transparent string
		background  string
		debug       bool
	)

	fs.StringVar(&configFile, "f", "", "configuration file: list of output and source images and masks")
	fs.StringVar(&operatorStr, "m", "", "merge method: ALPHATOP, MULTIPLY, or TOP")
	fs.StringVar(&compression, "c", "", "output compression: raw, none, jpg, lzw, pkb, zip")
	fs.IntVar(&channels, "s", 0, "samples per pixel in the output image: 1, 2, 3, or 4")
	fs.StringVar(&photometric, "p", "", "photometric interpretation: gray or rgb")
	fs.StringVar(&transparent, "t", "", "transparent color, 3 comma-separated integers (ALPHATOP only)")
	fs.StringVar(&background, "b", "", "background value, one comma-separated integer per output sample")
	fs.BoolVar(&debug, "d", false, "enable debug-level logging")

	if err := fs.Parse(args); err != nil {
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "%v", err)
	}

	op, err := merge.ParseOperator(operatorStr)
	if err != nil {
		return nil, err
	}
	if configFile == "" {
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "configuration file is required (-f)")
	}
	switch channels {
	case 1, 2, 3, 4:
	default:
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "samples per pixel (-s) must be 1, 2, 3, or 4, got %d", channels)
	}
	if photometric != "gray" && photometric != "rgb" {
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "photometric (-p) must be gray or rgb, got %q", photometric)
	}
	switch compression {
	case "raw", "none", "jpg", "lzw", "pkb", "zip":
	default:
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "unknown compression (-c) %q", compression)
	}

	var transparentColor *[3]byte
	if transparent != "" {
		if op != merge.ALPHATOP {
			return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "-t is only legal with -m ALPHATOP")
		}
		c, err := parseByteTriplet(transparent)
		if err != nil {
			return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "-t: %v", err)
		}
		transparentColor = c
	}

	if background == "" {
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "background (-b) is required")
	}
	bg, err := parseFloatList(background)
	if err != nil {
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "-b: %v", err)
	}
	if len(bg) != channels {
		return nil, errs.Wrap(errs.Config, "config.ParseOverlayFlags", "-b has %d values, -s wants %d", len(bg), channels)
	}

	return &OverlayFlags{
		ConfigFile: configFile, Operator: op, Compression: compression,
		OutputChannels: channels, Photometric: photometric,
		Transparent: transparentColor, Background: bg, Debug: debug,
	}, nil
}

func parseByteTriplet(s string) (*[3]byte, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected 3 comma-separated integers, got %d", len(parts))
	}
	var out [3]byte
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return nil, fmt.Errorf("component %q must be an integer in [0,255]", p)
		}
		out[i] = byte(v)
	}
	return &out, nil
}

func parseFloatList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("component %q is not a number", p)
		}
		out[i] = v
	}
	return out, nil
}

// ConfigFileEntry is one parsed line of the -f configuration file: an
// image path, and optionally a companion mask path.
type ConfigFileEntry struct {
	ImagePath string
	MaskPath  string
	HasMask   bool
}

// ConfigFileContents is the parsed -f file: the output line followed by
// the input lines in bottom-to-top order.
type ConfigFileContents struct {
	Output ConfigFileEntry
	Inputs []ConfigFileEntry
}

// ParseConfigFile reads the -f configuration file. Each non-blank line
// is one or two whitespace-separated tokens: a path, and optionally a
// mask path. A line with 3 or more tokens is a configuration error
// (tightening the original tool's silent truncation, since a malformed
// line almost always signals an unescaped-space path rather than a
// legitimate third field).
func ParseConfigFile(path string) (*ConfigFileContents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Config, "config.ParseConfigFile", "%v", err)
	}
	defer f.Close()

	var entries []ConfigFileEntry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		switch len(tokens) {
		case 1:
			entries = append(entries, ConfigFileEntry{ImagePath: tokens[0]})
		case 2:
			entries = append(entries, ConfigFileEntry{ImagePath: tokens[0], MaskPath: tokens[1], HasMask: true})
		default:
			return nil, errs.Wrap(errs.Config, "config.ParseConfigFile", "line %d has %d tokens, want 1 or 2: %q", lineNo, len(tokens), line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.Io, "config.ParseConfigFile", "%v", err)
	}

	if len(entries) == 0 {
		return nil, errs.Wrap(errs.Config, "config.ParseConfigFile", "%s: no output image line", path)
	}

	return &ConfigFileContents{Output: entries[0], Inputs: entries[1:]}, nil
}
