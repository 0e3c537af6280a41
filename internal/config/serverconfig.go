package config

import (
	"fmt"

	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/pyramid"
	"github.com/pspoerri/rastertiles/internal/raster"
)

// ServerConfig is the process wiring the serving binary reads at
// startup: listen address, worker concurrency, and the set of layers
// (each backed by its own pyramid) to serve. It is process wiring, not
// a layer/TMS/style schema — layers are named pyramids, nothing more.
type ServerConfig struct {
	Addr           string                 `mapstructure:"addr"`
	Concurrency    int                    `mapstructure:"concurrency"`
	AllowedOrigins []string               `mapstructure:"allowed_origins"`
	Debug          bool                   `mapstructure:"debug"`
	Layers         map[string]LayerConfig `mapstructure:"layers"`
}

// LayerConfig describes one pyramid: its levels, each level's
// container layout, and where its nodata tile lives.
type LayerConfig struct {
	Levels []LevelConfig `mapstructure:"levels"`
}

type LevelConfig struct {
	ID               string  `mapstructure:"id"`
	Resolution       float64 `mapstructure:"resolution"`
	TileWidth        int     `mapstructure:"tile_width"`
	TileHeight       int     `mapstructure:"tile_height"`
	GridWidth        int     `mapstructure:"grid_width"`
	GridHeight       int     `mapstructure:"grid_height"`
	TilesPerContW    int     `mapstructure:"tiles_per_container_w"`
	TilesPerContH    int     `mapstructure:"tiles_per_container_h"`
	ContainerPathFmt string  `mapstructure:"container_path_format"` // fmt.Sprintf template, args cx, cy
	NodataPath       string  `mapstructure:"nodata_path"`
	Encoding         string  `mapstructure:"encoding"`
	MimeType         string  `mapstructure:"mime_type"`
	Channels         int     `mapstructure:"channels"`
	SampleBits       int     `mapstructure:"sample_bits"`
	SampleKind       string  `mapstructure:"sample_kind"` // "uint" or "float"
}

// BuildPyramids turns a loaded ServerConfig's layers into live
// pyramid.Pyramid instances, ready to be registered with a Handler.
func BuildPyramids(cfg ServerConfig) (map[string]*pyramid.Pyramid, error) {
	out := make(map[string]*pyramid.Pyramid, len(cfg.Layers))
	for name, layer := range cfg.Layers {
		levels := make([]pyramid.Level, 0, len(layer.Levels))
		for _, lc := range layer.Levels {
			kind := raster.UnsignedInt
			if lc.SampleKind == "float" {
				kind = raster.Float
			}
			pathFmt := lc.ContainerPathFmt
			levels = append(levels, pyramid.Level{
				Matrix: pyramid.TileMatrix{
					ID: lc.ID, Resolution: lc.Resolution,
					TileWidth: lc.TileWidth, TileHeight: lc.TileHeight,
					GridWidth: lc.GridWidth, GridHeight: lc.GridHeight,
				},
				TilesPerContW: lc.TilesPerContW,
				TilesPerContH: lc.TilesPerContH,
				ResolvePath: func(format string) pyramid.ContainerPathResolver {
					return func(cx, cy int) string { return fmt.Sprintf(format, cx, cy) }
				}(pathFmt),
				NodataPath: lc.NodataPath,
				Encoding:   lc.Encoding,
				Channels:   lc.Channels,
				SampleBits: lc.SampleBits,
				SampleKind: kind,
				MimeType:   lc.MimeType,
			})
		}
		if len(levels) == 0 {
			return nil, errs.Wrap(errs.Config, "config.BuildPyramids", "layer %q declares no levels", name)
		}
		out[name] = pyramid.New(levels)
	}
	return out, nil
}
