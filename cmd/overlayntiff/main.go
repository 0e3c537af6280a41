// Command overlayntiff composites N coregistered raster images, bottom
// to top, into one output image plus a companion validity mask, per a
// configuration file listing the output and input image/mask paths.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/pspoerri/rastertiles/internal/config"
	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/logging"
	"github.com/pspoerri/rastertiles/internal/merge"
	"github.com/pspoerri/rastertiles/internal/raster"
	"github.com/pspoerri/rastertiles/internal/rasterio"
)

func main() {
	fs := flag.NewFlagSet("overlayntiff", flag.ContinueOnError)
	flags, err := config.ParseOverlayFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}

	logger, err := logging.NewDevelopment(flags.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := run(flags, sugar.Debugf); err != nil {
		sugar.Errorf("%v", err)
		os.Exit(-1)
	}
}

func run(flags *config.OverlayFlags, debugf func(string, ...any)) error {
	start := time.Now()

	contents, err := config.ParseConfigFile(flags.ConfigFile)
	if err != nil {
		return err
	}
	if len(contents.Inputs) == 0 {
		return errs.Wrap(errs.Config, "overlayntiff.run", "configuration file lists no input images")
	}

	inputs := make([]raster.Node, 0, len(contents.Inputs))
	bar := progressbar.Default(int64(len(contents.Inputs)), "opening inputs")
	for _, entry := range contents.Inputs {
		img, err := rasterio.Open(entry.ImagePath)
		if err != nil {
			return err
		}
		if entry.HasMask {
			maskImg, err := rasterio.Open(entry.MaskPath)
			if err != nil {
				return err
			}
			if err := img.SetMask(maskImg); err != nil {
				return err
			}
		}
		debugf("opened input %s (%dx%d, %d channels)", entry.ImagePath, img.Geometry().Width, img.Geometry().Height, img.Geometry().Channels)
		inputs = append(inputs, img)
		bar.Add(1)
	}

	first := inputs[0].Geometry()
	photometric := raster.Gray
	if flags.Photometric == "rgb" {
		photometric = raster.RGB
	}

	merged, err := merge.New(inputs, merge.Config{
		Operator: flags.Operator, OutputChannels: flags.OutputChannels,
		Background: flags.Background, Transparent: flags.Transparent,
	})
	if err != nil {
		return err
	}

	writer, err := rasterio.NewWriter(rasterio.WriterSpec{
		Path: contents.Output.ImagePath,
		Width: first.Width, Height: first.Height, Channels: flags.OutputChannels,
		SampleKind: first.SampleKind, SampleBits: first.SampleBits, Photometric: photometric,
		Compression: flags.Compression,
	})
	if err != nil {
		return err
	}
	if err := writer.Write(merged); err != nil {
		return err
	}

	if contents.Output.HasMask {
		maskWriter, err := rasterio.NewWriter(rasterio.WriterSpec{
			Path: contents.Output.MaskPath,
			Width: first.Width, Height: first.Height, Channels: 1,
			SampleKind: raster.UnsignedInt, SampleBits: 8, Photometric: raster.Mask,
			Compression: "deflate", // mask output is always deflate, independent of -c
		})
		if err != nil {
			return err
		}
		if err := maskWriter.Write(merged.Mask()); err != nil {
			return err
		}
	}

	outInfo, statErr := os.Stat(contents.Output.ImagePath)
	var sizeStr string
	if statErr == nil {
		sizeStr = humanize.Bytes(uint64(outInfo.Size()))
	} else {
		sizeStr = "unknown size"
	}
	fmt.Printf("wrote %s (%s) from %d input(s) in %v\n", contents.Output.ImagePath, sizeStr, len(inputs), time.Since(start).Round(time.Millisecond))
	return nil
}
