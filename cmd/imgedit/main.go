// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/mlnoga/imgedit/internal/colorconv"
	"github.com/mlnoga/imgedit/internal/config"
	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/kernel"
	"github.com/mlnoga/imgedit/internal/logging"
	"github.com/mlnoga/imgedit/internal/ops"
	"github.com/mlnoga/imgedit/internal/ops/channels"
	"github.com/mlnoga/imgedit/internal/ops/geom"
	"github.com/mlnoga/imgedit/internal/ops/tone"
	"github.com/mlnoga/imgedit/internal/resample"
	"github.com/mlnoga/imgedit/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "out%d.png", "save output to `file`. %d is replaced by the input number; suffix selects png, jpeg or tiff")
var log = flag.String("log", "", "save log output to `file`, overrides the config file setting")
var conf = flag.String("config", "", "read settings from TOML `file`")
var threads = flag.Int("threads", 0, "number of worker threads, 0=config file setting or all cores")

var kern = flag.String("kernel", "cubic", "resampling kernel, one of nearest, bilinear, cubic or lanczos")
var width = flag.Int("width", 0, "target width in pixels for resize")
var height = flag.Int("height", 0, "target height in pixels for resize")
var cubicB = flag.Float64("b", 1.0/3, "Mitchell-Netravali B parameter for the cubic kernel")
var cubicC = flag.Float64("c", 1.0/3, "Mitchell-Netravali C parameter for the cubic kernel")
var taps = flag.Int("taps", resample.MaxLanczosTaps, "support radius of the lanczos kernel, 1 or 2")

var ignore = flag.Float64("ignore", 0, "fraction of histogram bucket counts to clip at either end for contrast stretching, in [0,0.5]")
var gamma = flag.Float64("gamma", 1, "apply output gamma, 1: keep linear data")
var keep = flag.String("keep", "", "channels to keep for mask, e.g. r, gb or hl")
var turns = flag.Int("turns", 1, "counter-clockwise quarter turns for rotate")
var channel = flag.String("channel", "gray", "channel index for hist, or gray for luma")
var luma = flag.String("luma", "rec601", "luma weights for gray conversion, one of rec601, rec709 or lstar")

var chroot = flag.String("chroot", "", "serve: chroot to this directory before accepting requests")
var setuid = flag.Int("setuid", -1, "serve: switch to this user id before accepting requests")

func main() {
	logWriter := logging.Writer()
	debug.SetGCPercent(10)
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `imgedit Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (resize|contrast|gamma|hist|mask|rotate|flip|run|serve|legal|version) (img0.png ... imgn.png)

Commands:
  resize   Resample images to -width x -height with the given -kernel
  contrast Stretch contrast per channel, ignoring the -ignore fraction of bucket counts
  gamma    Apply a -gamma curve
  hist     Write a histogram of -channel as CSV, named after -out
  mask     Zero all channels not named in -keep
  rotate   Rotate images by -turns quarter turns counter-clockwise
  flip     Mirror images horizontally
  run      Apply the JSON operator sequence from the first argument
  serve    Serve the REST API
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadFile(*conf)
	if err != nil {
		logging.LogFatalf("Error loading config: %s\n", err.Error())
	}
	if *threads > 0 {
		cfg.Processing.MaxThreads = *threads
	}
	if *log != "" {
		cfg.Logging.Logfile = *log
	}
	if cfg.Logging.Logfile != "" {
		l := cfg.Logging
		if err := logging.LogAlsoToFile(l.Logfile, l.MaxSize, l.MaxAge, l.MaxBackups); err != nil {
			logging.LogFatalf("Unable to open logfile '%s'\n", l.Logfile)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logging.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logging.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	c := ops.NewContext(logWriter)
	c.MaxThreads = cfg.Threads()
	c.ImageMemoryMB = int(float64(c.MemoryMB) * cfg.Processing.MemoryFraction)

	switch args[0] {
	case "serve":
		if *chroot != "" {
			cfg.Server.Chroot = *chroot
		}
		if *setuid >= 0 {
			cfg.Server.Setuid = *setuid
		}
		err = rest.Serve(cfg, logWriter)

	case "run":
		err = cmdRun(args[1:], c)

	case "resize", "contrast", "gamma", "hist", "mask", "rotate", "flip":
		var op ops.Operator
		op, err = operatorFromFlags(args[0])
		if err == nil {
			err = applyToFiles(op, args[0] != "hist", args[1:], c)
		}

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n%s\n", version, grid.CPUDescription())

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed := time.Since(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			logging.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			logging.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		logging.LogFatalf("Error: %s\n", err.Error())
	}
	logging.LogSync()
}

// Builds the operator for a single-step command from the command line flags
func operatorFromFlags(cmd string) (ops.Operator, error) {
	switch cmd {
	case "resize":
		k, err := kernel.ParseKind(*kern)
		if err != nil {
			return nil, err
		}
		req := resample.NewRequest(*width, *height, k)
		req.B, req.C, req.Taps = *cubicB, *cubicC, *taps
		return geom.NewOpResample(req), nil

	case "contrast":
		return tone.NewOpContrast(*ignore), nil

	case "gamma":
		return tone.NewOpGamma(*gamma), nil

	case "hist":
		ch, err := tone.ParseChannel(*channel)
		if err != nil {
			return nil, err
		}
		op := tone.NewOpHistogram(strings.TrimSuffix(*out, filepath.Ext(*out))+".csv", ch)
		if op.Luma, err = colorconv.ParseLumaMode(*luma); err != nil {
			return nil, err
		}
		return op, nil

	case "mask":
		return channels.NewOpChannelMask(*keep), nil

	case "rotate":
		return geom.NewOpRotate(*turns), nil

	case "flip":
		return geom.NewOpFlipDefault(), nil
	}
	return nil, fmt.Errorf("unknown command '%s'", cmd)
}

// Loads each file, applies the operator and optionally saves the result.
// Output names need a %d placeholder when there is more than one input
func applyToFiles(op ops.Operator, save bool, fileNames []string, c *ops.Context) error {
	if len(fileNames) == 0 {
		return fmt.Errorf("no input files given")
	}
	if len(fileNames) > 1 && !strings.Contains(*out, "%d") {
		return fmt.Errorf("output %s needs a %%d placeholder for %d input files", *out, len(fileNames))
	}
	for i, fileName := range fileNames {
		step := op
		if h, ok := op.(*tone.OpHistogram); ok && strings.Contains(h.FileName, "%d") {
			perFile := *h
			perFile.FileName = fmt.Sprintf(h.FileName, i)
			step = &perFile
		}
		seq := ops.NewOpSequence(ops.NewOpLoad(i, fileName), step)
		if save {
			seq.Append(ops.NewOpSave(*out))
		}
		if _, err := seq.Apply(nil, c); err != nil {
			return err
		}
	}
	return nil
}

// Applies an operator, usually a sequence starting with a load step, read from a JSON file
func cmdRun(args []string, c *ops.Context) error {
	if len(args) != 1 {
		return fmt.Errorf("run needs exactly one JSON file, got %d arguments", len(args))
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	op, err := ops.NewOperatorFromJSON(raw)
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[0], err)
	}
	m, err := json.MarshalIndent(op, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "Running these operators:\n%s\n", string(m))
	_, err = op.Apply(nil, c)
	return err
}
