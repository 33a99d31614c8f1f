package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"demforge/internal/batch"
	"demforge/internal/config"
	"demforge/internal/vegetation"
)

func main() {
	defaults := config.Default()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to a JSON or YAML configuration file")

	scaleFactor := flag.Int("scale-factor", defaults.Detail.ScaleFactor, "upscaling factor for detail enhancement (1-10)")
	intensity := flag.Float64("detail-intensity", defaults.Detail.Intensity, "detail noise amplitude in meters (0-100)")
	seed := flag.Int("noise-seed", defaults.Detail.Seed, "seed for the detail noise")
	source := flag.String("noise-source", defaults.Detail.Source, "noise backend: value, perlin or simplex")
	disableDetail := flag.Bool("disable-detail", false, "skip detail enhancement, convert at source resolution")

	veg := flag.Bool("vegetation", false, "additionally emit a vegetation density map")
	biome := flag.String("biome", defaults.Vegetation.Biome, "biome for vegetation density: "+strings.Join(vegetation.Names(), ", "))

	bits16 := flag.Bool("16bit", false, "write 16-bit grayscale output")
	alphaNoData := flag.Bool("alpha-nodata", false, "mark NoData pixels with zero alpha")
	raw16 := flag.Bool("raw16", false, "additionally write a raw little-endian 16-bit heightmap")
	useZstd := flag.Bool("zstd", false, "zstd-compress the raw heightmap")
	curve := flag.String("curve", defaults.Output.Curve, "normalization curve: linear or log")
	gamma := flag.Float64("gamma", defaults.Output.Gamma, "gamma correction exponent (0.1-10)")
	minHeight := flag.Int("min-height", defaults.Output.MinHeight, "normalization floor in meters, -1 uses the batch minimum")
	maxHeight := flag.Int("max-height", defaults.Output.MaxHeight, "normalization ceiling in meters, -1 uses the batch maximum")
	metadata := flag.String("metadata", defaults.Output.Metadata, "sidecar format: none, json or txt")
	outDir := flag.String("output-dir", "", "directory for outputs, default current directory")

	threads := flag.Int("threads", defaults.Batch.Threads, "number of files converted in parallel (1-16)")
	rowWorkers := flag.Int("row-workers", defaults.Batch.RowWorkers, "row parallelism inside each file, 0 picks from CPU count")
	quiet := flag.Bool("quiet", false, "suppress per-file progress output")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <tile.hgt | filelist.txt>\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Converts SRTM .hgt elevation tiles into displacement-map PNGs.")
		fmt.Fprintln(flag.CommandLine.Output(), "A non-.hgt argument is read as a file list, one tile path per line.")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Flags given explicitly win over the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scale-factor":
			cfg.Detail.ScaleFactor = *scaleFactor
		case "detail-intensity":
			cfg.Detail.Intensity = *intensity
		case "noise-seed":
			cfg.Detail.Seed = *seed
		case "noise-source":
			cfg.Detail.Source = *source
		case "disable-detail":
			cfg.Detail.Enabled = !*disableDetail
		case "vegetation":
			cfg.Vegetation.Enabled = *veg
		case "biome":
			cfg.Vegetation.Biome = *biome
		case "16bit":
			cfg.Output.Bits16 = *bits16
		case "alpha-nodata":
			cfg.Output.AlphaNoData = *alphaNoData
		case "raw16":
			cfg.Output.Raw16 = *raw16
		case "zstd":
			cfg.Output.Zstd = *useZstd
		case "curve":
			cfg.Output.Curve = *curve
		case "gamma":
			cfg.Output.Gamma = *gamma
		case "min-height":
			cfg.Output.MinHeight = *minHeight
		case "max-height":
			cfg.Output.MaxHeight = *maxHeight
		case "metadata":
			cfg.Output.Metadata = *metadata
		case "output-dir":
			cfg.Output.Dir = *outDir
		case "threads":
			cfg.Batch.Threads = *threads
		case "row-workers":
			cfg.Batch.RowWorkers = *rowWorkers
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid options: %v", err)
	}

	inputs, err := resolveInputs(flag.Arg(0))
	if err != nil {
		log.Fatalf("resolve inputs: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	bc, err := batch.Preflight(inputs)
	if err != nil {
		log.Fatalf("pre-scan: %v", err)
	}
	if !*quiet {
		log.Printf("scanned %d files, elevation range %d-%dm", len(bc.Files), bc.GlobalMin, bc.GlobalMax)
	}

	sched, err := batch.NewScheduler(cfg, bc, *quiet)
	if err != nil {
		log.Fatalf("configure batch: %v", err)
	}
	stats, err := sched.Run(ctx, bc)
	if err != nil {
		log.Fatalf("conversion failed after %d of %d files: %v", stats.Completed, len(bc.Files), err)
	}
	if !*quiet {
		log.Printf("converted %d files in %s (%d NoData samples normalized)",
			stats.Completed, time.Since(start).Round(time.Millisecond), stats.NoDataTotal)
	}
}

// resolveInputs interprets the positional argument: an .hgt path is a
// single-tile batch, anything else is a file list with one path per line.
func resolveInputs(arg string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(arg), ".hgt") {
		return []string{arg}, nil
	}

	f, err := os.Open(arg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read file list %s: %w", arg, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("file list %s names no inputs", arg)
	}
	return paths, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}

		// Ensure the process terminates if a worker wedges during shutdown.
		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
