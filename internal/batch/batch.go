// Package batch drives whole conversion runs: a sequential pre-pass that
// establishes the batch-wide elevation range, then waves of file workers
// that load, enhance and encode independently.
package batch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"demforge/internal/config"
	"demforge/internal/dem"
	"demforge/internal/encode"
	"demforge/internal/meta"
	"demforge/internal/noise"
	"demforge/internal/terrain"
	"demforge/internal/vegetation"
)

// Status tracks a file through the pipeline. Only the worker that owns the
// entry writes it; readers wait for the wave to join.
type Status int

const (
	StatusQueued Status = iota
	StatusLoading
	StatusProcessing
	StatusWriting
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusLoading:
		return "loading"
	case StatusProcessing:
		return "processing"
	case StatusWriting:
		return "writing"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// FileEntry is one input file's slot in the batch.
type FileEntry struct {
	Path string
	Res  dem.Resolution

	MinElev int
	MaxElev int
	NoData  int

	Status Status
	Err    error
}

// Context is the immutable outcome of the pre-pass: every entry's own range
// plus the range across the whole batch, which the encoder normalizes
// against so tiles share one elevation-to-value mapping.
type Context struct {
	Files     []*FileEntry
	GlobalMin int
	GlobalMax int
}

// Preflight reads every input once, sequentially, to establish per-file and
// batch-wide elevation ranges. A file that cannot be read fails the whole
// pre-pass; nothing has been written yet at that point.
func Preflight(paths []string) (*Context, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	bc := &Context{Files: make([]*FileEntry, 0, len(paths))}
	haveRange := false
	for _, p := range paths {
		g, err := dem.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
		entry := &FileEntry{
			Path:    p,
			Res:     g.Res,
			MinElev: int(g.MinElev),
			MaxElev: int(g.MaxElev),
			NoData:  g.NoDataCount,
		}
		bc.Files = append(bc.Files, entry)

		if g.MinElev == 0 && g.MaxElev == 0 && g.NoDataCount == g.Width()*g.Height() {
			continue // no valid samples, nothing to widen the range with
		}
		if !haveRange {
			bc.GlobalMin, bc.GlobalMax = entry.MinElev, entry.MaxElev
			haveRange = true
			continue
		}
		if entry.MinElev < bc.GlobalMin {
			bc.GlobalMin = entry.MinElev
		}
		if entry.MaxElev > bc.GlobalMax {
			bc.GlobalMax = entry.MaxElev
		}
	}
	return bc, nil
}

// Stats accumulates batch totals. Workers update it under the mutex.
type Stats struct {
	mu sync.Mutex

	Completed   int
	Failed      int
	NoDataTotal int
}

func (st *Stats) fileDone(noData int) {
	st.mu.Lock()
	st.Completed++
	st.NoDataTotal += noData
	st.mu.Unlock()
}

func (st *Stats) fileFailed() {
	st.mu.Lock()
	st.Failed++
	st.mu.Unlock()
}

// Scheduler runs a batch to completion.
type Scheduler struct {
	cfg   *config.Config
	quiet bool

	enc        *encode.Encoder
	effMin     int
	effMax     int
	metaFormat meta.Format
	field      noise.Field
	biome      vegetation.Biome
}

// NewScheduler resolves the run's collaborators from configuration. The
// effective elevation range is the configured override where given, the
// batch range otherwise.
func NewScheduler(cfg *config.Config, bc *Context, quiet bool) (*Scheduler, error) {
	curve, err := encode.ParseCurve(cfg.Output.Curve)
	if err != nil {
		return nil, err
	}
	metaFormat, err := meta.ParseFormat(cfg.Output.Metadata)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:        cfg,
		quiet:      quiet,
		metaFormat: metaFormat,
	}

	effMin, effMax := bc.GlobalMin, bc.GlobalMax
	if cfg.Output.MinHeight != -1 {
		effMin = cfg.Output.MinHeight
	}
	if cfg.Output.MaxHeight != -1 {
		effMax = cfg.Output.MaxHeight
	}
	s.effMin, s.effMax = effMin, effMax
	s.enc = encode.New(encode.Options{
		Bits16:      cfg.Output.Bits16,
		AlphaNoData: cfg.Output.AlphaNoData,
		Raw16:       cfg.Output.Raw16,
		Zstd:        cfg.Output.Zstd,
		Curve:       curve,
		Gamma:       cfg.Output.Gamma,
	}, effMin, effMax)

	if cfg.Detail.Enabled {
		s.field, err = noise.NewField(cfg.Detail.Source)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Vegetation.Enabled {
		s.biome, err = vegetation.Lookup(cfg.Vegetation.Biome)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run converts every file in the batch. Workers are launched in waves of
// min(threads, files) and joined before the next wave starts; an error fails
// its wave and stops further waves, leaving already-written outputs in
// place. A single file, or a single thread, runs inline.
func (s *Scheduler) Run(ctx context.Context, bc *Context) (*Stats, error) {
	stats := &Stats{}

	workers := s.cfg.Batch.Threads
	if workers > len(bc.Files) {
		workers = len(bc.Files)
	}

	if workers <= 1 {
		for _, entry := range bc.Files {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := s.processFile(entry, stats); err != nil {
				return stats, err
			}
		}
		return stats, nil
	}

	for start := 0; start < len(bc.Files); start += workers {
		end := start + workers
		if end > len(bc.Files) {
			end = len(bc.Files)
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		eg, _ := errgroup.WithContext(ctx)
		for _, entry := range bc.Files[start:end] {
			entry := entry
			eg.Go(func() error {
				return s.processFile(entry, stats)
			})
		}
		if err := eg.Wait(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *Scheduler) processFile(entry *FileEntry, stats *Stats) error {
	fail := func(err error) error {
		entry.Status = StatusFailed
		entry.Err = err
		stats.fileFailed()
		return err
	}

	entry.Status = StatusLoading
	g, err := dem.ReadFile(entry.Path)
	if err != nil {
		return fail(fmt.Errorf("load %s: %w", entry.Path, err))
	}

	entry.Status = StatusProcessing

	// Vegetation reads terrain shape from the source grid, before detail
	// noise perturbs slopes and aspects.
	var density []uint8
	if s.cfg.Vegetation.Enabled {
		density, err = vegetation.DensityMap(g, s.biome, s.cfg.Batch.RowWorkers)
		if err != nil {
			return fail(err)
		}
	}

	elev := g.Data
	width, height := g.Width(), g.Height()
	scale := 1
	if s.cfg.Detail.Enabled {
		enhanced, err := terrain.Enhance(g, terrain.Params{
			ScaleFactor: s.cfg.Detail.ScaleFactor,
			Intensity:   s.cfg.Detail.Intensity,
			Seed:        int32(s.cfg.Detail.Seed),
			Field:       s.field,
			Workers:     s.cfg.Batch.RowWorkers,
			Quiet:       s.quiet,
		})
		if err != nil {
			return fail(fmt.Errorf("enhance %s: %w", entry.Path, err))
		}
		elev = enhanced.Data
		width, height = enhanced.Width, enhanced.Height
		scale = s.cfg.Detail.ScaleFactor
	}

	entry.Status = StatusWriting

	outPNG := s.outputPath(entry.Path, ".png")
	if err := s.enc.WriteHeightmap(outPNG, elev, width, height); err != nil {
		return fail(err)
	}
	if s.cfg.Output.Raw16 {
		ext := ".r16"
		if s.cfg.Output.Zstd {
			ext = ".r16.zst"
		}
		if err := s.enc.WriteRaw16(s.outputPath(entry.Path, ext), elev, width, height); err != nil {
			return fail(err)
		}
	}
	if density != nil {
		if err := s.enc.WriteDensity(s.outputPath(entry.Path, "_veg.png"), density, g.Width(), g.Height()); err != nil {
			return fail(err)
		}
	}

	pitch := g.Res.PixelPitch()
	if s.cfg.Detail.Enabled {
		pitch /= float64(scale)
	}
	sidecar := meta.Sidecar{
		SourceFile:       entry.Path,
		OutputFile:       outPNG,
		Width:            width,
		Height:           height,
		EffectiveMin:     s.effMin,
		EffectiveMax:     s.effMax,
		OriginalMin:      entry.MinElev,
		OriginalMax:      entry.MaxElev,
		PixelPitchMeters: pitch,
		ScaleFactor:      scale,
	}
	if b, ok := dem.GeoBounds(entry.Path); ok {
		sidecar.Bounds = &b
	}
	if err := meta.Write(s.metaFormat, sidecar); err != nil {
		return fail(err)
	}

	entry.Status = StatusDone
	stats.fileDone(entry.NoData)
	if !s.quiet {
		log.Printf("%s: %dx%d written to %s", filepath.Base(entry.Path), width, height, outPNG)
	}
	return nil
}

// outputPath maps an input path to an output sibling in the configured
// directory, swapping the .hgt extension for the given suffix.
func (s *Scheduler) outputPath(input, suffix string) string {
	base := filepath.Base(input)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".hgt") {
		base = base[:len(base)-len(ext)]
	}
	return filepath.Join(s.cfg.Output.Dir, base+suffix)
}
