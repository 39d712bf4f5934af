// Package statelapse parses pipeline command flags and runs the full
// reconstruction: segment index, event merge, state replay, frame rendering,
// and optional run statistics.
package statelapse

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/statelapse/internal/eventlog"
	"github.com/louisbranch/statelapse/internal/frames"
	"github.com/louisbranch/statelapse/internal/lifecycle"
	entrypoint "github.com/louisbranch/statelapse/internal/platform/cmd"
	"github.com/louisbranch/statelapse/internal/projection"
	"github.com/louisbranch/statelapse/internal/render"
	"github.com/louisbranch/statelapse/internal/segment"
	"github.com/louisbranch/statelapse/internal/stats"
	statssqlite "github.com/louisbranch/statelapse/internal/stats/sqlite"
)

// Config holds statelapse command configuration.
type Config struct {
	SegmentsDir string `env:"STATELAPSE_SEGMENTS_DIR"`
	EventsDir   string `env:"STATELAPSE_EVENTS_DIR"`
	FramesDir   string `env:"STATELAPSE_FRAMES_DIR"`
	OutputSize  int    `env:"STATELAPSE_OUTPUT_SIZE" envDefault:"1000"`
	StatsDB     string `env:"STATELAPSE_STATS_DB"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.SegmentsDir, "segments", cfg.SegmentsDir, "Directory of gzipped segment descriptor files")
	fs.StringVar(&cfg.EventsDir, "events", cfg.EventsDir, "Directory of gzipped time-sorted event files")
	fs.StringVar(&cfg.FramesDir, "frames", cfg.FramesDir, "Output directory for rendered PNG frames")
	fs.IntVar(&cfg.OutputSize, "size", cfg.OutputSize, "Frame width in pixels")
	fs.StringVar(&cfg.StatsDB, "stats-db", cfg.StatsDB, "Optional SQLite path for run statistics")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.SegmentsDir) == "" {
		return Config{}, errors.New("segments is required")
	}
	if strings.TrimSpace(cfg.EventsDir) == "" {
		return Config{}, errors.New("events is required")
	}
	if strings.TrimSpace(cfg.FramesDir) == "" {
		return Config{}, errors.New("frames is required")
	}
	if cfg.OutputSize <= 0 {
		return Config{}, errors.New("size must be greater than zero")
	}

	return cfg, nil
}

// Run executes the pipeline using the provided Config.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}

	descriptors, err := segment.ReadDir(cfg.SegmentsDir)
	if err != nil {
		return fmt.Errorf("read segments: %w", err)
	}
	index := segment.BuildIndex(descriptors)
	log.Printf("read %d segments with %d total objects", index.Len(), index.Total())

	store := lifecycle.NewStore(index)
	renderer, err := render.NewRenderer(store, cfg.OutputSize)
	if err != nil {
		return err
	}
	writer, err := frames.NewWriter(cfg.FramesDir)
	if err != nil {
		return err
	}

	files, err := eventlog.OpenDir(cfg.EventsDir)
	if err != nil {
		return fmt.Errorf("open events: %w", err)
	}
	defer closeSources(files)
	sources := make([]eventlog.Source, len(files))
	for i, f := range files {
		sources[i] = f
	}
	merger, err := eventlog.NewMerger(sources...)
	if err != nil {
		return fmt.Errorf("merge events: %w", err)
	}

	processor := &projection.Processor{
		Store:   store,
		Batches: eventlog.NewBatches(merger),
		Sink:    &frameEmitter{renderer: renderer, writer: writer},
	}

	var statsStore *statssqlite.Store
	var tracker *stats.TouchTracker
	var runID int64
	if strings.TrimSpace(cfg.StatsDB) != "" {
		statsStore, err = statssqlite.Open(cfg.StatsDB)
		if err != nil {
			return fmt.Errorf("open stats store: %w", err)
		}
		defer statsStore.Close()
		runID, err = statsStore.StartRun(ctx, time.Now().UTC(), index.Len(), index.Total(), cfg.OutputSize)
		if err != nil {
			return fmt.Errorf("start run: %w", err)
		}
		tracker = stats.NewTouchTracker()
		processor.Recorder = &batchRecorder{store: statsStore, runID: runID}
		processor.Touched = tracker
	}

	rendered, err := processor.Process(ctx)
	if err != nil {
		return err
	}

	if statsStore != nil {
		touched := int64(tracker.Estimate())
		if err := statsStore.FinishRun(ctx, runID, time.Now().UTC(), rendered, touched); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		log.Printf("estimated %d distinct objects touched", touched)
	}

	_, err = fmt.Fprintf(out, "rendered %d frame(s) into %s\n", rendered, cfg.FramesDir)
	return err
}

// frameEmitter renders each summary and writes it as a numbered PNG.
type frameEmitter struct {
	renderer *render.Renderer
	writer   *frames.Writer
}

func (e *frameEmitter) EmitFrame(ctx context.Context, sum projection.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.writer.Write(sum.Index, e.renderer.Frame(sum))
}

// batchRecorder persists each summary as a run batch row.
type batchRecorder struct {
	store *statssqlite.Store
	runID int64
}

func (r *batchRecorder) RecordBatch(ctx context.Context, sum projection.Summary) error {
	return r.store.RecordBatch(ctx, stats.Batch{
		RunID:        r.runID,
		Index:        sum.Index,
		Bucket:       sum.Bucket,
		TotalActions: sum.TotalActions,
		Rate:         sum.Rate,
		Counts:       sum.Counts,
	})
}

func closeSources(sources []*eventlog.FileSource) {
	for _, src := range sources {
		if err := src.Close(); err != nil {
			log.Printf("close event source: %v", err)
		}
	}
}
