package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"shogirule/pkg/kifu"
)

type tally struct {
	mu           sync.Mutex
	outcomes     map[kifu.Outcome]int
	inconsistent int
}

func (t *tally) add(res kifu.ReplayResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes[res.Outcome]++
	if !res.Consistent {
		t.inconsistent++
	}
}

func main() {
	startTime := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	configPath := flag.String("config", "", "config file (default: config.json found upwards)")
	inputDir := flag.String("input", "test_kif", "input directory for KIF files")
	outputPath := flag.String("output", "replay.parquet", "output parquet file")
	maxPly := flag.Int("max-ply", 0, "maximum plies to replay per game (0=config or all)")
	workers := flag.Int("workers", 0, "number of parallel workers (0=config or NumCPU)")
	resume := flag.Bool("resume", false, "resume from existing output parquet")
	verbose := flag.Bool("v", false, "print a line for every game that disagrees with its record")
	flag.Parse()

	cfg, err := kifu.ResolveConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *maxPly > 0 {
		cfg.MaxPly = *maxPly
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	files, err := kifu.CollectKIF(*inputDir)
	if err != nil {
		fatal(err)
	}
	if len(files) == 0 {
		fatal(fmt.Errorf("no .kif files found in %s", *inputDir))
	}
	if cfg.Workers > len(files) {
		cfg.Workers = len(files)
	}
	if dir := filepath.Dir(*outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatal(err)
		}
	}

	outputTarget := *outputPath
	processedIDs := make(map[string]struct{})
	resumeFromExisting := false
	if *resume {
		if _, err := os.Stat(*outputPath); err == nil {
			resumeFromExisting = true
			outputTarget = *outputPath + ".tmp"
		}
	}

	replayer := cfg.Replayer()
	jobs := make(chan string)
	results := make(chan kifu.GameRecord, cfg.Workers)
	writeErr := make(chan error, 1)
	done := make(chan struct{})
	t := &tally{outcomes: make(map[kifu.Outcome]int)}
	var processed, failed int64
	var writeWg sync.WaitGroup
	writeWg.Add(1)
	go func() {
		defer writeWg.Done()
		writeErr <- kifu.WriteParquet(outputTarget, results, cfg.ParquetParallel())
	}()
	if resumeFromExisting {
		existing, err := kifu.ReadParquet(*outputPath, cfg.ParquetParallel())
		if err != nil {
			fatal(err)
		}
		for _, record := range existing {
			processedIDs[record.GameID] = struct{}{}
			results <- record
		}
		fmt.Fprintf(os.Stderr, "resuming after %d games\n", len(existing))
	}
	go func(total int) {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				fmt.Fprintf(os.Stderr, "\rprogress: %d/%d (100%%)\n", total, total)
				return
			case <-ticker.C:
				count := int(atomic.LoadInt64(&processed))
				percent := 0
				if total > 0 {
					percent = int(float64(count) / float64(total) * 100)
				}
				fmt.Fprintf(os.Stderr, "\rprogress: %d/%d (%d%%)", count, total, percent)
			}
		}
	}(len(files))

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopCh
		cancel()
	}()
	defer signal.Stop(stopCh)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if ctx.Err() != nil {
					return
				}
				record, res, err := replayFile(ctx, replayer, *inputDir, path)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					fmt.Fprintf(os.Stderr, "\nfailed to replay %s: %v\n", path, err)
					atomic.AddInt64(&failed, 1)
					atomic.AddInt64(&processed, 1)
					continue
				}
				t.add(res)
				if *verbose && !res.Consistent {
					fmt.Fprintf(os.Stderr, "\n%s: %s\n", record.GameID, res.Summary())
				}
				results <- record
				atomic.AddInt64(&processed, 1)
			}
		}()
	}

enqueue:
	for _, path := range files {
		if _, ok := processedIDs[gameID(*inputDir, path)]; ok {
			atomic.AddInt64(&processed, 1)
			continue
		}
		select {
		case <-ctx.Done():
			break enqueue
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()
	close(done)
	close(results)
	writeWg.Wait()
	if err := <-writeErr; err != nil {
		fatal(err)
	}
	if resumeFromExisting {
		if err := os.Rename(outputTarget, *outputPath); err != nil {
			fatal(err)
		}
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(os.Stderr, "elapsed: %s, processed: %d, failed: %d\n",
		time.Since(startTime).Round(time.Second), atomic.LoadInt64(&processed), atomic.LoadInt64(&failed))
	p.Printf("disagreements with the record: %d\n", t.inconsistent)
	for _, o := range []kifu.Outcome{
		kifu.OutcomeNone,
		kifu.OutcomeMate,
		kifu.OutcomeSennichite,
		kifu.OutcomePerpetualCheck,
		kifu.OutcomeNyugyoku,
		kifu.OutcomeIllegal,
		kifu.OutcomeKingCaptured,
	} {
		name := string(o)
		if o == kifu.OutcomeNone {
			name = "open"
		}
		p.Printf("  %-16s %d\n", name, t.outcomes[o])
	}
}

// gameID is the record path relative to the input directory.
func gameID(root, path string) string {
	id, err := filepath.Rel(root, path)
	if err != nil {
		id = filepath.Base(path)
	}
	return filepath.ToSlash(id)
}

func replayFile(ctx context.Context, r *kifu.Replayer, root, path string) (kifu.GameRecord, kifu.ReplayResult, error) {
	board, err := kifu.LoadBoardFromKIF(path)
	if err != nil {
		return kifu.GameRecord{}, kifu.ReplayResult{}, err
	}
	res, err := r.Replay(ctx, board)
	if err != nil {
		return kifu.GameRecord{}, kifu.ReplayResult{}, err
	}
	return kifu.NewGameRecord(gameID(root, path), board, res), res, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
