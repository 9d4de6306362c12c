package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"shogirule/pkg/kifu"
	"shogirule/pkg/shogi"
)

// posInfo holds the SFEN string and move counts for a qualified position.
type posInfo struct {
	sfen  string
	moves map[string]uint32
}

func main() {
	configPath := flag.String("config", "", "config file (default: config.json found upwards)")
	inputDir := flag.String("input", "test_kif", "input directory for KIF files")
	outputPath := flag.String("output", "book.db", "output book file")
	threshold := flag.Int("threshold", 3, "minimum occurrence count to include in book")
	maxPly := flag.Int("max-ply", 60, "maximum ply to process per game")
	maxFiles := flag.Int("max-files", 0, "maximum number of files to process (0=all)")
	workers := flag.Int("workers", 0, "number of parallel workers (0=config or NumCPU)")
	flag.Parse()

	cfg, err := kifu.ResolveConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	// Moves past max-ply are neither checked nor counted.
	replayer := cfg.Replayer()
	replayer.MaxPly = *maxPly

	start := time.Now()

	// Count files without building a full path list.
	totalFiles, err := kifu.CountKIF(*inputDir)
	if err != nil {
		fatal(err)
	}
	if totalFiles == 0 {
		fatal(fmt.Errorf("no .kif files found in %s", *inputDir))
	}
	if *maxFiles > 0 && totalFiles > *maxFiles {
		totalFiles = *maxFiles
	}
	p := message.NewPrinter(language.English)
	fmt.Fprint(os.Stderr, p.Sprintf("files: %d, workers: %d, max-ply: %d, threshold: %d\n",
		totalFiles, cfg.Workers, *maxPly, *threshold))

	// Pass 1 only keeps Packed256 -> uint32 so no SFEN strings are built.
	fmt.Fprintf(os.Stderr, "pass 1: counting positions...\n")
	counts, errFiles, truncated, unpacked := runPass1(replayer, *inputDir, *maxFiles, cfg.Workers, totalFiles)

	total := 0
	for _, c := range counts {
		total += int(c)
	}
	fmt.Fprint(os.Stderr, p.Sprintf("  unique positions: %d, total occurrences: %d, file errors: %d, cut at an illegal move: %d, unpackable positions: %d\n",
		len(counts), total, errFiles, truncated, unpacked))

	qual := qualify(counts, *threshold)
	counts = nil
	runtime.GC()

	fmt.Fprint(os.Stderr, p.Sprintf("  qualified positions (>=%d): %d\n", *threshold, len(qual)))
	if len(qual) == 0 {
		fmt.Fprintln(os.Stderr, "no positions meet the threshold; nothing to write")
		return
	}

	// Pass 2 re-reads the files and only builds SFEN for qualified positions.
	fmt.Fprintf(os.Stderr, "pass 2: collecting moves...\n")
	data := runPass2(replayer, *inputDir, *maxFiles, qual, cfg.Workers, totalFiles)
	fmt.Fprint(os.Stderr, p.Sprintf("  book entries: %d\n", len(data)))

	if err := writeBook(*outputPath, data); err != nil {
		fatal(err)
	}

	fmt.Fprint(os.Stderr, p.Sprintf("wrote %s (%d positions) in %v\n",
		*outputPath, len(data), time.Since(start).Round(time.Millisecond)))
}

// iteratePositions loads a KIF file, checks it with the rule engine and calls
// fn for every position of the legal prefix that has a following move.
// It reports whether the record was cut short by an illegal move and how many
// positions could not be packed, which is every position of a handicap game.
//
// pos is borrowed and must not be stored; move is in USI notation.
func iteratePositions(
	r *kifu.Replayer,
	path string,
	fn func(packed kifu.Packed256, pos *kifu.Position, move string),
) (bool, int, error) {
	board, err := kifu.LoadBoardFromKIF(path)
	if err != nil {
		return false, 0, err
	}
	res, err := r.Replay(context.Background(), board)
	if err != nil {
		return false, 0, err
	}
	// Replay stops at the first rejected move, so its plies are the legal prefix.
	limit := len(res.Plies)
	truncated := res.Outcome == kifu.OutcomeIllegal
	if limit == 0 {
		return truncated, 0, nil
	}
	unpacked := 0
	kifu.Walk(board, r.Hasher, limit, func(pos *kifu.Position, next shogi.AppliedMove) {
		packed, err := kifu.PackPosition256(*pos)
		if err != nil {
			unpacked++
			return
		}
		fn(packed, pos, next.String())
	})
	return truncated, unpacked, nil
}

// qualify keeps the positions seen at least threshold times.
func qualify(counts map[kifu.Packed256]uint32, threshold int) map[kifu.Packed256]bool {
	qual := make(map[kifu.Packed256]bool)
	for k, c := range counts {
		if c >= uint32(threshold) {
			qual[k] = true
		}
	}
	return qual
}

// feedFiles streams paths from WalkKIF into ch and closes it.
func feedFiles(inputDir string, maxFiles int, ch chan<- string) {
	sent := 0
	_ = kifu.WalkKIF(inputDir, func(path string) error {
		if maxFiles > 0 && sent >= maxFiles {
			return filepath.SkipAll
		}
		ch <- path
		sent++
		return nil
	})
	close(ch)
}

func runPass1(r *kifu.Replayer, inputDir string, maxFiles, workers, totalFiles int) (map[kifu.Packed256]uint32, int, int, int) {
	counts := make(map[kifu.Packed256]uint32)
	var mu sync.Mutex
	var processed, errCount, truncCount, unpackCount atomic.Int64

	ch := make(chan string, workers*4)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make([]kifu.Packed256, 0, 64)
			for path := range ch {
				batch = batch[:0]
				truncated, unpacked, err := iteratePositions(r, path,
					func(packed kifu.Packed256, _ *kifu.Position, _ string) {
						batch = append(batch, packed)
					})
				if err != nil {
					errCount.Add(1)
				}
				if truncated {
					truncCount.Add(1)
				}
				unpackCount.Add(int64(unpacked))
				if len(batch) > 0 {
					mu.Lock()
					for _, p := range batch {
						counts[p]++
					}
					mu.Unlock()
				}
				if n := processed.Add(1); n%10000 == 0 {
					fmt.Fprintf(os.Stderr, "\r  %d/%d", n, totalFiles)
				}
			}
		}()
	}

	feedFiles(inputDir, maxFiles, ch)
	wg.Wait()
	fmt.Fprintf(os.Stderr, "\r  %d/%d\n", processed.Load(), totalFiles)

	return counts, int(errCount.Load()), int(truncCount.Load()), int(unpackCount.Load())
}

func runPass2(r *kifu.Replayer, inputDir string, maxFiles int, qual map[kifu.Packed256]bool, workers, totalFiles int) map[kifu.Packed256]*posInfo {
	data := make(map[kifu.Packed256]*posInfo)
	var mu sync.Mutex
	var processed atomic.Int64

	type localEntry struct {
		packed kifu.Packed256
		sfen   string
		move   string
	}

	ch := make(chan string, workers*4)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make([]localEntry, 0, 16)
			for path := range ch {
				batch = batch[:0]
				_, _, _ = iteratePositions(r, path,
					func(packed kifu.Packed256, pos *kifu.Position, move string) {
						if !qual[packed] {
							return
						}
						batch = append(batch, localEntry{packed, pos.SFEN(), move})
					})
				if len(batch) > 0 {
					mu.Lock()
					for _, e := range batch {
						addEntry(data, e.packed, e.sfen, e.move)
					}
					mu.Unlock()
				}
				if n := processed.Add(1); n%10000 == 0 {
					fmt.Fprintf(os.Stderr, "\r  %d/%d", n, totalFiles)
				}
			}
		}()
	}

	feedFiles(inputDir, maxFiles, ch)
	wg.Wait()
	fmt.Fprintf(os.Stderr, "\r  %d/%d\n", processed.Load(), totalFiles)

	return data
}

// addEntry counts move from the position packed. The first SFEN seen for a
// position is kept; transpositions only differ in the move number.
func addEntry(data map[kifu.Packed256]*posInfo, packed kifu.Packed256, sfen, move string) {
	info := data[packed]
	if info == nil {
		info = &posInfo{sfen: sfen, moves: make(map[string]uint32)}
		data[packed] = info
	}
	info.moves[move]++
}

// writeBook writes data in the YaneuraOu DB format, positions sorted by SFEN
// and moves by count.
func writeBook(path string, data map[kifu.Packed256]*posInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "#YANEURAOU-DB2016 1.00")

	entries := make([]*posInfo, 0, len(data))
	for _, info := range data {
		entries = append(entries, info)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].sfen < entries[j].sfen
	})

	for _, e := range entries {
		fmt.Fprintf(w, "sfen %s\n", e.sfen)

		type mc struct {
			move  string
			count uint32
		}
		ms := make([]mc, 0, len(e.moves))
		for m, c := range e.moves {
			ms = append(ms, mc{m, c})
		}
		sort.Slice(ms, func(i, j int) bool {
			if ms[i].count != ms[j].count {
				return ms[i].count > ms[j].count
			}
			return ms[i].move < ms[j].move
		})

		// <move> <response> <eval> <depth> <count>
		for _, m := range ms {
			fmt.Fprintf(w, "%s none 0 0 %d\n", m.move, m.count)
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
