package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"shogirule/pkg/kifu"
)

// histogram counts values in fixed-width bins.
type histogram struct {
	binSize     int
	known       int
	unknown     int
	min         int
	max         int
	initialized bool
	bins        map[int]int
}

type userRatingAgg struct {
	sum   int64
	count int
}

func newHistogram(binSize int) *histogram {
	return &histogram{
		binSize: binSize,
		bins:    make(map[int]int),
	}
}

// Add records value; non-positive values count as unknown.
func (h *histogram) Add(value int) {
	if value <= 0 {
		h.unknown++
		return
	}
	h.known++
	if !h.initialized {
		h.min = value
		h.max = value
		h.initialized = true
	} else {
		if value < h.min {
			h.min = value
		}
		if value > h.max {
			h.max = value
		}
	}
	binStart := (value / h.binSize) * h.binSize
	h.bins[binStart]++
}

func (h *histogram) print(title string) {
	fmt.Printf("%s (bin size=%d, known=%d unknown=%d):\n", title, h.binSize, h.known, h.unknown)
	if h.known > 0 {
		fmt.Printf("  range: %d-%d\n", h.min, h.max)
	}
	keys := make([]int, 0, len(h.bins))
	for key := range h.bins {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	for _, start := range keys {
		fmt.Printf("  %d-%d,%d\n", start, start+h.binSize-1, h.bins[start])
	}
}

func main() {
	configPath := flag.String("config", "", "config file (default: config.json found upwards)")
	parquetPath := flag.String("parquet", "replay.parquet", "input parquet file written by replay")
	binSize := flag.Int("bin-size", 100, "rating bin size")
	moveBinSize := flag.Int("move-bin-size", 20, "move count bin size")
	minGames := flag.Int("min-games", 2, "minimum games per user to count")
	parallel := flag.Int64("parallel", 0, "parquet read parallelism (0=config)")
	flag.Parse()

	if *binSize <= 0 || *moveBinSize <= 0 {
		fatal(fmt.Errorf("bin sizes must be > 0"))
	}
	if *minGames <= 0 {
		fatal(fmt.Errorf("min-games must be > 0"))
	}
	cfg, err := kifu.ResolveConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *parallel > 0 {
		cfg.Parallel = *parallel
	}

	records, err := kifu.ReadParquet(*parquetPath, cfg.ParquetParallel())
	if err != nil {
		fatal(err)
	}

	results := make(map[string]int)
	outcomes := make(map[string]int)
	illegal := make(map[string]int)
	// Declared terminal marker against what the engine concluded.
	disagreements := make(map[string]int)
	consistent := 0
	moveCounts := newHistogram(*moveBinSize)
	userAgg := make(map[string]*userRatingAgg)
	for _, record := range records {
		results[record.Result]++
		outcomes[outcomeName(record.RuleOutcome)]++
		if record.IllegalKind != "" {
			illegal[record.IllegalKind]++
		}
		if record.Consistent {
			consistent++
		} else {
			disagreements[record.WinReason+" / "+outcomeName(record.RuleOutcome)]++
		}
		moveCounts.Add(int(record.MoveCount))
		addUserRating(userAgg, record.SenteName, record.SenteRating)
		addUserRating(userAgg, record.GoteName, record.GoteRating)
	}

	ratings := newHistogram(*binSize)
	usersAtLeast := 0
	for _, agg := range userAgg {
		if agg.count >= *minGames {
			usersAtLeast++
		}
		ratings.Add(int(agg.sum / int64(agg.count)))
	}

	fmt.Printf("input parquet: %s\n", *parquetPath)
	fmt.Printf("games: %d, consistent: %d, disagreeing: %d\n", len(records), consistent, len(records)-consistent)
	printCounts("results", results)
	printCounts("rule outcomes", outcomes)
	printCounts("illegal moves", illegal)
	printCounts("disagreements (record / engine)", disagreements)
	moveCounts.print("move counts")
	fmt.Printf("rated users: %d, with >= %d games: %d\n", len(userAgg), *minGames, usersAtLeast)
	ratings.print("rating distribution")
}

func outcomeName(outcome string) string {
	if outcome == "" {
		return "open"
	}
	return outcome
}

// printCounts prints counts sorted by frequency, then by key.
func printCounts(title string, counts map[string]int) {
	fmt.Printf("%s:\n", title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		fmt.Printf("  %s,%d\n", name, counts[k])
	}
}

func addUserRating(agg map[string]*userRatingAgg, name string, rating int32) {
	if name == "" || rating <= 0 {
		return
	}
	entry, ok := agg[name]
	if !ok {
		entry = &userRatingAgg{}
		agg[name] = entry
	}
	entry.sum += int64(rating)
	entry.count++
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
