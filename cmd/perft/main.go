package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"shogirule/pkg/kifu"
	"shogirule/pkg/shogi"
)

func main() {
	sfen := flag.String("sfen", kifu.StandardSFEN, "position to count from")
	depth := flag.Int("depth", 3, "search depth")
	divide := flag.Bool("divide", false, "print node counts per root move")
	parallel := flag.Bool("parallel", false, "count root moves concurrently")
	flag.Parse()

	if *depth < 0 {
		fatal(fmt.Errorf("depth must be >= 0"))
	}
	pos, err := kifu.ParseSFEN(*sfen)
	if err != nil {
		fatal(err)
	}
	s := pos.State()
	if err := s.Validate(&pos.Hands); err != nil {
		fatal(err)
	}

	p := message.NewPrinter(language.English)
	start := time.Now()
	var entries []shogi.DivideEntry
	if *parallel && *depth > 0 {
		entries = divideParallel(pos.Turn, &s, &pos.Hands, *depth)
	} else {
		entries = shogi.Divide(pos.Turn, &s, &pos.Hands, *depth)
	}
	elapsed := time.Since(start)

	var nodes uint64
	for _, e := range entries {
		nodes += e.Nodes
		if *divide {
			fmt.Println(p.Sprintf("%s: %d", e.Move, e.Nodes))
		}
	}
	if *depth == 0 {
		nodes = 1
	}
	fmt.Println(p.Sprintf("d=%d nodes=%d rate=%dn/s (%.3fs elapsed)",
		*depth, nodes, int(float64(nodes)/elapsed.Seconds()), elapsed.Seconds()))
}

// divideParallel counts each root move in its own goroutine, keeping
// generation order.
func divideParallel(t shogi.Teban, s *shogi.State, mc *shogi.MochigomaCollections, depth int) []shogi.DivideEntry {
	moves := shogi.LegalMovesAll(t, s, mc)
	entries := make([]shogi.DivideEntry, len(moves))
	var done atomic.Int64
	var wg sync.WaitGroup
	for i, m := range moves {
		wg.Add(1)
		go func(i int, m shogi.LegalMove) {
			defer wg.Done()
			nodes := uint64(1)
			if !shogi.IsWin(s, t, m.Applied()) {
				next, nmc, _ := shogi.ApplyMoveNoneCheck(s, t, mc, m.Applied())
				nodes = shogi.Perft(t.Opposite(), &next, &nmc, depth-1)
			}
			entries[i] = shogi.DivideEntry{Move: m, Nodes: nodes}
			if n := done.Add(1); n%10 == 0 {
				fmt.Fprintf(os.Stderr, "\r  %d/%d", n, len(moves))
			}
		}(i, m)
	}
	wg.Wait()
	fmt.Fprintf(os.Stderr, "\r  %d/%d\n", done.Load(), len(moves))
	return entries
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
