package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"shogirule/pkg/kifu"
	"shogirule/pkg/shogi"
)

func main() {
	configPath := flag.String("config", "", "config file (default: config.json found upwards)")
	sfen := flag.String("sfen", "startpos", "position to show")
	kifPath := flag.String("kif", "", "take the position from a KIF file instead of -sfen")
	ply := flag.Int("ply", 0, "with -kif, the number of moves to play from the start")
	moves := flag.String("moves", "", "space-separated USI moves to play first")
	listMoves := flag.Bool("list", true, "list legal moves")
	noColor := flag.Bool("no-color", false, "disable colour output")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}
	cfg, err := kifu.ResolveConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	pos, err := loadPosition(*sfen, *kifPath, *ply)
	if err != nil {
		fatal(err)
	}
	s := pos.State()
	if err := s.Validate(&pos.Hands); err != nil {
		fatal(err)
	}
	for _, text := range strings.Fields(*moves) {
		m, err := shogi.ParseAppliedMove(text)
		if err != nil {
			fatal(err)
		}
		if pos, err = pos.Apply(m); err != nil {
			fatal(fmt.Errorf("%s: %w", text, err))
		}
	}

	render(os.Stdout, pos)
	describe(os.Stdout, pos, cfg.NyugyokuRule(), *listMoves)
}

func loadPosition(sfen, kifPath string, ply int) (kifu.Position, error) {
	if kifPath == "" {
		return kifu.ParseSFEN(sfen)
	}
	board, err := kifu.LoadBoardFromKIF(kifPath)
	if err != nil {
		return kifu.Position{}, err
	}
	return board.PositionAt(ply)
}

var (
	senteStyle = color.New(color.FgHiWhite, color.Bold)
	goteStyle  = color.New(color.FgRed, color.Bold)
	frameStyle = color.New(color.FgHiBlack)
)

// render draws the board from sente's side: files 9..1 left to right and
// ranks a..i top to bottom, gote's pieces in lower case.
func render(w io.Writer, pos kifu.Position) {
	fmt.Fprintf(w, "%s %s\n", handLabel(shogi.Gote), handString(pos.Hands.Get(shogi.Gote), goteStyle))
	header := " "
	for file := 9; file >= 1; file-- {
		header += fmt.Sprintf("  %d", file)
	}
	fmt.Fprintln(w, frameStyle.Sprint(header))
	for y := 0; y < 9; y++ {
		var sb strings.Builder
		for x := 0; x < 9; x++ {
			sb.WriteString(" ")
			sb.WriteString(cell(pos.Banmen[y][x]))
		}
		fmt.Fprintf(w, "%s%s %s\n", frameStyle.Sprint("|"), sb.String(), frameStyle.Sprint(string(rune('a'+y))))
	}
	fmt.Fprintf(w, "%s %s\n", handLabel(shogi.Sente), handString(pos.Hands.Get(shogi.Sente), senteStyle))
}

func cell(k shogi.KomaKind) string {
	if k == shogi.Blank {
		return frameStyle.Sprint(" .")
	}
	text := fmt.Sprintf("%2s", k.String())
	if k.IsGote() {
		return goteStyle.Sprint(text)
	}
	return senteStyle.Sprint(text)
}

func handLabel(t shogi.Teban) string {
	if t == shogi.Sente {
		return "sente hand:"
	}
	return "gote hand: "
}

func handString(hand shogi.Mochigoma, style *color.Color) string {
	var parts []string
	for i := len(shogi.MochigomaKinds) - 1; i >= 0; i-- {
		k := shogi.MochigomaKinds[i]
		if n := hand.Get(k); n > 0 {
			parts = append(parts, fmt.Sprintf("%s%d", k, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return style.Sprint(strings.Join(parts, " "))
}

// describe prints the side to move, check and game-end state, and the legal
// moves sorted in USI order.
func describe(w io.Writer, pos kifu.Position, rule shogi.NyugyokuRule, list bool) {
	s := pos.State()
	t := pos.Turn
	legal := shogi.LegalMovesAll(t, &s, &pos.Hands)
	inCheck := shogi.IsMate(t.Opposite(), &s)

	fmt.Fprintf(w, "sfen: %s\n", pos.SFEN())
	fmt.Fprintf(w, "to move: %s\n", t)
	switch {
	case len(legal) == 0 && inCheck:
		fmt.Fprintln(w, color.YellowString("checkmate: %s loses", t))
	case len(legal) == 0:
		fmt.Fprintln(w, color.YellowString("no legal moves: %s loses", t))
	case inCheck:
		fmt.Fprintln(w, color.YellowString("%s is in check", t))
	}
	if shogi.IsMate(t, &s) {
		fmt.Fprintln(w, color.YellowString("%s can capture the king", t))
	}
	if rule.IsWin(&s, t, &pos.Hands, nil) {
		fmt.Fprintln(w, color.GreenString("%s can declare a nyugyoku win", t))
	}
	fmt.Fprintf(w, "legal moves: %d\n", len(legal))
	if !list || len(legal) == 0 {
		return
	}
	names := make([]string, len(legal))
	for i, m := range legal {
		names[i] = m.String()
	}
	sort.Strings(names)
	for i := 0; i < len(names); i += 10 {
		end := i + 10
		if end > len(names) {
			end = len(names)
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(names[i:end], " "))
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
