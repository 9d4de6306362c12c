package kifu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"shogirule/pkg/shogi"
)

type square struct {
	file int
	rank int
}

// Board is a parsed game record: the start position, the main line and how
// the game ended.
type Board struct {
	initial     Position
	moves       []shogi.AppliedMove
	terminal    string
	terminalPly int
	players     KIFPlayers
}

type KIFPlayers struct {
	SenteName   string
	SenteRating int32
	GoteName    string
	GoteRating  int32
}

var (
	ErrKIF        = errors.New("invalid kif")
	ErrNoPosition = errors.New("no board definition found")
)

var moveLineRe = regexp.MustCompile(`^\s*(\d+)\s+(.+)$`)
var fromSquareRe = regexp.MustCompile(`\((\d)(\d)\)`)
var nameRatingRe = regexp.MustCompile(`^(.+?)\((\d+)\)$`)

func readKIFLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return splitKIF(data)
}

func splitKIF(data []byte) ([]string, error) {
	text, err := decodeKIF(data)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines, nil
}

// decodeKIF accepts UTF-8 (with or without BOM) and falls back to Shift-JIS.
func decodeKIF(data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	reader := transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("%w: failed to decode Shift-JIS", ErrKIF)
	}
	return string(decoded), nil
}

// moveText extracts the move from the text following the move number,
// dropping the clock field. "同" may be followed by a full-width space.
func moveText(rest string) string {
	rest = strings.TrimSpace(rest)
	prefix := ""
	if strings.HasPrefix(rest, "同") {
		prefix = "同"
		rest = strings.TrimLeft(strings.TrimPrefix(rest, "同"), " 　")
	}
	if i := strings.IndexAny(rest, " \t　"); i >= 0 {
		rest = rest[:i]
	}
	return prefix + rest
}

// parseKIFMoves reads the main line. It stops at the first terminal marker
// or at the first variation block and reports the marker with its ply.
func parseKIFMoves(lines []string) ([]shogi.AppliedMove, string, int, error) {
	var moves []shogi.AppliedMove
	var prevDest *square
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "変化") {
			break
		}
		match := moveLineRe.FindStringSubmatch(line)
		if len(match) == 0 {
			continue
		}
		token := moveText(match[2])
		if token == "" {
			continue
		}
		if isTerminalMove(token) {
			return moves, token, len(moves) + 1, nil
		}
		move, dest, err := parseKIFMoveToken(token, prevDest)
		if err != nil {
			return nil, "", 0, fmt.Errorf("line %d: %w", i+1, err)
		}
		applied, err := move.Applied()
		if err != nil {
			return nil, "", 0, fmt.Errorf("line %d: %w", i+1, err)
		}
		moves = append(moves, applied)
		prevDest = dest
	}
	return moves, "", 0, nil
}

func parseKIFMoveToken(token string, prevDest *square) (shogi.Move, *square, error) {
	work := strings.TrimSpace(token)
	var dest square
	if strings.HasPrefix(work, "同") {
		if prevDest == nil {
			return shogi.Move{}, nil, fmt.Errorf("%w: same-square move without previous destination", ErrKIF)
		}
		dest = *prevDest
		work = strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(work, "同"), " 　"))
	} else {
		runes := []rune(work)
		if len(runes) < 2 {
			return shogi.Move{}, nil, fmt.Errorf("%w: invalid move token %s", ErrKIF, token)
		}
		file, ok := parseFileRune(runes[0])
		if !ok {
			return shogi.Move{}, nil, fmt.Errorf("%w: invalid destination file in %s", ErrKIF, token)
		}
		rank, ok := parseRankRune(runes[1])
		if !ok {
			return shogi.Move{}, nil, fmt.Errorf("%w: invalid destination rank in %s", ErrKIF, token)
		}
		dest = square{file: file, rank: rank}
		work = strings.TrimSpace(string(runes[2:]))
	}

	fromFile, fromRank, hasFrom := parseFromSquare(work)
	if hasFrom {
		work = fromSquareRe.ReplaceAllString(work, "")
	}

	drop := strings.HasSuffix(work, "打")
	work = strings.TrimSuffix(work, "打")

	// A trailing 成 promotes; a leading one names an already promoted piece.
	promote := false
	switch {
	case strings.HasSuffix(work, "不成"):
		work = strings.TrimSuffix(work, "不成")
	case strings.HasSuffix(work, "成") && utf8.RuneCountInString(work) > 1:
		promote = true
		work = strings.TrimSuffix(work, "成")
	}

	kind, err := parsePiece(work)
	if err != nil {
		return shogi.Move{}, nil, err
	}
	if drop || !hasFrom {
		m, ok := kind.Mochigoma()
		if !ok || promote || kind >= shogi.ObtainFuN {
			return shogi.Move{}, nil, fmt.Errorf("%w: cannot drop %s", ErrKIF, token)
		}
		return shogi.Move{Drop: true, Kind: m, DstFile: dest.file, DstRank: dest.rank}, &dest, nil
	}
	return shogi.Move{
		SrcFile: fromFile,
		SrcRank: fromRank,
		DstFile: dest.file,
		DstRank: dest.rank,
		Nari:    promote,
	}, &dest, nil
}

var terminalMarkers = map[string]bool{
	"投了": true, "中断": true, "持将棋": true, "千日手": true, "詰み": true, "不詰": true,
	"切れ負け": true, "反則勝ち": true, "反則負け": true, "入玉勝ち": true, "勝ち宣言": true,
}

func isTerminalMove(token string) bool {
	return terminalMarkers[token]
}

func parseFromSquare(text string) (int, int, bool) {
	match := fromSquareRe.FindStringSubmatch(text)
	if len(match) != 3 {
		return 0, 0, false
	}
	file := int(match[1][0] - '0')
	rank := int(match[2][0] - '0')
	if file < 1 || file > 9 || rank < 1 || rank > 9 {
		return 0, 0, false
	}
	return file, rank, true
}

func parseFileRune(r rune) (int, bool) {
	if r >= '1' && r <= '9' {
		return int(r - '0'), true
	}
	if r >= '１' && r <= '９' {
		return int(r-'１') + 1, true
	}
	return 0, false
}

var kanjiDigits = map[rune]int{'一': 1, '二': 2, '三': 3, '四': 4, '五': 5, '六': 6, '七': 7, '八': 8, '九': 9}

func parseRankRune(r rune) (int, bool) {
	n, ok := kanjiDigits[r]
	return n, ok
}

type pieceDef struct {
	name string
	kind shogi.ObtainKind
}

// pieceDefs is ordered so that two-rune names match before their suffixes.
var pieceDefs = []pieceDef{
	{name: "成銀", kind: shogi.ObtainGinN},
	{name: "成桂", kind: shogi.ObtainKeiN},
	{name: "成香", kind: shogi.ObtainKyouN},
	{name: "全", kind: shogi.ObtainGinN},
	{name: "圭", kind: shogi.ObtainKeiN},
	{name: "杏", kind: shogi.ObtainKyouN},
	{name: "と", kind: shogi.ObtainFuN},
	{name: "馬", kind: shogi.ObtainKakuN},
	{name: "龍", kind: shogi.ObtainHishaN},
	{name: "竜", kind: shogi.ObtainHishaN},
	{name: "王", kind: shogi.ObtainOu},
	{name: "玉", kind: shogi.ObtainOu},
	{name: "飛", kind: shogi.ObtainHisha},
	{name: "角", kind: shogi.ObtainKaku},
	{name: "金", kind: shogi.ObtainKin},
	{name: "銀", kind: shogi.ObtainGin},
	{name: "桂", kind: shogi.ObtainKei},
	{name: "香", kind: shogi.ObtainKyou},
	{name: "歩", kind: shogi.ObtainFu},
}

func parsePiece(text string) (shogi.ObtainKind, error) {
	clean := strings.TrimSpace(text)
	for _, def := range pieceDefs {
		if clean == def.name {
			return def.kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown piece in %s", ErrKIF, text)
}

func parsePlayers(lines []string) KIFPlayers {
	senteName, senteRating := parseNameRating(headerValue(lines, "先手"))
	goteName, goteRating := parseNameRating(headerValue(lines, "後手"))
	if senteName == "" {
		senteName, senteRating = parseNameRating(headerValue(lines, "下手"))
	}
	if goteName == "" {
		goteName, goteRating = parseNameRating(headerValue(lines, "上手"))
	}
	return KIFPlayers{
		SenteName:   senteName,
		SenteRating: senteRating,
		GoteName:    goteName,
		GoteRating:  goteRating,
	}
}

func LoadKIFPlayers(path string) (KIFPlayers, error) {
	lines, err := readKIFLines(path)
	if err != nil {
		return KIFPlayers{}, err
	}
	return parsePlayers(lines), nil
}

func headerValue(lines []string, key string) string {
	prefixes := []string{key + "：", key + ":"}
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		for _, prefix := range prefixes {
			if strings.HasPrefix(trim, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(trim, prefix))
			}
		}
	}
	return ""
}

func parseNameRating(raw string) (string, int32) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}
	match := nameRatingRe.FindStringSubmatch(raw)
	if len(match) == 3 {
		return strings.TrimSpace(match[1]), parseInt32(match[2])
	}
	return raw, 0
}

func parseInt32(raw string) int32 {
	var value int
	_, _ = fmt.Sscanf(raw, "%d", &value)
	return int32(value)
}

// resultFromTerminal maps a terminal marker written at ply to a result and
// the reason recorded with it.
func resultFromTerminal(token string, ply int) (string, string) {
	switch token {
	case "":
		return "unknown", ""
	case "中断", "不詰":
		return "abort", token
	case "持将棋", "千日手":
		return "draw", token
	case "反則勝ち", "入玉勝ち", "勝ち宣言":
		return winnerFromPly(ply), token
	case "投了", "詰み", "切れ負け", "反則負け":
		return winnerFromPly(ply + 1), token
	default:
		return "unknown", token
	}
}

// winnerFromPly names the side that would play move ply.
func winnerFromPly(ply int) string {
	if ply%2 == 1 {
		return "sente_win"
	}
	return "gote_win"
}

func isKIFFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".kif" || ext == ".kifu"
}

// WalkKIF calls fn for every KIF file under root in lexical order. fn may
// return filepath.SkipAll to stop early.
func WalkKIF(root string, fn func(path string) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isKIFFile(path) {
			return nil
		}
		return fn(path)
	})
	if errors.Is(err, filepath.SkipAll) {
		return nil
	}
	return err
}

func CountKIF(root string) (int, error) {
	n := 0
	err := WalkKIF(root, func(string) error {
		n++
		return nil
	})
	return n, err
}

func CollectKIF(root string) ([]string, error) {
	var files []string
	if err := WalkKIF(root, func(path string) error {
		files = append(files, path)
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func LoadBoardFromKIF(path string) (*Board, error) {
	lines, err := readKIFLines(path)
	if err != nil {
		return nil, err
	}
	board, err := BoardFromKIF(lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return board, nil
}

// ParseKIF decodes raw KIF bytes.
func ParseKIF(data []byte) (*Board, error) {
	lines, err := splitKIF(data)
	if err != nil {
		return nil, err
	}
	return BoardFromKIF(lines)
}

func BoardFromKIF(lines []string) (*Board, error) {
	pos, err := initialPositionFromKIF(lines)
	if err != nil {
		return nil, err
	}
	moves, terminal, ply, err := parseKIFMoves(lines)
	if err != nil {
		return nil, err
	}
	return &Board{
		initial:     pos,
		moves:       moves,
		terminal:    terminal,
		terminalPly: ply,
		players:     parsePlayers(lines),
	}, nil
}

func (b *Board) MoveCount() int {
	if b == nil {
		return 0
	}
	return len(b.moves)
}

// IsFoulEnd returns true if the game ended with 反則勝ち or 反則負け. The
// last move before the marker is then expected to be illegal.
func (b *Board) IsFoulEnd() bool {
	if b == nil {
		return false
	}
	return b.terminal == "反則勝ち" || b.terminal == "反則負け"
}

func (b *Board) InitialPosition() Position { return b.initial }

func (b *Board) Moves() []shogi.AppliedMove { return b.moves }

func (b *Board) Players() KIFPlayers { return b.players }

// Terminal returns the marker that ended the record and the ply it was
// written at, or "" when the record just stops.
func (b *Board) Terminal() (string, int) { return b.terminal, b.terminalPly }

// Result returns "sente_win", "gote_win", "draw", "abort" or "unknown"
// together with the marker it was derived from.
func (b *Board) Result() (string, string) {
	return resultFromTerminal(b.terminal, b.initialPlyOffset()+b.terminalPly)
}

// initialPlyOffset shifts ply parity when gote moves first.
func (b *Board) initialPlyOffset() int {
	if b.initial.Turn == shogi.Gote {
		return 1
	}
	return 0
}

// PositionAt replays the first move moves, validating each.
func (b *Board) PositionAt(move int) (Position, error) {
	if b == nil {
		return Position{}, errors.New("board is nil")
	}
	if move < 0 || move > len(b.moves) {
		return Position{}, fmt.Errorf("move out of range: %d", move)
	}
	pos := b.initial
	for i := 0; i < move; i++ {
		next, err := pos.Apply(b.moves[i])
		if err != nil {
			return Position{}, fmt.Errorf("move %d: %w", i+1, err)
		}
		pos = next
	}
	return pos, nil
}

func (b *Board) SFENAt(move int) (string, error) {
	pos, err := b.PositionAt(move)
	if err != nil {
		return "", err
	}
	return pos.ToSFEN(move + 1), nil
}

func KIFFileToSFEN(path string) (string, error) {
	board, err := LoadBoardFromKIF(path)
	if err != nil {
		return "", err
	}
	return board.SFENAt(0)
}

// handicapSFEN lists the 手合割 presets. The side giving the handicap is gote
// and moves first.
var handicapSFEN = map[string]string{
	"平手":   StandardSFEN,
	"香落ち":  "lnsgkgsn1/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
	"右香落ち": "1nsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
	"角落ち":  "lnsgkgsnl/1r7/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
	"飛車落ち": "lnsgkgsnl/7b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
	"飛香落ち": "lnsgkgsn1/7b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
	"二枚落ち": "lnsgkgsnl/9/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
	"四枚落ち": "1nsgkgsn1/9/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
	"六枚落ち": "2sgkgs2/9/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1",
}

func initialPositionFromKIF(lines []string) (Position, error) {
	boardLines := collectBoardLines(lines)
	if len(boardLines) == 0 {
		for _, line := range lines {
			trim := strings.TrimSpace(line)
			if !strings.HasPrefix(trim, "手合割") {
				continue
			}
			value := strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(trim, "手合割"), "：:"))
			if sfen, ok := handicapSFEN[value]; ok {
				return ParseSFEN(sfen)
			}
			return Position{}, fmt.Errorf("%w: unsupported handicap %s", ErrKIF, value)
		}
		if hasMoves(lines) {
			return InitialPosition(), nil
		}
		return Position{}, ErrNoPosition
	}
	pos := Position{Ply: 1, Turn: parseTurn(lines)}
	if err := parseBoardLines(boardLines, &pos.Banmen); err != nil {
		return Position{}, err
	}
	if err := parseHandsCounts(lines, &pos.Hands); err != nil {
		return Position{}, err
	}
	return pos, nil
}

func hasMoves(lines []string) bool {
	for _, line := range lines {
		if moveLineRe.MatchString(line) {
			return true
		}
	}
	return false
}

// collectBoardLines keeps the rows of a drawn board: "| ・v玉 ...|一".
func collectBoardLines(lines []string) []string {
	var board []string
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if strings.HasPrefix(trim, "|") && strings.Count(trim, "|") >= 2 {
			board = append(board, trim)
		}
	}
	return board
}

func parseBoardLines(lines []string, b *shogi.Banmen) error {
	if len(lines) < 9 {
		return fmt.Errorf("%w: board lines must be 9 rows, got %d", ErrKIF, len(lines))
	}
	for y := 0; y < 9; y++ {
		if err := parseBoardRow(lines[y], &b[y]); err != nil {
			return fmt.Errorf("row %d: %w", y+1, err)
		}
	}
	return nil
}

func parseBoardRow(line string, row *[9]shogi.KomaKind) error {
	trim := strings.TrimPrefix(strings.TrimSpace(line), "|")
	if i := strings.LastIndex(trim, "|"); i >= 0 {
		trim = trim[:i]
	}
	runes := []rune(trim)
	x := 0
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == ' ' || r == '\t' || r == '　' {
			i++
			continue
		}
		if x > 8 {
			return fmt.Errorf("%w: more than 9 cells", ErrKIF)
		}
		if r == '・' {
			row[x] = shogi.Blank
			x++
			i++
			continue
		}
		t := shogi.Sente
		if r == 'v' || r == 'V' {
			t = shogi.Gote
			i++
			if i >= len(runes) {
				return fmt.Errorf("%w: dangling gote marker", ErrKIF)
			}
		}
		kind, consumed, err := parseBoardPiece(runes[i:])
		if err != nil {
			return err
		}
		row[x] = shogi.NewKomaKind(t, kind)
		x++
		i += consumed
	}
	if x != 9 {
		return fmt.Errorf("%w: expected 9 cells, got %d", ErrKIF, x)
	}
	return nil
}

func parseBoardPiece(runes []rune) (shogi.ObtainKind, int, error) {
	for _, n := range []int{2, 1} {
		if len(runes) < n {
			continue
		}
		if kind, err := parsePiece(string(runes[:n])); err == nil {
			return kind, n, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: unknown piece %c", ErrKIF, runes[0])
}

func parseTurn(lines []string) shogi.Teban {
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if strings.HasPrefix(trim, "手番") {
			if strings.Contains(trim, "後手") || strings.Contains(trim, "上手") {
				return shogi.Gote
			}
			return shogi.Sente
		}
		// A board record written for gote to move marks it with this line.
		if strings.HasPrefix(trim, "後手番") || strings.HasPrefix(trim, "上手番") {
			return shogi.Gote
		}
	}
	return shogi.Sente
}

func parseHandsCounts(lines []string, mc *shogi.MochigomaCollections) error {
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		var t shogi.Teban
		switch {
		case strings.HasPrefix(trim, "先手の持駒"), strings.HasPrefix(trim, "下手の持駒"):
			t = shogi.Sente
		case strings.HasPrefix(trim, "後手の持駒"), strings.HasPrefix(trim, "上手の持駒"):
			t = shogi.Gote
		default:
			continue
		}
		if err := parseHandLine(trim, mc.Of(t)); err != nil {
			return err
		}
	}
	return nil
}

func parseHandLine(line string, hand *shogi.Mochigoma) error {
	parts := strings.SplitN(line, "：", 2)
	if len(parts) != 2 {
		parts = strings.SplitN(line, ":", 2)
	}
	if len(parts) != 2 {
		return fmt.Errorf("%w: invalid hand line: %s", ErrKIF, line)
	}
	text := strings.TrimSpace(parts[1])
	if text == "なし" || text == "" {
		return nil
	}
	for _, token := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == '　' }) {
		runes := []rune(token)
		kind, err := parsePiece(string(runes[0]))
		if err != nil {
			return err
		}
		m, ok := kind.Mochigoma()
		if !ok || kind >= shogi.ObtainFuN {
			return fmt.Errorf("%w: %s cannot be in hand", ErrKIF, token)
		}
		count, ok := parseCount(runes[1:])
		if !ok {
			return fmt.Errorf("%w: invalid hand count %s", ErrKIF, token)
		}
		hand[m] += count
	}
	return nil
}

// parseCount reads the count after a hand piece: none, ASCII digits or
// kanji up to 十八.
func parseCount(runes []rune) (int, bool) {
	if len(runes) == 0 {
		return 1, true
	}
	if runes[0] >= '0' && runes[0] <= '9' {
		val := 0
		for _, r := range runes {
			if r < '0' || r > '9' {
				return 0, false
			}
			val = val*10 + int(r-'0')
		}
		return val, true
	}
	val := 0
	for i, r := range runes {
		if r == '十' {
			if i != 0 {
				return 0, false
			}
			val = 10
			continue
		}
		n, ok := kanjiDigits[r]
		if !ok || i > 1 || (i == 1 && val != 10) {
			return 0, false
		}
		val += n
	}
	return val, val > 0
}
