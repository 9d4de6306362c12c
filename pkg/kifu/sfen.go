package kifu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shogirule/pkg/shogi"
)

// Position is a board, both hands, the side to move and the SFEN move number.
type Position struct {
	Banmen shogi.Banmen
	Hands  shogi.MochigomaCollections
	Turn   shogi.Teban
	Ply    int
}

const StandardSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

var ErrSFEN = errors.New("invalid sfen")

// InitialPosition is the even-game start.
func InitialPosition() Position {
	return Position{Banmen: shogi.InitialBanmen(), Turn: shogi.Sente, Ply: 1}
}

// State derives the rule engine's state from the board.
func (p Position) State() shogi.State {
	return shogi.NewState(p.Banmen)
}

// Apply validates m and returns the position after it.
func (p Position) Apply(m shogi.AppliedMove) (Position, error) {
	s := p.State()
	next, mc, _, err := shogi.ApplyValidMove(&s, p.Turn, &p.Hands, m)
	if err != nil {
		return Position{}, err
	}
	return Position{Banmen: *next.Banmen(), Hands: mc, Turn: p.Turn.Opposite(), Ply: p.Ply + 1}, nil
}

// ParseSFEN reads "<board> <b|w> <hands> [ply]". The word "startpos" is
// accepted for the standard position.
func ParseSFEN(sfen string) (Position, error) {
	fields := strings.Fields(sfen)
	if len(fields) == 1 && fields[0] == "startpos" {
		return InitialPosition(), nil
	}
	if len(fields) < 3 {
		return Position{}, fmt.Errorf("%w: %s", ErrSFEN, sfen)
	}
	pos := Position{Ply: 1}
	switch fields[1] {
	case "b":
		pos.Turn = shogi.Sente
	case "w":
		pos.Turn = shogi.Gote
	default:
		return Position{}, fmt.Errorf("%w: side to move %q", ErrSFEN, fields[1])
	}
	if err := parseBoardSFEN(fields[0], &pos.Banmen); err != nil {
		return Position{}, err
	}
	if err := parseHandsSFEN(fields[2], &pos.Hands); err != nil {
		return Position{}, err
	}
	if len(fields) >= 4 {
		ply, err := strconv.Atoi(fields[3])
		if err != nil || ply < 1 {
			return Position{}, fmt.Errorf("%w: move number %q", ErrSFEN, fields[3])
		}
		pos.Ply = ply
	}
	return pos, nil
}

func parseBoardSFEN(board string, b *shogi.Banmen) error {
	ranks := strings.Split(board, "/")
	if len(ranks) != 9 {
		return fmt.Errorf("%w: %d ranks", ErrSFEN, len(ranks))
	}
	for y, rankText := range ranks {
		x := 0
		for i := 0; i < len(rankText); i++ {
			c := rankText[i]
			if c >= '1' && c <= '9' {
				for n := int(c - '0'); n > 0; n-- {
					if x > 8 {
						return fmt.Errorf("%w: rank %d is too long", ErrSFEN, y+1)
					}
					b[y][x] = shogi.Blank
					x++
				}
				continue
			}
			promoted := false
			if c == '+' {
				promoted = true
				i++
				if i >= len(rankText) {
					return fmt.Errorf("%w: dangling promotion marker", ErrSFEN)
				}
				c = rankText[i]
			}
			t := shogi.Sente
			if c >= 'a' && c <= 'z' {
				t = shogi.Gote
				c -= 'a' - 'A'
			}
			o, ok := sfenPiece(c)
			if !ok {
				return fmt.Errorf("%w: unknown piece %c", ErrSFEN, c)
			}
			k := shogi.NewKomaKind(t, o)
			if promoted {
				if !k.Promotable() {
					return fmt.Errorf("%w: %c cannot promote", ErrSFEN, c)
				}
				k = k.Nari()
			}
			if x > 8 {
				return fmt.Errorf("%w: rank %d is too long", ErrSFEN, y+1)
			}
			b[y][x] = k
			x++
		}
		if x != 9 {
			return fmt.Errorf("%w: rank %d does not have 9 files", ErrSFEN, y+1)
		}
	}
	return nil
}

func sfenPiece(c byte) (shogi.ObtainKind, bool) {
	switch c {
	case 'P':
		return shogi.ObtainFu, true
	case 'L':
		return shogi.ObtainKyou, true
	case 'N':
		return shogi.ObtainKei, true
	case 'S':
		return shogi.ObtainGin, true
	case 'G':
		return shogi.ObtainKin, true
	case 'B':
		return shogi.ObtainKaku, true
	case 'R':
		return shogi.ObtainHisha, true
	case 'K':
		return shogi.ObtainOu, true
	}
	return 0, false
}

func parseHandsSFEN(hand string, mc *shogi.MochigomaCollections) error {
	if hand == "-" {
		return nil
	}
	count := 0
	for i := 0; i < len(hand); i++ {
		c := hand[i]
		if c >= '0' && c <= '9' {
			count = count*10 + int(c-'0')
			continue
		}
		if count == 0 {
			count = 1
		}
		t := shogi.Sente
		if c >= 'a' && c <= 'z' {
			t = shogi.Gote
			c -= 'a' - 'A'
		}
		o, ok := sfenPiece(c)
		if !ok {
			return fmt.Errorf("%w: unknown hand piece %c", ErrSFEN, c)
		}
		m, ok := o.Mochigoma()
		if !ok {
			return fmt.Errorf("%w: king in hand", ErrSFEN)
		}
		mc.Of(t)[m] += count
		count = 0
	}
	if count != 0 {
		return fmt.Errorf("%w: trailing hand count", ErrSFEN)
	}
	return nil
}

// handOrder is the order hands are written in.
var handOrder = []shogi.MochigomaKind{
	shogi.MochigomaHisha, shogi.MochigomaKaku, shogi.MochigomaKin, shogi.MochigomaGin,
	shogi.MochigomaKei, shogi.MochigomaKyou, shogi.MochigomaFu,
}

// SFEN renders the position with its own move number.
func (p Position) SFEN() string {
	return p.ToSFEN(p.Ply)
}

func (p Position) ToSFEN(moveNumber int) string {
	rows := make([]string, 0, 9)
	for y := 0; y < 9; y++ {
		rows = append(rows, rankToSFEN(&p.Banmen, y))
	}
	turn := "b"
	if p.Turn == shogi.Gote {
		turn = "w"
	}
	hand := buildHands(&p.Hands)
	if hand == "" {
		hand = "-"
	}
	return fmt.Sprintf("%s %s %s %d", strings.Join(rows, "/"), turn, hand, moveNumber)
}

func rankToSFEN(b *shogi.Banmen, y int) string {
	var sb strings.Builder
	empty := 0
	for x := 0; x < 9; x++ {
		k := b[y][x]
		if k == shogi.Blank {
			empty++
			continue
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
			empty = 0
		}
		sb.WriteString(k.String())
	}
	if empty > 0 {
		sb.WriteString(strconv.Itoa(empty))
	}
	return sb.String()
}

func buildHands(mc *shogi.MochigomaCollections) string {
	var sb strings.Builder
	for _, t := range []shogi.Teban{shogi.Sente, shogi.Gote} {
		hand := mc.Get(t)
		for _, k := range handOrder {
			count := hand[k]
			if count == 0 {
				continue
			}
			if count > 1 {
				sb.WriteString(strconv.Itoa(count))
			}
			letter := k.String()
			if t == shogi.Gote {
				letter = strings.ToLower(letter)
			}
			sb.WriteString(letter)
		}
	}
	return sb.String()
}
