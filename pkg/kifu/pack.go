package kifu

import (
	"errors"
	"fmt"

	"shogirule/pkg/shogi"
)

// Packed256 is a position squeezed into 256 bits: side to move, both king
// squares, a Huffman code per remaining square and the hand pieces. Only
// positions holding the full set of forty pieces fill it exactly.
type Packed256 struct {
	Words [4]uint64
}

var ErrPack = errors.New("cannot pack position")

type bitWriter256 struct {
	words [4]uint64
	pos   int
}

type bitReader256 struct {
	words [4]uint64
	pos   int
}

type codeSpec struct {
	kind    shogi.ObtainKind
	bits    uint64
	bitLen  int
	isEmpty bool
}

type codeBook struct {
	byLen  map[int]map[uint64]codeSpec
	byKind map[shogi.ObtainKind]codeSpec
	empty  codeSpec
	maxLen int
}

var boardCodes = []codeSpec{
	{bits: 0b0, bitLen: 1, isEmpty: true},
	{kind: shogi.ObtainFu, bits: 0b01, bitLen: 2},
	{kind: shogi.ObtainKyou, bits: 0b0011, bitLen: 4},
	{kind: shogi.ObtainKei, bits: 0b1011, bitLen: 4},
	{kind: shogi.ObtainGin, bits: 0b0111, bitLen: 4},
	{kind: shogi.ObtainKin, bits: 0b01111, bitLen: 5},
	{kind: shogi.ObtainKaku, bits: 0b011111, bitLen: 6},
	{kind: shogi.ObtainHisha, bits: 0b111111, bitLen: 6},
}

var handCodes = []codeSpec{
	{kind: shogi.ObtainFu, bits: 0b0, bitLen: 1},
	{kind: shogi.ObtainKyou, bits: 0b001, bitLen: 3},
	{kind: shogi.ObtainKei, bits: 0b101, bitLen: 3},
	{kind: shogi.ObtainGin, bits: 0b011, bitLen: 3},
	{kind: shogi.ObtainKin, bits: 0b0111, bitLen: 4},
	{kind: shogi.ObtainKaku, bits: 0b01111, bitLen: 5},
	{kind: shogi.ObtainHisha, bits: 0b11111, bitLen: 5},
}

var boardCodeBook = buildCodeBook(boardCodes)
var handCodeBook = buildCodeBook(handCodes)

func PackPosition256(pos Position) (Packed256, error) {
	writer := &bitWriter256{}

	turnBit := uint64(0)
	if pos.Turn == shogi.Gote {
		turnBit = 1
	}
	if err := writer.writeBit(turnBit); err != nil {
		return Packed256{}, err
	}

	senteOu, goteOu, err := kingSquares(&pos.Banmen)
	if err != nil {
		return Packed256{}, err
	}
	if err := writer.writeBits(uint64(senteOu), 7); err != nil {
		return Packed256{}, err
	}
	if err := writer.writeBits(uint64(goteOu), 7); err != nil {
		return Packed256{}, err
	}

	for sq := 0; sq < 81; sq++ {
		if sq == senteOu || sq == goteOu {
			continue
		}
		k := pos.Banmen.At(sq)
		if k == shogi.Blank {
			if err := writer.writeCode(boardCodeBook.empty); err != nil {
				return Packed256{}, err
			}
			continue
		}
		o, _ := k.Unnari().Obtain()
		code, ok := boardCodeBook.byKind[o]
		if !ok {
			return Packed256{}, fmt.Errorf("%w: unexpected %v at square %d", ErrPack, k, sq)
		}
		if err := writer.writeCode(code); err != nil {
			return Packed256{}, err
		}
		if err := writer.writeColor(k.IsGote()); err != nil {
			return Packed256{}, err
		}
		if o != shogi.ObtainKin {
			if err := writer.writeFlag(k.IsNari()); err != nil {
				return Packed256{}, err
			}
		}
	}

	for _, t := range []shogi.Teban{shogi.Sente, shogi.Gote} {
		hand := pos.Hands.Get(t)
		for _, m := range shogi.MochigomaKinds {
			code := handCodeBook.byKind[shogi.ObtainKind(m)]
			for i := 0; i < hand[m]; i++ {
				if err := writer.writeCode(code); err != nil {
					return Packed256{}, err
				}
				if err := writer.writeColor(t == shogi.Gote); err != nil {
					return Packed256{}, err
				}
				if m != shogi.MochigomaKin {
					if err := writer.writeFlag(false); err != nil {
						return Packed256{}, err
					}
				}
			}
		}
	}

	if writer.pos != 256 {
		return Packed256{}, fmt.Errorf("%w: packed length is %d bits, expected 256", ErrPack, writer.pos)
	}

	return Packed256{Words: writer.words}, nil
}

func UnpackPosition256(p Packed256) (Position, error) {
	reader := &bitReader256{words: p.Words}

	turnBit, err := reader.readBit()
	if err != nil {
		return Position{}, err
	}
	pos := Position{Banmen: shogi.EmptyBanmen(), Turn: shogi.Sente, Ply: 1}
	if turnBit == 1 {
		pos.Turn = shogi.Gote
	}

	senteOu, err := reader.readBits(7)
	if err != nil {
		return Position{}, err
	}
	goteOu, err := reader.readBits(7)
	if err != nil {
		return Position{}, err
	}
	if senteOu == goteOu || senteOu > 80 || goteOu > 80 {
		return Position{}, fmt.Errorf("%w: king squares %d and %d", ErrPack, senteOu, goteOu)
	}
	pos.Banmen[senteOu%9][senteOu/9] = shogi.SOu
	pos.Banmen[goteOu%9][goteOu/9] = shogi.GOu

	for sq := 0; sq < 81; sq++ {
		if sq == int(senteOu) || sq == int(goteOu) {
			continue
		}
		code, err := reader.readCode(boardCodeBook)
		if err != nil {
			return Position{}, err
		}
		if code.isEmpty {
			continue
		}
		t, err := reader.readColor()
		if err != nil {
			return Position{}, err
		}
		k := shogi.NewKomaKind(t, code.kind)
		if code.kind != shogi.ObtainKin {
			promoted, err := reader.readBit()
			if err != nil {
				return Position{}, err
			}
			if promoted == 1 {
				k = k.Nari()
			}
		}
		pos.Banmen[sq%9][sq/9] = k
	}

	for reader.pos < 256 {
		code, err := reader.readCode(handCodeBook)
		if err != nil {
			return Position{}, err
		}
		t, err := reader.readColor()
		if err != nil {
			return Position{}, err
		}
		m, _ := code.kind.Mochigoma()
		if m != shogi.MochigomaKin {
			promoted, err := reader.readBit()
			if err != nil {
				return Position{}, err
			}
			if promoted != 0 {
				return Position{}, fmt.Errorf("%w: promoted %v in hand", ErrPack, m)
			}
		}
		pos.Hands.Of(t).Put(m)
	}

	return pos, nil
}

func buildCodeBook(codes []codeSpec) codeBook {
	book := codeBook{
		byLen:  map[int]map[uint64]codeSpec{},
		byKind: map[shogi.ObtainKind]codeSpec{},
	}
	for _, code := range codes {
		if book.byLen[code.bitLen] == nil {
			book.byLen[code.bitLen] = map[uint64]codeSpec{}
		}
		book.byLen[code.bitLen][code.bits] = code
		if code.isEmpty {
			book.empty = code
		} else {
			book.byKind[code.kind] = code
		}
		if code.bitLen > book.maxLen {
			book.maxLen = code.bitLen
		}
	}
	return book
}

func (w *bitWriter256) writeBit(bit uint64) error {
	if w.pos >= 256 {
		return fmt.Errorf("%w: bitstream overflow", ErrPack)
	}
	word := w.pos / 64
	offset := uint(w.pos % 64)
	if bit != 0 {
		w.words[word] |= 1 << offset
	}
	w.pos++
	return nil
}

func (w *bitWriter256) writeBits(value uint64, bitLen int) error {
	for i := 0; i < bitLen; i++ {
		if err := w.writeBit((value >> i) & 1); err != nil {
			return err
		}
	}
	return nil
}

func (w *bitWriter256) writeCode(code codeSpec) error {
	return w.writeBits(code.bits, code.bitLen)
}

func (w *bitWriter256) writeFlag(v bool) error {
	if v {
		return w.writeBit(1)
	}
	return w.writeBit(0)
}

func (w *bitWriter256) writeColor(gote bool) error {
	return w.writeFlag(gote)
}

func (r *bitReader256) readBit() (uint64, error) {
	if r.pos >= 256 {
		return 0, fmt.Errorf("%w: bitstream underflow", ErrPack)
	}
	word := r.pos / 64
	offset := uint(r.pos % 64)
	bit := (r.words[word] >> offset) & 1
	r.pos++
	return bit, nil
}

func (r *bitReader256) readBits(bitLen int) (uint64, error) {
	var value uint64
	for i := 0; i < bitLen; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		value |= bit << i
	}
	return value, nil
}

func (r *bitReader256) readCode(book codeBook) (codeSpec, error) {
	var value uint64
	for length := 1; length <= book.maxLen; length++ {
		bit, err := r.readBit()
		if err != nil {
			return codeSpec{}, err
		}
		value |= bit << (length - 1)
		if entry, ok := book.byLen[length][value]; ok {
			return entry, nil
		}
	}
	return codeSpec{}, fmt.Errorf("%w: invalid code", ErrPack)
}

func (r *bitReader256) readColor() (shogi.Teban, error) {
	bit, err := r.readBit()
	if err != nil {
		return shogi.Sente, err
	}
	if bit == 1 {
		return shogi.Gote, nil
	}
	return shogi.Sente, nil
}

func kingSquares(b *shogi.Banmen) (int, int, error) {
	sente, gote := -1, -1
	for sq := 0; sq < 81; sq++ {
		switch b.At(sq) {
		case shogi.SOu:
			if sente != -1 {
				return 0, 0, fmt.Errorf("%w: multiple sente kings", ErrPack)
			}
			sente = sq
		case shogi.GOu:
			if gote != -1 {
				return 0, 0, fmt.Errorf("%w: multiple gote kings", ErrPack)
			}
			gote = sq
		}
	}
	if sente == -1 || gote == -1 {
		return 0, 0, fmt.Errorf("%w: missing king", ErrPack)
	}
	return sente, gote, nil
}
