package shogi

// The rank view stores square (x,y) at rotated square y*9+(8-x), so a rank
// becomes a nine-bit field in the same layout as a file.
var RotateMap [81]int

// DiagLeftRotateMap and DiagRightRotateMap give the bit a square occupies in
// lane 0 (x-y constant) and lane 1 (x+y constant) of the diagonal view. Only
// the 7x7 interior is stored; edge squares always end a ray and map to -1.
var (
	DiagLeftRotateMap  [81]int
	DiagRightRotateMap [81]int
)

// diagSlideInfo locates a square on its diagonal: the lane offset of the
// line's first interior square, the square's position along the line and the
// line length.
type diagSlideInfo struct {
	offset int
	pos    int
	width  int
	line   int
}

var (
	diagLeftSlideInfo  [81]diagSlideInfo
	diagRightSlideInfo [81]diagSlideInfo
	diagLeftLines      [][]int
	diagRightLines     [][]int
)

type direction int

const (
	dirTop direction = iota
	dirBottom
	dirLeft
	dirRight
	dirLeftTop
	dirRightTop
	dirLeftBottom
	dirRightBottom
	directionCount
)

var directionDelta = [directionCount][2]int{
	dirTop:         {0, -1},
	dirBottom:      {0, 1},
	dirLeft:        {-1, 0},
	dirRight:       {1, 0},
	dirLeftTop:     {-1, -1},
	dirRightTop:    {1, -1},
	dirLeftBottom:  {-1, 1},
	dirRightBottom: {1, 1},
}

// rays holds, per direction and square, the squares walked in order up to
// the board edge.
var rays [directionCount][81][]int

func init() {
	for x := 0; x < 9; x++ {
		for y := 0; y < 9; y++ {
			RotateMap[x*9+y] = y*9 + (8 - x)
		}
	}

	diagLeftLines = buildDiagLines(1, 1)
	diagRightLines = buildDiagLines(1, -1)
	fillDiagTables(diagLeftLines, &DiagLeftRotateMap, &diagLeftSlideInfo)
	fillDiagTables(diagRightLines, &DiagRightRotateMap, &diagRightSlideInfo)

	for d := direction(0); d < directionCount; d++ {
		dx, dy := directionDelta[d][0], directionDelta[d][1]
		for sq := 0; sq < 81; sq++ {
			x, y := sq/9+dx, sq%9+dy
			var ray []int
			for x >= 0 && x < 9 && y >= 0 && y < 9 {
				ray = append(ray, x*9+y)
				x += dx
				y += dy
			}
			rays[d][sq] = ray
		}
	}
}

// buildDiagLines enumerates every line of direction (dx,dy) with dx=1, each
// ordered by increasing x.
func buildDiagLines(dx, dy int) [][]int {
	var lines [][]int
	for sq := 0; sq < 81; sq++ {
		x, y := sq/9, sq%9
		px, py := x-dx, y-dy
		if px >= 0 && px < 9 && py >= 0 && py < 9 {
			continue
		}
		var line []int
		for x >= 0 && x < 9 && y >= 0 && y < 9 {
			line = append(line, x*9+y)
			x += dx
			y += dy
		}
		lines = append(lines, line)
	}
	return lines
}

func fillDiagTables(lines [][]int, rotate *[81]int, info *[81]diagSlideInfo) {
	for i := range rotate {
		rotate[i] = -1
	}
	offset := 0
	for li, line := range lines {
		width := len(line)
		for pos, sq := range line {
			info[sq] = diagSlideInfo{offset: offset, pos: pos, width: width, line: li}
			if pos > 0 && pos < width-1 {
				rotate[sq] = offset + pos - 1
			}
		}
		if width > 2 {
			offset += width - 2
		}
	}
	if offset > 64 {
		panic("diagonal view does not fit in a lane")
	}
}

// toggleRotated flips sq in the rank view and both diagonal views.
func toggleRotated(rotate, diag *Bitboard, sq int) {
	rotate.Toggle(RotateMap[sq])
	if b := DiagLeftRotateMap[sq]; b >= 0 {
		diag.Lo ^= 1 << uint(b)
	}
	if b := DiagRightRotateMap[sq]; b >= 0 {
		diag.Hi ^= 1 << uint(b)
	}
}
