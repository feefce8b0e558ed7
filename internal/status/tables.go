package status

import "image/color"

var (
	black  = color.RGBA{A: 255}
	red    = color.RGBA{R: 255, A: 255}
	green  = color.RGBA{G: 255, A: 255}
	blue   = color.RGBA{B: 255, A: 255}
	yellow = color.RGBA{R: 255, G: 255, A: 255}
)

// MaxLevel is the highest value a level display shows.
const MaxLevel = 12

// LevelOrder lists, for each level, the 1-based LED lit when that level is
// reached. Index 0 lights nothing. The order starts at LED 9, descends to
// LED 1, then continues from LED 12 down to LED 10.
var LevelOrder = [MaxLevel + 1]uint8{
	0,
	9, 8, 7, 6, 5, 4, 3, 2, 1,
	12, 11, 10,
}

// BreathTable is the perceptually corrected brightness curve walked by the
// breathing animations, one entry per tick.
var BreathTable = [256]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1,
	1, 1, 2, 2, 2, 2, 2, 3, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 20, 21,
	23, 24, 26, 27, 29, 31, 33, 35, 37, 39, 42, 44, 47, 49, 52, 55,
	58, 61, 64, 67, 71, 74, 78, 82, 86, 90, 94, 98, 103, 107, 112, 117,
	122, 127, 132, 138, 143, 149, 155, 161, 167, 174, 180, 187, 194, 201, 208, 215,
	223, 230, 238, 246, 254, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 254, 246, 238, 230, 223,
	215, 208, 201, 194, 187, 180, 174, 167, 161, 155, 149, 143, 138, 132, 127, 122,
	117, 112, 107, 103, 98, 94, 90, 86, 82, 78, 74, 71, 67, 64, 61, 58,
	55, 52, 49, 47, 44, 42, 39, 37, 35, 33, 31, 29, 27, 26, 24, 23,
	21, 20, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 8, 7, 7,
	6, 6, 5, 5, 4, 4, 3, 3, 3, 2, 2, 2, 2, 2, 1, 1,
	1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}
