package db

import "encoding/binary"

// RankFunction is the SQL name of MatchInfoRank. Call it as
// fts_rank(matchinfo(<fts table>, 'pcx')).
const RankFunction = "fts_rank"

// MatchInfoRank scores a full-text match from an FTS4 matchinfo blob in 'pcx' format.
//
// For every phrase and column the ratio of hits in this row to hits in all rows is summed,
// and the sum is negated. Lower values are more relevant, so results order by score ascending.
// A malformed blob scores 0.
func MatchInfoRank(matchinfo []byte) float64 {
	info := parseMatchInfo(matchinfo)
	if len(info) < 2 {
		return 0
	}

	phrases, columns := int(info[0]), int(info[1])
	var score float64
	for p := 0; p < phrases; p++ {
		phraseIdx := 2 + p*columns*3
		for c := 0; c < columns; c++ {
			colIdx := phraseIdx + c*3
			if colIdx+1 >= len(info) {
				return -score
			}
			hitsThisRow, hitsAllRows := info[colIdx], info[colIdx+1]
			if hitsThisRow > 0 && hitsAllRows > 0 {
				score += float64(hitsThisRow) / float64(hitsAllRows)
			}
		}
	}
	return -score
}

// matchinfo values are 32-bit unsigned integers in machine byte order.
func parseMatchInfo(buf []byte) []uint32 {
	values := make([]uint32, 0, len(buf)/4)
	for i := 0; i+4 <= len(buf); i += 4 {
		values = append(values, binary.NativeEndian.Uint32(buf[i:i+4]))
	}
	return values
}
