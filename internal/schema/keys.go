package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/seralab/contexture/internal/analyzer"
)

// PadInt maps a canonical integer term to a 20-digit, order-preserving
// inner key: the value is offset into unsigned space by flipping the sign
// bit, then zero-padded. Lexicographic order of inner keys equals numeric
// order of the terms.
func PadInt(outer string) string {
	n, err := strconv.ParseInt(outer, 10, 64)
	if err != nil {
		// Normalization runs before keys reach the proxy; a malformed
		// term here is a broken invariant.
		panic(fmt.Sprintf("schema: padding non-integer key %q", outer))
	}
	return fmt.Sprintf("%020d", uint64(n)^(1<<63))
}

// UnpadInt inverts PadInt.
func UnpadInt(inner string) string {
	u, err := strconv.ParseUint(inner, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("schema: unpadding malformed key %q", inner))
	}
	return strconv.FormatInt(int64(u^(1<<63)), 10)
}

// InterleavePos maps a canonical "lat,lon" term to an interleaved
// digit string. Latitude and longitude are shifted to non-negative
// micro-degrees, zero-padded to nine digits, and their digits alternated,
// so a shared prefix of the inner key means spatial proximity.
func InterleavePos(outer string) string {
	lat, lon, err := analyzer.ParseLatLon(outer)
	if err != nil {
		panic(fmt.Sprintf("schema: interleaving malformed position %q", outer))
	}
	latDigits := fmt.Sprintf("%09d", int64(math.Round((lat+90)*1e6)))
	lonDigits := fmt.Sprintf("%09d", int64(math.Round((lon+180)*1e6)))
	var b strings.Builder
	b.Grow(18)
	for i := 0; i < 9; i++ {
		b.WriteByte(latDigits[i])
		b.WriteByte(lonDigits[i])
	}
	return b.String()
}

// DeinterleavePos inverts InterleavePos back to the canonical
// fixed-precision "lat,lon" form.
func DeinterleavePos(inner string) string {
	if len(inner) != 18 {
		panic(fmt.Sprintf("schema: deinterleaving malformed key %q", inner))
	}
	var latDigits, lonDigits strings.Builder
	for i := 0; i < 18; i += 2 {
		latDigits.WriteByte(inner[i])
		lonDigits.WriteByte(inner[i+1])
	}
	latMicro, _ := strconv.ParseInt(latDigits.String(), 10, 64)
	lonMicro, _ := strconv.ParseInt(lonDigits.String(), 10, 64)
	return fmt.Sprintf("%.6f,%.6f", float64(latMicro)/1e6-90, float64(lonMicro)/1e6-180)
}
