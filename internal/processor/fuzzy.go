package processor

import (
	"sort"
	"strings"

	"github.com/seralab/contexture/pkg/config"
)

// FuzzyCandidate is one near-spelling of a query word with its edit
// distance from the original.
type FuzzyCandidate struct {
	Word string
	Dist int
}

// Fuzz enumerates near-spellings of word up to the configured edit
// distance: adjacent transpositions and the configured character
// replacements. The original word is not included; a zero radius yields no
// candidates. Results are sorted by distance, then alphabetically.
func Fuzz(cfg config.FuzzyConfig, word string) []FuzzyCandidate {
	if cfg.MaxDistance <= 0 || word == "" {
		return nil
	}

	seen := map[string]int{word: 0}
	frontier := []string{word}
	for dist := 1; dist <= cfg.MaxDistance; dist++ {
		var next []string
		for _, w := range frontier {
			for _, v := range variants(cfg, w) {
				if _, ok := seen[v]; ok {
					continue
				}
				seen[v] = dist
				next = append(next, v)
			}
		}
		frontier = next
	}

	out := make([]FuzzyCandidate, 0, len(seen)-1)
	for w, d := range seen {
		if d == 0 {
			continue
		}
		out = append(out, FuzzyCandidate{Word: w, Dist: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist != out[j].Dist {
			return out[i].Dist < out[j].Dist
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// variants produces all single-edit neighbours of w.
func variants(cfg config.FuzzyConfig, w string) []string {
	var out []string
	runes := []rune(w)

	if cfg.Swaps {
		for i := 0; i+1 < len(runes); i++ {
			if runes[i] == runes[i+1] {
				continue
			}
			swapped := make([]rune, len(runes))
			copy(swapped, runes)
			swapped[i], swapped[i+1] = swapped[i+1], swapped[i]
			out = append(out, string(swapped))
		}
	}

	for _, pair := range cfg.Replacements {
		from, to := pair[0], pair[1]
		for i := 0; ; {
			j := strings.Index(w[i:], from)
			if j < 0 {
				break
			}
			at := i + j
			out = append(out, w[:at]+to+w[at+len(from):])
			i = at + len(from)
			if i >= len(w) {
				break
			}
		}
	}
	return out
}
