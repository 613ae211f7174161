// Package variant picks the preferred release among the grouped variants of
// one canonical title.
package variant

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/angstwad/retro-rom-downloader/internal/catalog"
)

// prereleaseTags mark unfinished dumps. A filename containing any of them
// takes a single penalty regardless of how many appear.
var prereleaseTags = []string{"(beta", "(proto", "(sample)"}

var revisionTag = regexp.MustCompile(`\(rev (\d+)\)`)

// Select returns the preferred link among the candidates. Later revisions
// outrank the base release, pre-release dumps rank below it, and ties keep
// the earliest candidate. ok is false only when candidates is empty.
func Select(candidates []catalog.Link) (best catalog.Link, ok bool) {
	highest := -1
	for _, candidate := range candidates {
		if s := score(candidate); s > highest {
			highest = s
			best = candidate
			ok = true
		}
	}
	return best, ok
}

func score(link catalog.Link) int {
	filename := strings.ToLower(link.Filename())
	score := 100
	for _, tag := range prereleaseTags {
		if strings.Contains(filename, tag) {
			score -= 50
			break
		}
	}
	if m := revisionTag.FindStringSubmatch(filename); m != nil {
		if rev, err := strconv.Atoi(m[1]); err == nil {
			score += rev
		}
	}
	return score
}
