// Package matching resolves requested game titles against the canonical
// titles discovered on a source page.
package matching

import (
	"runtime"
	"strings"
	"sync"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum similarity a candidate must reach before a
// requested title is considered matched.
const DefaultThreshold = 85

// Result reports the outcome for one requested title. Canonical and Score
// describe the closest candidate even when Matched is false, so callers can
// surface near misses.
type Result struct {
	Requested string
	Canonical string
	Score     int
	Matched   bool
}

// Matcher scores requested titles against canonical candidates using
// Jaro-Winkler similarity over normalized forms. Jaro-Winkler weights shared
// prefixes heavily, which suits game titles where the opening words are the
// part people get right.
type Matcher struct {
	threshold int
	workers   int
}

// New returns a Matcher that accepts candidates scoring at or above
// threshold on the 0-100 scale. workers bounds concurrent title lookups;
// values below one fall back to the machine's CPU count.
func New(threshold, workers int) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Matcher{threshold: threshold, workers: workers}
}

// Best resolves a single requested title against the candidates.
func (m *Matcher) Best(requested string, candidates []string) Result {
	res := Result{Requested: requested, Score: -1}
	for _, candidate := range candidates {
		if s := Similarity(requested, candidate); s > res.Score {
			res.Score = s
			res.Canonical = candidate
		}
	}
	if res.Score < 0 {
		res.Score = 0
		return res
	}
	res.Matched = res.Score >= m.threshold
	return res
}

// MatchAll resolves every requested title and returns one result per input,
// in input order. Titles are scored concurrently; onProgress, when non-nil,
// is invoked after each title completes with the running completion count.
func (m *Matcher) MatchAll(requested, candidates []string, onProgress func(done int)) []Result {
	results := make([]Result, len(requested))
	if len(requested) == 0 {
		return results
	}

	workers := m.workers
	if workers > len(requested) {
		workers = len(requested)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	jobs := make(chan int)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = m.Best(requested[idx], candidates)
				if onProgress != nil {
					mu.Lock()
					done++
					onProgress(done)
					mu.Unlock()
				}
			}
		}()
	}
	for idx := range requested {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return results
}

// Similarity scores two titles on a 0-100 scale. Titles that normalize to
// the same form always score 100.
func Similarity(a, b string) int {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == nb {
		return 100
	}
	return int(edlib.JaroWinklerSimilarity(na, nb)*100 + 0.5)
}

// apostrophes are removed outright so "Kirby's" and "Kirbys" normalize to
// the same token instead of splitting apart.
var apostrophes = strings.NewReplacer("'", "", "’", "", "‘", "", "`", "")

// normalizeTitle folds diacritics, lowercases, and collapses punctuation so
// cosmetic differences do not depress similarity scores.
func normalizeTitle(s string) string {
	// The transformer is built per call: transform.Chain is not safe for
	// concurrent use.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	s = apostrophes.Replace(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
