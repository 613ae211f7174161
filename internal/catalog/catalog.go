// Package catalog reduces raw archive links to the canonical titles they
// represent and groups regional release variants under each title.
package catalog

import (
	"net/url"
	"regexp"
	"strings"
)

// Link is an absolute, percent-decoded URL pointing at one downloadable
// archive.
type Link string

// Filename returns the last path segment of the link.
func (l Link) Filename() string {
	s := string(l)
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

var parenGroups = regexp.MustCompile(`\s*\([^)]*\)`)

// CanonicalName reduces an archive filename to the bare title shared by all
// regional and revision variants: every parenthesized tag and the trailing
// .zip extension are stripped. The result is stable under re-application.
func CanonicalName(filename string) string {
	name := parenGroups.ReplaceAllString(filename, "")
	name = strings.TrimSuffix(name, ".zip")
	return strings.TrimSpace(name)
}

// Catalog indexes the archive links of one source page by canonical title,
// restricted to a single region.
type Catalog struct {
	region string
	titles []string
	groups map[string][]Link
}

// Build keeps the links whose filename carries the literal region tag and
// groups the survivors by canonical title. Title order and the variant order
// inside each group both follow discovery order, so repeated builds over the
// same listing stay deterministic.
func Build(links []Link, region string) *Catalog {
	tag := "(" + region + ")"
	c := &Catalog{
		region: region,
		groups: make(map[string][]Link),
	}
	for _, link := range links {
		name := link.Filename()
		if !strings.Contains(name, tag) {
			continue
		}
		title := CanonicalName(name)
		if _, seen := c.groups[title]; !seen {
			c.titles = append(c.titles, title)
		}
		c.groups[title] = append(c.groups[title], link)
	}
	return c
}

// Region returns the tag the catalog was filtered on.
func (c *Catalog) Region() string {
	return c.region
}

// Titles returns the canonical titles in discovery order.
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.titles))
	copy(out, c.titles)
	return out
}

// Variants returns the links grouped under the given canonical title.
func (c *Catalog) Variants(title string) []Link {
	return c.groups[title]
}

// Len reports the number of canonical titles in the catalog.
func (c *Catalog) Len() int {
	return len(c.titles)
}
