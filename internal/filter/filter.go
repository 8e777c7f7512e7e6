// Package filter implements the job eligibility pipeline: an ordered set of
// pure predicate checks over a posting's title and location. All matching is
// case-insensitive; malformed or missing fields degrade to empty strings and
// evaluation never errors.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-johnnyhe/jobs/internal/domain"
)

// Rules holds the static keyword and pattern tables the filter evaluates
// against. Tables are passed in explicitly (usually from config) so multiple
// rule sets can coexist and each is independently testable.
type Rules struct {
	// TitleExclusions are lower-cased substrings marking non-SWE roles.
	TitleExclusions []string
	// TitleKeywords are new-grad / entry-level indicator phrases.
	TitleKeywords []string
	// RoleKeywords is the at-least-one vocabulary for SWE roles, used by
	// the career-page path where arbitrary links get scraped.
	RoleKeywords []string
	// SeniorityExclusions are keyword phrases indicating a senior role.
	SeniorityExclusions []string
	// SeniorityExclusionPatterns are regexes for numeric and roman-numeral
	// levels and years-of-experience indicators. Numeric patterns must stay
	// scoped to single digits 2-9 so graduation years (2024-2026) never
	// trigger them.
	SeniorityExclusionPatterns []string
	// PreferredLocations is the allow-list; empty means all locations pass.
	PreferredLocations []string
	// BlockedLocations is the deny-list of non-US region tokens.
	BlockedLocations []string
}

// Filter evaluates postings against a compiled rule set.
type Filter struct {
	rules Rules

	seniorityPatterns []*regexp.Regexp
	preferred         []*regexp.Regexp
	blocked           []*regexp.Regexp
	usQualifier       *regexp.Regexp
	levelOne          *regexp.Regexp
}

// usQualifierExpr matches the US variants ("US", "U.S.", "USA", "U.S.A.",
// "United States", "America") with word boundaries, so e.g. "campus" does
// not count as a US mention.
const usQualifierExpr = `\bus\b|\bu\.s\.|\bunited states\b|\busa\b|\bu\.s\.a\.|\bamerica\b`

// levelOneExpr is the explicit level-1 escape: titles like "SDE I - New Grad"
// pass even when a seniority pattern also fired.
const levelOneExpr = `\b(?:sde|swe|engineer|developer)\s*[i1]\b`

// New compiles a rule set. Pattern compile errors surface here so that a bad
// configuration fails at startup rather than during evaluation.
func New(rules Rules) (*Filter, error) {
	f := &Filter{
		rules:       rules,
		usQualifier: regexp.MustCompile(usQualifierExpr),
		levelOne:    regexp.MustCompile(levelOneExpr),
	}

	for _, pattern := range rules.SeniorityExclusionPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid seniority pattern %q: %w", pattern, err)
		}
		f.seniorityPatterns = append(f.seniorityPatterns, re)
	}

	for _, loc := range rules.PreferredLocations {
		f.preferred = append(f.preferred, wordBoundaryPattern(loc))
	}
	for _, loc := range rules.BlockedLocations {
		f.blocked = append(f.blocked, wordBoundaryPattern(loc))
	}

	return f, nil
}

// wordBoundaryPattern builds a word-boundary matcher for a location token.
// "us" gets special treatment so it matches "U.S." and "U.S.A." but never
// the inside of words like "campus".
func wordBoundaryPattern(token string) *regexp.Regexp {
	lower := strings.ToLower(token)
	if lower == "us" {
		return regexp.MustCompile(`\bu\.?s\.?(?:a\.?)?\b`)
	}
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(lower) + `\b`)
}

// HasExcludedTitle reports whether the title names a non-SWE role such as
// Sales/Solutions Engineer, mobile, QA or hardware. Data/ML/AI and
// DevOps/SRE/Platform titles are intentionally not excluded.
func (f *Filter) HasExcludedTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, exclusion := range f.rules.TitleExclusions {
		if strings.Contains(lower, exclusion) {
			return true
		}
	}
	return false
}

// HasNewGradIndicator reports whether the title carries an explicit
// new-grad / entry-level keyword.
func (f *Filter) HasNewGradIndicator(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range f.rules.TitleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// HasRoleKeyword reports whether the title mentions software engineering
// at all. Used on the career-page path where arbitrary page links are
// candidates.
func (f *Filter) HasRoleKeyword(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range f.rules.RoleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsSeniorLevel reports whether the title indicates a non-entry-level
// position: seniority keywords, roman numerals II-V, numeric levels
// (SDE 2, L4+, Level 4+) or years-of-experience requirements. "SDE I",
// "L3", a bare "I"/"1" and graduation years 2024-2026 do not count.
func (f *Filter) IsSeniorLevel(title string) bool {
	lower := strings.ToLower(title)

	for _, kw := range f.rules.SeniorityExclusions {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range f.seniorityPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// HasBlockedLocation reports whether the location falls in a blocked,
// non-US region. "Remote" gets special treatment:
//
//   - remote + US qualifier is never blocked, and skips the general scan
//   - remote + a blocked-region token is blocked
//   - bare "Remote" with nothing else is blocked
//   - remote + an unrecognized but non-blocked qualifier passes this rule
func (f *Filter) HasBlockedLocation(location string) bool {
	if location == "" {
		return false
	}
	lower := strings.ToLower(location)

	if strings.Contains(lower, "remote") {
		if f.usQualifier.MatchString(lower) {
			return false
		}
		for _, re := range f.blocked {
			if re.MatchString(lower) {
				return true
			}
		}
		residual := strings.Trim(strings.ReplaceAll(lower, "remote", ""), " -,/")
		return residual == ""
	}

	for _, re := range f.blocked {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// MatchesLocation reports whether the location matches at least one
// preferred location by word boundary. An empty location and an empty
// allow-list both pass.
func (f *Filter) MatchesLocation(location string) bool {
	if len(f.preferred) == 0 || location == "" {
		return true
	}
	lower := strings.ToLower(location)
	for _, re := range f.preferred {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// Options tune MatchesCriteria for the ingestion path in use.
type Options struct {
	// RequireLocation rejects empty locations unless the title carries a
	// new-grad indicator. Used for generically scraped jobs where the
	// location could not be extracted.
	RequireLocation bool
}

// MatchesCriteria runs the full pipeline over a posting, short-circuiting
// on the first rejection:
//
//  1. title exclusions (fast fail for non-SWE roles)
//  2. seniority, with the level-1 escape for explicit new-grad titles
//  3. blocked locations
//  4. preferred locations
//  5. empty-location handling per Options
//
// A new-grad indicator loosens the empty-location rule but never bypasses
// the seniority check outright.
func (f *Filter) MatchesCriteria(job domain.JobPosting, opts Options) bool {
	title := strings.ToLower(job.Title)

	if f.HasExcludedTitle(title) {
		return false
	}

	isNewGrad := f.HasNewGradIndicator(title)

	if f.IsSeniorLevel(title) {
		if !isNewGrad {
			return false
		}
		// "SDE I - New Grad" trips the seniority patterns as a false
		// alarm; the explicit level-1 escape lets it through while
		// "Senior Engineer - New Grad Program" stays rejected.
		if !f.levelOne.MatchString(title) {
			return false
		}
	}

	if f.HasBlockedLocation(job.Location) {
		return false
	}

	if job.Location != "" {
		if !f.MatchesLocation(job.Location) {
			return false
		}
	} else if opts.RequireLocation && !isNewGrad {
		return false
	}

	return true
}
