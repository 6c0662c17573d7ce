package usecase

import (
	"context"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
)

// Boilerplate tokens that generators append to most titles. They inflate
// similarity between otherwise distinct titles, so they are stripped before
// comparison.
var boilerplateTokens = map[string]struct{}{
	"shorts":   {},
	"short":    {},
	"viral":    {},
	"fyp":      {},
	"video":    {},
	"official": {},
}

// GuardDecision is the duplicate guard's verdict on one candidate title.
type GuardDecision struct {
	Accepted    bool
	MatchedWith string
	Similarity  float64
}

type IDuplicateGuard interface {
	Check(ctx context.Context, channelID, title string) (*GuardDecision, error)
	Remember(ctx context.Context, channelID, title string) error
}

type duplicateGuard struct {
	historyRepo repository.IDuplicateHistory
	historySize int
	threshold   float64
}

func NewDuplicateGuard(historyRepo repository.IDuplicateHistory, historySize int, threshold float64) IDuplicateGuard {
	return &duplicateGuard{
		historyRepo: historyRepo,
		historySize: historySize,
		threshold:   threshold,
	}
}

// Normalize lowercases the title, strips punctuation and collapses
// whitespace, then drops boilerplate tokens. Comparisons run on this form so
// cosmetic differences cannot defeat the guard.
func Normalize(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := boilerplateTokens[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// Similarity is 1 minus the normalized edit distance between two normalized
// titles. 1.0 means identical, 0.0 means nothing in common.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// Check compares the candidate against the channel's recent history and
// rejects it when any entry is at or above the similarity threshold.
func (g *duplicateGuard) Check(ctx context.Context, channelID, title string) (*GuardDecision, error) {
	recent, err := g.historyRepo.Recent(ctx, channelID, g.historySize)
	if err != nil {
		return nil, model.Transient(err)
	}

	candidate := Normalize(title)
	for _, entry := range recent {
		score := Similarity(candidate, entry.Normalized)
		if score >= g.threshold {
			return &GuardDecision{Accepted: false, MatchedWith: entry.Title, Similarity: score}, nil
		}
	}
	return &GuardDecision{Accepted: true}, nil
}

// Remember records an accepted title after a successful publish.
func (g *duplicateGuard) Remember(ctx context.Context, channelID, title string) error {
	return g.historyRepo.Append(ctx, &model.PublishedTitle{
		ChannelID:  channelID,
		Title:      title,
		Normalized: Normalize(title),
	}, g.historySize)
}
