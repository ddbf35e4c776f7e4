package problems

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// Source is one way of looking a problem up by slug.
type Source interface {
	Name() string
	Problem(ctx context.Context, slug string) (*Problem, error)
}

// maxDifficultyDraws bounds how many random problems are fetched while
// looking for one of the requested difficulty.
const maxDifficultyDraws = 5

// PopularSlugs is the curated pool random problems are drawn from.
var PopularSlugs = []string{
	"two-sum", "add-two-numbers", "longest-substring-without-repeating-characters",
	"median-of-two-sorted-arrays", "longest-palindromic-substring", "container-with-most-water",
	"3sum", "letter-combinations-of-a-phone-number", "remove-nth-node-from-end-of-list",
	"valid-parentheses", "merge-two-sorted-lists", "generate-parentheses", "merge-k-sorted-lists",
	"search-in-rotated-sorted-array", "combination-sum", "trapping-rain-water", "permutations",
	"rotate-image", "group-anagrams", "maximum-subarray", "spiral-matrix", "jump-game",
	"merge-intervals", "insert-interval", "unique-paths", "climbing-stairs", "edit-distance",
	"set-matrix-zeroes", "sort-colors", "minimum-window-substring", "subsets", "word-search",
	"largest-rectangle-in-histogram", "decode-ways", "validate-binary-search-tree", "same-tree",
	"binary-tree-level-order-traversal", "maximum-depth-of-binary-tree",
	"construct-binary-tree-from-preorder-and-inorder-traversal", "best-time-to-buy-and-sell-stock",
	"binary-tree-maximum-path-sum", "valid-palindrome", "longest-consecutive-sequence",
	"clone-graph", "word-break", "linked-list-cycle", "reorder-list", "lru-cache",
	"maximum-product-subarray", "find-minimum-in-rotated-sorted-array", "min-stack",
	"house-robber", "number-of-islands", "reverse-linked-list", "course-schedule",
	"implement-trie-prefix-tree", "word-search-ii", "house-robber-ii",
	"kth-largest-element-in-an-array", "contains-duplicate", "invert-binary-tree",
	"kth-smallest-element-in-a-bst", "lowest-common-ancestor-of-a-binary-search-tree",
	"product-of-array-except-self", "sliding-window-maximum", "valid-anagram", "meeting-rooms-ii",
	"missing-number", "alien-dictionary", "encode-and-decode-strings", "find-median-from-data-stream",
	"serialize-and-deserialize-binary-tree", "longest-increasing-subsequence", "coin-change",
	"number-of-connected-components-in-an-undirected-graph", "counting-bits",
	"top-k-frequent-elements", "pacific-atlantic-water-flow",
	"longest-repeating-character-replacement", "subarray-sum-equals-k",
}

// Service resolves problem requests, preferring the MCP source when one is
// configured and falling back to GraphQL when it fails.
type Service struct {
	primary  Source
	fallback Source
	slugs    []string
	intn     func(n int) int
}

// Option configures a Service.
type Option func(*Service)

// WithPrimary puts src in front of the fallback source.
func WithPrimary(src Source) Option {
	return func(s *Service) { s.primary = src }
}

// WithSlugs replaces the random pool.
func WithSlugs(slugs []string) Option {
	return func(s *Service) { s.slugs = slugs }
}

// WithRand replaces the random index function, for deterministic tests.
func WithRand(intn func(n int) int) Option {
	return func(s *Service) { s.intn = intn }
}

// NewService returns a Service backed by fallback, usually a GraphQLClient.
func NewService(fallback Source, opts ...Option) *Service {
	s := &Service{
		fallback: fallback,
		slugs:    PopularSlugs,
		intn:     rand.IntN,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fetch validates req and returns the matching problem. An empty slug
// draws from the popular pool; with a difficulty set, up to five draws are
// tried and the last one is returned even if none matched.
func (s *Service) Fetch(ctx context.Context, req Request) (*Problem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Slug != "" {
		return s.lookup(ctx, req.Slug)
	}
	if len(s.slugs) == 0 {
		return nil, fmt.Errorf("%w: empty problem pool", ErrNotFound)
	}

	var (
		last    *Problem
		lastErr error
	)
	draws := 1
	if req.Difficulty != "" {
		draws = maxDifficultyDraws
	}
	for i := 0; i < draws; i++ {
		slug := s.slugs[s.intn(len(s.slugs))]
		p, err := s.lookup(ctx, slug)
		if err != nil {
			lastErr = err
			continue
		}
		last = p
		if req.Difficulty == "" || p.Difficulty == req.Difficulty {
			return p, nil
		}
	}
	if last != nil {
		slog.DebugContext(ctx, "no problem of requested difficulty in draws",
			"difficulty", req.Difficulty, "draws", draws, "returned", last.Slug)
		return last, nil
	}
	return nil, lastErr
}

// Random returns any problem from the popular pool.
func (s *Service) Random(ctx context.Context) (*Problem, error) {
	return s.Fetch(ctx, Request{})
}

func (s *Service) lookup(ctx context.Context, slug string) (*Problem, error) {
	if s.primary != nil {
		p, err := s.primary.Problem(ctx, slug)
		if err == nil {
			return p, nil
		}
		slog.WarnContext(ctx, "primary problem source failed, falling back",
			"source", s.primary.Name(), "fallback", s.fallback.Name(), "slug", slug, "error", err)
	}
	p, err := s.fallback.Problem(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("fetch problem %q: %w", slug, err)
	}
	return p, nil
}
