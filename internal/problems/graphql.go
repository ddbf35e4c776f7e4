package problems

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultGraphQLURL is LeetCode's public GraphQL endpoint.
const DefaultGraphQLURL = "https://leetcode.com/graphql"

const questionQuery = `
query getQuestionDetail($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    questionId
    title
    difficulty
    content
    topicTags {
      name
    }
    codeSnippets {
      lang
      code
    }
    sampleTestCase
    hints
  }
}`

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// GraphQLClient fetches problems straight from LeetCode.
type GraphQLClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewGraphQLClient returns a client for url (DefaultGraphQLURL when empty)
// with a 10 second request timeout.
func NewGraphQLClient(url string) *GraphQLClient {
	if url == "" {
		url = DefaultGraphQLURL
	}
	return &GraphQLClient{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *GraphQLClient) Name() string { return "graphql" }

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Question *struct {
			QuestionID string `json:"questionId"`
			Title      string `json:"title"`
			Difficulty string `json:"difficulty"`
			Content    string `json:"content"`
			TopicTags  []struct {
				Name string `json:"name"`
			} `json:"topicTags"`
			SampleTestCase string   `json:"sampleTestCase"`
			Hints          []string `json:"hints"`
		} `json:"question"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Problem fetches the problem identified by slug.
func (c *GraphQLClient) Problem(ctx context.Context, slug string) (*Problem, error) {
	body, err := json.Marshal(graphQLRequest{
		Query:     questionQuery,
		Variables: map[string]any{"titleSlug": slug},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", "https://leetcode.com/")

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("graphql API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	q := out.Data.Question
	if q == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}

	p := &Problem{
		Title:       q.Title,
		Slug:        slug,
		Difficulty:  Difficulty(q.Difficulty),
		Categories:  make([]string, 0, len(q.TopicTags)),
		Description: q.Content,
		Hints:       q.Hints,
		Constraints: "See description",
		Examples:    q.SampleTestCase,
	}
	for _, t := range q.TopicTags {
		p.Categories = append(p.Categories, t.Name)
	}
	if p.Hints == nil {
		p.Hints = []string{}
	}
	return p, nil
}
