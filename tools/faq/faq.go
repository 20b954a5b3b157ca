// Package faq provides a keyword lookup tool over a static FAQ table.
package faq

import (
	"context"
	"strings"

	"github.com/parley-ai/parley/tools"
)

const ToolName = "faq_lookup"

// Entry is a single question and answer pair.
type Entry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords,omitempty"`
}

// Request represents the tool input.
type Request struct {
	Query string `json:"query" jsonschema:"title=Query,description=The question or keywords to look up."`
}

// Response represents the tool output. A miss carries an empty answer and no
// results, which downstream normalization reports as not found.
type Response struct {
	Answer  string  `json:"answer"`
	Results []Entry `json:"results"`
}

// New creates the FAQ tool over the given entries.
func New(entries []Entry) (tools.Tool[Request, Response], error) {
	t := &table{entries: entries}
	return tools.NewTool(ToolName,
		"Answers common questions from a curated FAQ. Returns an empty answer when no entry matches.",
		t.run)
}

type table struct {
	entries []Entry
}

func (t *table) run(_ context.Context, req *Request) (*Response, error) {
	query := strings.ToLower(strings.TrimSpace(req.Query))
	res := &Response{Results: []Entry{}}
	if query == "" {
		return res, nil
	}

	terms := strings.Fields(query)
	for _, e := range t.entries {
		if matches(e, terms) {
			res.Results = append(res.Results, e)
		}
	}
	if len(res.Results) > 0 {
		res.Answer = res.Results[0].Answer
	}
	return res, nil
}

func matches(e Entry, terms []string) bool {
	haystack := strings.ToLower(e.Question + " " + strings.Join(e.Keywords, " "))
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
