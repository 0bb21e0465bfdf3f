// Package tools provides the data-tool boundary for the conversation
// engine: the invoker contract, query-trace shaping, and the tool
// declaration the model sees.
//
// Information Hiding:
// - How a question is answered (SQL generation, execution) is hidden
//   behind the Invoker interface
// - Trace shaping rules are internalized here
package tools

import (
	"context"
	"fmt"
	"strings"
)

// DataToolName is the single recognized tool name. Any other name in a
// model tool request is an unrecognized-tool condition.
const DataToolName = "get_diabetes_data_output"

// QuestionArg is the tool argument carrying the question text.
const QuestionArg = "question"

// Invocation is an invoker run: the answer plus the ordered trace of
// execution steps. The first step is the schema introspection, not an
// executed query.
type Invocation struct {
	Answer     string
	QueryTrace []string
}

// Invoker answers natural-language questions by executing queries
// against a dataset.
type Invoker interface {
	Invoke(ctx context.Context, question string) (Invocation, error)
}

// DedupeQueries collapses duplicate query strings by exact text match,
// preserving first-seen order.
func DedupeQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	result := make([]string, 0, len(queries))
	for _, q := range queries {
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		result = append(result, q)
	}
	return result
}

// TrimIntrospection drops the leading trace step. The invoker records
// schema introspection as step one, which is not an executed query.
func TrimIntrospection(trace []string) []string {
	if len(trace) == 0 {
		return trace
	}
	return trace[1:]
}

// LabelQueries prefixes each query with its position for citation.
func LabelQueries(queries []string) []string {
	labeled := make([]string, len(queries))
	for i, q := range queries {
		labeled[i] = fmt.Sprintf("Query %d:\n%s", i+1, q)
	}
	return labeled
}

// ResultPayload is the tool-response payload shown back to the model.
type ResultPayload struct {
	QueriesUsedForAnswer string `json:"queries_used_for_answer"`
	Answer               string `json:"answer"`
}

// ResultOptions controls how an invocation becomes a payload.
type ResultOptions struct {
	// TrimIntrospection drops the invocation's leading trace step
	// before deduplication.
	TrimIntrospection bool

	// CiteQueries appends an instruction asking the model to
	// summarize the answer and cite the queries it relied on.
	CiteQueries bool
}

// BuildResult shapes an invocation into the payload embedded in the
// synthetic tool-response turn: trace trimmed (optionally),
// deduplicated in first-seen order, and labeled.
func BuildResult(inv Invocation, opts ResultOptions) ResultPayload {
	trace := inv.QueryTrace
	if opts.TrimIntrospection {
		trace = TrimIntrospection(trace)
	}
	queries := LabelQueries(DedupeQueries(trace))

	cited := fmt.Sprintf("[%s]", strings.Join(queries, ", "))
	answer := fmt.Sprintf("The answer is %s. The queries used to get this answer are:\n%s", inv.Answer, cited)
	if opts.CiteQueries {
		answer += "\nSummarize the answer for the user and cite the queries used."
	}

	return ResultPayload{
		QueriesUsedForAnswer: cited,
		Answer:               answer,
	}
}
