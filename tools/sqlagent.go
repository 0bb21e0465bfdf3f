// SQL data agent - answers natural-language questions by generating
// and executing SQL against the datamart.
//
// Information Hiding:
// - SQL generation strategy and step loop hidden behind Invoker
// - Schema introspection and row formatting internalized

package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	jsonutil "github.com/carelinq/datachat/internal/json"
	"github.com/carelinq/datachat/internal/log"
	"github.com/carelinq/datachat/llm"
)

const agentInstruction = `You answer questions about a dataset by writing SQL.

Database schema:
%s

Respond in this JSON format:
{"sql": "SELECT ..."} to run one query, or
{"answer": "..."} once you can answer the question.

Run as few queries as possible. Never modify data.`

// SQLAgent implements Invoker by driving a model through a bounded
// generate-and-execute loop over a SQL database.
type SQLAgent struct {
	provider llm.Provider
	db       *sql.DB
	maxSteps int
	maxRows  int
	logger   log.Logger
}

// OpenDatamart opens the SQLite datamart at the given path.
func OpenDatamart(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open datamart: %w", err)
	}
	return db, nil
}

// NewSQLAgent creates a SQL agent over the given database.
func NewSQLAgent(provider llm.Provider, db *sql.DB, logger log.Logger) *SQLAgent {
	return &SQLAgent{
		provider: provider,
		db:       db,
		maxSteps: 8,
		maxRows:  100,
		logger:   logger,
	}
}

type agentDecision struct {
	SQL    string `json:"sql"`
	Answer string `json:"answer"`
}

// Invoke answers the question. The returned trace starts with the
// schema introspection statement, followed by every query the agent
// attempted, in execution order.
func (a *SQLAgent) Invoke(ctx context.Context, question string) (Invocation, error) {
	const introspection = "SELECT name, sql FROM sqlite_master WHERE type = 'table'"

	schema, err := a.schema(ctx, introspection)
	if err != nil {
		return Invocation{}, err
	}
	trace := []string{introspection}

	system := fmt.Sprintf(agentInstruction, schema)
	messages := []llm.Message{llm.UserText(question)}

	for step := 0; step < a.maxSteps; step++ {
		response, err := a.provider.Generate(ctx, messages, system)
		if err != nil {
			return Invocation{}, fmt.Errorf("sql agent model call failed: %w", err)
		}

		decision, err := jsonutil.ExtractJSONFromResponse[agentDecision](response.Text)
		if err != nil {
			messages = append(messages, llm.ModelText(response.Text),
				llm.UserText("Respond with a single JSON object containing either \"sql\" or \"answer\"."))
			continue
		}

		if decision.Answer != "" {
			return Invocation{Answer: decision.Answer, QueryTrace: trace}, nil
		}
		if decision.SQL == "" {
			messages = append(messages, llm.ModelText(response.Text),
				llm.UserText("Provide either \"sql\" or \"answer\"."))
			continue
		}

		trace = append(trace, decision.SQL)
		observation, err := a.runQuery(ctx, decision.SQL)
		if err != nil {
			observation = fmt.Sprintf("Query failed: %v", err)
		}
		a.logger.Debug("sql agent query", "step", step, "rows", strings.Count(observation, "\n"))

		messages = append(messages, llm.ModelText(response.Text),
			llm.UserText(fmt.Sprintf("Result:\n%s", observation)))
	}

	return Invocation{}, fmt.Errorf("no answer after %d steps", a.maxSteps)
}

// schema returns the introspected table definitions as text.
func (a *SQLAgent) schema(ctx context.Context, introspection string) (string, error) {
	rows, err := a.db.QueryContext(ctx, introspection)
	if err != nil {
		return "", fmt.Errorf("schema introspection failed: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var name string
		var ddl sql.NullString
		if err := rows.Scan(&name, &ddl); err != nil {
			return "", fmt.Errorf("schema introspection failed: %w", err)
		}
		if ddl.Valid {
			b.WriteString(ddl.String)
			b.WriteString("\n")
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("schema introspection failed: %w", err)
	}
	return b.String(), nil
}

// runQuery executes one query and renders up to maxRows rows as
// tab-separated text.
func (a *SQLAgent) runQuery(ctx context.Context, query string) (string, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.Join(columns, "\t"))
	b.WriteString("\n")

	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	count := 0
	for rows.Next() && count < a.maxRows {
		if err := rows.Scan(scanTargets...); err != nil {
			return "", err
		}
		fields := make([]string, len(values))
		for i, v := range values {
			switch val := v.(type) {
			case nil:
				fields[i] = "NULL"
			case []byte:
				fields[i] = string(val)
			default:
				fields[i] = fmt.Sprint(val)
			}
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Verify SQLAgent implements Invoker
var _ Invoker = (*SQLAgent)(nil)
