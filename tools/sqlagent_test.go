package tools

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/carelinq/datachat/internal/log"
	"github.com/carelinq/datachat/llm"
)

// scriptedProvider replays fixed text responses and records prompts.
type scriptedProvider struct {
	responses []string
	err       error
	calls     int
	systems   []string
	prompts   [][]llm.Message
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Generate(ctx context.Context, messages []llm.Message, system string) (llm.Response, error) {
	p.systems = append(p.systems, system)
	p.prompts = append(p.prompts, messages)
	if p.err != nil {
		return llm.Response{}, p.err
	}
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		return llm.Response{}, errors.New("script exhausted")
	}
	return llm.Response{Text: p.responses[i]}, nil
}

func (p *scriptedProvider) GenerateWithTools(ctx context.Context, messages []llm.Message, system string, defs []llm.ToolDefinition) (llm.Response, error) {
	return p.Generate(ctx, messages, system)
}

func newTestDatamart(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDatamart(":memory:")
	if err != nil {
		t.Fatalf("failed to open datamart: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	statements := []string{
		`CREATE TABLE patients (id INTEGER PRIMARY KEY, name TEXT, a1c REAL)`,
		`INSERT INTO patients VALUES (1, 'Ada', 7.2), (2, 'Grace', 8.4), (3, NULL, NULL)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed datamart: %v", err)
		}
	}
	return db
}

func TestSQLAgentAnswersWithQueryTrace(t *testing.T) {
	db := newTestDatamart(t)
	provider := &scriptedProvider{responses: []string{
		`{"sql": "SELECT AVG(a1c) FROM patients"}`,
		`{"answer": "The average A1C is 7.8."}`,
	}}
	agent := NewSQLAgent(provider, db, log.NewNop())

	inv, err := agent.Invoke(context.Background(), "What is the average A1C?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Answer != "The average A1C is 7.8." {
		t.Errorf("unexpected answer: %q", inv.Answer)
	}
	if len(inv.QueryTrace) != 2 {
		t.Fatalf("expected 2 trace steps, got %v", inv.QueryTrace)
	}
	if !strings.Contains(inv.QueryTrace[0], "sqlite_master") {
		t.Errorf("expected introspection as the first step, got %q", inv.QueryTrace[0])
	}
	if inv.QueryTrace[1] != "SELECT AVG(a1c) FROM patients" {
		t.Errorf("unexpected executed query: %q", inv.QueryTrace[1])
	}

	// The schema must reach the model through the system instruction.
	if len(provider.systems) == 0 || !strings.Contains(provider.systems[0], "CREATE TABLE patients") {
		t.Errorf("expected schema in system instruction, got %q", provider.systems)
	}
	// The query result must reach the model as an observation.
	last := provider.prompts[len(provider.prompts)-1]
	observation := last[len(last)-1].Text()
	if !strings.Contains(observation, "7.8") {
		t.Errorf("expected query result fed back, got %q", observation)
	}
}

func TestSQLAgentRecoversFromMalformedJSON(t *testing.T) {
	db := newTestDatamart(t)
	provider := &scriptedProvider{responses: []string{
		"I will now look at the data.",
		`{"answer": "There are 3 patients."}`,
	}}
	agent := NewSQLAgent(provider, db, log.NewNop())

	inv, err := agent.Invoke(context.Background(), "How many patients are there?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Answer != "There are 3 patients." {
		t.Errorf("unexpected answer: %q", inv.Answer)
	}
}

func TestSQLAgentFeedsQueryErrorsBack(t *testing.T) {
	db := newTestDatamart(t)
	provider := &scriptedProvider{responses: []string{
		`{"sql": "SELECT nope FROM missing_table"}`,
		`{"answer": "I could not find that data."}`,
	}}
	agent := NewSQLAgent(provider, db, log.NewNop())

	inv, err := agent.Invoke(context.Background(), "What is in missing_table?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Answer != "I could not find that data." {
		t.Errorf("unexpected answer: %q", inv.Answer)
	}
	// The failed query still appears in the trace.
	if len(inv.QueryTrace) != 2 || inv.QueryTrace[1] != "SELECT nope FROM missing_table" {
		t.Errorf("expected failed query traced, got %v", inv.QueryTrace)
	}
	last := provider.prompts[len(provider.prompts)-1]
	observation := last[len(last)-1].Text()
	if !strings.Contains(observation, "Query failed") {
		t.Errorf("expected failure observation, got %q", observation)
	}
}

func TestSQLAgentStepLimit(t *testing.T) {
	db := newTestDatamart(t)
	responses := make([]string, 8)
	for i := range responses {
		responses[i] = `{"sql": "SELECT COUNT(*) FROM patients"}`
	}
	provider := &scriptedProvider{responses: responses}
	agent := NewSQLAgent(provider, db, log.NewNop())

	_, err := agent.Invoke(context.Background(), "Keep querying forever.")
	if err == nil {
		t.Fatal("expected an error after exhausting steps")
	}
	if !strings.Contains(err.Error(), "no answer after") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSQLAgentModelFault(t *testing.T) {
	db := newTestDatamart(t)
	provider := &scriptedProvider{err: errors.New("upstream unavailable")}
	agent := NewSQLAgent(provider, db, log.NewNop())

	if _, err := agent.Invoke(context.Background(), "anything"); err == nil {
		t.Fatal("expected the model fault surfaced")
	}
}

func TestRunQueryFormatsNulls(t *testing.T) {
	db := newTestDatamart(t)
	agent := NewSQLAgent(&scriptedProvider{}, db, log.NewNop())

	out, err := agent.runQuery(context.Background(), "SELECT name, a1c FROM patients ORDER BY id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if lines[0] != "name\ta1c" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %v", lines)
	}
	if lines[3] != "NULL\tNULL" {
		t.Errorf("expected NULL rendering, got %q", lines[3])
	}
}
