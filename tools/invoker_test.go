package tools

import (
	"strings"
	"testing"
)

func TestDedupeQueries(t *testing.T) {
	queries := []string{"SELECT A", "SELECT B", "SELECT A"}
	got := DedupeQueries(queries)
	if len(got) != 2 {
		t.Fatalf("expected 2 queries, got %d: %v", len(got), got)
	}
	if got[0] != "SELECT A" || got[1] != "SELECT B" {
		t.Errorf("expected first-seen order preserved, got %v", got)
	}
}

func TestDedupeQueriesExactMatchOnly(t *testing.T) {
	// Differently formatted but semantically identical queries stay.
	queries := []string{"SELECT  A", "SELECT A"}
	got := DedupeQueries(queries)
	if len(got) != 2 {
		t.Errorf("expected whitespace variants kept, got %v", got)
	}
}

func TestTrimIntrospection(t *testing.T) {
	trace := []string{"introspection", "SELECT A"}
	got := TrimIntrospection(trace)
	if len(got) != 1 || got[0] != "SELECT A" {
		t.Errorf("expected leading step dropped, got %v", got)
	}

	if got := TrimIntrospection(nil); len(got) != 0 {
		t.Errorf("expected empty trace unchanged, got %v", got)
	}
}

func TestLabelQueries(t *testing.T) {
	got := LabelQueries([]string{"SELECT A", "SELECT B"})
	if got[0] != "Query 1:\nSELECT A" {
		t.Errorf("unexpected first label: %q", got[0])
	}
	if got[1] != "Query 2:\nSELECT B" {
		t.Errorf("unexpected second label: %q", got[1])
	}
}

func TestBuildResult(t *testing.T) {
	inv := Invocation{
		Answer:     "7.8",
		QueryTrace: []string{"introspection", "SELECT AVG(a1c) FROM labs", "SELECT AVG(a1c) FROM labs"},
	}
	payload := BuildResult(inv, ResultOptions{TrimIntrospection: true})

	if payload.QueriesUsedForAnswer != "[Query 1:\nSELECT AVG(a1c) FROM labs]" {
		t.Errorf("unexpected citations: %q", payload.QueriesUsedForAnswer)
	}
	want := "The answer is 7.8. The queries used to get this answer are:\n[Query 1:\nSELECT AVG(a1c) FROM labs]"
	if payload.Answer != want {
		t.Errorf("unexpected answer:\n got %q\nwant %q", payload.Answer, want)
	}
}

func TestBuildResultKeepsIntrospectionWhenConfigured(t *testing.T) {
	inv := Invocation{Answer: "42", QueryTrace: []string{"introspection", "SELECT COUNT(*) FROM patients"}}
	payload := BuildResult(inv, ResultOptions{})

	if !strings.Contains(payload.QueriesUsedForAnswer, "introspection") {
		t.Errorf("expected introspection kept, got %q", payload.QueriesUsedForAnswer)
	}
}

func TestBuildResultCiteQueries(t *testing.T) {
	inv := Invocation{Answer: "42", QueryTrace: []string{"introspection", "SELECT COUNT(*) FROM patients"}}
	payload := BuildResult(inv, ResultOptions{TrimIntrospection: true, CiteQueries: true})

	if !strings.Contains(payload.Answer, "Summarize the answer for the user and cite the queries used.") {
		t.Errorf("expected citation instruction appended, got %q", payload.Answer)
	}
}

func TestDataToolDefinitionInvalidSchema(t *testing.T) {
	if _, err := DataToolDefinition("description", "{not json"); err == nil {
		t.Fatal("expected an error for an invalid parameters schema")
	}
}

func TestDefaultDataToolDefinition(t *testing.T) {
	def := DefaultDataToolDefinition()
	if def.Name != DataToolName {
		t.Errorf("unexpected tool name %q", def.Name)
	}
	properties, ok := def.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties object, got %v", def.Parameters)
	}
	if _, ok := properties[QuestionArg]; !ok {
		t.Errorf("expected %q property, got %v", QuestionArg, properties)
	}
}
