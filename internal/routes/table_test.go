package routes

import "testing"

func ruleFor(method, path, toolID string) Rule {
	return Rule{
		Method: method,
		Path:   path,
		ToolID: toolID,
		Price:  "0.01",
		Provider: Provider{
			ID:         toolID + "-provider",
			BackendURL: "https://upstream.example.com",
		},
	}
}

func TestTable_MatchLiteral(t *testing.T) {
	table := NewTable()
	if err := table.Add(ruleFor("GET", "/api/v1/quote", "quote")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rule, params, err := table.Match("GET", "/api/v1/quote")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if rule.ToolID != "quote" {
		t.Errorf("ToolID = %v, want quote", rule.ToolID)
	}
	if len(params) != 0 {
		t.Errorf("params = %v, want empty", params)
	}
}

func TestTable_MatchNotFound(t *testing.T) {
	table := NewTable()
	_, _, err := table.Match("GET", "/nope")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTable_MatchParams(t *testing.T) {
	table := NewTable()
	if err := table.Add(ruleFor("GET", "/api/v1/users/:id", "get-user")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rule, params, err := table.Match("GET", "/api/v1/users/42")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if rule.ToolID != "get-user" {
		t.Errorf("ToolID = %v, want get-user", rule.ToolID)
	}
	if params["id"] != "42" {
		t.Errorf("params[id] = %v, want 42", params["id"])
	}
}

func TestTable_TieBreaking(t *testing.T) {
	// /a/b/:x should win over /a/:y/:z for a request matching both.
	table := NewTable()
	if err := table.Add(ruleFor("GET", "/a/:y/:z", "generic")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := table.Add(ruleFor("GET", "/a/b/:x", "specific")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rule, _, err := table.Match("GET", "/a/b/c")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if rule.ToolID != "specific" {
		t.Errorf("ToolID = %v, want specific (more literal segments should win)", rule.ToolID)
	}
}

func TestTable_AddDuplicateToolID(t *testing.T) {
	table := NewTable()
	if err := table.Add(ruleFor("GET", "/a", "dup")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := table.Add(ruleFor("POST", "/b", "dup")); err != ErrDuplicateToolID {
		t.Errorf("err = %v, want ErrDuplicateToolID", err)
	}
}

func TestTable_Remove(t *testing.T) {
	table := NewTable()
	_ = table.Add(ruleFor("GET", "/a", "a"))
	table.Remove("a")

	if _, _, err := table.Match("GET", "/a"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound after remove", err)
	}
}

func TestTable_ReplaceRejectsInvalid_LeavesTableUnchanged(t *testing.T) {
	table := NewTable()
	_ = table.Add(ruleFor("GET", "/a", "a"))

	before := table.Snapshot()

	err := table.Replace([]Rule{
		ruleFor("GET", "/b", "b"),
		{Method: "GET", Path: "no-leading-slash", ToolID: "bad", Provider: Provider{BackendURL: "https://x"}},
	})
	if err == nil {
		t.Fatal("Replace() expected error for invalid rule")
	}

	after := table.Snapshot()
	if len(after) != len(before) || after[0].ToolID != before[0].ToolID {
		t.Errorf("table mutated despite rejected Replace(): before=%v after=%v", before, after)
	}
}

func TestTable_SnapshotIsolation(t *testing.T) {
	table := NewTable()
	_ = table.Add(ruleFor("GET", "/a", "a"))

	snap := table.Snapshot()
	_ = table.Add(ruleFor("GET", "/b", "b"))

	if len(snap) != 1 {
		t.Errorf("earlier snapshot mutated: len = %v, want 1", len(snap))
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	var seen []Rule
	table.Subscribe(func(rules []Rule) {
		seen = rules
	})

	_ = table.Add(ruleFor("GET", "/a", "a"))
	if len(seen) != 1 || seen[0].ToolID != "a" {
		t.Errorf("observer saw %v, want [a]", seen)
	}
}
