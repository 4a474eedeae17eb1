package scenario

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gezibash/arc-skill/internal/handlers"
	"github.com/gezibash/arc-skill/internal/skill"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

func calculator(t *testing.T) *skill.Skill {
	t.Helper()
	b := skill.NewBuilder()
	if err := handlers.Register(b, handlers.Options{Reflector: true}); err != nil {
		t.Fatal(err)
	}
	return b.Build()
}

func TestRunCalculatorFile(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "calculator.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := Run(context.Background(), calculator(t), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, s := range res.Steps {
		if !s.Passed() {
			t.Errorf("step %d (%s): %s", s.Step, s.Input, strings.Join(s.Failures, "; "))
		}
	}
	if !res.Passed || res.Failures() != 0 {
		t.Fatalf("Passed = %v, failures = %d", res.Passed, res.Failures())
	}
}

func TestRunReportsFailures(t *testing.T) {
	sc, err := Parse(strings.NewReader(`
name: wrong
steps:
  - say: open
    expect:
      speech: Hello there
      end_session: true
  - say: help
    expect:
      error: boom
`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(context.Background(), calculator(t), sc)
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed {
		t.Fatal("expected scenario to fail")
	}
	if res.Failures() != 2 {
		t.Fatalf("failures = %d, want 2", res.Failures())
	}
	if got := len(res.Steps[0].Failures); got != 2 {
		t.Errorf("step 1 failures = %d, want 2: %v", got, res.Steps[0].Failures)
	}
}

// failing rejects every request.
type failing struct{}

func (failing) Invoke(context.Context, *envelope.RequestEnvelope) (*response.Envelope, error) {
	return nil, os.ErrPermission
}

func TestRunExpectedError(t *testing.T) {
	sc := &Scenario{Steps: []Step{
		{Say: "open", Expect: Expect{Error: "permission"}},
		{Say: "open"},
	}}
	res, err := Run(context.Background(), failing{}, sc)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Steps[0].Passed() {
		t.Errorf("step 1: %v", res.Steps[0].Failures)
	}
	if res.Steps[1].Passed() {
		t.Error("step 2 should fail on unexpected error")
	}
}

func TestRunNewSessionAfterEnd(t *testing.T) {
	var sessions []string
	var fresh []bool
	rec := invokerFunc(func(_ context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error) {
		sessions = append(sessions, env.SessionID())
		fresh = append(fresh, env.IsNewSession())
		return response.NewBuilder(envelope.Version, "").WithShouldEndSession(env.IntentName() == handlers.IntentStop).GetResponse(), nil
	})
	sc := &Scenario{Steps: []Step{{Say: "open"}, {Say: "stop"}, {Say: "open"}}}
	if _, err := Run(context.Background(), rec, sc); err != nil {
		t.Fatal(err)
	}
	if sessions[0] != sessions[1] || sessions[1] == sessions[2] {
		t.Errorf("sessions = %v", sessions)
	}
	if !fresh[0] || fresh[1] || !fresh[2] {
		t.Errorf("new flags = %v", fresh)
	}
}

type invokerFunc func(context.Context, *envelope.RequestEnvelope) (*response.Envelope, error)

func (f invokerFunc) Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error) {
	return f(ctx, env)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty document"},
		{"no steps", "name: x\n", "no steps"},
		{"no input", "steps:\n  - expect: {speech: hi}\n", "one of say or request"},
		{"both inputs", "steps:\n  - say: hi\n    request: {type: LaunchRequest}\n", "exclusive"},
		{"request without type", "steps:\n  - request: {intent: X}\n", "request.type"},
		{"unknown field", "steps:\n  - say: hi\n    expext: {}\n", "expext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Parse() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadDefaultsNameAndFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.yml")
	if err := os.WriteFile(path, []byte("steps:\n  - say: open\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "greeting" {
		t.Errorf("name = %q, want greeting", sc.Name)
	}

	files, err := Files(dir, filepath.Join("testdata", "calculator.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v", files)
	}
}
