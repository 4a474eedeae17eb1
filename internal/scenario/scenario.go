// Package scenario runs scripted dialogs against a skill and checks each
// turn's response.
package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gezibash/arc-skill/internal/simulator"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

// Invoker dispatches one request envelope.
type Invoker interface {
	Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error)
}

// Scenario is one scripted dialog.
type Scenario struct {
	Name          string `yaml:"name"`
	ApplicationID string `yaml:"application_id,omitempty"`
	Locale        string `yaml:"locale,omitempty"`
	Steps         []Step `yaml:"steps"`
}

// Step is one turn: either an utterance or an explicit request.
type Step struct {
	Say     string       `yaml:"say,omitempty"`
	Request *RequestSpec `yaml:"request,omitempty"`
	Expect  Expect       `yaml:"expect"`
}

// RequestSpec describes an explicit request.
type RequestSpec struct {
	Type   string            `yaml:"type"`
	Intent string            `yaml:"intent,omitempty"`
	Slots  map[string]string `yaml:"slots,omitempty"`
	Reason string            `yaml:"reason,omitempty"`
}

// Expect lists the checks for one turn. Unset fields are not checked.
type Expect struct {
	Speech         *string `yaml:"speech,omitempty"`
	SpeechContains string  `yaml:"speech_contains,omitempty"`
	Reprompt       *string `yaml:"reprompt,omitempty"`
	EndSession     *bool   `yaml:"end_session,omitempty"`
	// Error expects the invocation to fail with a message containing it.
	Error string `yaml:"error,omitempty"`
}

// Parse decodes a scenario. Unknown fields are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario: empty document")
		}
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads a scenario file. The file name is used when name is empty.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Files expands paths into scenario files. Directories contribute their
// *.yaml and *.yml entries.
func Files(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, err
			}
			out = append(out, matches...)
		}
	}
	return out, nil
}

// Validate checks that every step names exactly one input.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return errors.New("scenario: no steps")
	}
	for i, st := range sc.Steps {
		switch {
		case st.Say == "" && st.Request == nil:
			return fmt.Errorf("scenario: step %d: one of say or request is required", i+1)
		case st.Say != "" && st.Request != nil:
			return fmt.Errorf("scenario: step %d: say and request are exclusive", i+1)
		case st.Request != nil && st.Request.Type == "":
			return fmt.Errorf("scenario: step %d: request.type is required", i+1)
		}
	}
	return nil
}

// StepResult is the outcome of one turn.
type StepResult struct {
	Step     int
	Input    string
	Speech   string
	Reprompt string
	// EndSession is nil when the response left the flag unset.
	EndSession *bool
	Err        error
	Failures   []string
}

// Passed reports whether every check of the step held.
func (r StepResult) Passed() bool { return len(r.Failures) == 0 }

// Result is the outcome of a scenario.
type Result struct {
	Name   string
	Steps  []StepResult
	Passed bool
}

// Failures counts failed steps.
func (r *Result) Failures() int {
	n := 0
	for _, s := range r.Steps {
		if !s.Passed() {
			n++
		}
	}
	return n
}

// Run plays the scenario against inv in a single simulated session. A
// response that ends the session makes the next step start a new one.
func Run(ctx context.Context, inv Invoker, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	sim := simulator.New(simulator.Options{ApplicationID: sc.ApplicationID, Locale: sc.Locale})

	res := &Result{Name: sc.Name, Passed: true}
	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		env, input := buildRequest(sim, st)
		resp, err := inv.Invoke(ctx, env)

		sr := StepResult{Step: i + 1, Input: input, Err: err}
		if err == nil {
			sr.Speech = resp.Speech()
			sr.Reprompt = resp.RepromptSpeech()
			if end, set := resp.EndsSession(); set {
				sr.EndSession = &end
				if end {
					sim.EndSession()
				}
			}
		}
		sr.Failures = check(st.Expect, sr)
		if !sr.Passed() {
			res.Passed = false
		}
		res.Steps = append(res.Steps, sr)
	}
	return res, nil
}

func buildRequest(sim *simulator.Simulator, st Step) (*envelope.RequestEnvelope, string) {
	if st.Say != "" {
		return sim.FromUtterance(st.Say), fmt.Sprintf("say %q", st.Say)
	}
	r := st.Request
	switch r.Type {
	case envelope.TypeLaunch:
		return sim.Launch(), r.Type
	case envelope.TypeSessionEnded:
		return sim.SessionEnded(r.Reason), r.Type
	case envelope.TypeIntent:
		return sim.Intent(r.Intent, r.Slots), fmt.Sprintf("%s %s %v", r.Type, r.Intent, r.Slots)
	default:
		env := sim.Launch()
		env.Request.Type = r.Type
		return env, r.Type
	}
}

func check(exp Expect, sr StepResult) []string {
	var failures []string
	if exp.Error != "" {
		if sr.Err == nil {
			return []string{fmt.Sprintf("expected error containing %q, got success", exp.Error)}
		}
		if !strings.Contains(sr.Err.Error(), exp.Error) {
			failures = append(failures, fmt.Sprintf("error = %q, want it to contain %q", sr.Err.Error(), exp.Error))
		}
		return failures
	}
	if sr.Err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", sr.Err)}
	}

	if exp.Speech != nil && sr.Speech != *exp.Speech {
		failures = append(failures, fmt.Sprintf("speech = %q, want %q", sr.Speech, *exp.Speech))
	}
	if exp.SpeechContains != "" && !strings.Contains(sr.Speech, exp.SpeechContains) {
		failures = append(failures, fmt.Sprintf("speech = %q, want it to contain %q", sr.Speech, exp.SpeechContains))
	}
	if exp.Reprompt != nil && sr.Reprompt != *exp.Reprompt {
		failures = append(failures, fmt.Sprintf("reprompt = %q, want %q", sr.Reprompt, *exp.Reprompt))
	}
	if exp.EndSession != nil {
		got := sr.EndSession != nil && *sr.EndSession
		if got != *exp.EndSession {
			failures = append(failures, fmt.Sprintf("end_session = %v, want %v", got, *exp.EndSession))
		}
	}
	return failures
}
