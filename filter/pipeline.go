package filter

import (
	"errors"
	"fmt"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
)

// Candidate is one glob-matched hardware path moving through a
// pipeline. Steps rewrite Text; Path stays fixed so selection steps
// can read companion attribute files next to the match.
type Candidate struct {
	Path string
	Text string
}

// Step is a single whitelisted text transform. A step computes its
// output from the candidate alone; the only filesystem access any
// step performs is reading a sibling of the matched path.
type Step interface {
	// Apply rewrites the candidate in place. Returning ErrSkip drops
	// the candidate without failing the resolution.
	Apply(c *Candidate) error
	// String renders the step in the form Parse accepts.
	String() string
}

// Pipeline is an ordered list of steps applied to each candidate.
type Pipeline []Step

var (
	// ErrSkip is returned by selection steps to drop the current
	// candidate. It is a filtering outcome, not a failure.
	ErrSkip = errors.New("candidate skipped")

	// ErrUnknownStep rejects verbs outside the whitelist. A descriptor
	// needing more expressive filtering cannot be loaded at all.
	ErrUnknownStep = errors.New("unknown filter step")
)

// Run applies every step in declared order, stopping at the first
// error.
func (p Pipeline) Run(c *Candidate) error {
	for _, s := range p {
		if err := s.Apply(c); err != nil {
			return err
		}
	}
	return nil
}

// String renders the pipeline in the form Parse accepts.
func (p Pipeline) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}

// Parse compiles a pipeline expression. Steps are separated by "|";
// each step is a verb followed by positional arguments, split with
// shell-style quoting. The verb set is closed, so the most a pipeline
// can ever do is rewrite text and read sibling attribute files. A
// literal "|" cannot appear in step arguments.
//
// Example: strip_prefix 0x | colonize
func Parse(s string) (Pipeline, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var p Pipeline
	for _, expr := range strings.Split(s, "|") {
		expr = strings.TrimSpace(expr)
		words, err := shlex.Split(expr, true)
		if err != nil {
			return nil, fmt.Errorf("split step %q: %w", expr, err)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("empty step in %q", s)
		}
		step, err := newStep(words[0], words[1:])
		if err != nil {
			return nil, err
		}
		p = append(p, step)
	}
	return p, nil
}

// Quote escapes a step argument so Parse reads it back verbatim.
func Quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"\\") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
