package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danwakefield/fnmatch"

	"github.com/sigreer/targetgod/wwn"
)

// builders is the whitelist: every verb a pipeline may use, mapped to
// its constructor. There is deliberately no way to register more.
var builders = map[string]func(args []string) (Step, error){
	"strip_prefix":  buildStripPrefix,
	"strip_suffix":  buildStripSuffix,
	"strip":         buildStrip,
	"prefix":        buildPrefix,
	"suffix":        buildSuffix,
	"remove":        buildRemove,
	"replace":       buildReplace,
	"replace_first": buildReplaceFirst,
	"slice":         buildSlice,
	"lower":         buildLower,
	"upper":         buildUpper,
	"colonize":      buildColonize,
	"group":         buildGroup,
	"pad":           buildPad,
	"match":         buildMatch,
	"require_true":  buildRequireTrue,
	"sibling":       buildSibling,
}

func newStep(verb string, args []string) (Step, error) {
	build, ok := builders[verb]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, verb)
	}
	for _, a := range args {
		if strings.Contains(a, "|") {
			return nil, fmt.Errorf("step %s: argument %q: pipe characters cannot appear in arguments", verb, a)
		}
	}
	return build(args)
}

// strip_prefix S drops S from the start of the text when present.
type stripPrefix struct{ prefix string }

func buildStripPrefix(args []string) (Step, error) {
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("step strip_prefix: want one non-empty argument")
	}
	return stripPrefix{args[0]}, nil
}

func (s stripPrefix) Apply(c *Candidate) error {
	c.Text = strings.TrimPrefix(c.Text, s.prefix)
	return nil
}

func (s stripPrefix) String() string { return "strip_prefix " + Quote(s.prefix) }

// strip_suffix S drops S from the end of the text when present.
type stripSuffix struct{ suffix string }

func buildStripSuffix(args []string) (Step, error) {
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("step strip_suffix: want one non-empty argument")
	}
	return stripSuffix{args[0]}, nil
}

func (s stripSuffix) Apply(c *Candidate) error {
	c.Text = strings.TrimSuffix(c.Text, s.suffix)
	return nil
}

func (s stripSuffix) String() string { return "strip_suffix " + Quote(s.suffix) }

// strip [CUTSET] trims cutset characters from both edges, or
// whitespace when no cutset is given.
type stripEdges struct{ cutset string }

func buildStrip(args []string) (Step, error) {
	switch len(args) {
	case 0:
		return stripEdges{}, nil
	case 1:
		return stripEdges{args[0]}, nil
	}
	return nil, fmt.Errorf("step strip: want at most one argument")
}

func (s stripEdges) Apply(c *Candidate) error {
	if s.cutset == "" {
		c.Text = strings.TrimSpace(c.Text)
	} else {
		c.Text = strings.Trim(c.Text, s.cutset)
	}
	return nil
}

func (s stripEdges) String() string {
	if s.cutset == "" {
		return "strip"
	}
	return "strip " + Quote(s.cutset)
}

// prefix S prepends S.
type addPrefix struct{ prefix string }

func buildPrefix(args []string) (Step, error) {
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("step prefix: want one non-empty argument")
	}
	return addPrefix{args[0]}, nil
}

func (s addPrefix) Apply(c *Candidate) error {
	c.Text = s.prefix + c.Text
	return nil
}

func (s addPrefix) String() string { return "prefix " + Quote(s.prefix) }

// suffix S appends S.
type addSuffix struct{ suffix string }

func buildSuffix(args []string) (Step, error) {
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("step suffix: want one non-empty argument")
	}
	return addSuffix{args[0]}, nil
}

func (s addSuffix) Apply(c *Candidate) error {
	c.Text = c.Text + s.suffix
	return nil
}

func (s addSuffix) String() string { return "suffix " + Quote(s.suffix) }

// remove S deletes every occurrence of S.
type remove struct{ old string }

func buildRemove(args []string) (Step, error) {
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("step remove: want one non-empty argument")
	}
	return remove{args[0]}, nil
}

func (s remove) Apply(c *Candidate) error {
	c.Text = strings.ReplaceAll(c.Text, s.old, "")
	return nil
}

func (s remove) String() string { return "remove " + Quote(s.old) }

// replace OLD NEW substitutes every (or, for replace_first, the
// first) occurrence of OLD.
type replace struct {
	old, new string
	first    bool
}

func buildReplace(args []string) (Step, error)      { return buildReplaceStep(args, false) }
func buildReplaceFirst(args []string) (Step, error) { return buildReplaceStep(args, true) }

func buildReplaceStep(args []string, first bool) (Step, error) {
	verb := "replace"
	if first {
		verb = "replace_first"
	}
	if len(args) != 2 || args[0] == "" {
		return nil, fmt.Errorf("step %s: want OLD and NEW arguments, OLD non-empty", verb)
	}
	return replace{old: args[0], new: args[1], first: first}, nil
}

func (s replace) Apply(c *Candidate) error {
	if s.first {
		c.Text = strings.Replace(c.Text, s.old, s.new, 1)
	} else {
		c.Text = strings.ReplaceAll(c.Text, s.old, s.new)
	}
	return nil
}

func (s replace) String() string {
	verb := "replace"
	if s.first {
		verb = "replace_first"
	}
	return verb + " " + Quote(s.old) + " " + Quote(s.new)
}

// slice START [END] keeps the rune range [START, END). Negative
// indexes count from the end; out-of-range indexes clamp instead of
// failing, so a short identifier yields a short result.
type sliceStep struct {
	start, end int
	hasEnd     bool
}

func buildSlice(args []string) (Step, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("step slice: want START and optional END")
	}
	start, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("step slice: start %q: %w", args[0], err)
	}
	s := sliceStep{start: start}
	if len(args) == 2 {
		end, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("step slice: end %q: %w", args[1], err)
		}
		s.end, s.hasEnd = end, true
	}
	return s, nil
}

func (s sliceStep) Apply(c *Candidate) error {
	r := []rune(c.Text)
	a := sliceIndex(s.start, len(r))
	b := len(r)
	if s.hasEnd {
		b = sliceIndex(s.end, len(r))
	}
	if a >= b {
		c.Text = ""
		return nil
	}
	c.Text = string(r[a:b])
	return nil
}

func (s sliceStep) String() string {
	if s.hasEnd {
		return fmt.Sprintf("slice %d %d", s.start, s.end)
	}
	return fmt.Sprintf("slice %d", s.start)
}

func sliceIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// lower and upper fold the text's case.
type lower struct{}

func buildLower(args []string) (Step, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("step lower: want no arguments")
	}
	return lower{}, nil
}

func (lower) Apply(c *Candidate) error {
	c.Text = strings.ToLower(c.Text)
	return nil
}

func (lower) String() string { return "lower" }

type upper struct{}

func buildUpper(args []string) (Step, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("step upper: want no arguments")
	}
	return upper{}, nil
}

func (upper) Apply(c *Candidate) error {
	c.Text = strings.ToUpper(c.Text)
	return nil
}

func (upper) String() string { return "upper" }

// colonize [N] inserts a colon every N characters (default 2), with
// no trailing colon: 1234567812345678 -> 12:34:56:78:12:34:56:78.
type colonize struct{ n int }

func buildColonize(args []string) (Step, error) {
	switch len(args) {
	case 0:
		return colonize{2}, nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("step colonize: width %q must be a positive integer", args[0])
		}
		return colonize{n}, nil
	}
	return nil, fmt.Errorf("step colonize: want at most one argument")
}

func (s colonize) Apply(c *Candidate) error {
	c.Text = wwn.Group(c.Text, s.n, ":")
	return nil
}

func (s colonize) String() string {
	if s.n == 2 {
		return "colonize"
	}
	return fmt.Sprintf("colonize %d", s.n)
}

// group N SEP is the general delimiter-insertion form: SEP between
// every N characters, no trailing separator.
type group struct {
	n   int
	sep string
}

func buildGroup(args []string) (Step, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("step group: want N and SEP arguments")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return nil, fmt.Errorf("step group: width %q must be a positive integer", args[0])
	}
	if args[1] == "" {
		return nil, fmt.Errorf("step group: separator is empty")
	}
	return group{n: n, sep: args[1]}, nil
}

func (s group) Apply(c *Candidate) error {
	c.Text = wwn.Group(c.Text, s.n, s.sep)
	return nil
}

func (s group) String() string { return fmt.Sprintf("group %d %s", s.n, Quote(s.sep)) }

// pad N [C] left-pads the text to N characters with C (default "0").
// Descriptor revisions disagree on canonical identifier widths for
// some fabrics, so the width is always spelled out in the descriptor
// rather than assumed here.
type pad struct {
	width int
	fill  string
}

func buildPad(args []string) (Step, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("step pad: want WIDTH and optional FILL")
	}
	width, err := strconv.Atoi(args[0])
	if err != nil || width < 1 {
		return nil, fmt.Errorf("step pad: width %q must be a positive integer", args[0])
	}
	fill := "0"
	if len(args) == 2 {
		fill = args[1]
		if utf8.RuneCountInString(fill) != 1 {
			return nil, fmt.Errorf("step pad: fill %q must be a single character", fill)
		}
	}
	return pad{width: width, fill: fill}, nil
}

func (s pad) Apply(c *Candidate) error {
	if n := utf8.RuneCountInString(c.Text); n < s.width {
		c.Text = strings.Repeat(s.fill, s.width-n) + c.Text
	}
	return nil
}

func (s pad) String() string {
	if s.fill == "0" {
		return fmt.Sprintf("pad %d", s.width)
	}
	return fmt.Sprintf("pad %d %s", s.width, Quote(s.fill))
}

// match PATTERN keeps only candidates whose text matches the fnmatch
// pattern; the rest are skipped.
type match struct{ pattern string }

func buildMatch(args []string) (Step, error) {
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("step match: want one non-empty pattern")
	}
	return match{args[0]}, nil
}

func (s match) Apply(c *Candidate) error {
	if !fnmatch.Match(s.pattern, c.Text, 0) {
		return fmt.Errorf("text %q does not match %q: %w", c.Text, s.pattern, ErrSkip)
	}
	return nil
}

func (s match) String() string { return "match " + Quote(s.pattern) }

// require_true keeps only candidates whose text is a nonzero integer,
// the shape of sysfs boolean attributes such as is_local.
type requireTrue struct{}

func buildRequireTrue(args []string) (Step, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("step require_true: want no arguments")
	}
	return requireTrue{}, nil
}

func (requireTrue) Apply(c *Candidate) error {
	v, err := strconv.Atoi(strings.TrimSpace(c.Text))
	if err != nil || v == 0 {
		return fmt.Errorf("text %q is not true: %w", c.Text, ErrSkip)
	}
	return nil
}

func (requireTrue) String() string { return "require_true" }

// sibling NAME replaces the text with the trimmed contents of a file
// in the matched path's directory. This is the only step that touches
// the filesystem, and it only reads.
type sibling struct{ name string }

func buildSibling(args []string) (Step, error) {
	if len(args) != 1 || args[0] == "" {
		return nil, fmt.Errorf("step sibling: want one file name")
	}
	name := args[0]
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("step sibling: %q must name a file in the matched path's directory", name)
	}
	return sibling{name}, nil
}

func (s sibling) Apply(c *Candidate) error {
	data, err := os.ReadFile(filepath.Join(filepath.Dir(c.Path), s.name))
	if err != nil {
		return fmt.Errorf("sibling %s: %w", s.name, err)
	}
	c.Text = strings.TrimSpace(string(data))
	return nil
}

func (s sibling) String() string { return "sibling " + Quote(s.name) }
