package spec

import (
	"fmt"
	"strconv"
	"strings"

	shlex "github.com/anmitsu/go-shlex"

	"github.com/sigreer/targetgod/filter"
)

// The old descriptor format wrote filters as shell pipelines that ran
// once per candidate. This file accepts the command shapes observed
// in historical descriptor files and rewrites them into whitelisted
// pipeline steps. Nothing here spawns a process; a filter that cannot
// be rewritten is rejected.

var legacyCommands = map[string]bool{
	"sed":  true,
	"tr":   true,
	"cut":  true,
	"echo": true,
}

// isLegacyFilter reports whether a filter value is written in the old
// shell-pipeline format rather than the step grammar.
func isLegacyFilter(expr string) bool {
	fields := strings.Fields(expr)
	return len(fields) > 0 && legacyCommands[fields[0]]
}

func translateLegacy(expr string) (filter.Pipeline, error) {
	var steps []string
	for _, command := range strings.Split(expr, "|") {
		command = strings.TrimSpace(command)
		words, err := shlex.Split(command, true)
		if err != nil {
			return nil, fmt.Errorf("split command %q: %v", command, err)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("empty command in %q", expr)
		}
		translated, err := translateCommand(words[0], words[1:])
		if err != nil {
			return nil, err
		}
		steps = append(steps, translated...)
	}
	return filter.Parse(strings.Join(steps, " | "))
}

func translateCommand(name string, args []string) ([]string, error) {
	switch name {
	case "sed":
		return translateSed(args)
	case "tr":
		return translateTr(args)
	case "cut":
		return translateCut(args)
	case "echo":
		return nil, fmt.Errorf("echo: the candidate text is already the pipeline input")
	}
	return nil, fmt.Errorf("command %q is not translatable", name)
}

// emitStep renders one step expression, quoting arguments so the
// pipeline parser reads them back verbatim.
func emitStep(verb string, args ...string) (string, error) {
	parts := []string{verb}
	for _, a := range args {
		if strings.Contains(a, "|") {
			return "", fmt.Errorf("%s: literal %q cannot appear in a pipeline step", verb, a)
		}
		parts = append(parts, filter.Quote(a))
	}
	return strings.Join(parts, " "), nil
}

func translateSed(args []string) ([]string, error) {
	var exprs []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-e":
			i++
			if i == len(args) {
				return nil, fmt.Errorf("sed: -e without an expression")
			}
			exprs = append(exprs, args[i])
		case strings.HasPrefix(args[i], "-"):
			return nil, fmt.Errorf("sed: option %q is not translatable", args[i])
		default:
			exprs = append(exprs, args[i])
		}
	}
	if len(exprs) == 0 {
		return nil, fmt.Errorf("sed: no expression")
	}
	var steps []string
	for _, e := range exprs {
		s, err := translateSedExpr(e)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s...)
	}
	return steps, nil
}

// translateSedExpr rewrites one s/// substitution. Patterns must be
// literal apart from four recognized shapes: a leading ^ anchor, a
// trailing $ anchor, a trailing * on a single character, and the
// all-dots grouping idiom s/../&SEP/g.
func translateSedExpr(expr string) ([]string, error) {
	body, ok := strings.CutPrefix(expr, "s/")
	if !ok {
		return nil, fmt.Errorf("sed: expression %q is not an s/// substitution", expr)
	}
	parts, err := splitSed(body)
	if err != nil {
		return nil, fmt.Errorf("sed: expression %q: %v", expr, err)
	}
	pat, rep, flags := parts[0], parts[1], parts[2]
	var global bool
	switch flags {
	case "":
	case "g":
		global = true
	default:
		return nil, fmt.Errorf("sed: expression %q: flags %q are not translatable", expr, flags)
	}

	if rest, ok := strings.CutPrefix(pat, "^"); ok {
		if rep != "" {
			return nil, fmt.Errorf("sed: expression %q: anchored replacement is not translatable", expr)
		}
		lit, err := sedLiteral(rest)
		if err != nil {
			return nil, fmt.Errorf("sed: expression %q: %v", expr, err)
		}
		step, err := emitStep("strip_prefix", lit)
		if err != nil {
			return nil, err
		}
		return []string{step}, nil
	}

	if hasUnescapedSuffix(pat, '$') {
		if rep != "" {
			return nil, fmt.Errorf("sed: expression %q: anchored replacement is not translatable", expr)
		}
		lit, err := sedLiteral(pat[:len(pat)-1])
		if err != nil {
			return nil, fmt.Errorf("sed: expression %q: %v", expr, err)
		}
		step, err := emitStep("strip_suffix", lit)
		if err != nil {
			return nil, err
		}
		return []string{step}, nil
	}

	// s/../&SEP/g inserts SEP after every pair (or every n characters).
	// The equivalent steps leave no separator after a trailing partial
	// group, so historical pipelines always chase this with s/SEP$//.
	if n := allDots(pat); n > 0 && global {
		if rest, ok := strings.CutPrefix(rep, "&"); ok {
			sep, err := sedReplacementLiteral(rest)
			if err != nil {
				return nil, fmt.Errorf("sed: expression %q: %v", expr, err)
			}
			if sep == "" {
				return nil, fmt.Errorf("sed: expression %q: empty group separator", expr)
			}
			groupStep, err := emitStep("group", strconv.Itoa(n), sep)
			if err != nil {
				return nil, err
			}
			suffixStep, err := emitStep("suffix", sep)
			if err != nil {
				return nil, err
			}
			return []string{groupStep, suffixStep}, nil
		}
	}

	// s/X*//g over one character deletes every X.
	if global && rep == "" && hasUnescapedSuffix(pat, '*') {
		lit, err := sedLiteral(pat[:len(pat)-1])
		if err == nil && len([]rune(lit)) == 1 {
			step, err := emitStep("remove", lit)
			if err != nil {
				return nil, err
			}
			return []string{step}, nil
		}
	}

	lit, err := sedLiteral(pat)
	if err != nil {
		return nil, fmt.Errorf("sed: expression %q: %v", expr, err)
	}
	repl, err := sedReplacementLiteral(rep)
	if err != nil {
		return nil, fmt.Errorf("sed: expression %q: %v", expr, err)
	}
	var step string
	switch {
	case repl == "" && global:
		step, err = emitStep("remove", lit)
	case global:
		step, err = emitStep("replace", lit, repl)
	default:
		step, err = emitStep("replace_first", lit, repl)
	}
	if err != nil {
		return nil, err
	}
	return []string{step}, nil
}

// splitSed splits pattern/replacement/flags on unescaped slashes,
// keeping escape sequences for the literal decoders.
func splitSed(s string) ([3]string, error) {
	var parts [3]string
	var b strings.Builder
	part := 0
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteByte('\\')
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '/':
			if part == 2 {
				return parts, fmt.Errorf("too many delimiters")
			}
			parts[part] = b.String()
			b.Reset()
			part++
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		return parts, fmt.Errorf("trailing escape")
	}
	if part != 2 {
		return parts, fmt.Errorf("want s/pattern/replacement/[flags]")
	}
	parts[2] = b.String()
	return parts, nil
}

// sedLiteral decodes a pattern that must contain no active regex
// syntax: every metacharacter has to be escaped.
func sedLiteral(s string) (string, error) {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case strings.ContainsRune(`.*[]^$+?(){}|`, r):
			return "", fmt.Errorf("pattern is not literal: unescaped %q", r)
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		return "", fmt.Errorf("trailing escape")
	}
	return b.String(), nil
}

// sedReplacementLiteral decodes a replacement that must not reference
// the match.
func sedReplacementLiteral(s string) (string, error) {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			if r >= '0' && r <= '9' {
				return "", fmt.Errorf("replacement uses backreference \\%c", r)
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '&':
			return "", fmt.Errorf("replacement references the match")
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		return "", fmt.Errorf("trailing escape")
	}
	return b.String(), nil
}

func allDots(s string) int {
	n := 0
	for _, r := range s {
		if r != '.' {
			return 0
		}
		n++
	}
	return n
}

func hasUnescapedSuffix(s string, suffix byte) bool {
	if len(s) == 0 || s[len(s)-1] != suffix {
		return false
	}
	n := 0
	for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 0
}

func translateTr(args []string) ([]string, error) {
	if len(args) != 2 || args[0] != "-d" {
		return nil, fmt.Errorf("tr: only tr -d SET is translatable")
	}
	set := args[1]
	if set == "" {
		return nil, fmt.Errorf("tr: empty delete set")
	}
	runes := []rune(set)
	if strings.ContainsAny(set, "[]") || (len(runes) > 1 && strings.ContainsRune(set, '-')) {
		return nil, fmt.Errorf("tr: delete set %q: classes and ranges are not translatable", set)
	}
	steps := make([]string, 0, len(runes))
	for _, r := range runes {
		step, err := emitStep("remove", string(r))
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// translateCut handles character ranges: -cN, -cN-, -cN-M and -c-M,
// all 1-based and inclusive as cut defines them.
func translateCut(args []string) ([]string, error) {
	var span string
	switch {
	case len(args) == 1 && strings.HasPrefix(args[0], "-c"):
		span = args[0][2:]
	case len(args) == 2 && args[0] == "-c":
		span = args[1]
	default:
		return nil, fmt.Errorf("cut: only cut -c ranges are translatable")
	}
	if span == "" {
		return nil, fmt.Errorf("cut: empty character range")
	}
	if strings.Contains(span, ",") {
		return nil, fmt.Errorf("cut: range %q: multiple ranges are not translatable", span)
	}
	start, end, ranged := strings.Cut(span, "-")
	if !ranged {
		n, err := strconv.Atoi(span)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("cut: bad column %q", span)
		}
		return []string{fmt.Sprintf("slice %d %d", n-1, n)}, nil
	}
	a := 0
	if start != "" {
		n, err := strconv.Atoi(start)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("cut: bad range %q", span)
		}
		a = n - 1
	}
	if end == "" {
		return []string{fmt.Sprintf("slice %d", a)}, nil
	}
	b, err := strconv.Atoi(end)
	if err != nil || b < 1 || b <= a {
		return nil, fmt.Errorf("cut: bad range %q", span)
	}
	return []string{fmt.Sprintf("slice %d %d", a, b)}, nil
}
