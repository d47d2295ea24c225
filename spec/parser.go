// Package spec parses fabric capability descriptors. A descriptor is
// a small declarative file: key/value pairs naming the fabric's
// capability flags, kernel module, configfs group and WWN source. The
// grammar's maximum expressive power is "glob a path, then apply a
// whitelisted text-filter pipeline"; nothing in a descriptor can
// reach code execution.
package spec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"

	"github.com/sigreer/targetgod/fabric"
	"github.com/sigreer/targetgod/filter"
	"github.com/sigreer/targetgod/wwn"
)

// Ext is the descriptor file extension. A fabric's name is its file
// base name with Ext removed.
const Ext = ".spec"

// Mode selects how unrecognized descriptor keys are handled.
type Mode int

const (
	// Strict fails a descriptor on any unrecognized key. New
	// descriptors should load under Strict.
	Strict Mode = iota
	// Lenient logs unrecognized keys and loads the descriptor
	// anyway, for older free-form descriptor files.
	Lenient
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode reads a mode name as used in configuration files.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return Strict, fmt.Errorf("unknown parser mode %q", s)
}

var (
	// ErrUnknownKey rejects descriptor keys outside the grammar.
	ErrUnknownKey = errors.New("unknown descriptor key")

	// ErrConflictingRules rejects descriptors declaring more than one
	// address source.
	ErrConflictingRules = errors.New("conflicting address rules")

	// ErrUnsupportedRule rejects descriptors that ask for capability
	// beyond the declarative grammar, such as command execution. They
	// fail closed rather than degrade.
	ErrUnsupportedRule = errors.New("unsupported address rule")
)

// ParseError ties a descriptor failure to its source and, when one
// key is at fault, to that key.
type ParseError struct {
	Source string
	Key    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("descriptor %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("descriptor %s: key %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser turns descriptor sources into fabric descriptors.
type Parser struct {
	mode   Mode
	legacy bool
	log    zerolog.Logger
}

// Option adjusts parser behavior.
type Option func(*Parser)

// WithMode selects strict or lenient handling of unknown keys.
func WithMode(m Mode) Option {
	return func(p *Parser) { p.mode = m }
}

// WithLegacyFilters accepts shell-pipeline filter values from the old
// descriptor format by translating them into whitelisted pipeline
// steps. No shell is ever spawned.
func WithLegacyFilters() Option {
	return func(p *Parser) { p.legacy = true }
}

// WithLogger routes parser diagnostics to log.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Parser) { p.log = log }
}

// NewParser builds a strict parser; options loosen it.
func NewParser(opts ...Option) *Parser {
	p := &Parser{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses one descriptor with a throwaway parser.
func Parse(data []byte, name string, opts ...Option) (*fabric.Descriptor, error) {
	return NewParser(opts...).Parse(data, name)
}

// ParseFile parses one descriptor file with a throwaway parser.
func ParseFile(path string, opts ...Option) (*fabric.Descriptor, error) {
	return NewParser(opts...).ParseFile(path)
}

// Name derives the fabric name from a descriptor path.
func Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Ext)
}

// ParseFile reads and parses the descriptor at path. The fabric is
// named after the file, never after file content.
func (p *Parser) ParseFile(path string) (*fabric.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Err: err}
	}
	return p.Parse(data, Name(path))
}

// Parse builds the descriptor named name from source text. Comments
// are full lines starting with # or ;. Values may be bare or quoted;
// quoting never changes semantics.
func (p *Parser) Parse(data []byte, name string) (*fabric.Descriptor, error) {
	if name == "" {
		return nil, &ParseError{Source: "(unnamed)", Err: errors.New("descriptor has no name")}
	}
	file, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:  "=",
		IgnoreInlineComment: true,
	}, data)
	if err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		if p.mode == Strict {
			return nil, &ParseError{Source: name, Err: fmt.Errorf("unexpected section [%s]", section.Name())}
		}
		p.log.Warn().
			Str("descriptor", name).
			Str("section", section.Name()).
			Msg("ignoring descriptor section")
	}

	d := fabric.Descriptor{Name: name}
	var (
		wwns         []string
		pattern      string
		filterExpr   string
		haveFeatures bool
		haveWWNs     bool
		havePattern  bool
		haveFilter   bool
	)
	for _, key := range file.Section("").Keys() {
		value := key.Value()
		switch key.Name() {
		case "features":
			features, err := parseFeatures(value)
			if err != nil {
				return nil, &ParseError{Source: name, Key: "features", Err: err}
			}
			d.Features = features
			haveFeatures = true
		case "kernel_module":
			d.KernelModule = value
		case "configfs_group":
			d.ConfigFSGroup = value
		case "wwn_type":
			d.WWNType = wwn.Type(value)
		case "wwn_from_files":
			pattern = value
			havePattern = true
		case "wwn_from_files_filter":
			filterExpr = value
			haveFilter = true
		case "wwns":
			wwns = splitList(value)
			haveWWNs = true
		case "wwn_from_cmds", "wwn_from_cmds_filter":
			// The old format could enumerate WWNs by running commands.
			// That is exactly the capability this grammar exists to
			// remove, so it fails closed in every mode.
			return nil, &ParseError{Source: name, Key: key.Name(),
				Err: fmt.Errorf("%w: command execution is not part of the descriptor grammar", ErrUnsupportedRule)}
		default:
			if p.mode == Strict {
				return nil, &ParseError{Source: name, Key: key.Name(), Err: ErrUnknownKey}
			}
			p.log.Warn().
				Str("descriptor", name).
				Str("key", key.Name()).
				Msg("ignoring unknown descriptor key")
		}
	}

	if !haveFeatures {
		d.Features = fabric.NormalizeFeatures(fabric.DefaultFeatures())
	}
	if d.KernelModule == "" {
		d.KernelModule = fabric.DefaultKernelModule(name)
	}
	if d.ConfigFSGroup == "" {
		d.ConfigFSGroup = name
	}

	switch {
	case haveWWNs && havePattern:
		return nil, &ParseError{Source: name,
			Err: fmt.Errorf("%w: wwns and wwn_from_files are mutually exclusive", ErrConflictingRules)}
	case havePattern:
		pipeline, err := p.parseFilter(name, filterExpr)
		if err != nil {
			return nil, err
		}
		d.Rule = fabric.DiscoveredRule{Pattern: pattern, Filter: pipeline}
	case haveFilter:
		return nil, &ParseError{Source: name, Key: "wwn_from_files_filter",
			Err: errors.New("filter requires wwn_from_files")}
	case haveWWNs:
		d.Rule = fabric.StaticRule{WWNs: wwns}
	default:
		d.Rule = fabric.NoneRule{}
	}

	if err := d.Validate(); err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}
	return &d, nil
}

// parseFilter compiles a wwn_from_files_filter value. Legacy shell
// pipelines are translated into whitelisted steps when enabled, and
// rejected otherwise; they are never executed.
func (p *Parser) parseFilter(name, expr string) (filter.Pipeline, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	if isLegacyFilter(expr) {
		if !p.legacy {
			return nil, &ParseError{Source: name, Key: "wwn_from_files_filter",
				Err: fmt.Errorf("%w: legacy shell filter %q", ErrUnsupportedRule, expr)}
		}
		pipeline, err := translateLegacy(expr)
		if err != nil {
			return nil, &ParseError{Source: name, Key: "wwn_from_files_filter",
				Err: fmt.Errorf("%w: %v", ErrUnsupportedRule, err)}
		}
		p.log.Debug().
			Str("descriptor", name).
			Str("filter", expr).
			Str("translated", pipeline.String()).
			Msg("translated legacy filter")
		return pipeline, nil
	}
	pipeline, err := filter.Parse(expr)
	if err != nil {
		if errors.Is(err, filter.ErrUnknownStep) {
			err = fmt.Errorf("%w: %v", ErrUnsupportedRule, err)
		}
		return nil, &ParseError{Source: name, Key: "wwn_from_files_filter", Err: err}
	}
	return pipeline, nil
}

func parseFeatures(value string) ([]fabric.Feature, error) {
	names := splitList(value)
	features := make([]fabric.Feature, 0, len(names))
	for _, n := range names {
		f := fabric.Feature(n)
		if !fabric.KnownFeature(f) {
			return nil, fmt.Errorf("%w: %q", fabric.ErrUnknownFeature, n)
		}
		features = append(features, f)
	}
	return fabric.NormalizeFeatures(features), nil
}

// splitList parses a comma- or tuple-separated value. Elements may be
// bare or quoted; the splitter is not quote aware, so elements cannot
// contain commas.
func splitList(value string) []string {
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, "("); ok {
		value = strings.TrimSuffix(rest, ")")
	} else if rest, ok := strings.CutPrefix(value, "["); ok {
		value = strings.TrimSuffix(rest, "]")
	}
	var out []string
	for _, elem := range strings.Split(value, ",") {
		elem = unquote(strings.TrimSpace(elem))
		if elem != "" {
			out = append(out, elem)
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
