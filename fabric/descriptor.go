package fabric

import (
	"fmt"
	"path/filepath"

	"github.com/sigreer/targetgod/filter"
	"github.com/sigreer/targetgod/wwn"
)

// Descriptor is the structured form of one fabric's capability
// declaration: which optional features its kernel module exposes,
// where it lives in configfs, what shape its WWNs have and where they
// come from. Descriptors are built once by the parser and never
// mutated afterwards.
type Descriptor struct {
	// Name identifies the fabric. It is derived from the descriptor's
	// source identity (file base name), never from file content.
	Name string

	// Features lists the capability flags this fabric supports,
	// sorted and de-duplicated. Consumers must treat absence as
	// unsupported.
	Features []Feature

	// KernelModule is the module expected to implement the fabric.
	KernelModule string

	// ConfigFSGroup is the directory under the target configfs root
	// where this fabric's instances appear.
	ConfigFSGroup string

	// WWNType tags the textual shape of the fabric's WWNs, such as
	// "iqn" for name-based fabrics. Empty means a hardware-address
	// fabric whose identifiers come from the address rule.
	WWNType wwn.Type

	// Rule states where the fabric's WWNs come from.
	Rule AddressRule
}

// AddressRule is the address-source declaration, exactly one of
// StaticRule, DiscoveredRule or NoneRule.
type AddressRule interface {
	addressRule()
}

// StaticRule lists literal WWNs for fabrics without a discoverable
// hardware address. Declared order is preserved.
type StaticRule struct {
	WWNs []string
}

// DiscoveredRule enumerates hardware identifiers: glob the pattern,
// read each match, pass the content through the filter pipeline.
type DiscoveredRule struct {
	Pattern string
	Filter  filter.Pipeline
}

// NoneRule declares no address source. Name-based fabrics take their
// WWNs from the caller instead of the hardware.
type NoneRule struct{}

func (StaticRule) addressRule()     {}
func (DiscoveredRule) addressRule() {}
func (NoneRule) addressRule()       {}

// DefaultKernelModule derives the conventional module name for a
// fabric that does not declare one.
func DefaultKernelModule(name string) string {
	return name + "_target_mod"
}

// HasFeature reports whether the fabric declares the capability flag.
func (d Descriptor) HasFeature(f Feature) bool {
	for _, have := range d.Features {
		if have == f {
			return true
		}
	}
	return false
}

// NeedsWWN reports whether targets for this fabric must take their
// WWN from the address rule. Fabrics without a rule accept caller
// supplied names instead.
func (d Descriptor) NeedsWWN() bool {
	switch d.Rule.(type) {
	case StaticRule, DiscoveredRule:
		return true
	}
	return false
}

// Validate checks the descriptor invariants: a name, a known feature
// set, a known WWN type tag and a well-formed address rule.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("fabric descriptor has no name")
	}
	for _, f := range d.Features {
		if !KnownFeature(f) {
			return fmt.Errorf("fabric %s: %w: %q", d.Name, ErrUnknownFeature, f)
		}
	}
	if d.WWNType != "" && !wwn.KnownType(d.WWNType) {
		return fmt.Errorf("fabric %s: unknown wwn_type %q", d.Name, d.WWNType)
	}
	switch rule := d.Rule.(type) {
	case nil, NoneRule, StaticRule:
	case DiscoveredRule:
		if rule.Pattern == "" {
			return fmt.Errorf("fabric %s: discovery rule has no glob pattern", d.Name)
		}
		if _, err := filepath.Match(rule.Pattern, ""); err != nil {
			return fmt.Errorf("fabric %s: glob %q: %w", d.Name, rule.Pattern, err)
		}
	default:
		return fmt.Errorf("fabric %s: unknown address rule %T", d.Name, rule)
	}
	return nil
}
