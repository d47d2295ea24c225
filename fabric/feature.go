package fabric

import (
	"errors"
	"slices"
)

// Feature is one boolean capability flag a fabric module may expose
// through its configfs tree. The vocabulary is closed: consumers gate
// which configuration objects they offer on exact membership, so an
// unknown flag is a descriptor error, never a new capability.
type Feature string

const (
	// FeatureACLs marks support for per-initiator access control lists.
	FeatureACLs Feature = "acls"
	// FeatureACLsAuth marks support for per-ACL authentication settings.
	FeatureACLsAuth Feature = "acls_auth"
	// FeatureACLsTCQDepth marks support for per-ACL tagged command
	// queue depth tuning.
	FeatureACLsTCQDepth Feature = "acls_tcq_depth"
	// FeatureDiscoveryAuth marks support for discovery authentication.
	FeatureDiscoveryAuth Feature = "discovery_auth"
	// FeatureNPs marks support for network portals.
	FeatureNPs Feature = "nps"
	// FeatureTPGTs marks support for multiple target portal group tags.
	FeatureTPGTs Feature = "tpgts"
)

// ErrUnknownFeature rejects capability flags outside the vocabulary.
var ErrUnknownFeature = errors.New("unknown feature")

var featureVocabulary = map[Feature]bool{
	FeatureACLs:          true,
	FeatureACLsAuth:      true,
	FeatureACLsTCQDepth:  true,
	FeatureDiscoveryAuth: true,
	FeatureNPs:           true,
	FeatureTPGTs:         true,
}

// KnownFeature reports whether f is part of the capability vocabulary.
func KnownFeature(f Feature) bool { return featureVocabulary[f] }

// DefaultFeatures is the classic full set assumed for descriptors
// that do not declare a features key.
func DefaultFeatures() []Feature {
	return []Feature{
		FeatureACLs,
		FeatureACLsAuth,
		FeatureDiscoveryAuth,
		FeatureNPs,
		FeatureTPGTs,
	}
}

// NormalizeFeatures sorts and de-duplicates a feature list so that
// two descriptors declaring the same capabilities compare equal.
func NormalizeFeatures(features []Feature) []Feature {
	if len(features) == 0 {
		return nil
	}
	out := slices.Clone(features)
	slices.Sort(out)
	return slices.Compact(out)
}
