package wwn

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Type categorizes the textual shape of a WWN
type Type string

const (
	TypeFree       Type = "free"
	TypeIQN        Type = "iqn"
	TypeNAA        Type = "naa"
	TypeEUI        Type = "eui"
	TypeIB         Type = "ib"
	TypeUnitSerial Type = "unit_serial"
)

// KnownType returns true if t is one of the recognized WWN types
func KnownType(t Type) bool {
	switch t {
	case TypeFree, TypeIQN, TypeNAA, TypeEUI, TypeIB, TypeUnitSerial:
		return true
	}
	return false
}

var (
	iqnRe        = regexp.MustCompile(`^iqn\.[0-9]{4}-[0-1][0-9]\..*\..*`)
	naaRe        = regexp.MustCompile(`^naa\.[0-9A-Fa-f]{16}$`)
	euiRe        = regexp.MustCompile(`^eui\.[0-9A-Fa-f]{16}$`)
	ibRe         = regexp.MustCompile(`^0x[0-9A-Fa-f]{32}$`)
	unitSerialRe = regexp.MustCompile(`^[0-9A-Fa-f]{8}(-[0-9A-Fa-f]{4}){3}-[0-9A-Fa-f]{12}$`)
)

// Valid returns true if s is a well-formed WWN of type t.
// Free-form WWNs only need to be non-empty; iqn additionally rejects
// spaces and underscores, which the kernel target refuses.
func Valid(t Type, s string) bool {
	switch t {
	case TypeFree:
		return s != ""
	case TypeIQN:
		return iqnRe.MatchString(s) && !strings.ContainsAny(s, " _")
	case TypeNAA:
		return naaRe.MatchString(s)
	case TypeEUI:
		return euiRe.MatchString(s)
	case TypeIB:
		return ibRe.MatchString(s)
	case TypeUnitSerial:
		return unitSerialRe.MatchString(s)
	}
	return false
}

// Generate creates a random WWN of type t for fabrics whose targets are
// named rather than hardware-addressed. iqn WWNs embed the short
// hostname and machine architecture following the 2003-01
// org.linux-iscsi naming convention; naa and eui WWNs carry the
// 001405 OpenFabrics OUI.
func Generate(t Type) (string, error) {
	switch t {
	case TypeFree, TypeUnitSerial:
		return uuid.New().String(), nil
	case TypeIQN:
		host, err := os.Hostname()
		if err != nil {
			return "", fmt.Errorf("generate iqn: %w", err)
		}
		host, _, _ = strings.Cut(host, ".")
		prefix := strings.ToLower(fmt.Sprintf("iqn.2003-01.org.linux-iscsi.%s.%s", host, machine()))
		return fmt.Sprintf("%s:sn.%s", prefix, uuid.New().String()[24:]), nil
	case TypeNAA:
		hex := strings.ReplaceAll(uuid.New().String(), "-", "")
		return "naa.6001405" + hex[:9], nil
	case TypeEUI:
		hex := strings.ReplaceAll(uuid.New().String(), "-", "")
		return "eui.001405" + hex[:10], nil
	}
	return "", fmt.Errorf("cannot generate a wwn of type %q", t)
}

// machine returns the uname machine field with underscores removed
// (x86_64 becomes x8664), matching the iqn charset rules
func machine() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}
	return strings.ReplaceAll(unix.ByteSliceToString(uts.Machine[:]), "_", "")
}

// Group rechunks s into n-character groups joined by sep. A shorter
// remainder is kept as the final group: Group("12345", 2, ":") is
// "12:34:5".
func Group(s string, n int, sep string) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i += n {
		if i > 0 {
			b.WriteString(sep)
		}
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}

// Colonize inserts a colon every two characters, without a trailing
// colon: "1234567812345678" becomes "12:34:56:78:12:34:56:78"
func Colonize(s string) string {
	return Group(s, 2, ":")
}
