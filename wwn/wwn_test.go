package wwn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	tests := map[string]struct {
		typ  Type
		wwn  string
		want bool
	}{
		"free accepts anything non-empty": {TypeFree, "banana", true},
		"free rejects empty":              {TypeFree, "", false},
		"iqn well formed":                 {TypeIQN, "iqn.2003-01.org.linux-iscsi.host.x8664:sn.abcdef123456", true},
		"iqn rejects underscore":          {TypeIQN, "iqn.2003-01.org.linux_iscsi.host:sn.1", false},
		"iqn rejects space":               {TypeIQN, "iqn.2003-01.org.linux-iscsi.ho st:sn.1", false},
		"iqn rejects missing date":        {TypeIQN, "iqn.org.linux-iscsi.host:sn.1", false},
		"naa well formed":                 {TypeNAA, "naa.6001405abcdef0123", true},
		"naa wrong length":                {TypeNAA, "naa.6001405", false},
		"naa non-hex":                     {TypeNAA, "naa.6001405zzzzzzzzz", false},
		"eui well formed":                 {TypeEUI, "eui.001405aabbccddee", true},
		"eui missing prefix":              {TypeEUI, "001405aabbccddee00", false},
		"ib 32 hex digits":                {TypeIB, "0xfe800000000000000002c903000e8acd", true},
		"ib missing 0x":                   {TypeIB, "fe800000000000000002c903000e8acd", false},
		"unit serial uuid form":           {TypeUnitSerial, "12345678-abcd-ef01-2345-67890abcdef0", true},
		"unit serial bare hex":            {TypeUnitSerial, "1234567890abcdef1234567890abcdef", false},
		"unknown type":                    {Type("mac"), "00:11:22:33:44:55", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.typ, tt.wwn))
		})
	}
}

func TestKnownType(t *testing.T) {
	for _, typ := range []Type{TypeFree, TypeIQN, TypeNAA, TypeEUI, TypeIB, TypeUnitSerial} {
		assert.True(t, KnownType(typ), "%s", typ)
	}
	assert.False(t, KnownType(Type("mac")))
	assert.False(t, KnownType(Type("")))
}

func TestGenerate(t *testing.T) {
	t.Run("free is a uuid", func(t *testing.T) {
		s, err := Generate(TypeFree)
		require.NoError(t, err)
		assert.True(t, Valid(TypeUnitSerial, s), "uuid form, got %q", s)
	})
	t.Run("unit serial is a uuid", func(t *testing.T) {
		s, err := Generate(TypeUnitSerial)
		require.NoError(t, err)
		assert.True(t, Valid(TypeUnitSerial, s), "got %q", s)
	})
	t.Run("naa carries the 6001405 prefix", func(t *testing.T) {
		s, err := Generate(TypeNAA)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(s, "naa.6001405"), "got %q", s)
		assert.True(t, Valid(TypeNAA, s), "got %q", s)
	})
	t.Run("eui carries the 001405 prefix", func(t *testing.T) {
		s, err := Generate(TypeEUI)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(s, "eui.001405"), "got %q", s)
		assert.True(t, Valid(TypeEUI, s), "got %q", s)
	})
	t.Run("iqn follows the linux-iscsi convention", func(t *testing.T) {
		s, err := Generate(TypeIQN)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(s, "iqn.2003-01.org.linux-iscsi."), "got %q", s)
		assert.Contains(t, s, ":sn.")
		assert.Equal(t, strings.ToLower(s), s, "iqn must be lowercase")
	})
	t.Run("unknown type errors", func(t *testing.T) {
		_, err := Generate(Type("mac"))
		assert.Error(t, err)
	})
	t.Run("successive wwns differ", func(t *testing.T) {
		a, err := Generate(TypeFree)
		require.NoError(t, err)
		b, err := Generate(TypeFree)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestGroup(t *testing.T) {
	tests := map[string]struct {
		s    string
		n    int
		sep  string
		want string
	}{
		"even pairs":        {"1234567812345678", 2, ":", "12:34:56:78:12:34:56:78"},
		"odd remainder":     {"12345", 2, ":", "12:34:5"},
		"exactly one group": {"12", 2, ":", "12"},
		"empty":             {"", 2, ":", ""},
		"triples":           {"abcdef", 3, "-", "abc-def"},
		"zero width is id":  {"abcdef", 0, "-", "abcdef"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Group(tt.s, tt.n, tt.sep))
		})
	}
}

func TestColonize(t *testing.T) {
	assert.Equal(t, "12:34:56:78:12:34:56:78", Colonize("1234567812345678"))
	assert.Equal(t, "ab", Colonize("ab"))
	assert.Equal(t, "", Colonize(""))
}
