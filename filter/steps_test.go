package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runText(t *testing.T, expr, in string) (string, error) {
	t.Helper()
	p, err := Parse(expr)
	require.NoError(t, err)
	c := &Candidate{Text: in}
	err = p.Run(c)
	return c.Text, err
}

func TestStepFixtures(t *testing.T) {
	tests := map[string]struct {
		expr string
		in   string
		want string
	}{
		"fc port name": {
			"strip_prefix 0x | colonize",
			"0x1234567812345678",
			"12:34:56:78:12:34:56:78",
		},
		"infiniband gid": {
			"remove : | prefix 0x",
			"fe80:0000:0000:0000:0002:c903:000e:8acd",
			"0xfe800000000000000002c903000e8acd",
		},
		"strip_prefix absent prefix": {"strip_prefix 0x", "1234", "1234"},
		"strip_prefix once only":     {"strip_prefix 0x", "0x0x12", "0x12"},
		"strip_suffix":               {"strip_suffix :", "12:34:", "12:34"},
		"strip_suffix absent suffix": {"strip_suffix :", "12:34", "12:34"},
		"strip whitespace":           {"strip", "  naa.60  ", "naa.60"},
		"strip cutset":               {"strip 0", "0ab0", "ab"},
		"prefix":                     {"prefix naa.", "6001405abc", "naa.6001405abc"},
		"suffix":                     {"suffix :1", "iqn.2003-01.org.x", "iqn.2003-01.org.x:1"},
		"remove all occurrences":     {"remove :", "a:b:c", "abc"},
		"replace all":                {"replace 00 xx", "000000", "xxxxxx"},
		"replace first":              {"replace_first 0 x", "000", "x00"},
		"slice head":                 {"slice 0 4", "abcdef", "abcd"},
		"slice to end":               {"slice 2", "abcdef", "cdef"},
		"slice negative start":       {"slice -4", "abcdef", "cdef"},
		"slice negative end":         {"slice 0 -2", "abcdef", "abcd"},
		"slice clamps end":           {"slice 0 99", "abc", "abc"},
		"slice clamps start":         {"slice -99 2", "abc", "ab"},
		"slice inverted is empty":    {"slice 4 2", "abcdef", ""},
		"lower":                      {"lower", "NAA.60AB", "naa.60ab"},
		"upper":                      {"upper", "fe80", "FE80"},
		"colonize default":           {"colonize", "1234567812345678", "12:34:56:78:12:34:56:78"},
		"colonize width":             {"colonize 4", "12345678", "1234:5678"},
		"colonize short input":       {"colonize", "a", "a"},
		"group":                      {"group 4 -", "deadbeefcafe", "dead-beef-cafe"},
		"pad":                        {"pad 8", "abc", "00000abc"},
		"pad custom fill":            {"pad 5 _", "abc", "__abc"},
		"pad wide enough already":    {"pad 2", "abcd", "abcd"},
		"match keeps matching text":  {"match 0x*", "0xdead", "0xdead"},
		"chained edits": {
			"strip | strip_prefix 0x | upper | colonize 4",
			" 0xdeadbeef\n",
			"DEAD:BEEF",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := runText(t, tt.expr, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectionSteps(t *testing.T) {
	tests := map[string]struct {
		expr string
		in   string
		keep bool
	}{
		"match hit":            {"match fe80*", "fe800000", true},
		"match miss":           {"match fe80*", "0x1234", false},
		"match question mark":  {"match host?", "host3", true},
		"require_true one":     {"require_true", "1", true},
		"require_true trimmed": {"require_true", " 1\n", true},
		"require_true any int": {"require_true", "42", true},
		"require_true zero":    {"require_true", "0", false},
		"require_true text":    {"require_true", "yes", false},
		"require_true empty":   {"require_true", "", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runText(t, tt.expr, tt.in)
			if tt.keep {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrSkip)
			}
		})
	}
}

func TestSibling(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "is_local"), []byte("1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guid"), []byte("0x0814438400a03932\n"), 0o644))

	t.Run("reads and trims the companion file", func(t *testing.T) {
		p, err := Parse("require_true | sibling guid | strip_prefix 0x")
		require.NoError(t, err)
		c := &Candidate{Path: filepath.Join(dir, "is_local"), Text: "1"}
		require.NoError(t, p.Run(c))
		assert.Equal(t, "0814438400a03932", c.Text)
	})
	t.Run("remote controller is skipped before the read", func(t *testing.T) {
		p, err := Parse("require_true | sibling guid")
		require.NoError(t, err)
		c := &Candidate{Path: filepath.Join(dir, "is_local"), Text: "0"}
		assert.ErrorIs(t, p.Run(c), ErrSkip)
	})
	t.Run("missing companion file is an error, not a skip", func(t *testing.T) {
		p, err := Parse("sibling serial")
		require.NoError(t, err)
		c := &Candidate{Path: filepath.Join(dir, "is_local"), Text: "1"}
		err = p.Run(c)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSkip)
	})
}

func TestStepArguments(t *testing.T) {
	tests := map[string]string{
		"strip_prefix empty":       "strip_prefix ''",
		"strip_suffix two args":    "strip_suffix a b",
		"strip two args":           "strip a b",
		"prefix empty":             "prefix ''",
		"suffix missing":           "suffix",
		"remove empty":             "remove ''",
		"replace empty old":        "replace '' x",
		"replace one arg":          "replace a",
		"replace_first three args": "replace_first a b c",
		"slice no args":            "slice",
		"slice non-integer":        "slice x",
		"slice bad end":            "slice 0 x",
		"lower with arg":           "lower x",
		"upper with arg":           "upper x",
		"colonize zero":            "colonize 0",
		"colonize negative":        "colonize -2",
		"group missing sep":        "group 2",
		"group empty sep":          "group 2 ''",
		"group zero width":         "group 0 :",
		"pad zero width":           "pad 0",
		"pad long fill":            "pad 8 00",
		"match empty":              "match ''",
		"require_true with arg":    "require_true 1",
		"sibling missing name":     "sibling",
		"sibling path":             "sibling a/b",
		"sibling dot":              "sibling .",
		"sibling dotdot":           "sibling ..",
	}
	for name, expr := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(expr)
			assert.Error(t, err)
		})
	}
}
