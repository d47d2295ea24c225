package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("single step", func(t *testing.T) {
		p, err := Parse("strip_prefix 0x")
		require.NoError(t, err)
		assert.Equal(t, Pipeline{stripPrefix{"0x"}}, p)
	})
	t.Run("multi step", func(t *testing.T) {
		p, err := Parse("strip_prefix 0x | colonize")
		require.NoError(t, err)
		assert.Equal(t, Pipeline{stripPrefix{"0x"}, colonize{2}}, p)
	})
	t.Run("quoted argument", func(t *testing.T) {
		p, err := Parse(`replace "a b" c`)
		require.NoError(t, err)
		assert.Equal(t, Pipeline{replace{old: "a b", new: "c"}}, p)
	})
	t.Run("single quoted argument", func(t *testing.T) {
		p, err := Parse(`strip_suffix ' '`)
		require.NoError(t, err)
		assert.Equal(t, Pipeline{stripSuffix{" "}}, p)
	})
	t.Run("empty expression is the identity", func(t *testing.T) {
		p, err := Parse("")
		require.NoError(t, err)
		assert.Nil(t, p)
		p, err = Parse("   ")
		require.NoError(t, err)
		assert.Nil(t, p)
	})
	t.Run("whitespace around pipes is ignored", func(t *testing.T) {
		a, err := Parse("remove : | prefix 0x")
		require.NoError(t, err)
		b, err := Parse("remove :|prefix 0x")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown verb":          "rot13",
		"unknown verb in chain": "strip_prefix 0x | rot13",
		"empty step":            "strip_prefix 0x ||colonize",
		"leading pipe":          "| colonize",
		"unterminated quote":    `strip_prefix "0x`,
		"missing argument":      "strip_prefix",
		"surplus argument":      "lower now",
	}
	for name, expr := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(expr)
			assert.Error(t, err)
		})
	}
	t.Run("unknown verbs carry ErrUnknownStep", func(t *testing.T) {
		_, err := Parse("rot13")
		assert.ErrorIs(t, err, ErrUnknownStep)
	})
}

func TestRunStopsAtFirstError(t *testing.T) {
	p, err := Parse("match 0x* | upper")
	require.NoError(t, err)
	c := &Candidate{Text: "fe80"}
	err = p.Run(c)
	assert.ErrorIs(t, err, ErrSkip)
	assert.Equal(t, "fe80", c.Text, "later steps must not run")
}

func TestPipelineString(t *testing.T) {
	tests := map[string]string{
		"strip_prefix 0x | colonize":                  "strip_prefix 0x | colonize",
		"remove :|prefix 0x":                          "remove : | prefix 0x",
		"require_true | sibling guid":                 "require_true | sibling guid",
		`replace "a b" c`:                             `replace "a b" c`,
		"colonize 2":                                  "colonize",
		"strip ''":                                    "strip",
		"pad 16 0":                                    "pad 16",
		"slice 0 -2 | group 4 - | match naa.* | pad 3": "slice 0 -2 | group 4 - | match naa.* | pad 3",
	}
	for expr, want := range tests {
		t.Run(expr, func(t *testing.T) {
			p, err := Parse(expr)
			require.NoError(t, err)
			assert.Equal(t, want, p.String())
		})
	}
	assert.Equal(t, "", Pipeline(nil).String())
}

func TestStringRoundTrip(t *testing.T) {
	exprs := []string{
		"strip_prefix 0x | colonize",
		"remove : | prefix 0x",
		"require_true | sibling guid | strip_prefix 0x",
		`replace "a b" c | replace_first x y | strip`,
		"slice 0 -2 | pad 16 | upper | lower",
		"group 4 - | match naa.* | strip_suffix :",
		`suffix " " | strip " "`,
	}
	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			p, err := Parse(expr)
			require.NoError(t, err)
			back, err := Parse(p.String())
			require.NoError(t, err)
			assert.Equal(t, p, back)
		})
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]struct{ in, want string }{
		"bare":         {"0x", "0x"},
		"glob chars":   {"naa.*", "naa.*"},
		"empty":        {"", `""`},
		"space":        {"a b", `"a b"`},
		"tab":          {"a\tb", "\"a\tb\""},
		"double quote": {`a"b`, `"a\"b"`},
		"backslash":    {`a\b`, `"a\\b"`},
		"single quote": {"a'b", `"a'b"`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := Quote(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.in == "" {
				return
			}
			p, err := Parse("prefix " + got)
			require.NoError(t, err)
			c := &Candidate{}
			require.NoError(t, p.Run(c))
			assert.Equal(t, tt.in, c.Text, "quoted value must survive a parse")
		})
	}
}

func TestNewStepRejectsPipesInArguments(t *testing.T) {
	_, err := newStep("prefix", []string{"a|b"})
	assert.Error(t, err)
}
