package fabric

import (
	"bytes"
	"fmt"
	"strings"
)

// Encode renders the descriptor back into its declarative source
// form. The output is canonical: list values are parenthesized and
// defaulted keys are spelled out, so the encoded file stands alone
// and parses back to an equal descriptor.
func (d Descriptor) Encode() []byte {
	var b bytes.Buffer
	features := make([]string, len(d.Features))
	for i, f := range d.Features {
		features[i] = string(f)
	}
	fmt.Fprintf(&b, "features = %s\n", encodeList(features))
	fmt.Fprintf(&b, "kernel_module = %s\n", encodeValue(d.KernelModule))
	fmt.Fprintf(&b, "configfs_group = %s\n", encodeValue(d.ConfigFSGroup))
	if d.WWNType != "" {
		fmt.Fprintf(&b, "wwn_type = %s\n", encodeValue(string(d.WWNType)))
	}
	switch rule := d.Rule.(type) {
	case StaticRule:
		fmt.Fprintf(&b, "wwns = %s\n", encodeList(rule.WWNs))
	case DiscoveredRule:
		fmt.Fprintf(&b, "wwn_from_files = %s\n", encodeValue(rule.Pattern))
		if len(rule.Filter) > 0 {
			fmt.Fprintf(&b, "wwn_from_files_filter = %s\n", encodeValue(rule.Filter.String()))
		}
	}
	return b.Bytes()
}

func encodeList(elems []string) string {
	quoted := make([]string, len(elems))
	for i, e := range elems {
		quoted[i] = encodeValue(e)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// encodeValue quotes values the grammar would otherwise misread:
// embedded whitespace, list punctuation, comment markers or quotes.
// List elements cannot contain commas at all; the splitter is not
// quote aware.
func encodeValue(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t,#;()[]'\"") {
		return s
	}
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}
