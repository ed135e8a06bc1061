package suitecrm

import (
	"net/url"
	"strings"
)

// Param is a single request parameter. Values holds array-valued parameters,
// which are expanded as repeated key[]=value pairs in the order given.
type Param struct {
	Key    string
	Value  string
	Values []string
}

// encodeParams builds the query string or form body for a parameter list,
// preserving parameter order.
func encodeParams(params []Param) string {
	var sb strings.Builder

	for _, p := range params {
		if len(p.Values) > 0 {
			for _, v := range p.Values {
				if sb.Len() > 0 {
					sb.WriteByte('&')
				}

				sb.WriteString(url.QueryEscape(p.Key))
				sb.WriteString("[]=")
				sb.WriteString(url.QueryEscape(v))
			}

			continue
		}

		if sb.Len() > 0 {
			sb.WriteByte('&')
		}

		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}

	return sb.String()
}

// joinFilters combines JSON:API filter expressions with the AND operator
// the way the V8 API expects them.
func joinFilters(filters []string) string {
	return strings.Join(filters, "&filter[operator]=and&")
}
