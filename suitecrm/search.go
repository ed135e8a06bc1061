package suitecrm

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
)

// searchModule describes one searchable collection: the fields requested
// from the listing endpoint and how a matching record is formatted. The
// slice order fixes the merge order of combined results.
type searchModule struct {
	module   string
	typeTag  string
	fields   string
	nameAttr string
	label    string
	subline  func(attrs map[string]any) string
}

var searchModules = []searchModule{
	{
		module:   "Contacts",
		typeTag:  "contact",
		fields:   "name,first_name,last_name,full_name",
		nameAttr: "full_name",
		label:    "👤 Contact",
	},
	{
		module:   "Accounts",
		typeTag:  "account",
		fields:   "name",
		nameAttr: "name",
		label:    "🛡 Account",
	},
	{
		module:   "Leads",
		typeTag:  "lead",
		fields:   "name,full_name",
		nameAttr: "full_name",
		label:    "💥 Lead",
	},
	{
		module:   "Opportunities",
		typeTag:  "opportunity",
		fields:   "name,amount,currency_symbol,currency_name",
		nameAttr: "name",
		label:    "💡 Opportunity",
		subline: func(attrs map[string]any) string {
			currency := attrString(attrs, "currency_symbol")
			if currency == "" {
				currency = attrString(attrs, "currency_name")
			}

			return "💡 Opportunity (" + attrString(attrs, "amount") + " " + currency + ")"
		},
	},
	{
		module:   "Cases",
		typeTag:  "case",
		fields:   "name",
		nameAttr: "name",
		label:    "📁 Case",
	},
}

// Search queries the five searchable collections and returns one merged,
// paginated result list. Collections are fetched concurrently but merged in
// fixed order (contacts, accounts, leads, opportunities, cases) so the
// combined order is deterministic. Any single collection failing aborts the
// whole search. Each collection is fetched in full and pagination is applied
// after merging, matching the upstream behavior.
func (c *Client) Search(ctx context.Context, userID, query string, offset, limit int) ([]SearchHit, error) {
	cred, err := c.credential(ctx, userID)
	if err != nil {
		return nil, err
	}

	matcher := newQueryMatcher(query)

	results := make([][]RemoteRecord, len(searchModules))

	g, gctx := errgroup.WithContext(ctx)

	for i, sm := range searchModules {
		i, sm := i, sm
		g.Go(func() error {
			endPoint := "module/" + sm.module + "?" + encodeParams([]Param{
				{Key: "fields[" + sm.module + "]", Value: sm.fields},
			})

			records, err := c.getList(gctx, userID, endPoint)
			if err != nil {
				return err
			}

			results[i] = records

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []SearchHit

	for i, sm := range searchModules {
		for _, rec := range results[i] {
			name := attrString(rec.Attributes, sm.nameAttr)
			if !matcher(name) {
				continue
			}

			subline := sm.label
			if sm.subline != nil {
				subline = sm.subline(rec.Attributes)
			}

			combined = append(combined, SearchHit{
				SourceType:  sm.typeTag,
				DisplayName: name,
				Subline:     subline,
				DeepLink:    cred.InstanceURL + "/index.php?module=" + sm.module + "&action=DetailView&record=" + rec.ID,
			})
		}
	}

	return paginate(combined, offset, limit), nil
}

// newQueryMatcher treats the query as a case-insensitive regular expression,
// falling back to a plain substring match when it does not compile.
func newQueryMatcher(query string) func(string) bool {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		lower := strings.ToLower(query)

		return func(s string) bool {
			return strings.Contains(strings.ToLower(s), lower)
		}
	}

	return re.MatchString
}

func paginate(hits []SearchHit, offset, limit int) []SearchHit {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(hits) {
		return []SearchHit{}
	}

	end := len(hits)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return hits[offset:end]
}
