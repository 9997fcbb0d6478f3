// ABOUTME: Tests for the shareable-link codec
// ABOUTME: Legacy bare strings, JSON payloads and round trips

package search

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/facetsearch/pkg/filter"
	"github.com/nainya/facetsearch/pkg/registry"
)

func TestParseQueryAbsent(t *testing.T) {
	for _, raw := range []string{"", "?", "?other=1", "page=2"} {
		parsed, err := ParseQuery(raw)
		require.NoError(t, err, "raw %q", raw)
		assert.Nil(t, parsed, "raw %q", raw)
	}
}

func TestParseQueryLegacyBareString(t *testing.T) {
	parsed, err := ParseQuery("?q=test")
	require.NoError(t, err)
	require.NotNil(t, parsed)

	// A legacy link applies the text to every entity type.
	for _, et := range registry.TypeOrder {
		assert.Equal(t, "test", parsed.Query[et])
	}
	assert.Nil(t, parsed.Filters)
	assert.Equal(t, "test", parsed.Term())
}

func TestParseQueryLegacyBrokenJSONFallsBack(t *testing.T) {
	// Legacy links are searched verbatim even when the text happens to
	// start with a brace but is not JSON.
	for _, text := range []string{"{plasma", "{not json}", "{{", "plasma}"} {
		parsed, err := ParseQuery("?q=" + url.QueryEscape(text))
		require.NoError(t, err, "text %q", text)
		require.NotNil(t, parsed, "text %q", text)
		for _, et := range registry.TypeOrder {
			assert.Equal(t, text, parsed.Query[et])
		}
		assert.Nil(t, parsed.Filters)
	}
}

func TestParseQueryLegacyPercentEncoded(t *testing.T) {
	parsed, err := ParseQuery("?q=ribosome%20assembly")
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, "ribosome assembly", parsed.Term())
}

func TestParseQueryJSONPayload(t *testing.T) {
	payload := `{"query":"plasma","filters":{"op":"and","content":[` +
		`{"kind":"typeAttribute","target":["experiment","createdDate"],"op":">=","content":"2020-01-23"}]}}`
	parsed, err := ParseQuery("?q=" + url.QueryEscape(payload))
	require.NoError(t, err)
	require.NotNil(t, parsed)

	assert.Equal(t, "plasma", parsed.Term())
	require.NotNil(t, parsed.Filters)
	require.Len(t, parsed.Filters.Content, 1)

	c := parsed.Filters.Content[0]
	assert.Equal(t, registry.KindTypeAttribute, c.Kind)
	assert.Equal(t, []string{"experiment", "createdDate"}, c.Target)
	assert.Equal(t, filter.OpGTE, c.Op)
	assert.Equal(t, "2020-01-23", c.Content)
}

func TestParseQueryPerTypeMap(t *testing.T) {
	payload := `{"query":{"experiment":"plasma","dataset":""}}`
	parsed, err := ParseQuery("?q=" + url.QueryEscape(payload))
	require.NoError(t, err)
	require.NotNil(t, parsed)

	assert.Equal(t, "plasma", parsed.Query[registry.TypeExperiment])
	assert.Equal(t, "plasma", parsed.Term())
}

func TestParseQueryRejectsUnknownTypeKey(t *testing.T) {
	payload := `{"query":{"sample":"x"}}`
	_, err := ParseQuery("?q=" + url.QueryEscape(payload))
	assert.Error(t, err)
}

func TestParseQueryRejectsUnknownFilterKind(t *testing.T) {
	payload := `{"filters":{"op":"and","content":[` +
		`{"kind":"wildcard","target":["a","b"],"op":"is","content":["1"]}]}}`
	_, err := ParseQuery("?q=" + url.QueryEscape(payload))
	assert.Error(t, err)
}

func TestEncodeQueryEmpty(t *testing.T) {
	link, err := EncodeQuery("", nil)
	require.NoError(t, err)
	assert.Empty(t, link, "nothing to share yields no link")
}

func TestEncodeQueryOmitsEmptyFields(t *testing.T) {
	link, err := EncodeQuery("plasma", nil)
	require.NoError(t, err)
	require.NotEmpty(t, link)

	parsed, err := ParseQuery(link)
	require.NoError(t, err)
	assert.Equal(t, "plasma", parsed.Term())
	assert.Nil(t, parsed.Filters)
}

func TestEncodeQueryRoundTrip(t *testing.T) {
	q := &filter.Query{Op: "and", Content: []filter.Clause{
		{Kind: registry.KindTypeAttribute, Target: []string{"experiment", "createdDate"},
			Type: registry.DataDatetime, Op: filter.OpGTE, Content: "2020-01-01"},
		{Kind: registry.KindSchemaParameter, Target: []string{"2", "4"},
			Type: registry.DataString, Op: filter.OpContains, Content: "RNSeq"},
	}}

	link, err := EncodeQuery("plasma physics", q)
	require.NoError(t, err)

	parsed, err := ParseQuery(link)
	require.NoError(t, err)
	require.NotNil(t, parsed)

	assert.Equal(t, "plasma physics", parsed.Term())
	require.NotNil(t, parsed.Filters)
	require.Len(t, parsed.Filters.Content, 2)
	assert.Equal(t, q.Content[0].Target, parsed.Filters.Content[0].Target)
	assert.Equal(t, q.Content[1].Op, parsed.Filters.Content[1].Op)
}

func TestParsedQueryTerm(t *testing.T) {
	var p *ParsedQuery
	assert.Empty(t, p.Term())

	p = &ParsedQuery{Query: map[registry.EntityType]string{
		registry.TypeDataset: "only datasets",
	}}
	assert.Equal(t, "only datasets", p.Term())

	// Hierarchy order wins when terms differ.
	p = &ParsedQuery{Query: map[registry.EntityType]string{
		registry.TypeProject: "projects",
		registry.TypeDataset: "datasets",
	}}
	assert.Equal(t, "projects", p.Term())
}
