package frontmatter_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/folio/internal/frontmatter"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		meta frontmatter.Metadata
		body string
	}{
		{
			name: "work project",
			raw: "---\n" +
				"title: Launch\n" +
				"date: 2024-01-01\n" +
				"featured: true\n" +
				"order: 5\n" +
				"images:\n" +
				"  - /work/a.jpg\n" +
				"  - /work/b.jpg\n" +
				"cover:\n" +
				"---\n" +
				"\n" +
				"# Heading\n",
			meta: frontmatter.Metadata{
				{Key: "title", Value: frontmatter.String("Launch")},
				{Key: "date", Value: frontmatter.String("2024-01-01")},
				{Key: "featured", Value: frontmatter.Bool(true)},
				{Key: "order", Value: frontmatter.Number(5)},
				{Key: "images", Value: frontmatter.List("/work/a.jpg", "/work/b.jpg")},
				{Key: "cover", Value: frontmatter.String("")},
			},
			body: "# Heading\n",
		},
		{
			name: "no blank line after block",
			raw:  "---\ntitle: 'Quoted: yes'\n---\nBody\n",
			meta: frontmatter.Metadata{{Key: "title", Value: frontmatter.String("Quoted: yes")}},
			body: "Body\n",
		},
		{
			name: "flow list and float",
			raw:  "---\ntags: [a, b]\nratio: 1.5\n---\n",
			meta: frontmatter.Metadata{
				{Key: "tags", Value: frontmatter.List("a", "b")},
				{Key: "ratio", Value: frontmatter.Number(1.5)},
			},
			body: "",
		},
		{
			name: "crlf delimiters",
			raw:  "---\r\ntitle: x\r\n---\r\n\r\nbody",
			meta: frontmatter.Metadata{{Key: "title", Value: frontmatter.String("x")}},
			body: "body",
		},
		{
			name: "empty block",
			raw:  "---\n---\nbody",
			meta: frontmatter.Metadata{},
			body: "body",
		},
		{
			name: "nested mapping is dropped",
			raw:  "---\ntitle: x\nmeta:\n  a: 1\n---\n",
			meta: frontmatter.Metadata{{Key: "title", Value: frontmatter.String("x")}},
			body: "",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			meta, body := frontmatter.Parse(tc.raw)
			if diff := cmp.Diff(tc.meta, meta, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("metadata mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.body, body)
		})
	}
}

func TestParse_MalformedReturnsWholeInput(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"just markdown\n",
		"--- \ntitle: x\n---\n",
		"---\ntitle: x\nno closing delimiter\n",
		"---\ntitle: [unterminated\n---\nbody\n",
		"---\n- a\n- b\n---\nbody\n",
	}

	for _, raw := range inputs {
		meta, body := frontmatter.Parse(raw)
		assert.Empty(t, meta, "input %q", raw)
		assert.Equal(t, raw, body)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		meta frontmatter.Metadata
		body string
	}{
		{
			name: "typical post",
			meta: frontmatter.Metadata{
				{Key: "title", Value: frontmatter.String("Hello, world")},
				{Key: "date", Value: frontmatter.String("2024-06-01")},
				{Key: "excerpt", Value: frontmatter.String("")},
				{Key: "cover", Value: frontmatter.String("/writing/cover.png")},
			},
			body: "First paragraph.\n\nSecond.\n",
		},
		{
			name: "strings that look like other types",
			meta: frontmatter.Metadata{
				{Key: "a", Value: frontmatter.String("true")},
				{Key: "b", Value: frontmatter.String("12")},
				{Key: "c", Value: frontmatter.String("null")},
				{Key: "d", Value: frontmatter.String("~")},
				{Key: "e", Value: frontmatter.String(" padded ")},
				{Key: "f", Value: frontmatter.String("key: value")},
				{Key: "g", Value: frontmatter.String("# not a comment")},
				{Key: "h", Value: frontmatter.String("line one\nline two")},
			},
			body: "",
		},
		{
			name: "numbers bools lists",
			meta: frontmatter.Metadata{
				{Key: "order", Value: frontmatter.Number(-3)},
				{Key: "ratio", Value: frontmatter.Number(0.1)},
				{Key: "big", Value: frontmatter.Number(1e20)},
				{Key: "featured", Value: frontmatter.Bool(false)},
				{Key: "images", Value: frontmatter.List()},
				{Key: "tags", Value: frontmatter.List("a", "", "yes", "3")},
			},
			body: "body without trailing newline",
		},
		{
			name: "whitespace-only strings",
			meta: frontmatter.Metadata{
				{Key: "k", Value: frontmatter.String("\n")},
				{Key: "crlf", Value: frontmatter.String("\r\n\n")},
				{Key: "space", Value: frontmatter.String(" ")},
				{Key: "tab", Value: frontmatter.String("\t")},
				{Key: "l", Value: frontmatter.List("\n", " ", "x")},
			},
			body: "body\n",
		},
		{
			name: "empty metadata",
			meta: frontmatter.Metadata{},
			body: "\nbody starting with a newline\n",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raw, err := frontmatter.Serialize(tc.meta, tc.body)
			require.NoError(t, err)

			meta, body := frontmatter.Parse(raw)
			if diff := cmp.Diff(tc.meta, meta, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("metadata mismatch (-want +got):\n%s\nserialized:\n%s", diff, raw)
			}
			assert.Equal(t, tc.body, body)
		})
	}
}

func TestSerialize_Layout(t *testing.T) {
	t.Parallel()

	raw, err := frontmatter.Serialize(frontmatter.Metadata{
		{Key: "title", Value: frontmatter.String("Launch")},
		{Key: "order", Value: frontmatter.Number(1)},
		{Key: "images", Value: frontmatter.List("/a.jpg")},
	}, "Body\n")
	require.NoError(t, err)

	assert.Equal(t, "---\ntitle: Launch\norder: 1\nimages:\n  - /a.jpg\n---\n\nBody\n", raw)
}

func TestSerialize_RejectsNonFiniteNumber(t *testing.T) {
	t.Parallel()

	_, err := frontmatter.Serialize(frontmatter.Metadata{
		{Key: "order", Value: frontmatter.Number(math.Inf(1))},
	}, "")
	require.Error(t, err)
}

func TestMetadata_SetDeleteClone(t *testing.T) {
	t.Parallel()

	var meta frontmatter.Metadata
	meta.Set("title", frontmatter.String("a"))
	meta.Set("images", frontmatter.List("x"))
	meta.Set("title", frontmatter.String("b"))

	assert.Equal(t, []string{"title", "images"}, meta.Keys())

	title, ok := meta.GetString("title")
	require.True(t, ok)
	assert.Equal(t, "b", title)

	_, ok = meta.GetNumber("title")
	assert.False(t, ok)

	clone := meta.Clone()
	clone[1].Value.List[0] = "changed"
	images, _ := meta.GetList("images")
	assert.Equal(t, []string{"x"}, images)

	meta.Delete("title")
	assert.Equal(t, []string{"images"}, meta.Keys())
}
