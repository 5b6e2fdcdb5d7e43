package content

import (
	"fmt"
	"time"

	"github.com/pbaille/folio/internal/frontmatter"
)

// FieldSpec declares one frontmatter field of a document kind.
type FieldSpec struct {
	Name string
	Type frontmatter.Kind
}

// Kind describes a document collection: where it lives and which
// frontmatter fields it carries, in on-disk order.
type Kind struct {
	Name   string
	Dir    string
	Ext    string
	Fields []FieldSpec
}

// Work is the portfolio project collection.
var Work = Kind{
	Name: "work",
	Dir:  "work",
	Ext:  ".mdx",
	Fields: []FieldSpec{
		{Name: "title", Type: frontmatter.KindString},
		{Name: "description", Type: frontmatter.KindString},
		{Name: "date", Type: frontmatter.KindString},
		{Name: "category", Type: frontmatter.KindString},
		{Name: "cover", Type: frontmatter.KindString},
		{Name: "images", Type: frontmatter.KindList},
		{Name: "featured", Type: frontmatter.KindBool},
		{Name: "order", Type: frontmatter.KindNumber},
	},
}

// Writing is the blog post collection.
var Writing = Kind{
	Name: "writing",
	Dir:  "writing",
	Ext:  ".mdx",
	Fields: []FieldSpec{
		{Name: "title", Type: frontmatter.KindString},
		{Name: "date", Type: frontmatter.KindString},
		{Name: "excerpt", Type: frontmatter.KindString},
		{Name: "cover", Type: frontmatter.KindString},
	},
}

func (k Kind) field(name string) (FieldSpec, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// defaults returns the metadata a freshly created document starts from.
func (k Kind) defaults(now time.Time) frontmatter.Metadata {
	meta := make(frontmatter.Metadata, 0, len(k.Fields))
	for _, f := range k.Fields {
		var v frontmatter.Value
		switch f.Type {
		case frontmatter.KindList:
			v = frontmatter.List()
		case frontmatter.KindBool:
			v = frontmatter.Bool(false)
		case frontmatter.KindNumber:
			v = frontmatter.Number(0)
		default:
			v = frontmatter.String("")
		}
		if f.Name == "date" {
			v = frontmatter.String(now.Format(time.DateOnly))
		}
		meta = append(meta, frontmatter.Field{Key: f.Name, Value: v})
	}
	return meta
}

// merge applies provided fields over base. Empty strings and lists keep the
// base value; booleans and numbers are taken whenever present. Keys outside
// the schema are ignored.
func (k Kind) merge(base, provided frontmatter.Metadata) (frontmatter.Metadata, error) {
	out := base.Clone()
	for _, f := range provided {
		spec, ok := k.field(f.Key)
		if !ok {
			continue
		}
		if f.Value.Kind != spec.Type {
			return nil, fmt.Errorf("%w: field %s must be a %s", ErrInvalidInput, f.Key, spec.Type)
		}
		if f.Value.IsEmpty() {
			if _, exists := out.Get(f.Key); exists {
				continue
			}
		}
		out.Set(f.Key, f.Value)
	}
	return out, nil
}
