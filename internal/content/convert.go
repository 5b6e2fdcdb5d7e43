package content

import (
	"strconv"

	"github.com/pbaille/folio/internal/domain"
	"github.com/pbaille/folio/internal/frontmatter"
)

// ProjectFromDocument maps a work document onto its public shape. Missing or
// mistyped fields take their zero value.
func ProjectFromDocument(d Document) domain.Project {
	images, _ := d.Meta.GetList("images")
	if images == nil {
		images = []string{}
	}
	featured, _ := d.Meta.GetBool("featured")
	order, _ := d.Meta.GetNumber("order")

	return domain.Project{
		Slug:        d.Slug,
		Title:       text(d.Meta, "title"),
		Description: text(d.Meta, "description"),
		Date:        text(d.Meta, "date"),
		Category:    text(d.Meta, "category"),
		Cover:       text(d.Meta, "cover"),
		Images:      images,
		Featured:    featured,
		Order:       order,
		Content:     d.Body,
	}
}

// PostFromDocument maps a writing document onto its public shape.
func PostFromDocument(d Document) domain.Post {
	return domain.Post{
		Slug:    d.Slug,
		Title:   text(d.Meta, "title"),
		Date:    text(d.Meta, "date"),
		Excerpt: text(d.Meta, "excerpt"),
		Cover:   text(d.Meta, "cover"),
		Content: d.Body,
	}
}

// text reads key as a string; hand-edited files sometimes hold numbers
// (e.g. `date: 2024`), which are rendered back as text.
func text(meta frontmatter.Metadata, key string) string {
	v, ok := meta.Get(key)
	if !ok {
		return ""
	}
	switch v.Kind {
	case frontmatter.KindString:
		return v.Str
	case frontmatter.KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}
