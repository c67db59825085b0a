package service

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/atinyakov/PartKeeper/internal/models"
	"github.com/samber/lo"
)

// Named categories of the parts view.
const (
	CategoryAll = "all"
	CategoryLow = "low"
	CategoryOut = "out"
	// CategoryReorder marks the reorder suggestions, served by their own page.
	CategoryReorder = "reorder"
)

// View is an ordered selection of parts with a display title.
type View struct {
	Title    string
	Category string
	Parts    []models.Part
}

// filterParts selects the parts of a category and sorts them by part number.
// Categories other than low, out, a known tag or "other" select everything.
func filterParts(parts []models.Part, category string, tags []string) View {
	category = strings.ToLower(strings.TrimSpace(category))

	var view View
	switch {
	case category == CategoryLow:
		view = View{Title: "Low Stock Parts", Category: CategoryLow, Parts: lo.Filter(parts, func(p models.Part, _ int) bool {
			return p.LowStock()
		})}
	case category == CategoryOut:
		view = View{Title: "Out of Stock Parts", Category: CategoryOut, Parts: lo.Filter(parts, func(p models.Part, _ int) bool {
			return p.OutOfStock()
		})}
	case category == models.TagOther:
		view = View{Title: tagTitle(category), Category: category, Parts: lo.Filter(parts, func(p models.Part, _ int) bool {
			return p.Untagged()
		})}
	case category != "" && lo.Contains(tags, category):
		view = View{Title: tagTitle(category), Category: category, Parts: lo.Filter(parts, func(p models.Part, _ int) bool {
			return p.Tag == category
		})}
	default:
		view = View{Title: "All Parts", Category: CategoryAll, Parts: slices.Clone(parts)}
	}

	sortByPartNumber(view.Parts)
	return view
}

// reorderParts selects every part under its threshold, empty stock included.
func reorderParts(parts []models.Part) View {
	view := View{
		Title:    "Reorder Suggestions",
		Category: CategoryReorder,
		Parts: lo.Filter(parts, func(p models.Part, _ int) bool {
			return p.NeedsReorder()
		}),
	}
	sortByPartNumber(view.Parts)
	return view
}

func sortByPartNumber(parts []models.Part) {
	slices.SortFunc(parts, func(a, b models.Part) int {
		return strings.Compare(a.PartNumber, b.PartNumber)
	})
}

func tagTitle(tag string) string {
	if tag == "" {
		return "Parts"
	}
	r, size := utf8.DecodeRuneInString(tag)
	return string(unicode.ToUpper(r)) + tag[size:] + " Parts"
}
