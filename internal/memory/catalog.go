package memory

// CatalogEntry is one predefined stamp.
type CatalogEntry struct {
	ID    string `json:"id"`
	Glyph string `json:"glyph"`
	Label string `json:"label"`
}

// Catalog is the fixed set of stamps a memory can receive.
var Catalog = []CatalogEntry{
	{ID: "1", Glyph: "👍", Label: "Nice"},
	{ID: "2", Glyph: "❤️", Label: "Heart"},
	{ID: "3", Glyph: "👏", Label: "Applause"},
	{ID: "4", Glyph: "🎉", Label: "Celebrate"},
	{ID: "5", Glyph: "✨", Label: "Sparkle"},
	{ID: "6", Glyph: "💪", Label: "You got this"},
	{ID: "7", Glyph: "🙏", Label: "Thank you"},
	{ID: "8", Glyph: "💯", Label: "Perfect"},
}

// LookupStamp returns the catalog entry with id.
func LookupStamp(id string) (CatalogEntry, bool) {
	for _, e := range Catalog {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
