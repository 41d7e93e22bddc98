// Package catalog holds the canonical catalog record produced by the merge
// stage and persisted by the stores, plus the enrichment entry kept in the
// reference index.
package catalog

// Display labels produced by the gender mapper.
const (
	GenderWomen  = "for women"
	GenderMen    = "for men"
	GenderUnisex = "for women and men"
)

// Unknown is the default for a blank name or brand.
const Unknown = "Unknown"

// ReferenceEntry is the enrichment payload indexed by join key.
type ReferenceEntry struct {
	Description string
	// Creators is a flattened ", " joined list of names; may be empty.
	Creators string
}

// Record is one fully normalized fragrance. Every persisted row is built
// once by the merge stage and never updated by this module afterwards.
type Record struct {
	Name        string
	Brand       string
	ImageURL    string
	TopNotes    []string
	HeartNotes  []string
	BaseNotes   []string
	ReleaseYear *int
	Perfumer    *string
	Description string
	Gender      string
	Accords     []string
	Slug        string
	Scraped     bool
}

// Columns is the destination column order shared by every SQL store. Values
// returns a record's fields in this order.
var Columns = []string{
	"name",
	"brand",
	"image_url",
	"top_notes",
	"heart_notes",
	"base_notes",
	"release_year",
	"perfumer",
	"description",
	"gender",
	"accords",
	"slug",
	"scraped",
}

// Values returns the record's fields aligned to Columns. List columns are
// returned as []string (never nil) and nullable columns as nil when absent;
// stores encode them for their own column types.
func (r Record) Values() []any {
	var year any
	if r.ReleaseYear != nil {
		year = *r.ReleaseYear
	}
	var perfumer any
	if r.Perfumer != nil {
		perfumer = *r.Perfumer
	}
	return []any{
		r.Name,
		r.Brand,
		r.ImageURL,
		nonNil(r.TopNotes),
		nonNil(r.HeartNotes),
		nonNil(r.BaseNotes),
		year,
		perfumer,
		r.Description,
		r.Gender,
		nonNil(r.Accords),
		r.Slug,
		r.Scraped,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
