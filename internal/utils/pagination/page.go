package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize clamps page and limit into valid ranges and returns the row offset.
// Pages are 1-based.
func Normalize(page, limit int) (normPage, normLimit, offset int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit, (page - 1) * limit
}
