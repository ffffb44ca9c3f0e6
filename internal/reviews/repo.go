package reviews

import "context"

// Repo defines persistence operations for reviews. The table is append-only:
// rows are written once with their terminal status and never mutated.
type Repo interface {
	Create(ctx context.Context, review Review) error
	GetByID(ctx context.Context, reviewID string) (Review, error)
	List(ctx context.Context, limit, offset int) ([]Review, error)
	// ListRecords returns the case records of completed reviews in stable
	// table order (oldest first); this is the Historical Matcher's input.
	ListRecords(ctx context.Context) ([]CaseRecord, error)
}
