package outbox

import "gorm.io/gorm/clause"

// forUpdateSkipLocked lets concurrent dispatchers claim disjoint batches.
func forUpdateSkipLocked() clause.Locking {
	return clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
}
