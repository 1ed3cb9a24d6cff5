package gradebook

// CheckUnique is the optimistic pre-commit check: at most one live score per
// (enrollment, scope). Soft-deleted rows never conflict, and a record never
// conflicts with itself. The authoritative guarantee under concurrent writers
// is the storage-level unique constraint; stores surface that conflict as the
// same DuplicateScoreError.
func CheckUnique(candidate *Score, existing []Score) error {
	if candidate.Deleted() {
		return nil
	}
	key := candidate.Scope.Key()
	for i := range existing {
		other := &existing[i]
		if other.ID == candidate.ID || other.Deleted() {
			continue
		}
		if other.EnrollmentID != candidate.EnrollmentID {
			continue
		}
		if other.Scope.Key() == key {
			return &DuplicateScoreError{EnrollmentID: candidate.EnrollmentID, Scope: candidate.Scope}
		}
	}
	return nil
}
