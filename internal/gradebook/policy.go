package gradebook

// CourseView is the course-side state a read check consults. Look it up per
// request: hide_final_grades can change between reads.
type CourseView interface {
	HideFinalGrades() bool
	HasTeacher(userID string) bool
}

// OwnerResolver maps an enrollment to the student user it belongs to.
type OwnerResolver interface {
	OwnerUserID(enrollmentID string) string
}

// CanRead decides read access to a score. In order: anonymous requesters are
// denied; the owning student is allowed unless the course hides final grades
// (the hide flag denies even the owner); teachers on the course are allowed
// regardless of the hide flag; everyone else — classmates included — is
// denied.
func CanRead(requesterID string, sc *Score, owners OwnerResolver, course CourseView) bool {
	if requesterID == "" || sc == nil {
		return false
	}
	if owner := owners.OwnerUserID(sc.EnrollmentID); owner != "" && owner == requesterID {
		return !course.HideFinalGrades()
	}
	return course.HasTeacher(requesterID)
}
