package domain

// Role identifies the caller class resolved by the identity context.
type Role string

const (
	RoleVolunteer    Role = "VOLUNTEER"
	RoleOrganization Role = "ORGANIZATION"
	RoleAdmin        Role = "ADMIN"
)

// Valid reports whether the role is one of the three known caller classes.
func (r Role) Valid() bool {
	switch r {
	case RoleVolunteer, RoleOrganization, RoleAdmin:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task. CLOSED is terminal.
type TaskStatus string

const (
	TaskStatusOpen   TaskStatus = "OPEN"
	TaskStatusClosed TaskStatus = "CLOSED"
)

// ParseTaskStatus validates an externally supplied task status string.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	switch TaskStatus(raw) {
	case TaskStatusOpen, TaskStatusClosed:
		return TaskStatus(raw), true
	}
	return "", false
}

// CanTransition reports whether a task may move from s to target.
// The only defined transition is OPEN -> CLOSED.
func (s TaskStatus) CanTransition(target TaskStatus) bool {
	return s == TaskStatusOpen && target == TaskStatusClosed
}

// Terminal reports whether no further transition is defined from s.
func (s TaskStatus) Terminal() bool { return s == TaskStatusClosed }

// ApplicationStatus is the lifecycle state of an application.
// PENDING is the only non-terminal state.
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "PENDING"
	ApplicationStatusApproved  ApplicationStatus = "APPROVED"
	ApplicationStatusRejected  ApplicationStatus = "REJECTED"
	ApplicationStatusWithdrawn ApplicationStatus = "WITHDRAWN"
)

// ParseApplicationStatus validates an externally supplied application status.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	switch ApplicationStatus(raw) {
	case ApplicationStatusPending, ApplicationStatusApproved,
		ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return ApplicationStatus(raw), true
	}
	return "", false
}

// CanTransition reports whether an application may move from s to target.
// All transitions originate from PENDING; APPROVED, REJECTED and WITHDRAWN
// are terminal.
func (s ApplicationStatus) CanTransition(target ApplicationStatus) bool {
	if s != ApplicationStatusPending {
		return false
	}
	switch target {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s ApplicationStatus) Terminal() bool { return s != ApplicationStatusPending }

// DecisionOutcome is the subset of application states an organization may
// decide into.
type DecisionOutcome = ApplicationStatus

// ParseDecisionOutcome accepts only APPROVED or REJECTED.
func ParseDecisionOutcome(raw string) (DecisionOutcome, bool) {
	switch ApplicationStatus(raw) {
	case ApplicationStatusApproved, ApplicationStatusRejected:
		return ApplicationStatus(raw), true
	}
	return "", false
}

// SubmissionStatus is the lifecycle state of a proof submission.
// APPROVED is terminal and triggers certificate issuance.
type SubmissionStatus string

const (
	SubmissionStatusUnderReview SubmissionStatus = "UNDER_REVIEW"
	SubmissionStatusApproved    SubmissionStatus = "APPROVED"
)

// ParseSubmissionStatus validates an externally supplied submission status.
func ParseSubmissionStatus(raw string) (SubmissionStatus, bool) {
	switch SubmissionStatus(raw) {
	case SubmissionStatusUnderReview, SubmissionStatusApproved:
		return SubmissionStatus(raw), true
	}
	return "", false
}

// CanTransition reports whether a submission may move from s to target.
func (s SubmissionStatus) CanTransition(target SubmissionStatus) bool {
	return s == SubmissionStatusUnderReview && target == SubmissionStatusApproved
}

// Terminal reports whether no further transition is defined from s.
func (s SubmissionStatus) Terminal() bool { return s == SubmissionStatusApproved }
