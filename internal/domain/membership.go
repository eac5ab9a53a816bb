package domain

// MembershipStatus is the outcome of a single gate check.
type MembershipStatus string

const (
	// MembershipMember means the user is a member, administrator or creator.
	MembershipMember MembershipStatus = "member"
	// MembershipNotMember means the membership service answered with any other status.
	MembershipNotMember MembershipStatus = "not_member"
	// MembershipUnknown means the membership service could not be queried or
	// answered with something unreadable.
	MembershipUnknown MembershipStatus = "unknown"
)

// Allows reports whether the status grants access. Only MembershipMember does.
func (s MembershipStatus) Allows() bool {
	return s == MembershipMember
}
