package enums

type CandidateStatus string

const (
	CandidateStatusCandidate CandidateStatus = "candidate"
	CandidateStatusInvited   CandidateStatus = "invited"
	CandidateStatusKicked    CandidateStatus = "kicked"
	CandidateStatusAccepted  CandidateStatus = "accepted"
)

// Terminal reports whether no further human decision applies to the row.
// "invited" stays open until the candidate actually joins the main chat.
func (s CandidateStatus) Terminal() bool {
	return s == CandidateStatusKicked || s == CandidateStatusAccepted
}
