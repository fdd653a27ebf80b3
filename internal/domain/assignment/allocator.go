package assignment

import (
	"github.com/casework/casework/internal/domain/user"
)

const (
	matchWeight    = 10
	caseloadWeight = 2
)

// Candidate is one therapist scored for a patient.
type Candidate struct {
	Therapist *user.User
	Matches   int
	Caseload  int
	Score     int
}

// Score is 10 per specialty the patient's terms contain, less 2 per active
// patient already on the therapist's caseload.
func Score(matches, caseload int) int {
	return matchWeight*matches - caseloadWeight*caseload
}

// countMatches counts distinct specialties present in terms. Values are
// compared exactly.
func countMatches(specialties []string, terms map[string]struct{}) int {
	seen := make(map[string]struct{}, len(specialties))
	n := 0
	for _, s := range specialties {
		if _, dup := seen[s]; dup || s == "" {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := terms[s]; ok {
			n++
		}
	}
	return n
}

// pickBest returns the first candidate holding the highest score, or nil
// for an empty slice.
func pickBest(cands []Candidate) *Candidate {
	var best *Candidate
	for i := range cands {
		if best == nil || cands[i].Score > best.Score {
			best = &cands[i]
		}
	}
	return best
}
