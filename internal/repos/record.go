package repos

import (
	"time"

	"github.com/google/go-github/v81/github"
)

// Record is an immutable snapshot of a repository taken at listing time.
// Nothing in the run writes back into it; if the remote changes between
// planning and execution, the drift surfaces as a per-item outcome.
type Record struct {
	ID         int64
	Owner      string
	Name       string
	FullName   string
	Fork       bool
	Archived   bool
	Private    bool
	Visibility string
	PushedAt   time.Time
}

func FromGitHub(repo *github.Repository) Record {
	r := Record{
		ID:         repo.GetID(),
		Owner:      repo.GetOwner().GetLogin(),
		Name:       repo.GetName(),
		FullName:   repo.GetFullName(),
		Fork:       repo.GetFork(),
		Archived:   repo.GetArchived(),
		Private:    repo.GetPrivate(),
		Visibility: repo.GetVisibility(),
		PushedAt:   repo.GetPushedAt().Time,
	}
	if r.FullName == "" && r.Owner != "" && r.Name != "" {
		r.FullName = r.Owner + "/" + r.Name
	}
	// Older API responses omit the visibility field; fall back to the
	// private flag.
	if r.Visibility == "" {
		if r.Private {
			r.Visibility = "private"
		} else {
			r.Visibility = "public"
		}
	}
	return r
}

func (r Record) String() string {
	return r.FullName
}
