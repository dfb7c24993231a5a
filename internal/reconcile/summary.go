package reconcile

import "time"

// Phase names used in summaries, logs and metrics.
const (
	PhaseOrganizations     = "organizations"
	PhaseOrganizationLinks = "organization_links"
	PhaseMatcher           = "individuals_matcher"
	PhaseIndividuals       = "individuals"
	PhaseEmails            = "emails"
	PhasePhones            = "phones"
	PhaseAddresses         = "addresses"
	PhaseWebsites          = "websites"
	PhaseEmployments       = "employments"
	PhaseEmployers         = "employers"
	PhaseActivities        = "activities"
)

// Outcome of one record within a phase.
type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
	Failed    Outcome = "failed"
	Skipped   Outcome = "skipped"
)

// Counts tallies record outcomes.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// PhaseResult is the tally of one phase.
type PhaseResult struct {
	Phase string `json:"phase"`
	Counts
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	Folder   string        `json:"folder"`
	LogPath  string        `json:"log_path"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Phases   []PhaseResult `json:"phases"`
}

// Phase returns the result for name, or a zero result.
func (s *Summary) Phase(name string) PhaseResult {
	for _, p := range s.Phases {
		if p.Phase == name {
			return p
		}
	}
	return PhaseResult{Phase: name}
}

// Total sums the counts over all phases.
func (s *Summary) Total() Counts {
	var t Counts
	for _, p := range s.Phases {
		t.Created += p.Created
		t.Updated += p.Updated
		t.Unchanged += p.Unchanged
		t.Failed += p.Failed
		t.Skipped += p.Skipped
	}
	return t
}

func (s *Summary) add(phase string, o Outcome) {
	var p *PhaseResult
	for i := range s.Phases {
		if s.Phases[i].Phase == phase {
			p = &s.Phases[i]
			break
		}
	}
	if p == nil {
		s.Phases = append(s.Phases, PhaseResult{Phase: phase})
		p = &s.Phases[len(s.Phases)-1]
	}

	switch o {
	case Created:
		p.Created++
	case Updated:
		p.Updated++
	case Unchanged:
		p.Unchanged++
	case Failed:
		p.Failed++
	case Skipped:
		p.Skipped++
	}
}

// count records one outcome in the summary and the metrics.
func (r *run) count(phase string, o Outcome) {
	r.summary.add(phase, o)
	recordsProcessed.WithLabelValues(phase, string(o)).Inc()
}
