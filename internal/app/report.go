package app

import (
	"fmt"
	"io"

	"github.com/vk/multirelease/internal/unit"
)

// UnitReport is one unit's line in the run summary.
type UnitReport struct {
	Name    string
	Status  unit.Status
	Version string
	Tag     string
	Err     error
}

// Report summarizes a finished run across all units.
type Report struct {
	RunID string
	Units []UnitReport
}

func buildReport(runID string, units []*unit.Unit) *Report {
	r := &Report{RunID: runID}
	for _, u := range units {
		ur := UnitReport{Name: u.Name}
		if res, ok := u.Result(); ok {
			ur.Status = res.Status
			ur.Err = res.Err
			if res.Released() && res.Outcome.NextRelease != nil {
				ur.Version = res.Outcome.NextRelease.Version
				ur.Tag = res.Outcome.NextRelease.GitTag
			}
		}
		r.Units = append(r.Units, ur)
	}
	return r
}

// Released counts units that published a release.
func (r *Report) Released() int { return r.count(unit.StatusReleased) }

// Skipped counts units whose pipeline decided against releasing.
func (r *Report) Skipped() int { return r.count(unit.StatusSkipped) }

// Failed counts units whose pipeline errored.
func (r *Report) Failed() int { return r.count(unit.StatusFailed) }

func (r *Report) count(s unit.Status) int {
	n := 0
	for _, ur := range r.Units {
		if ur.Status == s {
			n++
		}
	}
	return n
}

// Write prints the human-readable run summary.
func (r *Report) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "released %d of %d units (%d skipped, %d failed)\n",
		r.Released(), len(r.Units), r.Skipped(), r.Failed()); err != nil {
		return err
	}
	for _, ur := range r.Units {
		var err error
		switch ur.Status {
		case unit.StatusReleased:
			_, err = fmt.Fprintf(w, "  %-20s released  %s (%s)\n", ur.Name, ur.Version, ur.Tag)
		case unit.StatusFailed:
			_, err = fmt.Fprintf(w, "  %-20s failed    %v\n", ur.Name, ur.Err)
		default:
			_, err = fmt.Fprintf(w, "  %-20s %s\n", ur.Name, ur.Status)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
