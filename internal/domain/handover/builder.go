// Package handover shapes a roster snapshot for the external report
// renderer. The builder selects and orders data; layout, pagination and
// file format (PDF) belong to the renderer, which is why nothing here is
// ever truncated.
package handover

import (
	"sort"
	"strings"
	"time"

	"github.com/fieldmed/pma/internal/domain/roster"
)

// ReportDocument is the renderer-facing snapshot of the post.
type ReportDocument struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Rows        []ReportRow `json:"rows"`
	Footer      Footer      `json:"footer"`
}

type ReportRow struct {
	Time               time.Time           `json:"time"`
	Bib                string              `json:"bib"`
	Name               string              `json:"name"`
	Age                *int                `json:"age,omitempty"`
	Motive             string              `json:"motive"`
	CareSummary        string              `json:"care_summary"`
	TriageStatus       roster.TriageStatus `json:"triage_status"`
	DispositionSummary string              `json:"disposition_summary"`
}

type Footer struct {
	Total           int                         `json:"total"`
	CountsByStatus  map[roster.TriageStatus]int `json:"counts_by_status"`
	EvacuationCount int                         `json:"evacuation_count"`
}

// Build produces the handover document. Unlike the operational roster view
// the rows are chronological (admission ascending): a handover log is read
// as a timeline.
func Build(records []*roster.PatientRecord, now time.Time) *ReportDocument {
	sorted := make([]*roster.PatientRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AdmittedAt.Before(sorted[j].AdmittedAt)
	})

	doc := &ReportDocument{
		GeneratedAt: now,
		Rows:        make([]ReportRow, 0, len(sorted)),
		Footer: Footer{
			Total:          len(sorted),
			CountsByStatus: make(map[roster.TriageStatus]int),
		},
	}
	for _, p := range sorted {
		row := ReportRow{
			Time:               p.AdmittedAt,
			Name:               p.DisplayName(),
			Age:                p.ApproxAge,
			CareSummary:        strings.Join(p.CareActs, ", "),
			TriageStatus:       p.TriageStatus,
			DispositionSummary: dispositionSummary(p.Disposition),
		}
		if p.BibNumber != nil {
			row.Bib = *p.BibNumber
		}
		if p.Motive != nil {
			row.Motive = *p.Motive
		}
		doc.Rows = append(doc.Rows, row)

		doc.Footer.CountsByStatus[p.TriageStatus]++
		if p.Disposition == roster.DispositionEvacuated {
			doc.Footer.EvacuationCount++
		}
	}
	return doc
}

func dispositionSummary(d roster.Disposition) string {
	switch d {
	case roster.DispositionReturned:
		return "returned to activity"
	case roster.DispositionEvacuated:
		return "evacuated"
	default:
		return ""
	}
}
