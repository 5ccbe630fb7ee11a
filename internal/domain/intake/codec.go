// Package intake converts structured intake facts to and from the two
// free-text fields of the legacy patient record. The textual convention is
// fixed by the paper forms and older clients still in the field, so the
// encoder must keep emitting it byte-for-byte; the structured columns on the
// roster are the source of truth and this text is display/compat output only.
package intake

import "strings"

const (
	segmentSep = " | "
	teamPrefix = "Team: "
	mecaPrefix = "Meca: "
	listSep    = ", "

	careOpen     = "[Soins: "
	decisionOpen = "[Décision: "
	blockClose   = "]"
	viaSep       = " via "
)

// Facts holds the structured intake data carried by the legacy
// circumstances and observations fields.
type Facts struct {
	Team       string   `json:"team,omitempty"`
	Mechanisms []string `json:"mechanisms,omitempty"`
	Narrative  string   `json:"narrative,omitempty"`

	CareActs    []string `json:"care_acts,omitempty"`
	Observation string   `json:"observation,omitempty"`
	Decision    string   `json:"decision,omitempty"`
	Destination string   `json:"destination,omitempty"`
}

// EncodeCircumstances renders the circumstances field:
// "Team: {team} | Meca: {mechanisms}, ... | {narrative}". All three segments
// are always present, even when empty, so decoding can split on " | ".
func EncodeCircumstances(f Facts) string {
	return teamPrefix + f.Team + segmentSep + mecaPrefix + strings.Join(f.Mechanisms, listSep) + segmentSep + f.Narrative
}

// DecodeCircumstances parses a circumstances string. Malformed or missing
// segments decode to their zero value; the function never fails.
func DecodeCircumstances(s string) Facts {
	var f Facts
	parts := strings.SplitN(s, segmentSep, 3)
	for i, p := range parts {
		switch {
		case strings.HasPrefix(p, teamPrefix):
			f.Team = strings.TrimPrefix(p, teamPrefix)
		case strings.HasPrefix(p, mecaPrefix):
			f.Mechanisms = splitList(strings.TrimPrefix(p, mecaPrefix))
		case i == len(parts)-1:
			f.Narrative = p
		}
	}
	return f
}

// EncodeObservations renders the observations field: an optional leading
// "[Soins: ...]" block, the free narrative, and an optional trailing
// "[Décision: ...]" block with an optional " via {destination}" suffix.
// Tag blocks already present in the narrative are stripped first so that
// re-encoding an encoded value never duplicates them.
func EncodeObservations(f Facts) string {
	note := stripTagBlocks(f.Observation)

	var b strings.Builder
	if len(f.CareActs) > 0 {
		b.WriteString(careOpen)
		b.WriteString(strings.Join(f.CareActs, listSep))
		b.WriteString(blockClose)
		if note != "" {
			b.WriteString(" ")
		}
	}
	b.WriteString(note)
	if f.Decision != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(decisionOpen)
		b.WriteString(f.Decision)
		if f.Destination != "" {
			b.WriteString(viaSep)
			b.WriteString(f.Destination)
		}
		b.WriteString(blockClose)
	}
	return b.String()
}

// DecodeObservations parses an observations string. A missing or malformed
// block yields an empty value for that segment; the remaining text becomes
// the free narrative.
func DecodeObservations(s string) Facts {
	var f Facts

	if body, rest, ok := extractBlock(s, careOpen); ok {
		f.CareActs = splitList(body)
		s = rest
	}
	if body, rest, ok := extractBlock(s, decisionOpen); ok {
		if i := strings.Index(body, viaSep); i >= 0 {
			f.Decision = body[:i]
			f.Destination = body[i+len(viaSep):]
		} else {
			f.Decision = body
		}
		s = rest
	}
	f.Observation = strings.TrimSpace(s)
	return f
}

// stripTagBlocks removes any [Soins: ...] and [Décision: ...] blocks from s,
// returning only the free narrative portion.
func stripTagBlocks(s string) string {
	if _, rest, ok := extractBlock(s, careOpen); ok {
		s = rest
	}
	if _, rest, ok := extractBlock(s, decisionOpen); ok {
		s = rest
	}
	return strings.TrimSpace(s)
}

// extractBlock finds the first "{open}...]" block in s and returns its body
// and s with the block removed. An unterminated block is treated as absent.
func extractBlock(s, open string) (body, rest string, ok bool) {
	start := strings.Index(s, open)
	if start < 0 {
		return "", s, false
	}
	end := strings.Index(s[start:], blockClose)
	if end < 0 {
		return "", s, false
	}
	end += start
	body = s[start+len(open) : end]
	rest = strings.TrimSpace(s[:start] + " " + s[end+len(blockClose):])
	return body, rest, true
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, listSep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
