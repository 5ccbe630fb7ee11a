package checklist

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Service tracks field-readiness of a post against the external catalog.
// Independent of the patient roster; scoped to one operational session.
type Service struct {
	catalog *Catalog
	repo    Repository
}

func NewService(catalog *Catalog, repo Repository) *Service {
	return &Service{catalog: catalog, repo: repo}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

// Toggle flips one item's checked flag and records who did it. Returns the
// new value of the flag.
func (s *Service) Toggle(ctx context.Context, label, actorName string) (bool, error) {
	if !s.catalog.HasItem(label) {
		return false, fmt.Errorf("unknown checklist item %q", label)
	}
	state, err := s.repo.GetState(ctx)
	if err != nil {
		return false, err
	}
	checked := !state[label]
	if err := s.repo.SetItem(ctx, label, checked); err != nil {
		return false, err
	}

	action := ActionCheck
	if !checked {
		action = ActionUncheck
	}
	item := label
	entry := &LogEntry{
		Timestamp: time.Now().UTC(),
		ActorName: actorName,
		Action:    action,
		Item:      &item,
	}
	if err := s.repo.AddLogEntry(ctx, entry); err != nil {
		return false, err
	}
	if err := s.repo.TrimLog(ctx, MaxLogEntries); err != nil {
		return false, err
	}
	return checked, nil
}

// Completion computes the completion percentage, rounded to the nearest
// integer, for one category or (with an empty category) the whole
// checklist. An empty item set completes to 0, not a division error.
func (s *Service) Completion(ctx context.Context, category string) (int, error) {
	var labels []string
	if category == "" {
		for _, cat := range s.catalog.Categories {
			labels = append(labels, cat.Items...)
		}
	} else {
		labels = s.catalog.CategoryItems(category)
	}
	if len(labels) == 0 {
		return 0, nil
	}
	state, err := s.repo.GetState(ctx)
	if err != nil {
		return 0, err
	}
	checked := 0
	for _, l := range labels {
		if state[l] {
			checked++
		}
	}
	return int(math.Round(float64(checked) / float64(len(labels)) * 100)), nil
}

// Status assembles the full operator view: every category with its item
// flags and completion, in catalog order.
func (s *Service) Status(ctx context.Context) ([]CategoryStatus, int, error) {
	state, err := s.repo.GetState(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := make([]CategoryStatus, 0, len(s.catalog.Categories))
	totalChecked, total := 0, 0
	for _, cat := range s.catalog.Categories {
		cs := CategoryStatus{Name: cat.Name, Items: make([]ItemStatus, 0, len(cat.Items))}
		checked := 0
		for _, label := range cat.Items {
			on := state[label]
			if on {
				checked++
			}
			cs.Items = append(cs.Items, ItemStatus{Label: label, Checked: on})
		}
		if len(cat.Items) > 0 {
			cs.Completion = int(math.Round(float64(checked) / float64(len(cat.Items)) * 100))
		}
		totalChecked += checked
		total += len(cat.Items)
		out = append(out, cs)
	}
	global := 0
	if total > 0 {
		global = int(math.Round(float64(totalChecked) / float64(total) * 100))
	}
	return out, global, nil
}

// RequestReset previews what a reset would discard. Pure query; it never
// mutates state. The caller obtains operator confirmation before calling
// Reset.
func (s *Service) RequestReset(ctx context.Context) (*ResetPreview, error) {
	state, err := s.repo.GetState(ctx)
	if err != nil {
		return nil, err
	}
	checked := 0
	for _, on := range state {
		if on {
			checked++
		}
	}
	return &ResetPreview{CheckedCount: checked, TotalCount: s.catalog.TotalItems()}, nil
}

// Reset clears every checked flag. The log is kept: the reset itself
// becomes a new entry (without an item).
func (s *Service) Reset(ctx context.Context, actorName string) error {
	if err := s.repo.ClearState(ctx); err != nil {
		return err
	}
	entry := &LogEntry{
		Timestamp: time.Now().UTC(),
		ActorName: actorName,
		Action:    ActionReset,
	}
	if err := s.repo.AddLogEntry(ctx, entry); err != nil {
		return err
	}
	return s.repo.TrimLog(ctx, MaxLogEntries)
}

// Log returns the audit trail, newest first, bounded by MaxLogEntries.
func (s *Service) Log(ctx context.Context) ([]*LogEntry, error) {
	return s.repo.ListLog(ctx, MaxLogEntries)
}
