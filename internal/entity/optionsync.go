package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

// OrphanPolicy decides what happens to option values present in the target
// list but absent from the reference list.
type OrphanPolicy string

const (
	OrphanIgnore  OrphanPolicy = "ignore"
	OrphanDisable OrphanPolicy = "disable"
	OrphanDelete  OrphanPolicy = "delete"
)

// OptionSyncResult counts the changes made by SyncToOptionGroup.
type OptionSyncResult struct {
	Created   int
	Updated   int
	Unchanged int
	Disabled  int
	Deleted   int
}

// SyncToOptionGroup makes the option group mirror the list: the group is
// created when missing, listed values are created or relabelled and
// reactivated, and orphans are handled according to policy.
func (l *ReferenceList) SyncToOptionGroup(ctx context.Context, opts store.Options, group, title string, policy OrphanPolicy) (OptionSyncResult, error) {
	var res OptionSyncResult

	if _, err := opts.OptionGroupID(ctx, group); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return res, err
		}
		if _, err := opts.CreateOptionGroup(ctx, group, title); err != nil {
			return res, fmt.Errorf("create option group %s: %w", group, err)
		}
		l.log.Info("option group created", "group", group)
	}

	current, err := opts.ListOptionValues(ctx, group)
	if err != nil {
		return res, err
	}
	byValue := make(map[string]store.OptionValue, len(current))
	for _, v := range current {
		if _, dup := byValue[v.Value]; dup {
			l.log.Warn("duplicate option value", "group", group, "value", v.Value)
			continue
		}
		byValue[v.Value] = v
	}

	for _, value := range l.order {
		label := l.labels[value]
		existing, ok := byValue[value]
		delete(byValue, value)
		switch {
		case !ok:
			_, err := opts.CreateOptionValue(ctx, store.OptionValue{Group: group, Value: value, Name: value, Label: label, IsActive: true})
			if err != nil {
				return res, fmt.Errorf("create option %s/%s: %w", group, value, err)
			}
			res.Created++
		case existing.Label != label || !existing.IsActive:
			if err := opts.UpdateOptionValue(ctx, existing.ID, label, true); err != nil {
				return res, fmt.Errorf("update option %s/%s: %w", group, value, err)
			}
			res.Updated++
		default:
			res.Unchanged++
		}
	}

	for _, orphan := range current {
		if _, ok := byValue[orphan.Value]; !ok || byValue[orphan.Value].ID != orphan.ID {
			continue
		}
		switch policy {
		case OrphanDisable:
			if !orphan.IsActive {
				continue
			}
			if err := opts.UpdateOptionValue(ctx, orphan.ID, orphan.Label, false); err != nil {
				return res, fmt.Errorf("disable option %s/%s: %w", group, orphan.Value, err)
			}
			res.Disabled++
		case OrphanDelete:
			if err := opts.DeleteOptionValue(ctx, orphan.ID); err != nil {
				return res, fmt.Errorf("delete option %s/%s: %w", group, orphan.Value, err)
			}
			res.Deleted++
		}
	}

	l.log.Info("option group synchronised", "group", group,
		"created", res.Created, "updated", res.Updated, "unchanged", res.Unchanged,
		"disabled", res.Disabled, "deleted", res.Deleted)
	return res, nil
}
