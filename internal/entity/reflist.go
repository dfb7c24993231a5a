package entity

import (
	"log/slog"
	"strings"
)

// ReferenceList is a value to label lookup loaded from a two column extract.
type ReferenceList struct {
	name   string
	log    *slog.Logger
	labels map[string]string
	order  []string
	missed map[string]bool
}

// NewReferenceList builds a list from value/label pairs. Later duplicates of a
// value replace the label but keep the first position.
func NewReferenceList(name string, log *slog.Logger, pairs [][2]string) *ReferenceList {
	if log == nil {
		log = slog.Default()
	}
	l := &ReferenceList{
		name:   name,
		log:    log,
		labels: make(map[string]string, len(pairs)),
		missed: make(map[string]bool),
	}
	for _, p := range pairs {
		if _, seen := l.labels[p[0]]; !seen {
			l.order = append(l.order, p[0])
		}
		l.labels[p[0]] = p[1]
	}
	return l
}

// LoadReferenceList reads valueCol/labelCol pairs from file.
func LoadReferenceList(src *Source, file, valueCol, labelCol string) *ReferenceList {
	rows := src.Load(file, []string{valueCol, labelCol})
	pairs := make([][2]string, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, [2]string{r[valueCol], r[labelCol]})
	}
	l := NewReferenceList(file, src.Log, pairs)
	src.Log.Info("value/label pairs loaded", "file", file, "count", l.Len())
	return l
}

// LoadSalutationList reads the salutation extract and strips the leading
// "Herr"/"Frau" from each label, leaving only the title.
func LoadSalutationList(src *Source, file string) *ReferenceList {
	l := LoadReferenceList(src, file, "id", "designation")
	for v, label := range l.labels {
		l.labels[v] = StripSalutation(label)
	}
	return l
}

// StripSalutation removes a leading "Herr" and then a leading "Frau".
func StripSalutation(label string) string {
	label = strings.TrimPrefix(label, "Herr")
	label = strings.TrimPrefix(label, "Frau")
	return strings.TrimSpace(label)
}

// Name returns the source name of the list.
func (l *ReferenceList) Name() string { return l.name }

// Len returns the number of distinct values.
func (l *ReferenceList) Len() int { return len(l.labels) }

// Lookup returns the label for value.
func (l *ReferenceList) Lookup(value string) (string, bool) {
	label, ok := l.labels[value]
	return label, ok
}

// Map returns the label for value, or def when it is not listed. A non-empty
// unlisted value is logged once per list.
func (l *ReferenceList) Map(value, def string) string {
	if label, ok := l.labels[value]; ok {
		return label
	}
	if value != "" && !l.missed[value] {
		l.missed[value] = true
		l.log.Warn("value not in reference list", "list", l.name, "value", value)
	}
	return def
}

// Values returns the listed values in source order.
func (l *ReferenceList) Values() []string {
	return append([]string(nil), l.order...)
}

// Mapping returns a copy of the value to label map.
func (l *ReferenceList) Mapping() map[string]string {
	out := make(map[string]string, len(l.labels))
	for k, v := range l.labels {
		out[k] = v
	}
	return out
}
