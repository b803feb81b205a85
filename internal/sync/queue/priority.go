package queue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
)

// PriorityTable maps an action type to its default priority. Higher drains first.
type PriorityTable map[ActionType]int

// DefaultPriorities reflects business urgency: attendance first, media last.
func DefaultPriorities() PriorityTable {
	return PriorityTable{
		ActionCheckIn:        100,
		ActionCheckOut:       100,
		ActionReportSubmit:   80,
		ActionTaskUpdate:     70,
		ActionLocationUpdate: 50,
		ActionPhotoUpload:    10,
	}
}

// Lookup returns the priority for a, or 0 when the table has no entry.
func (t PriorityTable) Lookup(a ActionType) int {
	return t[a]
}

// With returns a copy of t with overrides applied.
func (t PriorityTable) With(overrides PriorityTable) PriorityTable {
	out := make(PriorityTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// LoadPriorityFile reads a YAML mapping of action type to priority, e.g.
//
//	attendance-check-in: 120
//	photo-upload: 5
func LoadPriorityFile(path string) (PriorityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "read priority file", err)
	}
	return ParsePriorities(data)
}

// ParsePriorities decodes a YAML priority mapping. Unknown action types are rejected.
func ParsePriorities(data []byte) (PriorityTable, error) {
	raw := map[string]int{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "decode priority file", err)
	}

	table := make(PriorityTable, len(raw))
	for name, p := range raw {
		a := ActionType(name)
		if !a.Valid() {
			return nil, apperrors.New(apperrors.ErrConfigInvalid, fmt.Sprintf("priority file: unknown action type %q", name))
		}
		table[a] = p
	}
	return table, nil
}
