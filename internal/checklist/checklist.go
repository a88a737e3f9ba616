// Package checklist holds the per-university application checklist and the
// engine that generates it and toggles task completion.
package checklist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GeneralKey is the optional group for tasks not tied to one university.
const GeneralKey = "General"

// ErrNoSuchTask is returned when a (key, index) pair does not address a task.
var ErrNoSuchTask = errors.New("no such task")

// Task is one checklist entry. Its identity is its position (key, index).
type Task struct {
	Label     string
	Details   string
	Completed bool
}

type taskJSON struct {
	Task        string `json:"task,omitempty"`
	Title       string `json:"title,omitempty"`
	Details     string `json:"details,omitempty"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

// MarshalJSON writes the canonical {task, details, completed} form.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskJSON{Task: t.Label, Details: t.Details, Completed: t.Completed})
}

// UnmarshalJSON takes the first non-empty of task/title and of details/description.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task{
		Label:     firstNonEmpty(raw.Task, raw.Title),
		Details:   firstNonEmpty(raw.Details, raw.Description),
		Completed: raw.Completed,
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Checklist maps a university name (or GeneralKey) to its ordered tasks.
// Key order is preserved as received. Values are treated as immutable:
// every mutating helper returns a new Checklist.
type Checklist struct {
	keys   []string
	groups map[string][]Task
}

// New builds a Checklist whose groups follow the order of keys.
func New(keys []string, groups map[string][]Task) Checklist {
	var c Checklist
	for _, k := range keys {
		c = c.With(k, groups[k])
	}
	return c
}

// Keys returns the group keys in order.
func (c Checklist) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Tasks returns a copy of the tasks under key.
func (c Checklist) Tasks(key string) ([]Task, bool) {
	tasks, ok := c.groups[key]
	if !ok {
		return nil, false
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out, true
}

// Has reports whether key is present.
func (c Checklist) Has(key string) bool {
	_, ok := c.groups[key]
	return ok
}

// Len returns the number of groups.
func (c Checklist) Len() int { return len(c.keys) }

// IsEmpty reports whether the checklist has no groups.
func (c Checklist) IsEmpty() bool { return len(c.keys) == 0 }

// Progress returns completed and total task counts.
func (c Checklist) Progress() (done, total int) {
	for _, k := range c.keys {
		for _, t := range c.groups[k] {
			total++
			if t.Completed {
				done++
			}
		}
	}
	return done, total
}

// With returns a copy of c where key holds tasks. New keys are appended.
func (c Checklist) With(key string, tasks []Task) Checklist {
	out := c.Clone()
	if out.groups == nil {
		out.groups = make(map[string][]Task)
	}
	if _, ok := out.groups[key]; !ok {
		out.keys = append(out.keys, key)
	}
	cp := make([]Task, len(tasks))
	copy(cp, tasks)
	out.groups[key] = cp
	return out
}

// Clone returns a deep copy.
func (c Checklist) Clone() Checklist {
	if c.groups == nil {
		return Checklist{}
	}
	out := Checklist{
		keys:   make([]string, len(c.keys)),
		groups: make(map[string][]Task, len(c.groups)),
	}
	copy(out.keys, c.keys)
	for k, tasks := range c.groups {
		cp := make([]Task, len(tasks))
		copy(cp, tasks)
		out.groups[k] = cp
	}
	return out
}

// Equal reports structural equality including key order.
func (c Checklist) Equal(o Checklist) bool {
	if len(c.keys) != len(o.keys) {
		return false
	}
	for i, k := range c.keys {
		if o.keys[i] != k {
			return false
		}
		a, b := c.groups[k], o.groups[k]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// MarshalJSON writes the checklist as a JSON object in key order.
func (c Checklist) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		tasks := c.groups[k]
		if tasks == nil {
			tasks = []Task{}
		}
		tb, err := json.Marshal(tasks)
		if err != nil {
			return nil, err
		}
		buf.Write(tb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. null and an empty array
// decode to an empty checklist; a non-empty array of tasks lands under GeneralKey.
func (c *Checklist) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Checklist{}
		return nil
	case data[0] == '[':
		var tasks []Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			return fmt.Errorf("checklist: %w", err)
		}
		*c = Checklist{}
		if len(tasks) > 0 {
			*c = c.With(GeneralKey, tasks)
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return fmt.Errorf("checklist: %w", err)
	} else if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("checklist: expected object, got %v", tok)
	}

	var out Checklist
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("checklist: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("checklist: unexpected key %v", tok)
		}
		var tasks []Task
		if err := dec.Decode(&tasks); err != nil {
			return fmt.Errorf("checklist %q: %w", key, err)
		}
		out = out.With(key, tasks)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("checklist: %w", err)
	}
	*c = out
	return nil
}

// ToggleTask returns a copy of cl with the completion flag of (key, index)
// flipped. Every other task is untouched and cl itself is not modified.
func ToggleTask(cl Checklist, key string, index int) (Checklist, error) {
	tasks, ok := cl.groups[key]
	if !ok || index < 0 || index >= len(tasks) {
		return cl, fmt.Errorf("%w: %q #%d", ErrNoSuchTask, key, index)
	}
	return SetCompleted(cl, key, index, !tasks[index].Completed)
}

// SetCompleted returns a copy of cl with (key, index) marked done or not.
func SetCompleted(cl Checklist, key string, index int, done bool) (Checklist, error) {
	tasks, ok := cl.groups[key]
	if !ok || index < 0 || index >= len(tasks) {
		return cl, fmt.Errorf("%w: %q #%d", ErrNoSuchTask, key, index)
	}
	next := make([]Task, len(tasks))
	copy(next, tasks)
	next[index].Completed = done
	return cl.With(key, next), nil
}

// CarryOver copies completion state from prev into next for tasks whose
// labels match within the same key. Labels compare case-insensitively after
// trimming; duplicate labels pair up in order.
func CarryOver(prev, next Checklist) Checklist {
	out := next
	for _, key := range next.keys {
		old, ok := prev.groups[key]
		if !ok {
			continue
		}
		done := make(map[string][]bool)
		for _, t := range old {
			l := normalizeLabel(t.Label)
			done[l] = append(done[l], t.Completed)
		}
		tasks := make([]Task, len(next.groups[key]))
		copy(tasks, next.groups[key])
		changed := false
		for i := range tasks {
			l := normalizeLabel(tasks[i].Label)
			q := done[l]
			if len(q) == 0 {
				continue
			}
			if q[0] && !tasks[i].Completed {
				tasks[i].Completed = true
				changed = true
			}
			done[l] = q[1:]
		}
		if changed {
			out = out.With(key, tasks)
		}
	}
	return out
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// EnsureKeys adds an empty group for every university missing from cl and
// reports which ones were added.
func EnsureKeys(cl Checklist, universities []string) (Checklist, []string) {
	var missing []string
	out := cl
	for _, u := range universities {
		if !out.Has(u) {
			out = out.With(u, nil)
			missing = append(missing, u)
		}
	}
	return out, missing
}
