package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyDomain   = errors.New("domain has no issues")
	ErrIncompleteBid = errors.New("bid does not assign every issue")
	ErrUnknownIssue  = errors.New("unknown issue")
	ErrUnknownValue  = errors.New("value not in issue domain")
	ErrRepeatedIssue = errors.New("issue assigned more than once")
)

// Value is a discrete, non-numeric token from one issue's domain.
type Value string

// Issue is a negotiable attribute with a finite, ordered set of values.
type Issue struct {
	ID     int
	Name   string
	Values []Value
}

// ValueIndex returns the position of v in the issue's value list, or -1.
func (i Issue) ValueIndex(v Value) int {
	for idx, candidate := range i.Values {
		if candidate == v {
			return idx
		}
	}
	return -1
}

// Domain is the fixed issue structure of a negotiation. Issue identifiers
// need not be contiguous; Position maps them to a dense zero-based index.
type Domain struct {
	Name     string
	issues   []Issue
	position map[int]int
	byName   map[string]int
}

// New builds a domain, rejecting duplicate identifiers or names and issues
// without values.
func New(name string, issues []Issue) (*Domain, error) {
	if len(issues) == 0 {
		return nil, ErrEmptyDomain
	}

	d := &Domain{
		Name:     name,
		issues:   make([]Issue, 0, len(issues)),
		position: make(map[int]int, len(issues)),
		byName:   make(map[string]int, len(issues)),
	}

	for _, is := range issues {
		if _, dup := d.position[is.ID]; dup {
			return nil, fmt.Errorf("duplicate issue id %d", is.ID)
		}
		if _, dup := d.byName[is.Name]; dup && is.Name != "" {
			return nil, fmt.Errorf("duplicate issue name %q", is.Name)
		}
		if len(is.Values) == 0 {
			return nil, fmt.Errorf("issue %d (%s) has no values", is.ID, is.Name)
		}
		seen := make(map[Value]bool, len(is.Values))
		for _, v := range is.Values {
			if seen[v] {
				return nil, fmt.Errorf("issue %d (%s) lists value %q twice", is.ID, is.Name, v)
			}
			seen[v] = true
		}

		values := make([]Value, len(is.Values))
		copy(values, is.Values)

		d.position[is.ID] = len(d.issues)
		if is.Name != "" {
			d.byName[is.Name] = is.ID
		}
		d.issues = append(d.issues, Issue{ID: is.ID, Name: is.Name, Values: values})
	}

	return d, nil
}

// Issues returns the issues in their fixed enumeration order.
func (d *Domain) Issues() []Issue {
	return d.issues
}

func (d *Domain) NumIssues() int { return len(d.issues) }

// Position returns the dense index of an issue identifier.
func (d *Domain) Position(issueID int) (int, bool) {
	pos, ok := d.position[issueID]
	return pos, ok
}

func (d *Domain) Issue(issueID int) (Issue, bool) {
	pos, ok := d.position[issueID]
	if !ok {
		return Issue{}, false
	}
	return d.issues[pos], true
}

// IssueByName resolves an issue by its display name.
func (d *Domain) IssueByName(name string) (Issue, bool) {
	id, ok := d.byName[name]
	if !ok {
		return Issue{}, false
	}
	return d.Issue(id)
}

// Validate checks that b assigns exactly the domain's issues and that every
// value belongs to its issue.
func (d *Domain) Validate(b Bid) error {
	for _, is := range d.issues {
		v, ok := b.Value(is.ID)
		if !ok {
			return fmt.Errorf("issue %d (%s): %w", is.ID, is.Name, ErrIncompleteBid)
		}
		if is.ValueIndex(v) < 0 {
			return fmt.Errorf("issue %d (%s) value %q: %w", is.ID, is.Name, v, ErrUnknownValue)
		}
	}
	if b.Len() != len(d.issues) {
		for _, id := range b.IssueIDs() {
			if _, ok := d.position[id]; !ok {
				return fmt.Errorf("issue %d: %w", id, ErrUnknownIssue)
			}
		}
	}
	return nil
}

// Bid is an immutable assignment of one value per issue.
type Bid struct {
	values map[int]Value
}

// NewBid copies values into a new bid.
func NewBid(values map[int]Value) Bid {
	cp := make(map[int]Value, len(values))
	for id, v := range values {
		cp[id] = v
	}
	return Bid{values: cp}
}

func (b Bid) Value(issueID int) (Value, bool) {
	v, ok := b.values[issueID]
	return v, ok
}

func (b Bid) Len() int { return len(b.values) }

// IssueIDs returns the assigned issue identifiers in ascending order.
func (b Bid) IssueIDs() []int {
	ids := make([]int, 0, len(b.values))
	for id := range b.values {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (b Bid) Equal(other Bid) bool {
	if len(b.values) != len(other.values) {
		return false
	}
	for id, v := range b.values {
		if ov, ok := other.values[id]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (b Bid) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, id := range b.IssueIDs() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d:%s", id, b.values[id])
	}
	sb.WriteByte('}')
	return sb.String()
}
