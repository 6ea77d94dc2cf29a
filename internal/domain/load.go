package domain

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type domainFile struct {
	Name   string      `yaml:"name"`
	Issues []issueFile `yaml:"issues"`
}

type issueFile struct {
	ID     int      `yaml:"id"`
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

type rankingFile struct {
	Low  float64             `yaml:"low"`
	High float64             `yaml:"high"`
	Bids []map[string]string `yaml:"bids"`
}

type traceFile struct {
	Bids []map[string]string `yaml:"bids"`
}

// LoadDomain reads a YAML domain description.
func LoadDomain(path string) (*Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain: %w", err)
	}
	return ParseDomain(data)
}

func ParseDomain(data []byte) (*Domain, error) {
	var f domainFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing domain: %w", err)
	}

	issues := make([]Issue, 0, len(f.Issues))
	for _, is := range f.Issues {
		values := make([]Value, 0, len(is.Values))
		for _, v := range is.Values {
			values = append(values, Value(v))
		}
		issues = append(issues, Issue{ID: is.ID, Name: is.Name, Values: values})
	}
	return New(f.Name, issues)
}

// LoadRanking reads a worst-first YAML ranking and validates it against d.
func LoadRanking(path string, d *Domain) (*BidRanking, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ranking: %w", err)
	}
	return ParseRanking(data, d)
}

func ParseRanking(data []byte, d *Domain) (*BidRanking, error) {
	var f rankingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing ranking: %w", err)
	}

	bids, err := decodeBids(f.Bids, d)
	if err != nil {
		return nil, err
	}
	return NewRanking(bids, f.Low, f.High)
}

// LoadTrace reads an opponent bid trace in arrival order.
func LoadTrace(path string, d *Domain) ([]Bid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return ParseTrace(data, d)
}

func ParseTrace(data []byte, d *Domain) ([]Bid, error) {
	var f traceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing trace: %w", err)
	}
	return decodeBids(f.Bids, d)
}

func decodeBids(raw []map[string]string, d *Domain) ([]Bid, error) {
	bids := make([]Bid, 0, len(raw))
	for i, assignment := range raw {
		values := make(map[int]Value, len(assignment))
		for key, v := range assignment {
			id, err := resolveIssue(key, d)
			if err != nil {
				return nil, fmt.Errorf("bid %d: %w", i, err)
			}
			if _, dup := values[id]; dup {
				return nil, fmt.Errorf("bid %d: issue %d via %q: %w", i, id, key, ErrRepeatedIssue)
			}
			values[id] = Value(v)
		}
		b := NewBid(values)
		if err := d.Validate(b); err != nil {
			return nil, fmt.Errorf("bid %d: %w", i, err)
		}
		bids = append(bids, b)
	}
	return bids, nil
}

// resolveIssue accepts either an issue name or a numeric issue id.
func resolveIssue(key string, d *Domain) (int, error) {
	if is, ok := d.IssueByName(key); ok {
		return is.ID, nil
	}
	if id, err := strconv.Atoi(key); err == nil {
		if _, ok := d.Position(id); ok {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", key, ErrUnknownIssue)
}
