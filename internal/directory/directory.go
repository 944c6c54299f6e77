// Package directory looks up company details (display name, location,
// industry and report recipient) and lists the companies to report on.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"review-insights-go/internal/types"
)

var ErrNotFound = errors.New("company not found")

// Company mirrors an item of the companies table. Attribute names match the
// table export, so a companies_list.json dump loads as is.
type Company struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"companyName" yaml:"companyName"`
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	Industry    string `json:"industry,omitempty" yaml:"industry,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	DateUpdated string `json:"dateUpdated,omitempty" yaml:"dateUpdated,omitempty"`
}

// DisplayName falls back to the id when the company has no name.
func (c Company) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.ID
}

type Directory interface {
	// List returns every company, most recently updated first.
	List(ctx context.Context) ([]Company, error)
	Get(ctx context.Context, id string) (Company, error)
}

// Static is an in-memory Directory.
type Static struct {
	companies []Company
	byID      map[string]Company
}

// NewStatic drops entries without an id; a repeated id keeps the first entry
// after sorting.
func NewStatic(companies []Company) *Static {
	s := &Static{byID: make(map[string]Company, len(companies))}
	for _, c := range companies {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			continue
		}
		s.companies = append(s.companies, c)
	}
	sort.SliceStable(s.companies, func(i, j int) bool {
		return s.companies[i].DateUpdated > s.companies[j].DateUpdated
	})
	kept := s.companies[:0]
	for _, c := range s.companies {
		if _, dup := s.byID[c.ID]; dup {
			continue
		}
		s.byID[c.ID] = c
		kept = append(kept, c)
	}
	s.companies = kept
	return s
}

func (s *Static) List(context.Context) ([]Company, error) {
	out := make([]Company, len(s.companies))
	copy(out, s.companies)
	return out, nil
}

func (s *Static) Get(_ context.Context, id string) (Company, error) {
	c, ok := s.byID[id]
	if !ok {
		return Company{ID: id}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// LoadFile reads a .json, .yaml or .yml list of companies.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read companies: %w", err)
	}
	var companies []Company
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &companies)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &companies)
	default:
		return nil, fmt.Errorf("unsupported companies format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return NewStatic(companies), nil
}

// FromFeedback lists the distinct company ids in items, in first-seen order,
// with no further details.
func FromFeedback(items []types.FeedbackItem) *Static {
	seen := map[string]bool{}
	var companies []Company
	for _, it := range items {
		id := strings.TrimSpace(it.CompanyID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		companies = append(companies, Company{ID: id})
	}
	return NewStatic(companies)
}

// IDs returns the ids of every company in d.
func IDs(ctx context.Context, d Directory) ([]string, error) {
	companies, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	return ids, nil
}
