package directory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Ensure Static implements Gateway
var _ Gateway = (*Static)(nil)

// Static is an in-memory directory. Objects are grouped by class and returned
// in insertion order.
type Static struct {
	mu          sync.RWMutex
	objects     map[string][]*Object
	connected   bool
	bindErr     error
	searches    int
	idAttribute string
}

// NewStatic creates an empty in-memory directory.
func NewStatic() *Static {
	return &Static{
		objects:     make(map[string][]*Object),
		idAttribute: DefaultIDAttribute,
	}
}

type staticFixture struct {
	ID         string         `yaml:"id"`
	DN         string         `yaml:"dn"`
	Attributes map[string]any `yaml:"attributes"`
}

// LoadStatic reads a YAML fixture of the form
//
//	user:
//	  - id: 5f1d...
//	    dn: CN=Alice,OU=People,DC=example,DC=com
//	    attributes:
//	      sAMAccountName: alice
//	      memberOf: [9a3c...]
func LoadStatic(r io.Reader) (*Static, error) {
	var fixtures map[string][]staticFixture
	if err := yaml.NewDecoder(r).Decode(&fixtures); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse directory fixture: %w", err)
	}

	s := NewStatic()
	for class, entries := range fixtures {
		for _, entry := range entries {
			if entry.ID == "" {
				return nil, fmt.Errorf("directory fixture: %s entry %q has no id", class, entry.DN)
			}
			s.Add(class, &Object{
				ExternalID: entry.ID,
				DN:         entry.DN,
				Attributes: normalizeAttributes(entry.Attributes),
			})
		}
	}
	return s, nil
}

// WithIDAttribute sets the attribute name that filters on the external identifier.
func (s *Static) WithIDAttribute(attr string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idAttribute = attr
	return s
}

// Add appends objects to class.
func (s *Static) Add(class string, objs ...*Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[class] = append(s.objects[class], objs...)
}

// Remove deletes the object with externalID from class.
func (s *Static) Remove(class, externalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs := s.objects[class]
	for i, obj := range objs {
		if obj.ExternalID == externalID {
			s.objects[class] = append(objs[:i:i], objs[i+1:]...)
			return
		}
	}
}

// FailBind makes subsequent Connect calls fail with err.
func (s *Static) FailBind(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindErr = err
	if err != nil {
		s.connected = false
	}
}

// Searches returns how many searches were executed.
func (s *Static) Searches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searches
}

// Connect marks the directory session as live.
func (s *Static) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bindErr != nil {
		return fmt.Errorf("%w: %v", ErrConnection, s.bindErr)
	}
	s.connected = true
	return nil
}

// Connected reports whether Connect succeeded.
func (s *Static) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Search returns the objects of class whose attributes match every filter entry.
// A search on a disconnected directory connects first.
func (s *Static) Search(ctx context.Context, class string, filter Filter) ([]*Object, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if !s.Connected() {
		if err := s.Connect(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++

	results := make([]*Object, 0)
	for _, obj := range s.objects[class] {
		if s.matches(obj, filter) {
			results = append(results, obj)
		}
	}
	return results, nil
}

func (s *Static) matches(obj *Object, filter Filter) bool {
	for attr, want := range filter {
		var got any
		switch {
		case strings.EqualFold(attr, s.idAttribute):
			got = obj.ExternalID
		case strings.EqualFold(attr, "dn"), strings.EqualFold(attr, "distinguishedName"):
			got = obj.DN
		default:
			got = obj.Get(attr)
		}
		if !valueMatches(got, want) {
			return false
		}
	}
	return true
}

func valueMatches(got, want any) bool {
	if got == nil {
		return false
	}
	if alternatives, ok := stringSlice(want); ok {
		for _, alt := range alternatives {
			if valueMatches(got, alt) {
				return true
			}
		}
		return false
	}
	wantStr := fmt.Sprint(want)
	if values, ok := stringSlice(got); ok {
		for _, v := range values {
			if strings.EqualFold(v, wantStr) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(fmt.Sprint(got), wantStr)
}

// normalizeAttributes converts YAML sequences to []string and scalars to string.
func normalizeAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for name, v := range attrs {
		if values, ok := v.([]any); ok {
			strs := make([]string, 0, len(values))
			for _, item := range values {
				strs = append(strs, fmt.Sprint(item))
			}
			out[name] = strs
			continue
		}
		if v == nil {
			out[name] = nil
			continue
		}
		out[name] = fmt.Sprint(v)
	}
	return out
}
