package flowdef

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tidechat/chatflow/pkg/chatflow"
)

// ErrFlowNotFound indicates no flow exists for the requested id and business.
var ErrFlowNotFound = errors.New("flow not found")

// StaticSource serves pre-compiled flow snapshots from memory. It backs the
// service binary (flows loaded from a directory at startup) and tests.
type StaticSource struct {
	mu    sync.RWMutex
	flows map[string]*entry
}

type entry struct {
	businessID string
	graph      *chatflow.FlowGraph
}

// Compile-time interface check.
var _ chatflow.FlowSource = (*StaticSource)(nil)

// NewStaticSource creates an empty source.
func NewStaticSource() *StaticSource {
	return &StaticSource{flows: make(map[string]*entry)}
}

// Add compiles and registers a definition. A later Add with the same flow
// id replaces the earlier snapshot, the way a flow edit would.
func (s *StaticSource) Add(d *Definition) error {
	graph, err := d.Compile()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[d.ID] = &entry{businessID: d.BusinessID, graph: graph}
	return nil
}

// GetCompleteFlow implements chatflow.FlowSource. A flow registered with a
// business id is only visible to that business.
func (s *StaticSource) GetCompleteFlow(_ context.Context, flowID, businessID string) (*chatflow.FlowGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.flows[flowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	if e.businessID != "" && e.businessID != businessID {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	return e.graph, nil
}

// LoadDir loads every .yaml/.yml/.json flow definition in a directory into
// a new source. File order is stable (sorted by name) so a duplicated flow
// id resolves deterministically to the later file.
func LoadDir(dir string) (*StaticSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read flow dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	src := NewStaticSource()
	for _, name := range names {
		d, err := FromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("load flow %s: %w", name, err)
		}
		if err := src.Add(d); err != nil {
			return nil, fmt.Errorf("compile flow %s: %w", name, err)
		}
	}
	return src, nil
}
