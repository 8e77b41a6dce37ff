package memrepo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/i2y/mcpfhir/internal/domain"
	"github.com/i2y/mcpfhir/internal/usecase"
)

type record struct {
	tool    domain.Tool
	details usecase.InvocationDetails
}

// Store is an in-memory usecase.ToolRepository. It is filled once from the
// tool catalog at startup and read on every call afterwards.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
	logger  *slog.Logger
}

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	return &Store{
		records: make(map[string]record),
		logger:  logger.With("component", "mem_repo"),
	}
}

// Save stores tools with the invocation details at the same index. A batch
// with mismatched lengths or a nameless or repeated tool is rejected whole.
func (s *Store) Save(ctx context.Context, tools []domain.Tool, details []usecase.InvocationDetails) error {
	if len(tools) != len(details) {
		s.logger.Error("Tool and invocation detail counts differ",
			slog.Int("tools", len(tools)), slog.Int("details", len(details)))
		return fmt.Errorf("save failed: %d tools but %d invocation details", len(tools), len(details))
	}

	batch := make(map[string]record, len(tools))
	for i, tool := range tools {
		if tool.Name == "" {
			return fmt.Errorf("save failed: tool at index %d has no name", i)
		}
		if _, dup := batch[tool.Name]; dup {
			return fmt.Errorf("save failed: tool %q declared twice", tool.Name)
		}
		batch[tool.Name] = record{tool: tool, details: details[i]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, rec := range batch {
		s.records[name] = rec
	}
	s.logger.Info("Saved tools", slog.Int("count", len(batch)), slog.Int("total_tools", len(s.records)))
	return nil
}

// List returns all stored tools ordered by name.
func (s *Store) List(ctx context.Context) ([]domain.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]domain.Tool, 0, len(s.records))
	for _, rec := range s.records {
		list = append(list, rec.tool)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// FindToolByName returns the named tool or usecase.ErrToolNotFound.
func (s *Store) FindToolByName(ctx context.Context, name string) (*domain.Tool, error) {
	s.mu.RLock()
	rec, ok := s.records[name]
	s.mu.RUnlock()
	if !ok {
		s.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	return &rec.tool, nil
}

// FindInvocationDetailsByName returns how the named tool is executed, or
// usecase.ErrToolNotFound.
func (s *Store) FindInvocationDetailsByName(ctx context.Context, name string) (*usecase.InvocationDetails, error) {
	s.mu.RLock()
	rec, ok := s.records[name]
	s.mu.RUnlock()
	if !ok {
		s.logger.Warn("Invocation details not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	return &rec.details, nil
}
