package services

import (
	"context"
	"fmt"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// CategoryService maintains the user's reusable category name list. The
// list only feeds budget creation forms; deleting a name never touches
// budgets that already allocate it.
type CategoryService struct {
	storage *storage.SQLiteRepository
}

func NewCategoryService(storage *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{storage: storage}
}

func (s *CategoryService) List(ctx context.Context, userID string) ([]string, error) {
	return s.storage.GetCategoryList(ctx, userID)
}

// Add appends a category name, keeping the submitted casing. Names are
// compared case-insensitively, so "food" cannot join a list holding "Food".
func (s *CategoryService) Add(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}

	list, err := s.storage.GetCategoryList(ctx, userID)
	if err != nil {
		return fmt.Errorf("get category list: %w", err)
	}
	for _, existing := range list {
		if strings.EqualFold(existing, name) {
			return &DuplicateCategoryError{Name: name}
		}
	}

	list = append(list, name)
	if err := s.storage.ReplaceCategoryList(ctx, userID, list); err != nil {
		return fmt.Errorf("replace category list: %w", err)
	}
	return nil
}

// Delete removes a name from the list. Removing a name that is not there
// is not an error.
func (s *CategoryService) Delete(ctx context.Context, userID, name string) error {
	list, err := s.storage.GetCategoryList(ctx, userID)
	if err != nil {
		return fmt.Errorf("get category list: %w", err)
	}

	kept := list[:0]
	for _, existing := range list {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(list) {
		return nil
	}

	if err := s.storage.ReplaceCategoryList(ctx, userID, kept); err != nil {
		return fmt.Errorf("replace category list: %w", err)
	}
	return nil
}
