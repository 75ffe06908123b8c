package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

func TestCategoryService_AddAndList(t *testing.T) {
	svc := NewCategoryService(newTestRepo(t))
	ctx := context.Background()

	for _, name := range []string{"Food", "Rent", "Travel"} {
		if err := svc.Add(ctx, "user-1", name); err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
	}

	list, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Food", "Rent", "Travel"}
	if len(list) != len(want) {
		t.Fatalf("list = %v, want %v", list, want)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("list[%d] = %q, want %q", i, list[i], want[i])
		}
	}
}

func TestCategoryService_DuplicateIsCaseInsensitive(t *testing.T) {
	svc := NewCategoryService(newTestRepo(t))
	ctx := context.Background()

	if err := svc.Add(ctx, "user-1", "Food"); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := svc.Add(ctx, "user-1", "food")
	var dup *DuplicateCategoryError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateCategoryError", err)
	}
	if dup.Name != "food" {
		t.Errorf("dup.Name = %q, want the submitted casing", dup.Name)
	}
	if got, want := dup.Error(), "food already exists in your category list"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestCategoryService_AddRejectsEmpty(t *testing.T) {
	svc := NewCategoryService(newTestRepo(t))
	if err := svc.Add(context.Background(), "user-1", "   "); !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("err = %v, want ErrEmptyCategory", err)
	}
}

func TestCategoryService_Delete(t *testing.T) {
	svc := NewCategoryService(newTestRepo(t))
	ctx := context.Background()

	for _, name := range []string{"Food", "Rent"} {
		if err := svc.Add(ctx, "user-1", name); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if err := svc.Delete(ctx, "user-1", "Food"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != "Rent" {
		t.Errorf("list = %v, want [Rent]", list)
	}

	// Deleting an absent name is a no-op.
	if err := svc.Delete(ctx, "user-1", "Food"); err != nil {
		t.Errorf("delete absent: %v", err)
	}
}
