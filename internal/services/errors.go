package services

import (
	"errors"
	"fmt"
)

// Error strings below surface verbatim in client-facing failure frames,
// which is why they read as sentences rather than lowercase error text.
var (
	ErrDuplicateMonth    = errors.New("You already have an existing budget for selected month")
	ErrBudgetNotFound    = errors.New("The budget you selected does not exist or might have been deleted")
	ErrOverBudget        = errors.New("You cannot spend more than your budget. Please increase your budget")
	ErrBudgetHasSpend    = errors.New("You can't delete a budget you've already spent from")
	ErrPasswordMismatch  = errors.New("Your Password is incorrect")
	ErrIncorrectPassword = errors.New("Incorrect Password")
	ErrEmailTaken        = errors.New("Email already exists")
	ErrInvalidEmail      = errors.New("Invalid Email")
	ErrSchemeNotFound    = errors.New("The scheme you selected does not exist or might have been deleted")
	ErrExpenseNotFound   = errors.New("expense not found")
)

// DuplicateCategoryError rejects adding a category name the user already has.
type DuplicateCategoryError struct {
	Name string
}

func (e *DuplicateCategoryError) Error() string {
	return fmt.Sprintf("%s already exists in your category list", e.Name)
}
