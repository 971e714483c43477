// Package model defines the core domain types shared across the application.
package model

// Category classifies the intent of a comment. The set is closed: anything
// the classifier returns outside it is folded into CategoryComplaint.
type Category string

// Comment categories.
const (
	CategoryPositive     Category = "positive"
	CategoryQuestion     Category = "question"
	CategoryConstructive Category = "constructive"
	CategoryComplaint    Category = "complaint"
	CategoryToxic        Category = "toxic"
)

// ParseCategory maps a raw category string to a Category. Unrecognized
// values fall back to CategoryComplaint rather than propagating an open
// string through the system.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryPositive, CategoryQuestion, CategoryConstructive, CategoryComplaint, CategoryToxic:
		return Category(s)
	default:
		return CategoryComplaint
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPositive, CategoryQuestion, CategoryConstructive, CategoryComplaint, CategoryToxic:
		return true
	}
	return false
}

// NeedsReply reports whether comments in this category should be surfaced
// for a creator reply.
func (c Category) NeedsReply() bool {
	return c == CategoryQuestion || c == CategoryConstructive
}
