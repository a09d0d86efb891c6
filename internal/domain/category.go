// Package domain defines the core types shared across the pipeline.
package domain

import "strings"

// Category is one of the five fixed classification labels governing dispatch.
type Category string

const (
	CategoryCalculator Category = "CALCULATOR"
	CategoryRAG        Category = "RAG"
	CategoryWebSearch  Category = "WEB_SEARCH"
	CategoryDatetime   Category = "DATETIME"
	CategoryDirect     Category = "DIRECT"
)

// Categories lists all defined labels in a stable order.
func Categories() []Category {
	return []Category{
		CategoryCalculator,
		CategoryRAG,
		CategoryWebSearch,
		CategoryDatetime,
		CategoryDirect,
	}
}

// Valid reports whether c is one of the defined labels.
func (c Category) Valid() bool {
	switch c {
	case CategoryCalculator, CategoryRAG, CategoryWebSearch, CategoryDatetime, CategoryDirect:
		return true
	}
	return false
}

// ParseCategory normalizes and parses a label produced by the model.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// ClassificationResult is the router's verdict for a single query.
// Fallback is set when the router exhausted its retries and defaulted
// to DIRECT instead of trusting the model output.
type ClassificationResult struct {
	Category  Category
	Rationale string
	Confident bool
	Fallback  bool
}
