package domain

import "strings"

// Category enumerates the request kinds produced by the urgency classifier.
type Category string

const (
	CategoryGeneralQuestion Category = "GENERAL_QUESTION"
	CategoryTechnicalIssue  Category = "TECHNICAL_ISSUE"
	CategoryUrgentIssue     Category = "URGENT_ISSUE"
	CategoryAccessRequest   Category = "ACCESS_REQUEST"
	CategoryFeatureRequest  Category = "FEATURE_REQUEST"
	CategoryFeedback        Category = "FEEDBACK"
	CategoryOther           Category = "OTHER"
)

// ParseCategory maps a raw classifier label to a Category, defaulting to OTHER.
func ParseCategory(raw string) Category {
	switch Category(strings.ToUpper(strings.TrimSpace(raw))) {
	case CategoryGeneralQuestion, CategoryTechnicalIssue, CategoryUrgentIssue,
		CategoryAccessRequest, CategoryFeatureRequest, CategoryFeedback:
		return Category(strings.ToUpper(strings.TrimSpace(raw)))
	default:
		return CategoryOther
	}
}
