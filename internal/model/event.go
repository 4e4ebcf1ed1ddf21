package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryCatalog = "catalog"
	EventCategoryAPI     = "api"
	EventCategorySystem  = "system"
)
