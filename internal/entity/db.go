package entity

// Re-export common types from the common package.

import (
	"github.com/Louistrash/kaartmodellen/internal/entity/common"
)

// Type aliases for common types
type Meta = common.Meta
type BaseParams = common.BaseParams
