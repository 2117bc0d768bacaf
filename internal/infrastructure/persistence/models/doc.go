// Package models contains GORM-specific persistence models that map to the
// ECA tables. They are kept apart from the domain types so the domain layer
// stays free of ORM tags.
//
// Structure:
// - base.go: BaseModel and the JSONMap jsonb column type
// - eca.go: entities, relationships and transactions
// - organization.go: organizations (tenants)
// - audit.go: audit log rows and the processed event ledger
package models
