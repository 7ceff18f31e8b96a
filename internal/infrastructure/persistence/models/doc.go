// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - client.go, identity.go, task.go: clients, staff users and the task board
//   - finance.go: fiscal year finances, monthly payments, transactions, collections
//   - operational.go: operational controls, monthly declarations, PDT filings
package models
