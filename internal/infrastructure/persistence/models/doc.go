// Package models holds the GORM models of the ledger tables. Domain types
// carry no ORM tags; every model converts with ToDomain and a
// <Model>FromDomain constructor.
//
// LedgerModels lists the models in dependency order for AutoMigrate, which
// builds the sqlite schema. PostgreSQL uses the SQL migrations instead.
package models
