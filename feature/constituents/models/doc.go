// Package models holds the gorm models of reconciled constituents,
// accreditations and their action records.
package models
