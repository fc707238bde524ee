// Package models contains the GORM persistence models behind the domain aggregates.
// Domain types carry no ORM tags; each model here owns its table mapping and
// converts to and from its aggregate with ToDomain / FromDomain.
package models
