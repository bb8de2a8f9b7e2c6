// Package store is the gateway's single path to the metadata database.
//
// Every statement is written as a template with :name placeholders (see
// package query) and executed through a Connector. Results come back as
// rows of column name to value so callers can consume arbitrary schemas.
package store
