// Package models defines the server-side data models persisted in the
// database and returned by the services.
package models
