// Package storage persists destinations, daily send records and custom
// anniversaries. Two drivers are available: "sqlite" (default, a single
// database file) and "redis".
package storage
