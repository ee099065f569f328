// Package storage provides the notification ledger: the durable record of
// event ids that have already been relayed.
//
// Drivers:
//   - sqlite:   single-file database (default)
//   - postgres: shared database, for hosts without a writable volume
//   - file:     dependency-free JSON Lines journal
//
// Rows are inserted once and never updated or deleted. Every Record call
// commits on its own; there is no batch transaction.
package storage
