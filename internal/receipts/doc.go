// Package receipts records one row per recipe run in a SQLite ledger so that
// past installs can be listed and inspected after the fact.
package receipts
