// Package store executes rendered query templates against a database and
// decodes the flat result rows into nested results.
//
// A Store wraps a *sql.DB opened with one of the registered drivers:
//   - sqlite3: github.com/mattn/go-sqlite3
//   - pgx: github.com/jackc/pgx/v5/stdlib
//
// # Querying
//
// Rows renders a template and scans every result row into a mapper.Row,
// keyed by column label. Fetch does the same and then decodes the rows with
// mapper.Decode against a schema, using the store's case transform. The
// template is expected to select the columns produced by querysql.Columns
// for the same schema and to ORDER BY the root discriminator.
//
// # Transactions
//
// Tx runs a function inside BEGIN/COMMIT and rolls back when it returns an
// error. Calling Tx on the Querier passed to that function opens a
// savepoint instead, released on success and rolled back to on failure, so
// inner failures do not abort the outer transaction.
package store
