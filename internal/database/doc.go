// Package database provides SQLite-based storage for MailScan.
//
// The HistoryDB keeps one row per finished crawl (seeds, depth, page
// counters) and the emails each crawl found, so that `mailscan history`
// can list past runs and show what a run discovered.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets history queries run while a crawl is being saved
package database
