// Package core runs imports as a service.
//
// It sits between the reconciliation engine and the outer surfaces (CLI,
// HTTP API, scheduler). It can be used by web handlers, the CLI or tests
// without modification.
//
// # Architecture
//
//   - Service: starts runs, tracks the active run and answers status queries.
//   - RunGate: admits a single active run; further triggers wait briefly
//     and then fail with [ErrRunInProgress].
//   - History: every run is persisted in a small SQLite database.
//   - Scheduler: triggers runs from a cron expression and from new folders
//     appearing under the base folder.
//
// # Run Lifecycle
//
//  1. A trigger calls [Service.Start] (asynchronous) or [Service.RunNow].
//  2. The folder name is resolved below the base folder.
//  3. The run gate is entered and a run record is saved as running.
//  4. The engine imports the folder and writes its own run log.
//  5. The final record, including the summary and a mapped error code,
//     replaces the running one.
//
// # Error Handling
//
// Technical errors are turned into user-facing messages with [MapError].
// Codes are stable and are returned by the HTTP API and stored in history.
package core
