// Package core runs uploaded tables through the sweep pipeline.
//
// It sits between the front ends (web handlers, the sweep CLI) and the
// packages that do the actual work, and it has no knowledge of HTTP.
//
// # Pipeline
//
// [Service.Process] takes one [Request] and always applies its steps in the
// same order:
//
//  1. parse the file (ingest)
//  2. drop duplicate rows
//  3. fill missing numeric cells with the column mean
//  4. keep the selected columns and turn every value into text
//  5. chart the first two numeric columns
//  6. export as CSV or Excel
//
// Each step is optional except parsing. Filling happens after deduplication,
// so means are taken over the rows that survive. Charting happens after
// projection, which leaves no numeric columns, so a projected file charts
// nothing.
//
// [Service.ProcessAll] handles a batch. Every file gets its own [Result];
// an unsupported or broken file sets that Result's Err and the batch moves
// on. A panic inside one file's pipeline is recovered the same way.
//
// # Sessions
//
// [SessionStore] keeps uploaded bytes and the latest Result per file in
// memory for the web UI. Idle sessions expire after a TTL and are removed
// by [SessionStore.StartJanitor].
//
// # Error Handling
//
// [MapError] turns any error into a [UserMessage] with a code users can
// quote. See error_messages.go for the list.
package core
