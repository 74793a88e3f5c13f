// Package history records what scheduled tasks did: when each firing
// happened, how long it ran and whether it failed or was skipped.
//
// MemoryRecorder keeps a bounded in-process ring. RedisRecorder appends to
// a capped Redis stream so the log survives the process and can be shared.
package history
