// Package quota tracks per-user consumption against daily and monthly
// limits with lazy, timezone-correct (UTC) window resets.
//
// The Ledger exposes a reserve-then-use model: CheckAndReserve atomically
// resets stale windows, refreshes limits from the current entitlement and
// increments both counters, returning a Reservation for one unit of quota.
// Commit confirms the reservation; Release compensates it after a failed
// downstream call. Release is idempotent and becomes a no-op once the
// reservation's counting window has rolled over.
//
// Correctness under concurrency relies on the Store contract: Save is a
// conditional update keyed on the record version, so all mutation runs as an
// optimistic compare-and-swap against the persistence layer. Different users
// never contend; concurrent requests for the same user serialize through the
// CAS retry loop.
package quota
