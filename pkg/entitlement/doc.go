// Package entitlement owns the per-user plan configuration that the quota
// ledger reads its limits from. Entitlements are the sole source of truth
// for daily/monthly limits and are mutated exclusively through Apply, which
// is idempotent and order-aware so the billing provider's at-least-once
// webhook delivery cannot desynchronize state.
//
// An entitlement is created by the first applied billing event and never
// deleted, only demoted to the cancelled tier. Users without one resolve to
// the free tier.
package entitlement
