// Package gateway orchestrates a generation request end to end: injection
// screening, quota reservation, the external generation call, and
// reservation settlement.
//
// The order is strict and failure-safe. A flagged prompt never reaches the
// reservation step, so blocked requests consume no quota. A denied
// reservation never reaches the generation provider. Once a reservation is
// taken, the generation call runs outside any quota lock under a
// caller-facing timeout, and every non-success exit path releases the
// reservation before returning.
package gateway
