// Package license holds the license/activation decision engine: the
// pure validity rules, the service that applies them against the
// license store, and the activation-request workflow.
//
// Every decision keys off the natural key — the
// (machineID, ownerID, productName) triple — and is recomputed from
// stored state and the current clock on every call.
package license
