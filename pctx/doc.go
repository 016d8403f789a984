// Package pctx implements the shared pipeline Context and the Promise
// lazy-value type. A Context holds a single mutex-guarded key/value map
// plus a set of read-only named views configured once at construction. A
// Promise wraps a raw value, a thunk, or a (key, Context) reference, and
// memoizes its evaluation.
package pctx
