// Package ledger suppresses duplicate notifications by remembering which
// hits were already delivered.
//
// [Open] selects a backend: an in-process map ([Memory]), Redis SETNX keys
// with a TTL ([Redis]) or a Postgres table ([Postgres]). The default is
// [Nop], which treats every hit as new.
package ledger
