// Package nbhm implements a lock-free, resizing, open-addressed hash table,
// exposed as both a key->value Map and a key-only Set.
//
// The table is derived from Cliff Click's non-blocking hash map: every slot
// holds a memoized 32-bit hash and a "boxed" value cell that moves through
// the states Empty, Live, Tombstone, Prime and Dead. Mutators never block;
// the only synchronization primitive used anywhere in the table is
// compare-and-swap plus atomic counters. Resizing is incremental and
// cooperative: any mutator that notices a table is being replaced migrates
// a bounded chunk of slots before continuing its own operation on the
// successor table.
//
// Get, Put, PutIfAbsent, ReplaceIfEqualFunc, Remove and RemoveIfEqual are
// each linearizable per key. LenEstimate, iteration and Stats are not
// linearized globally and should only be relied on for exact answers when
// the table is otherwise quiescent.
package nbhm
