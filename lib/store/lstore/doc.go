// Package lstore implements store.IStore on a single node.
//
// Records live in the db.KVDB created by the factory. Every write gets the
// next value of an atomic counter as its write index, which the database
// also uses as the clock for record lifetimes.
package lstore
