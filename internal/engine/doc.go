// Package engine implements weaving: keeping the fragments rendered inside
// a bound container in step with an ordered, identity-keyed collection.
//
// A container is any element carrying data-w-list. Its first <template>
// child holds the Template Fragment, which is cloned once per record, has
// its {{field}} placeholders substituted and is appended to the container.
// The engine keeps an in-memory mirror of every collection and never
// re-derives records from rendered text.
//
// Operations (see ir.Op):
//
//	OpRender  seed from the data store on first attach, re-render after
//	OpInsert  validate key, append one record and one fragment
//	OpDelete  remove the record and fragment enclosing the target
//	OpUpdate  replace a record and re-render only its fragment
//
// Insert and delete touch a single fragment. The collection is a linked
// list indexed by identity key, so both are O(1) in the collection size.
//
// Every check runs before the first mutation. A failed operation leaves
// the collection and the tree exactly as they were.
//
// The engine is not safe for concurrent use. The runtime event loop is its
// only caller, and operations run to completion.
//
// Successful mutations are appended to an optional Journal, stamped with a
// logical sequence number from Clock. Journal failures are logged and do
// not undo the mutation.
package engine
