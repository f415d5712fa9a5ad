/*
Package todostore implements a persistent store of todo items with
page-based listing, on top of an ordered key-value store (Bolt by default;
SQLite and an in-memory backend are also available).

We implement:

1. An ordered map from uint64 ids to Todo records, with point reads,
inserts, removals and lazy ordered iteration (Tx.Get, Tx.Insert, Tx.Remove,
Tx.Iterate).

2. Offset pagination over any ordered sequence (GetPage).

3. The todo service: Create, ReadPage, Update, Delete (Service).

# Technical Details

**Buckets.**
Todos live in the “todos” bucket; bookkeeping lives in the “meta” bucket.
Bolt supports buckets natively; the SQLite backend keeps the bucket name as
part of the primary key.

**Ids.**
Ids are assigned from a counter stored under meta/next_id. The counter only
grows, so an id is never handed out twice, even after deletions.

## Binary encoding

**Key**: the id as a big-endian uint64, so byte order equals numeric order.

**Value**:
1. Flags (uvarint): format version bits and a checksum bit.
2. Data size (uvarint).
3. Data: msgpack map of the Todo struct.
4. Checksum (8 bytes, big-endian xxhash64 of all preceding bytes).

The whole value must fit into Options.MaxValueSize (100 bytes by default);
longer titles are rejected with an *EncodingError, never truncated.
*/
package todostore
