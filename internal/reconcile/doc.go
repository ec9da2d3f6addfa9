// Package reconcile merges instruction records arriving from independent,
// unordered delivery channels into one consistent local view.
//
// The merge rule is last-writer-wins on the store-assigned UpdatedAt: a record
// replaces the held copy only when it is strictly newer. Applying the same
// record twice, or applying records in any order, converges on the same view,
// so the push and poll producers never need to coordinate with each other.
//
// Snapshots are pure projections recomputed from the merged map on every call;
// nothing patches a previously built snapshot.
package reconcile
