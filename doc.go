// Package mutantic maps strongly-typed Go values onto replicated tree
// documents, so distributed editors can synchronize schema-validated
// data without a central server.
//
// A Document[T] holds a CRDT tree shaped like the schema type T, a
// json-tagged struct of scalars, nested records, lists, and optional
// (pointer) fields. Reading State rebuilds and validates an immutable
// snapshot. Mutate opens a transaction and hands out a live Record
// proxy; every field write through the proxy tree becomes exactly one
// replicated operation on the smallest changed unit, which is what
// keeps independently produced edits merging cleanly. The whole block
// commits as one atomic update, or not at all.
//
//	doc, _ := mutantic.New(Page{Collection: "tech"})
//	_ = doc.Mutate(func(root *mutantic.Record) error {
//		posts, err := root.Seq("posts")
//		if err != nil {
//			return err
//		}
//		return posts.Append(Post{ID: "p1", Title: "First"})
//	})
//	blob := doc.Update() // exchange with peers, any order, any number of times
//
// Schema upgrades are expressed as a Chain of versioned models with
// paired Up/Down transforms, applied one committed step at a time so
// concurrent edits against older versions still converge.
//
// Merge semantics, conflict resolution, and the binary update format
// are owned by the underlying engine (automerge); this package's
// contribution to conflict avoidance is keeping every edit as narrow
// as possible.
package mutantic
