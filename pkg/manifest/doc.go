// Package manifest builds layout trees from TOML layout descriptions.
//
// A manifest declares fields and a nested tree of containers. Each container
// lists the fields it places, and may open a shared-exponent session around
// those placements:
//
//	name = "particles"
//	lazy_grad = true
//
//	[[field]]
//	name = "x"
//	type = "f32"
//	grad = true
//
//	[[field]]
//	name = "q"
//	digits = "cu10"
//	exponent = "cu5"
//	compute = "f32"
//
//	[[root.child]]
//	type = "pointer"
//	axes = [0]
//	sizes = [64]
//
//	  [[root.child.child]]
//	  type = "dense"
//	  axes = [0]
//	  sizes = [8]
//	  place = ["x", "q"]
//
// [Load] reads and decodes a file, [Build] grows the tree, places every
// field, optionally runs lazy gradient placement, and finalizes the tree.
package manifest
