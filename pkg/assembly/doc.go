// Package assembly positions anchorable parts relative to each other.
//
// An Assembly is rooted at one part and grows by attaching further parts
// onto anchors of its members, or by relocating a whole other assembly
// onto one of its anchors. The assembly holds no transform of its own:
// every placement is recorded in the member parts' histories.
//
// Both attach operations use the same composition. With A the alignment
// of the two positioned anchors and L the link matrix expressed in the
// receiving anchor's frame, each moved part's combined transform becomes
// L·A·C where C is its previous combined transform. Every operation
// validates all of its arguments before touching any part, so a failed
// call leaves histories and member lists unchanged.
package assembly
