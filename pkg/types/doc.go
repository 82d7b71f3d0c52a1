// Package types defines the note model, run configuration, and standard
// errors shared by the squidnote-unpack packages.
//
// A SquidNote backup is a zip archive holding papyrus.db plus page, image and
// background PDF assets. The types here describe one note and the closure of
// rows and assets it owns.
package types
