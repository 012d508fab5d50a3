// Package textutil provides text helpers shared by subtitle generation and
// output naming.
//
// Normalize canonicalizes recognized text (NFC, single spaces) and the
// boundary helpers describe where a line of mixed Latin and CJK text may be
// broken without splitting a word.
package textutil
