// Package dispatcher maps request paths to handlers by path prefix.
//
// Locations are matched in the order they were added and the first prefix
// match wins. This is the documented routing contract, not longest-prefix
// matching: declare more specific locations before general ones.
package dispatcher
