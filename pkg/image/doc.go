// Package image supplies node images to the compiler.
//
// The compiler talks to images only through [Provider]: one batch [Provider.Fetch]
// call before any node is created, then [Provider.Locate] per node name.
// Failures are reported per name and never abort a build unless the caller
// asks for strict mode.
//
// Two providers are included:
//
//   - [FileProvider]: looks up pre-existing files named after the node
//   - [WikiProvider]: downloads each node's page image from a MediaWiki API
//     (prop=pageimages), then behaves like [FileProvider]
//
// Files are named after the sanitized node name (every character that is not
// a letter, digit or underscore is removed). When several extensions exist,
// jpg, jpeg, png and svg are preferred in that order.
package image
