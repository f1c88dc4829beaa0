// Command m3u8dump parses an HLS playlist and prints the resulting document.
//
// The playlist is read from the named file, or from standard input when no
// file is given, and printed as JSON or YAML. With -watch the file is parsed
// again every time it is rewritten, which is handy next to a live packager.
//
// Install:
//
//	go install github.com/mogiioin/hls-m3u8-parse/cmd/m3u8dump@latest
//
// Usage:
//
//	m3u8dump [-strict] [-format json|yaml] [-watch] [-log-level level] [file]
//
// Exit status is 0 on success, 1 if the playlist cannot be read or parsed and
// 2 on bad usage.
package main
