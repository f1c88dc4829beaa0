package m3u8

/* Package m3u8 parses HLS m3u8 playlists into a single Document.

HLS (HTTP Live Streaming) is an evolving protocol with multiple versions.
Versions 1-7 are described in [IETF RFC8216][rfc8216], but the protocol has continued
to evolve with new features and versions in a
series of Internet Drafts [rfc8216bis].

The parser does not need to know in advance whether a playlist is a
multivariant (master) or a media playlist: both kinds fill the same Document.
Variant streams go to Playlists and mark the Document with IsVariant, media
segments go to Segments.

## Structure and design of the code

Parsing is a single pass over the trimmed lines of the playlist.
Tag lines are dispatched by tag name to a handler that updates either the
Document or the ParseState. The ParseState carries values from one line to
the lines that follow: a pending segment, the current key, the current
program date-time, cue-out markers and so on. A URI line consumes the
ParseState, either into a new media segment or into a new variant playlist.

Attribute lists (NAME=VALUE,...) are split by TokenizeAttributes and
converted by DecodeAttributes according to a per-tag Schema. Values that do
not convert to the declared number kind are kept as strings; the decoder
never fails.

In strict mode the lines are first checked by a Validator (ValidateVersion
by default) and structural problems are returned as a *ParseError with the
line number. In lenient mode everything the parser does not understand is
skipped.

Custom or vendor tags can be handled with a CustomTagParser set in Options.
It sees every tag line before the built-in handling and can change both the
Document and the ParseState.

Examples of usage may be found in *_test.go files of a package. Also
see below some simple examples (without error handling)

Parse a playlist from a string:

	doc, _ := Parse(content, false)
	for _, seg := range doc.Segments {
	  fmt.Println(seg.URI, seg.Duration)
	}

Parse a master playlist from a file:

	f, _ := os.Open("sample-playlists/master.m3u8")
	doc, _ := ParseFrom(bufio.NewReader(f), true)
	fmt.Printf("Variants: %d\n", len(doc.Playlists))

[rfc8216]: https://tools.ietf.org/html/rfc8216
[rfc8216bis]: https://tools.ietf.org/html/draft-pantos-rfc8216bis
*/
