package m3u8

/*
 Playlist structures tests.
*/

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestNewDocument(t *testing.T) {
	is := is.New(t)
	doc := NewDocument()
	is.Equal(*doc.MediaSequence, int64(0))
	is.True(doc.TargetDuration == nil)
	is.True(doc.Version == nil)
	is.Equal(len(doc.Segments), 0)
	is.Equal(len(doc.Keys), 0)

	out, err := json.Marshal(doc)
	is.NoErr(err)
	s := string(out)
	is.True(strings.Contains(s, `"segments":[]`)) // lists are encoded even when empty
	is.True(strings.Contains(s, `"skip":{}`))
	is.True(strings.Contains(s, `"start":null`)) // absent single-value tags are null
	is.True(strings.Contains(s, `"media_sequence":0`))
}

func TestKeyEqual(t *testing.T) {
	is := is.New(t)
	a := &Key{Method: "AES-128", URI: "k.bin"}
	b := &Key{Method: "AES-128", URI: "k.bin"}
	c := &Key{Method: "AES-128", URI: "k.bin", IV: "0x01"}
	var none *Key

	is.True(a.Equal(b)) // same attributes, different pointers
	is.True(!a.Equal(c))
	is.True(!a.Equal(none))
	is.True(!none.Equal(a))
	is.True(none.Equal(nil)) // "no key" equals "no key"

	a.Other.Set("x", StringValue("1"))
	a.Other.Set("y", StringValue("2"))
	b.Other.Set("y", StringValue("2"))
	b.Other.Set("x", StringValue("1"))
	is.True(a.Equal(b)) // extra attributes compare regardless of order
	b.Other.Set("x", StringValue("3"))
	is.True(!a.Equal(b))
}

func TestPartAccessors(t *testing.T) {
	is := is.New(t)
	part := &Part{Attrs: DecodeAttributes(`DURATION=0.5,URI="p.mp4",INDEPENDENT=YES,BYTERANGE=10@20`, partSchema)}
	is.Equal(part.URI(), "p.mp4")
	is.Equal(part.Duration(), 0.5)
	is.True(part.Independent())
	br, ok := part.ByteRange()
	is.True(ok)
	is.Equal(br, "10@20")

	empty := &Part{}
	is.Equal(empty.URI(), "")
	is.Equal(empty.Duration(), 0.0) // missing duration reads as 0
	is.True(!empty.Independent())
	_, ok = empty.ByteRange()
	is.True(!ok)

	bad := &Part{Attrs: DecodeAttributes("DURATION=soon", partSchema)}
	is.Equal(bad.Duration(), 0.0)
}

func TestBlackoutJSON(t *testing.T) {
	is := is.New(t)
	out, err := json.Marshal(&Segment{Blackout: &Blackout{}})
	is.NoErr(err)
	is.True(strings.Contains(string(out), `"blackout":true`)) // bare marker

	out, err = json.Marshal(&Segment{Blackout: &Blackout{Data: "reason=x"}})
	is.NoErr(err)
	is.True(strings.Contains(string(out), `"blackout":"reason=x"`))

	out, err = json.Marshal(&Segment{})
	is.NoErr(err)
	is.True(strings.Contains(string(out), `"blackout":null`))
}

func TestDocumentJSON(t *testing.T) {
	is := is.New(t)
	doc, err := Parse(`#EXTM3U
#EXT-X-TARGETDURATION:10
#EXT-X-KEY:METHOD=AES-128,URI="k.bin"
#EXTINF:9.5,intro
a.ts
#EXT-X-ENDLIST`, false)
	is.NoErr(err)

	var decoded map[string]any
	out, err := json.Marshal(doc)
	is.NoErr(err)
	is.NoErr(json.Unmarshal(out, &decoded)) // output must be valid JSON

	is.Equal(decoded["targetduration"], 10.0)
	is.Equal(decoded["is_endlist"], true)
	segments := decoded["segments"].([]any)
	is.Equal(len(segments), 1)
	seg := segments[0].(map[string]any)
	is.Equal(seg["uri"], "a.ts")
	is.Equal(seg["title"], "intro")
	is.Equal(seg["key"].(map[string]any)["uri"], "k.bin")
}
