package m3u8

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestTokenizeAttributes(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected []RawAttribute
	}{
		{
			"quoted value with comma",
			`BANDWIDTH=1280000,CODECS="mp4a.40.2,avc1.4d401e"`,
			[]RawAttribute{{"bandwidth", "1280000"}, {"codecs", `"mp4a.40.2,avc1.4d401e"`}},
		},
		{
			"spaces around names and values",
			" Name = value , OTHER-ONE=x ",
			[]RawAttribute{{"name", " value"}, {"other_one", "x"}},
		},
		{
			"bare token",
			"2.436/120",
			[]RawAttribute{{"", "2.436/120"}},
		},
		{
			"bare token before pair",
			"FLAG,KEY=v",
			[]RawAttribute{{"", "FLAG"}, {"key", "v"}},
		},
		{
			"unterminated quote",
			`URI="unterminated,B=2`,
			[]RawAttribute{{"uri", `"unterminated,B=2`}},
		},
		{
			"single quotes",
			"A='single, quoted',B=2",
			[]RawAttribute{{"a", "'single, quoted'"}, {"b", "2"}},
		},
		{
			"empty value",
			"KEY=",
			[]RawAttribute{{"key", ""}},
		},
		{
			"equals inside unquoted value",
			"SCTE35=/DAl==,X=1",
			[]RawAttribute{{"scte35", "/DAl=="}, {"x", "1"}},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(TokenizeAttributes(c.input), c.expected)
		})
	}
}

func TestTokenizeAttributesEmpty(t *testing.T) {
	is := is.New(t)
	for _, input := range []string{"", " ", ",,  ,", "\t,"} {
		is.Equal(len(TokenizeAttributes(input)), 0) // nothing to tokenize
	}
}

func TestDecodeAttributesKinds(t *testing.T) {
	is := is.New(t)
	schema := Schema{
		"q": AttrQuotedString,
		"i": AttrInt,
		"f": AttrFloat,
		"b": AttrBandwidth,
	}
	attrs := DecodeAttributes(`Q="quoted",I="42",F=0.5,B=1280000.9,S="kept",R=raw`, schema)
	is.Equal(attrs.Len(), 6)

	q, _ := attrs.Get("q")
	is.Equal(q.Kind(), KindString)
	is.Equal(q.String(), "quoted") // quoted kind strips quotes

	i, _ := attrs.Get("i")
	n, ok := i.Int()
	is.True(ok)
	is.Equal(n, int64(42)) // numbers may be quoted

	f, _ := attrs.Get("f")
	x, ok := f.Float()
	is.True(ok)
	is.Equal(x, 0.5)
	_, ok = f.Int()
	is.True(!ok) // float is not an integer

	b, _ := attrs.Get("b")
	n, ok = b.Int()
	is.True(ok)
	is.Equal(n, int64(1280000)) // bandwidth is truncated
	is.Equal(b.String(), "1280000.9")

	s, _ := attrs.Get("s")
	is.Equal(s.String(), `"kept"`) // names outside the schema keep their quotes
	r, _ := attrs.Get("r")
	is.Equal(r.String(), "raw")
}

func TestDecodeAttributesFallback(t *testing.T) {
	cases := []struct {
		kind     AttrKind
		raw      string
		expected string
	}{
		{AttrInt, "abc", "abc"},
		{AttrInt, `"abc"`, "abc"},
		{AttrInt, "1.5", "1.5"},
		{AttrInt, "99999999999999999999", "99999999999999999999"},
		{AttrFloat, "fast", "fast"},
		{AttrFloat, `"fast"`, "fast"},
		{AttrBandwidth, "1e400", "1e400"},
		{AttrBandwidth, "", ""},
	}
	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			is := is.New(t)
			attrs := DecodeAttributes("X="+c.raw, Schema{"x": c.kind})
			v, ok := attrs.Get("x")
			is.True(ok)
			is.Equal(v.Kind(), KindString) // failed conversion keeps the text
			is.Equal(v.String(), c.expected)
		})
	}
}

func TestDecodeAttributesNegativeBandwidth(t *testing.T) {
	is := is.New(t)
	v, _ := DecodeAttributes("BANDWIDTH=-5.5", streamInfSchema).Get("bandwidth")
	n, ok := v.Int()
	is.True(ok)
	is.Equal(n, int64(-5)) // truncated toward zero
}

func TestDecodeAttributesDuplicates(t *testing.T) {
	is := is.New(t)
	attrs := DecodeAttributes("A=1,B=2,A=3", Schema{"a": AttrInt})
	is.Equal(attrs.Len(), 2)
	is.Equal(attrs[0].Name, "a") // first position
	n, _ := attrs[0].Value.Int()
	is.Equal(n, int64(3)) // last value
	is.Equal(attrs[1].Name, "b")
}

func TestDecodeAttributesNilSchema(t *testing.T) {
	is := is.New(t)
	attrs := DecodeAttributes(`CAID=0x01,GENRE="news",2`, nil)
	is.Equal(attrs, Attributes{
		{"caid", StringValue("0x01")},
		{"genre", StringValue(`"news"`)},
		{"", StringValue("2")},
	})
}

func TestAttributesSetDelete(t *testing.T) {
	is := is.New(t)
	var attrs Attributes
	attrs.Set("a", IntValue(1))
	attrs.Set("b", StringValue("x"))
	attrs.Set("a", IntValue(2))
	is.Equal(attrs.Len(), 2)
	v, _ := attrs.Get("a")
	is.Equal(v, IntValue(2)) // Set overwrites in place

	orig := attrs
	v, ok := attrs.Delete("a")
	is.True(ok)
	is.Equal(v, IntValue(2))
	is.Equal(attrs, Attributes{{"b", StringValue("x")}})
	is.Equal(orig[0].Name, "a") // the original backing array is untouched

	_, ok = attrs.Delete("missing")
	is.True(!ok)
	is.True(!attrs.Has("a"))
	is.True(attrs.Has("b"))
}

func TestAttributesEqual(t *testing.T) {
	is := is.New(t)
	a := Attributes{{"x", IntValue(1)}, {"y", StringValue("v")}}
	b := Attributes{{"y", StringValue("v")}, {"x", IntValue(1)}}
	is.True(a.Equal(b)) // order does not matter
	is.True(!a.Equal(b[:1]))

	c := Attributes{{"x", StringValue("1")}, {"y", StringValue("v")}}
	is.True(!a.Equal(c)) // kinds differ
	is.True(Attributes(nil).Equal(Attributes{}))
}

func TestValueAccessors(t *testing.T) {
	is := is.New(t)

	i := IntValue(-7)
	is.Equal(i.Kind(), KindInt)
	is.Equal(i.String(), "-7")
	f, ok := i.Float()
	is.True(ok)
	is.Equal(f, -7.0) // integers convert to float

	fl := FloatValue(2.5)
	is.Equal(fl.String(), "2.5")
	_, ok = fl.Int()
	is.True(!ok)

	s := StringValue("abc")
	_, ok = s.Float()
	is.True(!ok)

	var zero Value
	is.Equal(zero.Kind(), KindString) // zero Value is an empty string
	is.Equal(zero.String(), "")
}

func TestAttributesJSON(t *testing.T) {
	is := is.New(t)
	attrs := Attributes{
		{"b", IntValue(1)},
		{"a", StringValue("x")},
		{"c", FloatValue(0.25)},
		{"d", FloatValue(math.NaN())},
		{"e", FloatValue(math.Inf(1))},
	}
	out, err := json.Marshal(attrs)
	is.NoErr(err)
	is.Equal(string(out), `{"b":1,"a":"x","c":0.25,"d":"NaN","e":"+Inf"}`) // order kept, non-finite as text

	out, err = json.Marshal(Attributes(nil))
	is.NoErr(err)
	is.Equal(string(out), "null")

	out, err = json.Marshal(Attributes{})
	is.NoErr(err)
	is.Equal(string(out), "{}")
}

func BenchmarkDecodeAttributes(b *testing.B) {
	const line = `PROGRAM-ID=1,BANDWIDTH=1500000,AVERAGE-BANDWIDTH=1400000,CODECS="avc1.42c015,mp4a.40.2",RESOLUTION=1920x1080,FRAME-RATE=25.000,AUDIO="aac",SUBTITLES="subs"`
	for i := 0; i < b.N; i++ {
		DecodeAttributes(line, streamInfSchema)
	}
}
