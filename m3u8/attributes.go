package m3u8

/*
 This file defines the attribute-list tokenizer, the typed attribute decoder
 and the per-tag attribute schemas.
*/

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// AttrKind tells the decoder how to convert the raw value of an attribute.
type AttrKind uint8

const (
	// AttrString keeps the token verbatim, including quotes if present.
	AttrString AttrKind = iota
	// AttrQuotedString strips the surrounding quotes if present.
	AttrQuotedString
	// AttrInt is a base-10 integer.
	AttrInt
	// AttrFloat is a decimal floating point number.
	AttrFloat
	// AttrBandwidth is parsed as a float and truncated toward zero.
	AttrBandwidth
)

// Schema maps normalized attribute names to their kind. Names missing from
// the schema are decoded as AttrString.
type Schema map[string]AttrKind

// Schemas of the attribute lists known to the parser.
var (
	streamInfSchema = Schema{
		"codecs":            AttrQuotedString,
		"audio":             AttrQuotedString,
		"video":             AttrQuotedString,
		"video_range":       AttrQuotedString,
		"subtitles":         AttrQuotedString,
		"pathway_id":        AttrQuotedString,
		"stable_variant_id": AttrQuotedString,
		"program_id":        AttrInt,
		"bandwidth":         AttrBandwidth,
		"average_bandwidth": AttrInt,
		"frame_rate":        AttrFloat,
		"hdcp_level":        AttrString,
	}
	mediaSchema = Schema{
		"uri":                 AttrQuotedString,
		"group_id":            AttrQuotedString,
		"language":            AttrQuotedString,
		"assoc_language":      AttrQuotedString,
		"name":                AttrQuotedString,
		"instream_id":         AttrQuotedString,
		"characteristics":     AttrQuotedString,
		"channels":            AttrQuotedString,
		"stable_rendition_id": AttrQuotedString,
		"thumbnails":          AttrQuotedString,
		"image":               AttrQuotedString,
	}
	partSchema = Schema{
		"uri":         AttrQuotedString,
		"duration":    AttrFloat,
		"independent": AttrString,
		"gap":         AttrString,
		"byterange":   AttrString,
	}
	renditionReportSchema = Schema{
		"uri":       AttrQuotedString,
		"last_msn":  AttrInt,
		"last_part": AttrInt,
	}
	skipSchema = Schema{
		"recently_removed_dateranges": AttrQuotedString,
		"skipped_segments":            AttrInt,
	}
	serverControlSchema = Schema{
		"can_block_reload":    AttrString,
		"hold_back":           AttrFloat,
		"part_hold_back":      AttrFloat,
		"can_skip_until":      AttrFloat,
		"can_skip_dateranges": AttrString,
	}
	partInfSchema = Schema{
		"part_target": AttrFloat,
	}
	preloadHintSchema = Schema{
		"uri":              AttrQuotedString,
		"type":             AttrString,
		"byterange_start":  AttrInt,
		"byterange_length": AttrInt,
	}
	daterangeSchema = Schema{
		"id":               AttrQuotedString,
		"class":            AttrQuotedString,
		"start_date":       AttrQuotedString,
		"end_date":         AttrQuotedString,
		"duration":         AttrFloat,
		"planned_duration": AttrFloat,
		"end_on_next":      AttrString,
		"scte35_cmd":       AttrString,
		"scte35_out":       AttrString,
		"scte35_in":        AttrString,
	}
	sessionDataSchema = Schema{
		"data_id":  AttrQuotedString,
		"value":    AttrQuotedString,
		"uri":      AttrQuotedString,
		"language": AttrQuotedString,
	}
	contentSteeringSchema = Schema{
		"server_uri": AttrQuotedString,
		"pathway_id": AttrQuotedString,
	}
	mapSchema = Schema{
		"uri":       AttrQuotedString,
		"byterange": AttrQuotedString,
	}
	startSchema = Schema{
		"time_offset": AttrFloat,
	}
	tilesSchema = Schema{
		"uri":        AttrQuotedString,
		"resolution": AttrString,
		"layout":     AttrString,
		"duration":   AttrFloat,
	}
	imageStreamInfSchema = Schema{
		"codecs":            AttrQuotedString,
		"uri":               AttrQuotedString,
		"pathway_id":        AttrQuotedString,
		"stable_variant_id": AttrQuotedString,
		"program_id":        AttrInt,
		"bandwidth":         AttrInt,
		"average_bandwidth": AttrInt,
		"resolution":        AttrString,
	}
	iframeStreamInfSchema = Schema{
		"codecs":            AttrQuotedString,
		"uri":               AttrQuotedString,
		"pathway_id":        AttrQuotedString,
		"stable_variant_id": AttrQuotedString,
		"program_id":        AttrInt,
		"bandwidth":         AttrInt,
		"average_bandwidth": AttrInt,
		"hdcp_level":        AttrString,
	}
	cueOutContSchema = Schema{
		"duration":    AttrQuotedString,
		"elapsedtime": AttrQuotedString,
		"scte35":      AttrQuotedString,
	}
	cueOutSchema = Schema{
		"cue": AttrQuotedString,
	}
)

// ValueKind is the dynamic type held by a Value.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
)

// Value is a decoded attribute value. Numbers keep the text they were
// parsed from.
type Value struct {
	kind ValueKind
	text string
	i    int64
	f    float64
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, text: s}
}

// IntValue returns an integer Value.
func IntValue(i int64) Value {
	return Value{kind: KindInt, text: strconv.FormatInt(i, 10), i: i}
}

// FloatValue returns a floating point Value.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, text: strconv.FormatFloat(f, 'f', -1, 64), f: f}
}

// Kind returns the dynamic type of v.
func (v Value) Kind() ValueKind {
	return v.kind
}

// String returns the value as text. Numbers are returned as written in the
// playlist.
func (v Value) String() string {
	return v.text
}

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the number held by v. Integers are converted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// MarshalJSON encodes numbers as JSON numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(v.text)
		}
		return json.Marshal(v.f)
	}
	return json.Marshal(v.text)
}

// Attribute is a decoded NAME=VALUE pair.
type Attribute struct {
	Name  string
	Value Value
}

// Attributes is an attribute list in the order the names first appeared.
// Names are normalized: lower case with hyphens replaced by underscores.
type Attributes []Attribute

// Get returns the value of the named attribute.
func (a Attributes) Get(name string) (Value, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether the named attribute is present.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Len returns the number of attributes.
func (a Attributes) Len() int {
	return len(a)
}

// Set replaces the value of the named attribute, or appends it.
func (a *Attributes) Set(name string, v Value) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = v
			return
		}
	}
	*a = append(*a, Attribute{Name: name, Value: v})
}

// Delete removes the named attribute and returns its value.
func (a *Attributes) Delete(name string) (Value, bool) {
	for i, attr := range *a {
		if attr.Name == name {
			*a = append((*a)[:i:i], (*a)[i+1:]...)
			return attr.Value, true
		}
	}
	return Value{}, false
}

// Equal reports whether both lists hold the same names and values,
// regardless of order.
func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for _, attr := range a {
		v, ok := o.Get(attr.Name)
		if !ok || v != attr.Value {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the list as a JSON object keeping the attribute order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := attr.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RawAttribute is a name/value pair as it appears in an attribute list.
// Quoted values keep their quotes.
type RawAttribute struct {
	Name  string
	Value string
}

// TokenizeAttributes splits a NAME=VALUE,NAME=VALUE fragment into raw pairs.
//
// A value starting with a double or single quote runs to the next matching
// quote; an unterminated quote runs to the end of the fragment. Unquoted
// values run to the next comma and lose trailing whitespace. A token without
// "=" is returned with an empty name. The tokenizer never fails.
func TokenizeAttributes(s string) []RawAttribute {
	var out []RawAttribute
	i, n := 0, len(s)
	for i < n {
		for i < n && (isSpace(s[i]) || s[i] == ',') {
			i++
		}
		if i >= n {
			break
		}
		start := i
		for i < n && s[i] != '=' && s[i] != ',' {
			i++
		}
		name := s[start:i]
		if i == n || s[i] == ',' {
			out = append(out, RawAttribute{Value: trimRightSpace(name)})
			continue
		}
		i++ // '='
		if i < n && (s[i] == '"' || s[i] == '\'') {
			quote := s[i]
			start = i
			i++
			for i < n && s[i] != quote {
				i++
			}
			if i < n {
				i++
			}
			out = append(out, RawAttribute{Name: normalizeName(name), Value: s[start:i]})
			continue
		}
		start = i
		for i < n && s[i] != ',' {
			i++
		}
		out = append(out, RawAttribute{Name: normalizeName(name), Value: trimRightSpace(s[start:i])})
	}
	return out
}

// DecodeAttributes tokenizes s and converts every value to the kind given by
// the schema. A repeated name keeps its first position and its last value.
// A nil schema decodes every value as AttrString.
func DecodeAttributes(s string, schema Schema) Attributes {
	pairs := TokenizeAttributes(s)
	attrs := make(Attributes, 0, len(pairs))
	for _, p := range pairs {
		attrs.Set(p.Name, decodeValue(p.Value, schema[p.Name]))
	}
	return attrs
}

// decodeValue converts a raw token. Numeric conversions that fail fall back
// to the unquoted text.
func decodeValue(raw string, kind AttrKind) Value {
	if kind == AttrString {
		return StringValue(raw)
	}
	inner := unquote(raw)
	switch kind {
	case AttrInt:
		if i, err := strconv.ParseInt(strings.TrimSpace(inner), 10, 64); err == nil {
			return Value{kind: KindInt, text: inner, i: i}
		}
	case AttrFloat:
		if f, err := strconv.ParseFloat(strings.TrimSpace(inner), 64); err == nil {
			return Value{kind: KindFloat, text: inner, f: f}
		}
	case AttrBandwidth:
		f, err := strconv.ParseFloat(strings.TrimSpace(inner), 64)
		if err == nil && f > math.MinInt64 && f < math.MaxInt64 {
			return Value{kind: KindInt, text: inner, i: int64(f)}
		}
	}
	return StringValue(inner)
}

// unquote strips a leading quote and the matching trailing one, if present.
func unquote(raw string) string {
	if raw == "" || (raw[0] != '"' && raw[0] != '\'') {
		return raw
	}
	inner := raw[1:]
	if l := len(inner); l > 0 && inner[l-1] == raw[0] {
		inner = inner[:l-1]
	}
	return inner
}

// normalizeName trims the name, lower-cases ASCII letters and replaces
// hyphens with underscores.
func normalizeName(name string) string {
	name = strings.Trim(name, asciiSpace)
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '-':
			c = '_'
		case 'A' <= c && c <= 'Z':
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

const asciiSpace = " \t\n\v\f\r"

func isSpace(c byte) bool {
	return c == ' ' || ('\t' <= c && c <= '\r')
}

func trimRightSpace(s string) string {
	return strings.TrimRight(s, asciiSpace)
}
