package m3u8

/*
 This file defines functions related to playlist parsing.
*/

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	tagM3U                   = "#EXTM3U"
	tagInf                   = "#EXTINF"
	tagTargetDuration        = "#EXT-X-TARGETDURATION"
	tagMediaSequence         = "#EXT-X-MEDIA-SEQUENCE"
	tagDiscontinuitySequence = "#EXT-X-DISCONTINUITY-SEQUENCE"
	tagVersion               = "#EXT-X-VERSION"
	tagPlaylistType          = "#EXT-X-PLAYLIST-TYPE"
	tagAllowCache            = "#EXT-X-ALLOW-CACHE"
	tagProgramDateTime       = "#EXT-X-PROGRAM-DATE-TIME"
	tagKey                   = "#EXT-X-KEY"
	tagSessionKey            = "#EXT-X-SESSION-KEY"
	tagByteRange             = "#EXT-X-BYTERANGE"
	tagBitrate               = "#EXT-X-BITRATE"
	tagStreamInf             = "#EXT-X-STREAM-INF"
	tagIFrameStreamInf       = "#EXT-X-I-FRAME-STREAM-INF"
	tagImageStreamInf        = "#EXT-X-IMAGE-STREAM-INF"
	tagMedia                 = "#EXT-X-MEDIA"
	tagIFramesOnly           = "#EXT-X-I-FRAMES-ONLY"
	tagIndependentSegments   = "#EXT-X-INDEPENDENT-SEGMENTS"
	tagEndList               = "#EXT-X-ENDLIST"
	tagImagesOnly            = "#EXT-X-IMAGES-ONLY"
	tagDiscontinuity         = "#EXT-X-DISCONTINUITY"
	tagCueIn                 = "#EXT-X-CUE-IN"
	tagCueSpan               = "#EXT-X-CUE-SPAN"
	tagCueOut                = "#EXT-X-CUE-OUT"
	tagCueOutCont            = "#EXT-X-CUE-OUT-CONT"
	tagOATCLSSCTE35          = "#EXT-OATCLS-SCTE35"
	tagAsset                 = "#EXT-X-ASSET"
	tagMap                   = "#EXT-X-MAP"
	tagStart                 = "#EXT-X-START"
	tagServerControl         = "#EXT-X-SERVER-CONTROL"
	tagPartInf               = "#EXT-X-PART-INF"
	tagPart                  = "#EXT-X-PART"
	tagRenditionReport       = "#EXT-X-RENDITION-REPORT"
	tagSkip                  = "#EXT-X-SKIP"
	tagSessionData           = "#EXT-X-SESSION-DATA"
	tagPreloadHint           = "#EXT-X-PRELOAD-HINT"
	tagDateRange             = "#EXT-X-DATERANGE"
	tagGap                   = "#EXT-X-GAP"
	tagContentSteering       = "#EXT-X-CONTENT-STEERING"
	tagTiles                 = "#EXT-X-TILES"
	tagBlackout              = "#EXT-X-BLACKOUT"
	tagDefine                = "#EXT-X-DEFINE"
)

// tagHandler applies one tag line. value is the text after the first colon.
type tagHandler func(d *decoder, value string) error

var tagHandlers = map[string]tagHandler{
	tagM3U:                   func(*decoder, string) error { return nil },
	tagTargetDuration:        intTag(func(doc *Document) **int64 { return &doc.TargetDuration }),
	tagMediaSequence:         intTag(func(doc *Document) **int64 { return &doc.MediaSequence }),
	tagDiscontinuitySequence: intTag(func(doc *Document) **int64 { return &doc.DiscontinuitySequence }),
	tagVersion:               intTag(func(doc *Document) **int64 { return &doc.Version }),
	tagPlaylistType:          lowerTag(func(doc *Document) **string { return &doc.PlaylistType }),
	tagAllowCache:            lowerTag(func(doc *Document) **string { return &doc.AllowCache }),
	tagProgramDateTime:       (*decoder).decodeProgramDateTime,
	tagKey:                   (*decoder).decodeKey,
	tagSessionKey:            (*decoder).decodeSessionKey,
	tagInf:                   (*decoder).decodeInf,
	tagByteRange:             (*decoder).decodeByteRange,
	tagBitrate:               (*decoder).decodeBitrate,
	tagStreamInf:             (*decoder).decodeStreamInf,
	tagIFrameStreamInf:       (*decoder).decodeIFrameStreamInf,
	tagImageStreamInf:        (*decoder).decodeImageStreamInf,
	tagIFramesOnly:           func(d *decoder, _ string) error { d.doc.IsIFramesOnly = true; return nil },
	tagIndependentSegments:   func(d *decoder, _ string) error { d.doc.IsIndependentSegments = true; return nil },
	tagEndList:               func(d *decoder, _ string) error { d.doc.IsEndlist = true; return nil },
	tagImagesOnly:            func(d *decoder, _ string) error { d.doc.IsImagesOnly = true; return nil },
	tagDiscontinuity:         func(d *decoder, _ string) error { d.state.Discontinuity = true; return nil },
	tagCueIn:                 func(d *decoder, _ string) error { d.state.CueIn = true; return nil },
	tagCueSpan:               func(d *decoder, _ string) error { d.state.CueOut = true; return nil },
	tagGap:                   func(d *decoder, _ string) error { d.state.Gap = true; return nil },
	tagCueOut:                (*decoder).decodeCueOut,
	tagCueOutCont:            (*decoder).decodeCueOutCont,
	tagOATCLSSCTE35:          (*decoder).decodeOATCLSSCTE35,
	tagAsset:                 (*decoder).decodeAsset,
	tagMap:                   (*decoder).decodeMap,
	tagPart:                  (*decoder).decodePart,
	tagDateRange:             (*decoder).decodeDateRange,
	tagBlackout:              (*decoder).decodeBlackout,
	tagMedia:                 listTag(mediaSchema, func(doc *Document) *[]Attributes { return &doc.Media }),
	tagRenditionReport:       listTag(renditionReportSchema, func(doc *Document) *[]Attributes { return &doc.RenditionReports }),
	tagSessionData:           listTag(sessionDataSchema, func(doc *Document) *[]Attributes { return &doc.SessionData }),
	tagTiles:                 listTag(tilesSchema, func(doc *Document) *[]Attributes { return &doc.Tiles }),
	tagStart:                 attrTag(startSchema, func(doc *Document) *Attributes { return &doc.Start }),
	tagServerControl:         attrTag(serverControlSchema, func(doc *Document) *Attributes { return &doc.ServerControl }),
	tagPartInf:               attrTag(partInfSchema, func(doc *Document) *Attributes { return &doc.PartInf }),
	tagSkip:                  attrTag(skipSchema, func(doc *Document) *Attributes { return &doc.Skip }),
	tagPreloadHint:           attrTag(preloadHintSchema, func(doc *Document) *Attributes { return &doc.PreloadHint }),
	tagContentSteering:       attrTag(contentSteeringSchema, func(doc *Document) *Attributes { return &doc.ContentSteering }),
}

// decoder owns the Document and ParseState of a single parse.
type decoder struct {
	doc       *Document
	state     *ParseState
	strict    bool
	custom    CustomTagParser
	timeParse func(string) (time.Time, error)
	lineNo    int    // 1-based number of the current line
	line      string // current trimmed line
}

// Parse parses a playlist. If strict is true, the playlist is first
// checked with ValidateVersion and the first syntax error aborts parsing.
func Parse(content string, strict bool) (*Document, error) {
	return ParseWith(content, Options{Strict: strict})
}

// ParseFrom reads the whole playlist from reader and parses it.
func ParseFrom(reader io.Reader, strict bool) (*Document, error) {
	buf := new(bytes.Buffer)
	_, err := buf.ReadFrom(reader)
	if err != nil {
		return nil, err
	}
	return Parse(buf.String(), strict)
}

// ParseWith parses a playlist with the given options.
//
// In strict mode the validator runs once over the trimmed lines and any
// violation is returned as a *ValidationError. Unknown tags, an EXTINF
// without a comma, an unreadable EXT-X-PROGRAM-DATE-TIME and URI lines that
// no tag announced are returned as a *ParseError. Errors returned by the
// custom tag parser abort parsing. No Document is returned with an error.
func ParseWith(content string, opts Options) (*Document, error) {
	lines := Lines(content)
	if opts.Strict {
		validate := opts.Validator
		if validate == nil {
			validate = ValidateVersion
		}
		if violations := validate(lines); len(violations) > 0 {
			return nil, &ValidationError{Violations: violations}
		}
	}

	d := &decoder{
		doc:       NewDocument(),
		state:     new(ParseState),
		strict:    opts.Strict,
		custom:    opts.CustomTags,
		timeParse: opts.TimeParse,
	}
	if d.timeParse == nil {
		d.timeParse = FullTimeParse
	}

	for i, line := range lines {
		if line == "" {
			continue
		}
		d.lineNo = i + 1
		d.line = line
		if err := d.decodeLine(line); err != nil {
			return nil, err
		}
	}

	// a segment announced by tags but never closed by a URI line
	if d.state.Segment != nil {
		d.doc.Segments = append(d.doc.Segments, d.state.Segment)
		d.state.Segment = nil
	}
	return d.doc, nil
}

// Lines splits content the way the parser sees it: the whole text is
// trimmed, split on "\n", "\r\n" or "\r", and every line is trimmed.
// Blank lines are kept so that indexes match line numbers minus one.
func Lines(content string) []string {
	content = strings.Trim(content, asciiSpace)
	if content == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexAny(content, "\r\n")
		if i < 0 {
			return append(lines, strings.Trim(content, asciiSpace))
		}
		lines = append(lines, strings.Trim(content[:i], asciiSpace))
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			i++
		}
		content = content[i+1:]
	}
}

func (d *decoder) decodeLine(line string) error {
	if line[0] != '#' {
		return d.decodeURI(line)
	}

	// custom tags go first to allow custom parsing of known tags
	if d.custom != nil {
		skip, err := d.custom(line, d.lineNo, d.doc, d.state)
		if err != nil {
			return fmt.Errorf("custom tag parser on line %d: %w", d.lineNo, err)
		}
		if skip {
			return nil
		}
	}

	tag, value, _ := strings.Cut(line, ":")
	handler, ok := tagHandlers[tag]
	if !ok {
		if d.strict {
			return d.syntaxError()
		}
		return nil
	}
	return handler(d, value)
}

func (d *decoder) syntaxError() error {
	return &ParseError{LineNumber: d.lineNo, Line: d.line}
}

// decodeURI resolves a URI line with the flags set by the preceding tags.
func (d *decoder) decodeURI(line string) error {
	switch {
	case d.state.ExpectSegment:
		d.finalizeSegment(line)
	case d.state.ExpectPlaylist:
		d.appendVariant(line)
	case d.strict:
		return d.syntaxError()
	}
	return nil
}

// finalizeSegment moves the pending segment and everything the state holds
// for it into the document.
func (d *decoder) finalizeSegment(uri string) {
	s := d.state
	seg := s.segment()
	s.Segment = nil
	seg.URI = uri

	seg.ProgramDateTime, s.ProgramDateTime = s.ProgramDateTime, nil
	if s.CurrentProgramDateTime != nil {
		seg.CurrentProgramDateTime = s.CurrentProgramDateTime
		s.CurrentProgramDateTime = addSeconds(*s.CurrentProgramDateTime, seg.Duration)
	}

	seg.CueIn, s.CueIn = s.CueIn, false
	seg.CueOut = s.CueOut
	seg.CueOutStart, s.CueOutStart = s.CueOutStart, false
	seg.CueOutExplicitlyDuration, s.CueOutExplicitlyDuration = s.CueOutExplicitlyDuration, false

	// cue values live on while the cue-out span does
	seg.SCTE35 = s.CueOutSCTE35
	seg.OATCLSSCTE35 = s.CueOutOATCLSSCTE35
	seg.SCTE35Duration = s.CueOutDuration
	seg.SCTE35ElapsedTime = s.CueOutElapsedTime
	seg.AssetMetadata = s.AssetMetadata
	if !seg.CueOut {
		s.CueOutSCTE35 = nil
		s.CueOutOATCLSSCTE35 = nil
		s.CueOutDuration = nil
		s.CueOutElapsedTime = nil
		s.AssetMetadata = nil
	}
	s.CueOut = false

	seg.Discontinuity, s.Discontinuity = s.Discontinuity, false

	if s.CurrentKey != nil {
		seg.Key = s.CurrentKey
	} else {
		d.addNoKey()
	}
	if len(s.SegmentMap) > 0 {
		seg.InitSection = s.SegmentMap
	}

	seg.Dateranges, s.Dateranges = s.Dateranges, nil
	seg.Gap, s.Gap = s.Gap, false
	seg.Blackout, s.Blackout = s.Blackout, nil

	d.doc.Segments = append(d.doc.Segments, seg)
	s.ExpectSegment = false
}

// addNoKey records the "no key" entry once.
func (d *decoder) addNoKey() {
	for _, k := range d.doc.Keys {
		if k == nil {
			return
		}
	}
	d.doc.Keys = append(d.doc.Keys, nil)
}

func (d *decoder) appendVariant(uri string) {
	info := d.state.StreamInfo
	if info == nil {
		info = Attributes{}
	}
	d.doc.Playlists = append(d.doc.Playlists, &Playlist{URI: uri, StreamInfo: info})
	d.state.StreamInfo = nil
	d.state.ExpectPlaylist = false
}

func intTag(field func(*Document) **int64) tagHandler {
	return func(d *decoder, value string) error {
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			*field(d.doc) = &n
		}
		return nil
	}
}

func lowerTag(field func(*Document) **string) tagHandler {
	return func(d *decoder, value string) error {
		v := strings.Trim(strings.ToLower(value), asciiSpace)
		*field(d.doc) = &v
		return nil
	}
}

func listTag(schema Schema, field func(*Document) *[]Attributes) tagHandler {
	return func(d *decoder, value string) error {
		list := field(d.doc)
		*list = append(*list, DecodeAttributes(value, schema))
		return nil
	}
}

func attrTag(schema Schema, field func(*Document) *Attributes) tagHandler {
	return func(d *decoder, value string) error {
		*field(d.doc) = DecodeAttributes(value, schema)
		return nil
	}
}

func (d *decoder) decodeInf(value string) error {
	duration, title, ok := strings.Cut(value, ",")
	if !ok && d.strict {
		return d.syntaxError()
	}
	seg := d.state.segment()
	seg.Duration, _ = strconv.ParseFloat(strings.TrimSpace(duration), 64)
	if math.IsNaN(seg.Duration) || math.IsInf(seg.Duration, 0) {
		seg.Duration = 0
	}
	seg.Title = title
	d.state.ExpectSegment = true
	return nil
}

func (d *decoder) decodeByteRange(value string) error {
	seg := d.state.segment()
	seg.ByteRange = &value
	d.state.ExpectSegment = true
	return nil
}

func (d *decoder) decodeBitrate(value string) error {
	seg := d.state.segment()
	if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
		seg.Bitrate = &n
	}
	d.state.ExpectSegment = true
	return nil
}

func (d *decoder) decodeStreamInf(value string) error {
	d.state.ExpectPlaylist = true
	d.doc.IsVariant = true
	d.doc.MediaSequence = nil
	d.state.StreamInfo = DecodeAttributes(value, streamInfSchema)
	return nil
}

func (d *decoder) decodeIFrameStreamInf(value string) error {
	d.doc.IFramePlaylists = appendStreamRef(d.doc.IFramePlaylists, DecodeAttributes(value, iframeStreamInfSchema))
	return nil
}

func (d *decoder) decodeImageStreamInf(value string) error {
	d.doc.ImagePlaylists = appendStreamRef(d.doc.ImagePlaylists, DecodeAttributes(value, imageStreamInfSchema))
	return nil
}

// appendStreamRef moves the URI attribute out of attrs into a new playlist.
// Lists without URI are dropped.
func appendStreamRef(list []*Playlist, attrs Attributes) []*Playlist {
	uri, ok := attrs.Delete("uri")
	if !ok {
		return list
	}
	return append(list, &Playlist{URI: uri.String(), StreamInfo: attrs})
}

func (d *decoder) decodeKey(value string) error {
	key := parseKey(value)
	found := false
	for _, k := range d.doc.Keys {
		if k.Equal(key) {
			key, found = k, true
			break
		}
	}
	if !found {
		d.doc.Keys = append(d.doc.Keys, key)
	}
	d.state.CurrentKey = key
	return nil
}

func (d *decoder) decodeSessionKey(value string) error {
	d.doc.SessionKeys = append(d.doc.SessionKeys, parseKey(value))
	return nil
}

func parseKey(parameters string) *Key {
	key := Key{}
	for _, attr := range TokenizeAttributes(parameters) {
		v := DeQuote(attr.Value)
		switch attr.Name {
		case "method":
			key.Method = v // NONE, AES-128, SAMPLE-AES, SAMPLE-AES-CTR
		case "uri":
			key.URI = v
		case "iv":
			key.IV = v // Hex value
		case "keyformat":
			key.Keyformat = v
		case "keyformatversions":
			key.Keyformatversions = v
		default:
			key.Other.Set(attr.Name, StringValue(v))
		}
	}
	return &key
}

func (d *decoder) decodeProgramDateTime(value string) error {
	t, err := d.timeParse(strings.TrimSpace(value))
	if err != nil {
		if d.strict {
			return d.syntaxError()
		}
		return nil
	}
	if d.doc.ProgramDateTime == nil {
		d.doc.ProgramDateTime = &t
	}
	d.state.CurrentProgramDateTime = &t
	d.state.ProgramDateTime = &t
	return nil
}

func (d *decoder) decodeCueOut(value string) error {
	s := d.state
	s.CueOutStart = true
	s.CueOut = true
	if strings.Contains(strings.ToUpper(d.line), "DURATION") {
		s.CueOutExplicitlyDuration = true
	}

	info := DecodeAttributes(value, cueOutSchema)
	// without CUE the SCTE-35 payload of an earlier tag is kept
	if cue, ok := info.Get("cue"); ok {
		s.CueOutSCTE35 = strPtr(cue.String())
	}
	duration, ok := info.Get("duration")
	if !ok {
		duration, ok = info.Get("")
	}
	if ok {
		s.CueOutDuration = strPtr(duration.String())
	}
	return nil
}

func (d *decoder) decodeCueOutCont(value string) error {
	s := d.state
	s.CueOut = true

	info := DecodeAttributes(value, cueOutContSchema)
	// bare "elapsed/duration" progress
	if progress, ok := info.Get(""); ok {
		if elapsed, duration, found := strings.Cut(progress.String(), "/"); found {
			s.CueOutElapsedTime = strPtr(elapsed)
			s.CueOutDuration = strPtr(duration)
		} else {
			s.CueOutDuration = strPtr(progress.String())
		}
	}
	if v, ok := info.Get("duration"); ok {
		s.CueOutDuration = strPtr(v.String())
	}
	if v, ok := info.Get("scte35"); ok {
		s.CueOutSCTE35 = strPtr(v.String())
	}
	if v, ok := info.Get("elapsedtime"); ok {
		s.CueOutElapsedTime = strPtr(v.String())
	}
	return nil
}

func (d *decoder) decodeOATCLSSCTE35(value string) error {
	if !strings.Contains(d.line, ":") {
		return nil
	}
	d.state.CueOutOATCLSSCTE35 = strPtr(value)
	if d.state.CueOutSCTE35 == nil {
		d.state.CueOutSCTE35 = strPtr(value)
	}
	return nil
}

func (d *decoder) decodeAsset(value string) error {
	d.state.AssetMetadata = DecodeAttributes(value, nil)
	return nil
}

func (d *decoder) decodeMap(value string) error {
	m := DecodeAttributes(value, mapSchema)
	d.state.SegmentMap = m
	d.doc.SegmentMap = append(d.doc.SegmentMap, m)
	return nil
}

func (d *decoder) decodePart(value string) error {
	s := d.state
	part := &Part{Attrs: DecodeAttributes(value, partSchema)}
	if s.CurrentProgramDateTime != nil {
		part.ProgramDateTime = s.CurrentProgramDateTime
		s.CurrentProgramDateTime = addSeconds(*s.CurrentProgramDateTime, part.Duration())
	}
	part.Dateranges, s.Dateranges = s.Dateranges, nil
	part.Gap, s.Gap = s.Gap, false

	// parts may come before any EXTINF of their segment
	seg := s.segment()
	seg.Parts = append(seg.Parts, part)
	return nil
}

func (d *decoder) decodeDateRange(value string) error {
	d.state.Dateranges = append(d.state.Dateranges, DecodeAttributes(value, daterangeSchema))
	return nil
}

func (d *decoder) decodeBlackout(value string) error {
	d.state.Blackout = &Blackout{Data: value}
	return nil
}

// addSeconds returns t advanced by secs, rounded to the microsecond.
func addSeconds(t time.Time, secs float64) *time.Time {
	next := t.Add(time.Duration(math.Round(secs*1e6)) * time.Microsecond)
	return &next
}

func strPtr(s string) *string {
	return &s
}

// DeQuote removes double or single quotes around a string.
func DeQuote(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// StrictTimeParse implements RFC3339 with Nanoseconds accuracy.
func StrictTimeParse(value string) (time.Time, error) {
	return time.Parse(DATETIME, value)
}

// FullTimeParse implements ISO/IEC 8601:2004. Besides zoned date-times it
// accepts a space instead of "T", date-times without zone (taken as UTC)
// and bare dates.
func FullTimeParse(value string) (time.Time, error) {
	layouts := []string{
		"2006-01-02T15:04:05.999999999Z0700",
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999Z07",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + value[11:]
	}
	var (
		err error
		t   time.Time
	)
	for _, layout := range layouts {
		if t, err = time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return t, err
}
