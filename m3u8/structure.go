package m3u8

/*
 This file defines data structures related to package.
*/

import (
	"encoding/json"
	"time"
)

// Document is the result of parsing a playlist.
//
// Every list is present (possibly empty) even if the corresponding tag never
// appeared. Scalars set by a tag are nil until the tag is seen, except
// MediaSequence, which starts at 0 and becomes nil once a variant stream
// (EXT-X-STREAM-INF) is seen.
type Document struct {
	MediaSequence         *int64       `json:"media_sequence"`          // EXT-X-MEDIA-SEQUENCE, nil for variant playlists
	TargetDuration        *int64       `json:"targetduration"`          // EXT-X-TARGETDURATION
	DiscontinuitySequence *int64       `json:"discontinuity_sequence"`  // EXT-X-DISCONTINUITY-SEQUENCE
	Version               *int64       `json:"version"`                 // EXT-X-VERSION
	PlaylistType          *string      `json:"playlist_type"`           // EXT-X-PLAYLIST-TYPE, lower-cased
	AllowCache            *string      `json:"allow_cache"`             // EXT-X-ALLOW-CACHE, lower-cased
	ProgramDateTime       *time.Time   `json:"program_date_time"`       // first EXT-X-PROGRAM-DATE-TIME seen
	IsVariant             bool         `json:"is_variant"`              // EXT-X-STREAM-INF seen
	IsEndlist             bool         `json:"is_endlist"`              // EXT-X-ENDLIST
	IsIFramesOnly         bool         `json:"is_i_frames_only"`        // EXT-X-I-FRAMES-ONLY
	IsIndependentSegments bool         `json:"is_independent_segments"` // EXT-X-INDEPENDENT-SEGMENTS
	IsImagesOnly          bool         `json:"is_images_only"`          // EXT-X-IMAGES-ONLY
	Segments              []*Segment   `json:"segments"`
	Playlists             []*Playlist  `json:"playlists"`        // EXT-X-STREAM-INF + URI line
	IFramePlaylists       []*Playlist  `json:"iframe_playlists"` // EXT-X-I-FRAME-STREAM-INF
	ImagePlaylists        []*Playlist  `json:"image_playlists"`  // EXT-X-IMAGE-STREAM-INF
	Media                 []Attributes `json:"media"`            // EXT-X-MEDIA
	Keys                  []*Key       `json:"keys"`             // distinct EXT-X-KEY values, nil is "no key"
	SessionKeys           []*Key       `json:"session_keys"`     // EXT-X-SESSION-KEY
	SessionData           []Attributes `json:"session_data"`     // EXT-X-SESSION-DATA
	RenditionReports      []Attributes `json:"rendition_reports"`
	SegmentMap            []Attributes `json:"segment_map"` // every EXT-X-MAP in order
	Tiles                 []Attributes `json:"tiles"`       // EXT-X-TILES
	Skip                  Attributes   `json:"skip"`        // EXT-X-SKIP, empty when absent
	PartInf               Attributes   `json:"part_inf"`    // EXT-X-PART-INF, empty when absent
	Start                 Attributes   `json:"start"`
	ServerControl         Attributes   `json:"server_control"`
	PreloadHint           Attributes   `json:"preload_hint"`
	ContentSteering       Attributes   `json:"content_steering"`
}

// NewDocument returns a Document with every collection initialized.
func NewDocument() *Document {
	var seq int64
	return &Document{
		MediaSequence:    &seq,
		Segments:         []*Segment{},
		Playlists:        []*Playlist{},
		IFramePlaylists:  []*Playlist{},
		ImagePlaylists:   []*Playlist{},
		Media:            []Attributes{},
		Keys:             []*Key{},
		SessionKeys:      []*Key{},
		SessionData:      []Attributes{},
		RenditionReports: []Attributes{},
		SegmentMap:       []Attributes{},
		Tiles:            []Attributes{},
		Skip:             Attributes{},
		PartInf:          Attributes{},
	}
}

// Segment represents a media segment, a bare URI line together with the
// tags that preceded it.
type Segment struct {
	URI                      string       `json:"uri"`
	Duration                 float64      `json:"duration"` // EXTINF first parameter, seconds
	Title                    string       `json:"title"`    // EXTINF optional second parameter
	ByteRange                *string      `json:"byterange,omitempty"`
	Bitrate                  *int64       `json:"bitrate,omitempty"`
	CueIn                    bool         `json:"cue_in"`
	CueOut                   bool         `json:"cue_out"`
	CueOutStart              bool         `json:"cue_out_start"`
	CueOutExplicitlyDuration bool         `json:"cue_out_explicitly_duration"`
	SCTE35                   *string      `json:"scte35"`
	OATCLSSCTE35             *string      `json:"oatcls_scte35"`
	SCTE35Duration           *string      `json:"scte35_duration"`
	SCTE35ElapsedTime        *string      `json:"scte35_elapsedtime"`
	AssetMetadata            Attributes   `json:"asset_metadata"` // EXT-X-ASSET, values verbatim
	Discontinuity            bool         `json:"discontinuity"`
	Key                      *Key         `json:"key,omitempty"` // shared with Document.Keys
	InitSection              Attributes   `json:"init_section,omitempty"`
	Dateranges               []Attributes `json:"dateranges"`
	Gap                      bool         `json:"gap_tag"`
	Blackout                 *Blackout    `json:"blackout"`
	Parts                    []*Part      `json:"parts,omitempty"`
	ProgramDateTime          *time.Time   `json:"program_date_time,omitempty"`
	CurrentProgramDateTime   *time.Time   `json:"current_program_date_time,omitempty"`
}

// Part represents an EXT-X-PART partial segment.
type Part struct {
	Attrs           Attributes   `json:"attributes"`
	ProgramDateTime *time.Time   `json:"program_date_time,omitempty"`
	Dateranges      []Attributes `json:"dateranges"`
	Gap             bool         `json:"gap_tag"`
}

// URI returns the URI attribute.
func (p *Part) URI() string {
	v, _ := p.Attrs.Get("uri")
	return v.String()
}

// Duration returns the DURATION attribute, or 0 if it is absent or not a number.
func (p *Part) Duration() float64 {
	v, _ := p.Attrs.Get("duration")
	f, _ := v.Float()
	return f
}

// Independent reports whether INDEPENDENT=YES.
func (p *Part) Independent() bool {
	v, _ := p.Attrs.Get("independent")
	return v.String() == "YES"
}

// ByteRange returns the BYTERANGE attribute, if any.
func (p *Part) ByteRange() (string, bool) {
	v, ok := p.Attrs.Get("byterange")
	return v.String(), ok
}

// Key structure represents information about stream encryption
// (EXT-X-KEY and EXT-X-SESSION-KEY tags). Values have their quotes removed.
type Key struct {
	Method            string     `json:"method,omitempty"`            // METHOD parameter
	URI               string     `json:"uri,omitempty"`               // URI parameter
	IV                string     `json:"iv,omitempty"`                // IV parameter
	Keyformat         string     `json:"keyformat,omitempty"`         // KEYFORMAT parameter
	Keyformatversions string     `json:"keyformatversions,omitempty"` // KEYFORMATVERSIONS parameter
	Other             Attributes `json:"other,omitempty"`             // any other attribute
}

// Equal reports whether two keys carry the same attributes.
// A nil key is only equal to another nil key.
func (k *Key) Equal(o *Key) bool {
	if k == nil || o == nil {
		return k == o
	}
	return k.Method == o.Method &&
		k.URI == o.URI &&
		k.IV == o.IV &&
		k.Keyformat == o.Keyformat &&
		k.Keyformatversions == o.Keyformatversions &&
		k.Other.Equal(o.Other)
}

// Playlist is a variant, I-frame or image playlist reference.
type Playlist struct {
	URI        string     `json:"uri"`
	StreamInfo Attributes `json:"stream_info"` // attributes without URI
}

// Blackout is an EXT-X-BLACKOUT marker. Data is the tag payload, empty if the
// tag had none.
type Blackout struct {
	Data string
}

// MarshalJSON encodes a bare marker as true and a payload as a string.
func (b Blackout) MarshalJSON() ([]byte, error) {
	if b.Data == "" {
		return []byte("true"), nil
	}
	return json.Marshal(b.Data)
}

// ParseState carries values set by one line over to the lines that follow.
// Each field is spent by the line that consumes it.
//
// A CustomTagParser receives the live state and may change any field; the
// parser reads ExpectSegment and ExpectPlaylist after the hook returns.
type ParseState struct {
	ExpectSegment  bool // next URI line is a media segment
	ExpectPlaylist bool // next URI line is a variant playlist

	Segment    *Segment   // segment being built
	StreamInfo Attributes // pending EXT-X-STREAM-INF attributes

	CurrentKey             *Key       // last EXT-X-KEY, as stored in Document.Keys
	ProgramDateTime        *time.Time // EXT-X-PROGRAM-DATE-TIME not yet attached to a segment
	CurrentProgramDateTime *time.Time // date-time of the next segment or part

	Discontinuity            bool
	CueIn                    bool
	CueOut                   bool
	CueOutStart              bool
	CueOutExplicitlyDuration bool
	Gap                      bool

	CueOutSCTE35       *string
	CueOutOATCLSSCTE35 *string
	CueOutDuration     *string
	CueOutElapsedTime  *string
	AssetMetadata      Attributes

	Dateranges []Attributes // pending EXT-X-DATERANGE tags
	Blackout   *Blackout
	SegmentMap Attributes // last EXT-X-MAP
}

// segment returns the segment being built, creating it if needed.
func (s *ParseState) segment() *Segment {
	if s.Segment == nil {
		s.Segment = &Segment{}
	}
	return s.Segment
}

// CustomTagParser is called for every tag or comment line before the
// default handling. Returning true skips the default handling of the line.
// A returned error aborts parsing.
type CustomTagParser func(line string, lineNumber int, doc *Document, state *ParseState) (bool, error)

// Validator checks the trimmed playlist lines before parsing in strict mode
// and returns the violations found.
type Validator func(lines []string) []VersionViolation

// Options configures ParseWith.
type Options struct {
	Strict     bool                            // turn recoverable anomalies into errors
	CustomTags CustomTagParser                 // optional hook for custom tags
	Validator  Validator                       // strict-mode pre-pass, ValidateVersion if nil
	TimeParse  func(string) (time.Time, error) // EXT-X-PROGRAM-DATE-TIME parser, FullTimeParse if nil
}

const (
	// DATETIME represents format for EXT-X-PROGRAM-DATE-TIME timestamps.
	// Format is [ISO/IEC 8601:2004] according to the [HLS spec].
	DATETIME = time.RFC3339Nano
)

/*
[hls-spec]: https://datatracker.ietf.org/doc/html/draft-pantos-hls-rfc8216bis-16
[ISO/IEC 8601:2004]:http://www.iso.org/iso/catalogue_detail?csnumber=40874
*/
