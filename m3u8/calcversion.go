package m3u8

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	minVer       = uint8(1)
	minVerReason = "no tag or attribute requires a higher version"
)

// VersionViolation is a playlist line that needs a higher protocol version
// than the playlist declares, or that cannot be checked at all.
type VersionViolation struct {
	LineNumber  int    `json:"line_number"` // 1-based
	Line        string `json:"line"`
	HowToFix    string `json:"how_to_fix"`
	Description string `json:"description"`
}

func (v VersionViolation) String() string {
	return fmt.Sprintf("line %d: %s (%s) %s", v.LineNumber, v.Description, v.Line, v.HowToFix)
}

type requirement struct {
	version uint8
	reason  string
}

func updateMin(ver *uint8, reason *string, newVer uint8, newReason string) {
	if newVer <= *ver { // only update if higher version
		return
	}
	*ver = newVer
	*reason = newReason
}

// ValidateVersion checks every line against the EXT-X-VERSION declared by
// the playlist, following the [HLS Protocol Version Compatibility] rules.
// Playlists without a readable EXT-X-VERSION are not checked.
// It is the default Validator used by strict parsing.
func ValidateVersion(lines []string) []VersionViolation {
	version, ok := declaredVersion(lines)
	if !ok {
		return nil
	}
	iframesOnly := hasTag(lines, tagIFramesOnly)

	var violations []VersionViolation
	for i, line := range lines {
		if problem := malformedLine(line); problem != "" {
			violations = append(violations, VersionViolation{
				LineNumber:  i + 1,
				Line:        line,
				HowToFix:    "Use a decimal number of seconds.",
				Description: problem,
			})
			continue
		}
		for _, r := range lineRequirements(line, iframesOnly) {
			if version >= int64(r.version) {
				continue
			}
			violations = append(violations, VersionViolation{
				LineNumber:  i + 1,
				Line:        line,
				HowToFix:    fmt.Sprintf("Change the version to %d or higher.", r.version),
				Description: r.reason,
			})
		}
	}
	return violations
}

// CalcMinVersion returns the minimal version of the HLS protocol that is
// required to support the playlist lines according to the
// [HLS Protocol Version Compatibility].
// The reason is a human-readable string explaining why the version is required.
func CalcMinVersion(lines []string) (ver uint8, reason string) {
	ver = minVer
	reason = minVerReason
	iframesOnly := hasTag(lines, tagIFramesOnly)
	for _, line := range lines {
		for _, r := range lineRequirements(line, iframesOnly) {
			updateMin(&ver, &reason, r.version, r.reason)
		}
	}
	return ver, reason
}

// lineRequirements lists the versions needed by a single line.
func lineRequirements(line string, iframesOnly bool) []requirement {
	if !strings.HasPrefix(line, "#") {
		return nil
	}
	tag, value, _ := strings.Cut(line, ":")
	var reqs []requirement
	switch tag {
	case tagKey:
		attrs := DecodeAttributes(value, nil)
		// A Media Playlist MUST indicate an EXT-X-VERSION of 2 or higher if it contains:
		// * The IV attribute of the EXT-X-KEY tag.
		if attrs.Has("iv") {
			reqs = append(reqs, requirement{2, "IV attribute of the EXT-X-KEY tag"})
		}
		// ... of 5 or higher if it contains:
		// * An EXT-X-KEY tag with a METHOD of SAMPLE-AES.
		// * The KEYFORMAT and KEYFORMATVERSIONS attributes of the EXT-X-KEY tag.
		method, _ := attrs.Get("method")
		if DeQuote(method.String()) == "SAMPLE-AES" || attrs.Has("keyformat") || attrs.Has("keyformatversions") {
			reqs = append(reqs, requirement{5,
				"EXT-X-KEY tag with a METHOD of SAMPLE-AES, KEYFORMAT or KEYFORMATVERSIONS attributes"})
		}
	case tagInf:
		// ... of 3 or higher if it contains:
		// * Floating-point EXTINF duration values.
		duration, _, _ := strings.Cut(value, ",")
		duration = strings.TrimSpace(duration)
		if _, err := strconv.ParseInt(duration, 10, 64); err != nil {
			if _, err := strconv.ParseFloat(duration, 64); err == nil {
				reqs = append(reqs, requirement{3, "Floating-point EXTINF duration values"})
			}
		}
	case tagByteRange:
		// ... of 4 or higher if it contains:
		// * The EXT-X-BYTERANGE tag.
		// * The EXT-X-I-FRAMES-ONLY tag.
		reqs = append(reqs, requirement{4, "EXT-X-BYTERANGE tag"})
	case tagIFramesOnly:
		reqs = append(reqs, requirement{4, "EXT-X-I-FRAMES-ONLY tag"})
	case tagMap:
		// ... of 5 or higher if it contains:
		// * The EXT-X-MAP tag.
		// ... of 6 or higher if it contains:
		// * The EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY.
		reqs = append(reqs, requirement{5, "EXT-X-MAP tag"})
		if !iframesOnly {
			reqs = append(reqs, requirement{6,
				"EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY"})
		}
	case tagMedia:
		attrs := DecodeAttributes(value, mediaSchema)
		instream, ok := attrs.Get("instream_id")
		// A Multivariant Playlist MUST indicate an EXT-X-VERSION of 7 or higher
		// if it contains:
		// * "SERVICE" values for the INSTREAM-ID attribute of the EXT-X-MEDIA tag.
		if ok && strings.HasPrefix(instream.String(), "SERVICE") {
			reqs = append(reqs, requirement{7, "SERVICE value for the INSTREAM-ID attribute of the EXT-X-MEDIA"})
		}
		// ... of 13 or higher if it contains:
		// * An EXT-X-MEDIA tag with INSTREAM-ID attribute for non CLOSED-CAPTIONS TYPE.
		typ, _ := attrs.Get("type")
		if ok && typ.String() != "CLOSED-CAPTIONS" {
			reqs = append(reqs, requirement{13,
				"EXT-X-MEDIA tag with INSTREAM-ID attribute for non CLOSED-CAPTIONS TYPE"})
		}
	case tagDefine:
		// A Playlist MUST indicate an EXT-X-VERSION of 8 or higher if it contains:
		// * Variable substitution.
		// ... of 11 or higher if it contains:
		// * An EXT-X-DEFINE tag with a QUERYPARAM attribute.
		reqs = append(reqs, requirement{8, "Variable substitution"})
		if DecodeAttributes(value, nil).Has("queryparam") {
			reqs = append(reqs, requirement{11, "EXT-X-DEFINE tag with a QUERYPARAM attribute"})
		}
	case tagSkip:
		// ... of 9 or higher if it contains:
		// * The EXT-X-SKIP tag.
		// ... of 10 or higher if it contains:
		// * An EXT-X-SKIP tag that replaces EXT-X-DATERANGE tags in a Playlist Delta Update.
		reqs = append(reqs, requirement{9, "EXT-X-SKIP tag"})
		if DecodeAttributes(value, skipSchema).Has("recently_removed_dateranges") {
			reqs = append(reqs, requirement{10,
				"EXT-X-SKIP tag that replaces EXT-X-DATERANGE tags in a Playlist Delta Update"})
		}
	case tagStreamInf, tagIFrameStreamInf:
		// ... of 12 or higher if it contains:
		// * An attribute whose name starts with "REQ-".
		for _, attr := range TokenizeAttributes(value) {
			if strings.HasPrefix(attr.Name, "req_") {
				reqs = append(reqs, requirement{12, "REQ- attribute"})
				break
			}
		}
	}
	return reqs
}

// malformedLine describes a line whose version requirement cannot be
// determined, or returns "".
func malformedLine(line string) string {
	tag, value, _ := strings.Cut(line, ":")
	if tag != tagInf {
		return ""
	}
	duration, _, _ := strings.Cut(value, ",")
	if _, err := strconv.ParseFloat(strings.TrimSpace(duration), 64); err != nil {
		return "EXTINF duration is not a number"
	}
	return ""
}

func declaredVersion(lines []string) (int64, bool) {
	for _, line := range lines {
		tag, value, _ := strings.Cut(line, ":")
		if tag != tagVersion {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		return v, err == nil
	}
	return 0, false
}

func hasTag(lines []string, tag string) bool {
	for _, line := range lines {
		if t, _, _ := strings.Cut(line, ":"); t == tag {
			return true
		}
	}
	return false
}

// [HLS Protocol Version Compatibility]: https://tools.ietf.org/html/draft-pantos-hls-rfc8216bis-16#section-8
