package m3u8

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func readTestLines(t *testing.T, fileName string) []string {
	t.Helper()
	is := is.New(t)
	data, err := os.ReadFile(fileName)
	is.NoErr(err) // must read file
	return Lines(string(data))
}

func TestCalcMinVersionSamplePlaylists(t *testing.T) {
	cases := []struct {
		file            string
		expectedVersion uint8
		expectedReason  string
	}{
		{"master.m3u8", minVer, minVerReason},
		{"media-playlist.m3u8", 3, "Floating-point EXTINF duration values"},
		{"media-playlist-with-byterange.m3u8", 4, "EXT-X-BYTERANGE tag"},
		{"media-playlist-with-iframes-only.m3u8", 4, "EXT-X-I-FRAMES-ONLY tag"},
		{"media-playlist-with-iframes-only-and-map.m3u8", 5, "EXT-X-MAP tag"},
		{"media-playlist-with-key.m3u8", 5,
			"EXT-X-KEY tag with a METHOD of SAMPLE-AES, KEYFORMAT or KEYFORMATVERSIONS attributes"},
		{"media-playlist-fmp4.m3u8", 6,
			"EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY"},
		{"media-playlist-low-latency.m3u8", 6,
			"EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY"},
		{"media-playlist-with-defines.m3u8", 8, "Variable substitution"},
		{"media-playlist-with-queryparam.m3u8", 11, "EXT-X-DEFINE tag with a QUERYPARAM attribute"},
		{"master-with-req-video-layout.m3u8", 12, "REQ- attribute"},
	}

	for _, c := range cases {
		t.Run(c.file, func(t *testing.T) {
			is := is.New(t)
			ver, reason := CalcMinVersion(readTestLines(t, "sample-playlists/"+c.file))
			is.Equal(ver, c.expectedVersion)
			is.Equal(reason, c.expectedReason)
		})
	}
}

func TestCalcMinVersionLines(t *testing.T) {
	cases := []struct {
		lines           []string
		expectedVersion uint8
		expectedReason  string
	}{
		{nil, minVer, minVerReason},
		{[]string{"#EXTINF:10,", "a.ts"}, minVer, minVerReason},
		{[]string{`#EXT-X-KEY:METHOD=AES-128,URI="k",IV=0x01`}, 2, "IV attribute of the EXT-X-KEY tag"},
		{[]string{`#EXT-X-MEDIA:TYPE=CLOSED-CAPTIONS,GROUP-ID="cc",NAME="CC",INSTREAM-ID="SERVICE1"`}, 7,
			"SERVICE value for the INSTREAM-ID attribute of the EXT-X-MEDIA"},
		{[]string{`#EXT-X-MEDIA:TYPE=CLOSED-CAPTIONS,GROUP-ID="cc",NAME="CC",INSTREAM-ID="CC1"`}, minVer, minVerReason},
		{[]string{`#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="s",NAME="S",INSTREAM-ID="CC1"`}, 13,
			"EXT-X-MEDIA tag with INSTREAM-ID attribute for non CLOSED-CAPTIONS TYPE"},
		{[]string{"#EXT-X-SKIP:SKIPPED-SEGMENTS=3"}, 9, "EXT-X-SKIP tag"},
		{[]string{`#EXT-X-SKIP:SKIPPED-SEGMENTS=3,RECENTLY-REMOVED-DATERANGES="a"`}, 10,
			"EXT-X-SKIP tag that replaces EXT-X-DATERANGE tags in a Playlist Delta Update"},
		{[]string{`#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=1,REQ-VIDEO-LAYOUT="CH-STEREO",URI="i.m3u8"`}, 12, "REQ- attribute"},
		{[]string{`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="a",NAME="A",REQ-X=1`}, minVer, minVerReason},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			is := is.New(t)
			ver, reason := CalcMinVersion(c.lines)
			is.Equal(ver, c.expectedVersion)
			is.Equal(reason, c.expectedReason)
		})
	}
}

func TestValidateVersion(t *testing.T) {
	is := is.New(t)

	is.Equal(len(ValidateVersion(nil)), 0)                                          // nothing to check
	is.Equal(len(ValidateVersion([]string{"#EXTM3U", "#EXTINF:9.5,"})), 0)          // no version declared
	is.Equal(len(ValidateVersion([]string{"#EXT-X-VERSION:x", "#EXTINF:9.5,"})), 0) // unreadable version

	violations := ValidateVersion([]string{"#EXTM3U", "#EXT-X-VERSION:2", "#EXTINF:9.5,", "a.ts"})
	is.Equal(violations, []VersionViolation{{
		LineNumber:  3,
		Line:        "#EXTINF:9.5,",
		HowToFix:    "Change the version to 3 or higher.",
		Description: "Floating-point EXTINF duration values",
	}})
}

func TestValidateVersionMultipleRequirements(t *testing.T) {
	is := is.New(t)
	violations := ValidateVersion([]string{"#EXTM3U", "#EXT-X-VERSION:3", `#EXT-X-MAP:URI="init.mp4"`})
	is.Equal(len(violations), 2) // both MAP rules apply to the same line
	is.Equal(violations[0].LineNumber, 3)
	is.Equal(violations[0].HowToFix, "Change the version to 5 or higher.")
	is.Equal(violations[1].LineNumber, 3)
	is.Equal(violations[1].HowToFix, "Change the version to 6 or higher.")
}

func TestValidateVersionMalformedExtInf(t *testing.T) {
	is := is.New(t)
	violations := ValidateVersion([]string{"#EXT-X-VERSION:7", "#EXTINF:abc,", "a.ts"})
	is.Equal(len(violations), 1)
	is.Equal(violations[0].LineNumber, 2)
	is.Equal(violations[0].Description, "EXTINF duration is not a number")
	is.True(strings.Contains(violations[0].String(), "line 2"))
}

func TestAllSamplePlaylistVersions(t *testing.T) {
	is := is.New(t)
	files, err := os.ReadDir("sample-playlists")
	is.NoErr(err)

	for _, file := range files {
		fName := file.Name()
		if !strings.HasSuffix(fName, ".m3u8") {
			continue
		}
		t.Run(fName, func(t *testing.T) {
			is := is.New(t)
			lines := readTestLines(t, "sample-playlists/"+fName)
			declared, ok := declaredVersion(lines)
			is.True(ok) // every sample declares its version
			minVersion, reason := CalcMinVersion(lines)
			is.True(int64(minVersion) <= declared) // declared version must cover the content
			is.Equal(len(ValidateVersion(lines)), 0)
			t.Logf("%s: version %d, needs %d (%s)", fName, declared, minVersion, reason)
		})
	}
}
