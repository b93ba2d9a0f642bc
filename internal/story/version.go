package story

import (
	"context"
	"regexp"
	"strings"

	"github.com/v2gpti/gpti/internal/ui"
)

// ReleaseKind is the one-character marker that prefixes release story names.
type ReleaseKind byte

const (
	Build   ReleaseKind = 'b'
	Version ReleaseKind = 'v'
)

// ParseReleaseKind accepts "b", "v", "build" or "version".
func ParseReleaseKind(s string) (ReleaseKind, bool) {
	switch strings.ToLower(s) {
	case "b", "build":
		return Build, true
	case "v", "version":
		return Version, true
	}
	return 0, false
}

// Marker returns the name prefix for the kind.
func (k ReleaseKind) Marker() string {
	return string(rune(k))
}

func (k ReleaseKind) String() string {
	if k == Build {
		return "build"
	}
	return "version"
}

// Token strips the kind's marker from a release story name.
func (k ReleaseKind) Token(name string) string {
	return strings.TrimPrefix(name, k.Marker())
}

// Name prefixes token with the kind's marker unless already present.
func (k ReleaseKind) Name(token string) string {
	if strings.HasPrefix(token, k.Marker()) {
		return token
	}
	return k.Marker() + token
}

// VersionStrategy picks the next version token after last (marker
// stripped). last is empty when no previous release exists.
type VersionStrategy interface {
	NextVersion(ctx context.Context, last string) (string, error)
}

// ManualVersion asks the user for the next version.
type ManualVersion struct {
	Prompter ui.Prompter
}

// NextVersion implements VersionStrategy.
func (m ManualVersion) NextVersion(ctx context.Context, _ string) (string, error) {
	return ui.AskRequired(ctx, m.Prompter, "To create a new version, enter a name for the new release story:")
}

// IncrementVersion bumps the final dot-separated segment of the last
// version, e.g. 1.2.9 becomes 1.2.10.
type IncrementVersion struct{}

// NextVersion implements VersionStrategy.
func (IncrementVersion) NextVersion(_ context.Context, last string) (string, error) {
	if last == "" {
		return "", errNoLastVersion
	}
	return IncrementLastSegment(last), nil
}

// IncrementLastSegment applies StringSuccessor to the text after the last dot.
func IncrementLastSegment(v string) string {
	i := strings.LastIndexByte(v, '.')
	return v[:i+1] + StringSuccessor(v[i+1:])
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// StringSuccessor returns the successor of s: the rightmost alphanumeric is
// incremented, carrying leftwards across alphanumerics ("a9" -> "b0",
// "1.9" -> "2.0", "zz" -> "aaa"). Without alphanumerics the last character
// is incremented.
func StringSuccessor(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)

	i := len(r) - 1
	for i >= 0 && !isAlnum(r[i]) {
		i--
	}
	if i < 0 {
		r[len(r)-1]++
		return string(r)
	}

	for {
		c := r[i]
		var carry rune
		switch c {
		case '9':
			r[i], carry = '0', '1'
		case 'z':
			r[i], carry = 'a', 'a'
		case 'Z':
			r[i], carry = 'A', 'A'
		default:
			r[i] = c + 1
			return string(r)
		}

		j := i - 1
		for j >= 0 && !isAlnum(r[j]) {
			j--
		}
		if j < 0 {
			out := make([]rune, 0, len(r)+1)
			out = append(out, r[:i]...)
			out = append(out, carry)
			out = append(out, r[i:]...)
			return string(out)
		}
		i = j
	}
}

var versionSegment = regexp.MustCompile(`[0-9]+|[A-Za-z]+`)

func isNumeric(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// CompareVersions orders version tokens segment by segment. Numeric
// segments compare by value, letters sort before numbers (1.0.rc1 < 1.0.0)
// and missing segments count as zero.
func CompareVersions(a, b string) int {
	as := versionSegment.FindAllString(a, -1)
	bs := versionSegment.FindAllString(b, -1)
	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		x, y := "0", "0"
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, yn := isNumeric(x), isNumeric(y)
		var c int
		switch {
		case xn && yn:
			c = compareNumeric(x, y)
		case xn:
			c = 1
		case yn:
			c = -1
		default:
			c = strings.Compare(x, y)
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
