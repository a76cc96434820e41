package dirent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dargueta/v9kfs/dirent"
)

func TestMatchWildcard_BareStarMatchesEverything(t *testing.T) {
	assert.True(t, dirent.MatchWildcard("*", "FOO.TXT"))
	assert.True(t, dirent.MatchWildcard("*", "FOO"))
	assert.True(t, dirent.MatchWildcard("*", ""))
}

func TestMatchWildcard_StarDotStarRequiresDot(t *testing.T) {
	assert.True(t, dirent.MatchWildcard("*.*", "FOO.TXT"))
	assert.False(t, dirent.MatchWildcard("*.*", "FOO"))
}

func TestMatchWildcard_QuestionMarkMatchesSingleChar(t *testing.T) {
	assert.True(t, dirent.MatchWildcard("F?O.TXT", "FOO.TXT"))
	assert.False(t, dirent.MatchWildcard("F?O.TXT", "FOOO.TXT"))
}

func TestMatchWildcard_StemAndExtensionMatchedSeparately(t *testing.T) {
	assert.True(t, dirent.MatchWildcard("*.TXT", "ANYTHING.TXT"))
	assert.False(t, dirent.MatchWildcard("*.TXT", "ANYTHING.DOC"))
	assert.True(t, dirent.MatchWildcard("FOO.*", "FOO.ANYTHING"))
}

func TestMatchWildcard_IsCaseInsensitive(t *testing.T) {
	assert.True(t, dirent.MatchWildcard("foo.txt", "FOO.TXT"))
}

func TestMatchWildcard_NoDotInPatternMatchesWholeNameLiterally(t *testing.T) {
	// A pattern with no dot is matched against the whole reconstructed name,
	// so it won't match a name that has an extension unless the pattern
	// itself embeds the wildcard to cover it.
	assert.False(t, dirent.MatchWildcard("FOO", "FOO.TXT"))
	assert.True(t, dirent.MatchWildcard("FOO*", "FOO.TXT"))
}
