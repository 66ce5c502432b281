package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_Defaults(t *testing.T) {
	v, c, d := Info()
	assert.NotEmpty(t, v)
	assert.NotEmpty(t, c)
	assert.NotEmpty(t, d)
}

func TestGetters_MatchInfo(t *testing.T) {
	v, c, d := Info()
	assert.Equal(t, v, GetVersion())
	assert.Equal(t, c, GetCommit())
	assert.Equal(t, d, GetDate())
}

func TestString(t *testing.T) {
	s := String()
	assert.Contains(t, s, "version="+GetVersion())
	assert.Contains(t, s, "commit="+GetCommit())
	assert.Contains(t, s, "date="+GetDate())
}
