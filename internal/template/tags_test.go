package template

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" #Thanks ", "thanks", "", "  ", "Team", "#"})
	assert.Equal(t, []string{"thanks", "team"}, got)
}

func TestNormalizeTagsCaps(t *testing.T) {
	var in []string
	for i := 0; i < 30; i++ {
		in = append(in, fmt.Sprintf("t%d", i))
	}
	got := NormalizeTags(in)
	assert.Len(t, got, maxTags)
	assert.Equal(t, "t19", got[maxTags-1])
}

func TestNormalizeTagsNil(t *testing.T) {
	assert.Equal(t, []string{}, NormalizeTags(nil))
}
