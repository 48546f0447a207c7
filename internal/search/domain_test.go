package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "rumi:*", buildQuery("rumi"))
	assert.Equal(t, "omar:* & khayyam:*", buildQuery("omar khayyam"))
	assert.Equal(t, "шеър:* & баҳор:*", buildQuery("шеър, баҳор!"))
	assert.Equal(t, "", buildQuery(""))
	assert.Equal(t, "", buildQuery("!!! ..."), "punctuation-only input has no tokens")
}
