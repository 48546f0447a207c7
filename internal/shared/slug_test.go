package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello, World!", "poem"))
	assert.Equal(t, "cafe-creme", Slugify("Café Crème", "poem"))
	assert.Equal(t, "poem-42", Slugify("Poem #42", "poem"))
}

func TestSlugifyFallsBackForNonLatinText(t *testing.T) {
	assert.Equal(t, "author", Slugify("Рӯдакӣ", "author"))
	assert.Equal(t, "poem", Slugify("   ", "poem"))
}

func TestURLSlug(t *testing.T) {
	assert.Equal(t, "7-hello-world", URLSlug(7, "hello-world"))
}
