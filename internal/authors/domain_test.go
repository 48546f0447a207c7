package authors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicOrderExpr(t *testing.T) {
	assert.Equal(t, "a.full_name ASC", publicOrderExpr(""))
	assert.Equal(t, "a.full_name ASC", publicOrderExpr("views"), "unknown values fall back")
	assert.Equal(t, "a.full_name DESC", publicOrderExpr("-full_name"))
	assert.Equal(t, "popularity DESC", publicOrderExpr("-popularity"))
	assert.Equal(t, "poems_count ASC", publicOrderExpr("poems_count"))
}

func TestSlugPair(t *testing.T) {
	slug, urlSlug := slugPair(12, "Omar Khayyam")
	assert.Equal(t, "omar-khayyam", slug)
	assert.Equal(t, "12-omar-khayyam", urlSlug)

	slug, urlSlug = slugPair(3, "Абӯабдуллоҳи Рӯдакӣ")
	assert.Equal(t, "author", slug, "non-latin names fall back")
	assert.Equal(t, "3-author", urlSlug)
}
