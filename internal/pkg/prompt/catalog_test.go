package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "technology", Normalize("technology"))
	assert.Equal(t, "technology", Normalize(" Technology "))
	assert.Equal(t, "general", Normalize(""))
	assert.Equal(t, "general", Normalize("astrology"))
}

func TestCategories(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, 10)
	assert.Equal(t, "general", cats[len(cats)-1].Value)

	// 返回副本，外部修改不影响目录
	cats[0].Value = "changed"
	assert.Equal(t, "technology", Categories()[0].Value)
}

func TestBuild(t *testing.T) {
	p := Build("technology", "AI trends", "")
	assert.Contains(t, p, "technology journalist")
	assert.Contains(t, p, `"AI trends"`)
	assert.NotContains(t, p, "Additional instructions")

	p = Build("unknown", "Gardening", "  Mention tomatoes. ")
	assert.Contains(t, p, "professional content writer")
	assert.Contains(t, p, "Additional instructions: Mention tomatoes.")
}
