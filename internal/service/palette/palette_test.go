package palette

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPalette_FixedColours(t *testing.T) {
	p := New()
	assert.Equal(t, Person, p.Color("Person"))
	assert.Equal(t, p.Color("miso"), p.Color(" MISO "))
}

func TestPalette_StableAssignment(t *testing.T) {
	p := New()
	first := p.Color("biscuit")
	p.Color("pepper")
	assert.Equal(t, first, p.Color("biscuit"))
}

func TestPalette_DistinctWithinRound(t *testing.T) {
	p := New()
	seen := map[string]string{}
	for i := 0; i < len(p.hues); i++ {
		label := fmt.Sprintf("pet%d", i)
		key := fmt.Sprint(p.Color(label))
		if other, dup := seen[key]; dup {
			t.Fatalf("%s and %s share colour %s", label, other, key)
		}
		seen[key] = label
	}
}
