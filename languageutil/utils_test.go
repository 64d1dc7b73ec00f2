package languageutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotLabel(t *testing.T) {
	assert.Equal(t, "Top", SlotLabel("top"))
	assert.Equal(t, "Item 1", SlotLabel("item1"))
	assert.Equal(t, "Footwear", SlotLabel("footwear"))
	assert.Equal(t, "Outer Layer", SlotLabel("outer_layer"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Denim Jacket", Title(" denim jacket "))
	assert.Equal(t, "", Title(""))
}
