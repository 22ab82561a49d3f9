package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhoneKeepsOnlyEdges(t *testing.T) {
	masked := maskPhone("+919876543210")

	assert.Equal(t, "+91******3210", masked)
	assert.False(t, strings.Contains(masked, "987654"))
}

func TestMaskPhoneRejectsShortInput(t *testing.T) {
	assert.Equal(t, "", maskPhone(""))
	assert.Equal(t, "", maskPhone("1234567"))
}
