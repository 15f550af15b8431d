package wschat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOriginAllowedForUpgrade_EmptyOriginAllowed(t *testing.T) {
	assert.True(t, isOriginAllowedForUpgrade([]string{"https://app.originpoint.test"}, ""))
}

func TestIsOriginAllowedForUpgrade_Wildcard(t *testing.T) {
	assert.True(t, isOriginAllowedForUpgrade([]string{"*"}, "https://anything.example.com"))
}

func TestIsOriginAllowedForUpgrade_RejectsUnlisted(t *testing.T) {
	assert.False(t, isOriginAllowedForUpgrade([]string{"https://app.originpoint.test"}, "https://evil.example.com"))
}
