package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatePrefix(t *testing.T) {
	assert.Equal(t, "2023-04-01", DatePrefix("2023-04-01T00:00:00Z"))
	assert.Equal(t, "2023-04-01", DatePrefix("2023-04-01"))
	assert.Equal(t, "2023", DatePrefix("2023"))
	assert.Equal(t, "", DatePrefix(""))
}

func TestTruncateHash(t *testing.T) {
	assert.Equal(t, "deadbee...", TruncateHash("deadbeef1234"))
	assert.Equal(t, "abc...", TruncateHash("abc"))
	assert.Equal(t, "ééééééé...", TruncateHash("éééééééééé"))
}
