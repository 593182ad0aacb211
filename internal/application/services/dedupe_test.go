package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupeBegin(t *testing.T) {
	d := NewDedupe(time.Minute)

	assert.True(t, d.Begin("CFIN/1.2"))
	assert.False(t, d.Begin("CFIN/1.2"))
	assert.True(t, d.Begin("CFIN/3.4"))
}

func TestDedupeExpiry(t *testing.T) {
	d := NewDedupe(time.Minute)
	now := time.Now()
	d.now = func() time.Time { return now }

	assert.True(t, d.Begin("k"))

	now = now.Add(61 * time.Second)
	assert.True(t, d.Begin("k"))
}
