package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitEmails(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, splitEmails(" a@example.com,, b@example.com "))
	assert.Nil(t, splitEmails(""))
}

func TestDefaultCatalog(t *testing.T) {
	products := defaultCatalog()
	assert.NotEmpty(t, products)

	for _, p := range products {
		assert.NotEmpty(t, p.Name)
		assert.True(t, p.Price.IsPositive(), p.Name)
		assert.True(t, p.EffectivePrice().LessThanOrEqual(p.Price), p.Name)
	}
}
