package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenRecord_Expired(t *testing.T) {
	past := time.Now().Add(-time.Second)
	future := time.Now().Add(time.Hour)

	assert.False(t, (&TokenRecord{ExpiresAt: nil}).Expired(), "nil expiry means never")
	assert.False(t, (&TokenRecord{ExpiresAt: &future}).Expired())
	assert.True(t, (&TokenRecord{ExpiresAt: &past}).Expired())
}

func TestTokenRecord_Can(t *testing.T) {
	wildcard := &TokenRecord{Abilities: []string{"*"}}
	scoped := &TokenRecord{Abilities: []string{"read", "write"}}
	none := &TokenRecord{}

	assert.True(t, wildcard.Can("anything"))
	assert.True(t, scoped.Can("read"))
	assert.False(t, scoped.Can("delete"))
	assert.False(t, none.Can("read"))
}

func TestTokenRecord_Kind(t *testing.T) {
	a := &TokenRecord{Type: TokenTypeAuth}
	r := &TokenRecord{Type: TokenTypeRefresh}

	assert.True(t, a.IsAuth())
	assert.False(t, a.IsRefresh())
	assert.True(t, r.IsRefresh())
	assert.False(t, r.IsAuth())
}
