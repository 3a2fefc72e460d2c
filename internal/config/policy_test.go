package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5, p.MaxPerWindow)
	assert.Equal(t, 24*time.Hour, p.Window)
}

func TestStaticPolicyHolder(t *testing.T) {
	p := Policy{MaxPerWindow: 3, Window: time.Hour}
	holder := NewStaticPolicyHolder(p)
	assert.Equal(t, p, holder.Get())
}

func TestValidatePolicy(t *testing.T) {
	assert.NoError(t, validatePolicy(DefaultPolicy()))
	assert.Error(t, validatePolicy(Policy{MaxPerWindow: 0, Window: time.Hour}))
	assert.Error(t, validatePolicy(Policy{MaxPerWindow: 1, Window: 0}))
}
