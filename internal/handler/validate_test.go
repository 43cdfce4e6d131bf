package handler

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidators(t *testing.T) {
	RegisterValidators()
	RegisterValidators()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	assert.NoError(t, v.Var("2026-10-10", civilDateTag))
	assert.NoError(t, v.Var(" 2026-10-10", civilDateTag))
	assert.Error(t, v.Var("10/10/2026", civilDateTag))
	assert.Error(t, v.Var("2026-02-30", civilDateTag))
}
