package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"criminal-registry/domain/services"
)

func TestCreateRecordRequestToInput(t *testing.T) {
	input, err := CreateRecordRequestToInput(&CreateRecordRequest{
		Name:      " Alice ",
		CrimeType: "theft",
		Address:   "   ",
		Age:       " 34 ",
	})
	require.NoError(t, err)

	require.NotNil(t, input.Name)
	assert.Equal(t, " Alice ", *input.Name)
	assert.Equal(t, "theft", *input.CrimeType)
	assert.Nil(t, input.Address)
	assert.Nil(t, input.Description)
	assert.Nil(t, input.DeclaredGender)
	require.NotNil(t, input.DeclaredAge)
	assert.Equal(t, 34, *input.DeclaredAge)
}

func TestCreateRecordRequestToInputBadAge(t *testing.T) {
	_, err := CreateRecordRequestToInput(&CreateRecordRequest{Age: "thirty"})
	assert.True(t, services.IsValidationError(err))
}
