package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationCodeService_Generate(t *testing.T) {
	codes := NewVerificationCodeService()

	plainCode, hashedCode, err := codes.Generate()

	require.NoError(t, err)
	assert.Len(t, plainCode, 6)
	assert.Regexp(t, `^\d{6}$`, plainCode)
	assert.NotEqual(t, plainCode, hashedCode)
	assert.NotEmpty(t, hashedCode)
}

func TestVerificationCodeService_Compare(t *testing.T) {
	codes := NewVerificationCodeService()

	plainCode, hashedCode, err := codes.Generate()
	require.NoError(t, err)

	assert.True(t, codes.Compare(plainCode, hashedCode))
	assert.True(t, codes.Compare(" "+plainCode+" ", hashedCode), "surrounding whitespace is ignored")

	wrongCode := "000000"
	if plainCode == wrongCode {
		wrongCode = "000001"
	}
	assert.False(t, codes.Compare(wrongCode, hashedCode))
	assert.False(t, codes.Compare(plainCode, "not-a-hash"))
}
