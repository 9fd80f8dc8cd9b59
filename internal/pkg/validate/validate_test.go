package validate

import (
	"testing"

	"github.com/go-mail-setup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() domain.StartSetupRequest {
	return domain.StartSetupRequest{
		Domain:         "Example.com",
		Provider:       "google",
		EmailLocalPart: "hello",
		GivenName:      "Ada",
		FamilyName:     "Lovelace",
		Password:       "s3cret-pass",
	}
}

func TestStruct_ValidRequest(t *testing.T) {
	assert.NoError(t, Struct(validRequest()))
}

func TestStruct_BadDomain(t *testing.T) {
	req := validRequest()
	req.Domain = "not a domain"
	err := Struct(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "'domainname'")
}

func TestStruct_UnknownProvider(t *testing.T) {
	req := validRequest()
	req.Provider = "yahoo"
	assert.ErrorContains(t, Struct(req), "'oneof'")
}

func TestLocalPart(t *testing.T) {
	assert.True(t, LocalPart("first.last"))
	assert.True(t, LocalPart("a"))
	assert.False(t, LocalPart(".leading"))
	assert.False(t, LocalPart("double..dot"))
	assert.False(t, LocalPart("has space"))
	assert.False(t, LocalPart(""))
}
