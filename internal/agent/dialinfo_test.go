package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDialInfoFromMetadata(t *testing.T) {
	info, err := ResolveDialInfo(
		`{"firstName":"Jayden","lastName":"Ma","phoneNumber":"+15105550123","transferTo":"+15105550999"}`,
		"", "")
	require.NoError(t, err)
	assert.Equal(t, "Jayden", info.FirstName)
	assert.Equal(t, "Ma", info.LastName)
	assert.Equal(t, "+15105550123", info.PhoneNumber)
	assert.Equal(t, "+15105550999", info.TransferTo)
}

func TestResolveDialInfoSnakeCase(t *testing.T) {
	info, err := ResolveDialInfo(
		`{"first_name":"Jayden","phone_number":"+15105550123","transfer_to":"+15105550999"}`,
		"", "")
	require.NoError(t, err)
	assert.Equal(t, "Jayden", info.FirstName)
	assert.Equal(t, "+15105550123", info.PhoneNumber)
	assert.Equal(t, "+15105550999", info.TransferTo)
}

func TestResolveDialInfoFallbackMetadata(t *testing.T) {
	// Missing fields fill in from the process-wide fallback, field by
	// field; present fields keep their job-metadata value.
	info, err := ResolveDialInfo(
		`{"phoneNumber":"+15105550123"}`,
		`{"firstName":"Fallback","lastName":"Person","phoneNumber":"+10000000000","transferTo":"+15105550999"}`,
		"")
	require.NoError(t, err)
	assert.Equal(t, "Fallback", info.FirstName)
	assert.Equal(t, "Person", info.LastName)
	assert.Equal(t, "+15105550123", info.PhoneNumber, "job metadata wins over fallback")
	assert.Equal(t, "+15105550999", info.TransferTo)
}

func TestResolveDialInfoFallbackPhoneNumber(t *testing.T) {
	info, err := ResolveDialInfo("", "", "+15105550777")
	require.NoError(t, err)
	assert.Equal(t, "+15105550777", info.PhoneNumber)
	assert.Equal(t, DefaultFirstName, info.FirstName)
}

func TestResolveDialInfoMissingPhoneNumber(t *testing.T) {
	_, err := ResolveDialInfo(`{"firstName":"Jayden"}`, "", "")
	assert.ErrorIs(t, err, ErrMissingPhoneNumber)
}

func TestResolveDialInfoMalformedMetadata(t *testing.T) {
	// Malformed metadata is recovered locally; the fallback chain still
	// applies.
	info, err := ResolveDialInfo(`{not json`, "", "+15105550777")
	require.NoError(t, err)
	assert.Equal(t, "+15105550777", info.PhoneNumber)
	assert.Equal(t, DefaultFirstName, info.FirstName)

	_, err = ResolveDialInfo(`{not json`, "", "")
	assert.ErrorIs(t, err, ErrMissingPhoneNumber)
}

func TestResolveDialInfoDefaultFirstName(t *testing.T) {
	info, err := ResolveDialInfo(`{"phoneNumber":"+15105550123"}`, "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultFirstName, info.FirstName)
	assert.Empty(t, info.TransferTo)
}

func TestResolveDialInfoWhitespaceOnlyFields(t *testing.T) {
	_, err := ResolveDialInfo(`{"phoneNumber":"   "}`, "", "")
	assert.ErrorIs(t, err, ErrMissingPhoneNumber)
}
