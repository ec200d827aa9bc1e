package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamd/spamdclient-go/errors"
)

func TestHeaderListPreservesInsertionOrder(t *testing.T) {
	h := NewHeaderList()
	require.NoError(t, h.Add("User", "alice"))
	require.NoError(t, h.Add("X-First", "1"))
	require.NoError(t, h.Add("X-Second", "2"))

	all := h.All()
	require.Len(t, all, 3)
	assert.Equal(t, "User", all[0].Name)
	assert.Equal(t, "X-First", all[1].Name)
	assert.Equal(t, "X-Second", all[2].Name)
}

func TestHeaderListCaseInsensitiveLookup(t *testing.T) {
	h := NewHeaderList()
	require.NoError(t, h.Add("Content-length", "12"))

	for _, name := range []string{"Content-length", "CONTENT-LENGTH", "content-LENGTH"} {
		value, ok := h.Get(name)
		require.True(t, ok, "lookup %q", name)
		assert.Equal(t, "12", value)
	}

	// Caller casing is preserved on the stored header
	assert.Equal(t, "Content-length", h.All()[0].Name)
}

func TestHeaderListSetReplacesAllMatches(t *testing.T) {
	h := NewHeaderList()
	require.NoError(t, h.Add("X-Tag", "a"))
	require.NoError(t, h.Add("x-tag", "b"))
	require.NoError(t, h.Set("X-TAG", "c"))

	assert.Equal(t, []string{"c"}, h.Values("x-tag"))
}

func TestHeaderListDuplicatesAllowed(t *testing.T) {
	h := NewHeaderList()
	require.NoError(t, h.Add("X-Tag", "a"))
	require.NoError(t, h.Add("X-Tag", "b"))

	assert.Equal(t, []string{"a", "b"}, h.Values("X-Tag"))
}

func TestHeaderNameValidation(t *testing.T) {
	h := NewHeaderList()
	for _, name := range []string{"", "Bad:Name", "Bad\rName", "Bad\nName"} {
		err := h.Add(name, "value")
		require.Error(t, err, "name %q", name)
		assert.Equal(t, errors.InvalidHeaderName, errors.TypeOf(err))
	}
	assert.Equal(t, 0, h.Len())
}

func TestHeaderValueValidation(t *testing.T) {
	h := NewHeaderList()
	for _, value := range []string{"evil\r\nX-Smuggle: 1", "cr\ronly", "lf\nonly"} {
		err := h.Add("X-Note", value)
		require.Error(t, err, "value %q", value)
		assert.Equal(t, errors.InvalidHeaderValue, errors.TypeOf(err))
	}

	// Colons in values are fine, only names reject them
	require.NoError(t, h.Add("X-Note", "a:b:c"))
}

func TestContentLengthParsing(t *testing.T) {
	h := NewHeaderList()
	_, present, err := h.ContentLength()
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, h.Add("Content-length", " 42 "))
	n, present, err := h.ContentLength()
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, 42, n)

	bad := NewHeaderList()
	require.NoError(t, bad.Add("Content-length", "twelve"))
	_, _, err = bad.ContentLength()
	require.Error(t, err)
	assert.Equal(t, errors.MalformedHeader, errors.TypeOf(err))
}

func TestParseSpamStatus(t *testing.T) {
	tests := []struct {
		value string
		want  SpamStatus
	}{
		{"True ; 7.5 / 5.0", SpamStatus{IsSpam: true, Score: 7.5, Threshold: 5.0}},
		{"False ; 0.0 / 5.0", SpamStatus{IsSpam: false, Score: 0, Threshold: 5.0}},
		{"Yes ; 10 / 5", SpamStatus{IsSpam: true, Score: 10, Threshold: 5}},
		{"true;2.1/5.0", SpamStatus{IsSpam: true, Score: 2.1, Threshold: 5.0}},
	}
	for _, tt := range tests {
		got, err := ParseSpamStatus(tt.value)
		require.NoError(t, err, "value %q", tt.value)
		assert.Equal(t, tt.want, got, "value %q", tt.value)
	}

	for _, value := range []string{"True", "Maybe ; 1 / 5", "True ; x / 5", "True ; 1"} {
		_, err := ParseSpamStatus(value)
		require.Error(t, err, "value %q", value)
		assert.Equal(t, errors.MalformedHeader, errors.TypeOf(err))
	}
}

func TestActionTargets(t *testing.T) {
	targets, err := ParseActionTargets("local, remote")
	require.NoError(t, err)
	assert.Equal(t, ActionTargets{Local: true, Remote: true}, targets)
	assert.Equal(t, "local, remote", targets.String())

	targets, err = ParseActionTargets("remote")
	require.NoError(t, err)
	assert.Equal(t, ActionTargets{Remote: true}, targets)

	_, err = ParseActionTargets("everywhere")
	require.Error(t, err)
	assert.Equal(t, errors.MalformedHeader, errors.TypeOf(err))

	assert.Equal(t, "", ActionTargets{}.String())
}

func TestParseMessageClass(t *testing.T) {
	class, err := ParseMessageClass(" Spam ")
	require.NoError(t, err)
	assert.Equal(t, ClassSpam, class)

	class, err = ParseMessageClass("ham")
	require.NoError(t, err)
	assert.Equal(t, ClassHam, class)

	_, err = ParseMessageClass("unsure")
	require.Error(t, err)
}
