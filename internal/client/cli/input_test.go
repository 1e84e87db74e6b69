package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.Error(t, err)
}

func TestGetRequiredText_RejectsEmpty(t *testing.T) {
	var out bytes.Buffer
	_, err := GetRequiredText(rdr("\n"), "Title:", &out)
	require.EqualError(t, err, "Title: value is required")
}

func stubTerminal(t *testing.T, tty bool, pw []byte, err error) {
	t.Helper()
	oldTTY, oldRead := isTerminal, readPassword
	t.Cleanup(func() { isTerminal, readPassword = oldTTY, oldRead })
	isTerminal = func(int) bool { return tty }
	readPassword = func(int) ([]byte, error) { return pw, err }
}

func TestGetPassword_Terminal(t *testing.T) {
	stubTerminal(t, true, []byte("s3cret"), nil)
	var out bytes.Buffer
	got, err := GetPassword(rdr("ignored\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Equal(t, "Enter password: \n", out.String())
}

func TestGetPassword_Error(t *testing.T) {
	stubTerminal(t, true, nil, errors.New("boom"))
	var out bytes.Buffer
	_, err := GetPassword(rdr(""), &out)
	require.Error(t, err)
}

func TestGetPassword_PipedInput(t *testing.T) {
	stubTerminal(t, false, nil, errors.New("must not be called"))
	var out bytes.Buffer
	got, err := GetPassword(rdr("piped\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "piped", got)
}

func TestLineReader_SharesStreamWithPrompts(t *testing.T) {
	in := rdr("create\nMy title\nhelp\n")
	sc := bufio.NewScanner(newLineReader(in))

	require.True(t, sc.Scan())
	assert.Equal(t, "create", sc.Text())

	var out bytes.Buffer
	title, err := GetSimpleText(in, "Title:", &out)
	require.NoError(t, err)
	assert.Equal(t, "My title", title)

	require.True(t, sc.Scan())
	assert.Equal(t, "help", sc.Text())
	assert.False(t, sc.Scan())
}
