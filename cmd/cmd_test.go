package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resort-booking/internal/auth"
	"github.com/example/resort-booking/internal/catalog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "resortd dev"))
}

func TestKeys(t *testing.T) {
	out, err := run(t, "keys")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		_, v, ok := strings.Cut(l, "=")
		require.True(t, ok)
		b, err := base64.StdEncoding.DecodeString(v)
		require.NoError(t, err)
		assert.Len(t, b, 32)
	}
}

func TestRooms(t *testing.T) {
	out, err := run(t, "rooms", "--add-ons")
	require.NoError(t, err)
	for _, r := range catalog.Default().List() {
		assert.Contains(t, out, r.ID)
	}
	assert.Contains(t, out, "In-room massage")
	assert.Contains(t, out, "₱16,000/night")
}

func TestBookingCommandsRefuseMemoryStore(t *testing.T) {
	t.Setenv("STORE", "memory")
	_, err := run(t, "booking", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE=postgres")
}

func TestRoleGrantRejectsUnknownRole(t *testing.T) {
	_, err := run(t, "role", "grant", "--username", "frontdesk", "--role", "owner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	s := auth.NewStore(auth.NewMemUsers(),
		[]byte(strings.Repeat("h", 32)),
		[]byte(strings.Repeat("b", 32)),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	require.NoError(t, seedAdmin(ctx, s, "manager", "first"))
	// a second start keeps the first password
	require.NoError(t, seedAdmin(ctx, s, "manager", "second"))

	id, err := s.Authenticate(ctx, "manager", "first")
	require.NoError(t, err)
	admin, err := s.IsAdmin(ctx, id)
	require.NoError(t, err)
	assert.True(t, admin)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"massage", "bonfire"}, splitCSV(" massage, ,bonfire,"))
	assert.Nil(t, splitCSV(""))
}
