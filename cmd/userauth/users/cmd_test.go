package users

import (
	"bytes"
	"testing"

	"github.com/andrebq/userauth/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestAddAndList(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "userauth-users")
	defer cleanup()

	var out bytes.Buffer
	run := func(args ...string) error {
		app := &cli.App{
			Name:     "userauth",
			Writer:   &out,
			Commands: []*cli.Command{Cmd()},
		}
		return app.Run(append([]string{"userauth", "users", "--data-dir", dir}, args...))
	}
	require.NoError(t, run("add", "--login", "bob", "--name", "Bob"))
	require.NoError(t, run("add", "--login", "ana"))
	require.Error(t, run("add", "--login", "bob"))

	out.Reset()
	require.NoError(t, run("list"))
	require.Contains(t, out.String(), "LOGIN")
	require.Contains(t, out.String(), "Bob")
	require.Contains(t, out.String(), "ana")
	require.Contains(t, out.String(), "never")
}
