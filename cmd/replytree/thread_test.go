package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commenthttp "github.com/MyNameIsWhaaat/replytree/internal/comment/handler/http"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/service"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage/inmemory"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return ansi.ReplaceAllString(out.String(), ""), err
}

func TestThreadCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	svc := service.New(inmemory.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(commenthttp.New(svc, zerolog.Nop()).Routes())
	defer srv.Close()

	root, err := svc.CreateRoot(context.Background(), "p1", model.Author{ID: "u1", Name: "Ann"}, "hello there")
	require.NoError(t, err)

	out, err := runCLI(t, "thread", "--base-url", srv.URL, "--post", "p1",
		"--as", "u2", "--name", "Bob", "--reply-to", root.ID, "--content", "hi Ann")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2 comments", lines[0])
	assert.Contains(t, lines[1], "Ann hello there")
	assert.Contains(t, lines[2], "Bob (you) hi Ann")

	out, err = runCLI(t, "thread", "--base-url", srv.URL, "--post", "p1", "--as", "u2", "--like", root.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "♥ 1")

	th, err := svc.Thread(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, th.HasLiked(root.ID, "u2"))
}

func TestThreadCommandRequiresPost(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := runCLI(t, "thread")
	assert.Error(t, err)
}
