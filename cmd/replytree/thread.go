package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/client"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/render"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/thread"
	"github.com/MyNameIsWhaaat/replytree/internal/config"
)

type threadOptions struct {
	baseURL   string
	postID    string
	replyTo   string
	content   string
	like      string
	userID    string
	userName  string
	maxIndent int
}

func newThreadCmd() *cobra.Command {
	var opts threadOptions

	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Show a post's comments, optionally posting, replying or liking first",
		Example: `  replytree thread --post p1
  replytree thread --post p1 --as u1 --content "first!"
  replytree thread --post p1 --as u2 --reply-to 3f2a --content "agreed"
  replytree thread --post p1 --as u2 --like 3f2a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return runThread(cmd, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.baseURL, "base-url", "", "API base url (default from client.base_url)")
	f.StringVar(&opts.postID, "post", "", "post id")
	f.StringVar(&opts.replyTo, "reply-to", "", "comment id to reply to")
	f.StringVar(&opts.content, "content", "", "text of a new comment or reply")
	f.StringVar(&opts.like, "like", "", "comment id to like, or unlike when already liked")
	f.StringVar(&opts.userID, "as", "", "acting user id")
	f.StringVar(&opts.userName, "name", "", "acting user display name")
	f.IntVar(&opts.maxIndent, "max-indent", 8, "deepest level drawn with its own indent")
	_ = cmd.MarkFlagRequired("post")

	return cmd
}

func runThread(cmd *cobra.Command, cfg config.Config, opts threadOptions) error {
	ctx := cmd.Context()

	baseURL := opts.baseURL
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}
	user := model.Author{ID: opts.userID, Name: opts.userName}

	api, err := client.New(baseURL, cfg.Client.Timeout, user)
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: !isTerminal(cmd)}).
		With().Timestamp().Logger()
	s := thread.New(api, opts.postID, user, thread.LogNotifier{Log: log}, log)

	if err := s.Load(ctx); err != nil {
		return err
	}

	switch {
	case opts.like != "":
		err = s.ToggleLike(ctx, opts.like)
	case opts.content != "" && opts.replyTo != "":
		_, err = s.Reply(ctx, opts.replyTo, opts.content)
	case opts.content != "":
		_, err = s.Post(ctx, opts.content)
	}
	if err != nil {
		return err
	}

	return render.Thread(cmd.OutOrStdout(), s.Tree(), render.Options{
		MaxIndent: opts.maxIndent,
		Viewer:    user.ID,
	})
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
