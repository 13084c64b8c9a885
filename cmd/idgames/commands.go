package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/idgames"
	"github.com/pders01/idgames/internal/media"
	"github.com/pders01/idgames/internal/tui"
)

// runWithEnv sets up the client stack around fn and tears it down after.
func runWithEnv(opts *globalOptions, fn func(e *env) error) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	runErr := fn(e)
	if closeErr := e.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return runErr
}

// responseError turns an error-tagged response into a Go error.
func responseError(resp *idgames.Response) error {
	switch {
	case resp.Cancelled():
		return errors.New("request cancelled")
	case resp.HasError():
		return fmt.Errorf("%s: %s", resp.ErrorType, resp.ErrorMessage)
	}
	if resp.WarningMessage != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", resp.WarningMessage)
	}
	return nil
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "ls [dir]",
		Aliases: []string{"list"},
		Short:   "List a directory of the archive",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runWithEnv(opts, func(e *env) error {
				resp := e.client.Do(cmd.Context(), e.client.ContentsRequest(dir))
				if err := responseError(resp); err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				printEntries(cmd.OutOrStdout(), resp.Entries)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func newLatestCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:       "latest files|votes",
		Short:     "Show the newest uploads or votes",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"files", "votes"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithEnv(opts, func(e *env) error {
				var req *idgames.Request
				if args[0] == "votes" {
					req = e.client.LatestVotesRequest()
				} else {
					req = e.client.LatestFilesRequest()
				}
				if limit > 0 {
					req.Limit = limit
				}

				resp := e.client.Do(cmd.Context(), req)
				if err := responseError(resp); err != nil {
					return err
				}

				if votes := resp.Votes(); len(votes) > 0 {
					// Responses may come from the cache and are shared, so
					// titles are filled in on copies.
					fixed := make([]*idgames.VoteEntry, len(votes))
					entries := make([]idgames.Entry, len(votes))
					for i, v := range votes {
						vc := *v
						fixed[i] = &vc
						entries[i] = &vc
					}
					e.client.FixVoteTitles(cmd.Context(), fixed, e.titles())
					resp = &idgames.Response{Version: resp.Version, Entries: entries}
				}

				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				printEntries(cmd.OutOrStdout(), resp.Entries)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of entries (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func parseFileID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid file id %q", arg)
	}
	return id, nil
}

// fetchFile loads the full record of one file.
func fetchFile(cmd *cobra.Command, e *env, id int) (*idgames.FileEntry, *idgames.Response, error) {
	resp := e.client.Do(cmd.Context(), e.client.FileRequest(id))
	if err := responseError(resp); err != nil {
		return nil, nil, err
	}
	files := resp.Files()
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("file %d not found", id)
	}
	return files[0], resp, nil
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show the details of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			return runWithEnv(opts, func(e *env) error {
				f, resp, err := fetchFile(cmd, e, id)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				printFile(cmd.OutOrStdout(), f, e.cfg.API.MirrorURL)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var (
		category string
		offline  bool
		limit    int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the archive",
		Long: `Search the archive through the API, or with --offline the local index
of every file seen so far.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			return runWithEnv(opts, func(e *env) error {
				if offline {
					if e.searcher == nil {
						return errors.New("offline search needs a file index (database.path)")
					}
					results, err := e.searcher.Search(query, limit)
					if err != nil {
						return err
					}
					printSearchResults(cmd.OutOrStdout(), results)
					return nil
				}

				name := category
				if name == "" {
					name = e.cfg.Search.DefaultCategory
				}
				cat, err := idgames.ParseCategory(name)
				if err != nil {
					return err
				}
				resp := e.client.Do(cmd.Context(), e.client.SearchRequest(query, cat))
				if err := responseError(resp); err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				printEntries(cmd.OutOrStdout(), resp.Entries)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "type", "t", "", "Search field: filename, title, author, email, description, credits, editors, textfile")
	cmd.Flags().BoolVar(&offline, "offline", false, "Search the local index instead of the API")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum offline results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func newOpenCmd(opts *globalOptions) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "open <id>",
		Short: "Open the download of a file from the mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			return runWithEnv(opts, func(e *env) error {
				f, _, err := fetchFile(cmd, e, id)
				if err != nil {
					return err
				}
				launcher := media.NewLauncher(e.cfg)
				if printOnly {
					u, err := launcher.DownloadURL(f)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), u)
					return nil
				}
				u, err := launcher.OpenFile(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", u)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the download URL instead of opening it")
	return cmd
}

func newCacheCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache",
	}

	withCache := func(fn func(cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return runWithEnv(opts, func(e *env) error {
				if e.cache == nil {
					return errors.New("cache is disabled (cache.dir is empty)")
				}
				return fn(cmd, e)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache size and entry count",
			Args:  cobra.NoArgs,
			RunE: withCache(func(cmd *cobra.Command, e *env) error {
				printCacheStats(cmd.OutOrStdout(), e.cache.Stats())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cached response",
			Args:  cobra.NoArgs,
			RunE: withCache(func(cmd *cobra.Command, e *env) error {
				n, err := e.cache.Clear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached responses\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
				return nil
			},
		},
	)
	return cmd
}

func newTUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithEnv(opts, func(e *env) error {
				app := tui.NewApp(e.client, e.searcher, e.titles())
				defer app.Close()

				p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
				if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
					return fmt.Errorf("running TUI: %w", err)
				}
				return nil
			})
		},
	}
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or generate the configuration file",
	}

	var (
		path  string
		force bool
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := path
			if target == "" {
				target = config.DefaultPath()
			}
			if _, err := os.Stat(target); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", target)
			}
			if err := config.GenerateDefaultConfig(target); err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default config at: %s\n", target)
			return nil
		},
	}
	generate.Flags().StringVarP(&path, "path", "p", "", "Where to write the file (default ~/.config/idgames/config.toml)")
	generate.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(generate, show)
	return cmd
}

func newVersionCmd() *cobra.Command {
	var banner bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			if banner {
				fmt.Fprintln(out, tui.Banner(Version))
				return
			}
			fmt.Fprintf(out, "idgames %s\n", Version)
			fmt.Fprintln(out, "idgames archive client")
			fmt.Fprintln(out, "github.com/pders01/idgames")
		},
	}
	cmd.Flags().BoolVar(&banner, "banner", false, "Print the banner")
	return cmd
}
