package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/dcasim/pricing/cache"
)

func newCacheCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the local price cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show what the cache holds",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(rc, func(s *cache.Store) error {
					st, err := s.Stats(cmd.Context())
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Path:     %s\n", s.Path())
					fmt.Fprintf(out, "Entries:  %d\n", st.Entries)
					fmt.Fprintf(out, "Coins:    %v\n", st.Coins)
					if st.Entries > 0 {
						fmt.Fprintf(out, "Fetched:  %s .. %s\n",
							st.Oldest.Format(time.RFC3339), st.Newest.Format(time.RFC3339))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cached price",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(rc, func(s *cache.Store) error {
					n, err := s.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
					return nil
				})
			},
		},
		newCachePurgeCmd(rc),
	)
	return cmd
}

func newCachePurgeCmd(rc *RootConfig) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries fetched longer ago than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withStore(rc, func(s *cache.Store) error {
				n, err := s.Purge(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", cache.DefaultTTL, "age cutoff")
	return cmd
}

func withStore(rc *RootConfig, fn func(*cache.Store) error) error {
	path := rc.Config.Source.Cache.Path
	if path == "" {
		path = cache.DefaultPath()
	}
	s, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer s.Close()
	return fn(s)
}
