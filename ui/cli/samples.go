// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/inbound/internal/i18n"
	"github.com/toeirei/inbound/internal/inbox"
)

func newSamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samples",
		Short: i18n.T("cli.samples_short"),
	}

	var (
		prefix string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: i18n.T("cli.samples_list_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if appConfig.Debug.SampleSink == "file" {
				files, err := inbox.ListSampleFiles(appConfig.Debug.SampleDir)
				if err != nil {
					return err
				}
				shown := 0
				for _, f := range files {
					if prefix != "" && !strings.HasPrefix(filepath.Base(f), prefix) {
						continue
					}
					if limit > 0 && shown == limit {
						break
					}
					fmt.Fprintln(out, f)
					shown++
				}
				if shown == 0 {
					fmt.Fprintln(out, i18n.T("cli.samples_none"))
				}
				return nil
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			samples, err := store.ListSamples(cmd.Context(), prefix, limit)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				fmt.Fprintln(out, i18n.T("cli.samples_none"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tUID\tCREATED")
			for _, s := range samples {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", s.ID, s.Name, s.UID, s.CreatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&prefix, "prefix", "", "Only samples whose name starts with this prefix, e.g. unknown-")
	list.Flags().IntVar(&limit, "limit", 50, "Maximum number of samples (0 for all)")

	show := &cobra.Command{
		Use:   "show <id|file>",
		Short: i18n.T("cli.samples_show_short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *inbox.Sample
			if appConfig.Debug.SampleSink == "file" || strings.HasSuffix(args[0], ".zst") {
				var err error
				if s, err = inbox.ReadSampleFile(args[0]); err != nil {
					return err
				}
			} else {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid sample id %q: %w", args[0], err)
				}
				store, err := openStore()
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if s, err = store.Sample(cmd.Context(), id); err != nil {
					return err
				}
			}
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
