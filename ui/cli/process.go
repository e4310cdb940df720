// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toeirei/inbound/internal/i18n"
	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/ldterm"
)

func newProcessCmd() *cobra.Command {
	var (
		uid     int64
		trusted bool
	)
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: i18n.T("cli.process_short"),
		Long: `Process a single activity without an HTTP transport. The file is either
a JSON activity or a recorded sample (*.json.zst); samples carry their own
account id and trust verdict. Unless --trusted is given the embedded object
is refetched from its origin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			body, sampleUID, sampleTrusted, err := readActivityFile(args[0])
			if err != nil {
				return err
			}
			if sampleUID != nil {
				uid, trusted = *sampleUID, sampleTrusted
			}
			outcome, err := processFile(cmd.Context(), buildPipeline(appConfig, store, nil), body, uid, trusted)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.process_outcome", outcome))
			return nil
		},
	}
	cmd.Flags().Int64Var(&uid, "uid", 0, "Receiving local account id (0 for the shared inbox)")
	cmd.Flags().BoolVar(&trusted, "trusted", false, "Treat the activity as signed by its actor")
	return cmd
}

// readActivityFile returns the body of path. Recorded samples also yield
// their account id and trust verdict.
func readActivityFile(path string) ([]byte, *int64, bool, error) {
	if strings.HasSuffix(path, ".zst") {
		s, err := inbox.ReadSampleFile(path)
		if err != nil {
			return nil, nil, false, err
		}
		if len(s.Body) == 0 {
			return nil, nil, false, fmt.Errorf("sample %s carries no body", path)
		}
		return s.Body, &s.UID, s.Trusted, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, false, err
	}
	return body, nil, false, nil
}

func processFile(ctx context.Context, p *pipeline, body []byte, uid int64, trusted bool) (inbox.Outcome, error) {
	raw, err := ldterm.Decode(body)
	if err != nil {
		return inbox.Discarded, fmt.Errorf("invalid activity: %w", err)
	}
	activity := p.normalizer.Compact(raw)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = p.upgrades.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	tc := inbox.TrustContext{Trusted: trusted}.WithSigner(activity.String("as:actor", ""))
	return p.receiver.ProcessActivity(ctx, activity, inbox.Delivery{UID: uid, Body: body, Trust: tc}), nil
}
