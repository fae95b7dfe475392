package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"zoning_portal_backend/internal/permits/reconcile"
	"zoning_portal_backend/internal/scheduler"

	"github.com/spf13/cobra"
)

const operatorActor = "certctl"

func newReissueCmd() *cobra.Command {
	var (
		paymentID int64
		queue     bool
	)
	cmd := &cobra.Command{
		Use:   "reissue",
		Short: "Issue or resend the certificate of a verified payment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if paymentID <= 0 {
				return fmt.Errorf("--payment must be a positive payment id")
			}
			ctx := cmd.Context()
			env, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			if queue {
				client, err := scheduler.NewClient(env.cfg)
				if err != nil {
					return fmt.Errorf("init scheduler client: %w", err)
				}
				defer client.Close()
				taskID, err := client.EnqueueReissue(ctx, paymentID, operatorActor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued re-issue of payment %d as task %s\n", paymentID, taskID)
				return nil
			}

			result, err := env.permits.Issuer().Reissue(ctx, paymentID, operatorActor)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "certificate %s status=%s created=%t\n",
				result.Certificate.CertificateNumber, result.Certificate.Status, result.Created)
			for _, se := range result.SideEffects {
				fmt.Fprintf(out, "warning: %s\n", se.Error())
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&paymentID, "payment", 0, "payment id")
	cmd.Flags().BoolVar(&queue, "queue", false, "enqueue on the background worker instead of running inline")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func newAmbiguitiesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ambiguities",
		Short: "List composite keys shared by more than one application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			items, err := env.permits.Service().Ambiguities(ctx)
			if err != nil {
				return err
			}
			return writeAmbiguities(cmd.OutOrStdout(), items, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeAmbiguities(w io.Writer, items []reconcile.Ambiguity, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no ambiguous keys")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tAPPLICATIONS\tCHOSEN")
	for _, a := range items {
		fmt.Fprintf(tw, "%s\t%v\t%d\n", a.Key, a.ApplicationIDs, a.Chosen)
	}
	return tw.Flush()
}
