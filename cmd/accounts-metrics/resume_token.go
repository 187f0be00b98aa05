package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vincentbai/accounts-metrics/internal/relier"
	"github.com/vincentbai/accounts-metrics/internal/resumetoken"
)

var resumeTokenFields []string

var resumeTokenCmd = &cobra.Command{
	Use:   "resume-token",
	Short: "Encode or decode resume tokens",
}

var resumeTokenEncodeCmd = &cobra.Command{
	Use:   "encode key=value...",
	Short: "Encode fields into a resume token",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := make(resumetoken.Fields, len(args))
		for _, arg := range args {
			name, value, ok := strings.Cut(arg, "=")
			if !ok || name == "" {
				return fmt.Errorf("expected key=value, got %q", arg)
			}
			fields[name] = value
		}
		fmt.Fprintln(cmd.OutOrStdout(), resumetoken.Encode(fields, resumeTokenFields))
		return nil
	},
}

var resumeTokenDecodeCmd = &cobra.Command{
	Use:   "decode token",
	Short: "Decode a resume token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(resumetoken.Decode(args[0], resumeTokenFields))
	},
}

func init() {
	resumeTokenCmd.PersistentFlags().StringSliceVar(&resumeTokenFields, "fields", relier.FieldsInResumeToken, "fields allowed in the token")
	resumeTokenCmd.AddCommand(resumeTokenEncodeCmd, resumeTokenDecodeCmd)
}
