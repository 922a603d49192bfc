package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vocalfx/internal/audio"
	"vocalfx/internal/scale"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(cmd.OutOrStdout())
		},
	}
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the selectable keys and their scale degrees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for k := range scale.Keys {
				notes := make([]string, scale.Degrees)
				for i := range notes {
					notes[i] = scale.NoteName(k, i+1)
				}
				if _, err := fmt.Fprintf(w, "%2d  %-9s %s\n", k, scale.Label(k), strings.Join(notes, " ")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
