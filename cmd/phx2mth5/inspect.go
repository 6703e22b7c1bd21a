package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/magnetotellurics/phx2mth5/internal/mth5"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive.h5>",
		Short: "Print the structure of an MTH5 archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := mth5.Summarize(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bold := color.New(color.Bold).SprintFunc()
			cyan := color.New(color.FgCyan).SprintFunc()
			green := color.New(color.FgGreen).SprintFunc()
			faint := color.New(color.Faint).SprintFunc()

			fmt.Fprintf(out, "%s %s\n", bold(info.Path), faint("(MTH5 "+info.FileVersion+")"))
			for _, st := range info.Stations {
				fmt.Fprintf(out, "  %s\n", cyan(st.Name))
				for _, run := range st.Runs {
					fmt.Fprintf(out, "    %s\n", green(run.ID))
					for _, ch := range run.Channels {
						fmt.Fprintf(out, "      %-4s %d samples\n", ch.Component, ch.Samples)
					}
				}
			}
			if len(info.Filters) > 0 {
				fmt.Fprintf(out, "  %s\n", cyan("filters"))
				for _, name := range info.Filters {
					fmt.Fprintf(out, "    %s\n", name)
				}
			}
			fmt.Fprintf(out, "%s total samples\n", bold(fmt.Sprintf("%d", info.TotalSamples())))
			return nil
		},
	}
}
