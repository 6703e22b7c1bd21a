package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magnetotellurics/phx2mth5/internal/calibration"
	"github.com/magnetotellurics/phx2mth5/internal/config"
	"github.com/magnetotellurics/phx2mth5/internal/converter"
	"github.com/magnetotellurics/phx2mth5/internal/observability"
)

func newConvertCommand() *cobra.Command {
	var (
		outputDir   string
		archiveName string
		rates       string
		rxcalDir    string
		scalDir     string
	)

	cmd := &cobra.Command{
		Use:   "convert <station-dir>",
		Short: "Convert one station directory into an MTH5 archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sampleRates, err := config.ParseSampleRates(rates)
			if err != nil {
				return err
			}

			logger := newLogger()
			conv := converter.New(logger, observability.NewMetrics())

			result, err := conv.FromPhoenix(cmd.Context(), converter.Options{
				StationDir:  args[0],
				OutputDir:   outputDir,
				ArchiveName: archiveName,
				SampleRates: sampleRates,
				ReceiverCal: calibration.Source{Dir: rxcalDir},
				SensorCal:   calibration.Source{Dir: scalDir},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d runs, %d samples)\n",
				result.Path, result.Runs, result.Samples)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for the archive (default: the station directory)")
	cmd.Flags().StringVar(&archiveName, "name", "", "archive file name (default: from_phoenix.h5)")
	cmd.Flags().StringVar(&rates, "sample-rates", "150,24000", "comma-separated sample rates to archive")
	cmd.Flags().StringVar(&rxcalDir, "rxcal-dir", "", "directory of receiver calibration JSON files")
	cmd.Flags().StringVar(&scalDir, "scal-dir", "", "directory of sensor calibration JSON files")

	return cmd
}
