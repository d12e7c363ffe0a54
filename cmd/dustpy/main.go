package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chengchen0102/dustpy/internal/cgs"
	"github.com/chengchen0102/dustpy/internal/config"
	"github.com/chengchen0102/dustpy/internal/disk"
	"github.com/chengchen0102/dustpy/internal/export"
	"github.com/chengchen0102/dustpy/internal/metrics"
	"github.com/chengchen0102/dustpy/internal/sim"
	"github.com/chengchen0102/dustpy/internal/storage"
	"github.com/chengchen0102/dustpy/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	live       bool
	tEnd       float64
	alpha      float64
	vFrag      float64
	logEvery   int
	svgFile    string
)

var log = logrus.New()

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd := &cobra.Command{
		Use:   "dustpy",
		Short: "protoplanetary disk dust coagulation and transport",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dustpy", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().BoolVar(&live, "live", false, "live terminal monitor")
	runCmd.Flags().Float64Var(&tEnd, "t-end", 0, "end time [yr], overrides config")
	runCmd.Flags().Float64Var(&alpha, "alpha", 0, "turbulence parameter, overrides config")
	runCmd.Flags().Float64Var(&vFrag, "v-frag", 0, "fragmentation velocity [cm/s], overrides config")
	runCmd.Flags().IntVar(&logEvery, "log-every", 50, "log progress every N steps")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved snapshots",
		RunE:  listSnapshots,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [snapshot_id]",
		Short: "plot snapshot profiles",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSnapshot,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "write the profiles as SVG to this file instead")

	exportCmd := &cobra.Command{
		Use:   "export [snapshot_id]",
		Short: "export snapshot metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSnapshot,
	}

	rootCmd.AddCommand(runCmd, presetsCmd, initCmd, listCmd, plotCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p, err := config.Preset(preset)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	if cmd.Flags().Changed("t-end") {
		cfg.Integration.TEndYr = tEnd
	}
	if cmd.Flags().Changed("alpha") {
		cfg.Gas.Alpha = alpha
	}
	if cmd.Flags().Changed("v-frag") {
		cfg.Dust.VFrag = vFrag
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, err := disk.New(cfg)
	if err != nil {
		return err
	}

	observers := []metrics.Observer{
		metrics.NewGasMass(),
		metrics.NewDustMass(),
		metrics.NewDustMassDrift(),
		metrics.NewAccretion(),
		metrics.NewRetries(),
	}

	log.WithFields(logrus.Fields{
		"n_r":   cfg.Grid.NR,
		"n_m":   cfg.Grid.NM,
		"alpha": cfg.Gas.Alpha,
		"t_end": cfg.Integration.TEndYr,
	}).Info("starting run")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var updates chan tui.StepUpdate
	if live {
		updates = make(chan tui.StepUpdate, 8)
	}

	steps := 0
	snapIdx := 0
	snapInterval := cfg.Integration.TEndYr / float64(max(cfg.Integration.Snapshots, 1))
	start := time.Now()

	onStep := func(rep sim.Report) bool {
		steps++
		summary := metrics.Collect(observers, s, rep)

		if !live && steps%logEvery == 0 {
			log.WithFields(logrus.Fields{
				"t_yr":      s.TimeYr(),
				"dt_yr":     rep.Dt / cgs.Year,
				"retries":   rep.Retries,
				"dust_mass": summary["dust_mass"] / cgs.SolarMass,
			}).Info("step")
		}

		if s.TimeYr() >= float64(snapIdx+1)*snapInterval {
			snapIdx++
			id, err := st.Save(fmt.Sprintf("snap_%03d", snapIdx), s, steps, summary)
			if err != nil {
				log.WithError(err).Warn("snapshot failed")
			} else if !live {
				log.WithField("id", id).Info("snapshot saved")
			}
		}

		if live {
			updates <- tui.StepUpdate{
				TimeYr:     s.TimeYr(),
				TEndYr:     cfg.Integration.TEndYr,
				DtYr:       rep.Dt / cgs.Year,
				Steps:      steps,
				Retries:    rep.Retries,
				GasMass:    summary["gas_mass"] / cgs.SolarMass,
				DustMass:   summary["dust_mass"] / cgs.SolarMass,
				DustColumn: s.DustColumn(),
			}
		}
		return true
	}

	runErr := make(chan error, 1)
	if live {
		go func() {
			err := s.Run(ctx, onStep)
			if err != nil {
				updates <- tui.StepUpdate{Err: err}
			}
			close(updates)
			runErr <- err
		}()
		if err := tui.Run(updates, cancel); err != nil {
			return err
		}
		if err := <-runErr; err != nil && err != context.Canceled {
			return err
		}
	} else {
		if err := s.Run(ctx, onStep); err != nil {
			return err
		}
	}

	summary := metrics.Collect(observers, s, sim.Report{Status: sim.Accepted})
	id, err := st.Save("final", s, steps, summary)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"steps":   steps,
		"elapsed": time.Since(start).Round(time.Millisecond),
		"id":      id,
	}).Info("run complete")
	for name, val := range summary {
		fmt.Printf("  %s: %.6g\n", name, val)
	}

	printProfiles(s)
	return nil
}

// printProfiles renders the final gas and dust columns against radius on a
// log scale.
func printProfiles(s *disk.Simulation) {
	logOf := func(data []float64) []float64 {
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = math.Log10(math.Max(v, 1e-40))
		}
		return out
	}

	fmt.Println()
	fmt.Println(asciigraph.Plot(logOf(s.GasField.Data),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10 gas surface density vs radial cell"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(logOf(s.DustColumn()),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10 dust surface density vs radial cell"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(logOf(s.SizeDistribution()),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10 dust mass vs mass bin"),
	))
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	snaps, err := st.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("no snapshots found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSAVED\tTIME_YR\tSTEPS\tGRID")
	for _, snap := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%.4g\t%d\t%dx%d\n",
			snap.ID,
			snap.Timestamp.Format("2006-01-02 15:04:05"),
			snap.TimeYr,
			snap.Steps,
			snap.NR, snap.NM,
		)
	}
	return w.Flush()
}

func plotSnapshot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	r, sigma, _, err := st.LoadGas(args[0])
	if err != nil {
		return err
	}
	_, dustSigma, nm, err := st.LoadDust(args[0])
	if err != nil {
		return err
	}

	dustCol := make([]float64, 0, len(r))
	if nm > 0 {
		for i := 0; i < len(dustSigma)/nm; i++ {
			var sum float64
			for k := 0; k < nm; k++ {
				sum += dustSigma[i*nm+k]
			}
			dustCol = append(dustCol, sum)
		}
	}

	if svgFile != "" {
		doc := export.ProfileSVG([]export.Series{
			{Label: "gas [g/cm2]", Color: "#00ffff", R: r, Y: sigma},
			{Label: "dust [g/cm2]", Color: "#ffff00", R: r, Y: dustCol},
		}, 800, 500)
		return os.WriteFile(svgFile, []byte(doc), 0644)
	}

	fmt.Printf("snapshot: %s\n", meta.ID)
	fmt.Printf("time: %.4g yr\n\n", meta.TimeYr)

	logGas := make([]float64, len(sigma))
	for i, v := range sigma {
		logGas[i] = math.Log10(math.Max(v, 1e-40))
	}
	fmt.Println(asciigraph.Plot(logGas,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10 gas surface density vs radial cell"),
	))

	if len(dustCol) > 0 {
		logDust := make([]float64, len(dustCol))
		for i, v := range dustCol {
			logDust[i] = math.Log10(math.Max(v, 1e-40))
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(logDust,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("log10 dust surface density vs radial cell"),
		))
	}
	return nil
}

func exportSnapshot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
