package main

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/server"
	"github.com/san-kum/chaoslab/internal/tui"
	"github.com/san-kum/chaoslab/internal/viz"
)

var (
	frameRate int
	theme     string

	addr    string
	origins string
)

func addLiveFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&frameRate, "fps", 30, "frame rate")
	f.StringVar(&theme, "theme", "phosphor", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	addAxisFlags(cmd)
}

func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.StringVar(&origins, "cors-origins", "", "comma-separated allowed origins (default any)")
}

func runLive(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd, args)
	if err != nil {
		return err
	}
	m, err := tui.New(exp, tui.Options{
		FPS:    frameRate,
		Theme:  theme,
		XIndex: xAxis,
		YIndex: yAxis,
	})
	if err != nil {
		return err
	}
	return tui.Run(m)
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := server.New(experiment.NewRegistry(), prometheus.NewRegistry(), logger)
	if err != nil {
		return err
	}

	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()
	return srv.ListenAndServe(ctx, addr, allowed)
}
